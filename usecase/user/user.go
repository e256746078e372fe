package user

import (
	"context"

	"go.uber.org/zap"

	"github.com/taskboard/backend/domain"
	"github.com/taskboard/backend/repository"
)

type UseCase struct {
	users  repository.UserRepository
	logger *zap.Logger
}

func New(users repository.UserRepository, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		users:  users,
		logger: logger,
	}
}

func (uc *UseCase) Get(ctx context.Context, id string) (*domain.User, error) {
	return uc.users.GetByID(ctx, id)
}

// List returns all users, used by clients to pick an assignee.
func (uc *UseCase) List(ctx context.Context) ([]domain.User, error) {
	return uc.users.List(ctx)
}
