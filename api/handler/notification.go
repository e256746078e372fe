package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/taskboard/backend/api/transport"
	"github.com/taskboard/backend/domain"
	"github.com/taskboard/backend/pkg/httpcontext"
	notificationUC "github.com/taskboard/backend/usecase/notification"
)

type NotificationHandler struct {
	baseHandler
	uc *notificationUC.UseCase
}

func NewNotificationHandler(uc *notificationUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Latest notifications for the authenticated user
// @Tags notifications
// @Router /api/v1/notifications [get]
func (h *NotificationHandler) GetNotifications(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	notifications, err := h.uc.ListForUser(stdCtx, userID)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, notifications)
}

// @Summary Mark one notification read
// @Tags notifications
// @Router /api/v1/notifications/{id}/read [patch]
func (h *NotificationHandler) MarkRead(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	id, _ := ctx.UserValue("id").(string)
	if id == "" {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "missing notification id", nil))
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	notification, err := h.uc.MarkRead(stdCtx, id, userID)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, notification)
}

// @Summary Mark all notifications read
// @Tags notifications
// @Router /api/v1/notifications/read-all [patch]
func (h *NotificationHandler) MarkAllRead(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.uc.MarkAllRead(stdCtx, userID); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, nil)
}

// @Summary Delete notification
// @Tags notifications
// @Router /api/v1/notifications/{id} [delete]
func (h *NotificationHandler) DeleteNotification(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	id, _ := ctx.UserValue("id").(string)
	if id == "" {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "missing notification id", nil))
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.uc.Delete(stdCtx, id, userID); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusNoContent, nil)
}
