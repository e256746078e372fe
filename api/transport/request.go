package transport

// CreateTaskRequest is the POST /tasks body. DueDate is an RFC3339 timestamp;
// priority and status fall back to service defaults when omitted.
type CreateTaskRequest struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	DueDate      string `json:"dueDate"`
	Priority     string `json:"priority,omitempty"`
	Status       string `json:"status,omitempty"`
	AssignedToID string `json:"assignedToId"`
}

// UpdateTaskRequest is the PATCH /tasks/{id} body. All fields are optional;
// absent fields leave the stored value untouched.
type UpdateTaskRequest struct {
	Title        *string `json:"title,omitempty"`
	Description  *string `json:"description,omitempty"`
	DueDate      *string `json:"dueDate,omitempty"`
	Priority     *string `json:"priority,omitempty"`
	Status       *string `json:"status,omitempty"`
	AssignedToID *string `json:"assignedToId,omitempty"`
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LogoutRequest struct {
	SessionID string `json:"session_id"`
}

type RefreshRequest struct {
	SessionID string `json:"session_id"`
	TTL       int    `json:"ttl_seconds"`
}
