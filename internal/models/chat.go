package models

// Chat roles. History is owned by the caller; the chat flows themselves are
// stateless.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// ChatMessage is one turn of a mentor or tutor conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
