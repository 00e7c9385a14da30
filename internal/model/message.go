package model

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	ID         int64  `json:"id"`
	DocumentID int64  `json:"document"`
	Role       string `json:"role"`
	Content    string `json:"message"`
	Ctime      int64  `json:"created_at"`
}
