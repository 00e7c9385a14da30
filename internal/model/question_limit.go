package model

// QuestionLimit counts follow-up questions for one identity on one document.
// Exactly one of UserID and SessionKey is set.
type QuestionLimit struct {
	ID         int64  `json:"id"`
	DocumentID int64  `json:"document_id"`
	UserID     int64  `json:"user_id,omitempty"`
	SessionKey string `json:"session_key,omitempty"`
	Count      int    `json:"count"`
	Ctime      int64  `json:"ctime"`
	Mtime      int64  `json:"last_asked"`
}
