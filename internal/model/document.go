package model

// SessionSourcePrefix marks documents that anchor an anonymous session's quota.
const (
	SessionSourcePrefix = "SESSION_"
	TextSourceKey       = "TEXT"
)

type Document struct {
	ID         int64  `json:"id"`
	SourceKey  string `json:"s3_key"`
	SessionKey string `json:"-"`
	Content    string `json:"content"`
	Summary    string `json:"summary"`
	Ctime      int64  `json:"created_at"`
}
