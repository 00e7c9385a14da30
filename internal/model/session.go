package model

// Session is a cookie-backed server session. UserID is zero for anonymous sessions.
type Session struct {
	Key      string `json:"key"`
	UserID   int64  `json:"user_id"`
	ExpireAt int64  `json:"expire_at"`
	Ctime    int64  `json:"ctime"`
	Mtime    int64  `json:"mtime"`
}

func (s *Session) Anonymous() bool {
	return s.UserID == 0
}
