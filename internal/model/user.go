package model

type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	IsStaff      int    `json:"is_staff"`
	Ctime        int64  `json:"ctime"`
	Mtime        int64  `json:"mtime"`
}
