package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/guidewisey/guidewise/internal/model"
	appErr "github.com/guidewisey/guidewise/internal/pkg/errors"
	"github.com/guidewisey/guidewise/internal/pkg/jwt"
	"github.com/guidewisey/guidewise/internal/pkg/password"
	"github.com/guidewisey/guidewise/internal/pkg/timeutil"
	"github.com/guidewisey/guidewise/internal/repo"
)

type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	Password2 string
}

type AuthService struct {
	users     *repo.UserRepo
	jwtSecret []byte
	jwtTTL    time.Duration
}

func NewAuthService(users *repo.UserRepo, secret []byte, ttl time.Duration) *AuthService {
	return &AuthService{users: users, jwtSecret: secret, jwtTTL: ttl}
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	fields := appErr.FieldErrors{}
	if in.Username == "" {
		fields.Add("username", "This field is required.")
	}
	if in.Email == "" {
		fields.Add("email", "This field is required.")
	} else if _, err := mail.ParseAddress(in.Email); err != nil {
		fields.Add("email", "Enter a valid email address.")
	}
	if in.Password == "" {
		fields.Add("password", "This field is required.")
	} else {
		for _, msg := range password.Validate(in.Password, in.Username) {
			fields.Add("password", msg)
		}
	}
	if in.Password2 == "" {
		fields.Add("password2", "This field is required.")
	} else if in.Password != "" && in.Password != in.Password2 {
		fields.Add("password", "Passwords must match")
	}
	if in.Username != "" {
		if _, err := s.users.GetByUsername(ctx, in.Username); err == nil {
			fields.Add("username", "A user with that username already exists.")
		} else if !errors.Is(err, appErr.ErrNotFound) {
			return nil, err
		}
	}
	if len(fields) > 0 {
		return nil, fields
	}
	user, err := s.createUser(ctx, in.Username, in.Email, in.Password, 0)
	if errors.Is(err, appErr.ErrConflict) {
		fields.Add("username", "A user with that username already exists.")
		return nil, fields
	}
	return user, err
}

func (s *AuthService) createUser(ctx context.Context, username, email, plain string, isStaff int) (*model.User, error) {
	hash, err := password.Hash(plain)
	if err != nil {
		return nil, err
	}
	now := timeutil.NowUnix()
	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		IsStaff:      isStaff,
		Ctime:        now,
		Mtime:        now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies credentials and issues a bearer token alongside the user.
func (s *AuthService) Login(ctx context.Context, username, plain string) (*model.User, string, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, appErr.ErrNotFound) {
			return nil, "", appErr.ErrUnauthorized
		}
		return nil, "", err
	}
	if err := password.Compare(user.PasswordHash, plain); err != nil {
		return nil, "", appErr.ErrUnauthorized
	}
	token, err := jwt.GenerateToken(user.ID, user.Username, s.jwtSecret, s.jwtTTL)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *AuthService) GetUser(ctx context.Context, userID int64) (*model.User, error) {
	if userID <= 0 {
		return nil, appErr.ErrUnauthorized
	}
	return s.users.GetByID(ctx, userID)
}

// ParseToken returns the user id carried by a bearer token.
func (s *AuthService) ParseToken(token string) (int64, error) {
	claims, err := jwt.ParseToken(token, s.jwtSecret)
	if err != nil {
		return 0, appErr.ErrUnauthorized
	}
	return claims.UserID, nil
}

// EnsureAdmin creates a staff user unless the username is taken. The bool
// reports whether a user was created.
func (s *AuthService) EnsureAdmin(ctx context.Context, username, email, plain string) (*model.User, bool, error) {
	existing, err := s.users.GetByUsername(ctx, username)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, appErr.ErrNotFound) {
		return nil, false, err
	}
	user, err := s.createUser(ctx, username, email, plain, 1)
	if err != nil {
		return nil, false, err
	}
	return user, true, nil
}
