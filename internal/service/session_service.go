package service

import (
	"context"
	"errors"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/guidewisey/guidewise/internal/model"
	appErr "github.com/guidewisey/guidewise/internal/pkg/errors"
	"github.com/guidewisey/guidewise/internal/pkg/timeutil"
	"github.com/guidewisey/guidewise/internal/session"
)

const maxKeyAttempts = 3

type SessionService struct {
	store session.Store
	ttl   time.Duration
}

func NewSessionService(store session.Store, ttl time.Duration) *SessionService {
	return &SessionService{store: store, ttl: ttl}
}

func (s *SessionService) TTL() time.Duration {
	return s.ttl
}

// Load returns the live session for key. Expired sessions are removed and
// reported as ErrNotFound.
func (s *SessionService) Load(ctx context.Context, key string) (*model.Session, error) {
	if key == "" {
		return nil, appErr.ErrNotFound
	}
	sess, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if sess.ExpireAt <= timeutil.NowUnix() {
		if err := s.store.Delete(ctx, key); err != nil {
			logutil.GetLogger(ctx).Warn("delete expired session failed", zap.Error(err))
		}
		return nil, appErr.ErrNotFound
	}
	return sess, nil
}

// Create starts a new session. userID 0 creates an anonymous session.
func (s *SessionService) Create(ctx context.Context, userID int64) (*model.Session, error) {
	now := timeutil.NowUnix()
	var lastErr error
	for i := 0; i < maxKeyAttempts; i++ {
		sess := &model.Session{
			Key:      newSessionKey(),
			UserID:   userID,
			ExpireAt: now + int64(s.ttl/time.Second),
			Ctime:    now,
			Mtime:    now,
		}
		err := s.store.Create(ctx, sess)
		if err == nil {
			return sess, nil
		}
		if !errors.Is(err, appErr.ErrConflict) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// Rotate replaces oldKey (if any) with a fresh session bound to userID.
func (s *SessionService) Rotate(ctx context.Context, oldKey string, userID int64) (*model.Session, error) {
	sess, err := s.Create(ctx, userID)
	if err != nil {
		return nil, err
	}
	if oldKey != "" {
		if err := s.store.Delete(ctx, oldKey); err != nil {
			logutil.GetLogger(ctx).Warn("delete rotated session failed", zap.Error(err))
		}
	}
	return sess, nil
}

func (s *SessionService) Destroy(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	return s.store.Delete(ctx, key)
}

func (s *SessionService) CleanupExpired(ctx context.Context) (int64, error) {
	return s.store.DeleteExpired(ctx, timeutil.NowUnix())
}
