package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type sessionPurger interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// SessionCleanupJob removes expired sessions from the store.
type SessionCleanupJob struct {
	sessions sessionPurger
}

func NewSessionCleanupJob(sessions sessionPurger) *SessionCleanupJob {
	return &SessionCleanupJob{sessions: sessions}
}

func (j *SessionCleanupJob) Name() string {
	return "session_cleanup"
}

func (j *SessionCleanupJob) Run(ctx context.Context) error {
	n, err := j.sessions.CleanupExpired(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		logutil.GetLogger(ctx).Info("expired sessions removed", zap.Int64("count", n))
	}
	return nil
}
