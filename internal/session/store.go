package session

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/guidewisey/guidewise/internal/config"
	"github.com/guidewisey/guidewise/internal/model"
)

// Store persists sessions. Get returns errors.ErrNotFound for unknown keys;
// expiry is checked by the caller.
type Store interface {
	Get(ctx context.Context, key string) (*model.Session, error)
	Create(ctx context.Context, sess *model.Session) error
	Touch(ctx context.Context, sess *model.Session) error
	// Delete drops the session and its anchor document, whose trackers
	// cascade.
	Delete(ctx context.Context, key string) error
	// DeleteExpired purges sessions that expired before now along with their
	// anchor documents, returning how many sessions were cleaned up. Stores
	// with native expiry only sweep anchors whose session is gone.
	DeleteExpired(ctx context.Context, now int64) (int64, error)
}

func New(ctx context.Context, cfg config.SessionConfig, db *sql.DB) (Store, error) {
	switch cfg.Store {
	case config.SessionStoreDB, "":
		return NewDBStore(db), nil
	case config.SessionStoreRedis:
		client, err := NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return NewRedisStore(client, db), nil
	default:
		return nil, fmt.Errorf("unsupported session store: %s", cfg.Store)
	}
}
