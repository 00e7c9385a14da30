package session

import (
	"context"
	"database/sql"

	"github.com/guidewisey/guidewise/internal/model"
	"github.com/guidewisey/guidewise/internal/repo"
)

type dbStore struct {
	db       *sql.DB
	sessions *repo.SessionRepo
}

func NewDBStore(db *sql.DB) Store {
	return &dbStore{db: db, sessions: repo.NewSessionRepo(db)}
}

func (s *dbStore) Get(ctx context.Context, key string) (*model.Session, error) {
	return s.sessions.Get(ctx, key)
}

func (s *dbStore) Create(ctx context.Context, sess *model.Session) error {
	return s.sessions.Create(ctx, sess)
}

func (s *dbStore) Touch(ctx context.Context, sess *model.Session) error {
	return s.sessions.Touch(ctx, sess.Key, sess.ExpireAt, sess.Mtime)
}

// Delete drops the session together with its anchor document.
func (s *dbStore) Delete(ctx context.Context, key string) error {
	return repo.WithTx(ctx, s.db, func(ctx context.Context, tx repo.DBTX) error {
		if _, err := repo.NewDocumentRepo(tx).DeleteBySessionKeys(ctx, []string{key}); err != nil {
			return err
		}
		return repo.NewSessionRepo(tx).Delete(ctx, key)
	})
}

func (s *dbStore) DeleteExpired(ctx context.Context, now int64) (int64, error) {
	var removed int64
	err := repo.WithTx(ctx, s.db, func(ctx context.Context, tx repo.DBTX) error {
		if _, err := repo.NewDocumentRepo(tx).DeleteForExpiredSessions(ctx, now); err != nil {
			return err
		}
		n, err := repo.NewSessionRepo(tx).DeleteExpired(ctx, now)
		removed = n
		return err
	})
	return removed, err
}
