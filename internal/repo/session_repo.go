package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/didi/gendry/builder"

	"github.com/guidewisey/guidewise/internal/model"
	"github.com/guidewisey/guidewise/internal/pkg/dbutil"
	appErr "github.com/guidewisey/guidewise/internal/pkg/errors"
)

type SessionRepo struct {
	db DBTX
}

func NewSessionRepo(db DBTX) *SessionRepo {
	return &SessionRepo{db: db}
}

func (r *SessionRepo) Create(ctx context.Context, sess *model.Session) error {
	data := map[string]interface{}{
		"session_key": sess.Key,
		"user_id":     dbutil.NullInt64(sess.UserID),
		"expire_at":   sess.ExpireAt,
		"ctime":       sess.Ctime,
		"mtime":       sess.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("sessions", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

func (r *SessionRepo) Get(ctx context.Context, key string) (*model.Session, error) {
	sqlStr, args, err := builder.BuildSelect("sessions", map[string]interface{}{"session_key": key},
		[]string{"session_key", "user_id", "expire_at", "ctime", "mtime"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	var (
		sess   model.Session
		userID sql.NullInt64
	)
	err = r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&sess.Key, &userID, &sess.ExpireAt, &sess.Ctime, &sess.Mtime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, appErr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	sess.UserID = userID.Int64
	return &sess, nil
}

func (r *SessionRepo) Touch(ctx context.Context, key string, expireAt, mtime int64) error {
	sqlStr, args, err := builder.BuildUpdate("sessions", map[string]interface{}{"session_key": key},
		map[string]interface{}{"expire_at": expireAt, "mtime": mtime})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *SessionRepo) Delete(ctx context.Context, key string) error {
	sqlStr, args, err := builder.BuildDelete("sessions", map[string]interface{}{"session_key": key})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *SessionRepo) DeleteExpired(ctx context.Context, now int64) (int64, error) {
	sqlStr, args, err := builder.BuildDelete("sessions", map[string]interface{}{"expire_at <": now})
	if err != nil {
		return 0, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	res, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
