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

type DocumentRepo struct {
	db DBTX
}

func NewDocumentRepo(db DBTX) *DocumentRepo {
	return &DocumentRepo{db: db}
}

func (r *DocumentRepo) Create(ctx context.Context, doc *model.Document) error {
	data := map[string]interface{}{
		"source_key":  doc.SourceKey,
		"session_key": dbutil.NullString(doc.SessionKey),
		"content":     doc.Content,
		"summary":     doc.Summary,
		"ctime":       doc.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("documents", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr+" RETURNING id", args)
	if err := r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&doc.ID); err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

func (r *DocumentRepo) GetByID(ctx context.Context, docID int64) (*model.Document, error) {
	sqlStr, args, err := builder.BuildSelect("documents", map[string]interface{}{"id": docID},
		[]string{"id", "source_key", "session_key", "content", "summary", "ctime"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	return scanDocument(r.db.QueryRowContext(ctx, sqlStr, args...))
}

// GetOrCreateBySessionKey returns the anchor document of an anonymous
// session, creating it on first use. Concurrent callers get the same row.
func (r *DocumentRepo) GetOrCreateBySessionKey(ctx context.Context, sessionKey string, now int64) (*model.Document, error) {
	sqlStr := `
		INSERT INTO documents (source_key, session_key, content, summary, ctime)
		VALUES (?, ?, '', '', ?)
		ON CONFLICT (session_key)
		DO UPDATE SET session_key = EXCLUDED.session_key
		RETURNING id, source_key, session_key, content, summary, ctime
	`
	args := []interface{}{model.SessionSourcePrefix + sessionKey, sessionKey, now}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	return scanDocument(r.db.QueryRowContext(ctx, sqlStr, args...))
}

func (r *DocumentRepo) Delete(ctx context.Context, docID int64) error {
	sqlStr, args, err := builder.BuildDelete("documents", map[string]interface{}{"id": docID})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	res, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

// DeleteBySessionKeys removes the anchor documents of the given sessions.
// Their trackers go with them by cascade.
func (r *DocumentRepo) DeleteBySessionKeys(ctx context.Context, keys []string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	sqlStr, args, err := builder.BuildDelete("documents", map[string]interface{}{"session_key in": keys})
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

// DeleteForExpiredSessions removes the anchor documents of sessions that
// expired before now. It must run before the sessions themselves are deleted.
func (r *DocumentRepo) DeleteForExpiredSessions(ctx context.Context, now int64) (int64, error) {
	sqlStr := `DELETE FROM documents WHERE session_key IN (SELECT session_key FROM sessions WHERE expire_at < ?)`
	args := []interface{}{now}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	res, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SessionAnchor identifies the anchor document of a session.
type SessionAnchor struct {
	ID         int64
	SessionKey string
}

// ListSessionAnchors pages through anchor documents in id order, starting
// after afterID.
func (r *DocumentRepo) ListSessionAnchors(ctx context.Context, afterID int64, limit uint) ([]SessionAnchor, error) {
	where := map[string]interface{}{
		"session_key": builder.IsNotNull,
		"id >":        afterID,
		"_orderby":    "id asc",
		"_limit":      []uint{0, limit},
	}
	sqlStr, args, err := builder.BuildSelect("documents", where, []string{"id", "session_key"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SessionAnchor
	for rows.Next() {
		var item SessionAnchor
		if err := rows.Scan(&item.ID, &item.SessionKey); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func scanDocument(row *sql.Row) (*model.Document, error) {
	var (
		doc        model.Document
		sessionKey sql.NullString
		summary    sql.NullString
	)
	err := row.Scan(&doc.ID, &doc.SourceKey, &sessionKey, &doc.Content, &summary, &doc.Ctime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, appErr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	doc.SessionKey = sessionKey.String
	doc.Summary = summary.String
	return &doc, nil
}
