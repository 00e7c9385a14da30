package repo

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/guidewisey/guidewise/internal/model"
	"github.com/guidewisey/guidewise/internal/pkg/dbutil"
	appErr "github.com/guidewisey/guidewise/internal/pkg/errors"
)

var questionLimitReturning = " RETURNING " + strings.Join([]string{"id", "document_id", "user_id", "session_key", "question_count", "ctime", "mtime"}, ", ")

type QuestionLimitRepo struct {
	db DBTX
}

func NewQuestionLimitRepo(db DBTX) *QuestionLimitRepo {
	return &QuestionLimitRepo{db: db}
}

// GetOrCreateForUser returns the tracker for (document, user). A new tracker
// starts at zero; an existing one is returned unchanged.
func (r *QuestionLimitRepo) GetOrCreateForUser(ctx context.Context, docID, userID, now int64) (*model.QuestionLimit, error) {
	sqlStr := `
		INSERT INTO question_limits (document_id, user_id, session_key, question_count, ctime, mtime)
		VALUES (?, ?, NULL, 0, ?, ?)
		ON CONFLICT (document_id, user_id)
		DO UPDATE SET question_count = question_limits.question_count` + questionLimitReturning
	args := []interface{}{docID, userID, now, now}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	return scanQuestionLimit(r.db.QueryRowContext(ctx, sqlStr, args...))
}

func (r *QuestionLimitRepo) GetOrCreateForSession(ctx context.Context, docID int64, sessionKey string, now int64) (*model.QuestionLimit, error) {
	sqlStr := `
		INSERT INTO question_limits (document_id, user_id, session_key, question_count, ctime, mtime)
		VALUES (?, NULL, ?, 0, ?, ?)
		ON CONFLICT (document_id, session_key)
		DO UPDATE SET question_count = question_limits.question_count` + questionLimitReturning
	args := []interface{}{docID, sessionKey, now, now}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	return scanQuestionLimit(r.db.QueryRowContext(ctx, sqlStr, args...))
}

// Increment bumps the counter atomically and returns the new value. The
// update only applies while the counter is below max; otherwise it returns
// ErrQuotaExceeded and leaves the row untouched.
func (r *QuestionLimitRepo) Increment(ctx context.Context, id int64, max int, now int64) (int, error) {
	sqlStr := `UPDATE question_limits SET question_count = question_count + 1, mtime = ? WHERE id = ? AND question_count < ? RETURNING question_count`
	args := []interface{}{now, id, max}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	var count int
	err := r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, appErr.ErrQuotaExceeded
	}
	if err != nil {
		return 0, err
	}
	return count, nil
}

func scanQuestionLimit(row *sql.Row) (*model.QuestionLimit, error) {
	var (
		item       model.QuestionLimit
		userID     sql.NullInt64
		sessionKey sql.NullString
	)
	err := row.Scan(&item.ID, &item.DocumentID, &userID, &sessionKey, &item.Count, &item.Ctime, &item.Mtime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, appErr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	item.UserID = userID.Int64
	item.SessionKey = sessionKey.String
	return &item, nil
}
