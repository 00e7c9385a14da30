package repo

import (
	"context"

	"github.com/didi/gendry/builder"

	"github.com/guidewisey/guidewise/internal/model"
	"github.com/guidewisey/guidewise/internal/pkg/dbutil"
)

type MessageRepo struct {
	db DBTX
}

func NewMessageRepo(db DBTX) *MessageRepo {
	return &MessageRepo{db: db}
}

func (r *MessageRepo) Create(ctx context.Context, msg *model.Message) error {
	data := map[string]interface{}{
		"document_id": msg.DocumentID,
		"role":        msg.Role,
		"content":     msg.Content,
		"ctime":       msg.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("messages", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr+" RETURNING id", args)
	return r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&msg.ID)
}

// ListByDocument returns the conversation in insertion order.
func (r *MessageRepo) ListByDocument(ctx context.Context, docID int64) ([]model.Message, error) {
	where := map[string]interface{}{
		"document_id": docID,
		"_orderby":    "id asc",
	}
	sqlStr, args, err := builder.BuildSelect("messages", where, []string{"id", "document_id", "role", "content", "ctime"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	items := make([]model.Message, 0)
	for rows.Next() {
		var item model.Message
		if err := rows.Scan(&item.ID, &item.DocumentID, &item.Role, &item.Content, &item.Ctime); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
