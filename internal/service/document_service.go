package service

import (
	"context"
	"database/sql"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	appErr "github.com/guidewisey/guidewise/internal/pkg/errors"
	"github.com/guidewisey/guidewise/internal/repo"
)

type DocumentService struct {
	docs  *repo.DocumentRepo
	users *repo.UserRepo
}

func NewDocumentService(db *sql.DB) *DocumentService {
	return &DocumentService{docs: repo.NewDocumentRepo(db), users: repo.NewUserRepo(db)}
}

// Delete removes a document and, by cascade, its conversation and trackers.
// Only staff users may delete.
func (s *DocumentService) Delete(ctx context.Context, userID, documentID int64) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if appErr.IsNotFound(err) {
			return appErr.ErrUnauthorized
		}
		return err
	}
	if user.IsStaff == 0 {
		return appErr.ErrForbidden
	}
	if err := s.docs.Delete(ctx, documentID); err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("document deleted", zap.Int64("document_id", documentID), zap.Int64("user_id", userID))
	return nil
}
