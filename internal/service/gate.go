package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/guidewisey/guidewise/internal/model"
	appErr "github.com/guidewisey/guidewise/internal/pkg/errors"
	"github.com/guidewisey/guidewise/internal/pkg/timeutil"
	"github.com/guidewisey/guidewise/internal/repo"
)

const DefaultMaxQuestions = 3

type GateConfig struct {
	MaxQuestions int
	// UseSession keys the tracker by the caller's session on a per-session
	// anchor document instead of by (user, requested document).
	UseSession bool
}

type GateRequest struct {
	SessionKey string
	UserID     int64
	DocumentID int64
}

type GateResult struct {
	Document     *model.Document
	Tracker      *model.QuestionLimit
	MaxQuestions int
}

func (r *GateResult) Remaining() int {
	return remaining(r.MaxQuestions, r.Tracker.Count)
}

// Gate resolves the identity and document of a request and enforces the
// per-document question quota before any handler work runs.
type Gate struct {
	docs   *repo.DocumentRepo
	limits *repo.QuestionLimitRepo
	cfg    GateConfig
}

func NewGate(db *sql.DB, cfg GateConfig) *Gate {
	if cfg.MaxQuestions <= 0 {
		cfg.MaxQuestions = DefaultMaxQuestions
	}
	return &Gate{
		docs:   repo.NewDocumentRepo(db),
		limits: repo.NewQuestionLimitRepo(db),
		cfg:    cfg,
	}
}

func (g *Gate) Resolve(ctx context.Context, req GateRequest) (*GateResult, error) {
	var (
		doc     *model.Document
		tracker *model.QuestionLimit
		err     error
	)
	now := timeutil.NowUnix()
	if g.cfg.UseSession {
		if req.SessionKey == "" {
			return nil, fmt.Errorf("%w: session is required", appErr.ErrUnauthorized)
		}
		doc, err = g.docs.GetOrCreateBySessionKey(ctx, req.SessionKey, now)
		if err != nil {
			return nil, err
		}
		tracker, err = g.limits.GetOrCreateForSession(ctx, doc.ID, req.SessionKey, now)
		if err != nil {
			return nil, err
		}
	} else {
		if req.UserID <= 0 {
			return nil, appErr.ErrUnauthorized
		}
		if req.DocumentID <= 0 {
			return nil, fmt.Errorf("%w: document_id is required", appErr.ErrInvalid)
		}
		doc, err = g.docs.GetByID(ctx, req.DocumentID)
		if err != nil {
			if appErr.IsNotFound(err) {
				return nil, fmt.Errorf("%w: document not found", appErr.ErrNotFound)
			}
			return nil, err
		}
		tracker, err = g.limits.GetOrCreateForUser(ctx, doc.ID, req.UserID, now)
		if err != nil {
			return nil, err
		}
	}
	if tracker.Count >= g.cfg.MaxQuestions {
		return nil, appErr.ErrQuotaExceeded
	}
	return &GateResult{Document: doc, Tracker: tracker, MaxQuestions: g.cfg.MaxQuestions}, nil
}

func remaining(max, count int) int {
	if count >= max {
		return 0
	}
	return max - count
}
