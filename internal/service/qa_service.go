package service

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"github.com/yuin/goldmark"
	"go.uber.org/zap"

	"github.com/guidewisey/guidewise/internal/ai"
	"github.com/guidewisey/guidewise/internal/model"
	appErr "github.com/guidewisey/guidewise/internal/pkg/errors"
	"github.com/guidewisey/guidewise/internal/pkg/timeutil"
	"github.com/guidewisey/guidewise/internal/repo"
)

type AskResult struct {
	Answer    string `json:"answer"`
	Remaining int    `json:"remaining"`
}

type HistoryItem struct {
	model.Message
	HTML string `json:"html"`
}

type QAConfig struct {
	MaxQuestions int
}

type QAService struct {
	db        *sql.DB
	docs      *repo.DocumentRepo
	messages  *repo.MessageRepo
	limits    *repo.QuestionLimitRepo
	explainer Explainer
	cfg       QAConfig
	md        goldmark.Markdown
}

func NewQAService(db *sql.DB, explainer Explainer, cfg QAConfig) *QAService {
	if cfg.MaxQuestions <= 0 {
		cfg.MaxQuestions = DefaultMaxQuestions
	}
	return &QAService{
		db:        db,
		docs:      repo.NewDocumentRepo(db),
		messages:  repo.NewMessageRepo(db),
		limits:    repo.NewQuestionLimitRepo(db),
		explainer: explainer,
		cfg:       cfg,
		md:        goldmark.New(),
	}
}

// Ask answers a follow-up question on a gated document. The question and
// answer are appended and the tracker incremented only after the explainer
// succeeds.
func (s *QAService) Ask(ctx context.Context, gate *GateResult, question string) (*AskResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is required", appErr.ErrInvalid)
	}
	msgs, err := s.messages.ListByDocument(ctx, gate.Document.ID)
	if err != nil {
		return nil, err
	}
	history := make([]ai.Message, 0, len(msgs))
	for _, m := range msgs {
		history = append(history, ai.Message{Role: m.Role, Content: m.Content})
	}
	answer, err := s.explainer.Answer(ctx, question, history)
	if err != nil {
		logutil.GetLogger(ctx).Error("answer question failed", zap.Int64("document_id", gate.Document.ID), zap.Error(err))
		return nil, fmt.Errorf("%w: %s", appErr.ErrAnswer, err.Error())
	}

	var count int
	now := timeutil.NowUnix()
	err = repo.WithTx(ctx, s.db, func(ctx context.Context, tx repo.DBTX) error {
		messages := repo.NewMessageRepo(tx)
		for _, m := range []*model.Message{
			{DocumentID: gate.Document.ID, Role: model.RoleUser, Content: question, Ctime: now},
			{DocumentID: gate.Document.ID, Role: model.RoleAssistant, Content: answer, Ctime: now},
		} {
			if err := messages.Create(ctx, m); err != nil {
				return err
			}
		}
		var err error
		count, err = repo.NewQuestionLimitRepo(tx).Increment(ctx, gate.Tracker.ID, gate.MaxQuestions, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	gate.Tracker.Count = count
	gate.Tracker.Mtime = now
	return &AskResult{Answer: answer, Remaining: gate.MaxQuestions - count}, nil
}

// Remaining reports the questions left for a user on a document without
// consuming any.
func (s *QAService) Remaining(ctx context.Context, userID, documentID int64) (int, error) {
	if userID <= 0 {
		return 0, appErr.ErrUnauthorized
	}
	if documentID <= 0 {
		return 0, fmt.Errorf("%w: document_id is required", appErr.ErrInvalid)
	}
	doc, err := s.docs.GetByID(ctx, documentID)
	if err != nil {
		if appErr.IsNotFound(err) {
			return 0, fmt.Errorf("%w: document not found", appErr.ErrNotFound)
		}
		return 0, err
	}
	tracker, err := s.limits.GetOrCreateForUser(ctx, doc.ID, userID, timeutil.NowUnix())
	if err != nil {
		return 0, err
	}
	return remaining(s.cfg.MaxQuestions, tracker.Count), nil
}

// History returns the conversation of a document with markdown rendered to
// HTML.
func (s *QAService) History(ctx context.Context, documentID int64) ([]HistoryItem, error) {
	if _, err := s.docs.GetByID(ctx, documentID); err != nil {
		return nil, err
	}
	msgs, err := s.messages.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	items := make([]HistoryItem, 0, len(msgs))
	for _, m := range msgs {
		var buf bytes.Buffer
		if err := s.md.Convert([]byte(m.Content), &buf); err != nil {
			return nil, err
		}
		items = append(items, HistoryItem{Message: m, HTML: buf.String()})
	}
	return items, nil
}
