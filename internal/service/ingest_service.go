package service

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/guidewisey/guidewise/internal/ai"
	"github.com/guidewisey/guidewise/internal/extract"
	"github.com/guidewisey/guidewise/internal/filestore"
	"github.com/guidewisey/guidewise/internal/model"
	appErr "github.com/guidewisey/guidewise/internal/pkg/errors"
	"github.com/guidewisey/guidewise/internal/pkg/timeutil"
	"github.com/guidewisey/guidewise/internal/repo"
)

const minTextChars = 10

// Explainer is the LLM surface used by ingestion and Q&A.
type Explainer interface {
	Explain(ctx context.Context, text string, systemPrompt string) (string, error)
	Answer(ctx context.Context, question string, history []ai.Message) (string, error)
}

type IngestConfig struct {
	TempDir          string
	SummaryCacheSize int
	SummaryCacheTTL  time.Duration
}

type IngestService struct {
	db        *sql.DB
	store     filestore.Store
	extractor extract.Extractor
	explainer Explainer
	cfg       IngestConfig
	summaries *expirable.LRU[string, string]
}

func NewIngestService(db *sql.DB, store filestore.Store, extractor extract.Extractor, explainer Explainer, cfg IngestConfig) *IngestService {
	s := &IngestService{
		db:        db,
		store:     store,
		extractor: extractor,
		explainer: explainer,
		cfg:       cfg,
	}
	if cfg.SummaryCacheSize > 0 {
		s.summaries = expirable.NewLRU[string, string](cfg.SummaryCacheSize, nil, cfg.SummaryCacheTTL)
	}
	return s
}

// ProcessStorageKey downloads the object at key, extracts its text, asks the
// explainer for a summary and persists the document with its first
// assistant message.
func (s *IngestService) ProcessStorageKey(ctx context.Context, key string) (*model.Document, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, fmt.Errorf("%w: s3_key is required", appErr.ErrInvalid)
	}
	kind, ok := extract.KindForKey(key)
	if !ok {
		return nil, appErr.ErrUnsupportedType
	}
	ext := strings.ToLower(filepath.Ext(key))
	tmp, err := os.CreateTemp(s.cfg.TempDir, "ingest-*"+ext)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tmp.Close()
		if err := os.Remove(tmp.Name()); err != nil && !os.IsNotExist(err) {
			logutil.GetLogger(ctx).Warn("remove temp file failed", zap.String("path", tmp.Name()), zap.Error(err))
		}
	}()

	if err := s.store.Download(ctx, key, tmp); err != nil {
		logutil.GetLogger(ctx).Error("download file failed", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("%w: %s", appErr.ErrRetrieval, err.Error())
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("%w: %s", appErr.ErrRetrieval, err.Error())
	}
	text, err := s.extractor.Extract(ctx, kind, tmp.Name())
	if err != nil {
		logutil.GetLogger(ctx).Error("extract text failed", zap.String("key", key), zap.String("kind", string(kind)), zap.Error(err))
		return nil, fmt.Errorf("%w: %s", appErr.ErrExtraction, err.Error())
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: no text found in document", appErr.ErrExtraction)
	}
	summary, err := s.explain(ctx, text, "")
	if err != nil {
		return nil, err
	}
	return s.persist(ctx, key, text, summary)
}

// ProcessText summarizes pasted text in the preferred language.
func (s *IngestService) ProcessText(ctx context.Context, text, preferredLanguage string) (*model.Document, error) {
	if countNonSpace(text) < minTextChars {
		return nil, fmt.Errorf("%w: text is required and must be meaningful", appErr.ErrInvalid)
	}
	summary, err := s.explain(ctx, text, ai.LanguagePrompt(strings.TrimSpace(preferredLanguage)))
	if err != nil {
		return nil, err
	}
	return s.persist(ctx, model.TextSourceKey, text, summary)
}

func (s *IngestService) explain(ctx context.Context, text, systemPrompt string) (string, error) {
	cacheKey := summaryCacheKey(systemPrompt, text)
	if s.summaries != nil {
		if summary, ok := s.summaries.Get(cacheKey); ok {
			return summary, nil
		}
	}
	summary, err := s.explainer.Explain(ctx, text, systemPrompt)
	if err != nil {
		logutil.GetLogger(ctx).Error("explain document failed", zap.Error(err))
		return "", fmt.Errorf("%w: %s", appErr.ErrSummarization, err.Error())
	}
	if s.summaries != nil {
		s.summaries.Add(cacheKey, summary)
	}
	return summary, nil
}

func (s *IngestService) persist(ctx context.Context, sourceKey, text, summary string) (*model.Document, error) {
	now := timeutil.NowUnix()
	doc := &model.Document{
		SourceKey: sourceKey,
		Content:   text,
		Summary:   summary,
		Ctime:     now,
	}
	err := repo.WithTx(ctx, s.db, func(ctx context.Context, tx repo.DBTX) error {
		if err := repo.NewDocumentRepo(tx).Create(ctx, doc); err != nil {
			return err
		}
		return repo.NewMessageRepo(tx).Create(ctx, &model.Message{
			DocumentID: doc.ID,
			Role:       model.RoleAssistant,
			Content:    summary,
			Ctime:      now,
		})
	})
	if err != nil {
		return nil, err
	}
	logutil.GetLogger(ctx).Info("document ingested", zap.Int64("document_id", doc.ID), zap.String("source_key", sourceKey))
	return doc, nil
}

func countNonSpace(text string) int {
	n := 0
	for _, r := range text {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}

func summaryCacheKey(systemPrompt, text string) string {
	sum := sha256.Sum256([]byte(systemPrompt + "\x00" + text))
	return hex.EncodeToString(sum[:])
}
