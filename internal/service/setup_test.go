package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/guidewisey/guidewise/internal/ai"
	"github.com/guidewisey/guidewise/internal/extract"
	"github.com/guidewisey/guidewise/internal/filestore"
	"github.com/guidewisey/guidewise/internal/model"
	"github.com/guidewisey/guidewise/internal/repo"
)

type fakeExplainer struct {
	mu          sync.Mutex
	summary     string
	answer      string
	err         error
	explains    int
	answers     int
	lastPrompt  string
	lastHistory []ai.Message
}

func (f *fakeExplainer) Explain(ctx context.Context, text string, systemPrompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.explains++
	f.lastPrompt = systemPrompt
	if f.err != nil {
		return "", f.err
	}
	return f.summary, nil
}

func (f *fakeExplainer) Answer(ctx context.Context, question string, history []ai.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers++
	f.lastHistory = append([]ai.Message(nil), history...)
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

type fakeStore struct {
	objects   map[string][]byte
	err       error
	downloads int
}

func (f *fakeStore) Type() string { return "fake" }

func (f *fakeStore) Upload(ctx context.Context, key string, r io.ReadSeeker, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.objects[key] = data
	return nil
}

func (f *fakeStore) Download(ctx context.Context, key string, w io.Writer) error {
	f.downloads++
	if f.err != nil {
		return f.err
	}
	data, ok := f.objects[key]
	if !ok {
		return filestore.ErrNotFound
	}
	_, err := io.Copy(w, bytes.NewReader(data))
	return err
}

type fakeExtractor struct {
	text     string
	err      error
	lastKind extract.Kind
	lastPath string
}

func (f *fakeExtractor) Extract(ctx context.Context, kind extract.Kind, path string) (string, error) {
	f.lastKind = kind
	f.lastPath = path
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

var errUpstream = errors.New("upstream exploded")

func createUser(t *testing.T, db *sql.DB, username string) *model.User {
	t.Helper()
	user := &model.User{Username: username, Email: username + "@example.com", PasswordHash: "x", Ctime: 1, Mtime: 1}
	require.NoError(t, repo.NewUserRepo(db).Create(context.Background(), user))
	return user
}

func createDocument(t *testing.T, db *sql.DB, summary string) *model.Document {
	t.Helper()
	ctx := context.Background()
	doc := &model.Document{SourceKey: "k.pdf", Content: "content", Summary: summary, Ctime: 1}
	require.NoError(t, repo.NewDocumentRepo(db).Create(ctx, doc))
	require.NoError(t, repo.NewMessageRepo(db).Create(ctx, &model.Message{
		DocumentID: doc.ID, Role: model.RoleAssistant, Content: summary, Ctime: 1,
	}))
	return doc
}

func countRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}
