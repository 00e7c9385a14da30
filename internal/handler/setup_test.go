package handler_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/xxxsen/common/webapi"

	"github.com/guidewisey/guidewise/internal/ai"
	"github.com/guidewisey/guidewise/internal/config"
	"github.com/guidewisey/guidewise/internal/extract"
	"github.com/guidewisey/guidewise/internal/filestore"
	"github.com/guidewisey/guidewise/internal/handler"
	"github.com/guidewisey/guidewise/internal/middleware"
	"github.com/guidewisey/guidewise/internal/repo"
	"github.com/guidewisey/guidewise/internal/service"
	"github.com/guidewisey/guidewise/internal/session"
	"github.com/guidewisey/guidewise/internal/testutil"
)

const testPassword = "s3cure-passw0rd"

type fakeExplainer struct {
	mu       sync.Mutex
	answers  int
	explains int
}

func (f *fakeExplainer) Explain(ctx context.Context, text string, systemPrompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.explains++
	return "**Summary** of the letter", nil
}

func (f *fakeExplainer) Answer(ctx context.Context, question string, history []ai.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers++
	return "You need to pay by Friday.", nil
}

func (f *fakeExplainer) answerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.answers
}

type fakeExtractor struct{}

func (fakeExtractor) Extract(ctx context.Context, kind extract.Kind, path string) (string, error) {
	return "Dear parent, the school trip costs 20 euros.", nil
}

type testEnv struct {
	router    http.Handler
	db        *sql.DB
	explainer *fakeExplainer
	auth      *service.AuthService
	store     filestore.Store
}

func setupRouter(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t)
	store, err := filestore.New(config.FileStoreConfig{
		Type: "local",
		Data: map[string]interface{}{"dir": t.TempDir()},
	})
	require.NoError(t, err)

	explainer := &fakeExplainer{}
	sessionStore := session.NewDBStore(db)
	sessions := service.NewSessionService(sessionStore, time.Hour)
	authService := service.NewAuthService(repo.NewUserRepo(db), []byte("test-secret"), time.Hour)
	ingest := service.NewIngestService(db, store, fakeExtractor{}, explainer, service.IngestConfig{TempDir: t.TempDir()})
	qa := service.NewQAService(db, explainer, service.QAConfig{MaxQuestions: 3})
	cookies := handler.CookieConfig{SessionName: "sessionid", CSRFName: "csrftoken", SameSite: "lax"}

	deps := handler.RouterDeps{
		Auth:         handler.NewAuthHandler(authService, sessions, cookies),
		Documents:    handler.NewDocumentHandler(ingest, service.NewDocumentService(db)),
		QA:           handler.NewQAHandler(qa),
		Files:        handler.NewFileHandler(store, 1024*1024),
		Health:       handler.NewHealthHandler(db),
		Sessions:     sessions,
		Tokens:       authService,
		SessionGate:  service.NewGate(db, service.GateConfig{MaxQuestions: 3, UseSession: true}),
		DocumentGate: service.NewGate(db, service.GateConfig{MaxQuestions: 3}),
		Cookies:      cookies,
		CSRFHeader:   "X-CSRFToken",
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		"",
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS([]string{"http://localhost:3000"}, "X-CSRFToken"),
		),
	)
	require.NoError(t, err)
	return &testEnv{router: engine, db: db, explainer: explainer, auth: authService, store: store}
}

// client keeps cookies between requests like a browser would.
type client struct {
	t       *testing.T
	router  http.Handler
	cookies map[string]string
	token   string
	csrf    bool
}

func newClient(t *testing.T, env *testEnv) *client {
	return &client{t: t, router: env.router, cookies: map[string]string{}, csrf: true}
}

type apiResponse struct {
	Code  int
	Data  json.RawMessage `json:"data"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Fields map[string][]string `json:"fields"`
}

func (c *client) do(req *http.Request) *apiResponse {
	c.t.Helper()
	for name, value := range c.cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}
	if c.csrf && c.cookies["csrftoken"] != "" {
		req.Header.Set("X-CSRFToken", c.cookies["csrftoken"])
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	rec := httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)
	for _, ck := range rec.Result().Cookies() {
		if ck.MaxAge < 0 || ck.Value == "" {
			delete(c.cookies, ck.Name)
			continue
		}
		c.cookies[ck.Name] = ck.Value
	}
	out := &apiResponse{Code: rec.Code}
	if rec.Body.Len() > 0 {
		require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return out
}

func (c *client) get(path string) *apiResponse {
	return c.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (c *client) send(method, path string, body interface{}) *apiResponse {
	c.t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(c.t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *client) upload(path, filename string, content []byte) *apiResponse {
	c.t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(c.t, err)
	_, err = io.Copy(part, bytes.NewReader(content))
	require.NoError(c.t, err)
	require.NoError(c.t, writer.Close())
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return c.do(req)
}

func decodeData(t *testing.T, resp *apiResponse, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(resp.Data, dst))
}

// registerAndLogin creates a user and logs the client in through the API.
func registerAndLogin(t *testing.T, c *client, username string) {
	t.Helper()
	resp := c.send(http.MethodPost, "/api/v1/accounts/register", map[string]string{
		"username":  username,
		"email":     username + "@example.com",
		"password":  testPassword,
		"password2": testPassword,
	})
	require.Equal(t, http.StatusCreated, resp.Code)
	resp = c.send(http.MethodPost, "/api/v1/accounts/login", map[string]string{
		"username": username,
		"password": testPassword,
	})
	require.Equal(t, http.StatusOK, resp.Code)
	require.NotEmpty(t, c.cookies["sessionid"])
	require.NotEmpty(t, c.cookies["csrftoken"])
}

// processText ingests pasted text and returns the new document id.
func processText(t *testing.T, c *client) int64 {
	t.Helper()
	resp := c.send(http.MethodPost, "/api/v1/documents/process-text", map[string]string{
		"text":               "Your tax return is due on the 31st of this month.",
		"preferred_language": "Spanish",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Error.Message)
	var out struct {
		DocumentID int64  `json:"document_id"`
		Summary    string `json:"summary"`
	}
	decodeData(t, resp, &out)
	require.NotZero(t, out.DocumentID)
	require.Equal(t, "**Summary** of the letter", out.Summary)
	return out.DocumentID
}
