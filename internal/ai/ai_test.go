package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeChatter struct {
	reply string
	err   error
	calls int
	last  ChatRequest
}

func (f *fakeChatter) Chat(ctx context.Context, req ChatRequest) (string, error) {
	f.calls++
	f.last = req
	return f.reply, f.err
}

func TestGroupChatterFallsBack(t *testing.T) {
	bad := &fakeChatter{err: errors.New("down")}
	good := &fakeChatter{reply: "ok"}
	g := NewGroupChatter([]ChatterEntry{{Name: "a", Chatter: bad}, {Name: "b", Chatter: good}})

	res, err := g.Chat(context.Background(), ChatRequest{Prompt: "hi"})
	require.NoError(t, err)
	require.Equal(t, "ok", res)
	require.Equal(t, 1, bad.calls)
	require.Equal(t, 1, good.calls)
}

func TestGroupChatterReturnsLastError(t *testing.T) {
	last := errors.New("second")
	g := NewGroupChatter([]ChatterEntry{
		{Name: "a", Chatter: &fakeChatter{err: errors.New("first")}},
		{Name: "b", Chatter: &fakeChatter{err: last}},
	})
	_, err := g.Chat(context.Background(), ChatRequest{})
	require.ErrorIs(t, err, last)
}

func TestTrimHistoryKeepsFirstAndRecent(t *testing.T) {
	history := []Message{{Content: "0"}, {Content: "1"}, {Content: "2"}, {Content: "3"}, {Content: "4"}}
	require.Len(t, TrimHistory(history, 0), 5)
	require.Len(t, TrimHistory(history, 10), 5)

	got := TrimHistory(history, 3)
	require.Equal(t, []Message{{Content: "0"}, {Content: "3"}, {Content: "4"}}, got)
	require.Equal(t, []Message{{Content: "0"}}, TrimHistory(history, 1))
}

func TestManagerExplainBuildsPrompt(t *testing.T) {
	f := &fakeChatter{reply: "  summary  "}
	m := NewManager(f, ManagerConfig{Temperature: 0.2})

	out, err := m.Explain(context.Background(), "body", "")
	require.NoError(t, err)
	require.Equal(t, "summary", out)
	require.Equal(t, "Explain the following document:\nbody", f.last.Prompt)
	require.Contains(t, f.last.System, "explains ANY type of document")
	require.Contains(t, f.last.System, "Output language: English.")
	require.Equal(t, float32(0.2), f.last.Temperature)

	_, err = m.Explain(context.Background(), "body", LanguagePrompt("Spanish"))
	require.NoError(t, err)
	require.Contains(t, f.last.System, "Always respond in Spanish.")
}

func TestManagerExplainKeepsPreferredLanguageOnly(t *testing.T) {
	f := &fakeChatter{reply: "resumen"}
	m := NewManager(f, ManagerConfig{})

	_, err := m.Explain(context.Background(), "some text here", LanguagePrompt("Spanish"))
	require.NoError(t, err)
	require.Equal(t, LanguagePrompt("Spanish"), f.last.System)
	require.NotContains(t, f.last.System, DefaultLanguage)
	require.NotContains(t, f.last.System, "Output language")
}

func TestManagerRejectsEmptyReply(t *testing.T) {
	m := NewManager(&fakeChatter{reply: "   "}, ManagerConfig{})
	_, err := m.Answer(context.Background(), "q", nil)
	require.Error(t, err)
}

func TestManagerWithoutChatter(t *testing.T) {
	m := NewManager(nil, ManagerConfig{})
	_, err := m.Answer(context.Background(), "q", nil)
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestOpenAIProviderSendsHistory(t *testing.T) {
	var got openAIChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":" answer "}}]}`))
	}))
	defer srv.Close()

	p, err := NewProvider("openai", map[string]interface{}{"api_key": "key", "base_url": srv.URL})
	require.NoError(t, err)
	res, err := NewChatter(p, "m").Chat(context.Background(), ChatRequest{
		System:  "sys",
		History: []Message{{Role: RoleAssistant, Content: "a"}, {Role: RoleUser, Content: "b"}},
		Prompt:  "c",
	})
	require.NoError(t, err)
	require.Equal(t, "answer", res)
	require.Equal(t, "m", got.Model)
	require.Len(t, got.Messages, 4)
	require.Equal(t, "system", got.Messages[0].Role)
	require.Equal(t, RoleAssistant, got.Messages[1].Role)
	require.Equal(t, "c", got.Messages[3].Content)
}

func TestProviderWithoutKeyIsUnavailable(t *testing.T) {
	p, err := NewProvider("gemini", map[string]interface{}{})
	require.NoError(t, err)
	_, err = p.Chat(context.Background(), "m", ChatRequest{Prompt: "x"})
	require.ErrorIs(t, err, ErrUnavailable)

	_, err = NewProvider("unknown", map[string]interface{}{})
	require.Error(t, err)
}
