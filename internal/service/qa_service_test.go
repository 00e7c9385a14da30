package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/guidewisey/guidewise/internal/ai"
	"github.com/guidewisey/guidewise/internal/model"
	appErr "github.com/guidewisey/guidewise/internal/pkg/errors"
	"github.com/guidewisey/guidewise/internal/repo"
	"github.com/guidewisey/guidewise/internal/testutil"
)

func TestAskQuotaLifecycle(t *testing.T) {
	db := testutil.NewDB(t)
	user := createUser(t, db, "alice")
	doc := createDocument(t, db, "initial summary")
	explainer := &fakeExplainer{answer: "an answer"}
	gate := NewGate(db, GateConfig{MaxQuestions: 3})
	svc := NewQAService(db, explainer, QAConfig{MaxQuestions: 3})
	ctx := context.Background()
	req := GateRequest{UserID: user.ID, DocumentID: doc.ID}

	for i := 1; i <= 3; i++ {
		res, err := gate.Resolve(ctx, req)
		require.NoError(t, err)
		before := res.Tracker.Count
		out, err := svc.Ask(ctx, res, "question?")
		require.NoError(t, err)
		require.Equal(t, "an answer", out.Answer)
		require.Equal(t, 3-i, out.Remaining)
		require.Equal(t, 3-before-1, out.Remaining)
	}

	_, err := gate.Resolve(ctx, req)
	require.ErrorIs(t, err, appErr.ErrQuotaExceeded)
	msgs, err := repo.NewMessageRepo(db).ListByDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 7)

	left, err := svc.Remaining(ctx, user.ID, doc.ID)
	require.NoError(t, err)
	require.Zero(t, left)
}

func TestAskAppendsAfterHistory(t *testing.T) {
	db := testutil.NewDB(t)
	user := createUser(t, db, "alice")
	doc := createDocument(t, db, "initial summary")
	explainer := &fakeExplainer{answer: "first answer"}
	gate := NewGate(db, GateConfig{})
	svc := NewQAService(db, explainer, QAConfig{})
	ctx := context.Background()

	res, err := gate.Resolve(ctx, GateRequest{UserID: user.ID, DocumentID: doc.ID})
	require.NoError(t, err)
	_, err = svc.Ask(ctx, res, "  what now?  ")
	require.NoError(t, err)
	require.Equal(t, []ai.Message{{Role: model.RoleAssistant, Content: "initial summary"}}, explainer.lastHistory)

	explainer.answer = "second answer"
	res, err = gate.Resolve(ctx, GateRequest{UserID: user.ID, DocumentID: doc.ID})
	require.NoError(t, err)
	_, err = svc.Ask(ctx, res, "and then?")
	require.NoError(t, err)
	require.Len(t, explainer.lastHistory, 3)

	msgs, err := repo.NewMessageRepo(db).ListByDocument(ctx, doc.ID)
	require.NoError(t, err)
	want := []struct{ role, content string }{
		{model.RoleAssistant, "initial summary"},
		{model.RoleUser, "what now?"},
		{model.RoleAssistant, "first answer"},
		{model.RoleUser, "and then?"},
		{model.RoleAssistant, "second answer"},
	}
	require.Len(t, msgs, len(want))
	for i, w := range want {
		require.Equal(t, w.role, msgs[i].Role)
		require.Equal(t, w.content, msgs[i].Content)
		if i > 0 {
			require.Greater(t, msgs[i].ID, msgs[i-1].ID)
		}
	}
}

func TestAskFailuresDoNotConsumeQuota(t *testing.T) {
	db := testutil.NewDB(t)
	user := createUser(t, db, "alice")
	doc := createDocument(t, db, "initial summary")
	explainer := &fakeExplainer{answer: "x"}
	gate := NewGate(db, GateConfig{})
	svc := NewQAService(db, explainer, QAConfig{})
	ctx := context.Background()

	res, err := gate.Resolve(ctx, GateRequest{UserID: user.ID, DocumentID: doc.ID})
	require.NoError(t, err)

	_, err = svc.Ask(ctx, res, "   ")
	require.ErrorIs(t, err, appErr.ErrInvalid)
	require.Zero(t, explainer.answers)

	explainer.err = errUpstream
	_, err = svc.Ask(ctx, res, "why?")
	require.ErrorIs(t, err, appErr.ErrAnswer)

	require.Equal(t, 1, countRows(t, db, "messages"))
	left, err := svc.Remaining(ctx, user.ID, doc.ID)
	require.NoError(t, err)
	require.Equal(t, 3, left)
}

func TestConcurrentAsksNeverExceedQuota(t *testing.T) {
	db := testutil.NewDB(t)
	user := createUser(t, db, "alice")
	doc := createDocument(t, db, "initial summary")
	gate := NewGate(db, GateConfig{MaxQuestions: 3})
	svc := NewQAService(db, &fakeExplainer{answer: "x"}, QAConfig{MaxQuestions: 3})
	ctx := context.Background()

	const workers = 6
	results := make([]*GateResult, workers)
	for i := range results {
		res, err := gate.Resolve(ctx, GateRequest{UserID: user.ID, DocumentID: doc.ID})
		require.NoError(t, err)
		results[i] = res
	}
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(res *GateResult) {
			defer wg.Done()
			_, err := svc.Ask(ctx, res, "q")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if appErr.IsQuotaExceeded(err) {
				rejected++
			}
		}(results[i])
	}
	wg.Wait()
	require.Equal(t, 3, succeeded)
	require.Equal(t, 3, rejected)
	require.Equal(t, 1+2*3, countRows(t, db, "messages"))
}

func TestRemainingValidation(t *testing.T) {
	db := testutil.NewDB(t)
	user := createUser(t, db, "alice")
	svc := NewQAService(db, &fakeExplainer{}, QAConfig{})
	ctx := context.Background()

	_, err := svc.Remaining(ctx, user.ID, 0)
	require.ErrorIs(t, err, appErr.ErrInvalid)
	_, err = svc.Remaining(ctx, user.ID, 42)
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestHistoryRendersMarkdown(t *testing.T) {
	db := testutil.NewDB(t)
	doc := createDocument(t, db, "**Pay** by Friday")
	svc := NewQAService(db, &fakeExplainer{}, QAConfig{})

	items, err := svc.History(context.Background(), doc.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Contains(t, items[0].HTML, "<strong>Pay</strong>")
	require.Equal(t, "**Pay** by Friday", items[0].Content)

	_, err = svc.History(context.Background(), doc.ID+1)
	require.ErrorIs(t, err, appErr.ErrNotFound)
}
