package webui

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"adei_backend/agent"
	"adei_backend/charts"
	"adei_backend/core"
	"adei_backend/db"
	"adei_backend/logging"
	"adei_backend/metrics"
	"adei_backend/shutdown"
)

const testSelectSQL = "SELECT name, adei_score FROM countries ORDER BY adei_rank ASC LIMIT 5"

// scriptedCompleter implements core.Completer with a queue of replies.
// Calls are recorded so tests can assert on prompts and history.
type scriptedCompleter struct {
	mu      sync.Mutex
	calls   []core.CompletionRequest
	replies []string
	err     error
}

func (f *scriptedCompleter) Complete(_ context.Context, req core.CompletionRequest) (*core.CompletionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, req)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.replies) == 0 {
		return nil, errors.New("no scripted reply left")
	}
	content := f.replies[0]
	f.replies = f.replies[1:]
	return &core.CompletionResult{
		Content:  content,
		Usage:    core.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
		Attempts: 1,
	}, nil
}

func (f *scriptedCompleter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *scriptedCompleter) call(i int) core.CompletionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[i]
}

// chatHarness bundles a ChatAPI with the fakes behind it.
type chatHarness struct {
	api       *ChatAPI
	completer *scriptedCompleter
	sessions  *ChatSessionStore
	repo      *db.Repository
	store     *metrics.MetricsStore
}

// setupChatAPI builds a ChatAPI over a migrated, seeded temp database and a
// scripted completion client. withExtractor adds the chartable check.
func setupChatAPI(t *testing.T, withExtractor bool) *chatHarness {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "index.db")
	database, err := db.NewDatabaseWithConfig(db.DatabaseConfig{
		Path:           dbPath,
		MigrationsPath: "file://../db/migrations",
	})
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := database.Migrate(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	repo := db.NewRepository(database, nil)
	seedDashboardData(t, repo)

	completer := &scriptedCompleter{}
	sqlAgent := agent.New(agent.Config{Model: "test", MaxTokens: 256, HistoryLimit: 10}, completer, repo, logging.NewNopLogger())
	sessions := NewChatSessionStore(10, time.Hour)
	store := metrics.NewMetricsStore(metrics.DefaultStoreConfig(), time.Now())

	var extractor *charts.ChartExtractor
	if withExtractor {
		extractor = charts.NewChartExtractor(charts.DefaultChartExtractorConfig(), completer, logging.NewNopLogger())
	}

	api := NewChatAPI(ChatAPIConfig{
		Agent:     sqlAgent,
		Extractor: extractor,
		Render:    charts.DefaultRenderConfig(),
		Sessions:  sessions,
		Repo:      repo,
		Store:     store,
		Logger:    logging.NewNopLogger(),
	})

	return &chatHarness{
		api:       api,
		completer: completer,
		sessions:  sessions,
		repo:      repo,
		store:     store,
	}
}

func postChat(t *testing.T, api *ChatAPI, body string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	api.HandleChat(rr, req)
	return rr
}

func TestChatAPI_HandleChat(t *testing.T) {
	h := setupChatAPI(t, false)
	h.completer.replies = []string{
		testSelectSQL,
		"Saudi Arabia leads the index with a score of 76.",
	}

	rr := postChat(t, h.api, `{"question": "Which country leads the index?"}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	var resp ChatResponse
	decodeBody(t, rr, &resp)
	if resp.Answer != "Saudi Arabia leads the index with a score of 76." {
		t.Errorf("Answer = %q", resp.Answer)
	}
	if resp.SQL != testSelectSQL {
		t.Errorf("SQL = %q, want %q", resp.SQL, testSelectSQL)
	}
	if _, err := uuid.Parse(resp.SessionID); err != nil {
		t.Errorf("SessionID = %q is not a UUID", resp.SessionID)
	}
	if resp.DurationMS < 0 {
		t.Errorf("DurationMS = %d, want >= 0", resp.DurationMS)
	}

	// Both generation and synthesis ran
	if h.completer.callCount() != 2 {
		t.Errorf("completer calls = %d, want 2", h.completer.callCount())
	}

	// The turn landed in session history and the durable log
	history := h.sessions.History(resp.SessionID)
	if len(history) != 2 {
		t.Errorf("history length = %d, want 2", len(history))
	}
	count, err := h.repo.CountChatTurns(context.Background())
	if err != nil {
		t.Fatalf("CountChatTurns() error = %v", err)
	}
	if count != 1 {
		t.Errorf("persisted turns = %d, want 1", count)
	}

	taskMetrics := h.store.GetTaskMetrics()
	if taskMetrics.TotalProcessed != 1 || taskMetrics.TotalSuccess != 1 {
		t.Errorf("task metrics = %+v, want 1 processed 1 success", taskMetrics)
	}
}

func TestChatAPI_HandleChat_MethodNotAllowed(t *testing.T) {
	h := setupChatAPI(t, false)

	rr := httptest.NewRecorder()
	h.api.HandleChat(rr, httptest.NewRequest(http.MethodGet, "/api/chat", nil))

	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusMethodNotAllowed)
	}
}

func TestChatAPI_HandleChat_BadRequest(t *testing.T) {
	h := setupChatAPI(t, false)

	t.Run("invalid JSON", func(t *testing.T) {
		rr := postChat(t, h.api, `{not json`)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", rr.Code, http.StatusBadRequest)
		}
		var resp ErrorResponse
		decodeBody(t, rr, &resp)
		if resp.Error != "invalid_request" {
			t.Errorf("error = %q, want invalid_request", resp.Error)
		}
	})

	t.Run("empty question", func(t *testing.T) {
		rr := postChat(t, h.api, `{"question": "   "}`)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", rr.Code, http.StatusBadRequest)
		}
		var resp ErrorResponse
		decodeBody(t, rr, &resp)
		if resp.Error != "empty_question" {
			t.Errorf("error = %q, want empty_question", resp.Error)
		}
	})
}

func TestChatAPI_HandleChat_QueryFailure(t *testing.T) {
	h := setupChatAPI(t, false)
	// Both generation attempts produce SQL that passes the guard but fails
	// to execute, so the turn folds the failure into the answer.
	h.completer.replies = []string{
		"SELECT FROM WHERE",
		"SELECT FROM WHERE",
	}

	rr := postChat(t, h.api, `{"question": "gibberish please"}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	var resp ChatResponse
	decodeBody(t, rr, &resp)
	if !strings.HasPrefix(resp.Answer, "Sorry, I encountered an error") {
		t.Errorf("Answer = %q, want apology prefix", resp.Answer)
	}
	if resp.SQL != "" {
		t.Errorf("SQL = %q, want empty on failed turn", resp.SQL)
	}

	// Failed turns still reach the durable log
	count, err := h.repo.CountChatTurns(context.Background())
	if err != nil {
		t.Fatalf("CountChatTurns() error = %v", err)
	}
	if count != 1 {
		t.Errorf("persisted turns = %d, want 1", count)
	}

	taskMetrics := h.store.GetTaskMetrics()
	if taskMetrics.TotalErrors != 1 {
		t.Errorf("TotalErrors = %d, want 1", taskMetrics.TotalErrors)
	}
}

func TestChatAPI_HandleChat_CompleterDown(t *testing.T) {
	h := setupChatAPI(t, false)
	h.completer.err = errors.New("connection refused")

	rr := postChat(t, h.api, `{"question": "Which country leads the index?"}`)

	if rr.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusBadGateway)
	}
	var resp ErrorResponse
	decodeBody(t, rr, &resp)
	if resp.Error != "chat_failed" {
		t.Errorf("error = %q, want chat_failed", resp.Error)
	}
}

func TestChatAPI_RunTurn_StagesAndChart(t *testing.T) {
	h := setupChatAPI(t, true)
	h.completer.replies = []string{
		testSelectSQL,
		"Saudi Arabia scores 76 and Qatar scores 74.",
		`{"chartable": true, "title": "ADEI scores", "data": [{"label": "Saudi Arabia", "value": 76}, {"label": "Qatar", "value": 74}]}`,
	}

	var stages []string
	resp, err := h.api.RunTurn(context.Background(), "", "Compare the top two countries.", func(stage string) {
		stages = append(stages, stage)
	})
	if err != nil {
		t.Fatalf("RunTurn() error = %v", err)
	}

	want := []string{StageGeneratingSQL, StageRunningQuery, StageRenderingChart}
	if len(stages) != len(want) {
		t.Fatalf("stages = %v, want %v", stages, want)
	}
	for i := range want {
		if stages[i] != want[i] {
			t.Errorf("stages[%d] = %q, want %q", i, stages[i], want[i])
		}
	}

	if resp.Chart == nil {
		t.Fatal("Chart is nil, want chartable payload")
	}
	if resp.Chart.Title != "ADEI scores" {
		t.Errorf("Chart.Title = %q, want ADEI scores", resp.Chart.Title)
	}
	if len(resp.Chart.Data) != 2 {
		t.Errorf("got %d chart points, want 2", len(resp.Chart.Data))
	}
	if resp.ChartImage == "" {
		t.Error("ChartImage is empty, want base64 PNG")
	}
}

func TestChatAPI_RunTurn_NotChartable(t *testing.T) {
	h := setupChatAPI(t, true)
	h.completer.replies = []string{
		testSelectSQL,
		"Saudi Arabia holds the top rank.",
		`{"chartable": false}`,
	}

	resp, err := h.api.RunTurn(context.Background(), "", "Which country ranks first?", nil)
	if err != nil {
		t.Fatalf("RunTurn() error = %v", err)
	}

	if resp.Chart != nil {
		t.Errorf("Chart = %+v, want nil", resp.Chart)
	}
	if resp.ChartImage != "" {
		t.Error("ChartImage should be empty for a text-only answer")
	}
}

func TestChatAPI_RunTurn_SessionHistory(t *testing.T) {
	h := setupChatAPI(t, false)
	h.completer.replies = []string{
		testSelectSQL,
		"Saudi Arabia leads.",
		testSelectSQL,
		"Qatar is second.",
	}

	first, err := h.api.RunTurn(context.Background(), "", "Which country leads?", nil)
	if err != nil {
		t.Fatalf("first RunTurn() error = %v", err)
	}

	_, err = h.api.RunTurn(context.Background(), first.SessionID, "And which is second?", nil)
	if err != nil {
		t.Fatalf("second RunTurn() error = %v", err)
	}

	// The second generation call carries the first turn as history
	gen := h.completer.call(2)
	if len(gen.History) != 2 {
		t.Fatalf("generation history = %d messages, want 2", len(gen.History))
	}
	if gen.History[0].Role != "user" || gen.History[0].Content != "Which country leads?" {
		t.Errorf("History[0] = %+v", gen.History[0])
	}
	if gen.History[1].Role != "assistant" || gen.History[1].Content != "Saudi Arabia leads." {
		t.Errorf("History[1] = %+v", gen.History[1])
	}

	if got := len(h.sessions.History(first.SessionID)); got != 4 {
		t.Errorf("session history = %d messages, want 4", got)
	}
}

func TestChatAPI_RunTurn_AfterShutdown(t *testing.T) {
	h := setupChatAPI(t, false)

	manager := shutdown.NewManager(logging.NewNopLogger())
	h.api.manager = manager
	if err := manager.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	_, err := h.api.RunTurn(context.Background(), "", "Which country leads?", nil)
	if !errors.Is(err, ErrShuttingDown) {
		t.Errorf("error = %v, want ErrShuttingDown", err)
	}

	rr := postChat(t, h.api, `{"question": "Which country leads?"}`)
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusServiceUnavailable)
	}
	var resp ErrorResponse
	decodeBody(t, rr, &resp)
	if resp.Error != "shutting_down" {
		t.Errorf("error = %q, want shutting_down", resp.Error)
	}
}
