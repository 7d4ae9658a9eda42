// Package webui provides the embedded web application for the ADEI Explorer.
// This file contains the chat endpoint that runs agent turns.
package webui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"adei_backend/agent"
	"adei_backend/charts"
	"adei_backend/db"
	"adei_backend/logging"
	"adei_backend/metrics"
	"adei_backend/shutdown"
)

// ChatRequest is the body of POST /api/chat and of every question frame
// sent over /ws. An empty session id gets a fresh UUID assigned.
type ChatRequest struct {
	SessionID string `json:"session_id"`
	Question  string `json:"question"`
}

// ChatResponse is one answered turn. Query failures arrive here too: the
// error text becomes the Answer and SQL and chart stay empty, so clients
// render failures like any other reply.
type ChatResponse struct {
	SessionID  string            `json:"session_id"`
	Question   string            `json:"question"`
	Answer     string            `json:"answer"`
	SQL        string            `json:"sql,omitempty"`
	Chart      *charts.ChartData `json:"chart,omitempty"`
	ChartImage string            `json:"chart_image,omitempty"` // base64 PNG
	DurationMS int64             `json:"duration_ms"`
}

// ChatAPI handles chat turns for both the HTTP and the WebSocket paths.
// A turn runs the SQL agent, then the chartable check, appends the result
// to the session history, and persists it to chat_history through the
// repository's async writer.
//
// This organism composes:
//   - agent.SQLAgent for the generate, execute, answer sequence
//   - charts.ChartExtractor and the bar chart renderer
//   - ChatSessionStore for per-session history
//   - shutdown.Manager so in-flight turns block shutdown
type ChatAPI struct {
	agent     *agent.SQLAgent
	extractor *charts.ChartExtractor
	render    charts.RenderConfig
	sessions  *ChatSessionStore
	repo      *db.Repository
	store     metrics.MetricsCollector
	manager   *shutdown.Manager
	log       *logging.Logger
}

// ChatAPIConfig wires the ChatAPI dependencies. Agent, Sessions and Repo
// are required; the rest degrade gracefully when nil.
type ChatAPIConfig struct {
	Agent     *agent.SQLAgent
	Extractor *charts.ChartExtractor
	Render    charts.RenderConfig
	Sessions  *ChatSessionStore
	Repo      *db.Repository
	Store     metrics.MetricsCollector
	Manager   *shutdown.Manager
	Logger    *logging.Logger
}

// NewChatAPI creates a ChatAPI.
func NewChatAPI(config ChatAPIConfig) *ChatAPI {
	log := config.Logger
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &ChatAPI{
		agent:     config.Agent,
		extractor: config.Extractor,
		render:    config.Render,
		sessions:  config.Sessions,
		repo:      config.Repo,
		store:     config.Store,
		manager:   config.Manager,
		log:       log.Named("chat"),
	}
}

// HandleChat is the POST /api/chat handler.
func (c *ChatAPI) HandleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "POST required")
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body must be JSON with a question field")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "empty_question", "question must not be empty")
		return
	}

	resp, err := c.RunTurn(r.Context(), req.SessionID, req.Question, nil)
	if err != nil {
		status, code := turnErrorStatus(err)
		writeError(w, status, code, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// RunTurn executes one chat turn. progress receives stage names as the
// turn advances and may be nil. Query failures are folded into the
// response; the returned error covers transport-level failures only
// (LLM unreachable, shutdown in progress, cancelled context).
func (c *ChatAPI) RunTurn(ctx context.Context, sessionID, question string, progress func(stage string)) (*ChatResponse, error) {
	if c.manager != nil {
		var resp *ChatResponse
		err := c.manager.WrapOperation(ctx, "chat-turn", func(ctx context.Context) error {
			var turnErr error
			resp, turnErr = c.runTurn(ctx, sessionID, question, progress)
			return turnErr
		})
		if errors.Is(err, shutdown.ErrTrackerClosed) {
			return nil, ErrShuttingDown
		}
		return resp, err
	}
	return c.runTurn(ctx, sessionID, question, progress)
}

// ErrShuttingDown is returned for turns that arrive after shutdown began.
var ErrShuttingDown = errors.New("server is shutting down")

func (c *ChatAPI) runTurn(ctx context.Context, sessionID, question string, progress func(stage string)) (*ChatResponse, error) {
	metrics.RecordChatRequest()
	start := time.Now()

	sessionID = c.sessions.Acquire(sessionID)
	question = strings.TrimSpace(question)
	history := c.sessions.History(sessionID)

	notify := func(stage string) {
		if progress != nil {
			progress(stage)
		}
	}

	hooks := agent.TurnHooks{
		BeforeGenerate: func(int) { notify(StageGeneratingSQL) },
		BeforeExecute:  func(int) { notify(StageRunningQuery) },
	}

	result, err := c.agent.AnswerWithHooks(ctx, question, history, hooks)
	if err != nil {
		if !errors.Is(err, agent.ErrQueryFailed) {
			metrics.RecordChatError()
			c.recordTask(sessionID, start, metrics.TaskStatusError, err.Error())
			return nil, err
		}

		// The agent could not produce a working SELECT. That is an
		// answer, not a transport failure.
		metrics.RecordChatError()
		resp := &ChatResponse{
			SessionID:  sessionID,
			Question:   question,
			Answer:     fmt.Sprintf("Sorry, I encountered an error: %v", err),
			DurationMS: time.Since(start).Milliseconds(),
		}
		c.finishTurn(ctx, resp, metrics.TaskStatusError, err.Error(), start)
		return resp, nil
	}

	resp := &ChatResponse{
		SessionID: sessionID,
		Question:  question,
		Answer:    result.Answer,
		SQL:       result.SQL,
	}

	c.attachChart(ctx, resp, notify)

	resp.DurationMS = time.Since(start).Milliseconds()
	c.finishTurn(ctx, resp, metrics.TaskStatusSuccess, "", start)

	return resp, nil
}

// attachChart runs the chartable check and renders the bar chart. Chart
// failures degrade the response to text-only rather than failing the turn.
func (c *ChatAPI) attachChart(ctx context.Context, resp *ChatResponse, notify func(stage string)) {
	if c.extractor == nil {
		return
	}

	notify(StageRenderingChart)

	extraction, err := c.extractor.ExtractChartData(ctx, resp.Question, resp.Answer)
	if err != nil {
		c.log.Warnw("chartable check failed", "error", err.Error())
		return
	}
	if !extraction.Chart.Chartable {
		return
	}

	image, err := charts.RenderBarChartBase64(extraction.Chart, c.render)
	if err != nil {
		c.log.Warnw("chart render failed", "error", err.Error())
		return
	}

	resp.Chart = extraction.Chart
	resp.ChartImage = image
	metrics.RecordChartRender()
}

// finishTurn does the bookkeeping common to answered and failed turns:
// session history, the durable chat log, and the activity metrics.
func (c *ChatAPI) finishTurn(ctx context.Context, resp *ChatResponse, status, errMsg string, start time.Time) {
	c.sessions.AppendTurn(resp.SessionID, resp.Question, resp.Answer)

	if c.repo != nil {
		_, err := c.repo.InsertChatTurn(ctx, db.ChatTurn{
			SessionID:    resp.SessionID,
			Question:     resp.Question,
			GeneratedSQL: resp.SQL,
			Answer:       resp.Answer,
			DurationMS:   int(resp.DurationMS),
		})
		if err != nil {
			c.log.Warnw("chat turn not persisted", "error", err.Error())
		}
	}

	c.recordTask(resp.SessionID, start, status, errMsg)
}

func (c *ChatAPI) recordTask(sessionID string, start time.Time, status, errMsg string) {
	if c.store == nil {
		return
	}
	end := time.Now()
	c.store.RecordTask(metrics.TaskRecord{
		ID:        uuid.NewString(),
		Type:      metrics.TaskTypeChat,
		SessionID: sessionID,
		Status:    status,
		StartTime: start,
		EndTime:   end,
		Duration:  end.Sub(start),
		ErrorMsg:  errMsg,
	})
}

// turnErrorStatus maps transport-level turn errors onto HTTP responses.
func turnErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, ErrShuttingDown):
		return http.StatusServiceUnavailable, "shutting_down"
	case errors.Is(err, agent.ErrEmptyQuestion):
		return http.StatusBadRequest, "empty_question"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusBadGateway, "chat_failed"
	}
}
