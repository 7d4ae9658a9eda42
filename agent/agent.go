// Package agent answers natural-language questions about the index database
// by having the LLM write SQL.
//
// agent.go implements the SQLAgent organism. The loop is fixed: build a
// schema prompt from the live database, have the model write one SELECT,
// guard it, run it, then have the model phrase the answer from the rows. A
// rejected or failing statement earns exactly one retry with the error fed
// back. It composes:
//   - sqlguard.go: ExtractSQL and ValidateSelect for the reply contract
//   - db/repository.go: SchemaDDL and RunSelect
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"adei_backend/core"
	"adei_backend/db"
	"adei_backend/logging"
)

// Agent errors
var (
	// ErrEmptyQuestion is returned when the question is blank.
	ErrEmptyQuestion = errors.New("question is empty")
	// ErrQueryFailed is returned when no acceptable SELECT could be produced
	// and executed within the retry budget. The wrapped error is the last
	// guard rejection or SQLite failure.
	ErrQueryFailed = errors.New("could not answer from the database")
)

// sqlSystemPromptTemplate frames the generation call. The schema DDL and the
// row cap are interpolated per call so the prompt always reflects the live
// database.
const sqlSystemPromptTemplate = `You are an expert SQLite analyst for the OIC Digital Economy Index database.
Given a question, reply with exactly one SQLite SELECT statement that answers it. No commentary, no markdown fences.

The database schema is:

%s

Rules:
- Reply with a single SELECT statement. Never modify the database.
- Pillar names carry an ordinal prefix such as "1st Pillar: ", so match them with LIKE when the question names a pillar.
- Indicator names live in sub_pillars.name; match them with LIKE as well.
- Country names are stored in English, for example "Saudi Arabia" or "United Arab Emirates".
- Keep results small: never return more than %d rows.`

// answerSystemPrompt frames the synthesis call. The model only sees the
// rows the SELECT returned, which keeps it from inventing figures.
const answerSystemPrompt = `You are a data analyst for the OIC Digital Economy Index dashboard.
Answer the user's question using only the query result provided. Be concise and factual, and include the relevant figures.
If the result is empty, say the database does not contain an answer to the question.
If the result was truncated, mention that only the first rows are shown.`

// answerPromptTemplate carries the question, the SELECT and the rendered
// rows into the synthesis call.
const answerPromptTemplate = `QUESTION:
%s

SQL:
%s

RESULT%s:
%s

Answer the question from this result.`

// Config holds the LLM parameters for the chat agent.
type Config struct {
	// Model is recorded in logs and metrics. The completion client owns
	// the actual model choice.
	Model string

	// Temperature for both the generation and synthesis calls. Low values
	// keep the SQL deterministic.
	Temperature float64

	// MaxTokens is the completion budget per call.
	MaxTokens int

	// MaxRows caps how many result rows are executed and rendered into the
	// synthesis prompt. Defaults to db.DefaultSelectRowLimit.
	MaxRows int

	// HistoryLimit is the number of prior turns included in the generation
	// call, so follow-up questions can lean on earlier ones. Zero disables
	// history.
	HistoryLimit int
}

// DefaultConfig returns the parameters the chat agent was tuned with:
// temperature 0.1, 2048 completion tokens, the repository row cap and a
// twenty-message history window.
func DefaultConfig() Config {
	return Config{
		Temperature:  0.1,
		MaxTokens:    2048,
		MaxRows:      db.DefaultSelectRowLimit,
		HistoryLimit: 20,
	}
}

// ConfigFromCore maps the application configuration onto a Config, so the
// serve command and the validation suite build identical agents.
func ConfigFromCore(cfg *core.Config) Config {
	c := DefaultConfig()
	c.Model = cfg.Model
	c.Temperature = cfg.ChatTemperature
	if cfg.ChatMaxTokens > 0 {
		c.MaxTokens = cfg.ChatMaxTokens
	}
	c.HistoryLimit = cfg.ChatHistoryLimit
	return c
}

// Result is one answered question.
type Result struct {
	// Question is the trimmed question that was answered.
	Question string

	// SQL is the SELECT that produced the rows.
	SQL string

	// Answer is the model's phrasing of the result.
	Answer string

	// RowCount is the number of rows the SELECT returned.
	RowCount int

	// Truncated is true when the row cap cut the result short.
	Truncated bool

	// Attempts is how many SQL generation attempts were made (1 or 2).
	Attempts int

	// Usage is the token usage across all calls for this question.
	Usage core.Usage

	// Duration is the wall time from question to answer.
	Duration time.Duration
}

// SQLAgent turns questions into SELECT statements and rows into answers.
//
// Thread-Safety:
//   - safe for concurrent use; all state is read-only after construction
type SQLAgent struct {
	config    Config
	completer core.Completer
	repo      *db.Repository
	log       *logging.Logger
}

// New creates a SQLAgent over the given completion client and repository.
// Pass logging.NewNopLogger() to silence it.
func New(config Config, completer core.Completer, repo *db.Repository, log *logging.Logger) *SQLAgent {
	if config.MaxTokens <= 0 {
		config.MaxTokens = DefaultConfig().MaxTokens
	}
	if config.MaxRows <= 0 {
		config.MaxRows = db.DefaultSelectRowLimit
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &SQLAgent{
		config:    config,
		completer: completer,
		repo:      repo,
		log:       log.Named("agent"),
	}
}

// TurnHooks carries optional callbacks fired as a turn progresses. The web
// layer uses them to stream stage updates over WebSocket; nil fields are
// skipped. attempt is 1 on the first pass and 2 on the feedback retry.
type TurnHooks struct {
	// BeforeGenerate fires before each SQL generation call.
	BeforeGenerate func(attempt int)
	// BeforeExecute fires before each generated SELECT is run.
	BeforeExecute func(attempt int)
}

// Answer runs one question through the generate, execute, answer sequence.
// history holds prior turns from the caller's session, oldest first; only
// the generation call sees it, the synthesis call works from the rows alone.
//
// A guard rejection or SQLite error is fed back to the model for one retry.
// When the retry also fails, the returned error wraps ErrQueryFailed; the
// web layer turns that into answer content rather than a transport failure.
//
// Example:
//
//	sqlAgent := agent.New(agent.DefaultConfig(), client, repo, log)
//	result, err := sqlAgent.Answer(ctx, "Which country ranks first?", nil)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(result.Answer)
func (a *SQLAgent) Answer(ctx context.Context, question string, history []core.Message) (*Result, error) {
	return a.AnswerWithHooks(ctx, question, history, TurnHooks{})
}

// AnswerWithHooks is Answer with progress callbacks.
func (a *SQLAgent) AnswerWithHooks(ctx context.Context, question string, history []core.Message, hooks TurnHooks) (*Result, error) {
	start := time.Now()

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	schema, err := a.repo.SchemaDDL(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading schema: %w", err)
	}

	system := fmt.Sprintf(sqlSystemPromptTemplate, schema, a.config.MaxRows)
	hist := trimHistory(history, a.config.HistoryLimit)

	result := &Result{Question: question}

	var (
		sqlText string
		rows    *db.SelectResult
		lastErr error
	)
	user := question
	for attempt := 1; attempt <= 2; attempt++ {
		result.Attempts = attempt

		if hooks.BeforeGenerate != nil {
			hooks.BeforeGenerate(attempt)
		}
		completion, err := a.completer.Complete(ctx, core.CompletionRequest{
			System:      system,
			History:     hist,
			User:        user,
			Temperature: a.config.Temperature,
			MaxTokens:   a.config.MaxTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("SQL generation: %w", err)
		}
		result.Usage = addUsage(result.Usage, completion.Usage)

		sqlText = ExtractSQL(completion.Content)
		if guardErr := ValidateSelect(sqlText); guardErr != nil {
			lastErr = guardErr
			a.log.Warnw("generated SQL rejected",
				"error", guardErr.Error(),
				"sql", sqlText,
			)
			user = rejectedPrompt(question, sqlText, guardErr)
			continue
		}

		if hooks.BeforeExecute != nil {
			hooks.BeforeExecute(attempt)
		}
		rows, err = a.repo.RunSelect(ctx, sqlText, a.config.MaxRows)
		if err != nil {
			lastErr = err
			a.log.Warnw("generated SQL failed to execute",
				"error", err.Error(),
				"sql", sqlText,
			)
			user = failedPrompt(question, sqlText, err)
			continue
		}

		lastErr = nil
		break
	}
	if lastErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, lastErr)
	}

	result.SQL = sqlText
	result.RowCount = len(rows.Rows)
	result.Truncated = rows.Truncated

	completion, err := a.completer.Complete(ctx, core.CompletionRequest{
		System:      answerSystemPrompt,
		User:        a.buildAnswerPrompt(question, sqlText, rows),
		Temperature: a.config.Temperature,
		MaxTokens:   a.config.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("answer synthesis: %w", err)
	}
	result.Usage = addUsage(result.Usage, completion.Usage)
	result.Answer = strings.TrimSpace(completion.Content)
	result.Duration = time.Since(start)

	a.log.Info("question answered", logging.QueryFields(logging.QueryMetrics{
		ModelName:        a.config.Model,
		PromptTokens:     result.Usage.PromptTokens,
		CompletionTokens: result.Usage.CompletionTokens,
		TotalTokens:      result.Usage.TotalTokens,
		RowCount:         result.RowCount,
		Attempts:         result.Attempts,
		Duration:         result.Duration,
	}))

	return result, nil
}

// buildAnswerPrompt renders the rows into the synthesis prompt.
func (a *SQLAgent) buildAnswerPrompt(question, sqlText string, rows *db.SelectResult) string {
	note := fmt.Sprintf(" (%d rows", len(rows.Rows))
	if rows.Truncated {
		note += ", truncated"
	}
	note += ")"
	return fmt.Sprintf(answerPromptTemplate, question, sqlText, note, FormatResultTable(rows))
}

// rejectedPrompt feeds a guard rejection back to the model.
func rejectedPrompt(question, sqlText string, guardErr error) string {
	return fmt.Sprintf("%s\n\nYour previous reply was rejected: %v.\nReply: %s\nRespond with exactly one SQLite SELECT statement and nothing else.",
		question, guardErr, sqlText)
}

// failedPrompt feeds a SQLite execution error back to the model.
func failedPrompt(question, sqlText string, execErr error) string {
	return fmt.Sprintf("%s\n\nYour previous statement failed to execute.\nStatement: %s\nError: %v\nRespond with a corrected SQLite SELECT statement and nothing else.",
		question, sqlText, execErr)
}

// FormatResultTable renders a query result as a pipe-separated text table
// for the synthesis prompt. An empty result renders as a header with a
// "(no rows)" marker so the model can see the shape it queried.
func FormatResultTable(result *db.SelectResult) string {
	if result == nil || len(result.Columns) == 0 {
		return "(no result)"
	}

	var b strings.Builder
	b.WriteString(strings.Join(result.Columns, " | "))
	for _, row := range result.Rows {
		b.WriteString("\n")
		b.WriteString(strings.Join(row, " | "))
	}
	if len(result.Rows) == 0 {
		b.WriteString("\n(no rows)")
	}
	return b.String()
}

// trimHistory keeps the newest limit messages. A non-positive limit
// disables history.
func trimHistory(history []core.Message, limit int) []core.Message {
	if limit <= 0 || len(history) == 0 {
		return nil
	}
	if len(history) > limit {
		history = history[len(history)-limit:]
	}
	return history
}

// addUsage accumulates token usage across calls.
func addUsage(a, b core.Usage) core.Usage {
	return core.Usage{
		PromptTokens:     a.PromptTokens + b.PromptTokens,
		CompletionTokens: a.CompletionTokens + b.CompletionTokens,
		TotalTokens:      a.TotalTokens + b.TotalTokens,
	}
}
