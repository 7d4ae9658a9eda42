package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"adei_backend/adei"
	"adei_backend/metrics"
)

// ErrCountryNotFound is returned when a profile is requested for a country
// that has no row in the countries table.
var ErrCountryNotFound = errors.New("country not found")

// DefaultSelectRowLimit caps how many rows RunSelect returns when the caller
// passes no limit. Chat answers are synthesized from these rows, so the cap
// also bounds prompt size.
const DefaultSelectRowLimit = 200

// CountrySummary is one row of the countries table.
type CountrySummary struct {
	ID        int64  // Auto-incremented primary key
	Name      string // Country name as printed in the report
	ADEIScore int    // Overall index score, 0-100
	ADEIRank  int    // Overall rank among member states
}

// PillarScore is one pillar's total score for a country.
type PillarScore struct {
	PillarName       string // Stored name, ordinal prefix included
	TotalPillarScore float64
}

// IndicatorScore is one sub-pillar indicator score, tagged with its pillar.
type IndicatorScore struct {
	PillarName string // Pillar the indicator belongs to
	Name       string // Indicator name
	Score      float64
}

// CountryProfile bundles everything the dashboard shows for one country:
// the headline score and rank, the nine pillar totals for the radar chart,
// and every indicator grouped under its pillar.
type CountryProfile struct {
	Name       string
	ADEIScore  int
	ADEIRank   int
	Pillars    []PillarScore
	Indicators []IndicatorScore
}

// Leaderboard holds the top and bottom of the overall ranking, both in
// ascending rank order.
type Leaderboard struct {
	Top    []CountrySummary
	Bottom []CountrySummary
}

// PillarAverage is the mean total score of one pillar across all countries.
type PillarAverage struct {
	PillarName   string
	AverageScore float64
}

// CountryPillar is one country's score on one pillar, used when comparing
// several countries side by side.
type CountryPillar struct {
	Country          string
	PillarName       string
	TotalPillarScore float64
}

// Comparison holds the data behind the side-by-side view: headline numbers
// per country plus every country's pillar scores.
type Comparison struct {
	Summaries []CountrySummary
	Pillars   []CountryPillar
}

// MapPoint is one country on the choropleth map. ISO3 is the alpha-3 code
// the map layer keys on.
type MapPoint struct {
	Name      string
	ADEIScore int
	ISO3      string
}

// ChatTurn is one row of the chat_history table: a question put to the
// agent, the SQL it wrote, and the answer it gave.
type ChatTurn struct {
	ID           int64     // Auto-incremented primary key
	SessionID    string    // Chat session the turn belongs to
	Question     string    // User's question
	GeneratedSQL string    // SQL the agent generated, empty if generation failed
	Answer       string    // Synthesized answer text
	DurationMS   int       // End-to-end handling time in milliseconds
	CreatedAt    time.Time // Timestamp when the turn was logged
}

// SelectResult is the generic shape of an agent-issued SELECT: column names
// and row values rendered as strings, ready to be placed in a prompt.
type SelectResult struct {
	Columns   []string
	Rows      [][]string
	Truncated bool // true when the row cap cut the result short
}

// Repository provides typed queries over the index dataset and the chat
// log. Dataset reads serve the dashboard endpoints; chat turn inserts go
// through the AsyncWriter when one is attached, falling back to synchronous
// writes when the queue is full.
type Repository struct {
	db          *Database
	asyncWriter *AsyncWriter
}

// NewRepository creates a Repository. asyncWriter may be nil, in which case
// all chat log writes are synchronous.
func NewRepository(db *Database, asyncWriter *AsyncWriter) *Repository {
	return &Repository{
		db:          db,
		asyncWriter: asyncWriter,
	}
}

// ListCountryNames returns every country name in alphabetical order. This
// feeds the dashboard's country selector.
func (r *Repository) ListCountryNames(ctx context.Context) ([]string, error) {
	if r.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	rows, err := r.db.Query("SELECT name FROM countries ORDER BY name ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query country names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan country name: %w", err)
		}
		names = append(names, name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating country names: %w", err)
	}

	return names, nil
}

// Profile loads the full profile for one country: headline stats, pillar
// totals in report order, and indicators ordered by pillar then indicator.
// Returns ErrCountryNotFound when the country has no row.
func (r *Repository) Profile(ctx context.Context, name string) (*CountryProfile, error) {
	if r.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	profile := &CountryProfile{Name: name}

	err := r.db.QueryRow(
		"SELECT COALESCE(adei_score, 0), COALESCE(adei_rank, 0) FROM countries WHERE name = ?",
		name,
	).Scan(&profile.ADEIScore, &profile.ADEIRank)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrCountryNotFound, name)
		}
		return nil, fmt.Errorf("failed to query country %s: %w", name, err)
	}

	pillarRows, err := r.db.Query(`
		SELECT p.pillar_name, p.total_pillar_score
		FROM pillars p
		JOIN countries c ON p.country_id = c.id
		WHERE c.name = ?
		ORDER BY p.id`,
		name)
	if err != nil {
		return nil, fmt.Errorf("failed to query pillars for %s: %w", name, err)
	}
	defer pillarRows.Close()

	for pillarRows.Next() {
		var score PillarScore
		if err := pillarRows.Scan(&score.PillarName, &score.TotalPillarScore); err != nil {
			return nil, fmt.Errorf("failed to scan pillar row: %w", err)
		}
		profile.Pillars = append(profile.Pillars, score)
	}
	if err := pillarRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pillar rows: %w", err)
	}

	indicatorRows, err := r.db.Query(`
		SELECT p.pillar_name, sp.name, sp.score
		FROM sub_pillars sp
		JOIN pillars p ON sp.pillar_id = p.id
		JOIN countries c ON p.country_id = c.id
		WHERE c.name = ?
		ORDER BY p.id, sp.id`,
		name)
	if err != nil {
		return nil, fmt.Errorf("failed to query indicators for %s: %w", name, err)
	}
	defer indicatorRows.Close()

	for indicatorRows.Next() {
		var ind IndicatorScore
		if err := indicatorRows.Scan(&ind.PillarName, &ind.Name, &ind.Score); err != nil {
			return nil, fmt.Errorf("failed to scan indicator row: %w", err)
		}
		profile.Indicators = append(profile.Indicators, ind)
	}
	if err := indicatorRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating indicator rows: %w", err)
	}

	return profile, nil
}

// Leaderboard returns the top 10 and bottom 10 countries by overall rank.
// With fewer than 20 countries loaded the halves may overlap.
func (r *Repository) Leaderboard(ctx context.Context) (*Leaderboard, error) {
	if r.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	rows, err := r.db.Query(`
		SELECT id, name, COALESCE(adei_score, 0), COALESCE(adei_rank, 0)
		FROM countries
		ORDER BY adei_rank ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	var all []CountrySummary
	for rows.Next() {
		var s CountrySummary
		if err := rows.Scan(&s.ID, &s.Name, &s.ADEIScore, &s.ADEIRank); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}
		all = append(all, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating leaderboard rows: %w", err)
	}

	board := &Leaderboard{}
	if len(all) <= 10 {
		board.Top = all
		board.Bottom = all
	} else {
		board.Top = all[:10]
		board.Bottom = all[len(all)-10:]
	}

	return board, nil
}

// PillarAverages returns the mean total score per pillar across all
// countries, in report pillar order.
func (r *Repository) PillarAverages(ctx context.Context) ([]PillarAverage, error) {
	if r.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	rows, err := r.db.Query(`
		SELECT pillar_name, AVG(total_pillar_score) AS average_score
		FROM pillars
		GROUP BY pillar_name
		ORDER BY MIN(id)`)
	if err != nil {
		return nil, fmt.Errorf("failed to query pillar averages: %w", err)
	}
	defer rows.Close()

	var averages []PillarAverage
	for rows.Next() {
		var avg PillarAverage
		if err := rows.Scan(&avg.PillarName, &avg.AverageScore); err != nil {
			return nil, fmt.Errorf("failed to scan pillar average row: %w", err)
		}
		averages = append(averages, avg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pillar average rows: %w", err)
	}

	return averages, nil
}

// CompareCountries loads the side-by-side data for the named countries:
// summaries in rank order and each country's pillar scores. An empty name
// list yields an empty Comparison.
func (r *Repository) CompareCountries(ctx context.Context, names []string) (*Comparison, error) {
	if r.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	comparison := &Comparison{}
	if len(names) == 0 {
		return comparison, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(names)), ", ")
	args := make([]interface{}, len(names))
	for i, n := range names {
		args[i] = n
	}

	summaryRows, err := r.db.Query(fmt.Sprintf(`
		SELECT id, name, COALESCE(adei_score, 0), COALESCE(adei_rank, 0)
		FROM countries
		WHERE name IN (%s)
		ORDER BY adei_rank ASC`, placeholders),
		args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query comparison summaries: %w", err)
	}
	defer summaryRows.Close()

	for summaryRows.Next() {
		var s CountrySummary
		if err := summaryRows.Scan(&s.ID, &s.Name, &s.ADEIScore, &s.ADEIRank); err != nil {
			return nil, fmt.Errorf("failed to scan comparison summary: %w", err)
		}
		comparison.Summaries = append(comparison.Summaries, s)
	}
	if err := summaryRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating comparison summaries: %w", err)
	}

	pillarRows, err := r.db.Query(fmt.Sprintf(`
		SELECT c.name, p.pillar_name, p.total_pillar_score
		FROM pillars p
		JOIN countries c ON p.country_id = c.id
		WHERE c.name IN (%s)
		ORDER BY c.adei_rank ASC, p.id`, placeholders),
		args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query comparison pillars: %w", err)
	}
	defer pillarRows.Close()

	for pillarRows.Next() {
		var cp CountryPillar
		if err := pillarRows.Scan(&cp.Country, &cp.PillarName, &cp.TotalPillarScore); err != nil {
			return nil, fmt.Errorf("failed to scan comparison pillar: %w", err)
		}
		comparison.Pillars = append(comparison.Pillars, cp)
	}
	if err := pillarRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating comparison pillars: %w", err)
	}

	return comparison, nil
}

// MapPoints returns every country with a known ISO alpha-3 code, for the
// choropleth map. Countries without a code mapping are dropped.
func (r *Repository) MapPoints(ctx context.Context) ([]MapPoint, error) {
	if r.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	rows, err := r.db.Query("SELECT name, COALESCE(adei_score, 0) FROM countries")
	if err != nil {
		return nil, fmt.Errorf("failed to query map data: %w", err)
	}
	defer rows.Close()

	var points []MapPoint
	for rows.Next() {
		var p MapPoint
		if err := rows.Scan(&p.Name, &p.ADEIScore); err != nil {
			return nil, fmt.Errorf("failed to scan map row: %w", err)
		}
		iso, ok := adei.CountryISO3(p.Name)
		if !ok {
			continue
		}
		p.ISO3 = iso
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating map rows: %w", err)
	}

	return points, nil
}

// InsertChatTurn logs one chat turn. When an async writer is attached and
// has room, the write is queued and the returned id is 0; otherwise the
// turn is written synchronously.
func (r *Repository) InsertChatTurn(ctx context.Context, turn ChatTurn) (int64, error) {
	if r.db == nil {
		return 0, fmt.Errorf("database connection is nil")
	}

	query := `
		INSERT INTO chat_history (
			session_id, question, generated_sql, answer, duration_ms
		) VALUES (?, ?, ?, ?, ?)`

	args := []interface{}{
		turn.SessionID,
		turn.Question,
		nullString(turn.GeneratedSQL),
		nullString(turn.Answer),
		turn.DurationMS,
	}

	if r.asyncWriter != nil && r.asyncWriter.IsStarted() {
		op := asyncInsertOp{
			query: query,
			args:  args,
		}
		if r.asyncWriter.Write(op) {
			return 0, nil
		}
		// Queue full, fall through to a synchronous write
	}

	result, err := r.db.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to insert chat turn: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return id, nil
}

// RecentChatTurns returns the newest chat turns across all sessions,
// newest first. A non-positive limit defaults to 10.
func (r *Repository) RecentChatTurns(ctx context.Context, limit int) ([]ChatTurn, error) {
	if r.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT id, session_id, question, COALESCE(generated_sql, ''),
			   COALESCE(answer, ''), COALESCE(duration_ms, 0), created_at
		FROM chat_history
		ORDER BY created_at DESC, id DESC
		LIMIT ?`

	return r.queryChatTurns(query, limit)
}

// ChatTurnsBySession returns one session's turns, newest first. A
// non-positive limit defaults to 10.
func (r *Repository) ChatTurnsBySession(ctx context.Context, sessionID string, limit int) ([]ChatTurn, error) {
	if r.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT id, session_id, question, COALESCE(generated_sql, ''),
			   COALESCE(answer, ''), COALESCE(duration_ms, 0), created_at
		FROM chat_history
		WHERE session_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`

	return r.queryChatTurns(query, sessionID, limit)
}

func (r *Repository) queryChatTurns(query string, args ...interface{}) ([]ChatTurn, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat history: %w", err)
	}
	defer rows.Close()

	var turns []ChatTurn
	for rows.Next() {
		var turn ChatTurn
		var createdAt string

		err := rows.Scan(
			&turn.ID,
			&turn.SessionID,
			&turn.Question,
			&turn.GeneratedSQL,
			&turn.Answer,
			&turn.DurationMS,
			&createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chat history row: %w", err)
		}

		// SQLite stores CURRENT_TIMESTAMP as "YYYY-MM-DD HH:MM:SS"
		turn.CreatedAt, _ = time.Parse("2006-01-02 15:04:05", createdAt)
		turns = append(turns, turn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chat history rows: %w", err)
	}

	return turns, nil
}

// SchemaDDL returns the CREATE TABLE statements of the dataset and chat
// tables, joined for inclusion in the agent's prompt. golang-migrate's
// bookkeeping table is excluded; the agent has no business querying it.
func (r *Repository) SchemaDDL(ctx context.Context) (string, error) {
	if r.db == nil {
		return "", fmt.Errorf("database connection is nil")
	}

	rows, err := r.db.Query(`
		SELECT sql FROM sqlite_master
		WHERE type = 'table'
		  AND name NOT LIKE 'sqlite_%'
		  AND name != 'schema_migrations'
		ORDER BY name`)
	if err != nil {
		return "", fmt.Errorf("failed to query schema: %w", err)
	}
	defer rows.Close()

	var statements []string
	for rows.Next() {
		var ddl sql.NullString
		if err := rows.Scan(&ddl); err != nil {
			return "", fmt.Errorf("failed to scan schema row: %w", err)
		}
		if ddl.Valid && ddl.String != "" {
			statements = append(statements, ddl.String+";")
		}
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("error iterating schema rows: %w", err)
	}

	return strings.Join(statements, "\n\n"), nil
}

// RunSelect executes an agent-generated SELECT and renders the result as
// strings. maxRows caps the result size (DefaultSelectRowLimit when
// non-positive); Truncated reports whether the cap was hit.
//
// The caller is responsible for ensuring the statement is a single SELECT;
// RunSelect does not rewrite or sanitize it.
func (r *Repository) RunSelect(ctx context.Context, query string, maxRows int) (*SelectResult, error) {
	if r.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	if maxRows <= 0 {
		maxRows = DefaultSelectRowLimit
	}

	start := time.Now()
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()
	metrics.RecordSQLQueryLatency(time.Since(start).Seconds() * 1000)

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read result columns: %w", err)
	}

	result := &SelectResult{Columns: columns}
	values := make([]interface{}, len(columns))
	pointers := make([]interface{}, len(columns))
	for i := range values {
		pointers[i] = &values[i]
	}

	for rows.Next() {
		if len(result.Rows) >= maxRows {
			result.Truncated = true
			break
		}

		if err := rows.Scan(pointers...); err != nil {
			return nil, fmt.Errorf("failed to scan result row: %w", err)
		}

		row := make([]string, len(columns))
		for i, v := range values {
			row[i] = formatValue(v)
		}
		result.Rows = append(result.Rows, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating result rows: %w", err)
	}

	return result, nil
}

// formatValue renders one SQLite value for prompt text.
func formatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(val)
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		return val.Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprintf("%v", val)
	}
}

// CountCountries returns the number of loaded countries.
func (r *Repository) CountCountries(ctx context.Context) (int64, error) {
	return r.countTable("countries")
}

// CountDimensionSummaries returns the number of dimension summary rows.
func (r *Repository) CountDimensionSummaries(ctx context.Context) (int64, error) {
	return r.countTable("dimension_summaries")
}

// CountPillars returns the number of pillar rows.
func (r *Repository) CountPillars(ctx context.Context) (int64, error) {
	return r.countTable("pillars")
}

// CountSubPillars returns the number of sub-pillar indicator rows.
func (r *Repository) CountSubPillars(ctx context.Context) (int64, error) {
	return r.countTable("sub_pillars")
}

// CountChatTurns returns the number of logged chat turns.
func (r *Repository) CountChatTurns(ctx context.Context) (int64, error) {
	return r.countTable("chat_history")
}

func (r *Repository) countTable(table string) (int64, error) {
	if r.db == nil {
		return 0, fmt.Errorf("database connection is nil")
	}

	var count int64
	err := r.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}

	return count, nil
}

// asyncInsertOp is the payload queued on the AsyncWriter for chat log writes.
type asyncInsertOp struct {
	query string
	args  []interface{}
}

// CreateAsyncWriteHandler returns the WriteHandler that applies queued
// chat log inserts. Wire it into an AsyncWriter, then attach the writer
// with NewRepository.
func (r *Repository) CreateAsyncWriteHandler() WriteHandler {
	return func(op WriteOperation) error {
		insertOp, ok := op.Data.(asyncInsertOp)
		if !ok {
			return fmt.Errorf("invalid operation type: expected asyncInsertOp")
		}

		_, err := r.db.Exec(insertOp.query, insertOp.args...)
		return err
	}
}

// nullString converts an empty string to sql.NullString so the column
// stores NULL instead of "".
func nullString(s string) interface{} {
	if s == "" {
		return sql.NullString{String: "", Valid: false}
	}
	return s
}
