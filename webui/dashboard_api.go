// Package webui provides the embedded web application for the ADEI Explorer.
// This file contains the DashboardAPI organism serving the dataset and
// activity endpoints behind the dashboard.
package webui

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"adei_backend/adei"
	"adei_backend/db"
	"adei_backend/logging"
	"adei_backend/metrics"
)

// Comparison bounds for /api/compare.
const (
	MinCompareCountries = 2
	MaxCompareCountries = 5
)

// DefaultExampleQuestions seeds the sidebar with questions the agent
// answers well. Serve overrides them via configuration when set.
var DefaultExampleQuestions = []string{
	"Which country has the highest score in the Innovation pillar?",
	"What are the top 5 countries by ADEI rank?",
	"Compare the Workforce and Infrastructure scores for Turkey and Malaysia.",
	"What is the 'Rule of Law' score for Saudi Arabia?",
}

// DashboardAPI is an organism that provides the REST handlers behind the
// dashboard: example questions, dataset reads, the activity feed, run
// statistics, and the health endpoint.
//
// Endpoints:
//   - GET /api/examples    - Curated example questions
//   - GET /api/countries   - Sorted country names
//   - GET /api/leaderboard - Top and bottom ten by overall rank
//   - GET /api/averages    - Average pillar scores across countries
//   - GET /api/profile     - One country's full score breakdown
//   - GET /api/compare     - Side-by-side pillar scores for 2-5 countries
//   - GET /api/map         - Choropleth points with ISO alpha-3 codes
//   - GET /api/activity    - Recent chat turns from chat_history
//   - GET /api/stats       - Uptime, turn counts, dataset counts
//   - GET /health          - Liveness: database ping plus dataset presence
type DashboardAPI struct {
	repo         *db.Repository
	database     *db.Database
	store        metrics.MetricsCollector
	log          *logging.Logger
	examples     []string
	defaultLimit int
	maxLimit     int
	version      string
}

// DashboardAPIConfig configures the DashboardAPI behavior.
type DashboardAPIConfig struct {
	// Examples replaces the default sidebar questions when non-empty
	Examples []string

	// DefaultLimit is the default number of items in list endpoints
	DefaultLimit int

	// MaxLimit is the maximum number of items that can be requested
	MaxLimit int

	// Version is the application version reported by /api/stats
	Version string
}

// DefaultDashboardAPIConfig returns a default configuration.
func DefaultDashboardAPIConfig() DashboardAPIConfig {
	return DashboardAPIConfig{
		DefaultLimit: 20,
		MaxLimit:     100,
		Version:      "0.0.0",
	}
}

// NewDashboardAPI creates a new DashboardAPI over the repository.
// database powers the health endpoint's ping; store may be nil, in which
// case /api/stats omits turn statistics.
func NewDashboardAPI(repo *db.Repository, database *db.Database, store metrics.MetricsCollector, log *logging.Logger, config DashboardAPIConfig) *DashboardAPI {
	if config.DefaultLimit < 1 {
		config.DefaultLimit = 20
	}
	if config.MaxLimit < 1 {
		config.MaxLimit = 100
	}
	examples := config.Examples
	if len(examples) == 0 {
		examples = DefaultExampleQuestions
	}
	if log == nil {
		log = logging.NewNopLogger()
	}

	return &DashboardAPI{
		repo:         repo,
		database:     database,
		store:        store,
		log:          log.Named("api"),
		examples:     examples,
		defaultLimit: config.DefaultLimit,
		maxLimit:     config.MaxLimit,
		version:      config.Version,
	}
}

// ExamplesResponse represents the JSON response for /api/examples.
type ExamplesResponse struct {
	Examples []string `json:"examples"`
}

// HandleExamples handles GET /api/examples requests.
func (api *DashboardAPI) HandleExamples(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "GET required")
		return
	}

	writeJSON(w, http.StatusOK, ExamplesResponse{Examples: api.examples})
}

// CountriesResponse represents the JSON response for /api/countries.
type CountriesResponse struct {
	Countries []string `json:"countries"`
	Count     int      `json:"count"`
}

// HandleCountries handles GET /api/countries requests.
func (api *DashboardAPI) HandleCountries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "GET required")
		return
	}

	names, err := api.repo.ListCountryNames(r.Context())
	if err != nil {
		api.serverError(w, "listing countries", err)
		return
	}

	writeJSON(w, http.StatusOK, CountriesResponse{Countries: names, Count: len(names)})
}

// LeaderboardEntry is one row of the leaderboard response.
type LeaderboardEntry struct {
	Name      string `json:"name"`
	ADEIScore int    `json:"adei_score"`
	ADEIRank  int    `json:"adei_rank"`
}

// LeaderboardResponse represents the JSON response for /api/leaderboard.
type LeaderboardResponse struct {
	Top    []LeaderboardEntry `json:"top"`
	Bottom []LeaderboardEntry `json:"bottom"`
}

// HandleLeaderboard handles GET /api/leaderboard requests.
func (api *DashboardAPI) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "GET required")
		return
	}

	board, err := api.repo.Leaderboard(r.Context())
	if err != nil {
		api.serverError(w, "loading leaderboard", err)
		return
	}

	writeJSON(w, http.StatusOK, LeaderboardResponse{
		Top:    toLeaderboardEntries(board.Top),
		Bottom: toLeaderboardEntries(board.Bottom),
	})
}

func toLeaderboardEntries(summaries []db.CountrySummary) []LeaderboardEntry {
	entries := make([]LeaderboardEntry, len(summaries))
	for i, s := range summaries {
		entries[i] = LeaderboardEntry{Name: s.Name, ADEIScore: s.ADEIScore, ADEIRank: s.ADEIRank}
	}
	return entries
}

// PillarAverageEntry is one pillar's mean score across all countries.
type PillarAverageEntry struct {
	Pillar       string  `json:"pillar"`
	AverageScore float64 `json:"average_score"`
}

// AveragesResponse represents the JSON response for /api/averages.
type AveragesResponse struct {
	Averages []PillarAverageEntry `json:"averages"`
}

// HandleAverages handles GET /api/averages requests. Pillar names are
// returned without their report ordinal prefix.
func (api *DashboardAPI) HandleAverages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "GET required")
		return
	}

	averages, err := api.repo.PillarAverages(r.Context())
	if err != nil {
		api.serverError(w, "loading pillar averages", err)
		return
	}

	entries := make([]PillarAverageEntry, len(averages))
	for i, avg := range averages {
		entries[i] = PillarAverageEntry{
			Pillar:       adei.DisplayPillarName(avg.PillarName),
			AverageScore: avg.AverageScore,
		}
	}

	writeJSON(w, http.StatusOK, AveragesResponse{Averages: entries})
}

// ProfileIndicator is one sub-pillar score within a profile.
type ProfileIndicator struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// ProfilePillar is one pillar within a profile, with its indicators.
type ProfilePillar struct {
	Name       string             `json:"name"`
	Score      float64            `json:"score"`
	Indicators []ProfileIndicator `json:"indicators"`
}

// ProfileResponse represents the JSON response for /api/profile.
type ProfileResponse struct {
	Name      string          `json:"name"`
	ADEIScore int             `json:"adei_score"`
	ADEIRank  int             `json:"adei_rank"`
	Pillars   []ProfilePillar `json:"pillars"`
}

// HandleProfile handles GET /api/profile?country=X requests.
func (api *DashboardAPI) HandleProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "GET required")
		return
	}

	country := strings.TrimSpace(r.URL.Query().Get("country"))
	if country == "" {
		writeError(w, http.StatusBadRequest, "missing_country", "country query parameter is required")
		return
	}

	profile, err := api.repo.Profile(r.Context(), country)
	if errors.Is(err, db.ErrCountryNotFound) {
		writeError(w, http.StatusNotFound, "country_not_found", "no country named "+country)
		return
	}
	if err != nil {
		api.serverError(w, "loading profile", err)
		return
	}

	// Group indicators under their pillar, preserving report order.
	indicatorsByPillar := make(map[string][]ProfileIndicator, len(profile.Pillars))
	for _, ind := range profile.Indicators {
		indicatorsByPillar[ind.PillarName] = append(indicatorsByPillar[ind.PillarName], ProfileIndicator{
			Name:  ind.Name,
			Score: ind.Score,
		})
	}

	pillars := make([]ProfilePillar, len(profile.Pillars))
	for i, p := range profile.Pillars {
		pillars[i] = ProfilePillar{
			Name:       adei.DisplayPillarName(p.PillarName),
			Score:      p.TotalPillarScore,
			Indicators: indicatorsByPillar[p.PillarName],
		}
	}

	writeJSON(w, http.StatusOK, ProfileResponse{
		Name:      profile.Name,
		ADEIScore: profile.ADEIScore,
		ADEIRank:  profile.ADEIRank,
		Pillars:   pillars,
	})
}

// ComparePillarEntry is one country's score on one pillar.
type ComparePillarEntry struct {
	Country string  `json:"country"`
	Pillar  string  `json:"pillar"`
	Score   float64 `json:"score"`
}

// CompareResponse represents the JSON response for /api/compare.
type CompareResponse struct {
	Countries []LeaderboardEntry   `json:"countries"`
	Pillars   []ComparePillarEntry `json:"pillars"`
}

// HandleCompare handles GET /api/compare?countries=A,B[,C...] requests.
// Between two and five countries are compared per request.
func (api *DashboardAPI) HandleCompare(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "GET required")
		return
	}

	names := splitCountryList(r.URL.Query().Get("countries"))
	if len(names) < MinCompareCountries || len(names) > MaxCompareCountries {
		writeError(w, http.StatusBadRequest, "invalid_country_count",
			"countries must list between 2 and 5 comma-separated names")
		return
	}

	comparison, err := api.repo.CompareCountries(r.Context(), names)
	if err != nil {
		api.serverError(w, "comparing countries", err)
		return
	}
	if len(comparison.Summaries) == 0 {
		writeError(w, http.StatusNotFound, "countries_not_found", "none of the named countries exist")
		return
	}

	pillars := make([]ComparePillarEntry, len(comparison.Pillars))
	for i, p := range comparison.Pillars {
		pillars[i] = ComparePillarEntry{
			Country: p.Country,
			Pillar:  adei.DisplayPillarName(p.PillarName),
			Score:   p.TotalPillarScore,
		}
	}

	writeJSON(w, http.StatusOK, CompareResponse{
		Countries: toLeaderboardEntries(comparison.Summaries),
		Pillars:   pillars,
	})
}

// splitCountryList parses a comma-separated country list, dropping empty
// entries and duplicates.
func splitCountryList(raw string) []string {
	parts := strings.Split(raw, ",")
	seen := make(map[string]bool, len(parts))
	var names []string
	for _, part := range parts {
		name := strings.TrimSpace(part)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

// MapPointEntry is one country on the choropleth map.
type MapPointEntry struct {
	Name      string `json:"name"`
	ADEIScore int    `json:"adei_score"`
	ISO3      string `json:"iso3"`
}

// MapResponse represents the JSON response for /api/map.
type MapResponse struct {
	Points []MapPointEntry `json:"points"`
}

// HandleMap handles GET /api/map requests.
func (api *DashboardAPI) HandleMap(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "GET required")
		return
	}

	points, err := api.repo.MapPoints(r.Context())
	if err != nil {
		api.serverError(w, "loading map points", err)
		return
	}

	entries := make([]MapPointEntry, len(points))
	for i, p := range points {
		entries[i] = MapPointEntry{Name: p.Name, ADEIScore: p.ADEIScore, ISO3: p.ISO3}
	}

	writeJSON(w, http.StatusOK, MapResponse{Points: entries})
}

// ActivityTurn is one recent chat turn in the activity feed.
type ActivityTurn struct {
	ID         int64     `json:"id"`
	SessionID  string    `json:"session_id"`
	Question   string    `json:"question"`
	SQL        string    `json:"sql,omitempty"`
	DurationMS int       `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// ActivityResponse represents the JSON response for /api/activity.
type ActivityResponse struct {
	Turns []ActivityTurn `json:"turns"`
	Count int            `json:"count"`
	Limit int            `json:"limit"`
}

// HandleActivity handles GET /api/activity requests.
// Query parameters:
//   - limit: number of turns to return (default: 20, max: 100)
func (api *DashboardAPI) HandleActivity(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "GET required")
		return
	}

	limit := api.defaultLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > api.maxLimit {
		limit = api.maxLimit
	}

	turns, err := api.repo.RecentChatTurns(r.Context(), limit)
	if err != nil {
		api.serverError(w, "loading activity", err)
		return
	}

	entries := make([]ActivityTurn, len(turns))
	for i, t := range turns {
		entries[i] = ActivityTurn{
			ID:         t.ID,
			SessionID:  t.SessionID,
			Question:   t.Question,
			SQL:        t.GeneratedSQL,
			DurationMS: t.DurationMS,
			CreatedAt:  t.CreatedAt,
		}
	}

	writeJSON(w, http.StatusOK, ActivityResponse{Turns: entries, Count: len(entries), Limit: limit})
}

// DatasetCounts holds the row counts reported by /api/stats.
type DatasetCounts struct {
	Countries          int64 `json:"countries"`
	DimensionSummaries int64 `json:"dimension_summaries"`
	Pillars            int64 `json:"pillars"`
	SubPillars         int64 `json:"sub_pillars"`
	ChatTurns          int64 `json:"chat_turns"`
}

// StatsResponse represents the JSON response for /api/stats.
type StatsResponse struct {
	Health         string        `json:"health"`
	Version        string        `json:"version"`
	Uptime         string        `json:"uptime"`
	UptimeSecs     float64       `json:"uptime_secs"`
	TotalProcessed int64         `json:"total_processed"`
	TotalSuccess   int64         `json:"total_success"`
	TotalErrors    int64         `json:"total_errors"`
	Dataset        DatasetCounts `json:"dataset"`
}

// HandleStats handles GET /api/stats requests.
func (api *DashboardAPI) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "GET required")
		return
	}

	response := StatsResponse{Version: api.version}

	if api.store != nil {
		status := api.store.GetSystemStatus()
		taskMetrics := api.store.GetTaskMetrics()
		response.Health = status.Health
		response.Uptime = FormatDuration(status.Uptime)
		response.UptimeSecs = status.Uptime.Seconds()
		response.TotalProcessed = taskMetrics.TotalProcessed
		response.TotalSuccess = taskMetrics.TotalSuccess
		response.TotalErrors = taskMetrics.TotalErrors
	}

	ctx := r.Context()
	response.Dataset.Countries, _ = api.repo.CountCountries(ctx)
	response.Dataset.DimensionSummaries, _ = api.repo.CountDimensionSummaries(ctx)
	response.Dataset.Pillars, _ = api.repo.CountPillars(ctx)
	response.Dataset.SubPillars, _ = api.repo.CountSubPillars(ctx)
	response.Dataset.ChatTurns, _ = api.repo.CountChatTurns(ctx)

	writeJSON(w, http.StatusOK, response)
}

// HealthResponse represents the JSON response for /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Database  bool   `json:"database"`
	Countries int64  `json:"countries"`
	Detail    string `json:"detail,omitempty"`
}

// HandleHealth handles GET /health requests. The database must answer a
// ping for the server to be healthy; an empty dataset degrades the status
// without failing the check.
func (api *DashboardAPI) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "GET required")
		return
	}

	if err := api.database.Ping(); err != nil {
		if api.store != nil {
			api.store.UpdateDatabaseStatus(false)
		}
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status: "unhealthy",
			Detail: err.Error(),
		})
		return
	}
	if api.store != nil {
		api.store.UpdateDatabaseStatus(true)
	}

	countries, err := api.repo.CountCountries(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status:   "unhealthy",
			Database: true,
			Detail:   err.Error(),
		})
		return
	}

	response := HealthResponse{Status: "ok", Database: true, Countries: countries}
	if countries == 0 {
		response.Status = "degraded"
		response.Detail = "dataset is empty; run extract and load first"
	}

	writeJSON(w, http.StatusOK, response)
}

// RegisterRoutes registers all API routes on the given ServeMux.
// The health endpoint lives outside /api so probes can reach it without
// passing the auth gate.
func (api *DashboardAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/examples", api.HandleExamples)
	mux.HandleFunc("/api/countries", api.HandleCountries)
	mux.HandleFunc("/api/leaderboard", api.HandleLeaderboard)
	mux.HandleFunc("/api/averages", api.HandleAverages)
	mux.HandleFunc("/api/profile", api.HandleProfile)
	mux.HandleFunc("/api/compare", api.HandleCompare)
	mux.HandleFunc("/api/map", api.HandleMap)
	mux.HandleFunc("/api/activity", api.HandleActivity)
	mux.HandleFunc("/api/stats", api.HandleStats)
}

// serverError logs the failure and answers with a generic 500 so internal
// details stay out of responses.
func (api *DashboardAPI) serverError(w http.ResponseWriter, action string, err error) {
	api.log.Errorw("dashboard query failed", "action", action, "error", err.Error())
	writeError(w, http.StatusInternalServerError, "internal_error", "failed while "+action)
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Best effort - headers already written
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// writeError writes an error response with a stable machine-readable code.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: message})
}
