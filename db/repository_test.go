package db

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"adei_backend/adei"
)

// setupTestRepository creates a migrated temp database and a Repository
// without an async writer. The database is closed via t.Cleanup.
func setupTestRepository(t *testing.T) (*Repository, *Database) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "index.db")
	db, err := NewDatabaseWithConfig(DatabaseConfig{
		Path:           dbPath,
		MigrationsPath: realMigrationsPath,
	})
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	return NewRepository(db, nil), db
}

// sampleDataset returns three countries with the pillar naming used in the
// report ("1st Pillar: ..."), ranked Saudi Arabia, Qatar, Oman.
func sampleDataset() []adei.CountryData {
	return []adei.CountryData{
		{
			CountryName:      "Saudi Arabia",
			OverallADEIScore: 76,
			OverallADEIRank:  1,
			DimensionSummary: []adei.DimensionPillarSummary{
				{Dimension: "Foundations", Pillar: "Digital Infrastructure", Value: 80, Rank: 1},
				{Dimension: "Agents", Pillar: "Digital Government", Value: 75, Rank: 2},
			},
			DetailedPillars: []adei.PillarData{
				{
					PillarName:       "1st Pillar: Digital Infrastructure",
					TotalPillarScore: 80.5,
					SubPillars: []adei.SubPillar{
						{Name: "Mobile connectivity", Score: 82.1},
						{Name: "Fixed broadband", Score: 74},
					},
				},
				{
					PillarName:       "2nd Pillar: Digital Finance",
					TotalPillarScore: 71.25,
					SubPillars: []adei.SubPillar{
						{Name: "Fintech adoption", Score: 69},
					},
				},
			},
		},
		{
			CountryName:      "Qatar",
			OverallADEIScore: 74,
			OverallADEIRank:  2,
			DimensionSummary: []adei.DimensionPillarSummary{
				{Dimension: "Foundations", Pillar: "Digital Infrastructure", Value: 79, Rank: 2},
			},
			DetailedPillars: []adei.PillarData{
				{
					PillarName:       "1st Pillar: Digital Infrastructure",
					TotalPillarScore: 78.5,
					SubPillars: []adei.SubPillar{
						{Name: "Mobile connectivity", Score: 80},
					},
				},
				{
					PillarName:       "2nd Pillar: Digital Finance",
					TotalPillarScore: 69.75,
					SubPillars: []adei.SubPillar{
						{Name: "Fintech adoption", Score: 66.5},
					},
				},
			},
		},
		{
			CountryName:      "Oman",
			OverallADEIScore: 62,
			OverallADEIRank:  3,
			DimensionSummary: []adei.DimensionPillarSummary{
				{Dimension: "Foundations", Pillar: "Digital Infrastructure", Value: 65, Rank: 3},
			},
			DetailedPillars: []adei.PillarData{
				{
					PillarName:       "1st Pillar: Digital Infrastructure",
					TotalPillarScore: 64,
					SubPillars: []adei.SubPillar{
						{Name: "Mobile connectivity", Score: 67.3},
					},
				},
				{
					PillarName:       "2nd Pillar: Digital Finance",
					TotalPillarScore: 58.5,
					SubPillars: []adei.SubPillar{
						{Name: "Fintech adoption", Score: 55},
					},
				},
			},
		},
	}
}

// seedSampleDataset loads the sample dataset, failing the test on error.
func seedSampleDataset(t *testing.T, repo *Repository) {
	t.Helper()

	if _, err := repo.LoadDataset(context.Background(), sampleDataset()); err != nil {
		t.Fatalf("failed to load sample dataset: %v", err)
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 0.001
}

// TestRepositoryNilDatabase verifies every method errors instead of
// panicking when the repository has no database.
func TestRepositoryNilDatabase(t *testing.T) {
	repo := NewRepository(nil, nil)
	ctx := context.Background()

	if _, err := repo.ListCountryNames(ctx); err == nil {
		t.Error("ListCountryNames() should error with nil database")
	}
	if _, err := repo.Profile(ctx, "Qatar"); err == nil {
		t.Error("Profile() should error with nil database")
	}
	if _, err := repo.Leaderboard(ctx); err == nil {
		t.Error("Leaderboard() should error with nil database")
	}
	if _, err := repo.PillarAverages(ctx); err == nil {
		t.Error("PillarAverages() should error with nil database")
	}
	if _, err := repo.CompareCountries(ctx, []string{"Qatar"}); err == nil {
		t.Error("CompareCountries() should error with nil database")
	}
	if _, err := repo.MapPoints(ctx); err == nil {
		t.Error("MapPoints() should error with nil database")
	}
	if _, err := repo.InsertChatTurn(ctx, ChatTurn{}); err == nil {
		t.Error("InsertChatTurn() should error with nil database")
	}
	if _, err := repo.SchemaDDL(ctx); err == nil {
		t.Error("SchemaDDL() should error with nil database")
	}
	if _, err := repo.RunSelect(ctx, "SELECT 1", 0); err == nil {
		t.Error("RunSelect() should error with nil database")
	}
	if _, err := repo.CountCountries(ctx); err == nil {
		t.Error("CountCountries() should error with nil database")
	}
}

// TestRepositoryListCountryNames verifies alphabetical ordering.
func TestRepositoryListCountryNames(t *testing.T) {
	repo, _ := setupTestRepository(t)
	seedSampleDataset(t, repo)

	names, err := repo.ListCountryNames(context.Background())
	if err != nil {
		t.Fatalf("ListCountryNames() error = %v", err)
	}

	want := []string{"Oman", "Qatar", "Saudi Arabia"}
	if len(names) != len(want) {
		t.Fatalf("got %d names, want %d", len(names), len(want))
	}
	for i, name := range want {
		if names[i] != name {
			t.Errorf("names[%d] = %q, want %q", i, names[i], name)
		}
	}
}

// TestRepositoryProfile verifies the full profile shape for one country.
func TestRepositoryProfile(t *testing.T) {
	repo, _ := setupTestRepository(t)
	seedSampleDataset(t, repo)

	t.Run("known country", func(t *testing.T) {
		profile, err := repo.Profile(context.Background(), "Saudi Arabia")
		if err != nil {
			t.Fatalf("Profile() error = %v", err)
		}

		if profile.Name != "Saudi Arabia" {
			t.Errorf("Name = %q, want Saudi Arabia", profile.Name)
		}
		if profile.ADEIScore != 76 {
			t.Errorf("ADEIScore = %d, want 76", profile.ADEIScore)
		}
		if profile.ADEIRank != 1 {
			t.Errorf("ADEIRank = %d, want 1", profile.ADEIRank)
		}

		if len(profile.Pillars) != 2 {
			t.Fatalf("got %d pillars, want 2", len(profile.Pillars))
		}
		// Pillars come back in report order, not alphabetical
		if profile.Pillars[0].PillarName != "1st Pillar: Digital Infrastructure" {
			t.Errorf("Pillars[0] = %q, want 1st Pillar: Digital Infrastructure", profile.Pillars[0].PillarName)
		}
		if !almostEqual(profile.Pillars[0].TotalPillarScore, 80.5) {
			t.Errorf("Pillars[0] score = %v, want 80.5", profile.Pillars[0].TotalPillarScore)
		}
		if profile.Pillars[1].PillarName != "2nd Pillar: Digital Finance" {
			t.Errorf("Pillars[1] = %q, want 2nd Pillar: Digital Finance", profile.Pillars[1].PillarName)
		}

		if len(profile.Indicators) != 3 {
			t.Fatalf("got %d indicators, want 3", len(profile.Indicators))
		}
		// Grouped by pillar, in insertion order
		if profile.Indicators[0].Name != "Mobile connectivity" {
			t.Errorf("Indicators[0] = %q, want Mobile connectivity", profile.Indicators[0].Name)
		}
		if profile.Indicators[0].PillarName != "1st Pillar: Digital Infrastructure" {
			t.Errorf("Indicators[0] pillar = %q", profile.Indicators[0].PillarName)
		}
		if profile.Indicators[2].Name != "Fintech adoption" {
			t.Errorf("Indicators[2] = %q, want Fintech adoption", profile.Indicators[2].Name)
		}
	})

	t.Run("unknown country", func(t *testing.T) {
		_, err := repo.Profile(context.Background(), "Atlantis")
		if err == nil {
			t.Fatal("Profile() should error for unknown country")
		}
		if !errors.Is(err, ErrCountryNotFound) {
			t.Errorf("error = %v, want ErrCountryNotFound", err)
		}
	})
}

// TestRepositoryLeaderboard verifies rank ordering and the small-dataset case.
func TestRepositoryLeaderboard(t *testing.T) {
	repo, _ := setupTestRepository(t)
	seedSampleDataset(t, repo)

	board, err := repo.Leaderboard(context.Background())
	if err != nil {
		t.Fatalf("Leaderboard() error = %v", err)
	}

	// Three countries: both halves hold everything, rank ascending
	if len(board.Top) != 3 {
		t.Fatalf("got %d top entries, want 3", len(board.Top))
	}
	if board.Top[0].Name != "Saudi Arabia" || board.Top[0].ADEIRank != 1 {
		t.Errorf("Top[0] = %+v, want Saudi Arabia rank 1", board.Top[0])
	}
	if board.Top[2].Name != "Oman" {
		t.Errorf("Top[2] = %q, want Oman", board.Top[2].Name)
	}
	if len(board.Bottom) != 3 {
		t.Errorf("got %d bottom entries, want 3", len(board.Bottom))
	}
}

// TestRepositoryLeaderboardSplit verifies the top/bottom split past 20 countries.
func TestRepositoryLeaderboardSplit(t *testing.T) {
	repo, _ := setupTestRepository(t)

	var records []adei.CountryData
	for i, name := range adei.Countries {
		if i >= 25 {
			break
		}
		records = append(records, adei.CountryData{
			CountryName:      name,
			OverallADEIScore: 90 - i,
			OverallADEIRank:  i + 1,
		})
	}
	if _, err := repo.LoadDataset(context.Background(), records); err != nil {
		t.Fatalf("failed to load dataset: %v", err)
	}

	board, err := repo.Leaderboard(context.Background())
	if err != nil {
		t.Fatalf("Leaderboard() error = %v", err)
	}

	if len(board.Top) != 10 {
		t.Errorf("got %d top entries, want 10", len(board.Top))
	}
	if len(board.Bottom) != 10 {
		t.Errorf("got %d bottom entries, want 10", len(board.Bottom))
	}
	if board.Top[0].ADEIRank != 1 {
		t.Errorf("Top[0] rank = %d, want 1", board.Top[0].ADEIRank)
	}
	if board.Bottom[0].ADEIRank != 16 {
		t.Errorf("Bottom[0] rank = %d, want 16", board.Bottom[0].ADEIRank)
	}
	if board.Bottom[9].ADEIRank != 25 {
		t.Errorf("Bottom[9] rank = %d, want 25", board.Bottom[9].ADEIRank)
	}
}

// TestRepositoryPillarAverages verifies the mean per pillar and report ordering.
func TestRepositoryPillarAverages(t *testing.T) {
	repo, _ := setupTestRepository(t)
	seedSampleDataset(t, repo)

	averages, err := repo.PillarAverages(context.Background())
	if err != nil {
		t.Fatalf("PillarAverages() error = %v", err)
	}

	if len(averages) != 2 {
		t.Fatalf("got %d averages, want 2", len(averages))
	}

	// Ordered by first appearance, not alphabetically
	if averages[0].PillarName != "1st Pillar: Digital Infrastructure" {
		t.Errorf("averages[0] = %q, want 1st Pillar: Digital Infrastructure", averages[0].PillarName)
	}
	if !almostEqual(averages[0].AverageScore, (80.5+78.5+64)/3) {
		t.Errorf("averages[0] = %v, want %v", averages[0].AverageScore, (80.5+78.5+64)/3)
	}
	if averages[1].PillarName != "2nd Pillar: Digital Finance" {
		t.Errorf("averages[1] = %q, want 2nd Pillar: Digital Finance", averages[1].PillarName)
	}
	if !almostEqual(averages[1].AverageScore, 66.5) {
		t.Errorf("averages[1] = %v, want 66.5", averages[1].AverageScore)
	}
}

// TestRepositoryCompareCountries verifies the side-by-side data set.
func TestRepositoryCompareCountries(t *testing.T) {
	repo, _ := setupTestRepository(t)
	seedSampleDataset(t, repo)

	t.Run("two countries", func(t *testing.T) {
		cmp, err := repo.CompareCountries(context.Background(), []string{"Oman", "Saudi Arabia"})
		if err != nil {
			t.Fatalf("CompareCountries() error = %v", err)
		}

		if len(cmp.Summaries) != 2 {
			t.Fatalf("got %d summaries, want 2", len(cmp.Summaries))
		}
		// Rank order, not argument order
		if cmp.Summaries[0].Name != "Saudi Arabia" {
			t.Errorf("Summaries[0] = %q, want Saudi Arabia", cmp.Summaries[0].Name)
		}
		if cmp.Summaries[1].Name != "Oman" {
			t.Errorf("Summaries[1] = %q, want Oman", cmp.Summaries[1].Name)
		}

		// Two pillars per country
		if len(cmp.Pillars) != 4 {
			t.Fatalf("got %d pillar rows, want 4", len(cmp.Pillars))
		}
		if cmp.Pillars[0].Country != "Saudi Arabia" {
			t.Errorf("Pillars[0].Country = %q, want Saudi Arabia", cmp.Pillars[0].Country)
		}
		if cmp.Pillars[0].PillarName != "1st Pillar: Digital Infrastructure" {
			t.Errorf("Pillars[0].PillarName = %q", cmp.Pillars[0].PillarName)
		}
	})

	t.Run("empty name list", func(t *testing.T) {
		cmp, err := repo.CompareCountries(context.Background(), nil)
		if err != nil {
			t.Fatalf("CompareCountries(nil) error = %v", err)
		}
		if len(cmp.Summaries) != 0 || len(cmp.Pillars) != 0 {
			t.Errorf("expected empty comparison, got %+v", cmp)
		}
	})

	t.Run("unknown names are dropped", func(t *testing.T) {
		cmp, err := repo.CompareCountries(context.Background(), []string{"Qatar", "Atlantis"})
		if err != nil {
			t.Fatalf("CompareCountries() error = %v", err)
		}
		if len(cmp.Summaries) != 1 || cmp.Summaries[0].Name != "Qatar" {
			t.Errorf("Summaries = %+v, want just Qatar", cmp.Summaries)
		}
	})
}

// TestRepositoryMapPoints verifies ISO3 tagging and that unmappable
// countries are dropped.
func TestRepositoryMapPoints(t *testing.T) {
	repo, _ := setupTestRepository(t)
	seedSampleDataset(t, repo)

	// A name with no ISO3 mapping must not reach the map
	_, err := repo.LoadDataset(context.Background(), []adei.CountryData{
		{CountryName: "Atlantis", OverallADEIScore: 50, OverallADEIRank: 99},
	})
	if err != nil {
		t.Fatalf("failed to load extra record: %v", err)
	}

	points, err := repo.MapPoints(context.Background())
	if err != nil {
		t.Fatalf("MapPoints() error = %v", err)
	}

	if len(points) != 3 {
		t.Fatalf("got %d map points, want 3", len(points))
	}

	codes := make(map[string]string)
	for _, p := range points {
		codes[p.Name] = p.ISO3
	}
	want := map[string]string{
		"Saudi Arabia": "SAU",
		"Qatar":        "QAT",
		"Oman":         "OMN",
	}
	for name, iso := range want {
		if codes[name] != iso {
			t.Errorf("ISO3 for %s = %q, want %q", name, codes[name], iso)
		}
	}
}

// TestRepositoryInsertChatTurn_Sync verifies the synchronous write path.
func TestRepositoryInsertChatTurn_Sync(t *testing.T) {
	repo, _ := setupTestRepository(t)

	id, err := repo.InsertChatTurn(context.Background(), ChatTurn{
		SessionID:    "session-1",
		Question:     "Which country ranks first?",
		GeneratedSQL: "SELECT name FROM countries ORDER BY adei_rank ASC LIMIT 1",
		Answer:       "Saudi Arabia holds the top rank.",
		DurationMS:   1250,
	})
	if err != nil {
		t.Fatalf("InsertChatTurn() error = %v", err)
	}
	if id < 1 {
		t.Errorf("id = %d, want >= 1", id)
	}

	turns, err := repo.RecentChatTurns(context.Background(), 10)
	if err != nil {
		t.Fatalf("RecentChatTurns() error = %v", err)
	}
	if len(turns) != 1 {
		t.Fatalf("got %d turns, want 1", len(turns))
	}

	turn := turns[0]
	if turn.SessionID != "session-1" {
		t.Errorf("SessionID = %q, want session-1", turn.SessionID)
	}
	if turn.Question != "Which country ranks first?" {
		t.Errorf("Question = %q", turn.Question)
	}
	if !strings.HasPrefix(turn.GeneratedSQL, "SELECT name FROM countries") {
		t.Errorf("GeneratedSQL = %q", turn.GeneratedSQL)
	}
	if turn.DurationMS != 1250 {
		t.Errorf("DurationMS = %d, want 1250", turn.DurationMS)
	}
	if turn.CreatedAt.IsZero() {
		t.Error("CreatedAt should be populated")
	}
}

// TestRepositoryInsertChatTurn_NullColumns verifies empty SQL and answer
// round-trip as empty strings through the NULL columns.
func TestRepositoryInsertChatTurn_NullColumns(t *testing.T) {
	repo, _ := setupTestRepository(t)

	_, err := repo.InsertChatTurn(context.Background(), ChatTurn{
		SessionID: "session-1",
		Question:  "gibberish input",
	})
	if err != nil {
		t.Fatalf("InsertChatTurn() error = %v", err)
	}

	turns, err := repo.RecentChatTurns(context.Background(), 1)
	if err != nil {
		t.Fatalf("RecentChatTurns() error = %v", err)
	}
	if len(turns) != 1 {
		t.Fatalf("got %d turns, want 1", len(turns))
	}
	if turns[0].GeneratedSQL != "" {
		t.Errorf("GeneratedSQL = %q, want empty", turns[0].GeneratedSQL)
	}
	if turns[0].Answer != "" {
		t.Errorf("Answer = %q, want empty", turns[0].Answer)
	}
}

// TestRepositoryInsertChatTurn_Async verifies the write-behind path.
func TestRepositoryInsertChatTurn_Async(t *testing.T) {
	repo, _ := setupTestRepository(t)

	asyncWriter := NewAsyncWriter(repo.CreateAsyncWriteHandler())
	asyncWriter.Start()
	repo.asyncWriter = asyncWriter

	id, err := repo.InsertChatTurn(context.Background(), ChatTurn{
		SessionID: "session-async",
		Question:  "What is the average infrastructure score?",
		Answer:    "The average is 74.3.",
	})
	if err != nil {
		t.Fatalf("InsertChatTurn() error = %v", err)
	}
	// Queued writes report no id
	if id != 0 {
		t.Errorf("id = %d, want 0 for queued write", id)
	}

	// Stop drains the queue
	asyncWriter.Stop()
	repo.asyncWriter = nil

	count, err := repo.CountChatTurns(context.Background())
	if err != nil {
		t.Fatalf("CountChatTurns() error = %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1 after drain", count)
	}
}

// TestRepositoryRecentChatTurns verifies ordering and the limit default.
func TestRepositoryRecentChatTurns(t *testing.T) {
	repo, _ := setupTestRepository(t)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		_, err := repo.InsertChatTurn(ctx, ChatTurn{
			SessionID: "session-1",
			Question:  "question",
			Answer:    "answer",
		})
		if err != nil {
			t.Fatalf("InsertChatTurn() error = %v", err)
		}
	}

	t.Run("explicit limit", func(t *testing.T) {
		turns, err := repo.RecentChatTurns(ctx, 3)
		if err != nil {
			t.Fatalf("RecentChatTurns() error = %v", err)
		}
		if len(turns) != 3 {
			t.Fatalf("got %d turns, want 3", len(turns))
		}
		// Newest first: ids descending (created_at has one-second resolution)
		if turns[0].ID < turns[1].ID || turns[1].ID < turns[2].ID {
			t.Errorf("turns not in newest-first order: ids %d, %d, %d",
				turns[0].ID, turns[1].ID, turns[2].ID)
		}
	})

	t.Run("default limit", func(t *testing.T) {
		turns, err := repo.RecentChatTurns(ctx, 0)
		if err != nil {
			t.Fatalf("RecentChatTurns() error = %v", err)
		}
		if len(turns) != 10 {
			t.Errorf("got %d turns, want 10 (default limit)", len(turns))
		}
	})
}

// TestRepositoryChatTurnsBySession verifies session filtering.
func TestRepositoryChatTurnsBySession(t *testing.T) {
	repo, _ := setupTestRepository(t)
	ctx := context.Background()

	sessions := []string{"session-a", "session-b", "session-a"}
	for i, s := range sessions {
		_, err := repo.InsertChatTurn(ctx, ChatTurn{
			SessionID: s,
			Question:  "question",
			Answer:    "answer",
		})
		if err != nil {
			t.Fatalf("InsertChatTurn(%d) error = %v", i, err)
		}
	}

	turns, err := repo.ChatTurnsBySession(ctx, "session-a", 10)
	if err != nil {
		t.Fatalf("ChatTurnsBySession() error = %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("got %d turns, want 2", len(turns))
	}
	for _, turn := range turns {
		if turn.SessionID != "session-a" {
			t.Errorf("SessionID = %q, want session-a", turn.SessionID)
		}
	}
}

// TestRepositorySchemaDDL verifies the agent prompt schema dump.
func TestRepositorySchemaDDL(t *testing.T) {
	repo, _ := setupTestRepository(t)

	ddl, err := repo.SchemaDDL(context.Background())
	if err != nil {
		t.Fatalf("SchemaDDL() error = %v", err)
	}

	for _, table := range schemaTables {
		if !strings.Contains(ddl, table) {
			t.Errorf("schema DDL missing table %s", table)
		}
	}
	if !strings.Contains(ddl, "CREATE TABLE") {
		t.Error("schema DDL should contain CREATE TABLE statements")
	}
	if strings.Contains(ddl, "schema_migrations") {
		t.Error("schema DDL should not expose the migrations bookkeeping table")
	}
}

// TestRepositoryRunSelect verifies the generic SELECT executor.
func TestRepositoryRunSelect(t *testing.T) {
	repo, _ := setupTestRepository(t)
	seedSampleDataset(t, repo)
	ctx := context.Background()

	t.Run("renders rows as strings", func(t *testing.T) {
		result, err := repo.RunSelect(ctx,
			"SELECT name, adei_score FROM countries ORDER BY adei_rank ASC", 0)
		if err != nil {
			t.Fatalf("RunSelect() error = %v", err)
		}

		if len(result.Columns) != 2 {
			t.Fatalf("got %d columns, want 2", len(result.Columns))
		}
		if result.Columns[0] != "name" || result.Columns[1] != "adei_score" {
			t.Errorf("Columns = %v, want [name adei_score]", result.Columns)
		}
		if len(result.Rows) != 3 {
			t.Fatalf("got %d rows, want 3", len(result.Rows))
		}
		if result.Rows[0][0] != "Saudi Arabia" || result.Rows[0][1] != "76" {
			t.Errorf("Rows[0] = %v, want [Saudi Arabia 76]", result.Rows[0])
		}
		if result.Truncated {
			t.Error("Truncated = true, want false")
		}
	})

	t.Run("float rendering", func(t *testing.T) {
		result, err := repo.RunSelect(ctx,
			"SELECT total_pillar_score FROM pillars ORDER BY id LIMIT 1", 0)
		if err != nil {
			t.Fatalf("RunSelect() error = %v", err)
		}
		if len(result.Rows) != 1 {
			t.Fatalf("got %d rows, want 1", len(result.Rows))
		}
		if result.Rows[0][0] != "80.5" {
			t.Errorf("Rows[0][0] = %q, want 80.5", result.Rows[0][0])
		}
	})

	t.Run("truncation", func(t *testing.T) {
		result, err := repo.RunSelect(ctx, "SELECT name FROM countries ORDER BY name", 2)
		if err != nil {
			t.Fatalf("RunSelect() error = %v", err)
		}
		if len(result.Rows) != 2 {
			t.Errorf("got %d rows, want 2", len(result.Rows))
		}
		if !result.Truncated {
			t.Error("Truncated = false, want true")
		}
	})

	t.Run("aggregate with NULL", func(t *testing.T) {
		result, err := repo.RunSelect(ctx,
			"SELECT MAX(adei_score) FROM countries WHERE name = 'Atlantis'", 0)
		if err != nil {
			t.Fatalf("RunSelect() error = %v", err)
		}
		if len(result.Rows) != 1 || result.Rows[0][0] != "NULL" {
			t.Errorf("Rows = %v, want one NULL cell", result.Rows)
		}
	})

	t.Run("invalid SQL errors", func(t *testing.T) {
		if _, err := repo.RunSelect(ctx, "SELECT FROM WHERE", 0); err == nil {
			t.Error("RunSelect() should error on invalid SQL")
		}
	})
}

// TestRepositoryCounts verifies the table count helpers after a load.
func TestRepositoryCounts(t *testing.T) {
	repo, _ := setupTestRepository(t)
	seedSampleDataset(t, repo)
	ctx := context.Background()

	checks := []struct {
		name  string
		count func(context.Context) (int64, error)
		want  int64
	}{
		{"countries", repo.CountCountries, 3},
		{"dimension_summaries", repo.CountDimensionSummaries, 4},
		{"pillars", repo.CountPillars, 6},
		{"sub_pillars", repo.CountSubPillars, 6},
		{"chat_history", repo.CountChatTurns, 0},
	}
	for _, check := range checks {
		got, err := check.count(ctx)
		if err != nil {
			t.Errorf("Count %s error = %v", check.name, err)
			continue
		}
		if got != check.want {
			t.Errorf("Count %s = %d, want %d", check.name, got, check.want)
		}
	}
}

// TestRepositoryConcurrentReads verifies the dashboard query set tolerates
// concurrent access on the single-connection pool.
func TestRepositoryConcurrentReads(t *testing.T) {
	repo, _ := setupTestRepository(t)
	seedSampleDataset(t, repo)
	ctx := context.Background()

	var wg sync.WaitGroup
	errChan := make(chan error, 20)

	for i := 0; i < 5; i++ {
		wg.Add(4)
		go func() {
			defer wg.Done()
			if _, err := repo.ListCountryNames(ctx); err != nil {
				errChan <- err
			}
		}()
		go func() {
			defer wg.Done()
			if _, err := repo.Profile(ctx, "Qatar"); err != nil {
				errChan <- err
			}
		}()
		go func() {
			defer wg.Done()
			if _, err := repo.Leaderboard(ctx); err != nil {
				errChan <- err
			}
		}()
		go func() {
			defer wg.Done()
			if _, err := repo.PillarAverages(ctx); err != nil {
				errChan <- err
			}
		}()
	}

	wg.Wait()
	close(errChan)

	for err := range errChan {
		t.Errorf("concurrent read error: %v", err)
	}
}

// TestRepositoryChatTurnTimestamps verifies CreatedAt parses to a sane time.
func TestRepositoryChatTurnTimestamps(t *testing.T) {
	repo, _ := setupTestRepository(t)

	before := time.Now().UTC().Add(-time.Minute)
	_, err := repo.InsertChatTurn(context.Background(), ChatTurn{
		SessionID: "session-1",
		Question:  "question",
	})
	if err != nil {
		t.Fatalf("InsertChatTurn() error = %v", err)
	}

	turns, err := repo.RecentChatTurns(context.Background(), 1)
	if err != nil {
		t.Fatalf("RecentChatTurns() error = %v", err)
	}
	if len(turns) != 1 {
		t.Fatalf("got %d turns, want 1", len(turns))
	}

	// SQLite CURRENT_TIMESTAMP is UTC
	if turns[0].CreatedAt.Before(before) {
		t.Errorf("CreatedAt = %v, want after %v", turns[0].CreatedAt, before)
	}
	if turns[0].CreatedAt.After(time.Now().UTC().Add(time.Minute)) {
		t.Errorf("CreatedAt = %v is in the future", turns[0].CreatedAt)
	}
}
