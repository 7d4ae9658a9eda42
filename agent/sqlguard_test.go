package agent

import (
	"errors"
	"strings"
	"testing"
)

func TestExtractSQL(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  string
	}{
		{
			name:  "bare statement",
			reply: "SELECT name FROM countries",
			want:  "SELECT name FROM countries",
		},
		{
			name:  "trailing semicolon stripped",
			reply: "SELECT name FROM countries;",
			want:  "SELECT name FROM countries",
		},
		{
			name:  "surrounding whitespace",
			reply: "\n  SELECT name FROM countries ;\n",
			want:  "SELECT name FROM countries",
		},
		{
			name:  "sql fence",
			reply: "```sql\nSELECT name FROM countries;\n```",
			want:  "SELECT name FROM countries",
		},
		{
			name:  "untagged fence",
			reply: "```\nSELECT name FROM countries\n```",
			want:  "SELECT name FROM countries",
		},
		{
			name:  "fence with prose around it",
			reply: "Here is the query you need:\n```sql\nSELECT adei_rank FROM countries WHERE name = 'Qatar'\n```\nThis ranks Qatar.",
			want:  "SELECT adei_rank FROM countries WHERE name = 'Qatar'",
		},
		{
			name:  "sql label",
			reply: "SQL: SELECT count(*) FROM pillars",
			want:  "SELECT count(*) FROM pillars",
		},
		{
			name:  "query label",
			reply: "Query:\nSELECT name FROM countries",
			want:  "SELECT name FROM countries",
		},
		{
			name:  "leading line comments",
			reply: "-- top ranked country\n-- one row\nSELECT name FROM countries ORDER BY adei_rank LIMIT 1",
			want:  "SELECT name FROM countries ORDER BY adei_rank LIMIT 1",
		},
		{
			name:  "multiline statement preserved",
			reply: "```sql\nSELECT p.pillar_name, p.total_pillar_score\nFROM pillars p\nJOIN countries c ON c.id = p.country_id\nWHERE c.name = 'Oman'\n```",
			want:  "SELECT p.pillar_name, p.total_pillar_score\nFROM pillars p\nJOIN countries c ON c.id = p.country_id\nWHERE c.name = 'Oman'",
		},
		{
			name:  "comment only reply",
			reply: "-- no statement here",
			want:  "",
		},
		{
			name:  "empty reply",
			reply: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractSQL(tt.reply)
			if got != tt.want {
				t.Errorf("ExtractSQL(%q) = %q, want %q", tt.reply, got, tt.want)
			}
		})
	}
}

func TestValidateSelect(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		wantErr error
	}{
		{
			name:  "plain select",
			query: "SELECT name FROM countries ORDER BY adei_rank",
		},
		{
			name:  "lowercase select",
			query: "select count(*) from sub_pillars",
		},
		{
			name:  "with clause",
			query: "WITH ranked AS (SELECT name, adei_rank FROM countries) SELECT name FROM ranked WHERE adei_rank <= 10",
		},
		{
			name:  "trailing semicolon tolerated",
			query: "SELECT name FROM countries;",
		},
		{
			name:  "replace function allowed",
			query: "SELECT replace(pillar_name, '1st Pillar: ', '') FROM pillars",
		},
		{
			name:  "column names containing keywords allowed",
			query: "SELECT created_at FROM chat_history ORDER BY created_at DESC",
		},
		{
			name:    "empty",
			query:   "",
			wantErr: ErrEmptySQL,
		},
		{
			name:    "only a semicolon",
			query:   ";",
			wantErr: ErrEmptySQL,
		},
		{
			name:    "multiple statements",
			query:   "SELECT name FROM countries; DROP TABLE countries",
			wantErr: ErrMultipleStatements,
		},
		{
			name:    "insert",
			query:   "INSERT INTO countries (name) VALUES ('Atlantis')",
			wantErr: ErrNotSelect,
		},
		{
			name:    "delete",
			query:   "DELETE FROM chat_history",
			wantErr: ErrNotSelect,
		},
		{
			name:    "pragma",
			query:   "PRAGMA table_info(countries)",
			wantErr: ErrNotSelect,
		},
		{
			name:    "prose instead of sql",
			query:   "I cannot answer that question",
			wantErr: ErrNotSelect,
		},
		{
			name:    "write keyword hidden in a with clause",
			query:   "WITH x AS (SELECT 1) INSERT INTO countries (name) SELECT 'Atlantis'",
			wantErr: ErrForbiddenKeyword,
		},
		{
			name:    "update buried in select",
			query:   "SELECT name FROM countries WHERE 1 = 1 UPDATE countries SET adei_rank = 1",
			wantErr: ErrForbiddenKeyword,
		},
		{
			name:    "write keyword in a string literal fails closed",
			query:   "SELECT 'replace into backup' AS note FROM countries",
			wantErr: ErrForbiddenKeyword,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSelect(tt.query)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("ValidateSelect(%q) returned %v, want nil", tt.query, err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ValidateSelect(%q) returned %v, want %v", tt.query, err, tt.wantErr)
			}
		})
	}
}

func TestValidateSelectNamesTheKeyword(t *testing.T) {
	err := ValidateSelect("WITH x AS (SELECT 1) DROP TABLE countries")
	if !errors.Is(err, ErrForbiddenKeyword) {
		t.Fatalf("error = %v, want ErrForbiddenKeyword", err)
	}
	if !strings.Contains(err.Error(), "DROP") {
		t.Errorf("error %q does not name the keyword DROP", err.Error())
	}
}

func TestValidateSelectNamesTheLeadingKeyword(t *testing.T) {
	err := ValidateSelect("UPDATE countries SET adei_rank = 1")
	if !errors.Is(err, ErrNotSelect) {
		t.Fatalf("error = %v, want ErrNotSelect", err)
	}
	if !strings.Contains(err.Error(), "UPDATE") {
		t.Errorf("error %q does not name the leading keyword", err.Error())
	}
}

func TestExtractThenValidate(t *testing.T) {
	reply := "Here you go:\n```sql\nSELECT name, adei_score\nFROM countries\nORDER BY adei_rank\nLIMIT 10;\n```"

	sqlText := ExtractSQL(reply)
	if err := ValidateSelect(sqlText); err != nil {
		t.Fatalf("ValidateSelect(ExtractSQL(reply)) returned %v", err)
	}
	if !strings.HasPrefix(sqlText, "SELECT name, adei_score") {
		t.Errorf("unexpected extraction: %q", sqlText)
	}
	if strings.Contains(sqlText, "`") || strings.HasSuffix(sqlText, ";") {
		t.Errorf("fences or semicolon survived extraction: %q", sqlText)
	}
}
