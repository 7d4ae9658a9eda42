// Package agent answers natural-language questions about the index database
// by having the LLM write SQL.
//
// sqlguard.go contains the atoms that stand between the model's reply and
// the database: ExtractSQL cleans the reply down to a bare statement and
// ValidateSelect refuses everything that is not a single read-only SELECT.
package agent

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// SQL guard errors
var (
	// ErrEmptySQL is returned when the reply contains no statement at all.
	ErrEmptySQL = errors.New("no SQL statement found in reply")
	// ErrNotSelect is returned when the statement is not a SELECT.
	ErrNotSelect = errors.New("statement is not a SELECT")
	// ErrMultipleStatements is returned when more than one statement was sent.
	ErrMultipleStatements = errors.New("reply contains more than one statement")
	// ErrForbiddenKeyword is returned when the statement contains a keyword
	// that could modify the database.
	ErrForbiddenKeyword = errors.New("statement contains a forbidden keyword")
)

// forbiddenSQL matches keywords that modify the database or its attachment
// state. REPLACE is only forbidden in its INSERT form; the replace() scalar
// function is legitimate in a SELECT (the pillar names carry prefixes worth
// stripping).
var forbiddenSQL = regexp.MustCompile(`(?i)\b(insert|update|delete|drop|alter|create|attach|detach|pragma|vacuum|reindex|replace\s+into)\b`)

// sqlLabels are reply prefixes models put in front of a bare statement.
var sqlLabels = []string{"sql:", "sqlite:", "query:"}

// ExtractSQL cleans an LLM reply down to the statement it carries: markdown
// code fences, a leading "SQL:" style label, leading line comments and a
// trailing semicolon are stripped. The result is not validated; pass it to
// ValidateSelect.
//
// This is a pure function (atom) with no external dependencies.
//
// Example:
//
//	sql := agent.ExtractSQL("```sql\nSELECT name FROM countries;\n```")
//	// sql == "SELECT name FROM countries"
func ExtractSQL(reply string) string {
	s := strings.TrimSpace(reply)

	if i := strings.Index(s, "```"); i != -1 {
		s = s[i+3:]
		if j := strings.Index(s, "```"); j != -1 {
			s = s[:j]
		}
		if nl := strings.Index(s, "\n"); nl != -1 {
			// The opening fence line may carry a language tag.
			first := strings.ToLower(strings.TrimSpace(s[:nl]))
			if first == "" || first == "sql" || first == "sqlite" {
				s = s[nl+1:]
			}
		}
		s = strings.TrimSpace(s)
	}

	lower := strings.ToLower(s)
	for _, label := range sqlLabels {
		if strings.HasPrefix(lower, label) {
			s = strings.TrimSpace(s[len(label):])
			break
		}
	}

	for strings.HasPrefix(s, "--") {
		nl := strings.Index(s, "\n")
		if nl == -1 {
			return ""
		}
		s = strings.TrimSpace(s[nl+1:])
	}

	return strings.TrimSpace(strings.TrimSuffix(s, ";"))
}

// ValidateSelect reports whether query is a single read-only SELECT (or a
// WITH clause ending in one). The keyword scan does not parse string
// literals, so a literal containing a write keyword is rejected too; the
// guard fails closed and the caller feeds the rejection back to the model.
//
// This is a pure function (atom) with no external dependencies.
func ValidateSelect(query string) error {
	q := strings.TrimSpace(query)
	if q == "" {
		return ErrEmptySQL
	}

	q = strings.TrimSpace(strings.TrimSuffix(q, ";"))
	if q == "" {
		return ErrEmptySQL
	}
	if strings.Contains(q, ";") {
		return ErrMultipleStatements
	}

	first := strings.ToUpper(strings.Fields(q)[0])
	if first != "SELECT" && first != "WITH" {
		return fmt.Errorf("%w: statement starts with %s", ErrNotSelect, first)
	}

	if match := forbiddenSQL.FindString(q); match != "" {
		keyword := strings.ToUpper(strings.Join(strings.Fields(match), " "))
		return fmt.Errorf("%w: %s", ErrForbiddenKeyword, keyword)
	}

	return nil
}
