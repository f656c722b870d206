// Package jiratest builds throwaway Jira-shaped SQLite databases for tests.
package jiratest

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"jira-connector/internal/jira"
)

// Fixture pairs a repository under test with a raw handle for seeding and
// inspecting the same database file.
type Fixture struct {
	DB  *jira.DB
	Raw *sql.DB
	Cfg jira.Config
}

// WorklogRow is a worklog as stored.
type WorklogRow struct {
	ID         int64
	IssueID    int64
	Author     string
	TimeWorked int64
	Created    string
	Body       string
}

// New creates a fresh database in t.TempDir and opens a repository on it.
func New(t testing.TB, opts ...func(*jira.Config)) *Fixture {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "jira.db") + "?_pragma=busy_timeout(5000)"

	raw, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("failed to open raw handle: %v", err)
	}
	t.Cleanup(func() { _ = raw.Close() })

	if _, err := raw.Exec(jira.SQLiteSchema); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	cfg := jira.Config{Driver: jira.SQLite, DSN: dsn}
	for _, opt := range opts {
		opt(&cfg)
	}

	db, err := jira.Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("failed to open repository: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return &Fixture{DB: db, Raw: raw, Cfg: cfg}
}

// Exec runs a statement against the raw handle.
func (f *Fixture) Exec(t testing.TB, query string, args ...any) {
	t.Helper()
	if _, err := f.Raw.Exec(query, args...); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}

// AddIssue inserts an issue, creating its project and issue type on demand.
func (f *Fixture) AddIssue(t testing.TB, issue jira.Issue) {
	t.Helper()
	f.Exec(t, `INSERT OR IGNORE INTO project (pkey) VALUES (?)`, issue.ProjectKey)

	var typeID any
	if issue.IssueType != "" {
		f.Exec(t, `INSERT OR IGNORE INTO issuetype (id, pname) VALUES (?, ?)`, issue.IssueType, issue.IssueType)
		typeID = issue.IssueType
	}

	f.Exec(t, `
INSERT INTO jiraissue (id, issuenum, project, summary, timespent, issuetype)
SELECT ?, ?, id, ?, ?, ? FROM project WHERE pkey = ?`,
		issue.ID, issue.IssueNumber, issue.Summary, issue.TimeSpent, typeID, issue.ProjectKey)
}

// AddUser inserts a user with the lower-case lookup columns Jira maintains.
func (f *Fixture) AddUser(t testing.TB, username, email string) {
	t.Helper()
	f.Exec(t, `
INSERT INTO cwd_user (user_name, lower_user_name, email_address, lower_email_address)
VALUES (?, lower(?), ?, lower(?))`, username, username, email, email)
}

// SetDefaultTimeZone stores Jira's jira.default.timezone property.
func (f *Fixture) SetDefaultTimeZone(t testing.TB, name string) {
	t.Helper()
	f.Exec(t, `INSERT INTO propertyentry (id, entity_name, entity_id, property_key) VALUES (1, 'jira.properties', 1, 'jira.default.timezone')`)
	f.Exec(t, `INSERT INTO propertystring (id, propertyvalue) VALUES (1, ?)`, name)
}

// TimeSpent reads an issue's time spent.
func (f *Fixture) TimeSpent(t testing.TB, issueID int64) int64 {
	t.Helper()
	var spent sql.NullInt64
	if err := f.Raw.QueryRow(`SELECT timespent FROM jiraissue WHERE id = ?`, issueID).Scan(&spent); err != nil {
		t.Fatalf("failed to read time spent of %d: %v", issueID, err)
	}
	return spent.Int64
}

// Worklogs returns every worklog ordered by ID.
func (f *Fixture) Worklogs(t testing.TB) []WorklogRow {
	t.Helper()
	rows, err := f.Raw.Query(`SELECT id, issueid, author, timeworked, created, worklogbody FROM worklog ORDER BY id`)
	if err != nil {
		t.Fatalf("failed to query worklogs: %v", err)
	}
	defer rows.Close()

	var out []WorklogRow
	for rows.Next() {
		var w WorklogRow
		if err := rows.Scan(&w.ID, &w.IssueID, &w.Author, &w.TimeWorked, &w.Created, &w.Body); err != nil {
			t.Fatalf("failed to scan worklog: %v", err)
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("failed to iterate worklogs: %v", err)
	}
	return out
}

// WorklogSequence reads the Worklog counter row, if any.
func (f *Fixture) WorklogSequence(t testing.TB) (int64, bool) {
	t.Helper()
	var id int64
	err := f.Raw.QueryRow(`SELECT seq_id FROM sequence_value_item WHERE seq_name = 'Worklog'`).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false
	}
	if err != nil {
		t.Fatalf("failed to read worklog sequence: %v", err)
	}
	return id, true
}
