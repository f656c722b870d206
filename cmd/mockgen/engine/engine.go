// Package engine generates mock Jira databases for trying the connector
// without a real Jira instance.
package engine

import (
	"database/sql"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"jira-connector/internal/jira"
)

type GeneratorConfig struct {
	Projects []string
	Count    int
	Users    int
	Seed     int64
	Timezone string
}

type User struct {
	Name  string
	Email string
}

// Dataset is everything Save writes.
type Dataset struct {
	Projects []string
	Issues   []jira.Issue
	Users    []User
	Timezone string
}

var (
	issueTypes = []string{"Bug", "Story", "Task", "Epic"}
	verbs      = []string{"Fix", "Add", "Refactor", "Document", "Investigate", "Remove"}
	subjects   = []string{"login flow", "billing export", "search index", "audit log", "rate limiter", "email templates"}
)

// Generate builds a deterministic dataset for cfg.Seed.
func Generate(cfg GeneratorConfig) Dataset {
	rng := rand.New(rand.NewSource(cfg.Seed))

	var projects []string
	for _, p := range cfg.Projects {
		if p = strings.ToUpper(strings.TrimSpace(p)); p != "" {
			projects = append(projects, p)
		}
	}
	if len(projects) == 0 {
		projects = []string{"MOCK"}
	}

	data := Dataset{Projects: projects, Timezone: cfg.Timezone}
	next := make(map[string]int, len(projects))

	// Jira IDs grow with gaps, as issues from other instances or deleted
	// issues leave holes.
	id := int64(10000)
	for i := 0; i < cfg.Count; i++ {
		id += int64(1 + rng.Intn(3))
		project := projects[rng.Intn(len(projects))]
		next[project]++

		issue := jira.Issue{
			ID:          id,
			ProjectKey:  project,
			IssueNumber: fmt.Sprint(next[project]),
			Summary:     verbs[rng.Intn(len(verbs))] + " " + subjects[rng.Intn(len(subjects))],
			IssueType:   issueTypes[rng.Intn(len(issueTypes))],
		}
		if rng.Intn(3) == 0 {
			issue.TimeSpent = int64(rng.Intn(40)) * 900
		}
		data.Issues = append(data.Issues, issue)
	}

	for i := 1; i <= cfg.Users; i++ {
		data.Users = append(data.Users, User{
			Name:  fmt.Sprintf("user%d", i),
			Email: fmt.Sprintf("user%d@example.com", i),
		})
	}
	return data
}

// Save writes data into a new SQLite database at path, replacing any
// existing file.
func Save(path string, data Dataset) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}

	db, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.Exec(jira.SQLiteSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for i, p := range data.Projects {
		if _, err := tx.Exec(`INSERT INTO project (id, pkey) VALUES (?, ?)`, i+1, p); err != nil {
			return fmt.Errorf("failed to insert project %s: %w", p, err)
		}
	}
	for _, t := range issueTypes {
		if _, err := tx.Exec(`INSERT INTO issuetype (id, pname) VALUES (?, ?)`, t, t); err != nil {
			return fmt.Errorf("failed to insert issue type %s: %w", t, err)
		}
	}
	for _, issue := range data.Issues {
		if _, err := tx.Exec(`
INSERT INTO jiraissue (id, issuenum, project, summary, timespent, issuetype)
SELECT ?, ?, id, ?, ?, ? FROM project WHERE pkey = ?`,
			issue.ID, issue.IssueNumber, issue.Summary, issue.TimeSpent, issue.IssueType, issue.ProjectKey); err != nil {
			return fmt.Errorf("failed to insert issue %s: %w", issue.Key(), err)
		}
	}
	for _, u := range data.Users {
		if _, err := tx.Exec(`
INSERT INTO cwd_user (user_name, lower_user_name, email_address, lower_email_address) VALUES (?, ?, ?, ?)`,
			u.Name, strings.ToLower(u.Name), u.Email, strings.ToLower(u.Email)); err != nil {
			return fmt.Errorf("failed to insert user %s: %w", u.Name, err)
		}
	}
	if data.Timezone != "" {
		if _, err := tx.Exec(`INSERT INTO propertyentry (id, entity_name, entity_id, property_key) VALUES (1, 'jira.properties', 1, 'jira.default.timezone')`); err != nil {
			return err
		}
		if _, err := tx.Exec(`INSERT INTO propertystring (id, propertyvalue) VALUES (1, ?)`, data.Timezone); err != nil {
			return err
		}
	}

	return tx.Commit()
}
