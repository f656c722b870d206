package jira

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Issue is the subset of a jiraissue row the connector needs.
type Issue struct {
	ID          int64
	ProjectKey  string
	IssueNumber string
	Summary     string
	TimeSpent   int64 // seconds
	IssueType   string
}

// Key returns the issue key, e.g. "WT-42". It doubles as the tag name.
func (i Issue) Key() string {
	return i.ProjectKey + "-" + i.IssueNumber
}

// TagRef is a tag name split into project key and issue number.
type TagRef struct {
	ProjectKey  string
	IssueNumber int64
}

// ParseTagRef splits a tag name of the form "<project>-<number>". Names
// with any other shape are rejected.
func ParseTagRef(tagName string) (TagRef, bool) {
	parts := strings.Split(tagName, "-")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return TagRef{}, false
	}
	for _, r := range parts[1] {
		if r < '0' || r > '9' {
			return TagRef{}, false
		}
	}
	num, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return TagRef{}, false
	}
	return TagRef{ProjectKey: parts[0], IssueNumber: num}, true
}

const selectIssue = `
SELECT jiraissue.id, project.pkey, jiraissue.issuenum,
       COALESCE(jiraissue.summary, ''), COALESCE(jiraissue.timespent, 0),
       COALESCE(issuetype.pname, '')
FROM project
INNER JOIN jiraissue ON project.id = jiraissue.project
LEFT JOIN issuetype ON issuetype.id = jiraissue.issuetype`

// FindIssueByTagName looks up the issue a tag refers to. Tag names that do
// not parse are reported as absent without touching the database.
func (db *DB) FindIssueByTagName(ctx context.Context, tagName string) (Issue, bool, error) {
	ref, ok := ParseTagRef(tagName)
	if !ok {
		return Issue{}, false, nil
	}
	return db.FindIssue(ctx, ref)
}

// FindIssue looks up an issue by project key and issue number.
func (db *DB) FindIssue(ctx context.Context, ref TagRef) (Issue, bool, error) {
	row := db.queryRow(ctx, selectIssue+`
WHERE project.pkey = ? AND jiraissue.issuenum = ?`, ref.ProjectKey, ref.IssueNumber)

	issue, err := scanIssue(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Issue{}, false, nil
	}
	if err != nil {
		return Issue{}, false, fmt.Errorf("failed to find issue %s-%d: %w", ref.ProjectKey, ref.IssueNumber, err)
	}
	return issue, true, nil
}

// FindIssuesAfter returns up to limit issues whose ID is greater than
// afterID, in ascending ID order. An empty projectKeys matches every project.
func (db *DB) FindIssuesAfter(ctx context.Context, afterID int64, limit int, projectKeys []string) ([]Issue, error) {
	if limit <= 0 {
		return nil, nil
	}
	query := selectIssue + `
WHERE jiraissue.id > ?`
	args := []any{afterID}
	if len(projectKeys) > 0 {
		query += ` AND project.pkey IN (` + placeholders(len(projectKeys)) + `)`
		for _, k := range projectKeys {
			args = append(args, k)
		}
	}
	query += `
ORDER BY jiraissue.id ASC
LIMIT ?`
	args = append(args, limit)

	rows, err := db.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query issues after %d: %w", afterID, err)
	}
	defer rows.Close()

	issues := make([]Issue, 0, limit)
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan issue: %w", err)
		}
		issues = append(issues, issue)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate issues: %w", err)
	}
	return issues, nil
}

// IssueCount counts the issues visible to the connector.
func (db *DB) IssueCount(ctx context.Context, projectKeys []string) (int64, error) {
	query := `SELECT COUNT(*) FROM project INNER JOIN jiraissue ON project.id = jiraissue.project`
	var args []any
	if len(projectKeys) > 0 {
		query += ` WHERE project.pkey IN (` + placeholders(len(projectKeys)) + `)`
		for _, k := range projectKeys {
			args = append(args, k)
		}
	}

	var count int64
	if err := db.queryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count issues: %w", err)
	}
	return count, nil
}

// UpdateIssueTimeSpent overwrites the issue's time spent. Callers add to
// the current value themselves.
func (db *DB) UpdateIssueTimeSpent(ctx context.Context, issueID, timeSpent int64) error {
	if _, err := db.exec(ctx, `UPDATE jiraissue SET timespent = ? WHERE id = ?`, timeSpent, issueID); err != nil {
		return fmt.Errorf("failed to update time spent of issue %d: %w", issueID, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanIssue(s scanner) (Issue, error) {
	var (
		issue  Issue
		number sql.NullString
	)
	if err := s.Scan(&issue.ID, &issue.ProjectKey, &number, &issue.Summary, &issue.TimeSpent, &issue.IssueType); err != nil {
		return Issue{}, err
	}
	issue.IssueNumber = number.String
	return issue, nil
}
