package commands

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"jira-connector/internal/jira"
	"jira-connector/internal/jira/jiratest"
)

func TestRunCheck(t *testing.T) {
	f := jiratest.New(t)
	f.AddIssue(t, jira.Issue{ID: 10, ProjectKey: "WT", IssueNumber: "1", Summary: "one"})
	f.AddIssue(t, jira.Issue{ID: 11, ProjectKey: "OPS", IssueNumber: "1", Summary: "two"})

	var out bytes.Buffer
	if err := runCheck(context.Background(), &out, f.DB, "sqlite://jira.db", []string{"WT"}); err != nil {
		t.Fatalf("runCheck: %v", err)
	}
	for _, want := range []string{"sqlite://jira.db (sqlite)", "Schema OK, 1 issues"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output %q does not contain %q", out.String(), want)
		}
	}
}

func TestRunCheck_MissingColumn(t *testing.T) {
	f := jiratest.New(t)
	f.Exec(t, `ALTER TABLE worklog DROP COLUMN worklogbody`)

	var out bytes.Buffer
	if err := runCheck(context.Background(), &out, f.DB, "sqlite://jira.db", nil); err == nil {
		t.Fatal("expected schema error")
	}
	if !strings.Contains(out.String(), "missing: worklog.worklogbody") {
		t.Errorf("output = %q", out.String())
	}
}
