package jira_test

import (
	"context"
	"reflect"
	"testing"

	"jira-connector/internal/jira/jiratest"
)

func TestHasExpectedSchema(t *testing.T) {
	f := jiratest.New(t)
	ctx := context.Background()

	if !f.DB.HasExpectedSchema(ctx) {
		t.Fatal("fresh schema reported incompatible")
	}

	f.Exec(t, `ALTER TABLE worklog DROP COLUMN worklogbody`)
	if f.DB.HasExpectedSchema(ctx) {
		t.Error("schema without worklog.worklogbody reported compatible")
	}
	missing, err := f.DB.MissingColumns(ctx)
	if err != nil {
		t.Fatalf("MissingColumns: %v", err)
	}
	if want := []string{"worklog.worklogbody"}; !reflect.DeepEqual(missing, want) {
		t.Errorf("MissingColumns = %v, want %v", missing, want)
	}

	f.Exec(t, `ALTER TABLE worklog ADD COLUMN worklogbody TEXT`)
	if !f.DB.HasExpectedSchema(ctx) {
		t.Error("restored schema reported incompatible")
	}
}

func TestHasExpectedSchema_CaseInsensitive(t *testing.T) {
	f := jiratest.New(t)
	f.Exec(t, `DROP TABLE propertystring`)
	f.Exec(t, `CREATE TABLE PROPERTYSTRING (ID INTEGER PRIMARY KEY, PROPERTYVALUE TEXT)`)

	if !f.DB.HasExpectedSchema(context.Background()) {
		t.Error("upper-case table reported incompatible")
	}
}

func TestHasExpectedSchema_MissingTable(t *testing.T) {
	f := jiratest.New(t)
	f.Exec(t, `DROP TABLE sequence_value_item`)

	missing, err := f.DB.MissingColumns(context.Background())
	if err != nil {
		t.Fatalf("MissingColumns: %v", err)
	}
	if want := []string{"sequence_value_item.seq_id", "sequence_value_item.seq_name"}; !reflect.DeepEqual(missing, want) {
		t.Errorf("MissingColumns = %v, want %v", missing, want)
	}
}
