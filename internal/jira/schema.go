package jira

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

// SQLiteSchema is the part of the Jira schema the connector touches, in
// SQLite form. Tests and local mock databases are built from it.
const SQLiteSchema = `
CREATE TABLE project (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    pkey TEXT NOT NULL UNIQUE
);
CREATE TABLE issuetype (
    id TEXT PRIMARY KEY,
    pname TEXT
);
CREATE TABLE jiraissue (
    id INTEGER PRIMARY KEY,
    issuenum INTEGER NOT NULL,
    project INTEGER NOT NULL,
    summary TEXT,
    timespent INTEGER,
    issuetype TEXT
);
CREATE TABLE cwd_user (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_name TEXT NOT NULL,
    lower_user_name TEXT NOT NULL,
    email_address TEXT,
    lower_email_address TEXT
);
CREATE TABLE worklog (
    id INTEGER PRIMARY KEY,
    issueid INTEGER NOT NULL,
    author TEXT,
    timeworked INTEGER,
    created TEXT,
    worklogbody TEXT
);
CREATE TABLE sequence_value_item (
    seq_name TEXT PRIMARY KEY,
    seq_id INTEGER
);
CREATE TABLE propertyentry (
    id INTEGER PRIMARY KEY,
    entity_name TEXT,
    entity_id INTEGER,
    property_key TEXT
);
CREATE TABLE propertystring (
    id INTEGER PRIMARY KEY,
    propertyvalue TEXT
);
`

// requiredSchema lists every table and column the connector reads or writes.
var requiredSchema = map[string][]string{
	"jiraissue":           {"id", "issuenum", "summary", "timespent", "project", "issuetype"},
	"project":             {"id", "pkey"},
	"issuetype":           {"id", "pname"},
	"cwd_user":            {"user_name", "lower_user_name", "lower_email_address"},
	"worklog":             {"id", "issueid", "author", "timeworked", "created", "worklogbody"},
	"sequence_value_item": {"seq_id", "seq_name"},
	"propertyentry":       {"id", "property_key"},
	"propertystring":      {"id", "propertyvalue"},
}

// HasExpectedSchema reports whether every required table exposes every
// required column. Catalog errors are logged and reported as false.
func (db *DB) HasExpectedSchema(ctx context.Context) bool {
	missing, err := db.MissingColumns(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read Jira database catalog")
		return false
	}
	if len(missing) > 0 {
		log.Error().Strs("missing", missing).Msg("Jira database schema is incompatible")
		return false
	}
	return true
}

// MissingColumns returns the required "table.column" pairs absent from the
// database catalog, sorted.
func (db *DB) MissingColumns(ctx context.Context) ([]string, error) {
	actual, err := db.columns(ctx)
	if err != nil {
		return nil, err
	}

	var missing []string
	for table, cols := range requiredSchema {
		have := actual[strings.ToLower(table)]
		for _, col := range cols {
			if !have[strings.ToLower(col)] {
				missing = append(missing, table+"."+col)
			}
		}
	}
	sort.Strings(missing)
	return missing, nil
}

func (db *DB) columns(ctx context.Context) (map[string]map[string]bool, error) {
	var query string
	switch db.dialect {
	case MySQL:
		query = `SELECT table_name, column_name FROM information_schema.columns WHERE table_schema = DATABASE()`
	case Postgres:
		query = `SELECT table_name, column_name FROM information_schema.columns WHERE table_schema = current_schema()`
	case SQLite:
		query = `SELECT m.name, p.name FROM sqlite_master m JOIN pragma_table_info(m.name) p WHERE m.type = 'table'`
	default:
		return nil, fmt.Errorf("unsupported dialect %q", db.dialect)
	}

	rows, err := db.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query column catalog: %w", err)
	}
	defer rows.Close()

	tables := make(map[string]map[string]bool)
	for rows.Next() {
		var table, column string
		if err := rows.Scan(&table, &column); err != nil {
			return nil, fmt.Errorf("failed to scan column catalog: %w", err)
		}
		table, column = strings.ToLower(table), strings.ToLower(column)
		if tables[table] == nil {
			tables[table] = make(map[string]bool)
		}
		tables[table][column] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate column catalog: %w", err)
	}
	return tables, nil
}
