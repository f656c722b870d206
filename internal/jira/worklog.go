package jira

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/rs/zerolog/log"
)

const (
	worklogSequenceName = "Worklog"
	timezonePropertyKey = "jira.default.timezone"
	worklogTimeLayout   = "2006-01-02 15:04:05"
)

// Worklog is a new worklog row.
type Worklog struct {
	IssueID    int64
	Author     string
	TimeWorked int64 // seconds
	Created    time.Time
	Body       string
}

// CreateWorklog inserts a worklog under a freshly allocated ID and returns
// that ID. The sequence counter read, the insert and the counter advance
// share one transaction, so a rollback undoes all three.
func (db *DB) CreateWorklog(ctx context.Context, w Worklog) (int64, error) {
	var id int64
	err := db.RunInTransaction(ctx, func(tx *DB) error {
		current, found, err := tx.WorklogSequence(ctx)
		if err != nil {
			return err
		}
		id = tx.nextWorklogID(current, found)

		loc, err := tx.DefaultTimeZone(ctx)
		if err != nil {
			return err
		}

		if _, err := tx.exec(ctx,
			`INSERT INTO worklog (id, issueid, author, timeworked, created, worklogbody) VALUES (?, ?, ?, ?, ?, ?)`,
			id, w.IssueID, w.Author, w.TimeWorked, w.Created.In(loc).Format(worklogTimeLayout), w.Body,
		); err != nil {
			return fmt.Errorf("failed to insert worklog for issue %d: %w", w.IssueID, err)
		}

		return tx.setWorklogSequence(ctx, id, found)
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// nextWorklogID applies the allocation rule: the first ID is the base,
// every following one is the last allocated ID plus the step.
func (db *DB) nextWorklogID(current int64, found bool) int64 {
	if !found {
		return db.cfg.WorklogIDBase
	}
	return current + db.cfg.WorklogIDStep
}

// WorklogSequence returns the last worklog ID minted by the connector.
func (db *DB) WorklogSequence(ctx context.Context) (int64, bool, error) {
	var id int64
	err := db.queryRow(ctx,
		`SELECT seq_id FROM sequence_value_item WHERE seq_name = ?`, worklogSequenceName).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read worklog sequence: %w", err)
	}
	return id, true, nil
}

func (db *DB) setWorklogSequence(ctx context.Context, id int64, exists bool) error {
	var err error
	if exists {
		_, err = db.exec(ctx,
			`UPDATE sequence_value_item SET seq_id = ? WHERE seq_name = ?`, id, worklogSequenceName)
	} else {
		_, err = db.exec(ctx,
			`INSERT INTO sequence_value_item (seq_name, seq_id) VALUES (?, ?)`, worklogSequenceName, id)
	}
	if err != nil {
		return fmt.Errorf("failed to advance worklog sequence to %d: %w", id, err)
	}
	return nil
}

// DefaultTimeZone returns the zone configured in Jira's general settings,
// falling back to the connector's configured zone.
func (db *DB) DefaultTimeZone(ctx context.Context) (*time.Location, error) {
	var value sql.NullString
	err := db.queryRow(ctx, `
SELECT propertystring.propertyvalue
FROM propertyentry
INNER JOIN propertystring ON propertystring.id = propertyentry.id
WHERE propertyentry.property_key = ?`, timezonePropertyKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return db.fallback, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read jira default timezone: %w", err)
	}

	name := strings.TrimSpace(value.String)
	if name == "" {
		return db.fallback, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Warn().Err(err).Str("timezone", name).Msg("Unknown Jira default timezone, using configured timezone")
		return db.fallback, nil
	}
	return loc, nil
}
