package jira

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// UserExists reports whether username is a Jira user name, ignoring case.
func (db *DB) UserExists(ctx context.Context, username string) (bool, error) {
	var name string
	err := db.queryRow(ctx,
		`SELECT user_name FROM cwd_user WHERE lower_user_name = ?`,
		strings.ToLower(username)).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up user %q: %w", username, err)
	}
	return true, nil
}

// FindUsernameByEmail resolves an email address to a Jira user name,
// ignoring case.
func (db *DB) FindUsernameByEmail(ctx context.Context, email string) (string, bool, error) {
	var name string
	err := db.queryRow(ctx,
		`SELECT user_name FROM cwd_user WHERE lower_email_address = ?`,
		strings.ToLower(email)).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to look up user by email: %w", err)
	}
	return name, true, nil
}
