package commands

import (
	"context"
	"errors"
	"fmt"

	"jira-connector/internal/connector"
	"jira-connector/internal/jira"
	"jira-connector/internal/store"
	"jira-connector/internal/tagapi"

	"github.com/rs/zerolog/log"
)

// app holds the wired components for one command run.
type app struct {
	db        *jira.DB
	store     *store.Store
	connector *connector.JiraConnector
}

// openApp connects to Jira, refuses to continue on an incompatible schema,
// and wires the connector.
func openApp(ctx context.Context) (*app, error) {
	db, err := jira.Open(ctx, cfg.Jira)
	if err != nil {
		return nil, err
	}

	if !db.HasExpectedSchema(ctx) {
		_ = db.Close()
		return nil, errors.New("jira database schema is not compatible with this connector")
	}

	st, err := store.Open(cfg.StorePath)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	conn, err := connector.New(cfg.Connector, db, st, tagapi.NewClient(cfg.TagAPI))
	if err != nil {
		_ = st.Close()
		_ = db.Close()
		return nil, fmt.Errorf("failed to create connector: %w", err)
	}

	log.Info().
		Str("jira", jira.Describe(cfg.Jira)).
		Str("store", st.Path()).
		Strs("projects", cfg.Connector.ProjectKeys).
		Str("missingIssuePolicy", string(cfg.Connector.MissingIssuePolicy)).
		Msg("Connector ready")

	return &app{db: db, store: st, connector: conn}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close connector store")
	}
	if err := a.db.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close Jira database")
	}
}
