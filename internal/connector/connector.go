// Package connector keeps the time-tracking service's tags in step with
// Jira issues and records posted time as Jira worklogs.
package connector

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"text/template"

	"jira-connector/internal/jira"
	"jira-connector/internal/tagapi"
)

// MissingIssuePolicy decides what happens when a posted tag has no issue.
type MissingIssuePolicy string

const (
	// PolicyStrict fails the whole posting.
	PolicyStrict MissingIssuePolicy = "strict"
	// PolicyLenient skips the tag and posts to the issues that exist.
	PolicyLenient MissingIssuePolicy = "lenient"
)

const (
	DefaultTagUpsertPath   = "/Jira/"
	DefaultUploadBatchSize = 200
)

// Config holds the connector's behaviour settings.
type Config struct {
	TagUpsertPath          string
	UploadBatchSize        int
	ProjectKeys            []string
	CallerKey              string
	RefreshIntervalMinutes int
	MissingIssuePolicy     MissingIssuePolicy
	DeleteOrphanTags       bool
}

// Connector is what the scheduler and the webhook server drive.
type Connector interface {
	// PerformTagUpdate syncs new issues, then refreshes one batch of
	// already synced issues.
	PerformTagUpdate(ctx context.Context) error
	SyncNewIssues(ctx context.Context) error
	RefreshIssues(ctx context.Context) error
	PostTime(ctx context.Context, tg TimeGroup) PostResult
	Healthy(ctx context.Context) bool
}

// WatermarkStore persists the sync cursors.
type WatermarkStore interface {
	GetInt(ctx context.Context, key string) (int64, bool, error)
	PutInt(ctx context.Context, key string, value int64) error
}

// JiraConnector implements Connector against a Jira database.
type JiraConnector struct {
	cfg   Config
	db    *jira.DB
	store WatermarkStore
	tags  tagapi.Client
	body  *template.Template

	// postMu serializes postings so worklog ID allocation never races.
	postMu sync.Mutex
}

var _ Connector = (*JiraConnector)(nil)

// New wires a connector. The database is expected to have passed the
// schema check already.
func New(cfg Config, db *jira.DB, store WatermarkStore, tags tagapi.Client) (*JiraConnector, error) {
	if cfg.TagUpsertPath == "" {
		cfg.TagUpsertPath = DefaultTagUpsertPath
	}
	if cfg.UploadBatchSize <= 0 {
		cfg.UploadBatchSize = DefaultUploadBatchSize
	}
	if cfg.RefreshIntervalMinutes <= 0 {
		cfg.RefreshIntervalMinutes = 5
	}
	switch cfg.MissingIssuePolicy {
	case "":
		cfg.MissingIssuePolicy = PolicyStrict
	case PolicyStrict, PolicyLenient:
	default:
		return nil, fmt.Errorf("unknown missing issue policy %q", cfg.MissingIssuePolicy)
	}
	if db == nil || store == nil || tags == nil {
		return nil, errors.New("connector requires a database, a store and a tag client")
	}

	body, err := newBodyTemplate()
	if err != nil {
		return nil, err
	}

	return &JiraConnector{
		cfg:   cfg,
		db:    db,
		store: store,
		tags:  tags,
		body:  body,
	}, nil
}

func (c *JiraConnector) PerformTagUpdate(ctx context.Context) error {
	return errors.Join(c.SyncNewIssues(ctx), c.RefreshIssues(ctx))
}

func (c *JiraConnector) Healthy(ctx context.Context) bool {
	return c.db.Ping(ctx)
}

// inProjectFilter reports whether projectKey passes the configured filter.
func (c *JiraConnector) inProjectFilter(projectKey string) bool {
	if len(c.cfg.ProjectKeys) == 0 {
		return true
	}
	for _, k := range c.cfg.ProjectKeys {
		if k == projectKey {
			return true
		}
	}
	return false
}

// ellipsize joins up to five keys, or the first and last of longer lists.
func ellipsize(keys []string) string {
	if len(keys) < 6 {
		return strings.Join(keys, ", ")
	}
	return keys[0] + ", ... , " + keys[len(keys)-1]
}
