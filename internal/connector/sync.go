package connector

import (
	"context"
	"fmt"

	"jira-connector/internal/jira"
	"jira-connector/internal/tagapi"

	"github.com/rs/zerolog/log"
)

const (
	LastSyncedIssueKey    = "last-synced-issue-id"
	LastRefreshedIssueKey = "last-refreshed-issue-id"
)

// cursor walks the issue table forward from a persisted watermark.
type cursor struct {
	name string
	key  string
	// drain keeps fetching batches until no issues remain. Without it a
	// run handles one batch and an empty batch rewinds the watermark.
	drain bool
}

var (
	newIssues     = cursor{name: "new issue sync", key: LastSyncedIssueKey, drain: true}
	refreshIssues = cursor{name: "tag refresh", key: LastRefreshedIssueKey}
)

// SyncNewIssues upserts tags for every issue created since the last run.
func (c *JiraConnector) SyncNewIssues(ctx context.Context) error {
	return c.advance(ctx, newIssues, c.cfg.UploadBatchSize)
}

// RefreshIssues re-upserts the next slice of already synced issues.
func (c *JiraConnector) RefreshIssues(ctx context.Context) error {
	size, err := c.TagRefreshBatchSize(ctx)
	if err != nil {
		return err
	}
	return c.advance(ctx, refreshIssues, size)
}

// TagRefreshBatchSize sizes the next refresh run from the current issue count.
func (c *JiraConnector) TagRefreshBatchSize(ctx context.Context) (int, error) {
	count, err := c.db.IssueCount(ctx, c.cfg.ProjectKeys)
	if err != nil {
		return 0, err
	}
	return RefreshBatchSize(count, c.cfg.RefreshIntervalMinutes, c.cfg.UploadBatchSize), nil
}

func (c *JiraConnector) advance(ctx context.Context, cur cursor, batchSize int) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		watermark, _, err := c.store.GetInt(ctx, cur.key)
		if err != nil {
			return fmt.Errorf("%s: %w", cur.name, err)
		}

		issues, err := c.db.FindIssuesAfter(ctx, watermark, batchSize, c.cfg.ProjectKeys)
		if err != nil {
			return fmt.Errorf("%s: %w", cur.name, err)
		}

		if len(issues) == 0 {
			if cur.drain {
				log.Debug().Str("job", cur.name).Int64("watermark", watermark).Msg("No new issues to sync")
				return nil
			}
			if err := c.store.PutInt(ctx, cur.key, 0); err != nil {
				return fmt.Errorf("%s: %w", cur.name, err)
			}
			log.Info().Str("job", cur.name).Msg("Completed a full sweep of issues, starting over")
			return nil
		}

		requests := make([]tagapi.UpsertTagRequest, 0, len(issues))
		keys := make([]string, 0, len(issues))
		for _, issue := range issues {
			requests = append(requests, c.tagRequest(issue))
			keys = append(keys, issue.Key())
		}

		if err := c.tags.UpsertBatch(ctx, requests); err != nil {
			return fmt.Errorf("%s: failed to upsert %d tags after issue %d: %w", cur.name, len(requests), watermark, err)
		}

		last := issues[len(issues)-1].ID
		if err := c.store.PutInt(ctx, cur.key, last); err != nil {
			return fmt.Errorf("%s: %w", cur.name, err)
		}

		log.Info().
			Str("job", cur.name).
			Int("count", len(issues)).
			Int64("watermark", last).
			Msgf("Upserted tags: %s", ellipsize(keys))

		if !cur.drain {
			return nil
		}
	}
}

func (c *JiraConnector) tagRequest(issue jira.Issue) tagapi.UpsertTagRequest {
	key := issue.Key()
	meta := map[string]string{"Project": issue.ProjectKey}
	if issue.IssueType != "" {
		meta["Issue Type"] = issue.IssueType
	}
	return tagapi.UpsertTagRequest{
		Name:               key,
		Description:        issue.Summary,
		Path:               c.cfg.TagUpsertPath,
		AdditionalKeywords: []string{key},
		ExternalID:         key,
		MetaData:           meta,
	}
}
