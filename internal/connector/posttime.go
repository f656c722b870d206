package connector

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"jira-connector/internal/jira"

	"github.com/rs/zerolog/log"
)

// missingIssuesError aborts a strict posting.
type missingIssuesError struct {
	tags []string
}

func (e *missingIssuesError) Error() string {
	return "Can't find Jira issue for tags: " + strings.Join(e.tags, ", ")
}

// PostTime records a posted time group as worklogs on the matching issues.
func (c *JiraConnector) PostTime(ctx context.Context, tg TimeGroup) PostResult {
	log.Info().Str("group", tg.GroupID).Msg("Posted time received")

	if c.cfg.CallerKey != "" && c.cfg.CallerKey != tg.CallerKey {
		return permanentFailure("Invalid caller key in posted time webhook call", nil)
	}

	if len(tg.Tags) == 0 {
		return success("Time group has no tags. There is nothing to post to Jira.")
	}

	relevant := c.relevantTags(tg.Tags)
	if len(relevant) == 0 {
		names := make([]string, 0, len(tg.Tags))
		for _, t := range tg.Tags {
			names = append(names, t.Name)
		}
		return success("There is nothing to post to Jira. The time group has no Jira tags or it contains tags " +
			"that don't match the configured project keys filter. Tags were: " + strings.Join(names, ", "))
	}

	start, ok, err := StartTime(tg)
	if err != nil {
		return permanentFailure("Time group has an invalid activity hour", err)
	}
	if !ok {
		return permanentFailure("Cannot post time group with no time rows", nil)
	}

	if err := validateDuration(tg); err != nil {
		return permanentFailure("Time group has an invalid duration", err)
	}

	author, ok, err := c.findUser(ctx, tg.User)
	if err != nil {
		log.Warn().Err(err).Str("group", tg.GroupID).Msg("Failed to resolve Jira user")
		return transientFailure("There was an error looking up the user in the Jira database", err)
	}
	if !ok {
		return permanentFailure("User does not exist in Jira", nil)
	}

	body, err := c.renderBody(tg)
	if err != nil {
		return permanentFailure("Cannot render worklog for time group", err)
	}

	worked := TagDurationSecs(tg, len(relevant))

	c.postMu.Lock()
	defer c.postMu.Unlock()

	var (
		missing []string
		posted  []string
	)
	err = c.db.RunInTransaction(ctx, func(tx *jira.DB) error {
		missing, posted = nil, nil
		for _, tag := range relevant {
			issue, found, err := tx.FindIssueByTagName(ctx, tag.Name)
			if err != nil {
				return err
			}
			if !found {
				missing = append(missing, tag.Name)
				continue
			}
			if len(missing) > 0 && c.cfg.MissingIssuePolicy == PolicyStrict {
				continue
			}

			if err := tx.UpdateIssueTimeSpent(ctx, issue.ID, issue.TimeSpent+worked); err != nil {
				return err
			}
			id, err := tx.CreateWorklog(ctx, jira.Worklog{
				IssueID:    issue.ID,
				Author:     author,
				TimeWorked: worked,
				Created:    start,
				Body:       body,
			})
			if err != nil {
				return err
			}
			posted = append(posted, issue.Key())
			log.Info().Str("group", tg.GroupID).Str("issue", issue.Key()).Int64("worklog", id).Int64("secs", worked).Msg("Posted time to Jira issue")
		}

		if len(missing) > 0 && c.cfg.MissingIssuePolicy == PolicyStrict {
			return &missingIssuesError{tags: missing}
		}
		return nil
	})

	var missingErr *missingIssuesError
	switch {
	case errors.As(err, &missingErr):
		log.Warn().Str("group", tg.GroupID).Strs("tags", missingErr.tags).Msg("Can't post time to Jira, issues not found")
		c.deleteOrphanTags(ctx, missingErr.tags)
		return permanentFailure(missingErr.Error(), err)
	case err != nil:
		log.Warn().Err(err).Str("group", tg.GroupID).Msg("There was an error posting time to the Jira database")
		return transientFailure("There was an error posting time to the Jira database", err)
	}

	if len(missing) > 0 {
		log.Warn().Str("group", tg.GroupID).Strs("tags", missing).Msg("Skipped tags without a Jira issue")
		c.deleteOrphanTags(ctx, missing)
	}
	if len(posted) == 0 {
		return success("No Jira issues found for tags: " + strings.Join(missing, ", "))
	}
	return success(fmt.Sprintf("Posted %s to %s", time.Duration(worked)*time.Second, strings.Join(posted, ", ")))
}

// relevantTags keeps tags this connector created whose names parse as
// issue keys inside the project filter. The result is deduplicated and
// sorted by name so postings touch issues in a stable order.
func (c *JiraConnector) relevantTags(tags []Tag) []Tag {
	seen := make(map[string]bool, len(tags))
	var out []Tag
	for _, tag := range tags {
		if seen[tag.Name] || !c.createdByConnector(tag) {
			continue
		}
		ref, ok := jira.ParseTagRef(tag.Name)
		if !ok || !c.inProjectFilter(ref.ProjectKey) {
			continue
		}
		seen[tag.Name] = true
		out = append(out, tag)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// createdByConnector matches "<upsert path><name>" and the older bare
// "Jira" style path.
func (c *JiraConnector) createdByConnector(tag Tag) bool {
	return tag.Path == c.cfg.TagUpsertPath+tag.Name ||
		tag.Path == strings.Trim(c.cfg.TagUpsertPath, "/")
}

// findUser resolves the Jira user name of the person who posted the time.
// A non-empty external ID is tried as a user name, then as an email
// address when it looks like one.
func (c *JiraConnector) findUser(ctx context.Context, u User) (string, bool, error) {
	if u.ExternalID == "" {
		if u.Email == "" {
			return "", false, nil
		}
		return c.db.FindUsernameByEmail(ctx, u.Email)
	}

	exists, err := c.db.UserExists(ctx, u.ExternalID)
	if err != nil {
		return "", false, err
	}
	if exists {
		return u.ExternalID, true, nil
	}

	if looksLikeEmail(u.ExternalID) {
		return c.db.FindUsernameByEmail(ctx, u.ExternalID)
	}
	return "", false, nil
}

func looksLikeEmail(s string) bool {
	local, domain, ok := strings.Cut(s, "@")
	return ok && local != "" && domain != "" && !strings.Contains(domain, "@")
}

func (c *JiraConnector) deleteOrphanTags(ctx context.Context, names []string) {
	if !c.cfg.DeleteOrphanTags {
		return
	}
	for _, name := range names {
		if err := c.tags.Delete(ctx, name); err != nil {
			log.Warn().Err(err).Str("tag", name).Msg("Failed to delete tag without a Jira issue")
			continue
		}
		log.Info().Str("tag", name).Msg("Deleted tag without a Jira issue")
	}
}
