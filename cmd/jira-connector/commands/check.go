package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"jira-connector/internal/jira"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the Jira database is reachable and has the expected schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, err := jira.Open(ctx, cfg.Jira)
		if err != nil {
			return err
		}
		defer db.Close()

		return runCheck(ctx, cmd.OutOrStdout(), db, jira.Describe(cfg.Jira), cfg.Connector.ProjectKeys)
	},
}

func runCheck(ctx context.Context, out io.Writer, db *jira.DB, target string, projectKeys []string) error {
	fmt.Fprintf(out, "Jira database: %s (%s)\n", target, db.Dialect())

	missing, err := db.MissingColumns(ctx)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		for _, col := range missing {
			fmt.Fprintf(out, "  missing: %s\n", col)
		}
		return errors.New("jira database schema is not compatible with this connector")
	}

	count, err := db.IssueCount(ctx, projectKeys)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Schema OK, %d issues visible to the connector\n", count)
	return nil
}
