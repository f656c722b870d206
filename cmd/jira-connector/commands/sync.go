package commands

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var refreshOnly, newOnly bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one tag sync cycle and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		switch {
		case newOnly:
			err = a.connector.SyncNewIssues(ctx)
		case refreshOnly:
			err = a.connector.RefreshIssues(ctx)
		default:
			err = a.connector.PerformTagUpdate(ctx)
		}
		if err != nil {
			return err
		}

		entries, err := a.store.Entries(ctx)
		if err != nil {
			return err
		}
		log.Info().Interface("watermarks", entries).Msg("Tag sync complete")
		return nil
	},
}

func init() {
	syncCmd.Flags().BoolVar(&newOnly, "new-only", false, "only sync issues created since the last run")
	syncCmd.Flags().BoolVar(&refreshOnly, "refresh-only", false, "only refresh the next batch of synced issues")
	syncCmd.MarkFlagsMutuallyExclusive("new-only", "refresh-only")
}
