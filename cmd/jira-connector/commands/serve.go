package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"jira-connector/internal/scheduler"
	"jira-connector/internal/server"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook server and the periodic tag sync",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := scheduler.New(a.connector, cfg.Scheduler)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return server.New(cfg.HTTPAddr, a.connector).Run(gctx)
	})

	g.Go(func() error {
		sched.Start()
		<-gctx.Done()

		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		sched.Stop(stopCtx)
		return nil
	})

	err = g.Wait()
	log.Info().Msg("Jira connector shut down")
	return err
}
