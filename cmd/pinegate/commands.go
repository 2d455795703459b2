package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/yungbote/pinegate-backend/internal/app"
	"github.com/yungbote/pinegate-backend/internal/jobs/pipeline/daily_village"
	"github.com/yungbote/pinegate-backend/internal/jobs/pipeline/weekly_village"
	"github.com/yungbote/pinegate-backend/internal/platform/envutil"
	"github.com/yungbote/pinegate-backend/internal/platform/logger"
)

func newLogger() (*logger.Logger, error) {
	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return log, nil
}

// openApp builds the full application with a context cancelled on SIGINT or SIGTERM.
func openApp() (context.Context, *app.App, func(), error) {
	log, err := newLogger()
	if err != nil {
		return nil, nil, nil, err
	}
	cfg, err := app.LoadConfig(log)
	if err != nil {
		log.Sync()
		return nil, nil, nil, err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	a, err := app.New(ctx, log, cfg)
	if err != nil {
		stop()
		log.Sync()
		return nil, nil, nil, err
	}
	return ctx, a, func() {
		stop()
		a.Close()
	}, nil
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, a, cleanup, err := openApp()
			if err != nil {
				return err
			}
			defer cleanup()
			return a.Serve(ctx)
		},
	}
}

func newWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the daily and weekly schedules",
		Long:  "Registers the cron workflows on Temporal when TEMPORAL_ADDRESS is set, otherwise runs them in-process.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, a, cleanup, err := openApp()
			if err != nil {
				return err
			}
			defer cleanup()
			return a.Worker(ctx)
		},
	}
}

var pipelineAliases = map[string]string{
	"weekly": weekly_village.Type,
	"daily":  daily_village.Type,
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "run weekly|daily",
		Short:     "Run one pipeline now and wait for it",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"weekly", "daily"},
		RunE: func(cmd *cobra.Command, args []string) error {
			pipeline, ok := pipelineAliases[strings.ToLower(args[0])]
			if !ok {
				return fmt.Errorf("unknown pipeline %q (want weekly or daily)", args[0])
			}
			ctx, a, cleanup, err := openApp()
			if err != nil {
				return err
			}
			defer cleanup()

			run, err := a.RunOnce(ctx, pipeline)
			if run != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "run %s: %s", run.ID, run.Status)
				if run.Stage != "" {
					fmt.Fprintf(cmd.OutOrStdout(), " (stage %s)", run.Stage)
				}
				fmt.Fprintln(cmd.OutOrStdout())
			}
			return err
		},
	}
}

func newStoryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "story",
		Short: "Print the latest village chapters",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger()
			if err != nil {
				return err
			}
			defer log.Sync()

			story, closeDB, err := app.OpenStory(log)
			if err != nil {
				return err
			}
			defer closeDB()

			chapters, err := story.Latest(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(chapters) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "The village has no chapters yet.")
				return nil
			}

			renderer, err := glamour.NewTermRenderer(
				glamour.WithAutoStyle(),
				glamour.WithWordWrap(80),
			)
			if err != nil {
				return fmt.Errorf("init renderer: %w", err)
			}
			// Oldest first so the story reads top to bottom.
			for i := len(chapters) - 1; i >= 0; i-- {
				ch := chapters[i]
				md := ch.Summary
				if ch.NextWeekPrompt != "" {
					md += "\n\n> " + ch.NextWeekPrompt
				}
				out, err := renderer.Render(md)
				if err != nil {
					return fmt.Errorf("render chapter %s: %w", ch.ID, err)
				}
				fmt.Fprint(cmd.OutOrStdout(), out)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 1, "number of chapters to print")
	return cmd
}
