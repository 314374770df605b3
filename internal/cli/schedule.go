package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/gattil/sup-hcls-generate-clinical-notes-with-ai/internal/config"
	"github.com/gattil/sup-hcls-generate-clinical-notes-with-ai/internal/logger"
)

var cronSpec string

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the pipeline on a cron schedule",
	Long: `Keeps the process alive and runs the pipeline on the given cron expression,
for periodic batch re-summarization. Runs use blocking generation mode since
no console is watching the stream.`,
	RunE: runSchedule,
}

func init() {
	scheduleCmd.Flags().StringVar(&cronSpec, "cron", "0 2 * * *", "cron expression for pipeline runs")
}

func runSchedule(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	logger.Init("clinical-notes")

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	p, cleanup, err := newPipeline(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cronSpec, func() {
		if _, err := p.Run(ctx, false); err != nil {
			logger.Error(ctx, "scheduled pipeline run failed", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", cronSpec, err)
	}

	logger.Info(ctx, "scheduler started", logger.Fields{
		"cron": cronSpec,
	})
	scheduler.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info(ctx, "received shutdown signal", logger.Fields{"signal": sig.String()})
	case <-ctx.Done():
	}

	stopCtx := scheduler.Stop()
	<-stopCtx.Done()
	logger.Info(ctx, "scheduler shutdown complete")
	return nil
}
