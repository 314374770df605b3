package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gattil/sup-hcls-generate-clinical-notes-with-ai/internal/config"
	"github.com/gattil/sup-hcls-generate-clinical-notes-with-ai/internal/fetch"
	"github.com/gattil/sup-hcls-generate-clinical-notes-with-ai/internal/generate"
	"github.com/gattil/sup-hcls-generate-clinical-notes-with-ai/internal/logger"
	"github.com/gattil/sup-hcls-generate-clinical-notes-with-ai/internal/pipeline"
	"github.com/gattil/sup-hcls-generate-clinical-notes-with-ai/internal/render"
	"github.com/gattil/sup-hcls-generate-clinical-notes-with-ai/internal/runstore"
	"github.com/gattil/sup-hcls-generate-clinical-notes-with-ai/internal/storage"
	"github.com/gattil/sup-hcls-generate-clinical-notes-with-ai/internal/transcribe"
)

var streamFlag bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the interview-to-summary pipeline once",
	Long: `Runs the full pipeline once: download the sample interview, upload it to
object storage, transcribe it with speaker diarization, and generate a
structured clinical summary.

With --stream (the default) the summary is rendered incrementally as the
generation endpoint emits fragments; --stream=false makes a single blocking
call instead.`,
	RunE: runOnce,
}

func init() {
	runCmd.Flags().BoolVar(&streamFlag, "stream", true, "consume the generation endpoint in streaming mode")
}

func runOnce(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	logger.Init("clinical-notes")

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info(ctx, "received shutdown signal", logger.Fields{"signal": sig.String()})
		cancel()
	}()

	p, cleanup, err := newPipeline(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	if _, err := p.Run(ctx, streamFlag); err != nil {
		return fmt.Errorf("pipeline run failed: %w", err)
	}
	return nil
}

// newPipeline wires the pipeline's external collaborators from configuration.
func newPipeline(ctx context.Context, cfg config.Config) (*pipeline.Pipeline, func(), error) {
	store, err := storage.NewClient(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	var runs runstore.Store = runstore.Noop{}
	if cfg.DatabaseURL != "" {
		client, err := runstore.NewClient(cfg.DatabaseURL)
		if err != nil {
			store.Close()
			return nil, nil, fmt.Errorf("failed to create run store: %w", err)
		}
		runs = client
	}

	transcribeClient := transcribe.NewClient(cfg.TranscribeAPIURL, cfg.TranscribeSigningKey, cfg.TranscribeIssuer, cfg.TranscribeTokenTTL)
	poller := transcribe.NewPoller(transcribeClient, transcribe.PollerConfig{
		Interval:    cfg.PollInterval,
		MaxInterval: cfg.PollMaxInterval,
		Multiplier:  cfg.PollMultiplier,
		MaxWait:     cfg.PollMaxWait,
	})
	generator := generate.NewClient(cfg.GenerateAPIURL, cfg.GenerateAPIKey)

	p := pipeline.New(
		cfg,
		fetch.NewFetcher(),
		store,
		transcribeClient,
		poller,
		generator,
		runs,
		render.New(os.Stdout),
	)

	cleanup := func() {
		if err := runs.Close(); err != nil {
			logger.Error(ctx, "failed to close run store", err)
		}
		if err := store.Close(); err != nil {
			logger.Error(ctx, "failed to close storage client", err)
		}
	}
	return p, cleanup, nil
}
