package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gattil/sup-hcls-generate-clinical-notes-with-ai/internal/config"
	"github.com/gattil/sup-hcls-generate-clinical-notes-with-ai/internal/logger"
	"github.com/gattil/sup-hcls-generate-clinical-notes-with-ai/internal/storage"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List pipeline run artifacts in object storage",
	RunE:  listRuns,
}

func listRuns(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	logger.Init("clinical-notes")

	ctx := cmd.Context()
	store, err := storage.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("failed to create storage client: %w", err)
	}
	defer store.Close()

	keys, err := store.ListPrefix(ctx, cfg.GCSBucket, "runs/")
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(keys) == 0 {
		fmt.Println("no run artifacts found")
		return nil
	}
	for _, key := range keys {
		fmt.Println(storage.URI(cfg.GCSBucket, key))
	}
	return nil
}
