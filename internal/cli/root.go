package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "clinical-notes",
	Short: "Summarize patient-physician interviews with managed cloud services",
	Long: `clinical-notes pipelines a recorded patient-physician interview through a
managed medical transcription service and a hosted generation endpoint to
produce a structured clinical summary with line-level citations.

Every substantive operation is delegated to external services; the pipeline
downloads a sample recording, uploads it to object storage, submits and polls
a diarized transcription job, and renders the generated summary.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(runsCmd)
}
