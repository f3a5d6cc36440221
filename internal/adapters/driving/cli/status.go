package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/parchment-labs/extractd/internal/core/services"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show extraction status per file",
	Long:  `Lists every registered file with its extraction state and retry count.`,
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output status as JSON")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	a, err := buildApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	reporter := services.NewStatusReporter(a.fileStore, a.contentStore, a.taskStore, a.index, nil)
	statuses, err := reporter.GetProcessingStatus(cmd.Context())
	if err != nil {
		return fmt.Errorf("fetching status: %w", err)
	}

	if statusJSON {
		data, err := json.MarshalIndent(statuses, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal status: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(statuses) == 0 {
		cmd.Println("No files registered.")
		return nil
	}

	for _, st := range statuses {
		line := fmt.Sprintf("  %-36s  %-10s  retries=%d  %s", st.FileID, st.Status, st.RetryCount, st.FileName)
		if st.Error != nil {
			line += fmt.Sprintf("  (%s)", *st.Error)
		}
		cmd.Println(line)
	}
	return nil
}
