package cmd

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/vietdv277/bucketinv/internal/store"
	"github.com/vietdv277/bucketinv/internal/ui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show inventory progress per bucket",
	Long: `Display the manifest of every bucket found in the output directory:
its status, committed chunk count, record count and last error.

Examples:
  bucketinv status
  bucketinv status -o /data/inventory`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	manifests, err := store.NewManifestStore(afero.NewOsFs(), cfg.OutputDir).List()
	if err != nil {
		return fmt.Errorf("failed to read manifests: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(manifests) == 0 {
		fmt.Fprintf(out, "No inventory found in %s\n", ui.MutedStyle.Render(cfg.OutputDir))
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Start one with:")
		fmt.Fprintf(out, "  bucketinv run -o %s\n", cfg.OutputDir)
		return nil
	}

	ui.PrintManifestTable(out, manifests)
	return nil
}
