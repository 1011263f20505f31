package cmd

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/bianoble/kunai/internal/engine"
)

var (
	updateRefetch     bool
	updateForce       bool
	updatePin         bool
	updateUnpin       bool
	updateShowUpdated bool
	updateJSON        bool
)

var updateCmd = &cobra.Command{
	Use:   "update [name...]",
	Short: "Reconcile sources against their upstreams",
	Long: `Checks every source (or only the named ones) for a newer version, fetches
the hash of each new artifact, and rewrites the source file. A version is
never recorded without its hash. Pinned sources are skipped unless --force
is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sources, err := loadSources()
		if err != nil {
			return err
		}

		opts := engine.UpdateOptions{
			Names:   args,
			Refetch: updateRefetch,
			Force:   updateForce,
			Pin:     updatePin,
			Unpin:   updateUnpin,
		}

		result, err := newUpdateEngine().Update(cmd.Context(), sources, opts)
		if err != nil {
			return err
		}

		if result.Changed {
			if err := saveSources(sources); err != nil {
				return err
			}
		}

		printUpdateSummary(cmd, result)

		if updateJSON {
			out, err := json.MarshalIndent(result.Updated, "", "  ")
			if err != nil {
				return err
			}
			cmd.Println(string(out))
		} else if updateShowUpdated {
			for _, name := range sortedDiffNames(result.Updated) {
				diff := result.Updated[name]
				cmd.Printf("%s: %s -> %s\n", name, diff.Old, diff.New)
			}
		}

		if len(result.Errors) > 0 {
			return fmt.Errorf("%d source(s) failed", len(result.Errors))
		}
		return nil
	},
}

func printUpdateSummary(cmd *cobra.Command, result *engine.UpdateResult) {
	cmd.Printf("%d updated, %d up to date, %d skipped, %d failed\n",
		result.UpdatedCount(), result.UpToDate, result.Skipped, len(result.Errors))
}

func sortedDiffNames(diffs map[string]engine.VersionDiff) []string {
	names := make([]string, 0, len(diffs))
	for name := range diffs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	updateCmd.Flags().BoolVar(&updateRefetch, "refetch", false, "re-resolve and re-hash even apparently current sources")
	updateCmd.Flags().BoolVar(&updateForce, "force", false, "examine pinned sources too")
	updateCmd.Flags().BoolVar(&updatePin, "pin", false, "pin the selected sources instead of updating")
	updateCmd.Flags().BoolVar(&updateUnpin, "unpin", false, "unpin the selected sources instead of updating")
	updateCmd.Flags().BoolVar(&updateShowUpdated, "show-updated", false, "print each version change")
	updateCmd.Flags().BoolVar(&updateJSON, "json", false, "print version changes as JSON")
	updateCmd.MarkFlagsMutuallyExclusive("pin", "unpin")
	rootCmd.AddCommand(updateCmd)
}
