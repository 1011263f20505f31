package cmd

import (
	"github.com/spf13/cobra"

	"github.com/bianoble/kunai/internal/engine"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <name>...",
	Short: "Stop tracking sources",
	Long: `Removes the named sources from the source file. If any name is unknown,
nothing is removed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sources, err := loadSources()
		if err != nil {
			return err
		}

		if err := engine.Delete(sources, args); err != nil {
			return err
		}

		return saveSources(sources)
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
