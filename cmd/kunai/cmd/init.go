package cmd

import (
	"github.com/spf13/cobra"

	"github.com/bianoble/kunai/internal/lock"
	"github.com/bianoble/kunai/internal/logging"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an empty source file",
	Long: `Creates an empty source file at the --source-file path. Refuses to touch a
file that already exists.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := lock.Init(sourceFile); err != nil {
			return err
		}
		logging.Infof("created %s", sourceFile)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
