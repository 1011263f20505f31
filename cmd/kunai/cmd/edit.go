package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bianoble/kunai/internal/engine"
)

var editCmd = &cobra.Command{
	Use:   "edit <name> <key> <value>",
	Short: "Change one field of a tracked source",
	Long: fmt.Sprintf(`Edits a single field of a source in place. Editable keys: %s.

Editing a field that determines the artifact URL does not refetch the hash;
a follow-up 'kunai update --refetch <name>' is suggested when needed.`,
		editKeyList()),
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		sources, err := loadSources()
		if err != nil {
			return err
		}

		name, key, value := args[0], args[1], args[2]
		hashAffecting, err := engine.Edit(sources, name, engine.EditKey(key), value)
		if err != nil {
			return err
		}

		if err := saveSources(sources); err != nil {
			return err
		}

		if hashAffecting {
			cmd.Printf("The stored hash may no longer match; consider running `kunai update --refetch %s`\n", name)
		}
		return nil
	},
}

func editKeyList() string {
	keys := engine.EditKeys()
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = string(k)
	}
	return strings.Join(parts, ", ")
}

func init() {
	rootCmd.AddCommand(editCmd)
}
