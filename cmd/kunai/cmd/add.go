package cmd

import (
	"github.com/spf13/cobra"

	"github.com/bianoble/kunai/internal/engine"
	"github.com/bianoble/kunai/internal/lock"
)

var (
	addURL             string
	addScheme          string
	addVersion         string
	addRepoURL         string
	addTagPrefix       string
	addBranch          string
	addShortHashLength int
	addUnpack          bool
	addHash            string
	addPin             bool
)

var addCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Track a new source",
	Long: `Adds a source to the source file. For git schemes the name and initial
version may be omitted; they are inferred from the repository URL and the
newest matching ref. The artifact hash is prefetched unless --hash is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sources, err := loadSources()
		if err != nil {
			return err
		}

		opts := engine.AddOptions{
			URLTemplate:     addURL,
			Scheme:          addScheme,
			Version:         addVersion,
			RepoURL:         addRepoURL,
			TagPrefix:       addTagPrefix,
			Branch:          addBranch,
			ShortHashLength: addShortHashLength,
			Unpack:          addUnpack,
			Hash:            addHash,
			Pinned:          addPin,
		}
		if len(args) == 1 {
			opts.Name = args[0]
		}
		applyAddDefaults(cmd, &opts)

		name, err := newAddEngine().Add(cmd.Context(), sources, opts)
		if err != nil {
			return err
		}

		if err := saveSources(sources); err != nil {
			return err
		}
		cmd.Printf("Added %s %s\n", name, sources[name].Version)
		return nil
	},
}

// applyAddDefaults fills scheme-compatible add defaults from the config file
// for flags the user did not set.
func applyAddDefaults(cmd *cobra.Command, opts *engine.AddOptions) {
	if cfg == nil {
		return
	}
	if cfg.Add.Unpack != nil && !cmd.Flags().Changed("unpack") {
		opts.Unpack = *cfg.Add.Unpack
	}
	if opts.Scheme == lock.SchemeGitBranch &&
		cfg.Add.ShortHashLength > 0 && !cmd.Flags().Changed("short-hash-length") {
		opts.ShortHashLength = cfg.Add.ShortHashLength
	}
	if opts.Scheme == lock.SchemeGitTags &&
		cfg.Add.TagPrefix != "" && !cmd.Flags().Changed("tag-prefix") {
		opts.TagPrefix = cfg.Add.TagPrefix
	}
}

func init() {
	addCmd.Flags().StringVar(&addURL, "url", "", "artifact URL template with a {version} placeholder")
	addCmd.Flags().StringVar(&addScheme, "scheme", lock.SchemeGitTags, "update scheme (git-tags, git-branch, static)")
	addCmd.Flags().StringVar(&addVersion, "version", "", "initial version (required for static)")
	addCmd.Flags().StringVar(&addRepoURL, "repo-url", "", "git repository URL, overriding template inference")
	addCmd.Flags().StringVar(&addTagPrefix, "tag-prefix", "", "only consider tags with this prefix (git-tags)")
	addCmd.Flags().StringVar(&addBranch, "branch", "", "branch to track (git-branch)")
	addCmd.Flags().IntVar(&addShortHashLength, "short-hash-length", 0, "commit hash truncation length (git-branch)")
	addCmd.Flags().BoolVar(&addUnpack, "unpack", false, "unpack the artifact before hashing")
	addCmd.Flags().StringVar(&addHash, "hash", "", "use this hash instead of prefetching")
	addCmd.Flags().BoolVar(&addPin, "pin", false, "create the source pinned")
	_ = addCmd.MarkFlagRequired("url")
	rootCmd.AddCommand(addCmd)
}
