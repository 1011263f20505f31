package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bianoble/kunai/internal/config"
	"github.com/bianoble/kunai/internal/logging"
)

// Build-time variables set via -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Global flags.
var (
	configPath string
	sourceFile string
	logLevel   string
	noColor    bool
)

// cfg is the loaded config file, populated before any subcommand runs.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "kunai",
	Short: "Pin external build artifacts by version and content hash",
	Long: `kunai tracks external build artifacts in a declarative source file. Each
source records a version, a content hash, and an update scheme (git tags,
a git branch, or a static pin). The update command reconciles every source
against its upstream, refusing to record a version without its hash.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}

		// Config values apply only where the flag was left at its default.
		if cfg.SourceFile != "" && !cmd.Flags().Changed("source-file") {
			sourceFile = cfg.SourceFile
		}
		if cfg.LogLevel != "" && !cmd.Flags().Changed("log-level") {
			logLevel = cfg.LogLevel
		}

		level, err := logging.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		logging.Configure(os.Stderr, level, noColor)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("kunai %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "path to config file")
	rootCmd.PersistentFlags().StringVar(&sourceFile, "source-file", "kunai.lock", "path to the source file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log verbosity (off, error, warn, info, debug, trace)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return nil
}
