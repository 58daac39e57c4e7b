// Package cli provides the Cobra command structure for bigtext.
package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/kk-code-lab/bigtext/internal/config"
	"github.com/kk-code-lab/bigtext/internal/logging"
)

// BuildInfo holds build-time version information.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// env is what the root command resolves before a subcommand runs.
type env struct {
	configPath string
	debug      bool
	color      string

	cfg    *config.Config
	logger *log.Logger
	stdout io.Writer
	stderr io.Writer
}

// NewRootCommand creates the root bigtext command with all subcommands.
func NewRootCommand(info BuildInfo) *cobra.Command {
	e := &env{}

	rootCmd := &cobra.Command{
		Use:   "bigtext",
		Short: "Scan and search very large text files",
		Long: `bigtext opens text files of any size without reading them whole.

Large files are memory-mapped and indexed in the background; searches slide a
bounded window over the text so memory use stays flat however big the file is.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return e.setup(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVar(&e.debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&e.configPath, "config", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&e.color, "color", "auto", "colorize output: auto, always, never")
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	})

	rootCmd.AddCommand(newScanCommand(e))
	rootCmd.AddCommand(newFindCommand(e))
	rootCmd.AddCommand(newVersionCommand(info))

	return rootCmd
}

func (e *env) setup(cmd *cobra.Command) error {
	e.stdout = cmd.OutOrStdout()
	e.stderr = cmd.ErrOrStderr()

	switch e.color {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("%w: --color must be auto, always or never, got %q", ErrUsage, e.color)
	}

	result, err := config.Load(config.LoadOptions{ExplicitPath: e.configPath})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	e.cfg = result.Config

	level := e.cfg.Log.Level
	if e.debug {
		level = "debug"
	}
	e.logger = logging.NewWithWriter(e.stderr, level)
	logging.SetDefault(e.logger)
	if result.LoadedFrom != "" {
		e.logger.Debug("loaded config", logging.FieldPath, result.LoadedFrom)
	}
	return nil
}
