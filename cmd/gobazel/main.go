// Command gobazel is the CLI entrypoint: it wraps the Option Processor's
// discovery/layering pipeline with a cobra-based command surface for
// usage text and subcommand routing, the way codenerd wraps its own
// internal pipelines with a cobra root command.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	verbose bool
	logger  *zap.Logger
)

// rootCmd intentionally disables cobra's own flag parsing: the startup
// flags preceding the command name follow the rc-then-argv pairwise walk
// of spec §4.3, which cobra's flag.FlagSet-based parser cannot express.
// cobra here supplies only usage text and top-level dispatch; real option
// processing happens in (*options).Complete via optionprocessor.Processor,
// which reads os.Args directly.
var rootCmd = &cobra.Command{
	Use:                "gobazel",
	Short:              "gobazel orchestrates analysis and option processing for a target graph",
	SilenceUsage:       true,
	SilenceErrors:      true,
	DisableFlagParsing: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		return err
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		opt := newOptions()
		if err := opt.Validate(); err != nil {
			return err
		}
		if err := opt.Complete(); err != nil {
			return err
		}
		return opt.Run()
	},
}

func init() {
	for _, arg := range os.Args[1:] {
		if arg == "--verbose" || arg == "-v" {
			verbose = true
			break
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		code := exitCodeFor(err)
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if logger != nil {
			_ = logger.Sync()
		}
		os.Exit(code)
	}
	if logger != nil {
		_ = logger.Sync()
	}
}
