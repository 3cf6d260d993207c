package main

import (
	"fmt"
	"io"
	"os"

	"github.com/blockcanvas/indy/internal/config"
	"github.com/blockcanvas/indy/internal/errors"
	"github.com/blockcanvas/indy/internal/logging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// Version information (set by build flags)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	cfgFile string
	verbose bool
	logger  *logrus.Logger
	cfg     *config.Config
	slogger *logging.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		reportError(os.Stderr, err, verbose)
		os.Exit(1)
	}
}

// reportError prints err, with type, severity and context when detailed.
func reportError(w io.Writer, err error, detailed bool) {
	if detailed {
		fmt.Fprintf(w, "Error: %s", errors.Detail(err))
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
}

var rootCmd = &cobra.Command{
	Use:   "indy",
	Short: "Indy - AI editing assistant for block-based pages",
	Long: `Indy edits block-based pages from natural language: it adds, updates
and removes blocks, generates block content against each block's schema and
saves the result to the CMS.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Logs go to stderr so stdout stays clean for mcp and piped output
		logger = logrus.New()
		logger.SetOutput(os.Stderr)
		if verbose {
			logger.SetLevel(logrus.DebugLevel)
		} else {
			logger.SetLevel(logrus.InfoLevel)
		}

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			logger.WithError(err).Warn("Failed to load config, using defaults")
			cfg = config.Default()
		}

		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		slogger, err = logging.NewLogger(logging.DefaultConfig(level, cfg.Logging.Format, cfg.Logging.Directory))
		if err != nil {
			logger.WithError(err).Warn("Failed to open log file, logging to console only")
			slogger, _ = logging.NewLogger(logging.DefaultConfig(level, cfg.Logging.Format, ""))
		}
		if slogger != nil {
			slogger.Install()
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if slogger != nil {
			slogger.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .indy/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.SetVersionTemplate(`Indy {{.Version}}
Build time: ` + BuildTime + `
Git commit: ` + GitCommit + `
`)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(pushCmd)
	rootCmd.AddCommand(summarizeCmd)
	rootCmd.AddCommand(contextCmd)
	rootCmd.AddCommand(configureCmd)
	rootCmd.AddCommand(mcpCmd)
}
