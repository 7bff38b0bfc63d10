// Package cli implements the walletvet command-line interface.
//
// This package uses global variables to manage CLI state, which is the standard
// pattern for Cobra-based CLI applications. The globals are initialized in
// PersistentPreRunE and cleaned up in PersistentPostRun.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level state
package cli

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/walletvet/walletvet/internal/config"
	"github.com/walletvet/walletvet/internal/output"
	veterr "github.com/walletvet/walletvet/pkg/errors"
)

var (
	// Global flags
	homeDir      string
	outputFormat string
	verbose      bool
	metricsAddr  string

	// Global state initialized in PersistentPreRunE
	cfg           *config.Config
	logger        *config.Logger
	formatter     *output.Formatter
	stopMetrics   func()
	cmdCtxCleanup []func()
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "walletvet",
	Short: "Vet vendor payout wallets before payment",
	Long: `walletvet checks TRON (TRC20) vendor wallets against an internal blacklist,
the vendor whitelist and on-chain facts from Tronscan, and keeps an
append-only audit log of every check.

Example:
  walletvet check vendor123 TLa2f6VPqDgRE67v1736s7bJ8Ray5wYjU7
  walletvet blacklist add TLa2f6VPqDgRE67v1736s7bJ8Ray5wYjU7 --tag Phishing
  walletvet batch --file payouts.csv --out report.csv`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return initGlobals(cmd)
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		cleanup()
	},
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		reportError(rootCmd.ErrOrStderr(), err)
		cleanup()
		return err
	}
	return nil
}

// ExitCode returns the appropriate exit code for an error.
func ExitCode(err error) int {
	return veterr.ExitCode(err)
}

func reportError(w io.Writer, err error) {
	format := output.FormatText
	if formatter != nil {
		format = formatter.Format()
	}
	_ = output.FormatError(w, err, format)
}

// initGlobals loads configuration and sets up the logger, formatter and
// optional metrics listener.
func initGlobals(cmd *cobra.Command) error {
	home := homeDir
	if home == "" {
		home = os.Getenv(config.EnvHome)
	}
	if home == "" {
		home = config.DefaultHome()
	}

	var err error
	cfg, err = config.Load(config.Path(home))
	switch {
	case veterr.Is(err, veterr.ErrConfigNotFound):
		cfg = config.Defaults()
		cfg.Home = home
	case err != nil:
		return err
	}

	config.ApplyEnvironment(cfg)

	if homeDir != "" {
		cfg.Home = homeDir
	}
	if verbose {
		cfg.Output.Verbose = true
		cfg.Logging.Level = "debug"
	}
	if outputFormat != "" && outputFormat != string(output.FormatAuto) {
		cfg.Output.DefaultFormat = outputFormat
	}
	if metricsAddr != "" {
		cfg.Metrics.Listen = metricsAddr
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err = config.NewLogger(cfg.Logging)
	if err != nil {
		logger = config.NullLogger()
	}

	w := cmd.OutOrStdout()
	formatter = output.NewFormatter(output.ParseFormat(cfg.Output.DefaultFormat), w)
	if !cfg.ColorEnabled() || !output.IsTerminal(w) {
		output.DisableColor()
	}

	if cfg.Metrics.Listen != "" {
		stopMetrics, err = serveMetrics(cfg.Metrics.Listen)
		if err != nil {
			return err
		}
	}

	logger.Debug("walletvet %s: home=%s registry=%s", cmd.CommandPath(), cfg.GetHome(), cfg.Registry.Backend)
	return nil
}

// cleanup releases resources. Safe to call more than once.
func cleanup() {
	for i := len(cmdCtxCleanup) - 1; i >= 0; i-- {
		cmdCtxCleanup[i]()
	}
	cmdCtxCleanup = nil

	if stopMetrics != nil {
		stopMetrics()
		stopMetrics = nil
	}
	if logger != nil {
		_ = logger.Close()
	}
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for flag registration
func init() {
	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "walletvet data directory (default: ~/.walletvet)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "auto", "output format: text, json, auto")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9100)")
}
