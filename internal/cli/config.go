package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/walletvet/walletvet/internal/config"
	veterr "github.com/walletvet/walletvet/pkg/errors"
)

// configCmd is the parent command for configuration operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `View and initialize walletvet configuration settings.`,
}

// configInitCmd initializes the configuration.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	Long: `Create a default configuration file at ~/.walletvet/config.yaml.

If a configuration file already exists, this command will not overwrite it
unless --force is specified.

Example:
  walletvet config init
  walletvet config init --force`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

// configShowCmd shows the effective configuration.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Display the effective configuration after environment overrides.
The Tronscan API key is masked.

Example:
  walletvet config show
  walletvet config show -o json`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

// configGetCmd prints one configuration value.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configGetCmd = &cobra.Command{
	Use:   "get <path>",
	Short: "Get a configuration value",
	Long: `Get a configuration value by its dot-separated path.

Examples:
  walletvet config get ledger.base_url
  walletvet config get batch.concurrency`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigGet,
}

// configPathCmd prints the configuration file location.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		outln(cmd.OutOrStdout(), config.Path(cfg.GetHome()))
		return nil
	},
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var configForce bool

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configShowCmd, configGetCmd, configPathCmd)

	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite existing configuration")
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	configPath := config.Path(cfg.GetHome())

	if _, err := os.Stat(configPath); err == nil && !configForce {
		return veterr.WithSuggestion(
			veterr.WithDetails(veterr.ErrGeneral, map[string]string{"path": configPath}),
			"configuration already exists. Use --force to overwrite.",
		)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	defaultCfg := config.Defaults()
	defaultCfg.Home = cfg.Home
	if err := config.Save(defaultCfg, configPath); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	out(w, "Configuration initialized at %s\n", configPath)
	outln(w)
	outln(w, "Edit this file to configure:")
	outln(w, "  - ledger.api_key: Your Tronscan API key (or set TRONSCAN_API_KEY)")
	outln(w, "  - ledger.facts_rps / ledger.risk_rps: Upstream request rates")
	outln(w, "  - batch.concurrency: Concurrent checks per batch")
	outln(w, "  - operator.name: Name recorded on blacklist entries")
	return nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	w := cmd.OutOrStdout()
	masked := maskedConfig(cfg)
	if formatter.IsJSON() {
		return writeJSON(w, masked)
	}
	return displayConfigText(w, masked)
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	value, err := getConfigValue(maskedConfig(cfg), args[0])
	if err != nil {
		return err
	}
	outln(cmd.OutOrStdout(), value)
	return nil
}

// maskedConfig returns a copy of c with the API key shortened.
func maskedConfig(c *config.Config) *config.Config {
	cp := *c
	cp.Ledger.APIKey = maskKey(c.Ledger.APIKey)
	return &cp
}

func maskKey(key string) string {
	switch {
	case key == "":
		return ""
	case len(key) >= 4:
		return key[:4] + "..."
	default:
		return "***..."
	}
}

func displayConfigText(w io.Writer, c *config.Config) error {
	apiKey := c.Ledger.APIKey
	if apiKey == "" {
		apiKey = "(not configured)"
	}

	outln(w, "Configuration:")
	outln(w)
	out(w, "  Home: %s\n", c.Home)
	outln(w)
	outln(w, "  Ledger:")
	out(w, "    base_url: %s\n", c.Ledger.BaseURL)
	out(w, "    api_key: %s\n", apiKey)
	out(w, "    usdt_contract: %s\n", c.Ledger.USDTContract)
	out(w, "    timeout: %s\n", c.Ledger.Timeout)
	out(w, "    facts_rps: %g  risk_rps: %g  burst: %d\n", c.Ledger.FactsRPS, c.Ledger.RiskRPS, c.Ledger.Burst)
	out(w, "    retry: %d attempts, %s..%s\n", c.Ledger.RetryAttempts, c.Ledger.RetryBaseDelay, c.Ledger.RetryMaxDelay)
	out(w, "    cache_ttl: %s\n", c.Ledger.CacheTTL)
	outln(w)
	outln(w, "  Registry:")
	out(w, "    backend: %s\n", c.Registry.Backend)
	out(w, "    path: %s\n", c.RegistryPath())
	outln(w)
	outln(w, "  Batch:")
	out(w, "    concurrency: %d\n", c.Batch.Concurrency)
	out(w, "    timeout: %s\n", c.Batch.Timeout)
	outln(w)
	outln(w, "  Output:")
	out(w, "    default_format: %s\n", c.Output.DefaultFormat)
	out(w, "    color: %s\n", c.Output.Color)
	out(w, "    display_offset_hours: %d\n", c.Report.DisplayOffsetHours)
	outln(w)
	outln(w, "  Logging:")
	out(w, "    level: %s\n", c.Logging.Level)
	out(w, "    file: %s\n", c.Logging.File)
	if c.Metrics.Listen != "" {
		outln(w)
		out(w, "  Metrics: %s\n", c.Metrics.Listen)
	}
	if c.Operator.Name != "" {
		out(w, "  Operator: %s\n", c.Operator.Name)
	}
	return nil
}

// getConfigValue resolves a dot path against the YAML form of c, so paths
// match the keys of config.yaml.
func getConfigValue(c *config.Config, path string) (string, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return "", err
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return "", err
	}

	var node any = tree
	for _, key := range strings.Split(path, ".") {
		m, ok := node.(map[string]any)
		if !ok {
			return "", unknownConfigPath(path)
		}
		if node, ok = m[key]; !ok {
			return "", unknownConfigPath(path)
		}
	}
	if _, ok := node.(map[string]any); ok {
		return "", veterr.WithSuggestion(unknownConfigPath(path), "path names a section; use config show")
	}
	return fmt.Sprint(node), nil
}

func unknownConfigPath(path string) error {
	return veterr.WithDetails(veterr.ErrNotFound, map[string]string{"config_path": path})
}
