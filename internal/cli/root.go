package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/ppiankov/idiomfetch/internal/model"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time with -ldflags "-X"
var version = "v0.1.0"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "idiomfetch",
	Short: "Idiomfetch - collect idiom definitions from Wiktionary",
	Long: `Idiomfetch builds a term/definition dataset from Wiktionary.

  fetch   look up every term of a list and append the definitions to a CSV,
          resuming where a previous run stopped
  clean   drop reference-only entries and duplicate terms from such a CSV`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "idiomfetch %s\n", version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.idiomfetch/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	configureViper(viper.GetViper(), model.DefaultConfig())

	rootCmd.AddCommand(versionCmd)
}

// configureViper registers every config key with its default so that
// IDIOMFETCH_* variables reach keys absent from the config file.
func configureViper(v *viper.Viper, d *model.Config) {
	v.SetEnvPrefix("IDIOMFETCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := map[string]any{
		"fetch.input":         d.Fetch.Input,
		"fetch.output":        d.Fetch.Output,
		"fetch.resume":        d.Fetch.Resume,
		"wiktionary.base_url": d.Wiktionary.BaseURL,
		"wiktionary.language": d.Wiktionary.Language,
		"wiktionary.section":  d.Wiktionary.Section,
		"http.timeout":        d.HTTP.Timeout,
		"http.user_agent":     d.HTTP.UserAgent,
		"http.max_redirects":  d.HTTP.MaxRedirects,
		"http.http_proxy":     d.HTTP.HTTPProxy,
		"http.https_proxy":    d.HTTP.HTTPSProxy,
		"http.no_proxy":       d.HTTP.NoProxy,
		"http.ignore_robots":  d.HTTP.IgnoreRobots,
		"rate_limiting.delay": d.RateLimiting.Delay,
		"cache.enabled":       d.Cache.Enabled,
		"cache.dir":           d.Cache.Dir,
		"cache.memory_ttl":    d.Cache.MemoryTTL,
		"cache.disk_ttl":      d.Cache.DiskTTL,
		"clean.input":         d.Clean.Input,
		"clean.output":        d.Clean.Output,
		"clean.patterns":      d.Clean.Patterns,
		"log.level":           d.Log.Level,
		"log.format":          d.Log.Format,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

// initConfig reads .env, then the config file
func initConfig() {
	// .env is optional
	_ = godotenv.Load()

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		viper.AddConfigPath(filepath.Join(home, ".idiomfetch"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// loadConfig resolves flags, environment, config file and defaults into
// a validated Config
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// bindFlags binds each flag name of cmd to its config key
func bindFlags(cmd *cobra.Command, keys map[string]string) {
	for key, name := range keys {
		_ = viper.BindPFlag(key, cmd.Flags().Lookup(name))
	}
}
