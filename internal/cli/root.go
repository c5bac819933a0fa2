package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/filingqa/internal/logging"
	"github.com/ppiankov/filingqa/internal/model"
)

const version = "0.1.0"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "filingqa",
	Short: "filingqa - answer research questions from SEC filings with citations",
	Long: `filingqa answers financial research questions from SEC filings.

Each question is classified, matched to the filings most likely to answer
it (10-K risk factors, 10-Q MD&A, 8-K events, proxy statements, insider
Forms 3/4/5), and answered by a language model that may only cite the
retrieved excerpts. Every citation in the answer resolves to a filing.`,
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
		fmt.Fprintf(cmd.OutOrStdout(), "filingqa v%s\n", version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: $HOME/.filingqa/config.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	flags.String("mode", "", "retrieval mode (targeted, broad)")
	flags.String("provider", "", "LLM provider (openai, anthropic, ollama)")
	flags.String("model", "", "LLM model name")
	flags.String("log-level", "", "log level (trace, debug, info, warn, error)")
	flags.String("log-format", "", "log format (text, json)")
	flags.String("tickers-file", "", "path to SEC company_tickers.json")

	// Bind flags to viper
	_ = viper.BindPFlag("output.verbose", flags.Lookup("verbose"))
	_ = viper.BindPFlag("retrieval.mode", flags.Lookup("mode"))
	_ = viper.BindPFlag("llm.provider", flags.Lookup("provider"))
	_ = viper.BindPFlag("llm.model", flags.Lookup("model"))
	_ = viper.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("log.format", flags.Lookup("log-format"))
	_ = viper.BindPFlag("companies.tickers_file", flags.Lookup("tickers-file"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		viper.AddConfigPath(filepath.Join(home, ".filingqa"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	if err := configureViper(viper.GetViper()); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading defaults: %v\n", err)
	}

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// configureViper registers every default so FILINGQA_* variables can
// override nested keys, plus the conventional provider variables
func configureViper(v *viper.Viper) error {
	v.SetEnvPrefix("FILINGQA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	data, err := yaml.Marshal(model.DefaultConfig())
	if err != nil {
		return err
	}
	var defaults map[string]any
	if err := yaml.Unmarshal(data, &defaults); err != nil {
		return err
	}
	setDefaults(v, "", defaults)

	// keys omitted from the marshalled defaults
	for _, key := range []string{"sec_api.api_key", "sec_api.http_proxy", "sec_api.https_proxy", "llm.api_key", "llm.base_url"} {
		v.SetDefault(key, "")
	}
	return v.BindEnv("sec_api.api_key", "FILINGQA_SEC_API_API_KEY", "SEC_API_KEY")
}

func setDefaults(v *viper.Viper, prefix string, values map[string]any) {
	for k, val := range values {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := val.(map[string]any); ok {
			setDefaults(v, key, nested)
			continue
		}
		v.SetDefault(key, val)
	}
}

// loadConfig resolves flags, environment, config file and defaults
func loadConfig(v *viper.Viper) (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *model.Config) (*slog.Logger, error) {
	level := cfg.Log.Level
	if cfg.Output.Verbose && strings.EqualFold(level, "info") {
		level = "debug"
	}
	return logging.New(level, cfg.Log.Format, os.Stderr)
}
