package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/schoolmon/internal/model"
)

// Version is set at build time
var Version = "0.1.0"

var (
	cfgFile   string
	verbose   bool
	logFormat string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "schoolmon",
	Short: "schoolmon - verified school email digests",
	Long: `schoolmon reads labelled school emails, asks an AI model to extract a
summary and dated events, and checks every extracted date, quote and
figure against the emails before anything reaches the family chat or
calendar.

Events that cannot be found in the source mail are never sent as
invites; they are listed separately with the reason they failed.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command
// context so a run stops between API calls.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number of schoolmon.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("schoolmon v%s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.schoolmon/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")

	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))

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

		viper.AddConfigPath(filepath.Join(home, ".schoolmon"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	setDefaults(model.DefaultConfig())

	// SCHOOLMON_LLM_PROVIDER, SCHOOLMON_NOTIFY_INVITE_TO, ...
	viper.SetEnvPrefix("SCHOOLMON")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Conventional names used by the hosted services
	_ = viper.BindEnv("notify.slack_webhook_url", "SCHOOLMON_NOTIFY_SLACK_WEBHOOK_URL", "SLACK_WEBHOOK_URL")
	_ = viper.BindEnv("notify.invite_to", "SCHOOLMON_NOTIFY_INVITE_TO", "SCHOOLMON_INVITE_TO")

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// setDefaults registers every scalar default so env overrides apply to keys
// the config file does not mention
func setDefaults(d *model.Config) {
	viper.SetDefault("llm.provider", d.LLM.Provider)
	viper.SetDefault("llm.model", d.LLM.Model)
	viper.SetDefault("llm.api_key", d.LLM.APIKey)
	viper.SetDefault("llm.base_url", d.LLM.BaseURL)
	viper.SetDefault("llm.timeout", d.LLM.Timeout)
	viper.SetDefault("llm.max_tokens", d.LLM.MaxTokens)

	viper.SetDefault("mail.credentials_file", d.Mail.CredentialsFile)
	viper.SetDefault("mail.token_file", d.Mail.TokenFile)
	viper.SetDefault("mail.user", d.Mail.User)
	viper.SetDefault("mail.max_threads", d.Mail.MaxThreads)
	viper.SetDefault("mail.max_chars", d.Mail.MaxChars)

	viper.SetDefault("notify.slack_webhook_url", d.Notify.SlackWebhookURL)
	viper.SetDefault("notify.invite_to", d.Notify.InviteTo)
	viper.SetDefault("notify.sender_name", d.Notify.SenderName)
	viper.SetDefault("notify.timezone", d.Notify.Timezone)

	viper.SetDefault("pacing.subject_delay", d.Pacing.SubjectDelay)
	viper.SetDefault("pacing.invite_delay", d.Pacing.InviteDelay)
	viper.SetDefault("pacing.llm_per_minute", d.Pacing.LLMPerMinute)

	viper.SetDefault("cache.enabled", d.Cache.Enabled)
	viper.SetDefault("cache.dir", d.Cache.Dir)
	viper.SetDefault("cache.ttl", d.Cache.TTL)

	viper.SetDefault("metrics.textfile_path", d.Metrics.TextfilePath)
	viper.SetDefault("output.dry_run", d.Output.DryRun)
}

// loadConfig assembles the effective configuration from defaults, the
// config file, the environment and bound flags
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	applyProviderEnv(cfg)
	return cfg, nil
}

// applyProviderEnv fills the oracle credentials from each provider's
// conventional environment variable when the config leaves them empty
func applyProviderEnv(cfg *model.Config) {
	if cfg.LLM.APIKey == "" {
		switch strings.ToLower(cfg.LLM.Provider) {
		case "gemini", "":
			cfg.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
		case "openai":
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		case "anthropic", "claude":
			cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}
	if cfg.LLM.BaseURL == "" && strings.EqualFold(cfg.LLM.Provider, "ollama") {
		cfg.LLM.BaseURL = os.Getenv("OLLAMA_BASE_URL")
	}
}

// setupLogger builds the process logger and installs it as the default
func setupLogger(debug bool, format string) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
