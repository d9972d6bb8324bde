package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/schoolmon/internal/cache"
	"github.com/ppiankov/schoolmon/internal/llm"
	"github.com/ppiankov/schoolmon/internal/mail"
	"github.com/ppiankov/schoolmon/internal/metrics"
	"github.com/ppiankov/schoolmon/internal/model"
	"github.com/ppiankov/schoolmon/internal/notify"
	"github.com/ppiankov/schoolmon/internal/pipeline"
	"github.com/ppiankov/schoolmon/internal/verify"
	"github.com/ppiankov/schoolmon/internal/worker"
)

var (
	runSubjects    []string
	runNoCache     bool
	runTimeout     time.Duration
	runLLMProvider string
	runLLMModel    string
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process unread school mail once",
	Long: `Run one monitoring pass over every configured child and the town feed.

For each feed schoolmon:
  1. Collects unread threads under the feed's Gmail label
  2. Asks the configured model for a summary and dated events
  3. Verifies every event against the email text
  4. Emails a calendar invite for each verified event
  5. Posts a digest to Slack listing verified and unverified items

Unverified events are never sent as invites. Use --dry-run to print the
digests instead of posting them and to leave mail unread.`,
	Example: `  schoolmon run
  schoolmon run --dry-run --subject Emma
  schoolmon run --llm-provider openai --llm-model gpt-4o-mini`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Bool("dry-run", false, "print digests and invites instead of sending; leave mail unread")
	runCmd.Flags().StringSliceVar(&runSubjects, "subject", nil, "only process these feeds (child name or 'town')")
	runCmd.Flags().StringVar(&runLLMProvider, "llm-provider", "", "override LLM provider (gemini, openai, anthropic, ollama)")
	runCmd.Flags().StringVar(&runLLMModel, "llm-model", "", "override LLM model")
	runCmd.Flags().BoolVar(&runNoCache, "no-cache", false, "bypass the model response cache")
	runCmd.Flags().String("metrics-file", "", "write Prometheus textfile metrics to this path")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 15*time.Minute, "overall timeout for the run")

	_ = viper.BindPFlag("output.dry_run", runCmd.Flags().Lookup("dry-run"))
	_ = viper.BindPFlag("metrics.textfile_path", runCmd.Flags().Lookup("metrics-file"))
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if runLLMProvider != "" {
		cfg.LLM.Provider = runLLMProvider
		cfg.LLM.APIKey = ""
		applyProviderEnv(cfg)
	}
	if runLLMModel != "" {
		cfg.LLM.Model = runLLMModel
	}
	if runNoCache {
		cfg.Cache.Enabled = false
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := setupLogger(cfg.Output.Verbose, logFormat)

	subjects, err := selectSubjects(cfg.Subjects(), runSubjects)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), runTimeout)
	defer cancel()

	recorder := metrics.NewRecorder()
	p, err := buildPipeline(ctx, cfg, subjects, recorder, logger)
	if err != nil {
		return err
	}

	report, err := p.Run(ctx)
	printReport(report)

	if path := cfg.Metrics.TextfilePath; path != "" {
		if werr := recorder.WriteTextfile(path); werr != nil {
			logger.Warn("failed to write metrics", "path", path, "error", werr)
		}
	}

	if err != nil {
		return err
	}
	if failed := report.Failed(); failed > 0 {
		return fmt.Errorf("%d of %d feeds failed", failed, len(report.Subjects))
	}
	return nil
}

// buildPipeline wires the collaborators for a live or dry run
func buildPipeline(ctx context.Context, cfg *model.Config, subjects []model.Subject, recorder *metrics.Recorder, logger *slog.Logger) (*pipeline.Pipeline, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	dryRun := cfg.Output.DryRun

	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM))
	if err != nil {
		return nil, fmt.Errorf("create LLM provider: %w", err)
	}

	limiter := worker.FromPacing(cfg.Pacing)

	responseCache := cache.Cache(cache.Nop{})
	if cfg.Cache.Enabled {
		responseCache = cache.FromConfig(cfg.Cache)
	}

	extractor := llm.NewExtractor(provider,
		llm.WithCache(responseCache, cfg.Cache.TTL),
		llm.WithModel(cfg.LLM.Model),
		llm.WithLimiter(limiter),
		llm.WithLogger(logger.With("component", "llm")),
	)

	store, err := mail.NewGmailStoreFromConfig(ctx, cfg.Mail)
	if err != nil {
		return nil, err
	}

	collector := mail.NewCollector(store,
		mail.WithLimits(cfg.Mail.MaxThreads, cfg.Mail.MaxChars),
		mail.WithLocation(loc),
		mail.WithMarkRead(!dryRun),
		mail.WithCollectorLogger(logger.With("component", "mail")),
	)

	notifier, inviter, err := buildSinks(cfg, store, limiter, loc, logger)
	if err != nil {
		return nil, err
	}

	return pipeline.New(subjects, pipeline.Deps{
		Collector: collector,
		Extractor: extractor,
		Verifier:  verify.New(verify.WithLogger(logger.With("component", "verify"))),
		Notifier:  notifier,
		Inviter:   inviter,
		Recorder:  recorder,
	},
		pipeline.WithPacing(cfg.Pacing),
		pipeline.WithLogger(logger.With("component", "pipeline")),
	)
}

// buildSinks picks the chat and invite sinks. Dry runs print to stdout; a
// missing invite address disables invites entirely.
func buildSinks(cfg *model.Config, store mail.Store, limiter *worker.Limiter, loc *time.Location, logger *slog.Logger) (notify.Notifier, notify.Inviter, error) {
	if cfg.Output.DryRun {
		var inviter notify.Inviter
		if cfg.Notify.InviteTo != "" {
			inviter = notify.NewConsoleInviter(os.Stdout)
		}
		return notify.NewConsoleNotifier(os.Stdout), inviter, nil
	}

	if cfg.Notify.SlackWebhookURL == "" {
		return nil, nil, fmt.Errorf("no Slack webhook configured (set notify.slack_webhook_url or SLACK_WEBHOOK_URL)")
	}
	notifier, err := notify.NewSlackNotifier(cfg.Notify.SlackWebhookURL,
		notify.WithSlackLimiter(limiter),
		notify.WithSlackLogger(logger.With("component", "slack")),
	)
	if err != nil {
		return nil, nil, err
	}

	if cfg.Notify.InviteTo == "" {
		logger.Info("no invite address configured; calendar invites disabled")
		return notifier, nil, nil
	}
	inviter, err := notify.NewInviteMailer(store, notify.NewInviteBuilder(loc),
		cfg.Notify.InviteTo, cfg.Notify.SenderName, logger.With("component", "invite"))
	if err != nil {
		return nil, nil, err
	}
	return notifier, inviter, nil
}

// selectSubjects narrows subjects to the requested names, keeping processing order
func selectSubjects(all []model.Subject, names []string) ([]model.Subject, error) {
	if len(names) == 0 {
		return all, nil
	}

	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[strings.ToLower(strings.TrimSpace(n))] = true
	}

	var out []model.Subject
	for _, s := range all {
		key := strings.ToLower(s.Name)
		if s.IsTown() {
			key = "town"
		}
		if want[key] || want[strings.ToLower(s.Name)] {
			out = append(out, s)
			delete(want, key)
			delete(want, strings.ToLower(s.Name))
		}
	}
	if len(want) > 0 {
		var unknown []string
		for n := range want {
			unknown = append(unknown, n)
		}
		return nil, fmt.Errorf("unknown feed(s): %s", strings.Join(unknown, ", "))
	}
	return out, nil
}

func printReport(report *pipeline.Report) {
	if report == nil {
		return
	}
	fmt.Fprintln(os.Stderr)
	for _, s := range report.Subjects {
		line := fmt.Sprintf("  %-20s %-17s", s.Subject.DisplayName(), s.Status)
		if s.Result != nil {
			line += fmt.Sprintf(" verified=%d unverified=%d invites=%d",
				len(s.Result.Verified()), len(s.Result.Unverified()), s.InvitesSent)
		}
		if s.Err != nil {
			line += " error=" + s.Err.Error()
		}
		fmt.Fprintln(os.Stderr, line)
	}
	if !report.FinishedAt.IsZero() {
		fmt.Fprintf(os.Stderr, "\nFinished in %s\n", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
	}
}
