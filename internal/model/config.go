package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds the complete schoolmon configuration. It is built once at
// startup and handed to the orchestration layer; the verification core takes
// none of it.
type Config struct {
	Children []Subject     `yaml:"children" mapstructure:"children" validate:"dive"`
	Town     *Subject      `yaml:"town,omitempty" mapstructure:"town" validate:"omitempty"`
	LLM      LLMConfig     `yaml:"llm" mapstructure:"llm"`
	Mail     MailConfig    `yaml:"mail" mapstructure:"mail"`
	Notify   NotifyConfig  `yaml:"notify" mapstructure:"notify"`
	Pacing   PacingConfig  `yaml:"pacing" mapstructure:"pacing"`
	Cache    CacheConfig   `yaml:"cache" mapstructure:"cache"`
	Metrics  MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
	Output   OutputConfig  `yaml:"output" mapstructure:"output"`
}

// LLMConfig configures the extraction oracle
type LLMConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider" validate:"oneof=gemini openai anthropic ollama"`
	Model     string `yaml:"model" mapstructure:"model"`
	APIKey    string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL   string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout   int    `yaml:"timeout" mapstructure:"timeout" validate:"gte=0"` // seconds
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens" validate:"gte=0"`
}

// MailConfig configures the Gmail store
type MailConfig struct {
	CredentialsFile string `yaml:"credentials_file" mapstructure:"credentials_file"`
	TokenFile       string `yaml:"token_file" mapstructure:"token_file"`
	User            string `yaml:"user" mapstructure:"user" validate:"required"`
	MaxThreads      int    `yaml:"max_threads" mapstructure:"max_threads" validate:"gt=0,lte=500"`
	MaxChars        int    `yaml:"max_chars" mapstructure:"max_chars" validate:"gt=0"`
}

// NotifyConfig configures the chat and invite sinks
type NotifyConfig struct {
	SlackWebhookURL string `yaml:"slack_webhook_url,omitempty" mapstructure:"slack_webhook_url" validate:"omitempty,url"`
	InviteTo        string `yaml:"invite_to,omitempty" mapstructure:"invite_to" validate:"omitempty,email"`
	SenderName      string `yaml:"sender_name" mapstructure:"sender_name"`
	Timezone        string `yaml:"timezone" mapstructure:"timezone" validate:"required"`
}

// PacingConfig holds fixed delays that keep collaborators under their rate limits
type PacingConfig struct {
	SubjectDelay time.Duration `yaml:"subject_delay" mapstructure:"subject_delay" validate:"gte=0"`
	InviteDelay  time.Duration `yaml:"invite_delay" mapstructure:"invite_delay" validate:"gte=0"`
	LLMPerMinute float64       `yaml:"llm_per_minute" mapstructure:"llm_per_minute" validate:"gte=0"`
}

// CacheConfig configures the oracle response cache
type CacheConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir     string        `yaml:"dir" mapstructure:"dir"`
	TTL     time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// MetricsConfig configures the textfile metrics sink
type MetricsConfig struct {
	TextfilePath string `yaml:"textfile_path,omitempty" mapstructure:"textfile_path"`
}

// OutputConfig holds presentation switches
type OutputConfig struct {
	Verbose bool `yaml:"verbose" mapstructure:"verbose"`
	DryRun  bool `yaml:"dry_run" mapstructure:"dry_run"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	base := filepath.Join(home, ".schoolmon")

	return &Config{
		Children: []Subject{},
		LLM: LLMConfig{
			Provider:  "gemini",
			Model:     "gemini-2.5-flash-lite",
			Timeout:   60,
			MaxTokens: 2048,
		},
		Mail: MailConfig{
			CredentialsFile: filepath.Join(base, "credentials.json"),
			TokenFile:       filepath.Join(base, "token.json"),
			User:            "me",
			MaxThreads:      30,
			MaxChars:        28000,
		},
		Notify: NotifyConfig{
			SenderName: "School Email Monitor",
			Timezone:   "America/New_York",
		},
		Pacing: PacingConfig{
			SubjectDelay: 2 * time.Second,
			InviteDelay:  2 * time.Second,
			LLMPerMinute: 15,
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     filepath.Join(base, "cache"),
			TTL:     24 * time.Hour,
		},
	}
}

// Subjects returns every feed in processing order: children first, then town
func (c *Config) Subjects() []Subject {
	subjects := make([]Subject, 0, len(c.Children)+1)
	for _, child := range c.Children {
		child.Kind = SubjectChild
		subjects = append(subjects, child)
	}
	if c.Town != nil && c.Town.Label != "" {
		town := *c.Town
		town.Kind = SubjectTown
		subjects = append(subjects, town)
	}
	return subjects
}

// Location resolves the configured timezone
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Notify.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Notify.Timezone, err)
	}
	return loc, nil
}

// Validate checks struct constraints and the cross-field rules the tags can't express
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())

	for i := range c.Children {
		c.Children[i].Kind = SubjectChild
	}
	if c.Town != nil {
		c.Town.Kind = SubjectTown
	}

	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if len(c.Subjects()) == 0 {
		return fmt.Errorf("invalid config: no children or town feed configured")
	}

	seen := make(map[string]bool)
	for _, s := range c.Subjects() {
		label := strings.ToLower(s.Label)
		if seen[label] {
			return fmt.Errorf("invalid config: gmail label %q used by more than one feed", s.Label)
		}
		seen[label] = true
	}

	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	return nil
}
