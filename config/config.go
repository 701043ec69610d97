// Package config loads and validates the engine's runtime-tunable settings.
// Values come from an optional YAML file with LEADFLOW_-prefixed environment
// overrides; every threshold and window is plain data handed to constructors,
// so tuning never requires recompiling logic.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/leadflow/leadflow/core"
)

const envPrefix = "LEADFLOW"

// Dialogue bounds session assembly and lifecycle.
type Dialogue struct {
	// ReplyWindow is the maximum elapsed time within which a message is
	// still linkable to a session's recent activity.
	ReplyWindow time.Duration `mapstructure:"reply_window"`
	// Timeout is the inactivity span after which an Open session soft-closes.
	Timeout time.Duration `mapstructure:"timeout"`
	// SoftCloseGrace is the sub-window in which a Closing session still
	// accepts one final late message.
	SoftCloseGrace time.Duration `mapstructure:"soft_close_grace"`
	// MaxDuration force-closes a session regardless of activity.
	MaxDuration time.Duration `mapstructure:"max_duration"`
	// ScoringGrace bounds how long a Closing session may wait for its final
	// scoring pass before being closed anyway.
	ScoringGrace time.Duration `mapstructure:"scoring_grace"`
	// SweepInterval is the cadence of the background lifecycle sweep.
	SweepInterval time.Duration `mapstructure:"sweep_interval"`

	MaxMessages     int `mapstructure:"max_messages"`
	MaxParticipants int `mapstructure:"max_participants"`
	// MaxActiveDialogues is the global cap; exceeding it force-closes the
	// least-recently-active session.
	MaxActiveDialogues int `mapstructure:"max_active_dialogues"`

	// MinOpenParticipants gates opening a session on a first unmatched
	// message. With the default of 1 any unmatched message opens a session;
	// higher values route such messages through the individual path only.
	MinOpenParticipants int `mapstructure:"min_open_participants"`
	// MinMessages and MinParticipants gate the dialogue scoring path.
	MinMessages     int `mapstructure:"min_messages"`
	MinParticipants int `mapstructure:"min_participants"`
}

// Limits converts the dialogue config into per-session limits.
func (d Dialogue) Limits() core.SessionLimits {
	return core.SessionLimits{
		MaxMessages:     d.MaxMessages,
		MaxParticipants: d.MaxParticipants,
		MaxDuration:     d.MaxDuration,
		SoftCloseGrace:  d.SoftCloseGrace,
	}
}

// Weights combine AI output with pattern-matcher signals into one score.
type Weights struct {
	RecentMessage float64 `mapstructure:"recent_message"`
	BuyingSignal  float64 `mapstructure:"buying_signal"`
	Urgency       float64 `mapstructure:"urgency"`
}

// Scoring tunes both scoring paths.
type Scoring struct {
	// MinMessagesForIndividual triggers the individual path once a sender
	// accumulates this many messages within ContextWindow.
	MinMessagesForIndividual int `mapstructure:"min_messages_for_individual"`
	// ContextWindow is the rolling window for individual-path accumulation
	// and re-analysis suppression.
	ContextWindow time.Duration `mapstructure:"context_window"`
	// MaxContextMessages bounds the context sent to the AI service.
	MaxContextMessages int `mapstructure:"max_context_messages"`
	// AnalysisTimeout bounds a single AI service call.
	AnalysisTimeout time.Duration `mapstructure:"analysis_timeout"`
	// PreferDialogue suppresses an individual verdict when a dialogue
	// verdict covers the same participant in the same session window.
	PreferDialogue bool `mapstructure:"prefer_dialogue"`

	Weights    Weights         `mapstructure:"weights"`
	Thresholds core.Thresholds `mapstructure:"thresholds"`
}

// Notify tunes alert throttling.
type Notify struct {
	// ThrottleInterval is the minimum gap between notifications for one
	// (category, subject) pair.
	ThrottleInterval time.Duration `mapstructure:"throttle_interval"`
}

// Analyzer selects and tunes the AI analysis provider.
type Analyzer struct {
	Provider string `mapstructure:"provider"` // anthropic | openai | mock
	Model    string `mapstructure:"model"`
	APIKey   string `mapstructure:"api_key"`
}

// Storage configures the lead record sink.
type Storage struct {
	Path string `mapstructure:"path"` // sqlite file; empty selects in-memory
}

// Logging configures the slog handler.
type Logging struct {
	Level     string `mapstructure:"level"`
	Format    string `mapstructure:"format"` // json | text
	AddSource bool   `mapstructure:"add_source"`
}

// Config is the full runtime configuration.
type Config struct {
	Dialogue Dialogue `mapstructure:"dialogue"`
	Scoring  Scoring  `mapstructure:"scoring"`
	Notify   Notify   `mapstructure:"notify"`
	Analyzer Analyzer `mapstructure:"analyzer"`
	Storage  Storage  `mapstructure:"storage"`
	Logging  Logging  `mapstructure:"logging"`
	// PhrasesPath optionally overrides the built-in matcher phrase lists.
	PhrasesPath string `mapstructure:"phrases_path"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Dialogue: Dialogue{
			ReplyWindow:         5 * time.Minute,
			Timeout:             15 * time.Minute,
			SoftCloseGrace:      2 * time.Minute,
			MaxDuration:         2 * time.Hour,
			ScoringGrace:        30 * time.Second,
			SweepInterval:       30 * time.Second,
			MaxMessages:         200,
			MaxParticipants:     20,
			MaxActiveDialogues:  500,
			MinOpenParticipants: 1,
			MinMessages:         3,
			MinParticipants:     2,
		},
		Scoring: Scoring{
			MinMessagesForIndividual: 2,
			ContextWindow:            24 * time.Hour,
			MaxContextMessages:       10,
			AnalysisTimeout:          15 * time.Second,
			PreferDialogue:           true,
			Weights:                  Weights{RecentMessage: 0.7, BuyingSignal: 0.8, Urgency: 0.9},
			Thresholds:               core.Thresholds{Hot: 85, Warm: 70, Cold: 55},
		},
		Notify:   Notify{ThrottleInterval: 30 * time.Minute},
		Analyzer: Analyzer{Provider: "anthropic"},
		Logging:  Logging{Level: "info", Format: "json"},
	}
}

// Load reads configuration from the given file (optional) plus environment
// overrides and validates the result.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := Default()
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	def := Default()
	v.SetDefault("dialogue.reply_window", def.Dialogue.ReplyWindow)
	v.SetDefault("dialogue.timeout", def.Dialogue.Timeout)
	v.SetDefault("dialogue.soft_close_grace", def.Dialogue.SoftCloseGrace)
	v.SetDefault("dialogue.max_duration", def.Dialogue.MaxDuration)
	v.SetDefault("dialogue.scoring_grace", def.Dialogue.ScoringGrace)
	v.SetDefault("dialogue.sweep_interval", def.Dialogue.SweepInterval)
	v.SetDefault("dialogue.max_messages", def.Dialogue.MaxMessages)
	v.SetDefault("dialogue.max_participants", def.Dialogue.MaxParticipants)
	v.SetDefault("dialogue.max_active_dialogues", def.Dialogue.MaxActiveDialogues)
	v.SetDefault("dialogue.min_open_participants", def.Dialogue.MinOpenParticipants)
	v.SetDefault("dialogue.min_messages", def.Dialogue.MinMessages)
	v.SetDefault("dialogue.min_participants", def.Dialogue.MinParticipants)
	v.SetDefault("scoring.min_messages_for_individual", def.Scoring.MinMessagesForIndividual)
	v.SetDefault("scoring.context_window", def.Scoring.ContextWindow)
	v.SetDefault("scoring.max_context_messages", def.Scoring.MaxContextMessages)
	v.SetDefault("scoring.analysis_timeout", def.Scoring.AnalysisTimeout)
	v.SetDefault("scoring.prefer_dialogue", def.Scoring.PreferDialogue)
	v.SetDefault("scoring.weights.recent_message", def.Scoring.Weights.RecentMessage)
	v.SetDefault("scoring.weights.buying_signal", def.Scoring.Weights.BuyingSignal)
	v.SetDefault("scoring.weights.urgency", def.Scoring.Weights.Urgency)
	v.SetDefault("scoring.thresholds.hot_lead", def.Scoring.Thresholds.Hot)
	v.SetDefault("scoring.thresholds.warm_lead", def.Scoring.Thresholds.Warm)
	v.SetDefault("scoring.thresholds.cold_lead", def.Scoring.Thresholds.Cold)
	v.SetDefault("notify.throttle_interval", def.Notify.ThrottleInterval)
	v.SetDefault("analyzer.provider", def.Analyzer.Provider)
	v.SetDefault("logging.level", def.Logging.Level)
	v.SetDefault("logging.format", def.Logging.Format)
}

// Validate rejects configurations that would break engine invariants.
func (c Config) Validate() error {
	d := c.Dialogue
	if d.ReplyWindow <= 0 || d.Timeout <= 0 || d.MaxDuration <= 0 {
		return fmt.Errorf("dialogue windows must be positive")
	}
	if d.SoftCloseGrace < 0 || d.ScoringGrace < 0 {
		return fmt.Errorf("grace periods must be non-negative")
	}
	if d.MaxMessages <= 0 || d.MaxParticipants <= 0 || d.MaxActiveDialogues <= 0 {
		return fmt.Errorf("dialogue caps must be positive")
	}
	if d.MinMessages <= 0 || d.MinParticipants <= 0 || d.MinOpenParticipants <= 0 {
		return fmt.Errorf("dialogue minimums must be positive")
	}
	s := c.Scoring
	if s.MinMessagesForIndividual <= 0 || s.MaxContextMessages <= 0 {
		return fmt.Errorf("scoring minimums must be positive")
	}
	if s.ContextWindow <= 0 || s.AnalysisTimeout <= 0 {
		return fmt.Errorf("scoring windows must be positive")
	}
	th := s.Thresholds
	if th.Hot < th.Warm || th.Warm < th.Cold || th.Cold <= 0 || th.Hot > 100 {
		return fmt.Errorf("thresholds must satisfy 0 < cold <= warm <= hot <= 100")
	}
	if c.Notify.ThrottleInterval < 0 {
		return fmt.Errorf("notify.throttle_interval must be non-negative")
	}
	switch c.Analyzer.Provider {
	case "", "anthropic", "openai", "mock":
	default:
		return fmt.Errorf("unknown analyzer.provider: %s", c.Analyzer.Provider)
	}
	return nil
}
