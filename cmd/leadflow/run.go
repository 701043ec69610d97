package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/leadflow/leadflow"
	"github.com/leadflow/leadflow/analyzer"
	aanthropic "github.com/leadflow/leadflow/analyzer/anthropic"
	aopenai "github.com/leadflow/leadflow/analyzer/openai"
	"github.com/leadflow/leadflow/config"
	"github.com/leadflow/leadflow/core"
	"github.com/leadflow/leadflow/logging"
	"github.com/leadflow/leadflow/match"
	"github.com/leadflow/leadflow/storage"
	"github.com/leadflow/leadflow/storage/sqlite"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
)

const shutdownTimeout = 30 * time.Second

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Read message events from stdin and score them",
		Long: `run consumes newline-delimited JSON message events from stdin, routes
them through the dialogue assembler and both scoring paths, and writes
notifications as JSON lines on stdout. It exits when stdin closes or on
SIGINT/SIGTERM, flushing final scoring passes before returning.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			return runPipeline(cmd.Context(), cfgPath)
		},
	}
}

func runPipeline(parent context.Context, cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	logger := logging.NewSlogLogger(
		logging.ParseLevel(cfg.Logging.Level),
		cfg.Logging.Format,
		cfg.Logging.AddSource,
	)

	matcher, err := buildMatcher(cfg)
	if err != nil {
		return err
	}

	an, err := buildAnalyzer(cfg.Analyzer)
	if err != nil {
		return err
	}

	store, closeStore, err := buildLeadStore(cfg.Storage)
	if err != nil {
		return err
	}
	defer closeStore()

	lf := leadflow.New(func(o *leadflow.Options) {
		o.Config = cfg
		o.Analyzer = an
		o.Matcher = matcher
		o.LeadStore = store
		o.NotificationSink = &stdoutSink{enc: json.NewEncoder(os.Stdout)}
		o.Logger = logger
	})
	lf.Start()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("leadflow started", "provider", cfg.Analyzer.Provider, "storage", storageName(cfg.Storage))

	if err := consume(ctx, lf, logger); err != nil {
		logger.Error("event stream failed", "error", err)
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := lf.Close(closeCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("leadflow stopped")
	return nil
}

// consume reads NDJSON events from stdin until EOF or context cancellation.
// A line that fails to decode or validate is logged and skipped; it never
// stops the stream.
func consume(ctx context.Context, lf *leadflow.LeadFlow, logger logging.Logger) error {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var msg core.Message
		if err := json.Unmarshal(line, &msg); err != nil {
			logger.Warn("skipping undecodable event", "error", err)
			continue
		}
		if err := lf.Process(ctx, msg); err != nil {
			logger.Warn("skipping rejected event", "message_id", msg.ID, "error", err)
		}
	}
	return scanner.Err()
}

func buildMatcher(cfg config.Config) (*match.Matcher, error) {
	if cfg.PhrasesPath == "" {
		return match.New(), nil
	}
	phrases, err := match.LoadPhrases(cfg.PhrasesPath)
	if err != nil {
		return nil, fmt.Errorf("load phrases: %w", err)
	}
	return match.New(func(o *match.Options) { o.Phrases = phrases }), nil
}

func buildAnalyzer(cfg config.Analyzer) (analyzer.Analyzer, error) {
	switch cfg.Provider {
	case "", "anthropic":
		return aanthropic.New(func(o *aanthropic.Options) {
			o.APIKey = cfg.APIKey
			if cfg.Model != "" {
				o.Model = anthropicsdk.Model(cfg.Model)
			}
		}), nil
	case "openai":
		return aopenai.New(func(o *aopenai.Options) {
			o.APIKey = cfg.APIKey
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
		}), nil
	case "mock":
		return analyzer.NewMock(), nil
	default:
		return nil, fmt.Errorf("unknown analyzer provider: %s", cfg.Provider)
	}
}

func buildLeadStore(cfg config.Storage) (core.LeadStore, func(), error) {
	if cfg.Path == "" {
		return storage.NewInMemoryStore(), func() {}, nil
	}
	st, err := sqlite.Open(cfg.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open lead store: %w", err)
	}
	return st, func() { _ = st.Close() }, nil
}

func storageName(cfg config.Storage) string {
	if cfg.Path == "" {
		return "memory"
	}
	return cfg.Path
}

// stdoutSink writes each notification as a single JSON line on stdout, the
// same stream a downstream alert forwarder would tail.
type stdoutSink struct {
	enc *json.Encoder
}

func (s *stdoutSink) Send(_ context.Context, n core.Notification) error {
	return s.enc.Encode(n)
}
