// Package leadflow provides a high-level façade over the lead-scoring engine
// and its collaborators (analyzer, matcher, storage, notification sink,
// logging), enabling quick construction of a working pipeline. Most
// applications interact with this package by:
//  1. Creating a LeadFlow via New() (optionally overriding defaults)
//  2. Feeding normalized message events through Process
//  3. Closing the instance to flush final scoring passes
//
// The façade delegates orchestration to engine.Engine while keeping setup
// concise. All defaults are safe for local development and testing; production
// deployments typically supply a real AI provider, a durable lead store and a
// structured logger.
package leadflow

import (
	"context"

	"github.com/leadflow/leadflow/analyzer"
	"github.com/leadflow/leadflow/config"
	"github.com/leadflow/leadflow/core"
	"github.com/leadflow/leadflow/engine"
	"github.com/leadflow/leadflow/logging"
	"github.com/leadflow/leadflow/match"
	"github.com/leadflow/leadflow/storage"
)

// Options configures the LeadFlow instance.
type Options struct {
	// Config carries every threshold and window. Defaults to config.Default().
	Config config.Config

	// Analyzer scores text for commercial interest (defaults to the mock).
	Analyzer analyzer.Analyzer

	// Matcher provides phrase-based role/signal detection (defaults to the
	// built-in English phrase lists).
	Matcher *match.Matcher

	// LeadStore persists finalized lead records (defaults to in-memory).
	LeadStore core.LeadStore

	// NotificationSink delivers approved alerts (nil disables notifications).
	NotificationSink core.NotificationSink

	// Logger (defaults to NoOp logger if nil).
	Logger logging.Logger
}

// LeadFlow is the high-level façade aggregating the underlying engine.
type LeadFlow struct {
	opts   Options
	engine *engine.Engine
}

// New creates a LeadFlow instance with optional overrides. Any unset
// collaborator is initialized with an in-memory or no-op implementation.
func New(optFns ...func(o *Options)) *LeadFlow {
	opts := Options{
		Config:    config.Default(),
		Analyzer:  analyzer.NewMock(),
		Matcher:   match.New(),
		LeadStore: storage.NewInMemoryStore(),
		Logger:    logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	eng := engine.New(opts.Config,
		engine.WithAnalyzer(opts.Analyzer),
		engine.WithMatcher(opts.Matcher),
		engine.WithLeadStore(opts.LeadStore),
		engine.WithNotificationSink(opts.NotificationSink),
		engine.WithLogger(opts.Logger),
	)

	return &LeadFlow{opts: opts, engine: eng}
}

// Start launches the background lifecycle sweeper.
func (lf *LeadFlow) Start() { lf.engine.Start() }

// Process ingests one normalized message event.
func (lf *LeadFlow) Process(ctx context.Context, msg core.Message) error {
	return lf.engine.Process(ctx, msg)
}

// ActiveSessions returns the number of currently tracked dialogue sessions.
func (lf *LeadFlow) ActiveSessions() int { return lf.engine.ActiveSessions() }

// Close stops the sweeper and flushes final scoring passes.
func (lf *LeadFlow) Close(ctx context.Context) error { return lf.engine.Close(ctx) }
