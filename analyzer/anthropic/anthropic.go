// Package anthropic provides an analyzer backed by the Anthropic Claude API.
package anthropic

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/leadflow/leadflow/analyzer"
)

// Options configures the Anthropic analyzer adapter (model id, temperature,
// max tokens, API key). Extend via functional options to preserve stability.
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

// Analyzer wraps the Anthropic Messages API behind the generic
// analyzer.Analyzer interface.
type Analyzer struct {
	client *anthropic.Client
	opts   Options
}

// New creates a new Anthropic analyzer using the official client.
func New(optFns ...func(o *Options)) *Analyzer {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.3,
		MaxTokens:   1024,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	client := anthropic.NewClient(clientOpts...)

	return &Analyzer{
		client: &client,
		opts:   opts,
	}
}

// NewFromClient creates a new Anthropic analyzer from an existing client.
func NewFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Analyzer {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.3,
		MaxTokens:   1024,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Analyzer{
		client: client,
		opts:   opts,
	}
}

// Analyze implements analyzer.Analyzer using a non-streaming Messages call.
func (a *Analyzer) Analyze(ctx context.Context, req analyzer.Request) (*analyzer.Result, error) {
	prompt := analyzer.BuildPrompt(req)

	params := anthropic.MessageNewParams{
		Model:       a.opts.Model,
		MaxTokens:   a.opts.MaxTokens,
		Temperature: anthropic.Float(a.opts.Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}

	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic api error: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text = block.AsText().Text
			break
		}
	}
	if text == "" {
		return nil, fmt.Errorf("anthropic response contained no text block")
	}

	return analyzer.ParseResult(text)
}
