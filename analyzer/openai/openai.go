// Package openai provides an analyzer backed by the OpenAI Chat Completions
// API. It renders the shared prompt, performs a single non-streaming call and
// parses the JSON verdict out of the first choice.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/leadflow/leadflow/analyzer"
)

// Options configure the OpenAI analyzer adapter.
// Fields mirror a subset of Chat Completion parameters intentionally kept
// minimal; extend via functional options without breaking callers.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
	APIKey              string
}

// Analyzer wraps the OpenAI Chat Completions API behind the generic
// analyzer.Analyzer interface.
type Analyzer struct {
	client *openai.Client
	opts   Options
}

// New creates a new OpenAI analyzer using the official client.
func New(optFns ...func(o *Options)) *Analyzer {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := openai.NewClient(clientOpts...)
	return NewFromClient(&client, optFns...)
}

// NewFromClient creates a new OpenAI analyzer from an existing client.
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Analyzer {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.3,
		MaxCompletionTokens: 1024,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Analyzer{client: client, opts: opts}
}

// Analyze implements analyzer.Analyzer using a non-streaming completion.
func (a *Analyzer) Analyze(ctx context.Context, req analyzer.Request) (*analyzer.Result, error) {
	prompt := analyzer.BuildPrompt(req)

	params := openai.ChatCompletionNewParams{
		Model: a.opts.Model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature:         openai.Float(a.opts.Temperature),
		MaxCompletionTokens: openai.Int(a.opts.MaxCompletionTokens),
	}

	resp, err := a.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai response contained no choices")
	}

	return analyzer.ParseResult(resp.Choices[0].Message.Content)
}
