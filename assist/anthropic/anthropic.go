// Package anthropic suggests replies with the Anthropic Messages API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/hupe1980/viewflow/api"
	"github.com/hupe1980/viewflow/assist"
)

// Options configures the Anthropic suggester (model id, temperature, max
// tokens, API key). Extend via functional options to preserve stability.
type Options struct {
	Model        anthropic.Model
	Temperature  float64
	MaxTokens    int64
	APIKey       string
	Instructions string
	// MaxMessages bounds the transcript sent to the model.
	MaxMessages int
	// RequestOptions are passed to the client (base URL, retries, ...).
	RequestOptions []option.RequestOption
}

// Compile-time check that Suggester implements assist.Suggester.
var _ assist.Suggester = (*Suggester)(nil)

// Suggester wraps the Anthropic Messages API behind assist.Suggester.
type Suggester struct {
	client *anthropic.Client
	opts   Options
}

func defaultOptions() Options {
	return Options{
		Model:        anthropic.ModelClaude3_5Sonnet20241022,
		Temperature:  0.4,
		MaxTokens:    256,
		Instructions: assist.DefaultInstructions,
		MaxMessages:  20,
	}
}

// New creates a suggester using the official client.
func New(optFns ...func(o *Options)) *Suggester {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	clientOpts := append([]option.RequestOption(nil), opts.RequestOptions...)
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	client := anthropic.NewClient(clientOpts...)
	return &Suggester{client: &client, opts: opts}
}

// NewFromClient creates a suggester from an existing client.
func NewFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Suggester {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Suggester{client: client, opts: opts}
}

// Info describes the provider.
func (s *Suggester) Info() assist.Info {
	return assist.Info{Provider: "anthropic", Model: string(s.opts.Model)}
}

// Suggest implements assist.Suggester.
func (s *Suggester) Suggest(ctx context.Context, thread api.Thread) (string, error) {
	transcript, err := assist.Transcript(thread, s.opts.MaxMessages)
	if err != nil {
		return "", err
	}

	params := anthropic.MessageNewParams{
		Model:       s.opts.Model,
		MaxTokens:   s.opts.MaxTokens,
		Temperature: anthropic.Float(s.opts.Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(transcript)),
		},
	}
	system, err := assist.Instructions(s.opts.Instructions, thread)
	if err != nil {
		return "", err
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	resp, err := s.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic api error: %w", err)
	}

	var parts []string
	for _, block := range resp.Content {
		if block.Type == "text" {
			if text := strings.TrimSpace(block.AsText().Text); text != "" {
				parts = append(parts, text)
			}
		}
	}
	if len(parts) == 0 {
		return "", errors.New("anthropic: empty reply")
	}
	return strings.Join(parts, "\n"), nil
}
