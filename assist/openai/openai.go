// Package openai suggests replies with the OpenAI Chat Completions API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/viewflow/api"
	"github.com/hupe1980/viewflow/assist"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Options configure the OpenAI suggester.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
	Instructions        string
	MaxMessages         int
	RequestOptions      []option.RequestOption
}

// Compile-time check that Suggester implements assist.Suggester.
var _ assist.Suggester = (*Suggester)(nil)

// Suggester wraps the OpenAI Chat Completions API behind assist.Suggester.
type Suggester struct {
	client *openai.Client
	opts   Options
}

// New creates a suggester using the official client. The API key is read
// from OPENAI_API_KEY unless given through RequestOptions.
func New(optFns ...func(o *Options)) *Suggester {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	client := openai.NewClient(opts.RequestOptions...)
	return &Suggester{client: &client, opts: opts}
}

// NewFromClient creates a suggester from an existing client.
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Suggester {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Suggester{client: client, opts: opts}
}

func defaultOptions() Options {
	return Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.4,
		MaxCompletionTokens: 256,
		Instructions:        assist.DefaultInstructions,
		MaxMessages:         20,
	}
}

// Info describes the provider.
func (s *Suggester) Info() assist.Info {
	return assist.Info{Provider: "openai", Model: s.opts.Model}
}

// Suggest implements assist.Suggester.
func (s *Suggester) Suggest(ctx context.Context, thread api.Thread) (string, error) {
	transcript, err := assist.Transcript(thread, s.opts.MaxMessages)
	if err != nil {
		return "", err
	}

	system, err := assist.Instructions(s.opts.Instructions, thread)
	if err != nil {
		return "", err
	}

	var messages []openai.ChatCompletionMessageParamUnion
	if system != "" {
		messages = append(messages, openai.SystemMessage(system))
	}
	messages = append(messages, openai.UserMessage(transcript))

	resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages:            messages,
		Model:               s.opts.Model,
		Temperature:         openai.Float(s.opts.Temperature),
		MaxCompletionTokens: openai.Int(s.opts.MaxCompletionTokens),
	})
	if err != nil {
		return "", fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: no choices returned")
	}

	reply := strings.TrimSpace(resp.Choices[0].Message.Content)
	if reply == "" {
		return "", errors.New("openai: empty reply")
	}
	return reply, nil
}
