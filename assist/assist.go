// Package assist suggests replies for message threads. Providers live in
// sub-packages (anthropic, openai); MockSuggester serves tests and offline
// runs.
package assist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/hupe1980/viewflow/api"
	"github.com/hupe1980/viewflow/internal/prompt"
)

// ErrEmptyThread is returned when there is nothing to reply to.
var ErrEmptyThread = errors.New("assist: thread has no messages")

// DefaultInstructions steer providers towards short, friendly replies. The
// text is a template, see Instructions.
const DefaultInstructions = `You help the creator of {{ default "a crowdfunding project" .project }} answer ` +
	`{{ default "a backer" .participant }}. Write one short, friendly reply to the last message. ` +
	`Reply with the message text only.`

// Instructions renders an instructions template for thread. Templates see
// .project, .participant and .messages (the message count) and may use the
// default, upper, lower, title and join functions.
func Instructions(text string, thread api.Thread) (string, error) {
	return prompt.Render(text, map[string]any{
		"project":     thread.ProjectName,
		"participant": thread.Participant,
		"messages":    len(thread.Messages),
	})
}

// Suggester proposes a reply for a thread.
type Suggester interface {
	Suggest(ctx context.Context, thread api.Thread) (string, error)
}

// Info describes a provider.
type Info struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// Transcript renders the last max messages of thread as "Name: body" lines.
// A max of zero or less renders everything.
func Transcript(thread api.Thread, max int) (string, error) {
	msgs := thread.Messages
	if len(msgs) == 0 {
		return "", ErrEmptyThread
	}
	if max > 0 && len(msgs) > max {
		msgs = msgs[len(msgs)-max:]
	}

	var b strings.Builder
	if thread.ProjectName != "" {
		fmt.Fprintf(&b, "Project: %s\n", thread.ProjectName)
	}
	for _, m := range msgs {
		name := m.SenderName
		if name == "" {
			name = "Unknown"
		}
		fmt.Fprintf(&b, "%s: %s\n", name, strings.TrimSpace(m.Body))
	}
	return b.String(), nil
}

// Compile-time check that MockSuggester implements Suggester.
var _ Suggester = (*MockSuggester)(nil)

// MockSuggester returns canned replies in order, repeating the last one.
type MockSuggester struct {
	Replies []string
	Err     error

	mu    sync.Mutex
	calls int
}

// Suggest implements Suggester.
func (m *MockSuggester) Suggest(ctx context.Context, thread api.Thread) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(thread.Messages) == 0 {
		return "", ErrEmptyThread
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.Replies) == 0 {
		return "Thanks for your message!", nil
	}
	idx := min(m.calls-1, len(m.Replies)-1)
	return m.Replies[idx], nil
}

// Calls returns the number of Suggest calls.
func (m *MockSuggester) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
