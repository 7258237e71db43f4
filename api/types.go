package api

import (
	"strings"
	"time"
)

// Project is a crowdfunding project as shown on project and search screens.
type Project struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Slug       string    `json:"slug"`
	Blurb      string    `json:"blurb,omitempty"`
	Creator    string    `json:"creator"`
	Category   string    `json:"category,omitempty"`
	Country    string    `json:"country,omitempty"`
	State      string    `json:"state"`
	Goal       float64   `json:"goal"`
	Pledged    float64   `json:"pledged"`
	Backers    int       `json:"backers_count"`
	IsStarred  bool      `json:"is_starred"`
	Deadline   time.Time `json:"deadline"`
	LaunchedAt time.Time `json:"launched_at"`
}

// Percent returns the funding percentage.
func (p Project) Percent() float64 {
	if p.Goal <= 0 {
		return 0
	}
	return p.Pledged / p.Goal * 100
}

// Live reports whether the project still accepts pledges.
func (p Project) Live() bool { return p.State == "live" }

// WithStarred returns a copy with IsStarred set.
func (p Project) WithStarred(starred bool) Project {
	p.IsStarred = starred
	return p
}

// Activity is one entry of the activity feed.
type Activity struct {
	ID          int64     `json:"id"`
	Category    string    `json:"category"`
	ProjectID   int64     `json:"project_id"`
	ProjectName string    `json:"project_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// Message is one message of a thread.
type Message struct {
	ID         int64     `json:"id"`
	Body       string    `json:"body"`
	SenderID   int64     `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	SentAt     time.Time `json:"sent_at"`
}

// Thread is a conversation between a backer and a creator about a project.
type Thread struct {
	ID          int64     `json:"id"`
	ProjectID   int64     `json:"project_id"`
	ProjectName string    `json:"project_name"`
	Participant string    `json:"participant"`
	Messages    []Message `json:"messages"`
}

// WithMessage returns a copy with m appended.
func (t Thread) WithMessage(m Message) Thread {
	msgs := make([]Message, 0, len(t.Messages)+1)
	msgs = append(msgs, t.Messages...)
	t.Messages = append(msgs, m)
	return t
}

// SearchParams selects a page of search results.
type SearchParams struct {
	Query   string
	Page    int
	PerPage int
}

// SearchPage is one page of search results.
type SearchPage struct {
	Projects []Project `json:"projects"`
	Page     int       `json:"page"`
	HasMore  bool      `json:"more"`
}

// ErrorEnvelope is the error body returned by the backend. Its messages are
// safe to show to users.
type ErrorEnvelope struct {
	HTTPCode int      `json:"http_code"`
	Code     string   `json:"code"`
	Messages []string `json:"error_messages"`
}

func (e *ErrorEnvelope) Error() string {
	msg := strings.Join(e.Messages, "; ")
	if msg == "" {
		msg = "request failed"
	}
	return "api: " + e.Code + ": " + msg
}

// UserMessage returns the first message. It implements core.UserMessenger.
func (e *ErrorEnvelope) UserMessage() string {
	if len(e.Messages) == 0 {
		return ""
	}
	return e.Messages[0]
}
