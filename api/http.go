package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hupe1980/viewflow/core"
	"github.com/hupe1980/viewflow/logging"
	"github.com/tidwall/gjson"
)

// Compile-time check that HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)

// HTTPOptions configures an HTTPClient.
type HTTPOptions struct {
	// Token returns the bearer token for each request; "" sends none.
	Token func() string
	// HTTPClient defaults to a client with Timeout.
	HTTPClient *http.Client
	Timeout    time.Duration
	Logger     logging.Logger
}

// HTTPClient talks to the JSON backend.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	token   func() string
	logger  logging.Logger
}

// NewHTTPClient creates a client rooted at baseURL.
func NewHTTPClient(baseURL string, optFns ...func(o *HTTPOptions)) *HTTPClient {
	opts := HTTPOptions{Timeout: 10 * time.Second}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.Token == nil {
		opts.Token = func() string { return "" }
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    opts.HTTPClient,
		token:   opts.Token,
		logger:  opts.Logger,
	}
}

// ChangePassword implements Client.
func (c *HTTPClient) ChangePassword(ctx context.Context, current, next string) (string, error) {
	body, err := c.do(ctx, http.MethodPut, "/v1/users/self/password", nil, map[string]string{
		"current_password":      current,
		"password":              next,
		"password_confirmation": next,
	})
	if err != nil {
		return "", err
	}
	return gjson.GetBytes(body, "user.email").String(), nil
}

// FetchCurrentUser implements Client.
func (c *HTTPClient) FetchCurrentUser(ctx context.Context) (*core.User, error) {
	body, err := c.do(ctx, http.MethodGet, "/v1/users/self", nil, nil)
	if err != nil {
		return nil, err
	}
	u := parseUser(gjson.ParseBytes(body))
	return &u, nil
}

// FetchProject implements Client.
func (c *HTTPClient) FetchProject(ctx context.Context, slug string) (*Project, error) {
	body, err := c.do(ctx, http.MethodGet, "/v1/projects/"+url.PathEscape(slug), nil, nil)
	if err != nil {
		return nil, err
	}
	p := parseProject(gjson.ParseBytes(body))
	return &p, nil
}

// ToggleBookmark implements Client. Starred projects are unstarred and vice
// versa; the server state is returned.
func (c *HTTPClient) ToggleBookmark(ctx context.Context, p Project) (*Project, error) {
	method := http.MethodPut
	if p.IsStarred {
		method = http.MethodDelete
	}
	body, err := c.do(ctx, method, "/v1/projects/"+strconv.FormatInt(p.ID, 10)+"/star", nil, nil)
	if err != nil {
		return nil, err
	}
	out := parseProject(gjson.GetBytes(body, "project"))
	return &out, nil
}

// SearchProjects implements Client.
func (c *HTTPClient) SearchProjects(ctx context.Context, params SearchParams) (*SearchPage, error) {
	q := url.Values{}
	q.Set("q", params.Query)
	if params.Page > 0 {
		q.Set("page", strconv.Itoa(params.Page))
	}
	if params.PerPage > 0 {
		q.Set("per_page", strconv.Itoa(params.PerPage))
	}
	body, err := c.do(ctx, http.MethodGet, "/v1/discover", q, nil)
	if err != nil {
		return nil, err
	}

	page := &SearchPage{Page: params.Page, HasMore: gjson.GetBytes(body, "more").Bool()}
	gjson.GetBytes(body, "projects").ForEach(func(_, v gjson.Result) bool {
		page.Projects = append(page.Projects, parseProject(v))
		return true
	})
	return page, nil
}

// FetchActivities implements Client.
func (c *HTTPClient) FetchActivities(ctx context.Context, page int) ([]Activity, error) {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	body, err := c.do(ctx, http.MethodGet, "/v1/activities", q, nil)
	if err != nil {
		return nil, err
	}

	var out []Activity
	gjson.GetBytes(body, "activities").ForEach(func(_, v gjson.Result) bool {
		out = append(out, Activity{
			ID:          v.Get("id").Int(),
			Category:    v.Get("category").String(),
			ProjectID:   v.Get("project.id").Int(),
			ProjectName: v.Get("project.name").String(),
			CreatedAt:   v.Get("created_at").Time(),
		})
		return true
	})
	return out, nil
}

// FetchThread implements Client.
func (c *HTTPClient) FetchThread(ctx context.Context, id int64) (*Thread, error) {
	body, err := c.do(ctx, http.MethodGet, "/v1/message_threads/"+strconv.FormatInt(id, 10)+"/messages", nil, nil)
	if err != nil {
		return nil, err
	}

	root := gjson.ParseBytes(body)
	t := &Thread{
		ID:          root.Get("message_thread.id").Int(),
		ProjectID:   root.Get("message_thread.project.id").Int(),
		ProjectName: root.Get("message_thread.project.name").String(),
		Participant: root.Get("message_thread.participant.name").String(),
	}
	root.Get("messages").ForEach(func(_, v gjson.Result) bool {
		t.Messages = append(t.Messages, parseMessage(v))
		return true
	})
	return t, nil
}

// SendMessage implements Client.
func (c *HTTPClient) SendMessage(ctx context.Context, threadID int64, body string) (*Message, error) {
	resp, err := c.do(ctx, http.MethodPost, "/v1/message_threads/"+strconv.FormatInt(threadID, 10)+"/messages", nil, map[string]string{"body": body})
	if err != nil {
		return nil, err
	}
	m := parseMessage(gjson.GetBytes(resp, "message"))
	return &m, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, query url.Values, payload any) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("api: encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("api: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("api: read response: %w", err)
	}

	c.logger.Debug("API request", "method", method, "path", path, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, parseError(resp.StatusCode, body)
	}
	return body, nil
}

func parseError(status int, body []byte) error {
	env := &ErrorEnvelope{HTTPCode: status, Code: http.StatusText(status)}
	if gjson.ValidBytes(body) {
		root := gjson.ParseBytes(body)
		if code := root.Get("code").String(); code != "" {
			env.Code = code
		}
		root.Get("error_messages").ForEach(func(_, v gjson.Result) bool {
			env.Messages = append(env.Messages, v.String())
			return true
		})
	}
	return env
}

func parseUser(r gjson.Result) core.User {
	return core.User{
		ID:        r.Get("id").Int(),
		Name:      r.Get("name").String(),
		Email:     r.Get("email").String(),
		AvatarURL: r.Get("avatar.medium").String(),
		Country:   r.Get("location.country").String(),
		IsAdmin:   r.Get("is_admin").Bool(),
		Unseen:    int(r.Get("unseen_activity_count").Int()),
	}
}

func parseProject(r gjson.Result) Project {
	return Project{
		ID:         r.Get("id").Int(),
		Name:       r.Get("name").String(),
		Slug:       r.Get("slug").String(),
		Blurb:      r.Get("blurb").String(),
		Creator:    r.Get("creator.name").String(),
		Category:   r.Get("category.name").String(),
		Country:    r.Get("country").String(),
		State:      r.Get("state").String(),
		Goal:       r.Get("goal").Float(),
		Pledged:    r.Get("pledged").Float(),
		Backers:    int(r.Get("backers_count").Int()),
		IsStarred:  r.Get("is_starred").Bool(),
		Deadline:   time.Unix(r.Get("deadline").Int(), 0).UTC(),
		LaunchedAt: time.Unix(r.Get("launched_at").Int(), 0).UTC(),
	}
}

func parseMessage(r gjson.Result) Message {
	return Message{
		ID:         r.Get("id").Int(),
		Body:       r.Get("body").String(),
		SenderID:   r.Get("sender.id").Int(),
		SenderName: r.Get("sender.name").String(),
		SentAt:     time.Unix(r.Get("created_at").Int(), 0).UTC(),
	}
}
