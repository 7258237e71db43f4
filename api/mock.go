package api

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/viewflow/core"
)

// Compile-time check that MockClient implements Client.
var _ Client = (*MockClient)(nil)

// MockClient is a Client whose behavior is set per method. Unset methods
// fail with an error. Calls are counted per method name.
type MockClient struct {
	ChangePasswordFn   func(ctx context.Context, current, next string) (string, error)
	FetchCurrentUserFn func(ctx context.Context) (*core.User, error)
	FetchProjectFn     func(ctx context.Context, slug string) (*Project, error)
	ToggleBookmarkFn   func(ctx context.Context, p Project) (*Project, error)
	SearchProjectsFn   func(ctx context.Context, params SearchParams) (*SearchPage, error)
	FetchActivitiesFn  func(ctx context.Context, page int) ([]Activity, error)
	FetchThreadFn      func(ctx context.Context, id int64) (*Thread, error)
	SendMessageFn      func(ctx context.Context, threadID int64, body string) (*Message, error)

	mu    sync.Mutex
	calls map[string]int
}

// Calls returns how often method was invoked.
func (m *MockClient) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

func (m *MockClient) record(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = map[string]int{}
	}
	m.calls[method]++
}

func notConfigured(method string) error {
	return fmt.Errorf("mock: %s not configured", method)
}

func (m *MockClient) ChangePassword(ctx context.Context, current, next string) (string, error) {
	m.record("ChangePassword")
	if m.ChangePasswordFn == nil {
		return "", notConfigured("ChangePassword")
	}
	return m.ChangePasswordFn(ctx, current, next)
}

func (m *MockClient) FetchCurrentUser(ctx context.Context) (*core.User, error) {
	m.record("FetchCurrentUser")
	if m.FetchCurrentUserFn == nil {
		return nil, notConfigured("FetchCurrentUser")
	}
	return m.FetchCurrentUserFn(ctx)
}

func (m *MockClient) FetchProject(ctx context.Context, slug string) (*Project, error) {
	m.record("FetchProject")
	if m.FetchProjectFn == nil {
		return nil, notConfigured("FetchProject")
	}
	return m.FetchProjectFn(ctx, slug)
}

func (m *MockClient) ToggleBookmark(ctx context.Context, p Project) (*Project, error) {
	m.record("ToggleBookmark")
	if m.ToggleBookmarkFn == nil {
		return nil, notConfigured("ToggleBookmark")
	}
	return m.ToggleBookmarkFn(ctx, p)
}

func (m *MockClient) SearchProjects(ctx context.Context, params SearchParams) (*SearchPage, error) {
	m.record("SearchProjects")
	if m.SearchProjectsFn == nil {
		return nil, notConfigured("SearchProjects")
	}
	return m.SearchProjectsFn(ctx, params)
}

func (m *MockClient) FetchActivities(ctx context.Context, page int) ([]Activity, error) {
	m.record("FetchActivities")
	if m.FetchActivitiesFn == nil {
		return nil, notConfigured("FetchActivities")
	}
	return m.FetchActivitiesFn(ctx, page)
}

func (m *MockClient) FetchThread(ctx context.Context, id int64) (*Thread, error) {
	m.record("FetchThread")
	if m.FetchThreadFn == nil {
		return nil, notConfigured("FetchThread")
	}
	return m.FetchThreadFn(ctx, id)
}

func (m *MockClient) SendMessage(ctx context.Context, threadID int64, body string) (*Message, error) {
	m.record("SendMessage")
	if m.SendMessageFn == nil {
		return nil, notConfigured("SendMessage")
	}
	return m.SendMessageFn(ctx, threadID, body)
}
