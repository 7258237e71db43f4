package project

import (
	"context"
	"errors"
	"testing"

	"github.com/hupe1980/viewflow/analytics"
	"github.com/hupe1980/viewflow/api"
	"github.com/hupe1980/viewflow/core"
	"github.com/hupe1980/viewflow/internal/testutil"
	"github.com/hupe1980/viewflow/screen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var dice = api.Project{ID: 9, Name: "Dice", Slug: "dice", State: "live"}

func toggleClient() *api.MockClient {
	return &api.MockClient{
		FetchProjectFn: func(context.Context, string) (*api.Project, error) {
			p := dice
			return &p, nil
		},
		ToggleBookmarkFn: func(_ context.Context, p api.Project) (*api.Project, error) {
			out := p.WithStarred(!p.IsStarred)
			return &out, nil
		},
	}
}

type fixture struct {
	vm         *ViewModel
	user       *testutil.MutableUser
	client     *api.MockClient
	tracker    *analytics.Recorder
	saved      *testutil.Observer[bool]
	startLogin *testutil.Observer[struct{}]
	prompt     *testutil.Observer[struct{}]
	errors     *testutil.Observer[string]
}

func setup(t *testing.T, user *core.User, client *api.MockClient) *fixture {
	t.Helper()
	mu := testutil.NewMutableUser(user)
	tracker := analytics.NewRecorder()
	vm := New(screen.Environment{
		Session: core.SessionContext{CurrentUser: mu, Analytics: tracker},
		API:     client,
	}, dice)
	t.Cleanup(func() { _ = vm.Dispose() })

	f := &fixture{
		vm:         vm,
		user:       mu,
		client:     client,
		tracker:    tracker,
		saved:      testutil.NewObserver(vm.Saved.Observe),
		startLogin: testutil.NewObserver(vm.StartLogin.Observe),
		prompt:     testutil.NewObserver(vm.ShowSavedPrompt.Observe),
		errors:     testutil.NewObserver(vm.Error.Observe),
	}
	vm.Init()
	testutil.Settle(t, vm)
	return f
}

func TestProject_LoggedOutBookmarkStartsLogin(t *testing.T) {
	f := setup(t, nil, toggleClient())

	f.vm.BookmarkClicked.Push(struct{}{})
	testutil.Settle(t, f.vm)

	assert.Len(t, f.startLogin.Values(), 1)
	assert.Empty(t, f.saved.Values())
	assert.Equal(t, 0, f.client.Calls("ToggleBookmark"))
}

func TestProject_EachLoggedOutBookmarkStartsLogin(t *testing.T) {
	f := setup(t, nil, toggleClient())

	// The login screen was dismissed in between.
	f.vm.BookmarkClicked.Push(struct{}{})
	testutil.Settle(t, f.vm)
	f.vm.BookmarkClicked.Push(struct{}{})
	testutil.Settle(t, f.vm)

	assert.Len(t, f.startLogin.Values(), 2)
	assert.Empty(t, f.saved.Values())

	// Logging in completes the attempt once, not once per click.
	f.user.Set(testutil.NewUserBuilder().Build())
	testutil.Settle(t, f.vm)

	assert.Equal(t, []bool{true}, f.saved.Values())
	assert.Equal(t, 1, f.client.Calls("ToggleBookmark"))
}

func TestProject_NilToggleResultReportsError(t *testing.T) {
	client := toggleClient()
	client.ToggleBookmarkFn = func(context.Context, api.Project) (*api.Project, error) { return nil, nil }
	f := setup(t, testutil.NewUserBuilder().Build(), client)

	f.vm.BookmarkClicked.Push(struct{}{})
	testutil.Settle(t, f.vm)

	assert.Empty(t, f.saved.Values())
	require.Len(t, f.errors.Values(), 1)
	last, _ := f.errors.Last()
	assert.Contains(t, last, core.ErrEmptyResult.Error())
}

func TestProject_BookmarkCompletesAfterLogin(t *testing.T) {
	f := setup(t, nil, toggleClient())

	f.vm.BookmarkClicked.Push(struct{}{})
	testutil.Settle(t, f.vm)

	f.user.Set(testutil.NewUserBuilder().Build())
	testutil.Settle(t, f.vm)

	assert.Equal(t, []bool{true}, f.saved.Values())
	assert.Len(t, f.prompt.Values(), 1)
	assert.Equal(t, 1, f.client.Calls("ToggleBookmark"))
}

func TestProject_LoggedInToggle(t *testing.T) {
	f := setup(t, testutil.NewUserBuilder().Build(), toggleClient())

	f.vm.BookmarkClicked.Push(struct{}{})
	testutil.Settle(t, f.vm)
	f.vm.BookmarkClicked.Push(struct{}{})
	testutil.Settle(t, f.vm)

	assert.Equal(t, []bool{true, false}, f.saved.Values())
	assert.Len(t, f.prompt.Values(), 1)
	assert.Empty(t, f.startLogin.Values())
	assert.Equal(t, []string{screen.EventViewedProject, screen.EventSavedProject, screen.EventUnsavedProject}, f.tracker.Names())

	p, ok := f.vm.Project.Value()
	require.True(t, ok)
	assert.False(t, p.IsStarred)
}

func TestProject_ToggleFailureEmitsOneError(t *testing.T) {
	client := toggleClient()
	client.ToggleBookmarkFn = func(context.Context, api.Project) (*api.Project, error) {
		return nil, errors.New("network unreachable")
	}
	f := setup(t, testutil.NewUserBuilder().Build(), client)

	f.vm.BookmarkClicked.Push(struct{}{})
	testutil.Settle(t, f.vm)

	assert.Equal(t, []string{"network unreachable"}, f.errors.Values())
	assert.Empty(t, f.saved.Values())
}

func TestProject_InitRefreshesProject(t *testing.T) {
	client := toggleClient()
	client.FetchProjectFn = func(context.Context, string) (*api.Project, error) {
		p := dice
		p.Backers = 120
		return &p, nil
	}
	f := setup(t, nil, client)

	p, ok := f.vm.Project.Value()
	require.True(t, ok)
	assert.Equal(t, 120, p.Backers)
	assert.Equal(t, 1, f.tracker.Count(screen.EventViewedProject))
}
