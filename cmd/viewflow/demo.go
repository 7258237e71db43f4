package main

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/viewflow/api"
	"github.com/hupe1980/viewflow/assist"
	"github.com/hupe1980/viewflow/core"
)

// demoPages is the number of search pages the demo backend returns.
const demoPages = 3

// newDemoClient returns an in-process backend with plausible responses.
// The password "wrong" is rejected so error paths can be replayed.
func newDemoClient(current func() *core.User) *api.MockClient {
	var (
		mu     sync.Mutex
		nextID int64 = 100
	)
	id := func() int64 {
		mu.Lock()
		defer mu.Unlock()
		nextID++
		return nextID
	}

	return &api.MockClient{
		ChangePasswordFn: func(_ context.Context, currentPassword, _ string) (string, error) {
			if currentPassword == "wrong" {
				return "", &api.ErrorEnvelope{HTTPCode: 400, Code: "invalid_password", Messages: []string{"Current password is incorrect"}}
			}
			u := current()
			if u == nil {
				return "", core.ErrLoggedOut
			}
			return u.Email, nil
		},
		FetchCurrentUserFn: func(context.Context) (*core.User, error) {
			u := current()
			if u == nil {
				return nil, core.ErrLoggedOut
			}
			return u, nil
		},
		FetchProjectFn: func(_ context.Context, slug string) (*api.Project, error) {
			p := demoProject(1, slug)
			return &p, nil
		},
		ToggleBookmarkFn: func(_ context.Context, p api.Project) (*api.Project, error) {
			out := p.WithStarred(!p.IsStarred)
			return &out, nil
		},
		SearchProjectsFn: func(_ context.Context, params api.SearchParams) (*api.SearchPage, error) {
			per := params.PerPage
			if per <= 0 || per > 5 {
				per = 5
			}
			page := &api.SearchPage{Page: params.Page, HasMore: params.Page < demoPages}
			for i := 1; i <= per; i++ {
				n := (params.Page-1)*per + i
				page.Projects = append(page.Projects, demoProject(int64(n), fmt.Sprintf("%s-%d", slugify(params.Query), n)))
			}
			return page, nil
		},
		FetchActivitiesFn: func(context.Context, int) ([]api.Activity, error) {
			now := time.Now().UTC().Truncate(time.Hour)
			return []api.Activity{
				{ID: 2, Category: "update", ProjectID: 1, ProjectName: "Demo Project", CreatedAt: now},
				{ID: 1, Category: "backing", ProjectID: 1, ProjectName: "Demo Project", CreatedAt: now.Add(-time.Hour)},
			}, nil
		},
		FetchThreadFn: func(_ context.Context, threadID int64) (*api.Thread, error) {
			return &api.Thread{
				ID:          threadID,
				ProjectID:   1,
				ProjectName: "Demo Project",
				Participant: "Backer",
				Messages: []api.Message{
					{ID: 1, Body: "Hi! When will the rewards ship?", SenderID: 7, SenderName: "Backer"},
				},
			}, nil
		},
		SendMessageFn: func(_ context.Context, _ int64, body string) (*api.Message, error) {
			m := &api.Message{ID: id(), Body: body, SenderName: "You"}
			if u := current(); u != nil {
				m.SenderID, m.SenderName = u.ID, u.Name
			}
			return m, nil
		},
	}
}

func demoSuggester() *assist.MockSuggester {
	return &assist.MockSuggester{Replies: []string{"Thanks for asking! Rewards ship next month."}}
}

func demoProject(id int64, slug string) api.Project {
	return api.Project{
		ID:      id,
		Slug:    slug,
		Name:    strings.ReplaceAll(slug, "-", " "),
		Creator: "Demo Creator",
		State:   "live",
		Goal:    1000,
		Pledged: 420,
		Backers: 12,
	}
}

func slugify(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), "-"))
}
