package api

import (
	"context"

	"github.com/hupe1980/viewflow/core"
)

// Client is the backend collaborator. Every method is a single asynchronous
// fetch or update returning one value or an error.
type Client interface {
	ChangePassword(ctx context.Context, current, next string) (email string, err error)
	FetchCurrentUser(ctx context.Context) (*core.User, error)
	FetchProject(ctx context.Context, slug string) (*Project, error)
	ToggleBookmark(ctx context.Context, p Project) (*Project, error)
	SearchProjects(ctx context.Context, params SearchParams) (*SearchPage, error)
	FetchActivities(ctx context.Context, page int) ([]Activity, error)
	FetchThread(ctx context.Context, id int64) (*Thread, error)
	SendMessage(ctx context.Context, threadID int64, body string) (*Message, error)
}
