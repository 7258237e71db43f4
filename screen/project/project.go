// Package project implements the project page view-model, centered on the
// bookmark (save) button.
//
// Inputs: bookmarkClicked.
// Outputs:
//   - project (replay): the latest project record.
//   - saved (replay): bookmark state after each successful toggle.
//   - startLogin (event): the user must log in before bookmarking.
//   - showSavedPrompt (event): a project was just saved.
//   - error (event): the engine-wide error output.
//
// Every bookmark attempt made while logged out asks for a login. The attempt
// is completed automatically, once, when the user logs in.
package project

import (
	"context"

	"github.com/hupe1980/viewflow/api"
	"github.com/hupe1980/viewflow/core"
	"github.com/hupe1980/viewflow/engine"
	"github.com/hupe1980/viewflow/screen"
)

// Name identifies the screen.
const Name = "project"

// ViewModel is the project page.
type ViewModel struct {
	*engine.Engine

	BookmarkClicked *engine.Input[struct{}]

	Project         *engine.Output[api.Project]
	Saved           *engine.Output[bool]
	StartLogin      *engine.Output[struct{}]
	ShowSavedPrompt *engine.Output[struct{}]
	Error           *engine.Output[string]

	client api.Client

	// main context only
	project     api.Project
	pendingSave bool
}

// New builds the view-model for p.
func New(env screen.Environment, p api.Project) *ViewModel {
	e := env.NewEngine(Name)
	vm := &ViewModel{
		Engine:  e,
		client:  env.API,
		project: p,

		BookmarkClicked: engine.DeclareInput[struct{}](e, "bookmarkClicked"),

		Project:         engine.DeclareOutput[api.Project](e, "project", core.Replay),
		Saved:           engine.DeclareOutput[bool](e, "saved", core.Replay),
		StartLogin:      engine.DeclareOutput[struct{}](e, "startLogin", core.Event),
		ShowSavedPrompt: engine.DeclareOutput[struct{}](e, "showSavedPrompt", core.Event),
		Error:           e.Errors(),
	}

	e.OnInit(vm.init)
	vm.BookmarkClicked.On(vm.bookmark)

	return vm
}

func (vm *ViewModel) init(c *engine.Context) {
	vm.Project.Emit(vm.project)
	c.Track(screen.EventViewedProject, map[string]any{"project_id": vm.project.ID})

	slug := vm.project.Slug
	if slug != "" {
		engine.Call(c, func(ctx context.Context) (*api.Project, error) {
			return vm.client.FetchProject(ctx, slug)
		}, engine.CallOptions[*api.Project]{
			Name: "fetch_project",
			Key:  "project",
			OnSuccess: func(_ *engine.Context, p *api.Project) {
				vm.project = *p
				vm.Project.Emit(*p)
			},
		})
	}

	c.Engine().OnUser(func(c *engine.Context, u *core.User) {
		if u != nil && vm.pendingSave {
			vm.pendingSave = false
			vm.toggle(c)
		}
	})
}

func (vm *ViewModel) bookmark(c *engine.Context, _ struct{}) {
	if !c.LoggedIn() {
		vm.pendingSave = true
		vm.StartLogin.Emit(struct{}{})
		return
	}
	vm.toggle(c)
}

func (vm *ViewModel) toggle(c *engine.Context) {
	p := vm.project
	engine.Call(c, func(ctx context.Context) (*api.Project, error) {
		return vm.client.ToggleBookmark(ctx, p)
	}, engine.CallOptions[*api.Project]{
		Name: "toggle_bookmark",
		Key:  "bookmark",
		OnSuccess: func(c *engine.Context, updated *api.Project) {
			// Server responses may omit fields; keep what we know.
			next := vm.project.WithStarred(updated.IsStarred)
			vm.project = next
			vm.Project.Emit(next)
			vm.Saved.Emit(next.IsStarred)

			props := map[string]any{"project_id": next.ID}
			if next.IsStarred {
				c.Track(screen.EventSavedProject, props)
				vm.ShowSavedPrompt.Emit(struct{}{})
				return
			}
			c.Track(screen.EventUnsavedProject, props)
		},
	})
}
