// Package activity implements the activity feed of the logged-in user.
//
// Inputs: refresh.
// Outputs:
//   - activities (replay): the feed, newest first as returned by the API.
//   - isFetching (replay): a feed request is running.
//   - loggedOutEmptyState (replay): no user is logged in.
//   - error (event): the engine-wide error output.
//
// The feed follows the session: logging in loads it, logging out cancels any
// request and clears it.
package activity

import (
	"context"

	"github.com/hupe1980/viewflow/api"
	"github.com/hupe1980/viewflow/core"
	"github.com/hupe1980/viewflow/engine"
	"github.com/hupe1980/viewflow/screen"
)

// Name identifies the screen.
const Name = "activity"

const callKey = "activities"

// ViewModel is the activity feed.
type ViewModel struct {
	*engine.Engine

	Refresh *engine.Input[struct{}]

	Activities          *engine.Output[[]api.Activity]
	IsFetching          *engine.Output[bool]
	LoggedOutEmptyState *engine.Output[bool]
	Error               *engine.Output[string]

	client api.Client

	// main context only
	userID   int64
	loggedIn bool
	known    bool
}

// New builds the view-model.
func New(env screen.Environment) *ViewModel {
	e := env.NewEngine(Name)
	vm := &ViewModel{
		Engine: e,
		client: env.API,

		Refresh: engine.DeclareInput[struct{}](e, "refresh"),

		Activities:          engine.DeclareOutput[[]api.Activity](e, "activities", core.Replay),
		IsFetching:          engine.DeclareOutput[bool](e, "isFetching", core.Replay),
		LoggedOutEmptyState: engine.DeclareOutput[bool](e, "loggedOutEmptyState", core.Replay),
		Error:               e.Errors(),
	}

	e.OnInit(func(c *engine.Context) {
		c.Track(screen.EventViewedActivity, nil)
		c.Engine().OnUser(vm.userChanged)
	})
	vm.Refresh.On(vm.refresh)

	return vm
}

func (vm *ViewModel) userChanged(c *engine.Context, u *core.User) {
	if u == nil {
		if vm.known && !vm.loggedIn {
			return
		}
		vm.known, vm.loggedIn, vm.userID = true, false, 0
		c.Cancel(callKey)
		vm.LoggedOutEmptyState.Emit(true)
		vm.Activities.Emit([]api.Activity{})
		return
	}

	// A refresh of the same user keeps the feed.
	if vm.known && vm.loggedIn && vm.userID == u.ID {
		return
	}
	vm.known, vm.loggedIn, vm.userID = true, true, u.ID
	vm.LoggedOutEmptyState.Emit(false)
	vm.load(c)
}

func (vm *ViewModel) refresh(c *engine.Context, _ struct{}) {
	if !vm.loggedIn {
		return
	}
	vm.load(c)
}

func (vm *ViewModel) load(c *engine.Context) {
	engine.Call(c, func(ctx context.Context) ([]api.Activity, error) {
		return vm.client.FetchActivities(ctx, 1)
	}, engine.CallOptions[[]api.Activity]{
		Name:     "fetch_activities",
		Key:      callKey,
		Progress: vm.IsFetching,
		Computes: []engine.Computer{vm.Activities},
		OnSuccess: func(_ *engine.Context, as []api.Activity) {
			if as == nil {
				as = []api.Activity{}
			}
			vm.Activities.Emit(as)
		},
	})
}
