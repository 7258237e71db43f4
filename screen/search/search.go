// Package search implements search-as-you-type.
//
// Inputs: query (string, debounced), nextPage.
// Outputs:
//   - projects (replay): results for the latest settled query.
//   - isFetching (replay): true while a page request runs.
//   - hasMore (replay): whether nextPage can load more.
//   - error (event): the engine-wide error output.
//
// A newer query cancels any in-flight request, including pagination, and
// stale pages are never applied. Results of a previous query are cleared as
// soon as a different query starts, so a failed first page never leaves
// them paginating under the new query. An empty query clears the results
// without a request.
package search

import (
	"context"
	"strings"

	"github.com/hupe1980/viewflow/api"
	"github.com/hupe1980/viewflow/core"
	"github.com/hupe1980/viewflow/engine"
	"github.com/hupe1980/viewflow/screen"
)

// Name identifies the screen.
const Name = "search"

// DefaultPerPage is used when the perPage config value is unset.
const DefaultPerPage = 20

const callKey = "search"

// ViewModel is the search screen.
type ViewModel struct {
	*engine.Engine

	Query    *engine.Input[string]
	NextPage *engine.Input[struct{}]

	Projects   *engine.Output[[]api.Project]
	IsFetching *engine.Output[bool]
	HasMore    *engine.Output[bool]
	Error      *engine.Output[string]

	client api.Client

	// main context only
	query    string
	page     int
	more     bool
	loading  bool
	projects []api.Project
}

// New builds the view-model.
func New(env screen.Environment) *ViewModel {
	e := env.NewEngine(Name)
	vm := &ViewModel{
		Engine: e,
		client: env.API,

		Query:    engine.DeclareInput[string](e, "query"),
		NextPage: engine.DeclareInput[struct{}](e, "nextPage"),

		Projects:   engine.DeclareOutput[[]api.Project](e, "projects", core.Replay),
		IsFetching: engine.DeclareOutput[bool](e, "isFetching", core.Replay),
		HasMore:    engine.DeclareOutput[bool](e, "hasMore", core.Replay),
		Error:      e.Errors(),
	}

	engine.Debounce(vm.Query, env.Debounce).On(vm.search)
	vm.NextPage.On(vm.nextPage)

	return vm
}

func perPage(c *engine.Context) int {
	if n := c.Session().Config.Int("search_per_page"); n > 0 {
		return n
	}
	return DefaultPerPage
}

func (vm *ViewModel) search(c *engine.Context, raw string) {
	q := strings.TrimSpace(raw)
	if q == vm.query && (vm.page > 0 || vm.loading) {
		return
	}
	if q != vm.query {
		// Results and paging belong to the previous query.
		shown := len(vm.projects) > 0 || vm.more
		vm.page, vm.more, vm.projects = 0, false, nil
		if shown && q != "" {
			vm.Projects.Emit([]api.Project{})
			vm.HasMore.Emit(false)
		}
	}
	vm.query = q

	if q == "" {
		if c.Cancel(callKey) {
			c.LogDebug("Cancelled search for cleared query")
		}
		vm.page, vm.more, vm.loading = 0, false, false
		vm.projects = nil
		vm.Projects.Emit([]api.Project{})
		vm.HasMore.Emit(false)
		return
	}

	c.Track(screen.EventSearched, map[string]any{"query": q})
	vm.fetch(c, q, 1)
}

func (vm *ViewModel) nextPage(c *engine.Context, _ struct{}) {
	if vm.query == "" || !vm.more || vm.loading {
		return
	}
	c.Track(screen.EventLoadedMoreResults, map[string]any{"query": vm.query, "page": vm.page + 1})
	vm.fetch(c, vm.query, vm.page+1)
}

func (vm *ViewModel) fetch(c *engine.Context, q string, page int) {
	params := api.SearchParams{Query: q, Page: page, PerPage: perPage(c)}
	vm.loading = true

	engine.Call(c, func(ctx context.Context) (*api.SearchPage, error) {
		return vm.client.SearchProjects(ctx, params)
	}, engine.CallOptions[*api.SearchPage]{
		Name:     "search_projects",
		Key:      callKey,
		Progress: vm.IsFetching,
		Computes: []engine.Computer{vm.Projects},
		OnSuccess: func(_ *engine.Context, res *api.SearchPage) {
			vm.loading = false
			vm.page = page
			vm.more = res.HasMore
			if page == 1 {
				vm.projects = nil
			}
			vm.projects = append(vm.projects, res.Projects...)
			vm.Projects.Emit(append([]api.Project{}, vm.projects...))
			vm.HasMore.Emit(vm.more)
		},
		OnError: func(c *engine.Context, err error) {
			vm.loading = false
			c.Errors().Emit(core.ErrorMessage(err))
		},
	})
}
