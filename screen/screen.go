// Package screen holds what every view-model needs: the Environment of
// shared collaborators and the analytics event names. Concrete view-models
// live in the sub-packages.
package screen

import (
	"time"

	"github.com/hupe1980/viewflow/api"
	"github.com/hupe1980/viewflow/assist"
	"github.com/hupe1980/viewflow/core"
	"github.com/hupe1980/viewflow/engine"
	"github.com/hupe1980/viewflow/logging"
)

// Analytics event names tracked by the screens.
const (
	EventViewedChangePassword = "Viewed Change Password"
	EventChangedPassword      = "Changed Password"
	EventViewedProject        = "Viewed Project"
	EventSavedProject         = "Saved Project"
	EventUnsavedProject       = "Unsaved Project"
	EventSearched             = "Searched"
	EventLoadedMoreResults    = "Loaded More Search Results"
	EventViewedMessages       = "Viewed Message Thread"
	EventSentMessage          = "Sent Message"
	EventRequestedSuggestion  = "Requested Reply Suggestion"
	EventViewedActivity       = "Viewed Activity"
)

// Feature flags consulted by the screens.
const (
	FlagAssistReplies = "assist_replies"
)

// Environment bundles the collaborators shared by all screens. The Session
// Context and the clients outlive every view-model built from it.
type Environment struct {
	Session   core.SessionContext
	API       api.Client
	Assist    assist.Suggester
	Logger    logging.Logger
	Clock     core.Clock
	Callbacks *engine.CallbackManager
	// Debounce is the search-as-you-type window. Zero uses the engine default.
	Debounce time.Duration
}

// NewEngine creates the engine for one screen instance.
func (env Environment) NewEngine(name string) *engine.Engine {
	logger := logging.ForComponent(env.Logger, "screen")
	return engine.New(env.Session, func(o *engine.Options) {
		o.Name = name
		o.Logger = logger
		o.Callbacks = env.Callbacks
		if env.Clock != nil {
			o.Clock = env.Clock
		}
		if env.Debounce > 0 {
			o.Config.DefaultDebounce = env.Debounce
		}
	})
}
