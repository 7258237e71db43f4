// Package messages implements a message thread with an optional assisted
// reply.
//
// Inputs: replyChanged (string), send, suggestReply.
// Outputs:
//   - messages (replay): the thread's messages, oldest first.
//   - sendEnabled (replay): a non-blank reply exists and nothing is sending.
//   - sending (replay): a message is being sent.
//   - suggestVisible (replay): the assist_replies flag is on and a suggester
//     is configured. Re-evaluated on config reload.
//   - isSuggesting (replay): a suggestion is being generated.
//   - suggestedReply (replay): the latest suggestion.
//   - clearReply (event): the composer should be emptied.
//   - error (event): the engine-wide error output.
package messages

import (
	"context"
	"strings"

	"github.com/hupe1980/viewflow/api"
	"github.com/hupe1980/viewflow/assist"
	"github.com/hupe1980/viewflow/core"
	"github.com/hupe1980/viewflow/engine"
	"github.com/hupe1980/viewflow/screen"
)

// Name identifies the screen.
const Name = "messages"

// ViewModel is the message thread screen.
type ViewModel struct {
	*engine.Engine

	ReplyChanged *engine.Input[string]
	Send         *engine.Input[struct{}]
	SuggestReply *engine.Input[struct{}]

	Messages       *engine.Output[[]api.Message]
	SendEnabled    *engine.Output[bool]
	Sending        *engine.Output[bool]
	SuggestVisible *engine.Output[bool]
	IsSuggesting   *engine.Output[bool]
	SuggestedReply *engine.Output[string]
	ClearReply     *engine.Output[struct{}]
	Error          *engine.Output[string]

	client    api.Client
	suggester assist.Suggester
	threadID  int64

	// main context only
	thread  api.Thread
	reply   string
	sending bool
	enabled bool
	suggest bool
}

// New builds the view-model for the thread with the given id.
func New(env screen.Environment, threadID int64) *ViewModel {
	e := env.NewEngine(Name)
	vm := &ViewModel{
		Engine:    e,
		client:    env.API,
		suggester: env.Assist,
		threadID:  threadID,
		thread:    api.Thread{ID: threadID},

		ReplyChanged: engine.DeclareInput[string](e, "replyChanged"),
		Send:         engine.DeclareInput[struct{}](e, "send"),
		SuggestReply: engine.DeclareInput[struct{}](e, "suggestReply"),

		Messages:       engine.DeclareOutput[[]api.Message](e, "messages", core.Replay),
		SendEnabled:    engine.DeclareOutput[bool](e, "sendEnabled", core.Replay),
		Sending:        engine.DeclareOutput[bool](e, "sending", core.Replay),
		SuggestVisible: engine.DeclareOutput[bool](e, "suggestVisible", core.Replay),
		IsSuggesting:   engine.DeclareOutput[bool](e, "isSuggesting", core.Replay),
		SuggestedReply: engine.DeclareOutput[string](e, "suggestedReply", core.Replay),
		ClearReply:     engine.DeclareOutput[struct{}](e, "clearReply", core.Event),
		Error:          e.Errors(),
	}

	e.OnInit(vm.init)
	vm.ReplyChanged.On(vm.replyChanged)
	vm.Send.On(vm.send)
	vm.SuggestReply.On(vm.suggestReply)

	return vm
}

func (vm *ViewModel) init(c *engine.Context) {
	vm.SendEnabled.Emit(false)
	vm.refreshSuggest(c, true)
	c.Track(screen.EventViewedMessages, map[string]any{"thread_id": vm.threadID})

	id := vm.threadID
	engine.Call(c, func(ctx context.Context) (*api.Thread, error) {
		return vm.client.FetchThread(ctx, id)
	}, engine.CallOptions[*api.Thread]{
		Name:     "fetch_thread",
		Key:      "thread",
		Computes: []engine.Computer{vm.Messages},
		OnSuccess: func(_ *engine.Context, t *api.Thread) {
			// Messages sent while loading are kept.
			sent := vm.thread.Messages
			vm.thread = *t
			for _, m := range sent {
				vm.thread = vm.thread.WithMessage(m)
			}
			vm.emitMessages()
		},
	})

	c.Engine().OnConfig(func(c *engine.Context, _ core.ConfigProvider) {
		vm.refreshSuggest(c, false)
	})
}

func (vm *ViewModel) refreshSuggest(c *engine.Context, force bool) {
	on := vm.suggester != nil && c.Enabled(screen.FlagAssistReplies)
	if on == vm.suggest && !force {
		return
	}
	vm.suggest = on
	vm.SuggestVisible.Emit(on)
}

func (vm *ViewModel) emitMessages() {
	vm.Messages.Emit(append([]api.Message{}, vm.thread.Messages...))
}

func (vm *ViewModel) updateEnabled() {
	enabled := !vm.sending && strings.TrimSpace(vm.reply) != ""
	if enabled == vm.enabled {
		return
	}
	vm.enabled = enabled
	vm.SendEnabled.Emit(enabled)
}

func (vm *ViewModel) replyChanged(_ *engine.Context, v string) {
	vm.reply = v
	vm.updateEnabled()
}

func (vm *ViewModel) send(c *engine.Context, _ struct{}) {
	if !vm.enabled {
		return
	}
	body := strings.TrimSpace(vm.reply)
	id := vm.threadID

	vm.sending = true
	vm.updateEnabled()

	engine.Call(c, func(ctx context.Context) (*api.Message, error) {
		return vm.client.SendMessage(ctx, id, body)
	}, engine.CallOptions[*api.Message]{
		Name:     "send_message",
		Key:      "send",
		Progress: vm.Sending,
		OnSuccess: func(c *engine.Context, m *api.Message) {
			vm.sending = false
			vm.thread = vm.thread.WithMessage(*m)
			vm.emitMessages()
			vm.reply = ""
			vm.ClearReply.Emit(struct{}{})
			vm.updateEnabled()
			c.Track(screen.EventSentMessage, map[string]any{"thread_id": id})
		},
		OnError: func(c *engine.Context, err error) {
			vm.sending = false
			vm.updateEnabled()
			c.Errors().Emit(core.ErrorMessage(err))
		},
	})
}

func (vm *ViewModel) suggestReply(c *engine.Context, _ struct{}) {
	if !vm.suggest {
		c.LogDebug("Ignored suggestion request", "screen", Name, "reason", "disabled")
		return
	}
	if len(vm.thread.Messages) == 0 {
		c.Errors().Emit(core.ErrorMessage(assist.ErrEmptyThread))
		return
	}

	c.Track(screen.EventRequestedSuggestion, map[string]any{"thread_id": vm.threadID})
	thread := vm.thread
	engine.Call(c, func(ctx context.Context) (string, error) {
		return vm.suggester.Suggest(ctx, thread)
	}, engine.CallOptions[string]{
		Name:     "suggest_reply",
		Key:      "suggest",
		Progress: vm.IsSuggesting,
		Computes: []engine.Computer{vm.SuggestedReply},
		OnSuccess: func(_ *engine.Context, s string) {
			vm.SuggestedReply.Emit(strings.TrimSpace(s))
		},
	})
}
