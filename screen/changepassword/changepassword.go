// Package changepassword implements the change password view-model.
//
// Inputs: currentPassword, newPassword, confirmPassword (string), submit.
// Outputs:
//   - progressBarIsVisible (replay): true while the request runs.
//   - passwordWarning (replay): validation message, "" when none.
//   - saveButtonIsEnabled (replay): whether submit is accepted.
//   - success (event): the account email after a successful change.
//   - error (event): the engine-wide error output.
package changepassword

import (
	"context"

	"github.com/hupe1980/viewflow/api"
	"github.com/hupe1980/viewflow/core"
	"github.com/hupe1980/viewflow/engine"
	"github.com/hupe1980/viewflow/screen"
)

// Name identifies the screen.
const Name = "change_password"

// MinLength is the minimum accepted password length.
const MinLength = 6

// Validation messages emitted on passwordWarning.
const (
	WarningTooShort = "Your password must be at least 6 characters long."
	WarningMismatch = "New passwords must match."
)

// ViewModel is the change password screen.
type ViewModel struct {
	*engine.Engine

	CurrentPassword *engine.Input[string]
	NewPassword     *engine.Input[string]
	ConfirmPassword *engine.Input[string]
	Submit          *engine.Input[struct{}]

	ProgressBarIsVisible *engine.Output[bool]
	PasswordWarning      *engine.Output[string]
	SaveButtonIsEnabled  *engine.Output[bool]
	Success              *engine.Output[string]
	Error                *engine.Output[string]

	client api.Client

	// main context only
	current, next, confirm string
	warning                string
	enabled                bool
	hasState               bool
}

// New builds the view-model. Call Init once the screen is shown.
func New(env screen.Environment) *ViewModel {
	e := env.NewEngine(Name)
	vm := &ViewModel{
		Engine: e,
		client: env.API,

		CurrentPassword: engine.DeclareInput[string](e, "currentPassword"),
		NewPassword:     engine.DeclareInput[string](e, "newPassword"),
		ConfirmPassword: engine.DeclareInput[string](e, "confirmPassword"),
		Submit:          engine.DeclareInput[struct{}](e, "submit"),

		ProgressBarIsVisible: engine.DeclareOutput[bool](e, "progressBarIsVisible", core.Replay),
		PasswordWarning:      engine.DeclareOutput[string](e, "passwordWarning", core.Replay),
		SaveButtonIsEnabled:  engine.DeclareOutput[bool](e, "saveButtonIsEnabled", core.Replay),
		Success:              engine.DeclareOutput[string](e, "success", core.Event),
		Error:                e.Errors(),
	}

	e.OnInit(func(c *engine.Context) {
		c.Track(screen.EventViewedChangePassword, nil)
	})

	vm.CurrentPassword.On(func(_ *engine.Context, v string) {
		vm.current = v
		vm.validate()
	})
	vm.NewPassword.On(func(_ *engine.Context, v string) {
		vm.next = v
		vm.validate()
	})
	vm.ConfirmPassword.On(func(_ *engine.Context, v string) {
		vm.confirm = v
		vm.validate()
	})
	vm.Submit.On(vm.submit)

	return vm
}

// Warning derives the validation message for a new/confirm pair.
func Warning(next, confirm string) string {
	switch {
	case next != "" && len(next) < MinLength:
		return WarningTooShort
	case confirm != "" && next != confirm:
		return WarningMismatch
	default:
		return ""
	}
}

// Valid reports whether the form may be submitted.
func Valid(current, next, confirm string) bool {
	return current != "" && len(next) >= MinLength && next == confirm
}

func (vm *ViewModel) validate() {
	warning := Warning(vm.next, vm.confirm)
	enabled := Valid(vm.current, vm.next, vm.confirm)

	if !vm.hasState || warning != vm.warning {
		vm.warning = warning
		vm.PasswordWarning.Emit(warning)
	}
	if !vm.hasState || enabled != vm.enabled {
		vm.enabled = enabled
		vm.SaveButtonIsEnabled.Emit(enabled)
	}
	vm.hasState = true
}

func (vm *ViewModel) submit(c *engine.Context, _ struct{}) {
	if !Valid(vm.current, vm.next, vm.confirm) {
		c.LogDebug("Ignoring submit of invalid form", "screen", Name)
		return
	}

	current, next := vm.current, vm.next
	engine.Call(c, func(ctx context.Context) (string, error) {
		return vm.client.ChangePassword(ctx, current, next)
	}, engine.CallOptions[string]{
		Name:     "change_password",
		Key:      "submit",
		Progress: vm.ProgressBarIsVisible,
		OnSuccess: func(c *engine.Context, email string) {
			c.Track(screen.EventChangedPassword, nil)
			vm.Success.Emit(email)
		},
	})
}
