package changepassword

import (
	"context"
	"testing"

	"github.com/hupe1980/viewflow/analytics"
	"github.com/hupe1980/viewflow/api"
	"github.com/hupe1980/viewflow/core"
	"github.com/hupe1980/viewflow/internal/testutil"
	"github.com/hupe1980/viewflow/screen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	vm       *ViewModel
	client   *api.MockClient
	tracker  *analytics.Recorder
	progress *testutil.Observer[bool]
	warning  *testutil.Observer[string]
	enabled  *testutil.Observer[bool]
	success  *testutil.Observer[string]
	errors   *testutil.Observer[string]
}

func setup(t *testing.T, client *api.MockClient) *fixture {
	t.Helper()
	tracker := analytics.NewRecorder()
	vm := New(screen.Environment{
		Session: core.SessionContext{
			CurrentUser: testutil.NewMutableUser(testutil.NewUserBuilder().Build()),
			Analytics:   tracker,
		},
		API: client,
	})
	t.Cleanup(func() { _ = vm.Dispose() })

	f := &fixture{
		vm:       vm,
		client:   client,
		tracker:  tracker,
		progress: testutil.NewObserver(vm.ProgressBarIsVisible.Observe),
		warning:  testutil.NewObserver(vm.PasswordWarning.Observe),
		enabled:  testutil.NewObserver(vm.SaveButtonIsEnabled.Observe),
		success:  testutil.NewObserver(vm.Success.Observe),
		errors:   testutil.NewObserver(vm.Error.Observe),
	}
	vm.Init()
	return f
}

func TestChangePassword_Success(t *testing.T) {
	f := setup(t, &api.MockClient{
		ChangePasswordFn: func(_ context.Context, current, next string) (string, error) {
			assert.Equal(t, "password", current)
			assert.Equal(t, "password", next)
			return "test@email.com", nil
		},
	})

	f.vm.CurrentPassword.Push("password")
	f.vm.NewPassword.Push("password")
	f.vm.ConfirmPassword.Push("password")
	f.vm.Submit.Push(struct{}{})
	testutil.Settle(t, f.vm)

	assert.Equal(t, []bool{true, false}, f.progress.Values())
	assert.Equal(t, []string{"test@email.com"}, f.success.Values())
	assert.Equal(t, []string{}, f.errors.Values())
	assert.Equal(t, []string{screen.EventViewedChangePassword, screen.EventChangedPassword}, f.tracker.Names())
}

func TestChangePassword_Failure(t *testing.T) {
	f := setup(t, &api.MockClient{
		ChangePasswordFn: func(context.Context, string, string) (string, error) {
			return "", &api.ErrorEnvelope{HTTPCode: 422, Messages: []string{"Current password is incorrect"}}
		},
	})

	f.vm.CurrentPassword.Push("wrong-password")
	f.vm.NewPassword.Push("password")
	f.vm.ConfirmPassword.Push("password")
	f.vm.Submit.Push(struct{}{})
	testutil.Settle(t, f.vm)

	assert.Equal(t, []bool{true, false}, f.progress.Values())
	assert.Empty(t, f.success.Values())
	assert.Equal(t, []string{"Current password is incorrect"}, f.errors.Values())
	assert.Equal(t, 0, f.tracker.Count(screen.EventChangedPassword))
}

func TestChangePassword_Validation(t *testing.T) {
	f := setup(t, &api.MockClient{})

	f.vm.CurrentPassword.Push("old")
	f.vm.NewPassword.Push("new")
	f.vm.NewPassword.Push("newpassword")
	f.vm.ConfirmPassword.Push("newpass")
	f.vm.ConfirmPassword.Push("newpassword")
	testutil.Settle(t, f.vm)

	assert.Equal(t, []string{"", WarningTooShort, "", WarningMismatch, ""}, f.warning.Values())
	assert.Equal(t, []bool{false, true}, f.enabled.Values())
}

func TestChangePassword_InvalidSubmitIsIgnored(t *testing.T) {
	f := setup(t, &api.MockClient{})

	f.vm.NewPassword.Push("password")
	f.vm.ConfirmPassword.Push("different")
	f.vm.Submit.Push(struct{}{})
	testutil.Settle(t, f.vm)

	assert.Equal(t, 0, f.client.Calls("ChangePassword"))
	assert.Empty(t, f.progress.Values())
}

func TestChangePassword_SameInputTwiceIsIdempotent(t *testing.T) {
	f := setup(t, &api.MockClient{
		ChangePasswordFn: func(context.Context, string, string) (string, error) { return "test@email.com", nil },
	})

	for i := 0; i < 2; i++ {
		f.vm.CurrentPassword.Push("password")
		f.vm.NewPassword.Push("password")
		f.vm.ConfirmPassword.Push("password")
		f.vm.Submit.Push(struct{}{})
		testutil.Settle(t, f.vm)
	}

	assert.Equal(t, []string{"test@email.com", "test@email.com"}, f.success.Values())
	assert.Equal(t, []bool{true, false, true, false}, f.progress.Values())
	assert.Equal(t, []bool{false, true}, f.enabled.Values())
}

func TestChangePassword_LateSubscriberSeesState(t *testing.T) {
	f := setup(t, &api.MockClient{})
	f.vm.NewPassword.Push("abc")
	testutil.Settle(t, f.vm)

	late := testutil.NewObserver(f.vm.PasswordWarning.Observe)
	testutil.Settle(t, f.vm)
	assert.Equal(t, []string{WarningTooShort}, late.Values())
}

func TestWarningAndValid(t *testing.T) {
	tests := []struct {
		current, next, confirm string
		warning                string
		valid                  bool
	}{
		{"", "", "", "", false},
		{"old", "12345", "", WarningTooShort, false},
		{"old", "123456", "1234567", WarningMismatch, false},
		{"old", "123456", "", "", false},
		{"", "123456", "123456", "", false},
		{"old", "123456", "123456", "", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.warning, Warning(tt.next, tt.confirm), "%+v", tt)
		assert.Equal(t, tt.valid, Valid(tt.current, tt.next, tt.confirm), "%+v", tt)
	}
	require.Equal(t, 6, MinLength)
}
