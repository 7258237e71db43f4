package testutil

import "github.com/hupe1980/viewflow/core"

// UserBuilder provides a fluent helper for constructing users in tests.
// Example:
//
//	u := testutil.NewUserBuilder().ID(7).Email("test@email.com").Build()
type UserBuilder struct {
	u core.User
}

// NewUserBuilder creates a builder with a default user.
func NewUserBuilder() *UserBuilder {
	return &UserBuilder{u: core.User{ID: 1, Name: "Test User", Email: "test@email.com", Country: "US"}}
}

// ID sets the user id (chainable).
func (b *UserBuilder) ID(id int64) *UserBuilder { b.u.ID = id; return b }

// Name sets the display name (chainable).
func (b *UserBuilder) Name(n string) *UserBuilder { b.u.Name = n; return b }

// Email sets the email (chainable).
func (b *UserBuilder) Email(e string) *UserBuilder { b.u.Email = e; return b }

// Country sets the country code (chainable).
func (b *UserBuilder) Country(c string) *UserBuilder { b.u.Country = c; return b }

// Admin marks the user as admin (chainable).
func (b *UserBuilder) Admin() *UserBuilder { b.u.IsAdmin = true; return b }

// Unseen sets the unseen activity count (chainable).
func (b *UserBuilder) Unseen(n int) *UserBuilder { b.u.Unseen = n; return b }

// Build returns the user.
func (b *UserBuilder) Build() *core.User {
	u := b.u
	return &u
}
