package core

import "strconv"

// User is the logged-in account as seen by view-models. It is a plain value
// record; copy it and change fields instead of mutating a shared instance.
type User struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url,omitempty"`
	Country   string `json:"country,omitempty"`
	IsAdmin   bool   `json:"is_admin"`
	// Unseen counts unread activity items.
	Unseen int `json:"unseen_activity_count"`
}

// Key returns a stable identifier suitable for log fields and metric labels.
func (u User) Key() string { return "user-" + strconv.FormatInt(u.ID, 10) }

// Attributes exposes the user as a flat map for rule evaluation.
func (u *User) Attributes() map[string]any {
	if u == nil {
		return map[string]any{"id": int64(0), "name": "", "email": "", "country": "", "admin": false, "logged_in": false}
	}
	return map[string]any{
		"id":        u.ID,
		"name":      u.Name,
		"email":     u.Email,
		"country":   u.Country,
		"admin":     u.IsAdmin,
		"logged_in": true,
	}
}

// Clone returns a pointer to a copy of u, or nil when u is nil.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
