// Package testutil contains helpers used across tests: an observer that
// records output emissions, a manually advanced clock, Session Context
// doubles and a fluent user builder. They are not intended for production
// usage.
package testutil
