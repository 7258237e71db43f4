// Package api defines the backend collaborator the screens call: the Client
// interface, the records it returns, an HTTP implementation and a
// configurable mock for tests.
package api
