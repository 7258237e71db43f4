// Package core provides the foundational domain types and small interfaces
// shared by every viewflow package. It defines the abstractions for:
//
//   - Users (the logged-in account record exposed by the session holder)
//   - SessionContext (externally owned collaborators injected into engines)
//   - CurrentUser / ConfigProvider / Tracker (observe-only collaborator views)
//   - OutputKind (replay vs. single-shot output semantics)
//   - Clock / Timer (time source used for debouncing)
//   - Contract errors raised when the presentation layer misuses an engine
//
// The package intentionally keeps implementation concerns (the engine loop,
// session authority, configuration loading, analytics sinks) out of scope so
// collaborators can be swapped in tests and production alike.
package core
