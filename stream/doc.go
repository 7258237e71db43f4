// Package stream implements the output side of a view-model: a typed Signal
// holding the latest value of one named output, and Subscriptions binding a
// consumer callback to it.
//
// A Signal is either Replay (state: late subscribers receive the current
// value) or Event (single-shot: late subscribers only see later values). All
// deliveries for one subscriber are strictly ordered and never duplicated,
// even when the replay of the current value races with a fresh emission.
//
// Where callbacks run is decided by a Dispatcher. The engine passes its own
// mailbox so that every callback executes on the engine's main context.
package stream
