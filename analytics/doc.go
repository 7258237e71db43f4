// Package analytics provides core.Tracker implementations.
//
// Track is fire-and-forget everywhere: it never blocks the engine's main
// context and never fails visibly. RedisSink buffers events and pushes them
// to a Redis list from a background worker, dropping events when the buffer
// is full.
package analytics
