// Package engine implements the ViewModel Engine: the per-screen runtime that
// turns input events, Session Context changes and collaborator results into
// observable outputs.
//
// # Model
//
// Every Engine owns one mailbox processed by a single goroutine, the main
// context. Input pushes, collaborator results, debounce expiries, session and
// configuration notifications and subscription replays are all posted to the
// mailbox, so handlers and output callbacks never run concurrently and the
// emissions caused by one input happen in the order the handler performs
// them.
//
//	presentation ──Push──▶ mailbox ──▶ handlers ──Emit──▶ outputs ──▶ subscribers
//	                          ▲             │
//	                          │             └──Call──▶ goroutine(collaborator)
//	                          └──────────── result ◀────────┘
//
// # Declaring a screen
//
//	e := engine.New(sc, func(o *engine.Options) { o.Name = "change_password" })
//	submit := engine.DeclareInput[struct{}](e, "submit")
//	loading := engine.DeclareOutput[bool](e, "progressBarIsVisible", core.Replay)
//	submit.On(func(c *engine.Context, _ struct{}) {
//	    engine.Call(c, client.Save, engine.CallOptions[string]{Progress: loading})
//	})
//	e.Init()
//
// # Errors
//
// Collaborator failures (including panics inside the collaborator function,
// nil results and panics in result handlers) are converted into error output
// values and never terminate an output.
// Contract violations (undeclared names, wrong payload types, duplicate
// declarations) panic, since they are programming errors.
//
// # Lifecycle
//
// Dispose cancels in-flight calls, stops debounce timers, detaches session
// watchers and releases every subscription. Nothing is emitted afterwards.
package engine
