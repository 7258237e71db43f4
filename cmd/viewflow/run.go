package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/hupe1980/viewflow"
	"github.com/hupe1980/viewflow/engine"
	"github.com/hupe1980/viewflow/stream"
	"github.com/spf13/cobra"
)

func newRunCmd(root *rootOptions) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml|->",
		Short: "Replay a scenario against a screen and print its outputs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := LoadScenario(args[0])
			if err != nil {
				return err
			}

			rt, err := root.runtime()
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close(context.Background()) }()

			return runScenario(cmd.Context(), rt, sc, cmd.OutOrStdout(), timeout)
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "maximum time to wait for a step to settle")

	return cmd
}

// printer writes one line per emission. Emissions of one engine arrive on its
// main context; the mutex guards against session steps interleaving.
type printer struct {
	mu sync.Mutex
	w  io.Writer
}

func (p *printer) print(output string, v any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	b, err := json.Marshal(v)
	if err != nil {
		fmt.Fprintf(p.w, "%s: %v\n", output, v)
		return
	}
	fmt.Fprintf(p.w, "%s: %s\n", output, b)
}

func (p *printer) note(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "# "+format+"\n", args...)
}

func runScenario(ctx context.Context, rt *viewflow.Runtime, sc *Scenario, w io.Writer, timeout time.Duration) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if sc.User != nil {
		if err := rt.Session().Login(ctx, sc.User.user(), sc.Token); err != nil {
			return err
		}
	}

	e, err := rt.NewScreen(sc.Screen, viewflow.ScreenParams{Project: sc.Project.project(), ThreadID: sc.Thread})
	if err != nil {
		return err
	}
	defer func() { _ = e.Dispose() }()

	p := &printer{w: w}
	subs := make([]stream.Subscription, 0, len(e.Outputs()))
	for _, name := range e.Outputs() {
		subs = append(subs, e.Output(name).SubscribeAny(func(v any) { p.print(name, v) }))
	}
	defer func() {
		for _, s := range subs {
			s.Release()
		}
	}()

	settle := func() error {
		sctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := e.Idle(sctx); err != nil {
			return fmt.Errorf("screen did not settle: %w", err)
		}
		return nil
	}

	e.Init()
	if err := settle(); err != nil {
		return err
	}

	for i, st := range sc.Steps {
		if err := runStep(ctx, rt, e, p, st); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
		if err := settle(); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	return nil
}

func runStep(ctx context.Context, rt *viewflow.Runtime, e *engine.Engine, p *printer, st Step) error {
	switch {
	case st.Input != "":
		typ, ok := e.InputType(st.Input)
		if !ok {
			return fmt.Errorf("screen %s has no input %q (inputs: %v)", e.Name(), st.Input, e.Inputs())
		}
		v, err := convert(typ, st.Value)
		if err != nil {
			return fmt.Errorf("input %s: %w", st.Input, err)
		}
		e.Push(st.Input, v)
	case st.Wait != "":
		d := waitDuration(st.Wait)
		p.note("wait %s", d)
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return ctx.Err()
		}
	case st.Login != nil:
		p.note("login %s", st.Login.user().Key())
		return rt.Session().Login(ctx, st.Login.user(), "")
	case st.Logout:
		p.note("logout")
		return rt.Session().Logout(ctx)
	}
	return nil
}

func newScreensCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "screens",
		Short: "List screens with their inputs and outputs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			root.demo = true
			rt, err := root.runtime()
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close(context.Background()) }()

			w := cmd.OutOrStdout()
			for _, name := range viewflow.Screens() {
				e, err := rt.NewScreen(name, viewflow.ScreenParams{})
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\n", name)
				for _, in := range e.Inputs() {
					typ, _ := e.InputType(in)
					fmt.Fprintf(w, "  in  %-22s %s\n", in, typ)
				}
				for _, out := range e.Outputs() {
					fmt.Fprintf(w, "  out %-22s %s\n", out, e.Output(out).Kind())
				}
				if err := e.Dispose(); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
