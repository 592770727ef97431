// Package task runs best-effort background work (playback, temp-file cleanup)
// that must never block the next user action. Failures and panics are logged
// and swallowed; callers that care can still observe them through a Handle.
package task

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
)

// Handle tracks one detached task
type Handle struct {
	name string
	done chan struct{}
	err  error
}

// Name returns the task name used in logs
func (h *Handle) Name() string {
	return h.name
}

// Done is closed when the task has finished
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the task finishes and returns its error
func (h *Handle) Wait() error {
	<-h.done
	return h.err
}

// Group owns a set of detached tasks sharing one cancellation scope
type Group struct {
	wg     conc.WaitGroup
	log    zerolog.Logger
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

// NewGroup creates a task group
func NewGroup(log zerolog.Logger) *Group {
	ctx, cancel := context.WithCancel(context.Background())
	return &Group{log: log, ctx: ctx, cancel: cancel}
}

// Go starts fn in the background and returns its handle.
// The context passed to fn is cancelled by Stop.
func (g *Group) Go(name string, fn func(ctx context.Context) error) *Handle {
	h := &Handle{name: name, done: make(chan struct{})}
	g.wg.Go(func() {
		defer close(h.done)

		var pc panics.Catcher
		pc.Try(func() { h.err = fn(g.ctx) })
		if r := pc.Recovered(); r != nil {
			h.err = r.AsError()
		}

		if h.err != nil && g.ctx.Err() == nil {
			g.log.Warn().Err(h.err).Str("task", name).Msg("background task failed")
		}
	})
	return h
}

// Wait blocks until every started task has finished
func (g *Group) Wait() {
	g.wg.Wait()
}

// Stop cancels the shared context and waits for running tasks
func (g *Group) Stop() {
	g.once.Do(g.cancel)
	g.wg.Wait()
}
