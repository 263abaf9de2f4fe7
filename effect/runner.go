// Package effect runs fire-and-forget side effects after a pipeline has
// produced a valid entity, and writes their results back through storage.
package effect

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/uber-go/tally/v4"

	"github.com/reoring/plasm"
)

// Inserter is the write-back target, usually *repo.Repository.
type Inserter interface {
	Insert(ctx context.Context, in plasm.Result) (plasm.Result, error)
}

// SideEffect is an action scheduled for a stored entity. It receives a copy of
// the entity and reports what should happen next through its Outcome.
type SideEffect func(ctx context.Context, e plasm.Entity) (Outcome, error)

type outcomeKind int

const (
	outcomeDone outcomeKind = iota
	outcomeMerge
	outcomeFail
)

// Outcome is the completion value of a SideEffect.
type Outcome struct {
	kind outcomeKind
	cs   plasm.Changeset
	msg  string
}

// Done reports success with nothing to write back.
func Done() Outcome { return Outcome{} }

// Merge asks the runner to insert cs, typically to record an identifier
// produced by an external system.
func Merge(cs plasm.Changeset) Outcome { return Outcome{kind: outcomeMerge, cs: cs} }

// Fail reports a soft failure. msg is logged; nothing is retried.
func Fail(msg string) Outcome { return Outcome{kind: outcomeFail, msg: msg} }

// SideEffectError describes a side effect that failed after the response was sent.
type SideEffectError struct {
	TaskID string
	Schema string
	Msg    string
	Err    error
}

func (e *SideEffectError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("effect %s on %s: %v", e.TaskID, e.Schema, e.Err)
	}
	return fmt.Sprintf("effect %s on %s: %s", e.TaskID, e.Schema, e.Msg)
}

func (e *SideEffectError) Unwrap() error { return e.Err }

type taskKey struct{}

// TaskID returns the id of the side effect task running with ctx.
func TaskID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(taskKey{}).(string)
	return id, ok
}

// Runner owns every scheduled task. Tasks are bound to the runner's base
// context, not to the request that scheduled them.
type Runner struct {
	store Inserter
	log   *slog.Logger
	scope tally.Scope
	base  context.Context

	// mu orders wg.Add against Shutdown; no task starts once closed is set.
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger that receives side effect failures.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.log = l
		}
	}
}

// WithScope sets the metrics scope. The default is tally.NoopScope.
func WithScope(s tally.Scope) Option {
	return func(r *Runner) {
		if s != nil {
			r.scope = s
		}
	}
}

// WithBaseContext sets the context every task derives from.
func WithBaseContext(ctx context.Context) Option {
	return func(r *Runner) {
		if ctx != nil {
			r.base = ctx
		}
	}
}

// NewRunner returns a Runner writing Merge outcomes to store.
func NewRunner(store Inserter, opts ...Option) *Runner {
	r := &Runner{
		store: store,
		log:   slog.Default(),
		scope: tally.NoopScope,
		base:  context.Background(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Wrap turns fx into a pipeline stage. Failed results pass through without
// scheduling anything. Otherwise fx is started in the background and the
// input is returned immediately. After Shutdown has begun, fx is dropped and
// logged instead.
func (r *Runner) Wrap(fx SideEffect) plasm.Stage {
	return func(_ context.Context, in plasm.Result) (plasm.Result, error) {
		e, ok := in.Entity()
		if !ok {
			return in, nil
		}
		r.schedule(fx, snapshot(e))
		return in, nil
	}
}

func (r *Runner) schedule(fx SideEffect, e plasm.Entity) {
	id := uuid.NewString()
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.scope.Counter("rejected").Inc(1)
		r.log.Warn("side effect dropped, runner is shut down",
			slog.String("task", id),
			slog.String("schema", schemaName(e)))
		return
	}
	r.wg.Add(1)
	r.mu.Unlock()
	r.scope.Counter("scheduled").Inc(1)
	go func() {
		defer r.wg.Done()
		ctx := context.WithValue(r.base, taskKey{}, id)
		start := time.Now()
		err := r.run(ctx, fx, e)
		r.scope.Timer("latency").Record(time.Since(start))
		if err != nil {
			r.scope.Counter("failed").Inc(1)
			r.log.ErrorContext(ctx, "side effect failed",
				slog.String("task", id),
				slog.String("schema", schemaName(e)),
				slog.Any("error", err))
			return
		}
		r.scope.Counter("completed").Inc(1)
	}()
}

func (r *Runner) run(ctx context.Context, fx SideEffect, e plasm.Entity) (err error) {
	id, _ := TaskID(ctx)
	fail := func(msg string, cause error) error {
		return &SideEffectError{TaskID: id, Schema: schemaName(e), Msg: msg, Err: cause}
	}
	defer func() {
		if p := recover(); p != nil {
			err = fail("", fmt.Errorf("panic: %v", p))
		}
	}()

	out, err := fx(ctx, e)
	if err != nil {
		return fail("", err)
	}
	switch out.kind {
	case outcomeFail:
		return fail(out.msg, nil)
	case outcomeMerge:
		if _, err := r.store.Insert(ctx, plasm.Ok(out.cs.Entity())); err != nil {
			return fail("", err)
		}
		r.scope.Counter("merged").Inc(1)
	}
	return nil
}

// Shutdown stops accepting tasks, then waits for in-flight ones or for ctx to
// end, whichever is first.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func snapshot(e plasm.Entity) plasm.Entity {
	e.Values = maps.Clone(e.Values)
	if e.Presence != nil {
		e.Presence = maps.Clone(e.Presence)
	}
	return e
}

func schemaName(e plasm.Entity) string {
	if e.Schema == nil {
		return ""
	}
	return e.Schema.Name()
}
