// Package scheduler drives a validated kdag.DAG to completion. It owns
// the single-threaded tick loop of spec §4.5: deliver pending frames,
// call internal, pull fresh frames from sources, fan them out, and
// repeat until every source pad has sent EOS and every sink pad's
// slot is empty.
//
// Grounded on the teacher's internal/execution.TaskManager loop shape
// (Assigned/Commit driving Tasks in a fixed order) and app.go's Run,
// which supervises the drive loop with an errgroup.Group so a fatal
// error anywhere cancels the rest of the run.
package scheduler

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/birdayz/dagflow/kdag"
)

// Transport is implemented by anything the scheduler must tear down
// alongside the tick loop when a run ends, whatever the exit path -
// normally the process-isolation transports bound to process-hosted
// elements. Modeled loosely so scheduler never imports isolation.
type Transport interface {
	// Close performs the scoped teardown of spec §4.7: signal
	// shutdown and stop, join or force-kill workers, release shared
	// memory. Idempotent.
	Close() error
}

// Scheduler drives one DAG. It is not safe for concurrent use: spec
// §5 requires a single tick driver.
type Scheduler struct {
	dag        *kdag.DAG
	log        logr.Logger
	transports []Transport
	ticks      int
}

// Option configures a Scheduler at construction.
type Option func(*Scheduler)

// WithLogger attaches a pluggable logr.Logger sink, in the teacher's
// own WithLogr(logr.Logger) idiom (stream.go): the caller supplies
// whatever backend it likes - zerologr.New wrapping a zerolog.Logger,
// or any other logr.LogSink - and this package never hard-codes one.
func WithLogger(l logr.Logger) Option {
	return func(s *Scheduler) { s.log = l }
}

// WithTransports registers isolation transports whose lifecycle is
// bound to this scheduler's Run: they are closed on every exit path.
func WithTransports(transports ...Transport) Option {
	return func(s *Scheduler) { s.transports = append(s.transports, transports...) }
}

// New builds a Scheduler over an already-validated DAG.
func New(dag *kdag.DAG, opts ...Option) *Scheduler {
	s := &Scheduler{dag: dag, log: logr.Discard()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ticks reports how many scheduling ticks Run has completed so far.
func (s *Scheduler) Ticks() int { return s.ticks }

// Run drives ticks until termination (spec §4.6), ctx is cancelled, or
// a fatal error occurs. On any exit path it tears down registered
// transports and aggregates their close errors with the run error via
// multierr, mirroring the teacher's task.Close aggregation.
func (s *Scheduler) Run(ctx context.Context) (err error) {
	defer func() {
		for _, t := range s.transports {
			err = multierr.Append(err, t.Close())
		}
	}()

	grp, gctx := errgroup.WithContext(ctx)
	grp.Go(func() error { return s.driveLoop(gctx) })

	return grp.Wait()
}

func (s *Scheduler) driveLoop(ctx context.Context) error {
	for {
		if s.dag.Terminated() {
			s.log.V(1).Info("graph terminated", "ticks", s.ticks)
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := s.tick(); err != nil {
			return err
		}
		s.ticks++
	}
}

// tick executes one full pass over the DAG's topological order, per
// spec §4.5.
func (s *Scheduler) tick() error {
	graph := s.dag.Graph()

	for _, name := range s.dag.Order() {
		e, ok := graph.Element(name)
		if !ok {
			return fmt.Errorf("%w: element %q vanished from graph mid-run", ErrInvariantViolated, name)
		}

		for _, padName := range e.SnkOrder() {
			sink := e.Snks()[padName]
			f, ok := sink.Pending()
			if !ok {
				continue
			}
			if err := sink.Deliver(f); err != nil {
				return fmt.Errorf("%w: %s: %v", ErrElementFailed, sink.FullName(), err)
			}
			sink.ClearPending()
		}

		if err := e.Internal(); err != nil {
			return fmt.Errorf("%w: %s:internal: %v", ErrElementFailed, e.Name(), err)
		}

		for _, padName := range e.SrcOrder() {
			src := e.Srcs()[padName]
			if src.EOSSent() {
				continue
			}
			f, err := src.Call()
			if err != nil {
				return fmt.Errorf("%w: %s: %v", ErrElementFailed, src.FullName(), err)
			}
			for _, sink := range src.Sinks() {
				if err := sink.SetPending(f); err != nil {
					return fmt.Errorf("%w: %v", ErrInvariantViolated, err)
				}
			}
		}
	}

	return nil
}
