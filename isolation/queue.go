package isolation

import (
	"context"
	"encoding/gob"
	"fmt"
	"io"
	"time"

	"github.com/birdayz/dagflow/frame"
)

// Payload types traveling through an opaque any must be known to gob
// up front. The common scalar kinds are pre-registered here; a
// caller whose payloads are a custom struct must gob.Register it
// itself before starting a Transport, same as with any other gob use.
func init() {
	gob.Register(int(0))
	gob.Register(int64(0))
	gob.Register(float64(0))
	gob.Register(string(""))
	gob.Register(bool(false))
	gob.Register([]byte(nil))
}

// envelope is the wire representation of one queue item. Payloads
// travel through encoding/gob rather than one of the teacher's
// schema-typed serializers (kserde/serde/kproto): those all assume a
// known key/value Go type registered up front, whereas a Frame's
// payload here is deliberately opaque (spec §1 Non-goals). gob's
// interface-value support, driven by the caller registering concrete
// payload types with gob.Register, is the only serializer in the
// examined stack that can carry an any without a schema.
type envelope struct {
	Pad        string
	Payload    any
	HasPayload bool
	EOS        bool
	// Err carries a worker-side fatal error as the "distinguished
	// sentinel frame" spec §6 calls for, instead of a payload.
	Err string
}

func toEnvelope(pad string, f frame.Frame) envelope {
	payload, has := f.Payload()
	return envelope{Pad: pad, Payload: payload, HasPayload: has, EOS: f.IsEOS()}
}

func (e envelope) toFrame() frame.Frame {
	switch {
	case e.HasPayload && e.EOS:
		return frame.EOSWithPayload(e.Payload)
	case e.EOS:
		return frame.EOS()
	default:
		return frame.New(e.Payload)
	}
}

// writeQueue is a bounded FIFO from a producer goroutine's Put calls
// to a single background encoder goroutine draining into an
// io.WriteCloser (the peer's stdin or stdout pipe). Boundedness comes
// from the buffered channel's capacity; Put retries with backoff
// until ctx is done, matching spec §4.7's "bounded-retry put".
type writeQueue struct {
	ch      chan envelope
	closed  chan struct{}
	errs    chan error
	drained chan struct{}
}

func newWriteQueue(w io.WriteCloser, capacity int) *writeQueue {
	q := &writeQueue{
		ch:      make(chan envelope, capacity),
		closed:  make(chan struct{}),
		errs:    make(chan error, 1),
		drained: make(chan struct{}),
	}
	go q.drain(w)
	return q
}

func (q *writeQueue) drain(w io.WriteCloser) {
	defer close(q.drained)
	enc := gob.NewEncoder(w)
	defer w.Close()
	for item := range q.ch {
		if err := enc.Encode(item); err != nil {
			select {
			case q.errs <- err:
			default:
			}
			return
		}
	}
}

// Wait blocks until every queued item has been encoded and the
// underlying writer closed. A worker process MUST call this after
// Close and before exiting, or buffered output can be lost when the
// process terminates before the background encoder goroutine runs.
func (q *writeQueue) Wait() { <-q.drained }

// Put enqueues item, retrying every retryDelay while the channel is
// full, until ctx is cancelled.
func (q *writeQueue) Put(ctx context.Context, item envelope, retryDelay time.Duration) error {
	t := time.NewTicker(retryDelay)
	defer t.Stop()
	for {
		select {
		case q.ch <- item:
			return nil
		case <-q.closed:
			return ErrQueueClosed
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrPutTimedOut, ctx.Err())
		case <-t.C:
			continue
		}
	}
}

// Close stops accepting new items and lets the drain goroutine flush
// and close the underlying writer. Idempotent.
func (q *writeQueue) Close() {
	select {
	case <-q.closed:
	default:
		close(q.closed)
		close(q.ch)
	}
}

// readQueue is the receiving half: a background decoder goroutine
// fills a buffered channel from an io.ReadCloser (the peer's stdout
// or stdin pipe), and Get blocks with a timeout.
type readQueue struct {
	ch   chan envelope
	errs chan error
}

func newReadQueue(r io.ReadCloser, capacity int) *readQueue {
	q := &readQueue{ch: make(chan envelope, capacity), errs: make(chan error, 1)}
	go q.fill(r)
	return q
}

func (q *readQueue) fill(r io.ReadCloser) {
	dec := gob.NewDecoder(r)
	defer close(q.ch)
	for {
		var item envelope
		if err := dec.Decode(&item); err != nil {
			if err != io.EOF {
				select {
				case q.errs <- err:
				default:
				}
			}
			return
		}
		q.ch <- item
	}
}

// Get blocks for up to timeout for the next item, or until ctx is
// cancelled.
func (q *readQueue) Get(ctx context.Context, timeout time.Duration) (envelope, error) {
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case item, ok := <-q.ch:
		if !ok {
			select {
			case err := <-q.errs:
				return envelope{}, fmt.Errorf("%w: %v", ErrWorkerExited, err)
			default:
				return envelope{}, ErrWorkerExited
			}
		}
		return item, nil
	case <-t.C:
		return envelope{}, ErrGetTimedOut
	case <-ctx.Done():
		return envelope{}, ctx.Err()
	}
}
