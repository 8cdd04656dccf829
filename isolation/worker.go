package isolation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/birdayz/dagflow/frame"
)

// WorkerFunc is the user-supplied routine spec §4.7 calls
// sub_process_internal(ctx): it runs the entire lifetime of a worker
// process, reading input with WorkerContext.Recv and writing output
// with WorkerContext.Send.
type WorkerFunc func(ctx context.Context, wctx *WorkerContext) error

var (
	registryMu sync.Mutex
	workers    = map[string]WorkerFunc{}
)

// RegisterWorker makes fn runnable as an isolated worker under name.
// Call it from an init() or before Main(), in every binary that may
// be re-exec'd as this worker - the same binary plays both parent and
// worker roles.
func RegisterWorker(name string, fn WorkerFunc) {
	registryMu.Lock()
	defer registryMu.Unlock()
	workers[name] = fn
}

// Main checks whether this process was launched as a worker re-exec
// and, if so, runs the registered WorkerFunc and never returns
// (it calls os.Exit). Call it as the first statement of func main,
// before flag parsing or any other setup:
//
//	func main() {
//	    isolation.Main()
//	    // ordinary parent-process startup continues here
//	}
//
// If this process was not launched as a worker, Main returns
// immediately and normal startup proceeds.
func Main() {
	if len(os.Args) < 3 || os.Args[1] != reexecArg {
		return
	}
	name := os.Args[2]

	registryMu.Lock()
	fn, ok := workers[name]
	registryMu.Unlock()
	if !ok {
		fmt.Fprintf(os.Stderr, "isolation: %v: %q\n", ErrUnknownWorker, name)
		os.Exit(1)
	}

	wctx, err := newWorkerContext()
	if err != nil {
		fmt.Fprintf(os.Stderr, "isolation: building worker context: %v\n", err)
		os.Exit(1)
	}

	runErr := fn(context.Background(), wctx)
	if runErr != nil {
		// Best effort: tell the parent why, via the sentinel error
		// frame spec §6 describes, before exiting non-zero.
		_ = wctx.out.Put(context.Background(), envelope{Err: runErr.Error()}, wctx.putRetry)
	}
	wctx.out.Close()
	wctx.out.Wait()
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "isolation: worker %q failed: %v\n", name, runErr)
		os.Exit(1)
	}
	os.Exit(0)
}

// WorkerContext is what a WorkerFunc receives: the input/output
// queues, the stop/shutdown signals, the opaque argument bundle, and
// mapped shared-memory segments (spec §4.7).
type WorkerContext struct {
	Args map[string]string
	Shm  map[string]*Segment

	in       *readQueue
	out      *writeQueue
	putRetry time.Duration
	getWait  time.Duration

	stop, shutdown *Signal
}

func newWorkerContext() (*WorkerContext, error) {
	stopFile := os.NewFile(3, "dagflow-stop")
	shutdownFile := os.NewFile(4, "dagflow-shutdown")
	if stopFile == nil || shutdownFile == nil {
		return nil, ErrNotReexecInvoke
	}

	var args map[string]string
	if raw := os.Getenv(argsEnvVar); raw != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			return nil, fmt.Errorf("isolation: decoding %s: %w", argsEnvVar, err)
		}
	}

	shm := map[string]*Segment{}
	if raw := os.Getenv(shmEnvVar); raw != "" {
		var manifest []shmManifest
		if err := json.Unmarshal([]byte(raw), &manifest); err != nil {
			return nil, fmt.Errorf("isolation: decoding %s: %w", shmEnvVar, err)
		}
		for _, m := range manifest {
			seg, err := mapExisting(m)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrShmAlloc, m.Name, err)
			}
			shm[m.Name] = seg
		}
	}

	return &WorkerContext{
		Args:     args,
		Shm:      shm,
		in:       newReadQueue(os.Stdin, 64),
		out:      newWriteQueue(os.Stdout, 64),
		putRetry: 50 * time.Millisecond,
		getWait:  time.Second,
		stop:     newSignal(stopFile),
		shutdown: newSignal(shutdownFile),
	}, nil
}

// Stop is set by the parent when the graph ends normally.
func (w *WorkerContext) Stop() *Signal { return w.stop }

// Shutdown is set by the parent when it is terminating abnormally;
// when set alongside Stop, the worker should drain its input queue
// before exiting rather than discard it (spec §4.7).
func (w *WorkerContext) Shutdown() *Signal { return w.shutdown }

// Recv blocks for up to timeout for the next (pad, frame) pair sent
// via the parent's Pull. ok is false if the read timed out, or if the
// input closed because the parent fired Stop; err is non-nil only on a
// genuine queue failure or peer exit.
func (w *WorkerContext) Recv(timeout time.Duration) (pad string, f frame.Frame, ok bool, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	item, err := w.in.Get(ctx, timeout)
	if err != nil {
		if err == ErrGetTimedOut {
			return "", frame.Frame{}, false, nil
		}
		// Transport.Close fires stop before closing the input pipe, so
		// an input EOF that comes with stop fired is an orderly shutdown.
		if errors.Is(err, ErrWorkerExited) {
			select {
			case <-w.stop.Done():
				return "", frame.Frame{}, false, nil
			case <-time.After(w.getWait):
			}
		}
		return "", frame.Frame{}, false, err
	}
	return item.Pad, item.toFrame(), true, nil
}

// Send delivers f to the parent's New call on sourcePad, with the
// same bounded-retry semantics as the parent-side Pull.
func (w *WorkerContext) Send(sourcePad string, f frame.Frame) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return w.out.Put(ctx, toEnvelope(sourcePad, f), w.putRetry)
}

// pidTag is a small diagnostic helper worker implementations can use
// in logs to distinguish sibling worker processes.
func pidTag() string { return strconv.Itoa(os.Getpid()) }
