package isolation

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"

	"github.com/birdayz/dagflow/frame"
)

const (
	reexecArg  = "__dagflow_worker__"
	shmEnvVar  = "DAGFLOW_SHM"
	argsEnvVar = "DAGFLOW_WORKER_ARGS"
)

// Config configures one process-hosted element.
type Config struct {
	// Worker is the name a WorkerFunc was registered under via
	// RegisterWorker in the same binary.
	Worker string
	// Args is an opaque argument bundle handed to the worker
	// (spec §4.7's "opaque argument dictionary"), JSON-encoded across
	// the re-exec boundary.
	Args map[string]string
	// Shm creates one named segment per entry before the worker is
	// spawned.
	Shm map[string][]byte
	// ShmSize enlarges a segment's allocated size, zero-padding past
	// the initial bytes; a value not larger than len(initial bytes) is
	// ignored, and entries not listed here are sized to len(initial
	// bytes).
	ShmSize map[string]int

	QueueCapacity int
	PutRetryDelay time.Duration
	GetTimeout    time.Duration
	JoinTimeout   time.Duration
}

func (c Config) withDefaults() Config {
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = 64
	}
	if c.PutRetryDelay <= 0 {
		c.PutRetryDelay = 50 * time.Millisecond
	}
	if c.GetTimeout <= 0 {
		c.GetTimeout = time.Second
	}
	if c.JoinTimeout <= 0 {
		c.JoinTimeout = 5 * time.Second
	}
	return c
}

// Transport hosts one element's internal work in a worker subprocess.
// It implements pad.Owner (Pull/New) so it can sit behind an ordinary
// element.Element via element.Hooks, and scheduler.Transport so its
// scoped teardown runs alongside the graph run.
type Transport struct {
	cfg Config
	log logr.Logger

	cmd *exec.Cmd
	in  *writeQueue
	out *readQueue

	stopSrc, shutdownSrc *signalSource
	shm                  registry

	stopping  atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// Start spawns the worker process and arms the transport's two
// signals (spec §4.7 "on graph construction, the wrapper forks/spawns
// the worker process and arms the two signals").
func Start(cfg Config, opts ...Option) (*Transport, error) {
	cfg = cfg.withDefaults()
	t := &Transport{cfg: cfg, log: logr.Discard()}
	for _, opt := range opts {
		opt(t)
	}

	for name, initial := range cfg.Shm {
		size := len(initial)
		if s, ok := cfg.ShmSize[name]; ok && s > size {
			size = s
		}
		if _, err := t.shm.create(name, initial, size); err != nil {
			_ = t.shm.releaseAll()
			return nil, err
		}
	}

	self, err := os.Executable()
	if err != nil {
		_ = t.shm.releaseAll()
		return nil, fmt.Errorf("isolation: resolving self executable: %w", err)
	}

	stopSrc, stopR, err := newSignalPipe()
	if err != nil {
		_ = t.shm.releaseAll()
		return nil, err
	}
	shutdownSrc, shutdownR, err := newSignalPipe()
	if err != nil {
		_ = t.shm.releaseAll()
		return nil, err
	}
	t.stopSrc, t.shutdownSrc = stopSrc, shutdownSrc

	cmd := exec.Command(self, reexecArg, cfg.Worker)
	cmd.Stderr = os.Stderr
	cmd.ExtraFiles = []*os.File{stopR, shutdownR}

	manifest := make([]shmManifest, 0, len(t.shm.segments))
	for _, seg := range t.shm.segments {
		manifest = append(manifest, shmManifest{Name: seg.Name, Path: seg.Path, Size: len(seg.Bytes())})
	}
	manifestJSON, err := json.Marshal(manifest)
	if err != nil {
		_ = t.shm.releaseAll()
		return nil, err
	}
	argsJSON, err := json.Marshal(cfg.Args)
	if err != nil {
		_ = t.shm.releaseAll()
		return nil, err
	}
	cmd.Env = append(os.Environ(), shmEnvVar+"="+string(manifestJSON), argsEnvVar+"="+string(argsJSON))

	stdin, err := cmd.StdinPipe()
	if err != nil {
		_ = t.shm.releaseAll()
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		_ = t.shm.releaseAll()
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		_ = t.shm.releaseAll()
		return nil, fmt.Errorf("isolation: starting worker %q: %w", cfg.Worker, err)
	}
	// The child holds its own dup of the read ends now.
	_ = stopR.Close()
	_ = shutdownR.Close()

	t.cmd = cmd
	t.in = newWriteQueue(stdin, cfg.QueueCapacity)
	t.out = newReadQueue(stdout, cfg.QueueCapacity)

	t.log.Info("worker started", "worker", cfg.Worker, "pid", cmd.Process.Pid, "shm_segments", len(t.shm.segments))
	return t, nil
}

// Option configures a Transport at Start time.
type Option func(*Transport)

// WithLogger attaches a pluggable logr.Logger sink, matching the
// teacher's own public WithLogr(logr.Logger) option on Streamz
// (stream.go): the caller picks the concrete backend - this package
// only ever calls through the logr.Logger facade.
func WithLogger(l logr.Logger) Option {
	return func(t *Transport) { t.log = l }
}

// Pull implements pad.Owner: it enqueues (pad, frame) to the worker's
// input queue with a bounded-retry put.
func (t *Transport) Pull(sinkPad string, f frame.Frame) error {
	ctx, cancel := context.WithTimeout(context.Background(), t.cfg.JoinTimeout)
	defer cancel()
	if err := t.in.Put(ctx, toEnvelope(sinkPad, f), t.cfg.PutRetryDelay); err != nil {
		return fmt.Errorf("isolation: pull %s: %w", sinkPad, err)
	}
	return nil
}

// New implements pad.Owner: it blocks on the worker's output queue
// with a bounded timeout, looping while stop is unset, per spec §5's
// suspension-point rule.
func (t *Transport) New(sourcePad string) (frame.Frame, error) {
	for {
		if t.stopping.Load() {
			return frame.Frame{}, fmt.Errorf("isolation: new %s: %w", sourcePad, ErrGetTimedOut)
		}

		ctx, cancel := context.WithTimeout(context.Background(), t.cfg.GetTimeout)
		item, err := t.out.Get(ctx, t.cfg.GetTimeout)
		cancel()
		if err == nil {
			if item.Err != "" {
				return frame.Frame{}, fmt.Errorf("%w: %s", ErrWorkerFailed, item.Err)
			}
			return item.toFrame(), nil
		}
		if err == ErrGetTimedOut {
			continue
		}
		return frame.Frame{}, fmt.Errorf("isolation: new %s: %w", sourcePad, err)
	}
}

// Close performs the scoped teardown of spec §4.7: fire shutdown,
// fire stop, wait for the worker within JoinTimeout, force-kill past
// that, then release shared memory. Every step runs even if an
// earlier one errored; idempotent via sync.Once.
func (t *Transport) Close() error {
	t.stopping.Store(true)
	t.closeOnce.Do(func() {
		t.log.V(1).Info("closing transport", "worker", t.cfg.Worker)
		if t.shutdownSrc != nil {
			t.shutdownSrc.Fire()
		}
		if t.stopSrc != nil {
			t.stopSrc.Fire()
		}
		if t.in != nil {
			t.in.Close()
		}

		if t.cmd != nil && t.cmd.Process != nil {
			done := make(chan error, 1)
			go func() { done <- t.cmd.Wait() }()

			select {
			case err := <-done:
				if err != nil {
					t.closeErr = fmt.Errorf("isolation: worker exit: %w", err)
				}
			case <-time.After(t.cfg.JoinTimeout):
				t.log.Info("worker did not exit in time, killing", "level", "warn", "worker", t.cfg.Worker, "timeout", t.cfg.JoinTimeout)
				_ = t.cmd.Process.Kill()
				<-done
				t.closeErr = fmt.Errorf("%w: worker did not exit within %s", ErrWorkerExited, t.cfg.JoinTimeout)
			}
		}

		if err := t.shm.releaseAll(); err != nil && t.closeErr == nil {
			t.closeErr = err
		}
	})
	return t.closeErr
}
