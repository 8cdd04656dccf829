package isolation

import (
	"os"
	"sync"
)

// Signal is the read side of a one-shot cross-process flag: a pipe
// whose write end is closed to "fire" it. Firing is observed as EOF,
// which makes it safe to fire before or after the reader starts
// watching, and safe to observe from many goroutines at once.
type Signal struct {
	done chan struct{}
}

func newSignal(r *os.File) *Signal {
	s := &Signal{done: make(chan struct{})}
	go func() {
		buf := make([]byte, 1)
		for {
			if _, err := r.Read(buf); err != nil {
				close(s.done)
				return
			}
		}
	}()
	return s
}

// IsSet reports whether the signal has fired, without blocking.
func (s *Signal) IsSet() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Done returns a channel closed when the signal fires, for use in a
// select alongside a queue's blocking Get/Put.
func (s *Signal) Done() <-chan struct{} { return s.done }

// signalSource is the write side, owned by whichever end causes the
// signal (the wrapper, in every case this transport implements).
// Fire is idempotent.
type signalSource struct {
	w    *os.File
	once sync.Once
}

func newSignalPipe() (*signalSource, *os.File, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, nil, err
	}
	return &signalSource{w: w}, r, nil
}

func (s *signalSource) Fire() {
	s.once.Do(func() { _ = s.w.Close() })
}
