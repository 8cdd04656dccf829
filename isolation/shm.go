package isolation

import (
	"fmt"
	"os"
)

// Segment is one named shared-memory region, visible to both the
// parent and its worker under the same Name.
type Segment struct {
	Name string
	Path string // backing temp file, passed to the worker for its own mmap
	data []byte
}

// Bytes returns the mapped region.
func (s *Segment) Bytes() []byte { return s.data }

// registry owns every segment created for one Transport's lifetime.
// It is per-context, never process-global (Design Note §9), so two
// transports never see each other's segments even if names collide.
type registry struct {
	segments []*Segment
}

// create backs a new named segment with size bytes, initialized from
// initial (truncated or zero-padded to size), and maps it into this
// process.
func (r *registry) create(name string, initial []byte, size int) (*Segment, error) {
	f, err := os.CreateTemp("", "dagflow-shm-"+name+"-*")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrShmAlloc, err)
	}
	path := f.Name()

	buf := make([]byte, size)
	copy(buf, initial)
	if _, err := f.Write(buf); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("%w: %v", ErrShmAlloc, err)
	}

	seg, err := mapSegment(name, f)
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("%w: %v", ErrShmAlloc, err)
	}
	seg.Path = path

	r.segments = append(r.segments, seg)
	return seg, nil
}

// releaseAll unmaps and unlinks every segment. Idempotent: safe to
// call after a partial failure, and safe to call twice.
func (r *registry) releaseAll() error {
	var firstErr error
	for _, seg := range r.segments {
		if err := unmapSegment(seg); err != nil && firstErr == nil {
			firstErr = err
		}
		if seg.Path != "" {
			_ = os.Remove(seg.Path)
			seg.Path = ""
		}
	}
	r.segments = nil
	return firstErr
}

// shmManifest is what gets handed to the worker (via an environment
// variable, see transport.go) so it can map the same files.
type shmManifest struct {
	Name string
	Path string
	Size int
}
