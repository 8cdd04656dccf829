//go:build !unix

package isolation

import "os"

// mapSegment falls back to an in-process copy of the backing file's
// bytes on non-unix platforms, where golang.org/x/sys/unix.Mmap is
// unavailable. The segment is no longer truly shared with a worker
// process on these platforms; the isolation transport itself is a
// unix-oriented, self-reexec design (spec §4.7's fork/spawn wording),
// so this exists only so the package still builds elsewhere.
func mapSegment(name string, f *os.File) (*Segment, error) {
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	data := make([]byte, fi.Size())
	if _, err := f.ReadAt(data, 0); err != nil {
		return nil, err
	}
	return &Segment{Name: name, data: data}, nil
}

func unmapSegment(seg *Segment) error {
	seg.data = nil
	return nil
}

func mapExisting(m shmManifest) (*Segment, error) {
	f, err := os.Open(m.Path)
	if err != nil {
		return nil, err
	}
	return mapSegment(m.Name, f)
}
