//go:build unix

package isolation

import (
	"os"

	"golang.org/x/sys/unix"
)

// mapSegment mmaps f's full contents read-write, shared between
// processes that map the same underlying file - the mechanism spec
// §4.7's "shared-memory registry" describes. golang.org/x/sys/unix is
// the ecosystem library for this; the standard library has no mmap.
func mapSegment(name string, f *os.File) (*Segment, error) {
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(fi.Size()), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, err
	}

	return &Segment{Name: name, data: data}, nil
}

func unmapSegment(seg *Segment) error {
	if seg.data == nil {
		return nil
	}
	err := unix.Munmap(seg.data)
	seg.data = nil
	return err
}

// mapExisting maps a segment a worker process was handed by manifest,
// rather than one it allocated itself.
func mapExisting(m shmManifest) (*Segment, error) {
	f, err := os.OpenFile(m.Path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	seg, err := mapSegment(m.Name, f)
	if err != nil {
		return nil, err
	}
	seg.Path = m.Path
	return seg, nil
}
