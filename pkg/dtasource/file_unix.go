//go:build unix

package dtasource

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// FileSource memory-maps a local file for random access, adapted from
// pkg/format/reader.go's MmapFile: a read-only mapping avoids a syscall
// per ByteReader read, which matters once DataCursor starts seeking to a
// fresh offset for every column of every row.
type FileSource struct {
	f    *os.File
	data []byte
	size int64
}

// OpenFile memory-maps path for reading. A zero-length file is rejected:
// a valid .dta file's header alone exceeds the mapping's minimum size.
func OpenFile(path string) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dtasource: open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("dtasource: stat %s: %w", path, err)
	}
	size := info.Size()
	if size == 0 {
		f.Close()
		return nil, ErrEmpty
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("dtasource: mmap %s: %w", path, err)
	}
	return &FileSource{f: f, data: data, size: size}, nil
}

func (s *FileSource) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off > s.size {
		return 0, fmt.Errorf("dtasource: offset %d out of range", off)
	}
	n := copy(p, s.data[off:])
	return n, nil
}

func (s *FileSource) Size() int64 { return s.size }

func (s *FileSource) Close() error {
	if s.data == nil {
		return nil
	}
	err := unix.Munmap(s.data)
	s.data = nil
	if cerr := s.f.Close(); err == nil {
		err = cerr
	}
	return err
}
