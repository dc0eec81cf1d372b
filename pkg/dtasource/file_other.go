//go:build !unix

package dtasource

import (
	"fmt"
	"os"
)

// FileSource is the non-unix fallback: plain positioned reads via
// os.File.ReadAt instead of a memory map, since golang.org/x/sys/unix's
// mmap wrapper only covers unix targets.
type FileSource struct {
	f    *os.File
	size int64
}

// OpenFile opens path for random-access reads.
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
	if info.Size() == 0 {
		f.Close()
		return nil, ErrEmpty
	}
	return &FileSource{f: f, size: info.Size()}, nil
}

func (s *FileSource) ReadAt(p []byte, off int64) (int, error) {
	return s.f.ReadAt(p, off)
}

func (s *FileSource) Size() int64 { return s.size }

func (s *FileSource) Close() error { return s.f.Close() }
