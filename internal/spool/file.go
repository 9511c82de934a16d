package spool

import (
	"context"
	"errors"
	"io"
	"os"
)

// FileSpooler хранит содержимое во временных файлах каталога Dir
// (пустой Dir — системный каталог временных файлов).
type FileSpooler struct {
	Dir string
}

// NewFileSpooler создаёт каталог dir при необходимости.
func NewFileSpooler(dir string) (*FileSpooler, error) {
	if dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, err
		}
	}
	return &FileSpooler{Dir: dir}, nil
}

func (s *FileSpooler) Create(ctx context.Context, name string) (Spool, error) {
	f, err := os.CreateTemp(s.Dir, "spool-"+name+"-*")
	if err != nil {
		return nil, err
	}
	return &fileSpool{f: f}, nil
}

type fileSpool struct {
	f      *os.File
	size   int64
	closed bool
}

func (s *fileSpool) Write(p []byte) (int, error) {
	n, err := s.f.Write(p)
	s.size += int64(n)
	return n, err
}

func (s *fileSpool) Reader(ctx context.Context) (io.ReadCloser, error) {
	if s.closed {
		return nil, os.ErrClosed
	}
	if err := s.f.Sync(); err != nil {
		return nil, err
	}
	return os.Open(s.f.Name())
}

func (s *fileSpool) Size() int64 { return s.size }

func (s *fileSpool) Path() string { return s.f.Name() }

func (s *fileSpool) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return errors.Join(s.f.Close(), os.Remove(s.f.Name()))
}
