// Package source turns log files, compressed rotations and captured command
// output into a lazy sequence of text lines.
package source

import (
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrSourceUnavailable marks a source that could not be opened.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrLineDecode marks a line that is not valid text in the source encoding.
	ErrLineDecode = errors.New("line decode error")
)

// Source is one logical input.
type Source interface {
	Name() string
	Open() (io.ReadCloser, error)
}

// File is a plain or compressed log file. Compression is inferred from the
// extension: .gz and .bz2 are decompressed transparently.
type File struct {
	Path string
}

// NewFile returns a File source for path.
func NewFile(path string) File { return File{Path: path} }

func (f File) Name() string { return f.Path }

// Open implements Source.
func (f File) Open() (io.ReadCloser, error) {
	fh, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, f.Path, err)
	}
	switch Compression(f.Path) {
	case "gzip":
		gz, err := gzip.NewReader(fh)
		if err != nil {
			fh.Close()
			return nil, fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, f.Path, err)
		}
		return &stackedCloser{Reader: gz, closers: []io.Closer{gz, fh}}, nil
	case "bzip2":
		return &stackedCloser{Reader: bzip2.NewReader(fh), closers: []io.Closer{fh}}, nil
	}
	return fh, nil
}

// Compression reports the compression format implied by the file name:
// "gzip", "bzip2" or "".
func Compression(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz", ".gzip":
		return "gzip"
	case ".bz2":
		return "bzip2"
	}
	return ""
}

// Output is captured command output handed over by a collaborator.
type Output struct {
	Label string
	Data  []byte
}

func (o Output) Name() string { return o.Label }

// Open implements Source.
func (o Output) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(o.Data)), nil
}

// Lines is pre-split command output.
type Lines struct {
	Label string
	Data  []string
}

func (l Lines) Name() string { return l.Label }

// Open implements Source.
func (l Lines) Open() (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(strings.Join(l.Data, "\n"))), nil
}

type stackedCloser struct {
	io.Reader
	closers []io.Closer
}

func (s *stackedCloser) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
