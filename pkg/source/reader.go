package source

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// DefaultEncoding is the text encoding assumed for log lines.
const DefaultEncoding = "utf-8"

// Options configures a Reader.
type Options struct {
	// Encoding is an IANA/WHATWG encoding name. Empty means utf-8.
	Encoding string
	// OnWarning receives soft failures: undecodable lines and read errors
	// that end the source early.
	OnWarning func(error)
}

// Reader yields the lines of one source in order. It is not restartable.
type Reader struct {
	name    string
	rc      io.ReadCloser
	scanner *bufio.Scanner
	decoder *encoding.Decoder
	warn    func(error)

	line    string
	lineNo  int
	skipped int
	err     error
}

// Open opens src and returns a Reader over its lines.
func Open(src Source, opts Options) (*Reader, error) {
	var dec *encoding.Decoder
	if name := strings.ToLower(strings.TrimSpace(opts.Encoding)); name != "" && name != "utf-8" && name != "utf8" {
		enc, err := htmlindex.Get(name)
		if err != nil {
			return nil, fmt.Errorf("encoding %q: %w", opts.Encoding, err)
		}
		dec = enc.NewDecoder()
	}
	rc, err := src.Open()
	if err != nil {
		return nil, err
	}
	scanner := bufio.NewScanner(rc)
	// Increase buffer to handle very long log lines (default is 64K).
	buf := make([]byte, 0, 1<<20)
	scanner.Buffer(buf, 64<<20)

	warn := opts.OnWarning
	if warn == nil {
		warn = func(error) {}
	}
	return &Reader{
		name:    src.Name(),
		rc:      rc,
		scanner: scanner,
		decoder: dec,
		warn:    warn,
	}, nil
}

// Next advances to the next decodable line. Lines that fail to decode are
// skipped and reported through OnWarning.
func (r *Reader) Next() bool {
	for r.scanner.Scan() {
		r.lineNo++
		raw := r.scanner.Bytes()
		if n := len(raw); n > 0 && raw[n-1] == '\r' {
			raw = raw[:n-1]
		}
		text, err := r.decode(raw)
		if err != nil {
			r.skipped++
			r.warn(fmt.Errorf("%w: %s:%d: %v", ErrLineDecode, r.name, r.lineNo, err))
			continue
		}
		r.line = text
		return true
	}
	if err := r.scanner.Err(); err != nil && r.err == nil {
		r.err = err
		r.warn(fmt.Errorf("read %s after line %d: %w", r.name, r.lineNo, err))
	}
	r.line = ""
	return false
}

func (r *Reader) decode(raw []byte) (string, error) {
	if r.decoder != nil {
		return r.decoder.String(string(raw))
	}
	out, _, err := transform.Bytes(encoding.UTF8Validator, raw)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Line returns the current line.
func (r *Reader) Line() string { return r.line }

// LineNo returns the 1-based physical line number of the current line.
func (r *Reader) LineNo() int { return r.lineNo }

// Skipped returns the number of undecodable lines so far.
func (r *Reader) Skipped() int { return r.skipped }

// Err returns the read error that ended the source early, if any.
func (r *Reader) Err() error { return r.err }

// Name returns the source name.
func (r *Reader) Name() string { return r.name }

// Close releases the underlying source.
func (r *Reader) Close() error { return r.rc.Close() }
