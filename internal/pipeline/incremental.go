package pipeline

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
)

// maxLineBytes caps a single buffered line; longer lines are truncated.
const maxLineBytes = 8 * 1024 * 1024

// Tailer reads complete lines from a growing file. The file is opened
// once and the read offset only moves forward; a trailing line without a
// newline is held back until it is completed.
type Tailer struct {
	f       *os.File
	r       *bufio.Reader
	partial []byte
	offset  int64
}

// OpenTailer opens path for tailing from the start.
func OpenTailer(path string) (*Tailer, error) {
	f, err := os.Open(path) //nolint:gosec // user-supplied log path
	if err != nil {
		return nil, fmt.Errorf("opening log: %w", err)
	}
	return &Tailer{f: f, r: bufio.NewReaderSize(f, 256*1024)}, nil
}

// Each calls fn for every complete line available now and returns how
// many lines were read. A read error other than EOF stops the batch; lines
// already delivered stay consumed.
func (t *Tailer) Each(fn func(line string)) (int, error) {
	n := 0
	for {
		chunk, err := t.r.ReadSlice('\n')
		if len(chunk) > 0 && len(t.partial)+len(chunk) <= maxLineBytes {
			t.partial = append(t.partial, chunk...)
		}
		t.offset += int64(len(chunk))

		switch {
		case err == nil:
			fn(string(t.partial))
			t.partial = t.partial[:0]
			n++
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			return n, nil
		default:
			return n, err
		}
	}
}

// ReadLines returns every complete line available now.
func (t *Tailer) ReadLines() ([]string, error) {
	var lines []string
	_, err := t.Each(func(line string) { lines = append(lines, line) })
	return lines, err
}

// Flush returns the held-back partial line, if any, and forgets it. It is
// meant for one-shot reads that will not wait for the line to complete.
func (t *Tailer) Flush() (string, bool) {
	if len(t.partial) == 0 {
		return "", false
	}
	line := string(t.partial)
	t.partial = t.partial[:0]
	return line, true
}

// Offset returns the number of bytes consumed so far.
func (t *Tailer) Offset() int64 {
	return t.offset
}

// Close releases the file handle.
func (t *Tailer) Close() error {
	return t.f.Close()
}
