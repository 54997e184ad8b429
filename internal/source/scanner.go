package source

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrNoLog is returned when the Codex log file does not exist.
var ErrNoLog = errors.New("codex log not found")

// Scanner buffer sizes. Codex occasionally logs very long lines (whole
// diffs or tool output), so the maximum is generous.
const (
	scanBufInit = 256 * 1024
	scanBufMax  = 8 * 1024 * 1024
)

// DefaultLogPath returns the Codex TUI log location, honoring CODEX_HOME.
func DefaultLogPath() string {
	if home := os.Getenv("CODEX_HOME"); home != "" {
		return filepath.Join(home, "log", "codex-tui.log")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".codex", "log", "codex-tui.log")
}

// CheckLog verifies that path exists and is a regular file.
func CheckLog(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNoLog, path)
		}
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return nil
}

// EachLine calls fn for every line of r. Over-long lines are skipped
// rather than aborting the scan.
func EachLine(r io.Reader, fn func(line string)) error {
	br := bufio.NewReaderSize(r, scanBufInit)
	for {
		line, err := readLine(br)
		if line != "" {
			fn(line)
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// readLine reads one line, discarding anything past scanBufMax.
func readLine(br *bufio.Reader) (string, error) {
	var buf []byte
	for {
		chunk, err := br.ReadSlice('\n')
		if len(buf)+len(chunk) <= scanBufMax {
			buf = append(buf, chunk...)
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		return string(buf), err
	}
}

// tailBlock is how far TailLines reads back per step.
const tailBlock = 64 * 1024

// TailLines returns at most n trailing lines of the file at path. Only the
// tail is read. A missing or unreadable file yields no lines.
func TailLines(path string, n int) []string {
	if n <= 0 {
		return nil
	}
	f, err := os.Open(path) //nolint:gosec // user-supplied log path
	if err != nil {
		return nil
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return nil
	}
	if _, err := f.Seek(tailOffset(f, info.Size(), n), io.SeekStart); err != nil {
		return nil
	}
	var lines []string
	_ = EachLine(f, func(line string) { lines = append(lines, line) })
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}

// tailOffset walks back from size a block at a time and returns where the
// n-th line from the end begins, or 0 when there are fewer lines. The
// newline ending the file does not start a line.
func tailOffset(r io.ReaderAt, size int64, n int) int64 {
	buf := make([]byte, tailBlock)
	seen := 0
	for end := size; end > 0; {
		start := max(end-tailBlock, 0)
		chunk := buf[:end-start]
		if _, err := r.ReadAt(chunk, start); err != nil && !errors.Is(err, io.EOF) {
			return 0
		}
		for i := len(chunk) - 1; i >= 0; i-- {
			off := start + int64(i)
			if chunk[i] != '\n' || off == size-1 {
				continue
			}
			if seen++; seen == n {
				return off + 1
			}
		}
		end = start
	}
	return 0
}
