package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

// daemonState is written next to the PID file so `daemon status` can
// find the API address.
type daemonState struct {
	PID       int       `json:"pid"`
	Addr      string    `json:"addr"`
	StartedAt time.Time `json:"started_at"`
	LogPath   string    `json:"log_path"`
}

// pidFile is the daemon's PID file path. The state file sits beside it
// with a .json suffix.
type pidFile string

func (p pidFile) statePath() string { return string(p) + ".json" }

// pid reads the recorded process ID.
func (p pidFile) pid() (int, error) {
	st, err := p.state()
	if err != nil {
		return 0, err
	}
	if st.PID <= 0 {
		return 0, fmt.Errorf("invalid pid in %s", p.statePath())
	}
	return st.PID, nil
}

func (p pidFile) state() (daemonState, error) {
	var st daemonState
	//nolint:gosec // daemon state path is configured by the local user
	data, err := os.ReadFile(p.statePath())
	if err != nil {
		return st, err
	}
	if err := json.Unmarshal(data, &st); err != nil {
		return st, fmt.Errorf("reading %s: %w", p.statePath(), err)
	}
	return st, nil
}

// claim fails when a live daemon owns the file and clears a stale one.
func (p pidFile) claim() error {
	pid, err := p.pid()
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil
	case err == nil && processAlive(pid):
		return fmt.Errorf("daemon already running (pid %d)", pid)
	}
	p.remove()
	return nil
}

// write records st in both files.
func (p pidFile) write(st daemonState) error {
	if err := os.MkdirAll(filepath.Dir(string(p)), 0o750); err != nil {
		return fmt.Errorf("create daemon directory: %w", err)
	}
	if err := os.WriteFile(string(p), fmt.Appendf(nil, "%d\n", st.PID), 0o600); err != nil {
		return err
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p.statePath(), append(data, '\n'), 0o600)
}

func (p pidFile) remove() {
	_ = os.Remove(string(p))
	_ = os.Remove(p.statePath())
}

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}
