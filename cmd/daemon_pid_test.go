package cmd

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func TestPIDFileRoundTrip(t *testing.T) {
	pf := pidFile(filepath.Join(t.TempDir(), "run", "cxburnd.pid"))

	if _, err := pf.pid(); err == nil {
		t.Fatal("missing file should be an error")
	}
	if err := pf.claim(); err != nil {
		t.Fatalf("claim on empty dir: %v", err)
	}

	st := daemonState{PID: os.Getpid(), Addr: "127.0.0.1:9999", StartedAt: time.Now(), LogPath: "/tmp/codex-tui.log"}
	if err := pf.write(st); err != nil {
		t.Fatal(err)
	}
	pid, err := pf.pid()
	if err != nil || pid != os.Getpid() {
		t.Fatalf("pid = %d, %v", pid, err)
	}
	got, err := pf.state()
	if err != nil || got.Addr != st.Addr || got.LogPath != st.LogPath {
		t.Fatalf("state = %+v, %v", got, err)
	}

	// This process is alive, so the file is owned.
	if err := pf.claim(); err == nil {
		t.Fatal("claim should fail while the recorded process is alive")
	}

	pf.remove()
	if _, err := os.Stat(string(pf)); !os.IsNotExist(err) {
		t.Errorf("pid file not removed: %v", err)
	}
}

func TestPIDFileClaimClearsCorruptState(t *testing.T) {
	pf := pidFile(filepath.Join(t.TempDir(), "cxburnd.pid"))
	if err := os.WriteFile(pf.statePath(), []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := pf.claim(); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, err := os.Stat(pf.statePath()); !os.IsNotExist(err) {
		t.Error("corrupt state file should be cleared")
	}
}

func TestWithoutDetach(t *testing.T) {
	in := []string{"daemon", "--detach", "--addr", "x", "--detach=true"}
	got := withoutDetach(in)
	if !slices.Equal(got, []string{"daemon", "--addr", "x"}) {
		t.Errorf("got %v", got)
	}
	if len(in) != 5 {
		t.Error("input modified")
	}
}
