package pipeline

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const (
	lnLimit  = `2025-09-14T05:10:00Z ERROR handle_codex_event: Error(ErrorEvent { message: "You've hit your usage limit." })`
	lnConfig = `2025-09-14T05:20:00Z  INFO handle_codex_event: SessionConfigured(SessionConfiguredEvent { model: "gpt-5-codex" })`
	lnTokens = `2025-09-14T05:21:00Z  INFO handle_codex_event: TokenCount(TokenUsage { input_tokens: 1000, cached_input_tokens: 200, output_tokens: 50, reasoning_output_tokens: 10, total_tokens: 1050 })`
)

func writeLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "codex-tui.log")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func appendLog(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = f.Close() }()
	if _, err := f.WriteString(content); err != nil {
		t.Fatal(err)
	}
}

func TestLoad(t *testing.T) {
	// The final line has no newline and must still be read.
	path := writeLog(t, strings.Join([]string{lnLimit, lnConfig, "noise", lnTokens}, "\n"))

	var calls int
	res, err := Load(path, true, func(cur, total int64) { calls++ })
	if err != nil {
		t.Fatal(err)
	}
	if res.Lines != 4 {
		t.Errorf("Lines = %d, want 4", res.Lines)
	}
	if len(res.Events) != 1 || res.Events[0].Model != "gpt-5-codex" {
		t.Fatalf("Events = %+v", res.Events)
	}
	if len(res.Limits) != 1 || len(res.Activity) != 1 {
		t.Errorf("markers: limits=%d activity=%d", len(res.Limits), len(res.Activity))
	}
	if res.LastModel != "gpt-5-codex" {
		t.Errorf("LastModel = %q", res.LastModel)
	}
	if calls == 0 {
		t.Error("progress callback never called")
	}
}

func TestLoad_Missing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.log"), false, nil); err == nil {
		t.Error("expected error for missing log")
	}
}

func TestTailer_HoldsPartialLines(t *testing.T) {
	path := writeLog(t, "one\ntw")
	tl, err := OpenTailer(path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = tl.Close() }()

	lines, err := tl.ReadLines()
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 1 || lines[0] != "one\n" {
		t.Fatalf("first read = %q", lines)
	}

	lines, _ = tl.ReadLines()
	if len(lines) != 0 {
		t.Fatalf("read without new data = %q", lines)
	}

	appendLog(t, path, "o\nthree\n")
	lines, _ = tl.ReadLines()
	if len(lines) != 2 || lines[0] != "two\n" || lines[1] != "three\n" {
		t.Fatalf("after append = %q", lines)
	}
	if tl.Offset() != int64(len("one\ntwo\nthree\n")) {
		t.Errorf("Offset = %d", tl.Offset())
	}
}

func TestCollector(t *testing.T) {
	c := NewCollector(false)
	if _, ok := c.Add(lnConfig); ok {
		t.Error("SessionConfigured reported as token event")
	}
	ev, ok := c.Add(lnTokens)
	if !ok || ev.InputTokens != 1000 {
		t.Errorf("Add(tokens) = %+v, %v", ev, ok)
	}
	c.Add(`garbage TokenCount(TokenUsage { input_tokens: 5 })`)

	res := c.Result()
	if len(res.Events) != 1 || res.Lines != 3 || res.Untimed != 0 {
		t.Errorf("result = %+v", res)
	}
}
