package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"github.com/theirongolddev/cxburn/internal/live"
	"github.com/theirongolddev/cxburn/internal/model"
)

func resetSpanFlags(t *testing.T) {
	t.Helper()
	flagSinceHours, flagSinceDays, flagSinceDate, flagLastMonth = 0, 0, "", false
	t.Cleanup(func() {
		flagSinceHours, flagSinceDays, flagSinceDate, flagLastMonth = 0, 0, "", false
	})
}

var now = time.Date(2025, 9, 14, 8, 20, 0, 0, time.UTC)

func TestTimeSpan(t *testing.T) {
	resetSpanFlags(t)

	sp, err := timeSpan(now)
	if err != nil || sp.set() {
		t.Fatalf("no flags: span=%+v err=%v", sp, err)
	}

	flagSinceHours = 1.5
	sp, _ = timeSpan(now)
	if want := now.Add(-90 * time.Minute); !sp.Since.Equal(want) {
		t.Errorf("since-hours: Since = %v, want %v", sp.Since, want)
	}

	resetSpanFlags(t)
	flagSinceDate = "2025-09-01"
	sp, _ = timeSpan(now)
	if want := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC); !sp.Since.Equal(want) {
		t.Errorf("since-date: Since = %v", sp.Since)
	}

	resetSpanFlags(t)
	flagLastMonth = true
	sp, _ = timeSpan(now)
	if !sp.Since.Equal(time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)) || !sp.Until.Equal(time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("last-month: %+v", sp)
	}
}

func TestTimeSpan_BadDateIsUsageError(t *testing.T) {
	resetSpanFlags(t)
	flagSinceDate = "14/09/2025"
	_, err := timeSpan(now)
	var ue usageError
	if !errors.As(err, &ue) {
		t.Fatalf("err = %v, want usageError", err)
	}
}

func TestFilterSpan(t *testing.T) {
	ev := func(at time.Time) model.PricedEvent {
		return model.PricedEvent{TokenEvent: model.TokenEvent{Timestamp: model.At(at), TotalTokens: 1}}
	}
	untimed := model.PricedEvent{TokenEvent: model.TokenEvent{TotalTokens: 1}}
	events := []model.PricedEvent{
		ev(now.Add(-3 * time.Hour)),
		ev(now.Add(-time.Hour)),
		ev(now),
		untimed,
	}

	if got := filterSpan(events, span{}); len(got) != 4 {
		t.Errorf("open span kept %d, want 4", len(got))
	}
	got := filterSpan(events, span{Since: now.Add(-2 * time.Hour), Until: now})
	if len(got) != 1 || !got[0].Timestamp.Time.Equal(now.Add(-time.Hour)) {
		t.Errorf("bounded span = %+v", got)
	}
}

func codexLog(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "codex-tui.log")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func taskLine(at time.Time) string {
	return at.Format(time.RFC3339) + `  INFO handle_codex_event: TaskStarted(TaskStartedEvent)`
}

func tokensLine(at time.Time, in int64) string {
	return fmt.Sprintf("%s  INFO handle_codex_event: TokenCount(TokenUsage { input_tokens: %d, cached_input_tokens: 0, output_tokens: 0, reasoning_output_tokens: 0, total_tokens: %d })",
		at.Format(time.RFC3339), in, in)
}

func TestStatusFrame_AgreesWithLiveDriver(t *testing.T) {
	path := codexLog(t,
		taskLine(now.Add(-3*time.Hour)),
		tokensLine(now.Add(-3*time.Hour), 1000),
		taskLine(now.Add(-time.Hour)),
		tokensLine(now.Add(-time.Hour), 2000),
	)
	opts := live.Options{Path: path, Gap: 5 * time.Hour, Now: func() time.Time { return now }}

	got, err := statusFrame(opts)
	if err != nil {
		t.Fatal(err)
	}
	d, err := live.Open(opts)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = d.Close() }()
	want := d.Step()

	// The earliest activity in the last gap starts the window.
	if got.Synthetic || !got.Window.Start.Equal(now.Add(-3*time.Hour)) {
		t.Fatalf("status window = %+v (synthetic %v)", got.Window, got.Synthetic)
	}
	if !got.Window.Start.Equal(want.Window.Start) || !got.Window.End.Equal(want.Window.End) || !got.Until.Equal(want.Until) {
		t.Errorf("status %+v until %v, live %+v until %v", got.Window, got.Until, want.Window, want.Until)
	}
	if got.Aggregate.TotalTokens != 3000 || got.Aggregate.TotalTokens != want.Aggregate.TotalTokens {
		t.Errorf("tokens: status %d, live %d, want 3000", got.Aggregate.TotalTokens, want.Aggregate.TotalTokens)
	}
}

func TestStatusFrame_SyntheticHasEmptyAggregate(t *testing.T) {
	path := codexLog(t,
		taskLine(now.Add(-7*time.Hour)),
		tokensLine(now.Add(-time.Hour), 500),
	)
	f, err := statusFrame(live.Options{Path: path, Gap: 5 * time.Hour, Now: func() time.Time { return now }})
	if err != nil {
		t.Fatal(err)
	}
	if !f.Synthetic || !f.Window.Start.Equal(now.Add(-5*time.Hour)) || !f.Until.Equal(now) {
		t.Errorf("frame = %+v", f)
	}
	if f.Aggregate.TotalTokens != 0 || f.Aggregate.Events != 0 {
		t.Errorf("synthetic aggregate = %+v, want empty", f.Aggregate)
	}
}

func TestStatusFrame_MissingLog(t *testing.T) {
	_, err := statusFrame(live.Options{Path: filepath.Join(t.TempDir(), "absent.log")})
	if err == nil {
		t.Fatal("expected an error for a missing log")
	}
}

func TestCliOverride(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Float64Var(&flagUSDInput, "usd-per-1k-input", 0, "")
	flags.Float64Var(&flagUSDOutput, "usd-per-1k-output", 0, "")
	t.Cleanup(func() { flagUSDInput, flagUSDOutput = 0, 0 })

	if cliOverride(flags) != nil {
		t.Fatal("no flags set should mean no override")
	}
	if err := flags.Parse([]string{"--usd-per-1k-input=0.5"}); err != nil {
		t.Fatal(err)
	}
	o := cliOverride(flags)
	if o == nil || o.Input == nil || *o.Input != 0.5 || o.Output != nil {
		t.Fatalf("override = %+v", o)
	}
}

// Commands reach the rate flags through their own flag set, so the root
// command's persistent flags must be visible from a subcommand.
func TestCliOverride_InheritedFlags(t *testing.T) {
	t.Cleanup(func() {
		rootCmd.PersistentFlags().Lookup("usd-per-1k-output").Changed = false
		flagUSDOutput = 0
	})
	if err := rootCmd.PersistentFlags().Set("usd-per-1k-output", "2"); err != nil {
		t.Fatal(err)
	}
	o := cliOverride(dailyCmd.InheritedFlags())
	if o == nil || o.Output == nil || *o.Output != 2 || o.Input != nil {
		t.Fatalf("override = %+v", o)
	}
}
