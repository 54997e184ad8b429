package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/theirongolddev/cxburn/internal/live"
	"github.com/theirongolddev/cxburn/internal/model"
)

func cost(v float64) *float64 { return &v }

func sampleEvents() []model.PricedEvent {
	ts := time.Date(2025, 9, 14, 5, 21, 0, 0, time.UTC)
	return []model.PricedEvent{
		{
			TokenEvent: model.TokenEvent{
				RawTimestamp: "2025-09-14T05:21:00Z", Timestamp: model.At(ts),
				InputTokens: 10_000, CachedInputTokens: 2_000, OutputTokens: 500, TotalTokens: 10_500,
				Model: "gpt-5",
			},
			CostUSD: cost(0.0575),
		},
	}
}

func TestRenderTable_ASCII(t *testing.T) {
	out := RenderTable(Table{
		Headers: []string{"date", "total"},
		Rows:    [][]string{{"2025-09-14", "1.5k"}, Rule, {"sum", "1.5k"}},
		Border:  BorderASCII,
	})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	want := []string{
		"+------------+-------+",
		"| date       | total |",
		"+------------+-------+",
		"| 2025-09-14 |  1.5k |",
		"+------------+-------+",
		"| sum        |  1.5k |",
		"+------------+-------+",
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines:\n%s", len(lines), out)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestRenderTable_NoHeader(t *testing.T) {
	out := RenderTable(Table{Headers: []string{"a"}, Rows: [][]string{{"x"}}, NoHeader: true, Border: BorderASCII})
	if strings.Contains(out, "| a") {
		t.Errorf("header rendered:\n%s", out)
	}
}

func TestEventsReport_Formats(t *testing.T) {
	evs := sampleEvents()
	sum := model.Aggregate{Events: 1, InputTokens: 10_000, CachedInputTokens: 2_000, OutputTokens: 500, TotalTokens: 10_500, CostUSD: cost(0.0575)}
	r := EventsReport(evs, &sum, Options{IncludeModel: true, Loc: time.UTC})

	var tsv bytes.Buffer
	if err := r.Write(&tsv, FormatTSV, Options{}); err != nil {
		t.Fatal(err)
	}
	wantTSV := "ts\tinput_tokens\tcached_input_tokens\toutput_tokens\treasoning_output_tokens\ttotal_tokens\tmodel\tcost_usd\n" +
		"2025-09-14T05:21:00Z\t10000\t2000\t500\t0\t10500\tgpt-5\t0.06\n"
	if tsv.String() != wantTSV {
		t.Errorf("tsv =\n%q\nwant\n%q", tsv.String(), wantTSV)
	}

	var nd bytes.Buffer
	if err := r.Write(&nd, FormatNDJSON, Options{}); err != nil {
		t.Fatal(err)
	}
	var rec EventRecord
	if err := json.Unmarshal(nd.Bytes(), &rec); err != nil {
		t.Fatalf("ndjson: %v", err)
	}
	if rec.Model != "gpt-5" || rec.CostUSD == nil {
		t.Errorf("record = %+v", rec)
	}

	var tbl bytes.Buffer
	if err := r.Write(&tbl, FormatTable, Options{Border: BorderASCII}); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"10k (2k)", "500 (0)", "10.5k", "0.06", "sum"} {
		if !strings.Contains(tbl.String(), want) {
			t.Errorf("table missing %q:\n%s", want, tbl.String())
		}
	}
}

func TestDailyReport_SumRow(t *testing.T) {
	rows := []model.DailyStats{
		{Date: "2025-09-13", Aggregate: model.Aggregate{Events: 1, TotalTokens: 1000, CostUSD: cost(1)}},
		{Date: "2025-09-14", Aggregate: model.Aggregate{Events: 1, TotalTokens: 500, CostUSD: cost(0.5)}},
	}
	r := DailyReport(rows)
	last := r.Table.Rows[len(r.Table.Rows)-1]
	if last[0] != "sum" || last[3] != "1.5k" || last[4] != "1.50" {
		t.Errorf("sum row = %q", last)
	}
	if !isRule(r.Table.Rows[len(r.Table.Rows)-2]) {
		t.Error("expected a rule before the sum row")
	}

	var js bytes.Buffer
	if err := r.Write(&js, FormatJSON, Options{}); err != nil {
		t.Fatal(err)
	}
	var recs []DailyRecord
	if err := json.Unmarshal(js.Bytes(), &recs); err != nil || len(recs) != 2 {
		t.Fatalf("json = %s (%v)", js.String(), err)
	}
}

func TestDailyReport_Unpriced(t *testing.T) {
	r := DailyReport([]model.DailyStats{{Date: "2025-09-14", Aggregate: model.Aggregate{Events: 1}}})
	if len(r.Table.Headers) != 4 || r.Fields[len(r.Fields)-1] == "cost_usd" {
		t.Errorf("unpriced report should have no cost column: %v / %v", r.Table.Headers, r.Fields)
	}
}

func TestSummaryLine(t *testing.T) {
	a := model.Aggregate{InputTokens: 1234, CachedInputTokens: 0, OutputTokens: 10, TotalTokens: 1244}
	if got := SummaryLine(a); got != "summary\ti(c)=1.23k (0)\to(r)=10 (0)\tt=1.24k" {
		t.Errorf("SummaryLine = %q", got)
	}
	a.CostUSD = cost(1)
	if got := SummaryLine(a); !strings.HasSuffix(got, "\t$=1.00") {
		t.Errorf("priced SummaryLine = %q", got)
	}
}

func TestParseFormat(t *testing.T) {
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("expected error for xml")
	}
	if f, err := ParseFormat("ndjson"); err != nil || f != FormatNDJSON {
		t.Errorf("ParseFormat(ndjson) = %v, %v", f, err)
	}
}

func TestRenderFrame_Synthetic(t *testing.T) {
	now := time.Date(2025, 9, 14, 12, 0, 0, 0, time.UTC)
	f := live.Frame{
		Now:       now,
		Window:    model.SessionWindow{Start: now.Add(-5 * time.Hour), End: now},
		Until:     now,
		Synthetic: true,
	}
	out := RenderFrame(f, FrameOptions{Options: Options{Border: BorderASCII, Loc: time.UTC}})
	if !strings.Contains(out, "07:00-12:00") || !strings.Contains(out, "- (-)") {
		t.Errorf("synthetic frame:\n%s", out)
	}
	if strings.Contains(out, "0 (0)") {
		t.Errorf("synthetic frame should not show zeros:\n%s", out)
	}
}

func TestRenderFrame_Session(t *testing.T) {
	start := time.Date(2025, 9, 14, 5, 20, 0, 0, time.UTC)
	now := start.Add(time.Hour)
	f := live.Frame{
		Now:       now,
		Window:    model.SessionWindow{Start: start, End: start.Add(5 * time.Hour)},
		Until:     now,
		Aggregate: model.Aggregate{Events: 1, InputTokens: 10_000, TotalTokens: 10_500, CostUSD: cost(0.0575)},
	}
	out := RenderFrame(f, FrameOptions{Options: Options{Border: BorderASCII, Loc: time.UTC}, BarWidth: 10})
	for _, want := range []string{"05:20-06:20", "1h 0m", "10k (0)", "0.06", "██████████", "4h 0m left"} {
		if !strings.Contains(out, want) {
			t.Errorf("frame missing %q:\n%s", want, out)
		}
	}
}

func TestRenderBar(t *testing.T) {
	if got := RenderBar(1, 100, 10); got != "█" {
		t.Errorf("small positive value = %q, want one cell", got)
	}
	if got := RenderBar(0, 100, 10); got != "" {
		t.Errorf("zero value = %q", got)
	}
	if got := RenderBar(500, 100, 4); got != "████" {
		t.Errorf("overflow = %q", got)
	}
}
