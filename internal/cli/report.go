package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"time"

	"github.com/theirongolddev/cxburn/internal/model"
)

// Format is an output format for reports.
type Format string

// Supported formats.
const (
	FormatTable  Format = "table"
	FormatTSV    Format = "tsv"
	FormatCSV    Format = "csv"
	FormatNDJSON Format = "ndjson"
	FormatJSON   Format = "json"
)

// ParseFormat validates a --format value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatTable, FormatTSV, FormatCSV, FormatNDJSON, FormatJSON:
		return f, nil
	}
	return "", fmt.Errorf("unknown format %q (want table, tsv, csv, ndjson or json)", s)
}

// Options controls report output.
type Options struct {
	Border       string
	NoHeader     bool
	IncludeModel bool
	Loc          *time.Location // display zone for table timestamps
}

// Report is one report in both display and machine-readable form.
type Report struct {
	Table   Table      // display cells for FormatTable
	Fields  []string   // column names for tsv/csv
	Rows    [][]string // raw values for tsv/csv
	Records []any      // values for ndjson/json
}

// Write renders r in format f.
func (r Report) Write(w io.Writer, f Format, opts Options) error {
	switch f {
	case FormatTSV:
		return writeDelimited(w, '\t', r.Fields, r.Rows, !opts.NoHeader)
	case FormatCSV:
		return writeDelimited(w, ',', r.Fields, r.Rows, !opts.NoHeader)
	case FormatNDJSON:
		enc := json.NewEncoder(w)
		for _, rec := range r.Records {
			if err := enc.Encode(rec); err != nil {
				return fmt.Errorf("writing ndjson: %w", err)
			}
		}
		return nil
	case FormatJSON:
		recs := r.Records
		if recs == nil {
			recs = []any{}
		}
		if err := json.NewEncoder(w).Encode(recs); err != nil {
			return fmt.Errorf("writing json: %w", err)
		}
		return nil
	default:
		t := r.Table
		t.Border = opts.Border
		t.NoHeader = opts.NoHeader
		_, err := io.WriteString(w, RenderTable(t))
		return err
	}
}

func writeDelimited(w io.Writer, comma rune, fields []string, rows [][]string, header bool) error {
	cw := csv.NewWriter(w)
	cw.Comma = comma
	if header {
		if err := cw.Write(fields); err != nil {
			return err
		}
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("writing rows: %w", err)
	}
	return nil
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }

func usd2(c *float64) string { return FormatUSD(c) }

func clock(t time.Time, loc *time.Location, layout string) string {
	if t.IsZero() {
		return ""
	}
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(layout)
}

func sumRow(label string, a model.Aggregate, priced bool) []string {
	row := []string{label, FormatPair(a.InputTokens, a.CachedInputTokens), FormatPair(a.OutputTokens, a.ReasoningOutputTokens), FormatTokens(a.TotalTokens)}
	if priced {
		row = append(row, usd2(a.CostUSD))
	}
	return row
}

// EventRecord is the machine-readable form of one event.
type EventRecord struct {
	TS                    string   `json:"ts"`
	InputTokens           int64    `json:"input_tokens"`
	CachedInputTokens     int64    `json:"cached_input_tokens"`
	OutputTokens          int64    `json:"output_tokens"`
	ReasoningOutputTokens int64    `json:"reasoning_output_tokens"`
	TotalTokens           int64    `json:"total_tokens"`
	Model                 string   `json:"model,omitempty"`
	CostUSD               *float64 `json:"cost_usd,omitempty"`
}

// EventsReport lists events with an optional sum row.
func EventsReport(events []model.PricedEvent, summary *model.Aggregate, opts Options) Report {
	priced := anyPriced(events) || (summary != nil && summary.CostUSD != nil)

	r := Report{
		Fields: []string{"ts", "input_tokens", "cached_input_tokens", "output_tokens", "reasoning_output_tokens", "total_tokens"},
		Table: Table{
			Headers: []string{"ts", "input (cached)", "output (reasoning)", "total", "$"},
		},
	}
	if opts.IncludeModel {
		r.Fields = append(r.Fields, "model")
		r.Table.Headers = append(r.Table.Headers, "model")
		r.Table.Left = []int{5}
	}
	if priced {
		r.Fields = append(r.Fields, "cost_usd")
	}

	for _, ev := range events {
		rec := EventRecord{
			TS:                    ev.RawTimestamp,
			InputTokens:           ev.InputTokens,
			CachedInputTokens:     ev.CachedInputTokens,
			OutputTokens:          ev.OutputTokens,
			ReasoningOutputTokens: ev.ReasoningOutputTokens,
			TotalTokens:           ev.TotalTokens,
			CostUSD:               ev.CostUSD,
		}
		if opts.IncludeModel {
			rec.Model = ev.Model
		}
		r.Records = append(r.Records, rec)

		raw := []string{rec.TS, itoa(rec.InputTokens), itoa(rec.CachedInputTokens), itoa(rec.OutputTokens), itoa(rec.ReasoningOutputTokens), itoa(rec.TotalTokens)}
		if opts.IncludeModel {
			raw = append(raw, rec.Model)
		}
		if priced {
			raw = append(raw, usd2(rec.CostUSD))
		}
		r.Rows = append(r.Rows, raw)

		ts := rec.TS
		if ev.Timestamp.Valid {
			ts = clock(ev.Timestamp.Time, opts.Loc, "2006-01-02 15:04:05")
		}
		row := []string{ts, FormatPair(ev.InputTokens, ev.CachedInputTokens), FormatPair(ev.OutputTokens, ev.ReasoningOutputTokens), FormatTokens(ev.TotalTokens), usd2(ev.CostUSD)}
		if opts.IncludeModel {
			row = append(row, ev.Model)
		}
		r.Table.Rows = append(r.Table.Rows, row)
	}

	if summary != nil {
		row := sumRow("sum", *summary, true)
		if opts.IncludeModel {
			row = append(row, "")
		}
		r.Table.Rows = append(r.Table.Rows, Rule, row)
	}
	return r
}

func anyPriced(events []model.PricedEvent) bool {
	for _, ev := range events {
		if ev.CostUSD != nil {
			return true
		}
	}
	return false
}

// DailyRecord is the machine-readable form of one day.
type DailyRecord struct {
	Date                  string   `json:"date"`
	Events                int      `json:"events"`
	InputTokens           int64    `json:"input_tokens"`
	CachedInputTokens     int64    `json:"cached_input_tokens"`
	OutputTokens          int64    `json:"output_tokens"`
	ReasoningOutputTokens int64    `json:"reasoning_output_tokens"`
	TotalTokens           int64    `json:"total_tokens"`
	CostUSD               *float64 `json:"cost_usd,omitempty"`
}

// DailyReport lists days with a sum row below a rule.
func DailyReport(rows []model.DailyStats) Report {
	priced := false
	var total model.Aggregate
	for _, d := range rows {
		total = total.Merge(d.Aggregate)
		priced = priced || d.CostUSD != nil
	}

	r := Report{
		Fields: []string{"date", "events", "input_tokens", "cached_input_tokens", "output_tokens", "reasoning_output_tokens", "total_tokens"},
		Table:  Table{Headers: []string{"date", "input (cached)", "output (reasoning)", "total"}},
	}
	if priced {
		r.Fields = append(r.Fields, "cost_usd")
		r.Table.Headers = append(r.Table.Headers, "$")
	}

	for _, d := range rows {
		r.Records = append(r.Records, DailyRecord{
			Date:                  d.Date,
			Events:                d.Events,
			InputTokens:           d.InputTokens,
			CachedInputTokens:     d.CachedInputTokens,
			OutputTokens:          d.OutputTokens,
			ReasoningOutputTokens: d.ReasoningOutputTokens,
			TotalTokens:           d.TotalTokens,
			CostUSD:               d.CostUSD,
		})
		raw := []string{d.Date, strconv.Itoa(d.Events), itoa(d.InputTokens), itoa(d.CachedInputTokens), itoa(d.OutputTokens), itoa(d.ReasoningOutputTokens), itoa(d.TotalTokens)}
		if priced {
			raw = append(raw, usd2(d.CostUSD))
		}
		r.Rows = append(r.Rows, raw)
		r.Table.Rows = append(r.Table.Rows, sumRow(d.Date, d.Aggregate, priced))
	}
	if len(rows) > 0 {
		r.Table.Rows = append(r.Table.Rows, Rule, sumRow("sum", total, priced))
	}
	return r
}

// SessionRecord is the machine-readable form of one inactivity session.
type SessionRecord struct {
	Start                 time.Time `json:"start"`
	End                   time.Time `json:"end"`
	DurationSecs          int64     `json:"duration_secs"`
	GapToNextSecs         *int64    `json:"gap_to_next_secs,omitempty"`
	Events                int       `json:"events"`
	InputTokens           int64     `json:"input_tokens"`
	CachedInputTokens     int64     `json:"cached_input_tokens"`
	OutputTokens          int64     `json:"output_tokens"`
	ReasoningOutputTokens int64     `json:"reasoning_output_tokens"`
	TotalTokens           int64     `json:"total_tokens"`
	CostUSD               *float64  `json:"cost_usd,omitempty"`
}

// SessionsReport lists inactivity sessions.
func SessionsReport(sessions []model.SessionStats, opts Options) Report {
	priced := false
	for _, s := range sessions {
		priced = priced || s.CostUSD != nil
	}

	r := Report{
		Fields: []string{"start", "end", "duration_secs", "gap_to_next_secs", "events", "input_tokens", "cached_input_tokens", "output_tokens", "reasoning_output_tokens", "total_tokens"},
		Table:  Table{Headers: []string{"start", "end", "dur", "gap", "input (cached)", "output (reasoning)", "total"}},
	}
	if priced {
		r.Fields = append(r.Fields, "cost_usd")
		r.Table.Headers = append(r.Table.Headers, "$")
	}

	for _, s := range sessions {
		r.Records = append(r.Records, SessionRecord{
			Start:                 s.StartTime.UTC(),
			End:                   s.EndTime.UTC(),
			DurationSecs:          s.DurationSecs,
			GapToNextSecs:         s.GapToNextSecs,
			Events:                s.Events,
			InputTokens:           s.InputTokens,
			CachedInputTokens:     s.CachedInputTokens,
			OutputTokens:          s.OutputTokens,
			ReasoningOutputTokens: s.ReasoningOutputTokens,
			TotalTokens:           s.TotalTokens,
			CostUSD:               s.CostUSD,
		})

		gapRaw, gapCell := "", "-"
		if s.GapToNextSecs != nil {
			gapRaw = itoa(*s.GapToNextSecs)
			gapCell = FormatDuration(*s.GapToNextSecs)
		}
		raw := []string{
			s.StartTime.UTC().Format(time.RFC3339), s.EndTime.UTC().Format(time.RFC3339),
			itoa(s.DurationSecs), gapRaw, strconv.Itoa(s.Events),
			itoa(s.InputTokens), itoa(s.CachedInputTokens), itoa(s.OutputTokens), itoa(s.ReasoningOutputTokens), itoa(s.TotalTokens),
		}
		if priced {
			raw = append(raw, usd2(s.CostUSD))
		}
		r.Rows = append(r.Rows, raw)

		row := []string{
			clock(s.StartTime, opts.Loc, "2006-01-02 15:04"), clock(s.EndTime, opts.Loc, "15:04"),
			FormatDuration(s.DurationSecs), gapCell,
			FormatPair(s.InputTokens, s.CachedInputTokens), FormatPair(s.OutputTokens, s.ReasoningOutputTokens), FormatTokens(s.TotalTokens),
		}
		if priced {
			row = append(row, usd2(s.CostUSD))
		}
		r.Table.Rows = append(r.Table.Rows, row)
	}
	return r
}

// ModelRecord is the machine-readable form of one model row.
type ModelRecord struct {
	Model        string   `json:"model"`
	Events       int      `json:"events"`
	InputTokens  int64    `json:"input_tokens"`
	CachedTokens int64    `json:"cached_input_tokens"`
	OutputTokens int64    `json:"output_tokens"`
	Reasoning    int64    `json:"reasoning_output_tokens"`
	TotalTokens  int64    `json:"total_tokens"`
	SharePercent float64  `json:"share_percent"`
	CostUSD      *float64 `json:"cost_usd,omitempty"`
}

// ModelsReport lists per-model usage.
func ModelsReport(models []model.ModelStats) Report {
	r := Report{
		Fields: []string{"model", "events", "input_tokens", "cached_input_tokens", "output_tokens", "reasoning_output_tokens", "total_tokens", "share_percent", "cost_usd"},
		Table:  Table{Headers: []string{"model", "events", "input (cached)", "output (reasoning)", "total", "share", "$"}},
	}
	for _, m := range models {
		r.Records = append(r.Records, ModelRecord{
			Model: m.Model, Events: m.Events,
			InputTokens: m.InputTokens, CachedTokens: m.CachedInputTokens,
			OutputTokens: m.OutputTokens, Reasoning: m.ReasoningOutputTokens,
			TotalTokens: m.TotalTokens, SharePercent: m.SharePercent, CostUSD: m.CostUSD,
		})
		r.Rows = append(r.Rows, []string{
			m.Model, strconv.Itoa(m.Events), itoa(m.InputTokens), itoa(m.CachedInputTokens), itoa(m.OutputTokens),
			itoa(m.ReasoningOutputTokens), itoa(m.TotalTokens), strconv.FormatFloat(m.SharePercent, 'f', 2, 64), usd2(m.CostUSD),
		})
		r.Table.Rows = append(r.Table.Rows, []string{
			m.Model, FormatNumber(int64(m.Events)),
			FormatPair(m.InputTokens, m.CachedInputTokens), FormatPair(m.OutputTokens, m.ReasoningOutputTokens),
			FormatTokens(m.TotalTokens), FormatPercent(m.SharePercent), usd2(m.CostUSD),
		})
	}
	return r
}

// CostRecord is one row of the cost breakdown.
type CostRecord struct {
	Model       string  `json:"model"`
	Input       float64 `json:"input_usd"`
	CachedInput float64 `json:"cached_input_usd"`
	Output      float64 `json:"output_usd"`
	Reasoning   float64 `json:"reasoning_usd"`
	Total       float64 `json:"total_usd"`
}

// CostsReport splits cost by token kind, per model and in total.
func CostsReport(total model.CostBreakdown, models []CostRecord) Report {
	r := Report{
		Fields: []string{"model", "input_usd", "cached_input_usd", "output_usd", "reasoning_usd", "total_usd"},
		Table:  Table{Headers: []string{"model", "input", "cached", "output", "reasoning", "total"}},
	}
	all := append(slices.Clone(models), CostRecord{
		Model: "total", Input: total.Input, CachedInput: total.CachedInput,
		Output: total.Output, Reasoning: total.Reasoning, Total: total.Total(),
	})
	for i, c := range all {
		r.Records = append(r.Records, c)
		f := func(v float64) string { return strconv.FormatFloat(v, 'f', 4, 64) }
		r.Rows = append(r.Rows, []string{c.Model, f(c.Input), f(c.CachedInput), f(c.Output), f(c.Reasoning), f(c.Total)})
		if i == len(all)-1 && len(all) > 1 {
			r.Table.Rows = append(r.Table.Rows, Rule)
		}
		r.Table.Rows = append(r.Table.Rows, []string{c.Model, FormatCost(c.Input), FormatCost(c.CachedInput), FormatCost(c.Output), FormatCost(c.Reasoning), FormatCost(c.Total)})
	}
	return r
}

// HourlyRecord is the machine-readable form of one hour bucket.
type HourlyRecord struct {
	Hour        int      `json:"hour"`
	Events      int      `json:"events"`
	TotalTokens int64    `json:"total_tokens"`
	CostUSD     *float64 `json:"cost_usd,omitempty"`
}

// HourlyReport renders a token histogram by hour of day.
func HourlyReport(hours []model.HourlyStats) Report {
	r := Report{
		Fields: []string{"hour", "events", "total_tokens", "cost_usd"},
		Table:  Table{Headers: []string{"hour", "events", "total", "$", ""}, Left: []int{4}},
	}
	var top int64
	for _, h := range hours {
		top = max(top, h.TotalTokens)
	}
	for _, h := range hours {
		r.Records = append(r.Records, HourlyRecord{Hour: h.Hour, Events: h.Events, TotalTokens: h.TotalTokens, CostUSD: h.CostUSD})
		r.Rows = append(r.Rows, []string{strconv.Itoa(h.Hour), strconv.Itoa(h.Events), itoa(h.TotalTokens), usd2(h.CostUSD)})
		r.Table.Rows = append(r.Table.Rows, []string{
			fmt.Sprintf("%02d:00", h.Hour), FormatNumber(int64(h.Events)), FormatTokens(h.TotalTokens), usd2(h.CostUSD),
			RenderBar(float64(h.TotalTokens), float64(top), 30),
		})
	}
	return r
}

// SummaryRecord is the machine-readable totals row.
type SummaryRecord struct {
	Events                int      `json:"events"`
	InputTokens           int64    `json:"input_tokens"`
	CachedInputTokens     int64    `json:"cached_input_tokens"`
	OutputTokens          int64    `json:"output_tokens"`
	ReasoningOutputTokens int64    `json:"reasoning_output_tokens"`
	TotalTokens           int64    `json:"total_tokens"`
	CostUSD               *float64 `json:"cost_usd,omitempty"`
}

// SummaryReport renders an aggregate as a two-column table.
func SummaryReport(a model.Aggregate) Report {
	rec := SummaryRecord{
		Events: a.Events, InputTokens: a.InputTokens, CachedInputTokens: a.CachedInputTokens,
		OutputTokens: a.OutputTokens, ReasoningOutputTokens: a.ReasoningOutputTokens,
		TotalTokens: a.TotalTokens, CostUSD: a.CostUSD,
	}
	r := Report{
		Fields:  []string{"events", "input_tokens", "cached_input_tokens", "output_tokens", "reasoning_output_tokens", "total_tokens", "cost_usd"},
		Rows:    [][]string{{strconv.Itoa(a.Events), itoa(a.InputTokens), itoa(a.CachedInputTokens), itoa(a.OutputTokens), itoa(a.ReasoningOutputTokens), itoa(a.TotalTokens), usd2(a.CostUSD)}},
		Records: []any{rec},
		Table: Table{
			Headers: []string{"metric", "value"},
			Rows: [][]string{
				{"events", FormatNumber(int64(a.Events))},
				{"input", FormatNumber(a.InputTokens)},
				{"cached input", FormatNumber(a.CachedInputTokens)},
				{"output", FormatNumber(a.OutputTokens)},
				{"reasoning", FormatNumber(a.ReasoningOutputTokens)},
				{"total", FormatNumber(a.TotalTokens)},
			},
		},
	}
	if a.CostUSD != nil {
		r.Table.Rows = append(r.Table.Rows, []string{"cost", FormatCost(*a.CostUSD)})
	}
	return r
}

// SummaryLine is the one-line stderr summary printed after machine output.
func SummaryLine(a model.Aggregate) string {
	line := fmt.Sprintf("summary\ti(c)=%s\to(r)=%s\tt=%s",
		FormatPair(a.InputTokens, a.CachedInputTokens),
		FormatPair(a.OutputTokens, a.ReasoningOutputTokens),
		FormatTokens(a.TotalTokens))
	if a.CostUSD != nil {
		line += "\t$=" + FormatUSD(a.CostUSD)
	}
	return line
}
