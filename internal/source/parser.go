// Package source reads the Codex TUI log: timestamps, line classes and
// TokenCount events.
package source

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/theirongolddev/cxburn/internal/model"
)

var (
	reTokenCount = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\S+\s+\w+\s+handle_codex_event:\s+TokenCount\(TokenUsage\b`)
	reModel      = regexp.MustCompile(`(?i)SessionConfigured\(.*?model:\s*"([^"]+)"`)
)

// Field aliases seen across Codex versions. The first alias present wins,
// including an explicit zero or None.
var (
	inputAliases     = fieldPatterns("input_tokens", "prompt_tokens", "prompt_input_tokens", "tokens_in")
	cachedAliases    = fieldPatterns("cached_input_tokens", "prompt_cached", "cache_read_tokens", "cache_read", "cached_tokens", "cached_prompt_tokens")
	outputAliases    = fieldPatterns("output_tokens", "completion_tokens", "tokens_out")
	reasoningAliases = fieldPatterns("reasoning_output_tokens", "reasoning_tokens")
	totalAliases     = fieldPatterns("total_tokens", "total")
)

func fieldPatterns(names ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(names))
	for i, n := range names {
		out[i] = regexp.MustCompile(`\b` + regexp.QuoteMeta(n) + `:\s*(?:Some\((\d+)\)|(\d+)|None)`)
	}
	return out
}

// extractField returns the value of the first alias present on the line.
// Values may be written as `n`, `Some(n)` or `None`.
func extractField(line string, aliases []*regexp.Regexp) int64 {
	for _, re := range aliases {
		m := re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		digits := m[1]
		if digits == "" {
			digits = m[2]
		}
		if digits == "" {
			return 0
		}
		n, err := strconv.ParseInt(digits, 10, 64)
		if err != nil {
			return 0
		}
		return n
	}
	return 0
}

// Parser turns log lines into TokenEvents. It is stateful only in the
// model name it remembers from the latest SessionConfigured line, so the
// same Parser must see lines in log order.
type Parser struct {
	includeModel bool
	model        string
}

// NewParser returns a parser. When includeModel is set, events carry the
// most recently configured model name.
func NewParser(includeModel bool) *Parser {
	return &Parser{includeModel: includeModel}
}

// Model returns the most recently configured model, or "" if none seen.
func (p *Parser) Model() string {
	return p.model
}

// Parse extracts a TokenEvent from one raw line. The boolean is false for
// lines that are not real TokenCount events (including quoted or diffed
// copies of one).
func (p *Parser) Parse(raw string) (model.TokenEvent, bool) {
	line := StripANSI(raw)

	if p.includeModel && strings.Contains(line, "SessionConfigured") && strings.Contains(line, "model:") {
		if m := reModel.FindStringSubmatch(line); m != nil {
			p.model = m[1]
		}
	}

	if !reTokenCount.MatchString(line) {
		return model.TokenEvent{}, false
	}

	ts := LineTimestamp(line)
	ev := model.TokenEvent{
		RawTimestamp:          ts,
		Timestamp:             ParseTimestamp(ts),
		InputTokens:           extractField(line, inputAliases),
		CachedInputTokens:     extractField(line, cachedAliases),
		OutputTokens:          extractField(line, outputAliases),
		ReasoningOutputTokens: extractField(line, reasoningAliases),
		TotalTokens:           extractField(line, totalAliases),
	}
	if p.includeModel {
		ev.Model = p.model
	}
	return ev, true
}
