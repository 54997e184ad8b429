package source

import (
	"regexp"
	"strings"

	"github.com/charmbracelet/x/ansi"

	"github.com/theirongolddev/cxburn/internal/model"
)

var (
	reTimestamp         = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}T\S+?)\s`)
	reUsageLimit        = regexp.MustCompile(`(?i)handle_codex_event:\s+Error\(ErrorEvent\b.*?usage\s+limit`)
	reSessionConfigured = regexp.MustCompile(`(?i)handle_codex_event:\s+SessionConfigured\(SessionConfiguredEvent\b`)
	reActivity          = regexp.MustCompile(`(?i)handle_codex_event:\s+(?:SessionConfigured|TaskStarted|UserMessage|ExecCommandBegin|McpToolCallBegin|PatchApplyBegin|WebSearchBegin)\(`)
)

// LineClass is the classification of one log line. A line may belong to
// several classes at once; Activity is a superset of SessionConfigured.
type LineClass struct {
	Instant           model.Instant
	UsageLimit        bool
	SessionConfigured bool
	Activity          bool
}

// Marker reports whether the line carries any trigger at all.
func (c LineClass) Marker() bool {
	return c.UsageLimit || c.Activity
}

// StripANSI removes terminal escape sequences and the line terminator.
func StripANSI(line string) string {
	line = strings.TrimRight(line, "\r\n")
	if strings.IndexByte(line, 0x1b) < 0 {
		return line
	}
	return ansi.Strip(line)
}

// LineTimestamp returns the raw leading timestamp token of a clean line.
func LineTimestamp(line string) string {
	m := reTimestamp.FindStringSubmatch(line)
	if m == nil {
		return ""
	}
	return m[1]
}

// Classify inspects one raw log line.
func Classify(raw string) LineClass {
	line := StripANSI(raw)
	c := LineClass{Instant: ParseTimestamp(LineTimestamp(line))}
	if !strings.Contains(line, "handle_codex_event") {
		return c
	}
	c.UsageLimit = reUsageLimit.MatchString(line)
	c.SessionConfigured = reSessionConfigured.MatchString(line)
	c.Activity = c.SessionConfigured || reActivity.MatchString(line)
	return c
}
