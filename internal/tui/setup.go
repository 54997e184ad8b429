package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/theirongolddev/cxburn/internal/config"
	"github.com/theirongolddev/cxburn/internal/source"
	"github.com/theirongolddev/cxburn/internal/tui/theme"
)

// SetupValues holds the answers of the setup form. Numbers stay strings
// until Apply so the inputs can be validated as typed.
type SetupValues struct {
	LogPath       string
	GapHours      string
	ForcedModel   string
	CachedPricing bool
	AutoFetch     bool
	Theme         string
}

// NewSetupValues seeds the form from cfg.
func NewSetupValues(cfg config.Config) SetupValues {
	logPath := cfg.General.LogPath
	if logPath == "" {
		logPath = source.DefaultLogPath()
	}
	return SetupValues{
		LogPath:       logPath,
		GapHours:      strconv.FormatFloat(cfg.Session.GapHours, 'f', -1, 64),
		ForcedModel:   cfg.Pricing.ForcedModel,
		CachedPricing: cfg.Pricing.CachedPricing,
		AutoFetch:     cfg.Pricing.AutoFetch,
		Theme:         cfg.Appearance.Theme,
	}
}

func validateGap(s string) error {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v <= 0 {
		return errors.New("enter a positive number of hours")
	}
	return nil
}

// Apply copies the answers into cfg.
func (v SetupValues) Apply(cfg *config.Config) error {
	gap, err := strconv.ParseFloat(strings.TrimSpace(v.GapHours), 64)
	if err != nil || gap <= 0 {
		return fmt.Errorf("invalid gap %q", v.GapHours)
	}
	cfg.Session.GapHours = gap

	cfg.General.LogPath = strings.TrimSpace(v.LogPath)
	if cfg.General.LogPath == source.DefaultLogPath() {
		cfg.General.LogPath = ""
	}
	cfg.Pricing.ForcedModel = strings.TrimSpace(v.ForcedModel)
	cfg.Pricing.CachedPricing = v.CachedPricing
	cfg.Pricing.AutoFetch = v.AutoFetch
	cfg.Appearance.Theme = v.Theme
	return nil
}

// NewSetupForm builds the first-run form bound to vals.
func NewSetupForm(vals *SetupValues) *huh.Form {
	themeOpts := make([]huh.Option[string], 0, len(theme.All))
	for _, t := range theme.All {
		themeOpts = append(themeOpts, huh.NewOption(t.Name, t.Name))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Welcome to cxburn").
				Description("Token usage and cost for the Codex CLI.\nSettings are saved to "+config.Path()+"."),
			huh.NewInput().
				Title("Codex log file").
				Description("Where codex-tui.log lives").
				Value(&vals.LogPath),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Usage window (hours)").
				Description("Length of one rate-limit window").
				Validate(validateGap).
				Value(&vals.GapHours),
			huh.NewInput().
				Title("Price every event as").
				Description("Leave empty to price each event by its own model").
				Value(&vals.ForcedModel),
			huh.NewConfirm().
				Title("Bill cached input at the cached rate?").
				Affirmative("Yes").
				Negative("No").
				Value(&vals.CachedPricing),
			huh.NewConfirm().
				Title("Fetch current prices online?").
				Affirmative("Yes").
				Negative("No").
				Value(&vals.AutoFetch),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Theme").
				Options(themeOpts...).
				Value(&vals.Theme),
		),
	).WithTheme(huh.ThemeDracula())
}
