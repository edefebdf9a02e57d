package verifier

import (
	"strings"

	"github.com/tidwall/gjson"
)

// themeProbeJS snapshots the attributes pages commonly flip when switching
// themes: root class list, data-theme / data-color-mode attributes, the
// computed color-scheme and the body background color.
const themeProbeJS = `() => JSON.stringify({
	classes: Array.from(document.documentElement.classList),
	data_theme: document.documentElement.getAttribute('data-theme') || '',
	color_mode: document.documentElement.getAttribute('data-color-mode') || '',
	color_scheme: getComputedStyle(document.documentElement).colorScheme || '',
	background: getComputedStyle(document.body).backgroundColor || ''
})`

// ThemeState is the probed appearance of the page after a mode selection.
type ThemeState struct {
	Classes     []string `json:"classes,omitempty"`
	DataTheme   string   `json:"data_theme,omitempty"`
	ColorMode   string   `json:"color_mode,omitempty"`
	ColorScheme string   `json:"color_scheme,omitempty"`
	Background  string   `json:"background,omitempty"`
}

func parseThemeState(raw string) ThemeState {
	st := ThemeState{
		DataTheme:   gjson.Get(raw, "data_theme").String(),
		ColorMode:   gjson.Get(raw, "color_mode").String(),
		ColorScheme: gjson.Get(raw, "color_scheme").String(),
		Background:  gjson.Get(raw, "background").String(),
	}
	for _, c := range gjson.Get(raw, "classes").Array() {
		st.Classes = append(st.Classes, c.String())
	}
	return st
}

func (t ThemeState) String() string {
	var parts []string
	if len(t.Classes) > 0 {
		parts = append(parts, "classes="+strings.Join(t.Classes, ","))
	}
	if t.DataTheme != "" {
		parts = append(parts, "data-theme="+t.DataTheme)
	}
	if t.ColorMode != "" {
		parts = append(parts, "color-mode="+t.ColorMode)
	}
	if t.ColorScheme != "" {
		parts = append(parts, "color-scheme="+t.ColorScheme)
	}
	if t.Background != "" {
		parts = append(parts, "background="+t.Background)
	}
	if len(parts) == 0 {
		return "unknown"
	}
	return strings.Join(parts, " ")
}
