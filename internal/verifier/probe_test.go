package verifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseThemeState(t *testing.T) {
	raw := `{
		"classes": ["dark", "antialiased"],
		"data_theme": "dark",
		"color_mode": "dark",
		"color_scheme": "dark",
		"background": "rgb(2, 6, 23)"
	}`
	st := parseThemeState(raw)

	assert.Equal(t, []string{"dark", "antialiased"}, st.Classes)
	assert.Equal(t, "dark", st.DataTheme)
	assert.Equal(t, "dark", st.ColorMode)
	assert.Equal(t, "dark", st.ColorScheme)
	assert.Equal(t, "rgb(2, 6, 23)", st.Background)
}

func TestParseThemeStatePartial(t *testing.T) {
	st := parseThemeState(`{"background":"rgb(255, 255, 255)"}`)
	assert.Empty(t, st.Classes)
	assert.Empty(t, st.DataTheme)
	assert.Equal(t, "rgb(255, 255, 255)", st.Background)
}

func TestParseThemeStateGarbage(t *testing.T) {
	st := parseThemeState("not json at all")
	assert.Equal(t, ThemeState{}, st)
}

func TestThemeStateString(t *testing.T) {
	st := ThemeState{Classes: []string{"dark"}, DataTheme: "dark", Background: "rgb(2, 6, 23)"}
	assert.Equal(t, "classes=dark data-theme=dark background=rgb(2, 6, 23)", st.String())

	assert.Equal(t, "unknown", ThemeState{}.String())
}
