package scenario

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	s := Default()

	assert.Equal(t, "http://localhost:8080/automation", s.TargetURL)
	assert.Equal(t, "verification_theme", s.Prefix)
	assert.Equal(t, "button", s.Toggle.Role)
	assert.Equal(t, "Toggle theme", s.Toggle.Name)
	require.Len(t, s.Modes, 2)
	assert.Equal(t, Mode{Name: "Light", Slug: "light"}, s.Modes[0])
	assert.Equal(t, Mode{Name: "Dark", Slug: "dark"}, s.Modes[1])
	assert.Equal(t, 5000, s.Waits.PageLoadMS)
	assert.Equal(t, 1000, s.Waits.SettleMS)
	assert.Equal(t, Viewport{Width: 1280, Height: 720}, s.Viewport)
	assert.False(t, s.FullPage)
	assert.NoError(t, s.Validate())
}

func TestLoad(t *testing.T) {
	t.Run("overrides merge with defaults", func(t *testing.T) {
		path := writeScenario(t, `
name: staging-check
target_url: https://staging.example.com/settings
toggle:
  name: Switch appearance
modes:
  - name: Light
  - name: Dark
  - name: High Contrast
waits:
  settle_ms: 250
`)
		s, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, "staging-check", s.Name)
		assert.Equal(t, "https://staging.example.com/settings", s.TargetURL)
		assert.Equal(t, "Switch appearance", s.Toggle.Name)
		assert.Equal(t, "button", s.Toggle.Role, "role falls back to default")
		assert.Equal(t, 5000, s.Waits.PageLoadMS, "page load falls back to default")
		assert.Equal(t, 250, s.Waits.SettleMS)
		require.Len(t, s.Modes, 3)
		assert.Equal(t, "high-contrast", s.Modes[2].Slug, "slug derived from name")
		assert.Equal(t, "verification_theme", s.Prefix)
	})

	t.Run("empty file yields the default scenario", func(t *testing.T) {
		path := writeScenario(t, "")
		s, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, Default(), s)
	})

	t.Run("unknown field rejected", func(t *testing.T) {
		path := writeScenario(t, "target_uri: http://example.com\n")
		_, err := Load(path)
		require.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := writeScenario(t, "modes: [unclosed\n")
		_, err := Load(path)
		require.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	tbl := []struct {
		name   string
		mangle func(*Scenario)
		ok     bool
	}{
		{"default is valid", func(s *Scenario) {}, true},
		{"missing target url", func(s *Scenario) { s.TargetURL = "" }, false},
		{"missing toggle name", func(s *Scenario) { s.Toggle.Name = "" }, false},
		{"no modes", func(s *Scenario) { s.Modes = nil }, false},
		{"unnamed mode", func(s *Scenario) { s.Modes[1].Name = "" }, false},
		{"negative wait", func(s *Scenario) { s.Waits.SettleMS = -1 }, false},
	}
	for _, tt := range tbl {
		t.Run(tt.name, func(t *testing.T) {
			s := Default()
			tt.mangle(&s)
			err := s.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestDurations(t *testing.T) {
	s := Default()
	assert.Equal(t, "5s", s.PageLoadTimeout().String())
	assert.Equal(t, "1s", s.SettleDelay().String())
}

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}
