// Package scenario describes what a verification pass should drive: the
// target page, the toggle control, the theme modes to select, and the
// timing knobs. The zero-config default reproduces the stock theme check
// against a local dev server.
package scenario

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

// Built-in defaults for the stock theme check.
const (
	DefaultTargetURL  = "http://localhost:8080/automation"
	DefaultPrefix     = "verification_theme"
	DefaultPageLoadMS = 5000
	DefaultSettleMS   = 1000
)

// Scenario is the full description of one verification pass.
type Scenario struct {
	Name        string   `yaml:"name"`
	TargetURL   string   `yaml:"target_url"`
	Prefix      string   `yaml:"screenshot_prefix"`
	FullPage    bool     `yaml:"full_page"`
	Toggle      Control  `yaml:"toggle"`
	Modes       []Mode   `yaml:"modes"`
	Waits       Waits    `yaml:"waits"`
	Viewport    Viewport `yaml:"viewport"`
	StorageKeys []string `yaml:"storage_keys"`
	Diff        Diff     `yaml:"diff"`
}

// Control locates a UI element by ARIA role and accessible name.
type Control struct {
	Role string `yaml:"role"`
	Name string `yaml:"name"`
}

// Mode is one theme entry in the toggle's menu. Slug names the screenshot
// file suffix and defaults to the lowercased mode name.
type Mode struct {
	Name string `yaml:"name"`
	Slug string `yaml:"slug"`
}

// Waits holds the timing knobs of the pass in milliseconds.
type Waits struct {
	PageLoadMS int `yaml:"page_load_ms"`
	SettleMS   int `yaml:"settle_ms"`
}

// Viewport is the browser window size.
type Viewport struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Diff configures the light-vs-dark screenshot comparison. PixelThreshold
// is the per-pixel color distance passed to the matcher; MinRatio is the
// smallest fraction of differing pixels accepted before the pass warns
// that the themes look identical.
type Diff struct {
	PixelThreshold float64 `yaml:"pixel_threshold"`
	MinRatio       float64 `yaml:"min_ratio"`
}

// Default returns the built-in theme check scenario.
func Default() Scenario {
	return Scenario{
		Name:      "theme-toggle",
		TargetURL: DefaultTargetURL,
		Prefix:    DefaultPrefix,
		Toggle:    Control{Role: "button", Name: "Toggle theme"},
		Modes: []Mode{
			{Name: "Light", Slug: "light"},
			{Name: "Dark", Slug: "dark"},
		},
		Waits:       Waits{PageLoadMS: DefaultPageLoadMS, SettleMS: DefaultSettleMS},
		Viewport:    Viewport{Width: 1280, Height: 720},
		StorageKeys: []string{"theme", "color-theme", "ui-theme"},
		Diff:        Diff{PixelThreshold: 0.1, MinRatio: 0.001},
	}
}

// Load reads a scenario from a YAML file, fills omitted fields from the
// defaults and validates the result. Unknown fields are an error so typos
// do not silently fall back to defaults.
func Load(path string) (Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("read scenario: %w", err)
	}
	var s Scenario
	if err := yaml.UnmarshalWithOptions(data, &s, yaml.Strict()); err != nil {
		return Scenario{}, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	s.applyDefaults()
	if err := s.Validate(); err != nil {
		return Scenario{}, fmt.Errorf("scenario %s: %w", path, err)
	}
	return s, nil
}

func (s *Scenario) applyDefaults() {
	def := Default()
	if s.Name == "" {
		s.Name = def.Name
	}
	if s.TargetURL == "" {
		s.TargetURL = def.TargetURL
	}
	if s.Prefix == "" {
		s.Prefix = def.Prefix
	}
	if s.Toggle.Role == "" {
		s.Toggle.Role = def.Toggle.Role
	}
	if s.Toggle.Name == "" {
		s.Toggle.Name = def.Toggle.Name
	}
	if len(s.Modes) == 0 {
		s.Modes = def.Modes
	}
	for i := range s.Modes {
		if s.Modes[i].Slug == "" {
			s.Modes[i].Slug = slugify(s.Modes[i].Name)
		}
	}
	if s.Waits.PageLoadMS == 0 {
		s.Waits.PageLoadMS = def.Waits.PageLoadMS
	}
	if s.Waits.SettleMS == 0 {
		s.Waits.SettleMS = def.Waits.SettleMS
	}
	if s.Viewport.Width == 0 {
		s.Viewport.Width = def.Viewport.Width
	}
	if s.Viewport.Height == 0 {
		s.Viewport.Height = def.Viewport.Height
	}
	if len(s.StorageKeys) == 0 {
		s.StorageKeys = def.StorageKeys
	}
	if s.Diff.PixelThreshold == 0 {
		s.Diff.PixelThreshold = def.Diff.PixelThreshold
	}
	if s.Diff.MinRatio == 0 {
		s.Diff.MinRatio = def.Diff.MinRatio
	}
}

// Validate reports the first problem that would make the pass meaningless.
func (s Scenario) Validate() error {
	if s.TargetURL == "" {
		return errors.New("target_url is required")
	}
	if s.Toggle.Name == "" {
		return errors.New("toggle.name is required")
	}
	if len(s.Modes) == 0 {
		return errors.New("at least one mode is required")
	}
	for i, m := range s.Modes {
		if m.Name == "" {
			return fmt.Errorf("modes[%d].name is required", i)
		}
	}
	if s.Waits.PageLoadMS < 0 || s.Waits.SettleMS < 0 {
		return errors.New("waits must not be negative")
	}
	return nil
}

// PageLoadTimeout returns the network-idle wait budget.
func (s Scenario) PageLoadTimeout() time.Duration {
	return time.Duration(s.Waits.PageLoadMS) * time.Millisecond
}

// SettleDelay returns the pause after each theme selection.
func (s Scenario) SettleDelay() time.Duration {
	return time.Duration(s.Waits.SettleMS) * time.Millisecond
}

func slugify(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "-")
}
