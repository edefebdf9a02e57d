package verifier

import (
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pittsburgh/internal/scenario"
)

// fakeBrowser records every call and writes small solid PNGs for
// screenshots: white normally, black for dark-mode captures, so the
// wrap-up diff sees two fully different images.
type fakeBrowser struct {
	navErr    error
	idleErr   error
	panicIdle bool
	counts    map[string]int
	clickErr  map[string]error
	shotErr   map[string]error
	evalJSON  string
	evalErr   error
	stored    map[string]string

	clicks  []string
	shots   []string
	settles []time.Duration
	closed  int
}

func newFakeBrowser() *fakeBrowser {
	return &fakeBrowser{
		counts: map[string]int{
			"button/Toggle theme": 1,
			"menuitem/Light":      1,
			"menuitem/Dark":       1,
		},
		clickErr: map[string]error{},
		shotErr:  map[string]error{},
		evalJSON: `{"classes":["dark"],"data_theme":"dark","color_scheme":"dark","background":"rgb(2, 6, 23)"}`,
		stored:   map[string]string{"theme": "dark"},
	}
}

func roleKey(role, name string) string { return role + "/" + name }

func (f *fakeBrowser) Navigate(string) error { return f.navErr }

func (f *fakeBrowser) WaitIdle(time.Duration) error {
	if f.panicIdle {
		panic("page gone")
	}
	return f.idleErr
}

func (f *fakeBrowser) Screenshot(path string) error {
	if err := f.shotErr[filepath.Base(path)]; err != nil {
		return err
	}
	c := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	if strings.Contains(filepath.Base(path), "_dark") {
		c = color.RGBA{A: 255}
	}
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()
	if err := png.Encode(out, img); err != nil {
		return err
	}
	f.shots = append(f.shots, path)
	return nil
}

func (f *fakeBrowser) CountRole(role, name string) (int, error) {
	return f.counts[roleKey(role, name)], nil
}

func (f *fakeBrowser) ClickRole(role, name string) error {
	key := roleKey(role, name)
	if err := f.clickErr[key]; err != nil {
		return err
	}
	f.clicks = append(f.clicks, key)
	return nil
}

func (f *fakeBrowser) Settle(d time.Duration) { f.settles = append(f.settles, d) }

func (f *fakeBrowser) EvalJSON(string) (string, error) { return f.evalJSON, f.evalErr }

func (f *fakeBrowser) StoredValue(names ...string) (string, bool, error) {
	for _, n := range names {
		if v, ok := f.stored[n]; ok {
			return v, true, nil
		}
	}
	return "", false, nil
}

func (f *fakeBrowser) Close() error {
	f.closed++
	return nil
}

func testOptions(t *testing.T) Options {
	return Options{Scenario: scenario.Default(), OutDir: t.TempDir()}
}

func TestRunVerifiesBothModes(t *testing.T) {
	fake := newFakeBrowser()
	opts := testOptions(t)

	res, err := Run(opts, fake)
	require.NoError(t, err)

	m := res.Manifest
	assert.True(t, m.Navigated)
	assert.True(t, m.ToggleFound)
	assert.Equal(t, StatusVerified, m.Status)
	assert.True(t, m.Verified())

	// toggle reopens the menu before each selection
	assert.Equal(t, []string{
		"button/Toggle theme",
		"menuitem/Light",
		"button/Toggle theme",
		"menuitem/Dark",
	}, fake.clicks)

	require.Len(t, m.Modes, 2)
	for _, mode := range m.Modes {
		assert.True(t, mode.MenuItemFound)
		assert.True(t, mode.Clicked)
		require.NotEmpty(t, mode.Screenshot)
		_, statErr := os.Stat(mode.Screenshot)
		assert.NoError(t, statErr, "screenshot file must exist for %s", mode.Name)
		require.NotNil(t, mode.Probe)
		assert.Equal(t, "dark", mode.Probe.DataTheme)
	}
	assert.Equal(t, filepath.Join(opts.OutDir, "verification_theme_initial.png"), m.InitialShot)
	assert.Equal(t, []time.Duration{time.Second, time.Second}, fake.settles)

	assert.Equal(t, "dark", m.StoredTheme)
	require.NotNil(t, m.Diff)
	assert.InDelta(t, 1.0, m.Diff.Ratio, 0.001, "light and dark captures are fully different")

	assert.Equal(t, 1, fake.closed)
}

func TestRunToggleMissing(t *testing.T) {
	hook := test.NewGlobal()
	fake := newFakeBrowser()
	fake.counts["button/Toggle theme"] = 0
	opts := testOptions(t)

	res, err := Run(opts, fake)
	require.NoError(t, err)

	m := res.Manifest
	assert.False(t, m.ToggleFound)
	assert.Equal(t, StatusToggleMissing, m.Status)
	assert.Empty(t, fake.clicks, "no click attempts when the toggle is absent")

	require.Len(t, m.Modes, 2)
	for _, mode := range m.Modes {
		assert.False(t, mode.MenuItemFound)
		assert.False(t, mode.Clicked)
		assert.Empty(t, mode.Screenshot)
	}

	var found bool
	for _, e := range hook.AllEntries() {
		if e.Message == "Theme toggle button NOT found." {
			found = true
		}
	}
	assert.True(t, found, "absence must be logged clearly")

	// only the initial capture exists
	_, statErr := os.Stat(filepath.Join(opts.OutDir, "verification_theme_initial.png"))
	assert.NoError(t, statErr)
	_, statErr = os.Stat(filepath.Join(opts.OutDir, "verification_theme_light.png"))
	assert.True(t, os.IsNotExist(statErr))
	_, statErr = os.Stat(filepath.Join(opts.OutDir, "verification_theme_dark.png"))
	assert.True(t, os.IsNotExist(statErr))

	assert.Equal(t, 1, fake.closed)
}

func TestRunNavigationFailure(t *testing.T) {
	fake := newFakeBrowser()
	fake.navErr = errors.New("connection refused")
	opts := testOptions(t)

	res, err := Run(opts, fake)
	require.NoError(t, err, "navigation failure is best-effort, not fatal")

	m := res.Manifest
	assert.False(t, m.Navigated)
	assert.Equal(t, StatusNavigationFailed, m.Status)
	assert.Empty(t, fake.clicks)
	assert.Empty(t, fake.shots)
	assert.Equal(t, 1, fake.closed)
}

func TestRunClosesBrowserOnPanic(t *testing.T) {
	fake := newFakeBrowser()
	fake.panicIdle = true
	opts := testOptions(t)

	require.Panics(t, func() {
		_, _ = Run(opts, fake)
	})
	assert.Equal(t, 1, fake.closed, "browser must be closed during unwinding")
}

func TestRunClosesBrowserOnBadScenario(t *testing.T) {
	fake := newFakeBrowser()

	_, err := Run(Options{}, fake)
	require.Error(t, err)
	assert.Equal(t, 1, fake.closed)
}

func TestRunMissingLightStillSelectsDark(t *testing.T) {
	fake := newFakeBrowser()
	fake.counts["menuitem/Light"] = 0
	opts := testOptions(t)

	res, err := Run(opts, fake)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"button/Toggle theme",
		"button/Toggle theme",
		"menuitem/Dark",
	}, fake.clicks, "a missing entry skips its selection but not the next mode")

	m := res.Manifest
	require.Len(t, m.Modes, 2)
	assert.False(t, m.Modes[0].MenuItemFound)
	assert.False(t, m.Modes[0].Clicked)
	assert.True(t, m.Modes[1].Clicked)
	assert.Equal(t, StatusPartial, m.Status)

	_, statErr := os.Stat(filepath.Join(opts.OutDir, "verification_theme_light.png"))
	assert.True(t, os.IsNotExist(statErr), "no capture without a successful selection")
	_, statErr = os.Stat(filepath.Join(opts.OutDir, "verification_theme_dark.png"))
	assert.NoError(t, statErr)
}

func TestRunIdleTimeoutContinues(t *testing.T) {
	fake := newFakeBrowser()
	fake.idleErr = errors.New("timeout 5000ms exceeded")
	opts := testOptions(t)

	res, err := Run(opts, fake)
	require.NoError(t, err)

	m := res.Manifest
	assert.True(t, m.IdleTimeout)
	assert.Equal(t, StatusVerified, m.Status, "idle timeout alone does not fail the pass")
}

func TestRunDarkClickFails(t *testing.T) {
	fake := newFakeBrowser()
	fake.clickErr["menuitem/Dark"] = errors.New("element detached")
	opts := testOptions(t)

	res, err := Run(opts, fake)
	require.NoError(t, err)

	m := res.Manifest
	require.Len(t, m.Modes, 2)
	assert.True(t, m.Modes[0].Clicked)
	assert.False(t, m.Modes[1].Clicked)
	assert.Empty(t, m.Modes[1].Screenshot)
	assert.Equal(t, StatusPartial, m.Status)

	_, statErr := os.Stat(filepath.Join(opts.OutDir, "verification_theme_dark.png"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunInitialScreenshotFailureContinues(t *testing.T) {
	fake := newFakeBrowser()
	fake.shotErr["verification_theme_initial.png"] = errors.New("disk full")
	opts := testOptions(t)

	res, err := Run(opts, fake)
	require.NoError(t, err)

	m := res.Manifest
	assert.Empty(t, m.InitialShot)
	assert.Equal(t, StatusVerified, m.Status, "mode captures still succeeded")
}

func TestRunWritesWorkspaceArtifacts(t *testing.T) {
	workspace := t.TempDir()
	paths, err := PrepareRun(workspace, "")
	require.NoError(t, err)
	require.NotEmpty(t, paths.RunID)
	assert.DirExists(t, paths.ArtifactsDir)

	fake := newFakeBrowser()
	opts := Options{
		Scenario:   scenario.Default(),
		OutDir:     paths.ArtifactsDir,
		RunID:      paths.RunID,
		RunLogPath: paths.LogPath,
		ReportPath: paths.ReportPath,
	}

	res, err := Run(opts, fake)
	require.NoError(t, err)
	assert.Equal(t, paths.RunID, res.RunID)

	loaded, err := LoadManifest(paths.ReportPath)
	require.NoError(t, err)
	assert.Equal(t, paths.RunID, loaded.RunID)
	assert.Equal(t, StatusVerified, loaded.Status)
	assert.Equal(t, res.Manifest.TargetURL, loaded.TargetURL)

	data, err := os.ReadFile(paths.LogPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.NotEmpty(t, lines)
	var first logLine
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "browser", first.Scope)
	assert.False(t, first.TS.IsZero())

	ids, err := FindRuns(workspace)
	require.NoError(t, err)
	assert.Equal(t, []string{paths.RunID}, ids)
}

func TestRunLogCreateFailure(t *testing.T) {
	fake := newFakeBrowser()
	opts := testOptions(t)
	opts.RunLogPath = filepath.Join(t.TempDir(), "missing", "runner.ndjson")

	_, err := Run(opts, fake)
	require.Error(t, err)
	assert.Equal(t, 1, fake.closed)
}
