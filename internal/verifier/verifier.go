package verifier

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"pittsburgh/internal/scenario"
	"pittsburgh/internal/visual"
)

// Browser is the narrow page surface a pass drives. The production
// implementation wraps a playwright session; tests substitute a fake.
type Browser interface {
	Navigate(url string) error
	WaitIdle(timeout time.Duration) error
	Screenshot(path string) error
	CountRole(role, name string) (int, error)
	ClickRole(role, name string) error
	Settle(d time.Duration)
	EvalJSON(js string) (string, error)
	StoredValue(names ...string) (string, bool, error)
	Close() error
}

// Options configure a pass.
type Options struct {
	Scenario   scenario.Scenario
	OutDir     string // screenshot directory, defaults to the working directory
	RunID      string // generated when empty
	RunLogPath string // NDJSON step log, skipped when empty
	ReportPath string // run.json manifest, skipped when empty
}

// Result identifies a finished pass and carries its manifest.
type Result struct {
	RunID      string
	Manifest   Manifest
	LogPath    string
	ReportPath string
}

// Run drives one verification pass against the browser. UI failures are
// logged and recorded in the manifest rather than returned; the error
// covers setup problems only. The browser is closed on every exit path,
// including panics.
func Run(opts Options, b Browser) (Result, error) {
	var lg *runLog
	defer func() {
		if err := b.Close(); err != nil {
			lg.warn("runner", "browser close failed", map[string]any{"error": err.Error()})
		}
	}()

	sc := opts.Scenario
	if err := sc.Validate(); err != nil {
		return Result{}, fmt.Errorf("scenario: %w", err)
	}
	runID := opts.RunID
	if runID == "" {
		runID = uuid.New().String()
	}
	outDir := opts.OutDir
	if outDir == "" {
		outDir = "."
	}

	if opts.RunLogPath != "" {
		l, err := newRunLog(opts.RunLogPath)
		if err != nil {
			return Result{}, err
		}
		lg = l
		defer lg.close()
	}

	m := Manifest{
		RunID:     runID,
		StartedAt: time.Now(),
		TargetURL: sc.TargetURL,
		Scenario:  sc.Name,
		LogPath:   opts.RunLogPath,
	}

	lg.info("browser", fmt.Sprintf("Navigating to %s...", sc.TargetURL), map[string]any{"url": sc.TargetURL})
	if err := b.Navigate(sc.TargetURL); err != nil {
		lg.warn("browser", "navigation failed", map[string]any{"error": err.Error()})
	} else {
		m.Navigated = true
		runSteps(&m, sc, outDir, b, lg)
	}

	wrapUp(&m, sc, b, lg)

	m.FinishedAt = time.Now()
	m.Status = statusOf(m)

	if opts.ReportPath != "" {
		if err := writeManifest(opts.ReportPath, m); err != nil {
			lg.warn("runner", "write manifest failed", map[string]any{"error": err.Error()})
		}
	}
	lg.info("runner", fmt.Sprintf("Verification finished: %s.", m.Status), map[string]any{"run_id": runID, "status": m.Status})

	return Result{RunID: runID, Manifest: m, LogPath: opts.RunLogPath, ReportPath: opts.ReportPath}, nil
}

// runSteps performs the UI part of the pass: idle wait, initial capture,
// toggle lookup and one selection round per mode.
func runSteps(m *Manifest, sc scenario.Scenario, outDir string, b Browser, lg *runLog) {
	if err := b.WaitIdle(sc.PageLoadTimeout()); err != nil {
		m.IdleTimeout = true
		lg.warn("browser", "Timeout waiting for networkidle.", map[string]any{"error": err.Error()})
	}

	lg.info("artifact", "Taking initial screenshot...", nil)
	initial := filepath.Join(outDir, sc.Prefix+"_initial.png")
	if err := b.Screenshot(initial); err != nil {
		lg.warn("artifact", "initial screenshot failed", map[string]any{"error": err.Error()})
	} else {
		m.InitialShot = initial
	}

	lg.info("assert", "Looking for theme toggle button...", nil)
	count, err := b.CountRole(sc.Toggle.Role, sc.Toggle.Name)
	if err != nil {
		lg.warn("assert", "toggle lookup failed", map[string]any{"error": err.Error()})
	}
	if count == 0 {
		lg.warn("assert", "Theme toggle button NOT found.", nil)
		for _, mode := range sc.Modes {
			m.Modes = append(m.Modes, ModeResult{Name: mode.Name, Slug: mode.Slug})
		}
		return
	}
	m.ToggleFound = true
	lg.info("assert", "Theme toggle button found.", nil)

	for _, mode := range sc.Modes {
		m.Modes = append(m.Modes, selectMode(sc, mode, outDir, b, lg))
	}
}

// selectMode opens the toggle menu, picks one theme entry and captures the
// page after the settle delay. A missing or unclickable entry skips the
// capture but never the remaining modes.
func selectMode(sc scenario.Scenario, mode scenario.Mode, outDir string, b Browser, lg *runLog) ModeResult {
	res := ModeResult{Name: mode.Name, Slug: mode.Slug}

	// Selecting an entry closes the menu, so reopen it for every mode.
	if err := b.ClickRole(sc.Toggle.Role, sc.Toggle.Name); err != nil {
		lg.warn("action", "toggle click failed", map[string]any{"mode": mode.Name, "error": err.Error()})
	}

	count, err := b.CountRole("menuitem", mode.Name)
	if err != nil {
		lg.warn("assert", "menu item lookup failed", map[string]any{"mode": mode.Name, "error": err.Error()})
	}
	if count == 0 {
		lg.warn("assert", fmt.Sprintf("%q menu item not found, skipping.", mode.Name), nil)
		return res
	}
	res.MenuItemFound = true

	if err := b.ClickRole("menuitem", mode.Name); err != nil {
		lg.warn("action", fmt.Sprintf("%q menu item click failed", mode.Name), map[string]any{"error": err.Error()})
		return res
	}
	res.Clicked = true
	lg.info("action", fmt.Sprintf("Clicked %q mode.", mode.Name), nil)

	b.Settle(sc.SettleDelay())

	if raw, perr := b.EvalJSON(themeProbeJS); perr != nil {
		lg.warn("probe", "theme state probe failed", map[string]any{"error": perr.Error()})
	} else {
		st := parseThemeState(raw)
		res.Probe = &st
		lg.debug("probe", fmt.Sprintf("Theme state after %q: %s", mode.Name, st), nil)
	}

	shot := filepath.Join(outDir, fmt.Sprintf("%s_%s.png", sc.Prefix, mode.Slug))
	if err := b.Screenshot(shot); err != nil {
		lg.warn("artifact", fmt.Sprintf("%q screenshot failed", mode.Name), map[string]any{"error": err.Error()})
	} else {
		res.Screenshot = shot
	}
	return res
}

// wrapUp collects the best-effort evidence that does not drive the page:
// the persisted theme value and the light-vs-dark capture diff.
func wrapUp(m *Manifest, sc scenario.Scenario, b Browser, lg *runLog) {
	if v, ok, err := b.StoredValue(sc.StorageKeys...); err != nil {
		lg.warn("probe", "storage state read failed", map[string]any{"error": err.Error()})
	} else if ok {
		m.StoredTheme = v
		lg.debug("probe", fmt.Sprintf("Persisted theme value: %s", v), nil)
	}

	var shots []string
	for _, mode := range m.Modes {
		if mode.Screenshot != "" {
			shots = append(shots, mode.Screenshot)
		}
	}
	if len(shots) < 2 {
		return
	}
	sum, err := visual.Compare(shots[0], shots[len(shots)-1], sc.Diff.PixelThreshold)
	if err != nil {
		lg.warn("artifact", "screenshot comparison failed", map[string]any{"error": err.Error()})
		return
	}
	m.Diff = &sum
	if sum.Ratio < sc.Diff.MinRatio {
		lg.warn("artifact", "theme screenshots look identical", map[string]any{"ratio": sum.Ratio})
		return
	}
	lg.debug("artifact", fmt.Sprintf("Theme screenshots differ on %.1f%% of pixels.", sum.Ratio*100), map[string]any{"ratio": sum.Ratio})
}

func statusOf(m Manifest) string {
	switch {
	case !m.Navigated:
		return StatusNavigationFailed
	case !m.ToggleFound:
		return StatusToggleMissing
	}
	for _, mode := range m.Modes {
		if !mode.Clicked || mode.Screenshot == "" {
			return StatusPartial
		}
	}
	return StatusVerified
}
