package verifier

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"pittsburgh/internal/visual"
)

// Pass statuses recorded in the manifest.
const (
	StatusVerified         = "verified"
	StatusPartial          = "partial"
	StatusToggleMissing    = "toggle-missing"
	StatusNavigationFailed = "navigation-failed"
)

// Manifest is persisted to run.json and summarizes one pass.
type Manifest struct {
	RunID       string          `json:"run_id"`
	StartedAt   time.Time       `json:"started_at"`
	FinishedAt  time.Time       `json:"finished_at"`
	TargetURL   string          `json:"target_url"`
	Scenario    string          `json:"scenario,omitempty"`
	Navigated   bool            `json:"navigated"`
	IdleTimeout bool            `json:"idle_timeout,omitempty"`
	InitialShot string          `json:"initial_screenshot,omitempty"`
	ToggleFound bool            `json:"toggle_found"`
	Modes       []ModeResult    `json:"modes"`
	StoredTheme string          `json:"stored_theme,omitempty"`
	Diff        *visual.Summary `json:"diff,omitempty"`
	LogPath     string          `json:"log_path,omitempty"`
	Status      string          `json:"status"`
}

// ModeResult records what happened for one theme mode.
type ModeResult struct {
	Name          string      `json:"name"`
	Slug          string      `json:"slug"`
	MenuItemFound bool        `json:"menu_item_found"`
	Clicked       bool        `json:"clicked"`
	Screenshot    string      `json:"screenshot,omitempty"`
	Probe         *ThemeState `json:"probe,omitempty"`
}

// Verified reports whether every mode was selected and captured.
func (m Manifest) Verified() bool {
	return m.Status == StatusVerified
}

func writeManifest(path string, m Manifest) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(m)
}

// LoadManifest reads a manifest from disk.
func LoadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	return m, nil
}

// RunPaths are the artifact locations of a workspace run.
type RunPaths struct {
	RunID        string
	RunDir       string
	ArtifactsDir string
	LogPath      string
	ReportPath   string
}

// PrepareRun creates the runs/<id>/{artifacts,logs} layout under workspace
// and returns the paths a pass should write to. An empty runID generates
// one.
func PrepareRun(workspace, runID string) (RunPaths, error) {
	if workspace == "" {
		cwd, _ := os.Getwd()
		workspace = cwd
	}
	if runID == "" {
		runID = uuid.New().String()
	}
	runDir := filepath.Join(workspace, "runs", runID)
	artifactsDir := filepath.Join(runDir, "artifacts")
	logsDir := filepath.Join(runDir, "logs")
	if err := os.MkdirAll(artifactsDir, 0o755); err != nil {
		return RunPaths{}, err
	}
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return RunPaths{}, err
	}
	return RunPaths{
		RunID:        runID,
		RunDir:       runDir,
		ArtifactsDir: artifactsDir,
		LogPath:      filepath.Join(logsDir, "runner.ndjson"),
		ReportPath:   filepath.Join(runDir, "run.json"),
	}, nil
}

// FindRuns returns run IDs under workspace/runs.
func FindRuns(workspace string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(workspace, "runs"))
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	return ids, nil
}
