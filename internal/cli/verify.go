package cli

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"pittsburgh/internal/browser"
	"pittsburgh/internal/history"
	"pittsburgh/internal/scenario"
	"pittsburgh/internal/verifier"
)

func verifyCmd() *cobra.Command {
	var (
		targetURL    string
		scenarioPath string
		outDir       string
		workspace    string
		reportPath   string
		historyDSN   string
		headed       bool
		strict       bool
	)

	c := &cobra.Command{
		Use:   "verify",
		Short: "Drive the page's theme toggle and capture screenshots",
		Long: `Opens the target page in headless chromium, waits for the network to go
idle, screenshots the initial state, then selects each theme mode from the
toggle's menu and screenshots the page after a settle delay. UI failures
are logged and the pass continues best-effort.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sc, err := resolveScenario(scenarioPath, targetURL)
			if err != nil {
				return err
			}

			opts := verifier.Options{Scenario: sc}
			if workspace != "" {
				paths, perr := verifier.PrepareRun(workspace, "")
				if perr != nil {
					return fmt.Errorf("prepare run: %w", perr)
				}
				opts.RunID = paths.RunID
				opts.OutDir = paths.ArtifactsDir
				opts.RunLogPath = paths.LogPath
				opts.ReportPath = paths.ReportPath
			}
			// explicit flags win over the workspace layout
			if outDir != "" {
				opts.OutDir = outDir
			}
			if reportPath != "" {
				opts.ReportPath = reportPath
			}

			debug, _ := cmd.Flags().GetBool("debug")
			session, serr := browser.Start(browser.Options{
				Headless: !headed,
				Width:    sc.Viewport.Width,
				Height:   sc.Viewport.Height,
				FullPage: sc.FullPage,
				Verbose:  debug,
			})
			if serr != nil {
				return fmt.Errorf("start browser: %w", serr)
			}

			res, rerr := verifier.Run(opts, session)
			if rerr != nil {
				return rerr
			}

			if historyDSN != "" {
				recordRun(historyDSN, res.Manifest)
			}

			if strict && !res.Manifest.Verified() {
				return fmt.Errorf("verification incomplete: %s", res.Manifest.Status)
			}
			return nil
		},
	}

	c.Flags().StringVar(&targetURL, "url", "", "target page URL (default "+scenario.DefaultTargetURL+")")
	c.Flags().StringVar(&scenarioPath, "scenario", "", "scenario YAML file")
	c.Flags().StringVar(&outDir, "out", "", "screenshot directory (default: working directory)")
	c.Flags().StringVar(&workspace, "workspace", "", "record the pass under <workspace>/runs/<id>")
	c.Flags().StringVar(&reportPath, "report", "", "write the run manifest to this path")
	c.Flags().StringVar(&historyDSN, "history", "", "run index database (sqlite path or postgres:// URL)")
	c.Flags().BoolVar(&headed, "headed", false, "show the browser window")
	c.Flags().BoolVar(&strict, "strict", false, "exit non-zero unless every mode was verified")
	return c
}

// recordRun indexes a finished pass, best-effort.
func recordRun(dsn string, m verifier.Manifest) {
	st, err := history.Open(dsn)
	if err != nil {
		log.Warnf("Run history unavailable: %v", err)
		return
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			log.Debugf("Error closing run history: %v", cerr)
		}
	}()
	if err := st.Add(history.FromManifest(m)); err != nil {
		log.Warnf("Could not record run: %v", err)
	}
}
