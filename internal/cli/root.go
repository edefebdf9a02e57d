// Package cli wires the themecheck commands.
package cli

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"pittsburgh/internal/scenario"
)

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:          "themecheck",
		Short:        "Verify light/dark theme toggles with a headless browser",
		SilenceUsage: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			if debug {
				log.SetLevel(log.DebugLevel)
			}
		},
	}
	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable verbose logging")

	cmd.AddCommand(verifyCmd())
	cmd.AddCommand(captureCmd())
	cmd.AddCommand(serveCmd())
	cmd.AddCommand(runsCmd())
	cmd.AddCommand(installCmd())
	cmd.AddCommand(versionCmd())
	return cmd
}

// resolveScenario loads the scenario file when given, otherwise the
// built-in default, and applies the URL override on top.
func resolveScenario(path, url string) (scenario.Scenario, error) {
	sc := scenario.Default()
	if path != "" {
		loaded, err := scenario.Load(path)
		if err != nil {
			return scenario.Scenario{}, err
		}
		sc = loaded
	}
	if url != "" {
		sc.TargetURL = url
	}
	return sc, nil
}
