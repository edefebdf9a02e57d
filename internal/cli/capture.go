package cli

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"pittsburgh/internal/browser"
	"pittsburgh/internal/scenario"
)

func captureCmd() *cobra.Command {
	var (
		targetURL string
		outPath   string
		fullPage  bool
		settleMS  int
	)

	c := &cobra.Command{
		Use:   "capture",
		Short: "Take a single screenshot of the target page",
		RunE: func(cmd *cobra.Command, _ []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			session, err := browser.Start(browser.Options{
				Headless: true,
				FullPage: fullPage,
				Verbose:  debug,
			})
			if err != nil {
				return fmt.Errorf("start browser: %w", err)
			}
			defer func() {
				if cerr := session.Close(); cerr != nil {
					log.Warnf("Error closing browser: %v", cerr)
				}
			}()

			log.Infof("Navigating to %s...", targetURL)
			if err := session.Navigate(targetURL); err != nil {
				return fmt.Errorf("navigate: %w", err)
			}
			if err := session.WaitIdle(time.Duration(scenario.DefaultPageLoadMS) * time.Millisecond); err != nil {
				log.Warn("Timeout waiting for networkidle.")
			}
			session.Settle(time.Duration(settleMS) * time.Millisecond)

			if err := session.Screenshot(outPath); err != nil {
				return fmt.Errorf("screenshot: %w", err)
			}
			log.Infof("Saved screenshot to %s", outPath)
			return nil
		},
	}

	c.Flags().StringVar(&targetURL, "url", scenario.DefaultTargetURL, "target page URL")
	c.Flags().StringVar(&outPath, "out", "capture.png", "output file")
	c.Flags().BoolVar(&fullPage, "full-page", true, "capture the full scrollable page")
	c.Flags().IntVar(&settleMS, "settle-ms", 1200, "extra settle delay before the shot")
	return c
}
