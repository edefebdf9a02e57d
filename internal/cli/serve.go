package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"pittsburgh/internal/api"
	"pittsburgh/internal/browser"
	"pittsburgh/internal/history"
	"pittsburgh/internal/scenario"
	"pittsburgh/internal/verifier"
)

func serveCmd() *cobra.Command {
	var (
		addr       string
		workspace  string
		historyDSN string
		headed     bool
	)

	c := &cobra.Command{
		Use:   "serve",
		Short: "Run the verification HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			debug, _ := cmd.Flags().GetBool("debug")

			if workspace == "" {
				wd, err := os.Getwd()
				if err != nil {
					return fmt.Errorf("resolve workspace: %w", err)
				}
				workspace = wd
			}

			var store *history.Store
			if historyDSN != "" {
				st, err := history.Open(historyDSN)
				if err != nil {
					return fmt.Errorf("open run history: %w", err)
				}
				store = st
				defer func() {
					if cerr := store.Close(); cerr != nil {
						log.Debugf("Error closing run history: %v", cerr)
					}
				}()
			}

			runFn := func(sc scenario.Scenario) (verifier.Result, error) {
				paths, err := verifier.PrepareRun(workspace, "")
				if err != nil {
					return verifier.Result{}, fmt.Errorf("prepare run: %w", err)
				}
				session, err := browser.Start(browser.Options{
					Headless: !headed,
					Width:    sc.Viewport.Width,
					Height:   sc.Viewport.Height,
					FullPage: sc.FullPage,
					Verbose:  debug,
				})
				if err != nil {
					return verifier.Result{}, fmt.Errorf("start browser: %w", err)
				}
				res, err := verifier.Run(verifier.Options{
					Scenario:   sc,
					OutDir:     paths.ArtifactsDir,
					RunID:      paths.RunID,
					RunLogPath: paths.LogPath,
					ReportPath: paths.ReportPath,
				}, session)
				if err != nil {
					return verifier.Result{}, err
				}
				if store != nil {
					if aerr := store.Add(history.FromManifest(res.Manifest)); aerr != nil {
						log.Warnf("Could not record run: %v", aerr)
					}
				}
				return res, nil
			}

			srv := api.NewServer(api.Config{
				Addr:      addr,
				Debug:     debug,
				Workspace: workspace,
				Store:     store,
				Run:       runFn,
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				log.Info("Shutting down...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return srv.Stop(shutdownCtx)
			}
		},
	}

	c.Flags().StringVar(&addr, "addr", ":8787", "listen address")
	c.Flags().StringVar(&workspace, "workspace", "", "directory for run artifacts (default: working directory)")
	c.Flags().StringVar(&historyDSN, "history", "", "run index database (sqlite path or postgres:// URL)")
	c.Flags().BoolVar(&headed, "headed", false, "show the browser window")
	return c
}
