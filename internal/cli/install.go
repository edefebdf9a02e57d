package cli

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"pittsburgh/internal/browser"
)

func installCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Download the chromium build playwright drives",
		RunE: func(cmd *cobra.Command, _ []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			log.Info("Installing playwright browsers...")
			if err := browser.Install(debug); err != nil {
				return err
			}
			log.Info("Browsers installed.")
			return nil
		},
	}
}
