package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"pittsburgh/internal/history"
	"pittsburgh/internal/verifier"
)

func runsCmd() *cobra.Command {
	var (
		historyDSN string
		workspace  string
		limit      int
		asJSON     bool
	)

	c := &cobra.Command{
		Use:   "runs",
		Short: "List recorded verification passes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()

			var records []history.Record
			if historyDSN != "" {
				st, err := history.Open(historyDSN)
				if err != nil {
					return fmt.Errorf("open run history: %w", err)
				}
				defer st.Close()

				records, err = st.List(limit)
				if err != nil {
					return fmt.Errorf("list runs: %w", err)
				}
			} else {
				ids, err := verifier.FindRuns(workspace)
				if err != nil {
					return fmt.Errorf("scan workspace: %w", err)
				}
				for _, id := range ids {
					m, merr := verifier.LoadManifest(filepath.Join(workspace, "runs", id, "run.json"))
					if merr != nil {
						continue
					}
					records = append(records, history.FromManifest(m))
					if limit > 0 && len(records) >= limit {
						break
					}
				}
			}

			if asJSON {
				return printJSON(out, records)
			}
			for _, r := range records {
				fmt.Fprintln(out, formatRecord(r))
			}
			return nil
		},
	}

	c.Flags().StringVar(&historyDSN, "history", "", "run index database (sqlite path or postgres:// URL)")
	c.Flags().StringVar(&workspace, "workspace", ".", "workspace to scan when no history database is given")
	c.Flags().IntVar(&limit, "limit", 20, "maximum runs to show")
	c.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return c
}

func formatRecord(r history.Record) string {
	return fmt.Sprintf("%s  %-18s  %d/%d modes  %s  %s",
		r.StartedAt.Format("2006-01-02 15:04:05"), r.Status, r.ModesVerified, r.ModesTotal, r.TargetURL, r.ID)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
