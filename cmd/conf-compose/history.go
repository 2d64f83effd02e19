package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"conf-compose/pkg/config"
	"conf-compose/pkg/model"
)

func newHistoryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history [node]",
		Short: "List recorded runs, or the artifact history of one node",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Current()
			ledger, err := openLedger(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			if ledger == nil {
				return fmt.Errorf("no ledger configured; use --ledger sqlite or --ledger mysql")
			}
			defer ledger.Close()

			if len(args) == 1 {
				hist, err := ledger.ListNodeHistory(cmd.Context(), args[0], limit)
				if err != nil {
					return err
				}
				return printNodeHistory(cmd.OutOrStdout(), hist)
			}
			runs, err := ledger.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return printRuns(cmd.OutOrStdout(), runs)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "show at most this many entries (0 = all)")
	return cmd
}

func printRuns(out io.Writer, runs []model.Run) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tCREATED\tBUILD\tNODES\tNODES FILE\tTUNNELS FILE")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			r.ID, r.CreatedAt.Format(time.RFC3339), r.Build, len(r.Artifacts), r.NodesFile, r.TunnelsFile)
	}
	return w.Flush()
}

func printNodeHistory(out io.Writer, hist []model.ArtifactRecord) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tCREATED\tNODE ID\tENTRANCE\tFORWARD\tDIGEST")
	for _, a := range hist {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\n",
			a.RunID, a.CreatedAt.Format(time.RFC3339), a.NodeID, a.EntranceRules, a.ForwardRules, shortDigest(a.Digest))
	}
	return w.Flush()
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}
