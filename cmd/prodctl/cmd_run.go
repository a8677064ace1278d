package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"prodline/internal/production"
	"prodline/internal/report"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show the active run and its progress",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printSummary(cmd.OutOrStdout(), snapshots.Load())
	},
}

var partialsCmd = &cobra.Command{
	Use:   "partials",
	Short: "List shift partials ordered by time",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printPartials(cmd.OutOrStdout(), snapshots.Load(), time.Local)
	},
}

func printSummary(w io.Writer, snap production.Snapshot) error {
	if snap.Empty() {
		_, err := fmt.Fprintln(w, "No active run.")
		return err
	}

	doc := report.Build(snap)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Run:\t%s\n", doc.RunID)
	fmt.Fprintf(tw, "Flavor:\t%s\n", doc.Flavor)
	fmt.Fprintf(tw, "Format:\t%s (%d per case)\n", doc.Format, production.UnitsPerPackage(doc.Format))
	fmt.Fprintf(tw, "Target:\t%d\n", doc.Summary.Target)
	fmt.Fprintf(tw, "Accumulated:\t%d\n", doc.Summary.Accumulated)
	fmt.Fprintf(tw, "Remaining:\t%d\n", doc.Summary.Remaining)
	fmt.Fprintf(tw, "Progress:\t%d%%\n", doc.Summary.ProgressPercent)
	fmt.Fprintf(tw, "Partials:\t%d\n", len(doc.Rows))
	return tw.Flush()
}

func printPartials(w io.Writer, snap production.Snapshot, loc *time.Location) error {
	doc := report.Build(snap)
	if len(doc.Rows) == 0 {
		_, err := fmt.Fprintln(w, "No partials recorded.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "TIME\tSHIFT\tOPERATOR\tTARGET(CASES)\tBOTTLES\tCASES\tDONE\t")
	for _, r := range doc.Rows {
		mark := ""
		if !r.OnTrack {
			mark = " !"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%.1f\t%d%%%s\t\n",
			r.Timestamp.In(loc).Format("02/01 15:04"),
			r.Shift,
			r.Operator,
			r.ShiftTarget,
			r.Produced,
			r.Cases,
			r.CompletionPct,
			mark,
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, strings.Repeat("-", 40))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "Accumulated %d / %d (%d%%)\n", doc.Summary.Accumulated, doc.Summary.Target, doc.Summary.ProgressPercent)
	return err
}
