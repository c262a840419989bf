package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/insightdelivered/smartspend/internal/metrics"
	"github.com/insightdelivered/smartspend/internal/store"
)

func newDashboardCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show progress towards the active goal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(func(s *store.Store) error {
				goal, txns, err := goalTransactions(cmd, s, false)
				if err != nil {
					return err
				}
				d := metrics.NewDashboard(*goal, txns, a.now())

				out := cmd.OutOrStdout()
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintf(tw, "Saving for\t%s\n", d.SavingFor)
				fmt.Fprintf(tw, "Target\t%s\n", d.TargetAmount.StringFixed(2))
				fmt.Fprintf(tw, "Income\t%s\n", d.Income.StringFixed(2))
				fmt.Fprintf(tw, "Expenses\t%s\n", d.Expenses.StringFixed(2))
				fmt.Fprintf(tw, "Current savings\t%s\n", d.CurrentSavings.StringFixed(2))
				fmt.Fprintf(tw, "Remaining\t%s\n", d.RemainingAmount.StringFixed(2))
				fmt.Fprintf(tw, "Days remaining\t%d\n", d.DaysRemaining)
				fmt.Fprintf(tw, "Daily required\t%s\n", d.DailyRequired.StringFixed(2))
				fmt.Fprintf(tw, "Progress\t%s%%\n", d.ProgressPercent.StringFixed(1))
				if err := tw.Flush(); err != nil {
					return err
				}

				fmt.Fprintln(out, "\nRecommendations:")
				for _, r := range metrics.Recommendations(d, txns) {
					fmt.Fprintf(out, "  - %s\n", r)
				}
				return nil
			})
		},
	}
}

func newChartsCommand(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "charts",
		Short: "Print expense totals by category and by day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(func(s *store.Store) error {
				_, txns, err := goalTransactions(cmd, s, false)
				if err != nil {
					return err
				}
				byCategory := metrics.CategoryTotals(txns)
				byDay := metrics.DailyTotals(txns)

				out := cmd.OutOrStdout()
				if asJSON {
					enc := json.NewEncoder(out)
					enc.SetIndent("", "  ")
					return enc.Encode(map[string][]metrics.Point{
						"categories": byCategory,
						"daily":      byDay,
					})
				}

				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "CATEGORY\tSPENT")
				for _, p := range byCategory {
					fmt.Fprintf(tw, "%s\t%s\n", p.Label, p.Total.StringFixed(2))
				}
				fmt.Fprintln(tw, "\t")
				fmt.Fprintln(tw, "DATE\tSPENT")
				for _, p := range byDay {
					fmt.Fprintf(tw, "%s\t%s\n", p.Label, p.Total.StringFixed(2))
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the series as JSON")
	return cmd
}
