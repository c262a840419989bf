package cli

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/insightdelivered/smartspend/internal/models"
	"github.com/insightdelivered/smartspend/internal/store"
	"github.com/insightdelivered/smartspend/internal/writer"
)

func newTxnCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "txn",
		Aliases: []string{"transactions"},
		Short:   "Manage transactions",
	}
	cmd.AddCommand(newTxnAddCommand(a), newTxnListCommand(a), newTxnDeleteCommand(a), newTxnExportCommand(a))
	return cmd
}

func newTxnAddCommand(a *app) *cobra.Command {
	var date, description, amount, kind string
	var goalID uint

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a transaction by hand",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			value, err := decimal.NewFromString(amount)
			if err != nil {
				return fmt.Errorf("%w: invalid --amount %q", models.ErrNonPositiveAmount, amount)
			}
			if date == "" {
				date = a.now().Format("2006-01-02")
			}

			return a.withStore(func(s *store.Store) error {
				ctx := cmd.Context()
				id := goalID
				if id == 0 {
					if goal, err := s.ActiveGoal(ctx); err == nil {
						id = goal.ID
					}
				}
				txn, err := s.AddTransaction(ctx, date, description, value, models.Direction(kind), id)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s %d: %s %s (%s)\n",
					txn.Type, txn.ID, txn.Description, txn.Amount.StringFixed(2), txn.Category)
				return nil
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&date, "date", "", "transaction date (default today)")
	f.StringVar(&description, "desc", "", "description")
	f.StringVar(&amount, "amount", "", "amount, greater than zero")
	f.StringVar(&kind, "type", string(models.DirectionExpense), "income or expense")
	f.UintVar(&goalID, "goal", 0, "goal id (default the active goal)")
	cmd.MarkFlagRequired("desc")
	cmd.MarkFlagRequired("amount")
	return cmd
}

// goalTransactions returns the active goal's transactions, or every
// transaction when all is set.
func goalTransactions(cmd *cobra.Command, s *store.Store, all bool) (*models.Goal, []models.Transaction, error) {
	ctx := cmd.Context()
	if all {
		txns, err := s.Transactions(ctx)
		return nil, txns, err
	}
	goal, err := s.ActiveGoal(ctx)
	if err != nil {
		return nil, nil, err
	}
	txns, err := s.GoalTransactions(ctx, goal.ID)
	return goal, txns, err
}

func newTxnListCommand(a *app) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions of the active goal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(func(s *store.Store) error {
				_, txns, err := goalTransactions(cmd, s, all)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tDATE\tTYPE\tAMOUNT\tCATEGORY\tDESCRIPTION")
				for _, t := range txns {
					fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
						t.ID, t.Date, t.Type, t.Amount.StringFixed(2), t.Category, t.Description)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "list transactions of every goal")
	return cmd
}

func newTxnDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid transaction id %q", args[0])
			}
			return a.withStore(func(s *store.Store) error {
				if err := s.DeleteTransaction(cmd.Context(), uint(id)); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted transaction %d\n", id)
				return nil
			})
		},
	}
}

func newTxnExportCommand(a *app) *cobra.Command {
	var output string
	var header, all bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export transactions as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(func(s *store.Store) error {
				goal, txns, err := goalTransactions(cmd, s, all)
				if err != nil {
					return err
				}
				w := &writer.CSVWriter{IncludeHeader: header}
				if output == "" {
					return w.Write(cmd.OutOrStdout(), goal, txns)
				}
				if err := w.WriteToFile(output, goal, txns); err != nil {
					return fmt.Errorf("CSV write failed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d transaction(s) to %s\n", len(txns), output)
				return nil
			})
		},
	}
	f := cmd.Flags()
	f.StringVarP(&output, "output", "o", "", "output CSV path (default stdout)")
	f.BoolVar(&header, "header", true, "include goal metadata rows")
	f.BoolVar(&all, "all", false, "export transactions of every goal")
	return cmd
}
