package cli

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/insightdelivered/smartspend/internal/models"
	"github.com/insightdelivered/smartspend/internal/store"
)

func newGoalCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "goal",
		Short: "Manage the savings goal",
	}
	cmd.AddCommand(newGoalCreateCommand(a), newGoalShowCommand(a), newGoalBudgetCommand(a))
	return cmd
}

func newGoalCreateCommand(a *app) *cobra.Command {
	var savingFor, amount, deadline, budget string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a goal and make it the active one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			target, err := decimal.NewFromString(amount)
			if err != nil {
				return fmt.Errorf("%w: invalid --amount %q", models.ErrInvalidGoal, amount)
			}
			monthly, err := decimal.NewFromString(budget)
			if err != nil {
				return fmt.Errorf("invalid --budget %q: %w", budget, err)
			}
			due, err := store.ParseDeadline(deadline)
			if err != nil {
				return err
			}

			return a.withStore(func(s *store.Store) error {
				id, err := s.CreateGoal(cmd.Context(), models.Goal{
					SavingFor:     savingFor,
					SavingAmount:  target,
					Deadline:      due,
					MonthlyBudget: monthly,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created goal %d: %s\n", id, savingFor)
				return nil
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&savingFor, "for", "", "what you are saving for")
	f.StringVar(&amount, "amount", "", "target amount")
	f.StringVar(&deadline, "deadline", "", "deadline, YYYY-MM-DD")
	f.StringVar(&budget, "budget", "0", "monthly budget")
	cmd.MarkFlagRequired("for")
	cmd.MarkFlagRequired("amount")
	cmd.MarkFlagRequired("deadline")
	return cmd
}

func newGoalShowCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the active goal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(func(s *store.Store) error {
				goal, err := s.ActiveGoal(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Goal %d: %s\n", goal.ID, goal.SavingFor)
				fmt.Fprintf(out, "  Target:         %s\n", goal.SavingAmount.StringFixed(2))
				fmt.Fprintf(out, "  Deadline:       %s\n", goal.Deadline.Format("2006-01-02"))
				fmt.Fprintf(out, "  Monthly budget: %s\n", goal.MonthlyBudget.StringFixed(2))
				return nil
			})
		},
	}
}

func newGoalBudgetCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "budget <amount>",
		Short: "Set the monthly budget of the active goal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			budget, err := decimal.NewFromString(args[0])
			if err != nil {
				return fmt.Errorf("invalid budget %q: %w", args[0], err)
			}
			return a.withStore(func(s *store.Store) error {
				ctx := cmd.Context()
				goal, err := s.ActiveGoal(ctx)
				if err != nil {
					return err
				}
				if err := s.UpdateMonthlyBudget(ctx, goal.ID, budget); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Monthly budget for %s set to %s\n", goal.SavingFor, budget.StringFixed(2))
				return nil
			})
		},
	}
}
