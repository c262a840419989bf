// Package metrics computes goal progress, savings advice and chart series
// from stored transactions.
package metrics

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/smartspend/internal/models"
)

// Dashboard summarises progress towards a goal.
type Dashboard struct {
	GoalID          uint            `json:"goalId"`
	SavingFor       string          `json:"savingFor"`
	TargetAmount    decimal.Decimal `json:"targetAmount"`
	Income          decimal.Decimal `json:"income"`
	Expenses        decimal.Decimal `json:"expenses"`
	CurrentSavings  decimal.Decimal `json:"currentSavings"`
	RemainingAmount decimal.Decimal `json:"remainingAmount"`
	DaysRemaining   int             `json:"daysRemaining"`
	DailyRequired   decimal.Decimal `json:"dailyRequired"`
	ProgressPercent decimal.Decimal `json:"progressPercent"`
	MonthlyBudget   decimal.Decimal `json:"monthlyBudget"`
}

// Totals sums income and expenses separately.
func Totals(txns []models.Transaction) (income, expenses decimal.Decimal) {
	for _, txn := range txns {
		switch txn.Type {
		case models.DirectionIncome:
			income = income.Add(txn.Amount)
		case models.DirectionExpense:
			expenses = expenses.Add(txn.Amount)
		}
	}
	return income, expenses
}

// NewDashboard computes the dashboard for goal from its transactions as of
// today. Only the calendar date of today is used.
func NewDashboard(goal models.Goal, txns []models.Transaction, today time.Time) Dashboard {
	income, expenses := Totals(txns)
	current := income.Sub(expenses)
	remaining := goal.SavingAmount.Sub(current)

	d := Dashboard{
		GoalID:          goal.ID,
		SavingFor:       goal.SavingFor,
		TargetAmount:    goal.SavingAmount,
		Income:          income,
		Expenses:        expenses,
		CurrentSavings:  current,
		RemainingAmount: remaining,
		DaysRemaining:   daysBetween(today, goal.Deadline),
		DailyRequired:   decimal.Zero,
		ProgressPercent: decimal.Zero,
		MonthlyBudget:   goal.MonthlyBudget,
	}

	if d.DaysRemaining > 0 {
		d.DailyRequired = remaining.Div(decimal.NewFromInt(int64(d.DaysRemaining))).Round(2)
	}
	if goal.SavingAmount.IsPositive() {
		d.ProgressPercent = current.Div(goal.SavingAmount).Mul(decimal.NewFromInt(100)).Round(2)
	}
	return d
}

// daysBetween counts whole calendar days from from to to. Each date is read
// in its own location: today is the caller's local date, the deadline the
// date it was stored with.
func daysBetween(from, to time.Time) int {
	a := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

// Recommendations turns a dashboard and the goal's transactions into advice.
func Recommendations(d Dashboard, txns []models.Transaction) []string {
	var recs []string

	if d.DaysRemaining > 0 {
		daily := d.RemainingAmount.Div(decimal.NewFromInt(int64(d.DaysRemaining)))
		if daily.IsPositive() {
			recs = append(recs, fmt.Sprintf("You need to save about %s per day to stay on track.", daily.Round(2)))
		} else {
			recs = append(recs, "You have already reached your goal! 🎉")
		}
	} else {
		recs = append(recs, "Deadline has passed.")
	}

	if d.Expenses.GreaterThan(d.Income) {
		recs = append(recs,
			"Your expenses are higher than your income.",
			"Consider reducing discretionary spending.",
		)
	}

	if top := CategoryTotals(txns); len(top) > 0 {
		highest := top[0]
		recs = append(recs,
			fmt.Sprintf("Your highest spending category is '%s' (%s).", highest.Label, highest.Total),
			fmt.Sprintf("Reducing %s spending by 10%% could save %s.", highest.Label, highest.Total.Mul(decimal.RequireFromString("0.1")).Round(2)),
		)
	}

	return recs
}

// Point is one bar, slice or point of a chart.
type Point struct {
	Label string          `json:"label"`
	Total decimal.Decimal `json:"total"`
}

// CategoryTotals sums expenses per category, largest first. Ties keep
// category name order.
func CategoryTotals(txns []models.Transaction) []Point {
	points := sumExpensesBy(txns, func(t models.Transaction) string { return t.Category })
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Total.GreaterThan(points[j].Total)
	})
	return points
}

// DailyTotals sums expenses per date, ordered by the date string as stored.
func DailyTotals(txns []models.Transaction) []Point {
	return sumExpensesBy(txns, func(t models.Transaction) string { return t.Date })
}

// sumExpensesBy groups expense amounts by key and drops non-positive totals.
// The result is sorted by label.
func sumExpensesBy(txns []models.Transaction, key func(models.Transaction) string) []Point {
	totals := make(map[string]decimal.Decimal)
	for _, txn := range txns {
		if txn.Type != models.DirectionExpense {
			continue
		}
		k := key(txn)
		totals[k] = totals[k].Add(txn.Amount)
	}

	points := make([]Point, 0, len(totals))
	for label, total := range totals {
		if total.IsPositive() {
			points = append(points, Point{Label: label, Total: total})
		}
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Label < points[j].Label
	})
	return points
}
