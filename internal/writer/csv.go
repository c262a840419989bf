package writer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/smartspend/internal/models"
)

// CSVWriter writes transactions to CSV format.
type CSVWriter struct {
	IncludeHeader bool
}

// WriteToFile writes transactions to a CSV file at the given path.
func (w *CSVWriter) WriteToFile(path string, goal *models.Goal, txns []models.Transaction) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file %q: %w", path, err)
	}
	defer f.Close()

	return w.Write(f, goal, txns)
}

// Write writes transactions in CSV format to out. When IncludeHeader is set
// and goal is non-nil, goal metadata rows precede the column headers.
func (w *CSVWriter) Write(out io.Writer, goal *models.Goal, txns []models.Transaction) error {
	writer := csv.NewWriter(out)

	if w.IncludeHeader && goal != nil {
		meta := [][]string{
			{"# Saving For", goal.SavingFor},
			{"# Target", formatAmount(goal.SavingAmount)},
			{"# Deadline", goal.Deadline.Format("2006-01-02")},
			{"# Monthly Budget", formatAmount(goal.MonthlyBudget)},
		}
		if err := writer.WriteAll(meta); err != nil {
			return fmt.Errorf("failed to write CSV metadata: %w", err)
		}
	}

	header := []string{"Date", "Description", "Category", "Type", "Amount"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, txn := range txns {
		row := []string{
			txn.Date,
			txn.Description,
			txn.Category,
			string(txn.Type),
			formatAmount(txn.Amount),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func formatAmount(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}
