// Package store persists goals and transactions in SQLite through gorm.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/insightdelivered/smartspend/internal/category"
	"github.com/insightdelivered/smartspend/internal/models"
)

// Store is a caller-owned handle on the tracker database.
type Store struct {
	db *gorm.DB
}

// Open opens (creating if needed) the SQLite database at path and migrates
// the schema.
func Open(path string) (*Store, error) {
	dsn := path + "?_foreign_keys=on"
	if strings.Contains(path, "?") {
		dsn = path + "&_foreign_keys=on"
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database %q: %w", path, err)
	}

	if err := db.AutoMigrate(&models.Goal{}, &models.Transaction{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// CreateGoal deactivates any active goal and stores goal as the new active
// one. It returns the new goal's ID.
func (s *Store) CreateGoal(ctx context.Context, goal models.Goal) (uint, error) {
	if strings.TrimSpace(goal.SavingFor) == "" {
		return 0, fmt.Errorf("%w: saving for must not be empty", models.ErrInvalidGoal)
	}
	if !goal.SavingAmount.IsPositive() {
		return 0, fmt.Errorf("%w: saving amount must be positive", models.ErrInvalidGoal)
	}
	if goal.MonthlyBudget.IsNegative() {
		return 0, fmt.Errorf("%w: monthly budget must not be negative", models.ErrInvalidGoal)
	}
	if goal.Deadline.IsZero() {
		return 0, fmt.Errorf("%w: deadline is required", models.ErrInvalidGoal)
	}

	goal.ID = 0
	goal.Active = true

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Goal{}).Where("active = ?", true).Update("active", false).Error; err != nil {
			return err
		}
		return tx.Create(&goal).Error
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create goal: %w", err)
	}
	return goal.ID, nil
}

// ActiveGoal returns the active goal, or models.ErrNoActiveGoal.
func (s *Store) ActiveGoal(ctx context.Context) (*models.Goal, error) {
	var goal models.Goal
	err := s.db.WithContext(ctx).Where("active = ?", true).Order("id DESC").First(&goal).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrNoActiveGoal
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load active goal: %w", err)
	}
	return &goal, nil
}

// UpdateMonthlyBudget sets the monthly budget of goal goalID.
func (s *Store) UpdateMonthlyBudget(ctx context.Context, goalID uint, budget decimal.Decimal) error {
	if budget.IsNegative() {
		return fmt.Errorf("%w: monthly budget must not be negative", models.ErrInvalidGoal)
	}
	res := s.db.WithContext(ctx).Model(&models.Goal{}).Where("id = ?", goalID).Update("monthly_budget", budget)
	if res.Error != nil {
		return fmt.Errorf("failed to update budget: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("goal %d: %w", goalID, models.ErrNotFound)
	}
	return nil
}

// AddTransaction validates, categorizes and stores one transaction.
// A goalID of 0 stores the transaction without a goal.
func (s *Store) AddTransaction(ctx context.Context, date, description string, amount decimal.Decimal, direction models.Direction, goalID uint) (*models.Transaction, error) {
	if !direction.Valid() {
		return nil, fmt.Errorf("%q: %w", direction, models.ErrInvalidDirection)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%s: %w", amount, models.ErrNonPositiveAmount)
	}

	txn := models.Transaction{
		Date:        date,
		Description: description,
		Amount:      amount,
		Category:    category.Categorize(description),
		Type:        direction,
		ImportBatch: models.ImportBatchFrom(ctx),
	}
	if goalID != 0 {
		id := goalID
		txn.GoalID = &id
	}

	if err := s.db.WithContext(ctx).Create(&txn).Error; err != nil {
		return nil, fmt.Errorf("failed to add transaction: %w", err)
	}
	return &txn, nil
}

// Ingest stores a transaction produced by the statement importer.
func (s *Store) Ingest(ctx context.Context, txn models.FinalizedTransaction) error {
	_, err := s.AddTransaction(ctx, txn.Date, txn.Description, txn.Amount, txn.Direction, txn.GoalID)
	return err
}

// Transactions returns every stored transaction in insertion order.
func (s *Store) Transactions(ctx context.Context) ([]models.Transaction, error) {
	var txns []models.Transaction
	if err := s.db.WithContext(ctx).Order("id").Find(&txns).Error; err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txns, nil
}

// GoalTransactions returns the transactions attached to goal goalID.
func (s *Store) GoalTransactions(ctx context.Context, goalID uint) ([]models.Transaction, error) {
	var txns []models.Transaction
	if err := s.db.WithContext(ctx).Where("goal_id = ?", goalID).Order("id").Find(&txns).Error; err != nil {
		return nil, fmt.Errorf("failed to list goal transactions: %w", err)
	}
	return txns, nil
}

// DeleteTransaction removes transaction id.
func (s *Store) DeleteTransaction(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Transaction{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete transaction: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("transaction %d: %w", id, models.ErrNotFound)
	}
	return nil
}

// ParseDeadline parses a YYYY-MM-DD deadline.
func ParseDeadline(s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: deadline must be YYYY-MM-DD", models.ErrInvalidGoal)
	}
	return t, nil
}
