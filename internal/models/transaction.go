package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidDirection  = errors.New("transaction type must be 'expense' or 'income'")
	ErrNonPositiveAmount = errors.New("amount must be positive")
	ErrInvalidGoal       = errors.New("invalid goal")
	ErrNoActiveGoal      = errors.New("no active goal")
	ErrNotFound          = errors.New("not found")
)

// Direction says whether money came in or went out.
type Direction string

const (
	DirectionIncome  Direction = "income"
	DirectionExpense Direction = "expense"
)

// Valid reports whether d is one of the two accepted literals.
func (d Direction) Valid() bool {
	return d == DirectionIncome || d == DirectionExpense
}

// Goal is a savings target. At most one goal is active at a time.
type Goal struct {
	ID            uint            `json:"id" gorm:"primaryKey"`
	SavingFor     string          `json:"savingFor" gorm:"not null"`
	SavingAmount  decimal.Decimal `json:"savingAmount" gorm:"type:numeric(14,2);not null"`
	Deadline      time.Time       `json:"deadline" gorm:"not null"`
	MonthlyBudget decimal.Decimal `json:"monthlyBudget" gorm:"type:numeric(14,2);not null;default:0"`
	Active        bool            `json:"active" gorm:"not null;default:true;index"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// Transaction is a stored income or expense row.
type Transaction struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	Date        string          `json:"date" gorm:"not null;index"` // YYYY-MM-DD or DD/MM/YYYY, as captured
	Description string          `json:"description" gorm:"not null"`
	Amount      decimal.Decimal `json:"amount" gorm:"type:numeric(14,2);not null"`
	Category    string          `json:"category" gorm:"not null"`
	Type        Direction       `json:"type" gorm:"column:transaction_type;not null"`
	GoalID      *uint           `json:"goalId,omitempty" gorm:"index"`
	Goal        *Goal           `json:"-" gorm:"constraint:OnDelete:SET NULL"`
	ImportBatch string          `json:"importBatch,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// PendingRecord is a statement row still collecting wrapped lines.
type PendingRecord struct {
	Date string
	Text string
}

// FinalizedTransaction is what the statement importer hands to its sink.
type FinalizedTransaction struct {
	Date        string
	Description string
	Amount      decimal.Decimal
	Direction   Direction
	GoalID      uint
}
