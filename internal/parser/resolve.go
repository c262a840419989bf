package parser

import (
	"github.com/shopspring/decimal"

	"github.com/insightdelivered/smartspend/internal/models"
)

// Resolution is the amount and direction read from a record's details.
type Resolution struct {
	Description string
	Amount      decimal.Decimal
	Direction   models.Direction
}

// Resolve reads the paid-in and withdrawn columns from a record's
// accumulated text. Statement rows end with Paid In, Withdrawn and Balance,
// so the third-from-last amount is paid in and the second-from-last is
// withdrawn. With only two amounts, paid in is taken as zero. Fewer than two
// amounts means the row cannot be read and ok is false.
//
// The positional rule assumes that trailing column layout and is not
// checked against anything else in the row.
func Resolve(text string) (res Resolution, ok bool) {
	tokens := findAmounts(text)
	if len(tokens) < 2 {
		return Resolution{}, false
	}

	paidIn := decimal.Zero
	if len(tokens) >= 3 {
		v, err := parseAmount(tokens[len(tokens)-3])
		if err != nil {
			return Resolution{}, false
		}
		paidIn = v
	}
	withdrawn, err := parseAmount(tokens[len(tokens)-2])
	if err != nil {
		return Resolution{}, false
	}

	res.Description = collapseSpaces(text)
	if paidIn.IsPositive() {
		res.Direction = models.DirectionIncome
		res.Amount = paidIn
	} else {
		// A zero withdrawn amount is passed on as-is; the sink rejects it.
		res.Direction = models.DirectionExpense
		res.Amount = withdrawn
	}
	return res, true
}
