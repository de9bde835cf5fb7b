package circulation

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusReturned Status = "returned"
)

// Loan is one row of the loans table: a single checkout-to-return cycle
// for one item. At most one active loan may exist per item_id.
// FineAmount stays zero while the loan is active; it is fixed once at
// return time and never recomputed afterwards.
type Loan struct {
	LoanID       uint64
	LoanULID     string
	ItemID       string
	BorrowerULID string
	CheckedOutAt time.Time
	DueAt        time.Time
	ReturnedAt   sql.NullTime
	Status       Status
	FineAmount   decimal.Decimal
	CreatedAt    time.Time
}
