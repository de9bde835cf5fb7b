package circulation

import (
	"time"

	"github.com/shopspring/decimal"
)

type CheckoutRequest struct {
	ItemID       string `json:"item_id" binding:"required"`
	BorrowerULID string `json:"borrower_ulid" binding:"required"`
	// Overrides the configured loan period for this loan only.
	LoanDays *int `json:"loan_days,omitempty"`
}

type ReturnRequest struct {
	// Recorded as-is; callers preview via the fine endpoint first.
	// Absent means no fine.
	FineAmount *decimal.Decimal `json:"fine_amount,omitempty"`
}

type LoanResponse struct {
	LoanULID     string          `json:"loan_ulid"`
	ItemID       string          `json:"item_id"`
	BorrowerULID string          `json:"borrower_ulid"`
	CheckedOutAt time.Time       `json:"checked_out_at"`
	DueAt        time.Time       `json:"due_at"`
	ReturnedAt   *time.Time      `json:"returned_at,omitempty"`
	Status       Status          `json:"status"`
	FineAmount   decimal.Decimal `json:"fine_amount"`
	CreatedAt    time.Time       `json:"created_at"`
}

type FineResponse struct {
	LoanULID    string          `json:"loan_ulid"`
	DailyRate   decimal.Decimal `json:"daily_rate"`
	DaysOverdue int64           `json:"days_overdue"`
	FineAmount  decimal.Decimal `json:"fine_amount"`
}

// LoanFilter narrows ledger listings. DueBefore and Status are also set
// internally when OnlyOverdue is requested.
type LoanFilter struct {
	ItemID       *string
	BorrowerULID *string
	Status       *Status
	From         *time.Time // checked_out_at >= From
	To           *time.Time // checked_out_at < To
	OnlyOverdue  bool
	DueBefore    *time.Time
}

type Page struct {
	Limit  int
	Offset int
	Order  string // "asc" | "desc" (created_at)
}

func (l *Loan) toDTO() LoanResponse {
	resp := LoanResponse{
		LoanULID:     l.LoanULID,
		ItemID:       l.ItemID,
		BorrowerULID: l.BorrowerULID,
		CheckedOutAt: l.CheckedOutAt,
		DueAt:        l.DueAt,
		Status:       l.Status,
		FineAmount:   l.FineAmount,
		CreatedAt:    l.CreatedAt,
	}
	if l.ReturnedAt.Valid {
		v := l.ReturnedAt.Time
		resp.ReturnedAt = &v
	}
	return resp
}
