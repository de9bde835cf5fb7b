package circulation

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"strings"
	"time"

	ulid "github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

// DefaultLoanDays is the fallback loan period when neither the config nor
// the request supplies one.
const DefaultLoanDays = 14

// MaxLoanDays caps the loan period. The due instant is computed in
// time.Duration units, which wrap around for periods past ~292 years and
// would put due_at before checked_out_at.
const MaxLoanDays = 3650

// -------------- Clock & ID --------------

type Clock interface{ Now() time.Time }
type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

type IDGen interface{ NewULID(t time.Time) string }
type ulidGen struct{}

func (ulidGen) NewULID(t time.Time) string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// -------------- Boundaries --------------

// Directory is the borrower-directory boundary. The engine only reads it.
type Directory interface {
	ExistsByULID(ctx context.Context, ulid string) (bool, error)
}

// Ledger is the durable loan ledger.
//
// AppendActive must be atomic with respect to other appends for the same
// item: it fails with ITEM_ALREADY_CHECKED_OUT while an active loan for
// the item exists, and must never leave a partial write behind.
// MarkReturned must only succeed while the loan is still active, so a
// second return fails without mutating returned_at or fine_amount.
type Ledger interface {
	AppendActive(ctx context.Context, l *Loan) error
	GetByULID(ctx context.Context, ulid string) (*Loan, error)
	MarkReturned(ctx context.Context, ulid string, returnedAt time.Time, fine decimal.Decimal) (*Loan, error)
	ActiveByItem(ctx context.Context, itemID string) ([]Loan, error)
	ListByBorrower(ctx context.Context, borrowerULID string) ([]Loan, error)
	Overdue(ctx context.Context, now time.Time) ([]Loan, error)
	List(ctx context.Context, f LoanFilter, p Page) ([]Loan, int64, error)
}

// -------------- Service --------------

type Service struct {
	ledger      Ledger
	dir         Directory
	clock       Clock
	id          IDGen
	defaultDays int
}

func NewService(db *sql.DB, dir Directory, defaultLoanDays int) *Service {
	return NewServiceWithLedger(NewStore(db), dir, defaultLoanDays)
}

// NewServiceWithLedger wires an alternative ledger backing store.
func NewServiceWithLedger(ledger Ledger, dir Directory, defaultLoanDays int) *Service {
	if defaultLoanDays <= 0 || defaultLoanDays > MaxLoanDays {
		defaultLoanDays = DefaultLoanDays
	}
	return &Service{
		ledger:      ledger,
		dir:         dir,
		clock:       realClock{},
		id:          ulidGen{},
		defaultDays: defaultLoanDays,
	}
}

// Checkout opens a loan. Preconditions in order: the borrower exists, then
// no active loan references the item. The due instant is the checkout
// instant plus the loan period.
func (s *Service) Checkout(ctx context.Context, in CheckoutRequest) (LoanResponse, error) {
	itemID := strings.TrimSpace(in.ItemID)
	if itemID == "" {
		return LoanResponse{}, ErrInvalid("item_id is required")
	}
	borrowerULID := strings.TrimSpace(in.BorrowerULID)
	if borrowerULID == "" {
		return LoanResponse{}, ErrInvalid("borrower_ulid is required")
	}
	days := s.defaultDays
	if in.LoanDays != nil {
		if *in.LoanDays < 0 {
			return LoanResponse{}, ErrInvalid("loan_days must be >= 0")
		}
		if *in.LoanDays > MaxLoanDays {
			return LoanResponse{}, ErrInvalid(fmt.Sprintf("loan_days must be <= %d", MaxLoanDays))
		}
		days = *in.LoanDays
	}

	ok, err := s.dir.ExistsByULID(ctx, borrowerULID)
	if err != nil {
		return LoanResponse{}, err
	}
	if !ok {
		return LoanResponse{}, ErrBorrowerNotFound()
	}

	now := s.clock.Now()
	l := &Loan{
		LoanULID:     s.id.NewULID(now),
		ItemID:       itemID,
		BorrowerULID: borrowerULID,
		CheckedOutAt: now,
		DueAt:        now.Add(time.Duration(days) * 24 * time.Hour),
		Status:       StatusActive,
		FineAmount:   decimal.Zero,
		CreatedAt:    now,
	}

	if err := s.ledger.AppendActive(ctx, l); err != nil {
		return LoanResponse{}, err
	}
	return l.toDTO(), nil
}

// Return closes a loan. The fine is recorded exactly as supplied (zero
// when absent); it is never recomputed here. Callers wanting an accrued
// fine call CalculateFine first and pass the result.
func (s *Service) Return(ctx context.Context, loanULID string, in ReturnRequest) (LoanResponse, error) {
	if loanULID == "" {
		return LoanResponse{}, ErrInvalid("loan_ulid is required")
	}
	fine := decimal.Zero
	if in.FineAmount != nil {
		if in.FineAmount.IsNegative() {
			return LoanResponse{}, ErrInvalid("fine_amount must be >= 0")
		}
		fine = *in.FineAmount
	}

	l, err := s.ledger.GetByULID(ctx, loanULID)
	if err != nil {
		return LoanResponse{}, err
	}
	if l == nil {
		return LoanResponse{}, ErrLoanNotFound()
	}
	if l.Status != StatusActive {
		return LoanResponse{}, ErrLoanNotActive()
	}

	now := s.clock.Now()
	updated, err := s.ledger.MarkReturned(ctx, loanULID, now, fine)
	if err != nil {
		return LoanResponse{}, err
	}
	return updated.toDTO(), nil
}

// CalculateFine previews the fine a loan has accrued at the current
// instant. Missing, settled and not-yet-due loans owe nothing. Pure read.
func (s *Service) CalculateFine(ctx context.Context, loanULID string, dailyRate decimal.Decimal) (FineResponse, error) {
	if dailyRate.IsNegative() {
		return FineResponse{}, ErrInvalid("daily_rate must be >= 0")
	}
	resp := FineResponse{
		LoanULID:   loanULID,
		DailyRate:  dailyRate,
		FineAmount: decimal.Zero,
	}

	l, err := s.ledger.GetByULID(ctx, loanULID)
	if err != nil {
		return FineResponse{}, err
	}
	if l == nil || l.Status != StatusActive {
		return resp, nil
	}

	days := DaysOverdue(l.DueAt, s.clock.Now())
	if days == 0 {
		return resp, nil
	}
	resp.DaysOverdue = days
	resp.FineAmount = dailyRate.Mul(decimal.NewFromInt(days))
	return resp, nil
}

func (s *Service) GetByULID(ctx context.Context, loanULID string) (LoanResponse, error) {
	if loanULID == "" {
		return LoanResponse{}, ErrInvalid("loan_ulid is required")
	}
	l, err := s.ledger.GetByULID(ctx, loanULID)
	if err != nil {
		return LoanResponse{}, err
	}
	if l == nil {
		return LoanResponse{}, ErrLoanNotFound()
	}
	return l.toDTO(), nil
}

// ActiveLoansForItem returns every active loan referencing the item. The
// ledger guarantees at most one, but the query reports whatever matches
// so a violation would be visible rather than masked.
func (s *Service) ActiveLoansForItem(ctx context.Context, itemID string) ([]LoanResponse, error) {
	if strings.TrimSpace(itemID) == "" {
		return nil, ErrInvalid("item_id is required")
	}
	items, err := s.ledger.ActiveByItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	return toDTOs(items), nil
}

// LoansForBorrower returns the borrower's full history, newest first.
func (s *Service) LoansForBorrower(ctx context.Context, borrowerULID string) ([]LoanResponse, error) {
	if strings.TrimSpace(borrowerULID) == "" {
		return nil, ErrInvalid("borrower_ulid is required")
	}
	items, err := s.ledger.ListByBorrower(ctx, borrowerULID)
	if err != nil {
		return nil, err
	}
	return toDTOs(items), nil
}

// ListOverdue returns active loans whose due instant is strictly before
// the clock's current instant.
func (s *Service) ListOverdue(ctx context.Context) ([]LoanResponse, error) {
	items, err := s.ledger.Overdue(ctx, s.clock.Now())
	if err != nil {
		return nil, err
	}
	return toDTOs(items), nil
}

// List enumerates the ledger for reporting consumers.
func (s *Service) List(ctx context.Context, f LoanFilter, p Page) ([]LoanResponse, int64, error) {
	if f.OnlyOverdue {
		now := s.clock.Now()
		f.DueBefore = &now
		st := StatusActive
		f.Status = &st
	}
	items, total, err := s.ledger.List(ctx, f, p)
	if err != nil {
		return nil, 0, err
	}
	return toDTOs(items), total, nil
}

// DaysOverdue counts whole late days, rounding a partial day up: one hour
// late is one full day's fine.
func DaysOverdue(dueAt, now time.Time) int64 {
	if !now.After(dueAt) {
		return 0
	}
	d := now.Sub(dueAt)
	days := int64(d / (24 * time.Hour))
	if d%(24*time.Hour) > 0 {
		days++
	}
	return days
}

func toDTOs(items []Loan) []LoanResponse {
	out := make([]LoanResponse, 0, len(items))
	for i := range items {
		out = append(out, items[i].toDTO())
	}
	return out
}
