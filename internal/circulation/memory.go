package circulation

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// MemoryLedger is an in-memory Ledger. It backs the tests and the
// throwaway "memory" run mode; Store is the durable implementation.
// A single mutex serializes writers, which satisfies the one-active-loan
// rule under concurrent checkouts at the expected write volume.
type MemoryLedger struct {
	mu         sync.Mutex
	seq        uint64
	loans      map[string]Loan   // by loan_ulid
	activeItem map[string]string // item_id -> loan_ulid of the active loan
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		loans:      make(map[string]Loan),
		activeItem: make(map[string]string),
	}
}

func (m *MemoryLedger) AppendActive(_ context.Context, l *Loan) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, out := m.activeItem[l.ItemID]; out {
		return ErrItemAlreadyCheckedOut()
	}
	m.seq++
	l.LoanID = m.seq
	m.loans[l.LoanULID] = *l
	m.activeItem[l.ItemID] = l.LoanULID
	return nil
}

func (m *MemoryLedger) GetByULID(_ context.Context, ulid string) (*Loan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.loans[ulid]
	if !ok {
		return nil, nil
	}
	return &l, nil
}

func (m *MemoryLedger) MarkReturned(_ context.Context, ulid string, returnedAt time.Time, fine decimal.Decimal) (*Loan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.loans[ulid]
	if !ok || l.Status != StatusActive {
		return nil, ErrLoanNotActive()
	}
	l.Status = StatusReturned
	l.ReturnedAt.Time = returnedAt
	l.ReturnedAt.Valid = true
	l.FineAmount = fine
	m.loans[ulid] = l
	delete(m.activeItem, l.ItemID)

	out := l
	return &out, nil
}

// ActiveByItem scans the full ledger instead of the active index, so an
// index inconsistency would surface in the result rather than be masked.
func (m *MemoryLedger) ActiveByItem(_ context.Context, itemID string) ([]Loan, error) {
	return m.collect(func(l Loan) bool {
		return l.ItemID == itemID && l.Status == StatusActive
	}, byNewest), nil
}

func (m *MemoryLedger) ListByBorrower(_ context.Context, borrowerULID string) ([]Loan, error) {
	return m.collect(func(l Loan) bool {
		return l.BorrowerULID == borrowerULID
	}, byNewest), nil
}

func (m *MemoryLedger) Overdue(_ context.Context, now time.Time) ([]Loan, error) {
	return m.collect(func(l Loan) bool {
		return l.Status == StatusActive && l.DueAt.Before(now)
	}, byDueSoonest), nil
}

func (m *MemoryLedger) List(_ context.Context, f LoanFilter, p Page) ([]Loan, int64, error) {
	match := func(l Loan) bool {
		if f.ItemID != nil && l.ItemID != *f.ItemID {
			return false
		}
		if f.BorrowerULID != nil && l.BorrowerULID != *f.BorrowerULID {
			return false
		}
		if f.Status != nil && l.Status != *f.Status {
			return false
		}
		if f.From != nil && l.CheckedOutAt.Before(*f.From) {
			return false
		}
		if f.To != nil && !l.CheckedOutAt.Before(*f.To) {
			return false
		}
		if f.DueBefore != nil && !l.DueAt.Before(*f.DueBefore) {
			return false
		}
		return true
	}

	sorter := byNewest
	if p.Order == "asc" {
		sorter = byOldest
	}
	all := m.collect(match, sorter)

	total := int64(len(all))
	if p.Limit <= 0 {
		p.Limit = 50
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Offset >= len(all) {
		return nil, total, nil
	}
	end := p.Offset + p.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[p.Offset:end], total, nil
}

// ---------- helpers ----------

type loanSorter func(a, b Loan) bool

func byNewest(a, b Loan) bool { return a.LoanID > b.LoanID }
func byOldest(a, b Loan) bool { return a.LoanID < b.LoanID }
func byDueSoonest(a, b Loan) bool {
	if !a.DueAt.Equal(b.DueAt) {
		return a.DueAt.Before(b.DueAt)
	}
	return a.LoanID < b.LoanID
}

func (m *MemoryLedger) collect(match func(Loan) bool, less loanSorter) []Loan {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Loan
	for _, l := range m.loans {
		if match(l) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}
