package circulation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	mysql "github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

const loanColumns = `loan_id, loan_ulid, item_id, borrower_ulid, checked_out_at, due_at, returned_at, status, fine_amount, created_at`

// AppendActive inserts a new active loan inside one transaction:
// lock any existing active row for the item, reject if found, insert.
// The schema also carries a UNIQUE key on (item_id, active_flag) where
// active_flag is a generated column that is 1 for active rows and NULL
// otherwise, so concurrent checkouts that slip past the lock still
// collide on the index instead of violating the one-active-loan rule.
func (s *Store) AppendActive(ctx context.Context, m *Loan) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// 1. Any active loan for this item?
	const lockQ = `SELECT loan_id FROM loans WHERE item_id = ? AND status = 'active' LIMIT 1 FOR UPDATE`
	var activeID uint64
	err = tx.QueryRowContext(ctx, lockQ, m.ItemID).Scan(&activeID)
	if err == nil {
		err = ErrItemAlreadyCheckedOut()
		return err
	}
	if err != sql.ErrNoRows {
		return err
	}

	// 2. Insert
	const q = `
	INSERT INTO loans
	(loan_ulid, item_id, borrower_ulid, checked_out_at, due_at, status, fine_amount, created_at)
	VALUES (?, ?, ?, ?, ?, 'active', ?, ?)`

	var res sql.Result
	res, err = tx.ExecContext(ctx, q,
		m.LoanULID, m.ItemID, m.BorrowerULID, m.CheckedOutAt, m.DueAt, m.FineAmount, m.CreatedAt,
	)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1062 { // duplicate key (loans.uq_item_active)
			err = ErrItemAlreadyCheckedOut()
		}
		return err
	}
	id, _ := res.LastInsertId()
	m.LoanID = uint64(id)

	err = tx.Commit()
	return err
}

func (s *Store) GetByULID(ctx context.Context, ulid string) (*Loan, error) {
	q := fmt.Sprintf(`SELECT %s FROM loans WHERE loan_ulid = ?`, loanColumns)
	var m Loan
	err := s.db.QueryRowContext(ctx, q, ulid).Scan(
		&m.LoanID, &m.LoanULID, &m.ItemID, &m.BorrowerULID,
		&m.CheckedOutAt, &m.DueAt, &m.ReturnedAt, &m.Status, &m.FineAmount, &m.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

// MarkReturned flips a loan to returned. The status predicate makes the
// write conditional: zero rows affected means the loan was not active
// anymore and nothing changed.
func (s *Store) MarkReturned(ctx context.Context, ulid string, returnedAt time.Time, fine decimal.Decimal) (*Loan, error) {
	const q = `
	UPDATE loans
	SET status = 'returned', returned_at = ?, fine_amount = ?
	WHERE loan_ulid = ? AND status = 'active'`

	res, err := s.db.ExecContext(ctx, q, returnedAt, fine, ulid)
	if err != nil {
		return nil, err
	}
	aff, _ := res.RowsAffected()
	if aff != 1 {
		return nil, ErrLoanNotActive()
	}
	return s.GetByULID(ctx, ulid)
}

func (s *Store) ActiveByItem(ctx context.Context, itemID string) ([]Loan, error) {
	q := fmt.Sprintf(`SELECT %s FROM loans WHERE item_id = ? AND status = 'active' ORDER BY created_at DESC, loan_id DESC`, loanColumns)
	return s.queryLoans(ctx, q, itemID)
}

func (s *Store) ListByBorrower(ctx context.Context, borrowerULID string) ([]Loan, error) {
	q := fmt.Sprintf(`SELECT %s FROM loans WHERE borrower_ulid = ? ORDER BY created_at DESC, loan_id DESC`, loanColumns)
	return s.queryLoans(ctx, q, borrowerULID)
}

func (s *Store) Overdue(ctx context.Context, now time.Time) ([]Loan, error) {
	q := fmt.Sprintf(`SELECT %s FROM loans WHERE status = 'active' AND due_at < ? ORDER BY due_at ASC, loan_id ASC`, loanColumns)
	return s.queryLoans(ctx, q, now)
}

func (s *Store) List(ctx context.Context, f LoanFilter, p Page) ([]Loan, int64, error) {
	where, args := buildLoanWhere(f)

	order := "DESC"
	if strings.ToLower(p.Order) == "asc" {
		order = "ASC"
	}
	if p.Limit <= 0 {
		p.Limit = 50
	}
	if p.Offset < 0 {
		p.Offset = 0
	}

	q := fmt.Sprintf(`SELECT %s FROM loans %s ORDER BY created_at %s, loan_id %s LIMIT ? OFFSET ?`,
		loanColumns, where, order, order)
	items, err := s.queryLoans(ctx, q, append(args, p.Limit, p.Offset)...)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	countQ := `SELECT COUNT(*) FROM loans ` + where
	if err := s.db.QueryRowContext(ctx, countQ, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func buildLoanWhere(f LoanFilter) (string, []any) {
	sb := strings.Builder{}
	sb.WriteString(`WHERE 1=1`)
	args := []any{}
	if f.ItemID != nil {
		sb.WriteString(` AND item_id = ?`)
		args = append(args, *f.ItemID)
	}
	if f.BorrowerULID != nil {
		sb.WriteString(` AND borrower_ulid = ?`)
		args = append(args, *f.BorrowerULID)
	}
	if f.Status != nil {
		sb.WriteString(` AND status = ?`)
		args = append(args, string(*f.Status))
	}
	if f.From != nil {
		sb.WriteString(` AND checked_out_at >= ?`)
		args = append(args, *f.From)
	}
	if f.To != nil {
		sb.WriteString(` AND checked_out_at < ?`)
		args = append(args, *f.To)
	}
	if f.DueBefore != nil {
		sb.WriteString(` AND due_at < ?`)
		args = append(args, *f.DueBefore)
	}
	return sb.String(), args
}

func (s *Store) queryLoans(ctx context.Context, q string, args ...any) ([]Loan, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Loan
	for rows.Next() {
		var m Loan
		if err := rows.Scan(
			&m.LoanID, &m.LoanULID, &m.ItemID, &m.BorrowerULID,
			&m.CheckedOutAt, &m.DueAt, &m.ReturnedAt, &m.Status, &m.FineAmount, &m.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
