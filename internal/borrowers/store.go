package borrowers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	mysql "github.com/go-sql-driver/mysql"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Insert(ctx context.Context, b *Borrower) error {
	const q = `
	INSERT INTO borrowers
	(borrower_ulid, name, email, phone, address, created_at)
	VALUES (?, ?, ?, ?, ?, ?)`

	res, err := s.db.ExecContext(ctx, q,
		b.BorrowerULID,
		b.Name,
		nullStrOrNil(b.Email),
		nullStrOrNil(b.Phone),
		nullStrOrNil(b.Address),
		b.CreatedAt,
	)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1062 { // duplicate key (borrowers.email)
			return ErrDuplicateEmail("email already registered")
		}
		return err
	}
	id, _ := res.LastInsertId()
	b.BorrowerID = uint64(id)
	return nil
}

func (s *Store) GetByULID(ctx context.Context, ulid string) (*Borrower, error) {
	const q = `
	SELECT borrower_id, borrower_ulid, name, email, phone, address, created_at
	FROM borrowers WHERE borrower_ulid = ?`
	var b Borrower
	err := s.db.QueryRowContext(ctx, q, ulid).Scan(
		&b.BorrowerID, &b.BorrowerULID, &b.Name, &b.Email, &b.Phone, &b.Address, &b.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

// ExistsByEmail expects an already normalized (lower-cased) email.
func (s *Store) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM borrowers WHERE email = ?)`
	var exists bool
	if err := s.db.QueryRowContext(ctx, q, email).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (s *Store) List(ctx context.Context, p Page) ([]Borrower, int64, error) {
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
	q := fmt.Sprintf(`
	SELECT borrower_id, borrower_ulid, name, email, phone, address, created_at
	FROM borrowers ORDER BY created_at %s, borrower_id %s LIMIT ? OFFSET ?`, order, order)

	rows, err := s.db.QueryContext(ctx, q, p.Limit, p.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []Borrower
	for rows.Next() {
		var b Borrower
		if err := rows.Scan(&b.BorrowerID, &b.BorrowerULID, &b.Name, &b.Email, &b.Phone, &b.Address, &b.CreatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM borrowers`).Scan(&total); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func nullStrOrNil(ns sql.NullString) any {
	if ns.Valid {
		return ns.String
	}
	return nil
}
