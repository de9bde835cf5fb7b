package borrowers

import (
	"database/sql"
	"time"
)

// Borrower represents one row of the borrowers table.
// Email is stored lower-cased; uniqueness is case-insensitive.
type Borrower struct {
	BorrowerID   uint64
	BorrowerULID string
	Name         string
	Email        sql.NullString
	Phone        sql.NullString
	Address      sql.NullString
	CreatedAt    time.Time
}
