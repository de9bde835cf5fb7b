package borrowers

import (
	"context"
	"crypto/rand"
	"database/sql"
	"strings"
	"time"

	ulid "github.com/oklog/ulid/v2"
)

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

// -------------- Service --------------

// DirectoryStore is the persistence boundary of the borrower directory.
// Insert must enforce case-insensitive email uniqueness and report a
// violation as ErrDuplicateEmail.
type DirectoryStore interface {
	Insert(ctx context.Context, b *Borrower) error
	GetByULID(ctx context.Context, ulid string) (*Borrower, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	List(ctx context.Context, p Page) ([]Borrower, int64, error)
}

type Service struct {
	store DirectoryStore
	clock Clock
	id    IDGen
}

func NewService(db *sql.DB) *Service {
	return &Service{store: NewStore(db), clock: realClock{}, id: ulidGen{}}
}

// NewServiceWithStore wires an alternative directory backing store.
func NewServiceWithStore(store DirectoryStore) *Service {
	return &Service{store: store, clock: realClock{}, id: ulidGen{}}
}

// Register creates a borrower. Name is required after trimming; email,
// phone and address are optional. Borrowers are never deleted.
func (s *Service) Register(ctx context.Context, in RegisterBorrowerRequest) (BorrowerResponse, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return BorrowerResponse{}, ErrMissingName()
	}

	now := s.clock.Now()
	b := &Borrower{
		BorrowerULID: s.id.NewULID(now),
		Name:         name,
		CreatedAt:    now,
	}
	if in.Email != nil && strings.TrimSpace(*in.Email) != "" {
		b.Email = sql.NullString{String: NormalizeEmail(*in.Email), Valid: true}
	}
	if in.Phone != nil && strings.TrimSpace(*in.Phone) != "" {
		b.Phone = sql.NullString{String: strings.TrimSpace(*in.Phone), Valid: true}
	}
	if in.Address != nil && strings.TrimSpace(*in.Address) != "" {
		b.Address = sql.NullString{String: strings.TrimSpace(*in.Address), Valid: true}
	}

	if err := s.store.Insert(ctx, b); err != nil {
		return BorrowerResponse{}, err
	}
	return b.toDTO(), nil
}

func (s *Service) GetByULID(ctx context.Context, ulid string) (BorrowerResponse, error) {
	if ulid == "" {
		return BorrowerResponse{}, ErrInvalid("borrower_ulid is required")
	}
	b, err := s.store.GetByULID(ctx, ulid)
	if err != nil {
		return BorrowerResponse{}, err
	}
	if b == nil {
		return BorrowerResponse{}, ErrNotFound("borrower not found")
	}
	return b.toDTO(), nil
}

// ExistsByULID is the lookup the circulation engine checks out against.
func (s *Service) ExistsByULID(ctx context.Context, ulid string) (bool, error) {
	b, err := s.store.GetByULID(ctx, ulid)
	if err != nil {
		return false, err
	}
	return b != nil, nil
}

// ExistsByEmail reports whether any borrower already uses the email,
// regardless of letter case.
func (s *Service) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return false, nil
	}
	return s.store.ExistsByEmail(ctx, email)
}

func (s *Service) List(ctx context.Context, p Page) ([]BorrowerResponse, int64, error) {
	items, total, err := s.store.List(ctx, p)
	if err != nil {
		return nil, 0, err
	}
	out := make([]BorrowerResponse, 0, len(items))
	for i := range items {
		out = append(out, items[i].toDTO())
	}
	return out, total, nil
}

// NormalizeEmail lower-cases and trims an email for comparison and storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
