package borrowers

import (
	"context"
	"sort"
	"sync"
)

// MemoryDirectory is an in-memory DirectoryStore. It backs the tests and
// the throwaway "memory" run mode; Store is the durable implementation.
type MemoryDirectory struct {
	mu     sync.Mutex
	seq    uint64
	byULID map[string]Borrower
	emails map[string]string // normalized email -> borrower_ulid
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		byULID: make(map[string]Borrower),
		emails: make(map[string]string),
	}
}

func (m *MemoryDirectory) Insert(_ context.Context, b *Borrower) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if b.Email.Valid {
		if _, taken := m.emails[b.Email.String]; taken {
			return ErrDuplicateEmail("email already registered")
		}
	}
	m.seq++
	b.BorrowerID = m.seq
	m.byULID[b.BorrowerULID] = *b
	if b.Email.Valid {
		m.emails[b.Email.String] = b.BorrowerULID
	}
	return nil
}

func (m *MemoryDirectory) GetByULID(_ context.Context, ulid string) (*Borrower, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.byULID[ulid]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (m *MemoryDirectory) ExistsByEmail(_ context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.emails[email]
	return ok, nil
}

func (m *MemoryDirectory) List(_ context.Context, p Page) ([]Borrower, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := make([]Borrower, 0, len(m.byULID))
	for _, b := range m.byULID {
		all = append(all, b)
	}
	asc := p.Order == "asc"
	sort.Slice(all, func(i, j int) bool {
		if asc {
			return all[i].BorrowerID < all[j].BorrowerID
		}
		return all[i].BorrowerID > all[j].BorrowerID
	})

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
