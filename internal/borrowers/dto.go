package borrowers

import "time"

type RegisterBorrowerRequest struct {
	Name    string  `json:"name" binding:"required"`
	Email   *string `json:"email,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Address *string `json:"address,omitempty"`
}

type BorrowerResponse struct {
	BorrowerULID string    `json:"borrower_ulid"`
	Name         string    `json:"name"`
	Email        *string   `json:"email,omitempty"`
	Phone        *string   `json:"phone,omitempty"`
	Address      *string   `json:"address,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type Page struct {
	Limit  int
	Offset int
	Order  string // "asc" | "desc" (created_at)
}

func (b *Borrower) toDTO() BorrowerResponse {
	resp := BorrowerResponse{
		BorrowerULID: b.BorrowerULID,
		Name:         b.Name,
		CreatedAt:    b.CreatedAt,
	}
	if b.Email.Valid {
		v := b.Email.String
		resp.Email = &v
	}
	if b.Phone.Valid {
		v := b.Phone.String
		resp.Phone = &v
	}
	if b.Address.Valid {
		v := b.Address.String
		resp.Address = &v
	}
	return resp
}
