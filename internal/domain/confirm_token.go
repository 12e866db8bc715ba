package domain

import (
	"time"

	"github.com/google/uuid"
)

type ConfirmToken struct {
	Token      string     `db:"token"`
	CustomerID uuid.UUID  `db:"customer_id"`
	Email      string     `db:"email"`
	CreatedAt  time.Time  `db:"created_at"`
	ExpiresAt  *time.Time `db:"expires_at"`
}

// NewConfirmToken issues a token for a persisted customer. A zero ttl means the token never expires.
func NewConfirmToken(customer *Customer, ttl time.Duration, now time.Time) (*ConfirmToken, error) {
	value, err := uuid.NewRandom()
	if err != nil {
		return nil, err
	}

	token := &ConfirmToken{
		Token:      value.String(),
		CustomerID: customer.ID,
		Email:      customer.Email,
		CreatedAt:  now,
	}
	if ttl > 0 {
		expiresAt := now.Add(ttl)
		token.ExpiresAt = &expiresAt
	}

	return token, nil
}

func (t *ConfirmToken) IsExpired(now time.Time) bool {
	return t.ExpiresAt != nil && !now.Before(*t.ExpiresAt)
}
