package repository

import (
	"context"

	"github.com/desofme/bank/internal/domain"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Repositories struct {
	Customers     Customers
	ConfirmTokens ConfirmTokens
	Transactor    Transactor
}

func NewRepositories(db *sqlx.DB) *Repositories {
	return &Repositories{
		Customers:     newCustomerRepository(db),
		ConfirmTokens: newConfirmTokenRepository(db),
		Transactor:    newTransactor(db),
	}
}

type Customers interface {
	GetByEmail(ctx context.Context, email string) (*domain.Customer, error)
	GetByPin(ctx context.Context, pin string) (*domain.Customer, error)
	Create(ctx context.Context, customer *domain.Customer) error
	Enable(ctx context.Context, id uuid.UUID) error
}

type ConfirmTokens interface {
	Create(ctx context.Context, token *domain.ConfirmToken) error
	GetByToken(ctx context.Context, token string) (*domain.ConfirmToken, error)
	Delete(ctx context.Context, token string) error
}

// TxRepositories are bound to a single transaction and must not escape the RunInTx callback.
type TxRepositories struct {
	Customers     Customers
	ConfirmTokens ConfirmTokens
}

// Transactor runs fn in one atomic unit. A non-nil error from fn rolls back every write made through repos.
type Transactor interface {
	RunInTx(ctx context.Context, fn func(repos TxRepositories) error) error
}
