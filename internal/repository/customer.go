package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/desofme/bank/internal/db"
	"github.com/desofme/bank/internal/domain"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const (
	customerEmailIndex = "uq_customer_email"
	customerPinIndex   = "uq_customer_pin"
)

type customerRepository struct {
	db sqlx.ExtContext
}

func newCustomerRepository(db sqlx.ExtContext) *customerRepository {
	return &customerRepository{
		db: db,
	}
}

func (r *customerRepository) GetByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	const op = "repository.customer.GetByEmail"

	const query = `
	SELECT id, name, surname, email, pin, password, enabled, created_at, updated_at FROM customer WHERE email = ?;
	`
	var customer domain.Customer
	if err := sqlx.GetContext(ctx, r.db, &customer, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%s: select customer failed: %w", op, err)
	}

	return &customer, nil
}

func (r *customerRepository) GetByPin(ctx context.Context, pin string) (*domain.Customer, error) {
	const op = "repository.customer.GetByPin"

	const query = `
	SELECT id, name, surname, email, pin, password, enabled, created_at, updated_at FROM customer WHERE pin = ?;
	`
	var customer domain.Customer
	if err := sqlx.GetContext(ctx, r.db, &customer, query, pin); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%s: select customer failed: %w", op, err)
	}

	return &customer, nil
}

func (r *customerRepository) Create(ctx context.Context, customer *domain.Customer) error {
	const op = "repository.customer.Create"

	const query = `
	INSERT INTO customer (id, name, surname, email, pin, password, enabled, created_at)
	VALUES (uuid_to_bin(?), ?, ?, ?, ?, ?, ?, ?);
	`

	result, err := r.db.ExecContext(ctx, query,
		customer.ID,
		customer.Name,
		customer.Surname,
		customer.Email,
		customer.Pin,
		customer.Password,
		customer.Enabled,
		customer.CreatedAt,
	)
	if err != nil {
		if dupErr := customerDuplicateError(err); dupErr != nil {
			return dupErr
		}
		return fmt.Errorf("%s: insert customer failed: %w", op, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: get rows affected failed: %w", op, err)
	}

	if rows == 0 {
		return domain.ErrNoRowsAffected
	}

	return nil
}

func (r *customerRepository) Enable(ctx context.Context, id uuid.UUID) error {
	const op = "repository.customer.Enable"

	const query = `
	UPDATE customer SET enabled = TRUE, updated_at = now() WHERE id = uuid_to_bin(?) AND enabled = FALSE;
	`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("%s: update customer failed: %w", op, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: get rows affected failed: %w", op, err)
	}

	if rows == 0 {
		return domain.ErrNoRowsAffected
	}

	return nil
}

// customerDuplicateError maps a unique index violation to the attribute that caused it.
// It returns nil when err is not a duplicate entry error.
func customerDuplicateError(err error) error {
	message, ok := db.DuplicateKey(err)
	if !ok {
		return nil
	}

	switch {
	case strings.Contains(message, customerEmailIndex):
		return domain.ErrDuplicateEmail
	case strings.Contains(message, customerPinIndex):
		return domain.ErrDuplicatePin
	default:
		return domain.ErrDuplicateEntry
	}
}
