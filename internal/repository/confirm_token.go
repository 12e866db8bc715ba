package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/desofme/bank/internal/db"
	"github.com/desofme/bank/internal/domain"

	"github.com/jmoiron/sqlx"
)

type confirmTokenRepository struct {
	db sqlx.ExtContext
}

func newConfirmTokenRepository(db sqlx.ExtContext) *confirmTokenRepository {
	return &confirmTokenRepository{
		db: db,
	}
}

func (r *confirmTokenRepository) Create(ctx context.Context, token *domain.ConfirmToken) error {
	const op = "repository.confirmToken.Create"

	const query = `
    INSERT INTO confirm_token (token, customer_id, email, created_at, expires_at)
    VALUES (:token, uuid_to_bin(:customer_id), :email, :created_at, :expires_at)
    `

	res, err := sqlx.NamedExecContext(ctx, r.db, query, token)
	if err != nil {
		if _, ok := db.DuplicateKey(err); ok {
			return domain.ErrDuplicateEntry
		}
		return fmt.Errorf("%s: insert confirm token failed: %w", op, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: get rows affected failed: %w", op, err)
	}

	if rows != 1 {
		return fmt.Errorf("%s: expected 1 row affected, got %d", op, rows)
	}

	return nil
}

// GetByToken locks the row so that concurrent confirmations of the same token serialize.
func (r *confirmTokenRepository) GetByToken(ctx context.Context, token string) (*domain.ConfirmToken, error) {
	const op = "repository.confirmToken.GetByToken"

	const query = `
    SELECT token, customer_id, email, created_at, expires_at
    FROM confirm_token
    WHERE token = ?
    FOR UPDATE
    `

	var confirmToken domain.ConfirmToken
	if err := sqlx.GetContext(ctx, r.db, &confirmToken, query, token); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%s: select confirm token failed: %w", op, err)
	}

	return &confirmToken, nil
}

func (r *confirmTokenRepository) Delete(ctx context.Context, token string) error {
	const op = "repository.confirmToken.Delete"

	const query = `DELETE FROM confirm_token WHERE token = ?`

	res, err := r.db.ExecContext(ctx, query, token)
	if err != nil {
		return fmt.Errorf("%s: delete confirm token failed: %w", op, err)
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
