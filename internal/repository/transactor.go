package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

type transactor struct {
	db *sqlx.DB
}

func newTransactor(db *sqlx.DB) *transactor {
	return &transactor{
		db: db,
	}
}

func (t *transactor) RunInTx(ctx context.Context, fn func(repos TxRepositories) error) (err error) {
	tx, err := t.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	repos := TxRepositories{
		Customers:     newCustomerRepository(tx),
		ConfirmTokens: newConfirmTokenRepository(tx),
	}

	if err := fn(repos); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Wrapf(err, "rollback failed: %v", rbErr)
		}
		return err
	}

	return errors.Wrap(tx.Commit(), "commit tx")
}
