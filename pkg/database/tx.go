package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// TxFunc тело транзакции: вернула ошибку — откат, иначе коммит
type TxFunc func(tx pgx.Tx) error

// WithTransaction выполняет fn внутри транзакции
func WithTransaction(ctx context.Context, db DB, fn TxFunc) error {
	_, err := WithTransactionResult(ctx, db, func(tx pgx.Tx) (struct{}, error) {
		return struct{}{}, fn(tx)
	})
	return err
}

// WithTransactionResult выполняет fn внутри транзакции и возвращает её результат.
// Паника из fn откатывает транзакцию и пробрасывается дальше.
func WithTransactionResult[T any](ctx context.Context, db DB, fn func(tx pgx.Tx) (T, error)) (T, error) {
	var zero T

	tx, err := db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return zero, fmt.Errorf("failed to begin transaction: %w", err)
	}

	done := false
	defer func() {
		if !done {
			_ = tx.Rollback(ctx) //nolint:errcheck // соединение закроет пул
		}
	}()

	result, err := fn(tx)
	if err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			err = fmt.Errorf("tx error: %v, rollback error: %w", err, rbErr)
		}
		done = true
		return zero, err
	}

	if err := tx.Commit(ctx); err != nil {
		done = true
		return zero, fmt.Errorf("failed to commit transaction: %w", err)
	}

	done = true
	return result, nil
}
