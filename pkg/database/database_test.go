package database

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// stubDB реализует DB. Транзакционным хелперам нужен только BeginTx,
// остальное — пустые заглушки ради интерфейса.
type stubDB struct {
	mock.Mock
}

func (s *stubDB) BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error) {
	args := s.Called(ctx, txOptions)
	tx, _ := args.Get(0).(pgx.Tx)
	return tx, args.Error(1)
}

func (s *stubDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (s *stubDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (s *stubDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (s *stubDB) Close()                                                        {}
func (s *stubDB) Ping(ctx context.Context) error                                { return nil }

// stubTx отслеживает только Commit/Rollback.
type stubTx struct {
	mock.Mock
}

func (s *stubTx) Commit(ctx context.Context) error {
	return s.Called(ctx).Error(0)
}
func (s *stubTx) Rollback(ctx context.Context) error {
	return s.Called(ctx).Error(0)
}

func (s *stubTx) Begin(ctx context.Context) (pgx.Tx, error) { return nil, nil }
func (s *stubTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (s *stubTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (s *stubTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (s *stubTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (s *stubTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (s *stubTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (s *stubTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (s *stubTx) Conn() *pgx.Conn                                               { return nil }

func newTxFixture(t *testing.T) (*stubDB, *stubTx) {
	t.Helper()
	db := new(stubDB)
	tx := new(stubTx)
	db.On("BeginTx", mock.Anything, mock.Anything).Return(tx, nil)
	return db, tx
}

func TestWithTransaction_Commit(t *testing.T) {
	db, tx := newTxFixture(t)
	tx.On("Commit", mock.Anything).Return(nil)

	err := WithTransaction(context.Background(), db, func(tx pgx.Tx) error {
		return nil
	})

	assert.NoError(t, err)
	db.AssertExpectations(t)
	tx.AssertExpectations(t)
}

func TestWithTransaction_RollbackOnError(t *testing.T) {
	db, tx := newTxFixture(t)
	tx.On("Rollback", mock.Anything).Return(nil)

	boom := errors.New("db error")
	err := WithTransaction(context.Background(), db, func(tx pgx.Tx) error {
		return boom
	})

	// Исходная ошибка не должна теряться при обёртывании
	assert.ErrorIs(t, err, boom)
	tx.AssertNotCalled(t, "Commit", mock.Anything)
	tx.AssertExpectations(t)
}

func TestWithTransaction_RollbackOnPanic(t *testing.T) {
	db, tx := newTxFixture(t)
	tx.On("Rollback", mock.Anything).Return(nil)

	assert.Panics(t, func() {
		_ = WithTransaction(context.Background(), db, func(tx pgx.Tx) error {
			panic("unexpected")
		})
	})

	tx.AssertExpectations(t)
	db.AssertExpectations(t)
}

func TestWithTransactionResult_ReturnsValue(t *testing.T) {
	db, tx := newTxFixture(t)
	tx.On("Commit", mock.Anything).Return(nil)

	got, err := WithTransactionResult(context.Background(), db, func(tx pgx.Tx) (int, error) {
		return 42, nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 42, got)
	tx.AssertExpectations(t)
}

func TestWithTransactionResult_BeginFails(t *testing.T) {
	db := new(stubDB)
	db.On("BeginTx", mock.Anything, mock.Anything).Return(nil, errors.New("no connection"))

	_, err := WithTransactionResult(context.Background(), db, func(tx pgx.Tx) (string, error) {
		t.Fatal("тело транзакции не должно вызываться")
		return "", nil
	})

	assert.Error(t, err)
	db.AssertExpectations(t)
}

func TestWithTransactionResult_CommitFails(t *testing.T) {
	db, tx := newTxFixture(t)
	tx.On("Commit", mock.Anything).Return(errors.New("commit failed"))

	_, err := WithTransactionResult(context.Background(), db, func(tx pgx.Tx) (int, error) {
		return 7, nil
	})

	assert.Error(t, err)
	tx.AssertExpectations(t)
}
