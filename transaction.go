package pgentity

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TxOptions mirrors pgx.TxOptions for callers that do not import pgx.
type TxOptions struct {
	IsoLevel   pgx.TxIsoLevel
	AccessMode pgx.TxAccessMode
}

type TxManager interface {
	WithTransaction(ctx context.Context, fn func(tx Transaction) error) error
	BeginTx(ctx context.Context, opts *TxOptions) (Transaction, error)
}

// Transaction exposes its Executor so entities can be saved inside it.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	Exec() Executor
	Save(ctx context.Context, e Entity, user uuid.UUID) error
}

type txBeginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

type txManager struct{ db *DB }

func (db *DB) Tx() TxManager { return &txManager{db: db} }

type txImpl struct {
	db *DB
	tx pgx.Tx
}

// WithTransaction runs fn in a transaction, rolling back when fn returns an error.
func (m *txManager) WithTransaction(ctx context.Context, fn func(tx Transaction) error) error {
	txx, err := m.BeginTx(ctx, &TxOptions{})
	if err != nil {
		return err
	}
	if err := fn(txx); err != nil {
		_ = txx.Rollback(ctx)
		return err
	}
	return txx.Commit(ctx)
}

func (m *txManager) BeginTx(ctx context.Context, opts *TxOptions) (Transaction, error) {
	b, ok := m.db.exec.(txBeginner)
	if !ok {
		return nil, &ORMError{Code: ErrCodeTransaction, Message: "executor cannot begin transactions", Internal: errors.ErrUnsupported}
	}
	var pgOpts pgx.TxOptions
	if opts != nil {
		pgOpts.IsoLevel = opts.IsoLevel
		pgOpts.AccessMode = opts.AccessMode
	}
	tx, err := b.BeginTx(ctx, pgOpts)
	if err != nil {
		return nil, err
	}
	return &txImpl{db: m.db, tx: tx}, nil
}

func (t *txImpl) Commit(ctx context.Context) error   { return t.tx.Commit(ctx) }
func (t *txImpl) Rollback(ctx context.Context) error { return t.tx.Rollback(ctx) }
func (t *txImpl) Exec() Executor                     { return t.tx }

func (t *txImpl) Save(ctx context.Context, e Entity, user uuid.UUID) error {
	return t.db.Save(ctx, e, user, t.tx)
}
