package main

import (
	"context"
	"database/sql"
	"time"

	dErrors "gatherhall/pkg/domain-errors"
	txcontext "gatherhall/pkg/platform/tx"
)

const defaultVettingTxTimeout = 5 * time.Second

// vettingPostgresTx implements the workflow engine's StoreTx over a
// database transaction. The *sql.Tx rides in the callback context; the
// postgres stores pick it up through their execer.
type vettingPostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func newVettingPostgresTx(db *sql.DB) *vettingPostgresTx {
	return &vettingPostgresTx{db: db}
}

func (t *vettingPostgresTx) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultVettingTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	return nil
}
