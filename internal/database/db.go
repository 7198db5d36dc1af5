package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// buildDSN assembles the MySQL DSN.
//
// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent.
// clientFoundRows=true makes RowsAffected report matched rows rather than
// changed rows; the guarded UPDATEs in the repositories rely on that to
// tell "guard rejected the row" apart from "row matched but values were
// already current".  innodb_lock_wait_timeout rides along in the DSN so
// the driver sets it on every pooled connection, bounding how long a
// transaction may wait on a contended row before failing.
func buildDSN(user, pass, host, port, name string, lockWaitSec int) string {
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	return fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC&clientFoundRows=true&innodb_lock_wait_timeout=%d",
		auth, host, port, name, lockWaitSec)
}

// Open connects to MySQL and verifies the connection.  lockWaitSec bounds
// row-lock waits for every connection in the pool.
func Open(user, pass, host, port, name string, lockWaitSec int) (*sql.DB, error) {
	db, err := sql.Open("mysql", buildDSN(user, pass, host, port, name, lockWaitSec))
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

// TxRunner runs functions inside a database transaction with the usual
// rollback-unless-committed discipline.  Services depend on the interface
// this satisfies rather than *sql.DB, so tests substitute an in-memory
// runner.
type TxRunner struct {
	db *sql.DB
}

// NewTxRunner returns a TxRunner over the given database.
func NewTxRunner(db *sql.DB) *TxRunner { return &TxRunner{db: db} }

// WithinTx begins a transaction, runs fn, and commits if fn returned nil.
// Any error from fn or from commit rolls the transaction back and is
// returned unchanged so sentinel comparisons still work.
func (r *TxRunner) WithinTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
