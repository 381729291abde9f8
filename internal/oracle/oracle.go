// Package oracle runs a candidate SQL script against a live Postgres
// database and classifies the observable outcome, so the reducer can
// compare a reduced candidate's outcome against the original's.
package oracle

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
)

// Config configures one Oracle.
type Config struct {
	// DSN is the libpq connection string (or URL) passed to sql.Open.
	DSN string
	// Timeout is the per-probe statement_timeout, applied via a `SET
	// statement_timeout` issued on each fresh connection.
	Timeout time.Duration
	// UseSQLState reports outcomes as SQLSTATE codes (e.g. "42601")
	// instead of the first line of the driver's error message.
	UseSQLState bool
	// RetryDelay is how long Run waits between connection attempts when
	// the database isn't reachable yet.
	RetryDelay time.Duration
}

// NoErrorOutcome is the outcome tag for a script that executed without
// error — the Python original's literal 'no error' string.
const NoErrorOutcome = "no error"

// Oracle probes a database with candidate SQL scripts.
type Oracle struct {
	cfg Config
}

// New returns an Oracle for cfg.
func New(cfg Config) *Oracle {
	return &Oracle{cfg: cfg}
}

// Run executes query against a fresh connection and returns its outcome
// tag: NoErrorOutcome, a SQLSTATE code, or the first line of the error
// message, depending on Config.UseSQLState. Connecting is retried with
// Config.RetryDelay between attempts until it succeeds or ctx is done —
// mirroring the Python original's "while True: try connect ... except:
// sleep" loop, which assumes the target database eventually comes up.
func (o *Oracle) Run(ctx context.Context, query string) (string, error) {
	conn, err := o.connect(ctx)
	if err != nil {
		return "", err
	}
	defer conn.close()

	_, execErr := conn.ExecContext(ctx, query)
	if execErr == nil {
		return NoErrorOutcome, nil
	}

	if pqErr, ok := execErr.(*pq.Error); ok {
		if o.cfg.UseSQLState {
			return string(pqErr.Code), nil
		}
		return firstLine(pqErr.Message), nil
	}
	// a non-Postgres-protocol error (context cancellation, broken pipe,
	// driver bug): not an outcome to compare candidates on, it's a probe
	// failure.
	return "", fmt.Errorf("oracle: probe failed: %w", execErr)
}

// CheckConnection attempts a single connection and a trivial query, with
// no retry — the startup health check a CLI should fail fast on, as
// opposed to Run's patient retry loop meant to ride out a database that's
// still starting up mid-reduction.
func (o *Oracle) CheckConnection(ctx context.Context) error {
	db, err := sql.Open("postgres", o.cfg.DSN)
	if err != nil {
		return fmt.Errorf("oracle: %w", err)
	}
	defer db.Close()

	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("oracle: connect: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "select"); err != nil {
		return fmt.Errorf("oracle: health check query failed: %w", err)
	}
	return nil
}

// probeConn bundles the *sql.DB and *sql.Conn a single probe opened, so
// both get closed together — sql.Open doesn't dial anything by itself,
// the actual connection (and thus the thing worth retrying) is DB.Conn.
type probeConn struct {
	db   *sql.DB
	conn *sql.Conn
}

func (p *probeConn) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return p.conn.ExecContext(ctx, query, args...)
}

func (p *probeConn) close() {
	p.conn.Close()
	p.db.Close()
}

// connect opens a fresh connection and applies statement_timeout,
// retrying the dial itself until it succeeds or ctx is canceled.
func (o *Oracle) connect(ctx context.Context) (*probeConn, error) {
	for {
		conn, err := o.dialOnce(ctx)
		if err == nil {
			return conn, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("oracle: giving up waiting for connection: %w", ctx.Err())
		case <-time.After(o.cfg.RetryDelay):
		}
	}
}

func (o *Oracle) dialOnce(ctx context.Context) (*probeConn, error) {
	db, err := sql.Open("postgres", o.cfg.DSN)
	if err != nil {
		return nil, err
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}
	ms := o.cfg.Timeout.Milliseconds()
	if _, err := conn.ExecContext(ctx, fmt.Sprintf("SET statement_timeout = %d", ms)); err != nil {
		conn.Close()
		db.Close()
		return nil, err
	}
	return &probeConn{db: db, conn: conn}, nil
}

func firstLine(message string) string {
	if i := strings.IndexByte(message, '\n'); i >= 0 {
		return message[:i]
	}
	return message
}
