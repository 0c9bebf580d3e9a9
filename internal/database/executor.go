package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amrdc/awsapi/internal/metrics"
	"go.uber.org/zap"
)

// ErrQueryFailed is matched by every *QueryFailedError.
var ErrQueryFailed = errors.New("query failed")

// QueryFailedError wraps a store-level failure: checkout timeout, syntax
// error, disconnect.
type QueryFailedError struct {
	Label string
	Err   error
}

func (e *QueryFailedError) Error() string {
	return fmt.Sprintf("%s query failed: %v", e.Label, e.Err)
}

func (e *QueryFailedError) Unwrap() error {
	return e.Err
}

func (e *QueryFailedError) Is(target error) bool {
	return target == ErrQueryFailed
}

// Executor runs single read-only statements against a Pool.
type Executor struct {
	pool   Pool
	logger *zap.SugaredLogger
}

// NewExecutor returns an executor using pool.
func NewExecutor(pool Pool, logger *zap.SugaredLogger) *Executor {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Executor{pool: pool, logger: logger}
}

// Execute checks out a connection, runs sql with args and fetches the whole
// result. The connection goes back to the pool on every path. label names the
// statement in logs and metrics.
func (e *Executor) Execute(ctx context.Context, label, sql string, args []any) (rs *ResultSet, err error) {
	started := time.Now()
	defer func() {
		n := 0
		if rs != nil {
			n = rs.Len()
		}
		metrics.ObserveQuery(label, started, n, err)
	}()

	conn, err := e.pool.Acquire(ctx)
	if err != nil {
		e.logger.Warnw("could not acquire database connection", "query", label, "error", err)
		return nil, &QueryFailedError{Label: label, Err: fmt.Errorf("acquiring connection: %w", err)}
	}
	defer conn.Release()
	metrics.PoolAcquireWait.Observe(time.Since(started).Seconds())

	rs, err = fetch(ctx, conn, sql, args)
	if err != nil {
		e.logger.Errorw("query failed", "query", label, "error", err)
		return nil, &QueryFailedError{Label: label, Err: err}
	}

	e.logger.Debugw("query complete", "query", label, "rows", rs.Len(), "duration", time.Since(started))
	return rs, nil
}

func fetch(ctx context.Context, conn Conn, sql string, args []any) (*ResultSet, error) {
	rows, err := conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rs := &ResultSet{Header: rows.Columns(), Rows: [][]any{}}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", len(rs.Rows)+1, err)
		}
		if len(values) != len(rs.Header) {
			return nil, fmt.Errorf("row %d has %d values for %d columns", len(rs.Rows)+1, len(values), len(rs.Header))
		}
		for i, v := range values {
			values[i] = normalizeValue(v)
		}
		rs.Rows = append(rs.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rs, nil
}
