package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Rows is a forward-only result cursor.
type Rows interface {
	Columns() []string
	Next() bool
	Values() ([]any, error)
	Err() error
	Close()
}

// Conn is a connection checked out of a Pool. It is owned by one caller until
// Release is called.
type Conn interface {
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	Release()
}

// Pool hands out connections. Acquire blocks while every connection is checked
// out, until one is released or ctx ends.
type Pool interface {
	Acquire(ctx context.Context) (Conn, error)
	Stats() PoolStats
	Close()
}

// PoolStats is a point-in-time view of a pool.
type PoolStats struct {
	Acquired     int32
	Idle         int32
	Total        int32
	Max          int32
	AcquireCount int64
	WaitCount    int64
	WaitDuration time.Duration
}

// PoolConfig sizes a pool and names the database it connects to.
type PoolConfig struct {
	ConnectionString string
	MinConns         int32
	MaxConns         int32
	MaxConnIdleTime  time.Duration
}

// Pool size defaults.
const (
	DefaultMinConns = 1
	DefaultMaxConns = 100
)

// PgxPool is a Pool backed by pgxpool.
type PgxPool struct {
	pool *pgxpool.Pool
}

// NewPgxPool connects a pool and checks that the database answers.
func NewPgxPool(ctx context.Context, c PoolConfig) (*PgxPool, error) {
	cfg, err := pgxpool.ParseConfig(c.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	cfg.MinConns = c.MinConns
	if cfg.MinConns <= 0 {
		cfg.MinConns = DefaultMinConns
	}
	cfg.MaxConns = c.MaxConns
	if cfg.MaxConns <= 0 {
		cfg.MaxConns = DefaultMaxConns
	}
	if cfg.MinConns > cfg.MaxConns {
		return nil, fmt.Errorf("pool min-conns (%d) exceeds max-conns (%d)", cfg.MinConns, cfg.MaxConns)
	}
	if c.MaxConnIdleTime > 0 {
		cfg.MaxConnIdleTime = c.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &PgxPool{pool: pool}, nil
}

// Acquire checks out a connection.
func (p *PgxPool) Acquire(ctx context.Context) (Conn, error) {
	c, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &pgxConn{conn: c}, nil
}

// Ping checks that the database answers.
func (p *PgxPool) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Stats reports pool utilisation.
func (p *PgxPool) Stats() PoolStats {
	s := p.pool.Stat()
	return PoolStats{
		Acquired:     s.AcquiredConns(),
		Idle:         s.IdleConns(),
		Total:        s.TotalConns(),
		Max:          s.MaxConns(),
		AcquireCount: s.AcquireCount(),
		WaitCount:    s.EmptyAcquireCount(),
		WaitDuration: s.AcquireDuration(),
	}
}

// Close waits for checked out connections to be released and closes the pool.
func (p *PgxPool) Close() {
	p.pool.Close()
}

type pgxConn struct {
	conn *pgxpool.Conn
}

func (c *pgxConn) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	rows, err := c.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return &pgxRows{rows: rows}, nil
}

// Release returns the connection. pgxpool destroys it instead if it was left
// broken or mid-transaction.
func (c *pgxConn) Release() {
	c.conn.Release()
}

type pgxRows struct {
	rows pgx.Rows
}

func (r *pgxRows) Columns() []string {
	fds := r.rows.FieldDescriptions()
	cols := make([]string, len(fds))
	for i, fd := range fds {
		cols[i] = fd.Name
	}
	return cols
}

func (r *pgxRows) Next() bool             { return r.rows.Next() }
func (r *pgxRows) Values() ([]any, error) { return r.rows.Values() }
func (r *pgxRows) Err() error             { return r.rows.Err() }
func (r *pgxRows) Close()                 { r.rows.Close() }
