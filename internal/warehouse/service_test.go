package warehouse

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amrdc/awsapi/internal/database"
	"github.com/amrdc/awsapi/internal/query"
)

// recordingPool counts checkouts and answers every query with a fixed result.
type recordingPool struct {
	acquired atomic.Int64
	queries  []string
	columns  []string
	rows     [][]any
}

func (p *recordingPool) Acquire(ctx context.Context) (database.Conn, error) {
	p.acquired.Add(1)
	return &recordingConn{pool: p}, nil
}

func (p *recordingPool) Stats() database.PoolStats { return database.PoolStats{} }
func (p *recordingPool) Close()                    {}

type recordingConn struct {
	pool *recordingPool
}

func (c *recordingConn) Query(ctx context.Context, sql string, args ...any) (database.Rows, error) {
	c.pool.queries = append(c.pool.queries, sql)
	return &staticRows{columns: c.pool.columns, rows: c.pool.rows, pos: -1}, nil
}

func (c *recordingConn) Release() {}

type staticRows struct {
	columns []string
	rows    [][]any
	pos     int
}

func (r *staticRows) Columns() []string { return r.columns }
func (r *staticRows) Next() bool        { r.pos++; return r.pos < len(r.rows) }
func (r *staticRows) Err() error        { return nil }
func (r *staticRows) Close()            {}

func (r *staticRows) Values() ([]any, error) {
	out := make([]any, len(r.rows[r.pos]))
	copy(out, r.rows[r.pos])
	return out, nil
}

func newTestService(pool *recordingPool) *Service {
	s := New(database.NewExecutor(pool, nil), nil, nil)
	s.now = func() time.Time { return time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC) }
	return s
}

var (
	testStart = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	testEnd   = time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC)
)

func TestInvalidRequestsNeverAcquire(t *testing.T) {
	tests := []struct {
		name string
		req  query.Request
	}{
		{name: "all without stations", req: query.Request{Kind: "all"}},
		{name: "max without variable", req: query.Request{Kind: "max", Stations: query.AllStations(), Grouping: "station"}},
		{name: "mean without grouping", req: query.Request{Kind: "mean", Stations: query.AllStations(), Variable: "temperature"}},
		{name: "unknown kind", req: query.Request{Kind: "median", Stations: query.AllStations()}},
		{name: "hostile variable", req: query.Request{Kind: "max", Stations: query.AllStations(), Variable: "temperature; DROP TABLE aws_10min", Grouping: "year"}},
		{name: "hostile grouping", req: query.Request{Kind: "mean", Stations: query.AllStations(), Variable: "temperature", Grouping: `year"--`}},
		{name: "bad interval", req: query.Request{Kind: "all", Stations: query.AllStations(), IntervalMinutes: 5000}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pool := &recordingPool{}
			s := newTestService(pool)

			_, err := s.Data(context.Background(), tc.req)
			require.Error(t, err)
			assert.True(t, query.IsClientError(err), "error %v should be a client error", err)

			_, err = s.Download(context.Background(), tc.req)
			require.Error(t, err)
			assert.Zero(t, pool.acquired.Load())
		})
	}
}

func TestData(t *testing.T) {
	pool := &recordingPool{
		columns: []string{"station_name", "date", "time", "temperature"},
		rows:    [][]any{{"Byrd", "2020-01-01", "00:00", float32(-20.5)}},
	}
	s := newTestService(pool)

	rs, err := s.Data(context.Background(), query.Request{
		Kind: "all", Stations: query.StationList("Byrd"), IntervalMinutes: 60,
		StartDate: testStart, EndDate: testEnd, Variable: "temperature",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, rs.Len())
	assert.Equal(t, -20.5, rs.Rows[0][3])
	assert.EqualValues(t, 1, pool.acquired.Load())
}

func TestDownload(t *testing.T) {
	pool := &recordingPool{
		columns: []string{"station_name", "temperature"},
		rows:    [][]any{{"Byrd", -20.5}, {"Harry", nil}},
	}
	s := newTestService(pool)

	stream, err := s.Download(context.Background(), query.Request{
		Kind: "max", Stations: query.AllStations(), StartDate: testStart, EndDate: testEnd,
		Variable: "temperature", Grouping: "station",
	})
	require.NoError(t, err)
	assert.Equal(t, "AMRDC Data Warehouse 2026-10-14.csv", stream.Filename())

	var buf bytes.Buffer
	_, err = stream.WriteAll(context.Background(), &buf)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "Subset used: 2020-01 - 2020-12")
	assert.Equal(t, "Byrd,-20.5", lines[2])
	assert.Equal(t, "Harry,", lines[3])
}

func TestDownloadUsesDownloadCap(t *testing.T) {
	pool := &recordingPool{columns: []string{"station_name"}}
	s := newTestService(pool)

	_, err := s.Download(context.Background(), query.Request{Kind: "all", Stations: query.AllStations(), IntervalMinutes: 10})
	require.NoError(t, err)
	require.Len(t, pool.queries, 1)
	assert.Contains(t, pool.queries[0], "LIMIT $")
}

func TestList(t *testing.T) {
	pool := &recordingPool{columns: []string{"v"}, rows: [][]any{{"Byrd"}}}
	s := newTestService(pool)

	stations, err := s.YearStations(context.Background(), []int{2020})
	require.NoError(t, err)
	assert.Equal(t, []string{"Byrd"}, stations)

	pool.rows = [][]any{{int32(2019)}, {int32(2020)}}
	years, err := s.StationYears(context.Background(), query.StationList("Byrd"))
	require.NoError(t, err)
	assert.Equal(t, []int64{2019, 2020}, years)

	pool.rows = [][]any{{"Byrd"}}
	_, err = s.List(context.Background())
	assert.Error(t, err, "a string year column is rejected")
}

func TestRealtimeStationList(t *testing.T) {
	pool := &recordingPool{
		columns: []string{"station_name", "region"},
		rows: [][]any{
			{"Byrd", "West Antarctica"},
			{"Harry", "West Antarctica"},
			{"Dome C II", "East Antarctica"},
		},
	}
	regions, err := newTestService(pool).RealtimeStationList(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{
		"West Antarctica": {"Byrd", "Harry"},
		"East Antarctica": {"Dome C II"},
	}, regions)
}

func TestRealtimeExtremes(t *testing.T) {
	pool := &recordingPool{columns: []string{"station_name", "date", "time", "temperature"}, rows: [][]any{{"Byrd", "2026-10-14", "12:00:00", -30.0}}}
	s := newTestService(pool)

	ex, err := s.RealtimeExtremes(context.Background(), "temperature")
	require.NoError(t, err)
	assert.Len(t, ex.Max, 1)
	assert.Len(t, ex.Min, 1)
	assert.EqualValues(t, 2, pool.acquired.Load())

	_, err = s.RealtimeExtremes(context.Background(), "name")
	assert.True(t, errors.Is(err, query.ErrUnknownIdentifier))
	assert.EqualValues(t, 2, pool.acquired.Load())
}
