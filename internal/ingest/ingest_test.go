package ingest

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amrdc/awsapi/internal/database"
)

const awstext = `Byrd station 8903 awstext header line one two
 id date time temp press wspd wdir hum a b
  8903 2026286 000000 -31.5 789.2 4.1 210 66.0 0 0
  8903 2026287 120000 -30.2 788.1 5.6 215 67.5 0 0
  8903 2026287 121000 -29.8 788.0 5.9 220 68.0 0 0
trailer
`

func TestLatestRealtime(t *testing.T) {
	fields, err := LatestRealtime([]byte(awstext))
	require.NoError(t, err)
	assert.Equal(t, []string{"2026287", "121000", "-29.8", "788.0", "5.9", "220", "68.0", "0", "0"}, fields)

	_, err = LatestRealtime([]byte("nothing\nto see\n"))
	assert.ErrorIs(t, err, ErrNoData)
}

func TestParseRealtime(t *testing.T) {
	st := ArgosStation{ID: 8903, Name: "Byrd", MapX: 115, MapY: 152, Region: "West Antarctica"}
	row, err := ParseRealtime(st, []string{"2026287", "121000", "-29.8", "788.0", "5.9", "220", "-", "0", "0"})
	require.NoError(t, err)

	assert.Equal(t, "Byrd", row.StationName)
	assert.Equal(t, time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC), row.Date)
	assert.Equal(t, "12:10:00", row.Time)
	assert.Equal(t, -29.8, *row.Temperature)
	assert.Equal(t, 220.0, *row.WindDirection)
	assert.Nil(t, row.Humidity)
	assert.Equal(t, 115.0, *row.Latitude)
	assert.Equal(t, "West Antarctica", row.Region)

	_, err = ParseRealtime(st, []string{"2026x", "121000", "1", "2", "3", "4", "5"})
	assert.Error(t, err)
	_, err = ParseRealtime(st, []string{"2026287"})
	assert.Error(t, err)
}

func TestArgosStationsAreUnique(t *testing.T) {
	ids := map[int]bool{}
	names := map[string]bool{}
	for _, st := range ArgosStations {
		assert.False(t, ids[st.ID], "duplicate id %d", st.ID)
		assert.False(t, names[st.Name], "duplicate name %s", st.Name)
		ids[st.ID] = true
		names[st.Name] = true
	}
	assert.Len(t, ArgosStations, 41)
}

const catalog = `{"success": true, "result": {"results": [
  {"title": "Byrd Automatic Weather Station, 2020 quality-controlled observational data",
   "resources": [{"name": "byrd_2020_10min.txt", "url": "https://example/byrd10"},
                 {"name": "byrd_2020_3hr.txt", "url": "https://example/byrd3"}]},
  {"title": "Alexander Tall Tower Automatic Weather Station, 2020 quality-controlled observational data",
   "resources": [{"name": "att_10min.txt", "url": "https://example/att"}]},
  {"title": "Some other dataset", "resources": [{"name": "x_10min", "url": "https://example/x"}]}
]}}`

func TestParseCatalog(t *testing.T) {
	res, err := ParseCatalog([]byte(catalog))
	require.NoError(t, err)
	assert.Equal(t, []Resource{{Station: "Byrd", URL: "https://example/byrd10"}}, res)

	_, err = ParseCatalog([]byte(`{"success": false}`))
	assert.Error(t, err)
	_, err = ParseCatalog([]byte(`not json`))
	assert.Error(t, err)
}

const datafile = `Year Julian Month Day Time Temp Press Wspd Wdir Hum DeltaT
Byrd 2020 10min
2020 1 1 1 0000 -20.5 801.2 3.4 180.0 70.1 444.0
2020 1 1 1 0010 -20.6 801.1 3.5 181.0 70.0 0.2
2020 1 1 1 bad -20.6 801.1 3.5 181.0 70.0 0.2
short line
`

func TestParseDatafile(t *testing.T) {
	rows, skipped, err := ParseDatafile("Byrd", []byte(datafile))
	require.NoError(t, err)
	assert.Equal(t, 2, skipped)
	require.Len(t, rows, 2)

	assert.Equal(t, "Byrd", rows[0].StationName)
	assert.Equal(t, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), rows[0].Date)
	assert.Equal(t, "00:00:00", rows[0].Time)
	assert.Equal(t, 444.0, *rows[0].DeltaT)
	assert.Equal(t, "00:10:00", rows[1].Time)
	assert.Equal(t, -20.6, *rows[1].Temperature)
}

func TestParseClock(t *testing.T) {
	for in, want := range map[string]string{"0000": "00:00:00", "950": "09:50:00", "23:50": "23:50:00"} {
		got, err := parseClock(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := parseClock("2500")
	assert.Error(t, err)
}

func fastRetry() RetryConfig {
	return RetryConfig{InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond, MaxElapsedTime: time.Second}
}

func TestFetcherRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	body, err := NewFetcher(srv.Client(), fastRetry(), nil).Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.EqualValues(t, 3, calls.Load())
}

func TestFetcherDoesNotRetryNotFound(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewFetcher(srv.Client(), fastRetry(), nil).Get(context.Background(), srv.URL)
	var serr *StatusError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, http.StatusNotFound, serr.Status)
	assert.EqualValues(t, 1, calls.Load())
}

func TestFetcherRejectsOversizedBody(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, strings.Repeat("x", 65))
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client(), fastRetry(), nil)
	f.maxBody = 64
	body, err := f.Get(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrBodyTooLarge)
	assert.Nil(t, body)
	assert.EqualValues(t, 1, calls.Load())

	f.maxBody = 65
	body, err = f.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Len(t, body, 65)
}

// memoryWriter collects upserted rows.
type memoryWriter struct {
	mu       sync.Mutex
	readings []database.Reading
	realtime []database.RealtimeReading
}

func (m *memoryWriter) UpsertReadings(ctx context.Context, rows []database.Reading) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readings = append(m.readings, rows...)
	return int64(len(rows)), nil
}

func (m *memoryWriter) UpsertRealtime(ctx context.Context, rows []database.RealtimeReading) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.realtime = append(m.realtime, rows...)
	return int64(len(rows)), nil
}

func TestRealtimeJob(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/8903.txt":
			fmt.Fprint(w, awstext)
		case "/8900.txt":
			fmt.Fprint(w, "no observations\n")
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	w := &memoryWriter{}
	job := &RealtimeJob{
		Fetcher:     NewFetcher(srv.Client(), fastRetry(), nil),
		Writer:      w,
		URLTemplate: srv.URL + "/%d.txt",
		Stations: []ArgosStation{
			{ID: 8903, Name: "Byrd", Region: "West Antarctica"},
			{ID: 8900, Name: "Harry", Region: "West Antarctica"},
			{ID: 1, Name: "Missing", Region: "Nowhere"},
		},
		Concurrency: 2,
	}

	n, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	require.Len(t, w.realtime, 1)
	assert.Equal(t, "Byrd", w.realtime[0].StationName)
	assert.Equal(t, "12:10:00", w.realtime[0].Time)
}

func TestHistoricalJob(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/catalog":
			fmt.Fprint(w, strings.ReplaceAll(catalog, "https://example", srv.URL))
		case "/byrd10":
			fmt.Fprint(w, datafile)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	w := &memoryWriter{}
	job := &HistoricalJob{
		Fetcher:     NewFetcher(srv.Client(), fastRetry(), nil),
		Writer:      w,
		CatalogURL:  srv.URL + "/catalog",
		Concurrency: 4,
	}

	n, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	assert.Len(t, w.readings, 2)
}

type countingJob struct {
	runs atomic.Int32
}

func (c *countingJob) Name() string { return "counting" }

func (c *countingJob) Run(ctx context.Context) (int64, error) {
	c.runs.Add(1)
	return 1, nil
}

func TestSchedulerRunsUntilCancelled(t *testing.T) {
	job := &countingJob{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		NewScheduler(nil, Schedule{Job: job, Interval: 5 * time.Millisecond, RunAtStart: true}).Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return job.runs.Load() >= 3 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}
