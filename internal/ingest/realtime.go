package ingest

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/amrdc/awsapi/internal/database"
	"github.com/amrdc/awsapi/internal/metrics"
	"github.com/amrdc/awsapi/internal/storage"
)

// realtimeFields is the width of a data line in an awstext file.
const realtimeFields = 10

// ErrNoData means a feed had no usable observation.
var ErrNoData = errors.New("no data in feed")

// LatestRealtime returns the fields of the newest observation in an awstext
// document: the last ten-field line after the two leading ten-field header
// lines, without its first field.
func LatestRealtime(doc []byte) ([]string, error) {
	var (
		seen   int
		latest []string
	)
	sc := bufio.NewScanner(bytes.NewReader(doc))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) != realtimeFields {
			continue
		}
		seen++
		if seen <= 2 {
			continue
		}
		latest = fields[1:]
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if latest == nil {
		return nil, ErrNoData
	}
	return latest, nil
}

// ParseRealtime turns the fields of one observation into a row for station.
// Fields are year+day-of-year, HHMMSS, temperature, pressure, wind speed, wind
// direction and humidity.
func ParseRealtime(station ArgosStation, fields []string) (database.RealtimeReading, error) {
	if len(fields) < 7 {
		return database.RealtimeReading{}, fmt.Errorf("%s: expected at least 7 fields, got %d", station.Name, len(fields))
	}
	date, err := time.Parse("2006002", fields[0])
	if err != nil {
		return database.RealtimeReading{}, fmt.Errorf("%s: parsing date %q: %w", station.Name, fields[0], err)
	}
	clock, err := time.Parse("150405", fields[1])
	if err != nil {
		return database.RealtimeReading{}, fmt.Errorf("%s: parsing time %q: %w", station.Name, fields[1], err)
	}

	vals := make([]*float64, 5)
	for i := range vals {
		v, err := parseMeasurement(fields[2+i])
		if err != nil {
			return database.RealtimeReading{}, fmt.Errorf("%s: field %d: %w", station.Name, 3+i, err)
		}
		vals[i] = v
	}

	x, y := station.MapX, station.MapY
	return database.RealtimeReading{
		StationName:   station.Name,
		Date:          date,
		Time:          clock.Format("15:04:05"),
		Temperature:   vals[0],
		Pressure:      vals[1],
		WindSpeed:     vals[2],
		WindDirection: vals[3],
		Humidity:      vals[4],
		Latitude:      &x,
		Longitude:     &y,
		Region:        station.Region,
	}, nil
}

// parseMeasurement reads a float; "-" and "NaN" are missing values.
func parseMeasurement(s string) (*float64, error) {
	if s == "" || s == "-" || strings.EqualFold(s, "nan") {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// RealtimeJob refreshes the latest observation of every ARGOS station.
type RealtimeJob struct {
	Fetcher     *Fetcher
	Writer      storage.ReadingsWriter
	URLTemplate string
	Stations    []ArgosStation
	Concurrency int
	Logger      *zap.SugaredLogger
}

// Name implements Job.
func (j *RealtimeJob) Name() string { return "realtime" }

// Run downloads every station feed concurrently and upserts the rows that
// parsed. A station whose feed fails is logged and skipped.
func (j *RealtimeJob) Run(ctx context.Context) (int64, error) {
	logger := orNop(j.Logger)
	stations := j.Stations
	if stations == nil {
		stations = ArgosStations
	}

	var (
		mu   sync.Mutex
		rows = make([]database.RealtimeReading, 0, len(stations))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit(j.Concurrency))

	for _, st := range stations {
		g.Go(func() error {
			url := fmt.Sprintf(j.URLTemplate, st.ID)
			doc, err := j.Fetcher.Get(gctx, url)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				metrics.IngestFailures.WithLabelValues(j.Name()).Inc()
				logger.Warnw("realtime feed unavailable", "station", st.Name, "error", err)
				return nil
			}
			fields, err := LatestRealtime(doc)
			if err != nil {
				logger.Infow("realtime feed empty", "station", st.Name)
				return nil
			}
			row, err := ParseRealtime(st, fields)
			if err != nil {
				logger.Warnw("could not parse realtime observation", "station", st.Name, "error", err)
				return nil
			}
			mu.Lock()
			rows = append(rows, row)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	n, err := j.Writer.UpsertRealtime(ctx, rows)
	if err != nil {
		return 0, err
	}
	logger.Infow("realtime refresh complete", "stations", len(stations), "rows", n)
	return n, nil
}

func limit(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}
