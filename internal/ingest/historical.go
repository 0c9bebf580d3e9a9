package ingest

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/amrdc/awsapi/internal/database"
	"github.com/amrdc/awsapi/internal/metrics"
	"github.com/amrdc/awsapi/internal/storage"
)

const (
	titleSeparator  = " Automatic Weather Station,"
	resourceMarker  = "10min"
	excludedDataset = "Alexander Tall Tower"
	datafileHeader  = 2
)

// Resource is one 10-minute datafile of a station.
type Resource struct {
	Station string
	URL     string
}

type catalogResponse struct {
	Success bool `json:"success"`
	Result  struct {
		Results []struct {
			Title     string `json:"title"`
			Resources []struct {
				Name string `json:"name"`
				URL  string `json:"url"`
			} `json:"resources"`
		} `json:"results"`
	} `json:"result"`
}

// ParseCatalog extracts the 10-minute datafiles from a CKAN package_search
// response. Datasets whose title does not name a station are skipped.
func ParseCatalog(doc []byte) ([]Resource, error) {
	var resp catalogResponse
	if err := json.Unmarshal(doc, &resp); err != nil {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("catalog search was not successful")
	}

	var out []Resource
	for _, ds := range resp.Result.Results {
		if strings.Contains(ds.Title, excludedDataset) {
			continue
		}
		name, _, ok := strings.Cut(ds.Title, titleSeparator)
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		for _, r := range ds.Resources {
			if strings.Contains(r.Name, resourceMarker) && r.URL != "" {
				out = append(out, Resource{Station: name, URL: r.URL})
			}
		}
	}
	return out, nil
}

// ParseDatafile reads a 10-minute datafile for station. After two header lines
// each line holds year, day of year, month, day, HHMM and then temperature,
// pressure, wind speed, wind direction, humidity and delta-T. Short or
// unparsable lines are counted in skipped.
func ParseDatafile(station string, doc []byte) (rows []database.Reading, skipped int, err error) {
	sc := bufio.NewScanner(bytes.NewReader(doc))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

	line := 0
	for sc.Scan() {
		line++
		if line <= datafileHeader {
			continue
		}
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		row, perr := parseDataLine(station, strings.Fields(text))
		if perr != nil {
			skipped++
			continue
		}
		rows = append(rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, skipped, fmt.Errorf("reading %s datafile: %w", station, err)
	}
	return rows, skipped, nil
}

func parseDataLine(station string, f []string) (database.Reading, error) {
	if len(f) < 10 {
		return database.Reading{}, fmt.Errorf("expected at least 10 fields, got %d", len(f))
	}
	date, err := time.Parse("2006-1-2", f[0]+"-"+f[2]+"-"+f[3])
	if err != nil {
		return database.Reading{}, err
	}
	clock, err := parseClock(f[4])
	if err != nil {
		return database.Reading{}, err
	}

	vals := make([]*float64, 6)
	for i := range vals {
		if 5+i >= len(f) {
			break
		}
		if vals[i], err = parseMeasurement(f[5+i]); err != nil {
			return database.Reading{}, err
		}
	}

	return database.Reading{
		StationName:   station,
		Date:          date,
		Time:          clock,
		Temperature:   vals[0],
		Pressure:      vals[1],
		WindSpeed:     vals[2],
		WindDirection: vals[3],
		Humidity:      vals[4],
		DeltaT:        vals[5],
	}, nil
}

// parseClock reads HHMM, or H:MM style times, into HH:MM:00.
func parseClock(s string) (string, error) {
	s = strings.ReplaceAll(s, ":", "")
	if len(s) < 3 || len(s) > 4 {
		return "", fmt.Errorf("bad time %q", s)
	}
	t, err := time.Parse("1504", strings.Repeat("0", 4-len(s))+s)
	if err != nil {
		return "", err
	}
	return t.Format("15:04:05"), nil
}

// HistoricalJob reloads the quality-controlled 10-minute readings.
type HistoricalJob struct {
	Fetcher     *Fetcher
	Writer      storage.ReadingsWriter
	CatalogURL  string
	Concurrency int
	Logger      *zap.SugaredLogger
}

// Name implements Job.
func (j *HistoricalJob) Name() string { return "historical" }

// Run lists the datafiles in the catalog, downloads them concurrently and
// upserts each file's rows. A datafile that fails is logged and skipped.
func (j *HistoricalJob) Run(ctx context.Context) (int64, error) {
	logger := orNop(j.Logger)
	doc, err := j.Fetcher.Get(ctx, j.CatalogURL)
	if err != nil {
		metrics.IngestFailures.WithLabelValues(j.Name()).Inc()
		return 0, fmt.Errorf("fetching catalog: %w", err)
	}
	resources, err := ParseCatalog(doc)
	if err != nil {
		return 0, err
	}
	logger.Infow("catalog loaded", "datafiles", len(resources))

	var total atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit(j.Concurrency))
	for _, res := range resources {
		g.Go(func() error {
			n, err := j.load(gctx, res)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				metrics.IngestFailures.WithLabelValues(j.Name()).Inc()
				logger.Warnw("could not load datafile", "station", res.Station, "url", res.URL, "error", err)
				return nil
			}
			total.Add(n)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return total.Load(), err
	}

	logger.Infow("historical reload complete", "datafiles", len(resources), "rows", total.Load())
	return total.Load(), nil
}

func (j *HistoricalJob) load(ctx context.Context, res Resource) (int64, error) {
	logger := orNop(j.Logger)
	doc, err := j.Fetcher.Get(ctx, res.URL)
	if err != nil {
		return 0, err
	}
	rows, skipped, err := ParseDatafile(res.Station, doc)
	if err != nil {
		return 0, err
	}
	if skipped > 0 {
		logger.Debugw("skipped malformed lines", "station", res.Station, "lines", skipped)
	}
	return j.Writer.UpsertReadings(ctx, rows)
}
