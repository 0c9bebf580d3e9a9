// Package warehouse answers historical and realtime AWS queries: it validates
// and compiles a request, runs it on the pool and shapes the result.
package warehouse

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/amrdc/awsapi/internal/database"
	"github.com/amrdc/awsapi/internal/export"
	"github.com/amrdc/awsapi/internal/query"
)

// Executor runs one compiled statement.
type Executor interface {
	Execute(ctx context.Context, label, sql string, args []any) (*database.ResultSet, error)
}

// Service is safe for concurrent use.
type Service struct {
	exec     Executor
	compiler *query.Compiler
	logger   *zap.SugaredLogger
	now      func() time.Time
}

// New returns a service running statements built by compiler on exec. A nil
// compiler uses the default readings table.
func New(exec Executor, compiler *query.Compiler, logger *zap.SugaredLogger) *Service {
	if compiler == nil {
		compiler, _ = query.NewCompiler(query.DefaultReadingsTable)
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{exec: exec, compiler: compiler, logger: logger, now: time.Now}
}

// Data runs a data request. Invalid requests fail before a connection is
// checked out.
func (s *Service) Data(ctx context.Context, req query.Request) (*database.ResultSet, error) {
	cq, err := s.compiler.Compile(req)
	if err != nil {
		return nil, err
	}
	s.logger.Debugw("compiled data query", "kind", req.Kind, "stations", req.Stations.String(),
		"variable", req.Variable, "grouping", req.Grouping, "download", req.ForDownload)
	return s.exec.Execute(ctx, "data_"+req.Kind, cq.SQL, cq.Args)
}

// Download runs req with the download row cap and wraps the result in a CSV
// stream citing the requested range.
func (s *Service) Download(ctx context.Context, req query.Request) (*export.Stream, error) {
	req.ForDownload = true
	rs, err := s.Data(ctx, req)
	if err != nil {
		return nil, err
	}
	return export.NewAt(rs.Cursor(), req.StartDate, req.EndDate, s.now()), nil
}

// Listing is every station and year present in the historical table.
type Listing struct {
	Stations []string `json:"stations"`
	Years    []int64  `json:"years"`
}

// List returns every station and year with readings.
func (s *Service) List(ctx context.Context) (*Listing, error) {
	stations, err := s.stringColumn(ctx, "list_stations", query.DistinctStations)
	if err != nil {
		return nil, err
	}
	years, err := s.intColumn(ctx, "list_years", query.DistinctYears)
	if err != nil {
		return nil, err
	}
	return &Listing{Stations: stations, Years: years}, nil
}

// StationYears returns the years in which any of stations reported.
func (s *Service) StationYears(ctx context.Context, stations query.Stations) ([]int64, error) {
	return s.intColumn(ctx, "station_years", func() (query.CompiledQuery, error) {
		return query.StationYears(stations)
	})
}

// YearStations returns the stations that reported in any of years.
func (s *Service) YearStations(ctx context.Context, years []int) ([]string, error) {
	return s.stringColumn(ctx, "year_stations", func() (query.CompiledQuery, error) {
		return query.YearStations(years)
	})
}

// RealtimeStationList groups realtime stations by region.
func (s *Service) RealtimeStationList(ctx context.Context) (map[string][]string, error) {
	rs, err := s.run(ctx, "realtime_station_list", query.RealtimeRegions)
	if err != nil {
		return nil, err
	}
	regions := make(map[string][]string)
	for _, row := range rs.Rows {
		station, _ := row[0].(string)
		region, _ := row[1].(string)
		regions[region] = append(regions[region], station)
	}
	return regions, nil
}

// RealtimeStations returns the latest reading of each of stations.
func (s *Service) RealtimeStations(ctx context.Context, stations query.Stations) (*database.ResultSet, error) {
	return s.run(ctx, "realtime_stations", func() (query.CompiledQuery, error) {
		return query.RealtimeStations(stations)
	})
}

// Extremes holds the current highest and lowest reporting stations.
type Extremes struct {
	Max [][]any `json:"max"`
	Min [][]any `json:"min"`
}

// RealtimeExtremes returns the stations currently reporting the highest and
// lowest value of variable.
func (s *Service) RealtimeExtremes(ctx context.Context, variable string) (*Extremes, error) {
	maxQ, err := query.RealtimeExtreme(query.KindMax, variable)
	if err != nil {
		return nil, err
	}
	minQ, err := query.RealtimeExtreme(query.KindMin, variable)
	if err != nil {
		return nil, err
	}

	maxRS, err := s.exec.Execute(ctx, "realtime_max", maxQ.SQL, maxQ.Args)
	if err != nil {
		return nil, err
	}
	minRS, err := s.exec.Execute(ctx, "realtime_min", minQ.SQL, minQ.Args)
	if err != nil {
		return nil, err
	}
	return &Extremes{Max: maxRS.Rows, Min: minRS.Rows}, nil
}

func (s *Service) run(ctx context.Context, label string, build func() (query.CompiledQuery, error)) (*database.ResultSet, error) {
	cq, err := build()
	if err != nil {
		return nil, err
	}
	return s.exec.Execute(ctx, label, cq.SQL, cq.Args)
}

func (s *Service) stringColumn(ctx context.Context, label string, build func() (query.CompiledQuery, error)) ([]string, error) {
	rs, err := s.run(ctx, label, build)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, rs.Len())
	for _, row := range rs.Rows {
		v, ok := row[0].(string)
		if !ok {
			return nil, fmt.Errorf("%s: unexpected %T in first column", label, row[0])
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *Service) intColumn(ctx context.Context, label string, build func() (query.CompiledQuery, error)) ([]int64, error) {
	rs, err := s.run(ctx, label, build)
	if err != nil {
		return nil, err
	}
	out := make([]int64, 0, rs.Len())
	for _, row := range rs.Rows {
		switch v := row[0].(type) {
		case int64:
			out = append(out, v)
		case float64:
			out = append(out, int64(v))
		default:
			return nil, fmt.Errorf("%s: unexpected %T in first column", label, row[0])
		}
	}
	return out, nil
}
