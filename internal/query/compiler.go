package query

import (
	"fmt"
	"strings"
)

// CompiledQuery is a statement ready for execution. Args are positional and
// match the $N placeholders in SQL.
type CompiledQuery struct {
	SQL  string
	Args []any
}

func (q CompiledQuery) String() string {
	return strings.Join(strings.Fields(q.SQL), " ")
}

var rawStatement = mustTemplate("raw", `SELECT
    r.station_name AS name,
    TO_CHAR(r.date, 'YYYY-MM-DD') AS date,
    TO_CHAR(r.time, 'HH24:MI') AS time,
    {columns}
FROM {table} r
WHERE
    r.date >= @start
    AND r.date <= @end{station_filter}
    AND MOD((date_part('hour', r.time) * 60 + date_part('minute', r.time))::int, @interval) = 0
ORDER BY r.date, r.time
LIMIT @limit`)

var extremeStatement = mustTemplate("extreme", `SELECT
    r.station_name AS name,
    TO_CHAR(r.date, 'YYYY-MM-DD') AS date,
    TO_CHAR(r.time, 'HH24:MI') AS time,
    CAST(r.{variable} AS TEXT) AS {variable}
FROM {table} r
WHERE
    r.date >= @start
    AND r.date <= @end{station_filter}
    AND r.{variable} <> {sentinel}
ORDER BY r.{variable} {direction}, r.date, r.time
LIMIT 1`)

// Rank-1 per partition. Equal values are broken by the earliest date and time.
var rankedExtremeStatement = mustTemplate("ranked_extreme", `SELECT
    ranked.station_name AS name,
    TO_CHAR(ranked.date, 'YYYY-MM-DD') AS date,
    TO_CHAR(ranked.time, 'HH24:MI') AS time,
    CAST(ranked.{variable} AS TEXT) AS {variable}
FROM (
    SELECT
        r.station_name,
        r.date,
        r.time,
        r.{variable},
        ROW_NUMBER() OVER (
            PARTITION BY {partition}
            ORDER BY r.{variable} {direction}, r.date, r.time
        ) AS row_num
    FROM {table} r
    WHERE
        r.date >= @start
        AND r.date <= @end{station_filter}
        AND r.{variable} <> {sentinel}
) ranked
WHERE ranked.row_num = 1
ORDER BY {result_order}`)

var meanStatement = mustTemplate("mean", `SELECT
    CAST(ROUND(AVG(r.{variable})::numeric, 2) AS TEXT) AS avg
FROM {table} r
WHERE
    r.date >= @start
    AND r.date <= @end{station_filter}`)

var groupedMeanStatement = mustTemplate("grouped_mean", `SELECT
    {group_columns}CAST(ROUND(AVG(r.{variable})::numeric, 2) AS TEXT) AS avg
FROM {table} r
WHERE
    r.date >= @start
    AND r.date <= @end{station_filter}
GROUP BY {group_by}
ORDER BY {group_by}`)

var (
	stationFilter = mustTemplate("station_filter", ` AND r.station_name = ANY(@stations)`)

	bucketExpr = mustTemplate("bucket", `date_trunc('{unit}', r.date)`)

	partitionByStation       = mustTemplate("partition_station", `r.station_name`)
	partitionByBucket        = mustTemplate("partition_bucket", `{bucket}`)
	partitionByStationBucket = mustTemplate("partition_station_bucket", `r.station_name, {bucket}`)

	orderByStation       = mustTemplate("order_station", `ranked.station_name, ranked.date, ranked.time`)
	orderByBucket        = mustTemplate("order_bucket", `ranked.date, ranked.time`)
	orderByStationBucket = mustTemplate("order_station_bucket", `ranked.station_name, ranked.date, ranked.time`)

	stationColumns       = mustTemplate("station_columns", "r.station_name AS name,\n    ")
	bucketColumns        = mustTemplate("bucket_columns", "TO_CHAR({bucket}, '{format}') AS duration,\n    ")
	stationBucketColumns = mustTemplate("station_bucket_columns", "r.station_name AS name,\n    TO_CHAR({bucket}, '{format}') AS duration,\n    ")

	groupByStation       = mustTemplate("group_station", `r.station_name`)
	groupByBucket        = mustTemplate("group_bucket", `{bucket}`)
	groupByBucketStation = mustTemplate("group_bucket_station", `{bucket}, r.station_name`)
)

type kindClass int

const (
	classRaw kindClass = iota
	classExtreme
	classMean
)

type groupClass int

const (
	groupsNone groupClass = iota
	groupsStation
	groupsBucket
)

type planKey struct {
	kind        kindClass
	allStations bool
	group       groupClass
}

// plan names the statement for one decision-table cell and the fragments that
// fill its structural slots.
type plan struct {
	statement *template
	fragments map[string]*template
}

func filterFor(all bool) *template {
	if all {
		return emptyFragment
	}
	return stationFilter
}

func buildPlans() map[planKey]plan {
	plans := map[planKey]plan{}
	for _, all := range []bool{true, false} {
		filter := filterFor(all)

		plans[planKey{classRaw, all, groupsNone}] = plan{rawStatement, map[string]*template{
			"station_filter": filter,
		}}

		plans[planKey{classExtreme, all, groupsNone}] = plan{extremeStatement, map[string]*template{
			"station_filter": filter,
		}}
		// Over every station, a "station" grouping asks for the single
		// overall extreme, as it does for the mean below.
		if all {
			plans[planKey{classExtreme, all, groupsStation}] = plans[planKey{classExtreme, all, groupsNone}]
		} else {
			plans[planKey{classExtreme, all, groupsStation}] = plan{rankedExtremeStatement, map[string]*template{
				"station_filter": filter,
				"partition":      partitionByStation,
				"result_order":   orderByStation,
			}}
		}
		bucketPartition, bucketOrder := partitionByStationBucket, orderByStationBucket
		if all {
			bucketPartition, bucketOrder = partitionByBucket, orderByBucket
		}
		plans[planKey{classExtreme, all, groupsBucket}] = plan{rankedExtremeStatement, map[string]*template{
			"station_filter": filter,
			"partition":      bucketPartition,
			"result_order":   bucketOrder,
			"bucket":         bucketExpr,
		}}

		plans[planKey{classMean, all, groupsNone}] = plan{meanStatement, map[string]*template{
			"station_filter": filter,
		}}
		if all {
			plans[planKey{classMean, all, groupsStation}] = plans[planKey{classMean, all, groupsNone}]
		} else {
			plans[planKey{classMean, all, groupsStation}] = plan{groupedMeanStatement, map[string]*template{
				"station_filter": filter,
				"group_columns":  stationColumns,
				"group_by":       groupByStation,
			}}
		}
		meanColumns, meanGroup := stationBucketColumns, groupByBucketStation
		if all {
			meanColumns, meanGroup = bucketColumns, groupByBucket
		}
		plans[planKey{classMean, all, groupsBucket}] = plan{groupedMeanStatement, map[string]*template{
			"station_filter": filter,
			"group_columns":  meanColumns,
			"group_by":       meanGroup,
			"bucket":         bucketExpr,
		}}
	}
	return plans
}

var plans = buildPlans()

// Compiler turns requests into statements against one readings table.
type Compiler struct {
	table Identifier
}

// DefaultReadingsTable is the historical ten-minute readings table.
const DefaultReadingsTable = "aws_10min"

// NewCompiler returns a compiler reading from table, which must be on the
// Tables allow-list.
func NewCompiler(table string) (*Compiler, error) {
	id, err := Tables.Validate(table)
	if err != nil {
		return nil, err
	}
	return &Compiler{table: id}, nil
}

var defaultCompiler = &Compiler{table: mustIdentifier(Tables, DefaultReadingsTable)}

// Compile translates req using the default readings table.
func Compile(req Request) (CompiledQuery, error) {
	return defaultCompiler.Compile(req)
}

// Compile translates req into exactly one statement.
func (c *Compiler) Compile(req Request) (CompiledQuery, error) {
	kind, err := ParseKind(req.Kind)
	if err != nil {
		return CompiledQuery{}, unknownKindError(err)
	}
	// Names off the allow-lists are rejected before presence is checked, so a
	// hostile identifier always surfaces as UnknownIdentifier.
	if err := checkIdentifiers(req); err != nil {
		return CompiledQuery{}, err
	}
	if err := req.Validate(); err != nil {
		return CompiledQuery{}, err
	}

	b := newBindings()
	b.idents["table"] = c.table
	b.params["start"] = req.StartDate
	b.params["end"] = req.EndDate
	if !req.Stations.All() {
		b.params["stations"] = req.Stations.Names()
	}

	key := planKey{allStations: req.Stations.All()}

	switch kind {
	case KindAll:
		key.kind = classRaw
		// Raw queries ignore grouping, but a name off the vocabulary is still rejected.
		if req.Grouping != "" {
			if _, err := ParseGrouping(req.Grouping); err != nil {
				return CompiledQuery{}, err
			}
		}
		interval, err := normalizeInterval(req.IntervalMinutes)
		if err != nil {
			return CompiledQuery{}, err
		}
		b.params["interval"] = interval
		b.params["limit"] = req.RowLimit()

		columns, err := projection(req.Variable)
		if err != nil {
			return CompiledQuery{}, err
		}
		b.projections["columns"] = columns

	case KindMax, KindMin, KindMean:
		variable, err := Variables.Validate(req.Variable)
		if err != nil {
			return CompiledQuery{}, err
		}
		grouping, err := ParseGrouping(req.Grouping)
		if err != nil {
			return CompiledQuery{}, err
		}
		b.idents["variable"] = variable

		key.kind = classMean
		if kind != KindMean {
			key.kind = classExtreme
			b.keywords["sentinel"] = sentinelKeyword
			b.keywords["direction"] = sortDesc
			if kind == KindMin {
				b.keywords["direction"] = sortAsc
			}
		}

		switch {
		case grouping == GroupStation:
			key.group = groupsStation
		case grouping.IsBucket():
			key.group = groupsBucket
			b.keywords["unit"] = truncUnits[grouping]
			b.keywords["format"] = bucketFormats[grouping]
		}
	}

	p, ok := plans[key]
	if !ok {
		return CompiledQuery{}, fmt.Errorf("no statement for %s query (all stations: %t, grouping %q): %w",
			kind, key.allStations, req.Grouping, ErrUnsupportedQueryKind)
	}
	for name, frag := range p.fragments {
		b.fragments[name] = frag
	}
	return render(p.statement, b)
}

func checkIdentifiers(req Request) error {
	if req.Variable != "" {
		if _, err := Variables.Validate(req.Variable); err != nil {
			return err
		}
	}
	if req.Grouping != "" {
		if _, err := ParseGrouping(req.Grouping); err != nil {
			return err
		}
	}
	return nil
}

func normalizeInterval(minutes int) (int, error) {
	if minutes == DailyIntervalMinutes {
		return MaxIntervalMinutes, nil
	}
	if minutes < 1 || minutes > MaxIntervalMinutes {
		return 0, fmt.Errorf("%w: %d minutes (must be 1-%d or %d)",
			ErrInvalidInterval, minutes, MaxIntervalMinutes, DailyIntervalMinutes)
	}
	return minutes, nil
}

// projection returns the variable columns of a raw query: the one requested, or
// all of them.
func projection(variable string) ([]Identifier, error) {
	if variable != "" {
		id, err := Variables.Validate(variable)
		if err != nil {
			return nil, err
		}
		return []Identifier{id}, nil
	}
	cols := make([]Identifier, 0, len(variableColumns))
	for _, name := range variableColumns {
		cols = append(cols, mustIdentifier(Variables, name))
	}
	return cols, nil
}
