package query

// Fixed statements behind the station and year listings and the realtime
// endpoints. They share the slot renderer with the data queries.

var (
	historicalTable = mustIdentifier(Tables, DefaultReadingsTable)
	realtimeTable   = mustIdentifier(Tables, "aws_realtime")
)

var (
	distinctStationsStatement = mustTemplate("distinct_stations",
		`SELECT DISTINCT r.station_name AS station_name FROM {table} r ORDER BY r.station_name`)

	distinctYearsStatement = mustTemplate("distinct_years",
		`SELECT DISTINCT date_part('year', r.date)::int AS year FROM {table} r ORDER BY year`)

	stationYearsStatement = mustTemplate("station_years",
		`SELECT DISTINCT date_part('year', r.date)::int AS year FROM {table} r
WHERE r.station_name = ANY(@stations)
ORDER BY year`)

	yearStationsStatement = mustTemplate("year_stations",
		`SELECT DISTINCT r.station_name AS station_name FROM {table} r
WHERE date_part('year', r.date)::int = ANY(@years)
ORDER BY r.station_name`)

	realtimeRegionsStatement = mustTemplate("realtime_regions",
		`SELECT r.station_name AS station_name, r.region AS region FROM {table} r
ORDER BY r.region, r.station_name`)

	realtimeStationsStatement = mustTemplate("realtime_stations",
		`SELECT
    r.station_name AS station_name,
    TO_CHAR(r.date, 'YYYY-MM-DD') AS date,
    TO_CHAR(r.time, 'HH24:MI:SS') AS time,
    r.temperature, r.pressure, r.wind_speed, r.wind_direction, r.humidity,
    r.latitude, r.longitude
FROM {table} r
WHERE r.station_name = ANY(@stations)
ORDER BY r.station_name`)

	realtimeExtremeStatement = mustTemplate("realtime_extreme",
		`SELECT
    r.station_name AS station_name,
    TO_CHAR(r.date, 'YYYY-MM-DD') AS date,
    TO_CHAR(r.time, 'HH24:MI:SS') AS time,
    r.{variable}
FROM {table} r
WHERE r.{variable} IS NOT NULL AND r.{variable} <> {sentinel}
ORDER BY r.{variable} {direction}
LIMIT 1`)
)

func catalog(t *template, table Identifier, params map[string]any) (CompiledQuery, error) {
	b := newBindings()
	b.idents["table"] = table
	for k, v := range params {
		b.params[k] = v
	}
	return render(t, b)
}

// DistinctStations lists every station with historical readings.
func DistinctStations() (CompiledQuery, error) {
	return catalog(distinctStationsStatement, historicalTable, nil)
}

// DistinctYears lists every year with historical readings.
func DistinctYears() (CompiledQuery, error) {
	return catalog(distinctYearsStatement, historicalTable, nil)
}

// StationYears lists the years in which any of stations reported.
func StationYears(stations Stations) (CompiledQuery, error) {
	if stations.All() {
		return DistinctYears()
	}
	if stations.Empty() {
		return CompiledQuery{}, &ValidationError{Message: "Year listing requires stations (comma-separated)", Missing: []string{"stations"}}
	}
	return catalog(stationYearsStatement, historicalTable, map[string]any{"stations": stations.Names()})
}

// YearStations lists the stations that reported in any of years.
func YearStations(years []int) (CompiledQuery, error) {
	if len(years) == 0 {
		return CompiledQuery{}, &ValidationError{Message: "Station listing requires years (comma-separated)", Missing: []string{"years"}}
	}
	return catalog(yearStationsStatement, historicalTable, map[string]any{"years": years})
}

// RealtimeRegions lists realtime stations with their region.
func RealtimeRegions() (CompiledQuery, error) {
	return catalog(realtimeRegionsStatement, realtimeTable, nil)
}

// RealtimeStations returns the latest realtime reading of each station.
func RealtimeStations(stations Stations) (CompiledQuery, error) {
	if stations.Empty() {
		return CompiledQuery{}, &ValidationError{Message: "Realtime query requires stations (comma-separated)", Missing: []string{"stations"}}
	}
	if stations.All() {
		return catalog(realtimeAllStatement, realtimeTable, nil)
	}
	return catalog(realtimeStationsStatement, realtimeTable, map[string]any{"stations": stations.Names()})
}

var realtimeAllStatement = mustTemplate("realtime_all", `SELECT
    r.station_name AS station_name,
    TO_CHAR(r.date, 'YYYY-MM-DD') AS date,
    TO_CHAR(r.time, 'HH24:MI:SS') AS time,
    r.temperature, r.pressure, r.wind_speed, r.wind_direction, r.humidity,
    r.latitude, r.longitude
FROM {table} r
ORDER BY r.station_name`)

// RealtimeExtreme returns the station currently reporting the highest (max) or
// lowest (min) value of variable.
func RealtimeExtreme(kind Kind, variable string) (CompiledQuery, error) {
	if kind != KindMax && kind != KindMin {
		return CompiledQuery{}, ErrUnsupportedQueryKind
	}
	id, err := Variables.Validate(variable)
	if err != nil {
		return CompiledQuery{}, err
	}
	if id.Name() == "delta_t" {
		return CompiledQuery{}, &UnknownIdentifierError{Name: variable, Kind: "realtime variable"}
	}
	b := newBindings()
	b.idents["table"] = realtimeTable
	b.idents["variable"] = id
	b.keywords["sentinel"] = sentinelKeyword
	b.keywords["direction"] = sortDesc
	if kind == KindMin {
		b.keywords["direction"] = sortAsc
	}
	return render(realtimeExtremeStatement, b)
}
