package query

import (
	"net/url"
	"strings"
	"time"
)

// Kind is one of the supported aggregation semantics.
type Kind string

const (
	KindAll  Kind = "all"
	KindMax  Kind = "max"
	KindMin  Kind = "min"
	KindMean Kind = "mean"
)

// ParseKind maps a request value onto a Kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindAll, KindMax, KindMin, KindMean:
		return k, nil
	}
	return "", ErrUnsupportedQueryKind
}

// IsAggregate reports whether k requires a variable and a grouping.
func (k Kind) IsAggregate() bool {
	return k == KindMax || k == KindMin || k == KindMean
}

// Grouping is the partition granularity of an aggregate query.
type Grouping string

const (
	GroupNone    Grouping = "none"
	GroupStation Grouping = "station"
	GroupYear    Grouping = "year"
	GroupMonth   Grouping = "month"
	GroupDay     Grouping = "day"
)

// Groupings is the grouping vocabulary.
var Groupings = newAllowList("grouping",
	string(GroupNone), string(GroupStation), string(GroupYear), string(GroupMonth), string(GroupDay))

// ParseGrouping validates s against the grouping vocabulary.
func ParseGrouping(s string) (Grouping, error) {
	id, err := Groupings.Validate(s)
	if err != nil {
		return "", err
	}
	return Grouping(id.Name()), nil
}

// IsBucket reports whether g truncates dates to a calendar bucket.
func (g Grouping) IsBucket() bool {
	return g == GroupYear || g == GroupMonth || g == GroupDay
}

// AllStationsKeyword selects every station when it appears in a station list.
const AllStationsKeyword = "all"

// Stations is either the all-stations sentinel or an ordered list of names.
// The zero value selects nothing and fails input validation.
type Stations struct {
	all   bool
	names []string
}

// AllStations returns the all-stations selector.
func AllStations() Stations {
	return Stations{all: true}
}

// StationList returns a selector for the given names. A list containing the
// "all" keyword selects every station.
func StationList(names ...string) Stations {
	var s Stations
	for _, n := range names {
		if n == "" {
			continue
		}
		if n == AllStationsKeyword {
			return AllStations()
		}
		s.names = append(s.names, n)
	}
	return s
}

// ParseStations parses a comma separated station list as it arrives on the wire.
// Escaped spaces are decoded and blank entries dropped.
func ParseStations(s string) Stations {
	if strings.TrimSpace(s) == "" {
		return Stations{}
	}
	parts := strings.Split(s, ",")
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		if decoded, err := url.PathUnescape(p); err == nil {
			p = decoded
		}
		names = append(names, strings.TrimSpace(p))
	}
	return StationList(names...)
}

// All reports whether every station is selected.
func (s Stations) All() bool {
	return s.all
}

// Names returns a copy of the explicit station names.
func (s Stations) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Empty reports whether nothing was selected.
func (s Stations) Empty() bool {
	return !s.all && len(s.names) == 0
}

func (s Stations) String() string {
	if s.all {
		return AllStationsKeyword
	}
	return strings.Join(s.names, ",")
}

// Interval limits, in minutes.
const (
	MaxIntervalMinutes = 1440

	// DailyIntervalMinutes is the legacy "one row per day" value, accepted and
	// treated as MaxIntervalMinutes.
	DailyIntervalMinutes = 2400
)

// Row caps for raw queries.
const (
	DisplayRowLimit  = 10_000
	DownloadRowLimit = 100_000
)

// SentinelValue marks a reading as invalid or missing.
const SentinelValue = 444

// Request is a single data query. Kind, Variable and Grouping carry the raw
// request values; they are validated when the request is compiled.
type Request struct {
	Kind            string
	Stations        Stations
	IntervalMinutes int
	StartDate       time.Time
	EndDate         time.Time
	Variable        string
	Grouping        string
	ForDownload     bool
}

// RowLimit returns the row cap the request is compiled with.
func (r Request) RowLimit() int {
	if r.ForDownload {
		return DownloadRowLimit
	}
	return DisplayRowLimit
}
