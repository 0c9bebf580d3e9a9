package restserver

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/amrdc/awsapi/internal/query"
)

// Defaults applied to /aws/data parameters.
const (
	defaultQueryType = "all"
	defaultStartDate = "19000101"
	defaultEndDate   = "99991231"
)

// parseDate accepts YYYY, YYYYMMDD and YYYY-MM-DD.
func parseDate(field, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	layout := "20060102"
	if len(s) == 4 {
		layout = "2006"
	} else {
		s = strings.ReplaceAll(s, "-", "")
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return time.Time{}, &query.ValidationError{
			Message: fmt.Sprintf("Invalid %s %q: expected YYYY, YYYYMMDD or YYYY-MM-DD", field, s),
		}
	}
	return t, nil
}

func paramOr(q url.Values, key, def string) string {
	if v := q.Get(key); v != "" {
		return v
	}
	return def
}

// parseDataRequest reads the /aws/data query string into a request. Presence
// and vocabulary checks happen when the request is compiled.
func parseDataRequest(req *http.Request) (query.Request, bool, error) {
	q := req.URL.Query()

	r := query.Request{
		Kind:            paramOr(q, "query_type", defaultQueryType),
		Stations:        query.ParseStations(q.Get("stations")),
		IntervalMinutes: query.DailyIntervalMinutes,
		Variable:        q.Get("variable"),
		Grouping:        q.Get("grouping"),
	}

	if s := q.Get("interval"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return r, false, &query.ValidationError{Message: fmt.Sprintf("Invalid interval %q: expected minutes", s)}
		}
		r.IntervalMinutes = n
	}

	var err error
	if r.StartDate, err = parseDate("startdate", paramOr(q, "startdate", defaultStartDate)); err != nil {
		return r, false, err
	}
	if r.EndDate, err = parseDate("enddate", paramOr(q, "enddate", defaultEndDate)); err != nil {
		return r, false, err
	}

	download := false
	if s := q.Get("download"); s != "" {
		download, err = strconv.ParseBool(s)
		if err != nil {
			return r, false, &query.ValidationError{Message: fmt.Sprintf("Invalid download flag %q", s)}
		}
	}
	r.ForDownload = download
	return r, download, nil
}

// parseYears reads a comma separated year list.
func parseYears(s string) ([]int, error) {
	var years []int
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		y, err := strconv.Atoi(p)
		if err != nil {
			return nil, &query.ValidationError{Message: fmt.Sprintf("Invalid year %q", p), Missing: []string{"years"}}
		}
		years = append(years, y)
	}
	return years, nil
}
