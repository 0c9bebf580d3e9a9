package database

import (
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// ResultSet is an in-memory snapshot of one statement's result. Every row has
// one value per header column.
type ResultSet struct {
	Header []string `json:"header"`
	Rows   [][]any  `json:"data"`
}

// Len returns the number of rows.
func (rs *ResultSet) Len() int {
	return len(rs.Rows)
}

// Cursor returns a single-pass iterator over the rows.
func (rs *ResultSet) Cursor() *Cursor {
	return &Cursor{rs: rs}
}

// Cursor walks a ResultSet once.
type Cursor struct {
	rs  *ResultSet
	pos int
}

// Columns returns the result header.
func (c *Cursor) Columns() []string {
	return c.rs.Header
}

// Next returns the next row, or false once the rows are exhausted.
func (c *Cursor) Next() ([]any, bool) {
	if c.pos >= len(c.rs.Rows) {
		return nil, false
	}
	row := c.rs.Rows[c.pos]
	c.pos++
	return row, true
}

// normalizeValue converts driver values into plain types that encode cleanly as
// JSON, MessagePack and CSV.
func normalizeValue(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case []byte:
		return string(t)
	case time.Time:
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
			return t.Format("2006-01-02")
		}
		return t.Format(time.RFC3339)
	case pgtype.Time:
		if !t.Valid {
			return nil
		}
		return formatTimeOfDay(t.Microseconds)
	case pgtype.Numeric:
		if !t.Valid {
			return nil
		}
		f, err := t.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case float32:
		// Go through the shortest decimal form so 21.3 stays 21.3 rather than 21.299999237060547.
		f, _ := strconv.ParseFloat(strconv.FormatFloat(float64(t), 'g', -1, 32), 64)
		return f
	case int32:
		return int64(t)
	case int16:
		return int64(t)
	default:
		return v
	}
}

func formatTimeOfDay(us int64) string {
	secs := us / 1_000_000
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs/60)%60, secs%60)
}
