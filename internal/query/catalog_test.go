package query

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogStatements(t *testing.T) {
	q, err := DistinctStations()
	require.NoError(t, err)
	assert.Contains(t, q.SQL, `FROM "aws_10min" r`)
	assert.Empty(t, q.Args)

	q, err = StationYears(StationList("Byrd", "Harry"))
	require.NoError(t, err)
	assert.Contains(t, q.SQL, "ANY($1)")
	assert.Equal(t, []any{[]string{"Byrd", "Harry"}}, q.Args)

	q, err = StationYears(AllStations())
	require.NoError(t, err)
	assert.Empty(t, q.Args)

	q, err = YearStations([]int{2019, 2020})
	require.NoError(t, err)
	assert.Equal(t, []any{[]int{2019, 2020}}, q.Args)

	_, err = YearStations(nil)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	q, err = RealtimeRegions()
	require.NoError(t, err)
	assert.Contains(t, q.SQL, `FROM "aws_realtime" r`)
}

func TestRealtimeStations(t *testing.T) {
	q, err := RealtimeStations(StationList("Byrd"))
	require.NoError(t, err)
	assert.Contains(t, q.SQL, "WHERE r.station_name = ANY($1)")

	q, err = RealtimeStations(AllStations())
	require.NoError(t, err)
	assert.NotContains(t, q.SQL, "WHERE")

	_, err = RealtimeStations(Stations{})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestRealtimeExtreme(t *testing.T) {
	q, err := RealtimeExtreme(KindMax, "temperature")
	require.NoError(t, err)
	assert.Contains(t, q.SQL, `ORDER BY r."temperature" DESC`)

	q, err = RealtimeExtreme(KindMin, "pressure")
	require.NoError(t, err)
	assert.Contains(t, q.SQL, `ORDER BY r."pressure" ASC`)

	_, err = RealtimeExtreme(KindMean, "pressure")
	assert.True(t, errors.Is(err, ErrUnsupportedQueryKind))

	_, err = RealtimeExtreme(KindMax, "delta_t")
	assert.True(t, errors.Is(err, ErrUnknownIdentifier))

	_, err = RealtimeExtreme(KindMax, "region")
	assert.True(t, errors.Is(err, ErrUnknownIdentifier))
}
