package query

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateInput(t *testing.T) {
	tests := []struct {
		name        string
		kind        string
		stations    Stations
		variable    string
		grouping    string
		wantMissing []string
		wantErr     bool
	}{
		{name: "all with stations", kind: "all", stations: StationList("Byrd")},
		{name: "all without variable", kind: "all", stations: AllStations()},
		{name: "all without stations", kind: "all", wantErr: true, wantMissing: []string{"stations"}},
		{name: "max complete", kind: "max", stations: AllStations(), variable: "temperature", grouping: "station"},
		{name: "min missing grouping", kind: "min", stations: AllStations(), variable: "temperature",
			wantErr: true, wantMissing: []string{"grouping"}},
		{name: "mean missing variable", kind: "mean", stations: StationList("Byrd"), grouping: "none",
			wantErr: true, wantMissing: []string{"variable"}},
		{name: "mean missing everything", kind: "mean",
			wantErr: true, wantMissing: []string{"stations", "variable", "grouping"}},
		{name: "unknown values pass presence check", kind: "max", stations: StationList("x"), variable: "nope", grouping: "nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateInput(tt.kind, tt.stations, tt.variable, tt.grouping)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantMissing, verr.Missing)
			for _, field := range tt.wantMissing {
				assert.Contains(t, verr.Error(), field)
			}
		})
	}
}

func TestValidateInputUnknownKind(t *testing.T) {
	err := ValidateInput("median", AllStations(), "temperature", "station")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, errors.Is(err, ErrUnsupportedQueryKind))
	assert.Contains(t, verr.Error(), "Unrecognized query type")
}

func TestCompileValidatesFirst(t *testing.T) {
	_, err := Compile(Request{Kind: "mean", Stations: AllStations(), Grouping: "none"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"variable"}, verr.Missing)
}

func TestIsClientError(t *testing.T) {
	assert.True(t, IsClientError(&ValidationError{Message: "x"}))
	assert.True(t, IsClientError(&UnknownIdentifierError{Name: "x", Kind: "variable"}))
	assert.True(t, IsClientError(ErrUnsupportedQueryKind))
	assert.True(t, IsClientError(ErrInvalidInterval))
	assert.False(t, IsClientError(errors.New("connection reset")))
}

func TestParseStations(t *testing.T) {
	tests := []struct {
		in      string
		all     bool
		names   []string
		isEmpty bool
	}{
		{in: "", isEmpty: true},
		{in: "  ", isEmpty: true},
		{in: "all", all: true},
		{in: "Byrd,all", all: true},
		{in: "Byrd", names: []string{"Byrd"}},
		{in: "Byrd,Siple%20Dome", names: []string{"Byrd", "Siple Dome"}},
		{in: " Byrd , Harry ,", names: []string{"Byrd", "Harry"}},
	}

	for _, tt := range tests {
		s := ParseStations(tt.in)
		assert.Equal(t, tt.isEmpty, s.Empty(), tt.in)
		assert.Equal(t, tt.all, s.All(), tt.in)
		if tt.names != nil {
			assert.Equal(t, tt.names, s.Names(), tt.in)
		}
	}
}

func TestStationsString(t *testing.T) {
	assert.Equal(t, "all", AllStations().String())
	assert.Equal(t, "Byrd,Harry", StationList("Byrd", "Harry").String())
}

func TestParseKindAndGrouping(t *testing.T) {
	k, err := ParseKind("mean")
	require.NoError(t, err)
	assert.True(t, k.IsAggregate())
	assert.False(t, KindAll.IsAggregate())

	g, err := ParseGrouping("month")
	require.NoError(t, err)
	assert.True(t, g.IsBucket())
	assert.False(t, GroupStation.IsBucket())

	_, err = ParseGrouping("week")
	assert.True(t, errors.Is(err, ErrUnknownIdentifier))
}

func TestRowLimit(t *testing.T) {
	assert.Equal(t, 10_000, Request{}.RowLimit())
	assert.Equal(t, 100_000, Request{ForDownload: true}.RowLimit())
}
