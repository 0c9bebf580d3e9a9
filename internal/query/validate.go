package query

// User-facing messages for rejected requests.
const (
	msgDataQuery      = "Data query requires following variables: stations (comma-separated)"
	msgAggregateQuery = "Aggregate query requires following variables: stations (comma-separated), " +
		"measurement variable (i.e. 'temperature'), grouping (day, month, year, or station)"
	msgUnknownKind = "Unrecognized query type. Must be one of: 'all', 'max', 'min', 'mean'"
)

// ValidateInput gates a request on the presence of the fields its kind needs.
// It does not check that variable or grouping name real columns; Compile does.
func ValidateInput(kind string, stations Stations, variable, grouping string) error {
	k, err := ParseKind(kind)
	if err != nil {
		return unknownKindError(err)
	}

	var missing []string
	if stations.Empty() {
		missing = append(missing, "stations")
	}

	if k == KindAll {
		if len(missing) > 0 {
			return &ValidationError{Message: msgDataQuery, Missing: missing}
		}
		return nil
	}

	if variable == "" {
		missing = append(missing, "variable")
	}
	if grouping == "" {
		missing = append(missing, "grouping")
	}
	if len(missing) > 0 {
		return &ValidationError{Message: msgAggregateQuery, Missing: missing}
	}
	return nil
}

// Validate runs ValidateInput over the request fields.
func (r Request) Validate() error {
	return ValidateInput(r.Kind, r.Stations, r.Variable, r.Grouping)
}

func unknownKindError(err error) error {
	return &ValidationError{Message: msgUnknownKind, cause: err}
}
