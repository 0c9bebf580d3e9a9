package query

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownIdentifier is matched by every *UnknownIdentifierError.
	ErrUnknownIdentifier = errors.New("unknown identifier")

	// ErrUnsupportedQueryKind is returned for a query kind outside all, max, min, mean.
	ErrUnsupportedQueryKind = errors.New("unsupported query kind")

	// ErrInvalidInterval is returned for a sampling interval outside 1..1440 minutes.
	ErrInvalidInterval = errors.New("invalid sampling interval")
)

// UnknownIdentifierError reports a name that is not on an AllowList.
type UnknownIdentifierError struct {
	Name string
	Kind string
}

func (e *UnknownIdentifierError) Error() string {
	return fmt.Sprintf("unknown %s %q", e.Kind, e.Name)
}

func (e *UnknownIdentifierError) Is(target error) bool {
	return target == ErrUnknownIdentifier
}

// ValidationError reports a request that is missing fields required by its kind.
type ValidationError struct {
	Message string
	Missing []string
	cause   error
}

func (e *ValidationError) Error() string {
	if len(e.Missing) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (missing: %s)", e.Message, strings.Join(e.Missing, ", "))
}

func (e *ValidationError) Unwrap() error {
	return e.cause
}

// IsClientError reports whether err was caused by the request itself rather than
// by the store.
func IsClientError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr) ||
		errors.Is(err, ErrUnknownIdentifier) ||
		errors.Is(err, ErrUnsupportedQueryKind) ||
		errors.Is(err, ErrInvalidInterval)
}
