// Package storage defines the readings store used by ingestion and tracks the
// health of the backing databases.
package storage

import (
	"context"

	"github.com/amrdc/awsapi/internal/database"
)

// ReadingsWriter upserts parsed feed rows. Implementations report the number of
// rows written.
type ReadingsWriter interface {
	UpsertReadings(ctx context.Context, rows []database.Reading) (int64, error)
	UpsertRealtime(ctx context.Context, rows []database.RealtimeReading) (int64, error)
}
