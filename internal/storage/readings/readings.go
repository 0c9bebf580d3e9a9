// Package readings writes ingested observations to PostgreSQL through gorm.
package readings

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/amrdc/awsapi/internal/database"
	"github.com/amrdc/awsapi/internal/log"
	"github.com/amrdc/awsapi/internal/metrics"
	"github.com/amrdc/awsapi/pkg/migrate"
)

// DefaultBatchSize bounds the rows sent in one INSERT.
const DefaultBatchSize = 1000

var readingsConflict = clause.OnConflict{
	Columns: []clause.Column{{Name: "station_name"}, {Name: "date"}, {Name: "time"}},
	DoUpdates: clause.AssignmentColumns([]string{
		"temperature", "pressure", "wind_speed", "wind_direction", "humidity", "delta_t",
	}),
}

var realtimeConflict = clause.OnConflict{
	Columns: []clause.Column{{Name: "station_name"}},
	DoUpdates: clause.AssignmentColumns([]string{
		"date", "time", "temperature", "pressure", "wind_speed", "wind_direction",
		"humidity", "latitude", "longitude", "region",
	}),
}

// Storage is the gorm-backed readings writer.
type Storage struct {
	DB        *gorm.DB
	BatchSize int
}

// New opens the writer connection and creates the schema.
func New(ctx context.Context, connectionString, readerRole string) (*Storage, error) {
	db, err := database.OpenWriter(connectionString)
	if err != nil {
		return nil, err
	}
	s := &Storage{DB: db, BatchSize: DefaultBatchSize}
	if err := s.Migrate(ctx, readerRole); err != nil {
		return nil, err
	}
	return s, nil
}

// Migrate applies the pending schema migrations and, when readerRole is
// set, grants it read access.
func (s *Storage) Migrate(ctx context.Context, readerRole string) error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return fmt.Errorf("getting connection handle: %w", err)
	}
	provider := migrate.NewFSProvider(migrationsFS, "migrations", migrationTable)
	if err := migrate.NewMigrator(sqlDB, provider, log.Named("migrate")).MigrateUp(ctx); err != nil {
		return err
	}

	if readerRole == "" {
		return nil
	}
	log.Infof("granting read access to %s...", readerRole)
	if err := s.DB.WithContext(ctx).Exec(fmt.Sprintf(grantReadSQL, pgx.Identifier{readerRole}.Sanitize())).Error; err != nil {
		return fmt.Errorf("granting read access: %w", err)
	}
	return nil
}

// UpsertReadings inserts rows, replacing measurements of existing
// (station_name, date, time) keys.
func (s *Storage) UpsertReadings(ctx context.Context, rows []database.Reading) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	res := s.DB.WithContext(ctx).Clauses(readingsConflict).CreateInBatches(rows, s.batchSize())
	if res.Error != nil {
		return 0, fmt.Errorf("upserting %d readings: %w", len(rows), res.Error)
	}
	metrics.IngestRows.WithLabelValues("historical").Add(float64(res.RowsAffected))
	return res.RowsAffected, nil
}

// UpsertRealtime replaces the latest reading of each station in rows.
func (s *Storage) UpsertRealtime(ctx context.Context, rows []database.RealtimeReading) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	res := s.DB.WithContext(ctx).Clauses(realtimeConflict).CreateInBatches(rows, s.batchSize())
	if res.Error != nil {
		return 0, fmt.Errorf("upserting %d realtime readings: %w", len(rows), res.Error)
	}
	metrics.IngestRows.WithLabelValues("realtime").Add(float64(res.RowsAffected))
	return res.RowsAffected, nil
}

// Ping checks the writer connection with a round trip.
func (s *Storage) Ping(ctx context.Context) error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return fmt.Errorf("getting connection handle: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return err
	}
	var one int
	return s.DB.WithContext(ctx).Raw("SELECT 1").Scan(&one).Error
}

// Close closes the writer connection.
func (s *Storage) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Storage) batchSize() int {
	if s.BatchSize <= 0 {
		return DefaultBatchSize
	}
	return s.BatchSize
}
