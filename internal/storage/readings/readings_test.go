package readings

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/amrdc/awsapi/internal/database"
	"github.com/amrdc/awsapi/pkg/migrate"
)

// dryRunDB never connects; it only renders statements.
func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=localhost user=awsapi dbname=awsapi sslmode=disable",
	}), &gorm.Config{DisableAutomaticPing: true})
	require.NoError(t, err)
	return db
}

func ptr(f float64) *float64 { return &f }

func TestUpsertReadingsStatement(t *testing.T) {
	db := dryRunDB(t)
	rows := []database.Reading{{
		StationName: "Byrd",
		Date:        time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC),
		Time:        "14:00:00",
		Temperature: ptr(-21.5),
	}}

	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		return tx.Clauses(readingsConflict).Create(&rows)
	})
	assert.Contains(t, sql, `INSERT INTO "aws_10min"`)
	assert.Contains(t, sql, `ON CONFLICT ("station_name","date","time") DO UPDATE SET`)
	assert.Contains(t, sql, `"delta_t"="excluded"."delta_t"`)
}

func TestUpsertRealtimeStatement(t *testing.T) {
	db := dryRunDB(t)
	rows := []database.RealtimeReading{{StationName: "Byrd", Region: "West Antarctica"}}

	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		return tx.Clauses(realtimeConflict).Create(&rows)
	})
	assert.Contains(t, sql, `INSERT INTO "aws_realtime"`)
	assert.Contains(t, sql, `ON CONFLICT ("station_name") DO UPDATE SET`)
	assert.Contains(t, sql, `"region"="excluded"."region"`)
}

func TestUpsertEmptyIsNoop(t *testing.T) {
	s := &Storage{}
	n, err := s.UpsertReadings(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = s.UpsertRealtime(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestEmbeddedMigrations(t *testing.T) {
	migs, err := migrate.NewFSProvider(migrationsFS, "migrations", migrationTable).GetMigrations()
	require.NoError(t, err)
	require.Len(t, migs, 2)
	assert.Contains(t, migs[0].Up, "CREATE TABLE IF NOT EXISTS aws_10min")
	assert.Contains(t, migs[0].Up, "aws_10min_station_date_time_idx")
	assert.Contains(t, migs[1].Up, "CREATE TABLE IF NOT EXISTS aws_realtime")
	for _, m := range migs {
		assert.NotEmpty(t, m.Down, "migration %d", m.Version)
	}
}
