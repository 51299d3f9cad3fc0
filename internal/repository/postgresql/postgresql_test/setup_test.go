package postgresql_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/waitless/waitless-backend-go/internal/pkg/database"
	"github.com/waitless/waitless-backend-go/migrations"
)

var tables = []string{
	"ticket_events",
	"daily_summaries",
	"tickets",
	"counter_sequences",
	"counters",
	"refresh_tokens",
	"locations",
	"users",
}

// newTestDB connects to TEST_DATABASE_URL, applies migrations and empties
// every table. Tests are skipped when the variable is unset.
func newTestDB(t *testing.T) *database.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := database.NewPostgreSQLDB(dsn)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	_, err = migrations.Up(dsn)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, table := range tables {
		_, err := db.Exec(ctx, "TRUNCATE TABLE "+table+" CASCADE")
		require.NoError(t, err)
	}
	return db
}

type fixture struct {
	OwnerID    string
	LocationID string
	CounterID  string
}

func seedFixture(t *testing.T, db *database.DB) fixture {
	t.Helper()
	ctx := context.Background()

	var f fixture
	require.NoError(t, db.QueryRow(ctx, `
		INSERT INTO users (email, full_name, role) VALUES ('owner@example.com', 'Owner', 'owner') RETURNING id
	`).Scan(&f.OwnerID))
	require.NoError(t, db.QueryRow(ctx, `
		INSERT INTO locations (owner_id, name, slug, timezone) VALUES ($1, 'Main', 'main', 'UTC') RETURNING id
	`, f.OwnerID).Scan(&f.LocationID))
	require.NoError(t, db.QueryRow(ctx, `
		INSERT INTO counters (location_id, name, prefix) VALUES ($1, 'General', 'A') RETURNING id
	`, f.LocationID).Scan(&f.CounterID))
	return f
}
