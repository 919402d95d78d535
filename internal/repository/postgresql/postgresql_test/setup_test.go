package postgresql_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/database"
	"github.com/stretchr/testify/require"
)

var ist = time.FixedZone("IST", 5*3600+1800)

// newTestDB connects to TEST_DATABASE_URL, which must already have the migrations applied.
func newTestDB(t *testing.T) *database.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := database.NewPostgreSQLDB(context.Background(), dsn, database.PoolOptions{MaxConns: 4})
	require.NoError(t, err)
	t.Cleanup(db.Close)

	truncateAllTables(t, db)
	t.Cleanup(func() { truncateAllTables(t, db) })
	return db
}

func truncateAllTables(t *testing.T, db *database.DB) {
	t.Helper()
	_, err := db.Exec(context.Background(), "TRUNCATE TABLE attendance_breaks, attendances, users CASCADE")
	require.NoError(t, err)
}

func insertUser(t *testing.T, db *database.DB, id, name string) {
	t.Helper()
	_, err := db.Exec(context.Background(), "INSERT INTO users (id, name) VALUES ($1, $2)", id, name)
	require.NoError(t, err)
}
