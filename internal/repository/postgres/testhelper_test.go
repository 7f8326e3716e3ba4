package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestDB holds the test database connection and container
type TestDB struct {
	Container testcontainers.Container
	DB        *DB
	ConnStr   string
}

// SetupTestDB creates a PostgreSQL container for testing
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("smartfill_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to get connection string: %v", err)
	}

	sqlDB, err := sqlx.Open("postgres", connStr)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to connect to database: %v", err)
	}

	// Wait for DB to be ready
	for i := 0; i < 30; i++ {
		if err := sqlDB.Ping(); err == nil {
			break
		}
		time.Sleep(time.Second)
	}

	testDB := &TestDB{
		Container: container,
		DB:        &DB{DB: sqlDB},
		ConnStr:   connStr,
	}

	if err := testDB.DB.Migrate(ctx); err != nil {
		testDB.Cleanup(t)
		t.Fatalf("Failed to run migrations: %v", err)
	}

	return testDB
}

// Cleanup terminates the container and closes connections
func (td *TestDB) Cleanup(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	if td.DB != nil {
		td.DB.Close()
	}
	if td.Container != nil {
		td.Container.Terminate(ctx)
	}
}

// TruncateTables clears all data from tables for test isolation
func (td *TestDB) TruncateTables(t *testing.T) {
	t.Helper()

	if _, err := td.DB.Exec("TRUNCATE TABLE profile_entries, profile_audit"); err != nil {
		t.Logf("Warning truncating tables: %v", err)
	}
}
