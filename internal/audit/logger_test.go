package audit

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"

	"github.com/smartfill/smartfill/internal/repository/memory"
	"github.com/smartfill/smartfill/internal/repository/postgres"
)

type captureRecorder struct {
	mu      sync.Mutex
	entries []*Entry
}

func (c *captureRecorder) Log(_ context.Context, entry *Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, entry)
}

type failingKV struct{}

func (failingKV) Get(context.Context, ...string) (map[string]json.RawMessage, error) {
	return nil, nil
}

func (failingKV) Set(context.Context, map[string]json.RawMessage) error {
	return errors.New("store down")
}

func TestStore_RecordsSortedKeys(t *testing.T) {
	rec := &captureRecorder{}
	store := NewStore(memory.New(), rec, "default")

	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-1")
	err := store.Set(ctx, map[string]json.RawMessage{
		"pan":       json.RawMessage(`"ABCDE1234F"`),
		"full_name": json.RawMessage(`"Asha Rao"`),
	})
	require.NoError(t, err)

	require.Len(t, rec.entries, 1)
	entry := rec.entries[0]
	assert.Equal(t, "default", entry.ProfileID)
	assert.Equal(t, ActionProfileSet, entry.Action)
	assert.Equal(t, []string{"full_name", "pan"}, []string(entry.Keys))
	require.NotNil(t, entry.RequestID)
	assert.Equal(t, "req-1", *entry.RequestID)

	got, err := store.Get(ctx, "pan")
	require.NoError(t, err)
	assert.JSONEq(t, `"ABCDE1234F"`, string(got["pan"]))
}

func TestStore_SkipsFailedAndEmptyWrites(t *testing.T) {
	rec := &captureRecorder{}

	err := NewStore(failingKV{}, rec, "default").Set(context.Background(), map[string]json.RawMessage{
		"pan": json.RawMessage(`"X"`),
	})
	assert.Error(t, err)

	err = NewStore(memory.New(), rec, "default").Set(context.Background(), map[string]json.RawMessage{})
	assert.NoError(t, err)

	assert.Empty(t, rec.entries)
}

func setupPostgres(t *testing.T) *postgres.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("smartfill_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := postgres.NewFromDSN(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Migrate(ctx))
	return db
}

func TestLogger_Postgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	db := setupPostgres(t)
	ctx := context.Background()

	logger := NewLogger(db.DB, LoggerConfig{BufferSize: 10, FlushInterval: 50 * time.Millisecond}, zaptest.NewLogger(t))

	logger.Log(ctx, &Entry{ProfileID: "default", Action: ActionProfileSet, Keys: []string{"pan"}})
	logger.Log(ctx, &Entry{ProfileID: "default", Action: ActionProfileSet, Keys: []string{"email", "mobile"}})
	logger.Log(ctx, &Entry{ProfileID: "other", Action: ActionProfileSet, Keys: []string{"pan"}})
	require.NoError(t, logger.Close())

	t.Run("query by profile", func(t *testing.T) {
		entries, err := logger.Query(ctx, QueryOptions{ProfileID: "default"})
		require.NoError(t, err)
		assert.Len(t, entries, 2)
	})

	t.Run("query by key", func(t *testing.T) {
		entries, err := logger.Query(ctx, QueryOptions{ProfileID: "default", Key: "mobile"})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, []string{"email", "mobile"}, []string(entries[0].Keys))
	})

	t.Run("sync write", func(t *testing.T) {
		old := &Entry{
			ProfileID: "default",
			Action:    ActionProfileSet,
			Keys:      []string{"dob"},
			CreatedAt: time.Now().UTC().AddDate(0, 0, -120),
		}
		require.NoError(t, logger.LogSync(ctx, old))

		entries, err := logger.Query(ctx, QueryOptions{ProfileID: "default", Key: "dob"})
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})

	t.Run("prune", func(t *testing.T) {
		pruner := &Logger{db: db.DB, config: LoggerConfig{RetentionDays: 90}}
		n, err := pruner.Prune(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})
}
