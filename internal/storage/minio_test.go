package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/smartfill/smartfill/internal/config"
)

func setupMinIO(t *testing.T) *MinIOClient {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "minio/minio:latest",
			ExposedPorts: []string{"9000/tcp"},
			Env: map[string]string{
				"MINIO_ROOT_USER":     "minioadmin",
				"MINIO_ROOT_PASSWORD": "minioadmin",
			},
			Cmd:        []string{"server", "/data"},
			WaitingFor: wait.ForHTTP("/minio/health/live").WithPort("9000/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	endpoint, err := container.PortEndpoint(ctx, "9000/tcp", "")
	require.NoError(t, err)

	client, err := NewMinIOClient(config.S3Config{
		Endpoint:        endpoint,
		AccessKeyID:     "minioadmin",
		SecretAccessKey: "minioadmin",
		Bucket:          "smartfill-test",
		Region:          "us-east-1",
	})
	require.NoError(t, err)
	return client
}

func TestObjectSource(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	client := setupMinIO(t)
	ctx := context.Background()
	src := NewObjectSource(client, "profile.json")

	t.Run("Fetch_Missing", func(t *testing.T) {
		require.NoError(t, client.EnsureBucket(ctx))
		_, err := src.Fetch(ctx)
		assert.Error(t, err)
	})

	t.Run("Seed_and_Fetch", func(t *testing.T) {
		require.NoError(t, src.Seed(ctx, []byte(`{"persona":"demo"}`)))

		data, err := src.Fetch(ctx)
		require.NoError(t, err)
		assert.JSONEq(t, `{"persona":"demo"}`, string(data))
	})

	t.Run("Health", func(t *testing.T) {
		assert.NoError(t, client.Health(ctx))
	})
}
