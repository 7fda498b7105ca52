package testutil

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/zenyx/dbkeeper/pkg/database"
	"github.com/zenyx/dbkeeper/pkg/docker"
)

// SkipIfNoDocker skips the test if Docker is not available
func SkipIfNoDocker(t *testing.T) {
	t.Helper()

	// Check if Docker binary exists
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("Docker not available")
	}

	// Check if Docker daemon is running
	cmd := exec.CommandContext(t.Context(), "docker", "ps")
	if err := cmd.Run(); err != nil {
		t.Skip("Docker daemon not running")
	}
}

// StartPostgres starts a PostgreSQL container for the test and returns its
// DSN. The container is removed when the test finishes. Tests calling it are
// skipped in -short mode and when Docker is unavailable.
func StartPostgres(t *testing.T) string {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}

	SkipIfNoDocker(t)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	container := docker.New()
	t.Cleanup(func() {
		_ = container.Stop(context.Background())
	})

	require.NoError(t, container.Start(ctx), "Failed to start PostgreSQL container")

	dsn, err := container.GetDSN(ctx)
	require.NoError(t, err, "Failed to get container DSN")

	return dsn
}

// OpenPostgres starts a PostgreSQL container and returns a connected client.
func OpenPostgres(t *testing.T) *database.Client {
	t.Helper()

	dsn := StartPostgres(t)

	client, err := database.NewClient(context.Background(), database.Options{DSN: dsn})
	require.NoError(t, err, "Failed to connect to PostgreSQL container")
	t.Cleanup(func() { _ = client.Close() })

	return client
}
