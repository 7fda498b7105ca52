package docker

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/go-connections/nat"
	"github.com/pkg/errors"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// DefaultPostgresVersion is the image tag used when none is configured
	DefaultPostgresVersion = "16"

	// DefaultPostgresPort is the port PostgreSQL listens on inside the container
	DefaultPostgresPort = nat.Port("5432/tcp")

	defaultDatabase = "dbkeeper"
	defaultUser     = "dbkeeper"
	defaultPassword = "dbkeeper"
)

type (
	// DockerOptions represents options for running PostgreSQL in Docker
	DockerOptions struct {
		// Version is the postgres image tag to run (default: DefaultPostgresVersion)
		Version string

		// DataDir is an optional host directory mounted as the data directory,
		// so the database survives container restarts. Relative paths are
		// resolved against the working directory.
		DataDir string

		// Database, Username and Password default to "dbkeeper".
		Database string
		Username string
		Password string
	}

	// Container manages a disposable PostgreSQL container for migration tests
	Container struct {
		options   DockerOptions
		container *postgres.PostgresContainer
	}
)

// New creates a new Docker container with default options
//
// Example:
//
//	container := docker.New()
//
//	if err := container.Start(ctx); err != nil {
//		log.Fatal(err)
//	}
//	defer container.Stop(ctx)
func New() *Container {
	return NewWithOptions(DockerOptions{})
}

// NewWithOptions creates a new Docker container with custom options
//
// Example:
//
//	container := docker.NewWithOptions(docker.DockerOptions{
//		Version: "17",
//		DataDir: "tmp/pgdata",
//	})
func NewWithOptions(opts DockerOptions) *Container {
	if opts.Version == "" {
		opts.Version = DefaultPostgresVersion
	}
	if opts.Database == "" {
		opts.Database = defaultDatabase
	}
	if opts.Username == "" {
		opts.Username = defaultUser
	}
	if opts.Password == "" {
		opts.Password = defaultPassword
	}

	return &Container{options: opts}
}

// Image returns the image reference the container runs.
func (c *Container) Image() string {
	return fmt.Sprintf("postgres:%s-alpine", c.options.Version)
}

// Start starts the PostgreSQL container and waits until it accepts connections
func (c *Container) Start(ctx context.Context) error {
	if c.container != nil {
		return errors.New("container is already running")
	}

	customizers := []testcontainers.ContainerCustomizer{
		postgres.WithDatabase(c.options.Database),
		postgres.WithUsername(c.options.Username),
		postgres.WithPassword(c.options.Password),
		testcontainers.WithWaitStrategyAndDeadline(
			2*time.Minute,
			// postgres restarts once after running its init scripts
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			wait.ForListeningPort(DefaultPostgresPort),
		),
	}

	if c.options.DataDir != "" {
		absDataDir, err := filepath.Abs(c.options.DataDir)
		if err != nil {
			return errors.Wrapf(err, "failed to get absolute path for DataDir: %s", c.options.DataDir)
		}

		customizers = append(
			customizers,
			testcontainers.WithHostConfigModifier(func(hostConfig *container.HostConfig) {
				hostConfig.Mounts = []mount.Mount{
					{
						Type:   mount.TypeBind,
						Source: absDataDir,
						Target: "/var/lib/postgresql/data",
					},
				}
			}),
		)
	}

	pg, err := postgres.Run(ctx, c.Image(), customizers...)
	if err != nil {
		return errors.Wrap(err, "failed to start PostgreSQL container")
	}

	c.container = pg
	return nil
}

// Stop stops and removes the container. Stopping a container that is not
// running is a no-op.
func (c *Container) Stop(ctx context.Context) error {
	if c.container == nil {
		return nil
	}

	err := c.container.Terminate(ctx)
	c.container = nil

	if err != nil {
		return errors.Wrap(err, "failed to stop PostgreSQL container")
	}

	return nil
}

// GetDSN returns a URL DSN for the running database with TLS disabled.
func (c *Container) GetDSN(ctx context.Context) (string, error) {
	if c.container == nil {
		return "", errors.New("container is not running")
	}

	dsn, err := c.container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return "", errors.Wrap(err, "failed to get connection string")
	}

	return dsn, nil
}

// IsRunning returns true if the container is currently running
func (c *Container) IsRunning() bool {
	return c.container != nil
}
