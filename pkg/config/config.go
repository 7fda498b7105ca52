package config

import (
	"io"
	"os"
	"slices"
	"time"

	"github.com/pkg/errors"
	"github.com/zenyx/dbkeeper/pkg/consts"
	"github.com/zenyx/dbkeeper/pkg/utils"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned by Validate for settings that can never work.
var ErrInvalidConfig = errors.New("invalid config")

// supportedDrivers are the database/sql driver names the client registers.
var supportedDrivers = []string{"pgx", "postgres"}

type (
	// Database holds connection settings.
	Database struct {
		// Driver is the database/sql driver name, "pgx" or "postgres".
		Driver string `yaml:"driver,omitempty"`

		// DSN is the connection string. Environment references such as
		// ${DATABASE_URL} are expanded when the config is loaded.
		DSN string `yaml:"dsn,omitempty"`

		// ConnectTimeout bounds the initial ping.
		ConnectTimeout time.Duration `yaml:"connect_timeout,omitempty"`
	}

	// Migrations controls where units come from and where they are recorded.
	Migrations struct {
		// Dir holds SQL-file migration units and their sum file.
		Dir string `yaml:"dir,omitempty"`

		// Table is the ledger table name, optionally schema qualified.
		Table string `yaml:"table,omitempty"`

		// Builtin includes the compiled-in bot platform units ahead of the
		// SQL files. Defaults to true.
		Builtin *bool `yaml:"builtin,omitempty"`
	}

	// Lock configures the advisory lock held around mutating commands.
	Lock struct {
		// Enabled defaults to true.
		Enabled *bool `yaml:"enabled,omitempty"`

		// Key names the lock. Processes sharing a key never migrate concurrently.
		Key string `yaml:"key,omitempty"`
	}

	// Config represents the dbkeeper project configuration.
	//
	// Example dbkeeper.yaml:
	//
	//	database:
	//	  driver: pgx
	//	  dsn: ${DATABASE_URL}
	//	  connect_timeout: 10s
	//	migrations:
	//	  dir: db/migrations
	//	  table: migrations
	//	lock:
	//	  key: dbkeeper
	//	timeout: 5m
	Config struct {
		Database   Database   `yaml:"database"`
		Migrations Migrations `yaml:"migrations"`
		Lock       Lock       `yaml:"lock"`

		// Timeout bounds a single command invocation.
		Timeout time.Duration `yaml:"timeout,omitempty"`
	}
)

// Default returns a Config with every default applied, as used when no
// dbkeeper.yaml exists.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// LoadConfig parses a configuration from the provided io.Reader.
//
// Unset values fall back to the defaults in pkg/consts and environment
// references in the DSN are expanded. An empty document is an error.
//
// Example:
//
//	yamlData := `
//	database:
//	  dsn: postgres://localhost:5432/bots?sslmode=disable
//	migrations:
//	  dir: db/migrations
//	`
//
//	cfg, err := config.LoadConfig(strings.NewReader(yamlData))
//	if err != nil {
//		panic(err)
//	}
//
//	fmt.Printf("Ledger table: %s\n", cfg.Migrations.Table)
func LoadConfig(r io.Reader) (*Config, error) {
	var cfg Config
	if err := yaml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal dbkeeper config")
	}

	cfg.Database.DSN = os.ExpandEnv(cfg.Database.DSN)
	cfg.applyDefaults()
	return &cfg, nil
}

// LoadConfigFile opens path and parses it with LoadConfig.
func LoadConfigFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open file: %s", path)
	}
	defer func() { _ = f.Close() }()

	return LoadConfig(f)
}

// Validate reports settings that can never work, such as an unknown driver
// or a timeout that would expire before anything runs.
func (c *Config) Validate() error {
	if !slices.Contains(supportedDrivers, c.Database.Driver) {
		return errors.Wrapf(ErrInvalidConfig, "unsupported driver %q", c.Database.Driver)
	}

	if c.Timeout <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "timeout must be positive, got %s", c.Timeout)
	}

	if c.Database.ConnectTimeout < 0 {
		return errors.Wrap(ErrInvalidConfig, "database.connect_timeout must not be negative")
	}

	if c.Migrations.Table == "" {
		return errors.Wrap(ErrInvalidConfig, "migrations.table must not be empty")
	}

	return nil
}

// UseBuiltin reports whether compiled-in units are part of the registry.
func (c *Config) UseBuiltin() bool {
	return c.Migrations.Builtin == nil || *c.Migrations.Builtin
}

// LockEnabled reports whether mutating commands take the advisory lock.
func (c *Config) LockEnabled() bool {
	return c.Lock.Enabled == nil || *c.Lock.Enabled
}

func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = consts.DefaultDriver
	}

	if c.Migrations.Dir == "" {
		c.Migrations.Dir = consts.DefaultMigrationsDir
	}

	if c.Migrations.Table == "" {
		c.Migrations.Table = consts.DefaultLedgerTable
	}

	if c.Migrations.Builtin == nil {
		c.Migrations.Builtin = utils.Ptr(true)
	}

	if c.Lock.Enabled == nil {
		c.Lock.Enabled = utils.Ptr(true)
	}

	if c.Lock.Key == "" {
		c.Lock.Key = consts.DefaultLockKey
	}

	if c.Timeout == 0 {
		c.Timeout = consts.DefaultTimeout
	}
}
