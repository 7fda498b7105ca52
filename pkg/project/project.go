package project

import (
	_ "embed"
	"os"
	"path/filepath"
	"testing/fstest"

	"github.com/pkg/errors"
	"github.com/zenyx/dbkeeper/pkg/config"
	"github.com/zenyx/dbkeeper/pkg/consts"
	"gopkg.in/yaml.v3"
)

var (
	//go:embed embed/dbkeeper.yaml
	defaultConfig []byte

	//go:embed embed/migration.sql
	migrationTemplate []byte

	image = fstest.MapFS{
		"db":                     {Mode: os.ModeDir | consts.ModeDir},
		"db/migrations":          {Mode: os.ModeDir | consts.ModeDir},
		consts.DefaultConfigFile: {Data: defaultConfig},
	}
)

type (
	// InitOptions contains options for project initialization
	InitOptions struct {
		// DSN replaces the ${DATABASE_URL} placeholder in a freshly written
		// dbkeeper.yaml. Existing files are never rewritten.
		DSN string

		// Table overrides the ledger table name in a freshly written
		// dbkeeper.yaml.
		Table string
	}

	// ProjectParams configures a Project.
	ProjectParams struct {
		// Dir is the project root. It must exist.
		Dir string

		// Config is used until Initialize loads dbkeeper.yaml. Nil means
		// defaults.
		Config *config.Config
	}

	// Project is a directory holding dbkeeper.yaml and SQL-file migrations.
	Project struct {
		root   string
		config *config.Config
	}
)

// New creates a Project rooted at params.Dir.
//
// Example:
//
//	proj := project.New(project.ProjectParams{Dir: "."})
//	if err := proj.Initialize(project.InitOptions{}); err != nil {
//		log.Fatal(err)
//	}
//
//	path, err := proj.NewMigration("add vip flag", time.Now())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	fmt.Printf("Created %s\n", path)
func New(params ProjectParams) *Project {
	cfg := params.Config
	if cfg == nil {
		cfg = config.Default()
	}

	return &Project{root: params.Dir, config: cfg}
}

// Root returns the project directory.
func (p *Project) Root() string {
	return p.root
}

// Config returns the configuration in use.
func (p *Project) Config() *config.Config {
	return p.config
}

// Initialize creates dbkeeper.yaml and the migrations directory when they
// are missing and then loads the configuration. It is idempotent: existing
// files and directories are left untouched.
//
// Example:
//
//	proj := project.New(project.ProjectParams{Dir: "/srv/bots"})
//	err := proj.Initialize(project.InitOptions{
//		DSN: "postgres://bots@localhost:5432/bots?sslmode=disable",
//	})
func (p *Project) Initialize(options InitOptions) error {
	if err := p.ensureDirectory(); err != nil {
		return err
	}

	configPath := filepath.Join(p.root, consts.DefaultConfigFile)
	_, statErr := os.Stat(configPath)
	freshConfig := os.IsNotExist(statErr)

	for path, entry := range image {
		fullPath := filepath.Join(p.root, path)

		if _, err := os.Stat(fullPath); err == nil {
			continue
		} else if !os.IsNotExist(err) {
			return errors.Wrapf(err, "failed to stat %s", fullPath)
		}

		if entry.Mode.IsDir() {
			if err := os.MkdirAll(fullPath, entry.Mode.Perm()); err != nil {
				return errors.Wrapf(err, "failed to create directory %s", fullPath)
			}

			continue
		}

		parentDir := filepath.Dir(fullPath)
		if err := os.MkdirAll(parentDir, consts.ModeDir); err != nil {
			return errors.Wrapf(err, "failed to create parent directory %s", parentDir)
		}

		if err := os.WriteFile(fullPath, entry.Data, consts.ModeFile); err != nil {
			return errors.Wrapf(err, "failed to write file %s", fullPath)
		}
	}

	if freshConfig && (options.DSN != "" || options.Table != "") {
		if err := p.writeOptions(configPath, options); err != nil {
			return err
		}
	}

	cfg, err := config.LoadConfigFile(configPath)
	if err != nil {
		return errors.Wrapf(err, "failed to load %s", consts.DefaultConfigFile)
	}
	p.config = cfg

	// A config pointing elsewhere still gets its migrations directory.
	migrationsDir := p.MigrationsDir()
	if err := os.MkdirAll(migrationsDir, consts.ModeDir); err != nil {
		return errors.Wrapf(err, "failed to create migrations directory %s", migrationsDir)
	}

	return nil
}

// writeOptions rewrites a freshly created config with the init options
// applied. Comments and key order of the template are preserved.
func (p *Project) writeOptions(path string, options InitOptions) error {
	var doc yaml.Node
	if err := yaml.Unmarshal(defaultConfig, &doc); err != nil {
		return errors.Wrap(err, "failed to parse default config")
	}

	if options.DSN != "" {
		if err := setValue(&doc, options.DSN, "database", "dsn"); err != nil {
			return err
		}
	}
	if options.Table != "" {
		if err := setValue(&doc, options.Table, "migrations", "table"); err != nil {
			return err
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to open config file for writing: %s", path)
	}
	defer func() { _ = f.Close() }()

	encoder := yaml.NewEncoder(f)
	encoder.SetIndent(2)
	if err := encoder.Encode(&doc); err != nil {
		return errors.Wrap(err, "failed to write updated config")
	}

	return errors.Wrap(encoder.Close(), "failed to close yaml encoder")
}

// setValue replaces the scalar found by following keys through nested
// mappings.
func setValue(node *yaml.Node, value string, keys ...string) error {
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}

	for _, key := range keys {
		if node.Kind != yaml.MappingNode {
			return errors.Errorf("config key %s is not a mapping", key)
		}

		var next *yaml.Node
		for i := 0; i+1 < len(node.Content); i += 2 {
			if node.Content[i].Value == key {
				next = node.Content[i+1]
				break
			}
		}

		if next == nil {
			return errors.Errorf("config key %s not found", key)
		}
		node = next
	}

	node.Kind = yaml.ScalarNode
	node.Tag = "!!str"
	node.Value = value
	return nil
}

func (p *Project) ensureDirectory() error {
	dir, err := os.Stat(p.root)
	if err != nil {
		return errors.Wrapf(err, "failed to stat dir: %s", p.root)
	}

	if !dir.IsDir() {
		return errors.Errorf("%s is not a directory", p.root)
	}

	return nil
}
