package config

import (
	"os"

	"github.com/zenyx/dbkeeper/pkg/consts"
	"go.uber.org/fx"
)

// EnvConfigFile overrides the location of dbkeeper.yaml.
const EnvConfigFile = "DBKEEPER_CONFIG"

var Module = fx.Module("config", fx.Provide(
	// Loads dbkeeper.yaml (or the file named by DBKEEPER_CONFIG). A missing
	// file yields the defaults so that init, help, and flag-only invocations
	// keep working.
	func() (*Config, error) {
		path := Path()
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return Default(), nil
		}

		return LoadConfigFile(path)
	},
))

// Path returns the config file location for the current process.
func Path() string {
	if path := os.Getenv(EnvConfigFile); path != "" {
		return path
	}
	return consts.DefaultConfigFile
}
