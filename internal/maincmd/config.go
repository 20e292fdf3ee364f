package maincmd

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the optional YAML file loaded via --config. It mirrors the
// DEBUG environment toggle; the REPL prompt itself is fixed by spec and
// is not configurable.
type Config struct {
	Debug bool `yaml:"debug"`
}

func loadConfig(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
