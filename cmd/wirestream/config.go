package main

import (
	"fmt"

	"github.com/elastic/go-ucfg"
	"github.com/elastic/go-ucfg/yaml"

	"github.com/gowire/protolite/logging"
)

// config is the on-disk shape of wirestream's YAML config file, following
// packetd's confengine-style flat config struct with `config` tags.
type config struct {
	Listen  string         `config:"listen"`
	Framing string         `config:"framing"`
	Logging logging.Options `config:"logging"`
}

func defaultConfig() config {
	return config{
		Listen:  ":9402",
		Framing: "base128",
		Logging: logging.Options{Stdout: true, Level: string(logging.LevelInfo)},
	}
}

func loadConfigPath(path string) (config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	uc, err := yaml.NewConfigWithFile(path, ucfg.PathSep("."))
	if err != nil {
		return cfg, fmt.Errorf("loading config %s: %w", path, err)
	}
	if err := uc.Unpack(&cfg); err != nil {
		return cfg, fmt.Errorf("unpacking config %s: %w", path, err)
	}
	return cfg, nil
}
