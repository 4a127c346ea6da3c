package run

import (
	"github.com/BurntSushi/toml"
)

// config holds the settings that may be supplied by a --config file. Unset fields keep their flag values.
type config struct {
	Strict   *bool  `toml:"strict"`
	MaxDepth *uint  `toml:"max_depth"`
	LogLevel string `toml:"log_level"`

	// Ignore maps a script's base name to failure messages that are logged instead of reported.
	Ignore map[string][]string `toml:"ignore"`
}

func loadConfig(path string) (*config, error) {
	var c config
	if _, err := toml.DecodeFile(path, &c); err != nil {
		return nil, err
	}
	return &c, nil
}
