package config

import (
	"encoding/json"
	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
	"io"
)

var ErrUnknownFormat = errors.New("unknown output format")

// Write 以指定格式输出配置
func (conf *Config) Write(w io.Writer, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(conf)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(conf)
	case "toml", "":
		return toml.NewEncoder(w).Encode(conf)
	default:
		return errors.Wrap(ErrUnknownFormat, format)
	}
}
