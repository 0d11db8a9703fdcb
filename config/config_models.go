package config

// LogConfig 日志配置
type LogConfig struct {
	// trace, debug, info, warn, error, fatal
	Level string `toml:"level" mapstructure:"level" yaml:"level" json:"level"`
	// text, json
	Format string `toml:"format" mapstructure:"format" yaml:"format" json:"format"`
	// stderr, stdout, none, or a file path
	Output   string       `toml:"output" mapstructure:"output" yaml:"output" json:"output"`
	Rotation *LogRotation `toml:"rotation,omitempty" mapstructure:"rotation" yaml:"rotation,omitempty" json:"rotation,omitempty"`
}

type LogRotation struct {
	MaxSize    int  `toml:"maxSize" mapstructure:"maxsize" yaml:"maxSize" json:"maxSize"`
	MaxAge     int  `toml:"maxAge" mapstructure:"maxage" yaml:"maxAge" json:"maxAge"`
	MaxBackups int  `toml:"maxBackups" mapstructure:"maxbackups" yaml:"maxBackups" json:"maxBackups"`
	LocalTime  bool `toml:"localTime" mapstructure:"localtime" yaml:"localTime" json:"localTime"`
	Compress   bool `toml:"compress" mapstructure:"compress" yaml:"compress" json:"compress"`
}
