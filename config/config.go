package config

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"github.com/BurntSushi/toml"
	"github.com/jxo-me/porkbun-ddns/consts"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"os"
	"path/filepath"
	"time"
)

const (
	ConfigFilePathENV = "DDNS_CONFIG_FILE_PATH"
	SecretApiKeyENV   = "PORKBUN_SECRET_API_KEY"
	ApiKeyENV         = "PORKBUN_API_KEY"
)

const (
	// Endpoint 同时支持 IPv4/IPv6
	Endpoint = "https://api.porkbun.com/api/json/v3"
	// EndpointIPv4 仅 IPv4
	EndpointIPv4 = "https://api-ipv4.porkbun.com/api/json/v3"
)

var (
	ErrMissingEnv = errors.New("environment variable not set")
	ErrInvalid    = errors.New("invalid config")
)

// GeneratedError is returned when no config file existed and a template was written in its place.
type GeneratedError struct {
	Path string
}

func (e *GeneratedError) Error() string {
	return fmt.Sprintf("generated config file at: %s, please fill it in", e.Path)
}

// ParseError wraps a malformed config file.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse config %s: %s", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

type Config struct {
	Keys    *Keys      `toml:"keys,omitempty" mapstructure:"keys" yaml:"keys,omitempty" json:"keys,omitempty"`
	Domain  Domain     `toml:"domain" mapstructure:"domain" yaml:"domain" json:"domain"`
	Ip      Ip         `toml:"ip" mapstructure:"ip" yaml:"ip" json:"ip"`
	Log     *LogConfig `toml:"log,omitempty" mapstructure:"log" yaml:"log,omitempty" json:"log,omitempty"`
	Webhook *Webhook   `toml:"webhook,omitempty" mapstructure:"webhook" yaml:"webhook,omitempty" json:"webhook,omitempty"`
	Daemon  Daemon     `toml:"daemon" mapstructure:"daemon" yaml:"daemon" json:"daemon"`
}

// Keys Porkbun API 凭证
type Keys struct {
	SecretApiKey string `toml:"secretapikey" mapstructure:"secretapikey" yaml:"secretapikey" json:"secretapikey"`
	ApiKey       string `toml:"apikey" mapstructure:"apikey" yaml:"apikey" json:"apikey"`
}

type Ip struct {
	// 为空则通过 ping 接口获取
	Address string `toml:"address" mapstructure:"address" yaml:"address" json:"address"`
	IPv6    bool   `toml:"ipv6" mapstructure:"ipv6" yaml:"ipv6" json:"ipv6"`
}

type Daemon struct {
	Interval string `toml:"interval" mapstructure:"interval" yaml:"interval" json:"interval"`
}

// Default 默认配置，首次运行时写入配置文件
func Default() *Config {
	return &Config{
		Log: &LogConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Daemon: Daemon{
			Interval: consts.DefaultDaemonInterval,
		},
	}
}

// HasKeys reports whether both credentials are present.
func (conf *Config) HasKeys() bool {
	return conf.Keys != nil && conf.Keys.SecretApiKey != "" && conf.Keys.ApiKey != ""
}

// EnvKeys 从环境变量读取凭证
func (conf *Config) EnvKeys() error {
	secret, ok := os.LookupEnv(SecretApiKeyENV)
	if !ok {
		return errors.Wrap(ErrMissingEnv, SecretApiKeyENV)
	}
	key, ok := os.LookupEnv(ApiKeyENV)
	if !ok {
		return errors.Wrap(ErrMissingEnv, ApiKeyENV)
	}
	conf.Keys = &Keys{
		SecretApiKey: secret,
		ApiKey:       key,
	}
	return nil
}

// Endpoint selects the API host from the address family flag.
func (conf *Config) Endpoint() string {
	if conf.Ip.IPv6 {
		return Endpoint
	}
	return EndpointIPv4
}

func (conf *Config) RecordType() string {
	if conf.Ip.IPv6 {
		return consts.RecordTypeAAAA
	}
	return consts.RecordTypeA
}

func (conf *Config) DaemonInterval() (time.Duration, error) {
	if conf.Daemon.Interval == "" {
		return time.ParseDuration(consts.DefaultDaemonInterval)
	}
	d, err := time.ParseDuration(conf.Daemon.Interval)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalid, "daemon.interval: %s", err)
	}
	if d < time.Minute {
		return 0, errors.Wrapf(ErrInvalid, "daemon.interval must be at least 1m, got %s", d)
	}
	return d, nil
}

// Validate checks the fields every run needs before the first network call.
// [daemon] is checked by the daemon only.
func (conf *Config) Validate() error {
	if !conf.HasKeys() {
		return errors.Wrap(ErrInvalid, "keys.secretapikey and keys.apikey are required")
	}
	if conf.Domain.DomainName == "" {
		return errors.Wrap(ErrInvalid, "domain.base is required")
	}
	return nil
}

// Hash identifies a config by content; the daemon restarts its service when it changes.
func (conf *Config) Hash() string {
	var buf bytes.Buffer
	_ = toml.NewEncoder(&buf).Encode(conf)
	sum := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:])
}

// Masked returns a copy with credentials hidden, for display.
func (conf *Config) Masked() *Config {
	c := *conf
	if conf.Keys != nil {
		c.Keys = &Keys{
			SecretApiKey: mask(conf.Keys.SecretApiKey),
			ApiKey:       mask(conf.Keys.ApiKey),
		}
	}
	return &c
}

func mask(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "********"
}

// SaveConfig 保存配置
func (conf *Config) SaveConfig(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrap(err, "create config directory")
		}
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(conf); err != nil {
		return errors.Wrap(err, "encode config")
	}
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return errors.Wrap(err, "write config")
	}
	return nil
}

// Read 读取配置文件; 不存在时生成模板并返回 GeneratedError
func Read(path string) (*Config, error) {
	_, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		if err := Default().SaveConfig(path); err != nil {
			return nil, err
		}
		return nil, &GeneratedError{Path: path}
	}
	if err != nil {
		return nil, errors.Wrapf(err, "stat %s", path)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		var pe viper.ConfigParseError
		if errors.As(err, &pe) {
			return nil, &ParseError{Path: path, Err: err}
		}
		return nil, errors.Wrapf(err, "read %s", path)
	}

	conf := &Config{}
	if err := v.Unmarshal(conf); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return conf, nil
}

// Load reads the file, overlays credentials from the environment when the file has none, and validates.
func Load(path string) (*Config, error) {
	conf, err := Read(path)
	if err != nil {
		return nil, err
	}
	if !conf.HasKeys() {
		if err := conf.EnvKeys(); err != nil {
			return nil, err
		}
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}
