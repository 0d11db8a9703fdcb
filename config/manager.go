package config

import (
	"github.com/jxo-me/porkbun-ddns/pkg/watcher"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Notifier sends out config updates
type Notifier interface {
	ConfigDidUpdate(Config)
}

// Manager is the base functions of the config manager
type Manager interface {
	Start(Notifier) error
	Shutdown()
}

// FileManager watches the toml config for changes
// sends updates to the service to reconfigure to match the updated config
type FileManager struct {
	watcher    watcher.Notifier
	notifier   Notifier
	configPath string
	log        *zerolog.Logger
	ReadConfig func(string, *zerolog.Logger) (Config, error)
}

// NewFileManager creates a config manager
func NewFileManager(watcher watcher.Notifier, configPath string, log *zerolog.Logger) (*FileManager, error) {
	m := &FileManager{
		watcher:    watcher,
		configPath: configPath,
		log:        log,
		ReadConfig: readConfigFromPath,
	}
	err := watcher.Add(configPath)
	return m, err
}

// Start starts the runloop to watch for config changes
func (m *FileManager) Start(notifier Notifier) error {
	m.notifier = notifier

	// update the notifier with a fresh config on start
	config, err := m.ReadConfig(m.configPath, m.log)
	if err != nil {
		m.log.Err(err).Msg("unable to read config file, waiting for it to change")
	} else {
		notifier.ConfigDidUpdate(config)
	}

	m.watcher.Start(m)
	return nil
}

// Shutdown stops the watcher
func (m *FileManager) Shutdown() {
	m.watcher.Shutdown()
}

func readConfigFromPath(configPath string, log *zerolog.Logger) (Config, error) {
	if configPath == "" {
		return Config{}, errors.New("unable to find config file")
	}
	conf, err := Load(configPath)
	if err != nil {
		return Config{}, err
	}
	log.Debug().Str("path", configPath).Str("hash", conf.Hash()).Msg("config loaded")
	return *conf, nil
}

// File change notifications from the watcher

// WatcherItemDidChange triggers when the toml config is updated
// sends the updated config to the service to reload its state
func (m *FileManager) WatcherItemDidChange(filepath string) {
	config, err := m.ReadConfig(m.configPath, m.log)
	if err != nil {
		m.log.Err(err).Msg("Failed to read new config")
		return
	}
	m.log.Info().Msg("Config file has been updated")
	m.notifier.ConfigDidUpdate(config)
}

// WatcherDidError notifies of errors with the file watcher
func (m *FileManager) WatcherDidError(err error) {
	m.log.Err(err).Msg("Config watcher encountered an error")
}
