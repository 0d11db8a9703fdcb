package main

import (
	"sync"

	"github.com/judwhite/go-svc"
	"github.com/jxo-me/porkbun-ddns/config"
	"github.com/jxo-me/porkbun-ddns/core/logger"
	"github.com/jxo-me/porkbun-ddns/pkg/overwatch"
	"github.com/jxo-me/porkbun-ddns/pkg/watcher"
	"github.com/jxo-me/porkbun-ddns/x/service"
	"github.com/rs/zerolog"
)

// program runs the daemon under go-svc: the config file is watched and every
// changed config replaces the running service through the overwatch manager.
type program struct {
	configPath string
	endpoint   string
	log        *zerolog.Logger

	mu       sync.Mutex
	current  string
	manager  config.Manager
	services overwatch.Manager
	started  chan struct{}
}

func newProgram(configPath, endpoint string, log *zerolog.Logger) *program {
	return &program{
		configPath: configPath,
		endpoint:   endpoint,
		log:        log,
		started:    make(chan struct{}, 1),
	}
}

func (p *program) Init(env svc.Environment) error {
	if env.IsWindowsService() {
		p.log.Info().Msg("running as a windows service")
	}
	f, err := watcher.NewFile()
	if err != nil {
		return err
	}
	manager, err := config.NewFileManager(f, p.configPath, p.log)
	if err != nil {
		return err
	}
	p.manager = manager
	p.services = overwatch.NewAppManager(func(name string, hash string, err error) {
		if err != nil {
			p.log.Err(err).Str("hash", hash).Msgf("service %s encountered an error", name)
			return
		}
		p.log.Debug().Str("hash", hash).Msgf("service %s stopped", name)
	})
	return nil
}

func (p *program) Start() error {
	p.log.Info().Msgf("monitoring config file at: %s", p.configPath)
	go func() {
		if err := p.manager.Start(p); err != nil {
			p.log.Err(err).Msg("config manager stopped")
		}
	}()
	return nil
}

// ConfigDidUpdate builds a service for the new config; the manager keeps the running one when the hash is unchanged
func (p *program) ConfigDidUpdate(conf config.Config) {
	provider, err := buildProvider(&conf, p.endpoint)
	if err != nil {
		p.log.Err(err).Msg("unable to apply config")
		return
	}
	s, err := service.NewDDNS(&conf, provider, logger.Default())
	if err != nil {
		p.log.Err(err).Msg("unable to apply config")
		return
	}

	p.mu.Lock()
	previous := p.current
	p.current = s.String()
	p.mu.Unlock()

	if previous != "" && previous != s.String() {
		p.services.Remove(previous)
	}
	p.services.Add(s)
	select {
	case p.started <- struct{}{}:
	default:
	}
}

func (p *program) Stop() error {
	if p.manager != nil {
		p.manager.Shutdown()
	}
	if p.services != nil {
		for _, s := range p.services.Services() {
			p.services.Remove(s.String())
			p.log.Info().Msgf("service %s shutdown", s)
		}
	}
	return nil
}
