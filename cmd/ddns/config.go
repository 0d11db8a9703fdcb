package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jxo-me/porkbun-ddns/config"
	"github.com/jxo-me/porkbun-ddns/core/logger"
	"github.com/jxo-me/porkbun-ddns/sdk/ddns/porkbun"
	xlogger "github.com/jxo-me/porkbun-ddns/sdk/logger"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
	"gopkg.in/natefinch/lumberjack.v2"
)

// loadConfig reads the config named by --config, applies the log flags and installs the default logger.
// The returned func closes the log file, if any.
func loadConfig(c *cli.Context) (*config.Config, *zerolog.Logger, func(), error) {
	conf, err := config.Load(c.String(configFlag))
	if err != nil {
		return nil, nil, nil, err
	}
	applyLogFlags(c, conf)
	log, zlog, closer := newLoggers(conf.Log)
	logger.SetDefault(log)
	closeLog := func() {
		logger.SetDefault(xlogger.Nop())
		if err := closer.Close(); err != nil {
			fmt.Fprintf(c.App.ErrWriter, "close log output: %s\n", err)
		}
	}
	return conf, zlog, closeLog, nil
}

func applyLogFlags(c *cli.Context, conf *config.Config) {
	if conf.Log == nil {
		conf.Log = &config.LogConfig{}
	}
	if c.IsSet(logLevelFlag) {
		conf.Log.Level = c.String(logLevelFlag)
	}
	if c.IsSet(logFormatFlag) {
		conf.Log.Format = c.String(logFormatFlag)
	}
	if c.IsSet(logOutputFlag) {
		conf.Log.Output = c.String(logOutputFlag)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// logOutput stderr, stdout, none or a file, rotated when configured.
// A file that cannot be opened falls back to stderr.
func logOutput(cfg *config.LogConfig) (io.Writer, io.Closer) {
	switch cfg.Output {
	case "none", "null":
		return io.Discard, nopCloser{}
	case "stdout":
		return os.Stdout, nopCloser{}
	case "stderr", "":
		return os.Stderr, nopCloser{}
	}
	if cfg.Rotation != nil {
		lj := &lumberjack.Logger{
			Filename:   cfg.Output,
			MaxSize:    cfg.Rotation.MaxSize,
			MaxAge:     cfg.Rotation.MaxAge,
			MaxBackups: cfg.Rotation.MaxBackups,
			LocalTime:  cfg.Rotation.LocalTime,
			Compress:   cfg.Rotation.Compress,
		}
		return lj, lj
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Output), 0755); err != nil {
		fmt.Fprintf(os.Stderr, "log output %s: %s, logging to stderr\n", cfg.Output, err)
		return os.Stderr, nopCloser{}
	}
	f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		fmt.Fprintf(os.Stderr, "log output %s: %s, logging to stderr\n", cfg.Output, err)
		return os.Stderr, nopCloser{}
	}
	return f, f
}

// newLoggers builds the service logger and the config watcher logger over one shared output
func newLoggers(cfg *config.LogConfig) (logger.ILogger, *zerolog.Logger, io.Closer) {
	if cfg == nil {
		cfg = &config.LogConfig{}
	}
	out, closer := logOutput(cfg)
	return logFromConfig(cfg, out), zerologFromConfig(cfg, out), closer
}

func logFromConfig(cfg *config.LogConfig, out io.Writer) logger.ILogger {
	if out == io.Discard {
		return xlogger.Nop()
	}
	return xlogger.NewLogger(
		xlogger.NameLoggerOption("ddns"),
		xlogger.FormatLoggerOption(logger.LogFormat(cfg.Format)),
		xlogger.LevelLoggerOption(logger.LogLevel(cfg.Level)),
		xlogger.OutputLoggerOption(out),
	)
}

func zerologFromConfig(cfg *config.LogConfig, out io.Writer) *zerolog.Logger {
	if logger.LogFormat(cfg.Format) != logger.JSONFormat {
		out = zerolog.ConsoleWriter{Out: out, NoColor: true}
	}
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(out).Level(level).With().Timestamp().Str("logger", "config").Logger()
	return &log
}

// buildProvider endpoint overrides the one selected by ip.ipv6 when set
func buildProvider(conf *config.Config, endpoint string) (*porkbun.Porkbun, error) {
	var (
		pb  *porkbun.Porkbun
		err error
	)
	if endpoint == "" {
		pb, err = porkbun.NewFromConfig(conf, porkbun.WithLogger(logger.Default()))
	} else if conf.HasKeys() {
		pb, err = porkbun.New(endpoint, porkbun.ApiKey{
			SecretKey: conf.Keys.SecretApiKey,
			AccessKey: conf.Keys.ApiKey,
		}, porkbun.WithLogger(logger.Default()))
	} else {
		err = porkbun.ErrNoKeys
	}
	if err != nil {
		return nil, errors.Wrap(err, "create porkbun client")
	}
	return pb, nil
}
