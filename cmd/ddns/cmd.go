package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/judwhite/go-svc"
	"github.com/jxo-me/porkbun-ddns/cmd/ddns/cliutil"
	"github.com/jxo-me/porkbun-ddns/config"
	"github.com/jxo-me/porkbun-ddns/consts"
	corehook "github.com/jxo-me/porkbun-ddns/core/hook"
	"github.com/jxo-me/porkbun-ddns/core/logger"
	"github.com/jxo-me/porkbun-ddns/pkg/dnsquery"
	"github.com/jxo-me/porkbun-ddns/x/hook"
	"github.com/jxo-me/porkbun-ddns/x/service"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"
)

const (
	configFlag     = "config"
	logLevelFlag   = "log-level"
	logFormatFlag  = "log-format"
	logOutputFlag  = "log-output"
	nameserverFlag = "nameserver"
	formatFlag     = "format"
	endpointFlag   = "endpoint"
)

var ErrConfigExists = errors.New("config file already exists")

func flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    configFlag,
			Aliases: []string{"c"},
			Usage:   "path to the TOML config file",
			EnvVars: []string{config.ConfigFilePathENV},
			Value:   consts.DefaultConfigFile,
		},
		&cli.StringFlag{
			Name:  logLevelFlag,
			Usage: "trace, debug, info, warn, error or fatal; overrides [log].level",
		},
		&cli.StringFlag{
			Name:  logFormatFlag,
			Usage: "text or json; overrides [log].format",
		},
		&cli.StringFlag{
			Name:  logOutputFlag,
			Usage: "stderr, stdout, none or a file path; overrides [log].output",
		},
		&cli.StringFlag{
			Name:    endpointFlag,
			Usage:   "Porkbun API base URL, for testing against another server",
			EnvVars: []string{"DDNS_PORKBUN_ENDPOINT"},
			Hidden:  true,
		},
	}
}

func commands() []*cli.Command {
	return []*cli.Command{
		{
			Name:   "update",
			Action: cliutil.Action(update),
			Usage:  "Point the record at the current IP once and exit",
			Description: `Resolves the IP (fixed address or Porkbun ping), compares it with the first
existing record and, when different, deletes that record and creates a new one.`,
		},
		{
			Name:   "daemon",
			Action: cliutil.Action(daemon),
			Usage:  "Keep the record up to date, checking every [daemon].interval",
		},
		{
			Name:   "status",
			Action: cliutil.Action(status),
			Usage:  "Compare the current IP with the public DNS answer, without changing anything",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  nameserverFlag,
					Usage: "nameserver to ask, host:port",
					Value: consts.DefaultNameserver,
				},
			},
		},
		{
			Name:  "config",
			Usage: "Create or show the config file",
			Subcommands: []*cli.Command{
				{
					Name:   "init",
					Action: cliutil.Action(configInit),
					Usage:  "Interactively write a new config file",
				},
				{
					Name:   "show",
					Action: cliutil.Action(configShow),
					Usage:  "Print the loaded config with secrets masked",
					Flags: []cli.Flag{
						&cli.StringFlag{
							Name:  formatFlag,
							Usage: "toml, yaml or json",
							Value: "toml",
						},
					},
				},
			},
		},
		{
			Name: "version",
			Action: func(c *cli.Context) error {
				cli.ShowVersion(c)
				return nil
			},
			Usage: "Print the version",
		},
	}
}

func signalContext(c *cli.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
}

func update(c *cli.Context) error {
	conf, _, closeLog, err := loadConfig(c)
	if err != nil {
		return err
	}
	defer closeLog()
	provider, err := buildProvider(conf, c.String(endpointFlag))
	if err != nil {
		return err
	}
	ctx, cancel := signalContext(c)
	defer cancel()

	result, err := service.NewWorkflow(conf, provider, logger.Default()).Run(ctx)
	notifyHook(ctx, conf, result, err)
	if err != nil {
		return err
	}
	if result.Replaced != nil {
		fmt.Fprintf(c.App.Writer, "Deleting existing %s record\n", result.RecordType)
	} else if result.Action == service.ActionCreated {
		fmt.Fprintln(c.App.Writer, "No record to be deleted.")
	}
	fmt.Fprintln(c.App.Writer, result)
	return nil
}

// notifyHook 单次更新同样触发 webhook, 失败只记录日志
func notifyHook(ctx context.Context, conf *config.Config, result *service.Result, runErr error) {
	if conf.Webhook == nil || conf.Webhook.URL == "" {
		return
	}
	event := corehook.Event{
		Domain:     conf.Domain.String(),
		RecordType: conf.RecordType(),
		Status:     consts.UpdatedFailed,
	}
	if runErr == nil {
		event.IP = result.IP
		event.Status = result.Status()
	}
	if err := hook.NewHook(conf.Webhook, logger.Default()).ExecHook(ctx, event); err != nil {
		logger.Default().Warnf("Webhook调用失败: %s", err)
	}
}

func daemon(c *cli.Context) error {
	// fail fast on a missing or invalid config instead of waiting for a file change
	conf, zlog, closeLog, err := loadConfig(c)
	if err != nil {
		return err
	}
	defer closeLog()
	if _, err := buildProvider(conf, c.String(endpointFlag)); err != nil {
		return err
	}
	if _, err := conf.DaemonInterval(); err != nil {
		return err
	}
	cliutil.GetBuildInfo(BuildType, Version).Log(logger.Default())
	return svc.Run(newProgram(c.String(configFlag), c.String(endpointFlag), zlog), os.Interrupt, syscall.SIGTERM)
}

func status(c *cli.Context) error {
	conf, _, closeLog, err := loadConfig(c)
	if err != nil {
		return err
	}
	defer closeLog()
	provider, err := buildProvider(conf, c.String(endpointFlag))
	if err != nil {
		return err
	}
	ctx, cancel := signalContext(c)
	defer cancel()

	ip, err := service.NewWorkflow(conf, provider, logger.Default()).Resolve(ctx)
	if err != nil {
		return err
	}
	name := conf.Domain.String()
	answers, err := dnsquery.Lookup(ctx, c.String(nameserverFlag), name, conf.RecordType())
	if err != nil {
		return err
	}

	w := c.App.Writer
	fmt.Fprintf(w, "Current IP: %s\n", ip)
	if len(answers) == 0 {
		fmt.Fprintf(w, "DNS %s %s: no answer\n", name, conf.RecordType())
	} else {
		fmt.Fprintf(w, "DNS %s %s: %s\n", name, conf.RecordType(), strings.Join(answers, ", "))
	}
	if len(answers) == 1 && sameIP(answers[0], ip) {
		fmt.Fprintln(w, "In sync")
	} else {
		fmt.Fprintln(w, "Out of sync, run update")
	}
	return nil
}

func sameIP(a, b string) bool {
	ipA, ipB := net.ParseIP(a), net.ParseIP(b)
	if ipA == nil || ipB == nil {
		return a == b
	}
	return ipA.Equal(ipB)
}

// readSecret reads a key without echo when stdin is a terminal
var readSecret = func(r *bufio.Reader) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		return strings.TrimSpace(string(b)), err
	}
	return readLine(r)
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", errors.Wrap(err, "read input")
	}
	return strings.TrimSpace(line), nil
}

type prompt struct {
	label  string
	secret bool
	dst    *string
}

func configInit(c *cli.Context) error {
	path := c.String(configFlag)
	if _, err := os.Stat(path); err == nil {
		return errors.Wrap(ErrConfigExists, path)
	}
	r := bufio.NewReader(c.App.Reader)
	w := c.App.ErrWriter

	conf := config.Default()
	keys := &config.Keys{}
	prompts := []prompt{
		{"Base domain (e.g. example.com)", false, &conf.Domain.DomainName},
		{"Subdomain (empty for the apex)", false, &conf.Domain.SubDomain},
		{"Secret API key (empty to use " + config.SecretApiKeyENV + ")", true, &keys.SecretApiKey},
		{"API key (empty to use " + config.ApiKeyENV + ")", true, &keys.ApiKey},
	}
	for _, p := range prompts {
		fmt.Fprintf(w, "%s: ", p.label)
		var (
			v   string
			err error
		)
		if p.secret {
			v, err = readSecret(r)
		} else {
			v, err = readLine(r)
		}
		if err != nil {
			return err
		}
		*p.dst = v
	}
	if conf.Domain.DomainName == "" {
		return errors.Wrap(config.ErrInvalid, "domain.base is required")
	}
	if keys.SecretApiKey != "" || keys.ApiKey != "" {
		conf.Keys = keys
	}
	if err := conf.SaveConfig(path); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Wrote config file at: %s\n", path)
	return nil
}

func configShow(c *cli.Context) error {
	conf, err := config.Read(c.String(configFlag))
	if err != nil {
		return err
	}
	if !conf.HasKeys() {
		// 未设置环境变量时仍然可以显示
		_ = conf.EnvKeys()
	}
	return conf.Masked().Write(c.App.Writer, c.String(formatFlag))
}
