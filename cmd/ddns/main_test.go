package main

import (
	"bytes"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jxo-me/porkbun-ddns/config"
	"github.com/jxo-me/porkbun-ddns/core/ddns"
	"github.com/jxo-me/porkbun-ddns/internal/porkbuntest"
	"github.com/jxo-me/porkbun-ddns/pkg/overwatch"
	"github.com/miekg/dns"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

type testApp struct {
	stdout bytes.Buffer
	stderr bytes.Buffer
	app    *cli.App
}

func newTestApp(input string) *testApp {
	ta := &testApp{}
	ta.app = newApp(strings.NewReader(input), &ta.stdout, &ta.stderr)
	ta.app.ExitErrHandler = func(*cli.Context, error) {}
	return ta
}

func (ta *testApp) run(args ...string) error {
	return ta.app.Run(append([]string{"porkbun-ddns", "--log-output", "none"}, args...))
}

func writeConfig(t *testing.T, sub string) string {
	t.Helper()
	conf := config.Default()
	conf.Keys = &config.Keys{SecretApiKey: porkbuntest.SecretKey, ApiKey: porkbuntest.AccessKey}
	conf.Domain = config.Domain{SubDomain: sub, DomainName: "example.com"}
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, conf.SaveConfig(path))
	return path
}

func TestUpdate_FirstRunGeneratesConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	ta := newTestApp("")

	err := ta.run("--config", path, "update")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generated config file at: "+path)
	var exitErr cli.ExitCoder
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 1, exitErr.ExitCode())
	assert.FileExists(t, path)
	assert.Empty(t, ta.stdout.String())
}

func TestUpdate_CreateThenNoOp(t *testing.T) {
	srv := porkbuntest.NewServer()
	defer srv.Close()
	path := writeConfig(t, "home")

	ta := newTestApp("")
	require.NoError(t, ta.run("--config", path, "--endpoint", srv.Endpoint(), "update"))
	assert.Equal(t, "No record to be deleted.\nCreating record: home.example.com with answer of 198.51.100.7\n", ta.stdout.String())

	// without a command the update runs as well
	ta = newTestApp("")
	require.NoError(t, ta.run("--config", path, "--endpoint", srv.Endpoint()))
	assert.Equal(t, "Existing A record already matches answer 198.51.100.7\n", ta.stdout.String())
}

func TestUpdate_Replace(t *testing.T) {
	srv := porkbuntest.NewServer()
	defer srv.Close()
	srv.AddRecord("example.com", "home", ddns.Record{Type: "A", Content: "203.0.113.1", TTL: porkbuntest.StringPtr("600")})
	path := writeConfig(t, "home")

	ta := newTestApp("")
	require.NoError(t, ta.run("--config", path, "--endpoint", srv.Endpoint(), "update"))
	assert.Equal(t, "Deleting existing A record\nCreating record: home.example.com with answer of 198.51.100.7\n", ta.stdout.String())

	records := srv.Records("example.com", "A", "home")
	require.Len(t, records, 1)
	assert.Equal(t, "600", *records[0].TTL)
}

func TestUpdate_ShortDaemonInterval(t *testing.T) {
	srv := porkbuntest.NewServer()
	defer srv.Close()
	conf := config.Default()
	conf.Keys = &config.Keys{SecretApiKey: porkbuntest.SecretKey, ApiKey: porkbuntest.AccessKey}
	conf.Domain = config.Domain{SubDomain: "home", DomainName: "example.com"}
	conf.Daemon.Interval = "30s"
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, conf.SaveConfig(path))

	// [daemon] only matters to the daemon
	ta := newTestApp("")
	require.NoError(t, ta.run("--config", path, "--endpoint", srv.Endpoint(), "update"))
	assert.Len(t, srv.Records("example.com", "A", "home"), 1)

	err := newTestApp("").run("--config", path, "--endpoint", srv.Endpoint(), "daemon")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "daemon.interval")
}

func TestUpdate_Failure(t *testing.T) {
	srv := porkbuntest.NewServer()
	defer srv.Close()
	srv.Fail("create", "ERROR")
	path := writeConfig(t, "home")

	ta := newTestApp("")
	err := ta.run("--config", path, "--endpoint", srv.Endpoint(), "update")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "couldn't create record")
	assert.Empty(t, ta.stdout.String())
}

func TestUpdate_MissingEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[domain]\nbase = \"example.com\"\n"), 0600))
	t.Setenv(config.SecretApiKeyENV, "")
	t.Setenv(config.ApiKeyENV, "")
	require.NoError(t, os.Unsetenv(config.SecretApiKeyENV))

	err := newTestApp("").run("--config", path, "update")
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.SecretApiKeyENV)
}

func TestConfigInit(t *testing.T) {
	orig := readSecret
	readSecret = readLine
	defer func() { readSecret = orig }()
	path := filepath.Join(t.TempDir(), "config.toml")

	ta := newTestApp("example.com\nhome\nsk1_abc\npk1_def\n")
	require.NoError(t, ta.run("--config", path, "config", "init"))
	assert.Contains(t, ta.stdout.String(), "Wrote config file at: "+path)
	assert.Contains(t, ta.stderr.String(), "Base domain")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	conf, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "home.example.com", conf.Domain.String())
	assert.Equal(t, "sk1_abc", conf.Keys.SecretApiKey)

	err = newTestApp("").run("--config", path, "config", "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrConfigExists.Error())
}

func TestConfigShow(t *testing.T) {
	path := writeConfig(t, "home")

	ta := newTestApp("")
	require.NoError(t, ta.run("--config", path, "config", "show", "--format", "json"))
	out := ta.stdout.String()
	assert.Contains(t, out, `"base": "example.com"`)
	assert.NotContains(t, out, porkbuntest.SecretKey)
	assert.Contains(t, out, "********")

	err := newTestApp("").run("--config", path, "config", "show", "--format", "xml")
	assert.Error(t, err)
}

func startDNS(t *testing.T, name, answer string) string {
	t.Helper()
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	started := make(chan struct{})
	srv := &dns.Server{
		PacketConn:        pc,
		NotifyStartedFunc: func() { close(started) },
		Handler: dns.HandlerFunc(func(w dns.ResponseWriter, r *dns.Msg) {
			m := new(dns.Msg)
			m.SetReply(r)
			if r.Question[0].Name == dns.Fqdn(name) && r.Question[0].Qtype == dns.TypeA {
				rr, _ := dns.NewRR(fmt.Sprintf("%s 300 IN A %s", dns.Fqdn(name), answer))
				m.Answer = append(m.Answer, rr)
			}
			_ = w.WriteMsg(m)
		}),
	}
	go func() { _ = srv.ActivateAndServe() }()
	<-started
	t.Cleanup(func() { _ = srv.Shutdown() })
	return pc.LocalAddr().String()
}

func TestStatus(t *testing.T) {
	srv := porkbuntest.NewServer()
	defer srv.Close()
	path := writeConfig(t, "home")

	ns := startDNS(t, "home.example.com", "198.51.100.7")
	ta := newTestApp("")
	require.NoError(t, ta.run("--config", path, "--endpoint", srv.Endpoint(), "status", "--nameserver", ns))
	assert.Equal(t, "Current IP: 198.51.100.7\nDNS home.example.com A: 198.51.100.7\nIn sync\n", ta.stdout.String())
	assert.Equal(t, []string{"/ping"}, srv.Paths(), "status never changes records")

	ns = startDNS(t, "home.example.com", "203.0.113.1")
	ta = newTestApp("")
	require.NoError(t, ta.run("--config", path, "--endpoint", srv.Endpoint(), "status", "--nameserver", ns))
	assert.Contains(t, ta.stdout.String(), "Out of sync")
}

func TestVersion(t *testing.T) {
	ta := newTestApp("")
	require.NoError(t, ta.run("version"))
	assert.Contains(t, ta.stdout.String(), Version)
}

func TestProgram_ConfigDidUpdate(t *testing.T) {
	srv := porkbuntest.NewServer()
	defer srv.Close()
	log := zerolog.Nop()
	p := newProgram("unused.toml", srv.Endpoint(), &log)
	p.services = overwatch.NewAppManager(nil)

	conf := config.Default()
	conf.Keys = &config.Keys{SecretApiKey: porkbuntest.SecretKey, ApiKey: porkbuntest.AccessKey}
	conf.Domain = config.Domain{SubDomain: "home", DomainName: "example.com"}
	p.ConfigDidUpdate(*conf)
	<-p.started

	require.Eventually(t, func() bool {
		return len(srv.Records("example.com", "A", "home")) == 1
	}, 5*time.Second, 10*time.Millisecond)
	require.Len(t, p.services.Services(), 1)

	// a different domain replaces the running service
	conf.Domain.SubDomain = "office"
	p.ConfigDidUpdate(*conf)
	require.Eventually(t, func() bool {
		return len(srv.Records("example.com", "A", "office")) == 1
	}, 5*time.Second, 10*time.Millisecond)
	services := p.services.Services()
	require.Len(t, services, 1)
	assert.Equal(t, "porkbun:office.example.com/A", services[0].String())

	require.NoError(t, p.Stop())
	assert.Empty(t, p.services.Services())
}
