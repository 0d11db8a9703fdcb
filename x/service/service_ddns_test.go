package service

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jxo-me/porkbun-ddns/config"
	"github.com/jxo-me/porkbun-ddns/consts"
	corehook "github.com/jxo-me/porkbun-ddns/core/hook"
	"github.com/jxo-me/porkbun-ddns/internal/porkbuntest"
	"github.com/jxo-me/porkbun-ddns/sdk/cache"
	"github.com/jxo-me/porkbun-ddns/sdk/ddns/porkbun"
	"github.com/jxo-me/porkbun-ddns/sdk/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHook struct {
	mu     sync.Mutex
	events []corehook.Event
}

func (h *recordingHook) String() string { return "recording" }

func (h *recordingHook) ExecHook(_ context.Context, e corehook.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, e)
	return nil
}

func (h *recordingHook) Events() []corehook.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]corehook.Event(nil), h.events...)
}

func newService(t *testing.T, srv *porkbuntest.Server, conf *config.Config) (*DDNSService, *recordingHook) {
	t.Helper()
	pb, err := porkbun.New(srv.Endpoint(), porkbun.ApiKey{
		SecretKey: porkbuntest.SecretKey,
		AccessKey: porkbuntest.AccessKey,
	})
	require.NoError(t, err)
	s, err := NewDDNS(conf, pb, logger.Nop())
	require.NoError(t, err)
	h := &recordingHook{}
	s.Hook = h
	s.waitNetwork = false
	return s, h
}

func TestRunOnce_CacheSkipsQuery(t *testing.T) {
	t.Setenv(cache.IPCacheTimesENV, "2")
	srv := porkbuntest.NewServer()
	defer srv.Close()
	s, h := newService(t, srv, testConfig("home"))
	ctx := context.Background()

	result, err := s.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, ActionCreated, result.Action)
	assert.Len(t, srv.Paths(), 3)

	// unchanged IP: only ping, no retrieve
	for i := 0; i < 2; i++ {
		result, err = s.RunOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, ActionNoOp, result.Action)
	}
	assert.Len(t, srv.Paths(), 5)

	// forced query
	result, err = s.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, ActionNoOp, result.Action)
	assert.Equal(t, "/dns/retrieveByNameType/example.com/A/home", srv.Paths()[6])

	events := h.Events()
	require.Len(t, events, 1, "unchanged runs do not fire the hook")
	assert.Equal(t, corehook.Event{
		IP:         "198.51.100.7",
		Domain:     "home.example.com",
		RecordType: "A",
		Status:     consts.UpdatedSuccess,
	}, events[0])
}

func TestRunOnce_FailureResetsCache(t *testing.T) {
	srv := porkbuntest.NewServer()
	defer srv.Close()
	s, h := newService(t, srv, testConfig("home"))
	srv.Fail("create", "ERROR")

	_, err := s.RunOnce(context.Background())
	require.ErrorIs(t, err, porkbun.ErrCreate)
	assert.Equal(t, "", s.IpCache.GetAddr())

	srv.Fail("create", "")
	result, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ActionCreated, result.Action)

	events := h.Events()
	require.Len(t, events, 2)
	assert.Equal(t, consts.UpdatedFailed, events[0].Status)
	assert.Equal(t, consts.UpdatedSuccess, events[1].Status)
}

func TestRunOnce_PingFailureCounts(t *testing.T) {
	srv := porkbuntest.NewServer()
	defer srv.Close()
	s, h := newService(t, srv, testConfig("home"))
	srv.SetYourIP(nil)

	_, err := s.RunOnce(context.Background())
	require.ErrorIs(t, err, porkbun.ErrNoIP)
	assert.Equal(t, 1, s.IpCache.GetFailedTimes())
	require.Len(t, h.Events(), 1)
	assert.Equal(t, consts.UpdatedFailed, h.Events()[0].Status)
}

func TestStartStop(t *testing.T) {
	srv := porkbuntest.NewServer()
	defer srv.Close()
	s, _ := newService(t, srv, testConfig("home"))

	errCh := make(chan error, 1)
	go func() { errCh <- s.Start() }()

	require.Eventually(t, func() bool {
		return len(srv.Records("example.com", "A", "home")) == 1
	}, 5*time.Second, 10*time.Millisecond, "first run happens immediately")

	require.NoError(t, s.Stop())
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after Stop")
	}
	assert.Error(t, s.Start(), "a stopped service cannot be restarted")
	assert.NoError(t, s.Stop())
}

func TestStart_RunBoundedByInterval(t *testing.T) {
	hang := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer hang.Close()
	pb, err := porkbun.New(hang.URL+"/api/json/v3", porkbun.ApiKey{
		SecretKey: porkbuntest.SecretKey,
		AccessKey: porkbuntest.AccessKey,
	})
	require.NoError(t, err)
	s, err := NewDDNS(testConfig("home"), pb, logger.Nop())
	require.NoError(t, err)
	h := &recordingHook{}
	s.Hook = h
	s.waitNetwork = false
	s.Delay = 100 * time.Millisecond

	go func() { _ = s.Start() }()
	require.Eventually(t, func() bool {
		events := h.Events()
		return len(events) > 0 && events[0].Status == consts.UpdatedFailed
	}, 5*time.Second, 10*time.Millisecond, "a stuck request is cancelled after one interval")
	require.NoError(t, s.Stop())
}

func TestServiceIdentity(t *testing.T) {
	srv := porkbuntest.NewServer()
	defer srv.Close()
	conf := testConfig("home")
	s, _ := newService(t, srv, conf)
	assert.Equal(t, "porkbun:home.example.com/A", s.String())
	assert.Equal(t, conf.Hash(), s.Hash())
	assert.Equal(t, 5*time.Minute, s.Delay)
}

func TestNewDDNS_Webhook(t *testing.T) {
	got := make(chan string, 1)
	hookSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		got <- string(b)
	}))
	defer hookSrv.Close()
	srv := porkbuntest.NewServer()
	defer srv.Close()

	conf := testConfig("home")
	conf.Webhook = &config.Webhook{URL: hookSrv.URL, RequestBody: "#{domain} #{result}"}
	pb, err := porkbun.New(srv.Endpoint(), porkbun.ApiKey{SecretKey: porkbuntest.SecretKey, AccessKey: porkbuntest.AccessKey})
	require.NoError(t, err)
	s, err := NewDDNS(conf, pb, logger.Nop())
	require.NoError(t, err)
	require.NotNil(t, s.Hook)

	_, err = s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "home.example.com Success", <-got)
}
