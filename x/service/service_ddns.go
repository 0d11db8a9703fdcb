package service

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jxo-me/porkbun-ddns/config"
	"github.com/jxo-me/porkbun-ddns/consts"
	iCache "github.com/jxo-me/porkbun-ddns/core/cache"
	"github.com/jxo-me/porkbun-ddns/core/ddns"
	corehook "github.com/jxo-me/porkbun-ddns/core/hook"
	"github.com/jxo-me/porkbun-ddns/core/logger"
	"github.com/jxo-me/porkbun-ddns/internal/util"
	"github.com/jxo-me/porkbun-ddns/sdk/cache"
	"github.com/jxo-me/porkbun-ddns/x/hook"
	"github.com/pkg/errors"
)

// DDNSService runs the workflow on a ticker until stopped
type DDNSService struct {
	DDNS     ddns.IDDNS
	IpCache  iCache.IIpCache
	Conf     *config.Config
	Delay    time.Duration
	Hook     corehook.IHook
	workflow *Workflow
	mu       sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
	status   int32 // status is the current timer status.
	logger   logger.ILogger
	// waitNetwork 测试中可关闭
	waitNetwork bool
}

func NewDDNS(conf *config.Config, d ddns.IDDNS, log logger.ILogger) (*DDNSService, error) {
	if log == nil {
		log = logger.Default()
	}
	delay, err := conf.DaemonInterval()
	if err != nil {
		return nil, err
	}
	s := &DDNSService{
		DDNS:        d,
		Conf:        conf,
		Delay:       delay,
		IpCache:     &cache.IpCache{},
		workflow:    NewWorkflow(conf, d, log),
		status:      consts.StatusReady,
		logger:      log.WithFields(map[string]any{"service": "ddns"}),
		waitNetwork: true,
	}
	if conf.Webhook != nil && conf.Webhook.URL != "" {
		s.Hook = hook.NewHook(conf.Webhook, log)
	}
	return s, nil
}

// String service name, one service per domain and record type
func (s *DDNSService) String() string {
	return s.DDNS.String() + ":" + s.Conf.Domain.String() + "/" + s.Conf.RecordType()
}

func (s *DDNSService) Hash() string {
	return s.Conf.Hash()
}

// RunOnce 执行一次更新; IP 未变化时在缓存次数内跳过记录查询
func (s *DDNSService) RunOnce(ctx context.Context) (*Result, error) {
	ip, err := s.workflow.Resolve(ctx)
	if err != nil {
		s.IpCache.IncreaseFailedTimes()
		s.notify(ctx, "", consts.UpdatedFailed)
		return nil, err
	}
	s.IpCache.ResetFailedTimes()

	if !s.IpCache.Check(ip) {
		s.logger.Debugf("IP %s unchanged, %d check(s) left before querying again", ip, s.IpCache.GetTimes()-1)
		return &Result{
			Action:     ActionNoOp,
			Domain:     s.Conf.Domain,
			RecordType: s.Conf.RecordType(),
			IP:         ip,
		}, nil
	}

	result, err := s.workflow.Reconcile(ctx, ip)
	if err != nil {
		// 重置cache, 下次必定查询
		s.IpCache.Reset()
		s.notify(ctx, ip, consts.UpdatedFailed)
		return nil, err
	}
	s.notify(ctx, ip, result.Status())
	return result, nil
}

func (s *DDNSService) notify(ctx context.Context, ip string, status consts.UpdateStatusType) {
	if s.Hook == nil || status == consts.UpdatedNothing {
		return
	}
	err := s.Hook.ExecHook(ctx, corehook.Event{
		IP:         ip,
		Domain:     s.Conf.Domain.String(),
		RecordType: s.Conf.RecordType(),
		Status:     status,
	})
	if err != nil {
		s.logger.Warnf("Webhook调用失败: %s", err)
	}
}

// Start blocks until Stop is called, running once immediately and then every Delay.
func (s *DDNSService) Start() error {
	s.mu.Lock()
	if !atomic.CompareAndSwapInt32(&s.status, consts.StatusReady, consts.StatusRunning) {
		s.mu.Unlock()
		return errors.Errorf("service %s is not ready to start", s)
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()
	defer close(done)
	defer cancel()

	// 等待网络连接
	if s.waitNetwork {
		if err := s.waitForNetworkConnected(ctx); err != nil {
			return nil
		}
	}

	s.tick(ctx)
	ticker := time.NewTicker(s.Delay)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			switch atomic.LoadInt32(&s.status) {
			case consts.StatusRunning:
				s.tick(ctx)
			case consts.StatusStopped:
				// Do nothing.
			case consts.StatusClosed:
				return nil
			}
		}
	}
}

// tick 单次运行不超过一个周期
func (s *DDNSService) tick(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, s.Delay)
	defer cancel()
	if _, err := s.RunOnce(runCtx); err != nil && ctx.Err() == nil {
		s.logger.Errorf("update failed: %s", err)
	}
}

// Pause keeps the loop alive without running updates
func (s *DDNSService) Pause() {
	atomic.CompareAndSwapInt32(&s.status, consts.StatusRunning, consts.StatusStopped)
}

func (s *DDNSService) Resume() {
	atomic.CompareAndSwapInt32(&s.status, consts.StatusStopped, consts.StatusRunning)
}

func (s *DDNSService) Stop() error {
	s.mu.Lock()
	prev := atomic.SwapInt32(&s.status, consts.StatusClosed)
	cancel, done := s.cancel, s.done
	s.mu.Unlock()
	if prev == consts.StatusReady || prev == consts.StatusClosed {
		return nil
	}
	if cancel != nil {
		cancel()
		<-done
	}
	return nil
}

// waitForNetworkConnected 等待网络连接后继续
func (s *DDNSService) waitForNetworkConnected(ctx context.Context) error {
	// 延时 5 秒
	timeout := time.Second * consts.NetworkConnectedTimeout
	addr := s.DDNS.Endpoint()
	if addr == "" {
		return nil
	}
	client := util.CreateHTTPClient()
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			// 网络已连接
			_ = resp.Body.Close()
			return nil
		}
		s.logger.Infof("等待网络连接：%s。%s 后重试...", err, timeout)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(timeout):
		}
	}
}
