package porkbun

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/jxo-me/porkbun-ddns/config"
	"github.com/jxo-me/porkbun-ddns/core/ddns"
	"github.com/jxo-me/porkbun-ddns/core/logger"
	"github.com/jxo-me/porkbun-ddns/internal/util"
	"github.com/pkg/errors"
)

const (
	Code          string = "porkbun"
	StatusSuccess string = "SUCCESS"
)

var (
	ErrNoIP      = errors.New("couldn't retrieve IP address")
	ErrNoRecords = errors.New("couldn't retrieve records")
	ErrDelete    = errors.New("couldn't delete record")
	ErrCreate    = errors.New("couldn't create record")
	ErrNoKeys    = errors.New("porkbun api keys are required")
)

type ApiKey struct {
	SecretKey string `json:"secretapikey"`
	AccessKey string `json:"apikey"`
}

// PorkbunResponse 所有接口共有的字段
type PorkbunResponse struct {
	Status  string  `json:"status"`
	Message *string `json:"message,omitempty"`
}

func (r *PorkbunResponse) ok() bool {
	return r.Status == StatusSuccess
}

// reason 失败原因, 用于包装错误
func (r *PorkbunResponse) reason() string {
	if r.Message != nil && *r.Message != "" {
		return *r.Message
	}
	if r.Status == "" {
		return "no status in response"
	}
	return "status " + r.Status
}

type PorkbunPingResponse struct {
	PorkbunResponse
	// yourIp 不是字符串时视为没有返回 IP
	YourIP json.RawMessage `json:"yourIp"`
}

type PorkbunDomainQueryResponse struct {
	PorkbunResponse
	Records []ddns.Record `json:"records"`
}

type PorkbunDomainCreateVO struct {
	ApiKey
	Name    string  `json:"name"`
	Type    string  `json:"type"`
	Content string  `json:"content"`
	TTL     *string `json:"ttl,omitempty"`
	Prio    *string `json:"prio,omitempty"`
	Notes   *string `json:"notes,omitempty"`
}

type Option func(*Porkbun)

func WithHTTPClient(client *http.Client) Option {
	return func(pb *Porkbun) {
		pb.client = client
	}
}

func WithLogger(log logger.ILogger) Option {
	return func(pb *Porkbun) {
		pb.logger = log
	}
}

// Porkbun client for the Porkbun JSON API v3
type Porkbun struct {
	endpoint string
	key      ApiKey
	client   *http.Client
	logger   logger.ILogger
}

// New 创建客户端, 凭证必须完整
func New(endpoint string, key ApiKey, opts ...Option) (*Porkbun, error) {
	if key.SecretKey == "" || key.AccessKey == "" {
		return nil, ErrNoKeys
	}
	if endpoint == "" {
		return nil, errors.New("porkbun endpoint is required")
	}
	pb := &Porkbun{
		endpoint: endpoint,
		key:      key,
	}
	for _, opt := range opts {
		opt(pb)
	}
	if pb.client == nil {
		pb.client = util.CreateHTTPClient()
	}
	if pb.logger == nil {
		pb.logger = logger.Default()
	}
	pb.logger = pb.logger.WithFields(map[string]any{"provider": Code})
	return pb, nil
}

// NewFromConfig 按配置选择 endpoint 并读取凭证
func NewFromConfig(conf *config.Config, opts ...Option) (*Porkbun, error) {
	if !conf.HasKeys() {
		return nil, ErrNoKeys
	}
	return New(conf.Endpoint(), ApiKey{
		SecretKey: conf.Keys.SecretApiKey,
		AccessKey: conf.Keys.ApiKey,
	}, opts...)
}

func (pb *Porkbun) String() string {
	return Code
}

func (pb *Porkbun) Endpoint() string {
	return pb.endpoint
}

// Ping 获取 API 看到的公网 IP
func (pb *Porkbun) Ping(ctx context.Context) (string, error) {
	var resp PorkbunPingResponse
	if err := pb.request(ctx, "/ping", &pb.key, &resp); err != nil {
		return "", pb.failed(err, &resp.PorkbunResponse, ErrNoIP)
	}
	var ip string
	if err := json.Unmarshal(resp.YourIP, &ip); err != nil || ip == "" {
		if resp.Status != "" && !resp.ok() {
			return "", errors.Wrap(ErrNoIP, resp.reason())
		}
		return "", ErrNoIP
	}
	pb.logger.Debugf("ping answered %s", ip)
	return ip, nil
}

// Retrieve 查询现有记录
func (pb *Porkbun) Retrieve(ctx context.Context, domain config.Domain, recordType string) ([]ddns.Record, error) {
	var resp PorkbunDomainQueryResponse
	path := fmt.Sprintf("/dns/retrieveByNameType/%s/%s/%s", domain.DomainName, recordType, domain.SubDomain)
	if err := pb.request(ctx, path, &pb.key, &resp); err != nil {
		return nil, pb.failed(err, &resp.PorkbunResponse, ErrNoRecords)
	}
	if !resp.ok() {
		return nil, errors.Wrap(ErrNoRecords, resp.reason())
	}
	pb.logger.Debugf("retrieved %d %s record(s) for %s", len(resp.Records), recordType, domain)
	return resp.Records, nil
}

// Delete 按 ID 删除记录
func (pb *Porkbun) Delete(ctx context.Context, domain config.Domain, id string) error {
	var resp PorkbunResponse
	path := fmt.Sprintf("/dns/delete/%s/%s", domain.DomainName, id)
	if err := pb.request(ctx, path, &pb.key, &resp); err != nil {
		return pb.failed(err, &resp, ErrDelete)
	}
	if !resp.ok() {
		return errors.Wrap(ErrDelete, resp.reason())
	}
	return nil
}

// Create 创建记录
func (pb *Porkbun) Create(ctx context.Context, domain config.Domain, record ddns.Record) error {
	var resp PorkbunResponse
	body := &PorkbunDomainCreateVO{
		ApiKey:  pb.key,
		Name:    domain.SubDomain,
		Type:    record.Type,
		Content: record.Content,
		TTL:     record.TTL,
		Prio:    record.Prio,
		Notes:   record.Notes,
	}
	if err := pb.request(ctx, "/dns/create/"+domain.DomainName, body, &resp); err != nil {
		return pb.failed(err, &resp, ErrCreate)
	}
	if !resp.ok() {
		return errors.Wrap(ErrCreate, resp.reason())
	}
	return nil
}

// failed 非 2xx 但带有 API 错误文档时归类为对应操作的错误, 其余按网络错误返回
func (pb *Porkbun) failed(err error, resp *PorkbunResponse, kind error) error {
	var se *util.StatusError
	if errors.As(err, &se) && resp.Status != "" && !resp.ok() {
		pb.logger.Debugf("%s", err)
		return errors.Wrap(kind, resp.reason())
	}
	return err
}

// request 统一请求接口
func (pb *Porkbun) request(ctx context.Context, path string, data interface{}, result interface{}) error {
	url := pb.endpoint + path
	jsonStr, err := json.Marshal(data)
	if err != nil {
		return errors.Wrap(err, "encode request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonStr))
	if err != nil {
		return errors.Wrapf(err, "create request %s", url)
	}
	req.Header.Set("Content-Type", "application/json")

	pb.logger.Tracef("POST %s", url)
	resp, err := pb.client.Do(req)
	return util.GetHTTPResponse(resp, url, err, result)
}
