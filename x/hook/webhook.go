package hook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/jxo-me/porkbun-ddns/config"
	"github.com/jxo-me/porkbun-ddns/consts"
	"github.com/jxo-me/porkbun-ddns/core/hook"
	"github.com/jxo-me/porkbun-ddns/core/logger"
	"github.com/jxo-me/porkbun-ddns/internal/util"
	"github.com/pkg/errors"
)

const (
	Code = "webhook"
)

// Webhook Webhook
type Webhook struct {
	WebhookURL         string
	WebhookRequestBody string
	WebhookHeaders     string
	client             *http.Client
	logger             logger.ILogger
}

// hasJSONPrefix returns true if the string starts with a JSON open brace.
func hasJSONPrefix(s string) bool {
	return strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[")
}

func NewHook(conf *config.Webhook, log logger.ILogger) *Webhook {
	if log == nil {
		log = logger.Default()
	}
	return &Webhook{
		WebhookURL:         conf.URL,
		WebhookRequestBody: conf.RequestBody,
		WebhookHeaders:     conf.Headers,
		client:             util.CreateHTTPClient(),
		logger:             log.WithFields(map[string]any{"hook": Code}),
	}
}

func (w *Webhook) String() string {
	return Code
}

// ExecHook 成功和失败都要触发webhook, 未改变时不触发
func (w *Webhook) ExecHook(ctx context.Context, event hook.Event) error {
	if w.WebhookURL == "" || event.Status == consts.UpdatedNothing {
		return nil
	}

	method := http.MethodGet
	postPara := ""
	contentType := "application/x-www-form-urlencoded"
	if w.WebhookRequestBody != "" {
		method = http.MethodPost
		postPara = w.replacePara(event, w.WebhookRequestBody)
		if json.Valid([]byte(postPara)) {
			contentType = "application/json"
			// 如果 RequestBody 的 JSON 无效但前缀为 JSON 括号则为 JSON
		} else if hasJSONPrefix(postPara) {
			w.logger.Warn("RequestBody 的 JSON 无效！")
		}
	}
	requestURL := w.replacePara(event, w.WebhookURL)
	u, err := url.Parse(requestURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.Errorf("webhook url %q is invalid", requestURL)
	}
	u.RawQuery = u.Query().Encode()
	req, err := http.NewRequestWithContext(ctx, method, u.String(), strings.NewReader(postPara))
	if err != nil {
		return errors.Wrap(err, "create webhook request")
	}

	for key, value := range w.CheckParseHeaders(w.WebhookHeaders) {
		req.Header.Add(key, value)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := w.client.Do(req)
	body, err := util.GetHTTPResponseOrg(resp, u.String(), err)
	if err != nil {
		return errors.Wrap(err, "webhook")
	}
	w.logger.Infof("Webhook调用成功, 返回数据: %q", string(body))
	return nil
}

// replacePara 替换参数
func (w *Webhook) replacePara(event hook.Event, orgPara string) string {
	return strings.NewReplacer(
		"#{ip}", event.IP,
		"#{domain}", event.Domain,
		"#{recordType}", event.RecordType,
		"#{result}", string(event.Status),
	).Replace(orgPara)
}

// CheckParseHeaders 一行一个 Header, 值中可以包含冒号
func (w *Webhook) CheckParseHeaders(headerStr string) (headers map[string]string) {
	headers = make(map[string]string)
	headerArr := strings.Split(strings.ReplaceAll(headerStr, "\r\n", "\n"), "\n")
	for _, headerStr := range headerArr {
		headerStr = strings.TrimSpace(headerStr)
		if headerStr == "" {
			continue
		}
		name, value, ok := strings.Cut(headerStr, ":")
		if !ok || strings.TrimSpace(name) == "" {
			w.logger.Warnf("%s Header不正确", headerStr)
			continue
		}
		headers[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}
	return headers
}
