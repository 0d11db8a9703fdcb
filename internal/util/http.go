package util

import (
	"encoding/json"
	"fmt"
	"github.com/pkg/errors"
	"io"
	"net/http"
)

// StatusError is returned for responses outside the 2xx range.
// Body holds the raw response so callers can still read an API error document.
type StatusError struct {
	URL        string
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned HTTP %d: %s", e.URL, e.StatusCode, string(e.Body))
}

// CreateHTTPClient Create Default HTTP Client
// 不设置 Timeout, 请求由调用方的 context 取消
func CreateHTTPClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	return &http.Client{
		Transport: transport,
	}
}

// GetHTTPResponse 处理HTTP结果，返回序列化的json
func GetHTTPResponse(resp *http.Response, url string, err error, result interface{}) error {
	body, err := GetHTTPResponseOrg(resp, url, err)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && result != nil && len(se.Body) > 0 {
			// best effort: API error documents are still JSON
			_ = json.Unmarshal(se.Body, result)
		}
		return err
	}
	if result == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, result); err != nil {
		return errors.Wrapf(err, "decode response from %s", url)
	}
	return nil
}

// GetHTTPResponseOrg 处理HTTP结果，返回byte
func GetHTTPResponseOrg(resp *http.Response, url string, err error) ([]byte, error) {
	if err != nil {
		return nil, errors.Wrapf(err, "request %s", url)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "read response from %s", url)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return body, &StatusError{URL: url, StatusCode: resp.StatusCode, Body: body}
	}
	return body, nil
}
