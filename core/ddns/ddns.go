package ddns

import (
	"context"

	"github.com/jxo-me/porkbun-ddns/config"
)

// Record a DNS record as the provider reports it
type Record struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Type    string  `json:"type"`
	Content string  `json:"content"`
	TTL     *string `json:"ttl,omitempty"`
	Prio    *string `json:"prio,omitempty"`
	Notes   *string `json:"notes,omitempty"`
}

// IDDNS interface
type IDDNS interface {
	String() string
	// Endpoint GetEndpoint
	Endpoint() string
	// Ping 返回 API 看到的客户端 IP
	Ping(ctx context.Context) (string, error)
	// Retrieve 按名称和类型查询记录
	Retrieve(ctx context.Context, domain config.Domain, recordType string) ([]Record, error)
	Delete(ctx context.Context, domain config.Domain, id string) error
	// Create 创建记录, record.Name 被忽略, 使用 domain.SubDomain
	Create(ctx context.Context, domain config.Domain, record Record) error
}
