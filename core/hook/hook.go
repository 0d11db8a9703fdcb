package hook

import (
	"context"

	"github.com/jxo-me/porkbun-ddns/consts"
)

// Event 一次更新的结果
type Event struct {
	IP         string
	Domain     string
	RecordType string
	Status     consts.UpdateStatusType
}

type IHook interface {
	String() string
	// ExecHook 通知更新结果, 返回错误只用于记录日志
	ExecHook(ctx context.Context, event Event) error
}
