package service

import (
	"context"
	"fmt"

	"github.com/jxo-me/porkbun-ddns/config"
	"github.com/jxo-me/porkbun-ddns/consts"
	"github.com/jxo-me/porkbun-ddns/core/ddns"
	"github.com/jxo-me/porkbun-ddns/core/logger"
	"github.com/pkg/errors"
)

// Action what a run did to the record
type Action string

const (
	ActionNoOp    Action = "NoOp"
	ActionCreated Action = "Created"
)

// Result 一次更新的结果
type Result struct {
	Action     Action
	Domain     config.Domain
	RecordType string
	IP         string
	// Replaced the record deleted before creating, nil when there was none
	Replaced *ddns.Record
}

func (r *Result) Status() consts.UpdateStatusType {
	if r.Action == ActionNoOp {
		return consts.UpdatedNothing
	}
	return consts.UpdatedSuccess
}

// String status line printed on success
func (r *Result) String() string {
	if r.Action == ActionNoOp {
		return fmt.Sprintf("Existing %s record already matches answer %s", r.RecordType, r.IP)
	}
	return fmt.Sprintf("Creating record: %s with answer of %s", r.Domain, r.IP)
}

// Workflow resolves the public IP and reconciles one record with it
type Workflow struct {
	conf   *config.Config
	dns    ddns.IDDNS
	logger logger.ILogger
}

func NewWorkflow(conf *config.Config, dns ddns.IDDNS, log logger.ILogger) *Workflow {
	if log == nil {
		log = logger.Default()
	}
	return &Workflow{
		conf: conf,
		dns:  dns,
		logger: log.WithFields(map[string]any{
			"domain": conf.Domain.String(),
			"type":   conf.RecordType(),
		}),
	}
}

// Run 获取 IP 并更新记录
func (w *Workflow) Run(ctx context.Context) (*Result, error) {
	ip, err := w.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	return w.Reconcile(ctx, ip)
}

// Resolve 配置了固定地址时直接使用, 否则通过 ping 获取
func (w *Workflow) Resolve(ctx context.Context) (string, error) {
	if w.conf.Ip.Address != "" {
		w.logger.Debugf("using configured address %s", w.conf.Ip.Address)
		return w.conf.Ip.Address, nil
	}
	ip, err := w.dns.Ping(ctx)
	if err != nil {
		return "", err
	}
	w.logger.Debugf("public address is %s", ip)
	return ip, nil
}

// Reconcile 只比较第一条记录; 不同则先删除再创建, 保留 ttl/prio/notes
func (w *Workflow) Reconcile(ctx context.Context, ip string) (*Result, error) {
	domain := w.conf.Domain
	recordType := w.conf.RecordType()
	result := &Result{
		Domain:     domain,
		RecordType: recordType,
		IP:         ip,
	}

	records, err := w.dns.Retrieve(ctx, domain, recordType)
	if err != nil {
		return nil, err
	}

	create := ddns.Record{
		Type:    recordType,
		Content: ip,
	}
	if len(records) > 0 {
		existing := records[0]
		if existing.Content == ip {
			result.Action = ActionNoOp
			w.logger.Infof("%s", result)
			return result, nil
		}
		if err := w.dns.Delete(ctx, domain, existing.ID); err != nil {
			return nil, err
		}
		w.logger.Infof("Deleting existing %s record", recordType)
		create.TTL = existing.TTL
		create.Prio = existing.Prio
		create.Notes = existing.Notes
		result.Replaced = &existing
	} else {
		w.logger.Info("No record to be deleted.")
	}

	if err := w.dns.Create(ctx, domain, create); err != nil {
		if result.Replaced != nil {
			return nil, errors.Wrapf(err, "record %s was deleted", result.Replaced.ID)
		}
		return nil, err
	}
	result.Action = ActionCreated
	w.logger.Infof("%s", result)
	return result, nil
}
