package server

import (
	"encoding/json"
	"sync"

	"soundswap/logger"
	"soundswap/model"
)

// StatusBoard 保存每个域最近的状态快照。
// 调度协程通过 PublishStatus 写入，HTTP 处理器只读快照，不直接访问引擎。
type StatusBoard struct {
	mu       sync.RWMutex
	order    []string
	statuses map[string]model.DomainStatus
	hub      *Hub
}

// NewStatusBoard order 决定列表接口的顺序；hub 可以为 nil
func NewStatusBoard(order []string, hub *Hub) *StatusBoard {
	return &StatusBoard{
		order:    append([]string(nil), order...),
		statuses: make(map[string]model.DomainStatus, len(order)),
		hub:      hub,
	}
}

// PublishStatus 实现 domain.StatusSink
func (b *StatusBoard) PublishStatus(status model.DomainStatus) {
	b.mu.Lock()
	if _, known := b.statuses[status.Domain]; !known && !b.inOrder(status.Domain) {
		b.order = append(b.order, status.Domain)
	}
	b.statuses[status.Domain] = status
	b.mu.Unlock()

	if b.hub == nil {
		return
	}
	summary := status
	summary.Catalog = nil
	data, err := json.Marshal(summary)
	if err != nil {
		logger.Error("序列化域状态失败", logger.String("domain", status.Domain), logger.ErrorField(err))
		return
	}
	b.hub.Broadcast(&WSMessage{Type: MsgTypeStatus, Domain: status.Domain, Data: data})
}

func (b *StatusBoard) inOrder(domain string) bool {
	for _, d := range b.order {
		if d == domain {
			return true
		}
	}
	return false
}

// Status 返回一个域的快照
func (b *StatusBoard) Status(domain string) (model.DomainStatus, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	st, ok := b.statuses[domain]
	return st, ok
}

// Summaries 按固定顺序返回所有域的快照，不含目录
func (b *StatusBoard) Summaries() []model.DomainStatus {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]model.DomainStatus, 0, len(b.order))
	for _, d := range b.order {
		st, ok := b.statuses[d]
		if !ok {
			st = model.DomainStatus{Domain: d}
		}
		st.Catalog = nil
		out = append(out, st)
	}
	return out
}
