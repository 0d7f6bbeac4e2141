// Package registry 客户端科目列表缓存
//
// 持有当前用户的科目快照；新增、删除后整体重新拉取，不做本地增量修改。
// 同时作为出勤会话关闭后的刷新方。
package registry

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"attendance-tracker/backend/internal/client"
	"attendance-tracker/backend/internal/stats"
	"attendance-tracker/backend/pkg/apperr"
)

const msgNameRequired = "科目名称不能为空"

// Store 科目存储协作方
type Store interface {
	ListSubjects(ctx context.Context) ([]client.Subject, error)
	CreateSubject(ctx context.Context, name string) (client.Subject, error)
	DeleteSubject(ctx context.Context, subjectID string) error
}

// Dashboard 概览页所需的全部聚合数据
type Dashboard struct {
	Summary      stats.Summary
	BarSeries    []stats.BarPoint
	Distribution []stats.CategoryCount
}

// Registry 科目快照
type Registry struct {
	store  Store
	logger *zap.Logger

	mu       sync.RWMutex
	subjects []client.Subject
	loaded   bool
}

// New 创建科目缓存；logger 可为 nil
func New(store Store, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{store: store, logger: logger}
}

// Refresh 重新拉取科目列表并整体替换快照；失败时保留旧快照
func (r *Registry) Refresh(ctx context.Context) error {
	list, err := r.store.ListSubjects(ctx)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.subjects = list
	r.loaded = true
	r.mu.Unlock()
	r.logger.Debug("科目列表已刷新", zap.Int("count", len(list)))
	return nil
}

// Loaded 是否至少成功拉取过一次
func (r *Registry) Loaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loaded
}

// Subjects 快照副本，顺序与服务端一致
func (r *Registry) Subjects() []client.Subject {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]client.Subject(nil), r.subjects...)
}

// Get 按 ID 查找
func (r *Registry) Get(subjectID string) (client.Subject, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.subjects {
		if s.ID == subjectID {
			return s, true
		}
	}
	return client.Subject{}, false
}

// Create 新建科目后刷新快照。名称去除首尾空白后为空则本地拒绝。
func (r *Registry) Create(ctx context.Context, name string) (client.Subject, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return client.Subject{}, apperr.Validation(msgNameRequired)
	}
	created, err := r.store.CreateSubject(ctx, name)
	if err != nil {
		return client.Subject{}, err
	}
	if err := r.Refresh(ctx); err != nil {
		r.logger.Warn("新建科目后刷新失败", zap.String("subject_id", created.ID), zap.Error(err))
	}
	return created, nil
}

// Delete 删除科目（服务端级联删除其出勤记录）后刷新快照
func (r *Registry) Delete(ctx context.Context, subjectID string) error {
	if err := r.store.DeleteSubject(ctx, subjectID); err != nil {
		return err
	}
	if err := r.Refresh(ctx); err != nil {
		r.logger.Warn("删除科目后刷新失败", zap.String("subject_id", subjectID), zap.Error(err))
	}
	return nil
}

// ── 聚合 ──

// Entries 转为统计输入
func (r *Registry) Entries() []stats.Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entries := make([]stats.Entry, 0, len(r.subjects))
	for _, s := range r.subjects {
		entries = append(entries, stats.Entry{Name: s.Name, Attended: s.AttendedClasses, Total: s.TotalClasses})
	}
	return entries
}

// Dashboard 基于当前快照计算概览
func (r *Registry) Dashboard() Dashboard {
	entries := r.Entries()
	return Dashboard{
		Summary:      stats.Summarize(entries),
		BarSeries:    stats.BarSeries(entries),
		Distribution: stats.Distribution(entries),
	}
}
