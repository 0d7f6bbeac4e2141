// Package session 单个科目的出勤标记会话
//
// 状态流转：Idle → LoadingHistory → Ready → Marking → (Success | Failed) → Ready，
// Ready 下可进入 Deleting 再回到 Ready。每次 Open 递增代数，
// 已被 Close 或再次 Open 取代的请求结果一律丢弃。
// 同一会话同时只允许一个 Mark 或 Delete 在途，且须等历史加载完成；
// 其余请求在本地被拒绝，不排队。
package session

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"attendance-tracker/backend/internal/client"
	"attendance-tracker/backend/internal/model"
	"attendance-tracker/backend/pkg/apperr"
)

// NoticeTTL 成功提示的自动消失时间
const NoticeTTL = 3000 * time.Millisecond

var (
	// ErrBusy 历史仍在加载或已有 Mark/Delete 在途，请求未发出
	ErrBusy = errors.New("session: 上一个操作尚未完成")
	// ErrStale 结果属于已被取代的会话代数，已丢弃
	ErrStale = errors.New("session: 会话已关闭或切换，结果已丢弃")
	// ErrNotOpen 会话未打开
	ErrNotOpen = errors.New("session: 会话未打开")
)

// ── 提示语 ──

const (
	msgDateRequired   = "请先选择日期"
	msgInvalidStatus  = "出勤状态只能是 present 或 absent"
	msgMarked         = "出勤已记录"
	msgDeleted        = "记录已删除"
	msgDuplicate      = "该日期已有出勤记录"
	msgSubjectMissing = "科目不存在或已被删除"
	msgRecordMissing  = "记录不存在或已被删除"
	msgRetry          = "操作失败，请稍后重试"
	msgHistoryFailed  = "加载出勤历史失败，请稍后重试"
)

// State 会话状态
type State int

const (
	Idle State = iota
	LoadingHistory
	Ready
	Marking
	Success
	Failed
	Deleting
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case LoadingHistory:
		return "loading_history"
	case Ready:
		return "ready"
	case Marking:
		return "marking"
	case Success:
		return "success"
	case Failed:
		return "failed"
	case Deleting:
		return "deleting"
	default:
		return "unknown"
	}
}

// Store 出勤记录存储协作方
type Store interface {
	ListAttendance(ctx context.Context, subjectID string) ([]client.Record, error)
	CreateAttendance(ctx context.Context, subjectID string, date time.Time, status model.AttendanceStatus) (client.Record, error)
	DeleteAttendance(ctx context.Context, recordID string) error
}

// Refresher 会话关闭后刷新科目计数的一方
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Session 出勤标记会话；方法可在多个 goroutine 中调用
type Session struct {
	store     Store
	refresher Refresher
	logger    *zap.Logger
	now       func() time.Time

	mu        sync.Mutex
	state     State
	gen       uint64
	subjectID string
	history   []client.Record
	pending   time.Time // 零值表示未选择
	inFlight  bool
	err       error
	notice    *Notice
}

// Option 构造选项
type Option func(*Session)

// WithClock 注入时钟
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithLogger 注入日志
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// New 创建会话；refresher 可为 nil
func New(store Store, refresher Refresher, opts ...Option) *Session {
	s := &Session{
		store:     store,
		refresher: refresher,
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ────────────────────── Open ──────────────────────

// Open 打开科目会话并加载历史，工作日期默认为今天。
// 加载失败时会话保持打开，错误可通过 Err 读取；AuthError 会终止会话。
func (s *Session) Open(ctx context.Context, subjectID string) error {
	s.mu.Lock()
	s.resetLocked()
	s.gen++
	gen := s.gen
	s.state = LoadingHistory
	s.subjectID = subjectID
	s.pending = calendarDate(s.now())
	s.mu.Unlock()

	records, err := s.store.ListAttendance(ctx, subjectID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return ErrStale
	}
	if err != nil {
		return s.failLocked(err, msgHistoryFailed, Ready)
	}
	s.history = sortDesc(records)
	s.state = Ready
	return nil
}

// ────────────────────── SelectDate ──────────────────────

// SelectDate 设置下一次 Mark 使用的日期；零值清除已选日期
func (s *Session) SelectDate(date time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Idle {
		return ErrNotOpen
	}
	if date.IsZero() {
		s.pending = time.Time{}
		return nil
	}
	s.pending = calendarDate(date)
	return nil
}

// ────────────────────── Mark ──────────────────────

// Mark 以已选日期记录出勤。成功后全量重新加载历史并清空已选日期；
// 重复日期失败时保留已选日期。
func (s *Session) Mark(ctx context.Context, status model.AttendanceStatus) error {
	s.mu.Lock()
	if err := s.readyLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.pending.IsZero() {
		err := apperr.Validation(msgDateRequired)
		s.setFailureLocked(err, msgDateRequired, Failed)
		s.mu.Unlock()
		return err
	}
	if !status.Valid() {
		err := apperr.Validation(msgInvalidStatus)
		s.setFailureLocked(err, msgInvalidStatus, Failed)
		s.mu.Unlock()
		return err
	}
	s.inFlight = true
	s.state = Marking
	gen, subjectID, date := s.gen, s.subjectID, s.pending
	s.mu.Unlock()

	_, err := s.store.CreateAttendance(ctx, subjectID, date, status)
	var (
		records []client.Record
		listErr error
	)
	if err == nil {
		records, listErr = s.store.ListAttendance(ctx, subjectID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return ErrStale
	}
	s.inFlight = false

	if err != nil {
		switch apperr.KindOf(err) {
		case apperr.KindConflict:
			msg := apperr.MessageOf(err)
			if msg == "" {
				msg = msgDuplicate
			}
			return s.failLocked(err, msg, Failed)
		case apperr.KindNotFound:
			return s.failLocked(err, msgSubjectMissing, Failed)
		default:
			return s.failLocked(err, msgRetry, Failed)
		}
	}

	s.pending = time.Time{}
	s.succeedLocked(msgMarked, Success)
	s.applyHistoryLocked(records, listErr)
	if apperr.IsAuth(listErr) {
		return listErr
	}
	return nil
}

// ────────────────────── Delete ──────────────────────

// Delete 删除一条记录。失败提示不会自动消失，直到下一次成功操作或 Dismiss。
func (s *Session) Delete(ctx context.Context, recordID string) error {
	s.mu.Lock()
	if err := s.readyLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.inFlight = true
	s.state = Deleting
	gen, subjectID := s.gen, s.subjectID
	s.mu.Unlock()

	err := s.store.DeleteAttendance(ctx, recordID)
	var (
		records []client.Record
		listErr error
	)
	if err == nil {
		records, listErr = s.store.ListAttendance(ctx, subjectID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return ErrStale
	}
	s.inFlight = false

	if err != nil {
		if apperr.IsNotFound(err) {
			return s.failLocked(err, msgRecordMissing, Ready)
		}
		return s.failLocked(err, msgRetry, Ready)
	}

	s.succeedLocked(msgDeleted, Ready)
	s.applyHistoryLocked(records, listErr)
	if apperr.IsAuth(listErr) {
		return listErr
	}
	return nil
}

// ────────────────────── Close / Dismiss ──────────────────────

// Close 丢弃历史与已选日期并回到 Idle，随后通知 Refresher 刷新科目计数。
// 刷新失败只记录日志，不影响关闭。
func (s *Session) Close(ctx context.Context) {
	s.mu.Lock()
	subjectID := s.subjectID
	s.resetLocked()
	s.gen++
	s.mu.Unlock()

	if s.refresher == nil {
		return
	}
	if err := s.refresher.Refresh(ctx); err != nil {
		s.logger.Warn("会话关闭后刷新科目失败", zap.String("subject_id", subjectID), zap.Error(err))
	}
}

// Dismiss 清除当前提示与错误
func (s *Session) Dismiss() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notice = nil
	s.err = nil
	if s.state == Success || s.state == Failed {
		s.state = Ready
	}
}

// ────────────────────── 只读访问 ──────────────────────

// State 当前状态
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SubjectID 当前会话的科目
func (s *Session) SubjectID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subjectID
}

// History 出勤历史副本，按日期倒序
func (s *Session) History() []client.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]client.Record(nil), s.history...)
}

// PendingDate 已选日期
func (s *Session) PendingDate() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending, !s.pending.IsZero()
}

// Err 最近一次失败；成功操作后清空
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Busy 是否有 Mark/Delete 在途
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

// Notice 在 now 时刻仍有效的提示
func (s *Session) Notice(now time.Time) (Notice, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.notice == nil || !s.notice.Active(now) {
		return Notice{}, false
	}
	return *s.notice, true
}

// ── 内部辅助方法（调用方持有锁） ──

func (s *Session) resetLocked() {
	s.state = Idle
	s.subjectID = ""
	s.history = nil
	s.pending = time.Time{}
	s.inFlight = false
	s.err = nil
	s.notice = nil
}

// readyLocked Mark/Delete 只能在历史加载完成且没有操作在途时开始；
// 加载中或操作中一律返回 ErrBusy
func (s *Session) readyLocked() error {
	switch s.state {
	case Idle:
		return ErrNotOpen
	case Ready, Success, Failed:
		if s.inFlight {
			return ErrBusy
		}
		return nil
	default:
		return ErrBusy
	}
}

// failLocked 记录失败；AuthError 直接终止会话
func (s *Session) failLocked(err error, message string, next State) error {
	if apperr.IsAuth(err) {
		s.resetLocked()
		s.gen++
		return err
	}
	s.setFailureLocked(err, message, next)
	return err
}

func (s *Session) setFailureLocked(err error, message string, next State) {
	s.err = err
	s.notice = &Notice{Kind: NoticeError, Message: message}
	s.state = next
}

func (s *Session) succeedLocked(message string, next State) {
	s.err = nil
	s.notice = &Notice{Kind: NoticeSuccess, Message: message, Expires: s.now().Add(NoticeTTL)}
	s.state = next
}

// applyHistoryLocked 写入重新加载的历史；加载失败时保留旧历史并记录错误
func (s *Session) applyHistoryLocked(records []client.Record, listErr error) {
	if listErr == nil {
		s.history = sortDesc(records)
		return
	}
	if apperr.IsAuth(listErr) {
		s.resetLocked()
		s.gen++
		return
	}
	s.logger.Warn("重新加载出勤历史失败", zap.String("subject_id", s.subjectID), zap.Error(listErr))
	s.err = listErr
}

func sortDesc(records []client.Record) []client.Record {
	out := append([]client.Record(nil), records...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out
}

// calendarDate 取本地日历日期，表示为 UTC 零点
func calendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
