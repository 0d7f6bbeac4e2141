package session

import "time"

// NoticeKind 提示类型
type NoticeKind int

const (
	NoticeSuccess NoticeKind = iota
	NoticeError
)

// Notice 带截止时间的提示。Expires 为零值表示持续显示，
// 直到被新的提示取代或调用 Dismiss。
type Notice struct {
	Kind    NoticeKind
	Message string
	Expires time.Time
}

// Active 在 now 时刻是否仍应显示
func (n Notice) Active(now time.Time) bool {
	return n.Expires.IsZero() || now.Before(n.Expires)
}
