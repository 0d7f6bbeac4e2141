// Package apperr 客户端侧错误分类
//
// 协作方（HTTP 存储）返回的所有失败都会被归入五类之一，
// 上层据此决定：本地提示、原样展示、跳转登录或提示重试。
package apperr

import (
	"errors"
	"fmt"
)

// Kind 错误类别
type Kind int

const (
	// KindTransient 网络/服务端等其他失败，提示重试，从不自动重试
	KindTransient Kind = iota
	// KindValidation 本地校验失败（缺少日期、科目名为空），不会发起网络请求
	KindValidation
	// KindConflict 同一科目同一天重复记录
	KindConflict
	// KindNotFound 科目或记录已不存在
	KindNotFound
	// KindAuth 凭证缺失或过期，调用方应跳转登录
	KindAuth
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindAuth:
		return "auth"
	default:
		return "transient"
	}
}

// Error 带类别的错误；Message 为可直接展示给用户的文本
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New 创建指定类别的错误
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap 包装底层错误
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Validation 本地校验错误
func Validation(message string) *Error { return New(KindValidation, message) }

// KindOf 提取错误类别；未分类的错误视为 Transient
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindTransient
}

// MessageOf 提取用户可见文本，未分类错误返回空串
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return ""
}

func IsValidation(err error) bool { return err != nil && KindOf(err) == KindValidation }
func IsConflict(err error) bool   { return err != nil && KindOf(err) == KindConflict }
func IsNotFound(err error) bool   { return err != nil && KindOf(err) == KindNotFound }
func IsAuth(err error) bool       { return err != nil && KindOf(err) == KindAuth }
