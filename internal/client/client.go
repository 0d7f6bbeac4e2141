// Package client 访问出勤服务 HTTP API 的协作方实现
//
// 调用方显式注入 Credentials，不读取任何全局状态。所有失败都会被归类为
// apperr 中的五种错误之一，服务端返回的 message 原样保留。
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"attendance-tracker/backend/internal/model"
	"attendance-tracker/backend/pkg/apperr"
	"attendance-tracker/backend/pkg/response"
)

// Credentials 当前登录身份；零值表示未登录
type Credentials struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	UserID       string `json:"user_id"`
	Name         string `json:"name"`
}

// Valid 是否持有 Access Token
func (c Credentials) Valid() bool { return c.Token != "" }

// Subject 客户端侧科目视图
type Subject struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	TotalClasses    int    `json:"total_classes"`
	AttendedClasses int    `json:"attended_classes"`
}

// Record 客户端侧出勤记录
type Record struct {
	ID        string
	SubjectID string
	Date      time.Time // UTC 零点
	Status    model.AttendanceStatus
}

// Client HTTP 协作方
type Client struct {
	baseURL string
	creds   Credentials
	http    *http.Client
	logger  *zap.Logger
}

// Option 构造选项
type Option func(*Client)

// WithHTTPClient 替换底层 http.Client（测试或自定义传输）
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout 单次请求超时
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithLogger 注入日志
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New 创建 Client
func New(baseURL string, creds Credentials, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
		http:    &http.Client{Timeout: 10 * time.Second},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Credentials 返回当前注入的身份
func (c *Client) Credentials() Credentials { return c.creds }

// ── 默认提示语 ──

const (
	msgAuth      = "登录已失效，请重新登录"
	msgConflict  = "该日期已有出勤记录"
	msgNotFound  = "资源不存在或已被删除"
	msgTransient = "网络或服务异常，请稍后重试"
)

// envelope 服务端统一响应结构
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// do 发送请求并把 data 解码到 out；out 为 nil 时忽略响应体
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}, authed bool) error {
	if authed && !c.creds.Valid() {
		return apperr.New(apperr.KindAuth, msgAuth)
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return apperr.Wrap(apperr.KindTransient, msgTransient, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return apperr.Wrap(apperr.KindTransient, msgTransient, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.New().String())
	if authed {
		req.Header.Set("Authorization", "Bearer "+c.creds.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("请求失败", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return apperr.Wrap(apperr.KindTransient, msgTransient, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperr.Wrap(apperr.KindTransient, msgTransient, err)
	}

	var env envelope
	_ = json.Unmarshal(raw, &env)

	if resp.StatusCode >= 300 {
		c.logger.Debug("服务端返回错误",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.Int("code", env.Code),
			zap.String("message", env.Message),
		)
		return classify(resp.StatusCode, env)
	}

	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return apperr.Wrap(apperr.KindTransient, msgTransient, fmt.Errorf("解析响应失败: %w", err))
		}
	}
	return nil
}

// classify 把 HTTP 状态码与业务码映射为错误类别
func classify(status int, env envelope) error {
	cause := fmt.Errorf("HTTP %d (code %d)", status, env.Code)
	pick := func(fallback string) string {
		if env.Message != "" {
			return env.Message
		}
		return fallback
	}

	switch {
	case status == http.StatusUnauthorized:
		return apperr.Wrap(apperr.KindAuth, pick(msgAuth), cause)
	case status == http.StatusConflict, env.Code == response.CodeAttendanceDuplicate:
		return apperr.Wrap(apperr.KindConflict, pick(msgConflict), cause)
	case status == http.StatusNotFound:
		return apperr.Wrap(apperr.KindNotFound, pick(msgNotFound), cause)
	default:
		return apperr.Wrap(apperr.KindTransient, pick(msgTransient), cause)
	}
}

func escape(id string) string { return url.PathEscape(id) }

// download 获取二进制附件；失败时按 JSON 错误体分类
func (c *Client) download(ctx context.Context, path string) ([]byte, error) {
	if !c.creds.Valid() {
		return nil, apperr.New(apperr.KindAuth, msgAuth)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransient, msgTransient, err)
	}
	req.Header.Set("X-Request-ID", uuid.New().String())
	req.Header.Set("Authorization", "Bearer "+c.creds.Token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransient, msgTransient, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransient, msgTransient, err)
	}
	if resp.StatusCode >= 300 {
		var env envelope
		_ = json.Unmarshal(raw, &env)
		return nil, classify(resp.StatusCode, env)
	}
	return raw, nil
}
