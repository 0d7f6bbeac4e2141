package client

import (
	"context"
	"net/http"
	"time"

	"attendance-tracker/backend/internal/model"
)

// ────────────────────── 认证 ──────────────────────

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"user"`
}

func (t tokenResponse) credentials() Credentials {
	return Credentials{
		Token:        t.AccessToken,
		RefreshToken: t.RefreshToken,
		UserID:       t.User.ID,
		Name:         t.User.Name,
	}
}

// Register 注册并返回新身份；不修改当前 Client
func (c *Client) Register(ctx context.Context, name, email, password string) (Credentials, error) {
	var out tokenResponse
	body := map[string]string{"name": name, "email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/register", body, &out, false); err != nil {
		return Credentials{}, err
	}
	return out.credentials(), nil
}

// Login 登录并返回新身份
func (c *Client) Login(ctx context.Context, email, password string) (Credentials, error) {
	var out tokenResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", body, &out, false); err != nil {
		return Credentials{}, err
	}
	return out.credentials(), nil
}

// Refresh 用 refresh token 换取新身份
func (c *Client) Refresh(ctx context.Context) (Credentials, error) {
	var out tokenResponse
	body := map[string]string{"refresh_token": c.creds.RefreshToken}
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/refresh", body, &out, false); err != nil {
		return Credentials{}, err
	}
	return out.credentials(), nil
}

// Logout 使当前 Access Token 失效
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/v1/auth/logout", nil, nil, true)
}

// ────────────────────── 科目 ──────────────────────

// ListSubjects 当前用户的全部科目
func (c *Client) ListSubjects(ctx context.Context) ([]Subject, error) {
	var out struct {
		List []Subject `json:"list"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/subjects", nil, &out, true); err != nil {
		return nil, err
	}
	return out.List, nil
}

// CreateSubject 新建科目
func (c *Client) CreateSubject(ctx context.Context, name string) (Subject, error) {
	var out Subject
	if err := c.do(ctx, http.MethodPost, "/api/v1/subjects", map[string]string{"name": name}, &out, true); err != nil {
		return Subject{}, err
	}
	return out, nil
}

// DeleteSubject 删除科目；服务端级联删除其出勤记录
func (c *Client) DeleteSubject(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/subjects/"+escape(id), nil, nil, true)
}

// ────────────────────── 出勤 ──────────────────────

type recordDTO struct {
	ID        string `json:"id"`
	SubjectID string `json:"subject_id"`
	Date      string `json:"date"`
	Status    string `json:"status"`
}

func (r recordDTO) record() Record {
	d, _ := model.ParseDate(r.Date)
	return Record{ID: r.ID, SubjectID: r.SubjectID, Date: d, Status: model.AttendanceStatus(r.Status)}
}

// ListAttendance 科目的全部出勤记录
func (c *Client) ListAttendance(ctx context.Context, subjectID string) ([]Record, error) {
	var out struct {
		List []recordDTO `json:"list"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/subjects/"+escape(subjectID)+"/attendance", nil, &out, true); err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(out.List))
	for _, r := range out.List {
		records = append(records, r.record())
	}
	return records, nil
}

// CreateAttendance 记录出勤；同一天重复记录返回 Conflict
func (c *Client) CreateAttendance(ctx context.Context, subjectID string, date time.Time, status model.AttendanceStatus) (Record, error) {
	var out recordDTO
	body := map[string]string{
		"subject_id": subjectID,
		"date":       date.Format(model.DateLayout),
		"status":     string(status),
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/attendance", body, &out, true); err != nil {
		return Record{}, err
	}
	return out.record(), nil
}

// DeleteAttendance 删除出勤记录
func (c *Client) DeleteAttendance(ctx context.Context, recordID string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/attendance/"+escape(recordID), nil, nil, true)
}

// ────────────────────── 导出 ──────────────────────

// ExportWorkbook 下载全部出勤数据（xlsx）
func (c *Client) ExportWorkbook(ctx context.Context) ([]byte, error) {
	return c.download(ctx, "/api/v1/export/attendance.xlsx")
}

// ExportCalendar 下载单个科目的出勤日历（ics）
func (c *Client) ExportCalendar(ctx context.Context, subjectID string) ([]byte, error) {
	return c.download(ctx, "/api/v1/subjects/"+escape(subjectID)+"/attendance.ics")
}
