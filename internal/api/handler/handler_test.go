package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"attendance-tracker/backend/internal/api/middleware"
	"attendance-tracker/backend/internal/api/validate"
	"attendance-tracker/backend/internal/dto"
	"attendance-tracker/backend/internal/service"
	"attendance-tracker/backend/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
	validate.Register()
}

// ═══════════════════════════════════════════════════════════
// Mock Services
// ═══════════════════════════════════════════════════════════

// ── Mock AuthService ──

type mockAuthService struct {
	registerResult *dto.TokenResponse
	registerErr    error
	loginResult    *dto.TokenResponse
	loginErr       error
	refreshErr     error
	logoutJTI      string
	logoutErr      error
	meResult       *dto.UserResponse
	meErr          error
}

func (m *mockAuthService) Register(_ context.Context, _ *dto.RegisterRequest) (*dto.TokenResponse, error) {
	return m.registerResult, m.registerErr
}
func (m *mockAuthService) Login(_ context.Context, _ *dto.LoginRequest) (*dto.TokenResponse, error) {
	return m.loginResult, m.loginErr
}
func (m *mockAuthService) RefreshToken(_ context.Context, _ string) (*dto.TokenResponse, error) {
	return &dto.TokenResponse{AccessToken: "new-access"}, m.refreshErr
}
func (m *mockAuthService) Logout(_ context.Context, jti string, _ time.Time) error {
	m.logoutJTI = jti
	return m.logoutErr
}
func (m *mockAuthService) GetCurrentUser(_ context.Context, _ string) (*dto.UserResponse, error) {
	return m.meResult, m.meErr
}

// ── Mock SubjectService ──

type mockSubjectService struct {
	list      []dto.SubjectResponse
	createErr error
	deleteErr error
	created   *dto.CreateSubjectRequest
}

func (m *mockSubjectService) List(_ context.Context, _ string) ([]dto.SubjectResponse, error) {
	return m.list, nil
}
func (m *mockSubjectService) Create(_ context.Context, _ string, req *dto.CreateSubjectRequest) (*dto.SubjectResponse, error) {
	m.created = req
	if m.createErr != nil {
		return nil, m.createErr
	}
	return &dto.SubjectResponse{ID: "sub-1", Name: req.Name}, nil
}
func (m *mockSubjectService) Delete(_ context.Context, _, _ string) error {
	return m.deleteErr
}

// ── Mock AttendanceService ──

type mockAttendanceService struct {
	createErr error
	listErr   error
	deleteErr error
	calls     int
}

func (m *mockAttendanceService) Create(_ context.Context, _ string, req *dto.CreateAttendanceRequest) (*dto.AttendanceResponse, error) {
	m.calls++
	if m.createErr != nil {
		return nil, m.createErr
	}
	return &dto.AttendanceResponse{ID: "rec-1", SubjectID: req.SubjectID, Date: req.Date, Status: req.Status}, nil
}
func (m *mockAttendanceService) ListBySubject(_ context.Context, _, _ string) ([]dto.AttendanceResponse, error) {
	return []dto.AttendanceResponse{{ID: "rec-1", Date: "2025-03-01"}}, m.listErr
}
func (m *mockAttendanceService) Delete(_ context.Context, _, _ string) error {
	return m.deleteErr
}

// ── Mock ExportService ──

type mockExportService struct {
	buf      *bytes.Buffer
	filename string
	err      error
}

func (m *mockExportService) ExportWorkbook(_ context.Context, _ string) (*bytes.Buffer, string, error) {
	return m.buf, m.filename, m.err
}
func (m *mockExportService) ExportCalendar(_ context.Context, _, _ string) (*bytes.Buffer, string, error) {
	return m.buf, m.filename, m.err
}

// ── Mock AnalyticsService ──

type mockAnalyticsService struct {
	chartErr error
}

func (m *mockAnalyticsService) Get(_ context.Context, _ string) (*dto.AnalyticsResponse, error) {
	return &dto.AnalyticsResponse{}, nil
}
func (m *mockAnalyticsService) BarChartPNG(_ context.Context, _ string) ([]byte, error) {
	return []byte("\x89PNG"), m.chartErr
}
func (m *mockAnalyticsService) PieChartPNG(_ context.Context, _ string) ([]byte, error) {
	return []byte("\x89PNG"), m.chartErr
}

// ═══════════════════════════════════════════════════════════
// Test Helpers
// ═══════════════════════════════════════════════════════════

func setAuth(c *gin.Context) {
	c.Set(middleware.ContextUserID, "test-user-id")
	c.Set(middleware.ContextTokenID, "test-jti")
	c.Set(middleware.ContextTokenExp, time.Now().Add(15*time.Minute))
}

// authed 包装 handler，模拟 JWTAuth 已注入用户
func authed(h gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		setAuth(c)
		h(c)
	}
}

func jsonBody(v interface{}) io.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

func serve(r *gin.Engine, method, path string, body io.Reader) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	r.ServeHTTP(w, req)
	return w
}

func parseResponse(w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp
}

// ═══════════════════════════════════════════════════════════
// AuthHandler Tests
// ═══════════════════════════════════════════════════════════

func TestAuthHandler_Login_Success(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{loginResult: &dto.TokenResponse{AccessToken: "a", RefreshToken: "r", ExpiresIn: 900}})
	r := gin.New()
	r.POST("/auth/login", h.Login)

	w := serve(r, "POST", "/auth/login", jsonBody(dto.LoginRequest{Email: "a@example.com", Password: "secret1"}))
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 0 {
		t.Errorf("expected code 0, got %d", resp.Code)
	}
}

func TestAuthHandler_Login_BadJSON(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})
	r := gin.New()
	r.POST("/auth/login", h.Login)

	w := serve(r, "POST", "/auth/login", strings.NewReader("invalid json"))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{loginErr: service.ErrInvalidCredentials})
	r := gin.New()
	r.POST("/auth/login", h.Login)

	w := serve(r, "POST", "/auth/login", jsonBody(dto.LoginRequest{Email: "a@example.com", Password: "wrong"}))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != response.CodeInvalidCredentials {
		t.Errorf("expected error code 11001, got %d", resp.Code)
	}
}

func TestAuthHandler_Register_EmailTaken(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{registerErr: service.ErrEmailTaken})
	r := gin.New()
	r.POST("/auth/register", h.Register)

	w := serve(r, "POST", "/auth/register", jsonBody(dto.RegisterRequest{Name: "A", Email: "a@example.com", Password: "secret1"}))
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != response.CodeEmailTaken {
		t.Errorf("expected error code 11002, got %d", resp.Code)
	}
}

func TestAuthHandler_Register_ShortPassword(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})
	r := gin.New()
	r.POST("/auth/register", h.Register)

	w := serve(r, "POST", "/auth/register", jsonBody(dto.RegisterRequest{Name: "A", Email: "a@example.com", Password: "123"}))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestAuthHandler_Refresh_Invalid(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{refreshErr: service.ErrInvalidRefreshToken})
	r := gin.New()
	r.POST("/auth/refresh", h.RefreshToken)

	w := serve(r, "POST", "/auth/refresh", jsonBody(dto.RefreshTokenRequest{RefreshToken: "old"}))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestAuthHandler_Logout_UsesTokenID(t *testing.T) {
	mock := &mockAuthService{}
	h := NewAuthHandler(mock)
	r := gin.New()
	r.POST("/auth/logout", authed(h.Logout))

	w := serve(r, "POST", "/auth/logout", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if mock.logoutJTI != "test-jti" {
		t.Errorf("expected jti test-jti, got %q", mock.logoutJTI)
	}
}

func TestAuthHandler_Me_Unauthenticated(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})
	r := gin.New()
	r.GET("/auth/me", h.Me)

	w := serve(r, "GET", "/auth/me", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// SubjectHandler Tests
// ═══════════════════════════════════════════════════════════

func TestSubjectHandler_Create_BlankName(t *testing.T) {
	mock := &mockSubjectService{}
	h := NewSubjectHandler(mock)
	r := gin.New()
	r.POST("/subjects", authed(h.CreateSubject))

	w := serve(r, "POST", "/subjects", jsonBody(map[string]string{"name": "   "}))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if mock.created != nil {
		t.Error("空白名称不应到达 Service")
	}
}

func TestSubjectHandler_Create_Success(t *testing.T) {
	h := NewSubjectHandler(&mockSubjectService{})
	r := gin.New()
	r.POST("/subjects", authed(h.CreateSubject))

	w := serve(r, "POST", "/subjects", jsonBody(map[string]string{"name": "数学"}))
	if w.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", w.Code)
	}
}

func TestSubjectHandler_Delete_NotFound(t *testing.T) {
	h := NewSubjectHandler(&mockSubjectService{deleteErr: service.ErrSubjectNotFound})
	r := gin.New()
	r.DELETE("/subjects/:id", authed(h.DeleteSubject))

	w := serve(r, "DELETE", "/subjects/missing", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != response.CodeSubjectNotFound {
		t.Errorf("expected error code 12001, got %d", resp.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// AttendanceHandler Tests
// ═══════════════════════════════════════════════════════════

func TestAttendanceHandler_Create_Duplicate(t *testing.T) {
	h := NewAttendanceHandler(&mockAttendanceService{createErr: service.ErrAttendanceDuplicate}, &mockExportService{})
	r := gin.New()
	r.POST("/attendance", authed(h.CreateAttendance))

	w := serve(r, "POST", "/attendance", jsonBody(dto.CreateAttendanceRequest{SubjectID: "s1", Date: "2025-03-01", Status: "present"}))
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != response.CodeAttendanceDuplicate {
		t.Errorf("expected error code 13001, got %d", resp.Code)
	}
	if resp.Message != service.ErrAttendanceDuplicate.Error() {
		t.Errorf("expected message %q, got %q", service.ErrAttendanceDuplicate.Error(), resp.Message)
	}
}

func TestAttendanceHandler_Create_InvalidInput(t *testing.T) {
	cases := map[string]dto.CreateAttendanceRequest{
		"缺少日期": {SubjectID: "s1", Status: "present"},
		"非法日期": {SubjectID: "s1", Date: "2025-13-01", Status: "present"},
		"非法状态": {SubjectID: "s1", Date: "2025-03-01", Status: "late"},
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			mock := &mockAttendanceService{}
			h := NewAttendanceHandler(mock, &mockExportService{})
			r := gin.New()
			r.POST("/attendance", authed(h.CreateAttendance))

			w := serve(r, "POST", "/attendance", jsonBody(body))
			if w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", w.Code)
			}
			if mock.calls != 0 {
				t.Error("校验失败不应调用 Service")
			}
		})
	}
}

func TestAttendanceHandler_Delete_NotFound(t *testing.T) {
	h := NewAttendanceHandler(&mockAttendanceService{deleteErr: service.ErrAttendanceNotFound}, &mockExportService{})
	r := gin.New()
	r.DELETE("/attendance/:id", authed(h.DeleteAttendance))

	w := serve(r, "DELETE", "/attendance/rec-x", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != response.CodeAttendanceNotFound {
		t.Errorf("expected error code 13002, got %d", resp.Code)
	}
}

func TestAttendanceHandler_ExportCalendar(t *testing.T) {
	export := &mockExportService{buf: bytes.NewBufferString("BEGIN:VCALENDAR"), filename: "数学.ics"}
	h := NewAttendanceHandler(&mockAttendanceService{}, export)
	r := gin.New()
	r.GET("/subjects/:id/attendance.ics", authed(h.ExportCalendar))

	w := serve(r, "GET", "/subjects/s1/attendance.ics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("unexpected content type %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "filename*=UTF-8''") {
		t.Errorf("unexpected content disposition %q", cd)
	}
}

// ═══════════════════════════════════════════════════════════
// AnalyticsHandler Tests
// ═══════════════════════════════════════════════════════════

func TestAnalyticsHandler_Chart_NoData(t *testing.T) {
	h := NewAnalyticsHandler(&mockAnalyticsService{chartErr: service.ErrNoChartData})
	r := gin.New()
	r.GET("/analytics/charts/bar.png", authed(h.BarChart))

	w := serve(r, "GET", "/analytics/charts/bar.png", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestAnalyticsHandler_Chart_PNG(t *testing.T) {
	h := NewAnalyticsHandler(&mockAnalyticsService{})
	r := gin.New()
	r.GET("/analytics/charts/pie.png", authed(h.PieChart))

	w := serve(r, "GET", "/analytics/charts/pie.png", nil)
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "image/png" {
		t.Errorf("expected 200 image/png, got %d %s", w.Code, w.Header().Get("Content-Type"))
	}
}

// ═══════════════════════════════════════════════════════════
// BodyLimit
// ═══════════════════════════════════════════════════════════

func TestBindJSON_BodyTooLarge(t *testing.T) {
	h := NewSubjectHandler(&mockSubjectService{})
	r := gin.New()
	r.Use(middleware.BodyLimit(16))
	r.POST("/subjects", authed(h.CreateSubject))

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/subjects", jsonBody(map[string]string{"name": strings.Repeat("x", 64)}))
	req.Header.Set("Content-Type", "application/json")
	req.ContentLength = -1 // 模拟分块传输，绕过长度预检
	r.ServeHTTP(w, req)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", w.Code)
	}
}
