package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestOK_Envelope(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	OK(c, gin.H{"n": 1})

	var resp Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if w.Code != http.StatusOK || resp.Code != CodeOK || resp.Message != "success" {
		t.Errorf("响应不符: %d %+v", w.Code, resp)
	}
}

func TestConflict(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	Conflict(c, CodeAttendanceDuplicate, "该科目在这一天已有出勤记录")

	var resp Response
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if w.Code != http.StatusConflict || resp.Code != CodeAttendanceDuplicate {
		t.Errorf("响应不符: %d %+v", w.Code, resp)
	}
}

func TestFile_EncodesFilename(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	File(c, "text/calendar", "高等数学.ics", []byte("BEGIN:VCALENDAR"))

	want := "attachment; filename*=UTF-8''%E9%AB%98%E7%AD%89%E6%95%B0%E5%AD%A6.ics"
	if got := w.Header().Get("Content-Disposition"); got != want {
		t.Errorf("Content-Disposition 期望 %q，实际=%q", want, got)
	}
	if w.Body.String() != "BEGIN:VCALENDAR" {
		t.Error("内容不符")
	}
}
