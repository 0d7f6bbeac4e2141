package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"attendance-tracker/backend/internal/model"
	"attendance-tracker/backend/internal/repository"
	"attendance-tracker/backend/internal/stats"
)

// ── 导出模块业务错误 ──

var ErrExportGenerateFail = errors.New("生成导出文件失败")

// ExportService 导出业务接口
//
// 导出结果以 bytes.Buffer 返回，由 Handler 层设置响应头后写入 Response。
type ExportService interface {
	// ExportWorkbook 导出全部科目与出勤明细为 Excel
	ExportWorkbook(ctx context.Context, userID string) (*bytes.Buffer, string, error)
	// ExportCalendar 导出单个科目的出勤记录为 iCalendar，每条记录一个全天事件
	ExportCalendar(ctx context.Context, userID, subjectID string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger, now: time.Now}
}

// ═══════════════════════════════════════════════════════════
// ExportWorkbook — 导出 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - Sheet "概览"：科目 | 总课时 | 出勤 | 出勤率 | 等级，末行为整体出勤率
//   - Sheet "出勤明细"：科目 | 日期 | 状态，每个科目内按日期倒序

func (s *exportService) ExportWorkbook(ctx context.Context, userID string) (*bytes.Buffer, string, error) {
	// 1. 查询科目
	subjects, err := s.repo.Subject.List(ctx, userID)
	if err != nil {
		s.logger.Error("查询科目列表失败", zap.String("user_id", userID), zap.Error(err))
		return nil, "", err
	}

	// 2. 查询每个科目的出勤明细
	recordsBySubject := make(map[string][]model.AttendanceRecord, len(subjects))
	for _, sub := range subjects {
		records, err := s.repo.Attendance.ListBySubject(ctx, sub.SubjectID)
		if err != nil {
			s.logger.Error("查询出勤记录失败", zap.String("subject_id", sub.SubjectID), zap.Error(err))
			return nil, "", err
		}
		recordsBySubject[sub.SubjectID] = records
	}

	// 3. 生成 Excel
	f := excelize.NewFile()
	defer f.Close()

	summarySheet := "概览"
	idx, _ := f.NewSheet(summarySheet)
	f.SetActiveSheet(idx)
	// 删除默认 Sheet1
	f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	f.SetColWidth(summarySheet, "A", "A", 24)
	f.SetColWidth(summarySheet, "B", "E", 12)
	for i, h := range []string{"科目", "总课时", "出勤", "出勤率", "等级"} {
		f.SetCellValue(summarySheet, cell(colName(i), 1), h)
	}
	f.SetCellStyle(summarySheet, "A1", "E1", headerStyle)

	row := 2
	for _, sub := range subjects {
		pct := stats.PercentageOf(sub.AttendedClasses, sub.TotalClasses)
		status := stats.Classify(pct)
		f.SetCellValue(summarySheet, cell("A", row), sub.Name)
		f.SetCellValue(summarySheet, cell("B", row), sub.TotalClasses)
		f.SetCellValue(summarySheet, cell("C", row), sub.AttendedClasses)
		f.SetCellValue(summarySheet, cell("D", row), fmt.Sprintf("%d%%", pct))
		f.SetCellValue(summarySheet, cell("E", row), string(status.Category))

		fill, _ := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Color: []string{status.Color}, Pattern: 1},
		})
		f.SetCellStyle(summarySheet, cell("E", row), cell("E", row), fill)
		row++
	}
	f.SetCellValue(summarySheet, cell("A", row), "整体出勤率")
	f.SetCellValue(summarySheet, cell("D", row), fmt.Sprintf("%d%%", stats.OverallPercentage(toEntries(subjects))))

	recordSheet := "出勤明细"
	f.NewSheet(recordSheet)
	f.SetColWidth(recordSheet, "A", "A", 24)
	f.SetColWidth(recordSheet, "B", "C", 14)
	for i, h := range []string{"科目", "日期", "状态"} {
		f.SetCellValue(recordSheet, cell(colName(i), 1), h)
	}
	f.SetCellStyle(recordSheet, "A1", "C1", headerStyle)

	row = 2
	for _, sub := range subjects {
		for _, r := range recordsBySubject[sub.SubjectID] {
			f.SetCellValue(recordSheet, cell("A", row), sub.Name)
			f.SetCellValue(recordSheet, cell("B", row), r.Date.Format(model.DateLayout))
			f.SetCellValue(recordSheet, cell("C", row), statusLabel(r.Status))
			row++
		}
	}

	// 4. 写入 buffer
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("出勤记录_%s.xlsx", s.now().Format("20060102"))
	return buf, filename, nil
}

// ═══════════════════════════════════════════════════════════
// ExportCalendar — 导出 iCalendar
// ═══════════════════════════════════════════════════════════

func (s *exportService) ExportCalendar(ctx context.Context, userID, subjectID string) (*bytes.Buffer, string, error) {
	subject, err := s.repo.Subject.GetByID(ctx, userID, subjectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrSubjectNotFound
		}
		s.logger.Error("查询科目失败", zap.String("subject_id", subjectID), zap.Error(err))
		return nil, "", err
	}

	records, err := s.repo.Attendance.ListBySubject(ctx, subjectID)
	if err != nil {
		s.logger.Error("查询出勤记录失败", zap.String("subject_id", subjectID), zap.Error(err))
		return nil, "", err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//attendance-tracker//attendance export//ZH")
	cal.SetName(subject.Name)

	stamp := s.now().UTC()
	for _, r := range records {
		evt := cal.AddEvent(r.RecordID + "@attendance-tracker")
		evt.SetSummary(fmt.Sprintf("%s：%s", subject.Name, statusLabel(r.Status)))
		evt.SetDtStampTime(stamp)
		evt.SetAllDayStartAt(r.Date)
		evt.SetAllDayEndAt(r.Date.AddDate(0, 0, 1))
	}

	buf := bytes.NewBufferString(cal.Serialize())
	return buf, fmt.Sprintf("%s.ics", subject.Name), nil
}

// ── 辅助函数 ──

func statusLabel(status model.AttendanceStatus) string {
	if status == model.AttendancePresent {
		return "出勤"
	}
	return "缺勤"
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
