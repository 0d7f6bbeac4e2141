package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"go.uber.org/zap"

	"attendance-tracker/backend/internal/dto"
	"attendance-tracker/backend/internal/repository"
	"attendance-tracker/backend/internal/stats"
)

// ErrNoChartData 没有科目时无法绘图
var ErrNoChartData = errors.New("暂无科目数据，无法生成图表")

// AnalyticsService 统计业务接口；所有结果每次请求重新计算，不做缓存
type AnalyticsService interface {
	Get(ctx context.Context, userID string) (*dto.AnalyticsResponse, error)
	// BarChartPNG 各科出勤率柱状图
	BarChartPNG(ctx context.Context, userID string) ([]byte, error)
	// PieChartPNG 出勤等级分布饼图
	PieChartPNG(ctx context.Context, userID string) ([]byte, error)
}

type analyticsService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewAnalyticsService 创建 AnalyticsService 实例
func NewAnalyticsService(repo *repository.Repository, logger *zap.Logger) AnalyticsService {
	return &analyticsService{repo: repo, logger: logger}
}

func (s *analyticsService) Get(ctx context.Context, userID string) (*dto.AnalyticsResponse, error) {
	subjects, err := s.repo.Subject.List(ctx, userID)
	if err != nil {
		s.logger.Error("查询科目列表失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	entries := toEntries(subjects)
	return &dto.AnalyticsResponse{
		Summary:      stats.Summarize(entries),
		BarSeries:    stats.BarSeries(entries),
		Distribution: stats.Distribution(entries),
		Subjects:     toSubjectResponses(subjects),
	}, nil
}

// ────────────────────── 图表 ──────────────────────

func (s *analyticsService) BarChartPNG(ctx context.Context, userID string) ([]byte, error) {
	entries, err := s.entries(ctx, userID)
	if err != nil {
		return nil, err
	}

	bars := make([]chart.Value, 0, len(entries))
	for _, p := range stats.BarSeries(entries) {
		color := hexColor(stats.Classify(p.Percentage).Color)
		bars = append(bars, chart.Value{
			Label: p.Name,
			Value: float64(p.Percentage),
			Style: chart.Style{FillColor: color, StrokeColor: color},
		})
	}

	graph := chart.BarChart{
		Title:      "各科出勤率 (%)",
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		Width:      max(480, 90*len(bars)+120),
		Height:     400,
		BarWidth:   48,
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: 100},
		},
		Bars: bars,
	}

	return s.render("bar", graph.Render)
}

func (s *analyticsService) PieChartPNG(ctx context.Context, userID string) ([]byte, error) {
	entries, err := s.entries(ctx, userID)
	if err != nil {
		return nil, err
	}

	dist := stats.Distribution(entries)
	values := make([]chart.Value, 0, len(dist))
	for _, c := range dist {
		color := hexColor(c.Color)
		values = append(values, chart.Value{
			Label: fmt.Sprintf("%s (%d)", c.Label, c.Count),
			Value: float64(c.Count),
			Style: chart.Style{FillColor: color, StrokeColor: drawing.ColorWhite},
		})
	}

	graph := chart.PieChart{
		Title:  "出勤等级分布",
		Width:  480,
		Height: 480,
		Values: values,
	}

	return s.render("pie", graph.Render)
}

// ── 内部辅助方法 ──

func (s *analyticsService) entries(ctx context.Context, userID string) ([]stats.Entry, error) {
	subjects, err := s.repo.Subject.List(ctx, userID)
	if err != nil {
		s.logger.Error("查询科目列表失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	if len(subjects) == 0 {
		return nil, ErrNoChartData
	}
	return toEntries(subjects), nil
}

func (s *analyticsService) render(kind string, fn func(chart.RendererProvider, io.Writer) error) ([]byte, error) {
	var buf bytes.Buffer
	if err := fn(chart.PNG, &buf); err != nil {
		s.logger.Error("渲染图表失败", zap.String("chart", kind), zap.Error(err))
		return nil, err
	}
	return buf.Bytes(), nil
}

func hexColor(hex string) drawing.Color {
	return drawing.ColorFromHex(strings.TrimPrefix(hex, "#"))
}
