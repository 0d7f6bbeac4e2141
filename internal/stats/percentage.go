// Package stats 出勤率计算与聚合
//
// 纯函数，无 I/O；服务端用于装饰科目响应和统计接口，客户端用于渲染概览。
package stats

// ── 阈值与配色 ──

const (
	GoodThreshold    = 75
	AverageThreshold = 65
)

// Category 出勤等级
type Category string

const (
	Good    Category = "Good"
	Average Category = "Average"
	Poor    Category = "Poor"
)

// Categories 固定展示顺序
var Categories = []Category{Good, Average, Poor}

// Status 等级及其展示颜色
type Status struct {
	Category Category `json:"category"`
	Color    string   `json:"color"` // 图表颜色
	Tone     string   `json:"tone"`  // 语义色：success / warning / error
}

var statusByCategory = map[Category]Status{
	Good:    {Category: Good, Color: "#4CAF50", Tone: "success"},
	Average: {Category: Average, Color: "#FFC107", Tone: "warning"},
	Poor:    {Category: Poor, Color: "#F44336", Tone: "error"},
}

// PercentageOf 计算出勤率（0-100 的整数，四舍五入，0.5 向上）。
// total 为 0 时返回 0。attended > total 属于调用方逻辑错误，这里不做截断。
func PercentageOf(attended, total int) int {
	if total <= 0 {
		return 0
	}
	return roundDiv(attended*100, total)
}

// Classify 按阈值分级，每档下界包含在内：75 为 Good，65 为 Average，64 为 Poor
func Classify(percentage int) Status {
	switch {
	case percentage >= GoodThreshold:
		return statusByCategory[Good]
	case percentage >= AverageThreshold:
		return statusByCategory[Average]
	default:
		return statusByCategory[Poor]
	}
}

// StatusOf 返回某个等级的展示信息
func StatusOf(c Category) Status {
	return statusByCategory[c]
}

// roundDiv 非负整数除法，结果四舍五入（half-up）
func roundDiv(num, den int) int {
	if num < 0 {
		return -roundDiv(-num, den)
	}
	return (2*num + den) / (2 * den)
}
