package stats

// Entry 单个科目的计数
type Entry struct {
	Name     string
	Attended int
	Total    int
}

// Percentage 该科目出勤率
func (e Entry) Percentage() int { return PercentageOf(e.Attended, e.Total) }

// BarPoint 柱状图数据点
type BarPoint struct {
	Name       string `json:"name"`
	Percentage int    `json:"percentage"`
}

// CategoryCount 饼图数据：某等级下的科目数
type CategoryCount struct {
	Category Category `json:"category"`
	Label    string   `json:"label"`
	Count    int      `json:"count"`
	Color    string   `json:"color"`
}

// Summary 概览统计
type Summary struct {
	TotalSubjects     int `json:"total_subjects"`
	TotalClasses      int `json:"total_classes"`
	AttendedClasses   int `json:"attended_classes"`
	OverallPercentage int `json:"overall_percentage"`
}

// OverallPercentage 各科目出勤率的算术平均（四舍五入），不按课时加权；
// 课时少的科目与课时多的科目权重相同。空输入返回 0。
func OverallPercentage(entries []Entry) int {
	if len(entries) == 0 {
		return 0
	}
	sum := 0
	for _, e := range entries {
		sum += e.Percentage()
	}
	return roundDiv(sum, len(entries))
}

// BarSeries 按输入顺序输出每个科目的出勤率
func BarSeries(entries []Entry) []BarPoint {
	points := make([]BarPoint, 0, len(entries))
	for _, e := range entries {
		points = append(points, BarPoint{Name: e.Name, Percentage: e.Percentage()})
	}
	return points
}

// Distribution 各等级的科目数，按 Good、Average、Poor 排列，省略计数为 0 的等级。
// 不修改输入。
func Distribution(entries []Entry) []CategoryCount {
	counts := make(map[Category]int, len(Categories))
	for _, e := range entries {
		counts[Classify(e.Percentage()).Category]++
	}

	result := make([]CategoryCount, 0, len(Categories))
	for _, c := range Categories {
		n := counts[c]
		if n == 0 {
			continue
		}
		result = append(result, CategoryCount{
			Category: c,
			Label:    string(c) + " Attendance",
			Count:    n,
			Color:    statusByCategory[c].Color,
		})
	}
	return result
}

// Summarize 汇总科目数、课时与整体出勤率
func Summarize(entries []Entry) Summary {
	s := Summary{TotalSubjects: len(entries)}
	for _, e := range entries {
		s.TotalClasses += e.Total
		s.AttendedClasses += e.Attended
	}
	s.OverallPercentage = OverallPercentage(entries)
	return s
}
