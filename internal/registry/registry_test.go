package registry

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"attendance-tracker/backend/internal/client"
	"attendance-tracker/backend/internal/stats"
	"attendance-tracker/backend/pkg/apperr"
)

type fakeStore struct {
	subjects    []client.Subject
	listCalls   int
	createCalls int
	listErr     error
	deleteErr   error
}

func (f *fakeStore) ListSubjects(context.Context) ([]client.Subject, error) {
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]client.Subject(nil), f.subjects...), nil
}

func (f *fakeStore) CreateSubject(_ context.Context, name string) (client.Subject, error) {
	f.createCalls++
	s := client.Subject{ID: fmt.Sprintf("s%d", len(f.subjects)+1), Name: name}
	f.subjects = append(f.subjects, s)
	return s, nil
}

func (f *fakeStore) DeleteSubject(_ context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for i, s := range f.subjects {
		if s.ID == id {
			f.subjects = append(f.subjects[:i], f.subjects[i+1:]...)
			return nil
		}
	}
	return apperr.New(apperr.KindNotFound, "科目不存在")
}

func TestCreate_TrimsAndRefreshes(t *testing.T) {
	store := &fakeStore{}
	r := New(store, nil)

	s, err := r.Create(context.Background(), "  线性代数  ")
	if err != nil {
		t.Fatalf("Create 失败: %v", err)
	}
	if s.Name != "线性代数" {
		t.Errorf("名称应去除空白，实际=%q", s.Name)
	}
	if got := r.Subjects(); len(got) != 1 || got[0].ID != s.ID {
		t.Errorf("快照应包含新科目，实际=%+v", got)
	}
	if store.listCalls != 1 {
		t.Errorf("期望刷新一次，实际=%d", store.listCalls)
	}
}

func TestCreate_BlankNameRejectedLocally(t *testing.T) {
	store := &fakeStore{}
	r := New(store, nil)

	for _, name := range []string{"", "   ", "\t\n"} {
		if _, err := r.Create(context.Background(), name); !apperr.IsValidation(err) {
			t.Errorf("名称 %q 期望 ValidationError，实际: %v", name, err)
		}
	}
	if store.createCalls != 0 {
		t.Errorf("不应调用存储，实际=%d", store.createCalls)
	}
}

func TestDelete_RefreshesSnapshot(t *testing.T) {
	store := &fakeStore{subjects: []client.Subject{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}}}
	r := New(store, nil)
	ctx := context.Background()
	_ = r.Refresh(ctx)

	if err := r.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete 失败: %v", err)
	}
	if _, ok := r.Get("a"); ok {
		t.Error("删除后不应再能查到")
	}
	if got := r.Subjects(); len(got) != 1 {
		t.Errorf("期望剩余 1 个科目，实际=%d", len(got))
	}
}

func TestDelete_FailureKeepsSnapshot(t *testing.T) {
	store := &fakeStore{subjects: []client.Subject{{ID: "a", Name: "A"}}}
	r := New(store, nil)
	ctx := context.Background()
	_ = r.Refresh(ctx)
	store.deleteErr = apperr.New(apperr.KindTransient, "服务暂不可用")

	if err := r.Delete(ctx, "a"); err == nil {
		t.Fatal("期望失败")
	}
	if _, ok := r.Get("a"); !ok {
		t.Error("失败时快照不应变化")
	}
}

func TestRefresh_FailureKeepsOldSnapshot(t *testing.T) {
	store := &fakeStore{subjects: []client.Subject{{ID: "a", Name: "A"}}}
	r := New(store, nil)
	ctx := context.Background()
	_ = r.Refresh(ctx)

	store.listErr = errors.New("offline")
	if err := r.Refresh(ctx); err == nil {
		t.Fatal("期望失败")
	}
	if len(r.Subjects()) != 1 || !r.Loaded() {
		t.Error("失败时应保留旧快照")
	}
}

func TestSubjects_ReturnsCopy(t *testing.T) {
	store := &fakeStore{subjects: []client.Subject{{ID: "a", Name: "A"}}}
	r := New(store, nil)
	_ = r.Refresh(context.Background())

	got := r.Subjects()
	got[0].Name = "改动"
	if s, _ := r.Get("a"); s.Name != "A" {
		t.Error("修改副本不应影响快照")
	}
}

func TestDashboard(t *testing.T) {
	store := &fakeStore{subjects: []client.Subject{
		{ID: "a", Name: "数学", TotalClasses: 20, AttendedClasses: 15},
		{ID: "b", Name: "物理", TotalClasses: 2, AttendedClasses: 1},
		{ID: "c", Name: "化学"},
	}}
	r := New(store, nil)
	_ = r.Refresh(context.Background())

	d := r.Dashboard()
	if d.Summary.TotalSubjects != 3 || d.Summary.TotalClasses != 22 || d.Summary.AttendedClasses != 16 {
		t.Errorf("汇总错误: %+v", d.Summary)
	}
	// (75 + 50 + 0) / 3 = 41.67
	if d.Summary.OverallPercentage != 42 {
		t.Errorf("期望整体 42，实际=%d", d.Summary.OverallPercentage)
	}
	if len(d.BarSeries) != 3 || d.BarSeries[0].Name != "数学" || d.BarSeries[0].Percentage != 75 {
		t.Errorf("柱状图顺序或数值错误: %+v", d.BarSeries)
	}
	if len(d.Distribution) != 2 || d.Distribution[0].Category != stats.Good || d.Distribution[1].Count != 2 {
		t.Errorf("分布错误: %+v", d.Distribution)
	}
}

func TestDashboard_Empty(t *testing.T) {
	d := New(&fakeStore{}, nil).Dashboard()
	if d.Summary.OverallPercentage != 0 || len(d.BarSeries) != 0 || len(d.Distribution) != 0 {
		t.Errorf("空快照期望全零，实际=%+v", d)
	}
}
