package service

import (
	"context"
	"errors"
	"testing"

	"attendance-tracker/backend/internal/dto"
	"attendance-tracker/backend/internal/stats"
)

func TestSubjectCreate_TrimsAndStartsAtZero(t *testing.T) {
	repos := newTestRepos()
	svc := NewSubjectService(repos.repo, nopLogger())

	got, err := svc.Create(context.Background(), "u1", &dto.CreateSubjectRequest{Name: "  线性代数  "})
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	if got.Name != "线性代数" {
		t.Errorf("期望名称去除空格，实际=%q", got.Name)
	}
	if got.TotalClasses != 0 || got.AttendedClasses != 0 || got.AttendancePercentage != 0 {
		t.Errorf("新科目计数应为 0: %+v", got)
	}
	if got.Status.Category != stats.Poor {
		t.Errorf("0%% 应为 Poor，实际=%s", got.Status.Category)
	}
}

func TestSubjectCreate_BlankName(t *testing.T) {
	svc := NewSubjectService(newTestRepos().repo, nopLogger())
	for _, name := range []string{"", "   ", "\t"} {
		if _, err := svc.Create(context.Background(), "u1", &dto.CreateSubjectRequest{Name: name}); !errors.Is(err, ErrSubjectNameRequired) {
			t.Errorf("名称 %q 期望 ErrSubjectNameRequired，实际: %v", name, err)
		}
	}
}

func TestSubjectList_DecoratesStatus(t *testing.T) {
	repos := newTestRepos()
	repos.addSubject("u1", "数学", 15, 20)
	repos.addSubject("u1", "物理", 15, 21)
	repos.addSubject("u2", "别人的", 1, 1)
	svc := NewSubjectService(repos.repo, nopLogger())

	list, err := svc.List(context.Background(), "u1")
	if err != nil {
		t.Fatalf("List 失败: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("期望 2 个科目，实际=%d", len(list))
	}
	if list[0].AttendancePercentage != 75 || list[0].Status.Category != stats.Good {
		t.Errorf("数学期望 75/Good，实际 %d/%s", list[0].AttendancePercentage, list[0].Status.Category)
	}
	if list[1].AttendancePercentage != 71 || list[1].Status.Category != stats.Average {
		t.Errorf("物理期望 71/Average，实际 %d/%s", list[1].AttendancePercentage, list[1].Status.Category)
	}
}

func TestSubjectDelete_CascadesRecords(t *testing.T) {
	repos := newTestRepos()
	sub := repos.addSubject("u1", "数学", 0, 0)
	att := NewAttendanceService(repos.repo, nopLogger())
	ctx := context.Background()
	for _, d := range []string{"2025-03-01", "2025-03-02"} {
		if _, err := att.Create(ctx, "u1", &dto.CreateAttendanceRequest{SubjectID: sub.SubjectID, Date: d, Status: "present"}); err != nil {
			t.Fatalf("创建出勤失败: %v", err)
		}
	}

	svc := NewSubjectService(repos.repo, nopLogger())
	if err := svc.Delete(ctx, "u1", sub.SubjectID); err != nil {
		t.Fatalf("Delete 应成功: %v", err)
	}
	if len(repos.attendance.records) != 0 {
		t.Errorf("出勤记录应一并删除，剩余 %d", len(repos.attendance.records))
	}
	if err := svc.Delete(ctx, "u1", sub.SubjectID); !errors.Is(err, ErrSubjectNotFound) {
		t.Errorf("重复删除期望 ErrSubjectNotFound，实际: %v", err)
	}
}

func TestSubjectDelete_OtherUser(t *testing.T) {
	repos := newTestRepos()
	sub := repos.addSubject("u1", "数学", 0, 0)
	svc := NewSubjectService(repos.repo, nopLogger())

	if err := svc.Delete(context.Background(), "u2", sub.SubjectID); !errors.Is(err, ErrSubjectNotFound) {
		t.Errorf("期望 ErrSubjectNotFound，实际: %v", err)
	}
}
