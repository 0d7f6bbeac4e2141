package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"attendance-tracker/backend/internal/model"
	"attendance-tracker/backend/internal/repository"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	users map[string]*model.User // key: user_id
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	for _, u := range m.users {
		if u.Email == user.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	if user.UserID == "" {
		user.UserID = fmt.Sprintf("user-%d", len(m.users)+1)
	}
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	m.users[user.UserID] = user
	return nil
}

// ── Mock SubjectRepository ──

type mockSubjectRepo struct {
	subjects   map[string]*model.Subject
	order      []string
	attendance *mockAttendanceRepo
	listErr    error
}

func newMockSubjectRepo(attendance *mockAttendanceRepo) *mockSubjectRepo {
	return &mockSubjectRepo{subjects: make(map[string]*model.Subject), attendance: attendance}
}

func (m *mockSubjectRepo) Create(_ context.Context, subject *model.Subject) error {
	if subject.SubjectID == "" {
		subject.SubjectID = fmt.Sprintf("sub-%d", len(m.order)+1)
	}
	m.subjects[subject.SubjectID] = subject
	m.order = append(m.order, subject.SubjectID)
	return nil
}

func (m *mockSubjectRepo) GetByID(_ context.Context, userID, id string) (*model.Subject, error) {
	if s, ok := m.subjects[id]; ok && s.UserID == userID {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSubjectRepo) List(_ context.Context, userID string) ([]model.Subject, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var result []model.Subject
	for _, id := range m.order {
		if s, ok := m.subjects[id]; ok && s.UserID == userID {
			result = append(result, *s)
		}
	}
	return result, nil
}

func (m *mockSubjectRepo) AdjustCounts(_ context.Context, id string, totalDelta, attendedDelta int) error {
	s, ok := m.subjects[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	s.TotalClasses += totalDelta
	s.AttendedClasses += attendedDelta
	return nil
}

func (m *mockSubjectRepo) Delete(_ context.Context, userID, id string) error {
	s, ok := m.subjects[id]
	if !ok || s.UserID != userID {
		return gorm.ErrRecordNotFound
	}
	if m.attendance != nil {
		for rid, r := range m.attendance.records {
			if r.SubjectID == id {
				delete(m.attendance.records, rid)
			}
		}
	}
	delete(m.subjects, id)
	return nil
}

// ── Mock AttendanceRepository ──

type mockAttendanceRepo struct {
	records map[string]*model.AttendanceRecord
	seq     int
	// createErr 注入写入错误，用于模拟唯一索引冲突等
	createErr error
}

func newMockAttendanceRepo() *mockAttendanceRepo {
	return &mockAttendanceRepo{records: make(map[string]*model.AttendanceRecord)}
}

func (m *mockAttendanceRepo) Create(_ context.Context, record *model.AttendanceRecord) error {
	if m.createErr != nil {
		return m.createErr
	}
	for _, r := range m.records {
		if r.SubjectID == record.SubjectID && r.Date.Equal(record.Date) {
			return repository.ErrDuplicateDate
		}
	}
	m.seq++
	if record.RecordID == "" {
		record.RecordID = fmt.Sprintf("rec-%d", m.seq)
	}
	record.CreatedAt = time.Date(2025, 1, 1, 0, 0, m.seq, 0, time.UTC)
	m.records[record.RecordID] = record
	return nil
}

func (m *mockAttendanceRepo) GetByID(_ context.Context, userID, id string) (*model.AttendanceRecord, error) {
	if r, ok := m.records[id]; ok && r.UserID == userID {
		return r, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAttendanceRepo) ExistsOnDate(_ context.Context, subjectID string, date time.Time) (bool, error) {
	for _, r := range m.records {
		if r.SubjectID == subjectID && r.Date.Equal(date) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockAttendanceRepo) ListBySubject(_ context.Context, subjectID string) ([]model.AttendanceRecord, error) {
	var result []model.AttendanceRecord
	for _, r := range m.records {
		if r.SubjectID == subjectID {
			result = append(result, *r)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.After(result[j].Date) })
	return result, nil
}

func (m *mockAttendanceRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.records[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.records, id)
	return nil
}

// ── 测试辅助 ──

type testRepos struct {
	repo       *repository.Repository
	users      *mockUserRepo
	subjects   *mockSubjectRepo
	attendance *mockAttendanceRepo
}

func newTestRepos() *testRepos {
	attendance := newMockAttendanceRepo()
	subjects := newMockSubjectRepo(attendance)
	users := newMockUserRepo()
	return &testRepos{
		repo: &repository.Repository{
			User:       users,
			Subject:    subjects,
			Attendance: attendance,
		},
		users:      users,
		subjects:   subjects,
		attendance: attendance,
	}
}

// addSubject 直接写入一个带计数的科目
func (r *testRepos) addSubject(userID, name string, attended, total int) *model.Subject {
	s := &model.Subject{UserID: userID, Name: name, AttendedClasses: attended, TotalClasses: total}
	_ = r.subjects.Create(context.Background(), s)
	return s
}

var errStorage = errors.New("storage unavailable")

func nopLogger() *zap.Logger { return zap.NewNop() }
