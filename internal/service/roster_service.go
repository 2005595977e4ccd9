package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"manasa/backend/config"
	"manasa/backend/internal/dto"
	"manasa/backend/internal/identity"
	"manasa/backend/internal/model"
	"manasa/backend/internal/mutation"
	"manasa/backend/internal/projection"
	"manasa/backend/internal/repository"
)

// ── 名册模块业务错误 ──

var (
	ErrStudentNameRequired   = errors.New("يرجى كتابة اسم الطالب")
	ErrStudentHandleInvalid  = errors.New("اسم المستخدم للطالب غير صحيح")
	ErrStudentNotRegistered  = errors.New("هذا الطالب غير مسجل في المنصة")
	ErrStudentAlreadyInGroup = errors.New("هذا الطالب مضاف بالفعل إلى المجموعة")
	ErrStudentNotFound       = errors.New("الطالب غير موجود في هذه المجموعة")
)

// RosterService 名册业务接口
type RosterService interface {
	Students(ctx context.Context, caller *Caller, groupID, query string) ([]model.Student, error)
	AddStudent(ctx context.Context, caller *Caller, groupID string, req *dto.AddStudentRequest) (*model.Group, error)
	UpdateStudent(ctx context.Context, caller *Caller, groupID, studentID string, req *dto.UpdateStudentRequest) (*model.Group, error)
	RemoveStudent(ctx context.Context, caller *Caller, groupID, studentID string, expected *int) (*model.Group, error)
	TogglePaid(ctx context.Context, caller *Caller, groupID, studentID string, expected *int) (*model.Group, error)
	ToggleStar(ctx context.Context, caller *Caller, groupID, studentID string, expected *int) (*model.Group, error)
	History(ctx context.Context, caller *Caller, groupID, studentID string) ([]projection.HistoryEntry, error)
	Attendance(ctx context.Context, caller *Caller, groupID, studentID string) (*projection.Stats, error)
}

type rosterService struct {
	cfg    *config.AuthConfig // 学生用户名规则与注册时一致
	repo   *repository.Repository
	w      *groupWriter
	logger *zap.Logger
}

// NewRosterService 创建 RosterService 实例
func NewRosterService(cfg *config.AuthConfig, repo *repository.Repository, w *groupWriter, logger *zap.Logger) RosterService {
	return &rosterService{cfg: cfg, repo: repo, w: w, logger: logger}
}

func (s *rosterService) Students(ctx context.Context, caller *Caller, groupID, query string) ([]model.Student, error) {
	g, err := s.w.owned(ctx, caller, groupID)
	if err != nil {
		return nil, err
	}
	return projection.FilterStudents(g, query), nil
}

// ────────────────────── AddStudent ──────────────────────

// AddStudent 只能添加已注册的学生账户；存在性检查在加锁前完成
func (s *rosterService) AddStudent(ctx context.Context, caller *Caller, groupID string, req *dto.AddStudentRequest) (*model.Group, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrStudentNameRequired
	}
	handle := identity.NormalizeHandle(req.Username)
	if !identity.ValidHandle(handle, s.cfg.HandleMin, s.cfg.HandleMax) {
		return nil, ErrStudentHandleInvalid
	}

	// 存在性检查与随后的写入属于同一变更意图
	ctx, cancel := mutation.Detach(ctx)
	defer cancel()

	exists, err := s.repo.Account.ExistsStudent(ctx, handle)
	if err != nil {
		s.logger.Error("查询学生账户失败", zap.String("username", handle), zap.Error(err))
		return nil, err
	}
	if !exists {
		return nil, ErrStudentNotRegistered
	}

	return s.w.apply(ctx, caller, groupID, req.ExpectedVersion, func(g *model.Group) error {
		if _, ok := g.FindStudentByUsername(handle); ok {
			return ErrStudentAlreadyInGroup
		}
		g.Students = append(g.Students, model.Student{
			ID:       uuid.NewString(),
			Name:     name,
			Username: handle,
			Paid:     false,
		})
		return nil
	})
}

func (s *rosterService) UpdateStudent(ctx context.Context, caller *Caller, groupID, studentID string, req *dto.UpdateStudentRequest) (*model.Group, error) {
	return s.w.apply(ctx, caller, groupID, req.ExpectedVersion, func(g *model.Group) error {
		i := g.StudentIndex(studentID)
		if i < 0 {
			return ErrStudentNotFound
		}
		st := &g.Students[i]
		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return ErrStudentNameRequired
			}
			st.Name = name
		}
		if req.Notes != nil {
			st.Notes = *req.Notes
		}
		if req.Phone != nil {
			st.Phone = strings.TrimSpace(*req.Phone)
		}
		return nil
	})
}

// RemoveStudent 移出名册，同时清除该学生在所有考试中的成绩
func (s *rosterService) RemoveStudent(ctx context.Context, caller *Caller, groupID, studentID string, expected *int) (*model.Group, error) {
	return s.w.apply(ctx, caller, groupID, expected, func(g *model.Group) error {
		i := g.StudentIndex(studentID)
		if i < 0 {
			return ErrStudentNotFound
		}
		g.Students = append(g.Students[:i], g.Students[i+1:]...)
		for j := range g.Exams {
			delete(g.Exams[j].Results, studentID)
		}
		return nil
	})
}

func (s *rosterService) TogglePaid(ctx context.Context, caller *Caller, groupID, studentID string, expected *int) (*model.Group, error) {
	return s.toggle(ctx, caller, groupID, studentID, expected, func(st *model.Student) { st.Paid = !st.Paid })
}

func (s *rosterService) ToggleStar(ctx context.Context, caller *Caller, groupID, studentID string, expected *int) (*model.Group, error) {
	return s.toggle(ctx, caller, groupID, studentID, expected, func(st *model.Student) { st.Starred = !st.Starred })
}

func (s *rosterService) toggle(ctx context.Context, caller *Caller, groupID, studentID string, expected *int, flip func(*model.Student)) (*model.Group, error) {
	return s.w.apply(ctx, caller, groupID, expected, func(g *model.Group) error {
		i := g.StudentIndex(studentID)
		if i < 0 {
			return ErrStudentNotFound
		}
		flip(&g.Students[i])
		return nil
	})
}

// ────────────────────── 学生档案 ──────────────────────

func (s *rosterService) History(ctx context.Context, caller *Caller, groupID, studentID string) ([]projection.HistoryEntry, error) {
	g, err := s.w.owned(ctx, caller, groupID)
	if err != nil {
		return nil, err
	}
	if g.StudentIndex(studentID) < 0 {
		return nil, ErrStudentNotFound
	}
	return projection.StudentExamHistory(g, studentID), nil
}

func (s *rosterService) Attendance(ctx context.Context, caller *Caller, groupID, studentID string) (*projection.Stats, error) {
	g, err := s.w.owned(ctx, caller, groupID)
	if err != nil {
		return nil, err
	}
	if g.StudentIndex(studentID) < 0 {
		return nil, ErrStudentNotFound
	}
	stats := projection.AttendanceStats(g, studentID)
	return &stats, nil
}
