package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"manasa/backend/internal/dto"
	"manasa/backend/internal/model"
	"manasa/backend/internal/mutation"
	"manasa/backend/internal/projection"
	"manasa/backend/internal/repository"
	"manasa/backend/internal/session"
)

// ── 小组模块业务错误 ──

var (
	ErrGroupNotFound         = errors.New("المجموعة غير موجودة")
	ErrGroupForbidden        = errors.New("لا تملك صلاحية تعديل هذه المجموعة")
	ErrGroupNameRequired     = errors.New("يرجى كتابة اسم المجموعة")
	ErrInvalidDay            = errors.New("اليوم غير صحيح")
	ErrInvalidTime           = errors.New("الوقت يجب أن يكون بصيغة HH:MM")
	ErrScheduleEntryNotFound = errors.New("الموعد غير موجود")
)

// ────────────────────── groupWriter ──────────────────────

// groupWriter 小组读写的公共入口：归属校验 + 经协调器写入 + 错误翻译
type groupWriter struct {
	repo   *repository.Repository
	coord  *mutation.Coordinator
	logger *zap.Logger
}

func newGroupWriter(repo *repository.Repository, coord *mutation.Coordinator, logger *zap.Logger) *groupWriter {
	return &groupWriter{repo: repo, coord: coord, logger: logger}
}

// apply 仅小组所属教师可写
func (w *groupWriter) apply(ctx context.Context, caller *Caller, groupID string, expected *int, fn mutation.MutateFunc) (*model.Group, error) {
	g, err := w.coord.Apply(ctx, groupID, expected, func(g *model.Group) error {
		if g.TeacherUID != caller.AccountID {
			return ErrGroupForbidden
		}
		return fn(g)
	})
	if err != nil {
		return nil, w.translate(groupID, err)
	}
	return g, nil
}

func (w *groupWriter) remove(ctx context.Context, caller *Caller, groupID string, expected *int) error {
	err := w.coord.Delete(ctx, groupID, expected, func(g *model.Group) error {
		if g.TeacherUID != caller.AccountID {
			return ErrGroupForbidden
		}
		return nil
	})
	return w.translate(groupID, err)
}

// read 教师读取自己的小组；学生只能读取自己所在的小组
func (w *groupWriter) read(ctx context.Context, caller *Caller, groupID string) (*model.Group, error) {
	g, err := w.repo.Group.GetByID(ctx, groupID)
	if err != nil {
		return nil, w.translate(groupID, err)
	}
	if caller.IsTeacher() {
		if g.TeacherUID != caller.AccountID {
			return nil, ErrGroupForbidden
		}
		return g, nil
	}
	if _, ok := g.FindStudentByUsername(caller.Username); !ok {
		return nil, ErrGroupNotFound
	}
	return g, nil
}

// owned 教师读取自己的小组
func (w *groupWriter) owned(ctx context.Context, caller *Caller, groupID string) (*model.Group, error) {
	g, err := w.repo.Group.GetByID(ctx, groupID)
	if err != nil {
		return nil, w.translate(groupID, err)
	}
	if g.TeacherUID != caller.AccountID {
		return nil, ErrGroupForbidden
	}
	return g, nil
}

// translate 记录不存在 → ErrGroupNotFound，其余原样返回（写入失败已由协调器记录）
func (w *groupWriter) translate(groupID string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		w.logger.Debug("小组不存在", zap.String("group_id", groupID))
		return ErrGroupNotFound
	}
	return err
}

// ────────────────────── GroupService ──────────────────────

// GroupService 小组业务接口
type GroupService interface {
	List(ctx context.Context, caller *Caller) ([]dto.GroupSummaryResponse, error)
	Get(ctx context.Context, caller *Caller, id string) (*model.Group, error)
	Create(ctx context.Context, caller *Caller, req *dto.CreateGroupRequest) (*model.Group, error)
	Update(ctx context.Context, caller *Caller, id string, req *dto.UpdateGroupRequest) (*model.Group, error)
	Delete(ctx context.Context, caller *Caller, id string, expected *int) error
	AddScheduleEntry(ctx context.Context, caller *Caller, id string, req *dto.AddScheduleEntryRequest) (*model.Group, error)
	RemoveScheduleEntry(ctx context.Context, caller *Caller, id, entryID string, expected *int) (*model.Group, error)
}

type groupService struct {
	repo     *repository.Repository
	w        *groupWriter
	sessions *session.Manager
	logger   *zap.Logger
}

// NewGroupService 创建 GroupService 实例
func NewGroupService(repo *repository.Repository, w *groupWriter, sessions *session.Manager, logger *zap.Logger) GroupService {
	return &groupService{repo: repo, w: w, sessions: sessions, logger: logger}
}

// List 教师返回自己创建的小组，学生返回自己所在的小组
func (s *groupService) List(ctx context.Context, caller *Caller) ([]dto.GroupSummaryResponse, error) {
	groups, err := listVisible(ctx, s.repo, caller)
	if err != nil {
		s.logger.Error("查询小组列表失败", zap.String("user_id", caller.AccountID), zap.Error(err))
		return nil, err
	}
	list := make([]dto.GroupSummaryResponse, 0, len(groups))
	for i := range groups {
		sum := projection.GroupSummary(&groups[i])
		list = append(list, dto.GroupSummaryResponse{
			ID:           groups[i].GroupID,
			Name:         groups[i].Name,
			Location:     groups[i].Location,
			StudentCount: sum.StudentCount,
			PaidCount:    sum.PaidCount,
			ExamCount:    sum.ExamCount,
			Version:      groups[i].Version,
		})
	}
	return list, nil
}

func (s *groupService) Get(ctx context.Context, caller *Caller, id string) (*model.Group, error) {
	return s.w.read(ctx, caller, id)
}

// Create 新建是纯插入，不存在读-改-写竞争，不经过协调器锁
func (s *groupService) Create(ctx context.Context, caller *Caller, req *dto.CreateGroupRequest) (*model.Group, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrGroupNameRequired
	}
	g := &model.Group{
		GroupID:    uuid.NewString(),
		Name:       name,
		Location:   strings.TrimSpace(req.Location),
		Phone:      trimmedPtr(req.Phone),
		TeacherUID: caller.AccountID,
	}
	if err := s.repo.Group.Create(ctx, g); err != nil {
		s.logger.Error("创建小组失败", zap.String("name", name), zap.Error(err))
		return nil, err
	}
	s.w.coord.Created(ctx, g)

	s.logger.Info("小组创建成功", zap.String("group_id", g.GroupID), zap.String("teacher_uid", caller.AccountID))
	return g, nil
}

func (s *groupService) Update(ctx context.Context, caller *Caller, id string, req *dto.UpdateGroupRequest) (*model.Group, error) {
	return s.w.apply(ctx, caller, id, req.ExpectedVersion, func(g *model.Group) error {
		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return ErrGroupNameRequired
			}
			g.Name = name
		}
		if req.Location != nil {
			g.Location = strings.TrimSpace(*req.Location)
		}
		if req.Phone != nil {
			g.Phone = trimmedPtr(req.Phone)
		}
		return nil
	})
}

// Delete 整体删除小组文档，停留在该小组上的会话回到默认视图
func (s *groupService) Delete(ctx context.Context, caller *Caller, id string, expected *int) error {
	if err := s.w.remove(ctx, caller, id, expected); err != nil {
		return err
	}
	s.sessions.GroupGone(id)
	s.logger.Info("小组已删除", zap.String("group_id", id))
	return nil
}

func (s *groupService) AddScheduleEntry(ctx context.Context, caller *Caller, id string, req *dto.AddScheduleEntryRequest) (*model.Group, error) {
	day := model.DayOfWeek(req.Day)
	if !day.Valid() {
		return nil, ErrInvalidDay
	}
	if !dto.IsHHMM(req.Time) {
		return nil, ErrInvalidTime
	}
	return s.w.apply(ctx, caller, id, req.ExpectedVersion, func(g *model.Group) error {
		g.Schedule = append(g.Schedule, model.ScheduleEntry{
			ID:   uuid.NewString(),
			Day:  day,
			Time: req.Time,
		})
		return nil
	})
}

func (s *groupService) RemoveScheduleEntry(ctx context.Context, caller *Caller, id, entryID string, expected *int) (*model.Group, error) {
	return s.w.apply(ctx, caller, id, expected, func(g *model.Group) error {
		kept := g.Schedule[:0]
		for _, e := range g.Schedule {
			if e.ID != entryID {
				kept = append(kept, e)
			}
		}
		if len(kept) == len(g.Schedule) {
			return ErrScheduleEntryNotFound
		}
		g.Schedule = kept
		return nil
	})
}

// ── 辅助函数 ──

// listVisible 调用方可见的小组集合
func listVisible(ctx context.Context, repo *repository.Repository, caller *Caller) ([]model.Group, error) {
	if caller.IsTeacher() {
		return repo.Group.ListByTeacher(ctx, caller.AccountID)
	}
	return repo.Group.ListByStudentUsername(ctx, caller.Username)
}

func trimmedPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return nil
	}
	return &v
}
