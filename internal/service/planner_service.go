package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"manasa/backend/internal/dto"
	"manasa/backend/internal/model"
	"manasa/backend/internal/planner"
)

// ── 计划表模块业务错误 ──

var (
	ErrICSTooLarge = errors.New("ملف التقويم كبير جداً")
	ErrICSInvalid  = errors.New("تعذر قراءة ملف التقويم")
)

// PlannerService 学生个人课程与作业业务接口（按设备隔离）
type PlannerService interface {
	Lectures(ctx context.Context, caller *Caller) ([]model.StudentLecture, error)
	AddLecture(ctx context.Context, caller *Caller, req *dto.LectureRequest) (*model.StudentLecture, error)
	UpdateLecture(ctx context.Context, caller *Caller, id string, req *dto.LectureRequest) (*model.StudentLecture, error)
	TogglePostponed(ctx context.Context, caller *Caller, id string) (*model.StudentLecture, error)
	DeleteLecture(ctx context.Context, caller *Caller, id string) error
	ImportLectures(ctx context.Context, caller *Caller, r io.Reader, size int64) (*dto.ImportLecturesResponse, error)

	Homework(ctx context.Context, caller *Caller) ([]model.StudentHomework, error)
	AddHomework(ctx context.Context, caller *Caller, req *dto.HomeworkRequest) (*model.StudentHomework, error)
	ToggleHomework(ctx context.Context, caller *Caller, id string) (*model.StudentHomework, error)
	DeleteHomework(ctx context.Context, caller *Caller, id string) error
}

type plannerService struct {
	planner *planner.Planner
	loc     *time.Location
	logger  *zap.Logger
}

// NewPlannerService 创建 PlannerService 实例
func NewPlannerService(pl *planner.Planner, loc *time.Location, logger *zap.Logger) PlannerService {
	if loc == nil {
		loc = time.UTC
	}
	return &plannerService{planner: pl, loc: loc, logger: logger}
}

func scopeOf(caller *Caller) planner.Scope {
	return planner.Scope{DeviceID: caller.DeviceID, Handle: caller.Username}
}

func lectureFromRequest(req *dto.LectureRequest) model.StudentLecture {
	return model.StudentLecture{
		Subject:  strings.TrimSpace(req.Subject),
		Day:      model.DayOfWeek(req.Day),
		Time:     req.Time,
		Type:     req.Type,
		Location: strings.TrimSpace(req.Location),
	}
}

// ────────────────────── 个人课程 ──────────────────────

func (s *plannerService) Lectures(ctx context.Context, caller *Caller) ([]model.StudentLecture, error) {
	return s.planner.Lectures(ctx, scopeOf(caller))
}

func (s *plannerService) AddLecture(ctx context.Context, caller *Caller, req *dto.LectureRequest) (*model.StudentLecture, error) {
	if !model.DayOfWeek(req.Day).Valid() {
		return nil, ErrInvalidDay
	}
	if !dto.IsHHMM(req.Time) {
		return nil, ErrInvalidTime
	}
	return s.planner.AddLecture(ctx, scopeOf(caller), lectureFromRequest(req))
}

func (s *plannerService) UpdateLecture(ctx context.Context, caller *Caller, id string, req *dto.LectureRequest) (*model.StudentLecture, error) {
	if !model.DayOfWeek(req.Day).Valid() {
		return nil, ErrInvalidDay
	}
	if !dto.IsHHMM(req.Time) {
		return nil, ErrInvalidTime
	}
	return s.planner.UpdateLecture(ctx, scopeOf(caller), id, lectureFromRequest(req))
}

func (s *plannerService) TogglePostponed(ctx context.Context, caller *Caller, id string) (*model.StudentLecture, error) {
	return s.planner.TogglePostponed(ctx, scopeOf(caller), id)
}

func (s *plannerService) DeleteLecture(ctx context.Context, caller *Caller, id string) error {
	return s.planner.DeleteLecture(ctx, scopeOf(caller), id)
}

// ImportLectures 从 .ics 文件导入个人课程，按 科目+星期+时间 去重合并
func (s *plannerService) ImportLectures(ctx context.Context, caller *Caller, r io.Reader, size int64) (*dto.ImportLecturesResponse, error) {
	if size > planner.MaxICSSize {
		return nil, ErrICSTooLarge
	}
	res, err := s.planner.ImportICS(ctx, scopeOf(caller), r, s.loc)
	if err != nil {
		if errors.Is(err, planner.ErrInvalidICS) {
			s.logger.Warn("日历文件无法解析", zap.String("username", caller.Username), zap.Error(err))
			return nil, ErrICSInvalid
		}
		return nil, err
	}
	return &dto.ImportLecturesResponse{
		Imported: res.Imported,
		Skipped:  res.Skipped,
		Total:    res.Total,
	}, nil
}

// ────────────────────── 个人作业 ──────────────────────

func (s *plannerService) Homework(ctx context.Context, caller *Caller) ([]model.StudentHomework, error) {
	return s.planner.Homework(ctx, scopeOf(caller))
}

func (s *plannerService) AddHomework(ctx context.Context, caller *Caller, req *dto.HomeworkRequest) (*model.StudentHomework, error) {
	return s.planner.AddHomework(ctx, scopeOf(caller), strings.TrimSpace(req.Subject), strings.TrimSpace(req.Task))
}

func (s *plannerService) ToggleHomework(ctx context.Context, caller *Caller, id string) (*model.StudentHomework, error) {
	return s.planner.ToggleHomework(ctx, scopeOf(caller), id)
}

func (s *plannerService) DeleteHomework(ctx context.Context, caller *Caller, id string) error {
	return s.planner.DeleteHomework(ctx, scopeOf(caller), id)
}
