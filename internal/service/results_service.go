package service

import (
	"context"

	"go.uber.org/zap"

	"manasa/backend/internal/model"
	"manasa/backend/internal/planner"
	"manasa/backend/internal/projection"
	"manasa/backend/internal/repository"
)

// ResultsService 只读投影：学生成绩与周课表
type ResultsService interface {
	MyResults(ctx context.Context, caller *Caller) ([]projection.ResultEntry, error)
	Weekly(ctx context.Context, caller *Caller) (map[model.DayOfWeek][]projection.ScheduleItem, error)
}

type resultsService struct {
	repo    *repository.Repository
	planner *planner.Planner
	logger  *zap.Logger
}

// NewResultsService 创建 ResultsService 实例
func NewResultsService(repo *repository.Repository, pl *planner.Planner, logger *zap.Logger) ResultsService {
	return &resultsService{repo: repo, planner: pl, logger: logger}
}

// MyResults 调用方在所有小组中的成绩，教师返回空列表
func (s *resultsService) MyResults(ctx context.Context, caller *Caller) ([]projection.ResultEntry, error) {
	if caller.IsTeacher() {
		return []projection.ResultEntry{}, nil
	}
	groups, err := s.repo.Group.ListByStudentUsername(ctx, caller.Username)
	if err != nil {
		s.logger.Error("查询学生小组失败", zap.String("username", caller.Username), zap.Error(err))
		return nil, err
	}
	return projection.MyResults(caller.Username, groups), nil
}

// Weekly 小组课时 + 学生个人课程（携带设备 ID 时）
func (s *resultsService) Weekly(ctx context.Context, caller *Caller) (map[model.DayOfWeek][]projection.ScheduleItem, error) {
	return weeklySchedule(ctx, s.repo, s.planner, caller, s.logger)
}

func weeklySchedule(ctx context.Context, repo *repository.Repository, pl *planner.Planner, caller *Caller, logger *zap.Logger) (map[model.DayOfWeek][]projection.ScheduleItem, error) {
	groups, err := listVisible(ctx, repo, caller)
	if err != nil {
		logger.Error("查询小组失败", zap.String("user_id", caller.AccountID), zap.Error(err))
		return nil, err
	}

	var lectures []model.StudentLecture
	if !caller.IsTeacher() && caller.DeviceID != "" && pl != nil {
		lectures, err = pl.Lectures(ctx, planner.Scope{DeviceID: caller.DeviceID, Handle: caller.Username})
		if err != nil {
			logger.Warn("读取个人课程失败，仅返回小组课时", zap.Error(err))
			lectures = nil
		}
	}
	return projection.WeeklySchedule(groups, lectures), nil
}
