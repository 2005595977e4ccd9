package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"manasa/backend/internal/dto"
	"manasa/backend/internal/model"
)

// ── 考试模块业务错误 ──

var (
	ErrExamTitleRequired = errors.New("يرجى كتابة عنوان الاختبار")
	ErrExamNotFound      = errors.New("الاختبار غير موجود")
	ErrInvalidStatus     = errors.New("حالة الحضور غير صحيحة")
)

// ExamService 考试与评分业务接口
type ExamService interface {
	AddExam(ctx context.Context, caller *Caller, groupID string, req *dto.AddExamRequest) (*model.Group, error)
	DeleteExam(ctx context.Context, caller *Caller, groupID, examID string, expected *int) (*model.Group, error)
	RecordGrade(ctx context.Context, caller *Caller, groupID, examID, studentID string, req *dto.RecordGradeRequest) (*model.Group, error)
}

type examService struct {
	w      *groupWriter
	logger *zap.Logger
}

// NewExamService 创建 ExamService 实例
func NewExamService(w *groupWriter, logger *zap.Logger) ExamService {
	return &examService{w: w, logger: logger}
}

// AddExam 满分截断到 [0,100]，类型缺省为 daily
func (s *examService) AddExam(ctx context.Context, caller *Caller, groupID string, req *dto.AddExamRequest) (*model.Group, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, ErrExamTitleRequired
	}
	examType := req.Type
	if examType == "" {
		examType = model.ExamDaily
	}

	return s.w.apply(ctx, caller, groupID, req.ExpectedVersion, func(g *model.Group) error {
		g.Exams = append(g.Exams, model.Exam{
			ID:       uuid.NewString(),
			Title:    title,
			Date:     req.Date,
			MaxGrade: model.ClampMaxGrade(req.MaxGrade),
			Type:     examType,
			Results:  map[string]model.ExamResult{},
		})
		return nil
	})
}

func (s *examService) DeleteExam(ctx context.Context, caller *Caller, groupID, examID string, expected *int) (*model.Group, error) {
	return s.w.apply(ctx, caller, groupID, expected, func(g *model.Group) error {
		i := g.ExamIndex(examID)
		if i < 0 {
			return ErrExamNotFound
		}
		g.Exams = append(g.Exams[:i], g.Exams[i+1:]...)
		return nil
	})
}

// RecordGrade 评分状态机见 model.ApplyAttendance
func (s *examService) RecordGrade(ctx context.Context, caller *Caller, groupID, examID, studentID string, req *dto.RecordGradeRequest) (*model.Group, error) {
	if !model.ValidStatus(req.Status) {
		return nil, ErrInvalidStatus
	}
	return s.w.apply(ctx, caller, groupID, req.ExpectedVersion, func(g *model.Group) error {
		i := g.ExamIndex(examID)
		if i < 0 {
			return ErrExamNotFound
		}
		if g.StudentIndex(studentID) < 0 {
			return ErrStudentNotFound
		}
		exam := &g.Exams[i]
		if exam.Results == nil {
			exam.Results = map[string]model.ExamResult{}
		}
		exam.Results[studentID] = model.ApplyAttendance(exam.Results[studentID], studentID, req.Status, req.Grade, exam.MaxGrade)
		return nil
	})
}
