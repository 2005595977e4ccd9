package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"manasa/backend/internal/dto"
	"manasa/backend/internal/repository"
	"manasa/backend/internal/session"
)

// SessionService 视图会话业务接口
type SessionService interface {
	Current(ctx context.Context, caller *Caller) (*dto.SessionResponse, error)
	ChangeView(ctx context.Context, caller *Caller, req *dto.ChangeViewRequest) (*dto.SessionResponse, error)
}

type sessionService struct {
	repo     *repository.Repository
	sessions *session.Manager
	logger   *zap.Logger
}

// NewSessionService 创建 SessionService 实例
func NewSessionService(repo *repository.Repository, sessions *session.Manager, logger *zap.Logger) SessionService {
	return &sessionService{repo: repo, sessions: sessions, logger: logger}
}

func (s *sessionService) Current(_ context.Context, caller *Caller) (*dto.SessionResponse, error) {
	sess, err := s.sessions.Get(caller.SessionID)
	if err != nil {
		return nil, err
	}
	resp := ToSessionResponse(sess)
	return &resp, nil
}

// ChangeView 进入小组相关视图前确认小组存在且归调用方所有
func (s *sessionService) ChangeView(ctx context.Context, caller *Caller, req *dto.ChangeViewRequest) (*dto.SessionResponse, error) {
	view := session.View(req.View)
	if req.GroupID != "" && (view == session.ViewRosterDetail || view == session.ViewExamGrading) {
		g, err := s.repo.Group.GetByID(ctx, req.GroupID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrGroupNotFound
			}
			s.logger.Error("查询小组失败", zap.String("group_id", req.GroupID), zap.Error(err))
			return nil, err
		}
		if g.TeacherUID != caller.AccountID {
			return nil, ErrGroupNotFound
		}
	}

	sess, err := s.sessions.Navigate(caller.SessionID, view, req.GroupID)
	if err != nil {
		return nil, err
	}
	resp := ToSessionResponse(sess)
	return &resp, nil
}

// ToSessionResponse 会话 → 响应
func ToSessionResponse(sess *session.Session) dto.SessionResponse {
	return dto.SessionResponse{
		SessionID: sess.ID,
		State:     string(sess.Machine.State),
		Mode:      string(sess.Machine.Mode),
		Role:      sess.Machine.Role,
		Username:  sess.Username,
		View:      string(sess.Machine.View),
		GroupID:   sess.Machine.GroupID,
	}
}
