package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"manasa/backend/config"
	"manasa/backend/internal/dto"
	"manasa/backend/internal/identity"
	"manasa/backend/internal/model"
	"manasa/backend/internal/repository"
	"manasa/backend/internal/session"
	"manasa/backend/pkg/jwt"
	"manasa/backend/pkg/redis"
)

// ── 认证模块业务错误 ──

var (
	ErrAccountMissing  = errors.New("لم يتم العثور على بيانات الحساب، يرجى تسجيل الدخول من جديد")
	ErrNameRequired    = errors.New("يرجى كتابة الاسم الكامل")
	ErrMissingFields   = errors.New("يرجى كتابة اسم المستخدم وكلمة المرور")
	ErrNothingToUpdate = errors.New("لا توجد حقول للتحديث")
)

// AuthService 认证业务接口
type AuthService interface {
	Signup(ctx context.Context, req *dto.SignupRequest) (*dto.TokenResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error)
	Logout(ctx context.Context, caller *Caller) error
	Me(ctx context.Context, caller *Caller) (*dto.AccountResponse, error)
	UpdateProfile(ctx context.Context, caller *Caller, req *dto.UpdateProfileRequest) (*dto.AccountResponse, error)
}

type authService struct {
	cfg      *config.AuthConfig
	repo     *repository.Repository
	gate     identity.Gate
	jwtMgr   *jwt.Manager
	rdb      *redis.Client
	sessions *session.Manager
	feed     SessionCloser
	logger   *zap.Logger
}

// NewAuthService 创建 AuthService 实例
func NewAuthService(
	cfg *config.AuthConfig,
	repo *repository.Repository,
	gate identity.Gate,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	sessions *session.Manager,
	feed SessionCloser,
	logger *zap.Logger,
) AuthService {
	return &authService{
		cfg:      cfg,
		repo:     repo,
		gate:     gate,
		jwtMgr:   jwtMgr,
		rdb:      rdb,
		sessions: sessions,
		feed:     feed,
		logger:   logger,
	}
}

// ────────────────────── Signup ──────────────────────

// Signup 身份记录与账户档案在同一事务内创建，任一步失败都不留下半成品
func (s *authService) Signup(ctx context.Context, req *dto.SignupRequest) (*dto.TokenResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	handle := identity.NormalizeHandle(req.Username)
	if handle == "" || req.Password == "" {
		return nil, ErrMissingFields
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			if tx != nil {
				tx.Rollback()
			}
			panic(r)
		}
	}()
	txRepo := s.repo.WithTx(tx)

	id, err := s.gate.Register(ctx, txRepo, handle, req.Password)
	if err != nil {
		if tx != nil {
			tx.Rollback()
		}
		return nil, err
	}

	account := &model.Account{
		UserID:    id,
		Name:      name,
		Username:  handle,
		Role:      req.Role,
		Onboarded: true,
	}
	if err := txRepo.Account.Create(ctx, account); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, identity.ErrHandleTaken
		}
		s.logger.Error("创建账户失败", zap.String("username", handle), zap.Error(err))
		return nil, err
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交事务失败", zap.Error(err))
			return nil, err
		}
	}

	s.logger.Info("账户注册成功", zap.String("user_id", id), zap.String("role", req.Role))
	return s.issue(account)
}

// ────────────────────── Login ──────────────────────

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		return nil, ErrMissingFields
	}

	id, err := s.gate.Verify(ctx, req.Username, req.Password)
	if err != nil {
		return nil, err
	}

	account, err := s.repo.Account.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn("身份存在但账户档案缺失", zap.String("user_id", id))
			return nil, ErrAccountMissing
		}
		s.logger.Error("查询账户失败", zap.Error(err))
		return nil, err
	}

	return s.issue(account)
}

// issue 签发 Token 并创建会话（会话 ID 即 JTI）
func (s *authService) issue(account *model.Account) (*dto.TokenResponse, error) {
	token, jti, err := s.jwtMgr.GenerateAccessToken(account.UserID, account.Username, account.Role)
	if err != nil {
		s.logger.Error("生成 AccessToken 失败", zap.Error(err))
		return nil, err
	}

	sess, err := s.sessions.Create(jti, account.UserID, account.Username, account.Role)
	if err != nil {
		s.logger.Error("创建会话失败", zap.Error(err))
		return nil, err
	}

	return &dto.TokenResponse{
		AccessToken: token,
		ExpiresIn:   int(s.jwtMgr.AccessTokenTTL().Seconds()),
		User:        toAccountResponse(account),
		Session:     ToSessionResponse(sess),
	}, nil
}

// ────────────────────── Logout ──────────────────────

func (s *authService) Logout(ctx context.Context, caller *Caller) error {
	s.revoke(ctx, caller)
	return nil
}

// revoke 拉黑 Token（Redis 可用时）、销毁会话并断开该会话的推送连接
func (s *authService) revoke(ctx context.Context, caller *Caller) {
	if s.rdb != nil && caller.SessionID != "" {
		ttl := time.Until(caller.ExpiresAt)
		if ttl > 0 {
			if err := s.rdb.BlacklistToken(ctx, caller.SessionID, ttl); err != nil {
				s.logger.Warn("Token 拉黑失败", zap.Error(err))
			}
		}
	}
	s.sessions.Destroy(caller.SessionID)
	if s.feed != nil {
		s.feed.CloseSession(ctx, caller.SessionID)
	}
}

// ────────────────────── Me / Profile ──────────────────────

// Me 账户档案缺失时吊销当前 Token，客户端回到角色选择
func (s *authService) Me(ctx context.Context, caller *Caller) (*dto.AccountResponse, error) {
	account, err := s.repo.Account.GetByID(ctx, caller.AccountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn("账户档案缺失，强制登出", zap.String("user_id", caller.AccountID))
			s.revoke(ctx, caller)
			return nil, ErrAccountMissing
		}
		s.logger.Error("查询账户失败", zap.Error(err))
		return nil, err
	}
	resp := toAccountResponse(account)
	return &resp, nil
}

func (s *authService) UpdateProfile(ctx context.Context, caller *Caller, req *dto.UpdateProfileRequest) (*dto.AccountResponse, error) {
	fields := make(map[string]interface{})
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, ErrNameRequired
		}
		fields["name"] = name
	}
	if req.ProfileImage != nil {
		fields["profile_image"] = req.ProfileImage
	}
	if req.DarkMode != nil {
		fields["dark_mode"] = *req.DarkMode
	}
	if len(fields) == 0 {
		return nil, ErrNothingToUpdate
	}

	if err := s.repo.Account.UpdateFields(ctx, caller.AccountID, fields); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountMissing
		}
		s.logger.Error("更新账户失败", zap.String("user_id", caller.AccountID), zap.Error(err))
		return nil, err
	}
	return s.Me(ctx, caller)
}

// ── 辅助函数 ──

func toAccountResponse(a *model.Account) dto.AccountResponse {
	return dto.AccountResponse{
		ID:           a.UserID,
		Name:         a.Name,
		Username:     a.Username,
		Role:         a.Role,
		ProfileImage: a.ProfileImage,
		DarkMode:     a.DarkMode,
	}
}
