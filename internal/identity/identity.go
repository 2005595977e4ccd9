// Package identity 身份网关边界：用户名 ↔ 登录标识映射与凭据校验。
//
// 登录标识形如 handle@domain，仅在本包内部构造与使用，
// 其余各层只认识小写 handle。
package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"manasa/backend/config"
	"manasa/backend/internal/model"
	"manasa/backend/internal/repository"
)

var (
	ErrInvalidCredential = errors.New("بيانات الدخول غير صحيحة، تأكد من اليوزر نيم والباسورد.")
	ErrHandleTaken       = errors.New("اسم المستخدم هذا مسجل مسبقاً، جرب الدخول.")
	ErrInvalidHandle     = errors.New("اسم المستخدم يجب أن يتكون من أحرف إنجليزية صغيرة وأرقام و _ فقط")
	ErrWeakPassword      = errors.New("كلمة المرور قصيرة جداً")
	// ErrMisconfigured 网关配置错误（对应托管身份服务的 API key 无效）
	ErrMisconfigured = errors.New("فشل التحقق من مفتاح API. تأكد من تفعيل Identity Toolkit API في مشروعك.")
)

// NormalizeHandle 去除首尾空白并转小写
func NormalizeHandle(handle string) string {
	return strings.ToLower(strings.TrimSpace(handle))
}

// LoginID 用户名 → 登录标识：lower(trim(handle)) + "@" + domain
func LoginID(handle, domain string) string {
	return NormalizeHandle(handle) + "@" + domain
}

// ValidHandle 字符集 [a-z0-9_]，长度 [min,max]
func ValidHandle(handle string, min, max int) bool {
	if len(handle) < min || len(handle) > max {
		return false
	}
	for _, r := range handle {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_') {
			return false
		}
	}
	return true
}

// Gate 身份网关接口
type Gate interface {
	// Register 创建身份记录，返回身份 ID（同时作为账户 ID）
	Register(ctx context.Context, repo *repository.Repository, handle, password string) (string, error)
	// Verify 校验凭据，返回身份 ID
	Verify(ctx context.Context, handle, password string) (string, error)
}

type gate struct {
	cfg    *config.AuthConfig
	repo   *repository.Repository
	logger *zap.Logger
}

// NewGate 创建基于 bcrypt + identities 表的身份网关
func NewGate(cfg *config.AuthConfig, repo *repository.Repository, logger *zap.Logger) Gate {
	return &gate{cfg: cfg, repo: repo, logger: logger}
}

func (g *gate) cost() int {
	if g.cfg.BcryptCost < bcrypt.MinCost || g.cfg.BcryptCost > bcrypt.MaxCost {
		return bcrypt.DefaultCost
	}
	return g.cfg.BcryptCost
}

// Register 在 repo（可为事务 Repository）上创建身份
func (g *gate) Register(ctx context.Context, repo *repository.Repository, handle, password string) (string, error) {
	if g.cfg.LoginDomain == "" {
		return "", ErrMisconfigured
	}
	handle = NormalizeHandle(handle)
	if !ValidHandle(handle, g.cfg.HandleMin, g.cfg.HandleMax) {
		return "", ErrInvalidHandle
	}
	if len(password) < g.cfg.PasswordMin {
		return "", ErrWeakPassword
	}
	if repo == nil {
		repo = g.repo
	}

	loginID := LoginID(handle, g.cfg.LoginDomain)
	if _, err := repo.Identity.GetByLoginID(ctx, loginID); err == nil {
		return "", ErrHandleTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		g.logger.Error("查询身份记录失败", zap.Error(err))
		return "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), g.cost())
	if err != nil {
		g.logger.Error("密码哈希失败", zap.Error(err))
		return "", err
	}

	identity := &model.Identity{
		IdentityID:   uuid.New().String(),
		LoginID:      loginID,
		PasswordHash: string(hash),
	}
	if err := repo.Identity.Create(ctx, identity); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return "", ErrHandleTaken
		}
		g.logger.Error("创建身份记录失败", zap.Error(err))
		return "", err
	}
	return identity.IdentityID, nil
}

func (g *gate) Verify(ctx context.Context, handle, password string) (string, error) {
	if g.cfg.LoginDomain == "" {
		return "", ErrMisconfigured
	}
	identity, err := g.repo.Identity.GetByLoginID(ctx, LoginID(handle, g.cfg.LoginDomain))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrInvalidCredential
		}
		g.logger.Error("查询身份记录失败", zap.Error(err))
		return "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredential
	}
	return identity.IdentityID, nil
}
