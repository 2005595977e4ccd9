package identity

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"manasa/backend/config"
	"manasa/backend/internal/model"
	"manasa/backend/internal/repository"
)

// mockIdentityRepo 内存版 IdentityRepository
type mockIdentityRepo struct {
	byLogin map[string]*model.Identity
}

func (m *mockIdentityRepo) Create(_ context.Context, identity *model.Identity) error {
	m.byLogin[identity.LoginID] = identity
	return nil
}

func (m *mockIdentityRepo) GetByLoginID(_ context.Context, loginID string) (*model.Identity, error) {
	if id, ok := m.byLogin[loginID]; ok {
		return id, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func newTestGate() (Gate, *mockIdentityRepo) {
	ir := &mockIdentityRepo{byLogin: map[string]*model.Identity{}}
	cfg := &config.AuthConfig{
		LoginDomain: "manasa.com",
		HandleMin:   4,
		HandleMax:   12,
		PasswordMin: 6,
		BcryptCost:  4,
	}
	return NewGate(cfg, &repository.Repository{Identity: ir}, zap.NewNop()), ir
}

func TestLoginID(t *testing.T) {
	if got := LoginID("  Stu1 ", "manasa.com"); got != "stu1@manasa.com" {
		t.Errorf("期望 stu1@manasa.com，实际=%s", got)
	}
}

func TestValidHandle(t *testing.T) {
	cases := map[string]bool{
		"stu1":          true,
		"ali_99":        true,
		"abc":           false, // 过短
		"abcdefghijklm": false, // 过长
		"ali.k":         false,
		"Ali1":          false, // 未规范化
	}
	for h, want := range cases {
		if got := ValidHandle(h, 4, 12); got != want {
			t.Errorf("ValidHandle(%q) 期望 %v，实际 %v", h, want, got)
		}
	}
}

func TestGate_Register_Success(t *testing.T) {
	g, ir := newTestGate()
	id, err := g.Register(context.Background(), nil, " Stu1 ", "secret1")
	if err != nil {
		t.Fatalf("注册失败: %v", err)
	}
	stored, ok := ir.byLogin["stu1@manasa.com"]
	if !ok || stored.IdentityID != id {
		t.Fatal("期望以规范化登录标识保存身份")
	}
	if stored.PasswordHash == "secret1" {
		t.Error("密码不应明文保存")
	}
}

func TestGate_Register_HandleTaken(t *testing.T) {
	g, _ := newTestGate()
	ctx := context.Background()
	if _, err := g.Register(ctx, nil, "stu1", "secret1"); err != nil {
		t.Fatalf("首次注册失败: %v", err)
	}
	_, err := g.Register(ctx, nil, "STU1", "other12")
	if !errors.Is(err, ErrHandleTaken) {
		t.Errorf("期望 ErrHandleTaken，实际=%v", err)
	}
}

func TestGate_Register_WeakPassword(t *testing.T) {
	g, _ := newTestGate()
	_, err := g.Register(context.Background(), nil, "stu1", "123")
	if !errors.Is(err, ErrWeakPassword) {
		t.Errorf("期望 ErrWeakPassword，实际=%v", err)
	}
}

func TestGate_Register_InvalidHandle(t *testing.T) {
	g, _ := newTestGate()
	_, err := g.Register(context.Background(), nil, "a.b.c.d", "secret1")
	if !errors.Is(err, ErrInvalidHandle) {
		t.Errorf("期望 ErrInvalidHandle，实际=%v", err)
	}
}

func TestGate_Verify(t *testing.T) {
	g, _ := newTestGate()
	ctx := context.Background()
	id, _ := g.Register(ctx, nil, "stu1", "secret1")

	got, err := g.Verify(ctx, "STU1 ", "secret1")
	if err != nil || got != id {
		t.Errorf("期望校验通过并返回 %s，实际=%s err=%v", id, got, err)
	}
	if _, err := g.Verify(ctx, "stu1", "wrong"); !errors.Is(err, ErrInvalidCredential) {
		t.Errorf("错误密码期望 ErrInvalidCredential，实际=%v", err)
	}
	if _, err := g.Verify(ctx, "nobody", "secret1"); !errors.Is(err, ErrInvalidCredential) {
		t.Errorf("未知用户期望 ErrInvalidCredential，实际=%v", err)
	}
}

func TestGate_Misconfigured(t *testing.T) {
	ir := &mockIdentityRepo{byLogin: map[string]*model.Identity{}}
	g := NewGate(&config.AuthConfig{}, &repository.Repository{Identity: ir}, zap.NewNop())
	if _, err := g.Verify(context.Background(), "stu1", "secret1"); !errors.Is(err, ErrMisconfigured) {
		t.Errorf("期望 ErrMisconfigured，实际=%v", err)
	}
}
