package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"manasa/backend/config"
	"manasa/backend/internal/dto"
	"manasa/backend/internal/feed"
	"manasa/backend/internal/identity"
	"manasa/backend/internal/model"
	"manasa/backend/internal/mutation"
	"manasa/backend/internal/planner"
	"manasa/backend/internal/reminder"
	"manasa/backend/internal/repository"
	"manasa/backend/internal/session"
	pkgerrors "manasa/backend/pkg/errors"
	"manasa/backend/pkg/jwt"
)

// ── Mock AccountRepository ──

type mockAccountRepo struct {
	mu       sync.Mutex
	accounts map[string]*model.Account // key: user_id
}

func newMockAccountRepo() *mockAccountRepo {
	return &mockAccountRepo{accounts: make(map[string]*model.Account)}
}

func (m *mockAccountRepo) Create(_ context.Context, a *model.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.accounts {
		if existing.Username == a.Username {
			return gorm.ErrDuplicatedKey
		}
	}
	cp := *a
	m.accounts[a.UserID] = &cp
	return nil
}

func (m *mockAccountRepo) GetByID(_ context.Context, id string) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.accounts[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAccountRepo) ExistsStudent(_ context.Context, username string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.Username == strings.ToLower(username) && a.Role == model.RoleStudent {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockAccountRepo) UpdateFields(_ context.Context, id string, fields map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for k, v := range fields {
		switch k {
		case "name":
			a.Name = v.(string)
		case "profile_image":
			a.ProfileImage = v.(*string)
		case "dark_mode":
			a.DarkMode = v.(bool)
		}
	}
	return nil
}


// Delete 测试辅助：模拟账户档案缺失
func (m *mockAccountRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.accounts, id)
	return nil
}

// ── Mock IdentityRepository ──

type mockIdentityRepo struct {
	mu         sync.Mutex
	identities map[string]*model.Identity // key: login_id
}

func newMockIdentityRepo() *mockIdentityRepo {
	return &mockIdentityRepo{identities: make(map[string]*model.Identity)}
}

func (m *mockIdentityRepo) Create(_ context.Context, i *model.Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.identities[i.LoginID]; ok {
		return gorm.ErrDuplicatedKey
	}
	cp := *i
	m.identities[i.LoginID] = &cp
	return nil
}

func (m *mockIdentityRepo) GetByLoginID(_ context.Context, loginID string) (*model.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i, ok := m.identities[loginID]; ok {
		cp := *i
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Mock GroupRepository（按版本 CAS，读写均深拷贝） ──

type mockGroupRepo struct {
	mu     sync.Mutex
	groups map[string]*model.Group
	order  []string
}

func newMockGroupRepo() *mockGroupRepo {
	return &mockGroupRepo{groups: make(map[string]*model.Group)}
}

func (m *mockGroupRepo) Create(_ context.Context, g *model.Group) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g.Normalize()
	g.RebuildMembership()
	if g.Version == 0 {
		g.Version = 1
	}
	m.groups[g.GroupID] = g.Clone()
	m.order = append(m.order, g.GroupID)
	return nil
}

func (m *mockGroupRepo) GetByID(_ context.Context, id string) (*model.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.groups[id]; ok {
		return g.Clone(), nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockGroupRepo) list(match func(*model.Group) bool) []model.Group {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Group{}
	for _, id := range m.order {
		g, ok := m.groups[id]
		if ok && match(g) {
			out = append(out, *g.Clone())
		}
	}
	return out
}

func (m *mockGroupRepo) ListByTeacher(_ context.Context, teacherUID string) ([]model.Group, error) {
	return m.list(func(g *model.Group) bool { return g.TeacherUID == teacherUID }), nil
}

func (m *mockGroupRepo) ListByStudentUsername(_ context.Context, username string) ([]model.Group, error) {
	username = strings.ToLower(username)
	return m.list(func(g *model.Group) bool {
		for _, u := range g.StudentUsernames {
			if u == username {
				return true
			}
		}
		return false
	}), nil
}

func (m *mockGroupRepo) Update(_ context.Context, g *model.Group) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.groups[g.GroupID]
	if !ok || cur.Version != g.Version {
		return pkgerrors.ErrOptimisticLock
	}
	g.Version++
	m.groups[g.GroupID] = g.Clone()
	return nil
}

func (m *mockGroupRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.groups[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.groups, id)
	return nil
}

// bump 模拟另一进程的写入（绕过协调器直接推进版本）
func (m *mockGroupRepo) bump(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.groups[id].Version++
}

// ── Mock NotificationRepository ──

type mockNotificationRepo struct {
	mu    sync.Mutex
	items []model.Notification
}

func (m *mockNotificationRepo) Create(_ context.Context, n *model.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n.NotificationID == "" {
		n.NotificationID = uuid.NewString()
	}
	m.items = append(m.items, *n)
	return nil
}

func (m *mockNotificationRepo) ListByUser(_ context.Context, userID string, offset, limit int) ([]model.Notification, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []model.Notification
	for _, n := range m.items {
		if n.UserID == userID {
			all = append(all, n)
		}
	}
	total := int64(len(all))
	if offset >= len(all) {
		return []model.Notification{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockNotificationRepo) MarkRead(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].NotificationID == id && m.items[i].UserID == userID {
			m.items[i].IsRead = true
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

// ── 测试环境 ──

type recordingPublisher struct {
	mu     sync.Mutex
	events int
}

func (p *recordingPublisher) GroupChanged(_ context.Context, _, _ *model.Group) {
	p.mu.Lock()
	p.events++
	p.mu.Unlock()
}

type testEnv struct {
	cfg        *config.Config
	accounts   *mockAccountRepo
	identities *mockIdentityRepo
	groups     *mockGroupRepo
	notes      *mockNotificationRepo
	sessions   *session.Manager
	pub        *recordingPublisher
	hub        *feed.Hub
	worker     *reminder.Worker
	svc        *Service
}

func testConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:      "test-secret-for-unit-tests",
			AccessTokenTTL: time.Hour,
			LoginDomain:    "manasa.com",
			HandleMin:      4,
			HandleMax:      12,
			PasswordMin:    6,
			BcryptCost:     bcrypt.MinCost,
		},
		Reminder: config.ReminderConfig{
			Enabled:       true,
			Spec:          "@every 1m",
			MinutesBefore: 15,
			Timezone:      "UTC",
		},
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()
	cfg := testConfig()

	env := &testEnv{
		cfg:        cfg,
		accounts:   newMockAccountRepo(),
		identities: newMockIdentityRepo(),
		groups:     newMockGroupRepo(),
		notes:      &mockNotificationRepo{},
		sessions:   session.NewManager(),
		pub:        &recordingPublisher{},
	}
	env.hub = feed.NewHub(env.groups, nil, &config.FeedConfig{BufferSize: 2}, logger)
	repo := &repository.Repository{
		Account:      env.accounts,
		Identity:     env.identities,
		Group:        env.groups,
		Notification: env.notes,
	}
	env.worker = reminder.NewWorker(&cfg.Reminder, NewReminderDelivery(repo, nil, logger), logger)

	env.svc = NewService(Deps{
		Config:      cfg,
		Repo:        repo,
		Gate:        identity.NewGate(&cfg.Auth, repo, logger),
		JWT:         jwt.NewManager(&cfg.Auth),
		Sessions:    env.sessions,
		Feed:        env.hub,
		Coordinator: mutation.NewCoordinator(env.groups, env.pub, logger),
		Planner:     planner.New(planner.NewMemoryStore(), logger),
		Reminders:   env.worker,
		Logger:      logger,
	})
	return env
}

// signup 注册账户并返回调用方
func (e *testEnv) signup(t *testing.T, role, name, handle string) *Caller {
	t.Helper()
	resp, err := e.svc.Auth.Signup(context.Background(), &dto.SignupRequest{
		Role:     role,
		Name:     name,
		Username: handle,
		Password: "secret123",
	})
	if err != nil {
		t.Fatalf("注册 %s 失败: %v", handle, err)
	}
	return &Caller{
		AccountID: resp.User.ID,
		Username:  resp.User.Username,
		Role:      resp.User.Role,
		SessionID: resp.Session.SessionID,
		ExpiresAt: time.Now().Add(time.Hour),
	}
}
