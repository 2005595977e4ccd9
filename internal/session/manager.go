package session

import (
	"errors"
	"sync"
	"time"
)

// ErrSessionNotFound 会话不存在（已登出或进程重启）
var ErrSessionNotFound = errors.New("الجلسة غير موجودة")

// Session 已认证请求携带的显式上下文对象，登录时创建、登出时销毁
type Session struct {
	ID        string    `json:"session_id"` // 等于 Access Token 的 JTI
	AccountID string    `json:"account_id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Machine   Machine   `json:"machine"`
	CreatedAt time.Time `json:"created_at"`
	LastSeen  time.Time `json:"last_seen"`
}

// Manager 进程内会话注册表
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
}

// NewManager 创建会话注册表
func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session), now: time.Now}
}

// Create 认证成功后创建会话，状态直接进入 authenticated
func (m *Manager) Create(id, accountID, username, role string) (*Session, error) {
	mc := NewMachine()
	if err := mc.Authenticate(role); err != nil {
		return nil, err
	}
	now := m.now()
	s := &Session{
		ID:        id,
		AccountID: accountID,
		Username:  username,
		Role:      role,
		Machine:   *mc,
		CreatedAt: now,
		LastSeen:  now,
	}
	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()
	cp := *s
	return &cp, nil
}

// Get 返回会话副本并刷新最近访问时间
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.LastSeen = m.now()
	cp := *s
	return &cp, nil
}

// Ensure 令牌有效但注册表中没有会话（如进程重启）时按令牌信息恢复
func (m *Manager) Ensure(id, accountID, username, role string) (*Session, error) {
	if s, err := m.Get(id); err == nil {
		return s, nil
	}
	return m.Create(id, accountID, username, role)
}

// Navigate 在会话上执行视图切换
func (m *Manager) Navigate(id string, view View, groupID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if err := s.Machine.Navigate(view, groupID); err != nil {
		return nil, err
	}
	s.LastSeen = m.now()
	cp := *s
	return &cp, nil
}

// GroupGone 小组删除后重置所有停留在该小组上的会话
func (m *Manager) GroupGone(groupID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		s.Machine.GroupGone(groupID)
	}
}

// Destroy 登出或账户缺失时销毁会话
func (m *Manager) Destroy(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Sweep 清理超过 idle 未访问的会话，返回被清理的会话 ID
func (m *Manager) Sweep(idle time.Duration) []string {
	cutoff := m.now().Add(-idle)
	m.mu.Lock()
	defer m.mu.Unlock()
	var expired []string
	for id, s := range m.sessions {
		if s.LastSeen.Before(cutoff) {
			delete(m.sessions, id)
			expired = append(expired, id)
		}
	}
	return expired
}

// Len 当前会话数
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
