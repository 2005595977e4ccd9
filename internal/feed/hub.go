// Package feed 小组快照与提醒的实时推送中心。
//
// 每个订阅者在连接建立时收到一次全量快照，之后每当其可见集合
// （教师：teacher_uid == 本人；学生：student_usernames 包含本人）
// 内的小组发生变化时再次收到全量快照。快照是全量的，
// 慢消费者只保留最新一份即可。
package feed

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"manasa/backend/config"
	"manasa/backend/internal/model"
	"manasa/backend/pkg/redis"
)

// Channel 跨实例广播频道
const Channel = "groups:changed"

// 消息类型
const (
	TypeSnapshot     = "snapshot"
	TypeNotification = "notification"
)

// Message 推送给客户端的消息
type Message struct {
	Type         string              `json:"type"`
	Seq          uint64              `json:"seq"`
	Groups       []model.Group       `json:"groups,omitempty"`
	Notification *model.Notification `json:"notification,omitempty"`
}

// Loader 按可见集合加载小组
type Loader interface {
	ListByTeacher(ctx context.Context, teacherUID string) ([]model.Group, error)
	ListByStudentUsername(ctx context.Context, username string) ([]model.Group, error)
}

// Subscriber 单个推送连接
type Subscriber struct {
	ID        string
	SessionID string // 建立连接所用令牌的 JTI，登出时据此断开
	AccountID string
	Username  string
	Role      string

	snap      chan Message // 容量 1，只保留最新快照
	notes     chan Message
	loadMu    sync.Mutex // 串行化同一订阅者的快照加载，保证新快照不被旧快照覆盖
	done      chan struct{}
	closeOnce sync.Once
}

// Snapshots 快照通道
func (s *Subscriber) Snapshots() <-chan Message { return s.snap }

// Notifications 通知通道
func (s *Subscriber) Notifications() <-chan Message { return s.notes }

// Done 订阅被关闭（登出、会话过期或连接结束）时关闭
func (s *Subscriber) Done() <-chan struct{} { return s.done }

// close 与快照加载互斥，关闭后不再有快照入队，未消费的快照被丢弃
func (s *Subscriber) close() {
	s.closeOnce.Do(func() {
		s.loadMu.Lock()
		defer s.loadMu.Unlock()
		close(s.done)
		select {
		case <-s.snap:
		default:
		}
	})
}

func (s *Subscriber) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// event Redis 上传输的变更事件
type event struct {
	Origin       string              `json:"origin"`
	TeacherUIDs  []string            `json:"teacher_uids,omitempty"`
	Usernames    []string            `json:"usernames,omitempty"`
	AccountID    string              `json:"account_id,omitempty"`
	Notification *model.Notification `json:"notification,omitempty"`
	SessionID    string              `json:"session_id,omitempty"` // 非空表示关闭该会话的全部连接
}

// Hub 推送中心
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]*Subscriber
	loader Loader
	rdb    *redis.Client
	cfg    config.FeedConfig
	seq    atomic.Uint64
	origin string
	logger *zap.Logger
	wg     sync.WaitGroup
}

// NewHub 创建推送中心，rdb 为 nil 时仅本实例内推送
func NewHub(loader Loader, rdb *redis.Client, cfg *config.FeedConfig, logger *zap.Logger) *Hub {
	c := *cfg
	if c.BufferSize <= 0 {
		c.BufferSize = 4
	}
	return &Hub{
		subs:   make(map[string]*Subscriber),
		loader: loader,
		rdb:    rdb,
		cfg:    c,
		origin: uuid.New().String(),
		logger: logger,
	}
}

// Subscribe 注册订阅者并立即推送一次快照
// 先注册再加载，加载期间提交的变更会触发随后的刷新
func (h *Hub) Subscribe(ctx context.Context, sessionID, accountID, username, role string) (*Subscriber, error) {
	sub := &Subscriber{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		AccountID: accountID,
		Username:  strings.ToLower(username),
		Role:      role,
		snap:      make(chan Message, 1),
		notes:     make(chan Message, h.cfg.BufferSize),
		done:      make(chan struct{}),
	}

	h.mu.Lock()
	h.subs[sub.ID] = sub
	h.mu.Unlock()

	if err := h.pushSnapshot(ctx, sub); err != nil {
		h.Unsubscribe(sub)
		return nil, err
	}

	h.logger.Debug("推送订阅建立", zap.String("account_id", accountID), zap.String("sub_id", sub.ID))
	return sub, nil
}

// Unsubscribe 移除并关闭订阅者
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	delete(h.subs, sub.ID)
	h.mu.Unlock()
	sub.close()
}

// CloseSession 关闭某会话的全部推送连接（本实例及其他实例）
func (h *Hub) CloseSession(ctx context.Context, sessionID string) {
	if sessionID == "" {
		return
	}
	h.closeSession(sessionID)
	h.broadcast(ctx, event{Origin: h.origin, SessionID: sessionID})
}

func (h *Hub) closeSession(sessionID string) {
	h.mu.Lock()
	var closing []*Subscriber
	for id, sub := range h.subs {
		if sub.SessionID == sessionID {
			delete(h.subs, id)
			closing = append(closing, sub)
		}
	}
	h.mu.Unlock()

	for _, sub := range closing {
		sub.close()
		h.logger.Debug("会话结束，关闭推送连接", zap.String("sub_id", sub.ID))
	}
}

// Len 当前订阅者数量
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// GroupChanged 实现 mutation.Publisher：变更前后的可见集合都需要刷新
// （被移出小组的学生也要收到不含该小组的新快照）
func (h *Hub) GroupChanged(ctx context.Context, before, after *model.Group) {
	ev := event{Origin: h.origin}
	for _, g := range []*model.Group{before, after} {
		if g == nil {
			continue
		}
		ev.TeacherUIDs = appendUnique(ev.TeacherUIDs, g.TeacherUID)
		for _, u := range g.StudentUsernames {
			ev.Usernames = appendUnique(ev.Usernames, u)
		}
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.refresh(context.Background(), ev.TeacherUIDs, ev.Usernames)
	}()
	h.broadcast(ctx, ev)
}

// Notify 向某账户的全部连接投递通知
func (h *Hub) Notify(ctx context.Context, accountID string, n *model.Notification) {
	h.deliverNotification(accountID, n)
	h.broadcast(ctx, event{Origin: h.origin, AccountID: accountID, Notification: n})
}

// Wait 等待已触发的异步刷新完成
func (h *Hub) Wait() { h.wg.Wait() }

// Run 订阅 Redis 频道处理其他实例的事件，ctx 结束时返回
func (h *Hub) Run(ctx context.Context) {
	if h.rdb == nil {
		return
	}
	msgs, closeFn := h.rdb.Subscribe(ctx, Channel)
	defer closeFn()

	h.logger.Info("推送中心已订阅跨实例频道", zap.String("channel", Channel))
	for payload := range msgs {
		var ev event
		if err := json.Unmarshal(payload, &ev); err != nil {
			h.logger.Warn("无法解析推送事件", zap.Error(err))
			continue
		}
		if ev.Origin == h.origin {
			continue
		}
		if ev.SessionID != "" {
			h.closeSession(ev.SessionID)
			continue
		}
		if ev.Notification != nil {
			h.deliverNotification(ev.AccountID, ev.Notification)
			continue
		}
		h.refresh(ctx, ev.TeacherUIDs, ev.Usernames)
	}
}

func (h *Hub) broadcast(ctx context.Context, ev event) {
	if h.rdb == nil {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("序列化推送事件失败", zap.Error(err))
		return
	}
	if err := h.rdb.Publish(ctx, Channel, payload); err != nil {
		h.logger.Warn("发布推送事件失败", zap.Error(err))
	}
}

// refresh 对可见集合命中的订阅者重新加载快照
func (h *Hub) refresh(ctx context.Context, teacherUIDs, usernames []string) {
	for _, sub := range h.match(teacherUIDs, usernames) {
		if err := h.pushSnapshot(ctx, sub); err != nil {
			h.logger.Warn("刷新快照失败", zap.String("sub_id", sub.ID), zap.Error(err))
		}
	}
}

func (h *Hub) match(teacherUIDs, usernames []string) []*Subscriber {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var out []*Subscriber
	for _, sub := range h.subs {
		switch sub.Role {
		case model.RoleTeacher:
			if contains(teacherUIDs, sub.AccountID) {
				out = append(out, sub)
			}
		default:
			if contains(usernames, sub.Username) {
				out = append(out, sub)
			}
		}
	}
	return out
}

func (h *Hub) load(ctx context.Context, sub *Subscriber) ([]model.Group, error) {
	if sub.Role == model.RoleTeacher {
		return h.loader.ListByTeacher(ctx, sub.AccountID)
	}
	return h.loader.ListByStudentUsername(ctx, sub.Username)
}

func (h *Hub) pushSnapshot(ctx context.Context, sub *Subscriber) error {
	sub.loadMu.Lock()
	defer sub.loadMu.Unlock()
	if sub.closed() {
		return nil
	}

	groups, err := h.load(ctx, sub)
	if err != nil {
		return err
	}
	if groups == nil {
		groups = []model.Group{}
	}
	msg := Message{Type: TypeSnapshot, Seq: h.seq.Add(1), Groups: groups}

	// 替换尚未被消费的旧快照
	for {
		select {
		case sub.snap <- msg:
			return nil
		default:
		}
		select {
		case <-sub.snap:
		default:
		}
	}
}

func (h *Hub) deliverNotification(accountID string, n *model.Notification) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs {
		if sub.AccountID != accountID {
			continue
		}
		msg := Message{Type: TypeNotification, Seq: h.seq.Add(1), Notification: n}
		select {
		case sub.notes <- msg:
		default:
			h.logger.Warn("通知缓冲已满，丢弃", zap.String("sub_id", sub.ID))
		}
	}
}

func appendUnique(list []string, v string) []string {
	if v == "" || contains(list, v) {
		return list
	}
	return append(list, v)
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
