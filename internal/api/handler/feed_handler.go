package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"manasa/backend/internal/api/middleware"
	"manasa/backend/internal/feed"
)

// FeedHub 推送中心（feed.Hub）
type FeedHub interface {
	Subscribe(ctx context.Context, sessionID, accountID, username, role string) (*feed.Subscriber, error)
	Unsubscribe(sub *feed.Subscriber)
	Serve(ctx context.Context, conn *websocket.Conn, sub *feed.Subscriber)
}

// FeedHandler 小组快照实时推送（WebSocket）
type FeedHandler struct {
	hub      FeedHub
	upgrader websocket.Upgrader
	shutdown context.Context // 服务关闭时结束所有推送连接
	logger   *zap.Logger
}

// NewFeedHandler 创建 FeedHandler，握手来源沿用 CORS 白名单
func NewFeedHandler(shutdown context.Context, hub FeedHub, allowOrigins []string, logger *zap.Logger) *FeedHandler {
	allowed := middleware.OriginAllowed(allowOrigins)
	return &FeedHandler{
		hub:      hub,
		shutdown: shutdown,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed(origin)
			},
		},
	}
}

// Subscribe 升级为 WebSocket 并持续推送，直到客户端断开或服务关闭
// GET /api/v1/feed?access_token=
func (h *FeedHandler) Subscribe(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	sub, err := h.hub.Subscribe(c.Request.Context(), caller.SessionID, caller.AccountID, caller.Username, caller.Role)
	if err != nil {
		handleError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade 已写入错误响应
		h.hub.Unsubscribe(sub)
		h.logger.Debug("WebSocket 握手失败", zap.String("user_id", caller.AccountID), zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	stop := context.AfterFunc(h.shutdown, cancel)
	defer stop()

	h.hub.Serve(ctx, conn, sub)
}
