package feed

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const maxInboundBytes = 512

// Serve 驱动一个已升级的 WebSocket 连接直到断开或 ctx 结束
// 客户端只需读取；入站消息仅用于维持心跳并被忽略
func (h *Hub) Serve(ctx context.Context, conn *websocket.Conn, sub *Subscriber) {
	defer h.Unsubscribe(sub)
	defer conn.Close()

	ping := h.cfg.PingInterval
	if ping <= 0 {
		ping = 30 * time.Second
	}
	writeTimeout := h.cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	pongWait := ping * 2

	conn.SetReadLimit(maxInboundBytes)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(ping)
	defer ticker.Stop()

	write := func(msg Message) bool {
		if sub.closed() {
			return true // 由 done 分支发送关闭帧
		}
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(msg); err != nil {
			h.logger.Debug("推送写入失败，断开连接", zap.String("sub_id", sub.ID), zap.Error(err))
			return false
		}
		return true
	}

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
				time.Now().Add(writeTimeout))
			return
		case <-closed:
			return
		case <-sub.done:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "session ended"),
				time.Now().Add(writeTimeout))
			return
		case msg := <-sub.snap:
			if !write(msg) {
				return
			}
		case msg := <-sub.notes:
			if !write(msg) {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}
