package httpapi

import (
	"net/http"
	"time"

	"github.com/STARTUPinnovator/smartbin/internal/hub"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// 仪表盘跨域连接（原型阶段不做来源校验）
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// streamFrame 推送给观察者的帧：{"event":"update","data":{...}}
type streamFrame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// StreamHandler GET /api/v1/stream：观察者 WebSocket 接入
type StreamHandler struct {
	hub    *hub.Hub
	logger *zap.Logger
}

func NewStreamHandler(h *hub.Hub, logger *zap.Logger) *StreamHandler {
	return &StreamHandler{hub: h, logger: logger}
}

func (h *StreamHandler) ServeStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade 已经写了响应
		h.logger.Debug("WebSocket upgrade failed", zap.Error(err))
		return
	}

	sub := h.hub.Subscribe()
	h.logger.Info("Observer connected",
		zap.String("observer_id", sub.ID()),
		zap.String("remote_addr", r.RemoteAddr),
	)

	// 读协程只负责探测客户端断开和响应 pong
	go h.readPump(conn, sub)
	h.writePump(conn, sub)
}

func (h *StreamHandler) readPump(conn *websocket.Conn, sub *hub.Subscriber) {
	defer sub.Close()

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *StreamHandler) writePump(conn *websocket.Conn, sub *hub.Subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		sub.Close()
		_ = conn.Close()
		h.logger.Info("Observer disconnected", zap.String("observer_id", sub.ID()))
	}()

	for {
		select {
		case update := <-sub.Events():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(streamFrame{Event: "update", Data: update}); err != nil {
				// 单个观察者的投递失败只断开它自己
				h.logger.Debug("Observer write failed",
					zap.String("observer_id", sub.ID()),
					zap.Error(err),
				)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-sub.Done():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return
		}
	}
}
