package notify

import (
	"encoding/json"
	"net/http"
	"strconv"

	"BProject/logger"
	notifyservice "BProject/module/notify/service"
	"BProject/service/gateway"
	"BProject/tools/ids"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handler 通知子系统的出入口：HTTP 查询/置读 + WebSocket 订阅流。
// 鉴权由外部网关负责，这里直接信 user_id 参数。
type Handler struct {
	svc    *notifyservice.NotifyService
	fanout *gateway.Fanout
}

func NewHandler(svc *notifyservice.NotifyService, fanout *gateway.Fanout) *Handler {
	return &Handler{svc: svc, fanout: fanout}
}

func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/notify/unread", h.HandleUnread)
	r.GET("/notify/all", h.HandleAll)
	r.GET("/notify/unread_count", h.HandleUnreadCount)
	r.POST("/notify/seen", h.HandleMarkSeen)
	r.GET("/notify/ws", h.HandleWS)
}

func (h *Handler) HandleUnread(c *gin.Context) {
	userID := c.Query("user_id")
	markers, err := h.svc.GetUnreadMarkers(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"markers": markers})
}

func (h *Handler) HandleAll(c *gin.Context) {
	userID := c.Query("user_id")
	markers, err := h.svc.GetAllMarkers(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"markers": markers})
}

func (h *Handler) HandleUnreadCount(c *gin.Context) {
	userID := c.Query("user_id")
	count, err := h.svc.GetUnreadCount(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"unreadCount": count})
}

// Version 不标 required：version=0 是合法的空操作置读。
type markSeenReq struct {
	UserID  string `json:"userId" binding:"required"`
	Version int64  `json:"version"`
}

func (h *Handler) HandleMarkSeen(c *gin.Context) {
	var req markSeenReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Version < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid version"})
		return
	}
	cur, count, err := h.svc.MarkSeen(c.Request.Context(), req.UserID, req.Version)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cursor": cur, "unreadCount": count})
}

// HandleWS 订阅流：可选 cursor 参数做增量过滤（只收 version > cursor）。
// 流只推“在线期间到达”的 marker；断连期间的缺口由客户端
// 调历史拉取接口对账，这里不做重放。
func (h *Handler) HandleWS(c *gin.Context) {
	userID := c.Query("user_id")

	var cursor int64
	if v := c.Query("cursor"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid cursor"})
			return
		}
		cursor = n
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Infof("[HandleWS] upgrade websocket error: %v", err)
		return
	}

	client := gateway.NewClient(ids.GenerateString(), userID, ws, 64)
	listener := h.fanout.Add(cursor, 64)
	logger.Infof("[HandleWS] listener %s connected user=%s cursor=%d", listener.ID, userID, cursor)

	go client.WritePump()

	// ---- 读循环：只为感知断连；客户端不上行业务数据 ----
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// ---- 推送循环：listener 通道 → 客户端发送队列 ----
	for {
		select {
		case m := <-listener.C():
			if m == nil {
				continue
			}
			payload, err := json.Marshal(m)
			if err != nil {
				logger.Errorf("[HandleWS] marshal marker v%d: %v", m.Version, err)
				continue
			}
			select {
			case client.Send <- payload:
			default:
				// Slow client: can be counted/disconnected; here we choose to skip
			}
		case <-listener.Done():
			h.cleanup(client, ws, listener.ID)
			return
		case <-readerDone:
			h.cleanup(client, ws, listener.ID)
			return
		}
	}
}

func (h *Handler) cleanup(client *gateway.Client, ws *websocket.Conn, listenerID string) {
	h.fanout.Remove(listenerID)
	close(client.Send)
	_ = ws.Close()
	logger.Infof("[HandleWS] listener %s disconnected", listenerID)
}
