package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"soundswap/logger"

	"github.com/gorilla/websocket"
)

// MessageType 推送消息类型
type MessageType string

const (
	MsgTypeSnapshot MessageType = "snapshot" // 连接建立时的全部状态
	MsgTypeStatus   MessageType = "status"   // 单个域状态更新
)

// WSMessage WebSocket 消息结构
type WSMessage struct {
	Type      MessageType     `json:"type"`
	Domain    string          `json:"domain,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Client 一个状态订阅连接
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	domain string // 为空表示订阅全部域
}

// Hub 状态推送中心
type Hub struct {
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *WSMessage

	mu   sync.RWMutex
	done chan struct{}
	once sync.Once
}

// NewHub 创建 Hub，调用 Run 之后才开始分发
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *WSMessage, 256),
		done:       make(chan struct{}),
	}
}

// Run 启动 Hub 主循环
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			logger.Info("状态订阅已连接", logger.String("domain", client.domain))

		case client := <-h.unregister:
			h.mu.Lock()
			h.removeClient(client)
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.dispatch(msg)

		case <-h.done:
			h.cleanup()
			return
		}
	}
}

// Stop 停止 Hub，关闭所有连接的发送通道
func (h *Hub) Stop() {
	h.once.Do(func() { close(h.done) })
}

// Broadcast 排队一条消息；队列满时丢弃
func (h *Hub) Broadcast(msg *WSMessage) {
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixMilli()
	}
	select {
	case h.broadcast <- msg:
	default:
		logger.Warn("状态推送队列已满，丢弃消息", logger.String("domain", msg.Domain))
	}
}

// ClientCount 当前连接数
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) dispatch(msg *WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		logger.Error("序列化推送消息失败", logger.ErrorField(err))
		return
	}

	h.mu.RLock()
	clientList := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		if client.domain == "" || client.domain == msg.Domain {
			clientList = append(clientList, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range clientList {
		select {
		case client.send <- data:
		default:
			// 发送缓冲区满，移除客户端
			h.mu.Lock()
			h.removeClient(client)
			h.mu.Unlock()
		}
	}
}

// removeClient 需要持有锁
func (h *Hub) removeClient(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)
	logger.Info("状态订阅已断开", logger.String("domain", client.domain))
}

func (h *Hub) cleanup() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
	}
	h.clients = make(map[*Client]bool)
}

// serve 升级连接并启动读写循环，initial 在注册前放入发送队列
func (h *Hub) serve(w http.ResponseWriter, r *http.Request, domain string, initial []*WSMessage) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", logger.ErrorField(err))
		return
	}

	client := &Client{hub: h, conn: conn, send: make(chan []byte, 64), domain: domain}
	for _, msg := range initial {
		if msg.Timestamp == 0 {
			msg.Timestamp = time.Now().UnixMilli()
		}
		if data, err := json.Marshal(msg); err == nil {
			client.send <- data
		}
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}
	go client.writePump()
	go client.readPump()
}

// readPump 客户端只读，消息内容被忽略；连接断开时注销
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("websocket read error", logger.ErrorField(err))
			}
			return
		}
	}
}

// writePump 每条消息单独一帧，定时发送 ping
func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				// Hub 关闭了通道
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
