package chat

import (
	"errors"
	"sync"
	"time"

	"SaChat/tools/ids"

	"github.com/gorilla/websocket"
)

// Conn 对单条客户端连接的推送句柄；presence 注册表与投递协调器
// 只依赖这个接口，单测里用假实现替换。
type Conn interface {
	ID() string
	Send(data []byte) error
	Close() error
}

// ===== websocket 实现 =====

type wsConn struct {
	id string
	ws *websocket.Conn

	mu sync.Mutex // 串行化写；gorilla 不允许并发 WriteMessage
}

func NewWsConn(ws *websocket.Conn) Conn {
	return &wsConn{id: ids.GenerateString(), ws: ws}
}

func (c *wsConn) ID() string { return c.id }

func (c *wsConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ws.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) Close() error { return c.ws.Close() }

// ===== 连接管理 =====

// ConnManager 登记所有活跃连接（匿名的和已注册的都算），
// 在线状态广播走这里；按用户寻址走 PresenceRegistry。
type ConnManager struct {
	mu    sync.RWMutex
	conns map[string]Conn // connID -> conn

	stopOnce sync.Once
}

func NewConnManager() *ConnManager {
	return &ConnManager{conns: make(map[string]Conn)}
}

func (m *ConnManager) Add(c Conn) {
	if c == nil || c.ID() == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conns[c.ID()] = c
}

func (m *ConnManager) Remove(connID string) {
	if connID == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.conns, connID)
}

func (m *ConnManager) Get(connID string) (Conn, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.conns[connID]
	return c, ok
}

func (m *ConnManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.conns)
}

// Broadcast 向所有连接发送；单条连接出错不影响其它连接，返回最后一个错误。
func (m *ConnManager) Broadcast(data []byte) error {
	m.mu.RLock()
	targets := make([]Conn, 0, len(m.conns))
	for _, c := range m.conns {
		targets = append(targets, c)
	}
	m.mu.RUnlock()

	var lastErr error
	for _, c := range targets {
		if err := c.Send(data); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

func (m *ConnManager) SendTo(connID string, data []byte) error {
	c, ok := m.Get(connID)
	if !ok {
		return errors.New("conn not found")
	}
	return c.Send(data)
}

func (m *ConnManager) Close() {
	m.stopOnce.Do(func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for _, c := range m.conns {
			_ = c.Close()
		}
		m.conns = map[string]Conn{}
	})
}
