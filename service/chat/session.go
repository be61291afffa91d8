package chat

import "sync"

// Session 单条连接的会话状态机：Anonymous -> Identified -> Closed。
// register 成功之前只有连接句柄，没有用户身份。
type Session struct {
	Conn Conn

	mu     sync.Mutex
	userID int64
	phone  string
}

func NewSession(conn Conn) *Session {
	return &Session{Conn: conn}
}

// Identify register 成功后绑定用户身份。
func (s *Session) Identify(userID int64, phone string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = userID
	s.phone = phone
}

func (s *Session) Identified() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID > 0
}

func (s *Session) UserID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

func (s *Session) Phone() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phone
}
