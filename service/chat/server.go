package chat

import (
	"SaChat/logger"
	"SaChat/module/user"
	"SaChat/service/notify"
	"SaChat/tools/safe"
)

// Server 实时网关：连接管理、在线注册表、投递协调器、事件分发。
type Server struct {
	gwID     string
	connMgr  *ConnManager
	presence *PresenceRegistry
	delivery *Delivery
	dir      user.Directory
	disp     *Dispatcher
	notify   notify.Dispatcher
}

func NewServer(gwID string, presence *PresenceRegistry, delivery *Delivery, dir user.Directory, n notify.Dispatcher) *Server {
	if n == nil {
		n = notify.Nop{}
	}
	s := &Server{
		gwID:     gwID,
		connMgr:  NewConnManager(),
		presence: presence,
		delivery: delivery,
		dir:      dir,
		disp:     NewDispatcher(),
		notify:   n,
	}

	// 宽限期到点下线：广播 + 通知事件
	presence.OnOffline(func(userID int64, phone string) {
		s.BroadcastOnlineStatus(phone, false)
		s.notify.Emit(notify.Event{Kind: notify.KindUserOffline, UserID: userID, Phone: phone})
	})
	return s
}

func (s *Server) GwID() string               { return s.gwID }
func (s *Server) ConnMgr() *ConnManager      { return s.connMgr }
func (s *Server) Presence() *PresenceRegistry { return s.presence }
func (s *Server) Delivery() *Delivery        { return s.delivery }
func (s *Server) Directory() user.Directory  { return s.dir }
func (s *Server) Disp() *Dispatcher          { return s.disp }
func (s *Server) Notify() notify.Dispatcher  { return s.notify }

// BroadcastOnlineStatus 上线/下线全量广播（客户端自己按关心的手机号过滤）。
func (s *Server) BroadcastOnlineStatus(phone string, online bool) {
	frame, err := BuildOnlineStatus(phone, online)
	if err != nil {
		logger.Errorf("[server] build online status: %v", err)
		return
	}
	safe.Go(func() {
		if err := s.connMgr.Broadcast(frame); err != nil {
			logger.Infof("[server] broadcast online status phone=%s err=%v", phone, err)
		}
	})
}

func (s *Server) Close() {
	s.connMgr.Close()
}
