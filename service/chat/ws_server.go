package chat

import (
	"net"
	"net/http"

	"SaChat/logger"
	"SaChat/tools/errs"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{ReadBufferSize: 4096, WriteBufferSize: 4096, CheckOrigin: func(r *http.Request) bool { return true }}

// HandleWS ===== WebSocket 读循环 =====
// 一个连接一个会话；入站帧解析后交给 dispatcher，出错只跳过当前帧。
func (s *Server) HandleWS(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Infof("[HandleWS] upgrade websocket error: %v", err)
		return
	}

	conn := NewWsConn(ws)
	sess := NewSession(conn)
	s.connMgr.Add(conn)
	logger.Infof("[HandleWS] connected connID=%s remote=%s", conn.ID(), ws.RemoteAddr())

	defer func() {
		// 断线：宽限期下线（re-register 会取消），连接登记移除
		s.presence.Disconnect(conn.ID())
		s.connMgr.Remove(conn.ID())
		_ = conn.Close()
		logger.Infof("[HandleWS] closed connID=%s user=%d", conn.ID(), sess.UserID())
	}()

	for {
		mt, data, rerr := ws.ReadMessage()
		if rerr != nil {
			if websocket.IsCloseError(rerr,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Infof("[WS] peer closed connID=%s err=%v", conn.ID(), rerr)
			} else if ne, ok := rerr.(net.Error); ok && ne.Timeout() {
				logger.Infof("[WS] read timeout connID=%s err=%v", conn.ID(), rerr)
			} else {
				logger.Infof("[WS] read err connID=%s err=%v", conn.ID(), rerr)
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		frame, perr := ParseFrame(data)
		if perr != nil {
			sample := data
			if len(sample) > 256 {
				sample = sample[:256]
			}
			logger.Infof("[WS] ParseFrame err connID=%s err=%v sample=%q", conn.ID(), perr, sample)
			s.replyError(conn, errs.CodeMalformedInput, "malformed frame")
			continue
		}

		handler := s.disp.GetHandler(frame.Type)
		if handler == nil {
			continue
		}
		if herr := handler.Handle(&ChatContext{S: s}, frame, sess); herr != nil {
			logger.Infof("[WS] handler type=%s connID=%s err=%v", frame.Type, conn.ID(), herr)
			if ce := errs.CodeOf(herr); ce != nil {
				s.replyError(conn, ce.Code, ce.Msg)
			}
		}
	}
}

func (s *Server) replyError(conn Conn, code int, msg string) {
	frame, err := BuildErrorFrame(code, msg)
	if err != nil {
		return
	}
	_ = conn.Send(frame)
}
