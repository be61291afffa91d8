package handlers

import (
	"context"
	"time"

	"SaChat/logger"
	chat "SaChat/service/chat"
	"SaChat/service/notify"
	"SaChat/tools/decode"
)

const lookupTimeout = 5 * time.Second

// RegisterHandler 绑定用户身份到连接，成功后全量广播上线。
// 残缺 payload / 未知用户静默忽略（源协议约定，不回错误）。
type RegisterHandler struct{}

func (RegisterHandler) Type() chat.EventType { return chat.EventRegister }

func (RegisterHandler) Handle(ctx *chat.ChatContext, f *chat.Frame, sess *chat.Session) error {
	p, err := decode.DecodeJSON[chat.RegisterPayload](f.Data)
	if err != nil || p.UserID <= 0 {
		return nil
	}

	c, cancel := context.WithTimeout(context.Background(), lookupTimeout)
	defer cancel()

	phone, ok := ctx.S.Presence().Register(c, p.UserID, sess.Conn)
	if !ok {
		return nil
	}
	sess.Identify(p.UserID, phone)
	logger.Infof("[register] user=%d phone=%s connID=%s", p.UserID, phone, sess.Conn.ID())

	ctx.S.BroadcastOnlineStatus(phone, true)
	ctx.S.Notify().Emit(notify.Event{Kind: notify.KindUserOnline, UserID: p.UserID, Phone: phone})
	return nil
}
