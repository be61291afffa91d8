package handlers

import (
	chat "SaChat/service/chat"
	"SaChat/tools/decode"
)

// CheckOnlineHandler 回答发起方某个手机号当前是否在线（只回给请求连接）。
type CheckOnlineHandler struct{}

func (CheckOnlineHandler) Type() chat.EventType { return chat.EventCheckOnline }

func (CheckOnlineHandler) Handle(ctx *chat.ChatContext, f *chat.Frame, sess *chat.Session) error {
	p, err := decode.DecodeJSON[chat.CheckOnlinePayload](f.Data)
	if err != nil || p.Phone == "" {
		return nil
	}
	frame, err := chat.BuildOnlineStatus(p.Phone, ctx.S.Presence().IsOnline(p.Phone))
	if err != nil {
		return err
	}
	return sess.Conn.Send(frame)
}
