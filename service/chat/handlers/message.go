package handlers

import (
	"context"

	chat "SaChat/service/chat"
	"SaChat/tools/decode"
	"SaChat/tools/errs"
)

// SendMessageHandler socket 路径的发消息入口。
// 必须先 register（比源实现更严的不变量：匿名连接不能代发）。
type SendMessageHandler struct{}

func (SendMessageHandler) Type() chat.EventType { return chat.EventSendMessage }

func (SendMessageHandler) Handle(ctx *chat.ChatContext, f *chat.Frame, sess *chat.Session) error {
	if !sess.Identified() {
		return errs.ErrUnauthorized.WrapMsg("send_message requires register")
	}
	p, err := decode.DecodeJSON[chat.SendMessagePayload](f.Data)
	if err != nil {
		return errs.ErrMalformedInput.WrapMsg("send_message payload")
	}

	c, cancel := context.WithTimeout(context.Background(), lookupTimeout)
	defer cancel()

	msg, err := ctx.S.Delivery().Send(c, sess.UserID(), p.To, p.Message)
	if err != nil {
		return err
	}

	// 回执给发送方：持久化后的消息（含最终状态）
	frame, err := chat.MarshalFrame(chat.EventMessageSent, msg)
	if err != nil {
		return err
	}
	return sess.Conn.Send(frame)
}

// LoadMessagesHandler 拉取与某个对端的全量历史，只回给请求连接。
type LoadMessagesHandler struct{}

func (LoadMessagesHandler) Type() chat.EventType { return chat.EventLoadMessages }

func (LoadMessagesHandler) Handle(ctx *chat.ChatContext, f *chat.Frame, sess *chat.Session) error {
	if !sess.Identified() {
		return errs.ErrUnauthorized.WrapMsg("load_messages requires register")
	}
	p, err := decode.DecodeJSON[chat.LoadMessagesPayload](f.Data)
	if err != nil {
		return errs.ErrMalformedInput.WrapMsg("load_messages payload")
	}

	c, cancel := context.WithTimeout(context.Background(), lookupTimeout)
	defer cancel()

	msgs, err := ctx.S.Delivery().History(c, sess.UserID(), p.With)
	if err != nil {
		return err
	}
	frame, err := chat.MarshalFrame(chat.EventLoadMessagesResult, msgs)
	if err != nil {
		return err
	}
	return sess.Conn.Send(frame)
}
