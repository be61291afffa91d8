package handlers

import (
	"context"

	chat "SaChat/service/chat"
	"SaChat/tools/decode"
	"SaChat/tools/errs"
)

// typing/stop_typing：纯瞬时信号，收件人不在线就丢弃，不排队不重试。

type TypingHandler struct{}

func (TypingHandler) Type() chat.EventType { return chat.EventTyping }

func (TypingHandler) Handle(ctx *chat.ChatContext, f *chat.Frame, sess *chat.Session) error {
	return relayTyping(ctx, f, sess, chat.EventShowTyping)
}

type StopTypingHandler struct{}

func (StopTypingHandler) Type() chat.EventType { return chat.EventStopTyping }

func (StopTypingHandler) Handle(ctx *chat.ChatContext, f *chat.Frame, sess *chat.Session) error {
	return relayTyping(ctx, f, sess, chat.EventHideTyping)
}

func relayTyping(ctx *chat.ChatContext, f *chat.Frame, sess *chat.Session, out chat.EventType) error {
	if !sess.Identified() {
		return errs.ErrUnauthorized.WrapMsg("typing requires register")
	}
	p, err := decode.DecodeJSON[chat.TypingPayload](f.Data)
	if err != nil || p.ToPhone == "" {
		// 瞬时信号：残缺 payload 直接丢
		return nil
	}

	c, cancel := context.WithTimeout(context.Background(), lookupTimeout)
	defer cancel()

	recipientID, ok, err := ctx.S.Directory().FindUserIDByPhone(c, p.ToPhone)
	if err != nil || !ok {
		return nil
	}
	conn, online := ctx.S.Presence().Lookup(recipientID)
	if !online {
		return nil
	}

	frame, err := chat.BuildTypingNotice(out, sess.Phone())
	if err != nil {
		return nil
	}
	_ = conn.Send(frame) // 丢了就丢了
	return nil
}
