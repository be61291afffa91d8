package handlers

import (
	"context"

	chat "SaChat/service/chat"
	"SaChat/tools/decode"
	"SaChat/tools/errs"
)

// MarkSeenHandler 收件人确认已读；发件人（在线的）由协调器推 message_seen。
type MarkSeenHandler struct{}

func (MarkSeenHandler) Type() chat.EventType { return chat.EventMarkSeen }

func (MarkSeenHandler) Handle(ctx *chat.ChatContext, f *chat.Frame, sess *chat.Session) error {
	if !sess.Identified() {
		return errs.ErrUnauthorized.WrapMsg("mark_seen requires register")
	}
	p, err := decode.DecodeJSON[chat.MarkSeenPayload](f.Data)
	if err != nil || len(p.MessageIDs) == 0 {
		return errs.ErrMalformedInput.WrapMsg("mark_seen payload")
	}

	c, cancel := context.WithTimeout(context.Background(), lookupTimeout)
	defer cancel()

	_, err = ctx.S.Delivery().MarkSeen(c, sess.UserID(), p.MessageIDs)
	return err
}
