package chat

import (
	"context"
	"strconv"

	"SaChat/logger"
	"SaChat/module/chat/model"
	"SaChat/module/chat/store"
	"SaChat/module/user"
	"SaChat/service/notify"
	"SaChat/tools/errs"
)

func formatUserID(id int64) string { return strconv.FormatInt(id, 10) }

// Delivery 投递协调器：落库 -> 查在线 -> push 或留 pending -> 推状态回执。
// push 失败从来不是错误；持久化状态才是唯一权威。
type Delivery struct {
	store    store.MessageStore
	dir      user.Directory
	presence *PresenceRegistry
	notify   notify.Dispatcher
}

func NewDelivery(s store.MessageStore, dir user.Directory, presence *PresenceRegistry, n notify.Dispatcher) *Delivery {
	if n == nil {
		n = notify.Nop{}
	}
	return &Delivery{store: s, dir: dir, presence: presence, notify: n}
}

// Send 持久化并尽力投递一条消息。收件人离线不是错误：消息带着
// pending 状态返回，等对方下次拉历史时补齐。
func (d *Delivery) Send(ctx context.Context, senderID int64, toPhone, body string) (*model.Message, error) {
	if senderID <= 0 || toPhone == "" || body == "" {
		return nil, errs.ErrMalformedInput.WrapMsg("send requires sender, recipient phone and body")
	}

	recipientID, ok, err := d.dir.FindUserIDByPhone(ctx, toPhone)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errs.ErrRecipientNotFound.WrapMsg("phone", "to", toPhone)
	}

	msg, err := d.store.Insert(ctx, senderID, recipientID, body)
	if err != nil {
		return nil, err
	}

	if conn, online := d.presence.Lookup(recipientID); online {
		senderPhone, _, perr := d.dir.FindPhoneByUserID(ctx, senderID)
		if perr != nil {
			logger.Warnf("[delivery] sender phone lookup user=%d err=%v", senderID, perr)
		}
		// push 携带 delivered；连接实际已死也无所谓，收件人下次
		// load_messages 会从库里对齐
		if frame, ferr := BuildReceiveMessage(msg, senderPhone, model.StatusDelivered); ferr == nil {
			if serr := conn.Send(frame); serr != nil {
				logger.Infof("[delivery] push failed msg=%d user=%d err=%v", msg.ID, recipientID, serr)
			}
		}
		if uerr := d.store.UpdateStatus(ctx, msg.ID, model.StatusDelivered); uerr != nil {
			logger.Errorf("[delivery] mark delivered msg=%d err=%v", msg.ID, uerr)
		} else {
			msg.Status = model.StatusDelivered
		}
	}

	d.notify.Emit(notify.Event{
		Kind:      notify.KindMessageSent,
		UserID:    senderID,
		PeerID:    recipientID,
		MessageID: msg.ID,
		At:        msg.Timestamp,
	})
	return msg, nil
}

// MarkSeen 把收件人名下的消息推进到 seen，并给在线的发件人推 message_seen。
// 非本人消息被静默排除；一条都没更新时返回合并的 not-found/unauthorized。
func (d *Delivery) MarkSeen(ctx context.Context, userID int64, messageIDs []int64) (int, error) {
	if userID <= 0 || len(messageIDs) == 0 {
		return 0, errs.ErrMalformedInput.WrapMsg("mark seen requires user and message ids")
	}

	updated, err := d.store.UpdateStatusWhereRecipient(ctx, messageIDs, userID, model.StatusSeen)
	if err != nil {
		return 0, err
	}
	if len(updated) == 0 {
		return 0, errs.ErrSeenNotUpdated.Wrap()
	}

	for _, m := range updated {
		conn, online := d.presence.Lookup(m.SenderID)
		if !online {
			continue
		}
		frame, ferr := BuildMessageSeen(m.ID)
		if ferr != nil {
			continue
		}
		if serr := conn.Send(frame); serr != nil {
			logger.Infof("[delivery] seen push failed msg=%d sender=%d err=%v", m.ID, m.SenderID, serr)
		}
	}

	d.notify.Emit(notify.Event{
		Kind:   notify.KindMessageSeen,
		UserID: userID,
	})
	return len(updated), nil
}

// History 双方向会话历史，按时间升序；纯读，可重复调用。
func (d *Delivery) History(ctx context.Context, userID int64, withPhone string) ([]model.Message, error) {
	if userID <= 0 || withPhone == "" {
		return nil, errs.ErrMalformedInput.WrapMsg("history requires user and counterparty phone")
	}
	counterpartyID, ok, err := d.dir.FindUserIDByPhone(ctx, withPhone)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errs.ErrRecipientNotFound.WrapMsg("phone", "with", withPhone)
	}
	return d.store.ListConversation(ctx, userID, counterpartyID)
}
