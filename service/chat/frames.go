package chat

import (
	"encoding/json"
	"fmt"
	"time"

	"SaChat/module/chat/model"
)

// EventType 封闭事件集：入站/出站各自枚举，未知类型在解析时拒绝。
type EventType string

const (
	// inbound (client -> server)
	EventRegister     EventType = "register"
	EventCheckOnline  EventType = "check_online_status"
	EventSendMessage  EventType = "send_message"
	EventLoadMessages EventType = "load_messages"
	EventMarkSeen     EventType = "mark_seen"
	EventTyping       EventType = "typing"
	EventStopTyping   EventType = "stop_typing"

	// outbound (server -> client)
	EventOnlineStatus       EventType = "user_online_status"
	EventReceiveMessage     EventType = "receive_message"
	EventMessageSent        EventType = "message_sent"
	EventMessageSeen        EventType = "message_seen"
	EventLoadMessagesResult EventType = "load_messages_result"
	EventShowTyping         EventType = "show_typing"
	EventHideTyping         EventType = "hide_typing"
	EventError              EventType = "error"
)

var inboundEvents = map[EventType]struct{}{
	EventRegister:     {},
	EventCheckOnline:  {},
	EventSendMessage:  {},
	EventLoadMessages: {},
	EventMarkSeen:     {},
	EventTyping:       {},
	EventStopTyping:   {},
}

func (t EventType) Inbound() bool {
	_, ok := inboundEvents[t]
	return ok
}

// Frame 线上帧：{"type": "...", "data": {...}}
type Frame struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ParseFrame 解析入站帧；未知/出站事件类型一律拒绝。
func ParseFrame(raw []byte) (*Frame, error) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("unmarshal frame: %w", err)
	}
	if f.Type == "" {
		return nil, fmt.Errorf("frame missing type")
	}
	if !f.Type.Inbound() {
		return nil, fmt.Errorf("unknown inbound event type %q", f.Type)
	}
	return &f, nil
}

func MarshalFrame(t EventType, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", t, err)
	}
	return json.Marshal(Frame{Type: t, Data: data})
}

// ---- 入站 payload ----

type RegisterPayload struct {
	UserID int64 `json:"userId"`
}

type CheckOnlinePayload struct {
	Phone string `json:"phone"`
}

type SendMessagePayload struct {
	To      string `json:"to"` // recipient phone (routing key)
	Message string `json:"message"`
}

type LoadMessagesPayload struct {
	With string `json:"with"` // counterparty phone
}

type MarkSeenPayload struct {
	MessageIDs []int64 `json:"messageIds"`
}

type TypingPayload struct {
	ToPhone string `json:"to_phone"`
}

// ---- 出站 payload 与构造器 ----

type OnlineStatusPayload struct {
	Phone    string `json:"phone"`
	IsOnline bool   `json:"isOnline"`
}

type ReceiveMessagePayload struct {
	From      int64     `json:"from"`
	FromPhone string    `json:"fromPhone"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	Status    string    `json:"status"`
	ID        int64     `json:"id"`
}

type MessageSeenPayload struct {
	MessageID int64  `json:"messageId"`
	Status    string `json:"status"`
}

type TypingNoticePayload struct {
	Phone string `json:"phone"`
}

type ErrorPayload struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func BuildOnlineStatus(phone string, online bool) ([]byte, error) {
	return MarshalFrame(EventOnlineStatus, OnlineStatusPayload{Phone: phone, IsOnline: online})
}

func BuildReceiveMessage(m *model.Message, fromPhone string, status model.Status) ([]byte, error) {
	return MarshalFrame(EventReceiveMessage, ReceiveMessagePayload{
		From:      m.SenderID,
		FromPhone: fromPhone,
		Text:      m.Body,
		Timestamp: m.Timestamp,
		Status:    string(status),
		ID:        m.ID,
	})
}

func BuildMessageSeen(messageID int64) ([]byte, error) {
	return MarshalFrame(EventMessageSeen, MessageSeenPayload{MessageID: messageID, Status: string(model.StatusSeen)})
}

func BuildTypingNotice(t EventType, phone string) ([]byte, error) {
	return MarshalFrame(t, TypingNoticePayload{Phone: phone})
}

func BuildErrorFrame(code int, msg string) ([]byte, error) {
	return MarshalFrame(EventError, ErrorPayload{Code: code, Msg: msg})
}
