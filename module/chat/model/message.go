package model

import "time"

// Status is the three-stage delivery state of a persisted message.
// 只进不退：pending -> delivered -> seen
type Status string

const (
	StatusPending   Status = "pending"
	StatusDelivered Status = "delivered"
	StatusSeen      Status = "seen"
)

// Rank 返回状态机中的序号；未知状态视为 -1。
func (s Status) Rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusDelivered:
		return 1
	case StatusSeen:
		return 2
	}
	return -1
}

// CanAdvanceTo reports whether moving from s to next is a forward
// transition of the status machine.
func (s Status) CanAdvanceTo(next Status) bool {
	return next.Rank() > s.Rank()
}

// Message 对应 sachat_messages 表的一行。
type Message struct {
	ID          int64     `json:"id"`
	SenderID    int64     `json:"sender_id"`
	RecipientID int64     `json:"recipient_id"`
	Body        string    `json:"message_text"`
	Timestamp   time.Time `json:"timestamp"`
	Status      Status    `json:"status"`
}
