package model

import "time"

// Contact 保存的联系人（sachat_contacts JOIN users/sachat_users）。
type Contact struct {
	Name     string `json:"name"`
	Phone    string `json:"phone_number"`
	SaChatID string `json:"sachat_id,omitempty"`
}

// ChatSummary 会话列表里的一个条目：对端、最后一条消息、未读数。
type ChatSummary struct {
	ContactID         int64     `json:"contact_id"`
	Name              string    `json:"name"`
	Phone             string    `json:"phone"`
	LastMessage       string    `json:"lastMessage"`
	LastMessageTime   time.Time `json:"lastMessageTime"`
	LastMessageSender int64     `json:"lastMessageSender"`
	UnreadCount       int64     `json:"unreadCount"`
	IsOnline          bool      `json:"isOnline"`
}
