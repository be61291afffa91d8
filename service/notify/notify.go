package notify

import (
	"encoding/json"
	"strconv"
	"time"

	"SaChat/logger"
	ka "SaChat/service/kafka"
)

// 通知事件种类
const (
	KindMessageSent = "message.sent"
	KindMessageSeen = "message.seen"
	KindUserOnline  = "user.online"
	KindUserOffline = "user.offline"
)

// Event 发给下游（邮件/推送/审计日志）的通知事件。
type Event struct {
	Kind      string    `json:"kind"`
	UserID    int64     `json:"user_id"`
	PeerID    int64     `json:"peer_id,omitempty"`
	MessageID int64     `json:"message_id,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	At        time.Time `json:"at"`
}

// Dispatcher fire-and-forget：核心从不依赖它的成败。
type Dispatcher interface {
	Emit(evt Event)
}

// Nop 未配置 kafka 时的空实现（单测也用它）。
type Nop struct{}

func (Nop) Emit(Event) {}

// Kafka 把事件异步写到通知 topic，按用户 id 做 key 保证同用户有序。
type Kafka struct {
	Topic string
}

func NewKafka(topic string) *Kafka {
	if topic == "" {
		topic = ka.Cfg.NotifyTopic
	}
	return &Kafka{Topic: topic}
}

func (k *Kafka) Emit(evt Event) {
	if evt.At.IsZero() {
		evt.At = time.Now()
	}
	b, err := json.Marshal(evt)
	if err != nil {
		logger.Errorf("[notify] marshal event kind=%s err=%v", evt.Kind, err)
		return
	}
	ka.SendAsync(k.Topic, strconv.FormatInt(evt.UserID, 10), b)
}
