package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"SaChat/module/chat/model"
)

// ===== fake connection =====

type fakeConn struct {
	id string

	mu       sync.Mutex
	frames   [][]byte
	failSend bool
	closed   bool
}

func newFakeConn(id string) *fakeConn { return &fakeConn{id: id} }

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failSend {
		return fmt.Errorf("conn %s is dead", c.id)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	c.frames = append(c.frames, cp)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) frameCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

func (c *fakeConn) lastFrame(t *testing.T) *Frame {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.frames) == 0 {
		t.Fatalf("conn %s received no frames", c.id)
	}
	var f Frame
	if err := json.Unmarshal(c.frames[len(c.frames)-1], &f); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	return &f
}

// ===== fake user directory =====

type fakeDirectory struct {
	mu      sync.Mutex
	byID    map[int64]string // id -> phone
	byPhone map[string]int64
	names   map[int64]string
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		byID:    make(map[int64]string),
		byPhone: make(map[string]int64),
		names:   make(map[int64]string),
	}
}

func (d *fakeDirectory) add(id int64, phone string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.byID[id] = phone
	d.byPhone[phone] = id
}

func (d *fakeDirectory) FindUserIDByPhone(_ context.Context, phone string) (int64, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id, ok := d.byPhone[phone]
	return id, ok, nil
}

func (d *fakeDirectory) FindPhoneByUserID(_ context.Context, userID int64) (string, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	phone, ok := d.byID[userID]
	return phone, ok, nil
}

func (d *fakeDirectory) FindUsernameByUserID(_ context.Context, userID int64) (string, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	name, ok := d.names[userID]
	return name, ok, nil
}

// ===== fake message store =====

type fakeMessageStore struct {
	mu     sync.Mutex
	nextID int64
	clock  int64 // 单调毫秒，避免同毫秒并列
	msgs   map[int64]*model.Message

	failInsert bool
}

func newFakeMessageStore() *fakeMessageStore {
	return &fakeMessageStore{nextID: 1, clock: time.Now().UnixMilli(), msgs: make(map[int64]*model.Message)}
}

func (s *fakeMessageStore) Insert(_ context.Context, senderID, recipientID int64, body string) (*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failInsert {
		return nil, fmt.Errorf("insert failed")
	}
	s.clock++
	m := &model.Message{
		ID:          s.nextID,
		SenderID:    senderID,
		RecipientID: recipientID,
		Body:        body,
		Timestamp:   time.UnixMilli(s.clock),
		Status:      model.StatusPending,
	}
	s.nextID++
	s.msgs[m.ID] = m
	cp := *m
	return &cp, nil
}

func (s *fakeMessageStore) UpdateStatus(_ context.Context, messageID int64, status model.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.msgs[messageID]
	if !ok {
		return nil
	}
	// 只进不退
	if m.Status.CanAdvanceTo(status) {
		m.Status = status
	}
	return nil
}

func (s *fakeMessageStore) UpdateStatusWhereRecipient(_ context.Context, messageIDs []int64, recipientID int64, status model.Status) ([]model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Message
	for _, id := range messageIDs {
		m, ok := s.msgs[id]
		if !ok || m.RecipientID != recipientID {
			continue
		}
		if !m.Status.CanAdvanceTo(status) {
			continue
		}
		m.Status = status
		out = append(out, *m)
	}
	return out, nil
}

func (s *fakeMessageStore) ListConversation(_ context.Context, userA, userB int64) ([]model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Message
	for _, m := range s.msgs {
		if (m.SenderID == userA && m.RecipientID == userB) || (m.SenderID == userB && m.RecipientID == userA) {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *fakeMessageStore) status(t *testing.T, id int64) model.Status {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.msgs[id]
	if !ok {
		t.Fatalf("message %d not in store", id)
	}
	return m.Status
}

// waitFor 轮询直到条件成立或超时（宽限期/异步广播用）。
func waitFor(t *testing.T, d time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return cond()
}
