package handlers

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"SaChat/module/chat/model"
	chat "SaChat/service/chat"
	"SaChat/tools/errs"
)

// ===== gateway 级别的假件：走完整 dispatcher 管线 =====

type stubConn struct {
	id string

	mu     sync.Mutex
	frames [][]byte
}

func (c *stubConn) ID() string { return c.id }

func (c *stubConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	c.frames = append(c.frames, cp)
	return nil
}

func (c *stubConn) Close() error { return nil }

func (c *stubConn) typeAt(t *testing.T, i int) chat.EventType {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if i >= len(c.frames) {
		t.Fatalf("conn %s has %d frames, want index %d", c.id, len(c.frames), i)
	}
	var f chat.Frame
	if err := json.Unmarshal(c.frames[i], &f); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return f.Type
}

func (c *stubConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

type stubDir struct {
	byID    map[int64]string
	byPhone map[string]int64
}

func (d *stubDir) FindUserIDByPhone(_ context.Context, phone string) (int64, bool, error) {
	id, ok := d.byPhone[phone]
	return id, ok, nil
}

func (d *stubDir) FindPhoneByUserID(_ context.Context, userID int64) (string, bool, error) {
	p, ok := d.byID[userID]
	return p, ok, nil
}

func (d *stubDir) FindUsernameByUserID(context.Context, int64) (string, bool, error) {
	return "", false, nil
}

type stubStore struct {
	mu     sync.Mutex
	nextID int64
	msgs   []*model.Message
}

func (s *stubStore) Insert(_ context.Context, senderID, recipientID int64, body string) (*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	m := &model.Message{ID: s.nextID, SenderID: senderID, RecipientID: recipientID, Body: body,
		Timestamp: time.Now(), Status: model.StatusPending}
	s.msgs = append(s.msgs, m)
	cp := *m
	return &cp, nil
}

func (s *stubStore) UpdateStatus(_ context.Context, messageID int64, status model.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.msgs {
		if m.ID == messageID && m.Status.CanAdvanceTo(status) {
			m.Status = status
		}
	}
	return nil
}

func (s *stubStore) UpdateStatusWhereRecipient(_ context.Context, ids []int64, recipientID int64, status model.Status) ([]model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Message
	for _, m := range s.msgs {
		for _, id := range ids {
			if m.ID == id && m.RecipientID == recipientID && m.Status.CanAdvanceTo(status) {
				m.Status = status
				out = append(out, *m)
			}
		}
	}
	return out, nil
}

func (s *stubStore) ListConversation(_ context.Context, userA, userB int64) ([]model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Message
	for _, m := range s.msgs {
		if (m.SenderID == userA && m.RecipientID == userB) || (m.SenderID == userB && m.RecipientID == userA) {
			out = append(out, *m)
		}
	}
	return out, nil
}

func newTestGateway() (*chat.Server, *stubDir) {
	dir := &stubDir{
		byID:    map[int64]string{1: "13800000001", 2: "13800000002"},
		byPhone: map[string]int64{"13800000001": 1, "13800000002": 2},
	}
	presence := chat.NewPresenceRegistry(dir, "gw-test", chat.RegistryConf{GraceDelay: time.Second})
	delivery := chat.NewDelivery(&stubStore{}, dir, presence, nil)
	s := chat.NewServer("gw-test", presence, delivery, dir, nil)
	RegisterAll(s)
	return s, dir
}

func dispatch(t *testing.T, s *chat.Server, sess *chat.Session, raw string) error {
	t.Helper()
	f, err := chat.ParseFrame([]byte(raw))
	if err != nil {
		t.Fatalf("parse %s: %v", raw, err)
	}
	return s.Disp().Dispatch(&chat.ChatContext{S: s}, f, sess)
}

func wait(cond func() bool) bool {
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return cond()
}

// ===== tests =====

func TestRegisterIdentifiesAndBroadcasts(t *testing.T) {
	s, _ := newTestGateway()
	conn := &stubConn{id: "c1"}
	observer := &stubConn{id: "obs"}
	s.ConnMgr().Add(conn)
	s.ConnMgr().Add(observer)
	sess := chat.NewSession(conn)

	if err := dispatch(t, s, sess, `{"type":"register","data":{"userId":1}}`); err != nil {
		t.Fatalf("register: %v", err)
	}
	if !sess.Identified() || sess.UserID() != 1 || sess.Phone() != "13800000001" {
		t.Fatalf("session = %d %q", sess.UserID(), sess.Phone())
	}
	if !s.Presence().IsUserOnline(1) {
		t.Fatal("presence should record the user")
	}

	// 上线广播是异步的
	if !wait(func() bool { return observer.count() >= 1 }) {
		t.Fatal("observer never received the online broadcast")
	}
	if got := observer.typeAt(t, 0); got != chat.EventOnlineStatus {
		t.Fatalf("broadcast type = %s", got)
	}
}

func TestRegisterMalformedSilent(t *testing.T) {
	s, _ := newTestGateway()
	sess := chat.NewSession(&stubConn{id: "c1"})

	if err := dispatch(t, s, sess, `{"type":"register","data":{}}`); err != nil {
		t.Fatalf("missing userId should be silent, got %v", err)
	}
	if err := dispatch(t, s, sess, `{"type":"register","data":{"userId":-1}}`); err != nil {
		t.Fatalf("bad userId should be silent, got %v", err)
	}
	if err := dispatch(t, s, sess, `{"type":"register","data":{"userId":777}}`); err != nil {
		t.Fatalf("unknown user should be silent, got %v", err)
	}
	if sess.Identified() {
		t.Fatal("session must stay anonymous")
	}
}

func TestCheckOnlineRepliesOnlyToCaller(t *testing.T) {
	s, _ := newTestGateway()
	target := &stubConn{id: "c2"}
	s.Presence().Register(context.Background(), 2, target)

	caller := &stubConn{id: "c1"}
	other := &stubConn{id: "c3"}
	s.ConnMgr().Add(caller)
	s.ConnMgr().Add(other)
	sess := chat.NewSession(caller)

	if err := dispatch(t, s, sess, `{"type":"check_online_status","data":{"phone":"13800000002"}}`); err != nil {
		t.Fatalf("check: %v", err)
	}
	if caller.count() != 1 || caller.typeAt(t, 0) != chat.EventOnlineStatus {
		t.Fatalf("caller frames = %d", caller.count())
	}
	if other.count() != 0 {
		t.Fatal("status reply must not be broadcast")
	}
}

func TestSendMessageRequiresRegister(t *testing.T) {
	s, _ := newTestGateway()
	sess := chat.NewSession(&stubConn{id: "c1"})

	err := dispatch(t, s, sess, `{"type":"send_message","data":{"to":"13800000002","message":"hi"}}`)
	ce := errs.CodeOf(err)
	if ce == nil || ce.Code != errs.CodeUnauthorized {
		t.Fatalf("err = %v, want unauthorized", err)
	}
}

func TestSendMessageEchoesReceipt(t *testing.T) {
	s, _ := newTestGateway()
	conn := &stubConn{id: "c1"}
	sess := chat.NewSession(conn)
	if err := dispatch(t, s, sess, `{"type":"register","data":{"userId":1}}`); err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := dispatch(t, s, sess, `{"type":"send_message","data":{"to":"13800000002","message":"hi"}}`); err != nil {
		t.Fatalf("send: %v", err)
	}

	found := false
	for i := 0; i < conn.count(); i++ {
		if conn.typeAt(t, i) == chat.EventMessageSent {
			found = true
		}
	}
	if !found {
		t.Fatal("sender should receive a message_sent receipt")
	}
}

func TestTypingRelayAndDrop(t *testing.T) {
	s, _ := newTestGateway()
	sender := &stubConn{id: "c1"}
	sess := chat.NewSession(sender)
	if err := dispatch(t, s, sess, `{"type":"register","data":{"userId":1}}`); err != nil {
		t.Fatalf("register: %v", err)
	}

	// 对端离线：静默丢弃
	if err := dispatch(t, s, sess, `{"type":"typing","data":{"to_phone":"13800000002"}}`); err != nil {
		t.Fatalf("typing to offline peer should be silent, got %v", err)
	}

	// 对端上线后转发 show/hide
	peer := &stubConn{id: "c2"}
	s.Presence().Register(context.Background(), 2, peer)

	if err := dispatch(t, s, sess, `{"type":"typing","data":{"to_phone":"13800000002"}}`); err != nil {
		t.Fatalf("typing: %v", err)
	}
	if err := dispatch(t, s, sess, `{"type":"stop_typing","data":{"to_phone":"13800000002"}}`); err != nil {
		t.Fatalf("stop_typing: %v", err)
	}
	if peer.count() != 2 {
		t.Fatalf("peer frames = %d, want 2", peer.count())
	}
	if peer.typeAt(t, 0) != chat.EventShowTyping || peer.typeAt(t, 1) != chat.EventHideTyping {
		t.Fatalf("frame types = %s, %s", peer.typeAt(t, 0), peer.typeAt(t, 1))
	}

	// 残缺 payload 静默
	if err := dispatch(t, s, sess, `{"type":"typing","data":{}}`); err != nil {
		t.Fatalf("empty payload should be silent, got %v", err)
	}
}

func TestMarkSeenPipeline(t *testing.T) {
	s, _ := newTestGateway()
	alice := &stubConn{id: "c1"}
	aliceSess := chat.NewSession(alice)
	if err := dispatch(t, s, aliceSess, `{"type":"register","data":{"userId":1}}`); err != nil {
		t.Fatalf("register alice: %v", err)
	}

	bob := &stubConn{id: "c2"}
	bobSess := chat.NewSession(bob)
	if err := dispatch(t, s, bobSess, `{"type":"register","data":{"userId":2}}`); err != nil {
		t.Fatalf("register bob: %v", err)
	}

	if err := dispatch(t, s, aliceSess, `{"type":"send_message","data":{"to":"13800000002","message":"hi"}}`); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := dispatch(t, s, bobSess, `{"type":"mark_seen","data":{"messageIds":[1]}}`); err != nil {
		t.Fatalf("mark_seen: %v", err)
	}

	// 发件人应收到 message_seen 回执
	found := false
	for i := 0; i < alice.count(); i++ {
		if alice.typeAt(t, i) == chat.EventMessageSeen {
			found = true
		}
	}
	if !found {
		t.Fatal("sender never saw the message_seen push")
	}
}
