package chat

import (
	"context"
	"sync"
	"testing"
	"time"
)

func newTestRegistry(grace time.Duration) (*PresenceRegistry, *fakeDirectory) {
	dir := newFakeDirectory()
	dir.add(1, "13800000001")
	dir.add(2, "13800000002")
	r := NewPresenceRegistry(dir, "gw-test", RegistryConf{GraceDelay: grace})
	return r, dir
}

func TestRegisterAndLookup(t *testing.T) {
	r, _ := newTestRegistry(time.Second)
	c := newFakeConn("c1")

	phone, ok := r.Register(context.Background(), 1, c)
	if !ok {
		t.Fatal("register should succeed")
	}
	if phone != "13800000001" {
		t.Fatalf("phone = %q", phone)
	}

	got, online := r.Lookup(1)
	if !online || got.ID() != "c1" {
		t.Fatalf("lookup = (%v, %v)", got, online)
	}
	if !r.IsOnline("13800000001") {
		t.Fatal("IsOnline should report true")
	}
	if r.IsOnline("13800000002") {
		t.Fatal("user 2 never registered")
	}
	if !r.IsUserOnline(1) {
		t.Fatal("IsUserOnline should report true")
	}
}

func TestRegisterLastWins(t *testing.T) {
	r, _ := newTestRegistry(time.Second)
	old := newFakeConn("old")
	fresh := newFakeConn("fresh")

	r.Register(context.Background(), 1, old)
	r.Register(context.Background(), 1, fresh)

	got, online := r.Lookup(1)
	if !online || got.ID() != "fresh" {
		t.Fatalf("lookup should return the later connection, got %v", got)
	}

	// 被顶掉的旧连接断开不影响新条目
	r.Disconnect("old")
	if _, online := r.Lookup(1); !online {
		t.Fatal("stale disconnect must not evict the fresh connection")
	}
}

func TestRegisterUnknownUserNoop(t *testing.T) {
	r, _ := newTestRegistry(time.Second)

	if _, ok := r.Register(context.Background(), 99, newFakeConn("c1")); ok {
		t.Fatal("unknown user must not register")
	}
	if _, ok := r.Register(context.Background(), 0, newFakeConn("c2")); ok {
		t.Fatal("zero user id must not register")
	}
	if _, ok := r.Register(context.Background(), -5, newFakeConn("c3")); ok {
		t.Fatal("negative user id must not register")
	}
	if r.IsUserOnline(99) {
		t.Fatal("nothing should have been recorded")
	}
}

func TestUnregisterImmediate(t *testing.T) {
	r, _ := newTestRegistry(time.Second)
	c := newFakeConn("c1")
	r.Register(context.Background(), 1, c)

	userID, phone, ok := r.Unregister("c1")
	if !ok || userID != 1 || phone != "13800000001" {
		t.Fatalf("unregister = (%d, %q, %v)", userID, phone, ok)
	}
	if r.IsUserOnline(1) {
		t.Fatal("user should be offline right away")
	}
	if _, _, ok := r.Unregister("c1"); ok {
		t.Fatal("double unregister should be a no-op")
	}
}

func TestDisconnectGraceExpires(t *testing.T) {
	r, _ := newTestRegistry(20 * time.Millisecond)

	var mu sync.Mutex
	var gone []string
	r.OnOffline(func(_ int64, phone string) {
		mu.Lock()
		gone = append(gone, phone)
		mu.Unlock()
	})

	r.Register(context.Background(), 1, newFakeConn("c1"))
	r.Disconnect("c1")

	// 宽限期内仍算在线
	if !r.IsUserOnline(1) {
		t.Fatal("user should stay online during the grace window")
	}

	ok := waitFor(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(gone) == 1
	})
	if !ok {
		t.Fatal("offline callback never fired")
	}
	mu.Lock()
	if gone[0] != "13800000001" {
		t.Fatalf("callback phone = %q", gone[0])
	}
	mu.Unlock()
	if r.IsUserOnline(1) {
		t.Fatal("user should be offline after the grace window")
	}
}

func TestReconnectWithinGraceCancelsOffline(t *testing.T) {
	r, _ := newTestRegistry(30 * time.Millisecond)

	var mu sync.Mutex
	fired := 0
	r.OnOffline(func(int64, string) {
		mu.Lock()
		fired++
		mu.Unlock()
	})

	r.Register(context.Background(), 1, newFakeConn("c1"))
	r.Disconnect("c1")
	r.Register(context.Background(), 1, newFakeConn("c2"))

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	got := fired
	mu.Unlock()
	if got != 0 {
		t.Fatalf("re-register within grace must suppress offline, fired %d times", got)
	}
	conn, online := r.Lookup(1)
	if !online || conn.ID() != "c2" {
		t.Fatal("fresh connection should be the active one")
	}
}

func TestDisconnectUnknownConnNoop(t *testing.T) {
	r, _ := newTestRegistry(time.Second)
	r.Disconnect("never-seen") // 不 panic 即可
}

func TestRegisterIdentitySwitchEvictsOldUser(t *testing.T) {
	r, _ := newTestRegistry(20 * time.Millisecond)

	var mu sync.Mutex
	var gone []string
	r.OnOffline(func(_ int64, phone string) {
		mu.Lock()
		gone = append(gone, phone)
		mu.Unlock()
	})

	c := newFakeConn("c1")
	r.Register(context.Background(), 1, c)
	// 同一条连接换身份注册
	r.Register(context.Background(), 2, c)

	if r.IsUserOnline(1) {
		t.Fatal("old identity must go offline when the conn re-registers as someone else")
	}
	conn, online := r.Lookup(2)
	if !online || conn.ID() != "c1" {
		t.Fatal("new identity should own the connection")
	}
	mu.Lock()
	if len(gone) != 1 || gone[0] != "13800000001" {
		t.Fatalf("offline callbacks = %v", gone)
	}
	mu.Unlock()

	// 断线后宽限期到点，注册表必须清空，不留死条目
	r.Disconnect("c1")
	if !waitFor(t, time.Second, func() bool { return !r.IsUserOnline(2) }) {
		t.Fatal("user 2 never expired")
	}
	r.mu.Lock()
	users, conns := len(r.byUser), len(r.byConn)
	r.mu.Unlock()
	if users != 0 || conns != 0 {
		t.Fatalf("leaked entries: byUser=%d byConn=%d", users, conns)
	}
}

func TestIsUserOnlineMirrorFallback(t *testing.T) {
	r, _ := newTestRegistry(time.Second)

	// 本地未命中且镜像指向其它网关：跨网关在线
	r.mirrorLookup = func(string) (string, bool, error) { return "gw-other", true, nil }
	if !r.IsUserOnline(1) {
		t.Fatal("mirror hit on another gateway should count as online")
	}

	// 镜像指向本网关但本地没有：过期残留，按离线算
	r.mirrorLookup = func(string) (string, bool, error) { return "gw-test", true, nil }
	if r.IsUserOnline(1) {
		t.Fatal("stale mirror key for this gateway must not count as online")
	}

	// 镜像出错：按离线算
	r.mirrorLookup = func(string) (string, bool, error) { return "", false, context.DeadlineExceeded }
	if r.IsUserOnline(1) {
		t.Fatal("mirror error must degrade to offline")
	}

	// 本地命中时不问镜像
	r.mirrorLookup = func(string) (string, bool, error) {
		t.Fatal("local hit must not consult the mirror")
		return "", false, nil
	}
	r.Register(context.Background(), 1, newFakeConn("c1"))
	if !r.IsUserOnline(1) {
		t.Fatal("locally registered user should be online")
	}
}
