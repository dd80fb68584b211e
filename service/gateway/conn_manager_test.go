package gateway

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// wsPair 起一个一次性 ws 服务端，返回服务端侧连接（注册表持有的是它）
func wsPair(t *testing.T) (*websocket.Conn, *websocket.Conn, func()) {
	t.Helper()
	upg := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	ch := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upg.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		ch <- c
	}))

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	cli, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		srv.Close()
		t.Fatalf("dial: %v", err)
	}
	sc := <-ch
	cleanup := func() {
		_ = cli.Close()
		_ = sc.Close()
		srv.Close()
	}
	return sc, cli, cleanup
}

func newTestManager(conf ManagerConf) *ConnManager {
	if conf.SweepEvery <= 0 {
		conf.SweepEvery = time.Hour // 测试里不让后台 sweeper 搅局
	}
	return NewConnManager(conf)
}

func TestRegisterBindResolve(t *testing.T) {
	m := newTestManager(ManagerConf{})
	defer m.Close()

	sc, _, cleanup := wsPair(t)
	defer cleanup()

	if _, err := m.Register("c1", sc); err != nil {
		t.Fatalf("register: %v", err)
	}
	if n := m.SessionCount(); n != 1 {
		t.Fatalf("session count = %d, want 1", n)
	}
	if n := m.OnlineUserCount(); n != 0 {
		t.Fatalf("online users before bind = %d, want 0", n)
	}
	if _, ok := m.Resolve(42); ok {
		t.Fatal("resolve before bind should miss")
	}

	m.Bind("c1", 42)
	sess, ok := m.Resolve(42)
	if !ok || sess.ConnID != "c1" {
		t.Fatalf("resolve = (%v, %v), want c1", sess, ok)
	}
	if n := m.OnlineUserCount(); n != 1 {
		t.Fatalf("online users = %d, want 1", n)
	}
	got := m.OnlineUserIDs()
	if len(got) != 1 || got[0] != 42 {
		t.Fatalf("online ids = %v, want [42]", got)
	}
}

func TestRegisterDuplicateConnID(t *testing.T) {
	m := newTestManager(ManagerConf{})
	defer m.Close()

	sc, _, cleanup := wsPair(t)
	defer cleanup()

	if _, err := m.Register("c1", sc); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := m.Register("c1", sc); err == nil {
		t.Fatal("duplicate connID should error")
	}
}

// 重新 AUTH 换到新连接后，旧连接的关闭不能抹掉新连接的反向映射
func TestRebindThenOldCloseKeepsNewMapping(t *testing.T) {
	m := newTestManager(ManagerConf{})
	defer m.Close()

	sc1, _, cleanup1 := wsPair(t)
	defer cleanup1()
	sc2, _, cleanup2 := wsPair(t)
	defer cleanup2()

	if _, err := m.Register("c1", sc1); err != nil {
		t.Fatalf("register c1: %v", err)
	}
	if _, err := m.Register("c2", sc2); err != nil {
		t.Fatalf("register c2: %v", err)
	}

	m.Bind("c1", 42)
	m.Bind("c2", 42) // 多端重绑：后绑者覆盖

	if sess, ok := m.Resolve(42); !ok || sess.ConnID != "c2" {
		t.Fatalf("resolve after rebind = %v, want c2", sess)
	}

	m.Unregister("c1")
	if sess, ok := m.Resolve(42); !ok || sess.ConnID != "c2" {
		t.Fatalf("resolve after old close = %v, want c2 still", sess)
	}

	m.Unregister("c2")
	if _, ok := m.Resolve(42); ok {
		t.Fatal("resolve after both closed should miss")
	}
}

func TestResolveAfterClose(t *testing.T) {
	m := newTestManager(ManagerConf{})
	defer m.Close()

	sc, _, cleanup := wsPair(t)
	defer cleanup()

	_, _ = m.Register("c1", sc)
	m.Bind("c1", 7)
	m.Unregister("c1")

	if _, ok := m.Resolve(7); ok {
		t.Fatal("resolve after close should miss")
	}
	if n := m.SessionCount(); n != 0 {
		t.Fatalf("session count = %d, want 0", n)
	}
	// 幂等
	m.Unregister("c1")
}

func TestBindUnknownConnIsSilent(t *testing.T) {
	m := newTestManager(ManagerConf{})
	defer m.Close()

	m.Bind("nope", 42)
	if _, ok := m.Resolve(42); ok {
		t.Fatal("bind on unknown conn must not create a mapping")
	}
}

func TestSendAfterUnregister(t *testing.T) {
	m := newTestManager(ManagerConf{})
	defer m.Close()

	sc, _, cleanup := wsPair(t)
	defer cleanup()

	_, _ = m.Register("c1", sc)
	m.Unregister("c1")
	if err := m.Send("c1", []byte("x")); err == nil {
		t.Fatal("send to unregistered conn should error")
	}
}

func TestSweepExpiresIdleSessions(t *testing.T) {
	now := time.Unix(1_000_000, 0)
	clock := func() time.Time { return now }
	m := newTestManager(ManagerConf{
		UnauthTTL: time.Minute,
		AuthTTL:   time.Hour,
		Clock:     clock,
	})
	defer m.Close()

	sc1, _, cleanup1 := wsPair(t)
	defer cleanup1()
	sc2, _, cleanup2 := wsPair(t)
	defer cleanup2()

	_, _ = m.Register("c1", sc1) // 未认证：1 分钟过期
	_, _ = m.Register("c2", sc2)
	m.Bind("c2", 9) // 认证：1 小时过期

	m.sweepOnce(now.Add(2 * time.Minute))
	if n := m.SessionCount(); n != 1 {
		t.Fatalf("session count after sweep = %d, want 1", n)
	}
	if _, ok := m.Resolve(9); !ok {
		t.Fatal("authorized session should survive unauth sweep")
	}

	m.sweepOnce(now.Add(2 * time.Hour))
	if n := m.SessionCount(); n != 0 {
		t.Fatalf("session count = %d, want 0", n)
	}
	if _, ok := m.Resolve(9); ok {
		t.Fatal("expired session must not resolve")
	}
}

func TestTouchExtendsTTL(t *testing.T) {
	now := time.Unix(1_000_000, 0)
	clock := func() time.Time { return now }
	m := newTestManager(ManagerConf{
		UnauthTTL: time.Minute,
		Clock:     clock,
	})
	defer m.Close()

	sc, _, cleanup := wsPair(t)
	defer cleanup()

	_, _ = m.Register("c1", sc)
	now = now.Add(50 * time.Second)
	m.Touch("c1") // 心跳续期

	m.sweepOnce(now.Add(30 * time.Second)) // 原 TTL 已过，但续期后没过
	if n := m.SessionCount(); n != 1 {
		t.Fatalf("session count = %d, want 1 (touched)", n)
	}
}

// 并发读写不应触发竞态（go test -race 下有意义）
func TestConcurrentBindResolveUnregister(t *testing.T) {
	m := newTestManager(ManagerConf{})
	defer m.Close()

	sc, _, cleanup := wsPair(t)
	defer cleanup()
	_, _ = m.Register("c1", sc)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				m.Bind("c1", 42)
				m.Resolve(42)
				m.OnlineUserIDs()
				m.Touch("c1")
			}
		}()
	}
	wg.Wait()
	m.Unregister("c1")
	if _, ok := m.Resolve(42); ok {
		t.Fatal("resolve after final unregister should miss")
	}
}
