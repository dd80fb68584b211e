package gateway

import (
	"net"
	"sync"
	"time"

	"SocialProject/metrics"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

// ===== 配置 =====

type ManagerConf struct {
	UnauthTTL  time.Duration    // 未认证连接的宽限期（如 300s）
	AuthTTL    time.Duration    // 认证后空闲 TTL（如 2h）
	SweepEvery time.Duration    // 过期清理周期
	Clock      func() time.Time // 可注入时钟（单测用）；nil => time.Now
}

func (c *ManagerConf) norm() {
	if c.Clock == nil {
		c.Clock = time.Now
	}
	if c.SweepEvery <= 0 {
		c.SweepEvery = 30 * time.Second
	}
	if c.UnauthTTL <= 0 {
		c.UnauthTTL = 300 * time.Second
	}
	if c.AuthTTL <= 0 {
		c.AuthTTL = 2 * time.Hour
	}
}

// ===== 数据结构 =====

// Session 一条活跃 WebSocket 连接。由 ConnManager 独占持有；
// 外部拿到的指针只读 ConnID/UserID，写 socket 走 ConnManager.Send。
type Session struct {
	ConnID     string
	UserID     int64 // 0 = 未认证
	Authorized bool

	Conn   *websocket.Conn
	wmu    sync.Mutex // 串行化写；读协程回 PONG 和投递线程可能同时写
	Remote net.Addr

	CreatedAt time.Time
	UpdatedAt time.Time

	TTL       time.Duration // 当前 TTL（随认证态切换）
	ExpireAt  time.Time     // 到期时间（过期由 sweeper 清理）
	Heartbeat time.Time     // 最近心跳时间
}

// ConnManager 会话注册表：连接主索引 + 用户反向索引。
// 反向索引每用户只存最近一次绑定的连接；重复 AUTH 直接覆盖。
type ConnManager struct {
	mu     sync.RWMutex
	byConn map[string]*Session // 主索引：connID -> session
	byUser map[int64]string    // 反向索引：userID -> 最近绑定的 connID

	conf     ManagerConf
	stopOnce sync.Once
	stopCh   chan struct{}
}

// ===== 构造/关闭 =====

func NewConnManager(conf ManagerConf) *ConnManager {
	conf.norm()
	m := &ConnManager{
		byConn: make(map[string]*Session),
		byUser: make(map[int64]string),
		conf:   conf,
		stopCh: make(chan struct{}),
	}
	go m.sweeper()
	return m
}

func (m *ConnManager) Close() {
	m.stopOnce.Do(func() { close(m.stopCh) })
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.byConn {
		closeQuiet(s.Conn)
	}
	m.byConn = map[string]*Session{}
	m.byUser = map[int64]string{}
	m.updateGaugesLocked()
}

// ===== 注册/绑定/注销 =====

// Register 登记一条新连接（未认证态）。connID 必须唯一，由调用方生成。
func (m *ConnManager) Register(connID string, conn *websocket.Conn) (*Session, error) {
	if connID == "" || conn == nil {
		return nil, errors.New("connID/conn empty")
	}
	now := m.conf.Clock()
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byConn[connID]; exists {
		return nil, errors.New("connID exists")
	}

	s := &Session{
		ConnID:    connID,
		Conn:      conn,
		Remote:    conn.RemoteAddr(),
		CreatedAt: now,
		UpdatedAt: now,
		Heartbeat: now,
		TTL:       m.conf.UnauthTTL,
		ExpireAt:  now.Add(m.conf.UnauthTTL),
	}
	m.byConn[connID] = s
	m.updateGaugesLocked()
	return s, nil
}

// Bind 把连接绑定到用户（AUTH 之后）。连接不存在时静默忽略。
// 反向索引无条件覆盖：同一用户旧连接的映射被新连接顶掉。
func (m *ConnManager) Bind(connID string, userID int64) {
	if connID == "" || userID <= 0 {
		return
	}
	now := m.conf.Clock()
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.byConn[connID]
	if !ok {
		return
	}

	// 重复 AUTH 换了身份：清掉旧身份的反向映射（仍指向本连接时才清）
	if s.Authorized && s.UserID != 0 && s.UserID != userID {
		if cur, ok := m.byUser[s.UserID]; ok && cur == connID {
			delete(m.byUser, s.UserID)
		}
	}

	s.UserID = userID
	s.Authorized = true
	s.TTL = m.conf.AuthTTL
	s.ExpireAt = now.Add(m.conf.AuthTTL)
	s.UpdatedAt = now
	s.Heartbeat = now

	m.byUser[userID] = connID
	m.updateGaugesLocked()
}

// Unregister 注销并关闭连接；幂等。
// 反向索引只有仍指向本连接时才移除——旧连接的关闭绝不能抹掉新连接的映射。
func (m *ConnManager) Unregister(connID string) {
	if connID == "" {
		return
	}
	m.mu.Lock()
	s, ok := m.byConn[connID]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(m.byConn, connID)
	if s.Authorized && s.UserID != 0 {
		if cur, ok := m.byUser[s.UserID]; ok && cur == connID {
			delete(m.byUser, s.UserID)
		}
	}
	m.updateGaugesLocked()
	m.mu.Unlock()

	closeQuiet(s.Conn)
}

// Resolve 查用户当前的活跃连接；没有或已注销返回 false
func (m *ConnManager) Resolve(userID int64) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	connID, ok := m.byUser[userID]
	if !ok {
		return nil, false
	}
	s, ok := m.byConn[connID]
	if !ok || !s.Authorized {
		return nil, false
	}
	return s, true
}

// Touch 刷新心跳与到期时间（PING 时调用）
func (m *ConnManager) Touch(connID string) {
	now := m.conf.Clock()
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.byConn[connID]; ok {
		s.Heartbeat = now
		s.ExpireAt = now.Add(s.TTL)
		s.UpdatedAt = now
	}
}

// ===== 发送 =====

const writeDeadline = 5 * time.Second

// Send 按 connID 写一帧文本消息（带写超时）。连接已注销返回错误。
func (m *ConnManager) Send(connID string, data []byte) error {
	m.mu.RLock()
	s, ok := m.byConn[connID]
	m.mu.RUnlock()
	if !ok || s.Conn == nil {
		return errors.New("connID not found")
	}
	s.wmu.Lock()
	defer s.wmu.Unlock()
	return writeText(s.Conn, data)
}

// ===== 统计 =====

func (m *ConnManager) OnlineUserCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byUser)
}

func (m *ConnManager) SessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byConn)
}

func (m *ConnManager) OnlineUserIDs() []int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]int64, 0, len(m.byUser))
	for uid := range m.byUser {
		out = append(out, uid)
	}
	return out
}

// 持锁调用
func (m *ConnManager) updateGaugesLocked() {
	metrics.SetOnlineUsers(len(m.byUser))
	metrics.SetSessions(len(m.byConn))
}

// ===== 清理协程 =====

func (m *ConnManager) sweeper() {
	t := time.NewTicker(m.conf.SweepEvery)
	defer t.Stop()
	for {
		select {
		case <-m.stopCh:
			return
		case now := <-t.C:
			m.sweepOnce(now)
		}
	}
}

func (m *ConnManager) sweepOnce(now time.Time) {
	var expired []*Session

	m.mu.Lock()
	for connID, s := range m.byConn {
		if now.After(s.ExpireAt) {
			// 收集后统一关闭，避免持锁期间关 socket
			expired = append(expired, s)
			delete(m.byConn, connID)
			if s.Authorized && s.UserID != 0 {
				if cur, ok := m.byUser[s.UserID]; ok && cur == connID {
					delete(m.byUser, s.UserID)
				}
			}
		}
	}
	m.updateGaugesLocked()
	m.mu.Unlock()

	for _, s := range expired {
		closeQuiet(s.Conn)
	}
}

// ===== 工具函数 =====

func writeText(conn *websocket.Conn, data []byte) error {
	if conn == nil {
		return errors.New("nil conn")
	}
	if err := conn.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

func closeQuiet(c *websocket.Conn) {
	if c != nil {
		_ = c.Close()
	}
}
