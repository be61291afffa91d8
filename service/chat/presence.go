package chat

import (
	"context"
	"sync"
	"time"

	"SaChat/logger"
	"SaChat/module/user"
	redisstore "SaChat/service/storage/redis"
)

// ===== 配置 =====

type RegistryConf struct {
	GraceDelay time.Duration // 断线后保留在线状态的宽限期（默认 10s）
	MirrorTTL  time.Duration // redis 镜像 key 的 TTL（默认 2m）
}

func (c *RegistryConf) norm() {
	if c.GraceDelay <= 0 {
		c.GraceDelay = 10 * time.Second
	}
	if c.MirrorTTL <= 0 {
		c.MirrorTTL = 2 * time.Minute
	}
}

// ===== 数据结构 =====

type presenceEntry struct {
	userID int64
	phone  string
	conn   Conn

	// 断线宽限期定时器；re-register 会取消它
	offline *time.Timer
}

// PresenceRegistry 维护 userID -> 活跃连接 的映射。进程内权威状态，
// 显式注入（不是裸全局），redis 只做尽力而为的镜像。
// 不变量：每个 userID 至多一个条目，后注册的挤掉先注册的。
type PresenceRegistry struct {
	mu     sync.Mutex
	byUser map[int64]*presenceEntry
	byConn map[string]int64 // connID -> userID

	conf      RegistryConf
	dir       user.Directory
	gatewayID string

	onOffline func(userID int64, phone string)

	// 跨网关兜底查询，默认走 redis 镜像；单测里替换
	mirrorLookup func(user string) (gatewayID string, online bool, err error)
}

func NewPresenceRegistry(dir user.Directory, gatewayID string, conf RegistryConf) *PresenceRegistry {
	conf.norm()
	return &PresenceRegistry{
		byUser:       make(map[int64]*presenceEntry),
		byConn:       make(map[string]int64),
		conf:         conf,
		dir:          dir,
		gatewayID:    gatewayID,
		mirrorLookup: lookupMirror,
	}
}

func lookupMirror(user string) (string, bool, error) {
	if !redisstore.Ready() {
		return "", false, nil
	}
	return redisstore.PresenceLookup(user)
}

// OnOffline 设置离线回调（宽限期到期后触发，用于广播下线）。
func (r *PresenceRegistry) OnOffline(fn func(userID int64, phone string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onOffline = fn
}

// Register 登记用户的活跃连接并返回路由手机号。
// userID 非法或目录里查不到时静默忽略（残缺的客户端输入不算错误）。
func (r *PresenceRegistry) Register(ctx context.Context, userID int64, conn Conn) (string, bool) {
	if userID <= 0 || conn == nil {
		return "", false
	}
	phone, ok, err := r.dir.FindPhoneByUserID(ctx, userID)
	if err != nil {
		logger.Errorf("[presence] directory lookup user=%d err=%v", userID, err)
		return "", false
	}
	if !ok {
		return "", false
	}

	r.mu.Lock()
	var (
		evictedUser  int64
		evictedPhone string
		evictedFn    func(userID int64, phone string)
	)
	// 同一条连接换身份：旧用户的条目立即下线，不然它会拿着这条
	// 连接永久在线，之后任何移除路径都够不着它
	if prevUser, bound := r.byConn[conn.ID()]; bound && prevUser != userID {
		if old := r.byUser[prevUser]; old != nil && old.conn.ID() == conn.ID() {
			if old.offline != nil {
				old.offline.Stop()
			}
			delete(r.byUser, prevUser)
			evictedUser = prevUser
			evictedPhone = old.phone
			evictedFn = r.onOffline
		}
	}
	if old, exists := r.byUser[userID]; exists {
		// last-registration-wins：旧连接视为过期
		if old.offline != nil {
			old.offline.Stop()
			old.offline = nil
		}
		delete(r.byConn, old.conn.ID())
	}
	r.byUser[userID] = &presenceEntry{userID: userID, phone: phone, conn: conn}
	r.byConn[conn.ID()] = userID
	r.mu.Unlock()

	if evictedUser != 0 {
		r.mirrorOffline(evictedUser)
		if evictedFn != nil {
			evictedFn(evictedUser, evictedPhone)
		}
	}
	r.mirrorOnline(userID)
	return phone, true
}

// Lookup 返回用户的活跃连接（投递协调器用来决定 push 还是留 pending）。
func (r *PresenceRegistry) Lookup(userID int64) (Conn, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byUser[userID]
	if !ok {
		return nil, false
	}
	return e.conn, true
}

// IsOnline 按手机号线性扫描当前条目（任何连接都可以查别人的在线状态）。
func (r *PresenceRegistry) IsOnline(phone string) bool {
	if phone == "" {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.byUser {
		if e.phone == phone {
			return true
		}
	}
	return false
}

// IsUserOnline 按用户 id 查询（会话列表补在线标记用）。本地未命中时
// 查 redis 镜像：命中其它网关的 key 也算在线；命中本网关说明是过期
// 残留（本地才是权威），按离线算。
func (r *PresenceRegistry) IsUserOnline(userID int64) bool {
	r.mu.Lock()
	_, ok := r.byUser[userID]
	r.mu.Unlock()
	if ok {
		return true
	}
	gw, online, err := r.mirrorLookup(formatUserID(userID))
	if err != nil {
		logger.Warnf("[presence] mirror lookup user=%d err=%v", userID, err)
		return false
	}
	return online && gw != r.gatewayID
}

// Unregister 立即移除 connID 对应的条目，返回被移除的用户信息。
// 不走宽限期；Disconnect 才是断线路径。
func (r *PresenceRegistry) Unregister(connID string) (int64, string, bool) {
	r.mu.Lock()
	userID, ok := r.byConn[connID]
	if !ok {
		r.mu.Unlock()
		return 0, "", false
	}
	e := r.byUser[userID]
	if e.offline != nil {
		e.offline.Stop()
	}
	delete(r.byUser, userID)
	delete(r.byConn, connID)
	r.mu.Unlock()

	r.mirrorOffline(userID)
	return userID, e.phone, true
}

// Disconnect 连接断开：启动宽限期，到期仍未 re-register 才真正下线并广播。
// 快速重连不会对外抖动 offline/online。被新连接顶掉的旧 connID 在这里是 no-op。
func (r *PresenceRegistry) Disconnect(connID string) {
	r.mu.Lock()
	userID, ok := r.byConn[connID]
	if !ok {
		r.mu.Unlock()
		return
	}
	e := r.byUser[userID]

	if e.offline != nil {
		e.offline.Stop()
	}
	e.offline = time.AfterFunc(r.conf.GraceDelay, func() {
		r.expire(userID, connID)
	})
	r.mu.Unlock()
}

// expire 宽限期到点：条目还挂在同一条连接上才移除（re-register 已换过连接则放弃）。
func (r *PresenceRegistry) expire(userID int64, connID string) {
	r.mu.Lock()
	e, ok := r.byUser[userID]
	if !ok || e.conn.ID() != connID {
		r.mu.Unlock()
		return
	}
	delete(r.byUser, userID)
	delete(r.byConn, connID)
	fn := r.onOffline
	r.mu.Unlock()

	r.mirrorOffline(userID)
	if fn != nil {
		fn(userID, e.phone)
	}
}

// ===== redis 镜像（尽力而为，出错只记日志）=====

func (r *PresenceRegistry) mirrorOnline(userID int64) {
	if !redisstore.Ready() {
		return
	}
	if err := redisstore.PresenceOnline(formatUserID(userID), r.gatewayID, r.conf.MirrorTTL); err != nil {
		logger.Warnf("[presence] mirror online user=%d err=%v", userID, err)
	}
}

func (r *PresenceRegistry) mirrorOffline(userID int64) {
	if !redisstore.Ready() {
		return
	}
	if err := redisstore.PresenceOffline(formatUserID(userID)); err != nil {
		logger.Warnf("[presence] mirror offline user=%d err=%v", userID, err)
	}
}
