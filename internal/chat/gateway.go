package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Mustakeem2004/CourseManagementSystem01/internal/auth"
	"github.com/Mustakeem2004/CourseManagementSystem01/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Verifier 校验 bearer 凭证并返回用户身份断言。
type Verifier interface {
	Verify(ctx context.Context, credential string) (auth.Identity, error)
}

// Membership 是可选的选课校验钩子；未配置时任何已认证用户都可加入任意课程房间。
type Membership interface {
	IsMember(ctx context.Context, userID, courseID string) (bool, error)
}

// Options 收口网关的全部策略项，零值会被 withDefaults 补齐。
type Options struct {
	AuthTimeout       time.Duration
	MaxMessageBytes   int
	SendQueue         int
	RequireEnrollment bool
}

func (o *Options) withDefaults() {
	if o.AuthTimeout <= 0 {
		o.AuthTimeout = 10 * time.Second
	}
	if o.MaxMessageBytes <= 0 {
		o.MaxMessageBytes = 4096
	}
	if o.SendQueue <= 0 {
		o.SendQueue = 256
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Gateway 把身份校验、房间注册表和消息存储编排成聊天协议面。
// 每个课程一个发送循环，落库与广播在环内逐条完成，保证广播序等于落库序。
type Gateway struct {
	verifier   Verifier
	membership Membership
	store      ChatStore
	registry   *Registry
	opts       Options

	mu      sync.RWMutex
	senders map[string]*courseSender
}

func NewGateway(verifier Verifier, membership Membership, store ChatStore, opts Options) *Gateway {
	opts.withDefaults()
	return &Gateway{
		verifier:   verifier,
		membership: membership,
		store:      store,
		registry:   NewRegistry(),
		opts:       opts,
		senders:    make(map[string]*courseSender),
	}
}

// Online 返回课程房间在线人数，供 REST 接口复用。
func (g *Gateway) Online(courseID string) int { return g.registry.Online(courseID) }

// HandleConnection 升级 WebSocket 并托管会话生命周期。
// token 可随升级请求携带（query 或 bearer 头），否则需在认证宽限期内发 auth 帧。
func (g *Gateway) HandleConnection() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			authz := c.GetHeader("Authorization")
			if len(authz) > 7 && strings.EqualFold(authz[:7], "bearer ") {
				token = strings.TrimSpace(authz[7:])
			}
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		s := newSession(g, conn)
		metrics.WsConnections.Inc()
		go s.writePump()

		if token != "" {
			if !g.handleAuth(s, token) {
				g.onDisconnect(s)
				return
			}
		} else {
			s.armAuthTimer(g.opts.AuthTimeout, func() {
				if !s.authenticated() {
					s.sendEvent(AuthErrorEvent{Type: EventAuthError, Code: CodeAuthTimeout, Message: "authentication timed out"})
					s.Close()
				}
			})
		}
		s.readPump()
	}
}

// dispatch 处理一条上行帧，运行在该会话的读协程内。
func (g *Gateway) dispatch(s *Session, f Frame) {
	switch f.Type {
	case EventAuth:
		g.handleAuth(s, f.Token)
	case EventJoin:
		g.handleJoin(s, f.CourseID)
	case EventLeave:
		g.handleLeave(s, f.CourseID)
	case EventSend:
		g.handleSend(s, f)
	default:
		s.sendError(ErrInvalidMessage, "unknown event type", f.Ref)
	}
}

// handleAuth 调用 Verifier 完成认证；失败即断开，不做重试。
func (g *Gateway) handleAuth(s *Session, token string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	id, err := g.verifier.Verify(ctx, token)
	if err != nil {
		s.sendEvent(AuthErrorEvent{Type: EventAuthError, Code: CodeInvalidCredential, Message: "invalid credential"})
		s.Close()
		return false
	}
	if err := s.setIdentity(id); err != nil {
		s.sendError(err, "already authenticated", "")
		return false
	}
	s.sendEvent(AuthOKEvent{Type: EventAuthOK, UserID: id.UserID, Name: id.Name, Role: id.Role})
	log.Debug().Str("session_id", s.ID()).Str("user_id", id.UserID).Msg("session authenticated")
	return true
}

func (g *Gateway) handleJoin(s *Session, courseID string) {
	id, ok := s.Identity()
	if !ok {
		s.sendError(ErrUnauthenticated, "authenticate first", "")
		return
	}
	if courseID == "" {
		s.sendError(ErrInvalidMessage, "course_id required", "")
		return
	}
	// 选课校验是外部调用，发生在注册表加锁之前。
	if g.opts.RequireEnrollment && g.membership != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		allowed, err := g.membership.IsMember(ctx, id.UserID, courseID)
		cancel()
		if err != nil {
			log.Error().Err(err).Str("course_id", courseID).Str("user_id", id.UserID).Msg("membership check")
			s.sendError(ErrForbidden, "membership check failed", "")
			return
		}
		if !allowed {
			s.sendError(ErrForbidden, "not enrolled in course", "")
			return
		}
	}
	if s.closed() {
		return
	}
	g.registry.Join(s, courseID)
	s.sendEvent(JoinedEvent{Type: EventJoined, CourseID: courseID, Online: g.registry.Online(courseID)})
	g.broadcastPresence(courseID, id, "join")
}

func (g *Gateway) handleLeave(s *Session, courseID string) {
	id, ok := s.Identity()
	if !ok {
		s.sendError(ErrUnauthenticated, "authenticate first", "")
		return
	}
	if courseID == "" {
		s.sendError(ErrInvalidMessage, "course_id required", "")
		return
	}
	g.registry.Leave(s, courseID)
	g.broadcastPresence(courseID, id, "leave")
}

func (g *Gateway) handleSend(s *Session, f Frame) {
	id, ok := s.Identity()
	if !ok {
		s.sendError(ErrUnauthenticated, "authenticate first", f.Ref)
		return
	}
	content := strings.TrimSpace(f.Content)
	if content == "" || len(content) > g.opts.MaxMessageBytes {
		s.sendError(ErrInvalidMessage, "content must be non-empty and within size limit", f.Ref)
		return
	}
	if !g.registry.IsMember(s, f.CourseID) {
		s.sendError(ErrNotJoined, "join the course before sending", f.Ref)
		return
	}
	ev := roomEvent{sess: s, sender: id, content: content, ref: f.Ref}
	select {
	case g.courseSender(f.CourseID).queue <- ev:
	case <-s.done:
	}
}

// onDisconnect 无条件、立即地把会话移出全部房间，然后进入终态。幂等。
func (g *Gateway) onDisconnect(s *Session) {
	s.teardownOnce.Do(func() {
		s.Close()
		courses := g.registry.LeaveAll(s)
		metrics.WsConnections.Dec()
		if id, ok := s.Identity(); ok {
			for _, courseID := range courses {
				g.broadcastPresence(courseID, id, "leave")
			}
		}
		log.Debug().Str("session_id", s.ID()).Msg("session closed")
	})
}

// courseSender 懒创建课程的发送循环，与注册表的房间懒创建同节奏。
func (g *Gateway) courseSender(courseID string) *courseSender {
	g.mu.RLock()
	cs := g.senders[courseID]
	g.mu.RUnlock()
	if cs != nil {
		return cs
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	cs = g.senders[courseID]
	if cs != nil {
		return cs
	}
	cs = &courseSender{
		courseID: courseID,
		gw:       g,
		queue:    make(chan roomEvent, g.opts.SendQueue),
	}
	g.senders[courseID] = cs
	go cs.run()
	return cs
}

func (g *Gateway) broadcastPresence(courseID string, id auth.Identity, event string) {
	evt := PresenceEvent{
		Type:     EventPresence,
		CourseID: courseID,
		UserID:   id.UserID,
		Name:     id.Name,
		Event:    event,
		Online:   g.registry.Online(courseID),
	}
	b, err := json.Marshal(evt)
	if err != nil {
		return
	}
	select {
	case g.courseSender(courseID).queue <- roomEvent{raw: b}:
	default:
		// 在途事件挤满队列时在线状态事件可丢
	}
}

// roomEvent 要么是一条待落库的消息（sess 非空），要么是一段已编码的原样广播。
type roomEvent struct {
	sess    *Session
	sender  auth.Identity
	content string
	ref     string
	raw     []byte
}

// courseSender 串行消费一个课程的房间事件：先落库、再取快照、再扇出。
// 存储端的 append 顺序因此就是全体成员观察到的广播顺序。
type courseSender struct {
	courseID string
	gw       *Gateway
	queue    chan roomEvent
}

func (cs *courseSender) run() {
	for ev := range cs.queue {
		if ev.raw != nil {
			cs.fanOut(ev.raw, nil, nil)
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		m, err := cs.gw.store.Append(ctx, cs.courseID, ev.sender.UserID, ev.content)
		cancel()
		if err != nil {
			// 落库失败只通知发送者，什么都不广播。
			log.Error().Err(err).Str("course_id", cs.courseID).Str("user_id", ev.sender.UserID).Msg("append message")
			ev.sess.sendError(ErrPersistence, "failed to send message", ev.ref)
			continue
		}
		if m.SenderName == "" {
			m.SenderName = ev.sender.Name
		}
		metrics.WsMessagesTotal.Inc()

		evt := MessageEvent{
			Type:       EventMessage,
			ID:         m.ID,
			CourseID:   m.CourseID,
			SenderID:   m.SenderID,
			SenderName: m.SenderName,
			Content:    m.Content,
			CreatedAt:  m.CreatedAt,
		}
		payload, err := json.Marshal(evt)
		if err != nil {
			log.Error().Err(err).Msg("marshal message event")
			continue
		}
		var echo []byte
		if ev.ref != "" {
			evt.Ref = ev.ref
			echo, _ = json.Marshal(evt)
		}
		cs.fanOut(payload, ev.sess, echo)
	}
}

// fanOut 向当前成员快照逐一投递；单个接收方失败不影响其余成员，
// 失败的接收方按已断线处理并触发销毁。
func (cs *courseSender) fanOut(payload []byte, echoTo *Session, echo []byte) {
	for _, member := range cs.gw.registry.MembersOf(cs.courseID) {
		p := payload
		if member == echoTo && echo != nil {
			p = echo
		}
		if err := member.Deliver(p); err != nil {
			metrics.WsDeliveryDropsTotal.Inc()
			log.Warn().Err(err).Str("course_id", cs.courseID).Str("session_id", member.ID()).Msg("deliver failed, tearing down")
			go cs.gw.onDisconnect(member)
		}
	}
}
