package chat

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/Mustakeem2004/CourseManagementSystem01/internal/auth"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

type sessionState int32

const (
	stateConnected sessionState = iota
	stateAuthenticated
	stateClosed
)

const (
	readLimit  = 1 << 20 // 1MB
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	writeWait  = 10 * time.Second
)

// Session 封装一条活跃连接：身份、状态机和出入站帧处理。
// 状态迁移只有 connected → authenticated → closed，closed 为终态。
type Session struct {
	id   string
	gw   *Gateway
	conn *websocket.Conn
	send chan []byte
	done chan struct{}

	mu       sync.Mutex
	state    sessionState
	authed   bool
	identity auth.Identity

	authTimer *time.Timer

	closeOnce    sync.Once
	teardownOnce sync.Once
}

func newSession(gw *Gateway, conn *websocket.Conn) *Session {
	return &Session{
		id:   uuid.NewString(),
		gw:   gw,
		conn: conn,
		send: make(chan []byte, 256),
		done: make(chan struct{}),
	}
}

func (s *Session) ID() string { return s.id }

// Identity 返回认证身份，从未认证过时 ok 为 false。
// 会话进入终态后身份仍可读取，供销毁流程广播离开事件。
func (s *Session) Identity() (auth.Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity, s.authed
}

func (s *Session) closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateClosed
}

func (s *Session) authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateAuthenticated
}

// setIdentity 完成 connected → authenticated 迁移，只允许发生一次。
func (s *Session) setIdentity(id auth.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case stateClosed:
		return ErrSessionClosed
	case stateAuthenticated:
		return ErrInvalidMessage
	}
	s.identity = id
	s.state = stateAuthenticated
	s.authed = true
	if s.authTimer != nil {
		s.authTimer.Stop()
		s.authTimer = nil
	}
	return nil
}

func (s *Session) armAuthTimer(d time.Duration, onExpire func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != stateConnected {
		return
	}
	s.authTimer = time.AfterFunc(d, onExpire)
}

// Deliver 非阻塞投递一帧；队列满或会话已关闭按传输失败处理，由调用方触发销毁。
func (s *Session) Deliver(payload []byte) error {
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}
	select {
	case s.send <- payload:
		return nil
	case <-s.done:
		return ErrSessionClosed
	default:
		return ErrSendBufferFull
	}
}

// sendEvent 序列化并投递一个下行事件，失败只记日志，绝不打断调用方。
func (s *Session) sendEvent(v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("session_id", s.id).Msg("marshal event")
		return
	}
	if err := s.Deliver(b); err != nil {
		log.Debug().Err(err).Str("session_id", s.id).Msg("deliver event")
	}
}

func (s *Session) sendError(err error, message, ref string) {
	s.sendEvent(ErrorEvent{Type: EventError, Code: codeFor(err), Message: message, Ref: ref})
}

// Close 进入终态并通知写循环收尾，幂等。
// 底层连接由写循环负责关闭，保证已入队的帧先于关闭帧送达对端。
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.state = stateClosed
		if s.authTimer != nil {
			s.authTimer.Stop()
			s.authTimer = nil
		}
		s.mu.Unlock()
		close(s.done)
	})
}

func (s *Session) readPump() {
	defer s.gw.onDisconnect(s)
	s.conn.SetReadLimit(readLimit)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		var f Frame
		if err := json.Unmarshal(data, &f); err != nil {
			s.sendError(ErrInvalidMessage, "malformed frame", "")
			continue
		}
		s.gw.dispatch(s, f)
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.Close()
		_ = s.conn.Close()
	}()
	for {
		select {
		case payload := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			w, err := s.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			_, _ = w.Write(payload)
			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.done:
			// 关闭前把已入队的帧冲出去，比如 auth_error。
			for {
				select {
				case payload := <-s.send:
					_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
					_ = s.conn.WriteMessage(websocket.TextMessage, payload)
				default:
					_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
					_ = s.conn.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
					return
				}
			}
		}
	}
}
