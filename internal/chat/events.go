package chat

import "time"

// 客户端上行事件类型。
const (
	EventAuth  = "auth"
	EventJoin  = "join"
	EventLeave = "leave"
	EventSend  = "send"
)

// 网关下行事件类型。
const (
	EventAuthOK    = "auth_ok"
	EventAuthError = "auth_error"
	EventJoined    = "joined"
	EventMessage   = "message"
	EventPresence  = "presence"
	EventError     = "error"
)

// Frame 是客户端上行帧的统一载体，按 type 取用相应字段。
type Frame struct {
	Type     string `json:"type"`
	Token    string `json:"token,omitempty"`
	CourseID string `json:"course_id,omitempty"`
	Content  string `json:"content,omitempty"`
	Ref      string `json:"ref,omitempty"`
}

type AuthOKEvent struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

type AuthErrorEvent struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type JoinedEvent struct {
	Type     string `json:"type"`
	CourseID string `json:"course_id"`
	Online   int    `json:"online"`
}

// MessageEvent 广播给房间全体成员；Ref 只回显给发送者用于端上对账。
type MessageEvent struct {
	Type       string    `json:"type"`
	ID         string    `json:"id"`
	CourseID   string    `json:"course_id"`
	SenderID   string    `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
	Ref        string    `json:"ref,omitempty"`
}

type PresenceEvent struct {
	Type     string `json:"type"`
	CourseID string `json:"course_id"`
	UserID   string `json:"user_id"`
	Name     string `json:"name"`
	Event    string `json:"event"`
	Online   int    `json:"online"`
}

// ErrorEvent 只发给触发失败操作的那一端。
type ErrorEvent struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Ref     string `json:"ref,omitempty"`
}
