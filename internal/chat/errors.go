package chat

import "errors"

// 核心错误分类，网关在出口处统一映射为 error 事件的 code 字段。
var (
	ErrInvalidCredential = errors.New("invalid credential")
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrAuthTimeout       = errors.New("authentication timed out")
	ErrNotJoined         = errors.New("not joined")
	ErrInvalidMessage    = errors.New("invalid message")
	ErrForbidden         = errors.New("not enrolled in course")
	ErrPersistence       = errors.New("message persistence failed")
	ErrSessionClosed     = errors.New("session closed")
	ErrSendBufferFull    = errors.New("session send buffer full")
)

const (
	CodeInvalidCredential = "invalid_credential"
	CodeUnauthenticated   = "unauthenticated"
	CodeAuthTimeout       = "auth_timeout"
	CodeNotJoined         = "not_joined"
	CodeInvalidMessage    = "invalid_message"
	CodeForbidden         = "forbidden"
	CodePersistence       = "persistence_failure"
	CodeBadRequest        = "bad_request"
)

func codeFor(err error) string {
	switch {
	case errors.Is(err, ErrInvalidCredential):
		return CodeInvalidCredential
	case errors.Is(err, ErrUnauthenticated):
		return CodeUnauthenticated
	case errors.Is(err, ErrAuthTimeout):
		return CodeAuthTimeout
	case errors.Is(err, ErrNotJoined):
		return CodeNotJoined
	case errors.Is(err, ErrInvalidMessage):
		return CodeInvalidMessage
	case errors.Is(err, ErrForbidden):
		return CodeForbidden
	case errors.Is(err, ErrPersistence):
		return CodePersistence
	default:
		return CodeBadRequest
	}
}
