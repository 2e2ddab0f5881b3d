package console

import (
	"errors"
	"fmt"
)

// 会话错误类别，使用 errors.Is 判断
var (
	ErrPromptUnreachable = errors.New("prompt unreachable")
	ErrNotAuthenticated  = errors.New("not authenticated")
	ErrLoginFailed       = errors.New("login failed")
	ErrLogoutFailed      = errors.New("logout failed")
	ErrUnexpectedPattern = errors.New("unexpected pattern")
	ErrConfigUnreachable = errors.New("configuration prompt unreachable")
	ErrProvisioning      = errors.New("not at provisioning prompt")
	ErrUnsupportedFormat = errors.New("unsupported configuration format")
	ErrClosed            = errors.New("session closed")
	ErrTransport         = errors.New("transport failure")
	ErrNonASCII          = errors.New("non-ascii input")
)

var kinds = []error{
	ErrPromptUnreachable,
	ErrNotAuthenticated,
	ErrLoginFailed,
	ErrLogoutFailed,
	ErrUnexpectedPattern,
	ErrConfigUnreachable,
	ErrProvisioning,
	ErrUnsupportedFormat,
	ErrClosed,
	ErrTransport,
	ErrNonASCII,
}

// Error 会话动词返回的错误
type Error struct {
	Op   string
	Kind error
	Mode Mode
	Err  error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %v (mode %s)", e.Op, e.Kind, e.Mode)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindOf 返回错误类别；非会话错误返回 nil
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// KindName 错误类别的短名称，用于任务记录和接口响应
func KindName(err error) string {
	switch KindOf(err) {
	case ErrPromptUnreachable:
		return "prompt_unreachable"
	case ErrNotAuthenticated:
		return "not_authenticated"
	case ErrLoginFailed:
		return "login_failed"
	case ErrLogoutFailed:
		return "logout_failed"
	case ErrUnexpectedPattern:
		return "unexpected_pattern"
	case ErrConfigUnreachable:
		return "config_unreachable"
	case ErrProvisioning:
		return "provisioning"
	case ErrUnsupportedFormat:
		return "unsupported_format"
	case ErrClosed:
		return "closed"
	case ErrTransport:
		return "transport"
	case ErrNonASCII:
		return "non_ascii"
	}
	if err == nil {
		return ""
	}
	return "internal"
}
