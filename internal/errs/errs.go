package errs

import (
	"errors"
	"fmt"
)

// Kind 错误类别，服务层统一返回带类别的错误，路由层据此映射 HTTP 状态码
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindUnauthorized
	KindForbidden
	KindConflict
	KindInvalidTransition
	KindUnsupported
	KindGateway
	// KindGatewayTimeout 网关调用超时：结果不确定，不能当作失败重试（避免重复扣款）
	KindGatewayTimeout
)

// E 带类别的业务错误
type E struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *E) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *E) Unwrap() error { return e.Err }

// New 创建业务错误
func New(kind Kind, msg string) error {
	return &E{Kind: kind, Msg: msg}
}

// Newf 创建带格式化消息的业务错误
func Newf(kind Kind, format string, args ...interface{}) error {
	return &E{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap 包装底层错误（存储/网络等），对外只暴露 msg
func Wrap(kind Kind, msg string, err error) error {
	return &E{Kind: kind, Msg: msg, Err: err}
}

// KindOf 提取错误类别，非业务错误返回 KindUnknown
func KindOf(err error) Kind {
	var e *E
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is 判断错误是否属于指定类别
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Message 返回对用户可见的消息，非业务错误返回通用提示
func Message(err error) string {
	var e *E
	if errors.As(err, &e) {
		return e.Msg
	}
	return "internal error"
}

// HTTPStatus 类别到 HTTP 状态码的映射
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation, KindInvalidTransition, KindUnsupported:
		return 400
	case KindUnauthorized:
		return 401
	case KindForbidden:
		return 403
	case KindNotFound:
		return 404
	case KindConflict:
		return 409
	case KindGateway, KindGatewayTimeout:
		return 502
	default:
		return 500
	}
}
