// Package apperr 定义了贯穿各层边界的带类别错误类型。
// 每个边界（认证、限流、存储、上游客户端）在检测到失败时生成一次 apperr，
// 之后各层只透传或补充上下文，不再重新解读错误类别。
package apperr

import (
	"errors"
	"net/http"
)

// Kind 标识错误的类别，决定对外的 HTTP 状态码。
type Kind int

const (
	KindInternal     Kind = iota // 兜底错误，500
	KindInvalidInput             // 调用方输入有误，400
	KindUnauthorized             // 凭证缺失/无效/过期，401
	KindForbidden                // 角色或归属不符，403
	KindNotFound                 // 资源不存在（含越权访问，不区分），404
	KindConflict                 // 唯一性冲突，409
	KindRateLimited              // 触发限流，429
	KindUnavailable              // 上游或依赖不可用，503
	KindTimeout                  // 上游超时，504
)

// Error 是携带类别与对外消息的错误。
// Message 是可以直接返回给调用方的文案，内部细节保存在 Err 中。
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error 实现 error 接口。
func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap 返回底层错误。
func (e *Error) Unwrap() error {
	return e.Err
}

// New 创建一个不包装底层错误的 apperr。
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap 创建一个包装底层错误的 apperr。
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf 提取错误的类别；非 apperr 一律视为 Internal。
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf 提取可以对外暴露的消息；非 apperr 返回兜底文案，避免泄露内部细节。
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "Internal server error"
}

// HTTPStatus 将错误类别映射为 HTTP 状态码。
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindUnavailable:
		return http.StatusServiceUnavailable
	case KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
