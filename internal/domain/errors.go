package domain

import (
	"errors"
	"fmt"
)

const (
	ErrCodeNetwork         = "network_failed"
	ErrCodeHTTPStatus      = "http_status"
	ErrCodeGraphQL         = "graphql_error"
	ErrCodeDecode          = "decode_failed"
	ErrCodeInvalidInput    = "invalid_input"
	ErrCodeAlreadyAssigned = "already_assigned"
	ErrCodeNotConfirmed    = "not_confirmed"
	ErrCodeEmptySearch     = "empty_search"
	ErrCodeBusy            = "busy"
)

// ValidationError 是客户端校验失败：一定发生在任何网络请求之前。
type ValidationError struct {
	Code  string
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s：%s", e.Code, e.Msg)
	}
	return fmt.Sprintf("%s：%s %s", e.Code, e.Field, e.Msg)
}

// ErrCode 让各层错误都能暴露一个稳定的 error_code。
func (e *ValidationError) ErrCode() string { return e.Code }

// Invalid 构造 invalid_input 错误。
func Invalid(field, msg string) *ValidationError {
	return &ValidationError{Code: ErrCodeInvalidInput, Field: field, Msg: msg}
}

// IsValidation 判断 err 是否为客户端校验失败（这类错误不应重试）。
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

type coder interface {
	ErrCode() string
}

// Code 沿错误链找到第一个带 error_code 的错误；找不到返回空串。
func Code(err error) string {
	var c coder
	if errors.As(err, &c) {
		return c.ErrCode()
	}
	return ""
}
