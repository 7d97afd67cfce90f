// Package apperr 定义业务错误分类，HTTP 层据此映射状态码。
package apperr

import (
	"errors"
	"fmt"
)

// Kind 错误类别
type Kind string

const (
	// KindValidation 请求本身不合法（参数、数量、电池状态/类型不符）
	KindValidation Kind = "VALIDATION"
	// KindStateConflict 目标对象所处状态不允许该操作
	KindStateConflict Kind = "STATE_CONFLICT"
	// KindResourceExhausted 站点无可用电池或空仓位
	KindResourceExhausted Kind = "RESOURCE_EXHAUSTED"
	// KindNotFound 对象不存在
	KindNotFound Kind = "NOT_FOUND"
	// KindInternal 存储或其他内部错误
	KindInternal Kind = "INTERNAL"
)

// 错误码
const (
	CodeBookingNotFound     = "BOOKING_NOT_FOUND"
	CodeBookingState        = "BOOKING_STATE_INVALID"
	CodeBookingCutoff       = "BOOKING_CANCEL_CUTOFF"
	CodeBatteryCount        = "BATTERY_COUNT_MISMATCH"
	CodeDuplicateBattery    = "DUPLICATE_INCOMING_BATTERY"
	CodeStaffMissing        = "STAFF_MISSING"
	CodeStaffNotAssigned    = "STAFF_NOT_ASSIGNED"
	CodeNoStock             = "NO_AVAILABLE_BATTERY"
	CodeBatteryNotFound     = "BATTERY_NOT_FOUND"
	CodeBatteryInactive     = "BATTERY_INACTIVE"
	CodeBatteryUnusable     = "BATTERY_UNUSABLE"
	CodeBatteryTypeUnknown  = "BATTERY_TYPE_UNKNOWN"
	CodeBatteryTypeMismatch = "BATTERY_TYPE_MISMATCH"
	CodeNoMatchingBattery   = "NO_MATCHING_BATTERY"
	CodeNoEmptySlot         = "NO_EMPTY_SLOT"
	CodeClaimConflict       = "CLAIM_CONFLICT"
	CodeSwapNotFound        = "SWAP_NOT_FOUND"
	CodeSwapState           = "SWAP_STATE_INVALID"
	CodeBatteryMoved        = "BATTERY_MOVED"
	CodeCancelMode          = "CANCEL_MODE_INVALID"
	CodeStationNotFound     = "STATION_NOT_FOUND"
	CodeInternal            = "INTERNAL_ERROR"
)

// Error 业务错误
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New 创建业务错误
func New(kind Kind, code, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap 包装底层错误
func Wrap(kind Kind, code string, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

func Validation(code, format string, args ...any) *Error {
	return New(KindValidation, code, format, args...)
}

func StateConflict(code, format string, args ...any) *Error {
	return New(KindStateConflict, code, format, args...)
}

func ResourceExhausted(code, format string, args ...any) *Error {
	return New(KindResourceExhausted, code, format, args...)
}

func NotFound(code, format string, args ...any) *Error {
	return New(KindNotFound, code, format, args...)
}

// Internal 包装存储等内部错误
func Internal(err error, format string, args ...any) *Error {
	return Wrap(KindInternal, CodeInternal, err, format, args...)
}

// As 提取业务错误
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf 返回错误类别，非业务错误视为内部错误
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}

// CodeOf 返回错误码，非业务错误返回 INTERNAL_ERROR
func CodeOf(err error) string {
	if e, ok := As(err); ok {
		return e.Code
	}
	return CodeInternal
}
