package swap

import (
	"github.com/taoyao-code/swap-server/internal/apperr"
	"github.com/taoyao-code/swap-server/internal/coremodel"
)

// Caller 已认证的调用方（来自工作人员会话令牌）
type Caller struct {
	StaffID int64
	Subject string
}

// CommitRequest 换电提交请求
type CommitRequest struct {
	BookingID          int64
	IncomingBatteryIDs []int64
	// StaffID 显式指定的工作人员，仅在 Caller 为空时使用
	StaffID int64
	Caller  *Caller
}

// staffID 解析操作人员：会话优先，显式字段兜底
func (r CommitRequest) staffID() int64 {
	if r.Caller != nil && r.Caller.StaffID > 0 {
		return r.Caller.StaffID
	}
	return r.StaffID
}

// Outcome 单块电池的处理结果
type Outcome struct {
	SwapID            int64  `json:"swap_id,string,omitempty"`
	Status            string `json:"status"`
	Message           string `json:"message"`
	Code              string `json:"code,omitempty"`
	BookingID         int64  `json:"booking_id"`
	OutgoingBatteryID int64  `json:"outgoing_battery_id,omitempty"`
	IncomingBatteryID int64  `json:"incoming_battery_id"`
	OutgoingSlotCode  string `json:"outgoing_slot_code,omitempty"`
	IncomingSlotCode  string `json:"incoming_slot_code,omitempty"`
	Quarantined       bool   `json:"quarantined,omitempty"`
}

// Recorded 是否写入了换电记录
func (o Outcome) Recorded() bool { return o.SwapID != 0 }

func failedOutcome(bookingID, incomingID int64, err error) Outcome {
	msg := err.Error()
	if e, ok := apperr.As(err); ok {
		msg = e.Message
	}
	return Outcome{
		Status:            coremodel.OutcomeFailed,
		Message:           msg,
		Code:              apperr.CodeOf(err),
		BookingID:         bookingID,
		IncomingBatteryID: incomingID,
	}
}

// CancelResult 撤销换电结果
type CancelResult struct {
	SwapID  int64  `json:"swap_id,string"`
	Status  string `json:"status"`
	Message string `json:"message"`
}
