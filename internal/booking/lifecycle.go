package booking

import (
	"strconv"
	"time"

	"github.com/taoyao-code/swap-server/internal/coremodel"
	"github.com/taoyao-code/swap-server/internal/storage/models"
	"github.com/taoyao-code/swap-server/internal/thirdparty"
)

// transitions 预约状态迁移表
// PENDING_PAYMENT -> PENDING_SWAPPING（支付确认）
// PENDING_SWAPPING -> COMPLETED（仅换电引擎）
// 非终态 -> CANCELLED / FAILED
var transitions = map[coremodel.BookingStatus][]coremodel.BookingStatus{
	coremodel.BookingPendingPayment: {
		coremodel.BookingPendingSwapping,
		coremodel.BookingCancelled,
		coremodel.BookingFailed,
	},
	coremodel.BookingPendingSwapping: {
		coremodel.BookingCompleted,
		coremodel.BookingCancelled,
		coremodel.BookingFailed,
	},
	// 永久撤销已完成预约中的换电
	coremodel.BookingCompleted: {
		coremodel.BookingCancelled,
	},
}

// CanTransition 判断状态迁移是否合法
func CanTransition(from, to coremodel.BookingStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// SourcesOf 返回可迁移到 to 的全部源状态
func SourcesOf(to coremodel.BookingStatus) []coremodel.BookingStatus {
	var out []coremodel.BookingStatus
	for _, from := range []coremodel.BookingStatus{
		coremodel.BookingPendingPayment,
		coremodel.BookingPendingSwapping,
		coremodel.BookingCompleted,
	} {
		if CanTransition(from, to) {
			out = append(out, from)
		}
	}
	return out
}

// CompletedEvent 预约完成事件
func CompletedEvent(b *models.Booking, swapIDs []int64, at time.Time) *thirdparty.StandardEvent {
	ids := make([]string, len(swapIDs))
	for i, id := range swapIDs {
		ids[i] = strconv.FormatInt(id, 10)
	}
	data := &thirdparty.BookingCompletedData{
		CustomerID:   b.CustomerID,
		VehicleID:    b.VehicleID,
		BatteryCount: b.BatteryCount,
		AmountCent:   b.AmountCent,
		CompletedAt:  at.Unix(),
		SwapIDs:      ids,
	}
	return thirdparty.NewEvent(thirdparty.EventBookingCompleted, b.StationID, b.ID, b.ID, at, data.ToMap())
}

// ClosedEvent 预约取消/失败事件
func ClosedEvent(b *models.Booking, status coremodel.BookingStatus, reason string, at time.Time) *thirdparty.StandardEvent {
	eventType := thirdparty.EventBookingCancelled
	if status == coremodel.BookingFailed {
		eventType = thirdparty.EventBookingFailed
	}
	data := &thirdparty.BookingClosedData{
		CustomerID: b.CustomerID,
		Status:     string(status),
		Reason:     reason,
		ClosedAt:   at.Unix(),
	}
	return thirdparty.NewEvent(eventType, b.StationID, b.ID, b.ID, at, data.ToMap())
}
