package thirdparty

import (
	"fmt"
	"time"
)

// EventType 事件类型
type EventType string

const (
	// EventBookingPaymentConfirmed 预约支付确认，进入待换电
	EventBookingPaymentConfirmed EventType = "booking.payment_confirmed"

	// EventBookingCompleted 预约换电全部完成（计费/通知下游据此结算）
	EventBookingCompleted EventType = "booking.completed"

	// EventBookingCancelled 预约取消（用户取消或永久撤销换电）
	EventBookingCancelled EventType = "booking.cancelled"

	// EventBookingFailed 预约失败（支付或到站超时）
	EventBookingFailed EventType = "booking.failed"

	// EventSwapRecorded 单块电池换电记录写入
	EventSwapRecorded EventType = "swap.recorded"

	// EventSwapCancelled 换电记录被取消（临时或永久）
	EventSwapCancelled EventType = "swap.cancelled"
)

// StandardEvent 标准事件结构
type StandardEvent struct {
	// 基础字段
	EventID   string    `json:"event_id"`   // 事件唯一ID（用于去重）
	EventType EventType `json:"event_type"` // 事件类型
	StationID int64     `json:"station_id"` // 站点ID
	BookingID int64     `json:"booking_id"` // 预约ID
	Timestamp int64     `json:"timestamp"`  // 事件时间戳（Unix秒）
	Nonce     string    `json:"nonce"`      // 随机数（用于签名）

	// 业务数据
	Data map[string]interface{} `json:"data"` // 具体事件数据
}

// NewEvent 创建标准事件。
// subjectID 为事件主体（预约或换电记录）的ID，同一主体同一类型的事件ID固定，下游可据此去重。
func NewEvent(eventType EventType, stationID, bookingID, subjectID int64, at time.Time, data map[string]interface{}) *StandardEvent {
	return &StandardEvent{
		EventID:   fmt.Sprintf("%s-%d", eventType, subjectID),
		EventType: eventType,
		StationID: stationID,
		BookingID: bookingID,
		Timestamp: at.Unix(),
		Nonce:     fmt.Sprintf("%08x", uint32(at.UnixNano())),
		Data:      data,
	}
}

// BookingCompletedData 预约完成事件数据
type BookingCompletedData struct {
	CustomerID   int64    `json:"customer_id"`   // 用户ID
	VehicleID    int64    `json:"vehicle_id"`    // 车辆ID
	BatteryCount int32    `json:"battery_count"` // 换电数量
	AmountCent   int64    `json:"amount_cent"`   // 金额（分）
	CompletedAt  int64    `json:"completed_at"`  // 完成时间
	SwapIDs      []string `json:"swap_ids"`      // 成功的换电记录
}

// BookingClosedData 预约取消/失败事件数据
type BookingClosedData struct {
	CustomerID int64  `json:"customer_id"` // 用户ID
	Status     string `json:"status"`      // 终态：CANCELLED/FAILED
	Reason     string `json:"reason"`      // 原因
	ClosedAt   int64  `json:"closed_at"`   // 关闭时间
}

// SwapRecordedData 换电记录事件数据
type SwapRecordedData struct {
	SwapID            string `json:"swap_id"`             // 换电记录ID
	Status            string `json:"status"`              // SUCCESS/WAITING_USER_RETRY
	StaffID           int64  `json:"staff_id"`            // 操作人员
	OutgoingBatteryID int64  `json:"outgoing_battery_id"` // 换出电池
	IncomingBatteryID int64  `json:"incoming_battery_id"` // 换入电池
	OutgoingSlotCode  string `json:"outgoing_slot_code"`  // 换出仓位
	IncomingSlotCode  string `json:"incoming_slot_code"`  // 换入仓位
	Quarantined       bool   `json:"quarantined"`         // 换入电池是否被隔离维护
}

// SwapCancelledData 换电取消事件数据
type SwapCancelledData struct {
	SwapID string `json:"swap_id"` // 换电记录ID
	Mode   string `json:"mode"`    // soft/permanent
	Status string `json:"status"`  // 取消后状态
	Reason string `json:"reason"`  // 原因
}

// ToMap 将事件数据转换为map（用于创建StandardEvent）
func (d *BookingCompletedData) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"customer_id":   d.CustomerID,
		"vehicle_id":    d.VehicleID,
		"battery_count": d.BatteryCount,
		"amount_cent":   d.AmountCent,
		"completed_at":  d.CompletedAt,
		"swap_ids":      d.SwapIDs,
	}
}

func (d *BookingClosedData) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"customer_id": d.CustomerID,
		"status":      d.Status,
		"closed_at":   d.ClosedAt,
	}
	if d.Reason != "" {
		m["reason"] = d.Reason
	}
	return m
}

func (d *SwapRecordedData) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"swap_id":             d.SwapID,
		"status":              d.Status,
		"staff_id":            d.StaffID,
		"outgoing_battery_id": d.OutgoingBatteryID,
		"incoming_battery_id": d.IncomingBatteryID,
		"outgoing_slot_code":  d.OutgoingSlotCode,
		"incoming_slot_code":  d.IncomingSlotCode,
		"quarantined":         d.Quarantined,
	}
}

func (d *SwapCancelledData) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"swap_id": d.SwapID,
		"mode":    d.Mode,
		"status":  d.Status,
	}
	if d.Reason != "" {
		m["reason"] = d.Reason
	}
	return m
}
