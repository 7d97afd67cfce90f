package coremodel

// BatteryStatus 电池状态
type BatteryStatus string

const (
	BatteryAvailable     BatteryStatus = "AVAILABLE"
	BatteryInUse         BatteryStatus = "IN_USE"
	BatteryCharging      BatteryStatus = "CHARGING"
	BatteryWaitingCharge BatteryStatus = "WAITING_CHARGE"
	BatteryMaintenance   BatteryStatus = "MAINTENANCE"
	BatteryDamaged       BatteryStatus = "DAMAGED"
)

// Stationed 该状态下电池必须位于某站点的某个仓位中
func (s BatteryStatus) Stationed() bool {
	return s == BatteryAvailable || s == BatteryCharging
}

// Valid 是否为已知状态
func (s BatteryStatus) Valid() bool {
	switch s {
	case BatteryAvailable, BatteryInUse, BatteryCharging, BatteryWaitingCharge, BatteryMaintenance, BatteryDamaged:
		return true
	}
	return false
}

// SlotStatus 仓位状态
type SlotStatus string

const (
	SlotEmpty    SlotStatus = "EMPTY"
	SlotOccupied SlotStatus = "OCCUPIED"
	SlotReserved SlotStatus = "RESERVED"
)

// BookingStatus 预约状态
type BookingStatus string

const (
	BookingPendingPayment  BookingStatus = "PENDING_PAYMENT"
	BookingPendingSwapping BookingStatus = "PENDING_SWAPPING"
	BookingCompleted       BookingStatus = "COMPLETED"
	BookingCancelled       BookingStatus = "CANCELLED"
	BookingFailed          BookingStatus = "FAILED"
)

// Terminal 终态不再发生任何迁移
func (s BookingStatus) Terminal() bool {
	return s == BookingCompleted || s == BookingCancelled || s == BookingFailed
}

// SwapStatus 换电记录状态
type SwapStatus string

const (
	SwapSuccess          SwapStatus = "SUCCESS"
	SwapWaitingUserRetry SwapStatus = "WAITING_USER_RETRY"
	SwapCancelledTemp    SwapStatus = "CANCELLED_TEMP"
	SwapCancelled        SwapStatus = "CANCELLED"
)

// OutcomeFailed 单块电池处理失败时返回的结果状态（不落库）
const OutcomeFailed = "FAILED"

// BatteryType 电池化学类型
type BatteryType string

const (
	BatteryTypeLithiumIon BatteryType = "LITHIUM_ION"
	BatteryTypeLFP        BatteryType = "LFP"
	BatteryTypeNMC        BatteryType = "NMC"
	BatteryTypeLeadAcid   BatteryType = "LEAD_ACID"
)

// Valid 是否为已登记的电池类型
func (t BatteryType) Valid() bool {
	switch t {
	case BatteryTypeLithiumIon, BatteryTypeLFP, BatteryTypeNMC, BatteryTypeLeadAcid:
		return true
	}
	return false
}

// CancelMode 换电取消模式
type CancelMode string

const (
	CancelSoft      CancelMode = "soft"
	CancelPermanent CancelMode = "permanent"
)

// Valid 是否为已知取消模式
func (m CancelMode) Valid() bool {
	return m == CancelSoft || m == CancelPermanent
}
