package api

import (
	"time"

	"github.com/taoyao-code/swap-server/internal/booking"
	"github.com/taoyao-code/swap-server/internal/coremodel"
	"github.com/taoyao-code/swap-server/internal/storage/models"
)

// BookingView 预约响应
type BookingView struct {
	ID           int64                `json:"id"`
	CustomerID   int64                `json:"customer_id"`
	StationID    int64                `json:"station_id"`
	VehicleID    int64                `json:"vehicle_id"`
	ScheduledAt  time.Time            `json:"scheduled_at"`
	TimeSlot     string               `json:"time_slot"`
	BatteryType  string               `json:"battery_type,omitempty"`
	BatteryCount int32                `json:"battery_count"`
	AmountCent   int64                `json:"amount_cent"`
	Status       coremodel.StatusInfo `json:"status"`
	CancelReason string               `json:"cancel_reason,omitempty"`
	CompletedAt  *time.Time           `json:"completed_at,omitempty"`
}

// SwapView 换电记录响应，ID 为雪花 ID，以字符串输出
type SwapView struct {
	ID                int64                `json:"id,string"`
	BookingID         int64                `json:"booking_id"`
	DockID            int64                `json:"dock_id"`
	StaffID           int64                `json:"staff_id"`
	OutgoingBatteryID int64                `json:"outgoing_battery_id"`
	IncomingBatteryID int64                `json:"incoming_battery_id"`
	OutgoingSlotCode  string               `json:"outgoing_slot_code"`
	IncomingSlotCode  string               `json:"incoming_slot_code"`
	Status            coremodel.StatusInfo `json:"status"`
	Description       string               `json:"description,omitempty"`
	CompletedAt       time.Time            `json:"completed_at"`
}

// BookingDetailView 预约详情
type BookingDetailView struct {
	Booking BookingView `json:"booking"`
	Swaps   []SwapView  `json:"swaps"`
}

func newBookingView(b *models.Booking) BookingView {
	v := BookingView{
		ID:           b.ID,
		CustomerID:   b.CustomerID,
		StationID:    b.StationID,
		VehicleID:    b.VehicleID,
		ScheduledAt:  b.ScheduledAt,
		TimeSlot:     b.TimeSlot,
		BatteryCount: b.BatteryCount,
		AmountCent:   b.AmountCent,
		Status:       coremodel.BookingStatus(b.Status).Info(),
		CompletedAt:  b.CompletedAt,
	}
	if b.BatteryType != nil {
		v.BatteryType = *b.BatteryType
	}
	if b.CancelReason != nil {
		v.CancelReason = *b.CancelReason
	}
	return v
}

func newSwapView(s *models.Swap) SwapView {
	return SwapView{
		ID:                s.ID,
		BookingID:         s.BookingID,
		DockID:            s.DockID,
		StaffID:           s.StaffID,
		OutgoingBatteryID: s.OutgoingBatteryID,
		IncomingBatteryID: s.IncomingBatteryID,
		OutgoingSlotCode:  s.OutgoingSlotCode,
		IncomingSlotCode:  s.IncomingSlotCode,
		Status:            coremodel.SwapStatus(s.Status).Info(),
		Description:       s.Description,
		CompletedAt:       s.CompletedAt,
	}
}

func newBookingDetailView(d *booking.Detail) BookingDetailView {
	v := BookingDetailView{Booking: newBookingView(&d.Booking), Swaps: make([]SwapView, 0, len(d.Swaps))}
	for i := range d.Swaps {
		v.Swaps = append(v.Swaps, newSwapView(&d.Swaps[i]))
	}
	return v
}
