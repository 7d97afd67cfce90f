package models

import (
	"fmt"
	"time"
)

// 注意：
// - 保持与 db/migrations 中的建表语句完全对齐
// - 不使用 gorm.Model，显式声明每个字段，避免隐式 DeletedAt
// - 状态字段以字符串落库，取值见 internal/coremodel

// Station 映射 stations 表
type Station struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Name      string    `gorm:"column:name;type:text;not null"`
	Address   string    `gorm:"column:address;type:text"`
	Latitude  float64   `gorm:"column:latitude"`
	Longitude float64   `gorm:"column:longitude"`
	Active    bool      `gorm:"column:active;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Station) TableName() string { return "stations" }

// Dock 映射 docks 表（站点内的电池柜）
type Dock struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	StationID int64     `gorm:"column:station_id;not null;index:idx_docks_station"`
	Name      string    `gorm:"column:name;type:text;not null"`
	Active    bool      `gorm:"column:active;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Dock) TableName() string { return "docks" }

// Slot 映射 slots 表（电池柜内的仓位）
type Slot struct {
	ID     int64  `gorm:"column:id;primaryKey;autoIncrement"`
	DockID int64  `gorm:"column:dock_id;not null;uniqueIndex:uq_slots_dock_no,priority:1"`
	SlotNo int32  `gorm:"column:slot_no;not null;uniqueIndex:uq_slots_dock_no,priority:2"`
	Status string `gorm:"column:status;type:text;not null"`
	Active bool   `gorm:"column:active;not null"`
	// 当前放置的电池（唯一，可空）
	BatteryID *int64    `gorm:"column:battery_id;uniqueIndex:uq_slots_battery"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Slot) TableName() string { return "slots" }

// SlotCode 仓位展示编码，例如 A-03
func SlotCode(dockName string, slotNo int32) string {
	return fmt.Sprintf("%s-%02d", dockName, slotNo)
}

// Battery 映射 batteries 表
type Battery struct {
	ID          int64  `gorm:"column:id;primaryKey;autoIncrement"`
	Serial      string `gorm:"column:serial;type:text;not null;uniqueIndex:uq_batteries_serial"`
	Status      string `gorm:"column:status;type:text;not null;index:idx_batteries_station_status,priority:2"`
	Type        string `gorm:"column:type;type:text;not null"`
	SoH         int32  `gorm:"column:soh;not null"`
	ChargeLevel int32  `gorm:"column:charge_level;not null"`
	Active      bool   `gorm:"column:active;not null"`
	// 冗余的所在站点，IN_USE 时为空
	StationID *int64 `gorm:"column:station_id;index:idx_batteries_station_status,priority:1"`
	// 所在仓位反向引用，必须与 slots.battery_id 同步
	SlotID    *int64    `gorm:"column:slot_id;uniqueIndex:uq_batteries_slot"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Battery) TableName() string { return "batteries" }

// Booking 映射 bookings 表
type Booking struct {
	ID           int64      `gorm:"column:id;primaryKey;autoIncrement"`
	CustomerID   int64      `gorm:"column:customer_id;not null"`
	StationID    int64      `gorm:"column:station_id;not null;index:idx_bookings_station"`
	VehicleID    int64      `gorm:"column:vehicle_id;not null"`
	ScheduledAt  time.Time  `gorm:"column:scheduled_at;not null"`
	TimeSlot     string     `gorm:"column:time_slot;type:text"`
	BatteryType  *string    `gorm:"column:battery_type;type:text"`
	BatteryCount int32      `gorm:"column:battery_count;not null"`
	Status       string     `gorm:"column:status;type:text;not null"`
	AmountCent   int64      `gorm:"column:amount_cent;not null"`
	CancelReason *string    `gorm:"column:cancel_reason;type:text"`
	CompletedAt  *time.Time `gorm:"column:completed_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (Booking) TableName() string { return "bookings" }

// Swap 映射 swaps 表（单块电池的换电记录，ID 由雪花算法生成）
type Swap struct {
	ID                int64     `gorm:"column:id;primaryKey;autoIncrement:false"`
	BookingID         int64     `gorm:"column:booking_id;not null;index:idx_swaps_booking_status,priority:1"`
	DockID            int64     `gorm:"column:dock_id;not null"`
	StaffID           int64     `gorm:"column:staff_id;not null"`
	OutgoingBatteryID int64     `gorm:"column:outgoing_battery_id;not null"`
	IncomingBatteryID int64     `gorm:"column:incoming_battery_id;not null"`
	Status            string    `gorm:"column:status;type:text;not null;index:idx_swaps_booking_status,priority:2;index:idx_swaps_status_completed,priority:1"`
	OutgoingSlotCode  string    `gorm:"column:outgoing_slot_code;type:text"`
	IncomingSlotCode  string    `gorm:"column:incoming_slot_code;type:text"`
	Description       string    `gorm:"column:description;type:text"`
	CompletedAt       time.Time `gorm:"column:completed_at;not null;index:idx_swaps_status_completed,priority:2"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Swap) TableName() string { return "swaps" }

// StaffAssignment 映射 staff_assignments 表（工作人员与站点的指派关系）
type StaffAssignment struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	StaffID   int64     `gorm:"column:staff_id;not null;uniqueIndex:uq_staff_station,priority:1"`
	StationID int64     `gorm:"column:station_id;not null;uniqueIndex:uq_staff_station,priority:2"`
	Active    bool      `gorm:"column:active;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (StaffAssignment) TableName() string { return "staff_assignments" }

// All 返回全部模型，供 AutoMigrate 使用
func All() []any {
	return []any{
		&Station{}, &Dock{}, &Slot{}, &Battery{},
		&Booking{}, &Swap{}, &StaffAssignment{},
	}
}
