package storage

import (
	"context"
	"errors"
	"time"

	"github.com/taoyao-code/swap-server/internal/coremodel"
	"github.com/taoyao-code/swap-server/internal/storage/models"
)

var (
	// ErrNotFound 记录不存在
	ErrNotFound = errors.New("storage: record not found")
	// ErrClaimConflict 条件更新未命中（行已被并发事务修改或状态不符）
	ErrClaimConflict = errors.New("storage: claim conflict")
)

// BookingUpdate 预约状态迁移时附带写入的字段
type BookingUpdate struct {
	CancelReason *string
	CompletedAt  *time.Time
}

// InventoryData 库存快照原始数据
type InventoryData struct {
	Stations  []models.Station
	Docks     []models.Dock
	Slots     []models.Slot
	Batteries []models.Battery
}

// SwapRepo 面向换电事务引擎的存储抽象。
// 约束：
// - 上层禁止直接写 SQL，统一通过本接口访问
// - 仓位与电池的双向引用只能通过 PlaceBattery/RemoveBattery 修改
// - 认领类查询使用行锁（FOR UPDATE SKIP LOCKED）并配合条件更新，冲突时返回 ErrClaimConflict
type SwapRepo interface {
	// ---------- 事务 ----------
	// WithTx 在单个事务中执行 fn，嵌套调用复用当前事务。
	WithTx(ctx context.Context, fn func(repo SwapRepo) error) error

	// ---------- 库存读取 ----------
	GetStation(ctx context.Context, id int64) (*models.Station, error)
	GetDock(ctx context.Context, id int64) (*models.Dock, error)
	GetSlot(ctx context.Context, id int64) (*models.Slot, error)
	GetBattery(ctx context.Context, id int64) (*models.Battery, error)
	// LockBattery 行锁读取电池
	LockBattery(ctx context.Context, id int64) (*models.Battery, error)
	// FindAvailableBattery 按 dock 名称、仓位号升序认领站点内指定类型的第一块可用电池；
	// batteryType 为空时不限类型，exclude 中的电池不参与选择
	FindAvailableBattery(ctx context.Context, stationID int64, batteryType string, exclude []int64) (*models.Battery, error)
	// FindEmptySlot 认领站点内第一个启用且为空的仓位
	FindEmptySlot(ctx context.Context, stationID int64) (*models.Slot, error)
	// FindSlotHolding 查找当前放置该电池的仓位
	FindSlotHolding(ctx context.Context, batteryID int64) (*models.Slot, error)
	// CountAvailable 统计站点可用电池数量，batteryType 为空时不限类型
	CountAvailable(ctx context.Context, stationID int64, batteryType string) (int64, error)
	// LoadInventory 读取库存快照，stationID 为 0 时读取全部
	LoadInventory(ctx context.Context, stationID int64) (*InventoryData, error)

	// ---------- 库存变更（双向原子） ----------
	// RemoveBattery 将电池从所在仓位取出：仓位置空，电池清除仓位与站点引用并置为 to。
	// from 非空时电池当前状态必须在其中，否则返回 ErrClaimConflict。
	RemoveBattery(ctx context.Context, batteryID int64, from []coremodel.BatteryStatus, to coremodel.BatteryStatus) error
	// PlaceBattery 将电池放入仓位：电池脱离原仓位，仓位写入电池与状态，电池写入仓位、站点与状态。
	// 仓位已被其他电池占用时返回 ErrClaimConflict。
	PlaceBattery(ctx context.Context, batteryID, slotID int64, batteryStatus coremodel.BatteryStatus, slotStatus coremodel.SlotStatus) error

	// ---------- 预约 ----------
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	LockBooking(ctx context.Context, id int64) (*models.Booking, error)
	// UpdateBookingStatus 条件迁移预约状态，当前状态不在 from 中时返回 ErrClaimConflict
	UpdateBookingStatus(ctx context.Context, id int64, from []coremodel.BookingStatus, to coremodel.BookingStatus, upd BookingUpdate) error

	// ---------- 换电记录 ----------
	CreateSwap(ctx context.Context, swap *models.Swap) error
	GetSwap(ctx context.Context, id int64) (*models.Swap, error)
	LockSwap(ctx context.Context, id int64) (*models.Swap, error)
	// UpdateSwapStatus 条件迁移换电记录状态，当前状态不在 from 中时返回 ErrClaimConflict
	UpdateSwapStatus(ctx context.Context, id int64, from []coremodel.SwapStatus, to coremodel.SwapStatus, description string) error
	ListSwapsByBooking(ctx context.Context, bookingID int64) ([]models.Swap, error)
	CountSwapsByStatus(ctx context.Context, bookingID int64, status coremodel.SwapStatus) (int64, error)
	// ListStaleSwaps 列出 completed_at 早于 before 的指定状态换电记录
	ListStaleSwaps(ctx context.Context, status coremodel.SwapStatus, before time.Time, limit int) ([]models.Swap, error)

	// ---------- 人员 ----------
	IsStaffAssigned(ctx context.Context, staffID, stationID int64) (bool, error)

	// ---------- 运维导入 ----------
	CreateStation(ctx context.Context, s *models.Station) error
	CreateDock(ctx context.Context, d *models.Dock) error
	CreateSlot(ctx context.Context, s *models.Slot) error
	CreateBattery(ctx context.Context, b *models.Battery) error
	CreateBooking(ctx context.Context, b *models.Booking) error
	AssignStaff(ctx context.Context, a *models.StaffAssignment) error
}
