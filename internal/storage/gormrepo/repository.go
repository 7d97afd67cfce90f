package gormrepo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/taoyao-code/swap-server/internal/coremodel"
	"github.com/taoyao-code/swap-server/internal/storage"
	"github.com/taoyao-code/swap-server/internal/storage/models"
)

// Repository 基于 GORM 的 SwapRepo 实现。
// 使用 isTx 标记区分事务上下文，避免嵌套事务重复 Begin/Commit。
type Repository struct {
	db   *gorm.DB
	isTx bool
}

// New 返回一个使用给定 *gorm.DB 的 SwapRepo 实例。
func New(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

var _ storage.SwapRepo = (*Repository)(nil)

// WithTx 复用现有事务或开启新事务执行 fn。
func (r *Repository) WithTx(ctx context.Context, fn func(storage.SwapRepo) error) error {
	if r.isTx {
		return fn(r)
	}

	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}

	child := &Repository{db: tx, isTx: true}
	if err := fn(child); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit().Error
}

// skipLocked 行锁认领，已被其他事务锁定的行直接跳过
func skipLocked(table string) clause.Locking {
	return clause.Locking{Strength: "UPDATE", Table: clause.Table{Name: table}, Options: "SKIP LOCKED"}
}

var forUpdate = clause.Locking{Strength: "UPDATE"}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return storage.ErrNotFound
	}
	return err
}

func toStrings[T ~string](in []T) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = string(v)
	}
	return out
}

func take[T any](q *gorm.DB) (*T, error) {
	var rec T
	if err := q.Take(&rec).Error; err != nil {
		return nil, translate(err)
	}
	return &rec, nil
}

// ---------- 库存读取 ----------

func (r *Repository) GetStation(ctx context.Context, id int64) (*models.Station, error) {
	return take[models.Station](r.db.WithContext(ctx).Where("id = ?", id))
}

func (r *Repository) GetDock(ctx context.Context, id int64) (*models.Dock, error) {
	return take[models.Dock](r.db.WithContext(ctx).Where("id = ?", id))
}

func (r *Repository) GetSlot(ctx context.Context, id int64) (*models.Slot, error) {
	return take[models.Slot](r.db.WithContext(ctx).Where("id = ?", id))
}

func (r *Repository) GetBattery(ctx context.Context, id int64) (*models.Battery, error) {
	return take[models.Battery](r.db.WithContext(ctx).Where("id = ?", id))
}

// LockBattery 行锁读取电池。
func (r *Repository) LockBattery(ctx context.Context, id int64) (*models.Battery, error) {
	return take[models.Battery](r.db.WithContext(ctx).Clauses(forUpdate).Where("id = ?", id))
}

// FindAvailableBattery 认领站点内指定类型的第一块可用电池（dock 名称、仓位号升序），RESERVED 仓位中的电池不参与。
func (r *Repository) FindAvailableBattery(ctx context.Context, stationID int64, batteryType string, exclude []int64) (*models.Battery, error) {
	q := r.db.WithContext(ctx).
		Model(&models.Battery{}).
		Select("batteries.*").
		Joins("JOIN slots ON slots.battery_id = batteries.id").
		Joins("JOIN docks ON docks.id = slots.dock_id").
		Where("batteries.station_id = ? AND docks.station_id = ?", stationID, stationID).
		Where("batteries.status = ? AND batteries.active = ?", string(coremodel.BatteryAvailable), true).
		Where("slots.status = ?", string(coremodel.SlotOccupied))
	if batteryType != "" {
		q = q.Where("batteries.type = ?", batteryType)
	}
	if len(exclude) > 0 {
		q = q.Where("batteries.id NOT IN ?", exclude)
	}
	q = q.Order("docks.name ASC, slots.slot_no ASC, batteries.id ASC").
		Clauses(skipLocked("batteries"))
	return take[models.Battery](q)
}

// FindEmptySlot 认领站点内第一个启用的空仓位（dock 名称、仓位号升序）。
func (r *Repository) FindEmptySlot(ctx context.Context, stationID int64) (*models.Slot, error) {
	q := r.db.WithContext(ctx).
		Model(&models.Slot{}).
		Select("slots.*").
		Joins("JOIN docks ON docks.id = slots.dock_id").
		Where("docks.station_id = ? AND docks.active = ?", stationID, true).
		Where("slots.active = ? AND slots.status = ? AND slots.battery_id IS NULL", true, string(coremodel.SlotEmpty)).
		Order("docks.name ASC, slots.slot_no ASC, slots.id ASC").
		Clauses(skipLocked("slots"))
	return take[models.Slot](q)
}

// FindSlotHolding 查找当前放置该电池的仓位。
func (r *Repository) FindSlotHolding(ctx context.Context, batteryID int64) (*models.Slot, error) {
	return take[models.Slot](r.db.WithContext(ctx).Where("battery_id = ?", batteryID))
}

// CountAvailable 统计站点可用电池数量。
func (r *Repository) CountAvailable(ctx context.Context, stationID int64, batteryType string) (int64, error) {
	var n int64
	q := r.db.WithContext(ctx).
		Model(&models.Battery{}).
		Where("station_id = ? AND status = ? AND active = ?", stationID, string(coremodel.BatteryAvailable), true)
	if batteryType != "" {
		q = q.Where("type = ?", batteryType)
	}
	if err := q.Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// LoadInventory 读取库存快照（站点、电池柜、仓位、相关电池）。
func (r *Repository) LoadInventory(ctx context.Context, stationID int64) (*storage.InventoryData, error) {
	db := r.db.WithContext(ctx)
	data := &storage.InventoryData{}

	if stationID == 0 {
		if err := db.Order("id").Find(&data.Stations).Error; err != nil {
			return nil, err
		}
		if err := db.Order("id").Find(&data.Docks).Error; err != nil {
			return nil, err
		}
		if err := db.Order("id").Find(&data.Slots).Error; err != nil {
			return nil, err
		}
		if err := db.Order("id").Find(&data.Batteries).Error; err != nil {
			return nil, err
		}
		return data, nil
	}

	if err := db.Where("id = ?", stationID).Find(&data.Stations).Error; err != nil {
		return nil, err
	}
	if len(data.Stations) == 0 {
		return nil, storage.ErrNotFound
	}
	if err := db.Where("station_id = ?", stationID).Order("name, id").Find(&data.Docks).Error; err != nil {
		return nil, err
	}
	dockIDs := make([]int64, 0, len(data.Docks))
	for _, d := range data.Docks {
		dockIDs = append(dockIDs, d.ID)
	}
	if len(dockIDs) > 0 {
		if err := db.Where("dock_id IN ?", dockIDs).Order("dock_id, slot_no").Find(&data.Slots).Error; err != nil {
			return nil, err
		}
	}
	slotIDs := make([]int64, 0, len(data.Slots))
	held := make([]int64, 0, len(data.Slots))
	for _, s := range data.Slots {
		slotIDs = append(slotIDs, s.ID)
		if s.BatteryID != nil {
			held = append(held, *s.BatteryID)
		}
	}
	q := db.Where("station_id = ?", stationID)
	if len(held) > 0 {
		q = q.Or("id IN ?", held)
	}
	if len(slotIDs) > 0 {
		q = q.Or("slot_id IN ?", slotIDs)
	}
	if err := q.Order("id").Find(&data.Batteries).Error; err != nil {
		return nil, err
	}
	return data, nil
}

// ---------- 库存变更 ----------

// RemoveBattery 取出电池：先条件更新电池一侧，再释放其所在仓位，两侧在同一调用内完成。
func (r *Repository) RemoveBattery(ctx context.Context, batteryID int64, from []coremodel.BatteryStatus, to coremodel.BatteryStatus) error {
	db := r.db.WithContext(ctx)

	q := db.Model(&models.Battery{}).Where("id = ?", batteryID)
	if len(from) > 0 {
		q = q.Where("status IN ?", toStrings(from))
	}
	res := q.Updates(map[string]interface{}{
		"status":     string(to),
		"slot_id":    nil,
		"station_id": nil,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return r.missingOrConflict(ctx, &models.Battery{}, batteryID)
	}

	return db.Model(&models.Slot{}).
		Where("battery_id = ?", batteryID).
		Updates(map[string]interface{}{
			"battery_id": nil,
			"status":     string(coremodel.SlotEmpty),
		}).Error
}

// PlaceBattery 放入电池：脱离旧仓位，条件占用目标仓位，再回写电池的仓位、站点与状态。
func (r *Repository) PlaceBattery(ctx context.Context, batteryID, slotID int64, batteryStatus coremodel.BatteryStatus, slotStatus coremodel.SlotStatus) error {
	db := r.db.WithContext(ctx)

	slot, err := r.GetSlot(ctx, slotID)
	if err != nil {
		return err
	}
	dock, err := r.GetDock(ctx, slot.DockID)
	if err != nil {
		return err
	}

	if err := db.Model(&models.Slot{}).
		Where("battery_id = ? AND id <> ?", batteryID, slotID).
		Updates(map[string]interface{}{
			"battery_id": nil,
			"status":     string(coremodel.SlotEmpty),
		}).Error; err != nil {
		return err
	}

	res := db.Model(&models.Slot{}).
		Where("id = ? AND active = ?", slotID, true).
		Where("battery_id IS NULL OR battery_id = ?", batteryID).
		Updates(map[string]interface{}{
			"battery_id": batteryID,
			"status":     string(slotStatus),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return storage.ErrClaimConflict
	}

	res = db.Model(&models.Battery{}).
		Where("id = ?", batteryID).
		Updates(map[string]interface{}{
			"slot_id":    slotID,
			"station_id": dock.StationID,
			"status":     string(batteryStatus),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// missingOrConflict 条件更新未命中时区分记录不存在与状态冲突
func (r *Repository) missingOrConflict(ctx context.Context, model interface{}, id int64) error {
	var n int64
	if err := r.db.WithContext(ctx).Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return storage.ErrClaimConflict
}

// ---------- 预约 ----------

func (r *Repository) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	return take[models.Booking](r.db.WithContext(ctx).Where("id = ?", id))
}

// LockBooking 行锁读取预约，串行化同一预约上的完成判定。
func (r *Repository) LockBooking(ctx context.Context, id int64) (*models.Booking, error) {
	return take[models.Booking](r.db.WithContext(ctx).Clauses(forUpdate).Where("id = ?", id))
}

// UpdateBookingStatus 条件迁移预约状态。
func (r *Repository) UpdateBookingStatus(ctx context.Context, id int64, from []coremodel.BookingStatus, to coremodel.BookingStatus, upd storage.BookingUpdate) error {
	updates := map[string]interface{}{"status": string(to)}
	if upd.CancelReason != nil {
		updates["cancel_reason"] = *upd.CancelReason
	}
	if upd.CompletedAt != nil {
		updates["completed_at"] = *upd.CompletedAt
	}

	q := r.db.WithContext(ctx).Model(&models.Booking{}).Where("id = ?", id)
	if len(from) > 0 {
		q = q.Where("status IN ?", toStrings(from))
	}
	res := q.Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return r.missingOrConflict(ctx, &models.Booking{}, id)
	}
	return nil
}

// ---------- 换电记录 ----------

func (r *Repository) CreateSwap(ctx context.Context, swap *models.Swap) error {
	return r.db.WithContext(ctx).Create(swap).Error
}

func (r *Repository) GetSwap(ctx context.Context, id int64) (*models.Swap, error) {
	return take[models.Swap](r.db.WithContext(ctx).Where("id = ?", id))
}

// LockSwap 行锁读取换电记录，交互式取消与后台清扫在此串行。
func (r *Repository) LockSwap(ctx context.Context, id int64) (*models.Swap, error) {
	return take[models.Swap](r.db.WithContext(ctx).Clauses(forUpdate).Where("id = ?", id))
}

// UpdateSwapStatus 条件迁移换电记录状态。
func (r *Repository) UpdateSwapStatus(ctx context.Context, id int64, from []coremodel.SwapStatus, to coremodel.SwapStatus, description string) error {
	updates := map[string]interface{}{"status": string(to)}
	if description != "" {
		updates["description"] = description
	}
	q := r.db.WithContext(ctx).Model(&models.Swap{}).Where("id = ?", id)
	if len(from) > 0 {
		q = q.Where("status IN ?", toStrings(from))
	}
	res := q.Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return r.missingOrConflict(ctx, &models.Swap{}, id)
	}
	return nil
}

func (r *Repository) ListSwapsByBooking(ctx context.Context, bookingID int64) ([]models.Swap, error) {
	var swaps []models.Swap
	if err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("completed_at ASC, id ASC").
		Find(&swaps).Error; err != nil {
		return nil, err
	}
	return swaps, nil
}

func (r *Repository) CountSwapsByStatus(ctx context.Context, bookingID int64, status coremodel.SwapStatus) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&models.Swap{}).
		Where("booking_id = ? AND status = ?", bookingID, string(status)).
		Count(&n).Error
	return n, err
}

// ListStaleSwaps 列出停留在指定状态且早于 before 的换电记录（最旧优先）。
func (r *Repository) ListStaleSwaps(ctx context.Context, status coremodel.SwapStatus, before time.Time, limit int) ([]models.Swap, error) {
	var swaps []models.Swap
	q := r.db.WithContext(ctx).
		Where("status = ? AND completed_at < ?", string(status), before).
		Order("completed_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&swaps).Error; err != nil {
		return nil, err
	}
	return swaps, nil
}

// ---------- 人员 ----------

func (r *Repository) IsStaffAssigned(ctx context.Context, staffID, stationID int64) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&models.StaffAssignment{}).
		Where("staff_id = ? AND station_id = ? AND active = ?", staffID, stationID, true).
		Count(&n).Error
	return n > 0, err
}

// ---------- 运维导入 ----------

func (r *Repository) CreateStation(ctx context.Context, s *models.Station) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *Repository) CreateDock(ctx context.Context, d *models.Dock) error {
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *Repository) CreateSlot(ctx context.Context, s *models.Slot) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *Repository) CreateBattery(ctx context.Context, b *models.Battery) error {
	return r.db.WithContext(ctx).Create(b).Error
}

func (r *Repository) CreateBooking(ctx context.Context, b *models.Booking) error {
	return r.db.WithContext(ctx).Create(b).Error
}

func (r *Repository) AssignStaff(ctx context.Context, a *models.StaffAssignment) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "staff_id"}, {Name: "station_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"active"}),
		}).
		Create(a).Error
}
