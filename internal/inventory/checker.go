package inventory

import (
	"fmt"
	"sort"
	"time"

	"github.com/taoyao-code/swap-server/internal/coremodel"
)

// ViolationKind 不一致类型
type ViolationKind string

const (
	// 仓位指向的电池不存在或电池未回指该仓位
	ViolationOrphanSlot ViolationKind = "orphan_slot"
	// 电池指向的仓位不存在或仓位未回指该电池
	ViolationUnsyncedBackRef ViolationKind = "unsynced_back_reference"
	// 电池记录的站点与所在仓位的站点不一致
	ViolationStationMismatch ViolationKind = "station_mismatch"
	// 仓位状态与是否持有电池不一致
	ViolationOccupancyMismatch ViolationKind = "occupancy_mismatch"
	// 同一电池被多个仓位持有
	ViolationDuplicatePlacement ViolationKind = "duplicate_placement"
	// IN_USE 电池仍有站点或仓位
	ViolationInUseStationed ViolationKind = "in_use_stationed"
	// AVAILABLE/CHARGING 电池缺少站点或仓位
	ViolationUnplaced ViolationKind = "unplaced_stationed_battery"
)

// Violation 单条不一致记录
type Violation struct {
	Kind      ViolationKind `json:"kind"`
	SlotID    int64         `json:"slot_id,omitempty"`
	BatteryID int64         `json:"battery_id,omitempty"`
	Detail    string        `json:"detail"`
}

// Report 巡检结果
type Report struct {
	CheckedAt  time.Time   `json:"checked_at"`
	Stations   int         `json:"stations"`
	Slots      int         `json:"slots"`
	Batteries  int         `json:"batteries"`
	Violations []Violation `json:"violations"`
}

// OK 无任何不一致
func (r *Report) OK() bool { return len(r.Violations) == 0 }

// CountByKind 按类型统计
func (r *Report) CountByKind() map[ViolationKind]int {
	out := make(map[ViolationKind]int)
	for _, v := range r.Violations {
		out[v.Kind]++
	}
	return out
}

// AllViolationKinds 全部不一致类型（用于指标清零）
func AllViolationKinds() []ViolationKind {
	return []ViolationKind{
		ViolationOrphanSlot, ViolationUnsyncedBackRef, ViolationStationMismatch,
		ViolationOccupancyMismatch, ViolationDuplicatePlacement, ViolationInUseStationed,
		ViolationUnplaced,
	}
}

// Check 只读检查快照中的库存不变量
func Check(s *Snapshot, at time.Time) *Report {
	rep := &Report{
		CheckedAt:  at,
		Stations:   len(s.Stations),
		Slots:      len(s.Slots),
		Batteries:  len(s.Batteries),
		Violations: []Violation{},
	}
	add := func(v Violation) { rep.Violations = append(rep.Violations, v) }

	holders := make(map[int64][]int64)
	for _, slotID := range sortedKeys(s.Slots) {
		slot := s.Slots[slotID]
		occupied := slot.BatteryID != nil
		status := coremodel.SlotStatus(slot.Status)

		switch {
		case status == coremodel.SlotEmpty && occupied:
			add(Violation{Kind: ViolationOccupancyMismatch, SlotID: slotID, BatteryID: *slot.BatteryID,
				Detail: fmt.Sprintf("slot %s is EMPTY but holds battery %d", s.SlotCode(slotID), *slot.BatteryID)})
		case status == coremodel.SlotOccupied && !occupied:
			add(Violation{Kind: ViolationOccupancyMismatch, SlotID: slotID,
				Detail: fmt.Sprintf("slot %s is OCCUPIED but holds no battery", s.SlotCode(slotID))})
		case status == coremodel.SlotReserved && !occupied:
			add(Violation{Kind: ViolationOccupancyMismatch, SlotID: slotID,
				Detail: fmt.Sprintf("slot %s is RESERVED but holds no battery", s.SlotCode(slotID))})
		}
		if !occupied {
			continue
		}

		batteryID := *slot.BatteryID
		holders[batteryID] = append(holders[batteryID], slotID)
		b, ok := s.Batteries[batteryID]
		if !ok {
			add(Violation{Kind: ViolationOrphanSlot, SlotID: slotID, BatteryID: batteryID,
				Detail: fmt.Sprintf("slot %s references missing battery %d", s.SlotCode(slotID), batteryID)})
			continue
		}
		if b.SlotID == nil || *b.SlotID != slotID {
			add(Violation{Kind: ViolationOrphanSlot, SlotID: slotID, BatteryID: batteryID,
				Detail: fmt.Sprintf("slot %s holds battery %s which does not point back", s.SlotCode(slotID), b.Serial)})
		}
	}

	for _, batteryID := range sortedKeys(holders) {
		if slots := holders[batteryID]; len(slots) > 1 {
			add(Violation{Kind: ViolationDuplicatePlacement, BatteryID: batteryID,
				Detail: fmt.Sprintf("battery %d held by %d slots", batteryID, len(slots))})
		}
	}

	for _, batteryID := range sortedKeys(s.Batteries) {
		b := s.Batteries[batteryID]
		status := coremodel.BatteryStatus(b.Status)

		if status == coremodel.BatteryInUse && (b.SlotID != nil || b.StationID != nil) {
			add(Violation{Kind: ViolationInUseStationed, BatteryID: batteryID,
				Detail: fmt.Sprintf("battery %s is IN_USE but still references a station or slot", b.Serial)})
		}
		if status.Stationed() && (b.SlotID == nil || b.StationID == nil) {
			add(Violation{Kind: ViolationUnplaced, BatteryID: batteryID,
				Detail: fmt.Sprintf("battery %s is %s without station or slot", b.Serial, b.Status)})
		}
		if b.SlotID == nil {
			continue
		}

		slotID := *b.SlotID
		slot, ok := s.Slots[slotID]
		if !ok || slot.BatteryID == nil || *slot.BatteryID != batteryID {
			add(Violation{Kind: ViolationUnsyncedBackRef, SlotID: slotID, BatteryID: batteryID,
				Detail: fmt.Sprintf("battery %s points to slot %d which does not hold it", b.Serial, slotID)})
			continue
		}
		if stationID, ok := s.StationOfSlot(slotID); ok && (b.StationID == nil || *b.StationID != stationID) {
			add(Violation{Kind: ViolationStationMismatch, SlotID: slotID, BatteryID: batteryID,
				Detail: fmt.Sprintf("battery %s station differs from slot %s station %d", b.Serial, s.SlotCode(slotID), stationID)})
		}
	}
	return rep
}

func sortedKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
