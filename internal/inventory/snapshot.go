package inventory

import (
	"sort"

	"github.com/taoyao-code/swap-server/internal/storage"
	"github.com/taoyao-code/swap-server/internal/storage/models"
)

// Snapshot 库存快照：按 ID 建表，关系通过索引表达，不保存对象间的互相引用
type Snapshot struct {
	Stations  map[int64]models.Station
	Docks     map[int64]models.Dock
	Slots     map[int64]models.Slot
	Batteries map[int64]models.Battery

	docksByStation map[int64][]int64
	slotsByDock    map[int64][]int64
}

// NewSnapshot 由存储层原始数据构建快照
func NewSnapshot(data *storage.InventoryData) *Snapshot {
	s := &Snapshot{
		Stations:       make(map[int64]models.Station, len(data.Stations)),
		Docks:          make(map[int64]models.Dock, len(data.Docks)),
		Slots:          make(map[int64]models.Slot, len(data.Slots)),
		Batteries:      make(map[int64]models.Battery, len(data.Batteries)),
		docksByStation: make(map[int64][]int64),
		slotsByDock:    make(map[int64][]int64),
	}
	for _, st := range data.Stations {
		s.Stations[st.ID] = st
	}
	for _, d := range data.Docks {
		s.Docks[d.ID] = d
		s.docksByStation[d.StationID] = append(s.docksByStation[d.StationID], d.ID)
	}
	for _, sl := range data.Slots {
		s.Slots[sl.ID] = sl
		s.slotsByDock[sl.DockID] = append(s.slotsByDock[sl.DockID], sl.ID)
	}
	for _, b := range data.Batteries {
		s.Batteries[b.ID] = b
	}

	for stationID, ids := range s.docksByStation {
		sort.Slice(ids, func(i, j int) bool {
			a, b := s.Docks[ids[i]], s.Docks[ids[j]]
			if a.Name != b.Name {
				return a.Name < b.Name
			}
			return a.ID < b.ID
		})
		s.docksByStation[stationID] = ids
	}
	for dockID, ids := range s.slotsByDock {
		sort.Slice(ids, func(i, j int) bool { return s.Slots[ids[i]].SlotNo < s.Slots[ids[j]].SlotNo })
		s.slotsByDock[dockID] = ids
	}
	return s
}

// DocksOf 站点下的电池柜（按名称升序）
func (s *Snapshot) DocksOf(stationID int64) []int64 { return s.docksByStation[stationID] }

// SlotsOf 电池柜下的仓位（按仓位号升序）
func (s *Snapshot) SlotsOf(dockID int64) []int64 { return s.slotsByDock[dockID] }

// StationOfSlot 仓位所属站点
func (s *Snapshot) StationOfSlot(slotID int64) (int64, bool) {
	slot, ok := s.Slots[slotID]
	if !ok {
		return 0, false
	}
	dock, ok := s.Docks[slot.DockID]
	if !ok {
		return 0, false
	}
	return dock.StationID, true
}

// SlotCode 仓位展示编码
func (s *Snapshot) SlotCode(slotID int64) string {
	slot, ok := s.Slots[slotID]
	if !ok {
		return ""
	}
	return models.SlotCode(s.Docks[slot.DockID].Name, slot.SlotNo)
}
