package inventory

import (
	"github.com/taoyao-code/swap-server/internal/coremodel"
)

// BatteryView 仓位内电池摘要
type BatteryView struct {
	ID          int64                `json:"id"`
	Serial      string               `json:"serial"`
	Type        string               `json:"type"`
	Status      coremodel.StatusInfo `json:"status"`
	SoH         int32                `json:"soh"`
	ChargeLevel int32                `json:"charge_level"`
}

// SlotView 仓位视图
type SlotView struct {
	ID      int64                `json:"id"`
	Code    string               `json:"code"`
	SlotNo  int32                `json:"slot_no"`
	Active  bool                 `json:"active"`
	Status  coremodel.StatusInfo `json:"status"`
	Battery *BatteryView         `json:"battery,omitempty"`
}

// DockView 电池柜视图
type DockView struct {
	ID     int64      `json:"id"`
	Name   string     `json:"name"`
	Active bool       `json:"active"`
	Slots  []SlotView `json:"slots"`
}

// StationView 站点库存视图
type StationView struct {
	ID        int64          `json:"id"`
	Name      string         `json:"name"`
	Address   string         `json:"address"`
	Active    bool           `json:"active"`
	Available map[string]int `json:"available_by_type"`
	Docks     []DockView     `json:"docks"`
}

// BuildStationView 生成站点库存视图，站点不存在时返回 false
func BuildStationView(s *Snapshot, stationID int64) (*StationView, bool) {
	st, ok := s.Stations[stationID]
	if !ok {
		return nil, false
	}
	view := &StationView{
		ID:        st.ID,
		Name:      st.Name,
		Address:   st.Address,
		Active:    st.Active,
		Available: map[string]int{},
		Docks:     []DockView{},
	}
	for _, dockID := range s.DocksOf(stationID) {
		dock := s.Docks[dockID]
		dv := DockView{ID: dock.ID, Name: dock.Name, Active: dock.Active, Slots: []SlotView{}}
		for _, slotID := range s.SlotsOf(dockID) {
			slot := s.Slots[slotID]
			sv := SlotView{
				ID:     slot.ID,
				Code:   s.SlotCode(slotID),
				SlotNo: slot.SlotNo,
				Active: slot.Active,
				Status: coremodel.SlotStatus(slot.Status).Info(),
			}
			if slot.BatteryID != nil {
				if b, ok := s.Batteries[*slot.BatteryID]; ok {
					sv.Battery = &BatteryView{
						ID:          b.ID,
						Serial:      b.Serial,
						Type:        b.Type,
						Status:      coremodel.BatteryStatus(b.Status).Info(),
						SoH:         b.SoH,
						ChargeLevel: b.ChargeLevel,
					}
					if b.Active && coremodel.BatteryStatus(b.Status) == coremodel.BatteryAvailable {
						view.Available[b.Type]++
					}
				}
			}
			dv.Slots = append(dv.Slots, sv)
		}
		view.Docks = append(view.Docks, dv)
	}
	return view, true
}
