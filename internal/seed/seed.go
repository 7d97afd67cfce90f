// Package seed 从 YAML 导入站点、电池柜、仓位、电池、人员指派与预约，
// 用于本地开发环境初始化与测试夹具。
package seed

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/taoyao-code/swap-server/internal/coremodel"
	"github.com/taoyao-code/swap-server/internal/storage"
	"github.com/taoyao-code/swap-server/internal/storage/models"
)

// File YAML 根结构
type File struct {
	Stations  []StationSpec `yaml:"stations"`
	Batteries []BatterySpec `yaml:"batteries"`
	Bookings  []BookingSpec `yaml:"bookings"`
}

type StationSpec struct {
	Name      string        `yaml:"name"`
	Address   string        `yaml:"address"`
	Latitude  float64       `yaml:"latitude"`
	Longitude float64       `yaml:"longitude"`
	Inactive  bool          `yaml:"inactive"`
	Docks     []DockSpec    `yaml:"docks"`
	Staff     []int64       `yaml:"staff"`
	Batteries []BatterySpec `yaml:"batteries"`
}

type DockSpec struct {
	Name          string  `yaml:"name"`
	Slots         int32   `yaml:"slots"`
	Inactive      bool    `yaml:"inactive"`
	InactiveSlots []int32 `yaml:"inactiveSlots"`
}

// BatterySpec 电池定义；Dock/Slot 为空表示不在站内（例如用户车上的 IN_USE 电池）
type BatterySpec struct {
	Serial   string `yaml:"serial"`
	Type     string `yaml:"type"`
	SoH      int32  `yaml:"soh"`
	Charge   int32  `yaml:"charge"`
	Status   string `yaml:"status"`
	Inactive bool   `yaml:"inactive"`
	Dock     string `yaml:"dock"`
	Slot     int32  `yaml:"slot"`
}

type BookingSpec struct {
	Ref         string    `yaml:"ref"`
	Station     string    `yaml:"station"`
	Customer    int64     `yaml:"customer"`
	Vehicle     int64     `yaml:"vehicle"`
	ScheduledAt time.Time `yaml:"scheduledAt"`
	TimeSlot    string    `yaml:"timeSlot"`
	BatteryType string    `yaml:"batteryType"`
	Count       int32     `yaml:"count"`
	Status      string    `yaml:"status"`
	AmountCent  int64     `yaml:"amountCent"`
}

// Fixture 导入后名称到 ID 的映射
type Fixture struct {
	Stations  map[string]int64 // 站点名
	Docks     map[string]int64 // 站点名/dock 名
	Slots     map[string]int64 // 站点名/dock 名/仓位号
	Batteries map[string]int64 // 电池序列号
	Bookings  map[string]int64 // 预约引用名
}

func newFixture() *Fixture {
	return &Fixture{
		Stations:  map[string]int64{},
		Docks:     map[string]int64{},
		Slots:     map[string]int64{},
		Batteries: map[string]int64{},
		Bookings:  map[string]int64{},
	}
}

// SlotKey 仓位映射键
func SlotKey(station, dock string, slotNo int32) string {
	return fmt.Sprintf("%s/%s/%d", station, dock, slotNo)
}

// Parse 解析 YAML
func Parse(r io.Reader) (*File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	return &f, nil
}

// LoadFile 读取并导入 YAML 文件
func LoadFile(ctx context.Context, repo storage.SwapRepo, path string) (*Fixture, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	f, err := Parse(fh)
	if err != nil {
		return nil, err
	}
	return Apply(ctx, repo, f)
}

// Apply 在单个事务中导入全部记录
func Apply(ctx context.Context, repo storage.SwapRepo, f *File) (*Fixture, error) {
	fx := newFixture()
	err := repo.WithTx(ctx, func(tx storage.SwapRepo) error {
		for _, st := range f.Stations {
			if err := applyStation(ctx, tx, fx, st); err != nil {
				return err
			}
		}
		for _, b := range f.Batteries {
			if b.Dock != "" {
				return fmt.Errorf("seed: battery %s declares a dock outside a station", b.Serial)
			}
			if _, err := createBattery(ctx, tx, fx, b); err != nil {
				return err
			}
		}
		for _, bk := range f.Bookings {
			if err := applyBooking(ctx, tx, fx, bk); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return fx, nil
}

func applyStation(ctx context.Context, repo storage.SwapRepo, fx *Fixture, st StationSpec) error {
	station := &models.Station{
		Name:      st.Name,
		Address:   st.Address,
		Latitude:  st.Latitude,
		Longitude: st.Longitude,
		Active:    !st.Inactive,
	}
	if err := repo.CreateStation(ctx, station); err != nil {
		return fmt.Errorf("seed station %s: %w", st.Name, err)
	}
	fx.Stations[st.Name] = station.ID

	for _, d := range st.Docks {
		dock := &models.Dock{StationID: station.ID, Name: d.Name, Active: !d.Inactive}
		if err := repo.CreateDock(ctx, dock); err != nil {
			return fmt.Errorf("seed dock %s/%s: %w", st.Name, d.Name, err)
		}
		fx.Docks[st.Name+"/"+d.Name] = dock.ID

		inactive := make(map[int32]bool, len(d.InactiveSlots))
		for _, n := range d.InactiveSlots {
			inactive[n] = true
		}
		for n := int32(1); n <= d.Slots; n++ {
			slot := &models.Slot{
				DockID: dock.ID,
				SlotNo: n,
				Status: string(coremodel.SlotEmpty),
				Active: !inactive[n],
			}
			if err := repo.CreateSlot(ctx, slot); err != nil {
				return fmt.Errorf("seed slot %s: %w", SlotKey(st.Name, d.Name, n), err)
			}
			fx.Slots[SlotKey(st.Name, d.Name, n)] = slot.ID
		}
	}

	for _, staffID := range st.Staff {
		if err := repo.AssignStaff(ctx, &models.StaffAssignment{StaffID: staffID, StationID: station.ID, Active: true}); err != nil {
			return fmt.Errorf("seed staff %d: %w", staffID, err)
		}
	}

	for _, b := range st.Batteries {
		battery, err := createBattery(ctx, repo, fx, b)
		if err != nil {
			return err
		}
		if b.Dock == "" {
			continue
		}
		slotID, ok := fx.Slots[SlotKey(st.Name, b.Dock, b.Slot)]
		if !ok {
			return fmt.Errorf("seed: battery %s references unknown slot %s", b.Serial, SlotKey(st.Name, b.Dock, b.Slot))
		}
		slotStatus := coremodel.SlotOccupied
		if coremodel.BatteryStatus(battery.Status) == coremodel.BatteryMaintenance {
			slotStatus = coremodel.SlotReserved
		}
		if err := repo.PlaceBattery(ctx, battery.ID, slotID, coremodel.BatteryStatus(battery.Status), slotStatus); err != nil {
			return fmt.Errorf("seed place %s: %w", b.Serial, err)
		}
	}
	return nil
}

func createBattery(ctx context.Context, repo storage.SwapRepo, fx *Fixture, b BatterySpec) (*models.Battery, error) {
	status := coremodel.BatteryStatus(b.Status)
	if status == "" {
		status = coremodel.BatteryAvailable
		if b.Dock == "" {
			status = coremodel.BatteryInUse
		}
	}
	if !status.Valid() {
		return nil, fmt.Errorf("seed: battery %s has unknown status %q", b.Serial, b.Status)
	}
	charge := b.Charge
	if charge == 0 {
		charge = 100
	}
	battery := &models.Battery{
		Serial:      b.Serial,
		Status:      string(status),
		Type:        b.Type,
		SoH:         b.SoH,
		ChargeLevel: charge,
		Active:      !b.Inactive,
	}
	if err := repo.CreateBattery(ctx, battery); err != nil {
		return nil, fmt.Errorf("seed battery %s: %w", b.Serial, err)
	}
	fx.Batteries[b.Serial] = battery.ID
	return battery, nil
}

func applyBooking(ctx context.Context, repo storage.SwapRepo, fx *Fixture, bk BookingSpec) error {
	stationID, ok := fx.Stations[bk.Station]
	if !ok {
		return fmt.Errorf("seed: booking %s references unknown station %s", bk.Ref, bk.Station)
	}
	status := bk.Status
	if status == "" {
		status = string(coremodel.BookingPendingSwapping)
	}
	count := bk.Count
	if count == 0 {
		count = 1
	}
	booking := &models.Booking{
		CustomerID:   bk.Customer,
		StationID:    stationID,
		VehicleID:    bk.Vehicle,
		ScheduledAt:  bk.ScheduledAt.UTC(),
		TimeSlot:     bk.TimeSlot,
		BatteryCount: count,
		Status:       status,
		AmountCent:   bk.AmountCent,
	}
	if bk.BatteryType != "" {
		t := bk.BatteryType
		booking.BatteryType = &t
	}
	if err := repo.CreateBooking(ctx, booking); err != nil {
		return fmt.Errorf("seed booking %s: %w", bk.Ref, err)
	}
	fx.Bookings[bk.Ref] = booking.ID
	return nil
}
