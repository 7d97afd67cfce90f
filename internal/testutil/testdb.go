// Package testutil 提供基于内存 SQLite 的仓储与库存夹具，供各包测试复用。
package testutil

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/taoyao-code/swap-server/internal/seed"
	"github.com/taoyao-code/swap-server/internal/storage/gormrepo"
)

// NewRepo 打开独立的内存 SQLite 数据库并完成建表
func NewRepo(t testing.TB) (*gormrepo.Repository, *gorm.DB) {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gormrepo.OpenSQLite(dsn, nil, true)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return gormrepo.New(db), db
}

// Seed 导入 YAML 夹具
func Seed(t testing.TB, repo *gormrepo.Repository, doc string) *seed.Fixture {
	t.Helper()
	f, err := seed.Parse(strings.NewReader(doc))
	require.NoError(t, err)
	fx, err := seed.Apply(context.Background(), repo, f)
	require.NoError(t, err)
	return fx
}

// StandardInventory 标准测试库存：
//   - Central 站：A 柜 4 仓（A-1/A-2 放 LFP 满电，A-3/A-4 空），B 柜 2 仓（B-1 放 NMC，B-2 空）
//   - North 站：N 柜 1 仓，无电池
//   - 用户车上电池：IN-1/IN-4 LFP 健康，IN-2 LFP 健康度 65，IN-3 NMC，MT-1 维护中
const StandardInventory = `
stations:
  - name: Central
    address: 1 Main St
    latitude: 31.23
    longitude: 121.47
    staff: [101]
    docks:
      - name: A
        slots: 4
      - name: B
        slots: 2
    batteries:
      - {serial: CH-A2, type: LFP, soh: 92, dock: A, slot: 2}
      - {serial: CH-A1, type: LFP, soh: 95, dock: A, slot: 1}
      - {serial: CH-B1, type: NMC, soh: 90, dock: B, slot: 1}
  - name: North
    staff: [201]
    docks:
      - name: N
        slots: 1
batteries:
  - {serial: IN-1, type: LFP, soh: 88}
  - {serial: IN-2, type: LFP, soh: 65}
  - {serial: IN-3, type: NMC, soh: 80}
  - {serial: IN-4, type: LFP, soh: 85}
  - {serial: MT-1, type: LFP, soh: 50, status: MAINTENANCE}
bookings:
  - {ref: single, station: Central, customer: 1, vehicle: 11, scheduledAt: 2025-06-01T10:00:00Z, timeSlot: "10:00-11:00", batteryType: LFP, count: 1, amountCent: 1500}
  - {ref: double, station: Central, customer: 2, vehicle: 12, scheduledAt: 2025-06-01T10:00:00Z, timeSlot: "10:00-11:00", batteryType: LFP, count: 2, amountCent: 3000}
  - {ref: untyped, station: Central, customer: 3, vehicle: 13, scheduledAt: 2025-06-01T10:00:00Z, timeSlot: "10:00-11:00", count: 1, amountCent: 1500}
  - {ref: unpaid, station: Central, customer: 4, vehicle: 14, scheduledAt: 2025-06-01T10:00:00Z, timeSlot: "10:00-11:00", batteryType: LFP, count: 1, status: PENDING_PAYMENT, amountCent: 1500}
  - {ref: north, station: North, customer: 5, vehicle: 15, scheduledAt: 2025-06-01T10:00:00Z, timeSlot: "10:00-11:00", batteryType: LFP, count: 1, amountCent: 1500}
`
