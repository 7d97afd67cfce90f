package coremodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBatteryStatus_Stationed(t *testing.T) {
	assert.True(t, BatteryAvailable.Stationed())
	assert.True(t, BatteryCharging.Stationed())
	assert.False(t, BatteryInUse.Stationed())
	assert.False(t, BatteryMaintenance.Stationed())
}

func TestBookingStatus_Terminal(t *testing.T) {
	assert.False(t, BookingPendingPayment.Terminal())
	assert.False(t, BookingPendingSwapping.Terminal())
	assert.True(t, BookingCompleted.Terminal())
	assert.True(t, BookingCancelled.Terminal())
	assert.True(t, BookingFailed.Terminal())
}

func TestBatteryType_Valid(t *testing.T) {
	assert.True(t, BatteryTypeLFP.Valid())
	assert.False(t, BatteryType("").Valid())
	assert.False(t, BatteryType("SODIUM").Valid())
}

func TestStatusInfo(t *testing.T) {
	assert.Equal(t, "隔离", SlotReserved.Info().DisplayText)
	assert.Equal(t, "未知", SlotStatus("X").Info().DisplayText)
	assert.Equal(t, "维护", BatteryMaintenance.Info().DisplayText)
	assert.True(t, BatteryStatus("DAMAGED").Valid())
	assert.False(t, BatteryStatus("LOST").Valid())
}

func TestBookingAndSwapStatusInfo(t *testing.T) {
	assert.Equal(t, "待换电", BookingPendingSwapping.Info().DisplayText)
	assert.Equal(t, "待用户确认", SwapWaitingUserRetry.Info().DisplayText)
	assert.Equal(t, "UNKNOWN", SwapStatus("UNKNOWN").Info().Code)
}
