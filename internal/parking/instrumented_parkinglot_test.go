package parking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrumentedParkingLotIntegration(t *testing.T) {
	telemetry, reader := newTestTelemetry(t)
	clock := newFakeClock()

	ipl, err := NewInstrumentedParkingLot(NewParkingLot(3, WithClock(clock.Now)), telemetry)
	require.NoError(t, err)

	ctx := context.Background()

	allocations := ipl.ParkVehicles(ctx, []int{0, 1, 2, 9})
	require.Len(t, allocations, 4)
	assert.Equal(t, "SP1", allocations[0].Vehicle.Slot.String())
	assert.Equal(t, InvalidSize, allocations[3].Status)

	assert.Len(t, ipl.AllParked(ctx), 3)
	assert.Equal(t, int64(4), sumInt64(t, reader, "parking_operations_total", nil))
	assert.Equal(t, int64(3), sumInt64(t, reader, "parking_operations_total", map[string]string{"status": "assigned"}))
	assert.Equal(t, int64(1), sumInt64(t, reader, "parking_operations_total", map[string]string{"status": "invalid_size"}))
	assert.Equal(t, int64(3), sumInt64(t, reader, "parking_lot_occupancy", nil))

	clock.Advance(5 * time.Hour)

	quote, ok := ipl.Quote(ctx, NewSlotID(Large, 1))
	require.True(t, ok)
	assert.Equal(t, int64(240), quote.Fee)

	receipt, ok := ipl.Unpark(ctx, NewSlotID(Large, 1))
	require.True(t, ok)
	assert.Equal(t, int64(240), receipt.Fee)

	_, ok = ipl.Unpark(ctx, NewSlotID(Large, 1))
	assert.False(t, ok)

	assert.Equal(t, int64(240), sumInt64(t, reader, "parking_fees_total", nil))
	assert.Equal(t, int64(1), sumInt64(t, reader, "unpark_operations_total", map[string]string{"status": "success"}))
	assert.Equal(t, int64(1), sumInt64(t, reader, "unpark_operations_total", map[string]string{"status": "not_found"}))
	assert.Equal(t, int64(2), sumInt64(t, reader, "parking_lot_occupancy", nil))

	assert.Equal(t, 4, ipl.AddEntryPoint(ctx))
	assert.Equal(t, int64(4), sumInt64(t, reader, "parking_lot_entry_points", nil))

	ipl.Clear(ctx)
	assert.Empty(t, ipl.AllParked(ctx))
	assert.Equal(t, int64(0), sumInt64(t, reader, "parking_lot_occupancy", nil))
	assert.Equal(t, int64(0), sumInt64(t, reader, "parking_lot_occupancy", map[string]string{"slot_class": "small"}))

	for _, o := range ipl.Occupancy(ctx) {
		assert.Equal(t, 4, o.Available)
	}
}

func TestInstrumentedParkingLotSeedsGaugesFromExistingState(t *testing.T) {
	telemetry, reader := newTestTelemetry(t)

	base := NewParkingLot(3)
	base.ParkVehicles([]int{0, 0})

	_, err := NewInstrumentedParkingLot(base, telemetry)
	require.NoError(t, err)

	assert.Equal(t, int64(2), sumInt64(t, reader, "parking_lot_occupancy", map[string]string{"slot_class": "small"}))
	assert.Equal(t, int64(3), sumInt64(t, reader, "parking_lot_entry_points", nil))
}
