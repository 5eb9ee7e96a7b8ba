package parking

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"parking-allocator/internal/logging"
)

// InstrumentedParkingLot traces and meters every ParkingLot operation.
type InstrumentedParkingLot struct {
	*ParkingLot
	telemetry *TelemetryProvider

	// Metrics
	parkingOperations metric.Int64Counter
	unparkOperations  metric.Int64Counter
	feesCollected     metric.Int64Counter
	stayHours         metric.Int64Histogram
	occupancyGauge    metric.Int64UpDownCounter
	entryPointsGauge  metric.Int64UpDownCounter
	operationDuration metric.Float64Histogram
}

func NewInstrumentedParkingLot(lot *ParkingLot, telemetry *TelemetryProvider) (*InstrumentedParkingLot, error) {
	meter := telemetry.Meter()

	parkingOperations, err := meter.Int64Counter("parking_operations_total",
		metric.WithDescription("Total number of vehicles submitted for parking"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	unparkOperations, err := meter.Int64Counter("unpark_operations_total",
		metric.WithDescription("Total number of unpark requests"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	feesCollected, err := meter.Int64Counter("parking_fees_total",
		metric.WithDescription("Sum of parking fees charged"),
		metric.WithUnit("{peso}"))
	if err != nil {
		return nil, err
	}

	stayHours, err := meter.Int64Histogram("parking_stay_hours",
		metric.WithDescription("Billed hours per completed stay"),
		metric.WithUnit("h"),
		metric.WithExplicitBucketBoundaries(1, 3, 6, 12, 24, 48, 96))
	if err != nil {
		return nil, err
	}

	occupancyGauge, err := meter.Int64UpDownCounter("parking_lot_occupancy",
		metric.WithDescription("Current number of occupied parking slots"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	entryPointsGauge, err := meter.Int64UpDownCounter("parking_lot_entry_points",
		metric.WithDescription("Number of slots per capacity class"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	operationDuration, err := meter.Float64Histogram("operation_duration_seconds",
		metric.WithDescription("Duration of parking lot operations"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	ipl := &InstrumentedParkingLot{
		ParkingLot:        lot,
		telemetry:         telemetry,
		parkingOperations: parkingOperations,
		unparkOperations:  unparkOperations,
		feesCollected:     feesCollected,
		stayHours:         stayHours,
		occupancyGauge:    occupancyGauge,
		entryPointsGauge:  entryPointsGauge,
		operationDuration: operationDuration,
	}

	ctx := context.Background()
	entryPointsGauge.Add(ctx, int64(lot.EntryPoints()))
	for _, vehicle := range lot.AllParked() {
		occupancyGauge.Add(ctx, 1, metric.WithAttributes(attribute.String("slot_class", vehicle.Slot.Class.String())))
	}

	return ipl, nil
}

func (ipl *InstrumentedParkingLot) AddEntryPoint(ctx context.Context) int {
	ctx, span := ipl.telemetry.Tracer().Start(ctx, "parking_lot.add_entry_point")
	defer span.End()

	start := time.Now()
	entryPoints := ipl.ParkingLot.AddEntryPoint()

	span.SetAttributes(attribute.Int("parking_lot.entry_points", entryPoints))
	ipl.entryPointsGauge.Add(ctx, 1)
	ipl.recordDuration(ctx, "add_entry_point", "success", start)

	logging.Info(ctx).Int("entry_points", entryPoints).Msg("entry point added")
	return entryPoints
}

func (ipl *InstrumentedParkingLot) ParkVehicles(ctx context.Context, codes []int) []Allocation {
	ctx, span := ipl.telemetry.Tracer().Start(ctx, "parking_lot.park_vehicles",
		trace.WithAttributes(
			attribute.IntSlice("vehicle.sizes", codes),
			attribute.Int("batch.size", len(codes)),
		))
	defer span.End()

	start := time.Now()

	span.AddEvent("allocating_slots")
	allocations := ipl.ParkingLot.ParkVehicles(codes)

	assigned := 0
	for i, allocation := range allocations {
		labels := []attribute.KeyValue{
			attribute.String("operation", "park"),
			attribute.String("status", allocation.Status.String()),
		}

		switch allocation.Status {
		case Assigned:
			assigned++
			vehicle := allocation.Vehicle
			labels = append(labels,
				attribute.String("vehicle_size", vehicle.Size.String()),
				attribute.String("slot_class", vehicle.Slot.Class.String()),
			)
			span.AddEvent("slot_allocated", trace.WithAttributes(
				attribute.Int("vehicle.index", i),
				attribute.String("slot", vehicle.Slot.String()),
			))
			ipl.occupancyGauge.Add(ctx, 1, metric.WithAttributes(attribute.String("slot_class", vehicle.Slot.Class.String())))
		case NoSlotAvailable:
			labels = append(labels, attribute.String("vehicle_size", Size(allocation.Code).String()))
			span.AddEvent("no_slot_available", trace.WithAttributes(
				attribute.Int("vehicle.index", i),
				attribute.Int("vehicle.size", allocation.Code),
			))
		case InvalidSize:
			span.AddEvent("invalid_vehicle_size", trace.WithAttributes(
				attribute.Int("vehicle.index", i),
				attribute.Int("vehicle.size", allocation.Code),
			))
			logging.Warn(ctx).Int("index", i).Int("size", allocation.Code).Msg("invalid vehicle size skipped")
		}

		ipl.parkingOperations.Add(ctx, 1, metric.WithAttributes(labels...))
	}

	span.SetAttributes(
		attribute.Int("batch.assigned", assigned),
		attribute.Int("batch.unassigned", len(allocations)-assigned),
	)
	ipl.recordDuration(ctx, "park", "success", start)

	logging.Info(ctx).
		Int("requested", len(codes)).
		Int("assigned", assigned).
		Msg("park batch processed")

	return allocations
}

func (ipl *InstrumentedParkingLot) Unpark(ctx context.Context, slot SlotID) (Receipt, bool) {
	ctx, span := ipl.telemetry.Tracer().Start(ctx, "parking_lot.unpark",
		trace.WithAttributes(
			attribute.String("slot", slot.String()),
		))
	defer span.End()

	start := time.Now()

	span.AddEvent("releasing_slot")
	receipt, ok := ipl.ParkingLot.Unpark(slot)

	labels := []attribute.KeyValue{
		attribute.String("slot_class", slot.Class.String()),
	}

	if !ok {
		span.AddEvent("slot_not_occupied")
		labels = append(labels, attribute.String("status", "not_found"))
		ipl.unparkOperations.Add(ctx, 1, metric.WithAttributes(labels...))
		ipl.recordDuration(ctx, "unpark", "not_found", start)

		logging.Info(ctx).Str("slot", slot.String()).Msg("unpark of empty slot")
		return receipt, false
	}

	span.SetAttributes(
		attribute.String("vehicle.type", receipt.Vehicle.Size.VehicleType()),
		attribute.Int64("stay.hours", receipt.Hours),
		attribute.Int64("fee", receipt.Fee),
	)
	span.AddEvent("slot_released")

	labels = append(labels, attribute.String("status", "success"))
	ipl.unparkOperations.Add(ctx, 1, metric.WithAttributes(labels...))
	ipl.feesCollected.Add(ctx, receipt.Fee, metric.WithAttributes(labels[0]))
	ipl.stayHours.Record(ctx, receipt.Hours, metric.WithAttributes(labels[0]))
	ipl.occupancyGauge.Add(ctx, -1, metric.WithAttributes(labels[0]))
	ipl.recordDuration(ctx, "unpark", "success", start)

	logging.Info(ctx).
		Str("slot", slot.String()).
		Int64("hours", receipt.Hours).
		Int64("fee", receipt.Fee).
		Msg("vehicle unparked")

	return receipt, true
}

func (ipl *InstrumentedParkingLot) Quote(ctx context.Context, slot SlotID) (Receipt, bool) {
	ctx, span := ipl.telemetry.Tracer().Start(ctx, "parking_lot.quote",
		trace.WithAttributes(attribute.String("slot", slot.String())))
	defer span.End()

	start := time.Now()
	receipt, ok := ipl.ParkingLot.Quote(slot)

	status := "success"
	if !ok {
		status = "not_found"
		span.AddEvent("slot_not_occupied")
	} else {
		span.SetAttributes(attribute.Int64("fee", receipt.Fee))
	}
	ipl.recordDuration(ctx, "quote", status, start)

	return receipt, ok
}

func (ipl *InstrumentedParkingLot) AllParked(ctx context.Context) []ParkedVehicle {
	ctx, span := ipl.telemetry.Tracer().Start(ctx, "parking_lot.all_parked")
	defer span.End()

	start := time.Now()
	parked := ipl.ParkingLot.AllParked()

	span.SetAttributes(attribute.Int("occupied_slots_count", len(parked)))
	ipl.recordDuration(ctx, "all_parked", "success", start)

	return parked
}

func (ipl *InstrumentedParkingLot) Occupancy(ctx context.Context) []ClassOccupancy {
	ctx, span := ipl.telemetry.Tracer().Start(ctx, "parking_lot.occupancy")
	defer span.End()

	start := time.Now()
	occupancy := ipl.ParkingLot.Occupancy()
	ipl.recordDuration(ctx, "occupancy", "success", start)

	return occupancy
}

func (ipl *InstrumentedParkingLot) Clear(ctx context.Context) {
	ctx, span := ipl.telemetry.Tracer().Start(ctx, "parking_lot.clear")
	defer span.End()

	start := time.Now()

	removed := ipl.ParkingLot.drain()
	for _, vehicle := range removed {
		ipl.occupancyGauge.Add(ctx, -1, metric.WithAttributes(attribute.String("slot_class", vehicle.Slot.Class.String())))
	}

	span.SetAttributes(attribute.Int("removed_vehicles", len(removed)))
	span.AddEvent("lot_cleared")
	ipl.recordDuration(ctx, "clear", "success", start)

	logging.Info(ctx).Int("removed", len(removed)).Msg("parking lot cleared")
}

func (ipl *InstrumentedParkingLot) recordDuration(ctx context.Context, operation, status string, start time.Time) {
	ipl.operationDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("status", status),
	))
}
