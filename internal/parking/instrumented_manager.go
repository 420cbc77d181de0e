package parking

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/MihisaraJayasinghe/vehicleParkSystem/internal/logging"
)

type InstrumentedManager struct {
	*Manager
	tracer trace.Tracer

	// Metrics
	transitions       metric.Int64Counter
	operationDuration metric.Float64Histogram
	feesBilled        metric.Float64Counter
	autoParkAttempts  metric.Int64Counter
}

func NewInstrumentedManager(manager *Manager, tracer trace.Tracer, meter metric.Meter) (*InstrumentedManager, error) {
	transitions, err := meter.Int64Counter("slot_transitions_total",
		metric.WithDescription("Total number of slot lifecycle operations"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	operationDuration, err := meter.Float64Histogram("operation_duration_seconds",
		metric.WithDescription("Duration of slot lifecycle operations"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	feesBilled, err := meter.Float64Counter("parking_fees_total",
		metric.WithDescription("Sum of fees billed when clearing slots"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	autoParkAttempts, err := meter.Int64Counter("auto_park_attempts_total",
		metric.WithDescription("Auto-park attempts by outcome"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	return &InstrumentedManager{
		Manager:           manager,
		tracer:            tracer,
		transitions:       transitions,
		operationDuration: operationDuration,
		feesBilled:        feesBilled,
		autoParkAttempts:  autoParkAttempts,
	}, nil
}

func (im *InstrumentedManager) record(ctx context.Context, span trace.Span, operation string, start time.Time, err error) {
	labels := []attribute.KeyValue{
		attribute.String("operation", operation),
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		labels = append(labels, attribute.String("status", "failed"))
	} else {
		labels = append(labels, attribute.String("status", "success"))
	}

	im.transitions.Add(ctx, 1, metric.WithAttributes(labels...))
	im.operationDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(labels...))
}

func (im *InstrumentedManager) InitPool(ctx context.Context, count int) (int, error) {
	ctx, span := im.tracer.Start(ctx, "slots.init_pool",
		trace.WithAttributes(attribute.Int("pool.requested", count)))
	defer span.End()

	start := time.Now()
	created, err := im.Manager.InitPool(ctx, count)
	im.record(ctx, span, "init_pool", start, err)

	if err == nil {
		span.SetAttributes(attribute.Int("pool.created", created))
		if created > 0 {
			logging.Info(ctx, "slot pool initialized", "slots", created)
		}
	}
	return created, err
}

func (im *InstrumentedManager) Book(ctx context.Context, slotID int, plate, category string) (Slot, error) {
	ctx, span := im.tracer.Start(ctx, "slots.book",
		trace.WithAttributes(
			attribute.Int("slot.id", slotID),
			attribute.String("vehicle.plate", NormalizePlate(plate)),
			attribute.String("slot.category", category),
		))
	defer span.End()

	start := time.Now()
	span.AddEvent("checking_category_policy")

	slot, err := im.Manager.Book(ctx, slotID, plate, category)
	im.record(ctx, span, "book", start, err)

	if err == nil {
		span.AddEvent("slot_booked")
		logging.Info(ctx, "slot booked", "slot_id", slot.ID, "plate", slot.Plate)
	}
	return slot, err
}

func (im *InstrumentedManager) Park(ctx context.Context, slotID int, plate string) (Slot, error) {
	ctx, span := im.tracer.Start(ctx, "slots.park",
		trace.WithAttributes(
			attribute.Int("slot.id", slotID),
			attribute.String("vehicle.plate", NormalizePlate(plate)),
		))
	defer span.End()

	start := time.Now()
	slot, err := im.Manager.Park(ctx, slotID, plate)
	im.record(ctx, span, "park", start, err)

	if err == nil {
		span.AddEvent("slot_parked")
		logging.Info(ctx, "slot parked", "slot_id", slot.ID, "plate", slot.Plate)
	}
	return slot, err
}

func (im *InstrumentedManager) Clear(ctx context.Context, slotID int, authorizingPlate string, ratePerHour float64) (FeeRecord, error) {
	ctx, span := im.tracer.Start(ctx, "slots.clear",
		trace.WithAttributes(
			attribute.Int("slot.id", slotID),
			attribute.Float64("fee.rate_per_hour", ratePerHour),
		))
	defer span.End()

	start := time.Now()
	record, err := im.Manager.Clear(ctx, slotID, authorizingPlate, ratePerHour)
	im.record(ctx, span, "clear", start, err)

	if err == nil {
		span.SetAttributes(
			attribute.Float64("fee.duration_hours", record.DurationHours),
			attribute.Float64("fee.amount", record.Fee),
		)
		span.AddEvent("slot_released")
		im.feesBilled.Add(ctx, record.Fee)
		logging.Info(ctx, "slot cleared", "slot_id", record.SlotID, "plate", record.Plate, "fee", record.Fee)
	}
	return record, err
}

func (im *InstrumentedManager) ListAll(ctx context.Context) ([]Slot, error) {
	ctx, span := im.tracer.Start(ctx, "slots.list_all")
	defer span.End()

	start := time.Now()
	slots, err := im.Manager.ListAll(ctx)
	im.record(ctx, span, "list_all", start, err)

	span.SetAttributes(attribute.Int("slots.count", len(slots)))
	return slots, err
}

func (im *InstrumentedManager) Occupancy(ctx context.Context) (Occupancy, error) {
	slots, err := im.ListAll(ctx)
	if err != nil {
		return Occupancy{}, err
	}
	return Summarize(slots), nil
}

func (im *InstrumentedManager) FindByPlate(ctx context.Context, plate string) ([]Slot, error) {
	ctx, span := im.tracer.Start(ctx, "slots.find_by_plate",
		trace.WithAttributes(attribute.String("vehicle.plate", NormalizePlate(plate))))
	defer span.End()

	start := time.Now()
	slots, err := im.Manager.FindByPlate(ctx, plate)
	im.record(ctx, span, "find_by_plate", start, err)

	if err == nil && len(slots) == 0 {
		span.AddEvent("vehicle_not_found")
	}
	return slots, err
}

func (im *InstrumentedManager) ParkedMatchingAllowlist(ctx context.Context, allowlist []string) ([]Slot, error) {
	ctx, span := im.tracer.Start(ctx, "slots.parked_matching_allowlist",
		trace.WithAttributes(attribute.Int("allowlist.size", len(allowlist))))
	defer span.End()

	start := time.Now()
	slots, err := im.Manager.ParkedMatchingAllowlist(ctx, allowlist)
	im.record(ctx, span, "parked_matching_allowlist", start, err)

	span.SetAttributes(attribute.Int("slots.matched", len(slots)))
	return slots, err
}

// InstrumentAutoParker wraps an AutoParker with a span and an outcome counter.
func (im *InstrumentedManager) InstrumentAutoParker(ap *AutoParker) *InstrumentedAutoParker {
	return &InstrumentedAutoParker{AutoParker: ap, im: im}
}

type InstrumentedAutoParker struct {
	*AutoParker
	im *InstrumentedManager
}

func (ia *InstrumentedAutoParker) AutoParkFromRecognition(ctx context.Context, recognizedPlate string) AutoParkResult {
	ctx, span := ia.im.tracer.Start(ctx, "slots.auto_park",
		trace.WithAttributes(attribute.String("recognition.plate", recognizedPlate)))
	defer span.End()

	result := ia.AutoParker.AutoParkFromRecognition(ctx, recognizedPlate)

	span.SetAttributes(
		attribute.String("auto_park.outcome", string(result.Outcome)),
		attribute.Bool("auto_park.parked", result.AutoParked),
	)
	if result.SlotID != 0 {
		span.SetAttributes(attribute.Int("slot.id", result.SlotID))
	}
	ia.im.autoParkAttempts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", string(result.Outcome)),
	))
	return result
}
