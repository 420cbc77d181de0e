package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.opentelemetry.io/otel/trace"

	"github.com/MihisaraJayasinghe/vehicleParkSystem/internal/employees"
	"github.com/MihisaraJayasinghe/vehicleParkSystem/internal/parking"
	"github.com/MihisaraJayasinghe/vehicleParkSystem/internal/recognition"
)

type Meta struct {
	TraceID   string `json:"trace_id,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
	Meta    *Meta  `json:"meta,omitempty"`
}

type InitPoolRequest struct {
	Count int `json:"count"`
}

type InitPoolResponse struct {
	Created int `json:"created"`
}

type BookRequest struct {
	SlotID   int    `json:"slot_id"`
	Plate    string `json:"vehicle_plate"`
	Category string `json:"category"`
}

type ParkRequest struct {
	SlotID int    `json:"slot_id"`
	Plate  string `json:"vehicle_plate"`
}

type ClearRequest struct {
	SlotID      int     `json:"slot_id"`
	Plate       string  `json:"vehicle_plate"`
	RatePerHour float64 `json:"rate_per_hour"`
}

type AutoParkRequest struct {
	Plate string `json:"plate"`
}

type EmployeeRequest struct {
	Plate string `json:"plate_number"`
}

type SlotsResponse struct {
	Summary parking.Occupancy `json:"summary"`
	Slots   []parking.Slot    `json:"slots"`
}

type RecognizeResponse struct {
	VehicleTypes   []string               `json:"vehicle_types"`
	Plates         []string               `json:"recognized_plates"`
	AnnotatedImage string                 `json:"annotated_image,omitempty"`
	AutoPark       parking.AutoParkResult `json:"auto_park"`
}

func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func extractMeta(ctx context.Context) *Meta {
	meta := &Meta{}

	span := trace.SpanFromContext(ctx)
	if span.SpanContext().HasTraceID() {
		meta.TraceID = span.SpanContext().TraceID().String()
	}

	if reqID, ok := ctx.Value(RequestIDKey).(string); ok {
		meta.RequestID = reqID
	}

	return meta
}

func WriteSuccess(ctx context.Context, w http.ResponseWriter, message string, data any) {
	WriteJSON(w, http.StatusOK, Response{
		Success: true,
		Message: message,
		Data:    data,
		Meta:    extractMeta(ctx),
	})
}

func WriteError(ctx context.Context, w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, Response{
		Success: false,
		Error:   message,
		Meta:    extractMeta(ctx),
	})
}

// WriteDomainError maps err to its HTTP status and a stable error code.
func WriteDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	status, code := classify(err)
	WriteJSON(w, status, Response{
		Success: false,
		Error:   err.Error(),
		Code:    code,
		Meta:    extractMeta(ctx),
	})
}

var errorKinds = []struct {
	err    error
	status int
	code   string
}{
	{parking.ErrSlotUnavailable, http.StatusConflict, "slot_unavailable"},
	{parking.ErrPlateAlreadyBooked, http.StatusConflict, "plate_already_booked"},
	{parking.ErrSlotNotBookedForPlate, http.StatusConflict, "slot_not_booked_for_plate"},
	{parking.ErrSlotNotParked, http.StatusConflict, "slot_not_parked"},
	{parking.ErrUnauthorized, http.StatusForbidden, "unauthorized"},
	{parking.ErrInvalidCategory, http.StatusBadRequest, "invalid_category"},
	{parking.ErrSlotOutOfRange, http.StatusBadRequest, "slot_out_of_range"},
	{parking.ErrInvalidPlate, http.StatusBadRequest, "invalid_plate"},
	{parking.ErrInvalidPoolSize, http.StatusBadRequest, "invalid_pool_size"},
	{parking.ErrStoreUnavailable, http.StatusServiceUnavailable, "store_unavailable"},
	{employees.ErrPlateExists, http.StatusConflict, "employee_exists"},
	{employees.ErrPlateNotFound, http.StatusNotFound, "employee_not_found"},
	{recognition.ErrNotConfigured, http.StatusServiceUnavailable, "recognition_unavailable"},
}

func classify(err error) (int, string) {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.status, k.code
		}
	}
	return http.StatusInternalServerError, "internal"
}
