package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MihisaraJayasinghe/vehicleParkSystem/internal/logging"
	"github.com/MihisaraJayasinghe/vehicleParkSystem/internal/parking"
	"github.com/MihisaraJayasinghe/vehicleParkSystem/internal/recognition"
)

const maxImageBytes = 10 << 20

// SlotService is the slot lifecycle plus the occupancy summary.
type SlotService interface {
	parking.Lifecycle
	Occupancy(ctx context.Context) (parking.Occupancy, error)
}

type Handler struct {
	slots       SlotService
	autoPark    parking.RecognitionHandler
	employees   parking.EmployeeDirectory
	recognizer  recognition.Recognizer
	poolSize    int
	serviceName string
}

func NewHandler(deps Deps) *Handler {
	return &Handler{
		slots:       deps.Slots,
		autoPark:    deps.AutoPark,
		employees:   deps.Employees,
		recognizer:  deps.Recognizer,
		poolSize:    deps.PoolSize,
		serviceName: deps.ServiceName,
	}
}

func decode(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"service": h.serviceName,
		"meta":    extractMeta(r.Context()),
	})
}

// InitPool creates the slot pool. An empty body uses the configured size.
func (h *Handler) InitPool(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req := InitPoolRequest{Count: h.poolSize}
	if err := decode(r, &req); err != nil {
		WriteError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	created, err := h.slots.InitPool(ctx, req.Count)
	if err != nil {
		WriteDomainError(ctx, w, err)
		return
	}

	message := fmt.Sprintf("Created %d slots", created)
	if created == 0 {
		message = "Slots already initialized"
	}
	WriteSuccess(ctx, w, message, InitPoolResponse{Created: created})
}

func (h *Handler) ListSlots(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slots, err := h.slots.ListAll(ctx)
	if err != nil {
		WriteDomainError(ctx, w, err)
		return
	}

	WriteSuccess(ctx, w, "", SlotsResponse{
		Summary: parking.Summarize(slots),
		Slots:   slots,
	})
}

func (h *Handler) BookSlot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req BookRequest
	if err := decode(r, &req); err != nil {
		WriteError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	slot, err := h.slots.Book(ctx, req.SlotID, req.Plate, req.Category)
	if err != nil {
		WriteDomainError(ctx, w, err)
		return
	}
	WriteSuccess(ctx, w, fmt.Sprintf("Slot %d booked", slot.ID), slot)
}

func (h *Handler) ParkSlot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req ParkRequest
	if err := decode(r, &req); err != nil {
		WriteError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	slot, err := h.slots.Park(ctx, req.SlotID, req.Plate)
	if err != nil {
		WriteDomainError(ctx, w, err)
		return
	}
	WriteSuccess(ctx, w, fmt.Sprintf("Vehicle parked in slot %d", slot.ID), slot)
}

func (h *Handler) ClearSlot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req ClearRequest
	if err := decode(r, &req); err != nil {
		WriteError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	record, err := h.slots.Clear(ctx, req.SlotID, req.Plate, req.RatePerHour)
	if err != nil {
		WriteDomainError(ctx, w, err)
		return
	}
	WriteSuccess(ctx, w, fmt.Sprintf("Slot %d cleared", record.SlotID), record)
}

func (h *Handler) FindByPlate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	plate := chi.URLParam(r, "plate")

	slots, err := h.slots.FindByPlate(ctx, plate)
	if err != nil {
		WriteDomainError(ctx, w, err)
		return
	}
	if len(slots) == 0 {
		WriteError(ctx, w, http.StatusNotFound, "Vehicle not found")
		return
	}
	WriteSuccess(ctx, w, "", slots)
}

func (h *Handler) ParkedEmployees(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	plates, err := h.employees.List(ctx)
	if err != nil {
		WriteDomainError(ctx, w, err)
		return
	}

	slots, err := h.slots.ParkedMatchingAllowlist(ctx, plates)
	if err != nil {
		WriteDomainError(ctx, w, err)
		return
	}
	WriteSuccess(ctx, w, "", slots)
}

func (h *Handler) AutoPark(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req AutoParkRequest
	if err := decode(r, &req); err != nil {
		WriteError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result := h.autoPark.AutoParkFromRecognition(ctx, req.Plate)
	WriteSuccess(ctx, w, result.Message, result)
}

// Recognize forwards an uploaded image to the recognition service and then
// tries to auto-park the first recognized plate. The recognition output is
// returned even when auto-parking does nothing.
func (h *Handler) Recognize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.recognizer == nil {
		WriteDomainError(ctx, w, recognition.ErrNotConfigured)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		WriteError(ctx, w, http.StatusBadRequest, "Missing image file")
		return
	}
	defer file.Close()

	image, err := io.ReadAll(file)
	if err != nil {
		WriteError(ctx, w, http.StatusBadRequest, "Could not read image")
		return
	}

	result, err := h.recognizer.Recognize(ctx, header.Filename, image)
	if err != nil {
		logging.Error(ctx, "recognition failed", "error", err)
		if errors.Is(err, recognition.ErrNotConfigured) {
			WriteDomainError(ctx, w, err)
			return
		}
		WriteError(ctx, w, http.StatusBadGateway, "Recognition service failed")
		return
	}

	autoPark := h.autoPark.AutoParkFromRecognition(ctx, result.BestPlate())
	WriteSuccess(ctx, w, autoPark.Message, RecognizeResponse{
		VehicleTypes:   result.VehicleTypes,
		Plates:         result.Plates,
		AnnotatedImage: result.AnnotatedImage,
		AutoPark:       autoPark,
	})
}

func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	plates, err := h.employees.List(ctx)
	if err != nil {
		WriteDomainError(ctx, w, err)
		return
	}
	WriteSuccess(ctx, w, "", plates)
}

func (h *Handler) AddEmployee(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req EmployeeRequest
	if err := decode(r, &req); err != nil {
		WriteError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	plate := parking.NormalizePlate(req.Plate)
	if err := h.employees.Add(ctx, plate); err != nil {
		WriteDomainError(ctx, w, err)
		return
	}
	WriteSuccess(ctx, w, "Employee added", EmployeeRequest{Plate: plate})
}

func (h *Handler) RemoveEmployee(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	plate := parking.NormalizePlate(chi.URLParam(r, "plate"))

	if err := h.employees.Remove(ctx, plate); err != nil {
		WriteDomainError(ctx, w, err)
		return
	}
	WriteSuccess(ctx, w, "Employee removed", EmployeeRequest{Plate: plate})
}
