package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"parking-allocator/internal/parking"
)

// Handler translates HTTP requests into parking lot calls. The lot does its
// own locking, so Handler holds no state of its own.
type Handler struct {
	lot         *parking.InstrumentedParkingLot
	serviceName string
}

func NewHandler(lot *parking.InstrumentedParkingLot, serviceName string) *Handler {
	return &Handler{
		lot:         lot,
		serviceName: serviceName,
	}
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Service: h.serviceName,
		Meta:    extractMeta(r.Context()),
	})
}

func (h *Handler) ParkVehicles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ParkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(ctx, w, http.StatusBadRequest, "Invalid vehicle sizes array")
		return
	}
	if req.VehicleSizes == nil {
		WriteError(ctx, w, http.StatusBadRequest, "Invalid vehicle sizes array")
		return
	}

	resp := ParkResponse{
		SlotGroups: newSlotGroups(),
		Unassigned: []UnassignedVehicle{},
	}
	for i, allocation := range h.lot.ParkVehicles(ctx, req.VehicleSizes) {
		if allocation.Assigned() {
			resp.add(allocation.Vehicle)
			continue
		}
		resp.Unassigned = append(resp.Unassigned, UnassignedVehicle{
			Index:       i,
			VehicleSize: allocation.Code,
			Reason:      allocation.Status.String(),
		})
	}

	WriteSuccess(ctx, w, "Vehicles processed", resp)
}

func (h *Handler) UnparkVehicle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req UnparkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Slot == "" {
		WriteError(ctx, w, http.StatusBadRequest, "Invalid slot name")
		return
	}

	// A slot that cannot exist is reported like an empty one.
	slot, err := parking.ParseSlotID(req.Slot)
	if err != nil {
		WriteError(ctx, w, http.StatusNotFound, fmt.Sprintf("Slot %s is already empty", req.Slot))
		return
	}

	receipt, ok := h.lot.Unpark(ctx, slot)
	if !ok {
		WriteError(ctx, w, http.StatusNotFound, fmt.Sprintf("Slot %s is already empty", req.Slot))
		return
	}

	WriteSuccess(ctx, w, fmt.Sprintf("Vehicle unparked from slot %s", slot), toReceiptResponse(receipt))
}

func (h *Handler) QuoteFee(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	raw := chi.URLParam(r, "slot")
	slot, err := parking.ParseSlotID(raw)
	if err != nil {
		WriteError(ctx, w, http.StatusNotFound, fmt.Sprintf("Slot %s is empty", raw))
		return
	}

	receipt, ok := h.lot.Quote(ctx, slot)
	if !ok {
		WriteError(ctx, w, http.StatusNotFound, fmt.Sprintf("Slot %s is empty", raw))
		return
	}

	WriteSuccess(ctx, w, "Fee calculated", toReceiptResponse(receipt))
}

func (h *Handler) ShowAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	groups := newSlotGroups()
	for _, v := range h.lot.AllParked(ctx) {
		groups.add(v)
	}

	WriteSuccess(ctx, w, "Parked vehicles retrieved", groups)
}

func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	occupancy := h.lot.Occupancy(ctx)
	resp := StatusResponse{
		Classes: make([]ClassStatus, 0, len(occupancy)),
	}
	for _, o := range occupancy {
		resp.EntryPoints = o.Capacity
		resp.Classes = append(resp.Classes, ClassStatus{
			SlotClass: o.Class.SlotPrefix(),
			Capacity:  o.Capacity,
			Occupied:  o.Occupied,
			Available: o.Available,
		})
	}

	WriteSuccess(ctx, w, "Status retrieved successfully", resp)
}

func (h *Handler) AddEntryPoint(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	entryPoints := h.lot.AddEntryPoint(ctx)

	WriteSuccess(ctx, w, "Entry point added", EntryPointsResponse{EntryPoints: entryPoints})
}

func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	h.lot.Clear(ctx)

	WriteSuccess(ctx, w, "All parking slots have been cleared.", nil)
}
