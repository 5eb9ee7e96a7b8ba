package server

import (
	"context"
	"encoding/json"
	"net/http"

	"go.opentelemetry.io/otel/trace"

	"parking-allocator/internal/logging"
	"parking-allocator/internal/parking"
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
	Meta    *Meta  `json:"meta,omitempty"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Meta    *Meta  `json:"meta,omitempty"`
}

type ParkRequest struct {
	VehicleSizes []int `json:"vehicleSizes"`
}

type UnparkRequest struct {
	Slot string `json:"slot"`
}

// ParkedVehicle is the wire form of an occupied slot. EntryTime is in Unix
// milliseconds.
type ParkedVehicle struct {
	Slot        string `json:"slot"`
	VehicleType string `json:"vehicleType"`
	EntryTime   int64  `json:"entryTime"`
}

// SlotGroups lists parked vehicles by slot class prefix.
type SlotGroups struct {
	SP []ParkedVehicle `json:"SP"`
	MP []ParkedVehicle `json:"MP"`
	LP []ParkedVehicle `json:"LP"`
}

type UnassignedVehicle struct {
	Index       int    `json:"index"`
	VehicleSize int    `json:"vehicleSize"`
	Reason      string `json:"reason"`
}

type ParkResponse struct {
	SlotGroups
	Unassigned []UnassignedVehicle `json:"unassigned"`
}

type ReceiptResponse struct {
	Slot        string `json:"slot"`
	VehicleType string `json:"vehicleType"`
	EntryTime   int64  `json:"entryTime"`
	ExitTime    int64  `json:"exitTime"`
	Hours       int64  `json:"hours"`
	Fee         int64  `json:"fee"`
}

type ClassStatus struct {
	SlotClass string `json:"slotClass"`
	Capacity  int    `json:"capacity"`
	Occupied  int    `json:"occupied"`
	Available int    `json:"available"`
}

type StatusResponse struct {
	EntryPoints int           `json:"entryPoints"`
	Classes     []ClassStatus `json:"classes"`
}

type EntryPointsResponse struct {
	EntryPoints int `json:"entryPoints"`
}

func newSlotGroups() SlotGroups {
	return SlotGroups{
		SP: []ParkedVehicle{},
		MP: []ParkedVehicle{},
		LP: []ParkedVehicle{},
	}
}

func (g *SlotGroups) add(v parking.ParkedVehicle) {
	item := toParkedVehicle(v)
	switch v.Slot.Class {
	case parking.Small:
		g.SP = append(g.SP, item)
	case parking.Medium:
		g.MP = append(g.MP, item)
	case parking.Large:
		g.LP = append(g.LP, item)
	}
}

func toParkedVehicle(v parking.ParkedVehicle) ParkedVehicle {
	return ParkedVehicle{
		Slot:        v.Slot.String(),
		VehicleType: v.Size.VehicleType(),
		EntryTime:   v.EntryTime.UnixMilli(),
	}
}

func toReceiptResponse(r parking.Receipt) ReceiptResponse {
	return ReceiptResponse{
		Slot:        r.Vehicle.Slot.String(),
		VehicleType: r.Vehicle.Size.VehicleType(),
		EntryTime:   r.Vehicle.EntryTime.UnixMilli(),
		ExitTime:    r.ExitTime.UnixMilli(),
		Hours:       r.Hours,
		Fee:         r.Fee,
	}
}

func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logging.Logger().Error().Err(err).Msg("encode response")
	}
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
