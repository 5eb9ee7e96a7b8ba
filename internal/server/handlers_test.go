package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"parking-allocator/internal/parking"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

type testEnv struct {
	router http.Handler
	clock  *testClock
	lot    *parking.InstrumentedParkingLot
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	telemetry, err := parking.NewTelemetryProvider(context.Background(), parking.TelemetryOptions{
		ServiceName: "parking-lot-test",
		Reader:      sdkmetric.NewManualReader(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = telemetry.Shutdown(context.Background()) })

	clock := &testClock{now: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)}
	base := parking.NewParkingLot(3, parking.WithClock(clock.Now))

	reg := prometheus.NewRegistry()
	_, err = parking.RegisterOccupancyCollector(reg, base)
	require.NoError(t, err)

	lot, err := parking.NewInstrumentedParkingLot(base, telemetry)
	require.NoError(t, err)

	handler := NewHandler(lot, "parking-lot-test")
	router := NewRouter(handler, Options{
		ServiceName:    "parking-lot-test",
		Gatherer:       reg,
		TracerProvider: telemetry.TracerProvider(),
	})
	return &testEnv{router: router, clock: clock, lot: lot}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// decode unmarshals the envelope and, when data is non-nil, its payload.
func decode(t *testing.T, rec *httptest.ResponseRecorder, data any) Response {
	t.Helper()

	var raw struct {
		Response
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	if data != nil {
		require.NoError(t, json.Unmarshal(raw.Data, data))
	}
	return raw.Response
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var health HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "parking-lot-test", health.Service)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRequestIDIsEchoed(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
	resp := decode(t, rec, nil)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, "req-123", resp.Meta.RequestID)
	assert.NotEmpty(t, resp.Meta.TraceID)
}

func TestParkVehiclesGroupsBySlotClass(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/park", `{"vehicleSizes":[0,0,1,2,0,1,1,2,2,2,7]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var park ParkResponse
	resp := decode(t, rec, &park)
	assert.True(t, resp.Success)
	assert.Equal(t, "Vehicles processed", resp.Message)

	slots := func(items []ParkedVehicle) []string {
		out := make([]string, 0, len(items))
		for _, item := range items {
			out = append(out, item.Slot)
		}
		return out
	}
	assert.Equal(t, []string{"SP1", "SP2", "SP3"}, slots(park.SP))
	assert.Equal(t, []string{"MP1", "MP2", "MP3"}, slots(park.MP))
	assert.Equal(t, []string{"LP1", "LP2", "LP3"}, slots(park.LP))
	assert.Equal(t, "S", park.SP[0].VehicleType)
	assert.Equal(t, env.clock.now.UnixMilli(), park.SP[0].EntryTime)

	require.Len(t, park.Unassigned, 2)
	assert.Equal(t, UnassignedVehicle{Index: 9, VehicleSize: 2, Reason: "no_slot_available"}, park.Unassigned[0])
	assert.Equal(t, UnassignedVehicle{Index: 10, VehicleSize: 7, Reason: "invalid_size"}, park.Unassigned[1])
}

func TestParkVehiclesRejectsBadBody(t *testing.T) {
	env := newTestEnv(t)

	for _, body := range []string{"", "not json", `{}`, `{"vehicleSizes":"small"}`} {
		rec := env.do(t, http.MethodPost, "/api/park", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)

		resp := decode(t, rec, nil)
		assert.False(t, resp.Success)
		assert.Equal(t, "Invalid vehicle sizes array", resp.Error)
	}
}

func TestParkVehiclesEmptyArray(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/park", `{"vehicleSizes":[]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"SP":[],"MP":[],"LP":[],"unassigned":[]}`, string(dataField(t, rec)))
}

func dataField(t *testing.T, rec *httptest.ResponseRecorder) json.RawMessage {
	t.Helper()
	var raw struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	return raw.Data
}

func TestUnparkChargesForStay(t *testing.T) {
	env := newTestEnv(t)

	env.do(t, http.MethodPost, "/api/park", `{"vehicleSizes":[2]}`)
	env.clock.now = env.clock.now.Add(5*time.Hour + time.Minute)

	rec := env.do(t, http.MethodGet, "/api/fee/LP1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var quote ReceiptResponse
	decode(t, rec, &quote)
	assert.Equal(t, int64(6), quote.Hours)
	assert.Equal(t, int64(340), quote.Fee)

	rec = env.do(t, http.MethodPost, "/api/unpark", `{"slot":"LP1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var receipt ReceiptResponse
	resp := decode(t, rec, &receipt)
	assert.Equal(t, "Vehicle unparked from slot LP1", resp.Message)
	assert.Equal(t, "LP1", receipt.Slot)
	assert.Equal(t, "L", receipt.VehicleType)
	assert.Equal(t, int64(6), receipt.Hours)
	assert.Equal(t, int64(340), receipt.Fee)
	assert.Equal(t, env.clock.now.UnixMilli(), receipt.ExitTime)

	rec = env.do(t, http.MethodPost, "/api/unpark", `{"slot":"LP1"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Slot LP1 is already empty", decode(t, rec, nil).Error)
}

func TestUnparkErrors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		body    string
		status  int
		message string
	}{
		{"not json", http.StatusBadRequest, "Invalid slot name"},
		{`{"slot":""}`, http.StatusBadRequest, "Invalid slot name"},
		{`{"slot":"ZZ9"}`, http.StatusNotFound, "Slot ZZ9 is already empty"},
		{`{"slot":"SP0"}`, http.StatusNotFound, "Slot SP0 is already empty"},
		{`{"slot":"MP2"}`, http.StatusNotFound, "Slot MP2 is already empty"},
	}

	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/unpark", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.message, decode(t, rec, nil).Error)
		})
	}
}

func TestQuoteFeeEmptySlot(t *testing.T) {
	env := newTestEnv(t)

	for _, slot := range []string{"SP1", "XX1"} {
		rec := env.do(t, http.MethodGet, "/api/fee/"+slot, "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Slot "+slot+" is empty", decode(t, rec, nil).Error)
	}
}

func TestShowAllStatusAndClear(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/park", `{"vehicleSizes":[0,1,1]}`)

	rec := env.do(t, http.MethodGet, "/api/showall", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var groups SlotGroups
	decode(t, rec, &groups)
	assert.Len(t, groups.SP, 1)
	assert.Len(t, groups.MP, 2)
	assert.Empty(t, groups.LP)

	rec = env.do(t, http.MethodPost, "/api/entry-points", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var entry EntryPointsResponse
	decode(t, rec, &entry)
	assert.Equal(t, 4, entry.EntryPoints)

	rec = env.do(t, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var status StatusResponse
	decode(t, rec, &status)
	assert.Equal(t, 4, status.EntryPoints)
	assert.Equal(t, []ClassStatus{
		{SlotClass: "SP", Capacity: 4, Occupied: 1, Available: 3},
		{SlotClass: "MP", Capacity: 4, Occupied: 2, Available: 2},
		{SlotClass: "LP", Capacity: 4, Occupied: 0, Available: 4},
	}, status.Classes)

	rec = env.do(t, http.MethodPost, "/api/clear", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "All parking slots have been cleared.", decode(t, rec, nil).Message)
	assert.Empty(t, env.lot.AllParked(context.Background()))

	rec = env.do(t, http.MethodGet, "/api/clear", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/park", `{"vehicleSizes":[1]}`)

	rec := env.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `parking_lot_slots{slot_class="medium",state="occupied"} 1`)
	assert.Contains(t, body, "parking_lot_entry_points 3")
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodOptions, "/api/park", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestRecoveryMiddleware(t *testing.T) {
	handler := RecoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", decode(t, rec, nil).Error)
}
