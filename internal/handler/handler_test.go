package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fixmate/service-marketplace/internal/application"
	bookingDomain "github.com/fixmate/service-marketplace/internal/domain/booking"
	vehicleDomain "github.com/fixmate/service-marketplace/internal/domain/vehicle"
	"github.com/fixmate/service-marketplace/internal/platform/async"
	"github.com/fixmate/service-marketplace/internal/platform/auth"
	"github.com/fixmate/service-marketplace/internal/platform/domain"
	"github.com/fixmate/service-marketplace/internal/repository/memory"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testServer struct {
	router   *gin.Engine
	jwt      *auth.JWTManager
	bookings *memory.BookingRepository
	vehicles *memory.VehicleRepository
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	bookings := memory.NewBookingRepository(store)
	vehicles := memory.NewVehicleRepository(store)
	schedules := memory.NewScheduleRepository(store)
	history := memory.NewRecordRepository(store)
	jobs := memory.NewJobRepository(store)
	logger := zap.NewNop()
	runner := async.NewRunner(logger, time.Second)
	t.Cleanup(runner.Wait)

	bookingSvc := application.NewBookingService(bookings, vehicles, logger)
	statusSvc := application.NewStatusService(bookings, vehicles, history, nil, nil, nil, nil, runner, logger)
	healthSvc := application.NewHealthService(bookings, vehicles, schedules, nil, logger)
	vehicleSvc := application.NewVehicleService(vehicles, schedules, history, nil, logger)

	jwtManager := auth.NewJWTManager("test-secret", "", time.Hour)
	r := gin.New()
	api := r.Group("")
	NewBookingHandler(bookingSvc, statusSvc).RegisterRoutes(api, jwtManager)
	NewVehicleHandler(vehicleSvc, healthSvc).RegisterRoutes(api, jwtManager)
	NewJobHandler(application.NewJobService(jobs, logger)).RegisterRoutes(api, jwtManager)
	NewAdminHandler(bookingSvc, healthSvc, nil).RegisterRoutes(api, jwtManager)

	return &testServer{router: r, jwt: jwtManager, bookings: bookings, vehicles: vehicles}
}

func (s *testServer) do(t *testing.T, method, path, userID string, role auth.Role, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		token, err := s.jwt.Generate(userID, role)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) seedBooking(t *testing.T) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	v, err := vehicleDomain.NewVehicle("cust-1", 2019, "Honda", "Civic", "", "", domain.Some(42000))
	require.NoError(t, err)
	require.NoError(t, s.vehicles.Save(ctx, v))

	bk, err := bookingDomain.NewBooking(
		"cust-1",
		v.ID(),
		bookingDomain.ServiceSnapshot{ServiceID: "svc-oil", Category: "oil_change", Title: "Oil change", PriceCents: 7900},
		bookingDomain.VehicleSnapshot{Year: 2019, Make: "Honda", Model: "Civic", Mileage: 42000},
		time.Now().Add(24*time.Hour),
		bookingDomain.Address{Street: "1 Main St", City: "Austin"},
		"",
	)
	require.NoError(t, err)
	require.NoError(t, s.bookings.Save(ctx, bk))
	return bk.ID()
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestTransitionStatus_AcceptAndAdvance(t *testing.T) {
	s := newTestServer(t)
	id := s.seedBooking(t)
	path := "/api/v1/bookings/" + id.String() + "/status"

	w := s.do(t, http.MethodPatch, path, "tech-1", auth.RoleTechnician, map[string]interface{}{
		"userId": "tech-1",
		"status": "accepted",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result application.TransitionResult
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &result))
	assert.Equal(t, "accepted", result.Status)
	require.NotNil(t, result.JobID)

	w = s.do(t, http.MethodGet, "/api/v1/jobs/"+result.JobID.String(), "cust-1", auth.RoleCustomer, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPatch, "/api/bookings/status", "tech-1", auth.RoleTechnician, map[string]interface{}{
		"bookingId":        id.String(),
		"userId":           "tech-1",
		"status":           "complete",
		"techNotes":        "Replaced filter",
		"mileageAtService": 42100,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodPatch, path, "tech-1", auth.RoleTechnician, map[string]interface{}{
		"userId": "tech-1",
		"status": "in_progress",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "CONFLICT", decode(t, w).Error.Code)
}

func TestTransitionStatus_RequestValidation(t *testing.T) {
	s := newTestServer(t)
	id := s.seedBooking(t)
	path := "/api/v1/bookings/" + id.String() + "/status"

	cases := []struct {
		name   string
		path   string
		caller string
		body   map[string]interface{}
		want   int
	}{
		{"no token", path, "", map[string]interface{}{"userId": "tech-1", "status": "accepted"}, http.StatusUnauthorized},
		{"userId mismatch", path, "tech-1", map[string]interface{}{"userId": "tech-2", "status": "accepted"}, http.StatusForbidden},
		{"missing status", path, "tech-1", map[string]interface{}{"userId": "tech-1"}, http.StatusBadRequest},
		{"unknown status", path, "tech-1", map[string]interface{}{"userId": "tech-1", "status": "teleported"}, http.StatusBadRequest},
		{"notes too long", path, "tech-1", map[string]interface{}{"userId": "tech-1", "status": "accepted", "techNotes": strings.Repeat("x", 1001)}, http.StatusBadRequest},
		{"negative mileage", path, "tech-1", map[string]interface{}{"userId": "tech-1", "status": "accepted", "mileageAtService": -1}, http.StatusBadRequest},
		{"bad booking id", "/api/v1/bookings/nope/status", "tech-1", map[string]interface{}{"userId": "tech-1", "status": "accepted"}, http.StatusBadRequest},
		{"legacy missing id", "/api/bookings/status", "tech-1", map[string]interface{}{"userId": "tech-1", "status": "accepted"}, http.StatusBadRequest},
		{"unknown booking", "/api/v1/bookings/" + uuid.NewString() + "/status", "tech-1", map[string]interface{}{"userId": "tech-1", "status": "accepted"}, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := s.do(t, http.MethodPatch, tc.path, tc.caller, auth.RoleTechnician, tc.body)
			assert.Equal(t, tc.want, w.Code, w.Body.String())
		})
	}

	bk, err := s.bookings.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, bookingDomain.StatusPending, bk.Status(), "rejected requests leave the booking untouched")
}

func TestBookingRoutes_RoleChecks(t *testing.T) {
	s := newTestServer(t)
	id := s.seedBooking(t)

	w := s.do(t, http.MethodGet, "/api/v1/bookings/open", "cust-1", auth.RoleCustomer, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/bookings/open", "tech-1", auth.RoleTechnician, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/bookings/"+id.String(), "user-9", auth.RoleCustomer, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/admin/stats/bookings", "tech-1", auth.RoleTechnician, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/admin/bookings?page=1&limit=10", "admin-1", auth.RoleAdmin, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminRoutes(t *testing.T) {
	s := newTestServer(t)
	s.seedBooking(t)

	w := s.do(t, http.MethodPost, "/api/v1/admin/reminders/run", "admin-1", auth.RoleAdmin, nil)
	assert.Equal(t, http.StatusBadGateway, w.Code, "no sweeper configured")

	w = s.do(t, http.MethodPost, "/api/v1/admin/vehicles/"+uuid.NewString()+"/health/recompute", "admin-1", auth.RoleAdmin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/admin/vehicles/nope/health/recompute", "admin-1", auth.RoleAdmin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/admin/stats/bookings", "admin-1", auth.RoleAdmin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats application.BookingStatsDTO
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &stats))
	assert.Equal(t, int64(1), stats.TotalBookings)
	assert.Equal(t, int64(1), stats.ByStatus["pending"])
}

func TestVehicleRoutes(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/vehicles", "cust-1", auth.RoleCustomer, map[string]interface{}{
		"year": 2020, "make": "Toyota", "model": "Corolla", "current_mileage": 15000,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var v application.VehicleDTO
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &v))
	base := "/api/v1/vehicles/" + v.ID.String()

	w = s.do(t, http.MethodPost, base+"/schedules", "cust-1", auth.RoleCustomer, map[string]interface{}{
		"service_type": "oil_change", "interval_miles": 5000, "last_service_mileage": 10000,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, base+"/health/recompute", "cust-1", auth.RoleCustomer, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, base+"/health", "cust-1", auth.RoleCustomer, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, base+"/health", "cust-2", auth.RoleCustomer, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/vehicles/decode/1HGCM82633A004352", "cust-1", auth.RoleCustomer, nil)
	assert.Equal(t, http.StatusBadGateway, w.Code, "no VIN provider configured")
}

func TestParsePagination(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		query     string
		wantPage  int
		wantLimit int
	}{
		{"", 1, 20},
		{"page=3&limit=50", 3, 50},
		{"page=0&limit=0", 1, 20},
		{"page=x&limit=1000", 1, 100},
	}
	for _, tc := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/?"+tc.query, nil)
		page, limit := parsePagination(c)
		assert.Equal(t, tc.wantPage, page, tc.query)
		assert.Equal(t, tc.wantLimit, limit, tc.query)
	}
}
