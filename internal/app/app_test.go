package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwalitptl/icu-api/internal/config"
	"github.com/jwalitptl/icu-api/internal/middleware"
	"github.com/jwalitptl/icu-api/internal/repository/memory"
	"github.com/jwalitptl/icu-api/pkg/export"
	"github.com/jwalitptl/icu-api/pkg/metrics"
	"github.com/jwalitptl/icu-api/pkg/security"
)

const adminPassword = "admin-password"

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    int               `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
}

type testAPI struct {
	t      *testing.T
	engine *gin.Engine
	store  *memory.Store
}

func testConfig() *config.Config {
	return &config.Config{
		Env: config.EnvTest,
		Server: config.ServerConfig{
			RequestTimeout: 5 * time.Second,
			MaxBodyBytes:   1 << 20,
		},
		Database: config.DatabaseConfig{Driver: config.DriverMemory},
		JWT: config.JWTConfig{
			Secret:      "test-secret",
			Issuer:      "icu-api",
			ExpiryHours: 1,
		},
		Metrics: config.MetricsConfig{Namespace: "icu_test"},
		Seed: config.SeedConfig{
			AdminUsername: "admin",
			AdminEmail:    "admin@icu.local",
			AdminPassword: adminPassword,
			Ward:          "ICU",
			Beds:          3,
		},
	}
}

func newTestAPI(t *testing.T, mutate func(*config.Config)) *testAPI {
	t.Helper()
	cfg := testConfig()
	if mutate != nil {
		mutate(cfg)
	}

	store := memory.NewStore()
	hasher := security.NewBcryptHasher(bcrypt.MinCost)
	m := metrics.New(cfg.Metrics.Namespace)

	result, err := Seed(context.Background(), store, hasher, m, cfg.Seed)
	require.NoError(t, err)
	require.True(t, result.AdminCreated)
	require.Equal(t, cfg.Seed.Beds, result.BedsCreated)

	engine, err := New(Dependencies{
		Config:   cfg,
		Store:    store,
		Database: store,
		Tokens:   memory.NewTokenStore(),
		Metrics:  m,
		Hasher:   hasher,
	})
	require.NoError(t, err)

	return &testAPI{t: t, engine: engine, store: store}
}

func (a *testAPI) do(method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	a.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data interface{}) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if data != nil {
		require.NoError(t, json.Unmarshal(env.Data, data), w.Body.String())
	}
	return env
}

func (a *testAPI) login(username, password string) string {
	a.t.Helper()
	w := a.do(http.MethodPost, "/api/auth/login", map[string]string{
		"login":    username,
		"password": password,
	}, "")
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())

	var tokens struct {
		AccessToken string `json:"accessToken"`
		TokenType   string `json:"tokenType"`
	}
	decode(a.t, w, &tokens)
	require.NotEmpty(a.t, tokens.AccessToken)
	assert.Equal(a.t, "Bearer", tokens.TokenType)
	return tokens.AccessToken
}

func (a *testAPI) createUser(adminToken, username, role string) string {
	a.t.Helper()
	w := a.do(http.MethodPost, "/api/users", map[string]string{
		"username": username,
		"email":    username + "@icu.local",
		"name":     "Test " + username,
		"password": username + "-password",
		"role":     role,
	}, adminToken)
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	return a.login(username, username+"-password")
}

type bedBody struct {
	ID        string  `json:"id"`
	Number    string  `json:"number"`
	Status    string  `json:"status"`
	PatientID *string `json:"patientId"`
	Patient   *struct {
		Name string `json:"name"`
	} `json:"patient"`
}

type patientBody struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Status    string  `json:"status"`
	BedNumber *string `json:"bedNumber"`
}

func TestAdmitAssignDischarge(t *testing.T) {
	api := newTestAPI(t, nil)
	token := api.login("admin", adminPassword)

	w := api.do(http.MethodPost, "/api/patients", map[string]interface{}{
		"name":      "Ada Lovelace",
		"age":       36,
		"gender":    "female",
		"diagnosis": "Septic shock",
		"status":    "critical",
	}, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var patient patientBody
	env := decode(t, w, &patient)
	assert.True(t, env.Success)
	assert.Nil(t, env.Error)
	assert.Equal(t, "critical", patient.Status)
	assert.Nil(t, patient.BedNumber)

	w = api.do(http.MethodPost, "/api/beds/ICU-001/assign", map[string]string{"patientId": patient.ID}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var bed bedBody
	decode(t, w, &bed)
	assert.Equal(t, "occupied", bed.Status)
	require.NotNil(t, bed.PatientID)
	assert.Equal(t, patient.ID, *bed.PatientID)

	// the bed can be addressed by uuid as well as by number
	w = api.do(http.MethodGet, "/api/beds/"+bed.ID, nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &bed)
	require.NotNil(t, bed.Patient)
	assert.Equal(t, "Ada Lovelace", bed.Patient.Name)

	w = api.do(http.MethodGet, "/api/patients/"+patient.ID, nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &patient)
	require.NotNil(t, patient.BedNumber)
	assert.Equal(t, "ICU-001", *patient.BedNumber)

	// a second assignment to an occupied bed is refused
	w = api.do(http.MethodPost, "/api/beds/ICU-001/assign", map[string]string{"patientId": patient.ID}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(http.MethodPost, "/api/patients/"+patient.ID+"/discharge", map[string]string{"notes": "Stable on room air"}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var record struct {
		PatientName string  `json:"patientName"`
		BedNumber   *string `json:"bedNumber"`
		Notes       string  `json:"notes"`
	}
	decode(t, w, &record)
	assert.Equal(t, "Ada Lovelace", record.PatientName)
	require.NotNil(t, record.BedNumber)
	assert.Equal(t, "ICU-001", *record.BedNumber)
	assert.Equal(t, "Stable on room air", record.Notes)

	w = api.do(http.MethodGet, "/api/beds/ICU-001", nil, token)
	decode(t, w, &bed)
	assert.Equal(t, "cleaning", bed.Status)
	assert.Nil(t, bed.PatientID)
	assert.Nil(t, bed.Patient)

	w = api.do(http.MethodPut, "/api/beds/ICU-001/status", map[string]string{"status": "available"}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &bed)
	assert.Equal(t, "available", bed.Status)

	var history []json.RawMessage
	w = api.do(http.MethodGet, "/api/discharge-history", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &history)
	assert.Len(t, history, 1)

	w = api.do(http.MethodGet, "/api/discharge-history/export", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, export.ContentTypeXLSX, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.NotZero(t, w.Body.Len())
}

func TestBedDischargeKeepsPatientAdmitted(t *testing.T) {
	api := newTestAPI(t, nil)
	token := api.login("admin", adminPassword)

	w := api.do(http.MethodPost, "/api/patients", map[string]interface{}{
		"name":      "Alan Turing",
		"age":       41,
		"gender":    "male",
		"diagnosis": "ARDS",
	}, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var patient patientBody
	decode(t, w, &patient)
	assert.Equal(t, "stable", patient.Status)

	w = api.do(http.MethodPost, "/api/beds/ICU-002/assign", map[string]string{"patientId": patient.ID}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = api.do(http.MethodPost, "/api/beds/ICU-002/discharge", nil, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var bed bedBody
	decode(t, w, &bed)
	assert.Equal(t, "cleaning", bed.Status)

	w = api.do(http.MethodGet, "/api/patients/"+patient.ID, nil, token)
	decode(t, w, &patient)
	assert.Nil(t, patient.BedNumber)
	assert.NotEqual(t, "discharged", patient.Status)

	// cleaning is left only through a manual transition to available
	w = api.do(http.MethodPut, "/api/beds/ICU-002/status", map[string]string{"status": "occupied"}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthentication(t *testing.T) {
	api := newTestAPI(t, nil)

	t.Run("missing token", func(t *testing.T) {
		w := api.do(http.MethodGet, "/api/beds", nil, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		env := decode(t, w, nil)
		assert.False(t, env.Success)
		require.NotNil(t, env.Error)
		assert.Equal(t, http.StatusUnauthorized, env.Error.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		w := api.do(http.MethodGet, "/api/beds", nil, "not-a-jwt")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("wrong password", func(t *testing.T) {
		w := api.do(http.MethodPost, "/api/auth/login", map[string]string{
			"login":    "admin",
			"password": "nope-nope",
		}, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("logout revokes the token", func(t *testing.T) {
		token := api.login("admin", adminPassword)

		w := api.do(http.MethodGet, "/api/auth/me", nil, token)
		require.Equal(t, http.StatusOK, w.Code)
		var me struct {
			Username string `json:"username"`
			Role     string `json:"role"`
		}
		decode(t, w, &me)
		assert.Equal(t, "admin", me.Username)
		assert.Equal(t, "admin", me.Role)
		assert.NotContains(t, w.Body.String(), "password")

		w = api.do(http.MethodPost, "/api/auth/logout", nil, token)
		require.Equal(t, http.StatusOK, w.Code)

		w = api.do(http.MethodGet, "/api/auth/me", nil, token)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestAccountChangesApplyToLiveTokens(t *testing.T) {
	api := newTestAPI(t, nil)
	admin := api.login("admin", adminPassword)

	userID := func(username string) string {
		t.Helper()
		w := api.do(http.MethodGet, "/api/users?search="+username, nil, admin)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var users []struct {
			ID       string `json:"id"`
			Username string `json:"username"`
		}
		decode(t, w, &users)
		require.Len(t, users, 1)
		return users[0].ID
	}

	nurse := api.createUser(admin, "nurse1", "nurse")
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/beds", nil, nurse).Code)

	w := api.do(http.MethodPut, "/api/users/"+userID("nurse1"), map[string]interface{}{"active": false}, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = api.do(http.MethodGet, "/api/beds", nil, nurse)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), middleware.MsgAccountDisabled)

	tech := api.createUser(admin, "tech1", "technician")
	w = api.do(http.MethodDelete, "/api/users/"+userID("tech1"), nil, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/api/beds", nil, tech).Code)

	// a promotion takes effect without logging in again
	doctor := api.createUser(admin, "doctor1", "doctor")
	assert.Equal(t, http.StatusForbidden, api.do(http.MethodGet, "/api/users", nil, doctor).Code)
	w = api.do(http.MethodPut, "/api/users/"+userID("doctor1"), map[string]interface{}{"role": "admin"}, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/users", nil, doctor).Code)
}

func TestRoleGuards(t *testing.T) {
	api := newTestAPI(t, nil)
	admin := api.login("admin", adminPassword)
	nurse := api.createUser(admin, "nurse1", "nurse")
	tech := api.createUser(admin, "tech1", "technician")

	newBed := map[string]interface{}{
		"number":     "ICU-100",
		"roomNumber": "200",
		"ward":       "ICU",
	}

	w := api.do(http.MethodPost, "/api/beds", newBed, nurse)
	assert.Equal(t, http.StatusForbidden, w.Code)
	env := decode(t, w, nil)
	require.NotNil(t, env.Error)
	assert.Equal(t, http.StatusForbidden, env.Error.Code)

	w = api.do(http.MethodGet, "/api/users", nil, nurse)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// technicians manage equipment but not patients
	w = api.do(http.MethodPost, "/api/patients", map[string]interface{}{
		"name": "Grace Hopper", "age": 70, "gender": "female", "diagnosis": "Pneumonia",
	}, tech)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = api.do(http.MethodGet, "/api/beds", nil, nurse)
	require.Equal(t, http.StatusOK, w.Code)
	var beds []bedBody
	decode(t, w, &beds)
	assert.Len(t, beds, 3)

	w = api.do(http.MethodPost, "/api/beds", newBed, admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = api.do(http.MethodPost, "/api/beds", newBed, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestErrorEnvelope(t *testing.T) {
	api := newTestAPI(t, nil)
	token := api.login("admin", adminPassword)

	t.Run("validation errors name the fields", func(t *testing.T) {
		w := api.do(http.MethodPost, "/api/patients", map[string]interface{}{"age": 200}, token)
		require.Equal(t, http.StatusBadRequest, w.Code)
		env := decode(t, w, nil)
		assert.False(t, env.Success)
		require.NotNil(t, env.Error)
		assert.Equal(t, http.StatusBadRequest, env.Error.Code)
		assert.Equal(t, "is required", env.Error.Fields["name"])
		assert.Contains(t, env.Error.Fields, "gender")
		assert.Contains(t, env.Error.Fields, "age")
	})

	t.Run("malformed json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/patients", strings.NewReader(`{"name":`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		api.engine.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		w := api.do(http.MethodGet, "/api/patients/not-a-uuid", nil, token)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown patient", func(t *testing.T) {
		w := api.do(http.MethodGet, "/api/patients/00000000-0000-0000-0000-000000000001", nil, token)
		assert.Equal(t, http.StatusNotFound, w.Code)
		env := decode(t, w, nil)
		require.NotNil(t, env.Error)
		assert.Equal(t, "Patient not found", env.Error.Message)
	})

	t.Run("unknown route", func(t *testing.T) {
		w := api.do(http.MethodGet, "/api/nowhere", nil, "")
		assert.Equal(t, http.StatusNotFound, w.Code)
		env := decode(t, w, nil)
		require.NotNil(t, env.Error)
		assert.Equal(t, "Route not found", env.Error.Message)
	})

	t.Run("wrong method", func(t *testing.T) {
		w := api.do(http.MethodDelete, "/health", nil, "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestRateLimit(t *testing.T) {
	api := newTestAPI(t, func(cfg *config.Config) {
		cfg.RateLimit = config.RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: 0.001,
			Burst:             2,
			IdleTTL:           time.Minute,
		}
	})

	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/api/beds", nil, "").Code)
	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/api/beds", nil, "").Code)

	w := api.do(http.MethodGet, "/api/beds", nil, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	env := decode(t, w, nil)
	require.NotNil(t, env.Error)
	assert.Equal(t, http.StatusTooManyRequests, env.Error.Code)

	// operational endpoints are not limited
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/health", nil, "").Code)
}

func TestDatabaseOutageAndReconnect(t *testing.T) {
	api := newTestAPI(t, nil)
	token := api.login("admin", adminPassword)

	w := api.do(http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var health struct {
		Status string `json:"status"`
		Env    string `json:"env"`
	}
	decode(t, w, &health)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, config.EnvTest, health.Env)

	require.NoError(t, api.store.Close())

	w = api.do(http.MethodGet, "/api/beds", nil, token)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	env := decode(t, w, nil)
	require.NotNil(t, env.Error)
	assert.Equal(t, http.StatusServiceUnavailable, env.Error.Code)

	assert.Equal(t, http.StatusServiceUnavailable, api.do(http.MethodGet, "/health", nil, "").Code)

	w = api.do(http.MethodGet, "/reconnect", nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &health)
	assert.Equal(t, "reconnected", health.Status)

	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/beds", nil, token).Code)
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/init", nil, "").Code)
}

func TestAnalyticsAndMetrics(t *testing.T) {
	api := newTestAPI(t, nil)
	token := api.login("admin", adminPassword)

	w := api.do(http.MethodGet, "/api/analytics", nil, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var analytics struct {
		Beds struct {
			Total         int     `json:"total"`
			OccupancyRate float64 `json:"occupancyRate"`
		} `json:"beds"`
	}
	decode(t, w, &analytics)
	assert.Equal(t, 3, analytics.Beds.Total)
	assert.Zero(t, analytics.Beds.OccupancyRate)

	w = api.do(http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "icu_test_requests_total")
}

func TestResponseHeaders(t *testing.T) {
	api := newTestAPI(t, nil)
	token := api.login("admin", adminPassword)

	w := api.do(http.MethodGet, "/api/beds", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Contains(t, w.Header().Get("Cache-Control"), "no-store")
}

func TestSeedIsIdempotent(t *testing.T) {
	store := memory.NewStore()
	hasher := security.NewBcryptHasher(bcrypt.MinCost)
	cfg := testConfig().Seed
	cfg.AdminPassword = ""

	first, err := Seed(context.Background(), store, hasher, nil, cfg)
	require.NoError(t, err)
	assert.True(t, first.AdminCreated)
	assert.NotEmpty(t, first.GeneratedPassword)
	assert.Equal(t, 3, first.BedsCreated)

	second, err := Seed(context.Background(), store, hasher, nil, cfg)
	require.NoError(t, err)
	assert.False(t, second.AdminCreated)
	assert.Empty(t, second.GeneratedPassword)
	assert.Zero(t, second.BedsCreated)
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(Dependencies{Config: testConfig()})
	assert.Error(t, err)
}
