package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentum-hub/progression-engine/internal/application/command"
	"github.com/momentum-hub/progression-engine/internal/application/query"
	"github.com/momentum-hub/progression-engine/internal/domain/powerup"
	"github.com/momentum-hub/progression-engine/internal/domain/shared"
	"github.com/momentum-hub/progression-engine/internal/engine"
)

type nopPublisher struct{}

func (nopPublisher) Publish(shared.Event) error      { return nil }
func (nopPublisher) PublishAll([]shared.Event) error { return nil }

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
}

func newTestServer(t *testing.T) (*Server, *shared.FakeClock) {
	t.Helper()

	clock := shared.NewFakeClock(time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC))
	store := engine.NewStore(engine.NewState(clock.Now(), time.UTC), clock, nil)
	catalog := powerup.DefaultCatalog()
	pub := nopPublisher{}

	deps := Dependencies{
		AddXP:           command.NewAddXPHandler(store, catalog, pub),
		SpendXP:         command.NewSpendXPHandler(store, pub),
		ConvertXPToGold: command.NewConvertXPToGoldHandler(store, catalog, pub),
		UpdateStreak:    command.NewUpdateStreakHandler(store, catalog, time.UTC, pub),
		RecordActivity:  command.NewRecordDailyActivityHandler(store, time.UTC),
		BuyPowerUp:      command.NewBuyPowerUpHandler(store, catalog, pub),
		ActivatePowerUp: command.NewActivatePowerUpHandler(store, catalog, pub),
		ExpirePowerUp:   command.NewExpirePowerUpHandler(store, pub),
		StartSession:    command.NewStartSessionHandler(store, pub),
		EndSession:      command.NewEndSessionHandler(store, catalog, time.UTC, pub),

		GetProgress:       query.NewGetProgressHandler(store),
		GetStreak:         query.NewGetStreakHandler(store, time.UTC),
		GetActivePowerUps: query.NewGetActivePowerUpsHandler(store, catalog),
		GetResetCountdown: query.NewGetResetCountdownHandler(store),

		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	return NewServer(DefaultConfig(), deps), clock
}

func doRequest(t *testing.T, s *Server, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

func TestServer_Health(t *testing.T) {
	s, _ := newTestServer(t)

	rec, env := doRequest(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
}

func TestServer_UnknownRouteReturns404(t *testing.T) {
	s, _ := newTestServer(t)

	rec, env := doRequest(t, s, http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, env.Success)
}

func TestServer_AddXP(t *testing.T) {
	s, _ := newTestServer(t)

	rec, env := doRequest(t, s, http.MethodPost, "/api/v1/xp/add", map[string]interface{}{
		"amount": 250,
		"source": "task",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.Success)

	var data addXPResponse
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, 250, data.CurrentXP)
	assert.Equal(t, 250, data.FinalAmount)
	assert.False(t, data.LeveledUp)
}

func TestServer_AddXPMissingSourceIsBadRequest(t *testing.T) {
	s, _ := newTestServer(t)

	rec, env := doRequest(t, s, http.MethodPost, "/api/v1/xp/add", map[string]interface{}{
		"amount": 100,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "validation_failed", env.Error.Code)
}

func TestServer_MalformedJSONIsBadRequest(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/xp/add", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_PowerUpFlow(t *testing.T) {
	s, _ := newTestServer(t)

	rec, env := doRequest(t, s, http.MethodPost, "/api/v1/powerups/buy", map[string]interface{}{
		"powerup_id": "double_xp",
	})
	require.Equal(t, http.StatusOK, rec.Code, "buy failed: %v", env.Error)

	rec, env = doRequest(t, s, http.MethodPost, "/api/v1/powerups/activate", map[string]interface{}{
		"powerup_id": "double_xp",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var act activatePowerUpResponse
	require.NoError(t, json.Unmarshal(env.Data, &act))
	assert.True(t, act.Activated)
	assert.NotEmpty(t, act.ActivationID)

	rec, env = doRequest(t, s, http.MethodGet, "/api/v1/powerups", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var dto query.PowerUpsDTO
	require.NoError(t, json.Unmarshal(env.Data, &dto))
	assert.Len(t, dto.Active, 1)
}

func TestServer_ExpirePowerUpRequiresTarget(t *testing.T) {
	s, _ := newTestServer(t)

	rec, env := doRequest(t, s, http.MethodPost, "/api/v1/powerups/expire", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
}

func TestServer_UnknownPowerUpIs404(t *testing.T) {
	s, _ := newTestServer(t)

	rec, env := doRequest(t, s, http.MethodPost, "/api/v1/powerups/buy", map[string]interface{}{
		"powerup_id": "no_such_thing",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "not_found", env.Error.Code)
}

func TestServer_SessionLifecycle(t *testing.T) {
	s, clock := newTestServer(t)

	rec, env := doRequest(t, s, http.MethodPost, "/api/v1/session/start", map[string]interface{}{})
	require.Equal(t, http.StatusOK, rec.Code)

	var started struct {
		Started bool `json:"started"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &started))
	assert.True(t, started.Started)

	clock.Advance(17 * time.Minute)

	rec, env = doRequest(t, s, http.MethodPost, "/api/v1/session/stop", map[string]interface{}{})
	require.Equal(t, http.StatusOK, rec.Code)

	var stopped stopSessionResponse
	require.NoError(t, json.Unmarshal(env.Data, &stopped))
	assert.True(t, stopped.Stopped)
	assert.Equal(t, 15, stopped.BonusXP)
}

func TestServer_GetProgress(t *testing.T) {
	s, _ := newTestServer(t)

	_, env := doRequest(t, s, http.MethodPost, "/api/v1/xp/add", map[string]interface{}{
		"amount": 500,
		"source": "task",
	})
	require.True(t, env.Success)

	rec, env := doRequest(t, s, http.MethodGet, "/api/v1/progress", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var dto query.ProgressDTO
	require.NoError(t, json.Unmarshal(env.Data, &dto))
	assert.Equal(t, 500, dto.CurrentXP)
	assert.Equal(t, 1, dto.Level)
}

func TestServer_GetStreakWithHeatmap(t *testing.T) {
	s, _ := newTestServer(t)

	_, env := doRequest(t, s, http.MethodPost, "/api/v1/streak/update", map[string]interface{}{})
	require.True(t, env.Success)

	rec, env := doRequest(t, s, http.MethodGet, "/api/v1/streak?heatmap=true&days=7", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var dto query.StreakDTO
	require.NoError(t, json.Unmarshal(env.Data, &dto))
	assert.Equal(t, 1, dto.CurrentStreak)
	assert.Len(t, dto.Heatmap, 7)
}

func TestServer_GetStreakBadDaysParam(t *testing.T) {
	s, _ := newTestServer(t)

	rec, _ := doRequest(t, s, http.MethodGet, "/api/v1/streak?days=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_ResetCountdown(t *testing.T) {
	s, _ := newTestServer(t)

	rec, env := doRequest(t, s, http.MethodGet, "/api/v1/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var dto query.ResetCountdownDTO
	require.NoError(t, json.Unmarshal(env.Data, &dto))
	// Fixture clock is 10:00 UTC, so midnight is 14h away.
	assert.Equal(t, 14*3600, dto.CountdownSeconds)
	assert.False(t, dto.HasResetToday)
}

func TestServer_RequestIDHeader(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
}

func TestServer_CORSPreflight(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/progress", nil)
	req.Header.Set("Origin", "https://hud.example.com")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://hud.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}
