package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/momentum-hub/progression-engine/internal/application/command"
	"github.com/momentum-hub/progression-engine/internal/application/query"
	"github.com/momentum-hub/progression-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & ROOT
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSONError(w, http.StatusNotFound, "not_found", "Route not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"service": "progression-engine",
		"version": "v1",
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// READ SIDE
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	dto, err := s.deps.GetProgress.Handle(r.Context(), query.GetProgressQuery{
		UserID: r.URL.Query().Get("user_id"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

func (s *Server) handleGetStreak(w http.ResponseWriter, r *http.Request) {
	q := query.GetStreakQuery{
		UserID:         r.URL.Query().Get("user_id"),
		IncludeHeatmap: r.URL.Query().Get("heatmap") == "true",
	}
	if days := r.URL.Query().Get("days"); days != "" {
		n, err := strconv.Atoi(days)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid_parameter", "days must be an integer")
			return
		}
		q.HeatmapDays = n
	}

	dto, err := s.deps.GetStreak.Handle(r.Context(), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

func (s *Server) handleGetPowerUps(w http.ResponseWriter, r *http.Request) {
	dto, err := s.deps.GetActivePowerUps.Handle(r.Context(), query.GetActivePowerUpsQuery{
		UserID: r.URL.Query().Get("user_id"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

func (s *Server) handleGetResetCountdown(w http.ResponseWriter, r *http.Request) {
	dto, err := s.deps.GetResetCountdown.Handle(r.Context(), query.GetResetCountdownQuery{
		UserID: r.URL.Query().Get("user_id"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

// ══════════════════════════════════════════════════════════════════════════════
// XP LEDGER
// ══════════════════════════════════════════════════════════════════════════════

type addXPRequest struct {
	UserID string `json:"user_id"`
	Amount int    `json:"amount"`
	Source string `json:"source"`
}

type addXPResponse struct {
	FinalAmount int     `json:"final_amount"`
	Multiplier  float64 `json:"multiplier"`
	OldLevel    int     `json:"old_level"`
	NewLevel    int     `json:"new_level"`
	LeveledUp   bool    `json:"leveled_up"`
	CurrentXP   int     `json:"current_xp"`
}

func (s *Server) handleAddXP(w http.ResponseWriter, r *http.Request) {
	var req addXPRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	res, err := s.deps.AddXP.Handle(r.Context(), command.AddXPCommand{
		UserID:        req.UserID,
		Amount:        req.Amount,
		Source:        req.Source,
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, addXPResponse{
		FinalAmount: res.FinalAmount,
		Multiplier:  res.Multiplier,
		OldLevel:    res.OldLevel,
		NewLevel:    res.NewLevel,
		LeveledUp:   res.LeveledUp,
		CurrentXP:   res.CurrentXP,
	})
}

type spendXPRequest struct {
	UserID string `json:"user_id"`
	Amount int    `json:"amount"`
	Reason string `json:"reason"`
}

type spendXPResponse struct {
	SpentAmount int `json:"spent_amount"`
	RemainingXP int `json:"remaining_xp"`
}

func (s *Server) handleSpendXP(w http.ResponseWriter, r *http.Request) {
	var req spendXPRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	res, err := s.deps.SpendXP.Handle(r.Context(), command.SpendXPCommand{
		UserID:        req.UserID,
		Amount:        req.Amount,
		Reason:        req.Reason,
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, spendXPResponse{
		SpentAmount: res.SpentAmount,
		RemainingXP: res.RemainingXP,
	})
}

type convertXPRequest struct {
	UserID   string `json:"user_id"`
	XPAmount int    `json:"xp_amount"`
}

type convertXPResponse struct {
	XPSpent     int `json:"xp_spent"`
	GoldEarned  int `json:"gold_earned"`
	RemainingXP int `json:"remaining_xp"`
}

func (s *Server) handleConvertXP(w http.ResponseWriter, r *http.Request) {
	var req convertXPRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	res, err := s.deps.ConvertXPToGold.Handle(r.Context(), command.ConvertXPToGoldCommand{
		UserID:        req.UserID,
		XPAmount:      req.XPAmount,
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, convertXPResponse{
		XPSpent:     res.XPSpent,
		GoldEarned:  res.GoldEarned,
		RemainingXP: res.RemainingXP,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// STREAK
// ══════════════════════════════════════════════════════════════════════════════

type updateStreakRequest struct {
	UserID       string `json:"user_id"`
	ActivityType string `json:"activity_type"`
}

type updateStreakResponse struct {
	NewStreak        int  `json:"new_streak"`
	LongestStreak    int  `json:"longest_streak"`
	Continued        bool `json:"continued"`
	Broken           bool `json:"broken"`
	ShieldConsumed   bool `json:"shield_consumed"`
	DaysInactive     int  `json:"days_inactive,omitempty"`
	MilestoneReached int  `json:"milestone_reached,omitempty"`
}

func (s *Server) handleUpdateStreak(w http.ResponseWriter, r *http.Request) {
	var req updateStreakRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	res, err := s.deps.UpdateStreak.Handle(r.Context(), command.UpdateStreakCommand{
		UserID:        req.UserID,
		ActivityType:  req.ActivityType,
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, updateStreakResponse{
		NewStreak:        res.NewStreak,
		LongestStreak:    res.LongestStreak,
		Continued:        res.Continued,
		Broken:           res.Broken,
		ShieldConsumed:   res.ShieldConsumed,
		DaysInactive:     res.DaysInactive,
		MilestoneReached: res.MilestoneReached,
	})
}

type recordActivityRequest struct {
	UserID         string `json:"user_id"`
	ProblemsSolved int    `json:"problems_solved"`
	TasksCompleted int    `json:"tasks_completed"`
	XPEarned       int    `json:"xp_earned"`
	ActiveMinutes  int    `json:"active_minutes"`
}

func (s *Server) handleRecordActivity(w http.ResponseWriter, r *http.Request) {
	var req recordActivityRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	res, err := s.deps.RecordActivity.Handle(r.Context(), command.RecordDailyActivityCommand{
		UserID:         req.UserID,
		ProblemsSolved: req.ProblemsSolved,
		TasksCompleted: req.TasksCompleted,
		XPEarned:       req.XPEarned,
		ActiveMinutes:  req.ActiveMinutes,
		CorrelationID:  getRequestID(r.Context()),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"date":   res.Date,
		"bucket": res.Bucket,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// POWER-UPS
// ══════════════════════════════════════════════════════════════════════════════

type powerUpRequest struct {
	UserID    string `json:"user_id"`
	PowerUpID string `json:"powerup_id"`

	// DurationMs overrides the catalog default (activation only).
	DurationMs int64 `json:"duration_ms,omitempty"`

	// ActivationID targets a single activation (expiry only).
	ActivationID string `json:"activation_id,omitempty"`
}

func (s *Server) handleBuyPowerUp(w http.ResponseWriter, r *http.Request) {
	var req powerUpRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	res, err := s.deps.BuyPowerUp.Handle(r.Context(), command.BuyPowerUpCommand{
		UserID:        req.UserID,
		PowerUpID:     req.PowerUpID,
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"owned_count": res.OwnedCount,
	})
}

type activatePowerUpResponse struct {
	Activated    bool      `json:"activated"`
	SkipReason   string    `json:"skip_reason,omitempty"`
	ActivationID string    `json:"activation_id,omitempty"`
	ExpiresAt    time.Time `json:"expires_at,omitempty"`
	EnergySpent  int       `json:"energy_spent"`
}

func (s *Server) handleActivatePowerUp(w http.ResponseWriter, r *http.Request) {
	var req powerUpRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	res, err := s.deps.ActivatePowerUp.Handle(r.Context(), command.ActivatePowerUpCommand{
		UserID:        req.UserID,
		PowerUpID:     req.PowerUpID,
		Duration:      time.Duration(req.DurationMs) * time.Millisecond,
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, activatePowerUpResponse{
		Activated:    res.Activated,
		SkipReason:   res.SkipReason,
		ActivationID: res.ActivationID,
		ExpiresAt:    res.ExpiresAt,
		EnergySpent:  res.EnergySpent,
	})
}

func (s *Server) handleExpirePowerUp(w http.ResponseWriter, r *http.Request) {
	var req powerUpRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	res, err := s.deps.ExpirePowerUp.Handle(r.Context(), command.ExpirePowerUpCommand{
		UserID:        req.UserID,
		PowerUpID:     req.PowerUpID,
		ActivationID:  req.ActivationID,
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"removed_entries": res.RemovedEntries,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// ACTIVITY SESSION
// ══════════════════════════════════════════════════════════════════════════════

type sessionRequest struct {
	UserID string `json:"user_id"`
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	res, err := s.deps.StartSession.Handle(r.Context(), command.StartSessionCommand{
		UserID:        req.UserID,
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"started":    res.Started,
		"started_at": res.StartedAt,
	})
}

type stopSessionResponse struct {
	Stopped       bool  `json:"stopped"`
	DurationMs    int64 `json:"duration_ms"`
	BonusXP       int   `json:"bonus_xp"`
	FinalBonusXP  int   `json:"final_bonus_xp"`
	TotalActiveMs int64 `json:"total_active_ms"`
	LeveledUp     bool  `json:"leveled_up"`
}

func (s *Server) handleStopSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	res, err := s.deps.EndSession.Handle(r.Context(), command.EndSessionCommand{
		UserID:        req.UserID,
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, stopSessionResponse{
		Stopped:       res.Stopped,
		DurationMs:    res.Duration.Milliseconds(),
		BonusXP:       res.BonusXP,
		FinalBonusXP:  res.FinalBonusXP,
		TotalActiveMs: res.TotalActiveMs,
		LeveledUp:     res.LeveledUp,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST DECODING & ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// decodeBody decodes the JSON request body into dst. Writes a 400
// response and returns false on failure.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_json", "Request body is not valid JSON: "+err.Error())
		return false
	}
	return true
}

// writeError maps application errors onto HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classifyError(err)

	if status >= 500 {
		s.logger.Error("request failed",
			"path", r.URL.Path,
			"error", err,
			"request_id", getRequestID(r.Context()),
		)
	}

	writeJSONError(w, status, code, err.Error())
}

func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, shared.ErrValidation), errors.Is(err, shared.ErrInvalidInput):
		return http.StatusBadRequest, "validation_failed"
	case errors.Is(err, shared.ErrInsufficientBalance):
		return http.StatusConflict, "insufficient_balance"
	case errors.Is(err, shared.ErrNotOwned):
		return http.StatusConflict, "not_owned"
	case errors.Is(err, shared.ErrSessionAlreadyActive):
		return http.StatusConflict, "session_already_active"
	case errors.Is(err, shared.ErrNoActiveSession):
		return http.StatusConflict, "no_active_session"
	case errors.Is(err, shared.ErrAlreadyResetToday):
		return http.StatusConflict, "already_reset_today"
	case errors.Is(err, shared.ErrInvalidState):
		return http.StatusConflict, "invalid_state"
	case errors.Is(err, shared.ErrStoreClosed), errors.Is(err, shared.ErrServiceUnavailable):
		return http.StatusServiceUnavailable, "service_unavailable"
	case errors.Is(err, shared.ErrTimeout):
		return http.StatusGatewayTimeout, "timeout"
	case isValidationMessage(err):
		return http.StatusBadRequest, "validation_failed"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// isValidationMessage catches command Validate() failures, which are
// wrapped as plain errors with a "validation failed" marker.
func isValidationMessage(err error) bool {
	return err != nil && strings.Contains(err.Error(), "validation failed")
}
