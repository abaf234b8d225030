// Package api is the dashboard's REST surface: session lifecycle, recent
// telemetry backfill, and the current liveness status.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"asset-tracking-backend/internal/store"
	"asset-tracking-backend/internal/telemetry"
)

const defaultTelemetryLimit = 50

type repository interface {
	CurrentSession(ctx context.Context) (*store.Session, error)
	CreateSession(ctx context.Context, userEmail string) (*store.Session, error)
	DeleteSessions(ctx context.Context) error
	RecentTelemetry(ctx context.Context, eventType string, limit int) ([]store.Telemetry, error)
	GetSensorTimestamp(ctx context.Context) (*store.SensorTimestamp, error)
}

type API struct {
	repo repository
}

type Config struct {
	Repo repository
}

func New(cfg Config) *API {
	return &API{repo: cfg.Repo}
}

// CreateSession logs the dashboard user in. Any existing session is
// replaced; there is only ever one.
func (a *API) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserEmail == "" {
		http.Error(w, "userEmail is required", http.StatusBadRequest)
		return
	}

	session, err := a.repo.CreateSession(r.Context(), req.UserEmail)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(sessionResponse(session))
}

func (a *API) GetSession(w http.ResponseWriter, r *http.Request) {
	session, err := a.repo.CurrentSession(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if session == nil {
		http.Error(w, "no active session", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sessionResponse(session))
}

// DeleteSession logs the user out. The evaluator notices the missing
// session on its next tick and reaps the telemetry log.
func (a *API) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := a.repo.DeleteSessions(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetTelemetry returns the newest events of one sensor type, oldest first,
// so a freshly connected dashboard can backfill its charts.
func (a *API) GetTelemetry(w http.ResponseWriter, r *http.Request) {
	eventType := chi.URLParam(r, "type")
	if !validSensorType(eventType) {
		http.Error(w, "unknown sensor type", http.StatusBadRequest)
		return
	}

	limit := defaultTelemetryLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	rows, err := a.repo.RecentTelemetry(r.Context(), eventType, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := GetTelemetryResponse{Events: make([]TelemetryEvent, 0, len(rows))}
	for _, row := range rows {
		resp.Events = append(resp.Events, TelemetryEvent{
			Type:      row.Type,
			Payload:   json.RawMessage(row.Payload),
			CreatedAt: row.CreatedAt.Format(time.RFC3339),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// GetStatus reports the liveness flags. 404 until the device has made
// first contact in the current session.
func (a *API) GetStatus(w http.ResponseWriter, r *http.Request) {
	st, err := a.repo.GetSensorTimestamp(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if st == nil {
		http.Error(w, "no device contact yet", http.StatusNotFound)
		return
	}

	resp := StatusResponse{
		DeviceOK: st.DeviceOK,
		Sensors:  make(map[string]bool, len(telemetry.SensorTypes)),
	}
	if st.DeviceID != nil {
		resp.DeviceID = *st.DeviceID
	}
	for _, sensor := range telemetry.SensorTypes {
		resp.Sensors[string(sensor)] = st.StatusOK(sensor)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func sessionResponse(s *store.Session) SessionResponse {
	return SessionResponse{
		Token:     s.Token,
		UserEmail: s.UserEmail,
		CreatedAt: s.CreatedAt.Format(time.RFC3339),
		ExpiresAt: s.ExpiresAt.Format(time.RFC3339),
	}
}

func validSensorType(s string) bool {
	for _, sensor := range telemetry.SensorTypes {
		if s == string(sensor) {
			return true
		}
	}
	return false
}
