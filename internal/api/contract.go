package api

import "encoding/json"

type CreateSessionRequest struct {
	UserEmail string `json:"userEmail"`
}

type SessionResponse struct {
	Token     string `json:"token"`
	UserEmail string `json:"userEmail"`
	CreatedAt string `json:"createdAt"`
	ExpiresAt string `json:"expiresAt"`
}

type TelemetryEvent struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt string          `json:"createdAt"`
}

type GetTelemetryResponse struct {
	Events []TelemetryEvent `json:"events"`
}

// StatusResponse reports the current liveness flags, per sensor plus the
// device itself.
type StatusResponse struct {
	DeviceID string          `json:"deviceId,omitempty"`
	DeviceOK bool            `json:"deviceOk"`
	Sensors  map[string]bool `json:"sensors"`
}
