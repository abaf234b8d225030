// Package session decides whether incoming stream events are admissible
// against the single active session.
package session

import (
	"context"
	"time"

	"asset-tracking-backend/internal/store"
)

// Decision is the admission outcome. Everything except Admit is a silent
// drop: the event is checkpointed and ignored, not treated as a failure.
type Decision int

const (
	Admit Decision = iota
	// DropBeforeStart: enqueued before this process existed (replay guard).
	DropBeforeStart
	// DropNoSession: no user is logged in.
	DropNoSession
	// DropBeforeSession: enqueued before the active session was created,
	// so pre-login data never leaks into it.
	DropBeforeSession
	// DropForeignDevice: not the recognized device identity.
	DropForeignDevice
)

func (d Decision) String() string {
	switch d {
	case Admit:
		return "admit"
	case DropBeforeStart:
		return "drop-before-start"
	case DropNoSession:
		return "drop-no-session"
	case DropBeforeSession:
		return "drop-before-session"
	case DropForeignDevice:
		return "drop-foreign-device"
	}
	return "unknown"
}

type sessionSource interface {
	CurrentSession(ctx context.Context) (*store.Session, error)
}

type Config struct {
	Sessions  sessionSource
	DeviceID  string
	StartedAt time.Time
}

type Gatekeeper struct {
	sessions  sessionSource
	deviceID  string
	startedAt time.Time
}

func New(cfg Config) *Gatekeeper {
	return &Gatekeeper{
		sessions:  cfg.Sessions,
		deviceID:  cfg.DeviceID,
		startedAt: cfg.StartedAt,
	}
}

// Admit applies the admission rule in order: process-start bound, session
// existence, session-creation bound, then device identity. The session is
// returned on Admit so callers don't re-read it.
func (g *Gatekeeper) Admit(ctx context.Context, deviceID string, enqueued time.Time) (Decision, *store.Session, error) {
	if enqueued.Before(g.startedAt) {
		return DropBeforeStart, nil, nil
	}
	session, err := g.sessions.CurrentSession(ctx)
	if err != nil {
		return DropNoSession, nil, err
	}
	if session == nil {
		return DropNoSession, nil, nil
	}
	if enqueued.Before(session.CreatedAt) {
		return DropBeforeSession, nil, nil
	}
	if deviceID != g.deviceID {
		return DropForeignDevice, nil, nil
	}
	return Admit, session, nil
}
