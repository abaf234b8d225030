// Package liveness maintains the rolling last-seen state for the device
// and each sensor, and derives disconnect transitions from it.
package liveness

import (
	"context"
	"errors"
	"fmt"
	"time"

	"asset-tracking-backend/internal/notify"
	"asset-tracking-backend/internal/store"
	"asset-tracking-backend/internal/telemetry"
)

// A device that stays silent longer than this is considered disconnected.
const deviceSilenceThreshold = 30 * time.Second

var (
	ErrRecordContact = errors.New("record device contact failed")
	ErrRecordSensor  = errors.New("record sensor event failed")
	ErrEvaluate      = errors.New("liveness evaluation failed")
	ErrReset         = errors.New("liveness reset failed")
)

type repository interface {
	GetKeepAlive(ctx context.Context) (*store.KeepAlive, error)
	TouchKeepAlive(ctx context.Context, deviceID string, now time.Time) error
	DeleteKeepAlive(ctx context.Context) error
	GetSensorTimestamp(ctx context.Context) (*store.SensorTimestamp, error)
	BootstrapSensorTimestamp(ctx context.Context, deviceID string, now time.Time) error
	MarkSensorSeen(ctx context.Context, t telemetry.SensorType, now time.Time) error
	SetSensorStatus(ctx context.Context, t telemetry.SensorType, alive bool) error
	SetDeviceStatus(ctx context.Context, alive bool) error
	DeleteSensorTimestamp(ctx context.Context) error
}

type Config struct {
	Repo    repository
	Emitter notify.Emitter
}

type Tracker struct {
	repo    repository
	emitter notify.Emitter
}

func New(cfg Config) *Tracker {
	return &Tracker{
		repo:    cfg.Repo,
		emitter: cfg.Emitter,
	}
}

// RecordDeviceContact refreshes the keep-alive contact time. The first
// contact of a session also seeds the sensor baseline (all stamps now, all
// flags alive) so the evaluator has no false positives before any real
// reading arrives.
func (t *Tracker) RecordDeviceContact(ctx context.Context, deviceID string, now time.Time) error {
	const fn = "Tracker:RecordDeviceContact"
	if err := t.repo.TouchKeepAlive(ctx, deviceID, now); err != nil {
		return fmt.Errorf("%s:%w:%w", fn, ErrRecordContact, err)
	}
	if err := t.repo.BootstrapSensorTimestamp(ctx, deviceID, now); err != nil {
		return fmt.Errorf("%s:%w:%w", fn, ErrRecordContact, err)
	}
	if err := t.repo.SetDeviceStatus(ctx, true); err != nil {
		return fmt.Errorf("%s:%w:%w", fn, ErrRecordContact, err)
	}
	return nil
}

// RecordSensorEvent stamps the sensor's last-seen time and marks sensor
// and device alive. A no-op until a keep-alive has configured the sampling
// intervals: an un-configured device is exempt from liveness evaluation.
func (t *Tracker) RecordSensorEvent(ctx context.Context, sensor telemetry.SensorType, now time.Time) error {
	const fn = "Tracker:RecordSensorEvent"
	keepAlive, err := t.repo.GetKeepAlive(ctx)
	if err != nil {
		return fmt.Errorf("%s:%w:%w", fn, ErrRecordSensor, err)
	}
	if keepAlive == nil || !keepAlive.Intervals().Configured() {
		return nil
	}
	if err := t.repo.MarkSensorSeen(ctx, sensor, now); err != nil {
		return fmt.Errorf("%s:%w:%w", fn, ErrRecordSensor, err)
	}
	return nil
}

// Evaluate re-derives per-sensor disconnect state: a sensor whose silence
// exceeds its configured interval transitions to disconnected, emitting
// exactly once per crossing. The current-status guard keeps the
// notification from repeating every tick while still disconnected.
func (t *Tracker) Evaluate(ctx context.Context, now time.Time) error {
	const fn = "Tracker:Evaluate"
	timestamps, err := t.repo.GetSensorTimestamp(ctx)
	if err != nil {
		return fmt.Errorf("%s:%w:%w", fn, ErrEvaluate, err)
	}
	if timestamps == nil {
		return nil
	}
	keepAlive, err := t.repo.GetKeepAlive(ctx)
	if err != nil {
		return fmt.Errorf("%s:%w:%w", fn, ErrEvaluate, err)
	}
	if keepAlive == nil {
		return nil
	}
	intervals := keepAlive.Intervals()
	if !intervals.Configured() {
		return nil
	}

	for _, sensor := range telemetry.SensorTypes {
		lastSeen := timestamps.LastSeen(sensor)
		if lastSeen == nil {
			continue
		}
		elapsedSeconds := int(now.Sub(*lastSeen) / time.Second)
		if elapsedSeconds > intervals.For(sensor) && timestamps.StatusOK(sensor) {
			if err := t.repo.SetSensorStatus(ctx, sensor, false); err != nil {
				return fmt.Errorf("%s:%w:%w", fn, ErrEvaluate, err)
			}
			t.emitter.Publish(notify.TopicSensorDisconnected, notify.SensorDisconnected{Type: string(sensor)})
		}
	}
	return nil
}

// EvaluateDeviceKeepAlive flips the device disconnected when nothing has
// been heard from it for 30 seconds, emitting once per crossing.
func (t *Tracker) EvaluateDeviceKeepAlive(ctx context.Context, now time.Time) error {
	const fn = "Tracker:EvaluateDeviceKeepAlive"
	keepAlive, err := t.repo.GetKeepAlive(ctx)
	if err != nil {
		return fmt.Errorf("%s:%w:%w", fn, ErrEvaluate, err)
	}
	if keepAlive == nil {
		return nil
	}
	if now.Sub(keepAlive.LastContact()) <= deviceSilenceThreshold {
		return nil
	}
	timestamps, err := t.repo.GetSensorTimestamp(ctx)
	if err != nil {
		return fmt.Errorf("%s:%w:%w", fn, ErrEvaluate, err)
	}
	if timestamps == nil || !timestamps.DeviceOK {
		return nil
	}
	if err := t.repo.SetDeviceStatus(ctx, false); err != nil {
		return fmt.Errorf("%s:%w:%w", fn, ErrEvaluate, err)
	}
	t.emitter.Publish(notify.TopicDeviceConnectivity, notify.ConnectivityChanged{Type: notify.DeviceDisconnected})
	return nil
}

// Reset destroys both liveness singletons while no session is active, so
// neither the contact record nor a stale cadence leaks into the next
// session.
func (t *Tracker) Reset(ctx context.Context) error {
	const fn = "Tracker:Reset"
	if err := t.repo.DeleteSensorTimestamp(ctx); err != nil {
		return fmt.Errorf("%s:%w:%w", fn, ErrReset, err)
	}
	if err := t.repo.DeleteKeepAlive(ctx); err != nil {
		return fmt.Errorf("%s:%w:%w", fn, ErrReset, err)
	}
	return nil
}
