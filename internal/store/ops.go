package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/georgysavva/scany/pgxscan"
	"github.com/google/uuid"

	"asset-tracking-backend/internal/telemetry"
)

var (
	ErrInsertFailed = errors.New("insert operation failed")
	ErrUpdateFailed = errors.New("update operation failed")
	ErrSelectFailed = errors.New("select operation failed")
	ErrDeleteFailed = errors.New("delete operation failed")
	ErrBadSensor    = errors.New("unrecognized sensor type")
)

const sessionLifetime = time.Hour

// CurrentSession returns the single unexpired session, or nil when no
// session is active.
func (s *Store) CurrentSession(ctx context.Context) (*Session, error) {
	const fn = "Store:CurrentSession"
	var sessions []Session
	err := pgxscan.Select(ctx, s.pool, &sessions, `
		SELECT token, user_email, created_at, expires_at
		FROM sessions
		WHERE expires_at > now()
		LIMIT 1
	`)
	if err != nil {
		return nil, fmt.Errorf("%s:%w:%w", fn, ErrSelectFailed, err)
	}
	if len(sessions) == 0 {
		return nil, nil
	}
	return &sessions[0], nil
}

// CreateSession mints a new session for the user, purging all prior rows
// first so at most one session ever exists.
func (s *Store) CreateSession(ctx context.Context, userEmail string) (*Session, error) {
	const fn = "Store:CreateSession"
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s:%w:%w", fn, ErrInsertFailed, err)
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		} else {
			tx.Commit(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, `DELETE FROM sessions`); err != nil {
		return nil, fmt.Errorf("%s:%w:%w", fn, ErrDeleteFailed, err)
	}

	session := Session{
		Token:     uuid.NewString(),
		UserEmail: userEmail,
		CreatedAt: time.Now(),
	}
	session.ExpiresAt = session.CreatedAt.Add(sessionLifetime)
	_, err = tx.Exec(ctx, `
		INSERT INTO sessions (token, user_email, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
	`, session.Token, session.UserEmail, session.CreatedAt, session.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("%s:%w:%w", fn, ErrInsertFailed, err)
	}
	return &session, nil
}

func (s *Store) DeleteSessions(ctx context.Context) error {
	const fn = "Store:DeleteSessions"
	if _, err := s.pool.Exec(ctx, `DELETE FROM sessions`); err != nil {
		return fmt.Errorf("%s:%w:%w", fn, ErrDeleteFailed, err)
	}
	return nil
}

// ExpireCurrentSession rewrites the current session's expiry, used when a
// disconnect forces the session closed ahead of its natural lifetime.
func (s *Store) ExpireCurrentSession(ctx context.Context, expiresAt time.Time) error {
	const fn = "Store:ExpireCurrentSession"
	if _, err := s.pool.Exec(ctx, `UPDATE sessions SET expires_at = $1`, expiresAt); err != nil {
		return fmt.Errorf("%s:%w:%w", fn, ErrUpdateFailed, err)
	}
	return nil
}

func (s *Store) GetKeepAlive(ctx context.Context) (*KeepAlive, error) {
	const fn = "Store:GetKeepAlive"
	var rows []KeepAlive
	err := pgxscan.Select(ctx, s.pool, &rows, `
		SELECT device_id, wifi_interval, heat_interval, imu_interval, gps_interval, created_at, updated_at
		FROM keep_alive
	`)
	if err != nil {
		return nil, fmt.Errorf("%s:%w:%w", fn, ErrSelectFailed, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// TouchKeepAlive records device contact at the given time, creating the
// singleton on first contact.
func (s *Store) TouchKeepAlive(ctx context.Context, deviceID string, now time.Time) error {
	const fn = "Store:TouchKeepAlive"
	_, err := s.pool.Exec(ctx, `
		INSERT INTO keep_alive (singleton, device_id, created_at, updated_at)
		VALUES (TRUE, $1, $2, $2)
		ON CONFLICT (singleton) DO UPDATE SET device_id = $1, updated_at = $2
	`, deviceID, now)
	if err != nil {
		return fmt.Errorf("%s:%w:%w", fn, ErrUpdateFailed, err)
	}
	return nil
}

func (s *Store) SetKeepAliveIntervals(ctx context.Context, deviceID string, iv telemetry.Intervals, now time.Time) error {
	const fn = "Store:SetKeepAliveIntervals"
	_, err := s.pool.Exec(ctx, `
		INSERT INTO keep_alive (singleton, device_id, wifi_interval, heat_interval, imu_interval, gps_interval, created_at, updated_at)
		VALUES (TRUE, $1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (singleton) DO UPDATE SET
			device_id = $1,
			wifi_interval = $2,
			heat_interval = $3,
			imu_interval = $4,
			gps_interval = $5,
			updated_at = $6
	`, deviceID, iv.Wifi, iv.Heat, iv.IMU, iv.GPS, now)
	if err != nil {
		return fmt.Errorf("%s:%w:%w", fn, ErrUpdateFailed, err)
	}
	return nil
}

// DeleteKeepAlive destroys the contact record on session teardown, so
// neither the device stamp nor a stale cadence survives into the next
// session.
func (s *Store) DeleteKeepAlive(ctx context.Context) error {
	const fn = "Store:DeleteKeepAlive"
	if _, err := s.pool.Exec(ctx, `DELETE FROM keep_alive`); err != nil {
		return fmt.Errorf("%s:%w:%w", fn, ErrDeleteFailed, err)
	}
	return nil
}

func (s *Store) GetSensorTimestamp(ctx context.Context) (*SensorTimestamp, error) {
	const fn = "Store:GetSensorTimestamp"
	var rows []SensorTimestamp
	err := pgxscan.Select(ctx, s.pool, &rows, `
		SELECT device_id, heat_at, wifi_at, gps_at, imu_at,
		       heat_ok, wifi_ok, gps_ok, imu_ok, device_ok
		FROM sensor_timestamp
	`)
	if err != nil {
		return nil, fmt.Errorf("%s:%w:%w", fn, ErrSelectFailed, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// BootstrapSensorTimestamp seeds the liveness baseline: all four sensors
// stamped now and everything marked alive. A no-op when the singleton
// already exists, so only the first contact of a session seeds it.
func (s *Store) BootstrapSensorTimestamp(ctx context.Context, deviceID string, now time.Time) error {
	const fn = "Store:BootstrapSensorTimestamp"
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sensor_timestamp (singleton, device_id, heat_at, wifi_at, gps_at, imu_at, created_at)
		VALUES (TRUE, $1, $2, $2, $2, $2, $2)
		ON CONFLICT (singleton) DO NOTHING
	`, deviceID, now)
	if err != nil {
		return fmt.Errorf("%s:%w:%w", fn, ErrInsertFailed, err)
	}
	return nil
}

var sensorColumns = map[telemetry.SensorType]struct{ at, ok string }{
	telemetry.SensorHeat: {"heat_at", "heat_ok"},
	telemetry.SensorWifi: {"wifi_at", "wifi_ok"},
	telemetry.SensorGPS:  {"gps_at", "gps_ok"},
	telemetry.SensorIMU:  {"imu_at", "imu_ok"},
}

// MarkSensorSeen stamps the sensor's last-seen time and flips the sensor
// and device flags alive in one atomic upsert.
func (s *Store) MarkSensorSeen(ctx context.Context, t telemetry.SensorType, now time.Time) error {
	const fn = "Store:MarkSensorSeen"
	cols, ok := sensorColumns[t]
	if !ok {
		return fmt.Errorf("%s:%w: %q", fn, ErrBadSensor, t)
	}
	query := fmt.Sprintf(`
		INSERT INTO sensor_timestamp (singleton, %[1]s, updated_at)
		VALUES (TRUE, $1, $1)
		ON CONFLICT (singleton) DO UPDATE SET %[1]s = $1, %[2]s = TRUE, device_ok = TRUE, updated_at = $1
	`, cols.at, cols.ok)
	if _, err := s.pool.Exec(ctx, query, now); err != nil {
		return fmt.Errorf("%s:%w:%w", fn, ErrUpdateFailed, err)
	}
	return nil
}

func (s *Store) SetSensorStatus(ctx context.Context, t telemetry.SensorType, alive bool) error {
	const fn = "Store:SetSensorStatus"
	cols, ok := sensorColumns[t]
	if !ok {
		return fmt.Errorf("%s:%w: %q", fn, ErrBadSensor, t)
	}
	query := fmt.Sprintf(`
		INSERT INTO sensor_timestamp (singleton, %[1]s)
		VALUES (TRUE, $1)
		ON CONFLICT (singleton) DO UPDATE SET %[1]s = $1
	`, cols.ok)
	if _, err := s.pool.Exec(ctx, query, alive); err != nil {
		return fmt.Errorf("%s:%w:%w", fn, ErrUpdateFailed, err)
	}
	return nil
}

func (s *Store) SetDeviceStatus(ctx context.Context, alive bool) error {
	const fn = "Store:SetDeviceStatus"
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sensor_timestamp (singleton, device_ok)
		VALUES (TRUE, $1)
		ON CONFLICT (singleton) DO UPDATE SET device_ok = $1
	`, alive)
	if err != nil {
		return fmt.Errorf("%s:%w:%w", fn, ErrUpdateFailed, err)
	}
	return nil
}

func (s *Store) DeleteSensorTimestamp(ctx context.Context) error {
	const fn = "Store:DeleteSensorTimestamp"
	if _, err := s.pool.Exec(ctx, `DELETE FROM sensor_timestamp`); err != nil {
		return fmt.Errorf("%s:%w:%w", fn, ErrDeleteFailed, err)
	}
	return nil
}

// InsertTelemetry appends one accepted device event. Rows are never
// updated, only bulk-deleted on session teardown.
func (s *Store) InsertTelemetry(ctx context.Context, eventType string, payload any) error {
	const fn = "Store:InsertTelemetry"
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%s:%w:%w", fn, ErrInsertFailed, err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO telemetry (type, payload)
		VALUES ($1, $2)
	`, eventType, body)
	if err != nil {
		return fmt.Errorf("%s:%w:%w", fn, ErrInsertFailed, err)
	}
	return nil
}

// DeleteTelemetry drops the session's event log and reports how many rows
// went with it.
func (s *Store) DeleteTelemetry(ctx context.Context) (int64, error) {
	const fn = "Store:DeleteTelemetry"
	tag, err := s.pool.Exec(ctx, `DELETE FROM telemetry`)
	if err != nil {
		return 0, fmt.Errorf("%s:%w:%w", fn, ErrDeleteFailed, err)
	}
	return tag.RowsAffected(), nil
}

// RecentTelemetry returns the newest events of one type, oldest first,
// backing the live dashboard feed.
func (s *Store) RecentTelemetry(ctx context.Context, eventType string, limit int) ([]Telemetry, error) {
	const fn = "Store:RecentTelemetry"
	var rows []Telemetry
	err := pgxscan.Select(ctx, s.pool, &rows, `
		SELECT id, type, payload, created_at
		FROM (
			SELECT id, type, payload, created_at
			FROM telemetry
			WHERE type = $1
			ORDER BY id DESC
			LIMIT $2
		) latest
		ORDER BY id ASC
	`, eventType, limit)
	if err != nil {
		return nil, fmt.Errorf("%s:%w:%w", fn, ErrSelectFailed, err)
	}
	return rows, nil
}
