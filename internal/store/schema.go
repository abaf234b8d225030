package store

import (
	"time"

	"asset-tracking-backend/internal/telemetry"
)

type Session struct {
	Token     string    `db:"token"`
	UserEmail string    `db:"user_email"`
	CreatedAt time.Time `db:"created_at"`
	ExpiresAt time.Time `db:"expires_at"`
}

// KeepAlive is the singleton device-contact record. The interval columns
// are null until the session's first keep-alive message configures them.
type KeepAlive struct {
	DeviceID     string     `db:"device_id"`
	WifiInterval *int       `db:"wifi_interval"`
	HeatInterval *int       `db:"heat_interval"`
	IMUInterval  *int       `db:"imu_interval"`
	GPSInterval  *int       `db:"gps_interval"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    *time.Time `db:"updated_at"`
}

// Intervals collapses the nullable columns into the normalizer's interval
// type; unset columns read as zero.
func (ka *KeepAlive) Intervals() telemetry.Intervals {
	deref := func(p *int) int {
		if p == nil {
			return 0
		}
		return *p
	}
	return telemetry.Intervals{
		Wifi: deref(ka.WifiInterval),
		Heat: deref(ka.HeatInterval),
		IMU:  deref(ka.IMUInterval),
		GPS:  deref(ka.GPSInterval),
	}
}

// LastContact is the device's most recent contact time.
func (ka *KeepAlive) LastContact() time.Time {
	if ka.UpdatedAt != nil {
		return *ka.UpdatedAt
	}
	return ka.CreatedAt
}

// SensorTimestamp is the singleton liveness record: per-sensor last-seen
// times and alive flags, plus the device-level flag.
type SensorTimestamp struct {
	DeviceID *string    `db:"device_id"`
	HeatAt   *time.Time `db:"heat_at"`
	WifiAt   *time.Time `db:"wifi_at"`
	GPSAt    *time.Time `db:"gps_at"`
	IMUAt    *time.Time `db:"imu_at"`
	HeatOK   bool       `db:"heat_ok"`
	WifiOK   bool       `db:"wifi_ok"`
	GPSOK    bool       `db:"gps_ok"`
	IMUOK    bool       `db:"imu_ok"`
	DeviceOK bool       `db:"device_ok"`
}

func (st *SensorTimestamp) LastSeen(t telemetry.SensorType) *time.Time {
	switch t {
	case telemetry.SensorHeat:
		return st.HeatAt
	case telemetry.SensorWifi:
		return st.WifiAt
	case telemetry.SensorGPS:
		return st.GPSAt
	case telemetry.SensorIMU:
		return st.IMUAt
	}
	return nil
}

func (st *SensorTimestamp) StatusOK(t telemetry.SensorType) bool {
	switch t {
	case telemetry.SensorHeat:
		return st.HeatOK
	case telemetry.SensorWifi:
		return st.WifiOK
	case telemetry.SensorGPS:
		return st.GPSOK
	case telemetry.SensorIMU:
		return st.IMUOK
	}
	return false
}

type Telemetry struct {
	ID        int64     `db:"id"`
	Type      string    `db:"type"`
	Payload   []byte    `db:"payload"`
	CreatedAt time.Time `db:"created_at"`
}
