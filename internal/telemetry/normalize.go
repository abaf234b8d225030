package telemetry

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrUnknownMessageType = errors.New("unknown message type")
	ErrMalformedMessage   = errors.New("malformed message")
)

// Normalize maps a raw device message onto the canonical event schema.
// Pure transformation: no side effects, no logging. Unknown discriminators
// are rejected so a partially populated record never escapes.
func Normalize(msg RawMessage, receivedAt time.Time) (Event, error) {
	event := Event{ReceivedAt: receivedAt}
	ts := parseTimestamp(msg.Timestamp, receivedAt)

	switch msg.MsgType {
	case string(SensorHeat):
		event.Type = msg.MsgType
		event.Heat = &Heat{Timestamp: ts}
		if msg.Heat != nil {
			event.Heat.Temperature = msg.Heat.Temperature
			event.Heat.Humidity = msg.Heat.Humidity
		}
	case string(SensorWifi):
		event.Type = msg.MsgType
		event.Wifi = &Wifi{Timestamp: ts}
		if msg.Wifi != nil {
			event.Wifi.MacID = msg.Wifi.MacID
			event.Wifi.SSID = msg.Wifi.SSID
			event.Wifi.RSSI = msg.Wifi.RSSI
		}
	case string(SensorGPS):
		event.Type = msg.MsgType
		event.GPS = &GPS{Timestamp: ts}
		if msg.GPS != nil {
			event.GPS.Latitude = msg.GPS.Latitude
			event.GPS.Longitude = msg.GPS.Longitude
			event.GPS.Altitude = msg.GPS.Altitude
			event.GPS.Satellites = msg.GPS.Satellites
		}
	case string(SensorIMU):
		event.Type = msg.MsgType
		accelero := msg.Accelero
		if accelero == nil {
			accelero = []float64{}
		}
		gyro := msg.Gyro
		if gyro == nil {
			gyro = []float64{}
		}
		event.AccelGyro = &AccelGyro{Timestamp: ts, Accelero: accelero, Gyro: gyro}
	case MsgKeepAlive:
		// Raw interval array order is [wifi, heat, imu, gps], in device
		// tick counts.
		if len(msg.Interval) < 4 {
			return Event{}, fmt.Errorf("%w: keep-alive interval has %d elements", ErrMalformedMessage, len(msg.Interval))
		}
		event.Type = MsgKeepAlive
		event.Intervals = &Intervals{
			Wifi: msg.Interval[0] * wifiSamplingInterval,
			Heat: msg.Interval[1] * heatSamplingInterval,
			IMU:  msg.Interval[2] * imuSamplingInterval,
			GPS:  msg.Interval[3] * gpsSamplingInterval,
		}
	default:
		return Event{}, fmt.Errorf("%w: %q", ErrUnknownMessageType, msg.MsgType)
	}
	return event, nil
}

func parseTimestamp(raw string, fallback time.Time) time.Time {
	if raw == "" {
		return fallback
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return fallback
	}
	return ts
}
