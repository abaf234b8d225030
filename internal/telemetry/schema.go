package telemetry

import "time"

// SensorType identifies one of the four independently monitored sensors.
type SensorType string

const (
	SensorHeat SensorType = "heat"
	SensorWifi SensorType = "wifi"
	SensorGPS  SensorType = "gps"
	SensorIMU  SensorType = "imu"
)

// MsgKeepAlive is the device heartbeat message type; it carries the
// self-reported sampling cadence instead of a sensor reading.
const MsgKeepAlive = "keep-alive"

var SensorTypes = []SensorType{SensorHeat, SensorWifi, SensorGPS, SensorIMU}

// Seconds of wall-clock time per raw interval unit, per sensor. The device
// reports tick counts; these convert them to seconds.
const (
	wifiSamplingInterval = 2
	heatSamplingInterval = 2
	imuSamplingInterval  = 3
	gpsSamplingInterval  = 2
)

type Temperature struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

type Heat struct {
	Timestamp   time.Time   `json:"timestamp"`
	Temperature Temperature `json:"temperature"`
	Humidity    float64     `json:"humidity"`
}

type Wifi struct {
	Timestamp time.Time `json:"timestamp"`
	MacID     string    `json:"macid"`
	SSID      string    `json:"ssid"`
	RSSI      int       `json:"rssi"`
}

type GPS struct {
	Timestamp  time.Time `json:"timestamp"`
	Latitude   string    `json:"latitude"`
	Longitude  string    `json:"longitude"`
	Altitude   string    `json:"altitude"`
	Satellites int       `json:"satellites"`
}

type AccelGyro struct {
	Timestamp time.Time `json:"timestamp"`
	Accelero  []float64 `json:"accelero"`
	Gyro      []float64 `json:"gyro"`
}

// Intervals holds the per-sensor sampling cadence in seconds, derived from
// a keep-alive message.
type Intervals struct {
	Wifi int `json:"wifi"`
	Heat int `json:"heat"`
	IMU  int `json:"imu"`
	GPS  int `json:"gps"`
}

func (iv Intervals) For(t SensorType) int {
	switch t {
	case SensorWifi:
		return iv.Wifi
	case SensorHeat:
		return iv.Heat
	case SensorIMU:
		return iv.IMU
	case SensorGPS:
		return iv.GPS
	}
	return 0
}

// Configured reports whether the device has delivered a usable cadence. An
// un-configured device is exempt from liveness evaluation.
func (iv Intervals) Configured() bool {
	return iv.Wifi > 0
}

// RawMessage is a device payload as it arrives off the stream, before
// normalization. MsgType discriminates which members are populated.
type RawMessage struct {
	MsgType   string    `json:"msgtype"`
	Timestamp string    `json:"timestamp"`
	Heat      *rawHeat  `json:"heat"`
	Wifi      *rawWifi  `json:"wifi"`
	GPS       *rawGPS   `json:"gps"`
	Accelero  []float64 `json:"accelero"`
	Gyro      []float64 `json:"gyro"`
	Interval  []int     `json:"interval"`
}

type rawHeat struct {
	Temperature Temperature `json:"temperature"`
	Humidity    float64     `json:"humidity"`
}

type rawWifi struct {
	MacID string `json:"macid"`
	SSID  string `json:"ssid"`
	RSSI  int    `json:"rssi"`
}

type rawGPS struct {
	Latitude   string `json:"latitude"`
	Longitude  string `json:"longitude"`
	Altitude   string `json:"altitude"`
	Satellites int    `json:"satellites"`
}

// Event is a normalized device message: exactly one of the payload members
// matching Type is set.
type Event struct {
	Type       string     `json:"type"`
	ReceivedAt time.Time  `json:"-"`
	Heat       *Heat      `json:"heat,omitempty"`
	Wifi       *Wifi      `json:"wifi,omitempty"`
	GPS        *GPS       `json:"gps,omitempty"`
	AccelGyro  *AccelGyro `json:"accelGyroData,omitempty"`
	Intervals  *Intervals `json:"intervalData,omitempty"`
}

func (e Event) IsKeepAlive() bool {
	return e.Type == MsgKeepAlive
}

// Payload returns the populated sensor member for persistence.
func (e Event) Payload() any {
	switch e.Type {
	case string(SensorHeat):
		return e.Heat
	case string(SensorWifi):
		return e.Wifi
	case string(SensorGPS):
		return e.GPS
	case string(SensorIMU):
		return e.AccelGyro
	}
	return nil
}
