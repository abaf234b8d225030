package telemetry

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Normalize(t *testing.T) {
	receivedAt := time.Date(2024, 5, 14, 10, 30, 0, 0, time.UTC)
	deviceStamp := time.Date(2024, 5, 14, 10, 29, 58, 0, time.UTC)

	cases := []struct {
		name        string
		rawJSON     string
		expected    func(t *testing.T, event Event)
		expectedErr error
	}{
		{
			name: "heat message",
			rawJSON: `{
				"msgtype": "heat",
				"timestamp": "2024-05-14T10:29:58Z",
				"heat": {"temperature": {"value": 22.5, "unit": "C"}, "humidity": 45.2}
			}`,
			expected: func(t *testing.T, event Event) {
				assert.Equal(t, "heat", event.Type)
				require.NotNil(t, event.Heat)
				assert.Equal(t, deviceStamp, event.Heat.Timestamp)
				assert.Equal(t, 22.5, event.Heat.Temperature.Value)
				assert.Equal(t, "C", event.Heat.Temperature.Unit)
				assert.Equal(t, 45.2, event.Heat.Humidity)
			},
		},
		{
			name: "wifi message",
			rawJSON: `{
				"msgtype": "wifi",
				"timestamp": "2024-05-14T10:29:58Z",
				"wifi": {"macid": "84:fd:27:6a:b2:d1", "ssid": "lab", "rssi": -52}
			}`,
			expected: func(t *testing.T, event Event) {
				assert.Equal(t, "wifi", event.Type)
				require.NotNil(t, event.Wifi)
				assert.Equal(t, "84:fd:27:6a:b2:d1", event.Wifi.MacID)
				assert.Equal(t, "lab", event.Wifi.SSID)
				assert.Equal(t, -52, event.Wifi.RSSI)
			},
		},
		{
			name: "gps message",
			rawJSON: `{
				"msgtype": "gps",
				"timestamp": "2024-05-14T10:29:58Z",
				"gps": {"latitude": "12.9716N", "longitude": "77.5946E", "altitude": "920M", "satellites": 7}
			}`,
			expected: func(t *testing.T, event Event) {
				assert.Equal(t, "gps", event.Type)
				require.NotNil(t, event.GPS)
				assert.Equal(t, "12.9716N", event.GPS.Latitude)
				assert.Equal(t, 7, event.GPS.Satellites)
			},
		},
		{
			name: "imu message combines accelero and gyro",
			rawJSON: `{
				"msgtype": "imu",
				"timestamp": "2024-05-14T10:29:58Z",
				"accelero": [0.1, 0.2, 9.8],
				"gyro": [1.1, 1.2, 1.3]
			}`,
			expected: func(t *testing.T, event Event) {
				assert.Equal(t, "imu", event.Type)
				require.NotNil(t, event.AccelGyro)
				assert.Equal(t, []float64{0.1, 0.2, 9.8}, event.AccelGyro.Accelero)
				assert.Equal(t, []float64{1.1, 1.2, 1.3}, event.AccelGyro.Gyro)
				assert.Equal(t, deviceStamp, event.AccelGyro.Timestamp)
			},
		},
		{
			name: "imu message defaults missing vectors to empty",
			rawJSON: `{
				"msgtype": "imu",
				"timestamp": "2024-05-14T10:29:58Z"
			}`,
			expected: func(t *testing.T, event Event) {
				require.NotNil(t, event.AccelGyro)
				assert.Equal(t, []float64{}, event.AccelGyro.Accelero)
				assert.Equal(t, []float64{}, event.AccelGyro.Gyro)
			},
		},
		{
			name: "keep-alive converts tick counts to seconds",
			rawJSON: `{
				"msgtype": "keep-alive",
				"timestamp": "2024-05-14T10:29:58Z",
				"interval": [2, 3, 1, 4]
			}`,
			expected: func(t *testing.T, event Event) {
				assert.Equal(t, MsgKeepAlive, event.Type)
				require.NotNil(t, event.Intervals)
				assert.Equal(t, Intervals{Wifi: 4, Heat: 6, IMU: 3, GPS: 8}, *event.Intervals)
			},
		},
		{
			name: "unparseable timestamp falls back to received time",
			rawJSON: `{
				"msgtype": "heat",
				"timestamp": "not-a-timestamp",
				"heat": {"temperature": {"value": 20, "unit": "C"}, "humidity": 40}
			}`,
			expected: func(t *testing.T, event Event) {
				require.NotNil(t, event.Heat)
				assert.Equal(t, receivedAt, event.Heat.Timestamp)
			},
		},
		{
			name:        "unknown discriminator rejected",
			rawJSON:     `{"msgtype": "barometer", "timestamp": "2024-05-14T10:29:58Z"}`,
			expectedErr: ErrUnknownMessageType,
		},
		{
			name:        "empty discriminator rejected",
			rawJSON:     `{"timestamp": "2024-05-14T10:29:58Z"}`,
			expectedErr: ErrUnknownMessageType,
		},
		{
			name:        "short keep-alive interval rejected",
			rawJSON:     `{"msgtype": "keep-alive", "interval": [2, 3]}`,
			expectedErr: ErrMalformedMessage,
		},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			var raw RawMessage
			require.NoError(t, json.Unmarshal([]byte(tt.rawJSON), &raw))

			event, err := Normalize(raw, receivedAt)
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, receivedAt, event.ReceivedAt)
			tt.expected(t, event)
		})
	}
}

func Test_Intervals_For(t *testing.T) {
	iv := Intervals{Wifi: 4, Heat: 6, IMU: 3, GPS: 8}
	assert.Equal(t, 4, iv.For(SensorWifi))
	assert.Equal(t, 6, iv.For(SensorHeat))
	assert.Equal(t, 3, iv.For(SensorIMU))
	assert.Equal(t, 8, iv.For(SensorGPS))
	assert.Equal(t, 0, iv.For(SensorType("nope")))
}

func Test_Event_Payload(t *testing.T) {
	heat := &Heat{Humidity: 45}
	event := Event{Type: "heat", Heat: heat}
	assert.Equal(t, heat, event.Payload())

	keepAlive := Event{Type: MsgKeepAlive, Intervals: &Intervals{Wifi: 4}}
	assert.Nil(t, keepAlive.Payload())
	assert.True(t, keepAlive.IsKeepAlive())
}
