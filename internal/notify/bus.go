// Package notify is the fan-out point for state-change and telemetry
// notifications. Delivery is synchronous, at-most-once, with no buffering;
// reliability toward end clients is the transport's problem.
package notify

import "sync"

type Topic string

const (
	TopicTelemetryReceived  Topic = "telemetry-received"
	TopicSensorDisconnected Topic = "sensor-disconnected"
	TopicDeviceConnectivity Topic = "device-connectivity-changed"
	TopicStreamConnectivity Topic = "stream-connectivity-changed"
)

// Connectivity payload type values.
const (
	DeviceDisconnected   = "deviceDisconnected"
	NetworkError         = "networkError"
	IotConnectionTimeout = "iotConnectionTimeout"
)

// SensorDisconnected names the sensor that went quiet.
type SensorDisconnected struct {
	Type string `json:"type"`
}

// ConnectivityChanged carries one of the connectivity type values above.
type ConnectivityChanged struct {
	Type string `json:"type"`
}

// Emitter is the narrow publish side handed to producers.
type Emitter interface {
	Publish(topic Topic, payload any)
}

type Handler func(payload any)

// Bus is a typed callback registry. Producers publish without knowledge of
// subscriber count or identity.
type Bus struct {
	mu   sync.RWMutex
	subs map[Topic][]Handler
}

func NewBus() *Bus {
	return &Bus{subs: make(map[Topic][]Handler)}
}

func (b *Bus) Subscribe(topic Topic, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[topic] = append(b.subs[topic], h)
}

func (b *Bus) Publish(topic Topic, payload any) {
	b.mu.RLock()
	handlers := b.subs[topic]
	b.mu.RUnlock()
	for _, h := range handlers {
		h(payload)
	}
}
