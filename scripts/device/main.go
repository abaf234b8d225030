// Simulated asset-tracker device: publishes a keep-alive with the
// sampling cadence, then loops heat/wifi/gps/imu readings at that cadence
// until interrupted. For local end-to-end runs against the ingest service.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	defaultBrokers  = "localhost:9092"
	defaultTopic    = "device-telemetry"
	defaultDeviceID = "asset-tracker-01"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	brokers := envOr("KAFKA_BROKERS", defaultBrokers)
	topic := envOr("KAFKA_TOPIC", defaultTopic)
	deviceID := envOr("DEVICE_ID", defaultDeviceID)

	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers: []string{brokers},
		Topic:   topic,
	})
	defer writer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		cancel()
	}()

	send := func(payload map[string]any) {
		value, err := json.Marshal(payload)
		if err != nil {
			fmt.Printf("failed to marshal payload: %v\n", err)
			return
		}
		err = writer.WriteMessages(ctx, kafka.Message{Key: []byte(deviceID), Value: value})
		if err != nil {
			fmt.Printf("failed to write message: %v\n", err)
			return
		}
		fmt.Printf("sent %s message\n", payload["msgtype"])
	}

	stamp := func() string { return time.Now().UTC().Format(time.RFC3339) }

	// Raw interval units, order [wifi, heat, imu, gps]; the ingest side
	// multiplies by the per-sensor sampling constants.
	send(map[string]any{
		"msgtype":   "keep-alive",
		"timestamp": stamp(),
		"interval":  []int{2, 3, 1, 4},
	})

	ticker := time.NewTicker(4 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			fmt.Println("device simulator stopped")
			return
		case <-ticker.C:
			send(map[string]any{
				"msgtype":   "heat",
				"timestamp": stamp(),
				"heat": map[string]any{
					"temperature": map[string]any{"value": 21.0 + rand.Float64()*3, "unit": "C"},
					"humidity":    40.0 + rand.Float64()*10,
				},
			})
			send(map[string]any{
				"msgtype":   "wifi",
				"timestamp": stamp(),
				"wifi": map[string]any{
					"macid": "84:fd:27:6a:b2:d1",
					"ssid":  "si-labs-lab",
					"rssi":  -40 - rand.Intn(30),
				},
			})
			send(map[string]any{
				"msgtype":   "gps",
				"timestamp": stamp(),
				"gps": map[string]any{
					"latitude":   "12.9716N",
					"longitude":  "77.5946E",
					"altitude":   "920M",
					"satellites": 4 + rand.Intn(8),
				},
			})
			send(map[string]any{
				"msgtype":   "imu",
				"timestamp": stamp(),
				"accelero":  []float64{rand.Float64(), rand.Float64(), 9.8},
				"gyro":      []float64{rand.Float64(), rand.Float64(), rand.Float64()},
			})
		}
	}
}
