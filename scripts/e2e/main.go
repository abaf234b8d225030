// End-to-end check against a running stack (Kafka, Postgres, the service).
// Steps:
// 1. Create a session through the REST API
// 2. Open a websocket and collect forwarded events
// 3. Publish a keep-alive and one reading per sensor to the stream
// 4. Verify the telemetry endpoint and liveness status reflect them
// 5. Tear the session down
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/websocket"
	"github.com/segmentio/kafka-go"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	base := envOr("API_BASE_URL", "http://localhost:8080")
	brokers := envOr("KAFKA_BROKERS", "localhost:9092")
	topic := envOr("KAFKA_TOPIC", "device-telemetry")
	deviceID := envOr("DEVICE_ID", "asset-tracker-01")

	// 1. Create a session; events published before this are dropped.
	payload, _ := json.Marshal(map[string]string{"userEmail": "e2e@example.com"})
	resp, err := http.Post(base+"/session", "application/json", bytes.NewBuffer(payload))
	if err != nil {
		panic(fmt.Errorf("failed to create session: %w", err))
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		panic(fmt.Errorf("unexpected session status: %s", resp.Status))
	}
	fmt.Println("session created")

	// 2. Collect forwarded events off the websocket.
	wsURL := "ws" + base[len("http"):] + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		panic(fmt.Errorf("failed to dial websocket: %w", err))
	}
	defer conn.Close()

	received := make(chan string, 32)
	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				close(received)
				return
			}
			var msg struct {
				Event string `json:"event"`
			}
			if json.Unmarshal(data, &msg) == nil {
				received <- msg.Event
			}
		}
	}()

	// 3. Publish a keep-alive and one reading per sensor.
	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers: []string{brokers},
		Topic:   topic,
	})
	defer writer.Close()

	ctx := context.Background()
	stamp := time.Now().UTC().Format(time.RFC3339)
	bodies := []map[string]any{
		{"msgtype": "keep-alive", "timestamp": stamp, "interval": []int{2, 3, 1, 4}},
		{"msgtype": "heat", "timestamp": stamp, "heat": map[string]any{
			"temperature": map[string]any{"value": 22.5, "unit": "C"}, "humidity": 45.0,
		}},
		{"msgtype": "wifi", "timestamp": stamp, "wifi": map[string]any{
			"macid": "84:fd:27:6a:b2:d1", "ssid": "lab", "rssi": -52,
		}},
		{"msgtype": "gps", "timestamp": stamp, "gps": map[string]any{
			"latitude": "12.9716N", "longitude": "77.5946E", "altitude": "920M", "satellites": 7,
		}},
		{"msgtype": "imu", "timestamp": stamp, "accelero": []float64{0.1, 0.2, 9.8}, "gyro": []float64{1.1, 1.2, 1.3}},
	}
	for _, body := range bodies {
		value, _ := json.Marshal(body)
		if err := writer.WriteMessages(ctx, kafka.Message{Key: []byte(deviceID), Value: value}); err != nil {
			panic(fmt.Errorf("failed to publish %v: %w", body["msgtype"], err))
		}
	}
	fmt.Println("published keep-alive and one reading per sensor")

	// Four sensor readings should be forwarded; the keep-alive is not.
	forwarded := 0
	timeout := time.After(30 * time.Second)
	for forwarded < 4 {
		select {
		case event, ok := <-received:
			if !ok {
				panic("websocket closed before all events arrived")
			}
			if event == "receiveMessage" {
				forwarded++
			}
		case <-timeout:
			panic(fmt.Errorf("timed out waiting for forwarded events, have %d", forwarded))
		}
	}
	fmt.Println("all four sensor events forwarded")

	// 4. The API should serve the persisted telemetry and a healthy status.
	for _, sensor := range []string{"heat", "wifi", "gps", "imu"} {
		resp, err := http.Get(base + "/telemetry/" + sensor)
		if err != nil {
			panic(err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		var telemetryResp struct {
			Events []json.RawMessage `json:"events"`
		}
		if err := json.Unmarshal(body, &telemetryResp); err != nil {
			panic(fmt.Errorf("bad telemetry response for %s: %w", sensor, err))
		}
		if len(telemetryResp.Events) == 0 {
			panic(fmt.Errorf("no persisted telemetry for %s", sensor))
		}
		fmt.Printf("telemetry/%s: %d events\n", sensor, len(telemetryResp.Events))
	}

	resp, err = http.Get(base + "/status")
	if err != nil {
		panic(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	var status struct {
		DeviceOK bool            `json:"deviceOk"`
		Sensors  map[string]bool `json:"sensors"`
	}
	if err := json.Unmarshal(body, &status); err != nil {
		panic(fmt.Errorf("bad status response: %w", err))
	}
	if !status.DeviceOK {
		panic("device reported down right after traffic")
	}
	for sensor, ok := range status.Sensors {
		if !ok {
			panic(fmt.Errorf("sensor %s reported down right after traffic", sensor))
		}
	}
	fmt.Println("liveness status healthy")

	// 5. Teardown; the evaluator reaps the telemetry on its next tick.
	req, _ := http.NewRequest(http.MethodDelete, base+"/session", nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		panic(err)
	}
	resp.Body.Close()
	fmt.Println("session deleted, e2e passed")
}
