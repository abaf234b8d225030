// Smoke client for the REST surface: logs in, polls recent telemetry and
// liveness status, then logs out. Run it next to the device simulator.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

func baseURL() string {
	if v := os.Getenv("API_BASE_URL"); v != "" {
		return v
	}
	return "http://localhost:8080"
}

func main() {
	base := baseURL()

	// 1. POST /session
	payload, _ := json.Marshal(map[string]string{"userEmail": "smoke@example.com"})
	resp, err := http.Post(base+"/session", "application/json", bytes.NewBuffer(payload))
	if err != nil {
		panic(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	fmt.Println("POST /session status:", resp.Status)
	fmt.Println("POST /session body:", string(body))
	if resp.StatusCode != http.StatusCreated {
		os.Exit(1)
	}

	// Give the ingest pipeline a moment to admit device traffic.
	fmt.Println("waiting 10s for device traffic...")
	time.Sleep(10 * time.Second)

	// 2. GET /telemetry/{type} for each sensor
	for _, sensor := range []string{"heat", "wifi", "gps", "imu"} {
		resp, err := http.Get(base + "/telemetry/" + sensor + "?limit=5")
		if err != nil {
			panic(err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		fmt.Printf("GET /telemetry/%s status: %s\n", sensor, resp.Status)
		fmt.Printf("GET /telemetry/%s body: %s\n", sensor, string(body))
	}

	// 3. GET /status
	resp, err = http.Get(base + "/status")
	if err != nil {
		panic(err)
	}
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	fmt.Println("GET /status status:", resp.Status)
	fmt.Println("GET /status body:", string(body))

	// 4. DELETE /session
	req, _ := http.NewRequest(http.MethodDelete, base+"/session", nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		panic(err)
	}
	resp.Body.Close()
	fmt.Println("DELETE /session status:", resp.Status)
}
