// Command seeddemo submits a demo tour against a running server and
// polls it to completion, printing the status transitions. Useful for
// smoke-testing a deployment end to end.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"
)

var (
	baseURL  = flag.String("url", "http://localhost:8420", "Server base URL")
	location = flag.String("location", "Central Park, New York", "Location name")
	duration = flag.Int("duration", 30, "Tour duration in minutes")
	token    = flag.String("token", "", "Bearer token (empty for demo mode)")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "seeddemo failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	client := &http.Client{Timeout: 30 * time.Second}

	body, _ := json.Marshal(map[string]any{
		"location_name":    *location,
		"duration_minutes": *duration,
		"interests":        []string{"history", "architecture"},
	})
	var submitted struct {
		TourID string `json:"tour_id"`
		Status string `json:"status"`
	}
	if err := call(client, "POST", *baseURL+"/api/tours/generate", body, &submitted); err != nil {
		return err
	}
	fmt.Printf("submitted tour %s (%s)\n", submitted.TourID, submitted.Status)

	deadline := time.Now().Add(5 * time.Minute)
	last := ""
	for time.Now().Before(deadline) {
		var sv struct {
			Status     string `json:"status"`
			Progress   int    `json:"progress"`
			HasAudio   bool   `json:"has_audio"`
			ErrorCause string `json:"error_cause"`
		}
		if err := call(client, "GET", fmt.Sprintf("%s/api/tours/%s/status", *baseURL, submitted.TourID), nil, &sv); err != nil {
			return err
		}
		if sv.Status != last {
			fmt.Printf("status: %s (%d%%)\n", sv.Status, sv.Progress)
			last = sv.Status
		}
		if sv.Status == "error" {
			return fmt.Errorf("tour failed: %s", sv.ErrorCause)
		}
		if sv.Status == "ready" {
			fmt.Printf("done, audio at %s/api/tours/%s/audio\n", *baseURL, submitted.TourID)
			return nil
		}
		time.Sleep(2 * time.Second)
	}
	return fmt.Errorf("tour did not finish within 5 minutes")
}

func call(client *http.Client, method, url string, body []byte, out any) error {
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if *token != "" {
		req.Header.Set("Authorization", "Bearer "+*token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var e map[string]string
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return fmt.Errorf("%s %s: %d %s", method, url, resp.StatusCode, e["error"])
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
