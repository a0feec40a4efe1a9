// Package main runs a demo WebSocket client for run events: it creates a
// small synthetic scenario, starts a smart run, and prints the streamed
// events.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

type wsMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	// Create a synthetic scenario
	scBody := []byte(`{"name":"ws-demo","depot":1,"synth":{"side":6,"spacing":120,"seed":7,"orders":8}}`)
	scResp := post(base+"/v1/scenarios", scBody)
	var sc struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(scResp, &sc); err != nil || sc.ID == "" {
		log.Fatalf("create scenario: %v (%s)", err, scResp)
	}
	log.Printf("Scenario ID: %s", sc.ID)

	// Connect WS before starting the run so no events are missed
	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/ws"}
	hdr := http.Header{}
	hdr.Set("X-Role", "admin")
	c, _, err := websocket.DefaultDialer.Dial(u.String(), hdr)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	if err := c.WriteJSON(wsMessage{Type: "connection_init"}); err != nil {
		log.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var m wsMessage
			if err := c.ReadJSON(&m); err != nil {
				log.Printf("read: %v", err)
				return
			}
			log.Printf("WS <- %s: %s", m.Type, string(m.Payload))
		}
	}()

	// The run id is assigned server side, so subscribe after the run starts.
	runBody := []byte(fmt.Sprintf(`{"scenarioId":%q,"mode":"smart","seed":42}`, sc.ID))
	runResp := post(base+"/v1/runs", runBody)
	var run struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(runResp, &run); err != nil || run.ID == "" {
		log.Fatalf("start run: %v (%s)", err, runResp)
	}
	log.Printf("Run ID: %s", run.ID)

	pl, _ := json.Marshal(map[string]any{"runId": run.ID})
	if err := c.WriteJSON(wsMessage{Type: "subscribe", ID: "1", Payload: pl}); err != nil {
		log.Fatal(err)
	}

	// Completed runs do not replay; this demo mainly exercises the
	// protocol handshake. Keep the socket open briefly for late events.
	select {
	case <-time.After(2 * time.Second):
	case <-done:
	}
}

func post(url string, body []byte) []byte {
	req, _ := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Role", "admin")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	return buf.Bytes()
}
