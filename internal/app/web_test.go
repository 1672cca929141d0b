// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/sts_counter/internal/cycle"
	"github.com/relabs-tech/sts_counter/internal/session"
	"github.com/relabs-tech/sts_counter/internal/transport"
)

type wsEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func newTestWeb(t *testing.T) (*webServer, *recorder, *httptest.Server) {
	t.Helper()
	rec := &recorder{}
	s := newWebServer(testConfig(t), rec)
	srv := httptest.NewServer(s.routes())
	t.Cleanup(srv.Close)
	return s, rec, srv
}

func TestWebSessionEndpoint(t *testing.T) {
	s, _, srv := newTestWeb(t)

	resp, err := http.Get(srv.URL + "/api/session")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	s.onStatus(session.Status{Mode: session.ModeBoth, Running: true, State: cycle.Standing, Count: 3, Clock: "00:12"})
	s.onCycle(transport.CycleEvent{Count: 3, Mode: "both", TimestampMs: 14000})

	resp, err = http.Get(srv.URL + "/api/session")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Status    session.Status       `json:"status"`
		LastCycle transport.CycleEvent `json:"last_cycle"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, cycle.Standing, body.Status.State)
	require.Equal(t, 3, body.Status.Count)
	require.Equal(t, int64(14000), body.LastCycle.TimestampMs)
}

func TestWebResultEndpoint(t *testing.T) {
	s, _, srv := newTestWeb(t)

	resp, err := http.Get(srv.URL + "/api/result")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	s.onResult(session.Result{Type: session.TestType, Repetitions: 11, TotalTime: "00:30"})

	resp, err = http.Get(srv.URL + "/api/result")
	require.NoError(t, err)
	defer resp.Body.Close()
	var res session.Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	require.Equal(t, 11, res.Repetitions)
	require.Equal(t, "TTSTS", res.Type)
}

func TestWebControlEndpoint(t *testing.T) {
	_, rec, srv := newTestWeb(t)

	resp, err := http.Post(srv.URL+"/api/control", "application/json", strings.NewReader(`{"action":"start","patient":"Rui"}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	require.Len(t, rec.msgs, 1)
	require.Equal(t, "sts/control", rec.msgs[0].topic)
	require.Equal(t, transport.Control{Action: transport.ActionStart, Patient: "Rui"}, rec.msgs[0].value)

	for _, body := range []string{`{"action":"fly"}`, `not json`} {
		resp, err = http.Post(srv.URL+"/api/control", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
	}

	resp, err = http.Get(srv.URL + "/api/control")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	require.Len(t, rec.msgs, 1)
}

func TestWebSocketStreamsEvents(t *testing.T) {
	s, rec, srv := newTestWeb(t)
	s.onStatus(session.Status{State: cycle.Seated, Clock: "00:30"})

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/session"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var env wsEnvelope
	require.NoError(t, conn.ReadJSON(&env))
	require.Equal(t, "status", env.Type)
	require.Equal(t, 1, s.hub.Clients())

	s.onCycle(transport.CycleEvent{Count: 1, Mode: "peak", TimestampMs: 6220})
	require.NoError(t, conn.ReadJSON(&env))
	require.Equal(t, "cycle", env.Type)
	var ev transport.CycleEvent
	require.NoError(t, json.Unmarshal(env.Data, &ev))
	require.Equal(t, 1, ev.Count)

	// Controls sent over the socket reach the control topic.
	require.NoError(t, conn.WriteJSON(transport.Control{Action: transport.ActionPause}))
	require.Eventually(t, func() bool {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		return len(rec.msgs) == 1
	}, 5*time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return s.hub.Clients() == 0 }, 5*time.Second, 10*time.Millisecond)
}
