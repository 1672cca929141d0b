// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/sts_counter/internal/config"
	"github.com/relabs-tech/sts_counter/internal/session"
	"github.com/relabs-tech/sts_counter/internal/transport"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// liveSession caches the latest events seen on MQTT.
type liveSession struct {
	mu         sync.RWMutex
	status     *session.Status
	lastCycle  *transport.CycleEvent
	lastResult *session.Result
}

func (l *liveSession) setStatus(st session.Status) {
	l.mu.Lock()
	l.status = &st
	l.mu.Unlock()
}

func (l *liveSession) setCycle(ev transport.CycleEvent) {
	l.mu.Lock()
	l.lastCycle = &ev
	l.mu.Unlock()
}

func (l *liveSession) setResult(res session.Result) {
	l.mu.Lock()
	l.lastResult = &res
	l.mu.Unlock()
}

// Hub fans session events out to every connected browser.
type Hub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

func NewHub() *Hub {
	return &Hub{conns: make(map[*websocket.Conn]struct{})}
}

// Broadcast writes env to all clients, dropping the ones that fail.
func (h *Hub) Broadcast(env transport.Envelope) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		if err := conn.WriteJSON(env); err != nil {
			log.Printf("web: websocket write error: %v", err)
			conn.Close()
			delete(h.conns, conn)
		}
	}
}

// Clients returns the number of connected browsers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

func (h *Hub) add(conn *websocket.Conn, hello transport.Envelope) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn] = struct{}{}
	return conn.WriteJSON(hello)
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[conn]; ok {
		delete(h.conns, conn)
		conn.Close()
	}
}

type webServer struct {
	cfg     *config.Config
	live    *liveSession
	hub     *Hub
	control transport.Publisher
}

func newWebServer(cfg *config.Config, control transport.Publisher) *webServer {
	return &webServer{cfg: cfg, live: &liveSession{}, hub: NewHub(), control: control}
}

func (s *webServer) onStatus(st session.Status) {
	s.live.setStatus(st)
	s.hub.Broadcast(transport.Envelope{Type: "status", Data: st})
}

func (s *webServer) onCycle(ev transport.CycleEvent) {
	s.live.setCycle(ev)
	s.hub.Broadcast(transport.Envelope{Type: "cycle", Data: ev})
}

func (s *webServer) onResult(res session.Result) {
	s.live.setResult(res)
	s.hub.Broadcast(transport.Envelope{Type: "result", Data: res})
}

func (s *webServer) sendControl(ctl transport.Control) error {
	if err := ctl.Validate(); err != nil {
		return err
	}
	return s.control.Publish(s.cfg.TopicControl, ctl)
}

func (s *webServer) routes() *http.ServeMux {
	mux := http.NewServeMux()

	// JSON API endpoint: latest session status
	mux.HandleFunc("/api/session", func(w http.ResponseWriter, r *http.Request) {
		s.live.mu.RLock()
		defer s.live.mu.RUnlock()

		if s.live.status == nil {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, struct {
			Status    *session.Status       `json:"status"`
			LastCycle *transport.CycleEvent `json:"last_cycle,omitempty"`
		}{s.live.status, s.live.lastCycle})
	})

	mux.HandleFunc("/api/result", func(w http.ResponseWriter, r *http.Request) {
		s.live.mu.RLock()
		defer s.live.mu.RUnlock()

		if s.live.lastResult == nil {
			http.Error(w, "no finished session yet", http.StatusNotFound)
			return
		}
		writeJSON(w, s.live.lastResult)
	})

	mux.HandleFunc("/api/control", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var ctl transport.Control
		if err := json.NewDecoder(r.Body).Decode(&ctl); err != nil {
			http.Error(w, fmt.Sprintf("bad control payload: %v", err), http.StatusBadRequest)
			return
		}
		if err := s.sendControl(ctl); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	})

	mux.HandleFunc("/ws/session", s.handleWS)

	// Static files from ./web as the root
	mux.Handle("/", http.FileServer(http.Dir("web")))
	return mux
}

// handleWS streams events to the browser and accepts control messages
// back on the same socket.
func (s *webServer) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade error: %v", err)
		return
	}

	s.live.mu.RLock()
	hello := transport.Envelope{Type: "status", Data: s.live.status}
	s.live.mu.RUnlock()
	if err := s.hub.add(conn, hello); err != nil {
		log.Printf("web: websocket hello error: %v", err)
		s.hub.remove(conn)
		return
	}
	defer s.hub.remove(conn)

	for {
		var ctl transport.Control
		if err := conn.ReadJSON(&ctl); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("web: websocket read error: %v", err)
			}
			return
		}
		if err := s.sendControl(ctl); err != nil {
			log.Printf("web: control from browser rejected: %v", err)
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("web: json encode error: %v", err)
	}
}

// RunWeb serves the live session page and API, fed from MQTT.
func RunWeb() error {
	cfg := config.Get()

	client, err := transport.Connect(cfg.MQTTBroker, cfg.MQTTClientIDWeb)
	if err != nil {
		return err
	}
	defer client.Close()

	srv := newWebServer(cfg, client)
	if err := transport.Subscribe(client, cfg.TopicState, srv.onStatus); err != nil {
		return err
	}
	if err := transport.Subscribe(client, cfg.TopicCycle, srv.onCycle); err != nil {
		return err
	}
	if err := transport.Subscribe(client, cfg.TopicResult, srv.onResult); err != nil {
		return err
	}

	addr := fmt.Sprintf(":%d", cfg.WebServerPort)
	log.Printf("web: server listening on %s", addr)
	return http.ListenAndServe(addr, srv.routes())
}
