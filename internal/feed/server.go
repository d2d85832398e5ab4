package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/grovetools/slotsync/pkg/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// Endpoint paths served by the feed.
const (
	PathHealth  = "/health"
	PathSlots   = "/timeSlots"
	PathSSE     = "/sse"
	PathWS      = "/ws"
	PathUpdates = "/updates"
	PathStats   = "/stats"
)

const wsWriteTimeout = 10 * time.Second

// Server exposes a Hub over HTTP.
type Server struct {
	hub      *Hub
	logger   *logrus.Entry
	upgrader websocket.Upgrader

	mu     sync.Mutex
	server *http.Server
	ctx    context.Context
	cancel context.CancelFunc
}

// NewServer creates a server for hub.
func NewServer(hub *Hub, logger *logrus.Entry) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		ctx:    ctx,
		cancel: cancel,
	}
}

// Handler returns the routes wrapped for cleartext HTTP/2.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc(PathHealth, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc(PathSlots, s.handleSlots)
	mux.HandleFunc(PathSSE, s.handleSSE)
	mux.HandleFunc(PathWS, s.handleWebSocket)
	mux.HandleFunc(PathUpdates, s.handlePublish)
	mux.HandleFunc(PathStats, s.handleStats)

	return h2c.NewHandler(mux, &http2.Server{})
}

// ListenAndServe serves on addr until Shutdown.
func (s *Server) ListenAndServe(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(listener)
}

// Serve serves on l until Shutdown.
func (s *Server) Serve(l net.Listener) error {
	s.mu.Lock()
	s.server = &http.Server{
		Handler:     s.Handler(),
		BaseContext: func(net.Listener) context.Context { return s.ctx },
	}
	srv := s.server
	s.mu.Unlock()

	s.logger.WithField("addr", l.Addr().String()).Info("Feed listening")
	if err := srv.Serve(l); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown ends open streams and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down feed...")
	s.cancel()

	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv != nil {
		return srv.Shutdown(ctx)
	}
	return nil
}

// handleSlots returns the raw records. Key spellings alternate between
// records the way the production API mixes them.
func (s *Server) handleSlots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	slots := s.hub.Slots()
	records := make([]map[string]interface{}, 0, len(slots))
	for i, slot := range slots {
		records = append(records, rawRecord(slot, i%2 == 1))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(records)
}

func rawRecord(slot models.TimeSlot, snake bool) map[string]interface{} {
	start := slot.StartTime.Format(time.RFC3339)
	end := slot.EndTime.Format(time.RFC3339)
	if snake {
		return map[string]interface{}{
			"id":         slot.ID,
			"start_time": start,
			"end_time":   end,
			"category":   string(slot.Category),
			"capacity": map[string]int{
				"current_capacity": slot.Capacity.Current,
				"max_capacity":     slot.Capacity.Max,
			},
		}
	}
	return map[string]interface{}{
		"id":        slot.ID,
		"startTime": start,
		"endTime":   end,
		"category":  string(slot.Category),
		"capacity": map[string]int{
			"current": slot.Capacity.Current,
			"maximum": slot.Capacity.Max,
		},
	}
}

// handleSSE streams one data frame per update.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := s.hub.Subscribe()
	defer s.hub.Unsubscribe(ch)

	fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()

	s.logger.Debug("SSE client connected")

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE client disconnected")
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				s.logger.WithError(err).Error("Failed to marshal update")
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

// handleWebSocket sends one text message per update.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	ch := s.hub.Subscribe()
	defer s.hub.Unsubscribe(ch)

	s.logger.Debug("WebSocket client connected")

	// The read loop processes control frames and notices the peer leaving.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-r.Context().Done():
			deadline := time.Now().Add(wsWriteTimeout)
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), deadline)
			return
		case <-gone:
			s.logger.Debug("WebSocket client disconnected")
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				s.logger.WithError(err).Debug("WebSocket write failed")
				return
			}
		}
	}
}

// handlePublish injects an update, e.g. `curl -d '{"id":1,"currentCapacity":4}'`.
func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var ev models.UpdateEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	s.hub.Publish(ev)
	s.logger.WithField("slot_id", ev.ID).Debug("Update injected")
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.hub.Stats())
}
