// Package health serves an HTTP status endpoint for long-running docroom
// sessions (docroom watch --listen).
package health

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/dyluth/docroom/internal/presence"
)

// Pinger checks transport connectivity. *room.RedisTransport satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server exposes GET /healthz and GET /presence.
type Server struct {
	pinger   Pinger
	facepile func() presence.Update
	server   *http.Server
}

// NewServer creates a server. pinger may be nil for transports without a
// remote side; facepile reports the current facepile.
func NewServer(pinger Pinger, facepile func() presence.Update) *Server {
	return &Server{pinger: pinger, facepile: facepile}
}

// Handler returns the routes without starting a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.healthCheckHandler)
	mux.HandleFunc("/presence", s.presenceHandler)
	return mux
}

// Start listens on addr and serves in the background. Returns once the
// listener is bound so address errors surface to the caller.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	s.server = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[Health] Server error: %v", err)
		}
	}()
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// HealthResponse is the JSON body of /healthz.
type HealthResponse struct {
	Status    string `json:"status"`
	Transport string `json:"transport,omitempty"`
	Error     string `json:"error,omitempty"`
}

// healthCheckHandler returns 200 when the transport answers and 503 otherwise.
func (s *Server) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := HealthResponse{Status: "healthy", Transport: "local"}
	status := http.StatusOK

	if s.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := s.pinger.Ping(ctx); err != nil {
			response = HealthResponse{Status: "unhealthy", Transport: "disconnected", Error: err.Error()}
			status = http.StatusServiceUnavailable
		} else {
			response.Transport = "connected"
		}
	}

	writeJSON(w, status, response)
}

func (s *Server) presenceHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.facepile())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[Health] Failed to write response: %v", err)
	}
}
