package server

import (
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/gobwas/ws"

	"github.com/parley/chatd/internal/metrics"
)

// startHTTP binds the HTTP listener serving the WebSocket gateway, Prometheus
// metrics and the health endpoint.
func (s *Server) startHTTP() error {
	ln, err := net.Listen("tcp", s.cfg.HTTPAddr)
	if err != nil {
		return err
	}
	s.httpLn = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleUpgrade)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", metrics.Handler())

	s.httpSrv = &http.Server{Handler: mux}
	go func() {
		if err := s.httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("server: http serve: %v", err)
		}
	}()

	log.Printf("server: http listener on %s", ln.Addr())
	return nil
}

// handleUpgrade switches an HTTP request to a WebSocket connection and hands
// it to the same read loop the TCP listener uses.
func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		log.Printf("server: ws upgrade from %s: %v", r.RemoteAddr, err)
		return
	}
	go s.serve(newWSTransport(conn))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":      "ok",
		"connections": s.ConnCount(),
		"history":     s.history.Len(),
		"uptime":      time.Since(s.startedAt).String(),
	})
}
