// Package server accepts chat clients over raw TCP and WebSocket, runs one
// read loop per connection, and dispatches parsed requests against the shared
// history and user directory.
package server

import (
	"context"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/parley/chatd/internal/chat"
	"github.com/parley/chatd/internal/config"
	"github.com/parley/chatd/internal/directory"
	"github.com/parley/chatd/internal/messaging"
	"github.com/parley/chatd/internal/metrics"
	"github.com/parley/chatd/internal/moderation"
	"github.com/parley/chatd/internal/ratelimit"
	"github.com/parley/chatd/internal/store"
)

// Server owns the listeners and the per-connection read loops. All chat state
// lives in the injected history and directory; the server only orchestrates.
type Server struct {
	cfg     config.Config
	dir     *directory.Directory
	history *chat.History
	saver   *store.Saver
	limiter *ratelimit.Limiter // nil when Redis is not configured
	events  *messaging.Client  // nil when NATS is not configured
	filter  *moderation.Filter // nil when moderation is disabled

	// postMu orders Append + FanOut pairs so broadcast delivery matches
	// history order. Socket writes happen after it is released.
	postMu sync.Mutex

	mu       sync.Mutex
	conns    map[string]*Conn
	listener net.Listener
	httpLn   net.Listener
	httpSrv  *http.Server
	closed   bool

	startedAt time.Time
}

// New creates a Server around the shared state. limiter and events may be nil.
func New(cfg config.Config, dir *directory.Directory, history *chat.History,
	saver *store.Saver, limiter *ratelimit.Limiter, events *messaging.Client) *Server {

	s := &Server{
		cfg:       cfg,
		dir:       dir,
		history:   history,
		saver:     saver,
		limiter:   limiter,
		events:    events,
		conns:     make(map[string]*Conn),
		startedAt: time.Now(),
	}
	if cfg.ModerationEnabled {
		s.filter = moderation.NewFilter()
	}
	return s
}

// Start opens the TCP and HTTP listeners and begins accepting clients. It
// returns once both listeners are bound; serving continues in background
// goroutines until Shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return err
	}
	s.listener = ln
	log.Printf("server: chat listener on %s", ln.Addr())

	if err := s.startHTTP(); err != nil {
		ln.Close()
		return err
	}

	go s.acceptLoop()
	return nil
}

// Addr returns the bound chat listener address, useful when configured
// with port 0.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// HTTPAddr returns the bound HTTP listener address.
func (s *Server) HTTPAddr() string {
	if s.httpLn == nil {
		return ""
	}
	return s.httpLn.Addr().String()
}

// ConnCount returns the number of open client connections.
func (s *Server) ConnCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Shutdown stops the listeners and closes every open connection.
func (s *Server) Shutdown(ctx context.Context) {
	s.mu.Lock()
	s.closed = true
	open := make([]*Conn, 0, len(s.conns))
	for _, c := range s.conns {
		open = append(open, c)
	}
	s.mu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	if s.httpSrv != nil {
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			log.Printf("server: http shutdown: %v", err)
		}
	}
	for _, c := range open {
		c.t.Close()
	}
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if closed {
				return
			}
			log.Printf("server: accept: %v", err)
			continue
		}
		go s.serve(newTCPTransport(conn, s.cfg.MaxRequestBytes))
	}
}

// serve runs the read loop for one connection until the client disconnects,
// the idle deadline fires, or the server shuts down.
func (s *Server) serve(t transport) {
	c := &Conn{ID: uuid.New().String(), t: t}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		t.Close()
		return
	}
	s.conns[c.ID] = c
	total := len(s.conns)
	s.mu.Unlock()

	metrics.ConnectionsTotal.Inc()
	log.Printf("server: connection opened id=%s remote=%s (open=%d)", c.ID, t.RemoteAddr(), total)

	defer func() {
		if c.name != "" {
			s.dir.Detach(c.name, c.ID)
			log.Printf("server: user %q disconnected id=%s", c.name, c.ID)
		} else {
			log.Printf("server: unregistered connection closed id=%s", c.ID)
		}
		s.mu.Lock()
		delete(s.conns, c.ID)
		s.mu.Unlock()
		metrics.ConnectionsTotal.Dec()
		t.Close()
	}()

	for {
		if s.cfg.ReadTimeout.Std() > 0 {
			if err := t.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout.Std())); err != nil {
				return
			}
		}
		line, err := t.ReadRequest()
		if err != nil {
			return
		}
		s.dispatch(c, line)
		s.saver.Trigger()
	}
}
