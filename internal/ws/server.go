package ws

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/floorlink/backend/internal/command"
	"github.com/floorlink/backend/internal/config"
	"github.com/floorlink/backend/internal/metrics"
	"github.com/floorlink/backend/internal/session"
	"github.com/floorlink/backend/internal/subscription"
)

// Server accepts websocket connections and runs one read worker per
// connection. Commands dispatch in receipt order within a connection;
// different connections' workers run concurrently.
type Server struct {
	cfg        config.ServerConfig
	registry   *session.Registry
	index      *subscription.Index
	dispatcher *command.Dispatcher
	metrics    *metrics.Metrics
	gatherer   prometheus.Gatherer

	allowedOrigins map[string]bool
	allowedHosts   map[string]bool
	startedAt      time.Time
}

func NewServer(cfg config.ServerConfig, registry *session.Registry, index *subscription.Index, dispatcher *command.Dispatcher, m *metrics.Metrics, gatherer prometheus.Gatherer) *Server {
	s := &Server{
		cfg:            cfg,
		registry:       registry,
		index:          index,
		dispatcher:     dispatcher,
		metrics:        m,
		gatherer:       gatherer,
		allowedOrigins: make(map[string]bool),
		allowedHosts:   make(map[string]bool),
		startedAt:      time.Now(),
	}

	for _, origin := range cfg.AllowedOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		s.allowedOrigins[trimmed] = true
		if parsed, err := url.Parse(trimmed); err == nil && parsed.Host != "" {
			s.allowedHosts[parsed.Host] = true
		}
	}

	return s
}

func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: s.checkOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("ws upgrade failed")
		return
	}

	c := newClient(conn, s.cfg.SendBuffer, func() {
		if s.metrics != nil {
			s.metrics.DroppedClients.Inc()
		}
	})
	sess := s.registry.Register(c)
	if s.metrics != nil {
		s.metrics.SessionsLive.Inc()
	}
	log.Info().
		Str("session", sess.ID).
		Str("remote", r.RemoteAddr).
		Msg("connection opened")

	go s.readLoop(sess, c, conn, r.RemoteAddr)
}

// readLoop is the connection's worker: it handles inbound commands strictly
// in receipt order and tears the session down on any read error. Teardown is
// idempotent against a concurrent slow-client drop.
func (s *Server) readLoop(sess *session.Session, c *client, conn *websocket.Conn, remote string) {
	defer func() {
		s.registry.Close(sess.ID)
		c.close()
		conn.Close()
		if s.metrics != nil {
			s.metrics.SessionsLive.Dec()
		}
		log.Info().
			Str("session", sess.ID).
			Str("remote", remote).
			Msg("connection closed")
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var header frameHeader
		if err := json.Unmarshal(data, &header); err != nil || header.Type == "" {
			_ = c.Send(&command.Response{
				MessageID:     header.MessageID,
				Status:        command.StatusFail,
				StatusMessage: "Malformed frame",
			})
			continue
		}

		resp := s.dispatcher.Dispatch(sess, command.Request{
			MessageID: header.MessageID,
			Type:      header.Type,
			Raw:       data,
		})
		if resp != nil {
			if err := c.Send(resp); err != nil {
				return
			}
		}
	}
}

func (s *Server) authorize(r *http.Request) bool {
	if s.cfg.AuthToken == "" {
		return true
	}
	if r.URL.Query().Get("token") == s.cfg.AuthToken {
		return true
	}
	if r.Header.Get("X-Floorlink-Token") == s.cfg.AuthToken {
		return true
	}
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.cfg.AuthToken
}

// checkOrigin allows same-host and loopback origins by default, or exactly
// the configured allow-list when one is set.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	if len(s.allowedOrigins) > 0 {
		if s.allowedOrigins[origin] {
			return true
		}
		if parsed, err := url.Parse(origin); err == nil && parsed.Host != "" {
			return s.allowedHosts[parsed.Host]
		}
		return false
	}

	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}
	host := parsed.Host
	if host == r.Host {
		return true
	}
	for _, loop := range []string{"localhost", "127.0.0.1", "[::1]"} {
		if host == loop || strings.HasPrefix(host, loop+":") {
			return true
		}
	}
	return host == "::1"
}

func ListenAndServe(host string, port int, mux *http.ServeMux) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	log.Info().Str("addr", addr).Msg("server listening")
	return http.ListenAndServe(addr, mux)
}
