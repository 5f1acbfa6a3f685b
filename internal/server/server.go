package server

import (
	"context"
	"net/http"
	"time"

	"uno-server/internal/config"
	"uno-server/internal/database"

	"github.com/coder/websocket"
	"k8s.io/klog/v2"
)

const cleanupInterval = time.Minute

type Server struct {
	cfg               config.Config
	db                database.Service
	connectionManager *ConnectionManager
	gameManager       *GameManager
	rateLimiter       *RateLimiter
	connectionHealth  *ConnectionHealth

	stopCleanup context.CancelFunc
}

// New wires the engine to the websocket transport without starting any
// background task.
func New(cfg config.Config, db database.Service) *Server {
	connectionManager := NewConnectionManager()
	return &Server{
		cfg:               cfg,
		db:                db,
		connectionManager: connectionManager,
		gameManager: NewGameManager(connectionManager, Options{
			OpponentDelay:    cfg.OpponentDelay,
			AutoStartPlayers: cfg.AutoStartPlayers,
			MaxPlayers:       cfg.MaxPlayers,
		}),
		rateLimiter:      NewRateLimiter(cfg.RateLimit, cfg.RateWindow),
		connectionHealth: NewConnectionHealth(),
		stopCleanup:      func() {},
	}
}

// NewServer builds the server, starts its cleanup task and returns the HTTP
// server that serves it.
func NewServer(cfg config.Config, db database.Service) (*Server, *http.Server) {
	s := New(cfg, db)

	ctx, cancel := context.WithCancel(context.Background())
	s.stopCleanup = cancel
	go s.cleanupTask(ctx)

	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           s.RegisterRoutes(),
		IdleTimeout:       time.Minute,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, httpServer
}

func (s *Server) GameManager() *GameManager {
	return s.gameManager
}

// cleanupTask closes idle websockets and prunes rate limiter state.
func (s *Server) cleanupTask(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.closeIdleConnections()
			s.rateLimiter.Cleanup()
		}
	}
}

func (s *Server) closeIdleConnections() {
	if s.cfg.IdleTimeout <= 0 {
		return
	}
	for _, id := range s.connectionHealth.GetInactiveConnections(s.cfg.IdleTimeout) {
		// Activity may have arrived since the scan.
		if !s.connectionHealth.IsInactive(id, s.cfg.IdleTimeout) {
			continue
		}
		conn := s.connectionManager.GetConnection(id)
		s.connectionHealth.RemoveConnection(id)
		if conn == nil {
			continue
		}
		klog.Infof("Connection %s idle for over %s, closing", id, s.cfg.IdleTimeout)
		// The read loop sees the close and runs the usual leave path.
		conn.Close(websocket.StatusPolicyViolation, "Idle timeout")
	}
}

// Shutdown stops game tasks, tells every player and closes their sockets.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopCleanup()
	s.gameManager.Shutdown()

	// Give the writers a moment to flush the shutdown notice.
	select {
	case <-ctx.Done():
	case <-time.After(250 * time.Millisecond):
	}

	s.connectionManager.CloseAll(websocket.StatusGoingAway, "Server shutting down")
	s.db.Close()
	klog.Info("Game server shut down")
	return ctx.Err()
}
