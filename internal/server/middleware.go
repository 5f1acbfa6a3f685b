package server

import (
	"fmt"
	"net/http"
	"sync"
	"time"
)

// RateLimiter is a per-connection sliding window limiter.
type RateLimiter struct {
	maxRequests int
	window      time.Duration
	requests    map[string][]time.Time // connectionID -> timestamps of recent requests
	mu          sync.Mutex
}

func NewRateLimiter(maxRequests int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		maxRequests: maxRequests,
		window:      window,
		requests:    make(map[string][]time.Time),
	}
}

// Allow records a request and reports whether it fits in the window.
func (r *RateLimiter) Allow(connectionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-r.window)

	timestamps := r.requests[connectionID]
	valid := make([]time.Time, 0, len(timestamps)+1)
	for _, ts := range timestamps {
		if ts.After(cutoff) {
			valid = append(valid, ts)
		}
	}

	if len(valid) >= r.maxRequests {
		r.requests[connectionID] = valid
		return false
	}

	r.requests[connectionID] = append(valid, now)
	return true
}

// Cleanup drops connections with no request inside the window.
func (r *RateLimiter) Cleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-r.window)
	for connID, timestamps := range r.requests {
		if len(timestamps) == 0 || !timestamps[len(timestamps)-1].After(cutoff) {
			delete(r.requests, connID)
		}
	}
}

func (r *RateLimiter) RemoveConnection(connectionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.requests, connectionID)
}

// ConnectionHealth tracks the last message time of each connection.
type ConnectionHealth struct {
	lastActivity map[string]time.Time
	mu           sync.RWMutex
}

func NewConnectionHealth() *ConnectionHealth {
	return &ConnectionHealth{
		lastActivity: make(map[string]time.Time),
	}
}

func (h *ConnectionHealth) UpdateActivity(connectionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastActivity[connectionID] = time.Now()
}

// IsInactive is false for connections that were never seen.
func (h *ConnectionHealth) IsInactive(connectionID string, timeout time.Duration) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	lastActivity, exists := h.lastActivity[connectionID]
	if !exists {
		return false
	}
	return time.Since(lastActivity) > timeout
}

func (h *ConnectionHealth) GetInactiveConnections(timeout time.Duration) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	inactive := make([]string, 0)
	now := time.Now()
	for connID, lastActivity := range h.lastActivity {
		if now.Sub(lastActivity) > timeout {
			inactive = append(inactive, connID)
		}
	}
	return inactive
}

func (h *ConnectionHealth) RemoveConnection(connectionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.lastActivity, connectionID)
}

var validMessageTypes = map[string]bool{
	MsgPing:    true,
	MsgJoin:    true,
	MsgStart:   true,
	MsgPlay:    true,
	MsgDraw:    true,
	MsgRestart: true,
	MsgLeave:   true,
}

func ValidateMessageType(msgType string) error {
	if !validMessageTypes[msgType] {
		return fmt.Errorf("INVALID_MESSAGE_TYPE: Unknown message type '%s'", msgType)
	}
	return nil
}

// corsMiddleware allows browser clients served from any origin.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, PATCH")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-CSRF-Token")
		w.Header().Set("Access-Control-Allow-Credentials", "false")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
