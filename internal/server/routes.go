package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"uno-server/internal/database"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
	"k8s.io/klog/v2"
)

const (
	qrSize               = 320
	maxFeedbackBodyBytes = 16 << 10
	defaultFeedbackLimit = 50
	maxFeedbackLimit     = 200
)

func (s *Server) RegisterRoutes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	r.Get("/websocket", s.websocketHandler)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Logger)
		r.Use(middleware.Timeout(15 * time.Second))

		r.Get("/", s.HelloWorldHandler)
		r.Get("/health", s.healthHandler)

		r.Route("/rooms", func(r chi.Router) {
			r.Get("/", s.roomsHandler)
			r.Get("/{roomID}/invite.png", s.inviteHandler)
		})

		r.Route("/feedback", func(r chi.Router) {
			r.Post("/", s.createFeedbackHandler)
			r.Get("/", s.listFeedbackHandler)
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	resp, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(resp); err != nil {
		klog.Errorf("Failed to write response: %v", err)
	}
}

func (s *Server) HelloWorldHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Hello World"})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	health := s.db.Health()
	health["connections"] = strconv.Itoa(s.connectionManager.Count())
	health["sessions"] = strconv.Itoa(len(s.gameManager.Sessions().GetAllSessions()))
	writeJSON(w, http.StatusOK, health)
}

func (s *Server) roomsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Roster{Rooms: s.gameManager.Roster()})
}

// inviteHandler renders a QR code linking to the room.
func (s *Server) inviteHandler(w http.ResponseWriter, r *http.Request) {
	roomID := NormalizeRoomID(chi.URLParam(r, "roomID"))
	if ValidateRoomID(roomID) != nil || !s.gameManager.RoomExists(roomID) {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}

	png, err := qrcode.Encode(s.inviteURL(r, roomID), qrcode.Medium, qrSize)
	if err != nil {
		klog.Errorf("QR generation for room %s failed: %v", roomID, err)
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(png)
}

// inviteURL is public_url?room=ID, falling back to the request's own host.
func (s *Server) inviteURL(r *http.Request, roomID string) string {
	base := s.cfg.PublicURL
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}
		base = scheme + "://" + r.Host
	}
	return base + "/?room=" + url.QueryEscape(roomID)
}

func (s *Server) createFeedbackHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFeedbackBodyBytes)

	var fb database.Feedback
	if err := json.NewDecoder(r.Body).Decode(&fb); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorMessage{Message: "Invalid JSON", Code: "INVALID_PAYLOAD"})
		return
	}
	if err := fb.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorMessage{Message: err.Error(), Code: errorCode(err)})
		return
	}

	saved, err := s.db.CreateFeedback(r.Context(), fb)
	switch {
	case errors.Is(err, database.ErrUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, ErrorMessage{Message: err.Error(), Code: errorCode(err)})
		return
	case err != nil:
		klog.Errorf("Saving feedback failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, ErrorMessage{Message: "Failed to save feedback", Code: "INTERNAL_ERROR"})
		return
	}

	klog.Infof("Feedback %d received from %q", saved.ID, saved.Name)
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "id": saved.ID})
}

func (s *Server) listFeedbackHandler(w http.ResponseWriter, r *http.Request) {
	limit := defaultFeedbackLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, ErrorMessage{Message: "limit must be a positive integer", Code: "INVALID_LIMIT"})
			return
		}
		limit = min(n, maxFeedbackLimit)
	}

	feedback, err := s.db.ListFeedback(r.Context(), limit)
	switch {
	case errors.Is(err, database.ErrUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, ErrorMessage{Message: err.Error(), Code: errorCode(err)})
		return
	case err != nil:
		klog.Errorf("Listing feedback failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, ErrorMessage{Message: "Failed to load feedback", Code: "INTERNAL_ERROR"})
		return
	}
	if feedback == nil {
		feedback = []database.Feedback{}
	}
	writeJSON(w, http.StatusOK, feedback)
}

// ============================================================================
// WEBSOCKET
// ============================================================================

func (s *Server) websocketHandler(w http.ResponseWriter, r *http.Request) {
	socket, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		klog.Errorf("Failed to open websocket: %v", err)
		return
	}
	defer socket.Close(websocket.StatusGoingAway, "Server closing")

	ctx := r.Context()

	connectionID := uuid.New().String()
	klog.Infof("New connection: %s", connectionID)
	s.connectionManager.AddConnection(ctx, connectionID, socket)
	s.connectionHealth.UpdateActivity(connectionID)
	defer func() {
		if err := s.gameManager.Leave(connectionID); err != nil && !errors.Is(err, ErrNotInRoom) {
			klog.Errorf("Connection %s: leave on disconnect: %v", connectionID, err)
		}
		s.connectionManager.RemoveConnection(connectionID)
		s.rateLimiter.RemoveConnection(connectionID)
		s.connectionHealth.RemoveConnection(connectionID)
		klog.Infof("Connection closed: %s", connectionID)
	}()

	s.connectionManager.Send(connectionID, Welcome{ParticipantID: connectionID})
	s.connectionManager.Send(connectionID, Roster{Rooms: s.gameManager.Roster()})

	for {
		msgType, data, err := socket.Read(ctx)
		if err != nil {
			klog.V(1).Infof("Connection %s read error: %v", connectionID, err)
			return
		}
		if msgType != websocket.MessageText {
			klog.V(1).Infof("Non-text input from %s", connectionID)
			continue
		}

		s.connectionHealth.UpdateActivity(connectionID)
		if !s.rateLimiter.Allow(connectionID) {
			s.replyError(connectionID, "", ErrRateLimited)
			continue
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			klog.V(1).Infof("Invalid JSON from %s: %v", connectionID, err)
			s.connectionManager.Send(connectionID, ErrorMessage{Message: "Invalid JSON", Code: "INVALID_JSON"})
			continue
		}

		klog.V(1).Infof("Message type '%s' from %s", msg.Type, connectionID)
		if err := s.dispatch(connectionID, msg); err != nil {
			s.replyError(connectionID, msg.Type, err)
		}
	}
}

// dispatch decodes one inbound command and applies it.
func (s *Server) dispatch(connectionID string, msg ClientMessage) error {
	if err := ValidateMessageType(msg.Type); err != nil {
		return err
	}

	switch msg.Type {
	case MsgPing:
		s.connectionManager.Send(connectionID, Pong{})
		return nil

	case MsgJoin:
		req, err := decodePayload[JoinRequest](msg.Type, msg.Payload)
		if err != nil {
			return err
		}
		_, err = s.gameManager.Join(connectionID, req)
		return err

	case MsgStart:
		req, err := decodePayload[RoomRequest](msg.Type, msg.Payload)
		if err != nil {
			return err
		}
		return s.gameManager.Start(connectionID, req)

	case MsgPlay:
		req, err := decodePayload[PlayRequest](msg.Type, msg.Payload)
		if err != nil {
			return err
		}
		return s.gameManager.Play(connectionID, req)

	case MsgDraw:
		req, err := decodePayload[RoomRequest](msg.Type, msg.Payload)
		if err != nil {
			return err
		}
		return s.gameManager.Draw(connectionID, req)

	case MsgRestart:
		req, err := decodePayload[RoomRequest](msg.Type, msg.Payload)
		if err != nil {
			return err
		}
		return s.gameManager.Restart(connectionID, req)

	case MsgLeave:
		return s.gameManager.Leave(connectionID)
	}
	return nil
}

// replyError reports a failed command to its sender. Illegal moves were
// already answered with illegalMove and host-only commands from non-hosts are
// ignored.
func (s *Server) replyError(connectionID, msgType string, err error) {
	switch {
	case errors.Is(err, ErrIllegalMove):
		klog.V(1).Infof("Connection %s: illegal %s", connectionID, msgType)
		return
	case errors.Is(err, ErrUnauthorizedHost):
		klog.V(1).Infof("Connection %s: ignoring %s from non-host", connectionID, msgType)
		return
	case errors.Is(err, ErrInternal):
		klog.Errorf("Connection %s: %s failed: %v", connectionID, msgType, err)
	default:
		klog.V(1).Infof("Connection %s: %s rejected: %v", connectionID, msgType, err)
	}

	s.connectionManager.Send(connectionID, ErrorMessage{Message: err.Error(), Code: errorCode(err)})
}
