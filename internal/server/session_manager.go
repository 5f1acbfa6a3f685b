package server

import (
	"sync"
)

// SessionInfo records which room a connection is seated in. A participant
// belongs to at most one room at a time.
type SessionInfo struct {
	ParticipantID string
	RoomID        string
	Name          string
}

type SessionManager struct {
	sessions map[string]SessionInfo // ParticipantID -> SessionInfo
	mu       sync.RWMutex
}

func NewSessionManager() *SessionManager {
	return &SessionManager{
		sessions: make(map[string]SessionInfo),
	}
}

func (sm *SessionManager) StoreSession(info SessionInfo) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.sessions[info.ParticipantID] = info
}

func (sm *SessionManager) GetSession(participantID string) (SessionInfo, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	session, exists := sm.sessions[participantID]
	if !exists {
		return SessionInfo{}, ErrNotInRoom
	}

	return session, nil
}

// RemoveSession forgets the participant only while it is still seated in
// roomID, so a late cleanup for an old room cannot drop a newer seat.
func (sm *SessionManager) RemoveSession(participantID, roomID string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if session, ok := sm.sessions[participantID]; ok && session.RoomID == roomID {
		delete(sm.sessions, participantID)
	}
}

func (sm *SessionManager) GetAllSessions() []SessionInfo {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	sessions := make([]SessionInfo, 0, len(sm.sessions))
	for _, session := range sm.sessions {
		sessions = append(sessions, session)
	}

	return sessions
}
