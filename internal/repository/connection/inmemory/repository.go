package inmemory

import (
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/bingesync/server/internal/repository/connection"
)

type repo struct {
	sessions   map[*websocket.Conn]*connection.Session
	byIdentity map[string]*websocket.Conn
	mu         sync.RWMutex
	logger     *slog.Logger
}

func NewRepo(logger *slog.Logger) *repo {
	return &repo{
		sessions:   make(map[*websocket.Conn]*connection.Session),
		byIdentity: make(map[string]*websocket.Conn),
		logger:     logger,
	}
}

func (r *repo) Add(conn *websocket.Conn, identityId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[conn]; ok {
		return connection.ErrAlreadyExists
	}
	if _, ok := r.byIdentity[identityId]; ok {
		return connection.ErrAlreadyExists
	}

	r.sessions[conn] = &connection.Session{IdentityId: identityId}
	r.byIdentity[identityId] = conn

	return nil
}

// RemoveByConn unbinds the connection and returns the session as it was at
// disconnect time, so the caller can run leave side effects.
func (r *repo) RemoveByConn(conn *websocket.Conn) (connection.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[conn]
	if !ok {
		return connection.Session{}, connection.ErrNotFound
	}

	delete(r.sessions, conn)
	delete(r.byIdentity, session.IdentityId)

	return *session, nil
}

func (r *repo) GetSession(conn *websocket.Conn) (connection.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[conn]
	if !ok {
		return connection.Session{}, connection.ErrNotFound
	}

	return *session, nil
}

func (r *repo) GetConn(identityId string) (*websocket.Conn, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.byIdentity[identityId]
	if !ok {
		return nil, connection.ErrNotFound
	}

	return conn, nil
}

func (r *repo) GetSessionByIdentity(identityId string) (connection.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.byIdentity[identityId]
	if !ok {
		return connection.Session{}, connection.ErrNotFound
	}

	return *r.sessions[conn], nil
}

func (r *repo) BindRoom(conn *websocket.Conn, roomCode string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[conn]
	if !ok {
		return connection.ErrNotFound
	}

	session.RoomCode = roomCode
	session.VoiceConnected = false

	return nil
}

func (r *repo) SetVoiceConnected(conn *websocket.Conn, voiceConnected bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[conn]
	if !ok {
		return connection.ErrNotFound
	}

	session.VoiceConnected = voiceConnected

	return nil
}

// GetConnsByRoomCode derives fan-out membership from live sessions. There is
// no second room-to-conns map to drift out of sync.
func (r *repo) GetConnsByRoomCode(roomCode string) []*websocket.Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]*websocket.Conn, 0)
	for conn, session := range r.sessions {
		if session.RoomCode == roomCode {
			conns = append(conns, conn)
		}
	}

	return conns
}
