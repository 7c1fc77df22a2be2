// Package inmemory maps live websocket connections to participant ids. The
// gateway uses it to enforce one active connection per participant and to
// resolve the participant on transport loss.
package inmemory

import (
	"sync"

	"github.com/cinematogether/server/internal/repository/connection"
	"github.com/gorilla/websocket"
)

type repo struct {
	mu       sync.RWMutex
	connList map[*websocket.Conn]string
	idList   map[string]*websocket.Conn
}

func NewRepo() *repo {
	return &repo{
		connList: make(map[*websocket.Conn]string),
		idList:   make(map[string]*websocket.Conn),
	}
}

// Add binds a connection to a participant. An existing connection for the
// same participant is returned so the caller can close it; the binding is
// replaced either way.
func (r *repo) Add(conn *websocket.Conn, participantID string) (*websocket.Conn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.connList[conn] != "" {
		return nil, connection.ErrAlreadyExists
	}

	prev := r.idList[participantID]
	if prev != nil {
		delete(r.connList, prev)
	}

	r.connList[conn] = participantID
	r.idList[participantID] = conn

	return prev, nil
}

func (r *repo) RemoveByConn(conn *websocket.Conn) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	participantID, ok := r.connList[conn]
	if !ok {
		return "", connection.ErrNotFound
	}

	delete(r.connList, conn)
	delete(r.idList, participantID)

	return participantID, nil
}

func (r *repo) RemoveByParticipantID(participantID string) (*websocket.Conn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.idList[participantID]
	if !ok {
		return nil, connection.ErrNotFound
	}

	delete(r.connList, conn)
	delete(r.idList, participantID)

	return conn, nil
}

func (r *repo) GetParticipantID(conn *websocket.Conn) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	participantID, ok := r.connList[conn]
	if !ok {
		return "", connection.ErrNotFound
	}

	return participantID, nil
}

func (r *repo) GetConn(participantID string) (*websocket.Conn, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.idList[participantID]
	if !ok {
		return nil, connection.ErrNotFound
	}

	return conn, nil
}
