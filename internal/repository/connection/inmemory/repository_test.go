package inmemory

import (
	"testing"

	"github.com/cinematogether/server/internal/repository/connection"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddAndLookup(t *testing.T) {
	r := NewRepo()
	conn := &websocket.Conn{}

	prev, err := r.Add(conn, "user-1")
	require.NoError(t, err)
	assert.Nil(t, prev)

	id, err := r.GetParticipantID(conn)
	require.NoError(t, err)
	assert.Equal(t, "user-1", id)

	got, err := r.GetConn("user-1")
	require.NoError(t, err)
	assert.Same(t, conn, got)
}

func TestAddSameConnTwice(t *testing.T) {
	r := NewRepo()
	conn := &websocket.Conn{}

	_, err := r.Add(conn, "user-1")
	require.NoError(t, err)

	_, err = r.Add(conn, "user-2")
	assert.ErrorIs(t, err, connection.ErrAlreadyExists)
}

func TestAddReplacesParticipantConn(t *testing.T) {
	r := NewRepo()
	first := &websocket.Conn{}
	second := &websocket.Conn{}

	_, err := r.Add(first, "user-1")
	require.NoError(t, err)

	prev, err := r.Add(second, "user-1")
	require.NoError(t, err)
	assert.Same(t, first, prev, "the displaced connection is handed back for closing")

	got, err := r.GetConn("user-1")
	require.NoError(t, err)
	assert.Same(t, second, got)

	_, err = r.GetParticipantID(first)
	assert.ErrorIs(t, err, connection.ErrNotFound)
}

func TestRemoveByConn(t *testing.T) {
	r := NewRepo()
	conn := &websocket.Conn{}

	_, err := r.Add(conn, "user-1")
	require.NoError(t, err)

	id, err := r.RemoveByConn(conn)
	require.NoError(t, err)
	assert.Equal(t, "user-1", id)

	_, err = r.RemoveByConn(conn)
	assert.ErrorIs(t, err, connection.ErrNotFound)
	_, err = r.GetConn("user-1")
	assert.ErrorIs(t, err, connection.ErrNotFound)
}

func TestRemoveByParticipantID(t *testing.T) {
	r := NewRepo()
	conn := &websocket.Conn{}

	_, err := r.Add(conn, "user-1")
	require.NoError(t, err)

	got, err := r.RemoveByParticipantID("user-1")
	require.NoError(t, err)
	assert.Same(t, conn, got)

	_, err = r.RemoveByParticipantID("user-1")
	assert.ErrorIs(t, err, connection.ErrNotFound)
}
