package controller

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/cinematogether/server/internal/domain"
	"github.com/cinematogether/server/internal/repository/handshake"
	"github.com/cinematogether/server/internal/room"
	"github.com/cinematogether/server/pkg/ctxlogger"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// Output is the frame shape for everything pushed down a websocket,
// both broadcast events and direct replies.
type Output struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// wsSink serializes all writes to one connection: the broadcaster's writer
// goroutine and the read-loop handlers share it.
type wsSink struct {
	mu      sync.Mutex
	conn    *websocket.Conn
	timeout time.Duration
}

func (s *wsSink) write(out Output) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.conn.SetWriteDeadline(time.Now().Add(s.timeout))

	return s.conn.WriteJSON(out)
}

func (s *wsSink) WriteEvent(ev domain.Event) error {
	return s.write(Output{Type: string(ev.Type), Payload: ev.Payload})
}

// connState is the per-connection context shared by the ws handlers.
type connState struct {
	session       *room.Session
	participantID string
	sink          *wsSink
	limiter       *rate.Limiter
	// left is set by the leave handler so cleanup skips the disconnect
	// grace path. Only touched on the read-loop goroutine.
	left bool
}

type connStateKey struct{}

func getConnState(ctx context.Context) *connState {
	return ctx.Value(connStateKey{}).(*connState)
}

// Websocket redeems a connect token, performs the create/join/resume against
// the room core and serves the message loop until the connection dies.
func (c *Controller) Websocket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	connectToken := r.URL.Query().Get("connect-token")
	if connectToken == "" {
		http.Error(w, "connect-token required", http.StatusUnauthorized)
		return
	}

	intent, err := c.handshakeRepo.PopIntent(ctx, connectToken)
	if err != nil {
		c.logger.InfoContext(ctx, "failed to redeem connect token", "error", err)
		http.Error(w, errorCode(err), httpStatus(err))
		return
	}

	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.InfoContext(ctx, "failed to upgrade connection", "error", err)
		return
	}

	sink := &wsSink{conn: conn, timeout: c.cfg.WriteTimeout}

	session, result, err := c.admit(intent)
	if err != nil {
		c.logger.InfoContext(ctx, "admission failed", "error", err, "kind", intent.Kind)
		sink.write(Output{Type: "ERROR", Payload: errorPayload{Code: errorCode(err), Message: err.Error()}})
		conn.Close()
		return
	}

	participantID := result.Participant.ID

	if prev, _ := c.connRepo.Add(conn, participantID); prev != nil {
		// the participant reconnected elsewhere; the old transport goes away
		prev.Close()
	}
	c.broadcaster.Subscribe(participantID, sink)

	sink.write(Output{Type: "JOINED", Payload: result})

	ctx = ctxlogger.AppendCtx(context.Background(), slog.String("room_id", session.ID()))
	ctx = ctxlogger.AppendCtx(ctx, slog.String("participant_id", participantID))

	cs := &connState{
		session:       session,
		participantID: participantID,
		sink:          sink,
		limiter:       rate.NewLimiter(rate.Limit(c.cfg.MessageRate), c.cfg.MessageBurst),
	}
	ctx = context.WithValue(ctx, connStateKey{}, cs)

	if err := c.getWSRouter().ServeConn(ctx, conn); err != nil {
		c.logger.DebugContext(ctx, "connection closed", "error", err)
	}

	conn.Close()

	// a newer connection may have taken over the participant binding while
	// this one was being torn down; only the owning connection may drop the
	// subscription and start the disconnect grace.
	if _, err := c.connRepo.RemoveByConn(conn); err != nil {
		c.logger.DebugContext(ctx, "connection superseded, skipping teardown")
		return
	}

	c.broadcaster.Unsubscribe(participantID)

	if !cs.left {
		if err := session.MarkDisconnected(participantID); err != nil {
			c.logger.InfoContext(ctx, "failed to mark participant disconnected", "error", err)
		}
	}
}

func (c *Controller) admit(intent handshake.Intent) (*room.Session, room.JoinResult, error) {
	switch intent.Kind {
	case handshake.KindCreate:
		session, err := c.registry.CreateRoom(intent.RoomConfig)
		if err != nil {
			return nil, room.JoinResult{}, fmt.Errorf("failed to create room: %w", err)
		}

		result, err := session.Join(intent.Identity)
		if err != nil {
			return nil, room.JoinResult{}, fmt.Errorf("failed to join created room: %w", err)
		}

		return session, result, nil

	case handshake.KindJoin:
		session, err := c.registry.GetRoom(intent.RoomID)
		if err != nil {
			return nil, room.JoinResult{}, err
		}

		if intent.ResumeParticipantID != "" {
			result, err := session.Reconnect(intent.ResumeParticipantID)
			if err == nil {
				return session, result, nil
			}
			// grace expired; fall through to a fresh join
			c.logger.Info("resume failed, joining fresh", "error", err)
		}

		result, err := session.Join(intent.Identity)
		if err != nil {
			return nil, room.JoinResult{}, fmt.Errorf("failed to join room: %w", err)
		}

		return session, result, nil

	default:
		return nil, room.JoinResult{}, handshake.ErrIntentNotFound
	}
}
