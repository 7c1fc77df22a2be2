package controller

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cinematogether/server/internal/room"
	"github.com/cinematogether/server/pkg/wsrouter"
	"github.com/gorilla/websocket"
)

func (c *Controller) getWSRouter() *wsrouter.WSRouter {
	mux := wsrouter.New()

	mux.Use(c.rateLimitWSMw())
	mux.Use(c.loggingWSMw())
	mux.Use(c.errorWSMw())

	mux.Handle("alive", c.handleAlive)
	mux.Handle("playback_command", c.handlePlaybackCommand)
	mux.Handle("report_position", c.handleReportPosition)
	mux.Handle("post_message", c.handlePostMessage)
	mux.Handle("leave", c.handleLeave)

	mux.HandleUnknown(c.handleUnknown)

	return mux
}

func (c *Controller) handleAlive(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
	return nil
}

func (c *Controller) handleUnknown(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
	cs := getConnState(ctx)

	return cs.sink.write(Output{Type: "ERROR", Payload: errorPayload{
		Code:    "unknown_message_type",
		Message: "unknown message type: " + wsrouter.GetMessageTypeFromCtx(ctx),
	}})
}

type playbackCommandInput struct {
	Type     string  `json:"type"`
	Position float64 `json:"position"`
	Rate     float64 `json:"rate"`
}

func (c *Controller) handlePlaybackCommand(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
	cs := getConnState(ctx)

	var input playbackCommandInput
	if err := json.Unmarshal(payload, &input); err != nil {
		return room.ErrInvalidCommand
	}

	// the sender receives the committed state through its own event queue
	// like every other participant
	_, err := cs.session.IssuePlaybackCommand(cs.participantID, room.Command{
		Type:     room.CommandType(input.Type),
		Position: input.Position,
		Rate:     input.Rate,
	})

	return err
}

type reportPositionInput struct {
	Position float64 `json:"position"`
	// Timestamp is the client wall clock of the observation, unix
	// milliseconds.
	Timestamp int64 `json:"timestamp"`
}

func (c *Controller) handleReportPosition(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
	cs := getConnState(ctx)

	var input reportPositionInput
	if err := json.Unmarshal(payload, &input); err != nil {
		return err
	}

	observedAt := time.UnixMilli(input.Timestamp)
	if input.Timestamp == 0 {
		observedAt = time.Now()
	}

	_, err := cs.session.ReportPosition(cs.participantID, input.Position, observedAt)

	return err
}

type postMessageInput struct {
	Body string `json:"body"`
}

func (c *Controller) handlePostMessage(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
	cs := getConnState(ctx)

	var input postMessageInput
	if err := json.Unmarshal(payload, &input); err != nil {
		return err
	}

	_, err := cs.session.PostMessage(cs.participantID, input.Body)

	return err
}

func (c *Controller) handleLeave(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
	cs := getConnState(ctx)

	if err := cs.session.Leave(cs.participantID); err != nil {
		return err
	}
	cs.left = true

	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	conn.Close()

	return nil
}
