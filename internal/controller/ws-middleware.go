package controller

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/cinematogether/server/pkg/ctxlogger"
	"github.com/cinematogether/server/pkg/wsrouter"
	"github.com/gorilla/websocket"
)

// rateLimitWSMw rejects messages beyond the per-connection budget without
// invoking the handler.
func (c *Controller) rateLimitWSMw() wsrouter.Middleware {
	return func(next wsrouter.HandlerFunc) wsrouter.HandlerFunc {
		return func(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
			cs := getConnState(ctx)
			if !cs.limiter.Allow() {
				return cs.sink.write(Output{Type: "ERROR", Payload: errorPayload{
					Code:    "rate_limited",
					Message: "too many messages",
				}})
			}

			return next(ctx, conn, payload)
		}
	}
}

func (c *Controller) loggingWSMw() wsrouter.Middleware {
	return func(next wsrouter.HandlerFunc) wsrouter.HandlerFunc {
		return func(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
			ctx = ctxlogger.AppendCtx(ctx, slog.String("message_type", wsrouter.GetMessageTypeFromCtx(ctx)))

			start := time.Now()
			err := next(ctx, conn, payload)

			c.logger.DebugContext(ctx, "websocket message handled",
				"processing_time_us", time.Since(start).Microseconds(),
				"error", err,
			)

			return err
		}
	}
}

// errorWSMw turns handler errors into ERROR frames so the client always gets
// a distinguishable code; the room state is untouched by construction (every
// failed operation rejects before mutating).
func (c *Controller) errorWSMw() wsrouter.Middleware {
	return func(next wsrouter.HandlerFunc) wsrouter.HandlerFunc {
		return func(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
			err := next(ctx, conn, payload)
			if err == nil {
				return nil
			}

			cs := getConnState(ctx)
			if writeErr := cs.sink.write(Output{Type: "ERROR", Payload: errorPayload{
				Code:    errorCode(err),
				Message: err.Error(),
			}}); writeErr != nil {
				c.logger.InfoContext(ctx, "failed to write error frame", "error", writeErr)
			}

			return err
		}
	}
}
