// Package wsrouter routes typed json messages read from a websocket
// connection to registered handlers, with a middleware chain shared by all
// message types.
package wsrouter

import (
	"context"
	"encoding/json"

	"github.com/gorilla/websocket"
)

type message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type HandlerFunc func(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error

type Middleware func(next HandlerFunc) HandlerFunc

type WSRouter struct {
	routes      map[string]HandlerFunc
	middlewares []Middleware
	unknown     HandlerFunc
}

func New() *WSRouter {
	return &WSRouter{routes: make(map[string]HandlerFunc)}
}

// Use appends a middleware. Must be called before ServeConn.
func (r *WSRouter) Use(mw Middleware) {
	r.middlewares = append(r.middlewares, mw)
}

func (r *WSRouter) Handle(messageType string, handler HandlerFunc) {
	r.routes[messageType] = handler
}

// HandleUnknown sets the handler invoked for unregistered message types.
func (r *WSRouter) HandleUnknown(handler HandlerFunc) {
	r.unknown = handler
}

// ServeConn reads messages until the connection or context dies. Handler
// errors do not terminate the loop; a read error ends it and is returned.
func (r *WSRouter) ServeConn(ctx context.Context, conn *websocket.Conn) error {
	for {
		var msg message
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}

		handler, exists := r.routes[msg.Type]
		if !exists {
			handler = r.unknown
			if handler == nil {
				continue
			}
		}

		for i := len(r.middlewares) - 1; i >= 0; i-- {
			handler = r.middlewares[i](handler)
		}

		msgCtx := context.WithValue(ctx, messageTypeKey, msg.Type)
		//nolint:errcheck // handler errors are surfaced by middleware
		handler(msgCtx, conn, msg.Payload)

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}
