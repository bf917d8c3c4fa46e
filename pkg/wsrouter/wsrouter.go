package wsrouter

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/gorilla/websocket"
)

var ErrUnknownMessageType = errors.New("unknown message type")

type message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type HandlerFunc func(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error

type Middleware func(next HandlerFunc) HandlerFunc

type ErrorHandler func(ctx context.Context, conn *websocket.Conn, err error)

type WSRouter struct {
	routes      map[string]HandlerFunc
	middlewares []Middleware
	onError     ErrorHandler
}

func New() *WSRouter {
	return &WSRouter{routes: make(map[string]HandlerFunc)}
}

func (r *WSRouter) Use(mw Middleware) {
	r.middlewares = append(r.middlewares, mw)
}

func (r *WSRouter) Handle(messageType string, handler HandlerFunc) {
	r.routes[messageType] = handler
}

// OnError registers the callback invoked when a handler returns an error or
// an unknown message type arrives. Handler errors never terminate the
// connection; read errors do.
func (r *WSRouter) OnError(h ErrorHandler) {
	r.onError = h
}

// Typed wraps a handler taking a concrete payload type, unmarshalling the raw
// payload before the call.
func Typed[T any](handler func(ctx context.Context, conn *websocket.Conn, payload T) error) HandlerFunc {
	return func(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
		var typed T
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &typed); err != nil {
				return err
			}
		}

		return handler(ctx, conn, typed)
	}
}

func (r *WSRouter) ServeConn(ctx context.Context, conn *websocket.Conn) error {
	defer conn.Close()

	for {
		var msg message
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}

		msgCtx := context.WithValue(ctx, messageTypeKey, msg.Type)

		handler, exists := r.routes[msg.Type]
		if !exists {
			if r.onError != nil {
				r.onError(msgCtx, conn, ErrUnknownMessageType)
			}
			continue
		}

		for i := len(r.middlewares) - 1; i >= 0; i-- {
			handler = r.middlewares[i](handler)
		}

		if err := handler(msgCtx, conn, msg.Payload); err != nil {
			if r.onError != nil {
				r.onError(msgCtx, conn, err)
			}
		}
	}
}
