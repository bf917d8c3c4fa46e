package controller

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bingesync/server/internal/service/room"
	"github.com/bingesync/server/pkg/ctxlogger"
	"github.com/bingesync/server/pkg/wsrouter"
)

func (c controller) getWSRouter() *wsrouter.WSRouter {
	mux := wsrouter.New()

	mux.Use(c.wsRequestIdMw())
	mux.Use(c.wsLoggingMw())

	// room
	mux.Handle("join-room", wsrouter.Typed(c.handleJoinRoom))
	mux.Handle("transfer-host", wsrouter.Typed(c.handleTransferHost))
	mux.Handle("toggle-guest-control", wsrouter.Typed(c.handleToggleGuestControl))

	// playback
	mux.Handle("video-action", wsrouter.Typed(c.handleVideoAction))
	mux.Handle("request-sync", wsrouter.Typed(c.handleRequestSync))

	// messages
	mux.Handle("send-message", wsrouter.Typed(c.handleSendMessage))
	mux.Handle("get-messages", wsrouter.Typed(c.handleGetMessages))

	// voice
	mux.Handle("voice-toggle", wsrouter.Typed(c.handleVoiceToggle))
	mux.Handle("signal-offer", wsrouter.Typed(c.handleSignal(room.EventSignalOffer)))
	mux.Handle("signal-answer", wsrouter.Typed(c.handleSignal(room.EventSignalAnswer)))
	mux.Handle("signal-candidate", wsrouter.Typed(c.handleSignal(room.EventSignalCandidate)))

	mux.OnError(func(ctx context.Context, conn *websocket.Conn, err error) {
		c.logger.InfoContext(ctx, "websocket message failed", "error", err)
		c.sendError(ctx, conn, err)
	})

	return mux
}

func (c controller) wsRequestIdMw() wsrouter.Middleware {
	return func(next wsrouter.HandlerFunc) wsrouter.HandlerFunc {
		return func(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
			ctx = ctxlogger.AppendCtx(ctx, slog.String("ws_request_id", c.generateTimeBasedId()))
			return next(ctx, conn, payload)
		}
	}
}

func (c controller) wsLoggingMw() wsrouter.Middleware {
	return func(next wsrouter.HandlerFunc) wsrouter.HandlerFunc {
		return func(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
			ctx = ctxlogger.AppendCtx(ctx, slog.String("message_type", wsrouter.GetMessageTypeFromCtx(ctx)))
			c.logger.InfoContext(ctx, "websocket message received")

			start := time.Now()
			err := next(ctx, conn, payload)

			c.logger.InfoContext(ctx, "websocket message handled",
				"processing_time_us", time.Since(start).Microseconds(),
			)

			return err
		}
	}
}
