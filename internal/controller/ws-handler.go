package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/bingesync/server/internal/service/room"
	"github.com/bingesync/server/pkg/ctxlogger"
	"github.com/bingesync/server/pkg/rest"
)

// connect authenticates the upgrade request, binds the connection to the
// identity and pumps messages until the client goes away. Disconnect side
// effects run exactly once, whatever way the connection ends.
func (c controller) connect(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		rest.WriteJSON(w, http.StatusUnauthorized, rest.Envelope{"error": rest.Envelope{
			"code":    codeAuthRequired,
			"message": "authentication required",
		}})
		return
	}

	identity, err := c.accountService.ResolveToken(r.Context(), token)
	if err != nil {
		c.writeError(w, err)
		return
	}

	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.InfoContext(r.Context(), "failed to upgrade connection", "error", err)
		return
	}

	ctx := withIdentityId(context.Background(), identity.Id)
	ctx = ctxlogger.AppendCtx(ctx, slog.String("identity_id", identity.Id))

	if err := c.roomService.Connect(ctx, &room.ConnectParams{
		Conn:       conn,
		IdentityId: identity.Id,
	}); err != nil {
		c.logger.InfoContext(ctx, "failed to connect", "error", err)
		conn.Close()
		return
	}

	defer func() {
		if _, err := c.roomService.Disconnect(ctx, conn); err != nil {
			c.logger.InfoContext(ctx, "failed to disconnect", "error", err)
		}
	}()

	if err := c.getWSRouter().ServeConn(ctx, conn); err != nil {
		c.logger.DebugContext(ctx, "connection closed", "error", err)
	}
}

type JoinRoomInput struct {
	RoomCode string `json:"room_code"`
}

func (c controller) handleJoinRoom(ctx context.Context, conn *websocket.Conn, input JoinRoomInput) error {
	if input.RoomCode == "" {
		return room.ErrRoomNotFound
	}

	resp, err := c.roomService.JoinRoom(ctx, &room.JoinRoomParams{
		Conn:       conn,
		IdentityId: c.getIdentityIdFromCtx(ctx),
		RoomCode:   input.RoomCode,
	})
	if err != nil {
		return err
	}

	if err := c.sender.Send(conn, room.EventRoomJoined, &resp.Snapshot); err != nil {
		return fmt.Errorf("failed to write to conn: %w", err)
	}

	return nil
}

type VideoActionInput struct {
	Action   string  `json:"action"`
	URL      string  `json:"url"`
	Title    string  `json:"title"`
	Position float64 `json:"position"`
}

func (c controller) handleVideoAction(ctx context.Context, conn *websocket.Conn, input VideoActionInput) error {
	roomCode, err := c.roomService.GetBoundRoom(conn)
	if err != nil {
		return err
	}

	return c.roomService.HandleVideoAction(ctx, &room.VideoActionParams{
		IdentityId: c.getIdentityIdFromCtx(ctx),
		RoomCode:   roomCode,
		Action:     input.Action,
		URL:        input.URL,
		Title:      input.Title,
		Position:   input.Position,
	})
}

type SendMessageInput struct {
	Body string `json:"body"`
}

func (c controller) handleSendMessage(ctx context.Context, conn *websocket.Conn, input SendMessageInput) error {
	roomCode, err := c.roomService.GetBoundRoom(conn)
	if err != nil {
		return err
	}

	return c.roomService.SendMessage(ctx, &room.SendMessageParams{
		IdentityId: c.getIdentityIdFromCtx(ctx),
		RoomCode:   roomCode,
		Body:       input.Body,
	})
}

type GetMessagesInput struct {
	Limit int `json:"limit"`
}

func (c controller) handleGetMessages(ctx context.Context, conn *websocket.Conn, input GetMessagesInput) error {
	roomCode, err := c.roomService.GetBoundRoom(conn)
	if err != nil {
		return err
	}

	messages, err := c.roomService.GetMessages(ctx, &room.GetMessagesParams{
		IdentityId: c.getIdentityIdFromCtx(ctx),
		RoomCode:   roomCode,
		Limit:      input.Limit,
	})
	if err != nil {
		return err
	}

	if err := c.sender.Send(conn, room.EventMessagesHistory, &room.MessagesHistoryEvent{
		Messages: messages,
	}); err != nil {
		return fmt.Errorf("failed to write to conn: %w", err)
	}

	return nil
}

type EmptyInput struct{}

func (c controller) handleRequestSync(ctx context.Context, conn *websocket.Conn, _ EmptyInput) error {
	roomCode, err := c.roomService.GetBoundRoom(conn)
	if err != nil {
		return err
	}

	sync, err := c.roomService.RequestSync(ctx, &room.RequestSyncParams{
		IdentityId: c.getIdentityIdFromCtx(ctx),
		RoomCode:   roomCode,
	})
	if err != nil {
		return err
	}

	if err := c.sender.Send(conn, room.EventPlaybackSync, &sync); err != nil {
		return fmt.Errorf("failed to write to conn: %w", err)
	}

	return nil
}

type TransferHostInput struct {
	TargetId string `json:"target_id"`
}

func (c controller) handleTransferHost(ctx context.Context, conn *websocket.Conn, input TransferHostInput) error {
	roomCode, err := c.roomService.GetBoundRoom(conn)
	if err != nil {
		return err
	}

	return c.roomService.TransferHost(ctx, &room.TransferHostParams{
		IdentityId: c.getIdentityIdFromCtx(ctx),
		TargetId:   input.TargetId,
		RoomCode:   roomCode,
	})
}

type ToggleGuestControlInput struct {
	Allow bool `json:"allow"`
}

func (c controller) handleToggleGuestControl(ctx context.Context, conn *websocket.Conn, input ToggleGuestControlInput) error {
	roomCode, err := c.roomService.GetBoundRoom(conn)
	if err != nil {
		return err
	}

	return c.roomService.SetGuestControl(ctx, &room.SetGuestControlParams{
		IdentityId: c.getIdentityIdFromCtx(ctx),
		RoomCode:   roomCode,
		Allow:      input.Allow,
	})
}

type VoiceToggleInput struct {
	Connected bool `json:"connected"`
}

func (c controller) handleVoiceToggle(ctx context.Context, conn *websocket.Conn, input VoiceToggleInput) error {
	return c.roomService.ToggleVoice(ctx, &room.ToggleVoiceParams{
		Conn:       conn,
		IdentityId: c.getIdentityIdFromCtx(ctx),
		Connected:  input.Connected,
	})
}

type SignalInput struct {
	TargetId string          `json:"target_id"`
	Payload  json.RawMessage `json:"payload"`
}

// handleSignal relays an offer, answer or candidate to its target under the
// event type it arrived as.
func (c controller) handleSignal(event string) func(ctx context.Context, conn *websocket.Conn, input SignalInput) error {
	return func(ctx context.Context, conn *websocket.Conn, input SignalInput) error {
		roomCode, err := c.roomService.GetBoundRoom(conn)
		if err != nil {
			return err
		}

		return c.roomService.RelaySignal(ctx, &room.RelaySignalParams{
			IdentityId: c.getIdentityIdFromCtx(ctx),
			RoomCode:   roomCode,
			TargetId:   input.TargetId,
			Event:      event,
			Payload:    input.Payload,
		})
	}
}
