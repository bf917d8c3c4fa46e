package room

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"

	"github.com/bingesync/server/internal/repository/connection"
)

// Relayed WebRTC signaling event types. The server forwards payloads
// verbatim between peers and never inspects them.
const (
	EventSignalOffer     = "signal-offer"
	EventSignalAnswer    = "signal-answer"
	EventSignalCandidate = "signal-candidate"
)

type ToggleVoiceParams struct {
	Conn       *websocket.Conn
	IdentityId string
	Connected  bool
}

func (s service) ToggleVoice(ctx context.Context, params *ToggleVoiceParams) error {
	session, err := s.connRepo.GetSession(params.Conn)
	if err != nil || session.RoomCode == "" {
		return ErrNotAMember
	}

	roomCode := session.RoomCode

	s.locks.lock(roomCode)
	defer s.locks.unlock(roomCode)

	if session.VoiceConnected == params.Connected {
		return nil
	}

	if err := s.connRepo.SetVoiceConnected(params.Conn, params.Connected); err != nil {
		if errors.Is(err, connection.ErrNotFound) {
			return ErrNotAMember
		}

		return fmt.Errorf("failed to set voice state: %w", err)
	}

	conns := s.connRepo.GetConnsByRoomCode(roomCode)
	s.sender.Broadcast(conns, EventVoiceStatusChanged, &VoiceStatusChangedEvent{
		MemberId:  params.IdentityId,
		Connected: params.Connected,
	})

	username := s.getUsername(ctx, params.IdentityId)
	body := fmt.Sprintf("%s left the voice call", username)
	if params.Connected {
		body = fmt.Sprintf("%s joined the voice call", username)
	}
	s.appendSystemMessage(ctx, roomCode, conns, body)

	return nil
}

type RelaySignalParams struct {
	IdentityId string
	RoomCode   string
	TargetId   string
	Event      string
	Payload    json.RawMessage
}

// RelaySignal forwards a signaling payload to exactly one other member.
func (s service) RelaySignal(ctx context.Context, params *RelaySignalParams) error {
	if err := s.checkMembership(ctx, params.RoomCode, params.IdentityId); err != nil {
		return err
	}

	if err := s.checkMembership(ctx, params.RoomCode, params.TargetId); err != nil {
		if errors.Is(err, ErrNotAMember) {
			return ErrTargetNotAMember
		}

		return err
	}

	targetConn, err := s.connRepo.GetConn(params.TargetId)
	if err != nil {
		return ErrTargetNotConnected
	}

	if err := s.sender.Send(targetConn, params.Event, &SignalEvent{
		FromId:  params.IdentityId,
		Payload: params.Payload,
	}); err != nil {
		return fmt.Errorf("failed to relay signal: %w", err)
	}

	return nil
}
