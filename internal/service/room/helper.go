package room

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/bingesync/server/internal/repository/room"
)

func (s service) getMembers(ctx context.Context, roomCode, hostId string) ([]Member, error) {
	memberIds, err := s.roomRepo.GetMemberIds(ctx, roomCode)
	if err != nil {
		return nil, fmt.Errorf("failed to get member ids: %w", err)
	}

	members := make([]Member, 0, len(memberIds))
	for _, memberId := range memberIds {
		acc, err := s.accountRepo.GetAccount(ctx, memberId)
		if err != nil {
			return nil, fmt.Errorf("failed to get account: %w", err)
		}

		voiceConnected := false
		if session, err := s.connRepo.GetSessionByIdentity(memberId); err == nil && session.RoomCode == roomCode {
			voiceConnected = session.VoiceConnected
		}

		members = append(members, Member{
			Id:             memberId,
			Username:       acc.Username,
			IsHost:         memberId == hostId,
			VoiceConnected: voiceConnected,
		})
	}

	return members, nil
}

func (s service) getUsername(ctx context.Context, identityId string) string {
	acc, err := s.accountRepo.GetAccount(ctx, identityId)
	if err != nil {
		s.logger.InfoContext(ctx, "failed to get account", "identity_id", identityId, "error", err)
		return identityId
	}

	return acc.Username
}

func (s service) checkMembership(ctx context.Context, roomCode, identityId string) error {
	isMember, err := s.roomRepo.IsMember(ctx, &room.IsMemberParams{
		MemberId: identityId,
		RoomCode: roomCode,
	})
	if err != nil {
		return fmt.Errorf("failed to check membership: %w", err)
	}

	if !isMember {
		return ErrNotAMember
	}

	return nil
}

// appendSystemMessage persists a system-kind message and fans it out over the
// same message-posted path user messages take.
func (s service) appendSystemMessage(ctx context.Context, roomCode string, conns []*websocket.Conn, body string) {
	message := Message{
		Id:         uuid.NewString(),
		SenderName: "System",
		Body:       body,
		Kind:       room.MessageKindSystem,
		CreatedAt:  time.Now().UnixMilli(),
	}

	if err := s.roomRepo.AddMessage(ctx, &room.AddMessageParams{
		Message:  room.Message(message),
		RoomCode: roomCode,
	}); err != nil {
		s.logger.WarnContext(ctx, "failed to append system message", "error", err)
		return
	}

	s.sender.Broadcast(conns, EventMessagePosted, &MessagePostedEvent{Message: message})
}

func buildPlaybackState(playback room.Playback) *PlaybackState {
	return &PlaybackState{
		Video: VideoRef{
			VideoId: playback.VideoId,
			URL:     playback.URL,
			Title:   playback.Title,
		},
		IsPlaying: playback.IsPlaying,
		Position:  playback.Position,
		Timestamp: playback.LastActionAt,
	}
}
