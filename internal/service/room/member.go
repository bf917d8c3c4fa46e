package room

import (
	"context"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"

	"github.com/bingesync/server/internal/repository/connection"
	"github.com/bingesync/server/internal/repository/room"
)

type ConnectParams struct {
	Conn       *websocket.Conn
	IdentityId string
}

// Connect binds a fresh connection to an identity. A previous connection of
// the same identity is superseded and closed; its room binding carries over
// to the new connection so the membership stays backed by a live session and
// a later disconnect still runs leave side effects.
func (s service) Connect(ctx context.Context, params *ConnectParams) error {
	var prev *connection.Session
	if oldConn, err := s.connRepo.GetConn(params.IdentityId); err == nil {
		if session, err := s.connRepo.RemoveByConn(oldConn); err == nil {
			prev = &session
			s.sender.Close(oldConn)
		}
	}

	if err := s.connRepo.Add(params.Conn, params.IdentityId); err != nil {
		return fmt.Errorf("failed to add connection: %w", err)
	}

	if prev == nil || prev.RoomCode == "" {
		return nil
	}

	if err := s.connRepo.BindRoom(params.Conn, prev.RoomCode); err != nil {
		return fmt.Errorf("failed to bind room: %w", err)
	}

	// Voice does not survive the transport swap.
	if prev.VoiceConnected {
		roomCode := prev.RoomCode

		s.locks.lock(roomCode)
		defer s.locks.unlock(roomCode)

		conns := s.connRepo.GetConnsByRoomCode(roomCode)
		s.sender.Broadcast(conns, EventVoiceStatusChanged, &VoiceStatusChangedEvent{
			MemberId:  params.IdentityId,
			Connected: false,
		})
		s.appendSystemMessage(ctx, roomCode, conns, fmt.Sprintf("%s left the voice call", s.getUsername(ctx, params.IdentityId)))
	}

	return nil
}

// GetBoundRoom returns the room the connection joined, if any.
func (s service) GetBoundRoom(conn *websocket.Conn) (string, error) {
	session, err := s.connRepo.GetSession(conn)
	if err != nil || session.RoomCode == "" {
		return "", ErrNotAMember
	}

	return session.RoomCode, nil
}

type DisconnectResponse struct {
	LeftRoomCode string
}

// Disconnect destroys the live session and runs leave side effects for the
// room the session was bound to, if any. Idempotent against duplicate
// disconnect signals.
func (s service) Disconnect(ctx context.Context, conn *websocket.Conn) (DisconnectResponse, error) {
	session, err := s.connRepo.RemoveByConn(conn)
	s.sender.Forget(conn)
	if err != nil {
		if errors.Is(err, connection.ErrNotFound) {
			return DisconnectResponse{}, nil
		}

		return DisconnectResponse{}, fmt.Errorf("failed to remove connection: %w", err)
	}

	if session.RoomCode == "" {
		return DisconnectResponse{}, nil
	}

	if err := s.leaveRoom(ctx, session); err != nil {
		return DisconnectResponse{}, err
	}

	return DisconnectResponse{LeftRoomCode: session.RoomCode}, nil
}

func (s service) leaveRoom(ctx context.Context, session connection.Session) error {
	roomCode := session.RoomCode

	s.locks.lock(roomCode)
	defer s.locks.unlock(roomCode)

	removed, err := s.roomRepo.RemoveMemberFromList(ctx, &room.RemoveMemberFromListParams{
		MemberId: session.IdentityId,
		RoomCode: roomCode,
	})
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}

	if !removed {
		return nil
	}

	rm, err := s.roomRepo.GetRoom(ctx, roomCode)
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			return nil
		}

		return fmt.Errorf("failed to get room: %w", err)
	}

	memberIds, err := s.roomRepo.GetMemberIds(ctx, roomCode)
	if err != nil {
		return fmt.Errorf("failed to get member ids: %w", err)
	}

	// Host departure: pass the role to the longest-tenured remaining member.
	// An emptied room keeps its recorded host; the next joiner claims it.
	var hostTransfer *HostTransferredEvent
	if rm.HostId == session.IdentityId && len(memberIds) > 0 {
		newHostId := memberIds[0]
		if err := s.roomRepo.UpdateRoomHost(ctx, roomCode, newHostId); err != nil {
			return fmt.Errorf("failed to update room host: %w", err)
		}

		hostTransfer = &HostTransferredEvent{
			OldHostId: session.IdentityId,
			NewHostId: newHostId,
		}
		rm.HostId = newHostId
	}

	// A connection switching rooms is still bound to the old room at this
	// point; it is not a remaining member and gets none of the leave events.
	conns := s.connRepo.GetConnsByRoomCode(roomCode)
	if ownConn, err := s.connRepo.GetConn(session.IdentityId); err == nil {
		remaining := make([]*websocket.Conn, 0, len(conns))
		for _, conn := range conns {
			if conn != ownConn {
				remaining = append(remaining, conn)
			}
		}
		conns = remaining
	}

	members, err := s.getMembers(ctx, roomCode, rm.HostId)
	if err != nil {
		return fmt.Errorf("failed to get members: %w", err)
	}

	username := s.getUsername(ctx, session.IdentityId)

	s.sender.Broadcast(conns, EventMemberLeft, &MemberLeftEvent{
		MemberId: session.IdentityId,
		Members:  members,
	})

	if session.VoiceConnected {
		s.sender.Broadcast(conns, EventVoiceStatusChanged, &VoiceStatusChangedEvent{
			MemberId:  session.IdentityId,
			Connected: false,
		})
		s.appendSystemMessage(ctx, roomCode, conns, fmt.Sprintf("%s left the voice call", username))
	}

	s.appendSystemMessage(ctx, roomCode, conns, fmt.Sprintf("%s left the room", username))

	if hostTransfer != nil {
		s.sender.Broadcast(conns, EventHostTransferred, hostTransfer)
		s.appendSystemMessage(ctx, roomCode, conns, fmt.Sprintf("%s is now the host", s.getUsername(ctx, hostTransfer.NewHostId)))
	}

	return nil
}

type JoinRoomParams struct {
	Conn       *websocket.Conn
	IdentityId string
	RoomCode   string
}

type JoinRoomResponse struct {
	Snapshot RoomSnapshot
}

// JoinRoom is idempotent: re-joining an already-joined identity does not
// duplicate membership and broadcasts no second member-joined event.
func (s service) JoinRoom(ctx context.Context, params *JoinRoomParams) (JoinRoomResponse, error) {
	// A connection is bound to at most one room; switching rooms leaves the
	// previous one first.
	if session, err := s.connRepo.GetSession(params.Conn); err == nil &&
		session.RoomCode != "" && session.RoomCode != params.RoomCode {
		if err := s.leaveRoom(ctx, session); err != nil {
			s.logger.WarnContext(ctx, "failed to leave previous room", "error", err)
		}
	}

	s.locks.lock(params.RoomCode)
	defer s.locks.unlock(params.RoomCode)

	rm, err := s.roomRepo.GetRoom(ctx, params.RoomCode)
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			return JoinRoomResponse{}, ErrRoomNotFound
		}

		return JoinRoomResponse{}, fmt.Errorf("failed to get room: %w", err)
	}

	isMember, err := s.roomRepo.IsMember(ctx, &room.IsMemberParams{
		MemberId: params.IdentityId,
		RoomCode: params.RoomCode,
	})
	if err != nil {
		return JoinRoomResponse{}, fmt.Errorf("failed to check membership: %w", err)
	}

	if !isMember {
		count, err := s.roomRepo.GetMembersCount(ctx, params.RoomCode)
		if err != nil {
			return JoinRoomResponse{}, fmt.Errorf("failed to get members count: %w", err)
		}

		if rm.MaxMembers > 0 && count >= rm.MaxMembers {
			return JoinRoomResponse{}, ErrRoomFull
		}

		// First joiner of an emptied room claims the host role.
		if count == 0 && rm.HostId != params.IdentityId {
			if err := s.roomRepo.UpdateRoomHost(ctx, params.RoomCode, params.IdentityId); err != nil {
				return JoinRoomResponse{}, fmt.Errorf("failed to update room host: %w", err)
			}
			rm.HostId = params.IdentityId
		}

		if err := s.roomRepo.AddMemberToList(ctx, &room.AddMemberToListParams{
			MemberId: params.IdentityId,
			RoomCode: params.RoomCode,
		}); err != nil {
			return JoinRoomResponse{}, fmt.Errorf("failed to add member: %w", err)
		}
	}

	if err := s.connRepo.BindRoom(params.Conn, params.RoomCode); err != nil {
		return JoinRoomResponse{}, fmt.Errorf("failed to bind room: %w", err)
	}

	members, err := s.getMembers(ctx, params.RoomCode, rm.HostId)
	if err != nil {
		return JoinRoomResponse{}, err
	}

	var playback *PlaybackState
	pb, err := s.roomRepo.GetPlayback(ctx, params.RoomCode)
	switch {
	case err == nil:
		playback = buildPlaybackState(pb)
	case !errors.Is(err, room.ErrPlaybackNotFound):
		return JoinRoomResponse{}, fmt.Errorf("failed to get playback: %w", err)
	}

	if !isMember {
		otherConns := make([]*websocket.Conn, 0)
		for _, conn := range s.connRepo.GetConnsByRoomCode(params.RoomCode) {
			if conn != params.Conn {
				otherConns = append(otherConns, conn)
			}
		}

		var joinedMember Member
		for _, member := range members {
			if member.Id == params.IdentityId {
				joinedMember = member
				break
			}
		}

		s.sender.Broadcast(otherConns, EventMemberJoined, &MemberJoinedEvent{
			Member:  joinedMember,
			Members: members,
		})

		// the joiner reads the join notice from the log it is about to fetch;
		// its first live event stays the join snapshot
		s.appendSystemMessage(ctx, params.RoomCode, otherConns, fmt.Sprintf("%s joined the room", joinedMember.Username))
	}

	count, err := s.roomRepo.GetMembersCount(ctx, params.RoomCode)
	if err != nil {
		return JoinRoomResponse{}, fmt.Errorf("failed to get members count: %w", err)
	}

	return JoinRoomResponse{
		Snapshot: RoomSnapshot{
			Room: RoomInfo{
				Code:      params.RoomCode,
				Name:      rm.Name,
				IsPrivate: rm.IsPrivate,
				HostId:    rm.HostId,
				Settings: Settings{
					AllowGuestControl: rm.AllowGuestControl,
					MaxMembers:        rm.MaxMembers,
				},
				MembersCount: count,
			},
			Members:  members,
			Playback: playback,
		},
	}, nil
}
