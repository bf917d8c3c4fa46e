package room

import (
	"context"
	"errors"
	"fmt"

	"github.com/bingesync/server/internal/repository/room"
)

// canControl reports whether the identity may drive playback: the host
// always can, guests only while guest control is enabled.
func canControl(identityId string, rm room.Room) bool {
	return rm.HostId == identityId || rm.AllowGuestControl
}

type TransferHostParams struct {
	IdentityId string
	TargetId   string
	RoomCode   string
}

func (s service) TransferHost(ctx context.Context, params *TransferHostParams) error {
	s.locks.lock(params.RoomCode)
	defer s.locks.unlock(params.RoomCode)

	rm, err := s.roomRepo.GetRoom(ctx, params.RoomCode)
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			return ErrRoomNotFound
		}

		return fmt.Errorf("failed to get room: %w", err)
	}

	if err := s.checkMembership(ctx, params.RoomCode, params.IdentityId); err != nil {
		return err
	}

	if rm.HostId != params.IdentityId {
		return ErrNotAuthorized
	}

	if params.TargetId == params.IdentityId {
		return nil
	}

	isMember, err := s.roomRepo.IsMember(ctx, &room.IsMemberParams{
		MemberId: params.TargetId,
		RoomCode: params.RoomCode,
	})
	if err != nil {
		return fmt.Errorf("failed to check target membership: %w", err)
	}

	if !isMember {
		return ErrTargetNotAMember
	}

	if err := s.roomRepo.UpdateRoomHost(ctx, params.RoomCode, params.TargetId); err != nil {
		return fmt.Errorf("failed to update room host: %w", err)
	}

	conns := s.connRepo.GetConnsByRoomCode(params.RoomCode)
	s.sender.Broadcast(conns, EventHostTransferred, &HostTransferredEvent{
		OldHostId: params.IdentityId,
		NewHostId: params.TargetId,
	})
	s.appendSystemMessage(ctx, params.RoomCode, conns, fmt.Sprintf("%s is now the host", s.getUsername(ctx, params.TargetId)))

	return nil
}

type SetGuestControlParams struct {
	IdentityId string
	RoomCode   string
	Allow      bool
}

func (s service) SetGuestControl(ctx context.Context, params *SetGuestControlParams) error {
	s.locks.lock(params.RoomCode)
	defer s.locks.unlock(params.RoomCode)

	rm, err := s.roomRepo.GetRoom(ctx, params.RoomCode)
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			return ErrRoomNotFound
		}

		return fmt.Errorf("failed to get room: %w", err)
	}

	if rm.HostId != params.IdentityId {
		return ErrNotAuthorized
	}

	if rm.AllowGuestControl == params.Allow {
		return nil
	}

	if err := s.roomRepo.UpdateRoomGuestControl(ctx, params.RoomCode, params.Allow); err != nil {
		return fmt.Errorf("failed to update guest control: %w", err)
	}

	conns := s.connRepo.GetConnsByRoomCode(params.RoomCode)
	s.sender.Broadcast(conns, EventPermissionsChanged, &PermissionsChangedEvent{
		Settings: Settings{
			AllowGuestControl: params.Allow,
			MaxMembers:        rm.MaxMembers,
		},
	})

	body := "guest control disabled"
	if params.Allow {
		body = "guest control enabled"
	}
	s.appendSystemMessage(ctx, params.RoomCode, conns, body)

	return nil
}

type UpdateSettingsParams struct {
	IdentityId        string
	RoomCode          string
	AllowGuestControl *bool
	MaxMembers        *int
}

func (s service) UpdateSettings(ctx context.Context, params *UpdateSettingsParams) (Settings, error) {
	s.locks.lock(params.RoomCode)
	defer s.locks.unlock(params.RoomCode)

	rm, err := s.roomRepo.GetRoom(ctx, params.RoomCode)
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			return Settings{}, ErrRoomNotFound
		}

		return Settings{}, fmt.Errorf("failed to get room: %w", err)
	}

	if rm.HostId != params.IdentityId {
		return Settings{}, ErrNotAuthorized
	}

	settings := Settings{
		AllowGuestControl: rm.AllowGuestControl,
		MaxMembers:        rm.MaxMembers,
	}

	changed := false
	guestControlChanged := false
	if params.AllowGuestControl != nil && *params.AllowGuestControl != rm.AllowGuestControl {
		if err := s.roomRepo.UpdateRoomGuestControl(ctx, params.RoomCode, *params.AllowGuestControl); err != nil {
			return Settings{}, fmt.Errorf("failed to update guest control: %w", err)
		}
		settings.AllowGuestControl = *params.AllowGuestControl
		changed = true
		guestControlChanged = true
	}
	if params.MaxMembers != nil && *params.MaxMembers != rm.MaxMembers {
		maxMembers := *params.MaxMembers
		if maxMembers <= 0 || maxMembers > s.membersLimit {
			maxMembers = s.membersLimit
		}
		if err := s.roomRepo.UpdateRoomMaxMembers(ctx, params.RoomCode, maxMembers); err != nil {
			return Settings{}, fmt.Errorf("failed to update max members: %w", err)
		}
		settings.MaxMembers = maxMembers
		changed = true
	}

	if changed {
		conns := s.connRepo.GetConnsByRoomCode(params.RoomCode)
		s.sender.Broadcast(conns, EventPermissionsChanged, &PermissionsChangedEvent{Settings: settings})

		// Guest control flips get the same log entry no matter which
		// surface toggled them.
		if guestControlChanged {
			body := "guest control disabled"
			if settings.AllowGuestControl {
				body = "guest control enabled"
			}
			s.appendSystemMessage(ctx, params.RoomCode, conns, body)
		}
	}

	return settings, nil
}
