package room

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bingesync/server/internal/repository/room"
)

const roomCodeLength = 12

type CreateRoomParams struct {
	CreatorId  string
	Name       string
	IsPrivate  bool
	MaxMembers int
}

type CreateRoomResponse struct {
	Room RoomInfo
}

func (s service) CreateRoom(ctx context.Context, params *CreateRoomParams) (CreateRoomResponse, error) {
	maxMembers := params.MaxMembers
	if maxMembers <= 0 || maxMembers > s.membersLimit {
		maxMembers = s.membersLimit
	}

	var roomCode string
	for {
		roomCode = s.generator.GenerateRandomString(roomCodeLength)
		err := s.roomRepo.SetRoom(ctx, &room.SetRoomParams{
			RoomCode:          roomCode,
			Name:              params.Name,
			IsPrivate:         params.IsPrivate,
			HostId:            params.CreatorId,
			AllowGuestControl: false,
			MaxMembers:        maxMembers,
			CreatedBy:         params.CreatorId,
			CreatedAt:         time.Now().UnixMilli(),
		})
		if err == nil {
			break
		}
		if !errors.Is(err, room.ErrRoomAlreadyExists) {
			return CreateRoomResponse{}, fmt.Errorf("failed to set room: %w", err)
		}
	}

	// The creator is host and sole member from the start. A room's member
	// list is only ever empty again after everyone has left.
	if err := s.roomRepo.AddMemberToList(ctx, &room.AddMemberToListParams{
		MemberId: params.CreatorId,
		RoomCode: roomCode,
	}); err != nil {
		return CreateRoomResponse{}, fmt.Errorf("failed to add creator to member list: %w", err)
	}

	return CreateRoomResponse{
		Room: RoomInfo{
			Code:      roomCode,
			Name:      params.Name,
			IsPrivate: params.IsPrivate,
			HostId:    params.CreatorId,
			Settings: Settings{
				AllowGuestControl: false,
				MaxMembers:        maxMembers,
			},
			MembersCount: 1,
		},
	}, nil
}

type GetRoomInfoParams struct {
	IdentityId string
	RoomCode   string
}

// GetRoomInfo serves members always and non-members only for public rooms.
func (s service) GetRoomInfo(ctx context.Context, params *GetRoomInfoParams) (RoomInfo, error) {
	rm, err := s.roomRepo.GetRoom(ctx, params.RoomCode)
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			return RoomInfo{}, ErrRoomNotFound
		}

		return RoomInfo{}, fmt.Errorf("failed to get room: %w", err)
	}

	if rm.IsPrivate {
		isMember, err := s.roomRepo.IsMember(ctx, &room.IsMemberParams{
			MemberId: params.IdentityId,
			RoomCode: params.RoomCode,
		})
		if err != nil {
			return RoomInfo{}, fmt.Errorf("failed to check membership: %w", err)
		}

		if !isMember {
			return RoomInfo{}, ErrNotAuthorized
		}
	}

	count, err := s.roomRepo.GetMembersCount(ctx, params.RoomCode)
	if err != nil {
		return RoomInfo{}, fmt.Errorf("failed to get members count: %w", err)
	}

	return RoomInfo{
		Code:      params.RoomCode,
		Name:      rm.Name,
		IsPrivate: rm.IsPrivate,
		HostId:    rm.HostId,
		Settings: Settings{
			AllowGuestControl: rm.AllowGuestControl,
			MaxMembers:        rm.MaxMembers,
		},
		MembersCount: count,
	}, nil
}

func (s service) ListPublicRooms(ctx context.Context) ([]RoomInfo, error) {
	roomCodes, err := s.roomRepo.GetPublicRoomCodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get public room codes: %w", err)
	}

	rooms := make([]RoomInfo, 0, len(roomCodes))
	for _, roomCode := range roomCodes {
		rm, err := s.roomRepo.GetRoom(ctx, roomCode)
		if err != nil {
			if errors.Is(err, room.ErrRoomNotFound) {
				continue
			}

			return nil, fmt.Errorf("failed to get room: %w", err)
		}

		count, err := s.roomRepo.GetMembersCount(ctx, roomCode)
		if err != nil {
			return nil, fmt.Errorf("failed to get members count: %w", err)
		}

		rooms = append(rooms, RoomInfo{
			Code:      roomCode,
			Name:      rm.Name,
			IsPrivate: rm.IsPrivate,
			HostId:    rm.HostId,
			Settings: Settings{
				AllowGuestControl: rm.AllowGuestControl,
				MaxMembers:        rm.MaxMembers,
			},
			MembersCount: count,
		})
	}

	return rooms, nil
}

type DeleteRoomParams struct {
	IdentityId string
	RoomCode   string
}

func (s service) DeleteRoom(ctx context.Context, params *DeleteRoomParams) error {
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

	if err := s.roomRepo.RemoveRoom(ctx, params.RoomCode); err != nil {
		return fmt.Errorf("failed to remove room: %w", err)
	}

	return nil
}
