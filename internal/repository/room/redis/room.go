package redis

import (
	"context"
	"fmt"

	"github.com/bingesync/server/internal/repository/room"
)

func (r repo) getRoomKey(roomCode string) string {
	return "room:" + roomCode
}

func (r repo) getPublicRoomsKey() string {
	return "rooms:public"
}

func (r repo) SetRoom(ctx context.Context, params *room.SetRoomParams) error {
	roomKey := r.getRoomKey(params.RoomCode)

	cmd := r.rc.Exists(ctx, roomKey)
	if err := cmd.Err(); err != nil {
		return fmt.Errorf("failed to check if room exists: %w", err)
	}

	if cmd.Val() > 0 {
		return room.ErrRoomAlreadyExists
	}

	pipe := r.rc.TxPipeline()

	pipe.HSet(ctx, roomKey, room.Room{
		Name:              params.Name,
		IsPrivate:         params.IsPrivate,
		HostId:            params.HostId,
		AllowGuestControl: params.AllowGuestControl,
		MaxMembers:        params.MaxMembers,
		CreatedBy:         params.CreatedBy,
		CreatedAt:         params.CreatedAt,
	})

	if !params.IsPrivate {
		pipe.SAdd(ctx, r.getPublicRoomsKey(), params.RoomCode)
	}

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to set room: %w", err)
	}

	return nil
}

func (r repo) GetRoom(ctx context.Context, roomCode string) (room.Room, error) {
	var rm room.Room
	if err := r.rc.HGetAll(ctx, r.getRoomKey(roomCode)).Scan(&rm); err != nil {
		return room.Room{}, fmt.Errorf("failed to get room: %w", err)
	}

	if rm.Name == "" {
		return room.Room{}, room.ErrRoomNotFound
	}

	return rm, nil
}

func (r repo) RemoveRoom(ctx context.Context, roomCode string) error {
	pipe := r.rc.TxPipeline()

	pipe.Del(ctx,
		r.getRoomKey(roomCode),
		r.getMemberListKey(roomCode),
		r.getPlaybackKey(roomCode),
		r.getMessagesKey(roomCode),
	)
	pipe.SRem(ctx, r.getPublicRoomsKey(), roomCode)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to remove room: %w", err)
	}

	return nil
}

func (r repo) UpdateRoomHost(ctx context.Context, roomCode, hostId string) error {
	roomKey := r.getRoomKey(roomCode)

	cmd := r.rc.Exists(ctx, roomKey)
	if err := cmd.Err(); err != nil {
		return err
	}

	if cmd.Val() == 0 {
		return room.ErrRoomNotFound
	}

	return r.rc.HSet(ctx, roomKey, "host_id", hostId).Err()
}

func (r repo) UpdateRoomGuestControl(ctx context.Context, roomCode string, allow bool) error {
	roomKey := r.getRoomKey(roomCode)

	cmd := r.rc.Exists(ctx, roomKey)
	if err := cmd.Err(); err != nil {
		return err
	}

	if cmd.Val() == 0 {
		return room.ErrRoomNotFound
	}

	return r.rc.HSet(ctx, roomKey, "allow_guest_control", allow).Err()
}

func (r repo) UpdateRoomMaxMembers(ctx context.Context, roomCode string, maxMembers int) error {
	roomKey := r.getRoomKey(roomCode)

	cmd := r.rc.Exists(ctx, roomKey)
	if err := cmd.Err(); err != nil {
		return err
	}

	if cmd.Val() == 0 {
		return room.ErrRoomNotFound
	}

	return r.rc.HSet(ctx, roomKey, "max_members", maxMembers).Err()
}

func (r repo) GetPublicRoomCodes(ctx context.Context) ([]string, error) {
	roomCodes, err := r.rc.SMembers(ctx, r.getPublicRoomsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get public room codes: %w", err)
	}

	return roomCodes, nil
}
