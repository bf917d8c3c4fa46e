package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/bingesync/server/internal/repository/room"
)

func (r repo) getMemberListKey(roomCode string) string {
	return "room:" + roomCode + ":members"
}

func (r repo) AddMemberToList(ctx context.Context, params *room.AddMemberToListParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	if err := r.addWithIncrement(ctx, r.rc, r.getMemberListKey(params.RoomCode), params.MemberId); err != nil {
		return fmt.Errorf("failed to add member to list: %w", err)
	}

	return nil
}

// RemoveMemberFromList reports whether the member was actually removed, so
// duplicate disconnect signals stay idempotent.
func (r repo) RemoveMemberFromList(ctx context.Context, params *room.RemoveMemberFromListParams) (bool, error) {
	r.logger.DebugContext(ctx, "called", "params", params)
	removed, err := r.rc.ZRem(ctx, r.getMemberListKey(params.RoomCode), params.MemberId).Result()
	if err != nil {
		return false, fmt.Errorf("failed to remove member from list: %w", err)
	}

	return removed > 0, nil
}

// GetMemberIds returns member ids in join order, longest-tenured first.
func (r repo) GetMemberIds(ctx context.Context, roomCode string) ([]string, error) {
	memberIds, err := r.rc.ZRange(ctx, r.getMemberListKey(roomCode), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get member ids: %w", err)
	}

	return memberIds, nil
}

func (r repo) IsMember(ctx context.Context, params *room.IsMemberParams) (bool, error) {
	err := r.rc.ZScore(ctx, r.getMemberListKey(params.RoomCode), params.MemberId).Err()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}

		return false, fmt.Errorf("failed to check membership: %w", err)
	}

	return true, nil
}

func (r repo) GetMembersCount(ctx context.Context, roomCode string) (int, error) {
	count, err := r.rc.ZCard(ctx, r.getMemberListKey(roomCode)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get members count: %w", err)
	}

	return int(count), nil
}
