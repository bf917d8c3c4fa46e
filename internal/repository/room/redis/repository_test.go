package redis

import (
	"context"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bingesync/server/internal/repository/room"
)

func TestAddMemberToList(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)

	r := NewRepo(redis.NewClient(&redis.Options{Addr: s.Addr()}), slog.Default())
	ctx := context.Background()

	require.NoError(t, r.AddMemberToList(ctx, &room.AddMemberToListParams{MemberId: "m1", RoomCode: "abcdefabcdef"}))
	require.NoError(t, r.AddMemberToList(ctx, &room.AddMemberToListParams{MemberId: "m2", RoomCode: "abcdefabcdef"}))

	memberIds, err := r.GetMemberIds(ctx, "abcdefabcdef")
	require.NoError(t, err)
	assert.Equal(t, []string{"m1", "m2"}, memberIds, "join order survives")

	count, err := r.GetMembersCount(ctx, "abcdefabcdef")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// a write that never reaches the server reports an error
	s.Close()
	err = r.AddMemberToList(ctx, &room.AddMemberToListParams{MemberId: "m3", RoomCode: "abcdefabcdef"})
	require.Error(t, err)
}
