package redis

import (
	"context"
	"fmt"

	"github.com/bingesync/server/internal/repository/room"
)

func (r repo) getPlaybackKey(roomCode string) string {
	return "room:" + roomCode + ":playback"
}

// SetPlayback replaces the playback record wholesale. load-video never merges
// with a previous record.
func (r repo) SetPlayback(ctx context.Context, params *room.SetPlaybackParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	playbackKey := r.getPlaybackKey(params.RoomCode)

	pipe := r.rc.TxPipeline()
	pipe.Del(ctx, playbackKey)
	pipe.HSet(ctx, playbackKey, room.Playback{
		VideoId:      params.VideoId,
		URL:          params.URL,
		Title:        params.Title,
		IsPlaying:    params.IsPlaying,
		Position:     params.Position,
		LastActionAt: params.LastActionAt,
		LastActionBy: params.LastActionBy,
	})

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to set playback: %w", err)
	}

	return nil
}

func (r repo) GetPlayback(ctx context.Context, roomCode string) (room.Playback, error) {
	playbackKey := r.getPlaybackKey(roomCode)

	cmd := r.rc.Exists(ctx, playbackKey)
	if err := cmd.Err(); err != nil {
		return room.Playback{}, fmt.Errorf("failed to check if playback exists: %w", err)
	}

	if cmd.Val() == 0 {
		return room.Playback{}, room.ErrPlaybackNotFound
	}

	var playback room.Playback
	if err := r.rc.HGetAll(ctx, playbackKey).Scan(&playback); err != nil {
		return room.Playback{}, fmt.Errorf("failed to get playback: %w", err)
	}

	return playback, nil
}

func (r repo) UpdatePlaybackState(ctx context.Context, params *room.UpdatePlaybackStateParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	playbackKey := r.getPlaybackKey(params.RoomCode)

	cmd := r.rc.Exists(ctx, playbackKey)
	if err := cmd.Err(); err != nil {
		return err
	}

	if cmd.Val() == 0 {
		return room.ErrPlaybackNotFound
	}

	if err := r.rc.HSet(ctx, playbackKey,
		"is_playing", params.IsPlaying,
		"position", params.Position,
		"last_action_at", params.LastActionAt,
		"last_action_by", params.LastActionBy,
	).Err(); err != nil {
		return fmt.Errorf("failed to update playback state: %w", err)
	}

	return nil
}

