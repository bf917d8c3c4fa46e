package room

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bingesync/server/internal/repository/room"
	"github.com/bingesync/server/pkg/ytlink"
)

// Client → server playback actions.
const (
	ActionLoadVideo = "load-video"
	ActionPlay      = "play"
	ActionPause     = "pause"
	ActionSeek      = "seek"
	ActionSync      = "sync"
)

type VideoActionParams struct {
	IdentityId string
	RoomCode   string
	Action     string
	URL        string
	Title      string
	Position   float64
}

// HandleVideoAction applies a playback mutation and broadcasts the resulting
// state to every member, the actor included, so all clients converge on the
// same playback-sync event.
func (s service) HandleVideoAction(ctx context.Context, params *VideoActionParams) error {
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

	if !canControl(params.IdentityId, rm) {
		return ErrHostControlRequired
	}

	now := time.Now().UnixMilli()

	var playback room.Playback
	switch params.Action {
	case ActionLoadVideo:
		videoId, err := ytlink.ExtractVideoId(params.URL)
		if err != nil {
			return ErrInvalidVideo
		}

		playback = room.Playback{
			VideoId:      videoId,
			URL:          params.URL,
			Title:        params.Title,
			IsPlaying:    false,
			Position:     0,
			LastActionAt: now,
			LastActionBy: params.IdentityId,
		}

		if err := s.roomRepo.SetPlayback(ctx, &room.SetPlaybackParams{
			VideoId:      playback.VideoId,
			URL:          playback.URL,
			Title:        playback.Title,
			IsPlaying:    playback.IsPlaying,
			Position:     playback.Position,
			LastActionAt: playback.LastActionAt,
			LastActionBy: playback.LastActionBy,
			RoomCode:     params.RoomCode,
		}); err != nil {
			return fmt.Errorf("failed to set playback: %w", err)
		}
	case ActionPlay, ActionPause, ActionSeek:
		playback, err = s.roomRepo.GetPlayback(ctx, params.RoomCode)
		if err != nil {
			if errors.Is(err, room.ErrPlaybackNotFound) {
				// Nothing loaded yet: a stale control is dropped, not failed.
				return nil
			}

			return fmt.Errorf("failed to get playback: %w", err)
		}

		switch params.Action {
		case ActionPlay:
			playback.IsPlaying = true
			playback.Position = params.Position
		case ActionPause:
			playback.IsPlaying = false
			playback.Position = params.Position
		case ActionSeek:
			playback.Position = params.Position
		}
		playback.LastActionAt = now
		playback.LastActionBy = params.IdentityId

		if err := s.roomRepo.UpdatePlaybackState(ctx, &room.UpdatePlaybackStateParams{
			IsPlaying:    playback.IsPlaying,
			Position:     playback.Position,
			LastActionAt: playback.LastActionAt,
			LastActionBy: playback.LastActionBy,
			RoomCode:     params.RoomCode,
		}); err != nil {
			return fmt.Errorf("failed to update playback state: %w", err)
		}
	default:
		return ErrInvalidAction
	}

	s.sender.Broadcast(s.connRepo.GetConnsByRoomCode(params.RoomCode), EventPlaybackSync, &PlaybackSync{
		Action:   params.Action,
		Playback: buildPlaybackState(playback),
		ById:     params.IdentityId,
		ByHost:   params.IdentityId == rm.HostId,
	})

	return nil
}

type RequestSyncParams struct {
	IdentityId string
	RoomCode   string
}

// RequestSync answers a single client with the current state. A room with no
// loaded video replies with a nil playback so the client can reset.
func (s service) RequestSync(ctx context.Context, params *RequestSyncParams) (PlaybackSync, error) {
	rm, err := s.roomRepo.GetRoom(ctx, params.RoomCode)
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			return PlaybackSync{}, ErrRoomNotFound
		}

		return PlaybackSync{}, fmt.Errorf("failed to get room: %w", err)
	}

	if err := s.checkMembership(ctx, params.RoomCode, params.IdentityId); err != nil {
		return PlaybackSync{}, err
	}

	sync := PlaybackSync{
		Action: ActionSync,
		ById:   rm.HostId,
		ByHost: true,
	}

	playback, err := s.roomRepo.GetPlayback(ctx, params.RoomCode)
	switch {
	case err == nil:
		sync.Playback = buildPlaybackState(playback)
	case !errors.Is(err, room.ErrPlaybackNotFound):
		return PlaybackSync{}, fmt.Errorf("failed to get playback: %w", err)
	}

	return sync, nil
}
