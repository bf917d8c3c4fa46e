package room

import "errors"

var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrRoomAlreadyExists = errors.New("room already exists")
	ErrPlaybackNotFound  = errors.New("playback not found")
)
