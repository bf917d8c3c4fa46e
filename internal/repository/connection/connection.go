package connection

import "errors"

var (
	ErrNotFound      = errors.New("session not found")
	ErrAlreadyExists = errors.New("session already exists")
)

// Session is the ephemeral binding of a live connection to an identity.
// It is never persisted; a reconnect builds a fresh one via join.
type Session struct {
	IdentityId     string
	RoomCode       string
	VoiceConnected bool
}
