package room

import "encoding/json"

// Server → client event types.
const (
	EventRoomJoined         = "room-joined"
	EventMemberJoined       = "member-joined"
	EventMemberLeft         = "member-left"
	EventPlaybackSync       = "playback-sync"
	EventMessagePosted      = "message-posted"
	EventMessagesHistory    = "messages-history"
	EventPermissionsChanged = "permissions-changed"
	EventHostTransferred    = "host-transferred"
	EventVoiceStatusChanged = "voice-status-changed"
)

type Member struct {
	Id             string `json:"id"`
	Username       string `json:"username"`
	IsHost         bool   `json:"is_host"`
	VoiceConnected bool   `json:"voice_connected"`
}

type Settings struct {
	AllowGuestControl bool `json:"allow_guest_control"`
	MaxMembers        int  `json:"max_members"`
}

type RoomInfo struct {
	Code         string   `json:"code"`
	Name         string   `json:"name"`
	IsPrivate    bool     `json:"is_private"`
	HostId       string   `json:"host_id"`
	Settings     Settings `json:"settings"`
	MembersCount int      `json:"members_count"`
}

type VideoRef struct {
	VideoId string `json:"video_id"`
	URL     string `json:"url"`
	Title   string `json:"title"`
}

// PlaybackState is the reference-position pair clients extrapolate from:
// the true position of a playing video is Position + (now - Timestamp).
type PlaybackState struct {
	Video     VideoRef `json:"video"`
	IsPlaying bool     `json:"is_playing"`
	Position  float64  `json:"position"`
	Timestamp int64    `json:"timestamp"`
}

type PlaybackSync struct {
	Action   string         `json:"action"`
	Playback *PlaybackState `json:"playback"`
	ById     string         `json:"by_id"`
	ByHost   bool           `json:"by_host"`
}

type Message struct {
	Id         string `json:"id"`
	SenderId   string `json:"sender_id"`
	SenderName string `json:"sender_name"`
	Body       string `json:"body"`
	Kind       string `json:"kind"`
	CreatedAt  int64  `json:"created_at"`
}

type RoomSnapshot struct {
	Room     RoomInfo       `json:"room"`
	Members  []Member       `json:"members"`
	Playback *PlaybackState `json:"playback"`
}

type MemberJoinedEvent struct {
	Member  Member   `json:"member"`
	Members []Member `json:"members"`
}

type MemberLeftEvent struct {
	MemberId string   `json:"member_id"`
	Members  []Member `json:"members"`
}

type HostTransferredEvent struct {
	OldHostId string `json:"old_host_id"`
	NewHostId string `json:"new_host_id"`
}

type PermissionsChangedEvent struct {
	Settings Settings `json:"settings"`
}

type VoiceStatusChangedEvent struct {
	MemberId  string `json:"member_id"`
	Connected bool   `json:"connected"`
}

type MessagePostedEvent struct {
	Message Message `json:"message"`
}

type MessagesHistoryEvent struct {
	Messages []Message `json:"messages"`
}

type SignalEvent struct {
	FromId  string          `json:"from_id"`
	Payload json.RawMessage `json:"payload"`
}
