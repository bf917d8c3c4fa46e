package room

const (
	MessageKindUser   = "user"
	MessageKindSystem = "system"
)

type Room struct {
	Name              string `redis:"name"`
	IsPrivate         bool   `redis:"is_private"`
	HostId            string `redis:"host_id"`
	AllowGuestControl bool   `redis:"allow_guest_control"`
	MaxMembers        int    `redis:"max_members"`
	CreatedBy         string `redis:"created_by"`
	CreatedAt         int64  `redis:"created_at"`
}

// Playback is the authoritative transport state of a room. Position is the
// reference position in seconds as of LastActionAt (unix milliseconds).
type Playback struct {
	VideoId      string  `redis:"video_id"`
	URL          string  `redis:"url"`
	Title        string  `redis:"title"`
	IsPlaying    bool    `redis:"is_playing"`
	Position     float64 `redis:"position"`
	LastActionAt int64   `redis:"last_action_at"`
	LastActionBy string  `redis:"last_action_by"`
}

type Message struct {
	Id         string `json:"id"`
	SenderId   string `json:"sender_id"`
	SenderName string `json:"sender_name"`
	Body       string `json:"body"`
	Kind       string `json:"kind"`
	CreatedAt  int64  `json:"created_at"`
}
