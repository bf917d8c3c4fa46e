package room

type SetRoomParams struct {
	RoomCode          string
	Name              string
	IsPrivate         bool
	HostId            string
	AllowGuestControl bool
	MaxMembers        int
	CreatedBy         string
	CreatedAt         int64
}

type AddMemberToListParams struct {
	MemberId string
	RoomCode string
}

type RemoveMemberFromListParams struct {
	MemberId string
	RoomCode string
}

type IsMemberParams struct {
	MemberId string
	RoomCode string
}

type SetPlaybackParams struct {
	VideoId      string
	URL          string
	Title        string
	IsPlaying    bool
	Position     float64
	LastActionAt int64
	LastActionBy string
	RoomCode     string
}

type UpdatePlaybackStateParams struct {
	IsPlaying    bool
	Position     float64
	LastActionAt int64
	LastActionBy string
	RoomCode     string
}

type AddMessageParams struct {
	Message  Message
	RoomCode string
}

type GetMessagesPageParams struct {
	RoomCode string
	Limit    int
	Offset   int
}
