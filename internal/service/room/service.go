package room

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gorilla/websocket"

	"github.com/bingesync/server/internal/repository/account"
	"github.com/bingesync/server/internal/repository/connection"
	"github.com/bingesync/server/internal/repository/room"
	"github.com/bingesync/server/pkg/randstr"
)

var (
	ErrRoomNotFound        = errors.New("room not found")
	ErrRoomFull            = errors.New("room is full")
	ErrNotAMember          = errors.New("not a member of the room")
	ErrNotAuthorized       = errors.New("not authorized")
	ErrHostControlRequired = errors.New("host control required")
	ErrTargetNotAMember    = errors.New("target is not a member of the room")
	ErrTargetNotConnected  = errors.New("target is not connected")
	ErrEmptyMessage        = errors.New("message is empty")
	ErrMessageTooLong      = errors.New("message is too long")
	ErrInvalidVideo        = errors.New("invalid video reference")
	ErrInvalidAction       = errors.New("invalid video action")
)

type iRoomRepo interface {
	// room
	SetRoom(context.Context, *room.SetRoomParams) error
	GetRoom(context.Context, string) (room.Room, error)
	RemoveRoom(context.Context, string) error
	UpdateRoomHost(ctx context.Context, roomCode, hostId string) error
	UpdateRoomGuestControl(ctx context.Context, roomCode string, allow bool) error
	UpdateRoomMaxMembers(ctx context.Context, roomCode string, maxMembers int) error
	GetPublicRoomCodes(context.Context) ([]string, error)
	// members
	AddMemberToList(context.Context, *room.AddMemberToListParams) error
	RemoveMemberFromList(context.Context, *room.RemoveMemberFromListParams) (bool, error)
	GetMemberIds(context.Context, string) ([]string, error)
	IsMember(context.Context, *room.IsMemberParams) (bool, error)
	GetMembersCount(context.Context, string) (int, error)
	// playback
	SetPlayback(context.Context, *room.SetPlaybackParams) error
	GetPlayback(context.Context, string) (room.Playback, error)
	UpdatePlaybackState(context.Context, *room.UpdatePlaybackStateParams) error
	// messages
	AddMessage(context.Context, *room.AddMessageParams) error
	GetLastMessages(ctx context.Context, roomCode string, limit int) ([]room.Message, error)
	GetMessagesPage(context.Context, *room.GetMessagesPageParams) ([]room.Message, error)
}

type iConnRepo interface {
	Add(conn *websocket.Conn, identityId string) error
	RemoveByConn(conn *websocket.Conn) (connection.Session, error)
	GetSession(conn *websocket.Conn) (connection.Session, error)
	GetConn(identityId string) (*websocket.Conn, error)
	GetSessionByIdentity(identityId string) (connection.Session, error)
	BindRoom(conn *websocket.Conn, roomCode string) error
	SetVoiceConnected(conn *websocket.Conn, voiceConnected bool) error
	GetConnsByRoomCode(roomCode string) []*websocket.Conn
}

type iAccountRepo interface {
	GetAccount(context.Context, string) (account.Account, error)
}

type iEventSender interface {
	Send(conn *websocket.Conn, event string, payload any) error
	Broadcast(conns []*websocket.Conn, event string, payload any)
	Forget(conn *websocket.Conn)
	Close(conn *websocket.Conn)
}

type iGenerator interface {
	GenerateRandomString(length int) string
}

type Config struct {
	MembersLimit     int
	MessageMaxLength int
	HistoryLimit     int
}

type service struct {
	roomRepo    iRoomRepo
	connRepo    iConnRepo
	accountRepo iAccountRepo
	sender      iEventSender
	generator   iGenerator
	locks       *roomLocks
	logger      *slog.Logger

	membersLimit     int
	messageMaxLength int
	historyLimit     int
}

func NewService(roomRepo iRoomRepo, connRepo iConnRepo, accountRepo iAccountRepo, sender iEventSender, logger *slog.Logger, cfg *Config) *service {
	letterBytes := []byte("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789")

	return &service{
		roomRepo:         roomRepo,
		connRepo:         connRepo,
		accountRepo:      accountRepo,
		sender:           sender,
		generator:        randstr.New(letterBytes),
		locks:            newRoomLocks(),
		logger:           logger,
		membersLimit:     cfg.MembersLimit,
		messageMaxLength: cfg.MessageMaxLength,
		historyLimit:     cfg.HistoryLimit,
	}
}
