package controller

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/bingesync/server/internal/service/account"
	"github.com/bingesync/server/internal/service/room"
	"github.com/bingesync/server/pkg/validator"
)

type iRoomService interface {
	// rooms
	CreateRoom(context.Context, *room.CreateRoomParams) (room.CreateRoomResponse, error)
	GetRoomInfo(context.Context, *room.GetRoomInfoParams) (room.RoomInfo, error)
	ListPublicRooms(context.Context) ([]room.RoomInfo, error)
	UpdateSettings(context.Context, *room.UpdateSettingsParams) (room.Settings, error)
	DeleteRoom(context.Context, *room.DeleteRoomParams) error
	// presence
	Connect(context.Context, *room.ConnectParams) error
	Disconnect(context.Context, *websocket.Conn) (room.DisconnectResponse, error)
	JoinRoom(context.Context, *room.JoinRoomParams) (room.JoinRoomResponse, error)
	GetBoundRoom(conn *websocket.Conn) (string, error)
	// playback
	HandleVideoAction(context.Context, *room.VideoActionParams) error
	RequestSync(context.Context, *room.RequestSyncParams) (room.PlaybackSync, error)
	// messages
	SendMessage(context.Context, *room.SendMessageParams) error
	GetMessages(context.Context, *room.GetMessagesParams) ([]room.Message, error)
	GetMessageHistory(context.Context, *room.GetMessageHistoryParams) ([]room.Message, error)
	// authority
	TransferHost(context.Context, *room.TransferHostParams) error
	SetGuestControl(context.Context, *room.SetGuestControlParams) error
	// voice
	ToggleVoice(context.Context, *room.ToggleVoiceParams) error
	RelaySignal(context.Context, *room.RelaySignalParams) error
}

type iAccountService interface {
	Register(context.Context, *account.RegisterParams) (account.AuthResponse, error)
	Login(context.Context, *account.LoginParams) (account.AuthResponse, error)
	ResolveToken(ctx context.Context, token string) (account.Identity, error)
	GetIdentity(ctx context.Context, accountId string) (account.Identity, error)
}

type iEventSender interface {
	Send(conn *websocket.Conn, event string, payload any) error
}

type controller struct {
	roomService    iRoomService
	accountService iAccountService
	sender         iEventSender
	upgrader       websocket.Upgrader
	validate       *validator.Validator
	logger         *slog.Logger
}

func NewController(roomService iRoomService, accountService iAccountService, sender iEventSender, logger *slog.Logger) *controller {
	return &controller{
		roomService:    roomService,
		accountService: accountService,
		sender:         sender,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		validate: validator.NewValidator(),
		logger:   logger,
	}
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (c controller) sendError(ctx context.Context, conn *websocket.Conn, err error) {
	code, message := mapError(err)
	if sendErr := c.sender.Send(conn, "error", &errorPayload{
		Code:    code,
		Message: message,
	}); sendErr != nil {
		c.logger.InfoContext(ctx, "failed to write error to conn", "error", sendErr)
	}
}
