package room

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bingesync/server/internal/repository/account"
	accountredis "github.com/bingesync/server/internal/repository/account/redis"
	"github.com/bingesync/server/internal/repository/connection/inmemory"
	roomredis "github.com/bingesync/server/internal/repository/room/redis"
)

type sentEvent struct {
	conn    *websocket.Conn
	event   string
	payload any
}

type fakeSender struct {
	mu     sync.Mutex
	events []sentEvent
	closed []*websocket.Conn
}

func (f *fakeSender) Send(conn *websocket.Conn, event string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.events = append(f.events, sentEvent{conn: conn, event: event, payload: payload})

	return nil
}

func (f *fakeSender) Broadcast(conns []*websocket.Conn, event string, payload any) {
	for _, conn := range conns {
		f.Send(conn, event, payload)
	}
}

func (f *fakeSender) Forget(conn *websocket.Conn) {}

func (f *fakeSender) Close(conn *websocket.Conn) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = append(f.closed, conn)
}

func (f *fakeSender) eventsFor(conn *websocket.Conn, event string) []sentEvent {
	f.mu.Lock()
	defer f.mu.Unlock()

	events := make([]sentEvent, 0)
	for _, e := range f.events {
		if e.conn == conn && e.event == event {
			events = append(events, e)
		}
	}

	return events
}

func (f *fakeSender) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.events = nil
}

type iTestAccountRepo interface {
	SetAccount(context.Context, *account.SetAccountParams) error
	GetAccount(context.Context, string) (account.Account, error)
}

type testEnv struct {
	service     *service
	sender      *fakeSender
	accountRepo iTestAccountRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)

	r := redis.NewClient(&redis.Options{
		Addr: s.Addr(),
	})

	logger := slog.Default()
	roomRepo := roomredis.NewRepo(r, logger)
	accountRepo := accountredis.NewRepo(r, logger)
	connRepo := inmemory.NewRepo(logger)
	sender := &fakeSender{}

	svc := NewService(roomRepo, connRepo, accountRepo, sender, logger, &Config{
		MembersLimit:     5,
		MessageMaxLength: 200,
		HistoryLimit:     50,
	})

	return &testEnv{
		service:     svc,
		sender:      sender,
		accountRepo: accountRepo,
	}
}

func (e *testEnv) addUser(t *testing.T, username string) (string, *websocket.Conn) {
	t.Helper()

	ctx := context.Background()
	accountId := uuid.NewString()
	require.NoError(t, e.accountRepo.SetAccount(ctx, &account.SetAccountParams{
		AccountId:    accountId,
		Username:     username,
		Email:        fmt.Sprintf("%s@example.com", username),
		PasswordHash: "x",
		CreatedAt:    time.Now().Unix(),
	}))

	conn := &websocket.Conn{}
	require.NoError(t, e.service.Connect(ctx, &ConnectParams{
		Conn:       conn,
		IdentityId: accountId,
	}))

	return accountId, conn
}

func (e *testEnv) createRoom(t *testing.T, creatorId string, maxMembers int) string {
	t.Helper()

	resp, err := e.service.CreateRoom(context.Background(), &CreateRoomParams{
		CreatorId:  creatorId,
		Name:       "movie night",
		MaxMembers: maxMembers,
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Room.Code)

	return resp.Room.Code
}

func TestPlaybackControlFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	hostId, hostConn := env.addUser(t, "host")
	guestId, guestConn := env.addUser(t, "guest")
	roomCode := env.createRoom(t, hostId, 0)

	hostJoin, err := env.service.JoinRoom(ctx, &JoinRoomParams{Conn: hostConn, IdentityId: hostId, RoomCode: roomCode})
	require.NoError(t, err)
	assert.Equal(t, hostId, hostJoin.Snapshot.Room.HostId)
	assert.Nil(t, hostJoin.Snapshot.Playback)

	guestJoin, err := env.service.JoinRoom(ctx, &JoinRoomParams{Conn: guestConn, IdentityId: guestId, RoomCode: roomCode})
	require.NoError(t, err)
	assert.Equal(t, hostId, guestJoin.Snapshot.Room.HostId)
	assert.Len(t, guestJoin.Snapshot.Members, 2)

	joined := env.sender.eventsFor(hostConn, EventMemberJoined)
	require.Len(t, joined, 1)
	assert.Equal(t, guestId, joined[0].payload.(*MemberJoinedEvent).Member.Id)

	env.sender.reset()

	// host loads a video
	err = env.service.HandleVideoAction(ctx, &VideoActionParams{
		IdentityId: hostId,
		RoomCode:   roomCode,
		Action:     ActionLoadVideo,
		URL:        "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		Title:      "some video",
	})
	require.NoError(t, err)

	for _, conn := range []*websocket.Conn{hostConn, guestConn} {
		syncs := env.sender.eventsFor(conn, EventPlaybackSync)
		require.Len(t, syncs, 1)
		sync := syncs[0].payload.(*PlaybackSync)
		assert.Equal(t, ActionLoadVideo, sync.Action)
		assert.Equal(t, "dQw4w9WgXcQ", sync.Playback.Video.VideoId)
		assert.False(t, sync.Playback.IsPlaying)
	}

	// host starts playback
	err = env.service.HandleVideoAction(ctx, &VideoActionParams{
		IdentityId: hostId,
		RoomCode:   roomCode,
		Action:     ActionPlay,
		Position:   0,
	})
	require.NoError(t, err)

	// guest cannot control while guest control is off
	err = env.service.HandleVideoAction(ctx, &VideoActionParams{
		IdentityId: guestId,
		RoomCode:   roomCode,
		Action:     ActionSeek,
		Position:   120,
	})
	require.ErrorIs(t, err, ErrHostControlRequired)

	sync, err := env.service.RequestSync(ctx, &RequestSyncParams{IdentityId: guestId, RoomCode: roomCode})
	require.NoError(t, err)
	require.NotNil(t, sync.Playback)
	assert.True(t, sync.Playback.IsPlaying)
	assert.Equal(t, float64(0), sync.Playback.Position, "denied action must not change state")

	// after host transfer the former guest controls playback
	require.NoError(t, env.service.TransferHost(ctx, &TransferHostParams{
		IdentityId: hostId,
		TargetId:   guestId,
		RoomCode:   roomCode,
	}))

	transferred := env.sender.eventsFor(hostConn, EventHostTransferred)
	require.Len(t, transferred, 1)
	assert.Equal(t, guestId, transferred[0].payload.(*HostTransferredEvent).NewHostId)

	err = env.service.HandleVideoAction(ctx, &VideoActionParams{
		IdentityId: guestId,
		RoomCode:   roomCode,
		Action:     ActionSeek,
		Position:   42,
	})
	require.NoError(t, err)

	sync, err = env.service.RequestSync(ctx, &RequestSyncParams{IdentityId: guestId, RoomCode: roomCode})
	require.NoError(t, err)
	assert.Equal(t, float64(42), sync.Playback.Position)
	assert.True(t, sync.Playback.IsPlaying, "seek must not touch the play flag")
}

func TestGuestControl(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	hostId, hostConn := env.addUser(t, "host")
	guestId, guestConn := env.addUser(t, "guest")
	roomCode := env.createRoom(t, hostId, 0)

	_, err := env.service.JoinRoom(ctx, &JoinRoomParams{Conn: hostConn, IdentityId: hostId, RoomCode: roomCode})
	require.NoError(t, err)
	_, err = env.service.JoinRoom(ctx, &JoinRoomParams{Conn: guestConn, IdentityId: guestId, RoomCode: roomCode})
	require.NoError(t, err)

	// guest cannot toggle guest control
	err = env.service.SetGuestControl(ctx, &SetGuestControlParams{IdentityId: guestId, RoomCode: roomCode, Allow: true})
	require.ErrorIs(t, err, ErrNotAuthorized)

	require.NoError(t, env.service.HandleVideoAction(ctx, &VideoActionParams{
		IdentityId: hostId,
		RoomCode:   roomCode,
		Action:     ActionLoadVideo,
		URL:        "https://youtu.be/dQw4w9WgXcQ",
	}))

	env.sender.reset()

	require.NoError(t, env.service.SetGuestControl(ctx, &SetGuestControlParams{IdentityId: hostId, RoomCode: roomCode, Allow: true}))

	changed := env.sender.eventsFor(guestConn, EventPermissionsChanged)
	require.Len(t, changed, 1)
	assert.True(t, changed[0].payload.(*PermissionsChangedEvent).Settings.AllowGuestControl)

	require.NoError(t, env.service.HandleVideoAction(ctx, &VideoActionParams{
		IdentityId: guestId,
		RoomCode:   roomCode,
		Action:     ActionPlay,
		Position:   10,
	}))

	sync, err := env.service.RequestSync(ctx, &RequestSyncParams{IdentityId: guestId, RoomCode: roomCode})
	require.NoError(t, err)
	assert.True(t, sync.Playback.IsPlaying)
	assert.Equal(t, float64(10), sync.Playback.Position)
}

func TestJoinRoomIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	hostId, hostConn := env.addUser(t, "host")
	roomCode := env.createRoom(t, hostId, 0)

	first, err := env.service.JoinRoom(ctx, &JoinRoomParams{Conn: hostConn, IdentityId: hostId, RoomCode: roomCode})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Snapshot.Room.MembersCount)

	env.sender.reset()

	second, err := env.service.JoinRoom(ctx, &JoinRoomParams{Conn: hostConn, IdentityId: hostId, RoomCode: roomCode})
	require.NoError(t, err)
	assert.Equal(t, 1, second.Snapshot.Room.MembersCount)
	assert.Empty(t, env.sender.eventsFor(hostConn, EventMemberJoined), "re-join must not announce the member again")
}

func TestJoinRoomErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	hostId, hostConn := env.addUser(t, "host")
	guestId, guestConn := env.addUser(t, "guest")

	_, err := env.service.JoinRoom(ctx, &JoinRoomParams{Conn: hostConn, IdentityId: hostId, RoomCode: "nosuchroom12"})
	require.ErrorIs(t, err, ErrRoomNotFound)

	roomCode := env.createRoom(t, hostId, 1)
	_, err = env.service.JoinRoom(ctx, &JoinRoomParams{Conn: hostConn, IdentityId: hostId, RoomCode: roomCode})
	require.NoError(t, err)

	_, err = env.service.JoinRoom(ctx, &JoinRoomParams{Conn: guestConn, IdentityId: guestId, RoomCode: roomCode})
	require.ErrorIs(t, err, ErrRoomFull)
}

func TestMessages(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	hostId, hostConn := env.addUser(t, "host")
	guestId, guestConn := env.addUser(t, "guest")
	roomCode := env.createRoom(t, hostId, 0)

	_, err := env.service.JoinRoom(ctx, &JoinRoomParams{Conn: hostConn, IdentityId: hostId, RoomCode: roomCode})
	require.NoError(t, err)
	_, err = env.service.JoinRoom(ctx, &JoinRoomParams{Conn: guestConn, IdentityId: guestId, RoomCode: roomCode})
	require.NoError(t, err)

	err = env.service.SendMessage(ctx, &SendMessageParams{IdentityId: hostId, RoomCode: roomCode, Body: "   "})
	require.ErrorIs(t, err, ErrEmptyMessage)

	err = env.service.SendMessage(ctx, &SendMessageParams{IdentityId: hostId, RoomCode: roomCode, Body: strings.Repeat("a", 201)})
	require.ErrorIs(t, err, ErrMessageTooLong)

	env.sender.reset()

	require.NoError(t, env.service.SendMessage(ctx, &SendMessageParams{IdentityId: hostId, RoomCode: roomCode, Body: "first"}))
	require.NoError(t, env.service.SendMessage(ctx, &SendMessageParams{IdentityId: guestId, RoomCode: roomCode, Body: "second"}))

	posted := env.sender.eventsFor(guestConn, EventMessagePosted)
	require.Len(t, posted, 2)
	assert.Equal(t, "first", posted[0].payload.(*MessagePostedEvent).Message.Body)
	assert.Equal(t, "second", posted[1].payload.(*MessagePostedEvent).Message.Body)
	assert.Equal(t, "host", posted[0].payload.(*MessagePostedEvent).Message.SenderName)

	messages, err := env.service.GetMessages(ctx, &GetMessagesParams{IdentityId: guestId, RoomCode: roomCode, Limit: 2})
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "first", messages[0].Body)
	assert.Equal(t, "second", messages[1].Body)

	// system join messages land in the log too
	all, err := env.service.GetMessages(ctx, &GetMessagesParams{IdentityId: guestId, RoomCode: roomCode})
	require.NoError(t, err)
	assert.Greater(t, len(all), 2)
	assert.Equal(t, "system", all[0].Kind)
}

func TestLeaveTransfersHost(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	hostId, hostConn := env.addUser(t, "host")
	guestId, guestConn := env.addUser(t, "guest")
	roomCode := env.createRoom(t, hostId, 0)

	_, err := env.service.JoinRoom(ctx, &JoinRoomParams{Conn: hostConn, IdentityId: hostId, RoomCode: roomCode})
	require.NoError(t, err)
	_, err = env.service.JoinRoom(ctx, &JoinRoomParams{Conn: guestConn, IdentityId: guestId, RoomCode: roomCode})
	require.NoError(t, err)

	env.sender.reset()

	resp, err := env.service.Disconnect(ctx, hostConn)
	require.NoError(t, err)
	assert.Equal(t, roomCode, resp.LeftRoomCode)

	left := env.sender.eventsFor(guestConn, EventMemberLeft)
	require.Len(t, left, 1)
	assert.Equal(t, hostId, left[0].payload.(*MemberLeftEvent).MemberId)
	require.Len(t, left[0].payload.(*MemberLeftEvent).Members, 1)

	transferred := env.sender.eventsFor(guestConn, EventHostTransferred)
	require.Len(t, transferred, 1)
	assert.Equal(t, guestId, transferred[0].payload.(*HostTransferredEvent).NewHostId)

	info, err := env.service.GetRoomInfo(ctx, &GetRoomInfoParams{IdentityId: guestId, RoomCode: roomCode})
	require.NoError(t, err)
	assert.Equal(t, guestId, info.HostId)

	// a second disconnect of the same conn is a no-op
	resp, err = env.service.Disconnect(ctx, hostConn)
	require.NoError(t, err)
	assert.Empty(t, resp.LeftRoomCode)
}

func TestVoiceAndSignaling(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	hostId, hostConn := env.addUser(t, "host")
	guestId, guestConn := env.addUser(t, "guest")
	strangerId, _ := env.addUser(t, "stranger")
	roomCode := env.createRoom(t, hostId, 0)

	_, err := env.service.JoinRoom(ctx, &JoinRoomParams{Conn: hostConn, IdentityId: hostId, RoomCode: roomCode})
	require.NoError(t, err)
	_, err = env.service.JoinRoom(ctx, &JoinRoomParams{Conn: guestConn, IdentityId: guestId, RoomCode: roomCode})
	require.NoError(t, err)

	env.sender.reset()

	require.NoError(t, env.service.ToggleVoice(ctx, &ToggleVoiceParams{Conn: guestConn, IdentityId: guestId, Connected: true}))

	status := env.sender.eventsFor(hostConn, EventVoiceStatusChanged)
	require.Len(t, status, 1)
	assert.Equal(t, guestId, status[0].payload.(*VoiceStatusChangedEvent).MemberId)
	assert.True(t, status[0].payload.(*VoiceStatusChangedEvent).Connected)

	// same state again is silently ignored
	env.sender.reset()
	require.NoError(t, env.service.ToggleVoice(ctx, &ToggleVoiceParams{Conn: guestConn, IdentityId: guestId, Connected: true}))
	assert.Empty(t, env.sender.eventsFor(hostConn, EventVoiceStatusChanged))

	offer := json.RawMessage(`{"sdp":"v=0"}`)
	require.NoError(t, env.service.RelaySignal(ctx, &RelaySignalParams{
		IdentityId: hostId,
		RoomCode:   roomCode,
		TargetId:   guestId,
		Event:      EventSignalOffer,
		Payload:    offer,
	}))

	relayed := env.sender.eventsFor(guestConn, EventSignalOffer)
	require.Len(t, relayed, 1)
	assert.Equal(t, hostId, relayed[0].payload.(*SignalEvent).FromId)
	assert.JSONEq(t, string(offer), string(relayed[0].payload.(*SignalEvent).Payload))

	err = env.service.RelaySignal(ctx, &RelaySignalParams{
		IdentityId: hostId,
		RoomCode:   roomCode,
		TargetId:   strangerId,
		Event:      EventSignalOffer,
		Payload:    offer,
	})
	require.ErrorIs(t, err, ErrTargetNotAMember)
}

func TestRequestSyncEmptyRoom(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	hostId, hostConn := env.addUser(t, "host")
	roomCode := env.createRoom(t, hostId, 0)

	_, err := env.service.JoinRoom(ctx, &JoinRoomParams{Conn: hostConn, IdentityId: hostId, RoomCode: roomCode})
	require.NoError(t, err)

	sync, err := env.service.RequestSync(ctx, &RequestSyncParams{IdentityId: hostId, RoomCode: roomCode})
	require.NoError(t, err)
	assert.Nil(t, sync.Playback)
	assert.Equal(t, ActionSync, sync.Action)
}

func TestLoadVideoRejectsBadURL(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	hostId, hostConn := env.addUser(t, "host")
	roomCode := env.createRoom(t, hostId, 0)

	_, err := env.service.JoinRoom(ctx, &JoinRoomParams{Conn: hostConn, IdentityId: hostId, RoomCode: roomCode})
	require.NoError(t, err)

	err = env.service.HandleVideoAction(ctx, &VideoActionParams{
		IdentityId: hostId,
		RoomCode:   roomCode,
		Action:     ActionLoadVideo,
		URL:        "https://example.com/watch?v=abc",
	})
	require.ErrorIs(t, err, ErrInvalidVideo)
}

func TestCreateRoomCreatorIsMember(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	creatorId, _ := env.addUser(t, "creator")
	strangerId, strangerConn := env.addUser(t, "stranger")

	resp, err := env.service.CreateRoom(ctx, &CreateRoomParams{
		CreatorId: creatorId,
		Name:      "movie night",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Room.MembersCount)

	// a stranger joining the fresh room does not take over the host role
	join, err := env.service.JoinRoom(ctx, &JoinRoomParams{Conn: strangerConn, IdentityId: strangerId, RoomCode: resp.Room.Code})
	require.NoError(t, err)
	assert.Equal(t, creatorId, join.Snapshot.Room.HostId)
	assert.Equal(t, 2, join.Snapshot.Room.MembersCount)

	ids := make([]string, 0, len(join.Snapshot.Members))
	for _, member := range join.Snapshot.Members {
		ids = append(ids, member.Id)
	}
	assert.Equal(t, []string{creatorId, strangerId}, ids, "creator is the longest-tenured member")
}

func TestReconnectKeepsMembership(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	hostId, hostConn := env.addUser(t, "host")
	guestId, guestConn := env.addUser(t, "guest")
	roomCode := env.createRoom(t, hostId, 0)

	_, err := env.service.JoinRoom(ctx, &JoinRoomParams{Conn: hostConn, IdentityId: hostId, RoomCode: roomCode})
	require.NoError(t, err)
	_, err = env.service.JoinRoom(ctx, &JoinRoomParams{Conn: guestConn, IdentityId: guestId, RoomCode: roomCode})
	require.NoError(t, err)

	// the host reconnects; the superseded connection is closed and the new
	// one inherits the room binding
	newConn := &websocket.Conn{}
	require.NoError(t, env.service.Connect(ctx, &ConnectParams{Conn: newConn, IdentityId: hostId}))
	assert.Equal(t, []*websocket.Conn{hostConn}, env.sender.closed)

	boundRoom, err := env.service.GetBoundRoom(newConn)
	require.NoError(t, err)
	assert.Equal(t, roomCode, boundRoom)

	env.sender.reset()

	// dropping the new connection without re-joining still leaves the room
	resp, err := env.service.Disconnect(ctx, newConn)
	require.NoError(t, err)
	assert.Equal(t, roomCode, resp.LeftRoomCode)

	info, err := env.service.GetRoomInfo(ctx, &GetRoomInfoParams{IdentityId: guestId, RoomCode: roomCode})
	require.NoError(t, err)
	assert.Equal(t, 1, info.MembersCount)
	assert.Equal(t, guestId, info.HostId)

	left := env.sender.eventsFor(guestConn, EventMemberLeft)
	require.Len(t, left, 1)
	assert.Equal(t, hostId, left[0].payload.(*MemberLeftEvent).MemberId)
}

func TestSwitchRoomsNoSelfLeaveEvents(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	hostId, hostConn := env.addUser(t, "host")
	guestId, guestConn := env.addUser(t, "guest")
	firstRoom := env.createRoom(t, hostId, 0)
	secondRoom := env.createRoom(t, hostId, 0)

	_, err := env.service.JoinRoom(ctx, &JoinRoomParams{Conn: hostConn, IdentityId: hostId, RoomCode: firstRoom})
	require.NoError(t, err)
	_, err = env.service.JoinRoom(ctx, &JoinRoomParams{Conn: guestConn, IdentityId: guestId, RoomCode: firstRoom})
	require.NoError(t, err)

	env.sender.reset()

	_, err = env.service.JoinRoom(ctx, &JoinRoomParams{Conn: hostConn, IdentityId: hostId, RoomCode: secondRoom})
	require.NoError(t, err)

	boundRoom, err := env.service.GetBoundRoom(hostConn)
	require.NoError(t, err)
	assert.Equal(t, secondRoom, boundRoom)

	left := env.sender.eventsFor(guestConn, EventMemberLeft)
	require.Len(t, left, 1)
	assert.Equal(t, hostId, left[0].payload.(*MemberLeftEvent).MemberId)

	// the switching connection hears nothing about its own departure
	assert.Empty(t, env.sender.eventsFor(hostConn, EventMemberLeft))
	assert.Empty(t, env.sender.eventsFor(hostConn, EventMessagePosted))
}

func TestUpdateSettingsGuestControlNotice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	hostId, hostConn := env.addUser(t, "host")
	guestId, guestConn := env.addUser(t, "guest")
	roomCode := env.createRoom(t, hostId, 0)

	_, err := env.service.JoinRoom(ctx, &JoinRoomParams{Conn: hostConn, IdentityId: hostId, RoomCode: roomCode})
	require.NoError(t, err)
	_, err = env.service.JoinRoom(ctx, &JoinRoomParams{Conn: guestConn, IdentityId: guestId, RoomCode: roomCode})
	require.NoError(t, err)

	env.sender.reset()

	allow := true
	settings, err := env.service.UpdateSettings(ctx, &UpdateSettingsParams{
		IdentityId:        hostId,
		RoomCode:          roomCode,
		AllowGuestControl: &allow,
	})
	require.NoError(t, err)
	assert.True(t, settings.AllowGuestControl)

	require.Len(t, env.sender.eventsFor(guestConn, EventPermissionsChanged), 1)

	posted := env.sender.eventsFor(guestConn, EventMessagePosted)
	require.Len(t, posted, 1)
	assert.Equal(t, "system", posted[0].payload.(*MessagePostedEvent).Message.Kind)
	assert.Equal(t, "guest control enabled", posted[0].payload.(*MessagePostedEvent).Message.Body)

	// a max-members-only change announces the new settings without a notice
	env.sender.reset()
	maxMembers := 3
	_, err = env.service.UpdateSettings(ctx, &UpdateSettingsParams{
		IdentityId: hostId,
		RoomCode:   roomCode,
		MaxMembers: &maxMembers,
	})
	require.NoError(t, err)
	assert.Len(t, env.sender.eventsFor(guestConn, EventPermissionsChanged), 1)
	assert.Empty(t, env.sender.eventsFor(guestConn, EventMessagePosted))
}
