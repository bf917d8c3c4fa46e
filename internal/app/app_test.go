package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bingesync/server/internal/controller"
	accountredis "github.com/bingesync/server/internal/repository/account/redis"
	"github.com/bingesync/server/internal/repository/connection/inmemory"
	roomredis "github.com/bingesync/server/internal/repository/room/redis"
	"github.com/bingesync/server/internal/repository/wssender"
	"github.com/bingesync/server/internal/service/account"
	"github.com/bingesync/server/internal/service/room"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)

	rc := redis.NewClient(&redis.Options{
		Addr: s.Addr(),
	})

	logger := slog.Default()
	roomRepo := roomredis.NewRepo(rc, logger)
	accountRepo := accountredis.NewRepo(rc, logger)
	connRepo := inmemory.NewRepo(logger)
	sender := wssender.NewRepo(logger)

	accountService := account.NewService(accountRepo, logger, &account.Config{Secret: "test-secret"})
	roomService := room.NewService(roomRepo, connRepo, accountRepo, sender, logger, &room.Config{
		MembersLimit:     10,
		MessageMaxLength: 500,
		HistoryLimit:     100,
	})

	c := controller.NewController(roomService, accountService, sender, logger)
	server := httptest.NewServer(c.GetMux())
	t.Cleanup(server.Close)

	return server
}

func postJSON(t *testing.T, url, token string, body any) map[string]json.RawMessage {
	t.Helper()

	js, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(js))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Less(t, resp.StatusCode, 300, "unexpected status %d", resp.StatusCode)

	var envelope map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))

	return envelope
}

func registerUser(t *testing.T, serverURL, username string) string {
	t.Helper()

	envelope := postJSON(t, serverURL+"/api/v1/auth/register", "", map[string]any{
		"username": username,
		"email":    fmt.Sprintf("%s@example.com", username),
		"password": "password123",
	})

	var data struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(envelope["data"], &data))
	require.NotEmpty(t, data.Token)

	return data.Token
}

func dialWS(t *testing.T, serverURL, token string) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(serverURL, "http") + "/api/v1/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn
}

type wsMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func sendWS(t *testing.T, conn *websocket.Conn, messageType string, payload any) {
	t.Helper()

	js, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(&wsMessage{Type: messageType, Payload: js}))
}

// readEvent reads until a message of the wanted type arrives, skipping
// interleaved events of other types.
func readEvent(t *testing.T, conn *websocket.Conn, wantType string) json.RawMessage {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var msg wsMessage
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == wantType {
			return msg.Payload
		}
	}
}

func TestWatchTogetherFlow(t *testing.T) {
	server := newTestServer(t)

	hostToken := registerUser(t, server.URL, "host")
	guestToken := registerUser(t, server.URL, "guest")

	envelope := postJSON(t, server.URL+"/api/v1/rooms", hostToken, map[string]any{
		"name": "movie night",
	})

	var createdRoom struct {
		Code   string `json:"code"`
		HostId string `json:"host_id"`
	}
	require.NoError(t, json.Unmarshal(envelope["data"], &createdRoom))
	require.NotEmpty(t, createdRoom.Code)

	hostConn := dialWS(t, server.URL, hostToken)
	guestConn := dialWS(t, server.URL, guestToken)

	sendWS(t, hostConn, "join-room", map[string]any{"room_code": createdRoom.Code})
	var hostSnapshot struct {
		Room struct {
			Code   string `json:"code"`
			HostId string `json:"host_id"`
		} `json:"room"`
		Members  []json.RawMessage `json:"members"`
		Playback json.RawMessage   `json:"playback"`
	}
	require.NoError(t, json.Unmarshal(readEvent(t, hostConn, "room-joined"), &hostSnapshot))
	assert.Equal(t, createdRoom.Code, hostSnapshot.Room.Code)
	assert.Len(t, hostSnapshot.Members, 1)

	sendWS(t, guestConn, "join-room", map[string]any{"room_code": createdRoom.Code})
	readEvent(t, guestConn, "room-joined")

	var joined struct {
		Member struct {
			Username string `json:"username"`
		} `json:"member"`
	}
	require.NoError(t, json.Unmarshal(readEvent(t, hostConn, "member-joined"), &joined))
	assert.Equal(t, "guest", joined.Member.Username)

	// host loads a video, both sides converge on the same sync event
	sendWS(t, hostConn, "video-action", map[string]any{
		"action": "load-video",
		"url":    "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		"title":  "some video",
	})

	for _, conn := range []*websocket.Conn{hostConn, guestConn} {
		var sync struct {
			Action   string `json:"action"`
			Playback struct {
				Video struct {
					VideoId string `json:"video_id"`
				} `json:"video"`
				IsPlaying bool `json:"is_playing"`
			} `json:"playback"`
		}
		require.NoError(t, json.Unmarshal(readEvent(t, conn, "playback-sync"), &sync))
		assert.Equal(t, "load-video", sync.Action)
		assert.Equal(t, "dQw4w9WgXcQ", sync.Playback.Video.VideoId)
		assert.False(t, sync.Playback.IsPlaying)
	}

	// guest control is off: the guest's action is rejected
	sendWS(t, guestConn, "video-action", map[string]any{
		"action":   "play",
		"position": 0,
	})
	var wsErr struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(readEvent(t, guestConn, "error"), &wsErr))
	assert.Equal(t, "HOST_CONTROL_REQUIRED", wsErr.Code)

	// chat round trip
	sendWS(t, guestConn, "send-message", map[string]any{"body": "hello"})
	var posted struct {
		Message struct {
			Body       string `json:"body"`
			SenderName string `json:"sender_name"`
			Kind       string `json:"kind"`
		} `json:"message"`
	}
	require.NoError(t, json.Unmarshal(readEvent(t, hostConn, "message-posted"), &posted))
	assert.Equal(t, "hello", posted.Message.Body)
	assert.Equal(t, "guest", posted.Message.SenderName)
	assert.Equal(t, "user", posted.Message.Kind)
}

func TestWSRequiresToken(t *testing.T) {
	server := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/ws"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestMeEndpoint(t *testing.T) {
	server := newTestServer(t)
	token := registerUser(t, server.URL, "host")

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL+"/api/v1/auth/me", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var envelope map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))

	var identity struct {
		Id       string `json:"id"`
		Username string `json:"username"`
	}
	require.NoError(t, json.Unmarshal(envelope["data"], &identity))
	assert.Equal(t, "host", identity.Username)
	assert.NotEmpty(t, identity.Id)

	unauthenticated, err := http.Get(server.URL + "/api/v1/auth/me")
	require.NoError(t, err)
	unauthenticated.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, unauthenticated.StatusCode)
}
