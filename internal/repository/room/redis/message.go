package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bingesync/server/internal/repository/room"
)

func (r repo) getMessagesKey(roomCode string) string {
	return "room:" + roomCode + ":messages"
}

// AddMessage appends to the room's message list. RPUSH is atomic, which is
// what assigns the server-side total order.
func (r repo) AddMessage(ctx context.Context, params *room.AddMessageParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	raw, err := json.Marshal(params.Message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := r.rc.RPush(ctx, r.getMessagesKey(params.RoomCode), raw).Err(); err != nil {
		return fmt.Errorf("failed to add message: %w", err)
	}

	return nil
}

// GetLastMessages returns up to limit most recent messages, oldest first.
func (r repo) GetLastMessages(ctx context.Context, roomCode string, limit int) ([]room.Message, error) {
	return r.getMessagesRange(ctx, roomCode, limit, 0)
}

// GetMessagesPage returns up to limit messages, oldest first, skipping the
// offset most recent ones.
func (r repo) GetMessagesPage(ctx context.Context, params *room.GetMessagesPageParams) ([]room.Message, error) {
	return r.getMessagesRange(ctx, params.RoomCode, params.Limit, params.Offset)
}

func (r repo) getMessagesRange(ctx context.Context, roomCode string, limit, offset int) ([]room.Message, error) {
	messagesKey := r.getMessagesKey(roomCode)

	length, err := r.rc.LLen(ctx, messagesKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get messages length: %w", err)
	}

	end := length - int64(offset) - 1
	if end < 0 {
		return []room.Message{}, nil
	}

	start := end - int64(limit) + 1
	if start < 0 {
		start = 0
	}

	raws, err := r.rc.LRange(ctx, messagesKey, start, end).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}

	messages := make([]room.Message, 0, len(raws))
	for _, raw := range raws {
		var message room.Message
		if err := json.Unmarshal([]byte(raw), &message); err != nil {
			return nil, fmt.Errorf("failed to unmarshal message: %w", err)
		}

		messages = append(messages, message)
	}

	return messages, nil
}
