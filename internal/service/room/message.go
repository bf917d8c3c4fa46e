package room

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/bingesync/server/internal/repository/room"
)

type SendMessageParams struct {
	IdentityId string
	RoomCode   string
	Body       string
}

func (s service) SendMessage(ctx context.Context, params *SendMessageParams) error {
	s.locks.lock(params.RoomCode)
	defer s.locks.unlock(params.RoomCode)

	if err := s.checkMembership(ctx, params.RoomCode, params.IdentityId); err != nil {
		return err
	}

	body := strings.TrimSpace(params.Body)
	if body == "" {
		return ErrEmptyMessage
	}
	if utf8.RuneCountInString(body) > s.messageMaxLength {
		return ErrMessageTooLong
	}

	message := Message{
		Id:         uuid.NewString(),
		SenderId:   params.IdentityId,
		SenderName: s.getUsername(ctx, params.IdentityId),
		Body:       body,
		Kind:       room.MessageKindUser,
		CreatedAt:  time.Now().UnixMilli(),
	}

	if err := s.roomRepo.AddMessage(ctx, &room.AddMessageParams{
		Message:  room.Message(message),
		RoomCode: params.RoomCode,
	}); err != nil {
		return fmt.Errorf("failed to add message: %w", err)
	}

	s.sender.Broadcast(s.connRepo.GetConnsByRoomCode(params.RoomCode), EventMessagePosted, &MessagePostedEvent{
		Message: message,
	})

	return nil
}

type GetMessagesParams struct {
	IdentityId string
	RoomCode   string
	Limit      int
}

// GetMessages returns the most recent messages in oldest-first order.
func (s service) GetMessages(ctx context.Context, params *GetMessagesParams) ([]Message, error) {
	if err := s.checkMembership(ctx, params.RoomCode, params.IdentityId); err != nil {
		return nil, err
	}

	limit := params.Limit
	if limit <= 0 || limit > s.historyLimit {
		limit = s.historyLimit
	}

	messages, err := s.roomRepo.GetLastMessages(ctx, params.RoomCode, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get last messages: %w", err)
	}

	return toMessages(messages), nil
}

type GetMessageHistoryParams struct {
	IdentityId string
	RoomCode   string
	Limit      int
	Offset     int
}

// GetMessageHistory is the paginated REST view of the log, under the same
// access rule as GetRoomInfo: members always, non-members for public rooms.
func (s service) GetMessageHistory(ctx context.Context, params *GetMessageHistoryParams) ([]Message, error) {
	rm, err := s.roomRepo.GetRoom(ctx, params.RoomCode)
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}

		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	if rm.IsPrivate {
		if err := s.checkMembership(ctx, params.RoomCode, params.IdentityId); err != nil {
			return nil, err
		}
	}

	limit := params.Limit
	if limit <= 0 || limit > s.historyLimit {
		limit = s.historyLimit
	}
	offset := params.Offset
	if offset < 0 {
		offset = 0
	}

	messages, err := s.roomRepo.GetMessagesPage(ctx, &room.GetMessagesPageParams{
		RoomCode: params.RoomCode,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get messages page: %w", err)
	}

	return toMessages(messages), nil
}

func toMessages(messages []room.Message) []Message {
	result := make([]Message, 0, len(messages))
	for _, message := range messages {
		result = append(result, Message(message))
	}

	return result
}
