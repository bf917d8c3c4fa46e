package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/bingesync/server/internal/repository/account"
)

type repo struct {
	rc     *redis.Client
	logger *slog.Logger
}

func NewRepo(rc *redis.Client, logger *slog.Logger) *repo {
	return &repo{
		rc:     rc,
		logger: logger,
	}
}

func (r repo) getAccountKey(accountId string) string {
	return "account:" + accountId
}

func (r repo) getEmailIndexKey(email string) string {
	return "account:email:" + email
}

func (r repo) getUsernameIndexKey(username string) string {
	return "account:username:" + username
}

func (r repo) SetAccount(ctx context.Context, params *account.SetAccountParams) error {
	r.logger.DebugContext(ctx, "called", "account_id", params.AccountId, "username", params.Username)

	// Claim the unique indexes first; rolled back on conflict.
	ok, err := r.rc.SetNX(ctx, r.getEmailIndexKey(params.Email), params.AccountId, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to claim email: %w", err)
	}
	if !ok {
		return account.ErrEmailTaken
	}

	ok, err = r.rc.SetNX(ctx, r.getUsernameIndexKey(params.Username), params.AccountId, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to claim username: %w", err)
	}
	if !ok {
		r.rc.Del(ctx, r.getEmailIndexKey(params.Email))
		return account.ErrUsernameTaken
	}

	if err := r.rc.HSet(ctx, r.getAccountKey(params.AccountId), account.Account{
		Username:     params.Username,
		Email:        params.Email,
		PasswordHash: params.PasswordHash,
		CreatedAt:    params.CreatedAt,
	}).Err(); err != nil {
		return fmt.Errorf("failed to set account: %w", err)
	}

	return nil
}

func (r repo) GetAccount(ctx context.Context, accountId string) (account.Account, error) {
	var acc account.Account
	if err := r.rc.HGetAll(ctx, r.getAccountKey(accountId)).Scan(&acc); err != nil {
		return account.Account{}, fmt.Errorf("failed to get account: %w", err)
	}

	if acc.Username == "" {
		return account.Account{}, account.ErrAccountNotFound
	}

	return acc, nil
}

func (r repo) GetAccountIdByEmail(ctx context.Context, email string) (string, error) {
	accountId, err := r.rc.Get(ctx, r.getEmailIndexKey(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", account.ErrAccountNotFound
		}

		return "", fmt.Errorf("failed to get account id by email: %w", err)
	}

	return accountId, nil
}
