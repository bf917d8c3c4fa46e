package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/bingesync/server/internal/repository/account"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

type iAccountRepo interface {
	SetAccount(context.Context, *account.SetAccountParams) error
	GetAccount(context.Context, string) (account.Account, error)
	GetAccountIdByEmail(context.Context, string) (string, error)
}

// Identity is the stable id plus display name the rest of the system
// references. It is never mutated outside this service.
type Identity struct {
	Id       string `json:"id"`
	Username string `json:"username"`
}

type Config struct {
	Secret string
}

type service struct {
	accountRepo iAccountRepo
	logger      *slog.Logger
	secret      string
}

func NewService(accountRepo iAccountRepo, logger *slog.Logger, cfg *Config) *service {
	return &service{
		accountRepo: accountRepo,
		logger:      logger,
		secret:      cfg.Secret,
	}
}

type RegisterParams struct {
	Username string
	Email    string
	Password string
}

type AuthResponse struct {
	Token    string
	Identity Identity
}

func (s service) Register(ctx context.Context, params *RegisterParams) (AuthResponse, error) {
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		return AuthResponse{}, fmt.Errorf("failed to hash password: %w", err)
	}

	accountId := uuid.NewString()
	if err := s.accountRepo.SetAccount(ctx, &account.SetAccountParams{
		AccountId:    accountId,
		Username:     params.Username,
		Email:        params.Email,
		PasswordHash: string(passwordHash),
		CreatedAt:    time.Now().Unix(),
	}); err != nil {
		s.logger.InfoContext(ctx, "failed to set account", "error", err)
		return AuthResponse{}, err
	}

	token, err := s.generateJWT(accountId)
	if err != nil {
		return AuthResponse{}, fmt.Errorf("failed to generate token: %w", err)
	}

	return AuthResponse{
		Token: token,
		Identity: Identity{
			Id:       accountId,
			Username: params.Username,
		},
	}, nil
}

type LoginParams struct {
	Email    string
	Password string
}

func (s service) Login(ctx context.Context, params *LoginParams) (AuthResponse, error) {
	accountId, err := s.accountRepo.GetAccountIdByEmail(ctx, params.Email)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			return AuthResponse{}, ErrInvalidCredentials
		}

		return AuthResponse{}, fmt.Errorf("failed to get account id: %w", err)
	}

	acc, err := s.accountRepo.GetAccount(ctx, accountId)
	if err != nil {
		return AuthResponse{}, fmt.Errorf("failed to get account: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(params.Password)); err != nil {
		return AuthResponse{}, ErrInvalidCredentials
	}

	token, err := s.generateJWT(accountId)
	if err != nil {
		return AuthResponse{}, fmt.Errorf("failed to generate token: %w", err)
	}

	return AuthResponse{
		Token: token,
		Identity: Identity{
			Id:       accountId,
			Username: acc.Username,
		},
	}, nil
}

// ResolveToken maps a bearer credential to the Identity it was issued for.
func (s service) ResolveToken(ctx context.Context, token string) (Identity, error) {
	claims, err := s.parseJWT(token)
	if err != nil {
		return Identity{}, ErrInvalidToken
	}

	acc, err := s.accountRepo.GetAccount(ctx, claims.AccountId)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			return Identity{}, ErrInvalidToken
		}

		return Identity{}, fmt.Errorf("failed to get account: %w", err)
	}

	return Identity{
		Id:       claims.AccountId,
		Username: acc.Username,
	}, nil
}

func (s service) GetIdentity(ctx context.Context, accountId string) (Identity, error) {
	acc, err := s.accountRepo.GetAccount(ctx, accountId)
	if err != nil {
		return Identity{}, err
	}

	return Identity{
		Id:       accountId,
		Username: acc.Username,
	}, nil
}
