package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"habitreminder/internal/model"
	"habitreminder/internal/repository"
	"habitreminder/pkg/util"
)

var (
	ErrUserExists         = errors.New("user with this email or tg_id already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("token is invalid or expired")
)

type UserStore interface {
	CreateUser(ctx context.Context, u *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id int64) (*model.User, error)
}

type TokenConfig struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	TgID     int64  `json:"tg_id"`
	Phone    string `json:"phone"`
	City     string `json:"city"`
	Avatar   string `json:"avatar"`
}

type Tokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type Service struct {
	users  UserStore
	tokens TokenConfig
	logger *zap.Logger
}

func NewService(users UserStore, tokens TokenConfig, logger *zap.Logger) *Service {
	return &Service{users: users, tokens: tokens, logger: logger}
}

// Register creates a new user.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	email, err := model.NormalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Password) == "" {
		return nil, model.InvalidField("password", "required")
	}

	u := &model.User{
		Email:  email,
		TgID:   in.TgID,
		Phone:  in.Phone,
		City:   in.City,
		Avatar: in.Avatar,
	}
	if err := u.ValidateFields(); err != nil {
		return nil, err
	}

	hash, err := util.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u.PasswordHash = hash

	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("User registered", zap.Int64("user_id", u.ID))
	return u, nil
}

// Login checks user credentials and returns an access/refresh pair.
func (s *Service) Login(ctx context.Context, email, password string) (*Tokens, error) {
	normalized, err := model.NormalizeEmail(email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	u, err := s.users.FindByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !util.CheckPassword(password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	access, err := util.GenerateJWT(u.ID, util.TokenTypeAccess, s.tokens.Secret, s.tokens.AccessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := util.GenerateJWT(u.ID, util.TokenTypeRefresh, s.tokens.Secret, s.tokens.RefreshTTL)
	if err != nil {
		return nil, err
	}
	return &Tokens{Access: access, Refresh: refresh}, nil
}

// Refresh exchanges a refresh token for a new access token.
func (s *Service) Refresh(ctx context.Context, refresh string) (string, error) {
	userID, err := util.ParseJWT(refresh, util.TokenTypeRefresh, s.tokens.Secret)
	if err != nil {
		return "", ErrInvalidToken
	}
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrInvalidToken
		}
		return "", err
	}
	return util.GenerateJWT(userID, util.TokenTypeAccess, s.tokens.Secret, s.tokens.AccessTTL)
}

// Authenticate validates an access token and returns its user id.
func (s *Service) Authenticate(access string) (int64, error) {
	userID, err := util.ParseJWT(access, util.TokenTypeAccess, s.tokens.Secret)
	if err != nil {
		return 0, ErrInvalidToken
	}
	return userID, nil
}
