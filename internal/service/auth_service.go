package service

import (
	"context"
	"log/slog"

	"github.com/splitledger/splitledger/internal/auth"
	"github.com/splitledger/splitledger/internal/models"
)

// Session is a logged-in user plus their token.
type Session struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

// AuthService handles registration and login.
type AuthService struct {
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager
}

// NewAuthService creates an AuthService.
func NewAuthService(authenticator auth.Authenticator, jwtManager *auth.JWTManager) *AuthService {
	return &AuthService{authenticator: authenticator, jwtManager: jwtManager}
}

// Register creates an account and signs the new user in.
func (s *AuthService) Register(ctx context.Context, email, name, password string) (*Session, error) {
	user, err := s.authenticator.Register(ctx, email, name, password)
	if err != nil {
		return nil, err
	}

	token, err := s.jwtManager.Generate(user)
	if err != nil {
		return nil, err
	}

	slog.Info("user registered", "user_id", user.ID)
	return &Session{User: user, Token: token}, nil
}

// Login verifies credentials and returns a fresh session.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.authenticator.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}

	token, err := s.jwtManager.Generate(user)
	if err != nil {
		return nil, err
	}
	return &Session{User: user, Token: token}, nil
}
