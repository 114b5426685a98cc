package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Dosada05/tournament-rounds/middleware"
	"github.com/Dosada05/tournament-rounds/models"
	"github.com/Dosada05/tournament-rounds/repositories"
)

const (
	tokenTTL      = 24 * time.Hour
	regCodeLength = 8
)

type AuthService interface {
	// Login verifies the credentials and returns a signed JWT.
	Login(ctx context.Context, username, password string) (string, *models.Administrator, error)
	// RedeemCode turns a one-shot registration code into a new administrator
	// account with the role the code carries.
	RedeemCode(ctx context.Context, code, username, password string) (*models.Administrator, error)
	GenerateRegCode(ctx context.Context, role string) (*models.RegCode, error)
}

type authService struct {
	adminRepo repositories.AdminRepository
	jwtSecret string
	logger    *slog.Logger
}

func NewAuthService(adminRepo repositories.AdminRepository, jwtSecret string, logger *slog.Logger) AuthService {
	return &authService{adminRepo: adminRepo, jwtSecret: jwtSecret, logger: logger}
}

func (s *authService) Login(ctx context.Context, username, password string) (string, *models.Administrator, error) {
	admin, err := s.adminRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repositories.ErrAdminNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.signToken(admin)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}

	s.logger.Info("administrator logged in",
		slog.Int("admin_id", admin.ID),
		slog.String("username", admin.Username))
	return token, admin, nil
}

func (s *authService) RedeemCode(ctx context.Context, code, username, password string) (*models.Administrator, error) {
	username = strings.TrimSpace(username)
	if username == "" || len(password) < 6 {
		return nil, fmt.Errorf("%w: username and a password of at least 6 characters are required", ErrInvalidCredentials)
	}

	regCode, err := s.adminRepo.ConsumeRegCode(ctx, code)
	if err != nil {
		if errors.Is(err, repositories.ErrRegCodeNotFound) {
			return nil, ErrRegCodeInvalid
		}
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	admin := &models.Administrator{
		Username:     username,
		PasswordHash: string(hash),
		Role:         regCode.Role,
	}
	if err := s.adminRepo.CreateAdmin(ctx, admin); err != nil {
		if errors.Is(err, repositories.ErrAdminUsernameConflict) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}

	s.logger.Info("administrator registered",
		slog.Int("admin_id", admin.ID),
		slog.String("username", admin.Username),
		slog.String("role", admin.Role))
	return admin, nil
}

func (s *authService) GenerateRegCode(ctx context.Context, role string) (*models.RegCode, error) {
	if role != models.RoleAdmin && role != models.RoleMain {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidState, role)
	}

	code := &models.RegCode{
		Code: strings.ReplaceAll(uuid.NewString(), "-", "")[:regCodeLength],
		Role: role,
	}
	if err := s.adminRepo.CreateRegCode(ctx, code); err != nil {
		return nil, err
	}

	s.logger.Info("registration code issued", slog.String("role", role))
	return code, nil
}

func (s *authService) signToken(admin *models.Administrator) (string, error) {
	now := time.Now()
	claims := &middleware.AdminClaims{
		AdminID:  admin.ID,
		Username: admin.Username,
		Role:     admin.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}
