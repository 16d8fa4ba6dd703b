package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"chimeralens/api/internal/config"
	"chimeralens/api/internal/ids"
	"chimeralens/api/internal/models"
	"chimeralens/api/internal/repository"
	"chimeralens/api/internal/security"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
)

type AuthService struct {
	stylists *repository.StylistRepository
	sessions *repository.SessionRepository
	cfg      *config.AppConfig
	log      zerolog.Logger
}

func NewAuthService(
	stylists *repository.StylistRepository,
	sessions *repository.SessionRepository,
	cfg *config.AppConfig,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		stylists: stylists,
		sessions: sessions,
		cfg:      cfg,
		log:      log,
	}
}

type SignupInput struct {
	SalonName string
	Email     string
	Password  string
	Name      string
}

type AuthResult struct {
	AccessToken  string
	RefreshToken string
	Stylist      models.Stylist
	DeviceID     string
}

// Signup creates a salon together with its owner account.
func (s *AuthService) Signup(ctx context.Context, input SignupInput) (AuthResult, error) {
	input.Email = strings.TrimSpace(strings.ToLower(input.Email))
	if input.Email == "" || input.Password == "" || input.SalonName == "" {
		return AuthResult{}, fmt.Errorf("salon name, email and password required")
	}

	if _, err := s.stylists.FindByEmail(ctx, input.Email); err == nil {
		return AuthResult{}, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return AuthResult{}, err
	}

	passwordHash, err := security.HashPassword(input.Password)
	if err != nil {
		return AuthResult{}, err
	}

	stylist, err := s.stylists.CreateSalonWithOwner(ctx, input.SalonName, models.Stylist{
		Email:        input.Email,
		PasswordHash: passwordHash,
		Name:         input.Name,
	})
	if err != nil {
		return AuthResult{}, err
	}

	s.log.Info().
		Int64("salon_id", stylist.SalonID).
		Int64("stylist_id", stylist.ID).
		Msg("salon registered")

	return s.createSession(ctx, stylist, ids.New(), "New Device", "", "")
}

type CreateStaffInput struct {
	SalonID  int64
	Email    string
	Password string
	Name     string
}

// CreateStaff adds a staff stylist account to an existing salon. No session
// is created; the new stylist logs in on their own device.
func (s *AuthService) CreateStaff(ctx context.Context, input CreateStaffInput) (models.Stylist, error) {
	input.Email = strings.TrimSpace(strings.ToLower(input.Email))
	if input.Email == "" || input.Password == "" {
		return models.Stylist{}, fmt.Errorf("email and password required")
	}

	if _, err := s.stylists.FindByEmail(ctx, input.Email); err == nil {
		return models.Stylist{}, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return models.Stylist{}, err
	}

	passwordHash, err := security.HashPassword(input.Password)
	if err != nil {
		return models.Stylist{}, err
	}

	stylist, err := s.stylists.Create(ctx, models.Stylist{
		SalonID:      input.SalonID,
		Email:        input.Email,
		PasswordHash: passwordHash,
		Name:         input.Name,
		Role:         models.RoleStylist,
	})
	if err != nil {
		return models.Stylist{}, err
	}

	s.log.Info().
		Int64("salon_id", stylist.SalonID).
		Int64("stylist_id", stylist.ID).
		Msg("staff stylist created")

	return stylist, nil
}

type LoginInput struct {
	Email      string
	Password   string
	DeviceID   string
	DeviceName string
	IPAddress  string
	UserAgent  string
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (AuthResult, error) {
	input.Email = strings.TrimSpace(strings.ToLower(input.Email))
	stylist, err := s.stylists.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, err
	}

	ok, err := security.VerifyPassword(input.Password, stylist.PasswordHash)
	if err != nil || !ok {
		return AuthResult{}, ErrInvalidCredentials
	}

	deviceID := input.DeviceID
	if deviceID == "" {
		deviceID = ids.New()
	}
	deviceName := input.DeviceName
	if deviceName == "" {
		deviceName = "Unknown Device"
	}

	return s.createSession(ctx, stylist, deviceID, deviceName, input.IPAddress, input.UserAgent)
}

type RefreshInput struct {
	StylistID    int64
	RefreshToken string
	DeviceID     string
}

func (s *AuthService) Refresh(ctx context.Context, input RefreshInput) (AuthResult, error) {
	stylist, err := s.stylists.GetByID(ctx, input.StylistID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, err
	}

	hash := security.HashRefreshToken(input.RefreshToken)
	session, err := s.sessions.FindByRefreshHash(ctx, stylist.ID, hash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, err
	}

	if time.Now().After(session.ExpiresAt) {
		_ = s.sessions.DeleteByID(ctx, session.ID)
		return AuthResult{}, ErrInvalidCredentials
	}
	if input.DeviceID != "" && input.DeviceID != session.DeviceID {
		return AuthResult{}, ErrInvalidCredentials
	}

	// Rotation: the session upsert on (stylist_id, device_id) replaces the
	// old refresh hash.
	return s.createSession(ctx, stylist, session.DeviceID, session.DeviceName, session.IPAddress, session.UserAgent)
}

func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if err := s.sessions.DeleteByID(ctx, sessionID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	return nil
}

func (s *AuthService) createSession(
	ctx context.Context,
	stylist models.Stylist,
	deviceID string,
	deviceName string,
	ipAddress string,
	userAgent string,
) (AuthResult, error) {
	refreshToken, refreshHash, err := security.GenerateRefreshToken(64)
	if err != nil {
		return AuthResult{}, err
	}

	session := models.Session{
		ID:               ids.New(),
		StylistID:        stylist.ID,
		DeviceID:         deviceID,
		DeviceName:       deviceName,
		RefreshTokenHash: refreshHash,
		IPAddress:        ipAddress,
		UserAgent:        userAgent,
		ExpiresAt:        time.Now().Add(s.cfg.Security.JWTRefreshTTL),
	}

	accessToken, err := security.GenerateAccessToken(
		s.cfg.Security.JWTAccessSecret,
		stylist.ID,
		stylist.SalonID,
		session.ID,
		deviceID,
		string(stylist.Role),
		s.cfg.Security.JWTAccessTTL,
	)
	if err != nil {
		return AuthResult{}, err
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return AuthResult{}, err
	}

	if err := s.enforceSessionLimit(ctx, stylist.ID); err != nil {
		s.log.Warn().Err(err).Int64("stylist_id", stylist.ID).Msg("enforce session limit failed")
	}

	return AuthResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Stylist:      stylist,
		DeviceID:     deviceID,
	}, nil
}

func (s *AuthService) enforceSessionLimit(ctx context.Context, stylistID int64) error {
	count, err := s.sessions.CountByStylist(ctx, stylistID)
	if err != nil {
		return err
	}
	if count <= s.cfg.Security.MaxSessions {
		return nil
	}
	return s.sessions.DeleteOldest(ctx, stylistID, s.cfg.Security.MaxSessions)
}
