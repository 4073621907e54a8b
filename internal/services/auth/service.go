package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/dependencies/clock"
	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/dependencies/random"
	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/model"
	"github.com/OfficialMikeJ/Arma-LiveMap-2026/internal/storage"
)

// Errors
var (
	ErrDuplicateUsername        = errors.New("username already exists")
	ErrInvalidCredentials       = errors.New("invalid username or password")
	ErrUserNotFound             = errors.New("user not found")
	ErrTOTPNotEnabled           = errors.New("two-factor authentication is not enabled")
	ErrInvalidSession           = errors.New("invalid or expired session")
	ErrInvalidRecoveryQuestions = errors.New("exactly two recovery questions with distinct questions and answers are required")
	ErrCredentialTooLong        = errors.New("password or recovery answer exceeds 72 bytes")
)

// RequiredRecoveryQuestions is how many questions registration demands
const RequiredRecoveryQuestions = 2

// Identity is the authenticated user behind a valid session
type Identity struct {
	UserID   model.UserID
	Username string
	HasTOTP  bool
}

// LoginResult is returned by a successful Login. Callers must run VerifyTOTP
// themselves when HasTOTP is set.
type LoginResult struct {
	UserID    model.UserID
	Username  string
	HasTOTP   bool
	Token     string
	DeviceID  string
	ExpiresAt time.Time
}

// Service handles registration, login and session lifecycle
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	random  random.Random
	cfg     Config
	logger  *slog.Logger
}

// Config holds configuration for the auth service
type Config struct {
	SessionDuration time.Duration
	TOTPIssuer      string
	TOTPSkew        uint
	BcryptCost      int
}

// DefaultConfig returns default auth configuration
func DefaultConfig() Config {
	return Config{
		SessionDuration: 60 * 24 * time.Hour,
		TOTPIssuer:      "Arma Reforger Tactical Map",
		TOTPSkew:        2,
		BcryptCost:      bcrypt.DefaultCost,
	}
}

// New creates a new auth Service
func New(storage storage.Storage, clock clock.Clock, random random.Random, cfg Config, logger *slog.Logger) *Service {
	def := DefaultConfig()
	if cfg.SessionDuration <= 0 {
		cfg.SessionDuration = def.SessionDuration
	}
	if cfg.TOTPIssuer == "" {
		cfg.TOTPIssuer = def.TOTPIssuer
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = def.BcryptCost
	}
	if cfg.TOTPSkew == 0 {
		cfg.TOTPSkew = def.TOTPSkew
	}
	return &Service{
		storage: storage,
		clock:   clock,
		random:  random,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "auth")),
	}
}

// Register creates an account with its recovery questions. It does not log
// the user in.
func (s *Service) Register(ctx context.Context, username, password string, answers []RecoveryAnswer) (model.UserID, error) {
	if len(answers) != RequiredRecoveryQuestions {
		return "", ErrInvalidRecoveryQuestions
	}
	seen := make(map[string]bool, len(answers))
	for _, a := range answers {
		if a.Question == "" || a.Answer == "" || seen[a.Question] {
			return "", ErrInvalidRecoveryQuestions
		}
		seen[a.Question] = true
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", ErrCredentialTooLong
		}
		return "", err
	}

	questions := make([]model.RecoveryQuestion, len(answers))
	for i, a := range answers {
		answerHash, err := s.hashAnswer(a.Answer)
		if err != nil {
			return "", err
		}
		questions[i] = model.RecoveryQuestion{Question: a.Question, AnswerHash: answerHash}
	}

	user := &model.User{
		ID:           model.UserID(uuid.NewString()),
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    s.clock.Now(),
	}
	if err := s.storage.CreateUser(ctx, user); err != nil {
		if errors.Is(err, model.ErrDuplicateUsername) {
			return "", ErrDuplicateUsername
		}
		return "", fmt.Errorf("create user: %w", err)
	}

	for i := range questions {
		questions[i].UserID = user.ID
	}
	if err := s.storage.SaveRecoveryQuestions(ctx, user.ID, questions); err != nil {
		return "", fmt.Errorf("save recovery questions: %w", err)
	}

	s.logger.Info("user registered", slog.String("user_id", string(user.ID)), slog.String("username", username))
	return user.ID, nil
}

// Login checks credentials and issues a new session for a new device id.
// Unknown usernames and wrong passwords both yield ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.storage.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.generateID("sess_", 32)
	if err != nil {
		return nil, err
	}
	deviceID, err := s.generateID("dev_", 16)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	session := &model.Session{
		Token:     token,
		UserID:    user.ID,
		DeviceID:  deviceID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.SessionDuration),
	}
	if err := s.storage.SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	s.logger.Info("user logged in",
		slog.String("user_id", string(user.ID)),
		slog.String("device_id", session.DeviceID),
	)

	return &LoginResult{
		UserID:    user.ID,
		Username:  user.Username,
		HasTOTP:   user.HasTOTP(),
		Token:     session.Token,
		DeviceID:  session.DeviceID,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

// Logout revokes every session the user holds, on every device
func (s *Service) Logout(ctx context.Context, userID model.UserID) error {
	n, err := s.storage.DeleteSessionsForUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("delete sessions: %w", err)
	}
	s.logger.Info("user logged out", slog.String("user_id", string(userID)), slog.Int("sessions_revoked", n))
	return nil
}

// VerifySession resolves a token to its user. Expired sessions are rejected
// but left in place for the reaper.
func (s *Service) VerifySession(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrInvalidSession
	}

	session, err := s.storage.GetSession(ctx, token)
	if err != nil {
		if errors.Is(err, model.ErrSessionNotFound) {
			return nil, ErrInvalidSession
		}
		return nil, err
	}
	if session.Expired(s.clock.Now()) {
		return nil, ErrInvalidSession
	}

	user, err := s.storage.GetUser(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return nil, ErrInvalidSession
		}
		return nil, err
	}

	return &Identity{
		UserID:   user.ID,
		Username: user.Username,
		HasTOTP:  user.HasTOTP(),
	}, nil
}

// CleanExpiredSessions deletes sessions whose expiry has passed and returns
// how many were removed
func (s *Service) CleanExpiredSessions(ctx context.Context) (int, error) {
	n, err := s.storage.DeleteExpiredSessions(ctx, s.clock.Now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("expired sessions removed", slog.Int("count", n))
	}
	return n, nil
}

// generateID returns prefix + n random bytes, hex encoded
func (s *Service) generateID(prefix string, n int) (string, error) {
	id, err := s.random.Hex(n)
	if err != nil {
		return "", fmt.Errorf("generate %sid: %w", prefix, err)
	}
	return prefix + id, nil
}
