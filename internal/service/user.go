package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/promoforge/promoforge/internal/domain"
	"github.com/promoforge/promoforge/internal/repository"
)

const (
	// BcryptCost is the cost factor for bcrypt password hashing.
	// Cost 12 is ~250ms on modern hardware, acceptable for login flows.
	BcryptCost = 12

	// SessionTokenBytes is the entropy of raw session tokens.
	// 32 bytes hex-encodes to 64 characters.
	SessionTokenBytes = 32

	// SessionDuration is how long a session remains valid.
	SessionDuration = 7 * 24 * time.Hour

	// MinPasswordLength follows NIST SP 800-63B.
	MinPasswordLength = 8

	// MaxPasswordLength caps input before bcrypt's own 72-byte limit.
	MaxPasswordLength = 72
)

// UserService defines user account and session operations.
type UserService interface {
	// Register creates a new user account.
	// Returns domain.ECONFLICT if the email is already registered.
	Register(ctx context.Context, params domain.RegisterParams) (*domain.User, error)

	// Login authenticates a user and creates a session. The raw token
	// is returned once and never stored.
	// Returns domain.EUNAUTHORIZED for invalid credentials.
	Login(ctx context.Context, email, password string) (*domain.LoginResult, error)

	// Logout invalidates a session by its raw token. Idempotent.
	Logout(ctx context.Context, token string) error

	// GetBySessionToken returns the user owning a valid session.
	// Returns domain.EUNAUTHORIZED when the token is unknown or expired.
	GetBySessionToken(ctx context.Context, token string) (*domain.User, error)

	// GetByID retrieves a user by id.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// DeleteExpiredSessions removes expired sessions and reports how
	// many were deleted. Run periodically.
	DeleteExpiredSessions(ctx context.Context) (int64, error)
}

type userService struct {
	store  UserStore
	logger *slog.Logger
}

// NewUserService creates a new UserService.
func NewUserService(store UserStore, logger *slog.Logger) UserService {
	return &userService{
		store:  store,
		logger: logger,
	}
}

func (s *userService) Register(ctx context.Context, params domain.RegisterParams) (*domain.User, error) {
	const op = "user.register"

	params.Email = strings.ToLower(strings.TrimSpace(params.Email))
	params.Name = strings.TrimSpace(params.Name)

	if err := validateEmail(params.Email); err != nil {
		return nil, err
	}
	if err := validatePassword(params.Password); err != nil {
		return nil, err
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(params.Password), BcryptCost)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to hash password")
	}

	user, err := s.store.CreateUser(ctx, &domain.User{
		ID:           uuid.New(),
		Email:        params.Email,
		PasswordHash: string(passwordHash),
		Name:         params.Name,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, domain.Conflict(op, "Email already registered")
		}
		return nil, domain.Internal(err, op, "Failed to create user")
	}

	user.PasswordHash = ""
	s.logger.Info("user registered", "user_id", user.ID, "email", user.Email)
	return user, nil
}

func (s *userService) Login(ctx context.Context, email, password string) (*domain.LoginResult, error) {
	const op = "user.login"

	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Burn a bcrypt comparison so unknown emails take as long
			// as wrong passwords.
			dummyHash := "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"
			_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
			return nil, domain.Unauthorized(op, "Invalid email or password")
		}
		return nil, domain.Internal(err, op, "Failed to retrieve user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.Unauthorized(op, "Invalid email or password")
	}

	token, err := generateSessionToken()
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to generate session token")
	}

	err = s.store.CreateSession(ctx, &domain.Session{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: hashSessionToken(token),
		ExpiresAt: time.Now().Add(SessionDuration),
	})
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to create session")
	}

	user.PasswordHash = ""
	s.logger.Info("user logged in", "user_id", user.ID, "email", user.Email)

	return &domain.LoginResult{User: user, Token: token}, nil
}

func (s *userService) Logout(ctx context.Context, token string) error {
	// Malformed tokens cannot match a session; logout is idempotent.
	if len(token) != SessionTokenBytes*2 {
		return nil
	}

	if err := s.store.DeleteSessionByTokenHash(ctx, hashSessionToken(token)); err != nil {
		s.logger.Warn("failed to delete session", "error", err)
	}
	return nil
}

func (s *userService) GetBySessionToken(ctx context.Context, token string) (*domain.User, error) {
	const op = "user.get_by_session"

	if len(token) != SessionTokenBytes*2 {
		return nil, domain.Unauthorized(op, "Invalid or expired session")
	}

	user, err := s.store.GetUserBySessionTokenHash(ctx, hashSessionToken(token))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.Unauthorized(op, "Invalid or expired session")
		}
		return nil, domain.Internal(err, op, "Failed to retrieve session")
	}

	user.PasswordHash = ""
	return user, nil
}

func (s *userService) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	const op = "user.get_by_id"

	user, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NotFound(op, "user", id.String())
		}
		return nil, domain.Internal(err, op, "Failed to retrieve user")
	}

	user.PasswordHash = ""
	return user, nil
}

func (s *userService) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	const op = "user.delete_expired_sessions"

	deleted, err := s.store.DeleteExpiredSessions(ctx)
	if err != nil {
		return 0, domain.Internal(err, op, "Failed to delete expired sessions")
	}
	return deleted, nil
}

// generateSessionToken returns a hex-encoded 256-bit random token.
func generateSessionToken() (string, error) {
	bytes := make([]byte, SessionTokenBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// hashSessionToken hashes a raw token for storage. Session tokens are
// high-entropy random values, so SHA-256 suffices; bcrypt would only
// add latency to every authenticated request.
func hashSessionToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

func validateEmail(email string) error {
	const op = "user.validate_email"

	if email == "" {
		return domain.Invalid(op, "Email is required")
	}
	if len(email) > 254 {
		return domain.Invalid(op, "Email must be 254 characters or less")
	}
	at := strings.Count(email, "@")
	if at != 1 || strings.HasPrefix(email, "@") || strings.HasSuffix(email, "@") {
		return domain.Invalid(op, "Invalid email address")
	}
	domainPart := email[strings.Index(email, "@")+1:]
	if !strings.Contains(domainPart, ".") || strings.Contains(email, "..") {
		return domain.Invalid(op, "Invalid email address")
	}
	return nil
}

func validatePassword(password string) error {
	const op = "user.validate_password"

	if len(password) < MinPasswordLength {
		return domain.Invalid(op, "Password must be at least 8 characters")
	}
	if len(password) > MaxPasswordLength {
		return domain.Invalid(op, "Password must be 72 characters or less")
	}
	return nil
}

var _ UserService = (*userService)(nil)
