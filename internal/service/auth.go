package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/mzbr/illustbox/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// AuthService is the credential store: it owns registration, login, logout,
// and session-token verification. A user has at most one active token at a
// time; issuing a new one or logging out invalidates the previous token.
type AuthService struct {
	users      domain.UserRepository
	jwtSecret  []byte
	bcryptCost int
}

// NewAuthService creates a new AuthService.
func NewAuthService(users domain.UserRepository, jwtSecret string, bcryptCost int) *AuthService {
	return &AuthService{
		users:      users,
		jwtSecret:  []byte(jwtSecret),
		bcryptCost: bcryptCost,
	}
}

// Register creates a new user account. No session token is issued; the user
// logs in separately.
func (s *AuthService) Register(ctx context.Context, email, password, name, image string) (*domain.User, error) {
	if email == "" || password == "" || name == "" {
		return nil, fmt.Errorf("%w: email, password, and name are required", domain.ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Email:        email,
		Name:         name,
		Image:        image,
		PasswordHash: string(hash),
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return nil, domain.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

// Login verifies credentials, signs a fresh session token, and persists it on
// the user row, overwriting any previously issued token.
//
// A missing account surfaces as domain.ErrNotFound and a wrong password as
// domain.ErrUnauthorized so the handler can report distinct messages; both
// are soft failures, not server errors.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, int64, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", 0, domain.ErrNotFound
		}
		return "", 0, fmt.Errorf("get user by email: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", 0, domain.ErrUnauthorized
	}

	token, err := s.signToken(user.ID)
	if err != nil {
		return "", 0, fmt.Errorf("sign token: %w", err)
	}

	if err := s.users.UpdateToken(ctx, user.ID, token); err != nil {
		return "", 0, fmt.Errorf("store token: %w", err)
	}

	return token, user.ID, nil
}

// Logout clears the stored session token, revoking it.
func (s *AuthService) Logout(ctx context.Context, userID int64) error {
	if err := s.users.UpdateToken(ctx, userID, ""); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}

// Authenticate resolves a presented session token to the full user record.
// The token must carry a valid signature and must equal the token currently
// stored on the user row; a superseded or logged-out token fails. Returns
// domain.ErrUnauthorized on any failure.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (*domain.User, error) {
	if tokenString == "" {
		return nil, domain.ErrUnauthorized
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, domain.ErrUnauthorized
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, domain.ErrUnauthorized
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return nil, domain.ErrUnauthorized
	}

	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return nil, domain.ErrUnauthorized
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}

	if user.Token == "" || user.Token != tokenString {
		return nil, domain.ErrUnauthorized
	}

	return user, nil
}

// signToken builds the opaque session credential: an HS256 JWT carrying the
// user id. No exp claim is set; validity is decided solely by comparison
// with the stored token. The jti claim makes every issued token distinct,
// so a re-login always invalidates the previous one.
func (s *AuthService) signToken(userID int64) (string, error) {
	claims := jwt.MapClaims{
		"sub": strconv.FormatInt(userID, 10),
		"iat": time.Now().Unix(),
		"jti": uuid.NewString(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}
