package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"power_schedule/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/samber/lo"
	"golang.org/x/crypto/bcrypt"
)

const defaultTokenTTL = time.Hour

// Domain errors for auth flows.
var (
	ErrInvalidPassword = errors.New("invalid password")
	ErrUserNotFound    = errors.New("user not found")
	ErrInvalidToken    = errors.New("invalid token")

	// ErrReservedUsername is returned by SignUp for names that carry
	// configured permissions; those accounts are created with Provision.
	ErrReservedUsername = errors.New("username is reserved")
)

// AuthConfig controls token signing and which users get which permissions.
type AuthConfig struct {
	SigningKey   string
	TokenTTL     time.Duration
	Editors      []string // usernames allowed to edit schedules
	SpecialUsers []string // usernames allowed to use special schedules
}

// AuthService handles user auth logic
type AuthService struct {
	authRepo repository.Authorization
	cfg      AuthConfig
}

func NewAuthService(repo repository.Authorization, cfg AuthConfig) *AuthService {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = defaultTokenTTL
	}
	return &AuthService{authRepo: repo, cfg: cfg}
}

// SignUp hashes password and creates a new unprivileged user
func (s *AuthService) SignUp(ctx context.Context, username, password string) (int, error) {
	if s.reserved(username) {
		return 0, fmt.Errorf("sign up %q: %w", username, ErrReservedUsername)
	}
	return s.create(ctx, username, password, false)
}

// Provision creates an operator-managed user. Only provisioned users get the
// permissions configured for their name.
func (s *AuthService) Provision(ctx context.Context, username, password string) (int, error) {
	if strings.TrimSpace(username) == "" {
		return 0, errors.New("username is empty")
	}
	return s.create(ctx, username, password, true)
}

func (s *AuthService) create(ctx context.Context, username, password string, provisioned bool) (int, error) {
	hash, err := hashPassword(password)
	if err != nil {
		return 0, fmt.Errorf("invalid password: %w", err)
	}
	return s.authRepo.Create(ctx, username, hash, provisioned)
}

func (s *AuthService) reserved(username string) bool {
	return lo.Contains(s.cfg.Editors, username) || lo.Contains(s.cfg.SpecialUsers, username)
}

// Claims defines JWT claims
type Claims struct {
	jwt.RegisteredClaims
	UserID   int      `json:"user_id"`
	Username string   `json:"username"`
	Perms    []string `json:"perms,omitempty"`
}

// GenerateToken validates credentials and returns JWT
func (s *AuthService) GenerateToken(ctx context.Context, username, password string) (string, error) {
	u, err := s.authRepo.GetByUsername(ctx, username)
	if err != nil {
		return "", err
	}
	if u == nil {
		return "", ErrUserNotFound
	}

	if err := verifyPassword(u.PasswordHash, password); err != nil {
		return "", ErrInvalidPassword
	}

	var perms []string
	if u.Provisioned {
		perms = s.permsFor(u.Username)
	}
	return s.issueToken(Actor{UserID: u.ID, Username: u.Username, Perms: perms})
}

// ParseToken parses JWT and returns the actor it was issued to
func (s *AuthService) ParseToken(accessToken string) (Actor, error) {
	token, err := jwt.ParseWithClaims(accessToken, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Ensure HMAC signing is used
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.SigningKey), nil
	})
	if err != nil {
		return Actor{}, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Actor{}, ErrInvalidToken
	}

	return Actor{UserID: claims.UserID, Username: claims.Username, Perms: claims.Perms}, nil
}

func (s *AuthService) permsFor(username string) []string {
	var perms []string
	if lo.Contains(s.cfg.Editors, username) {
		perms = append(perms, PermEditSchedule)
	}
	if lo.Contains(s.cfg.SpecialUsers, username) {
		perms = append(perms, PermUseSpecialSchedule)
	}
	return perms
}

// helper: hash password safely
func hashPassword(password string) (string, error) {
	if strings.TrimSpace(password) == "" {
		return "", errors.New("password is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// helper: verify password against hash
func verifyPassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// helper: issue a signed JWT for an actor
func (s *AuthService) issueToken(a Actor) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   a.Username,
		},
		UserID:   a.UserID,
		Username: a.Username,
		Perms:    a.Perms,
	})
	return token.SignedString([]byte(s.cfg.SigningKey))
}
