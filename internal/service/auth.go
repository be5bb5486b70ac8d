package service

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/octobees/leads-prospector/internal/auth"
)

// RoleOperator is the role carried by tokens issued to the configured operator.
const RoleOperator = "admin"

// ErrInvalidCredentials is returned when the email or password does not match.
var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthService validates the operator credentials and issues tokens.
type AuthService struct {
	email        string
	passwordHash []byte
	jwt          *auth.JWTManager
}

// NewAuthService constructs an AuthService for a single operator account.
// passwordHash is a bcrypt hash; an empty hash disables login.
func NewAuthService(email, passwordHash string, jwtManager *auth.JWTManager) *AuthService {
	return &AuthService{
		email:        strings.ToLower(strings.TrimSpace(email)),
		passwordHash: []byte(passwordHash),
		jwt:          jwtManager,
	}
}

// Login validates credentials and returns a JWT.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	if email == "" || password == "" {
		return "", errors.New("email and password must not be empty")
	}
	if len(s.passwordHash) == 0 {
		return "", ErrInvalidCredentials
	}

	if !strings.EqualFold(strings.TrimSpace(email), s.email) {
		// Same bcrypt cost as a wrong password.
		_ = bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password))
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	return s.jwt.GenerateToken(s.email, s.email, RoleOperator)
}
