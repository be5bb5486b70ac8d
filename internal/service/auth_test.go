package service

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/octobees/leads-prospector/internal/auth"
)

func newAuthService(t *testing.T, password string) (*AuthService, *auth.JWTManager) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	manager := auth.NewJWTManager("secret", 0)
	return NewAuthService("Operador@Example.com", string(hash), manager), manager
}

func TestAuthService_Login(t *testing.T) {
	svc, manager := newAuthService(t, "s3nha")

	token, err := svc.Login(context.Background(), "operador@example.com", "s3nha")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	claims, err := manager.ParseToken(token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.Role != RoleOperator || claims.Email != "operador@example.com" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestAuthService_LoginRejects(t *testing.T) {
	svc, _ := newAuthService(t, "s3nha")

	tests := map[string]struct {
		email    string
		password string
		invalid  bool
	}{
		"empty email":    {email: "", password: "s3nha"},
		"empty password": {email: "operador@example.com", password: ""},
		"wrong password": {email: "operador@example.com", password: "errada", invalid: true},
		"unknown email":  {email: "outro@example.com", password: "s3nha", invalid: true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Login(context.Background(), tt.email, tt.password)
			if err == nil {
				t.Fatalf("expected error")
			}
			if tt.invalid && !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("expected ErrInvalidCredentials, got %v", err)
			}
		})
	}
}

func TestAuthService_LoginDisabledWithoutHash(t *testing.T) {
	svc := NewAuthService("operador@example.com", "", auth.NewJWTManager("secret", 0))
	if _, err := svc.Login(context.Background(), "operador@example.com", "qualquer"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}
