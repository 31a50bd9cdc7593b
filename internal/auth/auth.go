package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// Authentication errors.
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrMissingClaim = errors.New("missing required claim")
)

// Claims identifies an authenticated user.
type Claims struct {
	UserID string
	Email  string
	Role   string
}

// Authenticator issues and verifies HS256 access tokens and hashes
// passwords for storage.
type Authenticator struct {
	secret   []byte
	tokenTTL time.Duration
}

// New creates an Authenticator with the given signing secret and token
// lifetime.
func New(secret []byte, tokenTTL time.Duration) *Authenticator {
	if tokenTTL == 0 {
		tokenTTL = 30 * time.Minute
	}
	return &Authenticator{secret: secret, tokenTTL: tokenTTL}
}

// HashPassword hashes a plaintext password for storage.
func (a *Authenticator) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword checks a plaintext password against its stored hash.
func (a *Authenticator) VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// IssueToken creates a signed access token for a user.
func (a *Authenticator) IssueToken(c Claims) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   c.UserID,
		"email": c.Email,
		"role":  c.Role,
		"iat":   now.Unix(),
		"exp":   now.Add(a.tokenTTL).Unix(),
	})
	return token.SignedString(a.secret)
}

// VerifyToken validates a token and extracts the user claims.
func (a *Authenticator) VerifyToken(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	if sub == "" || email == "" {
		return nil, fmt.Errorf("%w: sub/email", ErrMissingClaim)
	}
	role, _ := claims["role"].(string)

	return &Claims{UserID: sub, Email: email, Role: role}, nil
}

// roleHierarchy maps a role to the roles it subsumes.
var roleHierarchy = map[string][]string{
	"admin":  {"admin", "broker", "agent"},
	"broker": {"broker", "agent"},
	"agent":  {"agent"},
}

// HasRole reports whether userRole satisfies the required role.
func HasRole(required, userRole string) bool {
	for _, r := range roleHierarchy[userRole] {
		if r == required {
			return true
		}
	}
	return false
}
