package store

import (
	"context"
	"fmt"
	"time"
)

// UserRole controls what a user may do. Roles form a hierarchy:
// admin > broker > agent.
type UserRole string

const (
	RoleAgent  UserRole = "agent"
	RoleBroker UserRole = "broker"
	RoleAdmin  UserRole = "admin"
)

// User is a realtor account.
type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	FullName      string    `json:"full_name"`
	CompanyName   string    `json:"company_name,omitempty"`
	LicenseNumber string    `json:"license_number,omitempty"`
	Role          UserRole  `json:"role"`
	PasswordHash  string    `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CreateUser inserts a new user and fills in its id and timestamps.
func (s *Store) CreateUser(ctx context.Context, u *User) error {
	err := s.db.QueryRow(ctx, `
		INSERT INTO users (email, full_name, company_name, license_number, role, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`,
		u.Email, u.FullName, u.CompanyName, u.LicenseNumber, string(u.Role), u.PasswordHash,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetUser retrieves a user by id.
func (s *Store) GetUser(ctx context.Context, id string) (*User, error) {
	u := &User{}
	err := s.db.QueryRow(ctx, `
		SELECT id, email, full_name, COALESCE(company_name,''), COALESCE(license_number,''),
		       role, password_hash, created_at, updated_at
		FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Email, &u.FullName, &u.CompanyName, &u.LicenseNumber,
		&u.Role, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, wrapNotFound(err))
	}
	return u, nil
}

// GetUserByEmail retrieves a user by email address.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	u := &User{}
	err := s.db.QueryRow(ctx, `
		SELECT id, email, full_name, COALESCE(company_name,''), COALESCE(license_number,''),
		       role, password_hash, created_at, updated_at
		FROM users WHERE email = $1`, email,
	).Scan(&u.ID, &u.Email, &u.FullName, &u.CompanyName, &u.LicenseNumber,
		&u.Role, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", wrapNotFound(err))
	}
	return u, nil
}
