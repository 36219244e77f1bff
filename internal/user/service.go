package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"github.com/librarium-io/librarium/internal/user/entity"
	userrepo "github.com/librarium-io/librarium/internal/user/repo"
	"github.com/librarium-io/librarium/pkg/utilities"
)

// PasswordHasher defines the minimal hashing interface (abstract so the
// algorithm can be swapped without touching the service).
type PasswordHasher interface {
	Hash(pw string) (string, error)
	Verify(hash, pw string) bool
}

// BcryptHasher implementation.
type BcryptHasher struct{ Cost int }

func (b BcryptHasher) Hash(pw string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func (b BcryptHasher) Verify(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

var (
	ErrNotFound          = errors.New("user not found")
	ErrDuplicateUsername = errors.New("username already registered")
	ErrInvalidRole       = errors.New("role must be LIBRARIAN or MEMBER")
	ErrBadCredentials    = errors.New("incorrect username or password")
	ErrRateLimited       = errors.New("rate limit exceeded")
)

// Service orchestrates signup, authentication and the member lifecycle.
type Service struct {
	repo   *userrepo.UserRepo
	hasher PasswordHasher
	// Limiter throttles the public signup/login surface.
	Limiter *rate.Limiter
}

func NewService(db *sqlx.DB, r *userrepo.UserRepo, hasher PasswordHasher) *Service {
	if r == nil {
		r = userrepo.NewUserRepo(db)
	}
	if hasher == nil {
		hasher = BcryptHasher{Cost: bcrypt.DefaultCost}
	}
	return &Service{
		repo:    r,
		hasher:  hasher,
		Limiter: rate.NewLimiter(rate.Every(time.Second), 30),
	}
}

// Signup creates a new account from the public signup surface. The role is
// upper-cased and validated; signups are rate limited.
func (s *Service) Signup(ctx context.Context, username, password, role string) (*entity.User, error) {
	if !s.Limiter.Allow() {
		return nil, ErrRateLimited
	}
	role = strings.ToUpper(strings.TrimSpace(role))
	if !entity.ValidRole(role) {
		return nil, ErrInvalidRole
	}
	return s.create(ctx, username, password, role)
}

// CreateMember creates an account through the member-management surface.
// The role is forced to MEMBER regardless of what the caller submitted.
func (s *Service) CreateMember(ctx context.Context, username, password string) (*entity.User, error) {
	return s.create(ctx, username, password, entity.RoleMember)
}

func (s *Service) create(ctx context.Context, username, password, role string) (*entity.User, error) {
	if _, err := s.repo.GetByUsername(ctx, username); err == nil {
		return nil, ErrDuplicateUsername
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	now := time.Now().UTC()
	u := &entity.User{
		ID:           utilities.NewID(),
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Authenticate verifies username/password. The same error covers unknown
// users and wrong passwords to avoid account enumeration.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*entity.User, error) {
	if !s.Limiter.Allow() {
		return nil, ErrRateLimited
	}
	u, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBadCredentials
		}
		return nil, err
	}
	if !s.hasher.Verify(u.PasswordHash, password) {
		return nil, ErrBadCredentials
	}
	return u, nil
}

// GetByUsername resolves a user for the request guard.
func (s *Service) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	u, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

// UpdateMember overwrites a member's username and role, rehashing the
// password only when a non-empty one is supplied.
func (s *Service) UpdateMember(ctx context.Context, id int64, username, password, role string) (*entity.User, error) {
	if _, err := s.repo.GetMemberByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	role = strings.ToUpper(strings.TrimSpace(role))
	if !entity.ValidRole(role) {
		return nil, ErrInvalidRole
	}
	if existing, err := s.repo.GetByUsername(ctx, username); err == nil {
		if existing.ID != id {
			return nil, ErrDuplicateUsername
		}
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	var hash *string
	if password != "" {
		h, err := s.hasher.Hash(password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		hash = &h
	}
	if _, err := s.repo.UpdateMember(ctx, id, username, role, hash); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// SoftDeleteMember flips is_active to false and returns the updated
// snapshot.
func (s *Service) SoftDeleteMember(ctx context.Context, id int64) (*entity.User, error) {
	rows, err := s.repo.SoftDelete(ctx, id)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, ErrNotFound
	}
	return s.repo.GetByID(ctx, id)
}

// ListMembers returns member rows filtered by the active flag.
func (s *Service) ListMembers(ctx context.Context, active bool, skip, limit int) ([]*entity.User, error) {
	return s.repo.ListMembers(ctx, active, skip, limit)
}
