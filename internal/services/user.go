package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"github.com/Lakshya182005/CircuitCrafter/internal/store"
	"github.com/Lakshya182005/CircuitCrafter/types"
	"github.com/google/uuid"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	AttachGoogleID(ctx context.Context, id uuid.UUID, googleID string) error
}

// GoogleProfile is the verified claim set extracted from a Google ID token.
type GoogleProfile struct {
	Subject string
	Email   string
	Name    string
	Picture string
}

// UserService encapsulates user use-cases.
type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (types.User, error) {
	return s.repo.GetByEmail(ctx, email)
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (types.User, error) {
	return s.repo.GetByUsername(ctx, username)
}

func (s *UserService) Create(ctx context.Context, user types.User) (types.User, error) {
	return s.repo.Create(ctx, user)
}

// ReconcileGoogle links or creates the local account for a verified Google
// sign-in. An existing account with the same email gets the subject id
// attached on first use; otherwise a fresh account is created under a
// username derived from the Google display name.
func (s *UserService) ReconcileGoogle(ctx context.Context, profile GoogleProfile) (types.User, error) {
	user, err := s.repo.GetByEmail(ctx, profile.Email)
	if err == nil {
		if user.GoogleID == "" {
			if err := s.repo.AttachGoogleID(ctx, user.ID, profile.Subject); err != nil {
				return types.User{}, err
			}
			user.GoogleID = profile.Subject
		}
		return user, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return types.User{}, err
	}

	username, err := s.deriveUsername(ctx, profile.Name)
	if err != nil {
		return types.User{}, err
	}

	return s.repo.Create(ctx, types.User{
		Username: username,
		Email:    profile.Email,
		Name:     profile.Name,
		Avatar:   profile.Picture,
		GoogleID: profile.Subject,
	})
}

// deriveUsername lowercases the display name, strips whitespace, and appends
// a random 0-999 suffix when the result is already taken.
func (s *UserService) deriveUsername(ctx context.Context, name string) (string, error) {
	base := strings.ToLower(strings.Join(strings.Fields(name), ""))
	if base == "" {
		base = "user"
	}

	_, err := s.repo.GetByUsername(ctx, base)
	if errors.Is(err, store.ErrNotFound) {
		return base, nil
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%d", base, rand.Intn(1000)), nil
}
