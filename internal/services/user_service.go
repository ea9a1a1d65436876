package services

import (
	"context"
	"log"
	"strings"

	"taskflow/internal/models"
	"taskflow/internal/realtime"
	"taskflow/internal/repositories"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// UserService is the credential store: registration, credential
// verification and profile updates.
type UserService interface {
	Register(ctx context.Context, name, email, password string) (*models.User, error)
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	UpdateProfile(ctx context.Context, id primitive.ObjectID, name string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.UserSummary, error)
}

type userService struct {
	repo         repositories.UserRepository
	authService  AuthService
	emailService EmailService
	hub          *realtime.Hub
}

func NewUserService(repo repositories.UserRepository, authService AuthService, emailService EmailService, hub *realtime.Hub) UserService {
	return &userService{
		repo:         repo,
		authService:  authService,
		emailService: emailService,
		hub:          hub,
	}
}

func (s *userService) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	hash, err := s.authService.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Name:         strings.TrimSpace(name),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: hash,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}

	if s.emailService != nil {
		if err := s.emailService.SendWelcomeEmail(user.Email, user.Name); err != nil {
			// warn but do not fail registration
			log.Printf("[user][register][warn] welcome email to %s failed: %v", user.Email, err)
		}
	}
	return user, nil
}

// Authenticate returns the same failure for an unknown email and a wrong
// password so account existence does not leak.
func (s *userService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if !s.authService.CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *userService) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}
	return user, nil
}

// UpdateProfile applies the mutable profile fields (name only; email is
// immutable) and broadcasts user:profile-updated to all connected clients.
func (s *userService) UpdateProfile(ctx context.Context, id primitive.ObjectID, name string) (*models.User, error) {
	user, err := s.repo.UpdateName(ctx, id, strings.TrimSpace(name))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}

	if s.hub != nil {
		s.hub.Broadcast("user:profile-updated", map[string]interface{}{
			"userId": user.ID.Hex(),
			"user":   user.Ref(),
		})
	}
	return user, nil
}

func (s *userService) ListUsers(ctx context.Context) ([]models.UserSummary, error) {
	return s.repo.List(ctx)
}
