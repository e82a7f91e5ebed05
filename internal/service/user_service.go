package service

import (
	"context"

	apperrors "github.com/aditya/rideshare/internal/errors"
	"github.com/aditya/rideshare/internal/models"
	"github.com/aditya/rideshare/internal/repository"
)

type UserService interface {
	CreateUser(ctx context.Context, req *models.CreateUserRequest) (*models.User, error)
	GetUser(ctx context.Context, actor models.Actor, id string) (*models.User, error)
}

type userService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

func (s *userService) CreateUser(ctx context.Context, req *models.CreateUserRequest) (*models.User, error) {
	role := models.Role(req.UserType)
	if !role.Valid() {
		return nil, apperrors.InvalidInput("user_type must be rider, driver or admin")
	}

	// Check if phone already exists
	existing, err := s.userRepo.GetByPhone(ctx, req.Phone)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperrors.Conflict("user with this phone already exists")
	}

	user := &models.User{
		Phone:    req.Phone,
		Name:     req.Name,
		UserType: role,
	}
	if req.Email != "" {
		user.Email = &req.Email
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// GetUser lets a user read their own account; admins can read anyone's.
func (s *userService) GetUser(ctx context.Context, actor models.Actor, id string) (*models.User, error) {
	if actor.UserID != id && !actor.IsAdmin() {
		return nil, apperrors.Forbidden("you can only view your own account")
	}

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.NotFound("user")
	}
	return user, nil
}
