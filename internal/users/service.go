package users

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/chatter/chatter-backend/internal/database"
	"github.com/chatter/chatter-backend/internal/models"
)

var (
	ErrInvalidID          = errors.New("invalid user id")
	ErrInvalidInput       = errors.New("email and password are required")
	ErrEmailTaken         = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("credentials are not valid")
)

// CreateUserInput carries the fields accepted when registering a user.
type CreateUserInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateUserInput holds optional changes; nil fields are left untouched.
type UpdateUserInput struct {
	Email    *string `json:"email,omitempty"`
	Password *string `json:"password,omitempty"`
}

// Service encapsulates user-related business logic
type Service struct {
	repo *Repository
}

func NewService(r *Repository) *Service {
	return &Service{repo: r}
}

func (s *Service) Create(ctx context.Context, in CreateUserInput) (*models.User, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" || in.Password == "" {
		return nil, ErrInvalidInput
	}
	existing, err := s.repo.Find(ctx, database.FilterQuery{"email": email})
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, ErrEmailTaken
	}
	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	// the lookup above races with concurrent sign-ups; the unique index decides
	u, err := s.repo.Create(ctx, models.User{Email: email, Password: hash})
	if database.IsDuplicateKey(err) {
		return nil, ErrEmailTaken
	}
	return u, err
}

func (s *Service) FindAll(ctx context.Context) ([]*models.User, error) {
	return s.repo.Find(ctx, database.FilterQuery{})
}

// FindOne returns database.ErrNotFound when no user has the id.
func (s *Service) FindOne(ctx context.Context, id string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrInvalidID
	}
	return s.repo.FindOne(ctx, database.FilterQuery{"_id": oid})
}

func (s *Service) Update(ctx context.Context, id string, in UpdateUserInput) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrInvalidID
	}
	set := database.UpdateQuery{}
	if in.Email != nil {
		email := strings.TrimSpace(*in.Email)
		if email == "" {
			return nil, ErrInvalidInput
		}
		taken, err := s.repo.Find(ctx, database.FilterQuery{"email": email, "_id": map[string]any{"$ne": oid}})
		if err != nil {
			return nil, err
		}
		if len(taken) > 0 {
			return nil, ErrEmailTaken
		}
		set["email"] = email
	}
	if in.Password != nil {
		if *in.Password == "" {
			return nil, ErrInvalidInput
		}
		hash, err := hashPassword(*in.Password)
		if err != nil {
			return nil, err
		}
		set["password"] = hash
	}
	if len(set) == 0 {
		return s.repo.FindOne(ctx, database.FilterQuery{"_id": oid})
	}
	u, err := s.repo.FindOneAndUpdate(ctx, database.FilterQuery{"_id": oid}, database.UpdateQuery{"$set": set})
	if database.IsDuplicateKey(err) {
		return nil, ErrEmailTaken
	}
	return u, err
}

// Remove deletes the user and returns it, or nil when it did not exist.
func (s *Service) Remove(ctx context.Context, id string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrInvalidID
	}
	return s.repo.FindOneAndDelete(ctx, database.FilterQuery{"_id": oid})
}

// Verify checks an email/password pair and returns the matching user.
func (s *Service) Verify(ctx context.Context, email, password string) (*models.User, error) {
	u, err := s.repo.FindOne(ctx, database.FilterQuery{"email": strings.TrimSpace(email)})
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func hashPassword(p string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(p), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
