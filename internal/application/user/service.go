package user

import (
	"context"
	"fmt"
	"io"

	"github.com/homehive/homehive-api/internal/domain"
	"github.com/homehive/homehive-api/internal/pkg/phone"
	"golang.org/x/crypto/bcrypt"
)

const avatarKeyFmt = "avatars/%s"

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
}

type Service interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	List(ctx context.Context, limit int32, cursor string) ([]domain.User, string, error)
	Update(ctx context.Context, userID string, req domain.UpdateUserRequest) (*domain.User, error)
	Delete(ctx context.Context, userID string) error
	ChangePassword(ctx context.Context, userID string, req ChangePasswordRequest) error
	SetAvatar(ctx context.Context, userID string, r io.Reader, contentType string) error
	GetAvatar(ctx context.Context, userID string) (io.ReadCloser, string, error)
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByPhone(ctx context.Context, phone string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
	SoftDelete(ctx context.Context, userID string) error
	ScanPage(ctx context.Context, limit int32, cursor string) ([]domain.User, string, error)
}

type objectStore interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) error
	Download(ctx context.Context, key string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, key string) error
}

type service struct {
	users   userStore
	objects objectStore
}

func NewService(users userStore, objects objectStore) Service {
	return &service{users: users, objects: objects}
}

func (s *service) Get(ctx context.Context, userID string) (*domain.User, error) {
	return s.users.Get(ctx, userID)
}

func (s *service) List(ctx context.Context, limit int32, cursor string) ([]domain.User, string, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	return s.users.ScanPage(ctx, limit, cursor)
}

// Update applies the filled fields only. Changing a channel identifier
// clears that channel's verified flag so the next login re-challenges it.
func (s *service) Update(ctx context.Context, userID string, req domain.UpdateUserRequest) (*domain.User, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.FirstName != nil {
		updates["first_name"] = *req.FirstName
	}
	if req.LastName != nil {
		updates["last_name"] = *req.LastName
	}
	if req.Email != nil && *req.Email != u.Email {
		if other, err := s.users.GetByEmail(ctx, *req.Email); err == nil && other.UserID != userID {
			return nil, fmt.Errorf("email already in use: %w", domain.ErrConflict)
		}
		updates["email"] = *req.Email
		updates["email_verified_at"] = nil
	}
	if req.Phone != nil {
		n := phone.Normalize(*req.Phone)
		if n == "" {
			return nil, fmt.Errorf("invalid phone number: %w", domain.ErrBadRequest)
		}
		if u.Phone == nil || n != *u.Phone {
			if other, err := s.users.GetByPhone(ctx, n); err == nil && other.UserID != userID {
				return nil, fmt.Errorf("phone already in use: %w", domain.ErrConflict)
			}
			updates["phone"] = n
			updates["phone_verified_at"] = nil
		}
	}
	if req.Role != nil {
		if !domain.ValidSignupRole(*req.Role) {
			return nil, fmt.Errorf("invalid role %q: %w", *req.Role, domain.ErrBadRequest)
		}
		updates["role"] = *req.Role
	}
	if req.Enable != nil {
		updates["enable"] = *req.Enable
	}
	if len(updates) == 0 {
		return u, nil
	}

	if err := s.users.Update(ctx, userID, updates); err != nil {
		return nil, err
	}
	return s.users.Get(ctx, userID)
}

func (s *service) Delete(ctx context.Context, userID string) error {
	if _, err := s.users.Get(ctx, userID); err != nil {
		return err
	}
	return s.users.SoftDelete(ctx, userID)
}

func (s *service) ChangePassword(ctx context.Context, userID string, req ChangePasswordRequest) error {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return fmt.Errorf("current password mismatch: %w", domain.ErrUnauthorized)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.users.Update(ctx, userID, map[string]interface{}{"password_hash": string(hash)})
}

func (s *service) SetAvatar(ctx context.Context, userID string, r io.Reader, contentType string) error {
	if s.objects == nil {
		return fmt.Errorf("avatar storage not configured: %w", domain.ErrBadRequest)
	}
	if _, err := s.users.Get(ctx, userID); err != nil {
		return err
	}
	key := fmt.Sprintf(avatarKeyFmt, userID)
	if err := s.objects.Upload(ctx, key, r, contentType); err != nil {
		return err
	}
	return s.users.Update(ctx, userID, map[string]interface{}{"avatar_key": key})
}

func (s *service) GetAvatar(ctx context.Context, userID string) (io.ReadCloser, string, error) {
	if s.objects == nil {
		return nil, "", fmt.Errorf("avatar storage not configured: %w", domain.ErrBadRequest)
	}
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	if u.AvatarKey == "" {
		return nil, "", fmt.Errorf("no avatar for %s: %w", userID, domain.ErrNotFound)
	}
	return s.objects.Download(ctx, u.AvatarKey)
}
