package quiz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/quiz-master/server/src/server/cache"
	"github.com/quiz-master/server/src/server/data"
	"github.com/quiz-master/server/src/server/store"
)

// HashPassword returns the bcrypt hash stored for a password.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(h), nil
}

type RegisterInput struct {
	Email         string `json:"email" validate:"required,email"`
	Password      string `json:"password" validate:"required"`
	FullName      string `json:"full_name" validate:"required"`
	Qualification string `json:"qualification"`
	DOB           string `json:"dob" validate:"omitempty,datetime=2006-01-02"`
}

// Register creates a regular user account.
func (s *Service) Register(ctx context.Context, in RegisterInput) (data.User, error) {
	if err := check(in); err != nil {
		return data.User{}, err
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return data.User{}, err
	}
	u, err := s.store.CreateUser(ctx, data.User{
		Email:         in.Email,
		PasswordHash:  hash,
		FullName:      in.FullName,
		Role:          data.RoleUser,
		Qualification: in.Qualification,
		DOB:           in.DOB,
	})
	if err != nil {
		return data.User{}, err
	}
	s.invalidate(ctx, cache.Mutation{Entity: cache.EntityUser, ID: u.ID})
	return u, nil
}

// Authenticate returns the user owning email when password matches.
func (s *Service) Authenticate(ctx context.Context, email, password string) (data.User, error) {
	u, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return data.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return data.User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return data.User{}, ErrInvalidCredentials
	}
	return u, nil
}

// EnsureAdmin creates the administrator account if no user owns email yet.
func (s *Service) EnsureAdmin(ctx context.Context, email, password, fullName string) error {
	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("looking up admin: %w", err)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	u, err := s.store.CreateUser(ctx, data.User{
		Email:        email,
		PasswordHash: hash,
		FullName:     fullName,
		Role:         data.RoleAdmin,
	})
	if err != nil {
		return fmt.Errorf("creating admin: %w", err)
	}
	slog.Info("Admin account created", "email", u.Email, "id", u.ID)
	return nil
}

func (s *Service) GetUser(ctx context.Context, id int64) (data.User, error) {
	return s.store.GetUser(ctx, id)
}

// ListUsers returns the regular (non-admin) users.
func (s *Service) ListUsers(ctx context.Context) ([]data.User, error) {
	return s.store.ListUsers(ctx, data.RoleUser)
}

type UserPatch struct {
	Email         *string `json:"email" validate:"omitnil,email"`
	Password      *string `json:"password" validate:"omitnil,min=1"`
	FullName      *string `json:"full_name" validate:"omitnil,min=1"`
	Qualification *string `json:"qualification"`
	DOB           *string `json:"dob" validate:"omitnil,datetime=2006-01-02"`
}

func (s *Service) UpdateUser(ctx context.Context, id int64, p UserPatch) (data.User, error) {
	if err := check(p); err != nil {
		return data.User{}, err
	}
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return data.User{}, err
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.FullName != nil {
		u.FullName = *p.FullName
	}
	if p.Qualification != nil {
		u.Qualification = *p.Qualification
	}
	if p.DOB != nil {
		u.DOB = *p.DOB
	}
	if p.Password != nil {
		if u.PasswordHash, err = HashPassword(*p.Password); err != nil {
			return data.User{}, err
		}
	}
	if err := s.store.UpdateUser(ctx, u); err != nil {
		return data.User{}, err
	}
	s.invalidate(ctx, cache.Mutation{Entity: cache.EntityUser, ID: id})
	return u, nil
}

func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	if err := s.store.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, cache.Mutation{Entity: cache.EntityUser, ID: id})
	return nil
}
