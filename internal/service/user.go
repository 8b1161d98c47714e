package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/sakif/icon-gallery/internal/apperror"
	"github.com/sakif/icon-gallery/internal/auth"
	"github.com/sakif/icon-gallery/internal/model"
	"github.com/sakif/icon-gallery/internal/repository"
)

const (
	MinPasswordLength = 8
	// Page size used when cascading an account deletion over the user's
	// icons. Any value works; paging just bounds memory for prolific users.
	deleteCascadePageSize = 100
)

// UserService handles accounts: registration, login, Google sign-in and
// the admin-side user management.
type UserService struct {
	users     repository.UserRepository
	icons     repository.IconRepository
	store     ContentStore
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewUserService(
	users repository.UserRepository,
	icons repository.IconRepository,
	store ContentStore,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		users:     users,
		icons:     icons,
		store:     store,
		passwords: passwords,
		logger:    logger,
	}
}

// Register creates a new account. The very first account on a fresh
// instance becomes the admin, so the gallery is administrable without any
// out-of-band bootstrap step.
func (s *UserService) Register(ctx context.Context, name, email, password string) (*model.User, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)

	if name == "" {
		return nil, apperror.ValidationFailed("name", "name is required")
	}
	if len(name) > MaxNameLength {
		return nil, apperror.ValidationFailed("name",
			fmt.Sprintf("name must be %d characters or less", MaxNameLength))
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if len(password) < MinPasswordLength {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, apperror.ValidationFailed("password", err.Error())
	}

	existing, err := s.users.CountUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting users: %w", err)
	}

	user := &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleUser,
	}
	if existing == 0 {
		user.Role = model.RoleAdmin
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, apperror.Conflict("an account with this email already exists")
		}
		return nil, err
	}

	s.logger.Info("user registered",
		slog.String("id", user.ID),
		slog.String("role", user.Role),
	)
	return user, nil
}

// Login checks credentials and returns the user. Unknown email and wrong
// password produce the same unauthorized error, so the response doesn't
// reveal which emails have accounts.
func (s *UserService) Login(ctx context.Context, email, password string) (*model.User, error) {
	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized("invalid email or password")
		}
		return nil, err
	}

	if user.PasswordHash == "" {
		// Google-only account; there is no password to check.
		return nil, apperror.Unauthorized("invalid email or password")
	}
	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		return nil, apperror.Unauthorized("invalid email or password")
	}
	return user, nil
}

// LoginOrRegisterGoogle signs a Google user in, creating an account on
// first contact. Accounts are matched by email, so a user who registered
// with a password and later signs in with Google lands in the same
// account.
func (s *UserService) LoginOrRegisterGoogle(ctx context.Context, gu *auth.GoogleUser) (*model.User, error) {
	email := normalizeEmail(gu.Email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, err
	}

	name := strings.TrimSpace(gu.Name)
	if name == "" {
		name = email
	}

	existing, err := s.users.CountUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting users: %w", err)
	}

	user = &model.User{
		Name:  name,
		Email: email,
		Role:  model.RoleUser,
	}
	if existing == 0 {
		user.Role = model.RoleAdmin
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered via google",
		slog.String("id", user.ID),
		slog.String("role", user.Role),
	)
	return user, nil
}

// Get returns one user by ID.
func (s *UserService) Get(ctx context.Context, id string) (*model.User, error) {
	return s.users.GetUserByID(ctx, strings.TrimSpace(id))
}

// IsAdmin reports whether the user holds the admin role. Used by the
// admin-gate middleware, which only has a user ID from the token.
func (s *UserService) IsAdmin(ctx context.Context, id string) (bool, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return false, err
	}
	return user.IsAdmin(), nil
}

// List returns users with their icon counts (admin view).
func (s *UserService) List(ctx context.Context, limit, offset int) ([]model.User, error) {
	users, err := s.users.ListUsers(ctx, repository.ListOptions{Limit: limit, Offset: offset})
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}

// AdminUpdate changes a user's name, email or role. Empty fields are left
// untouched. Demoting yourself out of the admin role is refused so an
// instance can't lock out its last admin by accident.
func (s *UserService) AdminUpdate(ctx context.Context, id, actorID, name, email, role string) (*model.User, error) {
	user, err := s.users.GetUserByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}

	if name = strings.TrimSpace(name); name != "" {
		if len(name) > MaxNameLength {
			return nil, apperror.ValidationFailed("name",
				fmt.Sprintf("name must be %d characters or less", MaxNameLength))
		}
		user.Name = name
	}
	if email = normalizeEmail(email); email != "" {
		if err := validateEmail(email); err != nil {
			return nil, err
		}
		user.Email = email
	}
	if role != "" {
		if role != model.RoleUser && role != model.RoleAdmin {
			return nil, apperror.ValidationFailed("role", "role must be user or admin")
		}
		if user.ID == actorID && role != model.RoleAdmin {
			return nil, apperror.Forbidden("you cannot remove your own admin role")
		}
		user.Role = role
	}

	if err := s.users.UpdateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, apperror.Conflict("an account with this email already exists")
		}
		return nil, err
	}
	return user, nil
}

// AdminDelete removes a user together with all their icons and stored
// files. Admins cannot delete their own account from the admin panel.
func (s *UserService) AdminDelete(ctx context.Context, id, actorID string) error {
	id = strings.TrimSpace(id)
	if id == actorID {
		return apperror.Forbidden("you cannot delete your own account")
	}

	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return err
	}

	// Remove the user's icons page by page. Each pass lists from offset 0
	// because the deletes shift the remaining rows down.
	for {
		icons, err := s.icons.List(ctx, repository.IconFilter{
			UserID: user.ID,
			Limit:  deleteCascadePageSize,
		})
		if err != nil {
			return fmt.Errorf("listing icons for user %s: %w", user.ID, err)
		}
		if len(icons) == 0 {
			break
		}
		for _, icon := range icons {
			if err := s.icons.Delete(ctx, icon.ID); err != nil {
				return fmt.Errorf("deleting icon %s: %w", icon.ID, err)
			}
			if err := s.store.Remove(icon.FilePath); err != nil {
				s.logger.Error("failed to remove icon file",
					slog.String("path", icon.FilePath),
					slog.String("error", err.Error()),
				)
			}
			if err := s.store.Remove(icon.PreviewPath); err != nil {
				s.logger.Error("failed to remove preview file",
					slog.String("path", icon.PreviewPath),
					slog.String("error", err.Error()),
				)
			}
		}
	}

	if err := s.users.DeleteUser(ctx, user.ID); err != nil {
		return err
	}

	s.logger.Info("user deleted",
		slog.String("id", user.ID),
		slog.String("actorID", actorID),
	)
	return nil
}

// Count returns the number of accounts (admin stats).
func (s *UserService) Count(ctx context.Context) (int64, error) {
	return s.users.CountUsers(ctx)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if email == "" {
		return apperror.ValidationFailed("email", "email is required")
	}
	if len(email) > MaxNameLength {
		return apperror.ValidationFailed("email",
			fmt.Sprintf("email must be %d characters or less", MaxNameLength))
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return apperror.ValidationFailed("email", "email address is not valid")
	}
	return nil
}
