// Package services contains server-side business logic. This file implements
// AuthService: signup, login with transparent digest upgrades, and the
// availability probe used while a visitor fills in the signup form.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/logging"
	"github.com/dmitrijs2005/gatekeeper/internal/server/credentials"
	"github.com/dmitrijs2005/gatekeeper/internal/server/datastore"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
	"github.com/dmitrijs2005/gatekeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gatekeeper/internal/server/validation"
)

// ValidationError carries every problem found with a signup submission.
type ValidationError struct {
	Errors validation.ErrorList
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Errors.Error()
}

// Availability is the answer of the availability probe. Fields that were
// not asked about are false.
type Availability struct {
	EmailExists    bool `json:"email_exists"`
	UsernameExists bool `json:"username_exists"`
}

// Exists reports whether either probed value is taken.
func (a Availability) Exists() bool { return a.EmailExists || a.UsernameExists }

// AuthService provides authentication-related operations:
// - Signup: validate, check uniqueness, hash and persist a new user
// - Login: verify credentials, upgrading outdated digests
// - CheckAvailability: answer "is this email/username taken?"
type AuthService struct {
	store       *datastore.Store
	repomanager repomanager.RepositoryManager
	hasher      credentials.Hasher
	log         logging.Logger
}

// NewAuthService constructs an AuthService over store.
func NewAuthService(store *datastore.Store, m repomanager.RepositoryManager, hasher credentials.Hasher, log logging.Logger) *AuthService {
	return &AuthService{
		store:       store,
		repomanager: m,
		hasher:      hasher,
		log:         log.With("component", "auth"),
	}
}

// Signup registers a user. Validation and uniqueness problems come back as
// *ValidationError with nothing written; storage failures as
// common.ErrorInternal.
func (s *AuthService) Signup(ctx context.Context, form validation.SignupForm) (*models.User, error) {
	f := form.Normalize()
	errs := validation.ValidateSignup(f)

	repo := s.repomanager.Users(s.store)

	emailExists, err := repo.EmailExists(ctx, f.Email)
	if err != nil {
		s.log.Error(ctx, "email uniqueness check failed", "error", err)
		return nil, common.ErrorInternal
	}
	usernameExists, err := repo.UsernameExists(ctx, f.Username)
	if err != nil {
		s.log.Error(ctx, "username uniqueness check failed", "error", err)
		return nil, common.ErrorInternal
	}
	if emailExists {
		errs.Add(validation.MsgEmailExists)
	}
	if usernameExists {
		errs.Add(validation.MsgUsernameExists)
	}

	if !errs.Empty() {
		return nil, &ValidationError{Errors: errs}
	}

	hash, err := s.hasher.Hash(f.Password)
	if err != nil {
		s.log.Error(ctx, "password hashing failed", "error", err)
		return nil, common.ErrorInternal
	}

	var created *models.User
	err = s.store.WithTx(ctx, func(ctx context.Context, tx *datastore.Store) error {
		repoTx := s.repomanager.Users(tx)
		if _, err := repoTx.Create(ctx, &models.User{
			FirstName:    f.FirstName,
			LastName:     f.LastName,
			Email:        f.Email,
			UserName:     f.Username,
			PasswordHash: hash,
		}); err != nil {
			return err
		}
		u, err := repoTx.FindByUsername(ctx, f.Username)
		if err != nil {
			return err
		}
		created = u
		return nil
	})

	var conflict *datastore.ConflictError
	switch {
	case err == nil:
	case errors.As(err, &conflict):
		// lost a race with a concurrent signup between the check and the insert
		s.log.Info(ctx, "signup conflict on insert", "column", conflict.Column)
		msg := validation.MsgUsernameExists
		if conflict.Column == "email" {
			msg = validation.MsgEmailExists
		}
		return nil, &ValidationError{Errors: validation.ErrorList{msg}}
	default:
		s.log.Error(ctx, "user insert failed", "error", err)
		return nil, common.ErrorInternal
	}

	s.log.Info(ctx, "user signed up", "user_id", created.ID, "username", created.UserName)
	return created, nil
}

// Login checks username/password. Unknown users and wrong passwords are
// indistinguishable to the caller: both yield common.ErrorUnauthorized.
func (s *AuthService) Login(ctx context.Context, username, password string) (*models.User, error) {
	username = validation.NormalizeIdentifier(username)
	repo := s.repomanager.Users(s.store)

	user, err := repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// spend the same hashing time as a real verification
			_, _ = s.hasher.Hash(password)
			return nil, common.ErrorUnauthorized
		}
		s.log.Error(ctx, "user lookup failed", "error", err)
		return nil, common.ErrorInternal
	}

	ok, err := s.hasher.Verify(user.PasswordHash, password)
	if err != nil {
		s.log.Warn(ctx, "stored password digest unreadable", "user_id", user.ID, "error", err)
		return nil, common.ErrorUnauthorized
	}
	if !ok {
		return nil, common.ErrorUnauthorized
	}

	if s.hasher.NeedsRehash(user.PasswordHash) {
		s.rehash(ctx, user, password)
	}

	return user, nil
}

// rehash replaces an outdated digest. Failure is logged and the login
// proceeds on the old digest.
func (s *AuthService) rehash(ctx context.Context, user *models.User, password string) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.log.Warn(ctx, "rehash failed", "user_id", user.ID, "error", err)
		return
	}
	if err := s.repomanager.Users(s.store).UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		s.log.Warn(ctx, "storing upgraded digest failed", "user_id", user.ID, "error", err)
		return
	}
	user.PasswordHash = hash
	s.log.Info(ctx, "password digest upgraded", "user_id", user.ID)
}

// CheckAvailability reports whether email and/or username are taken.
// Empty inputs are not looked up.
func (s *AuthService) CheckAvailability(ctx context.Context, email, username string) (Availability, error) {
	var a Availability
	repo := s.repomanager.Users(s.store)

	if email = validation.NormalizeIdentifier(email); email != "" {
		exists, err := repo.EmailExists(ctx, email)
		if err != nil {
			s.log.Error(ctx, "email availability check failed", "error", err)
			return Availability{}, common.ErrorInternal
		}
		a.EmailExists = exists
	}

	if username = validation.NormalizeIdentifier(username); username != "" {
		exists, err := repo.UsernameExists(ctx, username)
		if err != nil {
			s.log.Error(ctx, "username availability check failed", "error", err)
			return Availability{}, common.ErrorInternal
		}
		a.UsernameExists = exists
	}

	return a, nil
}

// FindUser returns the stored user for username, common.ErrorNotFound if
// there is none, or common.ErrorInternal.
func (s *AuthService) FindUser(ctx context.Context, username string) (*models.User, error) {
	user, err := s.repomanager.Users(s.store).FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		s.log.Error(ctx, "user lookup failed", "error", err)
		return nil, common.ErrorInternal
	}
	return user, nil
}

// DeleteUser removes a user account by username.
func (s *AuthService) DeleteUser(ctx context.Context, username string) error {
	username = validation.NormalizeIdentifier(username)
	if err := s.repomanager.Users(s.store).DeleteByUsername(ctx, username); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return fmt.Errorf("user %q: %w", username, common.ErrorNotFound)
		}
		s.log.Error(ctx, "user delete failed", "error", err)
		return common.ErrorInternal
	}
	s.log.Info(ctx, "user deleted", "username", username)
	return nil
}
