// Package service holds the business rules. Handlers and the CLI call into
// it; it calls the repositories. Nothing in here knows about HTTP.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/sakif/company-reviews/internal/apperror"
	"github.com/sakif/company-reviews/internal/auth"
	"github.com/sakif/company-reviews/internal/model"
	"github.com/sakif/company-reviews/internal/repository"
)

const msgBadCredentials = "Unable to log in with provided credentials."

// AuthService registers users and exchanges credentials for token keys.
type AuthService struct {
	users     repository.UserRepository
	tokens    repository.TokenRepository
	passwords *auth.PasswordService
	logger    *slog.Logger

	newKey func() (string, error)
}

func NewAuthService(
	users repository.UserRepository,
	tokens repository.TokenRepository,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
		newKey:    auth.GenerateTokenKey,
	}
}

// Register creates a user together with its reviewer profile and token.
// selfDescription may be nil.
func (s *AuthService) Register(ctx context.Context, username, password string, selfDescription *string) (*model.User, *model.Token, error) {
	username = strings.TrimSpace(username)

	fe := apperror.FieldErrors{}
	if msg := validateUsername(username); msg != "" {
		fe.Add("username", msg)
	}
	switch {
	case password == "":
		fe.Add("password", "This field may not be blank.")
	case len(password) > auth.MaxPasswordBytes:
		fe.Add("password", fmt.Sprintf("Ensure this field has no more than %d bytes.", auth.MaxPasswordBytes))
	}
	if selfDescription != nil && utf8.RuneCountInString(*selfDescription) > model.MaxSelfDescriptionLength {
		fe.Add("self_description", fmt.Sprintf("Ensure this field has no more than %d characters.", model.MaxSelfDescriptionLength))
	}
	if err := fe.Err(); err != nil {
		return nil, nil, err
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, nil, fmt.Errorf("service/auth: %w", err)
	}

	key, err := s.newKey()
	if err != nil {
		return nil, nil, fmt.Errorf("service/auth: %w", err)
	}

	user := &model.User{Username: username, PasswordHash: hash}
	reviewer := &model.Reviewer{SelfDescription: selfDescription}
	token := &model.Token{Key: key}

	if err := s.users.CreateUser(ctx, user, reviewer, token); err != nil {
		return nil, nil, err
	}

	s.logger.Info("user registered",
		slog.Int64("userID", user.ID),
		slog.String("username", user.Username),
	)

	return user, token, nil
}

// ObtainToken returns the token of the user matching the credentials. Unknown
// usernames and wrong passwords fail identically.
func (s *AuthService) ObtainToken(ctx context.Context, username, password string) (*model.Token, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			// Same bcrypt work as a wrong password, so timing doesn't reveal
			// whether the username exists.
			_ = s.passwords.VerifyMissing(password)
			return nil, apperror.ValidationFailed(apperror.NonFieldErrors, msgBadCredentials)
		}
		return nil, fmt.Errorf("service/auth: looking up %q: %w", username, err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Info("rejected login", slog.String("username", username))
			return nil, apperror.ValidationFailed(apperror.NonFieldErrors, msgBadCredentials)
		}
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	token, err := s.tokens.GetTokenByUserID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: token for user %d: %w", user.ID, err)
	}
	return token, nil
}

// Authenticate implements auth.Authenticator.
func (s *AuthService) Authenticate(ctx context.Context, key string) (*model.User, error) {
	token, err := s.tokens.GetTokenByKey(ctx, key)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthenticated("Invalid token.")
		}
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	user, err := s.users.GetUserByID(ctx, token.UserID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthenticated("User inactive or deleted.")
		}
		return nil, fmt.Errorf("service/auth: %w", err)
	}
	return user, nil
}

// TokenFor returns the token of username without checking a password.
// Only the CLI uses it.
func (s *AuthService) TokenFor(ctx context.Context, username string) (*model.Token, error) {
	user, err := s.users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	return s.tokens.GetTokenByUserID(ctx, user.ID)
}

// DeleteUser removes a user. The reviewer profile, token and reviews go
// with it.
func (s *AuthService) DeleteUser(ctx context.Context, id int64) error {
	if err := s.users.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.logger.Info("user deleted", slog.Int64("userID", id))
	return nil
}

// validateUsername returns a client message, or "" if username is fine.
// Letters, digits and @ . + - _ are allowed.
func validateUsername(username string) string {
	if username == "" {
		return "This field may not be blank."
	}
	if utf8.RuneCountInString(username) > model.MaxUsernameLength {
		return fmt.Sprintf("Ensure this field has no more than %d characters.", model.MaxUsernameLength)
	}
	for _, r := range username {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune("@.+-_", r) {
			continue
		}
		return "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."
	}
	return ""
}
