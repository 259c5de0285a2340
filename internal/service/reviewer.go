package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sakif/company-reviews/internal/apperror"
	"github.com/sakif/company-reviews/internal/model"
	"github.com/sakif/company-reviews/internal/repository"
)

// ReviewerService edits reviewer profiles after registration.
type ReviewerService struct {
	users     repository.UserRepository
	reviewers repository.ReviewerRepository
	logger    *slog.Logger
}

func NewReviewerService(users repository.UserRepository, reviewers repository.ReviewerRepository, logger *slog.Logger) *ReviewerService {
	return &ReviewerService{users: users, reviewers: reviewers, logger: logger}
}

// SetDescription replaces the self-description of username's reviewer
// profile. A blank description clears it.
func (s *ReviewerService) SetDescription(ctx context.Context, username, description string) (*model.Reviewer, error) {
	description = strings.TrimSpace(description)
	if utf8.RuneCountInString(description) > model.MaxSelfDescriptionLength {
		return nil, apperror.ValidationFailed("self_description",
			fmt.Sprintf("Ensure this field has no more than %d characters.", model.MaxSelfDescriptionLength))
	}

	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	var desc *string
	if description != "" {
		desc = &description
	}
	if err := s.reviewers.UpdateSelfDescription(ctx, user.ID, desc); err != nil {
		return nil, err
	}

	reviewer, err := s.reviewers.GetReviewerByUserID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/reviewer: %w", err)
	}

	s.logger.Info("reviewer description updated",
		slog.Int64("reviewerID", reviewer.ID),
		slog.String("username", user.Username),
	)
	return reviewer, nil
}
