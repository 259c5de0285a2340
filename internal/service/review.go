package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/company-reviews/internal/apperror"
	"github.com/sakif/company-reviews/internal/model"
	"github.com/sakif/company-reviews/internal/permission"
	"github.com/sakif/company-reviews/internal/repository"
	"github.com/sakif/company-reviews/internal/serializer"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// LastPage can be passed to List in place of a page number.
const LastPage = -1

// ReviewPage is one page of a user's reviews.
type ReviewPage struct {
	Reviews  []model.Review
	Count    int
	Page     int
	NumPages int
}

func (p *ReviewPage) HasNext() bool     { return p.Page < p.NumPages }
func (p *ReviewPage) HasPrevious() bool { return p.Page > 1 }

// ReviewService reads and creates reviews on behalf of an authenticated user.
// Every read goes through permission.Scope, so a user only ever sees reviews
// written by their own reviewer profile.
type ReviewService struct {
	reviews   repository.ReviewRepository
	reviewers repository.ReviewerRepository
	companies repository.CompanyRepository
	logger    *slog.Logger

	now func() time.Time
}

func NewReviewService(
	reviews repository.ReviewRepository,
	reviewers repository.ReviewerRepository,
	companies repository.CompanyRepository,
	logger *slog.Logger,
) *ReviewService {
	return &ReviewService{
		reviews:   reviews,
		reviewers: reviewers,
		companies: companies,
		logger:    logger,
		now:       time.Now,
	}
}

func invalidPage() error {
	return &apperror.AppError{Err: apperror.ErrNotFound, Message: "Invalid page."}
}

// List returns page number page of user's reviews, size per page. Page 1 is
// always valid, even when there are no reviews; any other page past the end
// is not found.
func (s *ReviewService) List(ctx context.Context, user *model.User, page, size int) (*ReviewPage, error) {
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}

	scope := permission.Scope(user)

	count, err := s.reviews.CountReviews(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("service/review: %w", err)
	}

	numPages := 1
	if count > 0 {
		numPages = (count + size - 1) / size
	}
	if page == LastPage {
		page = numPages
	}
	if page < 1 || page > numPages {
		return nil, invalidPage()
	}

	reviews, err := s.reviews.ListReviews(ctx, scope, repository.ListOptions{
		Limit:  size,
		Offset: (page - 1) * size,
	})
	if err != nil {
		return nil, fmt.Errorf("service/review: %w", err)
	}

	return &ReviewPage{
		Reviews:  reviews,
		Count:    count,
		Page:     page,
		NumPages: numPages,
	}, nil
}

// Get returns one of user's reviews. Someone else's review is not found.
func (s *ReviewService) Get(ctx context.Context, user *model.User, id int64) (*model.Review, error) {
	review, err := s.reviews.GetReviewByID(ctx, permission.Scope(user), id)
	if err != nil {
		return nil, err
	}
	if err := permission.Check(user, review); err != nil {
		return nil, err
	}
	return review, nil
}

// GetCompanyByID looks up the company a new review points at. It satisfies
// serializer.CompanyFinder.
func (s *ReviewService) GetCompanyByID(ctx context.Context, id int64) (*model.Company, error) {
	return s.companies.GetCompanyByID(ctx, id)
}

// Create stores a review written by user. The reviewer is the user's own
// profile, the date is today and ipAddress is whatever the transport
// resolved; none of them come from the input.
func (s *ReviewService) Create(ctx context.Context, user *model.User, in *serializer.ReviewInput, ipAddress string) (*model.Review, error) {
	if user == nil {
		return nil, apperror.Unauthenticated("Authentication credentials were not provided.")
	}

	reviewer, err := s.reviewers.GetReviewerByUserID(ctx, user.ID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.ValidationFailed("reviewer", "This user has no reviewer profile.")
		}
		return nil, fmt.Errorf("service/review: %w", err)
	}

	if _, err := s.companies.GetCompanyByID(ctx, in.Company); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.ValidationFailed("company", serializer.InvalidCompany(in.RawCompany()))
		}
		return nil, fmt.Errorf("service/review: %w", err)
	}

	review := &model.Review{
		ReviewerID:     reviewer.ID,
		CompanyID:      in.Company,
		Rating:         in.Rating,
		Title:          in.Title,
		Summary:        in.Summary,
		SubmissionDate: s.now(),
		IPAddress:      ipAddress,
	}

	if err := s.reviews.CreateReview(ctx, review); err != nil {
		s.logger.Error("failed to create review",
			slog.Int64("userID", user.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("service/review: %w", err)
	}

	s.logger.Info("review created",
		slog.Int64("id", review.ID),
		slog.Int64("reviewerID", review.ReviewerID),
		slog.Int64("companyID", review.CompanyID),
	)

	return review, nil
}

// ListAll returns every review, or only those written by username when it is
// not empty. Ownership is not applied: this is for operators, not API users.
func (s *ReviewService) ListAll(ctx context.Context, username string) ([]model.Review, error) {
	reviews, err := s.reviews.ListAllReviews(ctx, repository.AllReviewsFilter{ReviewerUsername: username})
	if err != nil {
		return nil, fmt.Errorf("service/review: %w", err)
	}
	return reviews, nil
}

// Delete removes any review by id, whoever wrote it.
func (s *ReviewService) Delete(ctx context.Context, id int64) error {
	if err := s.reviews.DeleteReview(ctx, id); err != nil {
		return err
	}
	s.logger.Info("review deleted", slog.Int64("id", id))
	return nil
}
