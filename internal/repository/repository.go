// Package repository declares the storage interfaces the service layer
// depends on. internal/repository/sqlite is the only implementation; tests use
// in-memory mocks.
package repository

import (
	"context"

	"github.com/sakif/company-reviews/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// ReviewScope restricts which reviews a query may see. It is the ownership
// rule in data form: repositories translate it to a WHERE clause, and Matches
// applies the identical rule to a single loaded review.
//
// THE OWNER IS A USER, NOT A REVIEWER:
// reviews point at reviewers, reviewers point at users, and requests carry a
// user. The scope is therefore keyed on the reviewer's user id, which the
// repositories join in (Review.ReviewerUserID).
//
// The zero value matches nothing, so a missing user can never widen a query
// to "every review".
type ReviewScope struct {
	ReviewerUserID int64
}

// Matches reports whether review falls inside the scope.
func (s ReviewScope) Matches(review *model.Review) bool {
	return review != nil && s.ReviewerUserID != 0 && review.ReviewerUserID == s.ReviewerUserID
}

type UserRepository interface {
	// CreateUser stores user, its reviewer profile and its token atomically.
	// IDs and timestamps are written back into the arguments.
	CreateUser(ctx context.Context, user *model.User, reviewer *model.Reviewer, token *model.Token) error
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	DeleteUser(ctx context.Context, id int64) error
}

type TokenRepository interface {
	GetTokenByKey(ctx context.Context, key string) (*model.Token, error)
	GetTokenByUserID(ctx context.Context, userID int64) (*model.Token, error)
}

type ReviewerRepository interface {
	GetReviewerByUserID(ctx context.Context, userID int64) (*model.Reviewer, error)
	// UpdateSelfDescription sets the description of userID's reviewer
	// profile. nil stores NULL.
	UpdateSelfDescription(ctx context.Context, userID int64, description *string) error
}

type CompanyRepository interface {
	CreateCompany(ctx context.Context, company *model.Company) error
	GetCompanyByID(ctx context.Context, id int64) (*model.Company, error)
	ListCompanies(ctx context.Context) ([]model.Company, error)
	DeleteCompany(ctx context.Context, id int64) error
}

type ReviewRepository interface {
	CreateReview(ctx context.Context, review *model.Review) error
	GetReviewByID(ctx context.Context, scope ReviewScope, id int64) (*model.Review, error)
	ListReviews(ctx context.Context, scope ReviewScope, opts ListOptions) ([]model.Review, error)
	CountReviews(ctx context.Context, scope ReviewScope) (int, error)

	// ListAllReviews and DeleteReview ignore ownership. They exist for the
	// management CLI and must never be reachable from the HTTP API.
	ListAllReviews(ctx context.Context, filter AllReviewsFilter) ([]model.Review, error)
	DeleteReview(ctx context.Context, id int64) error
}

// AllReviewsFilter narrows ListAllReviews. The zero value matches every
// review.
type AllReviewsFilter struct {
	ReviewerUsername string
}
