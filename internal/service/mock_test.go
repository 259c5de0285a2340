package service

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/sakif/company-reviews/internal/apperror"
	"github.com/sakif/company-reviews/internal/auth"
	"github.com/sakif/company-reviews/internal/model"
	"github.com/sakif/company-reviews/internal/repository"
)

// mockStore is an in-memory stand-in for the sqlite package. One value
// implements every repository interface, like *sqlite.DB does.
type mockStore struct {
	users     map[int64]*model.User
	tokens    map[string]*model.Token
	reviewers map[int64]*model.Reviewer // by user id
	companies map[int64]*model.Company
	reviews   map[int64]*model.Review
	nextID    int64

	// failWith, when set, is returned by every write.
	failWith error
}

var (
	_ repository.UserRepository     = (*mockStore)(nil)
	_ repository.TokenRepository    = (*mockStore)(nil)
	_ repository.ReviewerRepository = (*mockStore)(nil)
	_ repository.CompanyRepository  = (*mockStore)(nil)
	_ repository.ReviewRepository   = (*mockStore)(nil)
)

func newMockStore() *mockStore {
	return &mockStore{
		users:     make(map[int64]*model.User),
		tokens:    make(map[string]*model.Token),
		reviewers: make(map[int64]*model.Reviewer),
		companies: make(map[int64]*model.Company),
		reviews:   make(map[int64]*model.Review),
	}
}

func (m *mockStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *mockStore) CreateUser(_ context.Context, user *model.User, reviewer *model.Reviewer, token *model.Token) error {
	if m.failWith != nil {
		return m.failWith
	}
	for _, u := range m.users {
		if u.Username == user.Username {
			return apperror.Conflict("user", user.Username)
		}
	}
	user.ID = m.id()
	user.DateJoined = time.Now().UTC()
	reviewer.ID = m.id()
	reviewer.UserID = user.ID
	token.UserID = user.ID
	token.CreatedAt = user.DateJoined

	u, r, tk := *user, *reviewer, *token
	m.users[u.ID] = &u
	m.reviewers[u.ID] = &r
	m.tokens[tk.Key] = &tk
	return nil
}

func (m *mockStore) GetUserByID(_ context.Context, id int64) (*model.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, apperror.NotFound("user", "x")
	}
	c := *u
	return &c, nil
}

func (m *mockStore) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			c := *u
			return &c, nil
		}
	}
	return nil, apperror.NotFound("user", username)
}

func (m *mockStore) DeleteUser(_ context.Context, id int64) error {
	if _, ok := m.users[id]; !ok {
		return apperror.NotFound("user", "x")
	}
	delete(m.users, id)
	delete(m.reviewers, id)
	for k, t := range m.tokens {
		if t.UserID == id {
			delete(m.tokens, k)
		}
	}
	return nil
}

func (m *mockStore) GetTokenByKey(_ context.Context, key string) (*model.Token, error) {
	t, ok := m.tokens[key]
	if !ok {
		return nil, &apperror.AppError{Err: apperror.ErrNotFound, Message: "token not found"}
	}
	c := *t
	return &c, nil
}

func (m *mockStore) GetTokenByUserID(_ context.Context, userID int64) (*model.Token, error) {
	for _, t := range m.tokens {
		if t.UserID == userID {
			c := *t
			return &c, nil
		}
	}
	return nil, apperror.NotFound("token for user", "x")
}

func (m *mockStore) GetReviewerByUserID(_ context.Context, userID int64) (*model.Reviewer, error) {
	r, ok := m.reviewers[userID]
	if !ok {
		return nil, apperror.NotFound("reviewer for user", "x")
	}
	c := *r
	if u, ok := m.users[userID]; ok {
		c.Username = u.Username
	}
	return &c, nil
}

func (m *mockStore) UpdateSelfDescription(_ context.Context, userID int64, description *string) error {
	if m.failWith != nil {
		return m.failWith
	}
	r, ok := m.reviewers[userID]
	if !ok {
		return apperror.NotFound("reviewer for user", "x")
	}
	if description == nil {
		r.SelfDescription = nil
	} else {
		d := *description
		r.SelfDescription = &d
	}
	return nil
}

func (m *mockStore) CreateCompany(_ context.Context, company *model.Company) error {
	if m.failWith != nil {
		return m.failWith
	}
	company.ID = m.id()
	c := *company
	m.companies[c.ID] = &c
	return nil
}

func (m *mockStore) GetCompanyByID(_ context.Context, id int64) (*model.Company, error) {
	c, ok := m.companies[id]
	if !ok {
		return nil, apperror.NotFound("company", "x")
	}
	cc := *c
	return &cc, nil
}

func (m *mockStore) ListCompanies(_ context.Context) ([]model.Company, error) {
	out := make([]model.Company, 0, len(m.companies))
	for _, c := range m.companies {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockStore) DeleteCompany(_ context.Context, id int64) error {
	if _, ok := m.companies[id]; !ok {
		return apperror.NotFound("company", "x")
	}
	delete(m.companies, id)
	return nil
}

func (m *mockStore) CreateReview(_ context.Context, review *model.Review) error {
	if m.failWith != nil {
		return m.failWith
	}
	review.ID = m.id()
	for _, r := range m.reviewers {
		if r.ID == review.ReviewerID {
			review.ReviewerUserID = r.UserID
		}
	}
	c := *review
	m.reviews[c.ID] = &c
	return nil
}

func (m *mockStore) GetReviewByID(_ context.Context, scope repository.ReviewScope, id int64) (*model.Review, error) {
	r, ok := m.reviews[id]
	if !ok || !scope.Matches(r) {
		return nil, apperror.NotFound("review", "x")
	}
	c := *r
	return &c, nil
}

func (m *mockStore) scoped(scope repository.ReviewScope) []model.Review {
	out := make([]model.Review, 0)
	for _, r := range m.reviews {
		if scope.Matches(r) {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *mockStore) ListReviews(_ context.Context, scope repository.ReviewScope, opts repository.ListOptions) ([]model.Review, error) {
	all := m.scoped(scope)
	if opts.Offset >= len(all) {
		return []model.Review{}, nil
	}
	all = all[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(all) {
		all = all[:opts.Limit]
	}
	return all, nil
}

func (m *mockStore) CountReviews(_ context.Context, scope repository.ReviewScope) (int, error) {
	return len(m.scoped(scope)), nil
}

func (m *mockStore) ListAllReviews(_ context.Context, filter repository.AllReviewsFilter) ([]model.Review, error) {
	out := make([]model.Review, 0)
	for _, r := range m.reviews {
		c := *r
		if u, ok := m.users[c.ReviewerUserID]; ok {
			c.ReviewerUsername = u.Username
		}
		if co, ok := m.companies[c.CompanyID]; ok {
			c.CompanyName = co.Name
		}
		if filter.ReviewerUsername != "" && c.ReviewerUsername != filter.ReviewerUsername {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockStore) DeleteReview(_ context.Context, id int64) error {
	if m.failWith != nil {
		return m.failWith
	}
	if _, ok := m.reviews[id]; !ok {
		return apperror.NotFound("review", "x")
	}
	delete(m.reviews, id)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServices(t *testing.T) (*AuthService, *ReviewService, *CompanyService, *mockStore) {
	t.Helper()
	store := newMockStore()
	logger := discardLogger()
	return NewAuthService(store, store, auth.NewPasswordServiceForTest(), logger),
		NewReviewService(store, store, store, logger),
		NewCompanyService(store, logger),
		store
}

func newTestReviewerService(store *mockStore) *ReviewerService {
	return NewReviewerService(store, store, discardLogger())
}
