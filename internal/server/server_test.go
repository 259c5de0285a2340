package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/company-reviews/internal/auth"
	"github.com/sakif/company-reviews/internal/handler"
	"github.com/sakif/company-reviews/internal/model"
	sqliteRepo "github.com/sakif/company-reviews/internal/repository/sqlite"
	"github.com/sakif/company-reviews/internal/serializer"
	"github.com/sakif/company-reviews/internal/service"
)

type account struct {
	user       *model.User
	token      string
	reviewerID int64
}

// fixture is a server over a real database holding three users:
// adam owns review 1, carlos owns review 2, mary owns nothing.
type fixture struct {
	t       *testing.T
	handler http.Handler
	db      *sqliteRepo.DB
	reviews *service.ReviewService
	company *model.Company
	adam    account
	carlos  account
	mary    account
}

func newFixture(t *testing.T, pageSize int) *fixture {
	t.Helper()

	db, err := sqliteRepo.New(filepath.Join(t.TempDir(), "reviews.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	authSvc := service.NewAuthService(db, db, auth.NewPasswordServiceForTest(), logger)
	companySvc := service.NewCompanyService(db, logger)
	reviewSvc := service.NewReviewService(db, db, db, logger)

	register := func(name string) account {
		user, token, err := authSvc.Register(ctx, name, name+"-password", nil)
		require.NoError(t, err)
		reviewer, err := db.GetReviewerByUserID(ctx, user.ID)
		require.NoError(t, err)
		return account{user: user, token: token.Key, reviewerID: reviewer.ID}
	}

	f := &fixture{t: t, db: db, reviews: reviewSvc}
	f.adam = register("adam")
	f.carlos = register("carlos")
	f.mary = register("mary")

	f.company, err = companySvc.Create(ctx, "Acme")
	require.NoError(t, err)

	f.seedReview(f.adam, "Great place")  // id 1
	f.seedReview(f.carlos, "Not for me") // id 2

	srv, err := NewWithDB(Config{
		PageSize:           pageSize,
		BcryptCost:         4,
		CORSAllowedOrigins: []string{"*"},
	}, db, logger)
	require.NoError(t, err)
	f.handler = srv.Handler()

	return f
}

func (f *fixture) seedReview(a account, title string) *model.Review {
	f.t.Helper()
	in := &serializer.ReviewInput{Rating: 4, Title: title, Summary: "summary", Company: f.company.ID}
	review, err := f.reviews.Create(context.Background(), a.user, in, "10.0.0.1")
	require.NoError(f.t, err)
	return review
}

type request struct {
	method  string
	path    string
	token   string
	form    url.Values
	json    string
	headers map[string]string
	remote  string
}

func (f *fixture) do(req request) *httptest.ResponseRecorder {
	f.t.Helper()

	var body io.Reader
	switch {
	case req.form != nil:
		body = strings.NewReader(req.form.Encode())
	case req.json != "":
		body = strings.NewReader(req.json)
	}

	r := httptest.NewRequest(req.method, req.path, body)
	switch {
	case req.form != nil:
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	case req.json != "":
		r.Header.Set("Content-Type", "application/json")
	}
	if req.token != "" {
		r.Header.Set("Authorization", "Token "+req.token)
	}
	for k, v := range req.headers {
		r.Header.Set(k, v)
	}
	if req.remote != "" {
		r.RemoteAddr = req.remote
	}

	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, r)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), "body: %s", rr.Body.String())
	return v
}

func TestObtainToken(t *testing.T) {
	f := newFixture(t, 10)

	t.Run("form credentials", func(t *testing.T) {
		rr := f.do(request{
			method: http.MethodPost,
			path:   "/api-token-auth/",
			form:   url.Values{"username": {"adam"}, "password": {"adam-password"}},
		})
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		assert.JSONEq(t, `{"token": "`+f.adam.token+`"}`, rr.Body.String())
	})

	t.Run("json credentials", func(t *testing.T) {
		rr := f.do(request{
			method: http.MethodPost,
			path:   "/api-token-auth/",
			json:   `{"username": "carlos", "password": "carlos-password"}`,
		})
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, f.carlos.token, decode[map[string]string](t, rr)["token"])
	})

	t.Run("wrong password", func(t *testing.T) {
		rr := f.do(request{
			method: http.MethodPost,
			path:   "/api-token-auth/",
			form:   url.Values{"username": {"adam"}, "password": {"carlos-password"}},
		})
		require.Equal(t, http.StatusBadRequest, rr.Code)
		body := decode[handler.ErrorResponse](t, rr)
		assert.Equal(t, []string{"Unable to log in with provided credentials."}, body.Fields["non_field_errors"])
	})

	t.Run("missing fields", func(t *testing.T) {
		rr := f.do(request{method: http.MethodPost, path: "/api-token-auth/", json: `{}`})
		require.Equal(t, http.StatusBadRequest, rr.Code)
		body := decode[handler.ErrorResponse](t, rr)
		assert.Equal(t, []string{"This field is required."}, body.Fields["username"])
		assert.Equal(t, []string{"This field is required."}, body.Fields["password"])
	})

	t.Run("get is not allowed", func(t *testing.T) {
		rr := f.do(request{method: http.MethodGet, path: "/api-token-auth/"})
		assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
		assert.Equal(t, "POST", rr.Header().Get("Allow"))
	})
}

func TestListReviews_OwnOnly(t *testing.T) {
	f := newFixture(t, 10)

	t.Run("adam sees review 1 only", func(t *testing.T) {
		rr := f.do(request{method: http.MethodGet, path: "/reviews/", token: f.adam.token})
		require.Equal(t, http.StatusOK, rr.Code)

		page := decode[serializer.Page[serializer.Review]](t, rr)
		assert.Equal(t, 1, page.Count)
		require.Len(t, page.Results, 1)
		assert.Equal(t, int64(1), page.Results[0].ID)
		assert.Equal(t, "Great place", page.Results[0].Title)
		assert.Equal(t, f.adam.reviewerID, page.Results[0].Reviewer)
		assert.Nil(t, page.Next)
		assert.Nil(t, page.Previous)
	})

	t.Run("mary sees nothing", func(t *testing.T) {
		rr := f.do(request{method: http.MethodGet, path: "/reviews/", token: f.mary.token})
		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"count": 0, "next": null, "previous": null, "results": []}`, rr.Body.String())
	})

	t.Run("other users' volume doesn't leak", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			f.seedReview(f.carlos, "more")
		}
		rr := f.do(request{method: http.MethodGet, path: "/reviews/", token: f.adam.token})
		assert.Equal(t, 1, decode[serializer.Page[serializer.Review]](t, rr).Count)
	})
}

func TestListReviews_Pagination(t *testing.T) {
	f := newFixture(t, 2)
	for i := 0; i < 4; i++ {
		f.seedReview(f.adam, "extra")
	}
	// adam now owns 5 reviews: 3 pages of 2.

	list := func(query string) *httptest.ResponseRecorder {
		return f.do(request{method: http.MethodGet, path: "/reviews/" + query, token: f.adam.token})
	}

	rr := list("")
	require.Equal(t, http.StatusOK, rr.Code)
	first := decode[serializer.Page[serializer.Review]](t, rr)
	assert.Equal(t, 5, first.Count)
	assert.Len(t, first.Results, 2)
	require.NotNil(t, first.Next)
	assert.Equal(t, "http://example.com/reviews/?page=2", *first.Next)
	assert.Nil(t, first.Previous)

	rr = list("?page=2")
	require.Equal(t, http.StatusOK, rr.Code)
	second := decode[serializer.Page[serializer.Review]](t, rr)
	require.NotNil(t, second.Previous)
	assert.Equal(t, "http://example.com/reviews/", *second.Previous)
	require.NotNil(t, second.Next)
	assert.Equal(t, "http://example.com/reviews/?page=3", *second.Next)
	assert.Greater(t, second.Results[0].ID, first.Results[1].ID, "ordered by id")

	rr = list("?page=last")
	require.Equal(t, http.StatusOK, rr.Code)
	last := decode[serializer.Page[serializer.Review]](t, rr)
	assert.Len(t, last.Results, 1)
	assert.Nil(t, last.Next)

	for _, bad := range []string{"?page=4", "?page=0", "?page=abc"} {
		rr = list(bad)
		assert.Equal(t, http.StatusNotFound, rr.Code, bad)
		assert.Equal(t, "Invalid page.", decode[handler.ErrorResponse](t, rr).Message, bad)
	}
}

func TestRetrieveReview(t *testing.T) {
	f := newFixture(t, 10)

	rr := f.do(request{method: http.MethodGet, path: "/reviews/1/", token: f.adam.token})
	require.Equal(t, http.StatusOK, rr.Code)
	review := decode[serializer.Review](t, rr)
	assert.Equal(t, int64(1), review.ID)
	assert.Equal(t, f.company.ID, review.Company)

	for _, path := range []string{"/reviews/2/", "/reviews/999/", "/reviews/abc/"} {
		rr := f.do(request{method: http.MethodGet, path: path, token: f.adam.token})
		assert.Equal(t, http.StatusNotFound, rr.Code, path)
		assert.Equal(t, "not_found", decode[handler.ErrorResponse](t, rr).Error, path)
	}
}

func TestReviews_RequireAuthentication(t *testing.T) {
	f := newFixture(t, 10)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
	}{
		{"list", http.MethodGet, "/reviews/", ""},
		{"create", http.MethodPost, "/reviews/", ""},
		{"retrieve", http.MethodGet, "/reviews/1/", ""},
		{"unknown token", http.MethodGet, "/reviews/", "0000000000000000000000000000000000000000"},
		{"disallowed method still needs auth", http.MethodDelete, "/reviews/1/", ""},
		{"unknown subpath still needs auth", http.MethodGet, "/reviews/1/comments/", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := f.do(request{
				method: tt.method,
				path:   tt.path,
				token:  tt.token,
				form:   url.Values{"rating": {"5"}, "title": {"t"}, "summary": {"s"}, "company": {"1"}},
			})
			assert.Equal(t, http.StatusUnauthorized, rr.Code)
			assert.Equal(t, "Token", rr.Header().Get("WWW-Authenticate"))
			assert.Equal(t, "unauthenticated", decode[handler.ErrorResponse](t, rr).Error)
		})
	}
}

func TestCreateReview(t *testing.T) {
	f := newFixture(t, 10)

	payload := func() url.Values {
		return url.Values{
			"rating":     {"5"},
			"title":      {"Good culture"},
			"summary":    {"Friendly team"},
			"company":    {"1"},
			"reviewer":   {"2"},         // carlos's reviewer: must be ignored
			"ip_address": {"127.6.6.6"}, // must be ignored
		}
	}

	t.Run("remote address", func(t *testing.T) {
		rr := f.do(request{
			method: http.MethodPost,
			path:   "/reviews/",
			token:  f.adam.token,
			form:   payload(),
			remote: "200.0.0.1:52100",
		})
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

		review := decode[serializer.Review](t, rr)
		assert.Equal(t, "200.0.0.1", review.IPAddress)
		assert.Equal(t, f.adam.reviewerID, review.Reviewer)
		assert.Equal(t, 5, review.Rating)
		assert.Regexp(t, `^\d{4}-\d{2}-\d{2}$`, review.SubmissionDate)

		// Persisted, and visible to adam only.
		rr = f.do(request{method: http.MethodGet, path: "/reviews/" + itoa(review.ID) + "/", token: f.adam.token})
		assert.Equal(t, http.StatusOK, rr.Code)
		rr = f.do(request{method: http.MethodGet, path: "/reviews/" + itoa(review.ID) + "/", token: f.carlos.token})
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("forwarded for", func(t *testing.T) {
		rr := f.do(request{
			method:  http.MethodPost,
			path:    "/reviews/",
			token:   f.adam.token,
			form:    payload(),
			remote:  "200.0.0.1:52100",
			headers: map[string]string{"X-Forwarded-For": "200.0.0.2"},
		})
		require.Equal(t, http.StatusCreated, rr.Code)
		assert.Equal(t, "200.0.0.2", decode[serializer.Review](t, rr).IPAddress)
	})

	t.Run("json body", func(t *testing.T) {
		rr := f.do(request{
			method: http.MethodPost,
			path:   "/reviews/",
			token:  f.mary.token,
			json:   `{"rating": 3, "title": "OK", "summary": "Average", "company": 1, "reviewer": 1}`,
		})
		require.Equal(t, http.StatusCreated, rr.Code)
		assert.Equal(t, f.mary.reviewerID, decode[serializer.Review](t, rr).Reviewer)
	})

	t.Run("invalid fields", func(t *testing.T) {
		rr := f.do(request{
			method: http.MethodPost,
			path:   "/reviews/",
			token:  f.adam.token,
			form:   url.Values{"rating": {"9"}, "title": {" "}, "company": {"1"}},
		})
		require.Equal(t, http.StatusBadRequest, rr.Code)
		body := decode[handler.ErrorResponse](t, rr)
		assert.Equal(t, "validation_error", body.Error)
		assert.Equal(t, []string{`"9" is not a valid choice.`}, body.Fields["rating"])
		assert.Equal(t, []string{"This field may not be blank."}, body.Fields["title"])
		assert.Equal(t, []string{"This field is required."}, body.Fields["summary"])
	})

	t.Run("unknown company", func(t *testing.T) {
		form := payload()
		form.Set("company", "42")
		rr := f.do(request{method: http.MethodPost, path: "/reviews/", token: f.adam.token, form: form})
		require.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, []string{`Invalid pk "42" - object does not exist.`},
			decode[handler.ErrorResponse](t, rr).Fields["company"])
	})

	t.Run("unknown company alongside other errors", func(t *testing.T) {
		rr := f.do(request{
			method: http.MethodPost,
			path:   "/reviews/",
			token:  f.adam.token,
			form:   url.Values{"rating": {"6"}, "title": {""}, "company": {"99"}},
		})
		require.Equal(t, http.StatusBadRequest, rr.Code)
		fields := decode[handler.ErrorResponse](t, rr).Fields
		assert.Len(t, fields, 4)
		assert.Equal(t, []string{`Invalid pk "99" - object does not exist.`}, fields["company"])
	})
}

func TestReviews_MethodNotAllowed(t *testing.T) {
	f := newFixture(t, 10)

	tests := []struct {
		method    string
		path      string
		wantAllow string
	}{
		{http.MethodPut, "/reviews/", "GET, POST"},
		{http.MethodDelete, "/reviews/", "GET, POST"},
		{http.MethodPatch, "/reviews/", "GET, POST"},
		{http.MethodPut, "/reviews/1/", "GET"},
		{http.MethodDelete, "/reviews/1/", "GET"},
		{http.MethodPost, "/reviews/1/", "GET"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rr := f.do(request{method: tt.method, path: tt.path, token: f.adam.token})
			assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
			assert.Equal(t, tt.wantAllow, rr.Header().Get("Allow"))
			assert.Equal(t, "method_not_allowed", decode[handler.ErrorResponse](t, rr).Error)
		})
	}

	// Nothing was deleted.
	rr := f.do(request{method: http.MethodGet, path: "/reviews/1/", token: f.adam.token})
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestHealthAndPlumbing(t *testing.T) {
	f := newFixture(t, 10)

	rr := f.do(request{method: http.MethodGet, path: "/healthz"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status": "ok"}`, rr.Body.String())
	assert.NotEmpty(t, rr.Header().Get("X-Request-Id"))

	rr = f.do(request{method: http.MethodGet, path: "/no/such/route"})
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "not_found", decode[handler.ErrorResponse](t, rr).Error)

	rr = f.do(request{
		method: http.MethodOptions,
		path:   "/reviews/",
		headers: map[string]string{
			"Origin":                        "https://app.example",
			"Access-Control-Request-Method": http.MethodPost,
		},
	})
	assert.NotEqual(t, http.StatusUnauthorized, rr.Code, "preflight is answered before auth")
	assert.NotEmpty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
