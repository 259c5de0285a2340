package handler

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/company-reviews/internal/apperror"
	"github.com/sakif/company-reviews/internal/auth"
	"github.com/sakif/company-reviews/internal/clientip"
	"github.com/sakif/company-reviews/internal/model"
	"github.com/sakif/company-reviews/internal/serializer"
	"github.com/sakif/company-reviews/internal/service"
)

// pageParam is the query parameter selecting a list page.
const pageParam = "page"

// ReviewHandler serves the reviews resource. Every route sits behind
// auth.RequireAuth, so a user is always in the context.
type ReviewHandler struct {
	reviews  *service.ReviewService
	pageSize int
	logger   *slog.Logger
}

func NewReviewHandler(reviews *service.ReviewService, pageSize int, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{reviews: reviews, pageSize: pageSize, logger: logger}
}

func currentUser(r *http.Request) (*model.User, error) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		return nil, apperror.Unauthenticated("Authentication credentials were not provided.")
	}
	return user, nil
}

// HandleList returns one page of the caller's reviews.
//
// HTTP: GET /reviews/?page=2
func (h *ReviewHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	page, err := h.reviews.List(r.Context(), user, parsePage(r.URL.Query().Get(pageParam)), h.pageSize)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	resp := serializer.Page[serializer.Review]{
		Count:   page.Count,
		Results: serializer.NewReviews(page.Reviews),
	}
	if page.HasNext() {
		resp.Next = pageURL(r, page.Page+1)
	}
	if page.HasPrevious() {
		resp.Previous = pageURL(r, page.Page-1)
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleRetrieve returns a single review owned by the caller.
//
// HTTP: GET /reviews/{id}/
func (h *ReviewHandler) HandleRetrieve(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		WriteError(w, r, apperror.NotFound("review", raw))
		return
	}

	review, err := h.reviews.Get(r.Context(), user, id)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, serializer.NewReview(review))
}

// HandleCreate stores a review written by the caller. The reviewer and the
// client address come from the request, never from the body.
//
// HTTP: POST /reviews/
// BODY: rating=5&title=...&summary=...&company=1 (form or JSON)
func (h *ReviewHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	in, err := serializer.DecodeReview(w, r, h.reviews)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	review, err := h.reviews.Create(r.Context(), user, in, clientip.FromRequest(r))
	if err != nil {
		WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, serializer.NewReview(review))
}

// parsePage turns the page parameter into a page number. Garbage becomes 0,
// which the service rejects as an invalid page.
func parsePage(raw string) int {
	switch raw {
	case "":
		return 1
	case "last":
		return service.LastPage
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0
	}
	return n
}

// pageURL is the absolute URL of the same request with the page replaced.
// Page 1 drops the parameter altogether.
func pageURL(r *http.Request, page int) *string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}

	q := r.URL.Query()
	if page == 1 {
		q.Del(pageParam)
	} else {
		q.Set(pageParam, strconv.Itoa(page))
	}

	u := url.URL{
		Scheme:   scheme,
		Host:     r.Host,
		Path:     r.URL.Path,
		RawQuery: q.Encode(),
	}
	s := u.String()
	return &s
}
