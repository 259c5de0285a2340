package serializer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/company-reviews/internal/apperror"
	"github.com/sakif/company-reviews/internal/model"
)

// ReviewInput is everything a client may set on a new review. The server
// assigns reviewer and ip_address; client values for them are never read.
type ReviewInput struct {
	Rating  int    `json:"rating"  validate:"oneof=1 2 3 4 5"`
	Title   string `json:"title"   validate:"required,max=60"`
	Summary string `json:"summary" validate:"required,max=10000"`
	Company int64  `json:"company" validate:"min=1"`

	// raw text of the integer fields, quoted back in error messages
	rawRating  string
	rawCompany string
}

// InvalidCompany is the message for a company id that doesn't resolve to a
// row. The service uses it too, after looking the id up.
func InvalidCompany(raw string) string {
	return fmt.Sprintf("Invalid pk %q - object does not exist.", raw)
}

// RawCompany returns the company id as the client sent it.
func (in *ReviewInput) RawCompany() string {
	if in.rawCompany == "" {
		return strconv.FormatInt(in.Company, 10)
	}
	return in.rawCompany
}

// CompanyFinder resolves company ids while a review is decoded, so an unknown
// company is reported together with every other field error.
type CompanyFinder interface {
	GetCompanyByID(ctx context.Context, id int64) (*model.Company, error)
}

// DecodeReview reads and validates a review from r. On failure the error is
// an apperror.ErrValidation carrying every invalid field. Errors from
// companies other than not-found are returned unchanged.
func DecodeReview(w http.ResponseWriter, r *http.Request, companies CompanyFinder) (*ReviewInput, error) {
	vals, err := readValues(w, r)
	if err != nil {
		return nil, err
	}

	fe := apperror.FieldErrors{}
	in := &ReviewInput{}

	if raw, ok := vals.text("rating", fe); ok {
		in.rawRating = raw
		// Anything that isn't an integer can't be one of the choices; leave
		// Rating at zero and let oneof reject it with the raw text.
		in.Rating, _ = strconv.Atoi(raw)
	}
	if s, ok := vals.str("title", true, fe); ok {
		in.Title = s
	}
	if s, ok := vals.str("summary", true, fe); ok {
		in.Summary = s
	}
	if raw, ok := vals.text("company", fe); ok {
		in.rawCompany = raw
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			fe.Add("company", fmt.Sprintf("Incorrect type. Expected pk value, received %s.", jsonKind(vals["company"])))
		} else {
			in.Company = id
		}
	}

	translate(validate.Struct(in), fe, func(ve validator.FieldError) string {
		switch ve.Field() {
		case "rating":
			return fmt.Sprintf("%q is not a valid choice.", in.rawRating)
		case "company":
			return InvalidCompany(in.rawCompany)
		}
		return commonMessage(ve)
	})

	if !fe.Has("company") {
		if _, err := companies.GetCompanyByID(r.Context(), in.Company); err != nil {
			if !errors.Is(err, apperror.ErrNotFound) {
				return nil, err
			}
			fe.Add("company", InvalidCompany(in.RawCompany()))
		}
	}

	if err := fe.Err(); err != nil {
		return nil, err
	}
	return in, nil
}

// Review is the wire form of a model.Review.
type Review struct {
	ID             int64  `json:"id"`
	Rating         int    `json:"rating"`
	Title          string `json:"title"`
	Summary        string `json:"summary"`
	SubmissionDate string `json:"submission_date"`
	IPAddress      string `json:"ip_address"`
	Reviewer       int64  `json:"reviewer"`
	Company        int64  `json:"company"`
}

// NewReview renders m. Related rows are referenced by id and the submission
// date is an ISO calendar date.
func NewReview(m *model.Review) Review {
	return Review{
		ID:             m.ID,
		Rating:         m.Rating,
		Title:          m.Title,
		Summary:        m.Summary,
		SubmissionDate: m.SubmissionDate.Format(time.DateOnly),
		IPAddress:      m.IPAddress,
		Reviewer:       m.ReviewerID,
		Company:        m.CompanyID,
	}
}

// NewReviews renders a list, never returning nil so it encodes as [].
func NewReviews(ms []model.Review) []Review {
	out := make([]Review, 0, len(ms))
	for i := range ms {
		out = append(out, NewReview(&ms[i]))
	}
	return out
}

// Page is the envelope around a paginated list.
type Page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}
