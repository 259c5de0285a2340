package model

import "time"

// Valid ratings are the closed range [MinRating, MaxRating].
const (
	MinRating = 1
	MaxRating = 5
)

// Company is the organisation being reviewed. It has no owner.
type Company struct {
	ID   int64  `json:"id"   db:"id"`
	Name string `json:"name" db:"name"`
}

func (c Company) String() string {
	return c.Name
}

// Review is one reviewer's rating of one company.
//
// ReviewerID, SubmissionDate and IPAddress are assigned by the server when the
// review is created and never change afterwards.
//
// ReviewerUserID is not a column of the reviews table: repositories fill it
// from the reviewers join so ownership can be checked without a second query.
// ReviewerUsername and CompanyName come from the same joins and are only
// used for display.
type Review struct {
	ID             int64     `db:"id"`
	ReviewerID     int64     `db:"reviewer_id"`
	CompanyID      int64     `db:"company_id"`
	Rating         int       `db:"rating"`
	Title          string    `db:"title"`
	Summary        string    `db:"summary"`
	SubmissionDate time.Time `db:"submission_date"`
	IPAddress      string    `db:"ip_address"`

	ReviewerUserID   int64  `db:"-"`
	ReviewerUsername string `db:"-"`
	CompanyName      string `db:"-"`
}

// String reads "reviewer -> company", e.g. "adam -> Acme".
func (r Review) String() string {
	return r.ReviewerUsername + " -> " + r.CompanyName
}
