package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/sakif/company-reviews/internal/apperror"
	"github.com/sakif/company-reviews/internal/model"
	"github.com/sakif/company-reviews/internal/repository"
)

var _ repository.ReviewRepository = (*DB)(nil)

// submission_date is stored as a plain calendar date.
const dateLayout = time.DateOnly

// OWNERSHIP COMES FROM THE JOIN:
// reviews only store reviewer_id, but ownership is decided per user. The
// reviewers join brings in rv.user_id so a single query can both filter by
// owner and hand the owner back for permission.Check. The users and
// companies joins are for display only (Review.String).
const reviewColumns = `
	r.id, r.reviewer_id, r.company_id, r.rating, r.title, r.summary,
	r.submission_date, r.ip_address, rv.user_id, u.username, c.name`

const reviewFrom = `
	FROM reviews r
	JOIN reviewers rv ON rv.id = r.reviewer_id
	JOIN users u      ON u.id = rv.user_id
	JOIN companies c  ON c.id = r.company_id`

// scopeClause is the SQL form of repository.ReviewScope.Matches.
const scopeClause = `rv.user_id = ?`

// CreateReview inserts review. SubmissionDate must already be set by the
// caller; only its calendar date is kept.
func (db *DB) CreateReview(ctx context.Context, review *model.Review) error {
	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO reviews
			(reviewer_id, company_id, rating, title, summary, submission_date, ip_address)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		review.ReviewerID,
		review.CompanyID,
		review.Rating,
		review.Title,
		review.Summary,
		review.SubmissionDate.Format(dateLayout),
		review.IPAddress,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating review: %w", err)
	}

	if review.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("sqlite: reading review id: %w", err)
	}

	// Normalise to what a later read returns.
	review.SubmissionDate, err = time.Parse(dateLayout, review.SubmissionDate.Format(dateLayout))
	if err != nil {
		return fmt.Errorf("sqlite: normalising submission date: %w", err)
	}

	if err := db.conn.QueryRowContext(ctx,
		`SELECT rv.user_id, u.username, c.name
		 FROM reviewers rv
		 JOIN users u ON u.id = rv.user_id
		 JOIN companies c ON c.id = ?
		 WHERE rv.id = ?`,
		review.CompanyID,
		review.ReviewerID,
	).Scan(&review.ReviewerUserID, &review.ReviewerUsername, &review.CompanyName); err != nil {
		return fmt.Errorf("sqlite: loading reviewer %d: %w", review.ReviewerID, err)
	}

	return nil
}

// GetReviewByID retrieves one review inside scope. A review that exists but
// falls outside the scope is reported exactly like a missing one.
func (db *DB) GetReviewByID(ctx context.Context, scope repository.ReviewScope, id int64) (*model.Review, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+reviewColumns+reviewFrom+`
		 WHERE r.id = ? AND `+scopeClause,
		id,
		scope.ReviewerUserID,
	)

	review, err := scanReview(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("review", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("sqlite: getting review %d: %w", id, err)
	}

	return review, nil
}

// ListReviews returns one page of the reviews inside scope, oldest id first.
func (db *DB) ListReviews(ctx context.Context, scope repository.ReviewScope, opts repository.ListOptions) ([]model.Review, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+reviewColumns+reviewFrom+`
		 WHERE `+scopeClause+`
		 ORDER BY r.id ASC
		 LIMIT ? OFFSET ?`,
		scope.ReviewerUserID,
		limit,
		offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing reviews: %w", err)
	}
	defer rows.Close()

	reviews := make([]model.Review, 0, limit)
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning review row: %w", err)
		}
		reviews = append(reviews, *review)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating reviews: %w", err)
	}

	return reviews, nil
}

// CountReviews returns how many reviews are inside scope.
func (db *DB) CountReviews(ctx context.Context, scope repository.ReviewScope) (int, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*)`+reviewFrom+` WHERE `+scopeClause,
		scope.ReviewerUserID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting reviews: %w", err)
	}
	return n, nil
}

// ListAllReviews returns every review, or only those by one reviewer, oldest
// id first. It bypasses ReviewScope.
func (db *DB) ListAllReviews(ctx context.Context, filter repository.AllReviewsFilter) ([]model.Review, error) {
	query := `SELECT ` + reviewColumns + reviewFrom
	var args []any
	if filter.ReviewerUsername != "" {
		query += ` WHERE u.username = ?`
		args = append(args, filter.ReviewerUsername)
	}
	query += ` ORDER BY r.id ASC`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing all reviews: %w", err)
	}
	defer rows.Close()

	reviews := []model.Review{}
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning review row: %w", err)
		}
		reviews = append(reviews, *review)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating reviews: %w", err)
	}

	return reviews, nil
}

// DeleteReview removes a review regardless of who wrote it.
func (db *DB) DeleteReview(ctx context.Context, id int64) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM reviews WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting review %d: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("review", strconv.FormatInt(id, 10))
	}

	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanReview(s rowScanner) (*model.Review, error) {
	var (
		r    model.Review
		date string
	)
	if err := s.Scan(
		&r.ID, &r.ReviewerID, &r.CompanyID, &r.Rating, &r.Title, &r.Summary,
		&date, &r.IPAddress, &r.ReviewerUserID, &r.ReviewerUsername, &r.CompanyName,
	); err != nil {
		return nil, err
	}

	parsed, err := time.Parse(dateLayout, date)
	if err != nil {
		return nil, fmt.Errorf("parsing submission_date %q: %w", date, err)
	}
	r.SubmissionDate = parsed

	return &r, nil
}
