// Package permission decides which reviews a user may see.
//
// There is one rule: a review is visible only to the user behind its
// reviewer. Scope hands that rule to the repository as a query filter, and
// Check applies the very same predicate to a single loaded review, so the two
// can't drift apart.
package permission

import (
	"strconv"

	"github.com/sakif/company-reviews/internal/apperror"
	"github.com/sakif/company-reviews/internal/model"
	"github.com/sakif/company-reviews/internal/repository"
)

// Scope returns the review filter for user.
func Scope(user *model.User) repository.ReviewScope {
	if user == nil {
		return repository.ReviewScope{}
	}
	return repository.ReviewScope{ReviewerUserID: user.ID}
}

// CanAccess reports whether user may read review.
func CanAccess(user *model.User, review *model.Review) bool {
	return Scope(user).Matches(review)
}

// Check returns nil when user may read review.
//
// WHY 404 AND NOT 403?
// A 403 confirms the review exists. Review ids are sequential, so a client
// answering "forbidden" for /reviews/7/ and "not found" for /reviews/8/ has
// learned how many reviews the whole site holds and which ids belong to
// others. Reporting a denial exactly like a missing row gives nothing away:
//
//	GET /reviews/2/   (carlos's review, asked for by adam)  → 404 Not found.
//	GET /reviews/99/  (no such review)                      → 404 Not found.
//
// The list endpoint never has to make this choice: Scope filters in SQL, so
// other users' reviews are simply absent from the page and from "count".
func Check(user *model.User, review *model.Review) error {
	if CanAccess(user, review) {
		return nil
	}
	id := "unknown"
	if review != nil {
		id = strconv.FormatInt(review.ID, 10)
	}
	return apperror.NotFound("review", id)
}
