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

// compile-time checks that *DB implements the account repositories
var (
	_ repository.UserRepository     = (*DB)(nil)
	_ repository.TokenRepository    = (*DB)(nil)
	_ repository.ReviewerRepository = (*DB)(nil)
)

// CreateUser inserts the user, its reviewer profile and its token in one
// transaction. Either all three rows exist afterwards or none do.
//
// Returns apperror.ErrConflict if the username is taken.
func (db *DB) CreateUser(ctx context.Context, user *model.User, reviewer *model.Reviewer, token *model.Token) (err error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning user transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var taken int
	if err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE username = ?`, user.Username,
	).Scan(&taken); err != nil {
		return fmt.Errorf("sqlite: checking username %q: %w", user.Username, err)
	}
	if taken > 0 {
		err = apperror.Conflict("user", user.Username)
		return err
	}

	now := time.Now().UTC()
	user.DateJoined = now

	res, err := tx.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, date_joined) VALUES (?, ?, ?)`,
		user.Username,
		user.PasswordHash,
		user.DateJoined,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting user %q: %w", user.Username, err)
	}
	if user.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("sqlite: reading user id: %w", err)
	}

	reviewer.UserID = user.ID
	reviewer.Username = user.Username
	res, err = tx.ExecContext(ctx,
		`INSERT INTO reviewers (user_id, self_description) VALUES (?, ?)`,
		reviewer.UserID,
		reviewer.SelfDescription,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting reviewer for user %d: %w", user.ID, err)
	}
	if reviewer.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("sqlite: reading reviewer id: %w", err)
	}

	token.UserID = user.ID
	token.CreatedAt = now
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO auth_tokens (key, user_id, created) VALUES (?, ?, ?)`,
		token.Key,
		token.UserID,
		token.CreatedAt,
	); err != nil {
		return fmt.Errorf("sqlite: inserting token for user %d: %w", user.ID, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing user %q: %w", user.Username, err)
	}
	return nil
}

// GetUserByID retrieves a user by id.
// Returns apperror.ErrNotFound if no user exists with that id.
func (db *DB) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	var u model.User

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, username, password_hash, date_joined FROM users WHERE id = ?`,
		id,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.DateJoined)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("sqlite: getting user %d: %w", id, err)
	}

	return &u, nil
}

// GetUserByUsername retrieves a user by username (case-sensitive).
func (db *DB) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	var u model.User

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, username, password_hash, date_joined FROM users WHERE username = ?`,
		username,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.DateJoined)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", username)
		}
		return nil, fmt.Errorf("sqlite: getting user %q: %w", username, err)
	}

	return &u, nil
}

// DeleteUser removes a user. The token, the reviewer profile and the
// reviewer's reviews go with it through ON DELETE CASCADE.
func (db *DB) DeleteUser(ctx context.Context, id int64) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting user %d: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("user", strconv.FormatInt(id, 10))
	}

	return nil
}

// GetTokenByKey looks up a token by its key.
func (db *DB) GetTokenByKey(ctx context.Context, key string) (*model.Token, error) {
	var t model.Token

	err := db.conn.QueryRowContext(ctx,
		`SELECT key, user_id, created FROM auth_tokens WHERE key = ?`,
		key,
	).Scan(&t.Key, &t.UserID, &t.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			// Never echo the key back: it is a credential.
			return nil, &apperror.AppError{Err: apperror.ErrNotFound, Message: "token not found"}
		}
		return nil, fmt.Errorf("sqlite: getting token: %w", err)
	}

	return &t, nil
}

// GetTokenByUserID returns the single token belonging to userID.
func (db *DB) GetTokenByUserID(ctx context.Context, userID int64) (*model.Token, error) {
	var t model.Token

	err := db.conn.QueryRowContext(ctx,
		`SELECT key, user_id, created FROM auth_tokens WHERE user_id = ?`,
		userID,
	).Scan(&t.Key, &t.UserID, &t.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("token for user", strconv.FormatInt(userID, 10))
		}
		return nil, fmt.Errorf("sqlite: getting token for user %d: %w", userID, err)
	}

	return &t, nil
}

// GetReviewerByUserID returns the reviewer profile of userID.
func (db *DB) GetReviewerByUserID(ctx context.Context, userID int64) (*model.Reviewer, error) {
	var (
		r    model.Reviewer
		desc sql.NullString
	)

	err := db.conn.QueryRowContext(ctx,
		`SELECT rv.id, rv.user_id, rv.self_description, u.username
		 FROM reviewers rv
		 JOIN users u ON u.id = rv.user_id
		 WHERE rv.user_id = ?`,
		userID,
	).Scan(&r.ID, &r.UserID, &desc, &r.Username)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("reviewer for user", strconv.FormatInt(userID, 10))
		}
		return nil, fmt.Errorf("sqlite: getting reviewer for user %d: %w", userID, err)
	}
	if desc.Valid {
		r.SelfDescription = &desc.String
	}

	return &r, nil
}

// UpdateSelfDescription replaces the self-description of userID's reviewer
// profile. The column CHECK rejects anything over 40 characters.
func (db *DB) UpdateSelfDescription(ctx context.Context, userID int64, description *string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE reviewers SET self_description = ? WHERE user_id = ?`,
		description,
		userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating reviewer for user %d: %w", userID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("reviewer for user", strconv.FormatInt(userID, 10))
	}

	return nil
}
