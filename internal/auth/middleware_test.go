package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/company-reviews/internal/apperror"
	"github.com/sakif/company-reviews/internal/model"
)

// stubAuthenticator knows exactly one key.
type stubAuthenticator struct {
	key  string
	user *model.User
}

func (s stubAuthenticator) Authenticate(_ context.Context, key string) (*model.User, error) {
	if key != s.key {
		return nil, apperror.Unauthenticated("Invalid token.")
	}
	return s.user, nil
}

func TestRequireAuth(t *testing.T) {
	adam := &model.User{ID: 1, Username: "adam"}
	authn := stubAuthenticator{key: "abc123", user: adam}

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantMsg    string
	}{
		{name: "valid token", header: "Token abc123", wantStatus: http.StatusOK},
		{name: "keyword is case-insensitive", header: "token abc123", wantStatus: http.StatusOK},
		{name: "no header", header: "", wantStatus: http.StatusUnauthorized, wantMsg: "Authentication credentials were not provided."},
		{name: "other scheme", header: "Bearer abc123", wantStatus: http.StatusUnauthorized, wantMsg: "Authentication credentials were not provided."},
		{name: "keyword only", header: "Token", wantStatus: http.StatusUnauthorized, wantMsg: "Invalid token header. No credentials provided."},
		{name: "spaces in key", header: "Token abc 123", wantStatus: http.StatusUnauthorized, wantMsg: "Invalid token header. Token string should not contain spaces."},
		{name: "unknown key", header: "Token nope", wantStatus: http.StatusUnauthorized, wantMsg: "Invalid token."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				gotErr  error
				gotUser *model.User
			)
			fail := func(w http.ResponseWriter, _ *http.Request, err error) {
				gotErr = err
				w.WriteHeader(http.StatusUnauthorized)
			}
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotUser, _ = UserFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/reviews/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()

			RequireAuth(authn, fail)(next).ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Same(t, adam, gotUser)
				return
			}
			require.Error(t, gotErr)
			assert.True(t, errors.Is(gotErr, apperror.ErrUnauthenticated))
			assert.Equal(t, tt.wantMsg, gotErr.Error())
			assert.Nil(t, gotUser, "next handler must not run")
		})
	}
}

func TestUserFromContext_Anonymous(t *testing.T) {
	u, ok := UserFromContext(context.Background())
	assert.False(t, ok)
	assert.Nil(t, u)
}
