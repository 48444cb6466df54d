package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/contacts_api/services/auth/internal/models"
	"github.com/Skotchmaster/contacts_api/services/auth/internal/service"
)

type fakeAuth map[string]error

func (f fakeAuth) Authenticate(_ context.Context, token string) (*models.User, error) {
	if err, ok := f[token]; ok {
		return nil, err
	}
	return &models.User{ID: 1, Email: "alice@example.com", IsVerified: true}, nil
}

func TestBearerAuth_RequireAuth(t *testing.T) {
	t.Parallel()

	mw := NewBearerAuth(fakeAuth{
		"bad":        service.ErrUnauthorized,
		"unverified": service.ErrEmailNotVerified,
		"db-down":    errors.New("connection reset"),
	})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "missing header", header: "", want: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic abc", want: http.StatusUnauthorized},
		{name: "empty token", header: "Bearer ", want: http.StatusUnauthorized},
		{name: "invalid token", header: "Bearer bad", want: http.StatusUnauthorized},
		{name: "unverified", header: "Bearer unverified", want: http.StatusUnauthorized},
		{name: "store failure", header: "Bearer db-down", want: http.StatusInternalServerError},
		{name: "ok", header: "Bearer good", want: http.StatusOK},
		{name: "scheme is case insensitive", header: "bearer good", want: http.StatusOK},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			var seen *models.User
			err := mw.RequireAuth(func(c echo.Context) error {
				seen, _ = CurrentUser(c)
				return c.NoContent(http.StatusOK)
			})(c)

			if tt.want == http.StatusOK {
				require.NoError(t, err)
				require.NotNil(t, seen)
				assert.Equal(t, "alice@example.com", seen.Email)
				return
			}

			he, ok := err.(*echo.HTTPError)
			require.True(t, ok)
			assert.Equal(t, tt.want, he.Code)
			assert.Nil(t, seen)
		})
	}
}

func TestCurrentUser_Missing(t *testing.T) {
	t.Parallel()

	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	u, ok := CurrentUser(c)
	assert.False(t, ok)
	assert.Nil(t, u)
}
