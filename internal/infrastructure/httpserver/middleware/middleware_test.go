package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avatarctic/phone-confirmation/internal/infrastructure/httpserver/helpers"
	"github.com/avatarctic/phone-confirmation/internal/mocks"
)

func newContext(req *http.Request) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func sign(t *testing.T, method jwt.SigningMethod, key any, claims jwt.RegisteredClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func statusOf(err error) int {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return 0
}

func TestRequireJWT(t *testing.T) {
	m := NewJWTMiddleware("secret", logrus.New())
	valid := jwt.RegisteredClaims{Subject: "admin", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}

	cases := []struct {
		name   string
		header string
		status int
	}{
		{name: "missing header", header: "", status: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic abc", status: http.StatusUnauthorized},
		{name: "garbage", header: "Bearer not.a.jwt", status: http.StatusUnauthorized},
		{name: "wrong secret", header: "Bearer " + sign(t, jwt.SigningMethodHS256, []byte("other"), valid), status: http.StatusUnauthorized},
		{name: "no expiry", header: "Bearer " + sign(t, jwt.SigningMethodHS256, []byte("secret"), jwt.RegisteredClaims{Subject: "admin"}), status: http.StatusUnauthorized},
		{name: "no subject", header: "Bearer " + sign(t, jwt.SigningMethodHS256, []byte("secret"), jwt.RegisteredClaims{ExpiresAt: valid.ExpiresAt}), status: http.StatusUnauthorized},
		{name: "valid", header: "Bearer " + sign(t, jwt.SigningMethodHS256, []byte("secret"), valid), status: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			c, _ := newContext(req)
			var subject string
			err := m.RequireJWT()(func(c echo.Context) error {
				subject, _ = helpers.Subject(c)
				return nil
			})(c)

			assert.Equal(t, tc.status, statusOf(err))
			if tc.status == 0 {
				assert.NoError(t, err)
				assert.Equal(t, "admin", subject)
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	reset := time.Unix(1700000000, 0)

	t.Run("denied", func(t *testing.T) {
		m := NewRateLimitMiddleware(&mocks.RateLimiterServiceMock{AllowFn: func(ctx context.Context, key string) (bool, int, int, time.Time, error) {
			return false, 0, 5, reset, nil
		}}, logrus.New())
		c, rec := newContext(httptest.NewRequest(http.MethodPost, "/", nil))
		called := false

		err := m.Handler()(func(c echo.Context) error { called = true; return nil })(c)

		assert.Equal(t, http.StatusTooManyRequests, statusOf(err))
		assert.False(t, called)
		assert.Equal(t, "5", rec.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
		assert.Equal(t, "1700000000", rec.Header().Get("X-RateLimit-Reset"))
	})

	t.Run("fails open", func(t *testing.T) {
		m := NewRateLimitMiddleware(&mocks.RateLimiterServiceMock{AllowFn: func(ctx context.Context, key string) (bool, int, int, time.Time, error) {
			return false, 0, 0, reset, errors.New("redis down")
		}}, logrus.New())
		c, _ := newContext(httptest.NewRequest(http.MethodPost, "/", nil))
		called := false

		err := m.Handler()(func(c echo.Context) error { called = true; return nil })(c)

		assert.NoError(t, err)
		assert.True(t, called)
	})

	t.Run("keyed by client ip", func(t *testing.T) {
		var key string
		m := NewRateLimitMiddleware(&mocks.RateLimiterServiceMock{AllowFn: func(ctx context.Context, k string) (bool, int, int, time.Time, error) {
			key = k
			return true, 4, 5, reset, nil
		}}, nil)
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("X-Real-IP", "203.0.113.7")
		c, _ := newContext(req)

		require.NoError(t, m.Handler()(func(c echo.Context) error { return nil })(c))
		assert.Equal(t, "203.0.113.7", key)
	})

	t.Run("nil limiter passes", func(t *testing.T) {
		m := NewRateLimitMiddleware(nil, nil)
		c, _ := newContext(httptest.NewRequest(http.MethodPost, "/", nil))
		assert.NoError(t, m.Handler()(func(c echo.Context) error { return nil })(c))
	})
}
