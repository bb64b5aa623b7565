package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var key = []byte("test-secret")

func sign(t *testing.T, method jwt.SigningMethod, k any, claims jwt.Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(k)
	require.NoError(t, err)
	return s
}

func adminClaims(exp time.Time) *Claims {
	return &Claims{Role: RoleAdmin, RegisteredClaims: jwt.RegisteredClaims{Subject: "ops", ExpiresAt: jwt.NewNumericDate(exp)}}
}

func serve(header string) *httptest.ResponseRecorder {
	e := echo.New()
	e.POST("/admin", func(c echo.Context) error {
		return c.String(http.StatusOK, c.Get("subject").(string))
	}, JWT(key))
	req := httptest.NewRequest(http.MethodPost, "/admin", nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWT(t *testing.T) {
	good := sign(t, jwt.SigningMethodHS256, key, adminClaims(time.Now().Add(time.Hour)))

	rec := serve("Bearer " + good)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ops", rec.Body.String())

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"not bearer", good, http.StatusUnauthorized},
		{"wrong key", "Bearer " + sign(t, jwt.SigningMethodHS256, []byte("other"), adminClaims(time.Now().Add(time.Hour))), http.StatusUnauthorized},
		{"expired", "Bearer " + sign(t, jwt.SigningMethodHS256, key, adminClaims(time.Now().Add(-time.Hour))), http.StatusUnauthorized},
		{"hs512", "Bearer " + sign(t, jwt.SigningMethodHS512, key, adminClaims(time.Now().Add(time.Hour))), http.StatusUnauthorized},
		{"not admin", "Bearer " + sign(t, jwt.SigningMethodHS256, key, &Claims{Role: "anon"}), http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, serve(tt.header).Code)
		})
	}
}

func TestVerifySignature(t *testing.T) {
	expired := sign(t, jwt.SigningMethodHS256, key, &Claims{Role: "anon", RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour))}})
	assert.NoError(t, VerifySignature(" "+expired+"\n", key))
	assert.Error(t, VerifySignature(expired, []byte("other")))
	assert.Error(t, VerifySignature("not-a-token", key))
}
