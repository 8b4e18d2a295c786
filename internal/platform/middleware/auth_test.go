package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fixmate/service-marketplace/internal/platform/auth"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(m *auth.JWTManager, roles ...auth.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestIDMiddleware())
	handlers := []gin.HandlerFunc{AuthMiddleware(m)}
	if len(roles) > 0 {
		handlers = append(handlers, RequireRole(roles...))
	}
	handlers = append(handlers, func(c *gin.Context) {
		id, _ := GetUserID(c)
		c.String(http.StatusOK, id)
	})
	r.GET("/me", handlers...)
	return r
}

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	r := newTestRouter(auth.NewJWTManager("s", "", time.Hour))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	m := auth.NewJWTManager("s", "", time.Hour)
	token, err := m.Generate("cust-9", auth.RoleCustomer)
	require.NoError(t, err)

	r := newTestRouter(m)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cust-9", w.Body.String())
}

func TestRequireRole(t *testing.T) {
	m := auth.NewJWTManager("s", "", time.Hour)
	r := newTestRouter(m, auth.RoleTechnician)

	cases := []struct {
		name string
		role auth.Role
		want int
	}{
		{"technician allowed", auth.RoleTechnician, http.StatusOK},
		{"admin always allowed", auth.RoleAdmin, http.StatusOK},
		{"customer rejected", auth.RoleCustomer, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			token, err := m.Generate("u-1", tc.role)
			require.NoError(t, err)

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.want, w.Code)
		})
	}
}
