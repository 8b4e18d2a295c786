package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fixmate/service-marketplace/internal/platform/domain"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runError(t *testing.T, err error) (*httptest.ResponseRecorder, Envelope) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	Error(c, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w, env
}

func TestError_MapsDomainCodes(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.NewValidationError("bad"), http.StatusBadRequest},
		{domain.NewUnauthorizedError("who"), http.StatusUnauthorized},
		{domain.NewForbiddenError("no"), http.StatusForbidden},
		{domain.NewNotFoundError("Booking", "x"), http.StatusNotFound},
		{domain.NewInvalidStateError("a", "b"), http.StatusConflict},
	}
	for _, tc := range cases {
		w, env := runError(t, tc.err)
		assert.Equal(t, tc.want, w.Code)
		assert.False(t, env.Success)
		require.NotNil(t, env.Error)
		assert.NotEmpty(t, env.Error.Message)
	}
}

func TestError_UnknownIsInternal(t *testing.T) {
	w, env := runError(t, errors.New("pq: connection refused"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal server error", env.Error.Message)
}
