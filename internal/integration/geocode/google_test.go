package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestGoogleGeocoder_Resolves(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/maps/api/geocode/json", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"OK","results":[{"geometry":{"location":{"lat":30.2672,"lng":-97.7431}}}]}`))
	}))
	defer srv.Close()

	g, err := NewGoogleGeocoder("AIza-test-key", srv.URL, zap.NewNop())
	require.NoError(t, err)

	lat, lng, ok := g.Geocode(context.Background(), "1 Main St, Austin, TX")
	require.True(t, ok)
	assert.InDelta(t, 30.2672, lat, 1e-6)
	assert.InDelta(t, -97.7431, lng, 1e-6)
}

func TestGoogleGeocoder_RetriesOnceThenGivesUp(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"UNKNOWN_ERROR","results":[]}`))
	}))
	defer srv.Close()

	g, err := NewGoogleGeocoder("AIza-test-key", srv.URL, zap.NewNop())
	require.NoError(t, err)

	_, _, ok := g.Geocode(context.Background(), "nowhere")
	assert.False(t, ok)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(2))
}

func TestGoogleGeocoder_EmptyAddress(t *testing.T) {
	g, err := NewGoogleGeocoder("AIza-test-key", "http://127.0.0.1:1", zap.NewNop())
	require.NoError(t, err)
	_, _, ok := g.Geocode(context.Background(), "  ")
	assert.False(t, ok)
}
