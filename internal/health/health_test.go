package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/dyluth/docroom/internal/identity"
	"github.com/dyluth/docroom/internal/presence"
	"github.com/dyluth/docroom/pkg/room"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func emptyFacepile() presence.Update {
	return presence.Update{DocumentID: "public-welcome", Facepile: presence.Aggregate(nil, 0)}
}

func get(t *testing.T, s *Server, path string) (*httptest.ResponseRecorder, HealthResponse) {
	t.Helper()
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))

	var response HealthResponse
	if path == "/healthz" {
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	}
	return w, response
}

func TestHealthCheck(t *testing.T) {
	t.Run("method not allowed", func(t *testing.T) {
		w := httptest.NewRecorder()
		NewServer(nil, emptyFacepile).Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/healthz", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})

	t.Run("healthy without a remote transport", func(t *testing.T) {
		w, response := get(t, NewServer(nil, emptyFacepile), "/healthz")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "healthy", response.Status)
		assert.Equal(t, "local", response.Transport)
	})

	t.Run("healthy when Redis answers", func(t *testing.T) {
		mr := miniredis.RunT(t)
		transport, err := room.NewRedisTransport(&redis.Options{Addr: mr.Addr()}, "test")
		require.NoError(t, err)
		defer transport.Close()

		w, response := get(t, NewServer(transport, emptyFacepile), "/healthz")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "connected", response.Transport)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	})

	t.Run("unhealthy when Redis is gone", func(t *testing.T) {
		mr := miniredis.RunT(t)
		transport, err := room.NewRedisTransport(&redis.Options{Addr: mr.Addr(), MaxRetries: -1}, "test")
		require.NoError(t, err)
		defer transport.Close()
		mr.Close()

		w, response := get(t, NewServer(transport, emptyFacepile), "/healthz")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "unhealthy", response.Status)
		assert.Equal(t, "disconnected", response.Transport)
		assert.NotEmpty(t, response.Error)
	})
}

func TestPresenceEndpoint(t *testing.T) {
	current := func() presence.Update {
		return presence.Update{DocumentID: "doc_1", Facepile: presence.Facepile{
			Shown:      []identity.Identity{{ID: "user_a", Name: "Ava Gray", Color: "#ef4444"}},
			TotalCount: 1,
		}}
	}

	w, _ := get(t, NewServer(nil, current), "/presence")
	require.Equal(t, http.StatusOK, w.Code)

	var u presence.Update
	require.NoError(t, json.NewDecoder(w.Body).Decode(&u))
	assert.Equal(t, current(), u)
}

func TestStartAndShutdown(t *testing.T) {
	s := NewServer(nil, emptyFacepile)
	require.NoError(t, s.Start("127.0.0.1:0"))
	assert.NoError(t, s.Shutdown(context.Background()))

	assert.NoError(t, NewServer(nil, emptyFacepile).Shutdown(context.Background()), "shutdown before start")
}
