//go:build integration

package room

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis starts a Redis container for testing.
func setupRedis(t *testing.T) string {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "failed to start Redis container")
	t.Cleanup(func() {
		if err := redisC.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate Redis container: %v", err)
		}
	})

	host, err := redisC.Host(ctx)
	require.NoError(t, err)
	port, err := redisC.MappedPort(ctx, "6379")
	require.NoError(t, err)

	return fmt.Sprintf("redis://%s:%s", host, port.Port())
}

func TestRedisTransport_RealServer(t *testing.T) {
	redisURL := setupRedis(t)

	opts, err := redis.ParseURL(redisURL)
	require.NoError(t, err)
	transport, err := NewRedisTransport(opts, "integration")
	require.NoError(t, err)
	defer transport.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	presence, err := transport.Connect(ctx, Key("public-welcome"))
	require.NoError(t, err)
	defer presence.Close()
	editor, err := transport.Connect(ctx, Key("public-welcome"))
	require.NoError(t, err)
	defer editor.Close()

	user := &User{ID: "user_int", Name: "Kai Knox", Color: "#3b82f6"}
	require.NoError(t, presence.Publish(ctx, Payload{User: user, Clock: 1, UpdatedAtMs: time.Now().UnixMilli()}))
	require.NoError(t, editor.Publish(ctx, Payload{User: user, Clock: 1, UpdatedAtMs: time.Now().UnixMilli()}))

	st := waitForState(t, presence, func(s State) bool { return len(s) == 2 })
	assert.ElementsMatch(t, []string{presence.Tag(), editor.Tag()}, st.Tags())

	require.NoError(t, editor.Withdraw(ctx))
	waitForState(t, presence, lacksTag(editor.Tag()))
}
