package server_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/washtrack/api/internal/server"
	"go.uber.org/zap"
)

func TestStartAndShutdown(t *testing.T) {
	srv := server.New("0", http.NotFoundHandler(), zap.NewNop())
	assert.Equal(t, ":0", srv.Addr())

	done := make(chan error, 1)
	go func() { done <- srv.Start() }()
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))

	select {
	case err := <-done:
		assert.NoError(t, err, "Start should return nil after graceful shutdown")
	case <-time.After(time.Second):
		t.Fatal("Start did not return after Shutdown")
	}
}
