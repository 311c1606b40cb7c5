package app

import (
	"context"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trader/backend/bootstrap"
)

func testEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.json"))
	t.Setenv("DATABASE_PATH", ":memory:")
	t.Setenv("LOG_LEVEL", "error")
}

func TestCreateAppSatisfiesApplication(t *testing.T) {
	testEnv(t)

	a, err := CreateApp()
	require.NoError(t, err)
	defer a.Store.Close()

	var _ bootstrap.Application = a
	assert.NotNil(t, a.Engine)
	assert.NotEmpty(t, a.Catalog.Baskets())
}

func TestCreateAppBadConfigFile(t *testing.T) {
	testEnv(t)
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))
	t.Setenv("CONFIG_FILE", path)

	_, err := CreateApp()
	assert.Error(t, err)
}

func TestServeAndShutDown(t *testing.T) {
	testEnv(t)
	a, err := CreateApp()
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.serve(ctx, ln, false) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	assert.Error(t, a.Store.DB.Ping(), "store is closed after shutdown")
}

func TestRunContextListenError(t *testing.T) {
	testEnv(t)
	a, err := CreateApp()
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	port := ln.Addr().(*net.TCPAddr).Port

	err = a.RunContext(context.Background(), true, "127.0.0.1", port)
	assert.ErrorContains(t, err, "listen on")
}
