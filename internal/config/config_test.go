package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamURL(t *testing.T) {
	tests := []struct {
		name    string
		base    string
		want    string
		wantErr bool
	}{
		{name: "http", base: "http://localhost:8080", want: "ws://localhost:8080/api/ws/live"},
		{name: "https", base: "https://dev.example.com", want: "wss://dev.example.com/api/ws/live"},
		{name: "trailing slash", base: "http://localhost:8080/", want: "ws://localhost:8080/api/ws/live"},
		{name: "with path", base: "https://example.com/livedev", want: "wss://example.com/livedev/api/ws/live"},
		{name: "already ws", base: "ws://localhost:8080", want: "ws://localhost:8080/api/ws/live"},
		{name: "bad scheme", base: "ftp://example.com", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := StreamURL(tt.base)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "http://localhost:8080", cfg.BackendURL)
	assert.Equal(t, 1000, cfg.EventLogCap)
	assert.Equal(t, "3s", cfg.ReconnectInterval.String())
	assert.False(t, cfg.WatcherEnabled())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("BACKEND_URL", "https://api.example.com")
	t.Setenv("RECONNECT_INTERVAL", "5s")
	t.Setenv("WATCH_DIR", "/tmp/projects")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com", cfg.BackendURL)
	assert.Equal(t, "5s", cfg.ReconnectInterval.String())
	assert.True(t, cfg.WatcherEnabled())

	streamURL, err := cfg.StreamURL()
	require.NoError(t, err)
	assert.Equal(t, "wss://api.example.com/api/ws/live", streamURL)
}
