package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

func TestManagerLoadsInitialConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "server:\n  port: 9000\n")

	m, err := NewManager(path, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	assert.Equal(t, 9000, m.Get().Server.Port)
}

func TestManagerRejectsInvalidInitialConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "server:\n  port: -1\n")

	_, err := NewManager(path, slog.New(slog.DiscardHandler))
	assert.Error(t, err)
}

func TestManagerHotReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "server:\n  port: 9000\n")

	m, err := NewManager(path, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	changed := make(chan *Config, 1)
	m.OnChange(func(cfg *Config) {
		select {
		case changed <- cfg:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, m.Watch(ctx))

	writeConfig(t, path, "server:\n  port: 9100\n")

	select {
	case cfg := <-changed:
		assert.Equal(t, 9100, cfg.Server.Port)
	case <-time.After(5 * time.Second):
		t.Fatal("config change was not observed")
	}
	assert.Equal(t, 9100, m.Get().Server.Port)
}

func TestManagerKeepsPreviousConfigOnBadReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "server:\n  port: 9000\n")

	m, err := NewManager(path, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, m.Watch(ctx))

	writeConfig(t, path, "server:\n  port: not-a-number\n")

	assert.Eventually(t, func() bool {
		return m.Get().Server.Port == 9000
	}, 2*time.Second, 50*time.Millisecond)
	assert.Equal(t, 9000, m.Get().Server.Port)
}
