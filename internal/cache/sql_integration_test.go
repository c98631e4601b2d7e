//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcmysql "github.com/testcontainers/testcontainers-go/modules/mysql"
)

func TestMySQLStore_Integration(t *testing.T) {
	ctx := context.Background()

	container, err := tcmysql.Run(ctx, "mysql:8.4",
		tcmysql.WithDatabase("epaper_weather"),
		tcmysql.WithUsername("weather"),
		tcmysql.WithPassword("weather"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "3306/tcp")
	require.NoError(t, err)

	clock := newFakeClock()
	store, err := NewMySQLStore(&MySQLConfig{
		Host:     host,
		Port:     port.Port(),
		Username: "weather",
		Password: "weather",
		Database: "epaper_weather",
	}, WithClock(clock.Now))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Put("59.33_18.07_2025-03-20", payload{"06:05", "18:15"}, 24*time.Hour))
	require.NoError(t, store.Put("59.33_18.07_2025-03-20", payload{"06:04", "18:16"}, 24*time.Hour))

	entry, ok := store.Get("59.33_18.07_2025-03-20")
	require.True(t, ok)
	var got payload
	require.NoError(t, entry.Decode(&got))
	assert.Equal(t, "06:04", got.Sunrise)

	clock.Advance(25 * time.Hour)
	_, ok = store.Get("59.33_18.07_2025-03-20")
	assert.False(t, ok)

	stats := store.Stats()
	assert.Equal(t, BackendMySQL, stats.Backend)
	assert.Equal(t, 1, stats.Expired)

	require.NoError(t, store.Clear())
	assert.Zero(t, store.Stats().Entries)
}
