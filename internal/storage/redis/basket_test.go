//go:build integration

package redis

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/xenking/oolio-kart-basket/internal/domain/basket"
)

var testClient *redis.Client

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("start redis: %v", err)
	}
	defer func() {
		if err := ctr.Terminate(context.Background()); err != nil {
			log.Printf("terminate redis: %v", err)
		}
	}()

	host, err := ctr.Host(ctx)
	if err != nil {
		log.Fatalf("host: %v", err)
	}
	port, err := ctr.MappedPort(ctx, "6379/tcp")
	if err != nil {
		log.Fatalf("mapped port: %v", err)
	}

	testClient = redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	defer testClient.Close()

	if err := testClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("ping: %v", err)
	}

	return m.Run()
}

func TestBasketCache(t *testing.T) {
	ctx := context.Background()
	cache := NewBasketCache(testClient, time.Hour)

	_, err := cache.Load(ctx, "b-1")
	require.ErrorIs(t, err, basket.ErrNotFound)

	data := []byte(`{"version":1,"cptElement":3}`)
	require.NoError(t, cache.Save(ctx, "b-1", data))

	got, err := cache.Load(ctx, "b-1")
	require.NoError(t, err)
	assert.Equal(t, data, got)

	ttl, err := testClient.TTL(ctx, basketKeyPrefix+"b-1").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 59*time.Minute)

	require.NoError(t, cache.Delete(ctx, "b-1"))
	_, err = cache.Load(ctx, "b-1")
	require.ErrorIs(t, err, basket.ErrNotFound)
}

func TestBasketCache_NoTTL(t *testing.T) {
	ctx := context.Background()
	cache := NewBasketCache(testClient, 0)

	require.NoError(t, cache.Save(ctx, "b-2", []byte(`{}`)))
	ttl, err := testClient.TTL(ctx, basketKeyPrefix+"b-2").Result()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(-1), ttl)
}
