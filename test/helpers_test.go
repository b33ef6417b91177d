//go:build integration
// +build integration

package test

import (
	"os"
	"strings"
	"testing"

	goCred "github.com/MrEthical07/goCred"
	"github.com/MrEthical07/goCred/directory/memory"
	"github.com/MrEthical07/goCred/notify"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// redisMode describes which Redis backend the suite is running against.
type redisMode struct {
	name  string
	setup func(t *testing.T) (redis.UniversalClient, func())
}

// redisModes returns the set of Redis backends to test.
// miniredis is always available.
// Real Redis standalone is used when REDIS_ADDR is set (e.g. "127.0.0.1:6379").
func redisModes(t *testing.T) []redisMode {
	t.Helper()
	modes := []redisMode{
		{
			name: "miniredis",
			setup: func(t *testing.T) (redis.UniversalClient, func()) {
				t.Helper()
				mr, err := miniredis.Run()
				if err != nil {
					t.Fatalf("miniredis: %v", err)
				}
				rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
				return rdb, func() { _ = rdb.Close(); mr.Close() }
			},
		},
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		modes = append(modes, redisMode{
			name: "standalone:" + addr,
			setup: func(t *testing.T) (redis.UniversalClient, func()) {
				t.Helper()
				rdb := redis.NewClient(&redis.Options{Addr: addr})
				return rdb, func() {
					_ = rdb.FlushDB(t.Context()).Err()
					_ = rdb.Close()
				}
			},
		})
	}
	return modes
}

func integrationConfig() goCred.Config {
	cfg := goCred.DefaultConfig()
	cfg.Session.PrivateKey = []byte(strings.Repeat("s", 32))
	cfg.Password.Memory = 8192
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.OTP.ExposeCode = true
	return cfg
}

// newInstance builds one engine on the shared Redis client and directory,
// standing in for one replica of a horizontally scaled service.
func newInstance(t *testing.T, client redis.UniversalClient, dir *memory.Directory, inbox *notify.Recorder, cfg goCred.Config) *goCred.Engine {
	t.Helper()
	engine, err := goCred.New().
		WithConfig(cfg).
		WithRedis(client).
		WithDirectory(dir).
		WithNotifier(inbox).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}
