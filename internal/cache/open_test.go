package cache

import (
	"context"
	"path/filepath"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/mohammed-shakir/layer-report-client/internal/core/config"
)

func TestOpen_Drivers(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	cases := []struct {
		cfg  config.CacheCfg
		want string
	}{
		{config.CacheCfg{Driver: "memory", MemorySize: 2}, "memory"},
		{config.CacheCfg{Driver: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "c.db")}, "sqlite"},
		{config.CacheCfg{Driver: "redis", RedisAddr: mr.Addr()}, "redis"},
	}
	for _, tc := range cases {
		s, err := Open(context.Background(), tc.cfg)
		if err != nil {
			t.Fatalf("Open(%s): %v", tc.cfg.Driver, err)
		}
		if s.Driver() != tc.want {
			t.Fatalf("Driver=%q want %q", s.Driver(), tc.want)
		}
		_ = s.Close()
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), config.CacheCfg{Driver: "etcd"}); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
