// Package memstore is an in-process Store bounded by an LRU.
package memstore

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mohammed-shakir/layer-report-client/internal/core/observability"
)

const driver = "memory"

type Store struct {
	lru *lru.Cache[string, []byte]
}

func New(size int) (*Store, error) {
	if size <= 0 {
		size = 16
	}
	c, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("memstore lru: %w", err)
	}
	return &Store{lru: c}, nil
}

func (s *Store) Driver() string { return driver }

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		observability.ObserveCacheOp("get", driver, err, time.Since(start).Seconds())
		return nil, false, err
	}
	v, ok := s.lru.Get(key)
	observability.ObserveCacheOp("get", driver, nil, time.Since(start).Seconds())
	observability.IncCacheResult(driver, ok)
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (s *Store) Set(ctx context.Context, key string, val []byte) error {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		observability.ObserveCacheOp("set", driver, err, time.Since(start).Seconds())
		return err
	}
	s.lru.Add(key, append([]byte(nil), val...))
	observability.ObserveCacheOp("set", driver, nil, time.Since(start).Seconds())
	return nil
}

func (s *Store) Close() error {
	s.lru.Purge()
	return nil
}
