package service

import (
	"context"
	"time"

	"github.com/librario/lending-api/internal/core/ports"
)

// noSessionCache is used when no cache is configured; every lookup misses.
type noSessionCache struct{}

func (noSessionCache) Get(context.Context, string) (*ports.CachedSession, error) { return nil, nil }

func (noSessionCache) Set(context.Context, string, ports.CachedSession, time.Duration) error {
	return nil
}

func (noSessionCache) Delete(context.Context, string) error { return nil }
