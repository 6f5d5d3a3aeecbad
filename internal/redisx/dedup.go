package redisx

import (
	"context"
	"github.com/redis/go-redis/v9"
)

// Deduper remembers processed event ids per consuming service.
type Deduper struct {
	RDB     *redis.Client
	Service string
}

// Seen reports whether eventID was already marked.
func (d *Deduper) Seen(ctx context.Context, eventID string) (bool, error) {
	return Exists(ctx, d.RDB, dedupKey(d.Service, eventID))
}

func (d *Deduper) Mark(ctx context.Context, eventID string) error {
	return d.RDB.Set(ctx, dedupKey(d.Service, eventID), "1", TTLDedup).Err()
}
