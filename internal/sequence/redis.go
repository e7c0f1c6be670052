package sequence

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis generates numbers off a shared Redis counter so multiple processes
// hand out one monotonic sequence. INCR is atomic, so no two callers ever see
// the same value.
type Redis struct {
	client *redis.Client
	prefix string
}

func NewRedis(client *redis.Client, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

func (g *Redis) Next(ctx context.Context) (string, error) {
	key := fmt.Sprintf("sequence:%s", g.prefix)
	seq, err := g.client.Incr(ctx, key).Result()
	if err != nil {
		return "", fmt.Errorf("next %s number: %w", g.prefix, err)
	}
	return Format(g.prefix, time.Now().Year(), uint64(seq)), nil
}
