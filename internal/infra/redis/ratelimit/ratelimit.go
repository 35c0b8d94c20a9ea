package infra_ratelimit

import (
	"time"

	"github.com/go-redis/redis"
)

// Driver keeps per-IP, per-action sliding counters in redis. Allow is
// the single admission check used by both the HTTP middleware and the
// websocket event router.
type Driver struct {
	client *redis.Client
	max    int
	window time.Duration
}

func New(client *redis.Client, max int, window time.Duration) *Driver {
	return &Driver{
		client: client,
		max:    max,
		window: window,
	}
}

// Allow reports whether the address may perform the action now. When
// it may not, retryAfter carries the seconds until the window resets.
func (d *Driver) Allow(addr, action string) (bool, int, error) {
	key := "ratelimit:" + action + ":" + addr

	// INCR and EXPIRE in one round trip; INCR itself is atomic.
	pipe := d.client.Pipeline()
	incr := pipe.Incr(key)
	pipe.Expire(key, d.window)
	if _, err := pipe.Exec(); err != nil {
		return false, 0, err
	}

	count, err := incr.Result()
	if err != nil {
		return false, 0, err
	}
	if count <= int64(d.max) {
		return true, 0, nil
	}

	ttl, err := d.client.TTL(key).Result()
	if err != nil || ttl < 0 {
		ttl = d.window
	}
	return false, int(ttl.Seconds()) + 1, nil
}
