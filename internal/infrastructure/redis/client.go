package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Options configures Connect.
type Options struct {
	URL string
	// ConnectTimeout bounds the total time spent waiting for the first ping.
	ConnectTimeout time.Duration
	Logger         zerolog.Logger
}

// Connect opens a client and pings it, retrying with exponential backoff
// until ConnectTimeout elapses. A malformed URL fails immediately.
func Connect(ctx context.Context, opts Options) (*redis.Client, error) {
	parsed, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 10 * time.Second
	}

	client := redis.NewClient(parsed)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = opts.ConnectTimeout

	attempt := 0
	err = backoff.Retry(func() error {
		attempt++
		pingErr := client.Ping(ctx).Err()
		if pingErr != nil {
			opts.Logger.Warn().Err(pingErr).Int("attempt", attempt).Msg("redis not reachable yet")
		}
		return pingErr
	}, backoff.WithContext(b, ctx))
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}

// Pinger reports whether the server answers PING. It satisfies the readiness
// check interface.
type Pinger struct {
	client *redis.Client
}

// NewPinger wraps client.
func NewPinger(client *redis.Client) *Pinger {
	return &Pinger{client: client}
}

// Ping sends PING.
func (p *Pinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}
