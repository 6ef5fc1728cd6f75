package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
)

func TestConnectSuccess(t *testing.T) {
	s := miniredis.RunT(t)

	ctx := context.Background()
	client, err := Connect(ctx, Options{URL: fmt.Sprintf("redis://%s", s.Addr()), Logger: zerolog.Nop()})
	if err != nil {
		t.Fatalf("expected client, got error: %v", err)
	}
	defer client.Close()

	if err := NewPinger(client).Ping(ctx); err != nil {
		t.Fatalf("ping failed: %v", err)
	}
}

func TestConnectInvalidURL(t *testing.T) {
	_, err := Connect(context.Background(), Options{URL: "://bad-url"})
	if err == nil {
		t.Fatalf("expected error for invalid URL")
	}
}

func TestConnectGivesUpWhenServerIsDown(t *testing.T) {
	s := miniredis.RunT(t)
	url := fmt.Sprintf("redis://%s", s.Addr())
	s.Close() // close before attempting to connect

	start := time.Now()
	_, err := Connect(context.Background(), Options{URL: url, ConnectTimeout: 300 * time.Millisecond, Logger: zerolog.Nop()})
	if err == nil {
		t.Fatalf("expected ping error when server is down")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("connect retried for too long: %s", elapsed)
	}
}

func TestPingerReportsOutage(t *testing.T) {
	s := miniredis.RunT(t)

	ctx := context.Background()
	client, err := Connect(ctx, Options{URL: fmt.Sprintf("redis://%s", s.Addr()), Logger: zerolog.Nop()})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close()

	s.Close()
	if err := NewPinger(client).Ping(ctx); err == nil {
		t.Fatalf("expected ping error after server shutdown")
	}
}
