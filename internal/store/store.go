// Package store persists opaque blobs by key and layers the board
// repository on top of them.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when no value has been stored under a key yet.
var ErrNotFound = errors.New("store: key not found")

// KV reads and writes blobs by key.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

// Driver names a KV implementation.
type Driver string

const (
	DriverFile   Driver = "file"
	DriverMemory Driver = "memory"
	DriverRedis  Driver = "redis"
)

// Options configures Open.
type Options struct {
	Driver        Driver
	Dir           string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Open builds the KV selected by opts.Driver.
func Open(ctx context.Context, opts Options) (KV, error) {
	switch Driver(strings.ToLower(strings.TrimSpace(string(opts.Driver)))) {
	case "", DriverFile:
		return NewFileKV(opts.Dir)
	case DriverMemory:
		return NewMemoryKV(), nil
	case DriverRedis:
		return NewRedisKV(ctx, opts.RedisAddr, opts.RedisPassword, opts.RedisDB)
	default:
		return nil, fmt.Errorf("store: unknown driver %q", opts.Driver)
	}
}
