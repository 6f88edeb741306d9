// Package cache keeps computed standings tables in Redis so repeated reads of an
// unchanged season skip the database and the standings pipeline.
//
// Keys are versioned per season:
//
//	standings:{season}:version          counter bumped on every invalidation
//	standings:{season}:v{n}:{variant}   cached table JSON for one set of options
//
// Invalidation is a single INCR; entries for older versions are never read again
// and expire on their TTL.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/sgoodwin10/VirtualRacingLeagues-sub010/internal/standings"
)

// Cache is the contract the HTTP layer depends on.
type Cache interface {
	// Get returns the cached table, if any, plus the version token the caller
	// must pass to Set when it stores a freshly computed table.
	Get(ctx context.Context, seasonID uuid.UUID, variant string) (*standings.Table, string, error)
	Set(ctx context.Context, seasonID uuid.UUID, version, variant string, table *standings.Table) error
	Invalidate(ctx context.Context, seasonID uuid.UUID) error
}

// Computer produces a table on a cache miss.
type Computer interface {
	ComputeStandings(ctx context.Context, seasonID uuid.UUID, opts standings.Options) (*standings.Table, error)
}

// Variant names one set of options inside a season's cache namespace.
func Variant(opts standings.Options) string {
	kind := opts.Kind
	if kind == "" {
		kind = standings.EntrantDriver
	}
	asOf := "now"
	if opts.AsOf != nil {
		asOf = strconv.FormatInt(opts.AsOf.Unix(), 10)
	}
	return fmt.Sprintf("%s:%s:%d", kind, asOf, opts.ThroughRound)
}

// Standings serves a table from c when possible and computes and stores it
// otherwise. Cache failures are logged and treated as misses; they never fail
// the request.
func Standings(ctx context.Context, c Cache, src Computer, seasonID uuid.UUID, opts standings.Options) (*standings.Table, bool, error) {
	variant := Variant(opts)

	table, version, err := c.Get(ctx, seasonID, variant)
	if err != nil {
		slog.Warn("standings cache read failed", slog.String("season_id", seasonID.String()), slog.Any("error", err))
	}
	if table != nil {
		return table, true, nil
	}

	table, err = src.ComputeStandings(ctx, seasonID, opts)
	if err != nil {
		return nil, false, err
	}
	if err := c.Set(ctx, seasonID, version, variant, table); err != nil {
		slog.Warn("standings cache write failed", slog.String("season_id", seasonID.String()), slog.Any("error", err))
	}
	return table, false, nil
}

// Redis is the go-redis backed Cache.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedis(rdb *redis.Client, ttl time.Duration) *Redis {
	return &Redis{rdb: rdb, ttl: ttl}
}

func versionKey(seasonID uuid.UUID) string {
	return fmt.Sprintf("standings:%s:version", seasonID)
}

func tableKey(seasonID uuid.UUID, version, variant string) string {
	return fmt.Sprintf("standings:%s:v%s:%s", seasonID, version, variant)
}

func (r *Redis) version(ctx context.Context, seasonID uuid.UUID) (string, error) {
	v, err := r.rdb.Get(ctx, versionKey(seasonID)).Result()
	if errors.Is(err, redis.Nil) {
		return "0", nil
	}
	return v, err
}

func (r *Redis) Get(ctx context.Context, seasonID uuid.UUID, variant string) (*standings.Table, string, error) {
	version, err := r.version(ctx, seasonID)
	if err != nil {
		return nil, "", err
	}

	val, err := r.rdb.Get(ctx, tableKey(seasonID, version, variant)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, version, nil
	}
	if err != nil {
		return nil, version, err
	}

	var table standings.Table
	if err := json.Unmarshal(val, &table); err != nil {
		return nil, version, err
	}
	return &table, version, nil
}

// Set stores table under the version observed by Get. A table computed before
// an invalidation lands under the old version and is never served.
func (r *Redis) Set(ctx context.Context, seasonID uuid.UUID, version, variant string, table *standings.Table) error {
	if version == "" {
		return nil
	}
	data, err := json.Marshal(table)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, tableKey(seasonID, version, variant), data, r.ttl).Err()
}

func (r *Redis) Invalidate(ctx context.Context, seasonID uuid.UUID) error {
	return r.rdb.Incr(ctx, versionKey(seasonID)).Err()
}

// Noop is used when no Redis is configured: every read misses.
type Noop struct{}

func (Noop) Get(context.Context, uuid.UUID, string) (*standings.Table, string, error) {
	return nil, "", nil
}

func (Noop) Set(context.Context, uuid.UUID, string, string, *standings.Table) error { return nil }

func (Noop) Invalidate(context.Context, uuid.UUID) error { return nil }
