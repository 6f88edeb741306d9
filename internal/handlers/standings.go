package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/sgoodwin10/VirtualRacingLeagues-sub010/internal/broadcast"
	"github.com/sgoodwin10/VirtualRacingLeagues-sub010/internal/cache"
	"github.com/sgoodwin10/VirtualRacingLeagues-sub010/internal/standings"
	"github.com/sgoodwin10/VirtualRacingLeagues-sub010/internal/store"
)

// streamKeepAlive is how often an idle event stream sends a comment line so
// proxies do not close it.
var streamKeepAlive = 25 * time.Second

// parseOptions reads ?kind=driver|team&as_of=RFC3339&through_round=N.
func parseOptions(c *fiber.Ctx) (standings.Options, error) {
	var opts standings.Options

	switch kind := standings.EntrantKind(c.Query("kind")); kind {
	case "", standings.EntrantDriver:
		opts.Kind = standings.EntrantDriver
	case standings.EntrantTeam:
		opts.Kind = standings.EntrantTeam
	default:
		return opts, errors.New("kind must be 'driver' or 'team'")
	}

	if v := c.Query("as_of"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return opts, errors.New("as_of must be an RFC 3339 timestamp")
		}
		opts.AsOf = &t
	}

	if v := c.Query("through_round"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return opts, errors.New("through_round must be a positive round number")
		}
		opts.ThroughRound = n
	}
	return opts, nil
}

// GetStandings returns a handler for GET /api/v1/seasons/:seasonID/standings.
// Tables come from the cache when the season has not changed since they were
// computed; X-Cache tells clients which path served them.
func GetStandings(st *store.Store, sc cache.Cache) fiber.Handler {
	return func(c *fiber.Ctx) error {
		seasonID, ok := paramID(c, "seasonID")
		if !ok {
			return badRequest(c, "invalid season ID")
		}
		opts, err := parseOptions(c)
		if err != nil {
			return badRequest(c, err.Error())
		}

		table, hit, err := cache.Standings(c.UserContext(), sc, st, seasonID, opts)
		if err != nil {
			return fail(c, err)
		}
		if hit {
			c.Set("X-Cache", "HIT")
		} else {
			c.Set("X-Cache", "MISS")
		}
		return c.JSON(table)
	}
}

// StreamStandings returns a handler for GET /api/v1/seasons/:seasonID/standings/stream.
// The response is a server-sent event stream: the current driver table first,
// then a fresh table every time the season's results, rounds or scoring change.
func StreamStandings(st *store.Store, sc cache.Cache, hub *broadcast.Hub) fiber.Handler {
	return func(c *fiber.Ctx) error {
		seasonID, ok := paramID(c, "seasonID")
		if !ok {
			return badRequest(c, "invalid season ID")
		}

		table, _, err := cache.Standings(c.UserContext(), sc, st, seasonID, standings.Options{})
		if err != nil {
			return fail(c, err)
		}
		initial, err := json.Marshal(table)
		if err != nil {
			return fail(c, err)
		}

		client := broadcast.NewClient(seasonID)
		hub.Register(client)

		c.Set("Content-Type", "text/event-stream")
		c.Set("Cache-Control", "no-cache")
		c.Set("Connection", "keep-alive")
		c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
			defer hub.Unregister(client)

			if writeEvent(w, initial) != nil {
				return
			}
			ping := time.NewTicker(streamKeepAlive)
			defer ping.Stop()
			for {
				select {
				case data, open := <-client.Send:
					if !open {
						return
					}
					if writeEvent(w, data) != nil {
						return
					}
				case <-ping.C:
					// A failed flush means the viewer went away.
					if _, err := w.WriteString(": keep-alive\n\n"); err != nil {
						return
					}
					if w.Flush() != nil {
						return
					}
				}
			}
		})
		return nil
	}
}

func writeEvent(w *bufio.Writer, data []byte) error {
	if _, err := fmt.Fprintf(w, "event: standings\ndata: %s\n\n", data); err != nil {
		return err
	}
	return w.Flush()
}

// refreshStandings runs after every write that can move the table: it drops the
// season's cached tables and pushes the new driver table to live viewers.
// Failures are logged; the write itself has already succeeded.
func refreshStandings(ctx context.Context, st *store.Store, sc cache.Cache, hub *broadcast.Hub, seasonID uuid.UUID) {
	if err := sc.Invalidate(ctx, seasonID); err != nil {
		slog.Error("standings cache invalidation failed",
			slog.String("season_id", seasonID.String()),
			slog.Any("error", err))
	}
	if hub.Subscribers(seasonID) == 0 {
		return
	}

	table, _, err := cache.Standings(ctx, sc, st, seasonID, standings.Options{})
	if err != nil {
		slog.Error("standings recompute for viewers failed",
			slog.String("season_id", seasonID.String()),
			slog.Any("error", err))
		return
	}
	data, err := json.Marshal(table)
	if err != nil {
		slog.Error("standings encode failed", slog.Any("error", err))
		return
	}
	hub.Publish(seasonID, data)
}
