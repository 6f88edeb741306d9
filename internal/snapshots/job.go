// Package snapshots freezes the standings of every active season on a schedule
// and, when object storage is configured, archives each new version.
package snapshots

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/sgoodwin10/VirtualRacingLeagues-sub010/internal/archive"
	"github.com/sgoodwin10/VirtualRacingLeagues-sub010/internal/models"
	"github.com/sgoodwin10/VirtualRacingLeagues-sub010/internal/standings"
)

// Source is the slice of the store the job uses.
type Source interface {
	ActiveSeasons(ctx context.Context) ([]models.Season, error)
	ComputeStandings(ctx context.Context, seasonID uuid.UUID, opts standings.Options) (*standings.Table, error)
	SaveSnapshot(ctx context.Context, table *standings.Table) (*models.StandingsSnapshot, bool, error)
	SetSnapshotArchiveURL(ctx context.Context, snapshotID uuid.UUID, url string) error
}

// Uploader stores an archived document and returns where it can be fetched.
type Uploader interface {
	Upload(ctx context.Context, key string, body []byte) (string, error)
}

type Job struct {
	src         Source
	uploader    Uploader // nil disables archiving
	concurrency int
	logger      *slog.Logger
}

func NewJob(src Source, uploader Uploader, concurrency int, logger *slog.Logger) *Job {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Job{src: src, uploader: uploader, concurrency: concurrency, logger: logger}
}

// Run snapshots every active season, at most j.concurrency at a time. One season
// failing does not stop the others; the first error is returned after all finish.
func (j *Job) Run(ctx context.Context) error {
	seasons, err := j.src.ActiveSeasons(ctx)
	if err != nil {
		return fmt.Errorf("list active seasons: %w", err)
	}

	var g errgroup.Group
	g.SetLimit(j.concurrency)
	for _, season := range seasons {
		g.Go(func() error {
			_, err := j.SnapshotSeason(ctx, season)
			if err != nil {
				j.logger.Error("snapshot failed",
					slog.String("season_id", season.ID.String()),
					slog.Any("error", err))
			}
			return err
		})
	}
	err = g.Wait()
	j.logger.Info("snapshot run finished", slog.Int("seasons", len(seasons)))
	return err
}

// SnapshotSeason saves the driver table, and the team table when the season runs
// a team championship. It returns only the snapshots that are new versions.
func (j *Job) SnapshotSeason(ctx context.Context, season models.Season) ([]models.StandingsSnapshot, error) {
	kinds := []standings.EntrantKind{standings.EntrantDriver}
	if season.TeamChampionship {
		kinds = append(kinds, standings.EntrantTeam)
	}

	var created []models.StandingsSnapshot
	for _, kind := range kinds {
		table, err := j.src.ComputeStandings(ctx, season.ID, standings.Options{Kind: kind})
		if err != nil {
			return created, fmt.Errorf("compute %s standings: %w", kind, err)
		}
		snap, isNew, err := j.src.SaveSnapshot(ctx, table)
		if err != nil {
			return created, fmt.Errorf("save %s snapshot: %w", kind, err)
		}
		if !isNew {
			continue
		}
		if err := j.archive(ctx, snap, table); err != nil {
			// The snapshot itself is stored; a missing archive copy is retried by hand.
			j.logger.Warn("snapshot archive failed",
				slog.String("snapshot_id", snap.ID.String()),
				slog.Any("error", err))
		}
		created = append(created, *snap)
	}
	return created, nil
}

func (j *Job) archive(ctx context.Context, snap *models.StandingsSnapshot, table *standings.Table) error {
	if j.uploader == nil {
		return nil
	}
	body, err := json.Marshal(table)
	if err != nil {
		return err
	}
	url, err := j.uploader.Upload(ctx, archive.SnapshotKey(snap.SeasonID, string(snap.Kind), snap.Version), body)
	if err != nil {
		return err
	}
	snap.ArchiveURL = &url
	return j.src.SetSnapshotArchiveURL(ctx, snap.ID, url)
}
