package snapshots

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sgoodwin10/VirtualRacingLeagues-sub010/internal/models"
	"github.com/sgoodwin10/VirtualRacingLeagues-sub010/internal/standings"
)

type fakeSource struct {
	mu       sync.Mutex
	seasons  []models.Season
	failFor  uuid.UUID
	existing map[string]bool // season:kind pairs whose latest snapshot is unchanged
	saved    []*models.StandingsSnapshot
	archived map[uuid.UUID]string

	inFlight, peak atomic.Int32
}

func (f *fakeSource) ActiveSeasons(context.Context) ([]models.Season, error) {
	return f.seasons, nil
}

func (f *fakeSource) ComputeStandings(_ context.Context, seasonID uuid.UUID, opts standings.Options) (*standings.Table, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)

	if seasonID == f.failFor {
		return nil, standings.ErrInvalidConfig
	}
	return &standings.Table{SeasonID: seasonID, Kind: opts.Kind, AsOfRound: 3}, nil
}

func (f *fakeSource) SaveSnapshot(_ context.Context, table *standings.Table) (*models.StandingsSnapshot, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap := &models.StandingsSnapshot{
		ID:        uuid.New(),
		SeasonID:  table.SeasonID,
		Kind:      models.StandingsKind(table.Kind),
		Version:   1,
		AsOfRound: table.AsOfRound,
	}
	if f.existing[table.SeasonID.String()+":"+string(table.Kind)] {
		return snap, false, nil
	}
	f.saved = append(f.saved, snap)
	return snap, true, nil
}

func (f *fakeSource) SetSnapshotArchiveURL(_ context.Context, id uuid.UUID, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.archived == nil {
		f.archived = map[uuid.UUID]string{}
	}
	f.archived[id] = url
	return nil
}

type fakeUploader struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (u *fakeUploader) Upload(_ context.Context, key string, _ []byte) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.keys = append(u.keys, key)
	return "https://cdn.example.com/" + key, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestJob_SnapshotSeason(t *testing.T) {
	season := models.Season{ID: uuid.New(), TeamChampionship: true}
	src := &fakeSource{existing: map[string]bool{season.ID.String() + ":team": true}}
	up := &fakeUploader{}

	created, err := NewJob(src, up, 2, quietLogger()).SnapshotSeason(context.Background(), season)
	if err != nil {
		t.Fatalf("SnapshotSeason: %v", err)
	}
	if len(created) != 1 || created[0].Kind != models.StandingsKindDriver {
		t.Fatalf("Expected only the changed driver table to be new, got %+v", created)
	}
	if created[0].ArchiveURL == nil || src.archived[created[0].ID] != *created[0].ArchiveURL {
		t.Errorf("Expected the archive URL to be recorded, got %v", src.archived)
	}
	expectedKey := "standings/" + season.ID.String() + "/driver/v0001.json"
	if len(up.keys) != 1 || up.keys[0] != expectedKey {
		t.Errorf("Expected upload of %s, got %v", expectedKey, up.keys)
	}
}

func TestJob_ArchiveFailureKeepsSnapshot(t *testing.T) {
	src := &fakeSource{}
	up := &fakeUploader{err: errors.New("bucket missing")}

	created, err := NewJob(src, up, 1, quietLogger()).SnapshotSeason(context.Background(), models.Season{ID: uuid.New()})
	if err != nil {
		t.Fatalf("Expected archive failures to be tolerated, got %v", err)
	}
	if len(created) != 1 || created[0].ArchiveURL != nil {
		t.Errorf("Expected a stored snapshot without an archive URL, got %+v", created)
	}
}

func TestJob_Run(t *testing.T) {
	var seasons []models.Season
	for i := 0; i < 6; i++ {
		seasons = append(seasons, models.Season{ID: uuid.New()})
	}
	src := &fakeSource{seasons: seasons, failFor: seasons[2].ID}

	err := NewJob(src, nil, 2, quietLogger()).Run(context.Background())
	if !errors.Is(err, standings.ErrInvalidConfig) {
		t.Errorf("Expected the failing season's error, got %v", err)
	}
	if len(src.saved) != 5 {
		t.Errorf("Expected the other 5 seasons to be snapshotted, got %d", len(src.saved))
	}
	if peak := src.peak.Load(); peak > 2 {
		t.Errorf("Expected at most 2 concurrent computations, got %d", peak)
	}
}
