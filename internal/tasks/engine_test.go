package tasks

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/desertthunder/ytmigrate/internal/models"
	"github.com/desertthunder/ytmigrate/internal/services"
	"github.com/desertthunder/ytmigrate/internal/shared"
	"github.com/desertthunder/ytmigrate/internal/state"
	tu "github.com/desertthunder/ytmigrate/internal/testing"
)

type harness struct {
	source *tu.FakeSource
	dest   *tu.FakeDestination
	store  *state.Store
	report string
	opts   EngineOpts
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()

	source := &tu.FakeSource{
		Lists: []models.Playlist{{ID: "p1", Name: "Road Trip", Description: "Songs for driving"}},
		Tracks: map[string][]models.Track{
			"p1": {
				{ID: "s1", Title: "Song A", Artists: []string{"Artist 1"}, Album: "LP1"},
				{ID: "s2", Title: "Song B", Artists: []string{"Artist 2"}},
				{ID: "s3", Title: "Song C", Artists: []string{"Artist 3"}, Album: "LP3"},
			},
		},
	}

	dest := tu.NewFakeDestination()
	dest.Results["Song A Artist 1 LP1"] = []services.SearchResult{{VideoID: "vA"}}
	dest.Results["Song B Artist 2"] = []services.SearchResult{{VideoID: "vB"}}

	report := filepath.Join(dir, "failed_songs.txt")
	return &harness{
		source: source,
		dest:   dest,
		store:  state.NewStore(filepath.Join(dir, ".migration_state.json"), nil),
		report: report,
		opts: EngineOpts{
			DuplicateMode:     shared.DuplicateMerge,
			LikedPlaylistName: "Spotify Liked Songs",
			Privacy:           "PRIVATE",
			BatchSize:         50,
			NameMaxLength:     150,
			Retry:             instantPolicy(3, nil),
			FailedSongsFile:   report,
		},
	}
}

func (h *harness) run(t *testing.T) (*RunSummary, error) {
	t.Helper()
	return NewMigrationEngine(h.source, h.dest, h.store, h.opts, shared.DiscardLogger()).Run(context.Background(), nil)
}

func TestMigrationEngine(t *testing.T) {
	t.Run("Road Trip", func(t *testing.T) {
		h := newHarness(t)

		summary, err := h.run(t)
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}

		creates := h.dest.Creates()
		if len(creates) != 1 || creates[0].Title != "Road Trip" || creates[0].Description != "Songs for driving (imported from Spotify)" {
			t.Fatalf("unexpected creates %+v", creates)
		}
		if got := h.dest.Items("PL1"); !slices.Equal(got, []string{"vA", "vB"}) {
			t.Errorf("unexpected items %v", got)
		}
		if summary.Created != 1 || summary.TracksMatched != 2 || summary.TracksMissing != 1 || summary.TracksAdded != 2 {
			t.Errorf("unexpected summary %+v", summary)
		}

		st := h.store.Load()
		if len(st.SongCache) != 3 || len(st.FailedSongs) != 1 || !st.IsCompleted("p1") {
			t.Errorf("unexpected state %+v", st)
		}

		report := tu.MustReadFile(t, h.report)
		if !strings.Contains(report, "Title: Song C") || !strings.Contains(report, "Playlist: Road Trip") {
			t.Errorf("unexpected report:\n%s", report)
		}
	})

	t.Run("merge re-run adds nothing", func(t *testing.T) {
		h := newHarness(t)
		if _, err := h.run(t); err != nil {
			t.Fatal(err)
		}
		searches, mutations := len(h.dest.Searches()), h.dest.Mutations()

		summary, err := h.run(t)
		if err != nil {
			t.Fatal(err)
		}
		if len(h.dest.Searches()) != searches {
			t.Error("second run should be served from state")
		}
		if h.dest.Mutations() != mutations {
			t.Errorf("second run should not mutate, got %d new", h.dest.Mutations()-mutations)
		}
		if summary.Merged != 1 || summary.TracksAdded != 0 {
			t.Errorf("unexpected summary %+v", summary)
		}
	})

	t.Run("negative cache is stable", func(t *testing.T) {
		h := newHarness(t)
		for range 2 {
			if _, err := h.run(t); err != nil {
				t.Fatal(err)
			}
		}

		count := 0
		for _, q := range h.dest.Searches() {
			if q == "Song C Artist 3 LP3" {
				count++
			}
		}
		if count != 1 {
			t.Errorf("missing song searched %d times", count)
		}
		if st := h.store.Load(); len(st.FailedSongs) != 1 {
			t.Errorf("expected 1 failure, got %d", len(st.FailedSongs))
		}
	})

	t.Run("deleting state re-queries", func(t *testing.T) {
		h := newHarness(t)
		if _, err := h.run(t); err != nil {
			t.Fatal(err)
		}
		if err := h.store.Reset(); err != nil {
			t.Fatal(err)
		}
		if _, err := h.run(t); err != nil {
			t.Fatal(err)
		}
		if got := len(h.dest.Searches()); got != 6 {
			t.Errorf("expected 6 searches, got %d", got)
		}
	})

	t.Run("skip mode makes no mutations", func(t *testing.T) {
		h := newHarness(t)
		h.dest = tu.NewFakeDestination(models.Playlist{ID: "PLX", Name: "Road Trip"})
		h.opts.DuplicateMode = shared.DuplicateSkip

		summary, err := h.run(t)
		if err != nil {
			t.Fatal(err)
		}
		if h.dest.Mutations() != 0 || len(h.dest.Searches()) != 0 {
			t.Error("skip should not search or mutate")
		}
		if slices.Contains(h.source.Calls(), "tracks:p1") {
			t.Error("skipped playlist tracks should not be fetched")
		}
		if summary.Skipped != 1 {
			t.Errorf("unexpected summary %+v", summary)
		}
	})

	t.Run("liked songs migrated last", func(t *testing.T) {
		h := newHarness(t)
		h.opts.IncludeLiked = true
		h.source.Liked = []models.Track{{ID: "s1", Title: "Song A", Artists: []string{"Artist 1"}, Album: "LP1"}}

		if _, err := h.run(t); err != nil {
			t.Fatal(err)
		}

		creates := h.dest.Creates()
		if len(creates) != 2 || creates[1].Title != "Spotify Liked Songs" || creates[1].Description != "Auto-imported from Spotify Liked Songs" {
			t.Fatalf("unexpected creates %+v", creates)
		}
		if got := h.dest.Items("PL2"); !slices.Equal(got, []string{"vA"}) {
			t.Errorf("unexpected liked items %v", got)
		}
		if len(h.dest.Searches()) != 3 {
			t.Error("liked track should come from the run cache")
		}
		if !h.store.Load().IsCompleted(LikedPlaylistID) {
			t.Error("liked songs should be marked completed")
		}
	})

	t.Run("playlist filter", func(t *testing.T) {
		h := newHarness(t)
		h.source.Lists = append(h.source.Lists, models.Playlist{ID: "p2", Name: "Chill"})
		h.opts.Only = []string{"Chill"}

		summary, err := h.run(t)
		if err != nil {
			t.Fatal(err)
		}
		if summary.Playlists != 1 || slices.Contains(h.source.Calls(), "tracks:p1") {
			t.Errorf("only Chill should run, got %+v", summary)
		}
	})

	t.Run("create failure ends the run", func(t *testing.T) {
		h := newHarness(t)
		h.source.Lists = append(h.source.Lists, models.Playlist{ID: "p2", Name: "Chill"})
		h.dest.CreateErrs = []error{transientErr(), transientErr(), transientErr()}

		summary, err := h.run(t)
		if !errors.Is(err, shared.ErrPlaylistCreate) {
			t.Fatalf("expected ErrPlaylistCreate, got %v", err)
		}
		if slices.Contains(h.source.Calls(), "tracks:p2") {
			t.Error("run should stop after a create failure")
		}
		if summary.Failed != 1 {
			t.Errorf("unexpected summary %+v", summary)
		}
		if st := h.store.Load(); len(st.SongCache) != 3 || st.IsCompleted("p1") {
			t.Error("matches should persist but the playlist is not completed")
		}
	})

	t.Run("track fetch failure continues", func(t *testing.T) {
		h := newHarness(t)
		h.source.Lists = append([]models.Playlist{{ID: "p0", Name: "Broken"}}, h.source.Lists...)
		h.source.TrackErr = map[string]error{"p0": errors.New("boom")}

		summary, err := h.run(t)
		if err != nil {
			t.Fatal(err)
		}
		if summary.Failed != 1 || summary.Created != 1 {
			t.Errorf("unexpected summary %+v", summary)
		}
	})

	t.Run("source listing failure is fatal", func(t *testing.T) {
		h := newHarness(t)
		h.source.ListErr = errors.New("unauthorized")

		if _, err := h.run(t); !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("library failure degrades", func(t *testing.T) {
		h := newHarness(t)
		h.dest.LibraryErr = errors.New("down")

		summary, err := h.run(t)
		if err != nil || summary.Created != 1 {
			t.Errorf("unexpected result %+v, %v", summary, err)
		}
	})

	t.Run("dry run", func(t *testing.T) {
		h := newHarness(t)
		h.opts.DryRun = true

		summary, err := h.run(t)
		if err != nil {
			t.Fatal(err)
		}
		if h.dest.Mutations() != 0 || summary.TracksAdded != 2 {
			t.Errorf("unexpected dry run: mutations %d, summary %+v", h.dest.Mutations(), summary)
		}
	})

	t.Run("no failures removes report", func(t *testing.T) {
		h := newHarness(t)
		if err := os.WriteFile(h.report, []byte("stale"), 0o644); err != nil {
			t.Fatal(err)
		}
		h.source.Tracks["p1"] = h.source.Tracks["p1"][:2]

		if _, err := h.run(t); err != nil {
			t.Fatal(err)
		}
		tu.AssertFileMissing(t, h.report)
	})
}

func TestMigrationEngineProgress(t *testing.T) {
	h := newHarness(t)
	progress := make(chan ProgressUpdate, 100)

	_, err := NewMigrationEngine(h.source, h.dest, h.store, h.opts, nil).Run(context.Background(), progress)
	if err != nil {
		t.Fatal(err)
	}
	close(progress)

	var phases []Phase
	for u := range progress {
		phases = append(phases, u.Phase)
	}
	if len(phases) == 0 || phases[0] != LoadState || phases[len(phases)-1] != Complete {
		t.Errorf("unexpected phases %v", phases)
	}
	if !slices.Contains(phases, MatchTracks) || !slices.Contains(phases, FinishPlaylist) {
		t.Errorf("missing phases %v", phases)
	}
}

type fakeJournal struct {
	started  []string
	recorded []PlaylistOutcome
	finished error
	done     bool
}

func (j *fakeJournal) StartJob(ctx context.Context, job *models.MigrationJob) error {
	j.started = append(j.started, job.ID)
	return nil
}

func (j *fakeJournal) RecordPlaylist(ctx context.Context, jobID string, seq int, outcome PlaylistOutcome) error {
	j.recorded = append(j.recorded, outcome)
	return nil
}

func (j *fakeJournal) FinishJob(ctx context.Context, jobID string, summary *RunSummary, runErr error) error {
	j.done, j.finished = true, runErr
	return errors.New("ignored")
}

func TestMigrationEngineJournal(t *testing.T) {
	h := newHarness(t)
	journal := &fakeJournal{}

	engine := NewMigrationEngine(h.source, h.dest, h.store, h.opts, nil).WithJournal(journal)
	summary, err := engine.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("journal errors must not fail the run: %v", err)
	}
	if len(journal.started) != 1 || journal.started[0] != summary.JobID {
		t.Errorf("unexpected starts %v", journal.started)
	}
	if len(journal.recorded) != 1 || journal.recorded[0].Name != "Road Trip" || !journal.done {
		t.Errorf("unexpected journal %+v", journal)
	}
}

func TestOptsFromConfig(t *testing.T) {
	cfg := shared.DefaultConfig().Migration
	opts := OptsFromConfig(cfg)
	if opts.Retry.Attempts != cfg.MaxRetries || opts.BatchSize != cfg.BatchSize || !opts.IncludeLiked {
		t.Errorf("unexpected opts %+v", opts)
	}
}
