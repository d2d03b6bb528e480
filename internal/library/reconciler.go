package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/handiism/tidal-downloader/internal/audio"
	"github.com/handiism/tidal-downloader/internal/download"
	ioutils "github.com/handiism/tidal-downloader/internal/io"
	"github.com/handiism/tidal-downloader/internal/logging"
	"github.com/handiism/tidal-downloader/internal/model"
	"github.com/handiism/tidal-downloader/internal/quality"
)

// ErrLocked is returned when another process is syncing the same root.
var ErrLocked = errors.New("library sync already running")

const lockFileName = ".sync.lock"

// Catalog is the remote side of a sync.
type Catalog interface {
	FavoriteTracks(ctx context.Context) ([]*model.Track, error)
	Track(ctx context.Context, id string) (*model.Track, error)
	Album(ctx context.Context, id string) (*model.Album, error)
	StreamURL(ctx context.Context, trackID string, q quality.Setting) (*model.Stream, error)
}

// Transferer downloads one track.
type Transferer interface {
	Transfer(ctx context.Context, req download.Request) (download.Outcome, error)
}

// TagReader reads the identity tags of local files.
type TagReader interface {
	ReadIdentity(path string) (audio.Identity, error)
	ReadTrackID(path string) (string, error)
	ReadQuality(path string) (string, error)
}

// Options configures a Reconciler.
type Options struct {
	Root    string
	Quality quality.Setting
	Logger  *slog.Logger
	// Now defaults to time.Now and names the error ledger.
	Now func() time.Time
}

// Plan is the diff computed by one run. IDs are sorted.
type Plan struct {
	Missing    []string
	Removed    []string
	Upgradable []string
}

// Report summarizes one sync run.
type Report struct {
	RunID string
	Plan  Plan

	Local          int
	Downloaded     int
	Moved          int
	Upgraded       int
	SkippedQuality int
	Unavailable    int
	Flattened      int
	Names          NameStats

	Errors     []LedgerEntry
	LedgerPath string
}

// Failed returns the number of ledger entries.
func (r *Report) Failed() int { return len(r.Errors) }

// Reconciler keeps a flat library folder in line with the liked tracks.
type Reconciler struct {
	catalog  Catalog
	transfer Transferer
	reader   TagReader
	quality  quality.Setting
	logger   *slog.Logger
	now      func() time.Time

	root       string
	removedDir string
	cache      *QualityCache
}

// New creates a Reconciler for opts.Root.
func New(catalog Catalog, transfer Transferer, reader TagReader, opts Options) (*Reconciler, error) {
	if opts.Root == "" {
		return nil, errors.New("library root is empty")
	}
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Reconciler{
		catalog:    catalog,
		transfer:   transfer,
		reader:     reader,
		quality:    opts.Quality,
		logger:     logger,
		now:        now,
		root:       root,
		removedDir: filepath.Join(root, RemovedDirName),
	}, nil
}

// Root returns the absolute library root.
func (r *Reconciler) Root() string { return r.root }

// Sync runs one full reconciliation of the library root against the
// liked tracks.
//
// The run holds <root>/.sync.lock throughout and goes through these
// phases in order:
//   - scan the tagged files outside _Removed and diff them against the
//     liked set
//   - download missing tracks straight into the root
//   - move tracks no longer liked into _Removed, keeping their relative
//     path
//   - find liked tracks below the desired quality, using the quality
//     cache, and re-download those the catalog now serves better
//   - flatten nested folders and rename files to "Title - Artist.ext"
//   - prune and save the cache, then write the error ledger if anything
//     failed
//
// Running Sync again with nothing changed remotely is a no-op.
//
// Returns ErrLocked when another run holds the lock. Other errors are
// setup failures (root, lock, favorites, scan); per-item failures end
// up in Report.Errors and the ledger instead.
//
// Example:
//
//	rec, err := library.New(catalog, transferer, reader, library.Options{
//	    Root:    "/music/Liked Tracks",
//	    Quality: quality.HiFi,
//	})
//	report, err := rec.Sync(ctx)
//	if errors.Is(err, library.ErrLocked) {
//	    // another sync is running
//	}
func (r *Reconciler) Sync(ctx context.Context) (*Report, error) {
	report := &Report{RunID: uuid.NewString()}
	log := r.logger.With("run_id", report.RunID, "root", r.root)

	if err := ioutils.EnsureDir(r.removedDir); err != nil {
		return nil, fmt.Errorf("prepare library: %w", err)
	}
	lock := flock.New(filepath.Join(r.root, lockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			log.Warn("release lock", "error", err)
		}
	}()

	liked, err := r.catalog.FavoriteTracks(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch liked tracks: %w", err)
	}
	remote := make(map[string]*model.Track, len(liked))
	for _, t := range liked {
		if t != nil && t.ID != "" {
			remote[t.ID] = t
		}
	}

	local, err := r.scan()
	if err != nil {
		return nil, fmt.Errorf("scan library: %w", err)
	}
	report.Local = len(local)

	for id := range remote {
		if _, ok := local[id]; !ok {
			report.Plan.Missing = append(report.Plan.Missing, id)
		}
	}
	removed := make(map[string]bool)
	for id := range local {
		if _, ok := remote[id]; !ok {
			report.Plan.Removed = append(report.Plan.Removed, id)
			removed[id] = true
		}
	}
	sort.Strings(report.Plan.Missing)
	sort.Strings(report.Plan.Removed)
	log.Info("library diffed", "local", report.Local, "missing", len(report.Plan.Missing), "removed", len(report.Plan.Removed))

	r.cache = LoadQualityCache(filepath.Join(r.root, CacheFileName))

	r.acquire(ctx, report, remote)
	r.relocate(report, local)

	candidates := r.qualityScan(report, local, removed)
	r.upgrade(ctx, report, candidates)

	report.Flattened = r.flatten()
	report.Names.add(r.canonicalize(r.root, r.removedDir))
	report.Names.add(r.canonicalize(r.removedDir, ""))

	if n := r.cache.Prune(); n > 0 {
		log.Debug("pruned quality cache", "entries", n)
	}
	if err := r.cache.Save(); err != nil {
		log.Warn("save quality cache", "error", err)
	}

	if len(report.Errors) > 0 {
		path, err := writeLedger(r.root, r.now(), report.Errors)
		if err != nil {
			log.Error("write error ledger", "error", err)
		} else {
			report.LedgerPath = path
		}
	}

	log.Info("library synced",
		"downloaded", report.Downloaded,
		"moved", report.Moved,
		"upgraded", report.Upgraded,
		"unavailable", report.Unavailable,
		"failed", report.Failed())
	return report, nil
}

func (r *Reconciler) fail(report *Report, id string, track *model.Track, format string, args ...any) {
	entry := LedgerEntry{TrackID: id, Err: fmt.Sprintf(format, args...)}
	if track != nil {
		entry.Title = track.Title
		entry.Artist = track.ArtistName()
	}
	report.Errors = append(report.Errors, entry)
	r.logger.Warn("sync item failed", "track_id", id, "error", entry.Err)
}

// resolve fetches the full track and its album.
func (r *Reconciler) resolve(ctx context.Context, id string) (*model.Track, *model.Album, error) {
	track, err := r.catalog.Track(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	album, err := r.catalog.Album(ctx, track.Album.ID)
	if err != nil {
		return track, nil, err
	}
	return track, album, nil
}

func (r *Reconciler) acquire(ctx context.Context, report *Report, remote map[string]*model.Track) {
	for _, id := range report.Plan.Missing {
		track, album, err := r.resolve(ctx, id)
		if err != nil {
			r.fail(report, id, remote[id], "%v", err)
			continue
		}
		_, err = r.transfer.Transfer(ctx, download.Request{
			Track:             track,
			Album:             album,
			BaseOverride:      r.root,
			DisableExistCheck: true,
		})
		if err != nil {
			r.fail(report, id, track, "%v", err)
			continue
		}
		report.Downloaded++
	}
}

func (r *Reconciler) relocate(report *Report, local map[string][]string) {
	for _, id := range report.Plan.Removed {
		for _, path := range local[id] {
			target := ioutils.UniquePath(filepath.Join(r.removedDir, r.rel(path)))
			if err := ioutils.MoveFile(path, target); err != nil {
				r.fail(report, id, nil, "move failed: %v", err)
				continue
			}
			r.cache.Rename(path, target)
			report.Moved++
		}
	}
	r.flushCache()
}

// flushCache persists renames made by the phase that just ran.
func (r *Reconciler) flushCache() {
	if err := r.cache.Flush(); err != nil {
		r.logger.Warn("save quality cache", "error", err)
	}
}

type candidate struct {
	id    string
	paths []string
	rank  int
}

// qualityScan finds local tracks below the desired quality.
func (r *Reconciler) qualityScan(report *Report, local map[string][]string, removed map[string]bool) []candidate {
	desired := quality.DesiredRank(r.quality)
	ids := make([]string, 0, len(local))
	for id := range local {
		if !removed[id] {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	var out []candidate
	for _, id := range ids {
		best := quality.Unknown
		for _, path := range local[id] {
			if q := r.localQuality(path); q != "" {
				best = max(best, quality.Rank(q))
			}
		}
		if best < 0 {
			report.SkippedQuality++
			continue
		}
		if best < desired {
			out = append(out, candidate{id: id, paths: local[id], rank: best})
			report.Plan.Upgradable = append(report.Plan.Upgradable, id)
		}
	}
	return out
}

// localQuality returns the recorded quality of path through the cache.
func (r *Reconciler) localQuality(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return ""
	}
	if q, ok := r.cache.Lookup(path, info); ok {
		return q
	}
	q, err := r.reader.ReadQuality(path)
	if err != nil {
		q = ""
	}
	if err := r.cache.Store(path, info, q); err != nil {
		r.logger.Warn("save quality cache", "error", err)
	}
	return q
}

func (r *Reconciler) upgrade(ctx context.Context, report *Report, candidates []candidate) {
	for _, c := range candidates {
		track, album, err := r.resolve(ctx, c.id)
		if err != nil {
			r.fail(report, c.id, track, "upgrade failed: %v", err)
			continue
		}
		stream, err := r.catalog.StreamURL(ctx, c.id, r.quality)
		if err != nil {
			r.fail(report, c.id, track, "upgrade failed: %v", err)
			continue
		}
		if quality.Rank(stream.SoundQuality) <= c.rank {
			report.Unavailable++
			continue
		}

		outcome, err := r.transfer.Transfer(ctx, download.Request{
			Track:             track,
			Album:             album,
			BaseOverride:      r.root,
			DisableExistCheck: true,
		})
		if err != nil {
			r.fail(report, c.id, track, "upgrade failed: %v", err)
			continue
		}
		report.Upgraded++

		for _, old := range c.paths {
			if samePath(old, outcome.Path) {
				continue
			}
			if err := os.Remove(old); err != nil && !errors.Is(err, os.ErrNotExist) {
				r.fail(report, c.id, track, "cleanup failed: %v", err)
			}
		}
	}
}

func samePath(a, b string) bool {
	if a == b {
		return true
	}
	ra, errA := filepath.EvalSymlinks(a)
	rb, errB := filepath.EvalSymlinks(b)
	return errA == nil && errB == nil && ra == rb
}
