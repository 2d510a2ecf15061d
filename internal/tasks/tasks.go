// package tasks implements the upload pipeline against the remote music host.
//
// The core abstraction is UploadEngine, which orchestrates discovery, duplicate
// planning, and the upload run. Operations emit progress updates via channels
// for non-blocking status reporting to the CLI layer.
package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"ibup/internal/models"
	"ibup/internal/scanner"
	"ibup/internal/services"
	"ibup/internal/shared"
)

// Plan partitions hashed candidates into files to upload and files to skip.
//
// Skipping considers checksums already in the remote library and checksums
// claimed by an earlier candidate in the same run, so of any set of identical
// files at most one lands in Uploads.
type Plan struct {
	Candidates []models.Candidate // All discovered files, hashed
	Uploads    []models.Candidate // Files that will be uploaded
	Skipped    []models.Candidate // Duplicates left out of the run
}

// RunResult contains all data from a completed upload run.
type RunResult struct {
	Outcomes []models.UploadOutcome // Per-file results, in completion order
	Uploaded int                    // Files uploaded successfully
	Skipped  int                    // Duplicates skipped
	Failed   int                    // Files that errored
	TrackIDs []int64                // Remote ids of uploaded tracks
	Elapsed  time.Duration          // Wall time of the execute phase
}

// ExecuteOpts contains configuration for the execute phase.
type ExecuteOpts struct {
	Tags      []string // Tag names to apply to every uploaded track
	Playlists []string // Playlist names to add every uploaded track to
	Parallel  bool     // Upload with the full worker pool
	Workers   int      // Pool size when parallel (default 4, capped at 10)
	RateLimit float64  // Tag/playlist API calls per second (default 5)
}

// HistorySink records upload outcomes in a local log.
//
// Implementations must tolerate being called from multiple goroutines.
type HistorySink interface {
	Record(outcome models.UploadOutcome) error
}

// UploadEngine orchestrates the batch upload pipeline.
type UploadEngine struct {
	library services.MusicLibrary
	history HistorySink // optional
}

// NewUploadEngine creates an UploadEngine for the given remote library.
// The history sink may be nil.
func NewUploadEngine(library services.MusicLibrary, history HistorySink) *UploadEngine {
	return &UploadEngine{library: library, history: history}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *UploadEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Login authenticates against the remote library.
func (e *UploadEngine) Login(ctx context.Context, progress chan<- ProgressUpdate) (*services.Account, error) {
	if e.library == nil {
		return nil, fmt.Errorf("%w: library client not initialized", shared.ErrNotAuthenticated)
	}

	e.sendProgress(progress, loginUpdate())
	account, err := e.library.Login(ctx)
	if err != nil {
		return nil, err
	}
	e.sendProgress(progress, loggedInUpdate(account.UserID))

	return account, nil
}

// Discover fetches the account's supported extensions and scans the given
// directories for candidate files. Login must have run.
func (e *UploadEngine) Discover(ctx context.Context, progress chan<- ProgressUpdate, dirs []string) ([]models.Candidate, error) {
	e.sendProgress(progress, fetchStatusUpdate())
	extensions, err := e.library.SupportedExtensions(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch account info: %w", err)
	}

	exts := scanner.NewExtensionSet(extensions)
	for i, dir := range dirs {
		e.sendProgress(progress, scanUpdate(dir, i+1, len(dirs)))
	}

	candidates, err := scanner.Discover(dirs, exts)
	if err != nil {
		return nil, err
	}
	e.sendProgress(progress, scannedUpdate(len(candidates)))

	return candidates, nil
}

// Plan hashes every candidate and partitions them into uploads and skips.
//
// With skipDuplicates disabled every candidate is uploaded; the remote
// checksum listing is not fetched at all.
func (e *UploadEngine) Plan(ctx context.Context, progress chan<- ProgressUpdate, candidates []models.Candidate, skipDuplicates bool) (*Plan, error) {
	plan := &Plan{}

	var known map[string]struct{}
	if skipDuplicates {
		e.sendProgress(progress, fetchChecksumsUpdate())
		var err error
		known, err = e.library.Checksums(ctx)
		if err != nil {
			return nil, fmt.Errorf("unable to fetch library checksums: %w", err)
		}
	}

	claimed := make(map[string]struct{})
	total := len(candidates)

	for i, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		e.sendProgress(progress, hashUpdate(i+1, total, candidate))

		sum, err := scanner.Checksum(candidate.Path)
		if err != nil {
			return nil, err
		}
		candidate.Checksum = sum
		plan.Candidates = append(plan.Candidates, candidate)

		if !skipDuplicates {
			plan.Uploads = append(plan.Uploads, candidate)
			continue
		}

		_, remote := known[sum]
		_, inBatch := claimed[sum]
		if remote || inBatch {
			plan.Skipped = append(plan.Skipped, candidate)
			continue
		}

		claimed[sum] = struct{}{}
		plan.Uploads = append(plan.Uploads, candidate)
	}

	return plan, nil
}

// target is a resolved remote tag or playlist id.
type target struct {
	name string
	id   string
}

// resolveTargets maps requested tag and playlist names to remote ids,
// creating any that do not exist yet.
func (e *UploadEngine) resolveTargets(ctx context.Context, progress chan<- ProgressUpdate, tags, playlists []string) ([]target, []target, error) {
	if len(tags) == 0 && len(playlists) == 0 {
		return nil, nil, nil
	}

	e.sendProgress(progress, resolveTargetsUpdate(len(tags), len(playlists)))

	library, err := e.library.Library(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to fetch library: %w", err)
	}

	var tagTargets []target
	for _, name := range tags {
		tag, ok := library.FindTag(name)
		if !ok {
			tag, err = e.library.CreateTag(ctx, name)
			if err != nil {
				return nil, nil, err
			}
		}
		tagTargets = append(tagTargets, target{name: name, id: tag.ID})
	}

	var playlistTargets []target
	for _, name := range playlists {
		pl, ok := library.FindPlaylist(name)
		if !ok {
			pl, err = e.library.CreatePlaylist(ctx, name)
			if err != nil {
				return nil, nil, err
			}
		}
		playlistTargets = append(playlistTargets, target{name: name, id: pl.ID})
	}

	return tagTargets, playlistTargets, nil
}

// Execute uploads the planned files and applies tags and playlists.
//
// Skipped files are reported (and logged to history) without any request.
// A failed upload never aborts the rest of the batch.
func (e *UploadEngine) Execute(ctx context.Context, progress chan<- ProgressUpdate, plan *Plan, opts ExecuteOpts) (*RunResult, error) {
	workers := opts.Workers
	if !opts.Parallel {
		workers = 1
	}
	if workers <= 0 {
		workers = 4
	}
	if workers > 10 {
		workers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	var tagTargets, playlistTargets []target
	if len(plan.Uploads) > 0 {
		var err error
		tagTargets, playlistTargets, err = e.resolveTargets(ctx, progress, opts.Tags, opts.Playlists)
		if err != nil {
			return nil, err
		}
	}

	start := time.Now()
	result := &RunResult{}

	for _, candidate := range plan.Skipped {
		outcome := models.UploadOutcome{Candidate: candidate, Result: models.DispositionSkipped}
		result.Outcomes = append(result.Outcomes, outcome)
		result.Skipped++
		e.record(outcome)
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	jobs := make(chan models.Candidate, len(plan.Uploads))
	outcomes := make(chan models.UploadOutcome, len(plan.Uploads))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go e.uploadWorker(ctx, &wg, jobs, outcomes, limiter, tagTargets, playlistTargets)
	}

	dispatched := 0
	for _, candidate := range plan.Uploads {
		select {
		case <-ctx.Done():
		case jobs <- candidate:
			dispatched++
			e.sendProgress(progress, uploadStartUpdate(dispatched, len(plan.Uploads), candidate))
		}
		if ctx.Err() != nil {
			break
		}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	completed := 0
	for outcome := range outcomes {
		completed++
		result.Outcomes = append(result.Outcomes, outcome)
		switch outcome.Result {
		case models.DispositionUploaded:
			result.Uploaded++
			result.TrackIDs = append(result.TrackIDs, outcome.TrackID)
		case models.DispositionFailed:
			result.Failed++
		}
		e.record(outcome)
		e.sendProgress(progress, uploadDoneUpdate(completed, len(plan.Uploads), outcome))
	}

	result.Elapsed = time.Since(start)

	if err := ctx.Err(); err != nil {
		return result, err
	}

	return result, nil
}

// uploadWorker uploads jobs until the channel closes, applying tags and
// playlists immediately after each successful upload so a mid-run failure
// leaves at most the in-flight tracks untagged.
func (e *UploadEngine) uploadWorker(ctx context.Context, wg *sync.WaitGroup, jobs <-chan models.Candidate, outcomes chan<- models.UploadOutcome, limiter *rate.Limiter, tags, playlists []target) {
	defer wg.Done()

	for candidate := range jobs {
		outcomes <- e.uploadOne(ctx, candidate, limiter, tags, playlists)
	}
}

func (e *UploadEngine) uploadOne(ctx context.Context, candidate models.Candidate, limiter *rate.Limiter, tags, playlists []target) models.UploadOutcome {
	outcome := models.UploadOutcome{Candidate: candidate}

	trackID, err := e.library.Upload(ctx, candidate.Path)
	if err != nil {
		outcome.Result = models.DispositionFailed
		outcome.Err = err
		return outcome
	}
	outcome.TrackID = trackID

	for _, tag := range tags {
		if err := limiter.Wait(ctx); err != nil {
			outcome.Result = models.DispositionFailed
			outcome.Err = err
			return outcome
		}
		if err := e.library.TagTracks(ctx, tag.id, []int64{trackID}); err != nil {
			outcome.Result = models.DispositionFailed
			outcome.Err = fmt.Errorf("failed to apply tag %s: %w", tag.name, err)
			return outcome
		}
	}

	for _, pl := range playlists {
		if err := limiter.Wait(ctx); err != nil {
			outcome.Result = models.DispositionFailed
			outcome.Err = err
			return outcome
		}
		if err := e.library.AppendPlaylist(ctx, pl.id, []int64{trackID}); err != nil {
			outcome.Result = models.DispositionFailed
			outcome.Err = fmt.Errorf("failed to add to playlist %s: %w", pl.name, err)
			return outcome
		}
	}

	outcome.Result = models.DispositionUploaded
	return outcome
}

// record writes an outcome to the history sink, if one is configured.
// History failures never affect the run.
func (e *UploadEngine) record(outcome models.UploadOutcome) {
	if e.history == nil {
		return
	}
	_ = e.history.Record(outcome)
}
