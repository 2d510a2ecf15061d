package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"ibup/internal/repositories"
	"ibup/internal/shared"
	"ibup/internal/tasks"
	"ibup/internal/ui"
)

// Upload runs the full pipeline: login, scan, duplicate planning, confirm, upload.
func (r *Runner) Upload(ctx context.Context, cmd *cli.Command) error {
	token := cmd.StringArg("token")
	dirs := cmd.StringSlice("directory")
	if len(dirs) == 0 {
		dirs = []string{"."}
	}

	config := r.loadConfigFlag(cmd)

	lib, err := r.libraryFor(token)
	if err != nil {
		return err
	}

	var history tasks.HistorySink
	if cmd.Bool("history") {
		db, err := shared.NewDatabase(config.Database.Path)
		if err != nil {
			return fmt.Errorf("failed to open history database (run 'ibup setup' first): %w", err)
		}
		defer db.Close()
		shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)
		history = repositories.NewHistoryWriter(repositories.NewUploadRepository(db))
	}

	engine := tasks.NewUploadEngine(lib, history)

	progressCh := make(chan tasks.ProgressUpdate, 50)
	go func() {
		for update := range progressCh {
			switch update.Phase {
			case tasks.LoginPhase, tasks.FetchStatus, tasks.FetchChecksums:
				r.writePlain("%s\n", update.Message)
			case tasks.ScanFiles:
				r.writePlain("%s\n", update.Message)
			case tasks.UploadFiles:
				// Start updates duplicate the done line; only print completions.
				if update.Data != nil {
					r.writePlain("%s\n", update.Message)
				}
			}
		}
	}()
	defer close(progressCh)

	if _, err := engine.Login(ctx, progressCh); err != nil {
		return err
	}

	candidates, err := engine.Discover(ctx, progressCh, dirs)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		r.writePlain("No supported files found.\n")
		return nil
	}

	skipDuplicates := !cmd.Bool("no-skip-duplicates")
	plan, err := engine.Plan(ctx, progressCh, candidates, skipDuplicates)
	if err != nil {
		return err
	}

	if len(plan.Uploads) == 0 {
		r.writePlain("%s", ui.RenderPlan(plan))
		r.writePlain("Nothing to upload.\n")
		return nil
	}

	if !cmd.Bool("yes") {
		if err := r.confirmUpload(plan); err != nil {
			return err
		}
	}

	opts := tasks.ExecuteOpts{
		Tags:      cmd.StringSlice("tag"),
		Playlists: cmd.StringSlice("playlist"),
		Parallel:  !cmd.Bool("no-parallel"),
		Workers:   config.Upload.Workers,
		RateLimit: config.Upload.RateLimit,
	}
	if workers := cmd.Int("workers"); workers > 0 {
		opts.Workers = workers
	}

	result, err := engine.Execute(ctx, progressCh, plan, opts)
	if err != nil {
		return err
	}

	r.writePlain("\n%s", ui.RenderSummary(result))

	return nil
}

// confirmUpload shows the planned counts and prompts before any request is made.
//
// 'L' lists every planned file, 'U' proceeds, anything else aborts.
func (r *Runner) confirmUpload(plan *tasks.Plan) error {
	r.writePlain("Found %d files to upload (%d duplicates will be skipped).\n", len(plan.Uploads), len(plan.Skipped))

	scanner := bufio.NewScanner(r.input)
	for {
		r.writePlain("Press 'L' to list, 'U' to start the upload, or 'Q' to quit: ")
		if !scanner.Scan() {
			return shared.ErrAborted
		}

		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "l":
			r.writePlain("%s", ui.RenderPlan(plan))
		case "u":
			return nil
		default:
			return shared.ErrAborted
		}
	}
}

// loadConfigFlag reloads config from the --config path when the file exists,
// falling back to the runner's config.
func (r *Runner) loadConfigFlag(cmd *cli.Command) *shared.Config {
	path := cmd.String("config")
	if path == "" {
		return r.config
	}
	if _, err := os.Stat(path); err != nil {
		return r.config
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		r.logger.Warn("failed to load config, using defaults", "error", err)
		return r.config
	}
	return config
}
