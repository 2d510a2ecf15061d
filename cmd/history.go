package main

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"ibup/internal/formatter"
	"ibup/internal/repositories"
	"ibup/internal/shared"
	"ibup/internal/ui"
)

// openHistoryDB opens the history database from the active config.
func (r *Runner) openHistoryDB(cmd *cli.Command) (*sql.DB, error) {
	config := r.loadConfigFlag(cmd)

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database (run 'ibup setup' first): %w", err)
	}
	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	return db, nil
}

// HistoryList prints recorded upload outcomes, newest first.
func (r *Runner) HistoryList(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openHistoryDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	repo := repositories.NewUploadRepository(db)
	rows, err := repo.List(map[string]any{
		"status": cmd.String("status"),
		"limit":  cmd.Int("limit"),
	})
	if err != nil {
		return err
	}

	switch cmd.String("format") {
	case "csv":
		data, err := formatter.ExportHistoryToCSV(rows)
		if err != nil {
			return err
		}
		return r.writePlain("%s", data)
	case "text", "":
		return r.writePlain("%s", ui.RenderHistory(rows))
	default:
		return fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, cmd.String("format"))
	}
}

// HistoryClear soft-deletes every history row.
func (r *Runner) HistoryClear(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openHistoryDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	if !cmd.Bool("yes") {
		r.writePlain("Clear all upload history? [y/N]: ")
		scanner := bufio.NewScanner(r.input)
		if !scanner.Scan() || strings.ToLower(strings.TrimSpace(scanner.Text())) != "y" {
			return shared.ErrAborted
		}
	}

	repo := repositories.NewUploadRepository(db)
	cleared, err := repo.Clear()
	if err != nil {
		return err
	}

	return r.writePlain("Cleared %d history rows.\n", cleared)
}
