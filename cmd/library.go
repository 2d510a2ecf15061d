package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"ibup/internal/services"
)

// fetchLibrary logs in with the token argument and retrieves the library document.
func (r *Runner) fetchLibrary(ctx context.Context, cmd *cli.Command) (*services.Library, error) {
	lib, err := r.libraryFor(cmd.StringArg("token"))
	if err != nil {
		return nil, err
	}

	if _, err := lib.Login(ctx); err != nil {
		return nil, err
	}

	return lib.Library(ctx)
}

// LibraryTags lists the remote library's tags.
func (r *Runner) LibraryTags(ctx context.Context, cmd *cli.Command) error {
	library, err := r.fetchLibrary(ctx, cmd)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(library.Tags, cmd.Bool("pretty"))
	}

	if len(library.Tags) == 0 {
		return r.writePlain("No tags in library.\n")
	}

	r.writePlainHeader("Tags")
	for _, tag := range library.Tags {
		r.writePlain("%s (%s)\n", tag.Name, tag.ID)
	}
	return nil
}

// LibraryPlaylists lists the remote library's playlists.
func (r *Runner) LibraryPlaylists(ctx context.Context, cmd *cli.Command) error {
	library, err := r.fetchLibrary(ctx, cmd)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(library.Playlists, cmd.Bool("pretty"))
	}

	if len(library.Playlists) == 0 {
		return r.writePlain("No playlists in library.\n")
	}

	r.writePlainHeader("Playlists")
	for _, pl := range library.Playlists {
		r.writePlain("%s (%s)\n", pl.Name, pl.ID)
	}
	return nil
}

// LibraryChecksums reports how many distinct track checksums the library holds.
func (r *Runner) LibraryChecksums(ctx context.Context, cmd *cli.Command) error {
	lib, err := r.libraryFor(cmd.StringArg("token"))
	if err != nil {
		return err
	}

	if _, err := lib.Login(ctx); err != nil {
		return err
	}

	checksums, err := lib.Checksums(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(map[string]int{"checksums": len(checksums)}, cmd.Bool("pretty"))
	}

	return r.writePlain("Library holds %d uploaded tracks.\n", len(checksums))
}
