// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// uploadCommand runs the full upload pipeline
func uploadCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "upload",
		Aliases: []string{"up"},
		Usage:   "Upload audio files to your library",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "token",
			},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.StringSliceFlag{
				Name:    "directory",
				Aliases: []string{"d"},
				Usage:   "Directory to scan for audio files (repeatable)",
			},
			&cli.StringSliceFlag{
				Name:    "tag",
				Aliases: []string{"t"},
				Usage:   "Tag to apply to every uploaded track (repeatable)",
			},
			&cli.StringSliceFlag{
				Name:    "playlist",
				Aliases: []string{"p"},
				Usage:   "Playlist to add every uploaded track to (repeatable)",
			},
			&cli.BoolFlag{
				Name:  "no-parallel",
				Usage: "Upload one file at a time",
			},
			&cli.BoolFlag{
				Name:  "no-skip-duplicates",
				Usage: "Upload files even when the library already has their content",
			},
			&cli.BoolFlag{
				Name:    "yes",
				Aliases: []string{"y"},
				Usage:   "Skip the confirmation prompt",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Concurrent upload workers (max 10)",
			},
			&cli.BoolFlag{
				Name:  "history",
				Usage: "Record upload outcomes in the local history database",
			},
		},
		Action: r.Upload,
	}
}

// scanCommand previews which local files would be picked up
func scanCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "scan",
		Usage: "List local audio files without uploading",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "directory",
				Aliases: []string{"d"},
				Usage:   "Directory to scan for audio files (repeatable)",
			},
			&cli.StringSliceFlag{
				Name:    "ext",
				Aliases: []string{"e"},
				Usage:   "File extension to include (repeatable, defaults to common audio formats)",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: text, csv, markdown, or json",
				Value:   "text",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the listing to a file instead of stdout",
			},
			&cli.BoolFlag{
				Name:  "checksum",
				Usage: "Compute content checksums while scanning",
			},
		},
		Action: r.Scan,
	}
}

// libraryCommand inspects the remote library
func libraryCommand(r *Runner) *cli.Command {
	tokenArg := func() []cli.Argument {
		return []cli.Argument{
			&cli.StringArg{
				Name: "token",
			},
		}
	}
	jsonFlags := func() []cli.Flag {
		return []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
				Value: true,
			},
		}
	}

	return &cli.Command{
		Name:    "library",
		Aliases: []string{"lib"},
		Usage:   "Inspect the remote library",
		Commands: []*cli.Command{
			{
				Name:      "tags",
				Usage:     "List library tags",
				Arguments: tokenArg(),
				Flags:     jsonFlags(),
				Action:    r.LibraryTags,
			},
			{
				Name:      "playlists",
				Usage:     "List library playlists",
				Arguments: tokenArg(),
				Flags:     jsonFlags(),
				Action:    r.LibraryPlaylists,
			},
			{
				Name:      "checksums",
				Usage:     "Count uploaded content checksums",
				Arguments: tokenArg(),
				Flags:     jsonFlags(),
				Action:    r.LibraryChecksums,
			},
		},
	}
}

// historyCommand reads and clears the local upload log
func historyCommand(r *Runner) *cli.Command {
	configFlag := func() cli.Flag {
		return &cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file",
			Value:   "config.toml",
		}
	}

	return &cli.Command{
		Name:  "history",
		Usage: "Local upload history",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List recorded upload outcomes, newest first",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:  "status",
						Usage: "Filter by outcome: uploaded, skipped, or failed",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of rows to return",
						Value: 50,
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: text or csv",
						Value:   "text",
					},
				},
				Action: r.HistoryList,
			},
			{
				Name:  "clear",
				Usage: "Clear the upload history",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:    "yes",
						Aliases: []string{"y"},
						Usage:   "Skip the confirmation prompt",
					},
				},
				Action: r.HistoryClear,
			},
		},
	}
}

// setupCommand initializes local state
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize database and run migrations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.SetupDatabase,
	}
}
