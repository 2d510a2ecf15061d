package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"ibup/internal/formatter"
	"ibup/internal/scanner"
	"ibup/internal/shared"
)

// defaultExtensions covers the audio formats the service accepts, for scanning
// without a login.
var defaultExtensions = []string{
	".mp3", ".m4a", ".m4p", ".aac", ".alac", ".flac", ".ogg", ".oga", ".wav", ".aiff", ".aif", ".mp4",
}

// Scan lists local files that an upload run would pick up, without logging in.
func (r *Runner) Scan(ctx context.Context, cmd *cli.Command) error {
	dirs := cmd.StringSlice("directory")
	if len(dirs) == 0 {
		dirs = []string{"."}
	}

	extensions := cmd.StringSlice("ext")
	if len(extensions) == 0 {
		extensions = defaultExtensions
	}

	candidates, err := scanner.Discover(dirs, scanner.NewExtensionSet(extensions))
	if err != nil {
		return err
	}

	if cmd.Bool("checksum") {
		for i := range candidates {
			sum, err := scanner.Checksum(candidates[i].Path)
			if err != nil {
				return err
			}
			candidates[i].Checksum = sum
		}
	}

	format := cmd.String("format")
	outputPath := cmd.String("output")

	var data []byte
	switch format {
	case "csv":
		data, err = formatter.ExportCandidatesToCSV(candidates)
	case "markdown", "md":
		data, err = formatter.ExportCandidatesToMarkdown("Scan results", candidates)
	case "json":
		data, err = shared.MarshalJSON(candidates, true)
		data = append(data, '\n')
	case "text", "":
		data, err = formatter.ExportCandidatesToText(candidates)
	default:
		return fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}
	if err != nil {
		return err
	}

	if outputPath != "" {
		if err := formatter.WriteExport(data, outputPath); err != nil {
			return err
		}
		return r.writePlain("Wrote %s listing to %s\n", format, outputPath)
	}

	return r.writePlain("%s", data)
}
