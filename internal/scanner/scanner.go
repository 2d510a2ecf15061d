// Package scanner discovers local audio files eligible for upload.
//
// Discovery walks each root directory recursively, skipping hidden files and
// directories, and keeps files whose extension appears in the account's
// supported list. Each file is considered exactly once even when roots overlap.
package scanner

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"ibup/internal/models"
)

// ExtensionSet holds supported file extensions for case-insensitive lookup.
type ExtensionSet map[string]struct{}

// NewExtensionSet builds an ExtensionSet from extensions as reported by the
// account status endpoint (e.g. ".mp3", ".flac").
func NewExtensionSet(extensions []string) ExtensionSet {
	set := make(ExtensionSet, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[ext] = struct{}{}
	}
	return set
}

// Contains reports whether the set contains the extension of the given path.
func (s ExtensionSet) Contains(path string) bool {
	_, ok := s[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Discover walks the given root directories and returns candidates for every
// supported, non-hidden file, sorted by path. Candidates carry no checksum yet.
func Discover(roots []string, exts ExtensionSet) ([]models.Candidate, error) {
	seen := make(map[string]struct{})
	var candidates []models.Candidate

	for _, root := range roots {
		absRoot, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve directory %s: %w", root, err)
		}

		err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			name := d.Name()
			if strings.HasPrefix(name, ".") && path != absRoot {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			if d.IsDir() || !exts.Contains(path) {
				return nil
			}

			if _, dup := seen[path]; dup {
				return nil
			}
			seen[path] = struct{}{}

			info, err := d.Info()
			if err != nil {
				return err
			}

			candidates = append(candidates, models.Candidate{
				Path: path,
				Size: info.Size(),
			})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan directory %s: %w", root, err)
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Path < candidates[j].Path
	})

	return candidates, nil
}
