package services

import (
	"context"
)

// MusicLibrary defines the remote operations the upload pipeline depends on.
//
// The one production implementation is [IBroadcastClient]; tests substitute
// doubles from the internal testing package.
type MusicLibrary interface {
	// Login exchanges the login token for a user id and session token.
	// Must be called before any other operation.
	Login(ctx context.Context) (*Account, error)

	// SupportedExtensions returns the file extensions the account accepts.
	SupportedExtensions(ctx context.Context) ([]string, error)

	// Library retrieves the remote library's tags and playlists.
	Library(ctx context.Context) (*Library, error)

	// Checksums returns the MD5 digests of every track already in the library.
	Checksums(ctx context.Context) (map[string]struct{}, error)

	// Upload sends one file and returns the new remote track id.
	Upload(ctx context.Context, path string) (int64, error)

	// CreateTag creates a named tag and returns it.
	CreateTag(ctx context.Context, name string) (Tag, error)

	// TagTracks applies a tag to the given tracks.
	TagTracks(ctx context.Context, tagID string, trackIDs []int64) error

	// CreatePlaylist creates a named playlist and returns it.
	CreatePlaylist(ctx context.Context, name string) (Playlist, error)

	// AppendPlaylist adds the given tracks to a playlist.
	AppendPlaylist(ctx context.Context, playlistID string, trackIDs []int64) error

	// Name returns the name of the remote service.
	Name() string
}

// Account identifies the authenticated user.
type Account struct {
	UserID string
}

// Tag is a named remote tag.
type Tag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Playlist is a named remote playlist.
type Playlist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Library holds the tag and playlist listing of a remote library.
type Library struct {
	Tags      []Tag
	Playlists []Playlist
}

// FindTag returns the tag with the given name, or false when absent.
func (l *Library) FindTag(name string) (Tag, bool) {
	for _, tag := range l.Tags {
		if tag.Name == name {
			return tag, true
		}
	}
	return Tag{}, false
}

// FindPlaylist returns the playlist with the given name, or false when absent.
func (l *Library) FindPlaylist(name string) (Playlist, bool) {
	for _, pl := range l.Playlists {
		if pl.Name == name {
			return pl, true
		}
	}
	return Playlist{}, false
}
