// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"ibup/internal/models"
	"ibup/internal/services"
)

// FakeLibrary is a configurable in-memory double for [services.MusicLibrary].
//
// Safe for concurrent use; upload workers hit it from multiple goroutines.
type FakeLibrary struct {
	mu sync.Mutex

	// Configuration
	Extensions  []string            // Supported extensions (default .mp3)
	Known       map[string]struct{} // Remote checksums
	Tags        []services.Tag      // Pre-existing tags
	Playlists   []services.Playlist // Pre-existing playlists
	UploadErr   map[string]error    // Per-path upload failures
	LoginErr    error
	nextTrackID int64

	// Recorded activity
	Uploaded   []string           // Uploaded paths in arrival order
	Tagged     map[string][]int64 // Tag id -> track ids
	Appended   map[string][]int64 // Playlist id -> track ids
	LoginCalls int
}

func NewFakeLibrary() *FakeLibrary {
	return &FakeLibrary{
		Extensions: []string{".mp3"},
		Known:      map[string]struct{}{},
		UploadErr:  map[string]error{},
		Tagged:     map[string][]int64{},
		Appended:   map[string][]int64{},
	}
}

func (f *FakeLibrary) Name() string { return "fake" }

func (f *FakeLibrary) Login(ctx context.Context) (*services.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LoginCalls++
	if f.LoginErr != nil {
		return nil, f.LoginErr
	}
	return &services.Account{UserID: "1"}, nil
}

func (f *FakeLibrary) SupportedExtensions(ctx context.Context) ([]string, error) {
	return f.Extensions, nil
}

func (f *FakeLibrary) Library(ctx context.Context) (*services.Library, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &services.Library{Tags: f.Tags, Playlists: f.Playlists}, nil
}

func (f *FakeLibrary) Checksums(ctx context.Context) (map[string]struct{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	known := make(map[string]struct{}, len(f.Known))
	for sum := range f.Known {
		known[sum] = struct{}{}
	}
	return known, nil
}

func (f *FakeLibrary) Upload(ctx context.Context, path string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.UploadErr[path]; err != nil {
		return 0, err
	}
	f.nextTrackID++
	f.Uploaded = append(f.Uploaded, path)
	return f.nextTrackID, nil
}

func (f *FakeLibrary) CreateTag(ctx context.Context, name string) (services.Tag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tag := services.Tag{ID: fmt.Sprintf("tag-%d", len(f.Tags)+1), Name: name}
	f.Tags = append(f.Tags, tag)
	return tag, nil
}

func (f *FakeLibrary) TagTracks(ctx context.Context, tagID string, trackIDs []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Tagged[tagID] = append(f.Tagged[tagID], trackIDs...)
	return nil
}

func (f *FakeLibrary) CreatePlaylist(ctx context.Context, name string) (services.Playlist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pl := services.Playlist{ID: fmt.Sprintf("pl-%d", len(f.Playlists)+1), Name: name}
	f.Playlists = append(f.Playlists, pl)
	return pl, nil
}

func (f *FakeLibrary) AppendPlaylist(ctx context.Context, playlistID string, trackIDs []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Appended[playlistID] = append(f.Appended[playlistID], trackIDs...)
	return nil
}

// MemorySink is an in-memory [tasks.HistorySink].
type MemorySink struct {
	mu       sync.Mutex
	Outcomes []models.UploadOutcome
}

func (s *MemorySink) Record(outcome models.UploadOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Outcomes = append(s.Outcomes, outcome)
	return nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}
