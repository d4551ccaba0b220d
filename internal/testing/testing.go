// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"slices"
	"sync"
	"testing"

	"github.com/desertthunder/ytmigrate/internal/models"
	"github.com/desertthunder/ytmigrate/internal/services"
)

// FakeSource is an in-memory [services.Source].
type FakeSource struct {
	Lists    []models.Playlist
	Tracks   map[string][]models.Track
	Liked    []models.Track
	ListErr  error
	TrackErr map[string]error

	mu    sync.Mutex
	calls []string
}

func (f *FakeSource) Authenticate(ctx context.Context, credentials map[string]string) error { return nil }
func (f *FakeSource) Name() string                                                           { return "fake source" }

func (f *FakeSource) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

// Calls returns the recorded calls in order, e.g. "tracks:p1".
func (f *FakeSource) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

func (f *FakeSource) Playlists(ctx context.Context) ([]models.Playlist, error) {
	f.record("playlists")
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	return slices.Clone(f.Lists), nil
}

func (f *FakeSource) PlaylistTracks(ctx context.Context, playlistID string) ([]models.Track, error) {
	f.record("tracks:" + playlistID)
	if err := f.TrackErr[playlistID]; err != nil {
		return nil, err
	}
	return slices.Clone(f.Tracks[playlistID]), nil
}

func (f *FakeSource) LikedTracks(ctx context.Context) ([]models.Track, error) {
	f.record("liked")
	return slices.Clone(f.Liked), nil
}

// CreateCall is one recorded [FakeDestination.CreatePlaylist] call.
type CreateCall struct {
	Title       string
	Description string
	Privacy     string
}

// AddCall is one recorded [FakeDestination.AddPlaylistItems] call.
type AddCall struct {
	PlaylistID string
	VideoIDs   []string
}

// FakeDestination is an in-memory [services.Destination]. Search results are keyed by the exact query; queries
// with no entry return no results.
type FakeDestination struct {
	Results map[string][]services.SearchResult

	// SearchErrs, CreateErrs and AddErrs are consumed one per call before the call succeeds.
	SearchErrs []error
	CreateErrs []error
	AddErrs    []error
	LibraryErr error

	mu        sync.Mutex
	library   []models.Playlist
	items     map[string][]string
	searches  []string
	creates   []CreateCall
	adds      []AddCall
	libraries int
	nextID    int
}

// NewFakeDestination creates a destination whose library holds playlists.
func NewFakeDestination(playlists ...models.Playlist) *FakeDestination {
	return &FakeDestination{
		Results: make(map[string][]services.SearchResult),
		library: slices.Clone(playlists),
		items:   make(map[string][]string),
	}
}

func (f *FakeDestination) Authenticate(ctx context.Context, credentials map[string]string) error {
	return nil
}
func (f *FakeDestination) Name() string { return "fake destination" }

// SetItems seeds the contents of a playlist.
func (f *FakeDestination) SetItems(playlistID string, videoIDs ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[playlistID] = slices.Clone(videoIDs)
}

// Items returns the current contents of a playlist.
func (f *FakeDestination) Items(playlistID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.items[playlistID])
}

// Searches returns every query received.
func (f *FakeDestination) Searches() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.searches)
}

// Creates returns every create request received, including failed ones.
func (f *FakeDestination) Creates() []CreateCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.creates)
}

// Adds returns every add request received, including failed ones.
func (f *FakeDestination) Adds() []AddCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.adds)
}

// Mutations counts create and add requests.
func (f *FakeDestination) Mutations() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.creates) + len(f.adds)
}

// LibraryCalls counts library listings.
func (f *FakeDestination) LibraryCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.libraries
}

func pop(errs *[]error) error {
	if len(*errs) == 0 {
		return nil
	}
	err := (*errs)[0]
	*errs = (*errs)[1:]
	return err
}

func (f *FakeDestination) SearchSongs(ctx context.Context, query string) ([]services.SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches = append(f.searches, query)
	if err := pop(&f.SearchErrs); err != nil {
		return nil, err
	}
	return slices.Clone(f.Results[query]), nil
}

func (f *FakeDestination) LibraryPlaylists(ctx context.Context) ([]models.Playlist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.libraries++
	if f.LibraryErr != nil {
		return nil, f.LibraryErr
	}
	return slices.Clone(f.library), nil
}

func (f *FakeDestination) PlaylistTrackIDs(ctx context.Context, playlistID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.items[playlistID]), nil
}

func (f *FakeDestination) CreatePlaylist(ctx context.Context, title, description, privacy string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates = append(f.creates, CreateCall{Title: title, Description: description, Privacy: privacy})
	if err := pop(&f.CreateErrs); err != nil {
		return "", err
	}

	f.nextID++
	id := fmt.Sprintf("PL%d", f.nextID)
	f.library = append(f.library, models.Playlist{ID: id, Name: title})
	f.items[id] = []string{}
	return id, nil
}

func (f *FakeDestination) AddPlaylistItems(ctx context.Context, playlistID string, videoIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.adds = append(f.adds, AddCall{PlaylistID: playlistID, VideoIDs: slices.Clone(videoIDs)})
	if err := pop(&f.AddErrs); err != nil {
		return err
	}
	f.items[playlistID] = append(f.items[playlistID], videoIDs...)
	return nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
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

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertFileMissing(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("File should not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
