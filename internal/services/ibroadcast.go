// iBroadcast implementation of [MusicLibrary]
//
// The service exposes three endpoints: a mode-based JSON RPC endpoint for
// account and tag/playlist operations, a library endpoint returning the full
// library document, and an upload endpoint accepting multipart file posts.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"ibup/internal/shared"
)

const (
	defaultAPIURL     = "https://api.ibroadcast.com/"
	defaultLibraryURL = "https://library.ibroadcast.com/"
	defaultUploadURL  = "https://upload.ibroadcast.com/"

	clientName = "ibup"
	appVersion = "0.1.0"
	appID      = 1014
	userAgent  = clientName + " " + appVersion
)

// The upload endpoint reports the new track id only inside its status message.
var trackIDPattern = regexp.MustCompile(`^File .* \((\d+)\) uploaded successfully and is being processed\.`)

// IBroadcastClient implements [MusicLibrary] against the iBroadcast HTTP API.
//
// Login must complete before any other call. The session fields are written
// once by Login and only read afterwards, so concurrent uploads after login
// need no synchronization.
type IBroadcastClient struct {
	apiURL     string
	libraryURL string
	uploadURL  string

	loginToken string
	httpClient *http.Client

	userID json.Number
	token  string
}

// IBroadcastOpts contains construction options for the client.
// Zero values fall back to the production endpoints and [http.DefaultClient].
type IBroadcastOpts struct {
	APIURL     string
	LibraryURL string
	UploadURL  string
	HTTPClient *http.Client
}

// NewIBroadcastClient creates a client for the given login token.
func NewIBroadcastClient(loginToken string, opts IBroadcastOpts) *IBroadcastClient {
	if opts.APIURL == "" {
		opts.APIURL = defaultAPIURL
	}
	if opts.LibraryURL == "" {
		opts.LibraryURL = defaultLibraryURL
	}
	if opts.UploadURL == "" {
		opts.UploadURL = defaultUploadURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &IBroadcastClient{
		apiURL:     opts.APIURL,
		libraryURL: opts.LibraryURL,
		uploadURL:  opts.UploadURL,
		loginToken: loginToken,
		httpClient: opts.HTTPClient,
	}
}

func (c *IBroadcastClient) Name() string {
	return "iBroadcast"
}

// basePayload returns the identification fields every JSON request carries,
// plus session fields once Login has run.
func (c *IBroadcastClient) basePayload() map[string]any {
	payload := map[string]any{
		"app_id":      appID,
		"version":     appVersion,
		"client":      clientName,
		"device_name": clientName,
		"user_agent":  userAgent,
	}
	if c.userID != "" {
		payload["user_id"] = c.userID
		payload["token"] = c.token
	}
	return payload
}

// post sends a request and returns the decoded JSON body.
func (c *IBroadcastClient) post(ctx context.Context, rawURL, contentType string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", contentType)
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: server returned status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return raw, nil
}

// apiRequest performs a mode-based JSON call against the API endpoint.
func (c *IBroadcastClient) apiRequest(ctx context.Context, mode string, data map[string]any, result any) error {
	payload := c.basePayload()
	payload["mode"] = mode
	for k, v := range data {
		payload[k] = v
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	raw, err := c.post(ctx, c.apiURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}

	if err := checkResult(raw); err != nil {
		return err
	}

	if result != nil {
		if err := json.Unmarshal(raw, result); err != nil {
			return fmt.Errorf("%w: %v", shared.ErrUnexpectedResponse, err)
		}
	}

	return nil
}

// checkResult fails when the body is not JSON or carries an explicit
// "result": false. Result-less mutations rely on this, so a non-JSON 200
// must not count as success.
func checkResult(raw []byte) error {
	var envelope struct {
		Result  *bool  `json:"result"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrUnexpectedResponse, err)
	}
	if envelope.Result != nil && !*envelope.Result {
		if envelope.Message != "" {
			return fmt.Errorf("%w: %s", shared.ErrServerRejected, envelope.Message)
		}
		return shared.ErrServerRejected
	}
	return nil
}

// Login exchanges the login token for the user id and session token.
func (c *IBroadcastClient) Login(ctx context.Context) (*Account, error) {
	var resp struct {
		User *struct {
			ID    json.Number `json:"id"`
			Token string      `json:"token"`
		} `json:"user"`
		Message string `json:"message"`
	}

	err := c.apiRequest(ctx, "login_token", map[string]any{
		"login_token": c.loginToken,
		"type":        "account",
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrLoginFailed, err)
	}

	if resp.User == nil || resp.User.Token == "" {
		if resp.Message != "" {
			return nil, fmt.Errorf("%w: %s", shared.ErrLoginFailed, resp.Message)
		}
		return nil, shared.ErrLoginFailed
	}

	c.userID = resp.User.ID
	c.token = resp.User.Token

	return &Account{UserID: resp.User.ID.String()}, nil
}

// SupportedExtensions returns the file extensions the account accepts.
func (c *IBroadcastClient) SupportedExtensions(ctx context.Context) ([]string, error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}

	var resp struct {
		User      json.RawMessage `json:"user"`
		Supported []struct {
			Extension string `json:"extension"`
		} `json:"supported"`
		Message string `json:"message"`
	}

	err := c.apiRequest(ctx, "status", map[string]any{"supported_types": 1}, &resp)
	if err != nil {
		return nil, err
	}

	if len(resp.User) == 0 {
		return nil, fmt.Errorf("%w: %s", shared.ErrUnexpectedResponse, resp.Message)
	}

	extensions := make([]string, 0, len(resp.Supported))
	for _, ft := range resp.Supported {
		extensions = append(extensions, ft.Extension)
	}

	return extensions, nil
}

// Library retrieves the remote library's tags and playlists.
func (c *IBroadcastClient) Library(ctx context.Context) (*Library, error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}

	body, err := json.Marshal(c.basePayload())
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	raw, err := c.post(ctx, c.libraryURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	if err := checkResult(raw); err != nil {
		return nil, err
	}

	var resp struct {
		Library struct {
			Tags map[string]struct {
				Name string `json:"name"`
			} `json:"tags"`
			Playlists map[string]json.RawMessage `json:"playlists"`
		} `json:"library"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrUnexpectedResponse, err)
	}

	library := &Library{}
	for id, tag := range resp.Library.Tags {
		library.Tags = append(library.Tags, Tag{ID: id, Name: tag.Name})
	}

	playlists, err := decodePlaylists(resp.Library.Playlists)
	if err != nil {
		return nil, err
	}
	library.Playlists = playlists

	return library, nil
}

// decodePlaylists flattens the library's playlist table.
//
// Playlists arrive keyed by id with each value being a positional row; the
// reserved "map" entry gives the column index for each field name.
func decodePlaylists(table map[string]json.RawMessage) ([]Playlist, error) {
	if len(table) == 0 {
		return nil, nil
	}

	rawMap, ok := table["map"]
	if !ok {
		return nil, fmt.Errorf("%w: playlist field map missing", shared.ErrUnexpectedResponse)
	}

	var fields map[string]int
	if err := json.Unmarshal(rawMap, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrUnexpectedResponse, err)
	}

	nameIdx, ok := fields["name"]
	if !ok {
		return nil, fmt.Errorf("%w: playlist name field missing", shared.ErrUnexpectedResponse)
	}

	var playlists []Playlist
	for id, rawRow := range table {
		if id == "map" {
			continue
		}

		var row []json.RawMessage
		if err := json.Unmarshal(rawRow, &row); err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrUnexpectedResponse, err)
		}
		if nameIdx >= len(row) {
			return nil, fmt.Errorf("%w: playlist row too short", shared.ErrUnexpectedResponse)
		}

		var name string
		if err := json.Unmarshal(row[nameIdx], &name); err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrUnexpectedResponse, err)
		}

		playlists = append(playlists, Playlist{ID: id, Name: name})
	}

	return playlists, nil
}

// Checksums returns the MD5 digests of everything already in the library.
//
// A bare form post against the upload endpoint returns the digest listing.
func (c *IBroadcastClient) Checksums(ctx context.Context) (map[string]struct{}, error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("user_id", c.userID.String())
	form.Set("token", c.token)

	raw, err := c.post(ctx, c.uploadURL, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	if err := checkResult(raw); err != nil {
		return nil, err
	}

	var resp struct {
		MD5 []string `json:"md5"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrUnexpectedResponse, err)
	}

	checksums := make(map[string]struct{}, len(resp.MD5))
	for _, sum := range resp.MD5 {
		checksums[sum] = struct{}{}
	}

	return checksums, nil
}

// Upload sends one file as a multipart post and returns the new track id.
func (c *IBroadcastClient) Upload(ctx context.Context, path string) (int64, error) {
	if err := c.requireSession(); err != nil {
		return 0, err
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	// The form is piped into the request so a large lossless file is never
	// held in memory; writer errors surface through the pipe on the read side.
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(func() error {
			fields := map[string]string{
				"user_id":   c.userID.String(),
				"token":     c.token,
				"file_path": path,
				"method":    clientName,
			}
			for k, v := range fields {
				if err := mw.WriteField(k, v); err != nil {
					return fmt.Errorf("failed to encode upload form: %w", err)
				}
			}

			part, err := mw.CreateFormFile("file", filepath.Base(path))
			if err != nil {
				return fmt.Errorf("failed to encode upload form: %w", err)
			}
			if _, err := io.Copy(part, f); err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}
			return mw.Close()
		}())
	}()

	raw, err := c.post(ctx, c.uploadURL, mw.FormDataContentType(), pr)
	if err != nil {
		return 0, err
	}

	var resp struct {
		Result  bool   `json:"result"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return 0, fmt.Errorf("%w: %v", shared.ErrUnexpectedResponse, err)
	}
	if !resp.Result {
		if resp.Message != "" {
			return 0, fmt.Errorf("%w: %s", shared.ErrUploadFailed, resp.Message)
		}
		return 0, shared.ErrUploadFailed
	}

	match := trackIDPattern.FindStringSubmatch(resp.Message)
	if match == nil {
		return 0, fmt.Errorf("%w: %q", shared.ErrUnexpectedResponse, resp.Message)
	}

	trackID, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", shared.ErrUnexpectedResponse, resp.Message)
	}

	return trackID, nil
}

// CreateTag creates a named tag and returns it.
func (c *IBroadcastClient) CreateTag(ctx context.Context, name string) (Tag, error) {
	if err := c.requireSession(); err != nil {
		return Tag{}, err
	}

	var resp struct {
		ID json.Number `json:"id"`
	}
	if err := c.apiRequest(ctx, "createtag", map[string]any{"tagname": name}, &resp); err != nil {
		return Tag{}, fmt.Errorf("failed to create tag %s: %w", name, err)
	}

	return Tag{ID: resp.ID.String(), Name: name}, nil
}

// TagTracks applies a tag to the given tracks.
func (c *IBroadcastClient) TagTracks(ctx context.Context, tagID string, trackIDs []int64) error {
	if err := c.requireSession(); err != nil {
		return err
	}

	err := c.apiRequest(ctx, "tagtracks", map[string]any{
		"tagid":  tagID,
		"tracks": trackIDs,
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to tag tracks: %w", err)
	}

	return nil
}

// CreatePlaylist creates a named playlist and returns it.
func (c *IBroadcastClient) CreatePlaylist(ctx context.Context, name string) (Playlist, error) {
	if err := c.requireSession(); err != nil {
		return Playlist{}, err
	}

	var resp struct {
		PlaylistID json.Number `json:"playlist_id"`
	}
	if err := c.apiRequest(ctx, "createplaylist", map[string]any{"name": name}, &resp); err != nil {
		return Playlist{}, fmt.Errorf("failed to create playlist %s: %w", name, err)
	}

	return Playlist{ID: resp.PlaylistID.String(), Name: name}, nil
}

// AppendPlaylist adds the given tracks to a playlist.
func (c *IBroadcastClient) AppendPlaylist(ctx context.Context, playlistID string, trackIDs []int64) error {
	if err := c.requireSession(); err != nil {
		return err
	}

	err := c.apiRequest(ctx, "appendplaylist", map[string]any{
		"playlist": playlistID,
		"tracks":   trackIDs,
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to append to playlist: %w", err)
	}

	return nil
}

func (c *IBroadcastClient) requireSession() error {
	if c.token == "" {
		return fmt.Errorf("%w: call Login first", shared.ErrNotAuthenticated)
	}
	return nil
}
