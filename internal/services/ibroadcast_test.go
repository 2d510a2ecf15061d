package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"ibup/internal/shared"
)

// fakeHost serves the three iBroadcast endpoints on one test server.
type fakeHost struct {
	server *httptest.Server

	// Last JSON payload seen per mode, for request assertions.
	payloads map[string]map[string]any

	// Uploaded file names in arrival order.
	uploaded []string

	apiHandler     func(mode string, payload map[string]any, w http.ResponseWriter)
	libraryHandler func(w http.ResponseWriter)
	uploadHandler  func(r *http.Request, w http.ResponseWriter)
}

func newFakeHost(t *testing.T) *fakeHost {
	t.Helper()

	h := &fakeHost{payloads: map[string]map[string]any{}}

	mux := http.NewServeMux()
	mux.HandleFunc("/api", func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("api request body is not JSON: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		mode, _ := payload["mode"].(string)
		h.payloads[mode] = payload

		if h.apiHandler != nil {
			h.apiHandler(mode, payload, w)
			return
		}
		http.Error(w, "unexpected api call", http.StatusInternalServerError)
	})
	mux.HandleFunc("/library", func(w http.ResponseWriter, r *http.Request) {
		if h.libraryHandler != nil {
			h.libraryHandler(w)
			return
		}
		http.Error(w, "unexpected library call", http.StatusInternalServerError)
	})
	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		if h.uploadHandler != nil {
			h.uploadHandler(r, w)
			return
		}
		http.Error(w, "unexpected upload call", http.StatusInternalServerError)
	})

	h.server = httptest.NewServer(mux)
	t.Cleanup(h.server.Close)
	return h
}

func (h *fakeHost) client(token string) *IBroadcastClient {
	return NewIBroadcastClient(token, IBroadcastOpts{
		APIURL:     h.server.URL + "/api",
		LibraryURL: h.server.URL + "/library",
		UploadURL:  h.server.URL + "/upload",
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// loginOK answers login_token with a fixed session.
func loginOK(mode string, payload map[string]any, w http.ResponseWriter) bool {
	if mode != "login_token" {
		return false
	}
	writeJSON(w, map[string]any{
		"user": map[string]any{"id": 42, "token": "session-token"},
	})
	return true
}

func TestIBroadcastClient(t *testing.T) {
	ctx := context.Background()

	t.Run("Login", func(t *testing.T) {
		t.Run("Success", func(t *testing.T) {
			host := newFakeHost(t)
			host.apiHandler = func(mode string, payload map[string]any, w http.ResponseWriter) {
				loginOK(mode, payload, w)
			}

			c := host.client("tok")
			account, err := c.Login(ctx)
			if err != nil {
				t.Fatalf("login failed: %v", err)
			}
			if account.UserID != "42" {
				t.Errorf("expected user id 42, got %s", account.UserID)
			}

			payload := host.payloads["login_token"]
			if payload["login_token"] != "tok" {
				t.Errorf("expected login_token tok, got %v", payload["login_token"])
			}
			if payload["type"] != "account" {
				t.Errorf("expected type account, got %v", payload["type"])
			}
			if payload["app_id"] == nil || payload["client"] == nil {
				t.Error("expected client identification payload")
			}
		})

		t.Run("Rejected Token", func(t *testing.T) {
			host := newFakeHost(t)
			host.apiHandler = func(mode string, payload map[string]any, w http.ResponseWriter) {
				writeJSON(w, map[string]any{"message": "Invalid token"})
			}

			_, err := host.client("bad").Login(ctx)
			if !errors.Is(err, shared.ErrLoginFailed) {
				t.Errorf("expected ErrLoginFailed, got %v", err)
			}
			if err == nil || !strings.Contains(err.Error(), "Invalid token") {
				t.Errorf("expected server message in error, got %v", err)
			}
		})

		t.Run("Bad Status", func(t *testing.T) {
			host := newFakeHost(t)
			host.apiHandler = func(mode string, payload map[string]any, w http.ResponseWriter) {
				w.WriteHeader(http.StatusBadGateway)
			}

			_, err := host.client("tok").Login(ctx)
			if !errors.Is(err, shared.ErrAPIRequest) {
				t.Errorf("expected ErrAPIRequest, got %v", err)
			}
			if !errors.Is(err, shared.ErrLoginFailed) {
				t.Errorf("expected ErrLoginFailed in chain, got %v", err)
			}
		})
	})

	t.Run("Requires Session", func(t *testing.T) {
		host := newFakeHost(t)
		c := host.client("tok")

		if _, err := c.SupportedExtensions(ctx); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
		if _, err := c.Upload(ctx, "x.mp3"); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
		if _, err := c.Checksums(ctx); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("SupportedExtensions", func(t *testing.T) {
		host := newFakeHost(t)
		host.apiHandler = func(mode string, payload map[string]any, w http.ResponseWriter) {
			if loginOK(mode, payload, w) {
				return
			}
			if mode != "status" {
				t.Errorf("unexpected mode %s", mode)
			}
			writeJSON(w, map[string]any{
				"user": map[string]any{"id": 42},
				"supported": []map[string]any{
					{"extension": ".mp3"},
					{"extension": ".flac"},
				},
			})
		}

		c := host.client("tok")
		if _, err := c.Login(ctx); err != nil {
			t.Fatalf("login failed: %v", err)
		}

		exts, err := c.SupportedExtensions(ctx)
		if err != nil {
			t.Fatalf("status failed: %v", err)
		}

		sort.Strings(exts)
		if len(exts) != 2 || exts[0] != ".flac" || exts[1] != ".mp3" {
			t.Errorf("unexpected extensions %v", exts)
		}

		payload := host.payloads["status"]
		if payload["user_id"] == nil || payload["token"] != "session-token" {
			t.Error("expected session fields on status request")
		}
	})

	t.Run("Library", func(t *testing.T) {
		host := newFakeHost(t)
		host.apiHandler = func(mode string, payload map[string]any, w http.ResponseWriter) {
			loginOK(mode, payload, w)
		}
		host.libraryHandler = func(w http.ResponseWriter) {
			writeJSON(w, map[string]any{
				"library": map[string]any{
					"tags": map[string]any{
						"11": map[string]any{"name": "chill"},
						"12": map[string]any{"name": "running"},
					},
					"playlists": map[string]any{
						"map": map[string]int{"tracks": 0, "name": 1, "public": 2},
						"7":   []any{[]int{1, 2}, "Morning", 0},
						"9":   []any{[]int{}, "Evening", 1},
					},
				},
			})
		}

		c := host.client("tok")
		if _, err := c.Login(ctx); err != nil {
			t.Fatalf("login failed: %v", err)
		}

		library, err := c.Library(ctx)
		if err != nil {
			t.Fatalf("library failed: %v", err)
		}

		if len(library.Tags) != 2 {
			t.Fatalf("expected 2 tags, got %d", len(library.Tags))
		}
		tag, ok := library.FindTag("chill")
		if !ok || tag.ID != "11" {
			t.Errorf("expected tag chill with id 11, got %+v ok=%v", tag, ok)
		}

		if len(library.Playlists) != 2 {
			t.Fatalf("expected 2 playlists, got %d", len(library.Playlists))
		}
		pl, ok := library.FindPlaylist("Morning")
		if !ok || pl.ID != "7" {
			t.Errorf("expected playlist Morning with id 7, got %+v ok=%v", pl, ok)
		}
		if _, ok := library.FindPlaylist("map"); ok {
			t.Error("field map row must not be decoded as a playlist")
		}
	})

	t.Run("Checksums", func(t *testing.T) {
		host := newFakeHost(t)
		host.apiHandler = func(mode string, payload map[string]any, w http.ResponseWriter) {
			loginOK(mode, payload, w)
		}
		host.uploadHandler = func(r *http.Request, w http.ResponseWriter) {
			if err := r.ParseForm(); err != nil {
				t.Errorf("checksums request is not a form post: %v", err)
			}
			if r.PostFormValue("user_id") != "42" || r.PostFormValue("token") != "session-token" {
				t.Error("expected session fields on checksum request")
			}
			writeJSON(w, map[string]any{"md5": []string{"aaa", "bbb"}})
		}

		c := host.client("tok")
		if _, err := c.Login(ctx); err != nil {
			t.Fatalf("login failed: %v", err)
		}

		sums, err := c.Checksums(ctx)
		if err != nil {
			t.Fatalf("checksums failed: %v", err)
		}
		if len(sums) != 2 {
			t.Fatalf("expected 2 checksums, got %d", len(sums))
		}
		if _, ok := sums["aaa"]; !ok {
			t.Error("expected checksum aaa")
		}
	})

	t.Run("Upload", func(t *testing.T) {
		uploadFile := func(t *testing.T) string {
			t.Helper()
			path := filepath.Join(t.TempDir(), "song.mp3")
			if err := os.WriteFile(path, []byte("audio-bytes"), 0644); err != nil {
				t.Fatalf("failed to write file: %v", err)
			}
			return path
		}

		t.Run("Success", func(t *testing.T) {
			host := newFakeHost(t)
			host.apiHandler = func(mode string, payload map[string]any, w http.ResponseWriter) {
				loginOK(mode, payload, w)
			}
			host.uploadHandler = func(r *http.Request, w http.ResponseWriter) {
				if err := r.ParseMultipartForm(1 << 20); err != nil {
					t.Errorf("upload is not multipart: %v", err)
					w.WriteHeader(http.StatusBadRequest)
					return
				}
				if r.PostFormValue("method") != "ibup" {
					t.Errorf("expected method ibup, got %s", r.PostFormValue("method"))
				}
				if r.PostFormValue("file_path") == "" {
					t.Error("expected file_path field")
				}

				file, header, err := r.FormFile("file")
				if err != nil {
					t.Errorf("missing file part: %v", err)
					w.WriteHeader(http.StatusBadRequest)
					return
				}
				defer file.Close()
				host.uploaded = append(host.uploaded, header.Filename)

				writeJSON(w, map[string]any{
					"result":  true,
					"message": "File " + header.Filename + " (1234) uploaded successfully and is being processed.",
				})
			}

			c := host.client("tok")
			if _, err := c.Login(ctx); err != nil {
				t.Fatalf("login failed: %v", err)
			}

			trackID, err := c.Upload(ctx, uploadFile(t))
			if err != nil {
				t.Fatalf("upload failed: %v", err)
			}
			if trackID != 1234 {
				t.Errorf("expected track id 1234, got %d", trackID)
			}
			if len(host.uploaded) != 1 || host.uploaded[0] != "song.mp3" {
				t.Errorf("unexpected uploads %v", host.uploaded)
			}
		})

		t.Run("Server Rejects File", func(t *testing.T) {
			host := newFakeHost(t)
			host.apiHandler = func(mode string, payload map[string]any, w http.ResponseWriter) {
				loginOK(mode, payload, w)
			}
			host.uploadHandler = func(r *http.Request, w http.ResponseWriter) {
				writeJSON(w, map[string]any{"result": false, "message": "Unsupported file"})
			}

			c := host.client("tok")
			if _, err := c.Login(ctx); err != nil {
				t.Fatalf("login failed: %v", err)
			}

			_, err := c.Upload(ctx, uploadFile(t))
			if !errors.Is(err, shared.ErrUploadFailed) {
				t.Errorf("expected ErrUploadFailed, got %v", err)
			}
		})

		t.Run("Unexpected Message Format", func(t *testing.T) {
			host := newFakeHost(t)
			host.apiHandler = func(mode string, payload map[string]any, w http.ResponseWriter) {
				loginOK(mode, payload, w)
			}
			host.uploadHandler = func(r *http.Request, w http.ResponseWriter) {
				writeJSON(w, map[string]any{"result": true, "message": "All done"})
			}

			c := host.client("tok")
			if _, err := c.Login(ctx); err != nil {
				t.Fatalf("login failed: %v", err)
			}

			_, err := c.Upload(ctx, uploadFile(t))
			if !errors.Is(err, shared.ErrUnexpectedResponse) {
				t.Errorf("expected ErrUnexpectedResponse, got %v", err)
			}
		})
	})

	t.Run("Tags And Playlists", func(t *testing.T) {
		host := newFakeHost(t)
		host.apiHandler = func(mode string, payload map[string]any, w http.ResponseWriter) {
			if loginOK(mode, payload, w) {
				return
			}
			switch mode {
			case "createtag":
				writeJSON(w, map[string]any{"id": 77})
			case "createplaylist":
				writeJSON(w, map[string]any{"playlist_id": 88})
			case "tagtracks", "appendplaylist":
				writeJSON(w, map[string]any{"result": true})
			default:
				t.Errorf("unexpected mode %s", mode)
			}
		}

		c := host.client("tok")
		if _, err := c.Login(ctx); err != nil {
			t.Fatalf("login failed: %v", err)
		}

		tag, err := c.CreateTag(ctx, "fresh")
		if err != nil {
			t.Fatalf("createtag failed: %v", err)
		}
		if tag.ID != "77" || tag.Name != "fresh" {
			t.Errorf("unexpected tag %+v", tag)
		}

		pl, err := c.CreatePlaylist(ctx, "Drive")
		if err != nil {
			t.Fatalf("createplaylist failed: %v", err)
		}
		if pl.ID != "88" || pl.Name != "Drive" {
			t.Errorf("unexpected playlist %+v", pl)
		}

		if err := c.TagTracks(ctx, "77", []int64{1, 2}); err != nil {
			t.Fatalf("tagtracks failed: %v", err)
		}
		payload := host.payloads["tagtracks"]
		if payload["tagid"] != "77" {
			t.Errorf("expected tagid 77, got %v", payload["tagid"])
		}

		if err := c.AppendPlaylist(ctx, "88", []int64{3}); err != nil {
			t.Fatalf("appendplaylist failed: %v", err)
		}
		payload = host.payloads["appendplaylist"]
		if payload["playlist"] != "88" {
			t.Errorf("expected playlist 88, got %v", payload["playlist"])
		}

		t.Run("Server Rejection Carries Message", func(t *testing.T) {
			host.apiHandler = func(mode string, payload map[string]any, w http.ResponseWriter) {
				writeJSON(w, map[string]any{"result": false, "message": "tag limit reached"})
			}

			err := c.TagTracks(ctx, "77", []int64{9})
			if !errors.Is(err, shared.ErrServerRejected) {
				t.Errorf("expected ErrServerRejected, got %v", err)
			}
			if err == nil || !strings.Contains(err.Error(), "tag limit reached") {
				t.Errorf("expected server message in error, got %v", err)
			}
		})

		t.Run("Non-JSON Body Is Not Success", func(t *testing.T) {
			host.apiHandler = func(mode string, payload map[string]any, w http.ResponseWriter) {
				w.Header().Set("Content-Type", "text/html")
				w.Write([]byte("<html>scheduled maintenance</html>"))
			}

			if err := c.TagTracks(ctx, "77", []int64{9}); !errors.Is(err, shared.ErrUnexpectedResponse) {
				t.Errorf("expected ErrUnexpectedResponse, got %v", err)
			}
			if err := c.AppendPlaylist(ctx, "88", []int64{9}); !errors.Is(err, shared.ErrUnexpectedResponse) {
				t.Errorf("expected ErrUnexpectedResponse, got %v", err)
			}
		})
	})
}
