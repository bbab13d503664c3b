package peertube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"ptsync/internal/httpx"
)

// fakeInstance is a minimal PeerTube API for tests.
type fakeInstance struct {
	t *testing.T

	mux          *http.ServeMux
	server       *httptest.Server
	uploads      int
	uploadedForm map[string]string
	uploadFiles  []string
}

func newFakeInstance(t *testing.T) *fakeInstance {
	t.Helper()
	fi := &fakeInstance{t: t, mux: http.NewServeMux()}

	fi.mux.HandleFunc("/api/v1/oauth-clients/local", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"client_id":     "cid",
			"client_secret": "csecret",
		})
	})
	fi.mux.HandleFunc("/api/v1/users/token", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.PostFormValue("grant_type") != "password" {
			t.Errorf("grant_type = %q, want password", r.PostFormValue("grant_type"))
		}
		if r.PostFormValue("client_id") != "cid" || r.PostFormValue("client_secret") != "csecret" {
			t.Error("token request missing client credentials")
		}
		json.NewEncoder(w).Encode(map[string]any{"access_token": "tok123", "expires_in": 3600})
	})
	fi.mux.HandleFunc("/api/v1/users/me", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"username": "mirror",
			"videoChannels": []map[string]any{
				{"id": 7, "name": "main"},
			},
		})
	})
	fi.mux.HandleFunc("/api/v1/videos/upload", func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer tok123" {
			t.Errorf("upload Authorization = %q", auth)
		}
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		fi.uploads++
		fi.uploadedForm = make(map[string]string)
		for k, v := range r.MultipartForm.Value {
			fi.uploadedForm[k] = v[0]
		}
		fi.uploadFiles = nil
		for name := range r.MultipartForm.File {
			fi.uploadFiles = append(fi.uploadFiles, name)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"video": map[string]any{
				"id":        42,
				"uuid":      "b2395c65-b0ae-4a6f-a3b7-6ee26db6bd91",
				"shortUUID": "short42",
			},
		})
	})

	fi.server = httptest.NewServer(fi.mux)
	t.Cleanup(fi.server.Close)
	return fi
}

func newTestClient(t *testing.T, fi *fakeInstance, cfg Config) *Client {
	t.Helper()
	cfg.BaseURL = fi.server.URL
	if cfg.Username == "" {
		cfg.Username = "mirror"
		cfg.Password = "secret"
	}
	c := New(cfg)
	t.Cleanup(func() { c.Close() })
	if err := c.Login(context.Background()); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	return c
}

func tempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestUploadCreatesVideo(t *testing.T) {
	fi := newFakeInstance(t)
	c := newTestClient(t, fi, Config{})

	media := tempFile(t, "v1.mp4", "media bytes")
	thumb := tempFile(t, "v1.jpg", "thumb bytes")

	video, err := c.Upload(context.Background(), UploadRequest{
		Name:          "My Video",
		Description:   "about things",
		MediaPath:     media,
		ThumbnailPath: thumb,
	})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	if video.RemoteID() != "b2395c65-b0ae-4a6f-a3b7-6ee26db6bd91" {
		t.Errorf("RemoteID() = %q", video.RemoteID())
	}
	if fi.uploadedForm["name"] != "My Video" {
		t.Errorf("name field = %q", fi.uploadedForm["name"])
	}
	// ChannelID 0 resolves through /users/me
	if fi.uploadedForm["channelId"] != "7" {
		t.Errorf("channelId field = %q, want 7", fi.uploadedForm["channelId"])
	}
	files := map[string]bool{}
	for _, f := range fi.uploadFiles {
		files[f] = true
	}
	if !files["videofile"] || !files["thumbnailfile"] {
		t.Errorf("upload files = %v", fi.uploadFiles)
	}
}

func TestUploadRejectedPayload(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/oauth-clients/local", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"client_id": "x", "client_secret": "y"})
	})
	mux.HandleFunc("/api/v1/users/token", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"access_token": "t"})
	})
	mux.HandleFunc("/api/v1/videos/upload", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"name too short"}`, http.StatusBadRequest)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := New(Config{BaseURL: server.URL, Username: "u", Password: "p", ChannelID: 1})
	defer c.Close()
	if err := c.Login(context.Background()); err != nil {
		t.Fatal(err)
	}

	media := tempFile(t, "v1.mp4", "media")
	_, err := c.Upload(context.Background(), UploadRequest{Name: "", MediaPath: media})
	if !errors.Is(err, ErrRemoteRejected) {
		t.Errorf("Upload() error = %v, want ErrRemoteRejected", err)
	}
}

func TestUpdateVideoPatchSemantics(t *testing.T) {
	var got map[string]string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/videos/r1", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %s, want PUT", r.Method)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		got = make(map[string]string)
		for k, v := range r.MultipartForm.Value {
			got[k] = v[0]
		}
		w.WriteHeader(http.StatusNoContent)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := New(Config{BaseURL: server.URL, Username: "u", Password: "p"})
	defer c.Close()

	name := "New Title"
	if err := c.UpdateVideo(context.Background(), "r1", UpdateRequest{Name: &name}); err != nil {
		t.Fatalf("UpdateVideo() error = %v", err)
	}

	if got["name"] != "New Title" {
		t.Errorf("name field = %q", got["name"])
	}
	if _, ok := got["description"]; ok {
		t.Error("description sent despite nil field")
	}
}

func TestUpdateVideoNoFieldsNoCall(t *testing.T) {
	calls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) { calls++ })
	server := httptest.NewServer(mux)
	defer server.Close()

	c := New(Config{BaseURL: server.URL})
	defer c.Close()

	if err := c.UpdateVideo(context.Background(), "r1", UpdateRequest{}); err != nil {
		t.Fatalf("UpdateVideo() error = %v", err)
	}
	if calls != 0 {
		t.Errorf("made %d HTTP calls, want 0 for empty patch", calls)
	}
}

func TestVideoMergesFullDescription(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/videos/r1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"id": 1, "uuid": "b2395c65-b0ae-4a6f-a3b7-6ee26db6bd91",
			"name": "Title", "description": "truncated...",
		})
	})
	mux.HandleFunc("/api/v1/videos/r1/description", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"description": "the full description"})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := New(Config{BaseURL: server.URL})
	defer c.Close()

	video, err := c.Video(context.Background(), "r1")
	if err != nil {
		t.Fatalf("Video() error = %v", err)
	}
	if video.Description != "the full description" {
		t.Errorf("Description = %q", video.Description)
	}
}

func TestVideoNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	c := New(Config{BaseURL: server.URL})
	defer c.Close()

	_, err := c.Video(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Video() error = %v, want ErrNotFound", err)
	}
}

func TestSearchByTitle(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/search/videos", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("search"); got != "My Video" {
			t.Errorf("search query = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"total": 2,
			"data": []map[string]any{
				{"id": 1, "uuid": "b2395c65-b0ae-4a6f-a3b7-6ee26db6bd91", "name": "My Video"},
				{"id": 2, "uuid": "0dd23ca1-b82a-4c9d-9925-ffce9e4b7b72", "name": "Other"},
			},
		})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := New(Config{BaseURL: server.URL})
	defer c.Close()

	videos, err := c.SearchByTitle(context.Background(), "My Video")
	if err != nil {
		t.Fatalf("SearchByTitle() error = %v", err)
	}
	if len(videos) != 2 || videos[0].Name != "My Video" {
		t.Errorf("videos = %+v", videos)
	}
}

func TestListAllPaginates(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/videos", func(w http.ResponseWriter, r *http.Request) {
		start, _ := strconv.Atoi(r.URL.Query().Get("start"))
		total := 150
		var data []map[string]any
		for i := start; i < start+100 && i < total; i++ {
			data = append(data, map[string]any{
				"id": i, "name": fmt.Sprintf("video %d", i),
			})
		}
		json.NewEncoder(w).Encode(map[string]any{"total": total, "data": data})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := New(Config{BaseURL: server.URL})
	defer c.Close()

	videos, err := c.ListAll(context.Background())
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if len(videos) != 150 {
		t.Errorf("ListAll() returned %d videos, want 150", len(videos))
	}
}

func TestFetchThumbnailResolvesRelativePath(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/lazy-static/previews/p1.jpg", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("preview bytes"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := New(Config{BaseURL: server.URL})
	defer c.Close()

	v := &Video{PreviewPath: "/lazy-static/previews/p1.jpg"}
	data, err := c.FetchThumbnail(context.Background(), v)
	if err != nil {
		t.Fatalf("FetchThumbnail() error = %v", err)
	}
	if string(data) != "preview bytes" {
		t.Errorf("thumbnail = %q", data)
	}
}

func TestFetchThumbnailAbsent(t *testing.T) {
	c := New(Config{BaseURL: "https://tube.example.com"})
	defer c.Close()

	_, err := c.FetchThumbnail(context.Background(), &Video{})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("FetchThumbnail() error = %v, want ErrNotFound", err)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"404", &httpx.StatusError{StatusCode: 404}, ErrNotFound},
		{"401", &httpx.StatusError{StatusCode: 401}, ErrRemoteUnavailable},
		{"500", &httpx.StatusError{StatusCode: 500}, ErrRemoteUnavailable},
		{"400", &httpx.StatusError{StatusCode: 400}, ErrRemoteRejected},
		{"422", &httpx.StatusError{StatusCode: 422}, ErrRemoteRejected},
		{"rate limit", &httpx.RateLimitError{StatusCode: 429}, ErrRemoteUnavailable},
		{"transport", errors.New("dial tcp: connection refused"), ErrRemoteUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify("op", tt.err)
			if !errors.Is(got, tt.want) {
				t.Errorf("classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVideoRemoteID(t *testing.T) {
	tests := []struct {
		name  string
		video Video
		want  string
	}{
		{"full uuid", Video{ID: 3, UUID: "b2395c65-b0ae-4a6f-a3b7-6ee26db6bd91", ShortUUID: "s"}, "b2395c65-b0ae-4a6f-a3b7-6ee26db6bd91"},
		{"short uuid fallback", Video{ID: 3, UUID: "not-a-uuid", ShortUUID: "s3"}, "s3"},
		{"numeric fallback", Video{ID: 3}, "3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.video.RemoteID(); got != tt.want {
				t.Errorf("RemoteID() = %q, want %q", got, tt.want)
			}
		})
	}
}
