// Package peertube is a thin adapter over the PeerTube REST API v1.
// It exposes exactly the operations the reconciliation core needs: create,
// metadata update, thumbnail upload, fetch by id, search by text, and a
// paginated full listing for mapping recovery.
package peertube

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"ptsync/internal/httpx"
	"ptsync/internal/retry"
)

const (
	// searchPageSize bounds title search results; search is a recovery
	// heuristic, not an enumeration.
	searchPageSize = 25
	// listPageSize matches the instance maximum for /videos pagination.
	listPageSize = 100
	// privacyPublic is the PeerTube public privacy constant.
	privacyPublic = 1
)

// Config holds the settings needed to reach a PeerTube instance.
type Config struct {
	// BaseURL is the instance root, e.g. "https://tube.example.com".
	BaseURL string
	// Username and Password are the account credentials for the password grant.
	Username string
	Password string
	// ChannelID is the channel uploads go into. 0 selects the account's
	// first channel.
	ChannelID int64
	// RequestTimeout bounds API calls. Defaults to 30s.
	RequestTimeout time.Duration
	// UploadTimeout bounds media uploads. Defaults to 2h.
	UploadTimeout time.Duration
}

// Client talks to one PeerTube instance. Mutations are issued exactly once:
// the HTTP retry budget is zero, and a failed call fails the current video;
// re-running the whole sync is the recovery path.
type Client struct {
	cfg    Config
	api    *httpx.Client
	upload *httpx.Client

	mu          sync.RWMutex
	accessToken string
	channelID   int64
}

// New creates a client for the given instance.
func New(cfg Config) *Client {
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.UploadTimeout == 0 {
		cfg.UploadTimeout = 2 * time.Hour
	}

	apiCfg := httpx.DefaultConfig()
	apiCfg.Timeout = cfg.RequestTimeout
	apiCfg.Retry = retry.Config{MaxRetries: 0}

	// Separate client for uploads: long timeout, and the streamed multipart
	// body cannot be replayed, so the retry budget must stay zero.
	uploadCfg := httpx.DefaultConfig()
	uploadCfg.Timeout = cfg.UploadTimeout
	uploadCfg.Retry = retry.Config{MaxRetries: 0}

	return &Client{
		cfg:       cfg,
		api:       httpx.New(apiCfg),
		upload:    httpx.New(uploadCfg),
		channelID: cfg.ChannelID,
	}
}

// UploadRequest carries the fields for creating a remote video.
type UploadRequest struct {
	Name        string
	Description string
	// MediaPath is the local media file to upload.
	MediaPath string
	// ThumbnailPath optionally sets the thumbnail and preview image.
	ThumbnailPath string
	// OriginallyPublishedAt optionally sets the original publication date.
	OriginallyPublishedAt time.Time
}

// Upload creates a new remote video and returns its remote representation.
func (c *Client) Upload(ctx context.Context, req UploadRequest) (*Video, error) {
	channelID, err := c.ensureChannel(ctx)
	if err != nil {
		return nil, err
	}

	fields := map[string]string{
		"name":      req.Name,
		"channelId": strconv.FormatInt(channelID, 10),
		"privacy":   strconv.Itoa(privacyPublic),
	}
	if req.Description != "" {
		fields["description"] = req.Description
	}
	if !req.OriginallyPublishedAt.IsZero() {
		fields["originallyPublishedAt"] = req.OriginallyPublishedAt.UTC().Format(time.RFC3339)
	}

	files := map[string]string{"videofile": req.MediaPath}
	if req.ThumbnailPath != "" {
		files["thumbnailfile"] = req.ThumbnailPath
		files["previewfile"] = req.ThumbnailPath
	}

	var resp uploadResponse
	if err := c.multipart(ctx, c.upload, "upload", http.MethodPost, c.apiURL("/videos/upload"), fields, files, &resp); err != nil {
		return nil, err
	}
	return &resp.Video, nil
}

// UpdateRequest carries a metadata patch. Nil fields are left untouched.
type UpdateRequest struct {
	Name                  *string
	Description           *string
	OriginallyPublishedAt *time.Time
}

// UpdateVideo patches metadata of an existing remote video.
func (c *Client) UpdateVideo(ctx context.Context, remoteID string, req UpdateRequest) error {
	fields := make(map[string]string)
	if req.Name != nil {
		fields["name"] = *req.Name
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if req.OriginallyPublishedAt != nil {
		fields["originallyPublishedAt"] = req.OriginallyPublishedAt.UTC().Format(time.RFC3339)
	}
	if len(fields) == 0 {
		return nil
	}

	return c.multipart(ctx, c.api, "update", http.MethodPut, c.apiURL("/videos/"+url.PathEscape(remoteID)), fields, nil, nil)
}

// UploadThumbnail replaces the thumbnail and preview of an existing video.
func (c *Client) UploadThumbnail(ctx context.Context, remoteID, thumbnailPath string) error {
	files := map[string]string{
		"thumbnailfile": thumbnailPath,
		"previewfile":   thumbnailPath,
	}
	return c.multipart(ctx, c.api, "thumbnail", http.MethodPut, c.apiURL("/videos/"+url.PathEscape(remoteID)), nil, files, nil)
}

// Video fetches the remote state of a video by id (numeric id, UUID, or
// short UUID). List and get endpoints truncate descriptions, so the full
// text is resolved through the description endpoint; a failure there keeps
// the truncated text and is logged by the caller via the returned video.
func (c *Client) Video(ctx context.Context, remoteID string) (*Video, error) {
	var video Video
	if err := c.getJSON(ctx, "fetch", "/videos/"+url.PathEscape(remoteID), &video); err != nil {
		return nil, err
	}

	var desc struct {
		Description *string `json:"description"`
	}
	if err := c.getJSON(ctx, "fetch", "/videos/"+url.PathEscape(remoteID)+"/description", &desc); err == nil {
		if desc.Description != nil {
			video.Description = *desc.Description
		} else {
			video.Description = ""
		}
	}

	return &video, nil
}

// SearchByTitle runs a text search on the instance. Result ordering is
// remote-defined and must not be assumed stable across calls.
func (c *Client) SearchByTitle(ctx context.Context, title string) ([]Video, error) {
	q := url.Values{
		"search": {title},
		"count":  {strconv.Itoa(searchPageSize)},
	}

	var list videoList
	if err := c.getJSON(ctx, "search", "/search/videos?"+q.Encode(), &list); err != nil {
		return nil, err
	}
	return list.Data, nil
}

// ListAll enumerates every video on the instance, 100 per page.
func (c *Client) ListAll(ctx context.Context) ([]Video, error) {
	var all []Video
	for start := 0; ; {
		q := url.Values{
			"start": {strconv.Itoa(start)},
			"count": {strconv.Itoa(listPageSize)},
		}

		var page videoList
		if err := c.getJSON(ctx, "list", "/videos?"+q.Encode(), &page); err != nil {
			return nil, err
		}
		if len(page.Data) == 0 {
			break
		}
		all = append(all, page.Data...)
		start += len(page.Data)
		if int64(start) >= page.Total {
			break
		}
	}
	return all, nil
}

// FetchThumbnail downloads the video's preview image (falling back to the
// small thumbnail) for content comparison.
func (c *Client) FetchThumbnail(ctx context.Context, v *Video) ([]byte, error) {
	path := v.PreviewPath
	if path == "" {
		path = v.ThumbnailPath
	}
	if path == "" {
		return nil, &APIError{Op: "thumbnail-fetch", Err: ErrNotFound}
	}

	resp, err := c.api.Get(ctx, c.absoluteURL(path), c.authHeaders())
	if err != nil {
		return nil, classify("thumbnail-fetch", err)
	}
	return resp.Body, nil
}

// apiURL joins an API path onto the instance base URL.
func (c *Client) apiURL(path string) string {
	return strings.TrimRight(c.cfg.BaseURL, "/") + "/api/v1" + path
}

// absoluteURL resolves an instance-relative asset path.
func (c *Client) absoluteURL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimRight(c.cfg.BaseURL, "/") + path
}

func (c *Client) getJSON(ctx context.Context, op, path string, out any) error {
	resp, err := c.api.Get(ctx, c.apiURL(path), c.authHeaders())
	if err != nil {
		return classify(op, err)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return &APIError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func (c *Client) postForm(ctx context.Context, op, path string, form url.Values, out any) error {
	headers := c.authHeaders()
	headers["Content-Type"] = "application/x-www-form-urlencoded"

	resp, err := c.api.Do(ctx, http.MethodPost, c.apiURL(path), strings.NewReader(form.Encode()), headers)
	if err != nil {
		return classify(op, err)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return &APIError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// multipart streams a multipart/form-data request. The body is produced
// through a pipe so media files are never buffered in memory; this is only
// safe because the retry budget is zero.
func (c *Client) multipart(ctx context.Context, client *httpx.Client, op, method, urlStr string, fields, files map[string]string, out any) error {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		var err error
		defer func() { pw.CloseWithError(err) }()

		for k, v := range fields {
			if err = mw.WriteField(k, v); err != nil {
				return
			}
		}
		for field, path := range files {
			var f *os.File
			if f, err = os.Open(path); err != nil {
				return
			}
			var part io.Writer
			if part, err = mw.CreateFormFile(field, filepath.Base(path)); err == nil {
				_, err = io.Copy(part, f)
			}
			f.Close()
			if err != nil {
				return
			}
		}
		err = mw.Close()
	}()

	headers := c.authHeaders()
	headers["Content-Type"] = mw.FormDataContentType()

	resp, err := client.Do(ctx, method, urlStr, pr, headers)
	if err != nil {
		pr.CloseWithError(err)
		return classify(op, err)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return &APIError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.api.Close()
	c.upload.Close()
	return nil
}
