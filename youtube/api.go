package youtube

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"ptsync/internal/retry"
)

// dailyQuotaUnits is the default Data API daily quota.
const dailyQuotaUnits = 10000

// APILister implements VideoLister using the YouTube Data API v3. It tracks
// its estimated quota usage and falls back to another lister (yt-dlp) once
// the quota runs dry, so enumeration keeps working through the daily cap.
type APILister struct {
	service *yt.Service

	// RetryConfig holds retry behavior configuration.
	RetryConfig *retry.Config

	mu             sync.Mutex
	estimatedQuota int
	lastQuotaReset time.Time
	quotaExhausted bool
	fallback       VideoLister
}

// NewAPILister creates a Data API v3 lister with the given key.
func NewAPILister(ctx context.Context, apiKey string) (*APILister, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("youtube: api key required")
	}
	service, err := yt.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("youtube: create service: %w", err)
	}

	cfg := retry.DefaultConfig()
	return &APILister{
		service:        service,
		RetryConfig:    &cfg,
		estimatedQuota: dailyQuotaUnits,
		lastQuotaReset: time.Now(),
	}, nil
}

// SetFallback sets the lister used once the API quota is exhausted.
func (a *APILister) SetFallback(lister VideoLister) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.fallback = lister
}

// ListVideos enumerates the channel's uploads playlist.
func (a *APILister) ListVideos(ctx context.Context, channel string, opts *ListOptions) ([]VideoInfo, error) {
	if lister := a.exhaustedFallback(); lister != nil {
		log.Printf("youtube: api quota exhausted, falling back to %T", lister)
		return lister.ListVideos(ctx, channel, opts)
	}

	channelID, err := a.resolveChannelID(ctx, channel)
	if err != nil {
		return nil, &ListerError{Source: "api", Channel: channel, Err: err}
	}

	playlistID, err := a.uploadsPlaylistID(ctx, channelID)
	if err != nil {
		return nil, &ListerError{Source: "api", Channel: channel, Err: err}
	}

	videos, err := a.listPlaylist(ctx, playlistID, channelID, opts)
	if err != nil {
		return nil, &ListerError{Source: "api", Channel: channel, Err: err}
	}
	return filterVideos(videos, opts), nil
}

// resolveChannelID converts a channel URL, handle, or raw id to a channel id.
func (a *APILister) resolveChannelID(ctx context.Context, input string) (string, error) {
	if channelIDRegex.MatchString(input) && !strings.Contains(input, "youtube.com/c/") {
		return channelIDRegex.FindString(input), nil
	}
	if strings.HasPrefix(input, "@") {
		return a.searchChannel(ctx, strings.TrimPrefix(input, "@"))
	}
	if idx := strings.Index(input, "youtube.com/@"); idx >= 0 {
		handle := strings.SplitN(input[idx+len("youtube.com/@"):], "/", 2)[0]
		return a.searchChannel(ctx, handle)
	}
	if idx := strings.Index(input, "youtube.com/c/"); idx >= 0 {
		custom := strings.SplitN(input[idx+len("youtube.com/c/"):], "/", 2)[0]
		return a.searchChannel(ctx, custom)
	}
	return "", fmt.Errorf("%w: cannot resolve channel from %q", ErrInvalidURL, input)
}

// searchChannel resolves a handle or custom URL fragment via channel search.
// Search is the expensive call in the quota model (100 units).
func (a *APILister) searchChannel(ctx context.Context, query string) (string, error) {
	var channelID string
	err := retry.Do(ctx, a.retryConfig(), apiErrorClassifier, func(ctx context.Context) error {
		resp, err := a.service.Search.List([]string{"id"}).
			Q(query).
			Type("channel").
			MaxResults(1).
			Context(ctx).
			Do()
		if err != nil {
			if ctx.Err() != nil {
				return ErrNetworkTimeout
			}
			return err
		}
		a.trackQuota(100)
		if len(resp.Items) == 0 {
			return retry.Permanent(ErrChannelNotFound)
		}
		channelID = resp.Items[0].Id.ChannelId
		return nil
	})
	return channelID, err
}

// uploadsPlaylistID looks up the channel's uploads playlist.
func (a *APILister) uploadsPlaylistID(ctx context.Context, channelID string) (string, error) {
	var playlistID string
	err := retry.Do(ctx, a.retryConfig(), apiErrorClassifier, func(ctx context.Context) error {
		resp, err := a.service.Channels.List([]string{"contentDetails"}).
			Id(channelID).
			Context(ctx).
			Do()
		if err != nil {
			if ctx.Err() != nil {
				return ErrNetworkTimeout
			}
			return err
		}
		a.trackQuota(1)
		if len(resp.Items) == 0 {
			return retry.Permanent(ErrChannelNotFound)
		}
		playlistID = resp.Items[0].ContentDetails.RelatedPlaylists.Uploads
		return nil
	})
	return playlistID, err
}

// listPlaylist pages through the uploads playlist, 50 items per call.
func (a *APILister) listPlaylist(ctx context.Context, playlistID, channelID string, opts *ListOptions) ([]VideoInfo, error) {
	var videos []VideoInfo
	pageToken := ""

	for {
		if opts != nil && opts.MaxResults > 0 && len(videos) >= opts.MaxResults {
			break
		}

		err := retry.Do(ctx, a.retryConfig(), apiErrorClassifier, func(ctx context.Context) error {
			resp, err := a.service.PlaylistItems.List([]string{"snippet", "contentDetails"}).
				PlaylistId(playlistID).
				MaxResults(50).
				PageToken(pageToken).
				Context(ctx).
				Do()
			if err != nil {
				if ctx.Err() != nil {
					return ErrNetworkTimeout
				}
				return err
			}
			a.trackQuota(1)

			for _, item := range resp.Items {
				video := VideoInfo{
					ID:        item.ContentDetails.VideoId,
					ChannelID: channelID,
				}
				if item.Snippet != nil {
					video.Title = item.Snippet.Title
					if t, err := time.Parse(time.RFC3339, item.Snippet.PublishedAt); err == nil {
						video.Published = t
					}
				}
				videos = append(videos, video)
			}
			pageToken = resp.NextPageToken
			return nil
		})
		if err != nil {
			return nil, err
		}

		if pageToken == "" {
			break
		}
		if lister := a.exhaustedFallback(); lister != nil {
			log.Printf("youtube: api quota exhausted mid-pagination after %d videos, falling back to %T", len(videos), lister)
			rest, err := lister.ListVideos(ctx, "https://www.youtube.com/channel/"+channelID, opts)
			if err != nil {
				return videos, nil
			}
			return append(videos, rest...), nil
		}
	}

	return videos, nil
}

func (a *APILister) retryConfig() retry.Config {
	if a.RetryConfig != nil {
		return *a.RetryConfig
	}
	return retry.DefaultConfig()
}

// trackQuota decrements the estimate, resetting it daily.
func (a *APILister) trackQuota(units int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if time.Since(a.lastQuotaReset) > 24*time.Hour {
		a.estimatedQuota = dailyQuotaUnits
		a.lastQuotaReset = time.Now()
		a.quotaExhausted = false
	}

	a.estimatedQuota -= units
	if a.estimatedQuota <= 0 && !a.quotaExhausted {
		log.Printf("youtube: estimated api quota exhausted")
		a.quotaExhausted = true
	}
}

// exhaustedFallback returns the fallback lister iff the quota ran out.
func (a *APILister) exhaustedFallback() VideoLister {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.quotaExhausted {
		return a.fallback
	}
	return nil
}

// apiErrorClassifier reports whether a Data API error is retryable.
func apiErrorClassifier(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, ErrChannelNotFound), errors.Is(err, ErrInvalidURL):
		return false
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, ErrNetworkTimeout):
		return true
	}
	if strings.Contains(err.Error(), "quotaExceeded") || strings.Contains(err.Error(), "rateLimitExceeded") {
		return true
	}
	return true
}
