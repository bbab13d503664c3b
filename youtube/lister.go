// Package youtube enumerates and downloads a channel's videos for the fetch
// stage. Enumeration goes through yt-dlp or the Data API v3; downloads always
// go through yt-dlp, which writes the sidecar metadata and thumbnail files
// the catalog package reads back.
package youtube

import (
	"context"
	"errors"
	"regexp"
	"time"
)

// Sentinel errors for enumeration and download operations.
var (
	ErrChannelNotFound   = errors.New("youtube: channel not found")
	ErrRateLimited       = errors.New("youtube: rate limited")
	ErrNetworkTimeout    = errors.New("youtube: network timeout")
	ErrInvalidURL        = errors.New("youtube: invalid URL")
	ErrYtdlpNotInstalled = errors.New("youtube: yt-dlp not installed")
)

// channelIDRegex matches a raw YouTube channel id.
var channelIDRegex = regexp.MustCompile(`UC[\w-]{22}`)

// VideoLister enumerates the videos of a channel. Implementations differ in
// transport (yt-dlp subprocess, Data API) but not in result shape.
type VideoLister interface {
	// ListVideos fetches videos from the given channel. The channel can be a
	// URL, a handle (@name), or a raw channel id.
	ListVideos(ctx context.Context, channel string, opts *ListOptions) ([]VideoInfo, error)
}

// ListOptions configures enumeration.
type ListOptions struct {
	// MaxResults limits the number of videos returned. 0 means no limit.
	MaxResults int
	// PublishedAfter drops videos published at or before this time.
	// Zero means no filter.
	PublishedAfter time.Time
}

// VideoInfo is one enumerated channel video. Only the fields the mirror
// needs; full metadata comes from the per-video sidecar files written at
// download time.
type VideoInfo struct {
	// ID is the source platform video id.
	ID string `json:"id"`
	// Title is the video title at enumeration time.
	Title string `json:"title"`
	// ChannelID is the channel the video belongs to.
	ChannelID string `json:"channel_id"`
	// Published is the publication time. Zero when the source omits it.
	Published time.Time `json:"published"`
	// Duration is the video length. Zero for flat-playlist enumeration.
	Duration time.Duration `json:"duration,omitempty"`
}

// URL returns the full watch URL for the video.
func (v VideoInfo) URL() string {
	return "https://www.youtube.com/watch?v=" + v.ID
}

// ListerError wraps an enumeration error with its source and channel.
type ListerError struct {
	// Source is the lister that failed ("ytdlp" or "api").
	Source string
	// Channel is the channel being enumerated.
	Channel string
	// Err is the underlying error.
	Err error
}

func (e *ListerError) Error() string {
	return "youtube: " + e.Source + " listing " + e.Channel + ": " + e.Err.Error()
}

func (e *ListerError) Unwrap() error { return e.Err }

// filterVideos applies ListOptions limits to an enumerated slice.
func filterVideos(videos []VideoInfo, opts *ListOptions) []VideoInfo {
	if opts == nil {
		return videos
	}

	filtered := videos
	if !opts.PublishedAfter.IsZero() {
		filtered = filtered[:0:0]
		for _, v := range videos {
			if v.Published.After(opts.PublishedAfter) {
				filtered = append(filtered, v)
			}
		}
	}

	if opts.MaxResults > 0 && len(filtered) > opts.MaxResults {
		filtered = filtered[:opts.MaxResults]
	}
	return filtered
}
