package peertube

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Video is the remote representation of a video on a PeerTube instance.
// It is fetched per reconciliation and never cached across runs.
type Video struct {
	// ID is the instance-local numeric identifier.
	ID int64 `json:"id"`
	// UUID is the stable video UUID.
	UUID string `json:"uuid"`
	// ShortUUID is the base58 short form of the UUID.
	ShortUUID string `json:"shortUUID"`
	// Name is the video title on the instance.
	Name string `json:"name"`
	// Description is the video description. List and get endpoints truncate
	// it; Client.Video resolves the full text.
	Description string `json:"description"`
	// ThumbnailPath is the instance-relative path of the small thumbnail.
	ThumbnailPath string `json:"thumbnailPath"`
	// PreviewPath is the instance-relative path of the full-size preview.
	PreviewPath string `json:"previewPath"`
	// OriginallyPublishedAt is the original publication date, when set.
	OriginallyPublishedAt *time.Time `json:"originallyPublishedAt"`
	// Channel identifies the owning channel.
	Channel VideoChannel `json:"channel"`
}

// VideoChannel is the channel summary embedded in video responses.
type VideoChannel struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// RemoteID returns the identifier recorded in the identity ledger for this
// video: the full UUID when valid, else the short UUID, else the numeric id.
func (v *Video) RemoteID() string {
	if _, err := uuid.Parse(v.UUID); err == nil {
		return v.UUID
	}
	if v.ShortUUID != "" {
		return v.ShortUUID
	}
	return strconv.FormatInt(v.ID, 10)
}

// oauthClient is the response of GET /api/v1/oauth-clients/local.
type oauthClient struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// tokenResponse is the response of POST /api/v1/users/token.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// userInfo is the subset of GET /api/v1/users/me the client needs.
type userInfo struct {
	Username      string `json:"username"`
	VideoChannels []struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"videoChannels"`
}

// videoList is the paginated envelope of list and search endpoints.
type videoList struct {
	Total int64   `json:"total"`
	Data  []Video `json:"data"`
}

// uploadResponse is the envelope of POST /api/v1/videos/upload.
type uploadResponse struct {
	Video Video `json:"video"`
}
