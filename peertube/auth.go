package peertube

import (
	"context"
	"net/url"
)

// Login authenticates against the instance using the OAuth password grant.
// PeerTube issues per-instance client credentials; they are fetched first,
// then exchanged together with the user credentials for a bearer token.
// Authentication is established once per run.
func (c *Client) Login(ctx context.Context) error {
	var client oauthClient
	if err := c.getJSON(ctx, "login", "/oauth-clients/local", &client); err != nil {
		return err
	}

	form := url.Values{
		"client_id":     {client.ClientID},
		"client_secret": {client.ClientSecret},
		"grant_type":    {"password"},
		"username":      {c.cfg.Username},
		"password":      {c.cfg.Password},
	}

	var token tokenResponse
	if err := c.postForm(ctx, "login", "/users/token", form, &token); err != nil {
		return err
	}

	c.mu.Lock()
	c.accessToken = token.AccessToken
	c.mu.Unlock()
	return nil
}

// authHeaders returns the bearer token header when a login has happened.
func (c *Client) authHeaders() map[string]string {
	headers := make(map[string]string)
	c.mu.RLock()
	if c.accessToken != "" {
		headers["Authorization"] = "Bearer " + c.accessToken
	}
	c.mu.RUnlock()
	return headers
}

// ensureChannel resolves the channel videos are uploaded into. A configured
// channel id wins; otherwise the account's first channel is used.
func (c *Client) ensureChannel(ctx context.Context) (int64, error) {
	c.mu.RLock()
	channelID := c.channelID
	c.mu.RUnlock()
	if channelID != 0 {
		return channelID, nil
	}

	var me userInfo
	if err := c.getJSON(ctx, "me", "/users/me", &me); err != nil {
		return 0, err
	}
	if len(me.VideoChannels) == 0 {
		return 0, &APIError{Op: "me", Err: ErrRemoteRejected}
	}

	c.mu.Lock()
	c.channelID = me.VideoChannels[0].ID
	c.mu.Unlock()
	return me.VideoChannels[0].ID, nil
}
