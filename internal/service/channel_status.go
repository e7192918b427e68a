package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/edirooss/streamrec/internal/domain/recording"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

type ChannelStatusOptions struct {
	APIURL       string // streams endpoint, queried with ?user_login=<channel>
	TokenURL     string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

func (o *ChannelStatusOptions) setDefaults() {
	if o.Timeout <= 0 {
		o.Timeout = 15 * time.Second
	}
}

// ChannelStatusClient asks the upstream API whether a channel is live.
//
// An app access token is obtained with the client-credentials grant on first
// use and reused until it expires or the API answers 401.
type ChannelStatusClient struct {
	log   *zap.Logger
	opts  ChannelStatusOptions
	creds *clientcredentials.Config
	http  *http.Client

	mu    sync.Mutex
	token *oauth2.Token
}

func NewChannelStatusClient(log *zap.Logger, opts ChannelStatusOptions) *ChannelStatusClient {
	opts.setDefaults()
	return &ChannelStatusClient{
		log:  log.Named("channel_status"),
		opts: opts,
		creds: &clientcredentials.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			TokenURL:     opts.TokenURL,
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		http: &http.Client{Timeout: opts.Timeout},
	}
}

type streamsResponse struct {
	Data []struct {
		UserLogin string    `json:"user_login"`
		Title     string    `json:"title"`
		StartedAt time.Time `json:"started_at"`
	} `json:"data"`
}

// QueryStatus reports the live status of channel. Upstream answers (offline,
// 401, 404) are statuses, not errors; an error is returned only when no
// answer was obtained, together with StatusError.
func (c *ChannelStatusClient) QueryStatus(ctx context.Context, channel string) (recording.Status, *recording.LiveInfo, error) {
	log := c.log.With(zap.String("channel", channel))

	token, err := c.accessToken(ctx)
	if err != nil {
		log.Warn("no access token", zap.Error(err))
		return recording.StatusError, nil, err
	}

	u, err := url.Parse(c.opts.APIURL)
	if err != nil {
		return recording.StatusError, nil, fmt.Errorf("%w: parse api url: %v", ErrStatusQueryFailed, err)
	}
	q := u.Query()
	q.Set("user_login", channel)
	u.RawQuery = q.Encode()

	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return recording.StatusError, nil, fmt.Errorf("%w: build request: %v", ErrStatusQueryFailed, err)
	}
	req.Header.Set("Client-ID", c.opts.ClientID)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		log.Warn("status request failed", zap.Error(err))
		return recording.StatusError, nil, fmt.Errorf("%w: %v", ErrStatusQueryFailed, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		c.resetToken()
		log.Warn("upstream rejected token")
		return recording.StatusUnauthorized, nil, nil
	case resp.StatusCode == http.StatusNotFound:
		return recording.StatusNotFound, nil, nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		_, _ = io.Copy(io.Discard, resp.Body)
		return recording.StatusError, nil, fmt.Errorf("%w: unexpected status %d", ErrStatusQueryFailed, resp.StatusCode)
	}

	var body streamsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return recording.StatusError, nil, fmt.Errorf("%w: decode: %v", ErrStatusQueryFailed, err)
	}
	if len(body.Data) == 0 {
		return recording.StatusOffline, nil, nil
	}

	s := body.Data[0]
	log.Debug("channel is live", zap.String("title", s.Title))
	return recording.StatusOnline, &recording.LiveInfo{
		Title:     s.Title,
		UserLogin: s.UserLogin,
		StartedAt: s.StartedAt,
	}, nil
}

func (c *ChannelStatusClient) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token.Valid() {
		return c.token.AccessToken, nil
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	tok, err := c.creds.Token(ctx)
	if err != nil {
		c.token = nil
		return "", fmt.Errorf("%w: %v", ErrTokenUnavailable, err)
	}
	c.token = tok
	c.log.Info("access token acquired", zap.Time("expiry", tok.Expiry))
	return tok.AccessToken, nil
}

func (c *ChannelStatusClient) resetToken() {
	c.mu.Lock()
	c.token = nil
	c.mu.Unlock()
}
