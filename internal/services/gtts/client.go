package gtts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"srt-tts/internal/audio"
	"srt-tts/internal/services"
)

const defaultHTTPTimeout = 30 * time.Second

// Inline expression tags are synthesis hints, not speech, so they are
// removed before estimating.
var tagPattern = regexp.MustCompile(`<[^>]+>|\[[^\]]+\]`)

// Config captures the runtime settings for the free estimation service.
type Config struct {
	Endpoint       string
	Language       string
	TimeoutSeconds int
}

// Client estimates speech durations using a free synthesis endpoint that
// returns MP3 audio. Only the duration of the response is used.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs an estimation client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			Endpoint:       strings.TrimSpace(cfg.Endpoint),
			Language:       strings.TrimSpace(cfg.Language),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.Language == "" {
		client.cfg.Language = "en"
	}
	return client
}

// StripTags removes inline expression tags from text.
func StripTags(text string) string {
	return strings.TrimSpace(tagPattern.ReplaceAllString(text, ""))
}

// EstimateDuration synthesizes text on the free endpoint and returns the
// spoken duration. Tags are stripped first; empty remaining text estimates
// to zero without a network call.
func (c *Client) EstimateDuration(ctx context.Context, text string) (time.Duration, error) {
	plain := StripTags(text)
	if plain == "" {
		return 0, nil
	}
	if c.cfg.Endpoint == "" {
		return 0, services.Wrap(services.ErrConfiguration, "estimate", "synthesize",
			"estimator endpoint not configured", nil)
	}

	query := url.Values{}
	query.Set("ie", "UTF-8")
	query.Set("client", "tw-ob")
	query.Set("tl", c.cfg.Language)
	query.Set("q", plain)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.Endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return 0, services.Wrap(services.ErrTransient, "estimate", "synthesize", "build request", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, services.Wrap(services.ErrTransient, "estimate", "synthesize", "estimator request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		marker := services.ErrTransient
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			marker = services.ErrExternalTool
		}
		return 0, services.Wrap(marker, "estimate", "synthesize",
			fmt.Sprintf("estimator returned http %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, services.Wrap(services.ErrTransient, "estimate", "synthesize", "read estimator response", err)
	}
	if len(data) == 0 {
		return 0, services.Wrap(services.ErrExternalTool, "estimate", "synthesize",
			"estimator returned empty audio", nil)
	}

	duration, err := audio.MP3Duration(data)
	if err != nil {
		return 0, services.Wrap(services.ErrExternalTool, "estimate", "synthesize",
			"estimator returned unreadable audio", err)
	}
	return duration, nil
}

// HealthCheck verifies the estimation endpoint responds to a tiny request.
func (c *Client) HealthCheck(ctx context.Context) error {
	duration, err := c.EstimateDuration(ctx, "ok")
	if err != nil {
		return err
	}
	if duration <= 0 {
		return errors.New("gtts health: estimator returned zero-length audio")
	}
	return nil
}
