package eleven

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"srt-tts/internal/audio"
	"srt-tts/internal/services"
)

const defaultHTTPTimeout = 60 * time.Second

// Config captures the runtime settings for the premium synthesis service.
type Config struct {
	APIKey          string
	BaseURL         string
	Model           string
	VoiceID         string
	Stability       float64
	SimilarityBoost float64
	SampleRate      int
	TimeoutSeconds  int
}

// Client renders narration audio through the premium synthesis API. It
// requests raw PCM so measured durations are exact.
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

// NewClient constructs a premium synthesis client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:          strings.TrimSpace(cfg.APIKey),
			BaseURL:         strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			Model:           strings.TrimSpace(cfg.Model),
			VoiceID:         strings.TrimSpace(cfg.VoiceID),
			Stability:       cfg.Stability,
			SimilarityBoost: cfg.SimilarityBoost,
			SampleRate:      cfg.SampleRate,
			TimeoutSeconds:  cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = "https://api.elevenlabs.io/v1"
	}
	if client.cfg.SampleRate <= 0 {
		client.cfg.SampleRate = 44100
	}
	return client
}

// SampleRate returns the PCM sample rate the client requests.
func (c *Client) SampleRate() int {
	return c.cfg.SampleRate
}

type synthesizeRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// Synthesize renders text as speech and returns the decoded PCM clip.
func (c *Client) Synthesize(ctx context.Context, text string) (*audio.Clip, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, services.Wrap(services.ErrValidation, "render", "synthesize",
			"cannot synthesize empty text", nil)
	}
	if c.cfg.APIKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "render", "synthesize",
			"premium synthesis api key not configured", nil)
	}
	if c.cfg.VoiceID == "" {
		return nil, services.Wrap(services.ErrConfiguration, "render", "synthesize",
			"premium synthesis voice not configured", nil)
	}

	payload := synthesizeRequest{
		Text:    text,
		ModelID: c.cfg.Model,
		VoiceSettings: voiceSettings{
			Stability:       c.cfg.Stability,
			SimilarityBoost: c.cfg.SimilarityBoost,
		},
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, services.Wrap(services.ErrFatal, "render", "synthesize", "encode request", err)
	}

	endpoint := fmt.Sprintf("%s/text-to-speech/%s?output_format=pcm_%d",
		c.cfg.BaseURL, c.cfg.VoiceID, c.cfg.SampleRate)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, services.Wrap(services.ErrFatal, "render", "synthesize", "build request", err)
	}
	req.Header.Set("xi-api-key", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "render", "synthesize",
			"premium synthesis request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "render", "synthesize",
			"read synthesis response", err)
	}
	return c.decodePCM(data)
}

func (c *Client) statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	detail := fmt.Sprintf("premium synthesis returned http %d: %s",
		resp.StatusCode, strings.TrimSpace(string(body)))

	marker := services.ErrExternalTool
	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		marker = services.ErrConfiguration
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= http.StatusInternalServerError:
		marker = services.ErrTransient
	}
	return services.Wrap(marker, "render", "synthesize", detail, nil)
}

// decodePCM converts the raw little-endian 16-bit mono stream the API
// returns into a clip.
func (c *Client) decodePCM(data []byte) (*audio.Clip, error) {
	if len(data) < 2 {
		return nil, services.Wrap(services.ErrExternalTool, "render", "synthesize",
			"premium synthesis returned no audio", nil)
	}
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return &audio.Clip{SampleRate: c.cfg.SampleRate, Samples: samples}, nil
}

// HealthCheck verifies the API key by listing voices.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.cfg.APIKey == "" {
		return services.Wrap(services.ErrConfiguration, "render", "health",
			"premium synthesis api key not configured", nil)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/voices", nil)
	if err != nil {
		return services.Wrap(services.ErrFatal, "render", "health", "build request", err)
	}
	req.Header.Set("xi-api-key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "render", "health",
			"premium synthesis health request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return c.statusError(resp)
	}
	return nil
}
