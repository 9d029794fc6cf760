package config

import (
	"errors"
	"fmt"

	"golang.org/x/text/language"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateEstimator(); err != nil {
		return err
	}
	if err := c.validateFitting(); err != nil {
		return err
	}
	if err := c.validateTimeline(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	return nil
}

// ValidateSynthesis checks the credentials needed for a full synthesis run.
// Text-only runs skip this so annotation can work without TTS keys.
func (c *Config) ValidateSynthesis() error {
	if c.TTS.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/srt-tts/config.toml"
		}
		return fmt.Errorf("tts.api_key is required. Set TTS_API_KEY env var or edit %s (create with 'srt-tts config init')", defaultPath)
	}
	if c.TTS.VoiceID == "" {
		return errors.New("tts.voice_id is required. Set TTS_VOICE_ID env var or configure [tts] voice_id")
	}
	return nil
}

// ValidateAnnotation checks the credentials needed for the rewrite/annotation oracle.
func (c *Config) ValidateAnnotation() error {
	if c.LLM.APIKey == "" {
		return errors.New("llm.api_key is required for rewriting and audio tags. Set LLM_API_KEY env var or configure [llm] api_key")
	}
	return nil
}

func (c *Config) validateEstimator() error {
	// Ratio <= 0 disables estimation entirely, so only bound the upper end.
	if c.Estimator.Ratio > 2 {
		return errors.New("estimator.estimation_ratio must not exceed 2")
	}
	if _, err := language.Parse(c.Estimator.Language); err != nil {
		return fmt.Errorf("estimator.language %q is not a valid language tag: %w", c.Estimator.Language, err)
	}
	return nil
}

func (c *Config) validateFitting() error {
	if c.Fitting.EstimateShortenRetries < 0 {
		return errors.New("fitting.estimate_shorten_retries must not be negative")
	}
	if c.Fitting.RenderShortenRetries < 0 {
		return errors.New("fitting.render_shorten_retries must not be negative")
	}
	if c.Fitting.SpeedThreshold < 1 {
		return errors.New("fitting.speed_threshold must be at least 1")
	}
	if c.Fitting.MaxSpeedFactor < c.Fitting.SpeedThreshold {
		return errors.New("fitting.max_speed_factor must not be below fitting.speed_threshold")
	}
	if c.Fitting.ShortenSlack <= 0 || c.Fitting.ShortenSlack > 1 {
		return errors.New("fitting.shorten_slack must be within (0, 1]")
	}
	return nil
}

func (c *Config) validateTimeline() error {
	if c.Timeline.MarginMS < 0 {
		return errors.New("timeline.margin_ms must not be negative")
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.Workers < 1 {
		return errors.New("pipeline.workers must be at least 1")
	}
	switch c.Pipeline.OnEntryFailure {
	case "abort", "skip":
	default:
		return fmt.Errorf("pipeline.on_entry_failure must be %q or %q", "abort", "skip")
	}
	return nil
}
