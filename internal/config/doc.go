// Package config loads, normalizes, and validates the TOML configuration
// for the narration pipeline. Configuration resolution order is an explicit
// --config path, then ~/.config/srt-tts/config.toml, then srt-tts.toml in
// the working directory, then built-in defaults. API keys fall back to the
// TTS_API_KEY, TTS_VOICE_ID, and LLM_API_KEY environment variables so the
// config file never has to hold secrets.
package config
