package config

const (
	defaultOutputDir              = "~/.local/share/srt-tts/output"
	defaultLogDir                 = "~/.local/share/srt-tts/logs"
	defaultLedgerDir              = "~/.local/share/srt-tts/ledger"
	defaultTTSBaseURL             = "https://api.elevenlabs.io/v1"
	defaultTTSModel               = "eleven_v3"
	defaultTTSStability           = 0.5
	defaultTTSSimilarityBoost     = 0.5
	defaultTTSSampleRate          = 44100
	defaultTTSTimeoutSeconds      = 60
	defaultEstimatorEndpoint      = "https://translate.google.com/translate_tts"
	defaultEstimatorLanguage      = "en"
	defaultEstimationRatio        = 0.9
	defaultEstimatorTimeout       = 30
	defaultLLMBaseURL             = "https://api.openai.com/v1/chat/completions"
	defaultLLMModel               = "gpt-4o-mini"
	defaultLLMTimeoutSeconds      = 120
	defaultEstimateShortenRetries = 8
	defaultRenderShortenRetries   = 2
	defaultSpeedThreshold         = 1.0
	defaultMaxSpeedFactor         = 1.35
	defaultShortenSlack           = 0.95
	defaultMarginMS               = 100
	defaultWorkers                = 4
	defaultOnEntryFailure         = "abort"
	defaultContextWindow          = 2
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
			LedgerDir: defaultLedgerDir,
		},
		TTS: TTS{
			BaseURL:         defaultTTSBaseURL,
			Model:           defaultTTSModel,
			Stability:       defaultTTSStability,
			SimilarityBoost: defaultTTSSimilarityBoost,
			SampleRate:      defaultTTSSampleRate,
			TimeoutSeconds:  defaultTTSTimeoutSeconds,
		},
		Estimator: Estimator{
			Endpoint:       defaultEstimatorEndpoint,
			Language:       defaultEstimatorLanguage,
			Ratio:          defaultEstimationRatio,
			TimeoutSeconds: defaultEstimatorTimeout,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Fitting: Fitting{
			EstimateShortenRetries: defaultEstimateShortenRetries,
			RenderShortenRetries:   defaultRenderShortenRetries,
			SpeedThreshold:         defaultSpeedThreshold,
			MaxSpeedFactor:         defaultMaxSpeedFactor,
			ShortenSlack:           defaultShortenSlack,
		},
		Timeline: Timeline{
			MarginMS: defaultMarginMS,
		},
		Pipeline: Pipeline{
			Workers:        defaultWorkers,
			OnEntryFailure: defaultOnEntryFailure,
			ContextWindow:  defaultContextWindow,
			AudioTags:      true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
