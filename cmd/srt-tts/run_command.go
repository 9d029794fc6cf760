package main

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"srt-tts/internal/config"
	"srt-tts/internal/fitting"
	"srt-tts/internal/ledger"
	"srt-tts/internal/logging"
	"srt-tts/internal/pipeline"
	"srt-tts/internal/services/eleven"
	"srt-tts/internal/services/gtts"
	"srt-tts/internal/services/llm"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var outputPath string
	var textOnly bool
	var noTags bool
	var workers int

	cmd := &cobra.Command{
		Use:   "run <subtitle-file>",
		Short: "Narrate a subtitle file into a timed audio track",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if workers > 0 {
				cfg.Pipeline.Workers = workers
			}
			if !textOnly {
				if err := cfg.ValidateSynthesis(); err != nil {
					return err
				}
			}
			if cfg.Pipeline.AudioTags && !noTags {
				if err := cfg.ValidateAnnotation(); err != nil {
					return err
				}
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("initialize logging: %w", err)
			}

			store, err := ledger.Open(cfg)
			if err != nil {
				return fmt.Errorf("open ledger: %w", err)
			}
			defer store.Close()

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			source, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}

			p := pipeline.New(cfg, buildFitter(cfg, logger), buildAnnotator(cfg), store, logger)
			outcome, err := p.Run(runCtx, source, pipeline.Options{
				OutputPath: outputPath,
				TextOnly:   textOnly,
				NoTags:     noTags,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if outcome.OutputPath != "" {
				fmt.Fprintf(out, "Track:    %s\n", outcome.OutputPath)
			}
			fmt.Fprintf(out, "Manifest: %s\n", outcome.ManifestPath)
			fmt.Fprintf(out, "Entries:  %d fitted, %d drifted, %d failed\n",
				outcome.FittedCount, outcome.DriftedCount, outcome.FailedCount)
			if outcome.RunID != "" {
				fmt.Fprintf(out, "Run:      %s\n", outcome.RunID)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output track path (defaults to the output directory)")
	cmd.Flags().BoolVar(&textOnly, "text-only", false, "Annotate and emit the manifest without synthesizing audio")
	cmd.Flags().BoolVar(&noTags, "no-tags", false, "Skip the audio tag annotation pass")
	cmd.Flags().IntVar(&workers, "workers", 0, "Override the configured worker count")
	return cmd
}

// buildFitter wires the duration-fitting chain from configuration. A ratio
// of zero (or below) leaves the estimator disabled and skips the free
// estimation oracle entirely.
func buildFitter(cfg *config.Config, logger *slog.Logger) *fitting.Fitter {
	var estimateOracle fitting.EstimateOracle
	if cfg.Estimator.Ratio > 0 {
		estimateOracle = gtts.NewClient(gtts.Config{
			Endpoint:       cfg.Estimator.Endpoint,
			Language:       cfg.Estimator.Language,
			TimeoutSeconds: cfg.Estimator.TimeoutSeconds,
		})
	}
	estimator := fitting.NewEstimator(estimateOracle, cfg.Estimator.Ratio, logger)

	renderer := eleven.NewClient(eleven.Config{
		APIKey:          cfg.TTS.APIKey,
		BaseURL:         cfg.TTS.BaseURL,
		Model:           cfg.TTS.Model,
		VoiceID:         cfg.TTS.VoiceID,
		Stability:       cfg.TTS.Stability,
		SimilarityBoost: cfg.TTS.SimilarityBoost,
		SampleRate:      cfg.TTS.SampleRate,
		TimeoutSeconds:  cfg.TTS.TimeoutSeconds,
	})

	var rewriter fitting.RewriteOracle
	if cfg.LLM.APIKey != "" {
		rewriter = newLLMClient(cfg)
	}
	shortener := fitting.NewShortener(rewriter, cfg.Fitting.ShortenSlack, 0.9, logger)

	return fitting.NewFitter(estimator, renderer, shortener, cfg.Fitting, logger)
}

// buildAnnotator returns the audio tag annotator, or nil when no oracle is
// configured.
func buildAnnotator(cfg *config.Config) pipeline.Annotator {
	if !cfg.Pipeline.AudioTags || cfg.LLM.APIKey == "" {
		return nil
	}
	return newLLMClient(cfg)
}

func newLLMClient(cfg *config.Config) *llm.Client {
	return llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	})
}
