package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"srt-tts/internal/services/eleven"
	"srt-tts/internal/services/gtts"
)

// newProbeCommand checks reachability of the external oracles before a long
// run burns quota on a misconfigured endpoint.
func newProbeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Check connectivity to the synthesis and rewrite services",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			probeCtx := cmd.Context()
			failed := false

			report := func(label string, kind statusKind, message string) {
				if kind == statusError {
					failed = true
				}
				fmt.Fprintln(out, renderStatusLine(label, kind, message, colorize))
			}

			if cfg.Estimator.Ratio > 0 {
				client := gtts.NewClient(gtts.Config{
					Endpoint:       cfg.Estimator.Endpoint,
					Language:       cfg.Estimator.Language,
					TimeoutSeconds: cfg.Estimator.TimeoutSeconds,
				})
				kind, message := probeResult(client.HealthCheck(probeCtx))
				report("Estimator", kind, message)
			} else {
				report("Estimator", statusWarn, "disabled (estimation_ratio <= 0)")
			}

			if err := cfg.ValidateSynthesis(); err != nil {
				report("Synthesis", statusError, err.Error())
			} else {
				client := eleven.NewClient(eleven.Config{
					APIKey:         cfg.TTS.APIKey,
					BaseURL:        cfg.TTS.BaseURL,
					VoiceID:        cfg.TTS.VoiceID,
					TimeoutSeconds: cfg.TTS.TimeoutSeconds,
				})
				kind, message := probeResult(client.HealthCheck(probeCtx))
				report("Synthesis", kind, message)
			}

			if err := cfg.ValidateAnnotation(); err != nil {
				report("Rewrite oracle", statusWarn, "not configured; shortening and tags unavailable")
			} else {
				kind, message := probeResult(newLLMClient(cfg).HealthCheck(probeCtx))
				report("Rewrite oracle", kind, message)
			}

			if failed {
				return fmt.Errorf("one or more services are unreachable")
			}
			return nil
		},
	}
}

func probeResult(err error) (statusKind, string) {
	if err != nil {
		return statusError, err.Error()
	}
	return statusOK, "reachable"
}
