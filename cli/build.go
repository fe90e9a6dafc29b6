package cli

import (
	"context"
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"srcset/config"
	"srcset/logger"
	"srcset/pipeline"
)

func BuildCmd(opts *globalOptions) *cobra.Command {
	var metricsFile string

	cmd := &cobra.Command{
		Use:   "build <image>...",
		Short: "Render variants and write modules with hashed asset URLs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			ctx := logger.ContextWithLogger(cmd.Context(), logger.GetDefault())
			return runBuild(ctx, cfg, args, metricsFile)
		},
	}

	cmd.Flags().StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics to this file")

	return cmd
}

func runBuild(ctx context.Context, cfg *config.Config, ids []string, metricsFile string) error {
	s := newSession(cfg, pipeline.ModeBuild, afero.NewOsFs())
	runErr := s.runAll(ctx, ids)

	if metricsFile != "" {
		if err := s.metrics.WriteTextfile(metricsFile); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}
	if runErr != nil {
		return runErr
	}

	logger.FromContext(ctx).Info("Build complete",
		"modules", len(ids), "assets", len(s.registry.Assets()), "out", cfg.Output.Dir)
	return nil
}
