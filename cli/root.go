package cli

import (
	"github.com/spf13/cobra"

	"srcset/config"
	"srcset/logger"
	"srcset/pipeline"
)

func RootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "srcset [image...]",
		Short: "Responsive image variants as ES modules",
		Long: "Responsive image variants as ES modules.\n\n" +
			"Without a subcommand the images are processed in the mode set by\n" +
			"`mode` in the config file or SRCSET_MODE (serve when unset).",
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}

			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			mode, err := configuredMode(cfg)
			if err != nil {
				return err
			}

			ctx := logger.ContextWithLogger(cmd.Context(), logger.GetDefault())
			if mode == pipeline.ModeBuild {
				return runBuild(ctx, cfg, args, "")
			}
			return runServe(ctx, cfg, args, false, 0)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "path to srcset.yaml")
	flags.StringVar(&opts.envFile, "env-file", ".env", "env file with SRCSET_* overrides")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error, disabled)")
	flags.BoolVar(&opts.logJSON, "log-json", false, "log as JSON")
	flags.StringVarP(&opts.outDir, "out", "o", "", "output directory (default \"dist\")")

	root.AddCommand(
		BuildCmd(opts),
		ServeCmd(opts),
	)

	return root
}

// configuredMode reads the session mode from config; empty means serve.
func configuredMode(cfg *config.Config) (pipeline.Mode, error) {
	if cfg.Mode == "" {
		return pipeline.ModeServe, nil
	}
	return pipeline.ParseMode(cfg.Mode)
}
