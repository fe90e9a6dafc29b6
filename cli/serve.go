package cli

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"srcset/config"
	"srcset/logger"
	"srcset/pipeline"
	"srcset/watcher"
)

func ServeCmd(opts *globalOptions) *cobra.Command {
	var (
		watch    bool
		debounce time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve <image>...",
		Short: "Write dev modules with inlined images",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			ctx := logger.ContextWithLogger(cmd.Context(), logger.GetDefault())
			return runServe(ctx, cfg, args, watch, debounce)
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "rewrite modules when source images change")
	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "wait this long after a change before rewriting")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, ids []string, watch bool, debounce time.Duration) error {
	log := logger.FromContext(ctx)
	s := newSession(cfg, pipeline.ModeServe, afero.NewOsFs())

	if err := s.runAll(ctx, ids); err != nil {
		if !watch {
			return err
		}
		log.Warn("Initial serve pass had failures", "error", err)
	}
	if !watch {
		return nil
	}

	return s.watch(ctx, ids, debounce)
}

// watch re-runs the ids whose source file changed until ctx is done.
func (s *session) watch(ctx context.Context, ids []string, debounce time.Duration) error {
	log := logger.FromContext(ctx)

	bySource := make(map[string][]string)
	var sources []string
	for _, id := range ids {
		src := s.files.Resolve(s.marker.Mark(id))
		if isRemoteSource(src) {
			continue
		}
		if abs, err := filepath.Abs(src); err == nil {
			src = abs
		}
		if _, seen := bySource[src]; !seen {
			sources = append(sources, src)
		}
		bySource[src] = append(bySource[src], id)
	}

	w, err := watcher.NewWatcher(nil, debounce, log)
	if err != nil {
		return err
	}
	defer w.Stop()

	if err := w.Watch(sources...); err != nil {
		return err
	}
	w.Start()
	log.Info("Watching for changes. Press Ctrl+C to stop", "files", len(sources))

	for {
		select {
		case <-ctx.Done():
			log.Info("Shutting down...")
			return nil
		case event := <-w.Events():
			if event.Type == watcher.EventDeleted {
				log.Warn("Source image removed", "file", event.FilePath)
				continue
			}
			for _, id := range bySource[event.FilePath] {
				if _, err := s.run(ctx, id); err != nil {
					log.Error("Failed to rewrite module", "id", id, "error", err)
				}
			}
		}
	}
}

func isRemoteSource(p string) bool {
	return strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://")
}
