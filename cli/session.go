package cli

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/spf13/afero"

	"srcset/builder"
	"srcset/config"
	"srcset/loader"
	"srcset/logger"
	"srcset/marker"
	"srcset/metrics"
	"srcset/pipeline"
)

const defaultOutDir = "dist"

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	envFile    string
	logLevel   string
	logJSON    bool
	outDir     string
}

// loadConfig reads the env file and config, applies flag overrides and
// sets up the default logger.
func (o *globalOptions) loadConfig() (*config.Config, error) {
	if err := config.LoadEnvFile(o.envFile); err != nil {
		return nil, err
	}

	var (
		cfg *config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.Load(o.configPath)
	} else {
		cfg, err = config.Parse(nil)
	}
	if err != nil {
		return nil, err
	}

	if o.outDir != "" {
		cfg.Output.Dir = o.outDir
	}
	if cfg.Output.Dir == "" {
		cfg.Output.Dir = defaultOutDir
	}

	level := cfg.Log.Level
	if o.logLevel != "" {
		level = o.logLevel
	}
	logger.SetupLogger(level, cfg.Log.JSON || o.logJSON)

	return cfg, nil
}

// session wires one pipeline run: plugin, artifact registry, loaders and metrics.
type session struct {
	plugin   *pipeline.Plugin
	registry *builder.Registry
	files    *loader.File
	marker   marker.Marker
	metrics  *metrics.Prometheus

	// module file name -> resource path that owns it
	modules map[string]string
}

func newSession(cfg *config.Config, mode pipeline.Mode, fs afero.Fs) *session {
	m := cfg.MarkerValue()
	files := loader.NewFile(fs, m, cfg.Output.Root)
	reg := builder.NewRegistry(fs, cfg.Output.Dir, cfg.Output.AssetsDir, cfg.Output.PublicPath)
	rec := metrics.NewPrometheus()

	plugin := pipeline.New(mode,
		pipeline.WithMarker(m),
		pipeline.WithDefaults(cfg.Defaults()),
		pipeline.WithLoader(loader.Chain{files, loader.NewHTTP(m, 30*time.Second, 3)}),
		pipeline.WithRules(cfg.RuleList()...),
		pipeline.WithEmitter(reg),
		pipeline.WithRecorder(rec),
		pipeline.WithRenderConcurrency(cfg.Render.Concurrency),
		pipeline.WithGlobalRenderLimit(cfg.Render.GlobalLimit),
	)

	return &session{
		plugin:   plugin,
		registry: reg,
		files:    files,
		marker:   m,
		metrics:  rec,
		modules:  make(map[string]string),
	}
}

// run transforms one id and writes the resulting module. Unmarked ids are
// marked first so plain file paths work on the command line. Two different
// sources mapping to the same module name is an error; re-running the same
// source rewrites its module.
func (s *session) run(ctx context.Context, id string) (string, error) {
	id = s.marker.Mark(id)
	locator := marker.Path(s.marker, id)
	name := moduleName(locator)

	if owner, taken := s.modules[name]; taken && owner != locator {
		return "", fmt.Errorf("module %s already written for %s", name, owner)
	}

	res, err := s.plugin.Transform(ctx, id)
	if err != nil {
		return "", err
	}
	if res == nil {
		return "", fmt.Errorf("%s was not handled", id)
	}

	target, err := s.registry.WriteModule(name, res.Code)
	if err != nil {
		return "", err
	}
	s.modules[name] = locator
	return target, nil
}

// runAll transforms every id, continuing past failures, and returns them joined.
func (s *session) runAll(ctx context.Context, ids []string) error {
	log := logger.FromContext(ctx)
	var errs []error
	for _, id := range ids {
		target, err := s.run(ctx, id)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
			continue
		}
		log.Info("Wrote module", "id", id, "file", target)
	}
	return errors.Join(errs...)
}

// moduleName maps a resource path to its output module: /a/photo.png -> photo.js.
func moduleName(p string) string {
	base := path.Base(strings.ReplaceAll(p, `\`, "/"))
	return strings.TrimSuffix(base, path.Ext(base)) + ".js"
}
