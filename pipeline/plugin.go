// Package pipeline turns srcset-marked image identifiers into JavaScript
// modules exporting a responsive image manifest.
//
// In serve mode the original image is inlined as a data URL and no resizing
// happens. In build mode every enabled format is rendered at every configured
// width, each variant is registered with the host as an artifact, and the
// manifest refers to the artifacts through host placeholders.
package pipeline

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"path"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"srcset/esmodule"
	"srcset/loader"
	"srcset/logger"
	"srcset/marker"
	"srcset/metrics"
	"srcset/render"
	"srcset/rules"
)

// Mode is the build session mode announced by the host.
type Mode string

const (
	ModeServe Mode = "serve"
	ModeBuild Mode = "build"
)

// ParseMode accepts "serve" or "build".
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeServe:
		return ModeServe, nil
	case ModeBuild:
		return ModeBuild, nil
	}
	return "", fmt.Errorf("unknown mode %q (want serve or build)", s)
}

// Emitter registers a build output and returns a reference to it. It must be
// safe for concurrent use.
type Emitter interface {
	EmitFile(ctx context.Context, name string, source []byte) (ArtifactRef, error)
}

// Result is the module generated for one identifier.
type Result struct {
	Code      string
	Manifest  Manifest
	Artifacts []Artifact
}

// Plugin holds the configuration of one build session.
type Plugin struct {
	mode        Mode
	rules       []rules.Rule
	defaults    rules.Options
	marker      marker.Marker
	renderer    render.Renderer
	emitter     Emitter
	recorder    metrics.Recorder
	concurrency int
	global      *semaphore.Weighted
}

// Option configures a Plugin.
type Option func(*Plugin)

// WithRules sets the ordered rule list. The first matching rule wins.
func WithRules(r ...rules.Rule) Option {
	return func(p *Plugin) {
		p.rules = append(p.rules, r...)
	}
}

// WithDefaults replaces the options used when no rule matches. A nil loader
// keeps the default file loader.
func WithDefaults(d rules.Options) Option {
	return func(p *Plugin) {
		prev := p.defaults.Loader
		p.defaults = d
		if p.defaults.Loader == nil {
			p.defaults.Loader = prev
		}
	}
}

// WithMarker sets the recognition convention. QueryMarker("srcset") is the default.
func WithMarker(m marker.Marker) Option {
	return func(p *Plugin) {
		p.marker = m
	}
}

// WithLoader replaces the default loader.
func WithLoader(l rules.Loader) Option {
	return func(p *Plugin) {
		p.defaults.Loader = l
	}
}

// WithRenderer replaces the default render.Engine.
func WithRenderer(r render.Renderer) Option {
	return func(p *Plugin) {
		p.renderer = r
	}
}

// WithEmitter sets the artifact registry. Build mode requires one.
func WithEmitter(e Emitter) Option {
	return func(p *Plugin) {
		p.emitter = e
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(p *Plugin) {
		p.recorder = r
	}
}

// WithRenderConcurrency bounds concurrent renders within one Transform call.
func WithRenderConcurrency(n int) Option {
	return func(p *Plugin) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithGlobalRenderLimit bounds concurrent renders across all Transform calls
// of this Plugin.
func WithGlobalRenderLimit(n int64) Option {
	return func(p *Plugin) {
		if n > 0 {
			p.global = semaphore.NewWeighted(n)
		}
	}
}

// New creates a Plugin for one build session. An empty mode means serve.
func New(mode Mode, opts ...Option) *Plugin {
	if mode == "" {
		mode = ModeServe
	}
	p := &Plugin{
		mode:        mode,
		marker:      marker.QueryMarker(""),
		recorder:    metrics.Nop{},
		concurrency: runtime.NumCPU(),
	}
	p.defaults = rules.Defaults(nil)
	for _, opt := range opts {
		opt(p)
	}
	if p.defaults.Loader == nil {
		p.defaults.Loader = loader.Default(p.marker, "")
	}
	if p.renderer == nil {
		p.renderer = render.NewEngine()
	}
	return p
}

// Mode returns the session mode.
func (p *Plugin) Mode() Mode {
	return p.mode
}

// Transform generates the module for id. It returns nil, nil for identifiers
// without the recognition marker, without touching the loader.
func (p *Plugin) Transform(ctx context.Context, id string) (*Result, error) {
	if !p.marker.Match(id) {
		p.recorder.TransformDone(string(p.mode), "declined")
		logger.FromContext(ctx).Debug("Declined unmarked id", "id", id, "mode", p.mode)
		return nil, nil
	}

	locator := strings.ReplaceAll(marker.Path(p.marker, id), `\`, "/")
	log := logger.FromContext(ctx).With("id", locator, "mode", p.mode)

	res, err := p.transform(ctx, id, locator)
	if err != nil {
		var cfgErr *ConfigError
		if errors.As(err, &cfgErr) {
			p.recorder.TransformDone(string(p.mode), "config_error")
		} else {
			p.recorder.TransformDone(string(p.mode), "error")
		}
		log.Error("Transform failed", "error", err)
		return nil, err
	}

	p.recorder.TransformDone(string(p.mode), "ok")
	log.Info("Transformed image", "sources", len(res.Manifest.Sources), "artifacts", len(res.Artifacts))
	return res, nil
}

func (p *Plugin) transform(ctx context.Context, id, locator string) (*Result, error) {
	opts, err := rules.Resolve(locator, p.rules, p.defaults)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve options for %s: %w", locator, err)
	}

	if p.mode == ModeServe {
		src, err := opts.Loader.Load(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", locator, err)
		}
		return serve(locator, src, opts.OutputWidths), nil
	}

	formats := opts.Formats()
	widths := opts.SortedWidths()
	if len(formats) == 0 || len(widths) == 0 {
		return nil, &ConfigError{ID: locator, Err: ErrNoOutputs}
	}
	if p.emitter == nil {
		return nil, errors.New("build mode requires an emitter")
	}

	src, err := opts.Loader.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", locator, err)
	}

	variants, err := p.renderAll(ctx, src, formats, widths)
	if err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", locator, err)
	}

	baseName := strings.TrimSuffix(path.Base(locator), path.Ext(locator))
	artifacts := make([]Artifact, len(variants))
	for i, v := range variants {
		name := assetName(opts.AssetNamePrefix, baseName, v.Width, v.Format)
		ref, err := p.emitter.EmitFile(ctx, name, v.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to emit %s: %w", name, err)
		}
		p.recorder.ArtifactEmitted(string(v.Format))
		artifacts[i] = Artifact{Name: name, Ref: ref, Format: v.Format, Width: v.Width, Size: len(v.Data)}
	}

	return assemble(formats, widths, artifacts), nil
}

// renderAll renders every format at every width. The result is indexed
// format-major in the order given, independent of completion order.
func (p *Plugin) renderAll(ctx context.Context, src []byte, formats []render.Format, widths []int) ([]Variant, error) {
	variants := make([]Variant, len(formats)*len(widths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for fi, format := range formats {
		for wi, width := range widths {
			idx := fi*len(widths) + wi
			g.Go(func() error {
				if p.global != nil {
					if err := p.global.Acquire(gctx, 1); err != nil {
						return err
					}
					defer p.global.Release(1)
				}

				start := time.Now()
				data, err := p.renderer.Render(gctx, src, width, format)
				if err != nil {
					return fmt.Errorf("%s at %dw: %w", format, width, err)
				}
				p.recorder.VariantRendered(string(format), time.Since(start), len(data))
				logger.FromContext(ctx).Debug("Rendered variant", "format", format, "width", width, "bytes", len(data))

				variants[idx] = Variant{Format: format, Width: width, Data: data}
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return variants, nil
}

func assemble(formats []render.Format, widths []int, artifacts []Artifact) *Result {
	sources := make([]Source, len(formats))
	for fi, format := range formats {
		exprs := make([]string, len(widths))
		for wi := range widths {
			exprs[wi] = artifacts[fi*len(widths)+wi].Ref.Expr()
		}
		sources[fi] = Source{Type: format.MIMEType(), Srcset: srcsetTemplate(exprs, widths)}
	}

	// last width of the last enabled format
	fallback := artifacts[len(artifacts)-1].Ref
	manifest := Manifest{Sources: sources, Fallback: esmodule.Literal(fallback.Expr())}

	return &Result{
		Code:      "export default " + esmodule.Marshal(manifest) + ";\n",
		Manifest:  manifest,
		Artifacts: artifacts,
	}
}

// serve inlines src as a data URL. Widths are descriptive only; every entry
// points at the same unscaled image.
func serve(locator string, src []byte, widths []int) *Result {
	mimeType := render.TypeByExtension(locator)
	dataURL := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(src)

	exprs := make([]string, len(widths))
	for i := range widths {
		exprs[i] = "imgUrl"
	}
	manifest := Manifest{
		Sources:  []Source{{Type: mimeType, Srcset: srcsetTemplate(exprs, widths)}},
		Fallback: esmodule.Literal("imgUrl"),
	}

	return &Result{
		Code:     "const imgUrl = " + esmodule.Marshal(dataURL) + ";\n\nexport default " + esmodule.Marshal(manifest) + ";\n",
		Manifest: manifest,
	}
}
