// Package rules picks the output options that apply to an image identifier.
package rules

import (
	"context"
	"fmt"
	"sort"

	"srcset/render"
)

// Loader produces the raw bytes for an identifier. The identifier passed in
// is the original one, including the srcset marker and any query data.
type Loader interface {
	Load(ctx context.Context, id string) ([]byte, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, id string) ([]byte, error)

// Load calls f(ctx, id).
func (f LoaderFunc) Load(ctx context.Context, id string) ([]byte, error) {
	return f(ctx, id)
}

// DefaultWidths are used when neither a rule nor the defaults set widths.
var DefaultWidths = []int{64, 128, 256, 512, 1024}

// DefaultFormats are used when neither a rule nor the defaults set formats.
var DefaultFormats = map[render.Format]bool{render.PNG: true, render.WebP: true}

// Rule is one entry of the user configuration. Unset fields fall back to the
// defaults independently of each other.
type Rule struct {
	Include []string
	Exclude []string

	// nil means unset; an empty non-nil map disables every format
	OutputFormats map[render.Format]bool
	OutputWidths  []int

	AssetNamePrefix *string
	Loader          Loader
}

// Options are the fully populated settings for one identifier.
type Options struct {
	OutputFormats   map[render.Format]bool
	OutputWidths    []int
	AssetNamePrefix string
	Loader          Loader
}

// Defaults returns the built-in options with the given loader.
func Defaults(loader Loader) Options {
	formats := make(map[render.Format]bool, len(DefaultFormats))
	for f, on := range DefaultFormats {
		formats[f] = on
	}
	return Options{
		OutputFormats: formats,
		OutputWidths:  append([]int(nil), DefaultWidths...),
		Loader:        loader,
	}
}

// Resolve returns the options of the first rule whose filter accepts id, or
// defaults when none does. Later rules are never consulted once one matches.
func Resolve(id string, rules []Rule, defaults Options) (Options, error) {
	for i, rule := range rules {
		filter, err := NewFilter(rule.Include, rule.Exclude)
		if err != nil {
			return Options{}, fmt.Errorf("rule %d: %w", i, err)
		}
		if !filter.Match(id) {
			continue
		}
		return rule.apply(defaults), nil
	}
	return defaults, nil
}

func (r Rule) apply(defaults Options) Options {
	opts := defaults
	if r.OutputFormats != nil {
		opts.OutputFormats = r.OutputFormats
	}
	if r.OutputWidths != nil {
		opts.OutputWidths = r.OutputWidths
	}
	if r.AssetNamePrefix != nil {
		opts.AssetNamePrefix = *r.AssetNamePrefix
	}
	if r.Loader != nil {
		opts.Loader = r.Loader
	}
	return opts
}

// SortedWidths returns the widths ascending with duplicates removed. The
// receiver's slice is left untouched.
func (o Options) SortedWidths() []int {
	widths := append([]int(nil), o.OutputWidths...)
	sort.Ints(widths)

	out := widths[:0]
	for _, w := range widths {
		if len(out) > 0 && out[len(out)-1] == w {
			continue
		}
		out = append(out, w)
	}
	return out
}

// Formats returns the enabled formats in manifest priority order.
func (o Options) Formats() []render.Format {
	return render.Enabled(o.OutputFormats)
}
