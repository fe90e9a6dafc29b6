// Package loader provides the byte loaders the pipeline reads source images with.
package loader

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/afero"

	"srcset/marker"
	"srcset/rules"
)

// ErrNotClaimed is returned by loaders asked for an identifier they do not serve.
var ErrNotClaimed = errors.New("identifier not handled by loader")

// File reads the marker-stripped path from a filesystem.
type File struct {
	fs     afero.Fs
	marker marker.Marker
	root   string
}

// NewFile creates a File loader. Relative paths are resolved against root when
// it is set. A nil fs means the OS filesystem.
func NewFile(fs afero.Fs, m marker.Marker, root string) *File {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &File{fs: fs, marker: m, root: root}
}

func (f *File) Load(ctx context.Context, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p := f.Resolve(id)
	if isRemote(p) {
		return nil, fmt.Errorf("%w: %s", ErrNotClaimed, p)
	}
	data, err := afero.ReadFile(f.fs, p)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", p, err)
	}
	return data, nil
}

// Resolve maps id to the filesystem path Load reads.
func (f *File) Resolve(id string) string {
	p := marker.Path(f.marker, id)
	if isRemote(p) {
		return p
	}
	if f.root != "" && !filepath.IsAbs(p) {
		p = filepath.Join(f.root, p)
	}
	return filepath.Clean(filepath.FromSlash(p))
}

// HTTP fetches http(s) locators.
type HTTP struct {
	client *resty.Client
	marker marker.Marker
}

// NewHTTP creates an HTTP loader that retries transient failures.
func NewHTTP(m marker.Marker, timeout time.Duration, retries int) *HTTP {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(retries).
		SetRetryWaitTime(100 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second)
	client.AddRetryCondition(retryCondition)
	return &HTTP{client: client, marker: m}
}

// retryCondition retries network errors and 5xx/429 responses.
func retryCondition(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	if r == nil {
		return false
	}
	return r.StatusCode() >= http.StatusInternalServerError || r.StatusCode() == http.StatusTooManyRequests
}

func (h *HTTP) Load(ctx context.Context, id string) ([]byte, error) {
	u := h.marker.Strip(id)
	if !isRemote(u) {
		return nil, fmt.Errorf("%w: %s", ErrNotClaimed, u)
	}
	resp, err := h.client.R().SetContext(ctx).Get(u)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", u, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("failed to fetch %s: %s", u, resp.Status())
	}
	return resp.Body(), nil
}

// Chain tries each loader in order and returns the first result from a loader
// that claims the identifier.
type Chain []rules.Loader

func (c Chain) Load(ctx context.Context, id string) ([]byte, error) {
	for _, l := range c {
		data, err := l.Load(ctx, id)
		if errors.Is(err, ErrNotClaimed) {
			continue
		}
		return data, err
	}
	return nil, fmt.Errorf("%w: %s", ErrNotClaimed, id)
}

// Default is the file loader chained with the HTTP loader.
func Default(m marker.Marker, root string) rules.Loader {
	return Chain{
		NewFile(nil, m, root),
		NewHTTP(m, 30*time.Second, 3),
	}
}

func isRemote(p string) bool {
	return strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://")
}
