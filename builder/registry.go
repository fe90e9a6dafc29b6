package builder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/segmentio/ksuid"
	"github.com/spf13/afero"

	"srcset/logger"
	"srcset/pipeline"
)

// Asset is one file written by the Registry.
type Asset struct {
	Ref      pipeline.ArtifactRef
	Name     string // requested name, e.g. photo_64.webp
	FileName string // hashed name relative to the output dir
	URL      string
	Size     int
}

// Registry is a filesystem host for pipeline artifacts. Emitted files are
// written under <outDir>/<assetsDir> with a content hash in the name, and
// Finalize swaps the placeholders in generated code for their public URLs.
type Registry struct {
	fs         afero.Fs
	outDir     string
	assetsDir  string
	publicPath string

	mu     sync.RWMutex
	assets []Asset
	byRef  map[pipeline.ArtifactRef]int
}

// NewRegistry creates a Registry writing into outDir. A nil fs means the OS
// filesystem. publicPath is the URL prefix the output dir is served under.
func NewRegistry(fs afero.Fs, outDir, assetsDir, publicPath string) *Registry {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if assetsDir == "" {
		assetsDir = "assets"
	}
	if publicPath == "" {
		publicPath = "/"
	}
	if !strings.HasSuffix(publicPath, "/") {
		publicPath += "/"
	}
	return &Registry{
		fs:         fs,
		outDir:     outDir,
		assetsDir:  assetsDir,
		publicPath: publicPath,
		byRef:      make(map[pipeline.ArtifactRef]int),
	}
}

// EmitFile implements pipeline.Emitter.
func (r *Registry) EmitFile(ctx context.Context, name string, source []byte) (pipeline.ArtifactRef, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	clean := path.Clean(strings.ReplaceAll(name, `\`, "/"))
	if clean == ".." || strings.HasPrefix(clean, "../") || path.IsAbs(clean) {
		return "", fmt.Errorf("asset name %q escapes the assets directory", name)
	}
	fileName := path.Join(r.assetsDir, hashedName(clean, source))
	target := filepath.Join(r.outDir, filepath.FromSlash(fileName))

	// Ensure target folder exists
	if err := r.fs.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return "", fmt.Errorf("failed to create asset directory: %w", err)
	}
	if err := afero.WriteFile(r.fs, target, source, 0644); err != nil {
		return "", fmt.Errorf("failed to write asset %s: %w", fileName, err)
	}

	ref := pipeline.ArtifactRef(ksuid.New().String())

	r.mu.Lock()
	r.byRef[ref] = len(r.assets)
	r.assets = append(r.assets, Asset{
		Ref:      ref,
		Name:     name,
		FileName: fileName,
		URL:      r.publicPath + fileName,
		Size:     len(source),
	})
	r.mu.Unlock()

	logger.FromContext(ctx).Debug("Emitted asset", "name", name, "file", fileName, "bytes", len(source))
	return ref, nil
}

// hashedName inserts the first 8 hex chars of the content hash before the
// extension: photo_64.webp -> photo_64-1a2b3c4d.webp.
func hashedName(name string, source []byte) string {
	sum := sha256.Sum256(source)
	ext := path.Ext(name)
	return strings.TrimSuffix(name, ext) + "-" + hex.EncodeToString(sum[:])[:8] + ext
}

// Lookup returns the asset registered under ref.
func (r *Registry) Lookup(ref pipeline.ArtifactRef) (Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.byRef[ref]
	if !ok {
		return Asset{}, false
	}
	return r.assets[i], true
}

// Assets returns every emitted asset in emission order.
func (r *Registry) Assets() []Asset {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Asset(nil), r.assets...)
}

var placeholderRe = regexp.MustCompile(regexp.QuoteMeta(pipeline.FileURLPrefix) + `([0-9A-Za-z]+)`)

// Finalize replaces every artifact placeholder in code with the quoted public
// URL of the asset. Unknown references are an error.
func (r *Registry) Finalize(code string) (string, error) {
	var missing []string
	out := placeholderRe.ReplaceAllStringFunc(code, func(m string) string {
		ref := pipeline.ArtifactRef(strings.TrimPrefix(m, pipeline.FileURLPrefix))
		asset, ok := r.Lookup(ref)
		if !ok {
			missing = append(missing, string(ref))
			return m
		}
		quoted, _ := json.Marshal(asset.URL)
		return string(quoted)
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("unknown artifact references: %s", strings.Join(missing, ", "))
	}
	return out, nil
}

// WriteModule finalizes code and writes it to <outDir>/<name>.
func (r *Registry) WriteModule(name, code string) (string, error) {
	final, err := r.Finalize(code)
	if err != nil {
		return "", fmt.Errorf("failed to finalize %s: %w", name, err)
	}

	target := filepath.Join(r.outDir, name)
	if err := r.fs.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return "", fmt.Errorf("failed to create module directory: %w", err)
	}
	if err := afero.WriteFile(r.fs, target, []byte(final), 0644); err != nil {
		return "", fmt.Errorf("failed to write module %s: %w", name, err)
	}
	return target, nil
}
