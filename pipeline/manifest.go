package pipeline

import (
	"fmt"
	"strconv"
	"strings"

	"srcset/esmodule"
	"srcset/render"
)

// FileURLPrefix is the bundler placeholder an artifact reference is appended to.
// The host replaces `import.meta.ROLLUP_FILE_URL_<ref>` with the final asset URL.
const FileURLPrefix = "import.meta.ROLLUP_FILE_URL_"

// ArtifactRef is the opaque token the host hands back for an emitted asset.
type ArtifactRef string

// Expr is the expression that evaluates to the artifact's URL at runtime.
func (r ArtifactRef) Expr() string {
	return FileURLPrefix + string(r)
}

// Source is one encoding of the image.
type Source struct {
	Type   string
	Srcset esmodule.Literal
}

// Manifest is the default export of a generated module.
type Manifest struct {
	Sources  []Source
	Fallback esmodule.Literal
}

// MarshalES implements esmodule.Marshaler.
func (m Manifest) MarshalES() any {
	sources := make([]any, 0, len(m.Sources))
	for _, s := range m.Sources {
		sources = append(sources, esmodule.Object{
			{Key: "type", Value: s.Type},
			{Key: "srcset", Value: s.Srcset},
		})
	}
	return esmodule.Object{
		{Key: "sources", Value: sources},
		{Key: "fallback", Value: m.Fallback},
	}
}

// Variant is one rendered (format, width) combination.
type Variant struct {
	Format render.Format
	Width  int
	Data   []byte
}

// Artifact is a variant after registration with the host.
type Artifact struct {
	Name   string
	Ref    ArtifactRef
	Format render.Format
	Width  int
	Size   int
}

// srcsetTemplate interpolates `<expr> <w>w` for each pair, comma separated.
func srcsetTemplate(exprs []string, widths []int) esmodule.Literal {
	parts := make([]string, len(widths))
	for i, w := range widths {
		parts[i] = esmodule.Expr(exprs[i]) + " " + strconv.Itoa(w) + "w"
	}
	return esmodule.Template(strings.Join(parts, ", "))
}

func assetName(prefix, baseName string, width int, format render.Format) string {
	return fmt.Sprintf("%s%s_%d.%s", prefix, baseName, width, format.Extension())
}
