package render

import (
	"fmt"
	"mime"
	"path"
	"strings"
)

// Format is an output encoding.
type Format string

const (
	AVIF Format = "avif"
	JXL  Format = "jxl"
	WebP Format = "webp"
	JPEG Format = "jpeg"
	PNG  Format = "png"
)

// Priority is the fixed order formats appear in a manifest, most modern first.
// The last enabled format in this order supplies the manifest fallback.
var Priority = []Format{AVIF, JXL, WebP, JPEG, PNG}

// ParseFormat accepts a format name, case-insensitive. "jpg" is an alias for jpeg.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "avif":
		return AVIF, nil
	case "jxl":
		return JXL, nil
	case "webp":
		return WebP, nil
	case "jpeg", "jpg":
		return JPEG, nil
	case "png":
		return PNG, nil
	}
	return "", &UnsupportedFormatError{Format: name}
}

// MIMEType returns the media type of the encoded output.
func (f Format) MIMEType() string {
	return "image/" + string(f)
}

// Extension returns the file extension without dot.
func (f Format) Extension() string {
	return string(f)
}

// Enabled filters Priority down to the formats switched on in set.
func Enabled(set map[Format]bool) []Format {
	out := make([]Format, 0, len(Priority))
	for _, f := range Priority {
		if set[f] {
			out = append(out, f)
		}
	}
	return out
}

// UnsupportedFormatError reports a format name with no encoder.
type UnsupportedFormatError struct {
	Format string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported image format %q", e.Format)
}

// mime.TypeByExtension depends on the host's mime tables, which often lack the
// newer image types.
var extensionTypes = map[string]string{
	".avif": "image/avif",
	".bmp":  "image/bmp",
	".gif":  "image/gif",
	".ico":  "image/x-icon",
	".jpeg": "image/jpeg",
	".jpg":  "image/jpeg",
	".jxl":  "image/jxl",
	".png":  "image/png",
	".svg":  "image/svg+xml",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".webp": "image/webp",
}

// TypeByExtension infers a MIME type from the extension of p. Query strings and
// fragments are ignored. Unknown extensions yield "".
func TypeByExtension(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	ext := strings.ToLower(path.Ext(p))
	if t, ok := extensionTypes[ext]; ok {
		return t
	}
	t := mime.TypeByExtension(ext)
	if i := strings.IndexByte(t, ';'); i >= 0 {
		t = t[:i]
	}
	return t
}
