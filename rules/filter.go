package rules

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Filter accepts identifiers matched by any include pattern and by no exclude
// pattern. A Filter with no include patterns accepts everything not excluded.
type Filter struct {
	include []string
	exclude []string
}

// NewFilter validates the patterns and builds a Filter.
func NewFilter(include, exclude []string) (*Filter, error) {
	f := &Filter{}
	for _, p := range include {
		p = normalizePattern(p)
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid include pattern %q", p)
		}
		f.include = append(f.include, p)
	}
	for _, p := range exclude {
		p = normalizePattern(p)
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid exclude pattern %q", p)
		}
		f.exclude = append(f.exclude, p)
	}
	return f, nil
}

// Match reports whether id passes the filter.
func (f *Filter) Match(id string) bool {
	// virtual modules are never handled by file patterns
	if strings.ContainsRune(id, 0) {
		return false
	}
	id = strings.ReplaceAll(id, `\`, "/")

	for _, p := range f.exclude {
		if matches(p, id) {
			return false
		}
	}
	if len(f.include) == 0 {
		return true
	}
	for _, p := range f.include {
		if matches(p, id) {
			return true
		}
	}
	return false
}

// matches tries the full identifier first, then the base name for patterns
// that do not name a directory.
func matches(pattern, id string) bool {
	if ok, err := doublestar.Match(pattern, id); err == nil && ok {
		return true
	}
	if strings.Contains(pattern, "/") {
		return false
	}
	ok, err := doublestar.Match(pattern, path.Base(id))
	return err == nil && ok
}

func normalizePattern(p string) string {
	return strings.TrimPrefix(filepath.ToSlash(strings.TrimSpace(p)), "./")
}
