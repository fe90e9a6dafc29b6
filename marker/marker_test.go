package marker

import (
	"testing"
)

func TestQuery(t *testing.T) {
	m := QueryMarker("")

	tests := []struct {
		id        string
		wantMatch bool
		wantStrip string
		wantPath  string
	}{
		{"photo.png?srcset", true, "photo.png", "photo.png"},
		{"/a/photo.png?srcset=", true, "/a/photo.png", "/a/photo.png"},
		{"/a/photo.png?w=1&srcset&h=2", true, "/a/photo.png?w=1&h=2", "/a/photo.png"},
		{"/a/photo.png?srcsetx", false, "/a/photo.png?srcsetx", "/a/photo.png"},
		{"/a/photo.png", false, "/a/photo.png", "/a/photo.png"},
		{"/a/srcset.png", false, "/a/srcset.png", "/a/srcset.png"},
		{"/a/photo.png?srcset#top", true, "/a/photo.png#top", "/a/photo.png"},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			if got := m.Match(tt.id); got != tt.wantMatch {
				t.Errorf("Match(%q) = %v, want %v", tt.id, got, tt.wantMatch)
			}
			if got := m.Strip(tt.id); got != tt.wantStrip {
				t.Errorf("Strip(%q) = %q, want %q", tt.id, got, tt.wantStrip)
			}
			if got := Path(m, tt.id); got != tt.wantPath {
				t.Errorf("Path(%q) = %q, want %q", tt.id, got, tt.wantPath)
			}
		})
	}
}

func TestQuery_CustomKey(t *testing.T) {
	m := QueryMarker("responsive")
	if !m.Match("a.png?responsive") {
		t.Error("custom key should match")
	}
	if m.Match("a.png?srcset") {
		t.Error("default key should not match a custom marker")
	}
}

func TestSuffix(t *testing.T) {
	m := SuffixMarker(".srcset")

	tests := []struct {
		id        string
		wantMatch bool
		wantStrip string
	}{
		{"photo.png.srcset", true, "photo.png"},
		{"/a/photo.png.srcset?v=2", true, "/a/photo.png?v=2"},
		{"/a/photo.png", false, "/a/photo.png"},
		{".srcset", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			if got := m.Match(tt.id); got != tt.wantMatch {
				t.Errorf("Match(%q) = %v, want %v", tt.id, got, tt.wantMatch)
			}
			if got := m.Strip(tt.id); got != tt.wantStrip {
				t.Errorf("Strip(%q) = %q, want %q", tt.id, got, tt.wantStrip)
			}
		})
	}

	if got := Path(m, "/a/photo.png.srcset?v=2"); got != "/a/photo.png" {
		t.Errorf("Path() = %q", got)
	}
}

func TestMark(t *testing.T) {
	tests := []struct {
		name string
		m    Marker
		id   string
		want string
	}{
		{"query plain", QueryMarker(""), "/a/photo.png", "/a/photo.png?srcset"},
		{"query existing params", QueryMarker(""), "/a/photo.png?v=2#top", "/a/photo.png?v=2&srcset#top"},
		{"query already marked", QueryMarker(""), "/a/photo.png?srcset=1", "/a/photo.png?srcset=1"},
		{"suffix plain", SuffixMarker(".srcset"), "photo.png?v=2", "photo.png.srcset?v=2"},
		{"suffix already marked", SuffixMarker(".srcset"), "photo.png.srcset", "photo.png.srcset"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.m.Mark(tt.id)
			if got != tt.want {
				t.Errorf("Mark(%q) = %q, want %q", tt.id, got, tt.want)
			}
			if !tt.m.Match(got) {
				t.Errorf("Match(Mark(%q)) = false", tt.id)
			}
		})
	}
}
