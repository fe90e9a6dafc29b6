package render

import (
	"testing"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name    string
		want    Format
		wantErr bool
	}{
		{"webp", WebP, false},
		{"JPG", JPEG, false},
		{" avif ", AVIF, false},
		{"jxl", JXL, false},
		{"png", PNG, false},
		{"tiff", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFormat(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestEnabled(t *testing.T) {
	got := Enabled(map[Format]bool{PNG: true, WebP: true, JPEG: false, AVIF: true})
	want := []Format{AVIF, WebP, PNG}

	if len(got) != len(want) {
		t.Fatalf("Enabled() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Enabled()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	if len(Enabled(nil)) != 0 {
		t.Error("Enabled(nil) should be empty")
	}
}

func TestTypeByExtension(t *testing.T) {
	tests := map[string]string{
		"photo.png":             "image/png",
		"/a/b/photo.PNG?srcset": "image/png",
		"icon.svg":              "image/svg+xml",
		"x.jpg#frag":            "image/jpeg",
		"x.avif":                "image/avif",
		"noext":                 "",
	}

	for in, want := range tests {
		if got := TypeByExtension(in); got != want {
			t.Errorf("TypeByExtension(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFormat_MIMEType(t *testing.T) {
	if got := WebP.MIMEType(); got != "image/webp" {
		t.Errorf("MIMEType() = %q", got)
	}
	if got := JPEG.Extension(); got != "jpeg" {
		t.Errorf("Extension() = %q", got)
	}
}
