package config

import (
	"os"
	"path/filepath"
	"testing"

	"srcset/marker"
	"srcset/render"
)

func TestLoadConfig(t *testing.T) {
	// Create temp config file
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "srcset.yaml")

	configContent := `
mode: build

defaults:
  formats:
    webp: true
    png: true
  widths: [64, 128, 256]

rules:
  - include: "*.svg"
    formats:
      webp: true
    widths: [100]
  - include: ["photos/**/*.jpg", "photos/**/*.jpeg"]
    exclude: "**/raw/**"
    formats:
      avif: true
      jpg: true
    asset_name_prefix: "photos/"
  - include: "*.gif"
    formats: {}

render:
  concurrency: 4
  global_limit: 16

output:
  dir: "dist"
  public_path: "/static/"

log:
  level: debug
`

	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to create test config: %v", err)
	}

	// Load config
	cfg, err := Load(configFile)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Mode != "build" {
		t.Errorf("Expected mode 'build', got '%s'", cfg.Mode)
	}

	if len(cfg.Rules) != 3 {
		t.Fatalf("Expected 3 rules, got %d", len(cfg.Rules))
	}

	if len(cfg.Rules[1].Include) != 2 {
		t.Errorf("Expected 2 include patterns, got %d", len(cfg.Rules[1].Include))
	}

	if cfg.Render.GlobalLimit != 16 {
		t.Errorf("Expected global_limit 16, got %d", cfg.Render.GlobalLimit)
	}

	ruleList := cfg.RuleList()

	if ruleList[0].AssetNamePrefix != nil {
		t.Error("Expected unset prefix on first rule")
	}
	if got := *ruleList[1].AssetNamePrefix; got != "photos/" {
		t.Errorf("Expected prefix 'photos/', got '%s'", got)
	}
	if !ruleList[1].OutputFormats[render.JPEG] || !ruleList[1].OutputFormats[render.AVIF] {
		t.Errorf("Expected avif and jpeg enabled, got %v", ruleList[1].OutputFormats)
	}
	if ruleList[1].OutputWidths != nil {
		t.Errorf("Expected unset widths on second rule, got %v", ruleList[1].OutputWidths)
	}
	if ruleList[2].OutputFormats == nil || len(ruleList[2].OutputFormats) != 0 {
		t.Errorf("Expected an explicitly empty format set, got %v", ruleList[2].OutputFormats)
	}

	defaults := cfg.Defaults()
	if len(defaults.OutputWidths) != 3 {
		t.Errorf("Expected 3 default widths, got %v", defaults.OutputWidths)
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:    "empty config",
			config:  Config{},
			wantErr: false,
		},
		{
			name:    "unknown mode",
			config:  Config{Mode: "watch"},
			wantErr: true,
		},
		{
			name: "non-positive width",
			config: Config{
				Rules: []RuleConfig{{Widths: []int{64, 0}}},
			},
			wantErr: true,
		},
		{
			name: "unknown format",
			config: Config{
				Defaults: DefaultsConfig{Formats: map[string]bool{"bmp": true}},
			},
			wantErr: true,
		},
		{
			name: "malformed pattern",
			config: Config{
				Rules: []RuleConfig{{Include: StringList{"[a-"}}},
			},
			wantErr: true,
		},
		{
			name: "both markers",
			config: Config{
				Marker: MarkerConfig{Query: "srcset", Suffix: ".srcset"},
			},
			wantErr: true,
		},
		{
			name:    "bad log level",
			config:  Config{Log: LogConfig{Level: "loud"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SRCSET_MODE", "serve")
	t.Setenv("SRCSET_OUT_DIR", "/tmp/out")
	t.Setenv("SRCSET_RENDER_CONCURRENCY", "3")

	cfg, err := Parse([]byte("mode: build\noutput:\n  dir: dist\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if cfg.Mode != "serve" {
		t.Errorf("Expected mode 'serve', got '%s'", cfg.Mode)
	}
	if cfg.Output.Dir != "/tmp/out" {
		t.Errorf("Expected out dir '/tmp/out', got '%s'", cfg.Output.Dir)
	}
	if cfg.Render.Concurrency != 3 {
		t.Errorf("Expected concurrency 3, got %d", cfg.Render.Concurrency)
	}
}

func TestLoadEnvFile(t *testing.T) {
	tmpDir := t.TempDir()

	if err := LoadEnvFile(filepath.Join(tmpDir, "missing.env")); err != nil {
		t.Errorf("Missing env file should be ignored, got %v", err)
	}

	envFile := filepath.Join(tmpDir, ".env")
	if err := os.WriteFile(envFile, []byte("SRCSET_TEST_LOG_LEVEL=warn\n"), 0644); err != nil {
		t.Fatalf("Failed to write env file: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("SRCSET_TEST_LOG_LEVEL") })

	if err := LoadEnvFile(envFile); err != nil {
		t.Fatalf("LoadEnvFile failed: %v", err)
	}
	if got := os.Getenv("SRCSET_TEST_LOG_LEVEL"); got != "warn" {
		t.Errorf("Expected 'warn', got '%s'", got)
	}
}

func TestMarkerValue(t *testing.T) {
	cfg := &Config{}
	if _, ok := cfg.MarkerValue().(marker.Query); !ok {
		t.Errorf("Expected query marker by default, got %T", cfg.MarkerValue())
	}

	cfg.Marker.Suffix = ".srcset"
	if _, ok := cfg.MarkerValue().(marker.Suffix); !ok {
		t.Errorf("Expected suffix marker, got %T", cfg.MarkerValue())
	}
}
