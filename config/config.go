package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"srcset/marker"
	"srcset/render"
	"srcset/rules"
)

// Config represents the srcset configuration file
type Config struct {
	Mode     string         `yaml:"mode" validate:"omitempty,oneof=serve build"`
	Marker   MarkerConfig   `yaml:"marker"`
	Defaults DefaultsConfig `yaml:"defaults"`
	Rules    []RuleConfig   `yaml:"rules" validate:"dive"`
	Render   RenderConfig   `yaml:"render"`
	Output   OutputConfig   `yaml:"output"`
	Log      LogConfig      `yaml:"log"`
}

// MarkerConfig selects the recognition convention. Set exactly one of the two.
type MarkerConfig struct {
	Query  string `yaml:"query" validate:"excluded_with=Suffix"`
	Suffix string `yaml:"suffix"`
}

type DefaultsConfig struct {
	Formats         map[string]bool `yaml:"formats"`
	Widths          []int           `yaml:"widths" validate:"omitempty,dive,gt=0"`
	AssetNamePrefix string          `yaml:"asset_name_prefix"`
}

// RuleConfig is one rules entry. Pointer and nil-able fields distinguish
// "not set" from "set to empty".
type RuleConfig struct {
	Include         StringList      `yaml:"include"`
	Exclude         StringList      `yaml:"exclude"`
	Formats         map[string]bool `yaml:"formats"`
	Widths          []int           `yaml:"widths" validate:"omitempty,dive,gt=0"`
	AssetNamePrefix *string         `yaml:"asset_name_prefix"`
}

type RenderConfig struct {
	// Concurrency bounds renders per image; GlobalLimit bounds them per process
	Concurrency int   `yaml:"concurrency" validate:"gte=0"`
	GlobalLimit int64 `yaml:"global_limit" validate:"gte=0"`
}

type OutputConfig struct {
	Dir        string `yaml:"dir"`
	AssetsDir  string `yaml:"assets_dir"`
	PublicPath string `yaml:"public_path"`
	Root       string `yaml:"root"`
}

type LogConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error disabled"`
	JSON  bool   `yaml:"json"`
}

// StringList accepts either a single string or a list in YAML.
type StringList []string

func (s *StringList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		*s = StringList{value.Value}
		return nil
	}
	var list []string
	if err := value.Decode(&list); err != nil {
		return err
	}
	*s = list
	return nil
}

var validate = validator.New()

// Load reads and parses the configuration file, then applies environment overrides
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes YAML config data, applies env overrides and validates the result
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// LoadEnvFile loads KEY=VALUE pairs from a .env file into the process
// environment. Variables already set win. A missing file is not an error.
func LoadEnvFile(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// applyEnv lets SRCSET_* variables override file values
func (c *Config) applyEnv() {
	if v := os.Getenv("SRCSET_MODE"); v != "" {
		c.Mode = v
	}
	if v := os.Getenv("SRCSET_OUT_DIR"); v != "" {
		c.Output.Dir = v
	}
	if v := os.Getenv("SRCSET_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("SRCSET_RENDER_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Render.Concurrency = n
		}
	}
}

// Validate checks field constraints and format names
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if _, err := parseFormats(c.Defaults.Formats); err != nil {
		return fmt.Errorf("defaults.formats: %w", err)
	}
	for i, r := range c.Rules {
		if _, err := parseFormats(r.Formats); err != nil {
			return fmt.Errorf("rules[%d].formats: %w", i, err)
		}
		if _, err := rules.NewFilter(r.Include, r.Exclude); err != nil {
			return fmt.Errorf("rules[%d]: %w", i, err)
		}
	}
	return nil
}

// MarkerValue returns the configured recognition convention
func (c *Config) MarkerValue() marker.Marker {
	if c.Marker.Suffix != "" {
		return marker.SuffixMarker(c.Marker.Suffix)
	}
	return marker.QueryMarker(c.Marker.Query)
}

// Defaults converts the defaults section, filling gaps with the built-in values
func (c *Config) Defaults() rules.Options {
	opts := rules.Defaults(nil)
	if c.Defaults.Formats != nil {
		// Validate already rejected unknown names
		opts.OutputFormats, _ = parseFormats(c.Defaults.Formats)
	}
	if c.Defaults.Widths != nil {
		opts.OutputWidths = c.Defaults.Widths
	}
	opts.AssetNamePrefix = c.Defaults.AssetNamePrefix
	return opts
}

// RuleList converts the rules section in declaration order
func (c *Config) RuleList() []rules.Rule {
	out := make([]rules.Rule, 0, len(c.Rules))
	for _, r := range c.Rules {
		rule := rules.Rule{
			Include:         r.Include,
			Exclude:         r.Exclude,
			OutputWidths:    r.Widths,
			AssetNamePrefix: r.AssetNamePrefix,
		}
		if r.Formats != nil {
			rule.OutputFormats, _ = parseFormats(r.Formats)
		}
		out = append(out, rule)
	}
	return out
}

func parseFormats(in map[string]bool) (map[render.Format]bool, error) {
	if in == nil {
		return nil, nil
	}
	out := make(map[render.Format]bool, len(in))
	for name, on := range in {
		f, err := render.ParseFormat(name)
		if err != nil {
			return nil, err
		}
		out[f] = on
	}
	return out, nil
}
