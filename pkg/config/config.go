package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/ritzau/orgviz/pkg/filter"
	"github.com/ritzau/orgviz/pkg/render"
)

// EnvPrefix is the prefix of environment variables read by Load
const EnvPrefix = "ORGVIZ_"

// Config holds all configuration for the application
type Config struct {
	Input             string   `koanf:"input" validate:"required"`
	Output            string   `koanf:"output"`
	SkipLegend        bool     `koanf:"skip-legend"`
	SkipTeams         bool     `koanf:"skip-teams"`
	SkipTitle         bool     `koanf:"skip-title"`
	DotOut            bool     `koanf:"dotout"`
	LogLevel          string   `koanf:"log-level" validate:"omitempty,oneof=trace debug info warn warning error"`
	Teams             []string `koanf:"teams" validate:"dive,required"`
	Influence         []string `koanf:"influence" validate:"dive,required"`
	ProfilePictureDir string   `koanf:"profile-picture-dir"`
	ProfilePictures   bool     `koanf:"profile-pictures"`
	OutputType        string   `koanf:"output-type" validate:"oneof=svg png"`
	KeepDotfile       bool     `koanf:"keep-dotfile"`
	VizType           string   `koanf:"viz-type" validate:"oneof=DS ds dmu-sentiment inf influence none"`
	DPI               int      `koanf:"dpi" validate:"min=1,max=2400"`
	AttributeMatches  []string `koanf:"attribute-matches" validate:"dive,contains=="`
	Watch             bool     `koanf:"watch"`
	Serve             bool     `koanf:"serve"`
	Port              int      `koanf:"port" validate:"min=1,max=65535"`
}

// validate is a singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
	// Report config keys rather than Go field names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return fld.Tag.Get("koanf")
	})
}

// Defaults returns the default value of every key
func Defaults() map[string]interface{} {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}

	return map[string]interface{}{
		"input":               "default.org",
		"output":              cwd,
		"skip-legend":         false,
		"skip-teams":          false,
		"skip-title":          false,
		"dotout":              false,
		"log-level":           "info",
		"teams":               []string{},
		"influence":           []string{},
		"profile-picture-dir": "/opt/profilePictures/",
		"profile-pictures":    false,
		"output-type":         "svg",
		"keep-dotfile":        false,
		"viz-type":            "DS",
		"dpi":                 100,
		"attribute-matches":   []string{},
		"watch":               false,
		"serve":               false,
		"port":                8080,
	}
}

// NewFlagSet defines the command line flags. Flag names match the config keys.
func NewFlagSet(name string) *pflag.FlagSet {
	f := pflag.NewFlagSet(name, pflag.ContinueOnError)

	f.StringP("input", "I", "default.org", "outline file to read")
	f.StringP("output", "O", "", "directory to write the image to (default: current directory)")
	f.BoolP("skip-legend", "L", false, "do not draw the influence legend")
	f.Bool("skip-teams", false, "do not group people into team clusters")
	f.Bool("skip-title", false, "do not print the document title")
	f.Bool("dotout", false, "print the DOT document to stdout instead of rendering an image")
	f.String("log-level", "info", "log level: trace, debug, info, warn or error")
	f.StringSlice("teams", nil, "only include people in these teams")
	f.StringSlice("influence", nil, "only include people with these influence classes")
	f.String("profile-picture-dir", "/opt/profilePictures/", "directory holding <full name>.jpeg pictures")
	f.BoolP("profile-pictures", "P", false, "add profile pictures to nodes")
	f.StringP("output-type", "T", "svg", "image format: svg or png")
	f.Bool("keep-dotfile", false, "also write the DOT document next to the image")
	f.String("viz-type", "DS", "node decoration: DS (dmu/sentiment), inf (influence) or none")
	f.Int("dpi", 100, "resolution of png output")
	f.StringSliceP("attribute-matches", "a", nil, "only include people whose attribute contains a value (key=substring)")
	f.Bool("watch", false, "re-render when the outline file changes")
	f.Bool("serve", false, "start the preview server")
	f.Int("port", 8080, "preview server port")

	return f
}

// Files returns the optional config files in load order. Later files
// override earlier ones.
func Files() []string {
	var files []string
	if home, err := os.UserHomeDir(); err == nil {
		files = append(files,
			filepath.Join(home, ".orgviz.toml"),
			filepath.Join(home, ".orgviz.yaml"))
	}
	return append(files, "orgviz.toml", "orgviz.yaml")
}

// Load loads configuration from defaults, config files, environment variables, and flags.
// Priority: Flags > Env > Config File > Defaults
func Load(f *pflag.FlagSet) (*Config, error) {
	return load(f, Files())
}

func load(f *pflag.FlagSet, files []string) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(makeMapProvider(Defaults()), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config files (optional)
	for _, path := range files {
		if err := loadFile(k, path); err != nil {
			return nil, err
		}
	}

	// 3. Environment Variables
	// Prefix: ORGVIZ_ (e.g., ORGVIZ_OUTPUT_TYPE=png)
	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envKeyValue), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	if f != nil {
		if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// Unmarshal into struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Output == "" {
		cfg.Output = "."
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// loadFile merges a config file if it exists. A missing file is not an error,
// a malformed one is.
func loadFile(k *koanf.Koanf, path string) error {
	var parser koanf.Parser
	switch filepath.Ext(path) {
	case ".toml":
		parser = toml.Parser()
	case ".yaml", ".yml":
		parser = yaml.Parser()
	default:
		return fmt.Errorf("unsupported config file %s", path)
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// envKeyValue maps ORGVIZ_OUTPUT_TYPE to output-type. Team, influence and
// attribute match lists are comma separated.
func envKeyValue(k, v string) (string, interface{}) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(k, EnvPrefix)), "_", "-")

	switch key {
	case "teams", "influence", "attribute-matches":
		var items []string
		for _, item := range strings.Split(v, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		return key, items
	}
	return key, v
}

// Validate checks the struct tags and reports the first violation
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// RenderOptions derives the renderer options. The DPI is only passed on for
// png output.
func (c *Config) RenderOptions() render.Options {
	style, err := render.ParseStyle(c.VizType)
	if err != nil {
		style = render.StyleDMUSentiment
	}

	opts := render.Options{
		Style:           style,
		SkipTitle:       c.SkipTitle,
		SkipTeams:       c.SkipTeams,
		SkipLegend:      c.SkipLegend,
		ProfilePictures: c.ProfilePictures,
	}
	if c.OutputType == "png" {
		opts.DPI = c.DPI
	}
	return opts
}

// Criteria derives the filter criteria. Malformed attribute matches are
// rejected by Validate, so none are lost here.
func (c *Config) Criteria() filter.Criteria {
	matches, _ := filter.ParseAttributeMatches(c.AttributeMatches)
	return filter.Criteria{
		AttributeMatches: matches,
		Teams:            c.Teams,
		Influences:       c.Influence,
	}
}

// formatValidationError converts validator errors to a more user-friendly format
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	// Return the first validation error in a user-friendly format
	for _, e := range validationErrs {
		field := e.Field()
		param := e.Param()

		switch e.Tag() {
		case "required":
			return fmt.Errorf("%s: field is required", field)
		case "min":
			return fmt.Errorf("%s: must be at least %s", field, param)
		case "max":
			return fmt.Errorf("%s: must not exceed %s", field, param)
		case "oneof":
			return fmt.Errorf("%s: must be one of [%s], got %q", field, param, e.Value())
		case "contains":
			return fmt.Errorf("%s: %q must have the form key=substring", field, e.Value())
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, e.Tag())
		}
	}

	return err
}

// Helper to use map as a provider
type mapProvider struct {
	m map[string]interface{}
}

func makeMapProvider(m map[string]interface{}) *mapProvider {
	return &mapProvider{m: m}
}

func (p *mapProvider) Read() (map[string]interface{}, error) {
	return p.m, nil
}

func (p *mapProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("not implemented")
}
