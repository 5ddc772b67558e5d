package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritzau/orgviz/pkg/filter"
	"github.com/ritzau/orgviz/pkg/model"
	"github.com/ritzau/orgviz/pkg/render"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(NewFlagSet("orgviz"), nil)
	require.NoError(t, err)

	assert.Equal(t, "default.org", cfg.Input)
	assert.NotEmpty(t, cfg.Output)
	assert.Equal(t, "svg", cfg.OutputType)
	assert.Equal(t, "DS", cfg.VizType)
	assert.Equal(t, 100, cfg.DPI)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "/opt/profilePictures/", cfg.ProfilePictureDir)
	assert.False(t, cfg.DotOut)
	assert.Empty(t, cfg.Teams)
}

func TestLoadPriority(t *testing.T) {
	dir := t.TempDir()
	tomlFile := writeFile(t, dir, "orgviz.toml", `
input = "from-toml.org"
output-type = "png"
dpi = 150
port = 9000
`)
	yamlFile := writeFile(t, dir, "orgviz.yaml", `
input: from-yaml.org
teams:
  - Eng
  - Sales
`)
	t.Setenv("ORGVIZ_DPI", "200")
	t.Setenv("ORGVIZ_INFLUENCE", "enemy, supporter")

	f := NewFlagSet("orgviz")
	require.NoError(t, f.Parse([]string{"--port", "9999", "-a", "team=Eng"}))

	cfg, err := load(f, []string{tomlFile, yamlFile})
	require.NoError(t, err)

	assert.Equal(t, "from-yaml.org", cfg.Input, "later file wins")
	assert.Equal(t, "png", cfg.OutputType, "toml value kept when yaml is silent")
	assert.Equal(t, []string{"Eng", "Sales"}, cfg.Teams)
	assert.Equal(t, 200, cfg.DPI, "env beats files")
	assert.Equal(t, []string{"enemy", "supporter"}, cfg.Influence)
	assert.Equal(t, 9999, cfg.Port, "flags beat everything")
	assert.Equal(t, []string{"team=Eng"}, cfg.AttributeMatches)
}

func TestLoadEnvLists(t *testing.T) {
	t.Setenv("ORGVIZ_ATTRIBUTE_MATCHES", "team=Eng, country=Swe,")
	t.Setenv("ORGVIZ_TEAMS", "Eng,Sales")

	cfg, err := load(NewFlagSet("orgviz"), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"team=Eng", "country=Swe"}, cfg.AttributeMatches)
	assert.Equal(t, []string{"Eng", "Sales"}, cfg.Teams)
	assert.Equal(t, []filter.AttributeMatch{
		{Key: "team", Substring: "Eng"},
		{Key: "country", Substring: "Swe"},
	}, cfg.Criteria().AttributeMatches)
}

func TestLoadShortFlags(t *testing.T) {
	f := NewFlagSet("orgviz")
	require.NoError(t, f.Parse([]string{"-I", "acme.org", "-O", "/tmp/out", "-L", "-P", "-T", "png"}))

	cfg, err := load(f, nil)
	require.NoError(t, err)

	assert.Equal(t, "acme.org", cfg.Input)
	assert.Equal(t, "/tmp/out", cfg.Output)
	assert.True(t, cfg.SkipLegend)
	assert.True(t, cfg.ProfilePictures)
	assert.Equal(t, "png", cfg.OutputType)
}

func TestLoadMissingFilesAreIgnored(t *testing.T) {
	dir := t.TempDir()
	_, err := load(nil, []string{filepath.Join(dir, "nope.toml"), filepath.Join(dir, "nope.yaml")})
	assert.NoError(t, err)
}

func TestLoadMalformedFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "orgviz.toml", "input = = broken")
	_, err := load(nil, []string{path})
	assert.Error(t, err)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"output type", []string{"-T", "gif"}, "output-type: must be one of"},
		{"viz type", []string{"--viz-type", "fancy"}, "viz-type: must be one of"},
		{"port", []string{"--port", "0"}, "port: must be at least 1"},
		{"log level", []string{"--log-level", "loud"}, "log-level: must be one of"},
		{"attribute match", []string{"-a", "team"}, "must have the form key=substring"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFlagSet("orgviz")
			require.NoError(t, f.Parse(tt.args))

			_, err := load(f, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRenderOptions(t *testing.T) {
	cfg := &Config{VizType: "inf", OutputType: "svg", DPI: 300, SkipTitle: true, ProfilePictures: true}

	opts := cfg.RenderOptions()
	assert.Equal(t, render.Options{
		Style:           render.StyleInfluence,
		SkipTitle:       true,
		ProfilePictures: true,
	}, opts, "DPI is only used for png")

	cfg.OutputType = "png"
	assert.Equal(t, 300, cfg.RenderOptions().DPI)

	cfg.VizType = "none"
	assert.Equal(t, render.StyleNone, cfg.RenderOptions().Style)
}

func TestCriteria(t *testing.T) {
	cfg := &Config{
		Teams:            []string{"Eng"},
		Influence:        []string{"enemy"},
		AttributeMatches: []string{"country=Swe"},
	}

	assert.Equal(t, filter.Criteria{
		AttributeMatches: []filter.AttributeMatch{{Key: "country", Substring: "Swe"}},
		Teams:            []string{"Eng"},
		Influences:       []string{"enemy"},
	}, cfg.Criteria())
}

func TestCriteriaInfluenceAliases(t *testing.T) {
	t.Setenv("ORGVIZ_INFLUENCE", "Supporter")

	cfg, err := load(NewFlagSet("orgviz"), nil)
	require.NoError(t, err)

	supporter := model.NewPerson("Alice")
	supporter.Influence = model.InfluenceSupporter
	enemy := model.NewPerson("Bob")
	enemy.Influence = model.InfluenceEnemy

	f := filter.New(cfg.Criteria())
	assert.False(t, f.IsExcluded(supporter))
	assert.True(t, f.IsExcluded(enemy))
}
