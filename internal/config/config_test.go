package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_ExplicitFile(t *testing.T) {
	path := writeConfig(t, `
output_dir: docs
format: markdown
database: .embroider.db
filter: node.kind != "interface"
ignore: [vendor, third_party]
parallel: false
strict: true
log_level: debug
headings:
  constants: Named Constants
  procedures: Routines
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "docs", cfg.OutputDir)
	assert.Equal(t, "markdown", cfg.Format)
	assert.Equal(t, ".embroider.db", cfg.Database)
	assert.Equal(t, `node.kind != "interface"`, cfg.Filter)
	assert.Equal(t, []string{"vendor", "third_party"}, cfg.Ignore)
	assert.False(t, cfg.Parallel)
	assert.False(t, cfg.Force)
	assert.True(t, cfg.Strict)
	assert.Equal(t, zerolog.DebugLevel, cfg.Level())
	assert.Equal(t, Headings{Constants: "Named Constants", Procedures: "Routines"}, cfg.Headings)
	assert.Equal(t, path, cfg.File)
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "textile", cfg.Format)
	assert.True(t, cfg.Parallel)
	assert.Empty(t, cfg.OutputDir)
	assert.Empty(t, cfg.Database)
	assert.Empty(t, cfg.File)
	assert.Equal(t, zerolog.InfoLevel, cfg.Level())
}

func TestLoad_WorkingDirectoryFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("output_dir: out\n"), 0o644))
	t.Chdir(dir)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "out", cfg.OutputDir)
	assert.NotEmpty(t, cfg.File)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "output_dir: docs\n")
	t.Setenv("EMBROIDER_OUTPUT_DIR", "site")
	t.Setenv("EMBROIDER_FORCE", "true")
	t.Setenv("EMBROIDER_HEADINGS_STRUCTS", "Types")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "site", cfg.OutputDir)
	assert.True(t, cfg.Force)
	assert.Equal(t, "Types", cfg.Headings.Structs)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	t.Parallel()
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"format", "format: html\n"},
		{"log level", "log_level: loud\n"},
		{"syntax", "format: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
		})
	}
}
