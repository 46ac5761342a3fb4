package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/crudkit/internal/resource"
	"github.com/roach88/crudkit/internal/store"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Config{
		DBPath:          "crudkit.db",
		HTTPAddr:        ":8080",
		LogLevel:        "info",
		LogFormat:       "text",
		ShutdownTimeout: 10 * time.Second,
	}, cfg)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("CRUDKIT_DB_PATH", "/tmp/x.db")
	t.Setenv("CRUDKIT_HTTP_ADDR", "127.0.0.1:9000")
	t.Setenv("CRUDKIT_RESOURCES", "defs.yaml")
	t.Setenv("CRUDKIT_LOG_LEVEL", "debug")
	t.Setenv("CRUDKIT_LOG_FORMAT", "json")
	t.Setenv("CRUDKIT_SHUTDOWN_TIMEOUT", "3s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x.db", cfg.DBPath)
	assert.Equal(t, "127.0.0.1:9000", cfg.HTTPAddr)
	assert.Equal(t, "defs.yaml", cfg.ResourcesFile)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name, key, value, want string
	}{
		{"bad duration", "CRUDKIT_SHUTDOWN_TIMEOUT", "soon", "parse env:"},
		{"bad level", "CRUDKIT_LOG_LEVEL", "loud", "unknown log level"},
		{"bad format", "CRUDKIT_LOG_FORMAT", "xml", "unknown log format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(Config{LogLevel: "warn", LogFormat: "json"}, &buf)
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown", "resource", "items")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, "items", entry["resource"])

	buf.Reset()
	logger, err = NewLogger(Config{LogLevel: "debug", LogFormat: "text"}, &buf)
	require.NoError(t, err)
	logger.Debug("detail")
	assert.Contains(t, buf.String(), "msg=detail")
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("ERROR")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelError, level)

	_, err = ParseLevel("")
	assert.Error(t, err)
}

func expectedDefinitions() []resource.Definition {
	return []resource.Definition{
		{
			Name: "items",
			Key:  "id",
			Fields: []resource.FieldDef{
				{Name: "id", Kind: store.KindString},
				{Name: "name", Kind: store.KindString},
				{Name: "count", Kind: store.KindInt},
			},
			Searchable:   []string{"name"},
			Filterable:   []string{"count"},
			Distinctable: []string{"name"},
		},
		{
			Name:  "notes",
			Table: "note_rows",
			Key:   "id",
			Fields: []resource.FieldDef{
				{Name: "id", Kind: store.KindInt},
				{Name: "body", Kind: store.KindString},
				{Name: "meta", Kind: store.KindJSON},
			},
			Searchable: []string{"body"},
		},
	}
}

func TestLoadResources_Formats(t *testing.T) {
	for _, file := range []string{"resources.yaml", "resources.cue", "resources.json"} {
		t.Run(file, func(t *testing.T) {
			defs, err := LoadResources(filepath.Join("testdata", file))
			require.NoError(t, err)
			assert.Equal(t, expectedDefinitions(), defs)
		})
	}
}

func TestLoadResources_Errors(t *testing.T) {
	tests := []struct {
		file string
		want string
	}{
		{"bad_kind.cue", "validate cue"},
		{"unknown_field.yaml", "colour"},
		{"duplicate.yaml", `duplicate resource "items"`},
		{"missing.yaml", "read resources"},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			_, err := LoadResources(filepath.Join("testdata", tt.file))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadResources_UnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "defs.toml")
	require.NoError(t, os.WriteFile(path, []byte(""), 0o644))

	_, err := LoadResources(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")
}

func TestValidateDefinitions_SemanticErrors(t *testing.T) {
	defs := []resource.Definition{
		{Name: "a", Key: "id", Fields: []resource.FieldDef{{Name: "id", Kind: store.KindString}}, Searchable: []string{"nope"}},
		{Name: "b", Key: "missing", Fields: []resource.FieldDef{{Name: "id", Kind: store.KindString}}},
		{Name: "c", Table: "shared", Key: "id", Fields: []resource.FieldDef{{Name: "id", Kind: store.KindInt}}},
		{Name: "d", Table: "shared", Key: "id", Fields: []resource.FieldDef{{Name: "id", Kind: store.KindInt}}},
	}

	err := ValidateDefinitions(defs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resources[0]")
	assert.Contains(t, err.Error(), "resources[1]")
	assert.Contains(t, err.Error(), `duplicate table "shared"`)
}
