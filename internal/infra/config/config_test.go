package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Britbrat22/aidaw/internal/app/export"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid config",
			config: Config{
				Server: ServerConfig{Addr: ":8080"},
				Library: LibraryConfig{
					MaxUploadMB: 256,
				},
				Export: ExportConfig{
					DefaultFormat: "wav",
					Engine: EngineConfig{
						Type:     "backend",
						Settings: map[string]any{"base_url": "http://localhost:8000"},
					},
				},
			},
			wantErr: false,
		},
		{
			name: "missing engine type",
			config: Config{
				Library: LibraryConfig{MaxUploadMB: 256},
				Export: ExportConfig{
					DefaultFormat: "wav",
				},
			},
			wantErr: true,
			errMsg:  "Type",
		},
		{
			name: "bad default format",
			config: Config{
				Library: LibraryConfig{MaxUploadMB: 256},
				Export: ExportConfig{
					DefaultFormat: "flac",
					Engine:        EngineConfig{Type: "backend"},
				},
			},
			wantErr: true,
			errMsg:  "DefaultFormat",
		},
		{
			name: "zero upload limit",
			config: Config{
				Library: LibraryConfig{MaxUploadMB: 0},
				Export: ExportConfig{
					DefaultFormat: "wav",
					Engine:        EngineConfig{Type: "backend"},
				},
			},
			wantErr: true,
			errMsg:  "MaxUploadMB",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()

			if tt.wantErr {
				require.Error(t, err, "expected validation to fail")
				assert.Contains(t, err.Error(), tt.errMsg,
					"error message should mention the problematic field")
			} else {
				assert.NoError(t, err, "expected validation to pass")
			}
		})
	}
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
export:
  engine:
    type: backend
    settings:
      base_url: "http://localhost:8000"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 256, cfg.Library.MaxUploadMB)
	assert.Equal(t, int64(256)<<20, cfg.MaxUploadBytes())
	assert.Equal(t, "wav", cfg.Export.DefaultFormat)
	assert.Equal(t, -14.0, cfg.Export.TargetLUFS)

	format, err := cfg.ParseDefaultFormat()
	require.NoError(t, err)
	assert.Equal(t, export.FormatWAV, format)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("AIDAW_API_TOKEN", "secret-token")
	t.Setenv("MASTER_BASE_URL", "http://masterer:9000")

	path := writeConfigFile(t, `
api:
  token: "file-token"
export:
  engine:
    type: backend
    settings:
      base_url: "http://localhost:8000"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "secret-token", cfg.API.Token)
	assert.Equal(t, "http://masterer:9000", cfg.Export.Engine.Settings["base_url"])
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
