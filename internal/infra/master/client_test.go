package master

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Britbrat22/aidaw/internal/app/export"
	"github.com/Britbrat22/aidaw/internal/domain/track"
)

// memSource implements track.Source backed by an in-memory string.
type memSource struct {
	name string
	data string
}

func (s *memSource) SourceID() string    { return "src-" + s.name }
func (s *memSource) DisplayName() string { return s.name }
func (s *memSource) ContentType() string { return "audio/wav" }
func (s *memSource) Release() error      { return nil }

func (s *memSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(s.data)), nil
}

func testRequest() *export.Request {
	kick := track.New("kick.wav", 1, &memSource{name: "kick.wav", data: "KICKDATA"})
	kick.Volume = 60
	placeholder := track.New("", 2, nil)
	placeholder.Muted = true

	return &export.Request{
		Tracks:     []*track.Track{kick, placeholder},
		Format:     export.FormatWAV,
		TargetLUFS: -14,
	}
}

func TestNew_Settings(t *testing.T) {
	client, err := New(map[string]any{"base_url": "http://localhost:8000/"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", client.baseURL)

	_, err = New(map[string]any{})
	assert.Error(t, err, "base_url is required")
}

func TestClient_MixMaster(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/master", r.URL.Path)
		assert.Equal(t, "wav", r.URL.Query().Get("format"))
		assert.Equal(t, "-14", r.URL.Query().Get("target_lufs"))

		require.NoError(t, r.ParseMultipartForm(1<<20))

		var manifest []stemMeta
		require.NoError(t, json.Unmarshal([]byte(r.FormValue("manifest")), &manifest))
		require.Len(t, manifest, 2)
		assert.Equal(t, "kick.wav", manifest[0].Name)
		assert.Equal(t, 60, manifest[0].Volume)
		assert.Equal(t, "stem_0", manifest[0].File)
		assert.True(t, manifest[1].Muted)
		assert.Empty(t, manifest[1].File, "placeholder tracks carry no audio part")

		f, hdr, err := r.FormFile("stem_0")
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, "kick.wav", hdr.Filename)
		data, err := io.ReadAll(f)
		require.NoError(t, err)
		assert.Equal(t, "KICKDATA", string(data))

		w.Header().Set("Content-Type", "audio/wav")
		w.Header().Set("Content-Disposition", `attachment; filename=mastered.wav`)
		fmt.Fprint(w, "MASTERED")
	}))
	defer server.Close()

	client := NewWithConfig(Config{BaseURL: server.URL, TimeoutSec: 5})

	artifact, err := client.MixMaster(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "MASTERED", string(artifact.Data))
	assert.Equal(t, "mastered.wav", artifact.Filename)
	assert.Equal(t, "audio/wav", artifact.MIMEType)
}

func TestClient_MixMaster_BackendError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error": "MP3 export failed (likely ffmpeg missing)."}`)
	}))
	defer server.Close()

	client := NewWithConfig(Config{BaseURL: server.URL, TimeoutSec: 5})

	_, err := client.MixMaster(context.Background(), testRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MP3 export failed")
}

func TestClient_MixMaster_MissingHeadersFallBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// No Content-Disposition, bare octet-stream artifact.
		w.Header().Set("Content-Type", "")
		fmt.Fprint(w, "BYTES")
	}))
	defer server.Close()

	client := NewWithConfig(Config{BaseURL: server.URL, TimeoutSec: 5})

	req := testRequest()
	req.Format = export.FormatMP3
	artifact, err := client.MixMaster(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "mastered.mp3", artifact.Filename)
	assert.Equal(t, "audio/mpeg", artifact.MIMEType)
}

func TestClient_Health(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr bool
	}{
		{name: "healthy", status: http.StatusOK, body: `{"ok": true}`},
		{name: "reports not ok", status: http.StatusOK, body: `{"ok": false}`, wantErr: true},
		{name: "server error", status: http.StatusInternalServerError, body: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/health", r.URL.Path)
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			client := NewWithConfig(Config{BaseURL: server.URL, TimeoutSec: 5})
			err := client.Health(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
