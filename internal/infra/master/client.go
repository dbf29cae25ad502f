// Package master provides a client for the mastering backend service.
//
// The backend is the session's "unseen collaborator": it decodes the
// uploaded stems, resolves mute/solo, scales volumes and runs the
// mastering chain. This client only moves bytes and parameters.
package master

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/Britbrat22/aidaw/internal/app/export"
)

// Config represents mastering backend settings.
type Config struct {
	BaseURL    string `yaml:"base_url" mapstructure:"base_url" validate:"required,url"`
	TimeoutSec int    `yaml:"timeout_sec" mapstructure:"timeout_sec" default:"120" validate:"gte=1"`
}

// Client talks to the mastering backend over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

var _ export.Masterer = (*Client)(nil)

// stemMeta mirrors one track's mix parameters on the wire. File names
// the multipart part carrying the stem's audio (empty for placeholder
// tracks with nothing attached).
type stemMeta struct {
	Name   string `json:"name"`
	Volume int    `json:"volume"`
	Muted  bool   `json:"muted"`
	Solo   bool   `json:"solo"`
	File   string `json:"file,omitempty"`
}

// backendError represents an error response from the backend.
type backendError struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// New creates a client from a raw engine settings map.
func New(settings map[string]any) (*Client, error) {
	var cfg Config
	if err := mapstructure.Decode(settings, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, errors.Wrap(err, "validation failed")
	}
	return NewWithConfig(cfg), nil
}

// NewWithConfig creates a client from a typed config.
func NewWithConfig(cfg Config) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSec) * time.Second,
		},
	}
}

// Health probes the backend's health endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to reach mastering backend")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Newf("mastering backend health check returned status %d", resp.StatusCode)
	}

	var body struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return errors.Wrap(err, "failed to parse health response")
	}
	if !body.OK {
		return errors.New("mastering backend reported not ok")
	}
	return nil
}

// MixMaster uploads the session's stems and mix parameters and returns
// the mastered artifact.
func (c *Client) MixMaster(ctx context.Context, req *export.Request) (*export.Artifact, error) {
	body, contentType, err := c.buildBody(req)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("format", string(req.Format))
	params.Set("target_lufs", strconv.FormatFloat(req.TargetLUFS, 'f', -1, 64))
	reqURL := c.baseURL + "/master?" + params.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	httpReq.Header.Set("Content-Type", contentType)

	zlog.Debug().Msgf("master: sending export request: format=%s stems=%d", req.Format, len(req.Tracks))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr backendError
		if err := json.Unmarshal(payload, &apiErr); err == nil && apiErr.Error != "" {
			return nil, errors.Newf("mastering backend error: %s", apiErr.Error)
		}
		return nil, errors.Newf("mastering backend returned status %d", resp.StatusCode)
	}
	if len(payload) == 0 {
		return nil, errors.New("mastering backend returned an empty artifact")
	}

	return &export.Artifact{
		Data:     payload,
		Filename: artifactFilename(resp.Header.Get("Content-Disposition"), req.Format),
		MIMEType: artifactMIME(resp.Header.Get("Content-Type"), req.Format),
	}, nil
}

// buildBody assembles the multipart request: a JSON manifest of the mix
// parameters followed by one file part per stem with audio attached.
func (c *Client) buildBody(req *export.Request) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	manifest := make([]stemMeta, 0, len(req.Tracks))
	for i, t := range req.Tracks {
		meta := stemMeta{
			Name:   t.Name,
			Volume: t.Volume,
			Muted:  t.Muted,
			Solo:   t.Solo,
		}
		if t.Source != nil {
			meta.File = fmt.Sprintf("stem_%d", i)
		}
		manifest = append(manifest, meta)
	}

	manifestJSON, err := json.Marshal(manifest)
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to marshal manifest")
	}
	if err := w.WriteField("manifest", string(manifestJSON)); err != nil {
		return nil, "", errors.Wrap(err, "failed to write manifest part")
	}

	for i, t := range req.Tracks {
		if t.Source == nil {
			continue
		}
		part, err := w.CreateFormFile(fmt.Sprintf("stem_%d", i), t.Source.DisplayName())
		if err != nil {
			return nil, "", errors.Wrap(err, "failed to create stem part")
		}
		rc, err := t.Source.Open()
		if err != nil {
			return nil, "", errors.Wrapf(err, "failed to open source for track %s", t.ID)
		}
		_, err = io.Copy(part, rc)
		if cerr := rc.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return nil, "", errors.Wrapf(err, "failed to copy source for track %s", t.ID)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", errors.Wrap(err, "failed to finalize multipart body")
	}
	return &buf, w.FormDataContentType(), nil
}

// artifactFilename extracts the suggested filename from a
// Content-Disposition header, falling back to a format-derived default.
func artifactFilename(disposition string, format export.Format) string {
	if disposition != "" {
		if _, params, err := mime.ParseMediaType(disposition); err == nil {
			if name := params["filename"]; name != "" {
				return name
			}
		}
	}
	return "mastered" + format.Ext()
}

// artifactMIME picks the artifact MIME type, preferring the backend's
// Content-Type header.
func artifactMIME(contentType string, format export.Format) string {
	if contentType != "" {
		if mt, _, err := mime.ParseMediaType(contentType); err == nil && mt != "" {
			return mt
		}
	}
	return format.MIMEType()
}
