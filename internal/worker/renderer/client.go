package renderer

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	v0 "audiowave/internal/contracts/renderer/v0"
	"audiowave/internal/pkg/errors"
	"audiowave/internal/pkg/logger"
)

// HTTPClient renders through a remote renderer service speaking the v0
// contract. The service must write to storage shared with this process.
type HTTPClient struct {
	baseURL string
	client  *http.Client
	log     *logger.Logger
}

// NewHTTPClient returns a client for the service at baseURL. Renders are
// bounded only by the caller's context.
func NewHTTPClient(baseURL string, log *logger.Logger) *HTTPClient {
	if log == nil {
		log = logger.Discard()
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
		log:     log.WithComponent("renderer.http"),
	}
}

func (c *HTTPClient) Name() string { return "http" }

// Render posts job to /render and follows the event stream until the
// service reports done or error.
func (c *HTTPClient) Render(ctx context.Context, job Job, onProgress ProgressFunc) (string, error) {
	if err := job.Validate(); err != nil {
		return "", err
	}

	res, err := c.post(ctx, "/render", RequestFromJob(job))
	if err != nil {
		if ctx.Err() != nil {
			return "", errors.WrapWithCode(ctx.Err(), errors.CodeCanceled, "renderer.render", "render canceled")
		}
		return "", errors.Render(err, "renderer service unreachable")
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return "", errors.Render(fmt.Errorf("renderer http %d", res.StatusCode), strings.TrimSpace(string(body))).
			WithField("status", res.StatusCode)
	}

	log := c.log.FromContext(ctx)
	scanner := bufio.NewScanner(res.Body)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var ev v0.Event
		if err := json.Unmarshal(line, &ev); err != nil {
			log.Debug("ignoring malformed renderer event", "line", string(line))
			continue
		}
		switch ev.Type {
		case v0.EventProgress:
			if onProgress != nil {
				onProgress(clamp(ev.Percent))
			}
		case v0.EventError:
			return "", errors.Render(nil, "renderer service failed: "+ev.Message)
		case v0.EventDone:
			out := job.OutputPath
			if ev.OutputPath != "" {
				out = ev.OutputPath
			}
			if err := verifyOutput(out); err != nil {
				return "", err
			}
			return out, nil
		}
	}
	if ctx.Err() != nil {
		return "", errors.WrapWithCode(ctx.Err(), errors.CodeCanceled, "renderer.render", "render canceled")
	}
	if err := scanner.Err(); err != nil {
		return "", errors.Render(err, "renderer event stream broken")
	}
	return "", errors.Render(nil, "renderer stream ended without a completion status")
}

func (c *HTTPClient) post(ctx context.Context, path string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/x-ndjson")

	return c.client.Do(req)
}

// RequestFromJob maps a Job onto the v0 wire contract.
func RequestFromJob(job Job) v0.RenderRequest {
	spec := job.spectrum()
	req := v0.RenderRequest{
		RunID: job.RunID,
		Input: v0.Input{
			AudioPath:           job.AudioPath,
			BackgroundImagePath: job.BackgroundImagePath,
		},
		Output:   v0.Output{VideoPath: job.OutputPath},
		Spectrum: v0.Spectrum{Width: spec.Width, Height: spec.Height, Rotation: spec.Rotation},
	}
	if job.DurationHint != nil {
		req.Input.DurationSeconds = *job.DurationHint
	}
	for _, l := range job.Overlay.Layers() {
		req.Overlay = append(req.Overlay, v0.Layer{
			Text:       l.Banner.Text,
			Background: l.Banner.Background,
			Color:      l.Banner.Color,
			FontFamily: l.Banner.FontFamily,
			FontSize:   l.Banner.FontSize,
			FontWeight: l.Banner.FontWeight,
			FontStyle:  l.Banner.FontStyle,
			Gravity:    l.Placement.Gravity,
			X:          l.Placement.X,
			Y:          l.Placement.Y,
		})
	}
	return req
}
