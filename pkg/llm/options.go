package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Options configures a platform Streamer.
type Options struct {
	// APIKey authenticates against the platform. Ollama ignores it.
	APIKey string

	// Model overrides the platform's default model.
	Model string

	// Upstream overrides the platform's base URL.
	Upstream string

	// HTTPClient defaults to http.DefaultClient.
	HTTPClient *http.Client
}

// Resolve fills unset fields from the platform defaults.
func (o Options) Resolve(p Platform) Options {
	if o.Model == "" {
		o.Model = p.DefaultModel()
	}
	if o.Upstream == "" {
		o.Upstream = p.DefaultUpstream()
	}
	o.Upstream = strings.TrimRight(o.Upstream, "/")
	if o.HTTPClient == nil {
		o.HTTPClient = http.DefaultClient
	}
	return o
}

// PostJSON sends body as JSON to url and returns the response when the
// status is 2xx. Any other status is drained into a *StatusError.
func PostJSON(ctx context.Context, client *http.Client, platform, url string, header http.Header, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", platform, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{
			Platform:   platform,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(msg)),
		}
	}

	return resp, nil
}
