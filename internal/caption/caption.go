// Package caption implements the client side of the optional AI-captioning
// provider contract: given an image URL and a model
// identifier, return a caption string. The provider itself is an external
// collaborator; only this client contract belongs to this system.
package caption

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client calls a pluggable HTTP captioning endpoint. No state is persisted
// across calls; failures are the caller's to swallow.
type Client struct {
	Endpoint string
	Model    string
	Token    string // bearer token, set for Hugging Face inference endpoints
	Timeout  time.Duration

	// httpDoFn is the overridable transport seam, grounded on the
	// overridable-function-variable idiom.
	httpDoFn func(*http.Request) (*http.Response, error)
}

// New constructs a captioning Client for one endpoint/model pair.
func New(endpoint, model string) *Client {
	timeout := 30 * time.Second
	return &Client{
		Endpoint: endpoint,
		Model:    model,
		Timeout:  timeout,
		httpDoFn: (&http.Client{Timeout: timeout}).Do,
	}
}

// hfInferenceEndpoints maps the --hf-model shorthand names to the Hugging
// Face inference API model they select.
var hfInferenceEndpoints = map[string]string{
	"vit-gpt2":   "https://api-inference.huggingface.co/models/nlpconnect/vit-gpt2-image-captioning",
	"blip-image": "https://api-inference.huggingface.co/models/Salesforce/blip-image-captioning-large",
	"git-large":  "https://api-inference.huggingface.co/models/microsoft/git-large-coco",
}

// NewHuggingFace constructs a Client targeting the Hugging Face inference
// API for one of the named models, authenticated with token.
func NewHuggingFace(token, model string) (*Client, error) {
	endpoint, ok := hfInferenceEndpoints[model]
	if !ok {
		return nil, fmt.Errorf("caption: unknown --hf-model %q (want vit-gpt2, blip-image, or git-large)", model)
	}
	c := New(endpoint, model)
	c.Token = token
	return c, nil
}

type captionRequest struct {
	ImageURL string `json:"image_url"`
	Model    string `json:"model"`
}

type captionResponse struct {
	Caption string `json:"caption"`
}

// Caption requests a caption for imageURL. Failure here is treated as
// non-fatal; callers decide what "non-fatal" means for their target field.
func (c *Client) Caption(ctx context.Context, imageURL string) (string, error) {
	if c.Endpoint == "" {
		return "", fmt.Errorf("caption: no provider endpoint configured")
	}

	payload, err := json.Marshal(captionRequest{ImageURL: imageURL, Model: c.Model})
	if err != nil {
		return "", fmt.Errorf("caption: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("caption: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.httpDoFn(req)
	if err != nil {
		return "", fmt.Errorf("caption: request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("caption: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("caption: status %d: %s", resp.StatusCode, string(body))
	}

	var out captionResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("caption: decode response: %w", err)
	}
	return out.Caption, nil
}
