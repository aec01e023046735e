package ollama

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultTimeout = 60 * time.Second

	verbatimPrompt = "Extract all data from this image verbatim."
)

// Client is one vision-language model endpoint speaking the ollama generate
// contract: POST /api/generate with base64 images, read back the "response"
// field.
type Client struct {
	name       string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// New builds a client for a named model endpoint. requestsPerSecond <= 0
// disables rate limiting.
func New(name, baseURL string, timeout time.Duration, requestsPerSecond float64) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	var limiter *rate.Limiter
	if requestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}
	return &Client{
		name:       name,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
	}
}

func (c *Client) Name() string {
	return c.name
}

// ExtractText runs the verbatim pass used for classification.
func (c *Client) ExtractText(ctx context.Context, image []byte) (string, error) {
	return c.generate(ctx, image, verbatimPrompt)
}

// ExtractFields runs the typed extraction prompt and parses the structured
// payload. A response that is not a JSON object is kept under raw_response
// rather than discarded.
func (c *Client) ExtractFields(ctx context.Context, image []byte, prompt string) (map[string]any, error) {
	raw, err := c.generate(ctx, image, prompt)
	if err != nil {
		return nil, err
	}
	return parseFields(raw), nil
}

func (c *Client) generate(ctx context.Context, image []byte, prompt string) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	reqBody := map[string]any{
		"images": []string{base64.StdEncoding.EncodeToString(image)},
		"prompt": prompt,
		"model":  c.name,
		"stream": false,
	}

	var response struct {
		Response string `json:"response"`
	}
	if err := c.postJSON(ctx, "/api/generate", reqBody, &response, "generate"); err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Response), nil
}

func parseFields(raw string) map[string]any {
	var fields map[string]any
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &fields); err == nil {
		return fields
	}
	if strings.TrimSpace(raw) == "" {
		return map[string]any{}
	}
	return map[string]any{"raw_response": raw}
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
