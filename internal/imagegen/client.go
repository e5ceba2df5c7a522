package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
)

const defaultEndpoint = "https://gateway.pixazo.ai/flux-1-schnell/v1/getData"

// Client generates images from text prompts via the Pixazo flux-1-schnell
// gateway.
type Client struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
}

// New creates a Pixazo image-generation client.
func New(apiKey string) *Client {
	return &Client{
		apiKey:     apiKey,
		endpoint:   defaultEndpoint,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// NewWithEndpoint is like New but targets a custom endpoint. Used in tests.
func NewWithEndpoint(apiKey, endpoint string) *Client {
	c := New(apiKey)
	c.endpoint = endpoint
	return c
}

type generateRequest struct {
	Prompt   string `json:"prompt"`
	NumSteps int    `json:"num_steps"`
	Seed     int    `json:"seed"`
	Height   int    `json:"height"`
	Width    int    `json:"width"`
}

type generateResponse struct {
	Output string `json:"output"`
}

// Generate renders the prompt into a 512x512 image and returns the hosted
// image URL. Rate limits, 5xx responses, and transport errors are retried
// with exponential backoff.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Prompt:   prompt,
		NumSteps: 4,
		Seed:     15,
		Height:   512,
		Width:    512,
	})
	if err != nil {
		return "", err
	}

	var imageURL string
	backoff := retry.WithMaxRetries(3, retry.NewExponential(time.Second))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Cache-Control", "no-cache")
		req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			io.Copy(io.Discard, resp.Body)
			return retry.RetryableError(fmt.Errorf("image api returned status %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("image api returned status %d", resp.StatusCode)
		}

		var parsed generateResponse
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			return fmt.Errorf("failed to decode image response: %w", err)
		}
		if parsed.Output == "" {
			return fmt.Errorf("image response missing output url")
		}

		imageURL = parsed.Output
		return nil
	})
	if err != nil {
		return "", err
	}
	return imageURL, nil
}
