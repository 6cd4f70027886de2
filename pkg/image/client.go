// Package image generates portraits from reply image prompts through a
// Stable Diffusion WebUI server. Generation is best effort: the text
// reply never waits on it or fails because of it.
package image

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

type Client struct {
	baseURL   string
	client    *http.Client
	outputDir string
	options   Options
}

// Options carry the txt2img settings from config.
type Options struct {
	Width          int
	Height         int
	Steps          int
	CFGScale       float64
	NegativePrompt string
}

type txt2imgRequest struct {
	Prompt         string  `json:"prompt"`
	NegativePrompt string  `json:"negative_prompt"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	Steps          int     `json:"steps"`
	CFGScale       float64 `json:"cfg_scale"`
}

type txt2imgResponse struct {
	Images []string `json:"images"`
}

// Result is a generated image saved to disk.
type Result struct {
	Path    string
	Elapsed time.Duration
}

// APIError captures non-200 responses from the WebUI.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("sd-webui status %d: %s", e.StatusCode, e.Body)
}

func NewClient(baseURL, outputDir string, options Options) *Client {
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
		outputDir: outputDir,
		options:   options,
	}
}

// Generate renders the prompt and writes the PNG under the output dir.
func (c *Client) Generate(ctx context.Context, prompt string) (Result, error) {
	reqBody := txt2imgRequest{
		Prompt:         prompt,
		NegativePrompt: c.options.NegativePrompt,
		Width:          c.options.Width,
		Height:         c.options.Height,
		Steps:          c.options.Steps,
		CFGScale:       c.options.CFGScale,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return Result{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sdapi/v1/txt2img", bytes.NewBuffer(jsonBody))
	if err != nil {
		return Result{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("failed to perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return Result{}, &APIError{StatusCode: resp.StatusCode, Body: string(bodyBytes)}
	}

	var apiResp txt2imgResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return Result{}, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(apiResp.Images) == 0 {
		return Result{}, fmt.Errorf("no images in response")
	}

	data, err := base64.StdEncoding.DecodeString(apiResp.Images[0])
	if err != nil {
		return Result{}, fmt.Errorf("failed to decode image data: %w", err)
	}

	if err := os.MkdirAll(c.outputDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("failed to create output dir: %w", err)
	}
	path := filepath.Join(c.outputDir, uuid.NewString()+".png")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return Result{}, fmt.Errorf("failed to write image: %w", err)
	}

	return Result{Path: path, Elapsed: time.Since(start)}, nil
}

// Ping checks the server is up.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/sdapi/v1/sd-models", nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &APIError{StatusCode: resp.StatusCode}
	}
	return nil
}
