package drafting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fatflowers/letterdesk/internal/models"
	"github.com/fatflowers/letterdesk/pkg/config"
	"github.com/fatflowers/letterdesk/pkg/logctx"
	"github.com/fatflowers/letterdesk/pkg/metrics"
	"github.com/fatflowers/letterdesk/pkg/types"
)

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// GeminiClient calls the generateContent endpoint of a Gemini compatible API.
// maxResponseBytes caps how much of a drafting response is read.
const maxResponseBytes = 4 << 20

type GeminiClient struct {
	client   *http.Client
	cfg      config.DraftingConfig
	log      *zap.SugaredLogger
	maxBytes int64
}

func NewGeminiClient(cfg *config.Config, log *zap.SugaredLogger) *GeminiClient {
	return &GeminiClient{
		// per call deadlines come from the caller's context
		client:   &http.Client{},
		cfg:      cfg.Drafting,
		log:      log,
		maxBytes: maxResponseBytes,
	}
}

func (c *GeminiClient) Generate(ctx context.Context, letterType types.LetterType, intake *models.IntakeData) (string, error) {
	if intake == nil {
		return "", fmt.Errorf("intake data is required")
	}
	return c.generate(ctx, "generate", buildGeneratePrompt(letterType, intake))
}

func (c *GeminiClient) Improve(ctx context.Context, content, instruction string) (string, error) {
	return c.generate(ctx, "improve", buildImprovePrompt(content, instruction))
}

func (c *GeminiClient) endpoint() string {
	base := strings.TrimRight(c.cfg.BaseURL, "/")
	return fmt.Sprintf("%s/models/%s:generateContent?key=%s", base, c.cfg.Model, url.QueryEscape(c.cfg.APIKey))
}

func (c *GeminiClient) generate(ctx context.Context, operation, prompt string) (string, error) {
	start := time.Now()
	defer func() { metrics.DraftingLatency.WithLabelValues(operation).Observe(metrics.MillisecondsSince(start)) }()

	payload, err := json.Marshal(&generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:     c.cfg.Temperature,
			TopK:            40,
			TopP:            0.95,
			MaxOutputTokens: c.cfg.MaxTokens,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode drafting request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create drafting request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read drafting response: %w", err)
	}
	if int64(len(body)) > c.maxBytes {
		return "", fmt.Errorf("%w: response exceeds %d bytes", ErrUpstream, c.maxBytes)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
			logctx.FromCtx(ctx, c.log).Warnf("drafting call failed, status=%d: %s", resp.StatusCode, errResp.Error.Message)
			return "", fmt.Errorf("%w: %s", ErrUpstream, errResp.Error.Message)
		}
		return "", fmt.Errorf("%w: HTTP %d", ErrUpstream, resp.StatusCode)
	}

	var out generateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("invalid response format from drafting service: %w", err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", ErrEmptyContent
	}
	text := strings.TrimSpace(out.Candidates[0].Content.Parts[0].Text)
	if text == "" {
		return "", ErrEmptyContent
	}
	return text, nil
}
