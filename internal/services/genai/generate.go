package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Part is one piece of a generation request or response: either text or
// inline binary data.
type Part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inlineData,omitempty"`
}

// InlineData carries base64-encoded binary content with its MIME type.
type InlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

// TextPart builds a text part.
func TextPart(text string) Part {
	return Part{Text: text}
}

// ImagePart builds an inline image part from raw bytes.
func ImagePart(data []byte, mimeType string) Part {
	return Part{InlineData: &InlineData{
		MIMEType: strings.TrimSpace(mimeType),
		Data:     base64.StdEncoding.EncodeToString(data),
	}}
}

type generateContentRequest struct {
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	Contents          []content         `json:"contents"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

type generationConfig struct {
	Temperature        float64  `json:"temperature"`
	ResponseMIMEType   string   `json:"responseMimeType,omitempty"`
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
	Error *apiError `json:"error"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// emptyPayloadError marks a well-formed response with nothing usable in it.
// Retrying is worthwhile: empty candidates are usually transient.
type emptyPayloadError struct {
	Op           string
	FinishReason string
	BlockReason  string
	Snippet      string
}

func (e *emptyPayloadError) Error() string {
	return fmt.Sprintf("%s: empty payload (finish_reason=%q, block_reason=%q, response_snippet=%s)",
		e.Op, e.FinishReason, e.BlockReason, e.Snippet)
}

// CompleteJSON issues a JSON-only completion request against the chat model
// and returns the raw JSON payload produced by the model.
func (c *Client) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	userPrompt = strings.TrimSpace(userPrompt)
	if userPrompt == "" {
		return "", errors.New("genai complete: user prompt required")
	}
	return c.CompleteJSONParts(ctx, systemPrompt, TextPart(userPrompt))
}

// CompleteJSONParts is CompleteJSON for multimodal user content: the parts
// may mix text and inline images. The chat model must support image input
// for image parts to carry meaning.
func (c *Client) CompleteJSONParts(ctx context.Context, systemPrompt string, parts ...Part) (string, error) {
	systemPrompt = strings.TrimSpace(systemPrompt)
	if systemPrompt == "" {
		return "", errors.New("genai complete: system prompt required")
	}
	if len(parts) == 0 {
		return "", errors.New("genai complete: user content required")
	}
	if c.cfg.APIKey == "" {
		return "", errors.New("genai complete: api key required")
	}
	if c.cfg.ChatModel == "" {
		return "", errors.New("genai complete: chat model required")
	}

	payload := generateContentRequest{
		SystemInstruction: &content{Parts: []Part{TextPart(systemPrompt)}},
		Contents:          []content{{Role: "user", Parts: parts}},
		GenerationConfig:  &generationConfig{Temperature: 0, ResponseMIMEType: "application/json"},
	}

	response, err := c.generateWithRetry(ctx, c.cfg.ChatModel, payload, "genai complete")
	if err != nil {
		return "", err
	}
	text := firstTextPart(response)
	if text == "" {
		return "", fmt.Errorf("genai complete: response carried no text part")
	}
	return text, nil
}

// EditImage submits a stylization prompt plus one or more input images to the
// image model and returns the first image found in the response.
func (c *Client) EditImage(ctx context.Context, prompt string, images ...Part) ([]byte, string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, "", errors.New("genai image: prompt required")
	}
	if c.cfg.APIKey == "" {
		return nil, "", errors.New("genai image: api key required")
	}
	if c.cfg.ImageModel == "" {
		return nil, "", errors.New("genai image: image model required")
	}

	parts := make([]Part, 0, len(images)+1)
	parts = append(parts, TextPart(prompt))
	parts = append(parts, images...)

	payload := generateContentRequest{
		Contents:         []content{{Role: "user", Parts: parts}},
		GenerationConfig: &generationConfig{Temperature: 0, ResponseModalities: []string{"TEXT", "IMAGE"}},
	}

	response, err := c.generateWithRetry(ctx, c.cfg.ImageModel, payload, "genai image")
	if err != nil {
		return nil, "", err
	}
	for _, candidate := range response.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.InlineData == nil || part.InlineData.Data == "" {
				continue
			}
			data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				return nil, "", fmt.Errorf("genai image: decode inline data: %w", err)
			}
			return data, part.InlineData.MIMEType, nil
		}
	}
	return nil, "", fmt.Errorf("genai image: response carried no image part")
}

func (c *Client) generateWithRetry(ctx context.Context, model string, payload generateContentRequest, op string) (generateContentResponse, error) {
	for attempt := 1; ; attempt++ {
		response, err := c.generateOnce(ctx, model, payload, op)
		if err == nil {
			return response, nil
		}
		delay, again := c.retry.next(ctx, err, attempt)
		if !again {
			if attempt > 1 {
				err = fmt.Errorf("%s: failed after %d attempts: %w", op, attempt, err)
			}
			return generateContentResponse{}, err
		}
		if err := c.retry.sleep(ctx, delay); err != nil {
			return generateContentResponse{}, err
		}
	}
}

func (c *Client) generateOnce(ctx context.Context, model string, payload generateContentRequest, op string) (generateContentResponse, error) {
	var response generateContentResponse
	body, err := c.postJSON(ctx, c.modelEndpoint(model, "generateContent"), payload)
	if err != nil {
		return response, err
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return response, fmt.Errorf("genai request: decode response: %w", err)
	}
	if response.Error != nil {
		return response, fmt.Errorf("genai request: api error %d: %s", response.Error.Code, strings.TrimSpace(response.Error.Message))
	}
	if len(response.Candidates) == 0 || len(response.Candidates[0].Content.Parts) == 0 {
		return response, &emptyPayloadError{
			Op:           op,
			FinishReason: firstFinishReason(response),
			BlockReason:  blockReason(response),
			Snippet:      summarizePayloadSnippet(string(body)),
		}
	}
	return response, nil
}

func (c *Client) postJSON(ctx context.Context, endpoint string, payload any) ([]byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("genai request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("genai request: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("genai request: http error (timeout=%s): %w", c.requestTimeout(), err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("genai request: read body (timeout=%s): %w", c.requestTimeout(), err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return body, &statusError{
			Code:       resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			RetryAfter: retryAfterHint(resp.Header),
		}
	}
	return body, nil
}

func firstTextPart(response generateContentResponse) string {
	for _, candidate := range response.Candidates {
		for _, part := range candidate.Content.Parts {
			if trimmed := strings.TrimSpace(part.Text); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

func firstFinishReason(response generateContentResponse) string {
	for _, candidate := range response.Candidates {
		if reason := strings.TrimSpace(candidate.FinishReason); reason != "" {
			return reason
		}
	}
	return ""
}

func blockReason(response generateContentResponse) string {
	if response.PromptFeedback == nil {
		return ""
	}
	return strings.TrimSpace(response.PromptFeedback.BlockReason)
}

// DecodeModelJSON decodes JSON from a model response, handling common
// formatting quirks such as code fences and prose around the payload.
func DecodeModelJSON(content string, target any) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return errors.New("empty payload")
	}

	directErr := json.Unmarshal([]byte(trimmed), target)
	if directErr == nil {
		return nil
	}

	// Second chance: strip fences and surrounding prose, then re-decode.
	extracted := extractJSONPayload(trimmed)
	if extracted == "" || extracted == trimmed {
		return fmt.Errorf("%w (payload snippet: %s)", directErr, summarizePayloadSnippet(trimmed))
	}
	if err := json.Unmarshal([]byte(extracted), target); err != nil {
		return fmt.Errorf("%w (sanitized payload snippet: %s)", err, summarizePayloadSnippet(extracted))
	}
	return nil
}

// extractJSONPayload digs the JSON document out of a reply that wraps it in
// prose or a code fence. The array span is preferred: operation lists arrive
// as arrays, and a stray brace inside prose would otherwise win.
func extractJSONPayload(content string) string {
	trimmed := strings.TrimSpace(stripCodeFence(content))
	if trimmed == "" {
		return ""
	}
	if trimmed[0] == '{' || trimmed[0] == '[' {
		return trimmed
	}
	if span := bracketSpan(trimmed, '[', ']'); span != "" {
		return span
	}
	if span := bracketSpan(trimmed, '{', '}'); span != "" {
		return span
	}
	return trimmed
}

func bracketSpan(s string, open, closing byte) string {
	start := strings.IndexByte(s, open)
	if start < 0 {
		return ""
	}
	end := strings.LastIndexByte(s, closing)
	if end <= start {
		return ""
	}
	return strings.TrimSpace(s[start : end+1])
}

func stripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	body, found := strings.CutPrefix(trimmed, "```")
	if !found {
		return trimmed
	}
	body = strings.TrimLeft(body, " \t\r\n")
	if len(body) >= 4 && strings.EqualFold(body[:4], "json") {
		body = strings.TrimLeft(body[4:], " \t\r\n")
	}
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}

// summarizePayloadSnippet flattens a payload into one short line for error
// messages.
func summarizePayloadSnippet(content string) string {
	const limit = 160
	clean := strings.Join(strings.Fields(content), " ")
	if clean == "" {
		return "<empty>"
	}
	if runes := []rune(clean); len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}
