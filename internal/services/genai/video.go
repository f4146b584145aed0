package genai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// VideoRequest describes one video synthesis call. The image, when present,
// conditions the clip's opening frame.
type VideoRequest struct {
	Prompt          string
	ImageData       []byte
	ImageMIMEType   string
	AspectRatio     string
	DurationSeconds int
}

// VideoOperation is a point-in-time snapshot of a long-running synthesis
// operation.
type VideoOperation struct {
	Name     string
	Done     bool
	VideoURI string
	Error    error
}

type predictLongRunningRequest struct {
	Instances  []videoInstance  `json:"instances"`
	Parameters *videoParameters `json:"parameters,omitempty"`
}

type videoInstance struct {
	Prompt string      `json:"prompt"`
	Image  *videoImage `json:"image,omitempty"`
}

type videoImage struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
	MIMEType           string `json:"mimeType"`
}

type videoParameters struct {
	AspectRatio     string `json:"aspectRatio,omitempty"`
	DurationSeconds int    `json:"durationSeconds,omitempty"`
}

type operationResponse struct {
	Name     string          `json:"name"`
	Done     bool            `json:"done"`
	Error    *apiError       `json:"error"`
	Response *videoOpPayload `json:"response"`
}

type videoOpPayload struct {
	GenerateVideoResponse *struct {
		GeneratedSamples []struct {
			Video struct {
				URI string `json:"uri"`
			} `json:"video"`
		} `json:"generatedSamples"`
	} `json:"generateVideoResponse"`
	// Some service versions flatten the samples into a videos list.
	Videos []struct {
		URI string `json:"uri"`
	} `json:"videos"`
}

// StartVideo begins a long-running video synthesis operation against the
// video model and returns the operation name to poll.
func (c *Client) StartVideo(ctx context.Context, req VideoRequest) (string, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return "", errors.New("genai video: prompt required")
	}
	if c.cfg.APIKey == "" {
		return "", errors.New("genai video: api key required")
	}
	if c.cfg.VideoModel == "" {
		return "", errors.New("genai video: video model required")
	}

	instance := videoInstance{Prompt: prompt}
	if len(req.ImageData) > 0 {
		mimeType := strings.TrimSpace(req.ImageMIMEType)
		if mimeType == "" {
			mimeType = "image/png"
		}
		instance.Image = &videoImage{
			BytesBase64Encoded: base64.StdEncoding.EncodeToString(req.ImageData),
			MIMEType:           mimeType,
		}
	}
	payload := predictLongRunningRequest{
		Instances: []videoInstance{instance},
	}
	if req.AspectRatio != "" || req.DurationSeconds > 0 {
		payload.Parameters = &videoParameters{
			AspectRatio:     strings.TrimSpace(req.AspectRatio),
			DurationSeconds: req.DurationSeconds,
		}
	}

	for attempt := 1; ; attempt++ {
		name, err := c.startVideoOnce(ctx, payload)
		if err == nil {
			return name, nil
		}
		delay, again := c.retry.next(ctx, err, attempt)
		if !again {
			if attempt > 1 {
				err = fmt.Errorf("genai video: failed after %d attempts: %w", attempt, err)
			}
			return "", err
		}
		if err := c.retry.sleep(ctx, delay); err != nil {
			return "", err
		}
	}
}

func (c *Client) startVideoOnce(ctx context.Context, payload predictLongRunningRequest) (string, error) {
	body, err := c.postJSON(ctx, c.modelEndpoint(c.cfg.VideoModel, "predictLongRunning"), payload)
	if err != nil {
		return "", err
	}
	var op operationResponse
	if err := json.Unmarshal(body, &op); err != nil {
		return "", fmt.Errorf("genai video: decode start response: %w", err)
	}
	if op.Error != nil {
		return "", fmt.Errorf("genai video: api error %d: %s", op.Error.Code, strings.TrimSpace(op.Error.Message))
	}
	if strings.TrimSpace(op.Name) == "" {
		return "", errors.New("genai video: start response missing operation name")
	}
	return op.Name, nil
}

// PollOperation fetches the current state of a video operation. A single
// poll is one GET with no retries; the caller owns the polling cadence and
// treats transient errors as another pending tick.
func (c *Client) PollOperation(ctx context.Context, operationName string) (VideoOperation, error) {
	name := strings.Trim(strings.TrimSpace(operationName), "/")
	if name == "" {
		return VideoOperation{}, errors.New("genai video: operation name required")
	}
	if c.cfg.APIKey == "" {
		return VideoOperation{}, errors.New("genai video: api key required")
	}

	endpoint := fmt.Sprintf("%s/%s/%s", c.cfg.BaseURL, apiVersion, name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return VideoOperation{}, fmt.Errorf("genai video: new poll request: %w", err)
	}
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return VideoOperation{}, fmt.Errorf("genai video: poll: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return VideoOperation{}, fmt.Errorf("genai video: read poll body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return VideoOperation{}, &statusError{
			Code: resp.StatusCode,
			Body: strings.TrimSpace(string(body)),
		}
	}

	var op operationResponse
	if err := json.Unmarshal(body, &op); err != nil {
		return VideoOperation{}, fmt.Errorf("genai video: decode poll response: %w", err)
	}

	snapshot := VideoOperation{Name: op.Name, Done: op.Done}
	if snapshot.Name == "" {
		snapshot.Name = name
	}
	if op.Error != nil {
		snapshot.Error = fmt.Errorf("operation failed: %s", strings.TrimSpace(op.Error.Message))
		return snapshot, nil
	}
	if op.Done {
		uri := extractVideoURI(op.Response)
		if uri == "" {
			snapshot.Error = errors.New("operation completed without a video result")
			return snapshot, nil
		}
		snapshot.VideoURI = uri
	}
	return snapshot, nil
}

// DownloadVideo retrieves the finished clip from its result URI.
func (c *Client) DownloadVideo(ctx context.Context, uri string) ([]byte, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return nil, errors.New("genai video: download uri required")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("genai video: new download request: %w", err)
	}
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("genai video: download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &statusError{
			Code: resp.StatusCode,
			Body: strings.TrimSpace(string(body)),
		}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("genai video: read clip: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("genai video: downloaded clip is empty")
	}
	return data, nil
}

func extractVideoURI(payload *videoOpPayload) string {
	if payload == nil {
		return ""
	}
	if gvr := payload.GenerateVideoResponse; gvr != nil {
		for _, sample := range gvr.GeneratedSamples {
			if uri := strings.TrimSpace(sample.Video.URI); uri != "" {
				return uri
			}
		}
	}
	for _, video := range payload.Videos {
		if uri := strings.TrimSpace(video.URI); uri != "" {
			return uri
		}
	}
	return ""
}
