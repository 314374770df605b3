package transcribe

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

	"github.com/gattil/sup-hcls-generate-clinical-notes-with-ai/internal/auth"
	"github.com/gattil/sup-hcls-generate-clinical-notes-with-ai/internal/logger"
)

const jobsPath = "/v1/medical-transcription-jobs"

// Client calls the managed medical transcription service. Each request
// carries a freshly minted short-lived bearer token.
type Client struct {
	baseURL    string
	signingKey []byte
	issuer     string
	tokenTTL   time.Duration
	httpClient *http.Client
}

func NewClient(baseURL, signingKey, issuer string, tokenTTL time.Duration) *Client {
	normalized := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	return &Client{
		baseURL:    normalized,
		signingKey: []byte(strings.TrimSpace(signingKey)),
		issuer:     issuer,
		tokenTTL:   tokenTTL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// StartJob submits a transcription job and returns the service's view of it.
// The job starts in SUBMITTED and progresses opaquely inside the service.
func (c *Client) StartJob(ctx context.Context, input JobInput) (*Job, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("job name is empty")
	}
	if input.MediaURI == "" {
		return nil, fmt.Errorf("media URI is empty")
	}

	logger.Info(ctx, "submitting transcription job", logger.Fields{
		"job_name":     input.Name,
		"language":     input.LanguageCode,
		"specialty":    input.Specialty,
		"type":         input.ConversationType,
		"max_speakers": input.Settings.MaxSpeakerLabels,
	})

	reqBody, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job input: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+jobsPath, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create job submission request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if err := c.authorize(req); err != nil {
		return nil, err
	}

	job, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("job submission failed: %w", err)
	}

	logger.Info(ctx, "transcription job submitted", logger.Fields{
		"job_name": job.Name,
		"status":   string(job.Status),
	})
	return job, nil
}

// GetJob fetches the current status of a job by name.
func (c *Client) GetJob(ctx context.Context, name string) (*Job, error) {
	if name == "" {
		return nil, fmt.Errorf("job name is empty")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+jobsPath+"/"+url.PathEscape(name), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create job status request: %w", err)
	}
	if err := c.authorize(req); err != nil {
		return nil, err
	}

	job, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("job status query failed: %w", err)
	}
	return job, nil
}

func (c *Client) authorize(req *http.Request) error {
	token, err := auth.MintToken(c.signingKey, c.issuer, c.tokenTTL, time.Now())
	if err != nil {
		return fmt.Errorf("failed to mint bearer token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

func (c *Client) do(req *http.Request) (*Job, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("API returned %d: %s", resp.StatusCode, string(body))
	}

	var job Job
	if err := json.Unmarshal(body, &job); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if job.Name == "" {
		return nil, fmt.Errorf("response missing job name")
	}
	return &job, nil
}
