package ai

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// Completer is the single contract the rest of the system has with the remote
// text-completion service.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

var (
	ErrUpstreamUnavailable = errors.New("upstream llm unavailable")
	ErrMalformedResponse   = errors.New("malformed upstream response")
)

// UpstreamStatusError carries the upstream status code so the transport layer
// can forward it. Unwraps to ErrUpstreamUnavailable.
type UpstreamStatusError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamStatusError) Error() string {
	return fmt.Sprintf("upstream llm status %d: %s", e.StatusCode, e.Body)
}

func (e *UpstreamStatusError) Unwrap() error { return ErrUpstreamUnavailable }

const (
	instOpen  = "[INST]\n"
	instClose = "[\\INST]\n"
)

var whitespaceRuns = regexp.MustCompile(`[ \t]+`)

type InferenceConfig struct {
	Endpoint           string
	Timeout            time.Duration
	MaxRetries         int
	InsecureSkipVerify bool
}

// InferenceClient speaks the tensor-style inference protocol: a single BYTES
// input tensor named "question" carrying the instruction-wrapped prompt, and a
// first output tensor whose first data element holds the completion.
type InferenceClient struct {
	cfg        InferenceConfig
	httpClient *http.Client
}

func NewInferenceClient(cfg InferenceConfig) *InferenceClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.InsecureSkipVerify {
		// Accepted only for private endpoints with self-signed certificates;
		// off unless explicitly configured.
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &InferenceClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
	}
}

type inferenceTensor struct {
	Name       string            `json:"name"`
	Shape      []int             `json:"shape"`
	Datatype   string            `json:"datatype"`
	Data       []string          `json:"data"`
	Parameters map[string]string `json:"parameters,omitempty"`
}

type inferenceRequest struct {
	Inputs []inferenceTensor `json:"inputs"`
}

type inferenceResponse struct {
	Outputs []struct {
		Data []string `json:"data"`
	} `json:"outputs"`
}

func (c *InferenceClient) Complete(ctx context.Context, prompt string) (string, error) {
	prompt = whitespaceRuns.ReplaceAllString(prompt, " ")

	reqBody := inferenceRequest{
		Inputs: []inferenceTensor{
			{
				Name:       "question",
				Shape:      []int{1},
				Datatype:   "BYTES",
				Data:       []string{instOpen + prompt + "\n" + instClose},
				Parameters: map[string]string{"content_type": "np"},
			},
		},
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal inference request failed: %w", err)
	}

	var lastErr error
	backoff := 500 * time.Millisecond
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		answer, retryable, err := c.doComplete(ctx, bodyBytes)
		if err == nil {
			return answer, nil
		}
		lastErr = err
		if !retryable {
			return "", err
		}
	}
	return "", lastErr
}

func (c *InferenceClient) doComplete(ctx context.Context, body []byte) (answer string, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", false, fmt.Errorf("build inference request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Transport-level failure; worth another attempt.
		return "", true, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", true, fmt.Errorf("read inference response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		statusErr := &UpstreamStatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
		return "", resp.StatusCode >= 500, statusErr
	}

	var parsed inferenceResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(parsed.Outputs) == 0 || len(parsed.Outputs[0].Data) == 0 {
		return "", false, fmt.Errorf("%w: missing output tensor", ErrMalformedResponse)
	}

	return stripInstruction(parsed.Outputs[0].Data[0]), false, nil
}

// stripInstruction drops the echoed prompt up to and including the closing
// delimiter; if the delimiter is absent the whole element is the answer.
func stripInstruction(out string) string {
	if _, after, found := strings.Cut(out, instClose); found {
		return strings.TrimSpace(after)
	}
	return strings.TrimSpace(out)
}
