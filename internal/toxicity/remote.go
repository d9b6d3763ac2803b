package toxicity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	LabelOK = "OK"

	DefaultTimeout = 5 * time.Second
	maxErrorBody   = 512
)

// ModelVerdict is the label set returned by the moderation model.
type ModelVerdict struct {
	Labels []string
	Text   string
}

// IsOK reports whether the model marked the text benign.
func (v ModelVerdict) IsOK() bool {
	for _, label := range v.Labels {
		if label == LabelOK {
			return true
		}
	}
	return false
}

// ModelClient is the remote half of the pipeline.
type ModelClient interface {
	Probe(ctx context.Context) error
	Classify(ctx context.Context, text string) (ModelVerdict, error)
}

type RemoteOption func(*RemoteClassifier)

func WithTimeout(d time.Duration) RemoteOption {
	return func(c *RemoteClassifier) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

func WithHTTPClient(client *http.Client) RemoteOption {
	return func(c *RemoteClassifier) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBearerToken authenticates every call with a static token.
func WithBearerToken(token string) RemoteOption {
	return func(c *RemoteClassifier) {
		if token == "" {
			return
		}
		client := *c.httpClient
		client.Transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
			Base:   c.httpClient.Transport,
		}
		c.httpClient = &client
	}
}

// RemoteClassifier talks to the moderation model over HTTP. It never retries;
// every failure surfaces as ErrUnavailable.
type RemoteClassifier struct {
	baseURL    string
	httpClient *http.Client
}

func NewRemoteClassifier(apiBase string, opts ...RemoteOption) *RemoteClassifier {
	if !strings.HasSuffix(apiBase, "/") {
		apiBase += "/"
	}
	c := &RemoteClassifier{
		baseURL:    apiBase,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *RemoteClassifier) BaseURL() string { return c.baseURL }

// Probe succeeds only on HTTP 200 from the API root.
func (c *RemoteClassifier) Probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return unavailable("probe", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return unavailable("probe", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return unavailable("probe", readAPIError(resp))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type classifyRequest struct {
	Text string `json:"text"`
}

type classifyResponse struct {
	Labels *[]string `json:"labels"`
	Text   string    `json:"text"`
}

var errMissingLabels = errors.New("response has no labels")

func (c *RemoteClassifier) Classify(ctx context.Context, text string) (ModelVerdict, error) {
	body, err := json.Marshal(classifyRequest{Text: text})
	if err != nil {
		return ModelVerdict{}, unavailable("classify", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"classify", bytes.NewReader(body))
	if err != nil {
		return ModelVerdict{}, unavailable("classify", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ModelVerdict{}, unavailable("classify", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ModelVerdict{}, unavailable("classify", readAPIError(resp))
	}

	var decoded classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return ModelVerdict{}, unavailable("classify", fmt.Errorf("decode response: %w", err))
	}
	if decoded.Labels == nil {
		return ModelVerdict{}, unavailable("classify", errMissingLabels)
	}

	labels := make([]string, 0, len(*decoded.Labels))
	for _, label := range *decoded.Labels {
		label = strings.TrimSpace(label)
		if label != "" {
			labels = append(labels, label)
		}
	}
	verdict := ModelVerdict{Labels: labels, Text: decoded.Text}
	if verdict.Text == "" {
		verdict.Text = text
	}
	return verdict, nil
}

func readAPIError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &APIError{StatusCode: resp.StatusCode, Body: string(data)}
}
