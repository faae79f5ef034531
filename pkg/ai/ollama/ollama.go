package ollama

import (
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/DerwenAI/dylifo/pkg/ai"

	"github.com/ollama/ollama/api"
	"github.com/pkoukk/tiktoken-go"
	"golang.org/x/sync/semaphore"
)

const backendName = "ollama"

// Client implements ai.Client on top of a locally hosted Ollama server.
type Client struct {
	ai.MetricsRecorder

	model string

	reqLock *semaphore.Weighted

	baseURL *url.URL
	api     *api.Client
}

// NewClientParams contains configuration options for creating a new Client.
type NewClientParams struct {
	Model   string
	BaseURL string
	// ApiKey is only needed when the server sits behind an authenticating proxy.
	ApiKey string

	// MaxConcurrentRequests bounds in-flight requests; values below 1 mean 1.
	MaxConcurrentRequests int64
	HTTPClient            *http.Client
}

type headerTransport struct {
	headers map[string]string
	rt      http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// clone so original request isn't modified
	r := req.Clone(req.Context())
	for k, v := range t.headers {
		// don't overwrite if already set
		if r.Header.Get(k) == "" {
			r.Header.Set(k, v)
		}
	}
	return t.rt.RoundTrip(r)
}

// NewClient creates an Ollama-backed client for the server at BaseURL.
func NewClient(params NewClientParams) (*Client, error) {
	if params.BaseURL == "" {
		return nil, fmt.Errorf("ollama base url is required")
	}
	u, err := url.Parse(params.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama base url: %w", err)
	}

	httpClient := params.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if params.ApiKey != "" {
		rt := httpClient.Transport
		if rt == nil {
			rt = http.DefaultTransport
		}
		httpClient = &http.Client{
			Timeout: httpClient.Timeout,
			Transport: &headerTransport{
				headers: map[string]string{
					"Authorization": "Bearer " + params.ApiKey,
				},
				rt: rt,
			},
		}
	}

	weight := params.MaxConcurrentRequests
	if weight < 1 {
		weight = 1
	}

	return &Client{
		model:   params.Model,
		reqLock: semaphore.NewWeighted(weight),
		baseURL: u,
		api:     api.NewClient(u, httpClient),
	}, nil
}

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
)

// countTokens estimates prompt size so the context window can be widened for
// long prompts. Without the encoding it falls back to four bytes per token.
var countTokens = func(text string) int {
	encOnce.Do(func() {
		enc, _ = tiktoken.GetEncoding("o200k_base")
	})
	if enc == nil {
		return len(text) / 4
	}
	return len(enc.Encode(text, nil, nil))
}
