package openai

import (
	"errors"
	"net/http"

	"github.com/DerwenAI/dylifo/pkg/ai"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const backendName = "openai"

// Client is an ai.Client backed by the OpenAI chat completions API or any
// server that speaks the same protocol.
//
// A Client should be created using NewClient.
type Client struct {
	ai.MetricsRecorder

	model   string
	baseURL string

	ChatClient *openai.Client
}

// NewClientParams defines the configuration parameters for creating a new
// Client.
//
// BaseURL is optional and defaults to the public OpenAI endpoint. MaxRetries
// is handed to the SDK, which retries connection errors, 429 and 5xx replies.
type NewClientParams struct {
	Model      string
	BaseURL    string
	ApiKey     string
	MaxRetries int
	HTTPClient *http.Client
}

// NewClient creates and returns a new Client configured with the provided
// parameters.
//
// Example:
//
//	client, err := openai.NewClient(openai.NewClientParams{
//		Model:  "gpt-4o-mini",
//		ApiKey: os.Getenv("OPENAI_API_KEY"),
//	})
func NewClient(params NewClientParams) (*Client, error) {
	if params.ApiKey == "" {
		return nil, ai.NewBackendError(backendName, http.StatusUnauthorized, errors.New("missing api key"))
	}

	options := []option.RequestOption{
		option.WithAPIKey(params.ApiKey),
		option.WithMaxRetries(params.MaxRetries),
	}
	if params.BaseURL != "" {
		options = append(options, option.WithBaseURL(params.BaseURL))
	}
	if params.HTTPClient != nil {
		options = append(options, option.WithHTTPClient(params.HTTPClient))
	}

	client := openai.NewClient(options...)

	return &Client{
		model:      params.Model,
		baseURL:    params.BaseURL,
		ChatClient: &client,
	}, nil
}

func wrapErr(err error) error {
	status := 0
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		status = apiErr.StatusCode
	}
	return ai.NewBackendError(backendName, status, err)
}
