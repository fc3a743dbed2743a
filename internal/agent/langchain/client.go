// Package langchain adapts the deployed LangChain/LangGraph Lambda service
// to the common agent.Invoker signature. Requests are SigV4-signed because
// the service sits behind an IAM-authenticated endpoint.
package langchain

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"

	"github.com/rinaata-aezisai/agentcore-langchain-poc/internal/agent"
	"github.com/rinaata-aezisai/agentcore-langchain-poc/internal/domain"
)

const (
	chatPath      = "/api/v1/chat"
	chatToolsPath = "/api/v1/chat/tools"
	healthPath    = "/api/v1/health"
	infoPath      = "/api/v1/info"

	defaultSigningService = "lambda"
)

// chatRequest is the LangChain service's unified chat request shape.
type chatRequest struct {
	Instruction string `json:"instruction"`
	SessionID   string `json:"session_id,omitempty"`
	UseTools    bool   `json:"use_tools,omitempty"`
}

// chatResponse is the service's response. Tool calls arrive either as
// tool_name/tool_input (the service's unified API) or name/args (raw
// LangGraph bookkeeping); both spellings are accepted.
type chatResponse struct {
	ResponseID string         `json:"response_id"`
	Content    string         `json:"content"`
	ToolCalls  []wireToolCall `json:"tool_calls"`
	Metadata   struct {
		ModelID   string `json:"model_id"`
		Framework string `json:"framework"`
		Region    string `json:"region"`
	} `json:"metadata"`
}

type wireToolCall struct {
	ToolName   string         `json:"tool_name"`
	Name       string         `json:"name"`
	ToolInput  map[string]any `json:"tool_input"`
	Args       map[string]any `json:"args"`
	ToolOutput any            `json:"tool_output"`
}

// HealthStatus is the service's health endpoint payload.
type HealthStatus struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Version   string `json:"version"`
	ModelID   string `json:"model_id"`
	Region    string `json:"region"`
	Timestamp string `json:"timestamp"`
}

// ServiceInfo is the service's info endpoint payload.
type ServiceInfo struct {
	Service   string   `json:"service"`
	Framework string   `json:"framework"`
	Version   string   `json:"version"`
	ModelID   string   `json:"model_id"`
	Region    string   `json:"region"`
	Features  []string `json:"features"`
	Tools     []string `json:"tools"`
}

// HTTPStatusError captures non-2xx upstream responses with status-aware context.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("langchain: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client calls the deployed LangChain service over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	region     string

	creds   aws.CredentialsProvider
	signer  *v4.Signer
	service string
	now     func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithCredentials enables SigV4 signing with the given provider. Without
// credentials, requests go out unsigned (local development only).
func WithCredentials(creds aws.CredentialsProvider) Option {
	return func(c *Client) {
		c.creds = creds
	}
}

// WithSigningService sets the SigV4 service name. The default "lambda" fits
// Lambda Function URLs; API Gateway endpoints use "execute-api".
func WithSigningService(service string) Option {
	return func(c *Client) {
		c.service = strings.TrimSpace(service)
	}
}

// New creates a LangChain service client for the given base URL.
func New(baseURL, region string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("langchain: base URL must not be empty")
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		region:     strings.TrimSpace(region),
		signer:     v4.NewSigner(),
		service:    defaultSigningService,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.service == "" {
		c.service = defaultSigningService
	}
	return c, nil
}

// Invoke sends the instruction to the chat endpoint and normalizes the result.
func (c *Client) Invoke(ctx context.Context, req agent.Request) (agent.Response, error) {
	path := chatPath
	if req.UseTools {
		path = chatToolsPath
	}

	body, err := json.Marshal(chatRequest{
		Instruction: req.Instruction,
		SessionID:   req.SessionID,
		UseTools:    req.UseTools,
	})
	if err != nil {
		return agent.Response{}, fmt.Errorf("langchain: marshal request: %w", err)
	}

	raw, err := c.postJSON(ctx, path, body)
	if err != nil {
		return agent.Response{}, err
	}

	var payload chatResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return agent.Response{}, fmt.Errorf("langchain: decode response: %w", err)
	}
	if payload.Content == "" {
		return agent.Response{}, errors.New("langchain: response has no content")
	}

	toolCalls := normalizeToolCalls(payload.ToolCalls)
	meta := domain.ResponseMetadata{
		Service:   agent.BackendLangChain,
		Framework: payload.Metadata.Framework,
		ModelID:   payload.Metadata.ModelID,
		Region:    payload.Metadata.Region,
		ToolsUsed: len(toolCalls),
	}
	if meta.Framework == "" {
		meta.Framework = "langchain + langgraph"
	}
	if meta.Region == "" {
		meta.Region = c.region
	}

	return agent.Response{
		Content:   payload.Content,
		ToolCalls: toolCalls,
		Metadata:  meta,
	}, nil
}

// Health fetches the service health endpoint.
func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	raw, err := c.getJSON(ctx, healthPath)
	if err != nil {
		return HealthStatus{}, err
	}
	var out HealthStatus
	if err := json.Unmarshal(raw, &out); err != nil {
		return HealthStatus{}, fmt.Errorf("langchain: decode health response: %w", err)
	}
	return out, nil
}

// Info fetches the service info endpoint.
func (c *Client) Info(ctx context.Context) (ServiceInfo, error) {
	raw, err := c.getJSON(ctx, infoPath)
	if err != nil {
		return ServiceInfo{}, err
	}
	var out ServiceInfo
	if err := json.Unmarshal(raw, &out); err != nil {
		return ServiceInfo{}, fmt.Errorf("langchain: decode info response: %w", err)
	}
	return out, nil
}

func normalizeToolCalls(calls []wireToolCall) []domain.ToolCall {
	if len(calls) == 0 {
		return nil
	}
	out := make([]domain.ToolCall, 0, len(calls))
	for _, tc := range calls {
		name := tc.ToolName
		if name == "" {
			name = tc.Name
		}
		input := tc.ToolInput
		if input == nil {
			input = tc.Args
		}
		out = append(out, domain.ToolCall{Name: name, Input: input, Output: tc.ToolOutput})
	}
	return out
}

func (c *Client) postJSON(ctx context.Context, path string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("langchain: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, body)
}

func (c *Client) getJSON(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("langchain: create request: %w", err)
	}
	return c.do(req, nil)
}

func (c *Client) do(req *http.Request, body []byte) ([]byte, error) {
	if err := c.sign(req, body); err != nil {
		return nil, fmt.Errorf("langchain: sign request: %w", err)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("langchain: request failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &HTTPStatusError{
			StatusCode: res.StatusCode,
			URL:        req.URL.String(),
			Body:       string(buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("langchain: read response body: %w", err)
	}
	return buf, nil
}

// sign applies SigV4 to the request when credentials are configured.
func (c *Client) sign(req *http.Request, body []byte) error {
	if c.creds == nil {
		return nil
	}
	creds, err := c.creds.Retrieve(req.Context())
	if err != nil {
		return fmt.Errorf("retrieve credentials: %w", err)
	}
	sum := sha256.Sum256(body)
	return c.signer.SignHTTP(req.Context(), creds, req, hex.EncodeToString(sum[:]), c.service, c.region, c.now())
}
