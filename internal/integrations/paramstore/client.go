// Package paramstore wraps AWS SSM Parameter Store for the runtime settings
// the deploy scripts publish under a common prefix: the AgentCore runtime
// ARN, the LangChain service URL, and the Bedrock model id.
package paramstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// ssmAPI is the minimal AWS SSM interface required by Client.
// *ssm.Client from aws-sdk-go-v2 satisfies this interface.
type ssmAPI interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Getter is the interface that wraps GetParameter. Consumers should depend
// on this interface rather than the concrete *Client so they remain testable
// without real AWS calls.
type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// Client wraps an AWS SSM API for parameter retrieval.
type Client struct {
	api ssmAPI
}

// New creates a Client with the given SSM API implementation.
func New(api ssmAPI) (*Client, error) {
	if api == nil {
		return nil, errors.New("paramstore: api must not be nil")
	}
	return &Client{api: api}, nil
}

// GetParameter fetches a single decrypted parameter value.
func (c *Client) GetParameter(ctx context.Context, name string) (string, error) {
	if c.api == nil {
		return "", errors.New("paramstore: client not initialized")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("paramstore: name is required")
	}

	withDecryption := true
	out, err := c.api.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           &name,
		WithDecryption: &withDecryption,
	})
	if err != nil {
		return "", fmt.Errorf("paramstore: get parameter %q: %w", name, err)
	}
	if out == nil || out.Parameter == nil || out.Parameter.Value == nil {
		return "", errors.New("paramstore: parameter missing value")
	}
	return *out.Parameter.Value, nil
}

// RuntimeConfig is the deployment configuration resolved from the store.
type RuntimeConfig struct {
	AgentRuntimeARN  string
	LangChainBaseURL string
	ModelID          string
}

// LoadRuntimeConfig resolves the known parameters under prefix.
func LoadRuntimeConfig(ctx context.Context, g Getter, prefix string) (RuntimeConfig, error) {
	prefix = strings.TrimRight(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return RuntimeConfig{}, errors.New("paramstore: prefix must not be empty")
	}

	arn, err := g.GetParameter(ctx, prefix+"/agentcore/runtime_arn")
	if err != nil {
		return RuntimeConfig{}, fmt.Errorf("paramstore: load runtime arn: %w", err)
	}
	baseURL, err := g.GetParameter(ctx, prefix+"/langchain/base_url")
	if err != nil {
		return RuntimeConfig{}, fmt.Errorf("paramstore: load langchain base url: %w", err)
	}
	modelID, err := g.GetParameter(ctx, prefix+"/config/model_id")
	if err != nil {
		return RuntimeConfig{}, fmt.Errorf("paramstore: load model id: %w", err)
	}

	return RuntimeConfig{
		AgentRuntimeARN:  arn,
		LangChainBaseURL: baseURL,
		ModelID:          modelID,
	}, nil
}
