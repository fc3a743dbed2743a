package paramstore

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/require"
)

type fakeSSM struct {
	values    map[string]string
	err       error
	lastInput *ssm.GetParameterInput
}

func (f *fakeSSM) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.lastInput = in
	if f.err != nil {
		return nil, f.err
	}
	value, ok := f.values[aws.ToString(in.Name)]
	if !ok {
		return nil, errors.New("ParameterNotFound")
	}
	return &ssm.GetParameterOutput{
		Parameter: &types.Parameter{Value: aws.String(value)},
	}, nil
}

func TestNew_NilAPI(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}

func TestGetParameter_HappyPath(t *testing.T) {
	api := &fakeSSM{values: map[string]string{"/poc/config/model_id": "anthropic.claude-3-5-sonnet"}}
	c, err := New(api)
	require.NoError(t, err)

	value, err := c.GetParameter(context.Background(), "/poc/config/model_id")
	require.NoError(t, err)
	require.Equal(t, "anthropic.claude-3-5-sonnet", value)
	require.True(t, *api.lastInput.WithDecryption)
}

func TestGetParameter_EmptyName(t *testing.T) {
	c, err := New(&fakeSSM{})
	require.NoError(t, err)

	_, err = c.GetParameter(context.Background(), "   ")
	require.Error(t, err)
}

func TestGetParameter_APIError(t *testing.T) {
	c, err := New(&fakeSSM{err: errors.New("AccessDenied")})
	require.NoError(t, err)

	_, err = c.GetParameter(context.Background(), "/poc/config/model_id")
	require.ErrorContains(t, err, "AccessDenied")
}

func TestLoadRuntimeConfig(t *testing.T) {
	api := &fakeSSM{values: map[string]string{
		"/poc/agentcore/runtime_arn": "arn:aws:bedrock-agentcore:us-west-2:123456789012:runtime/chat_agent-abc",
		"/poc/langchain/base_url":    "https://example.lambda-url.us-west-2.on.aws",
		"/poc/config/model_id":       "anthropic.claude-3-5-sonnet",
	}}
	c, err := New(api)
	require.NoError(t, err)

	cfg, err := LoadRuntimeConfig(context.Background(), c, "/poc/")
	require.NoError(t, err)
	require.Equal(t, "arn:aws:bedrock-agentcore:us-west-2:123456789012:runtime/chat_agent-abc", cfg.AgentRuntimeARN)
	require.Equal(t, "https://example.lambda-url.us-west-2.on.aws", cfg.LangChainBaseURL)
	require.Equal(t, "anthropic.claude-3-5-sonnet", cfg.ModelID)
}

func TestLoadRuntimeConfig_MissingParameter(t *testing.T) {
	api := &fakeSSM{values: map[string]string{
		"/poc/agentcore/runtime_arn": "arn:aws:bedrock-agentcore:us-west-2:123456789012:runtime/chat_agent-abc",
	}}
	c, err := New(api)
	require.NoError(t, err)

	_, err = LoadRuntimeConfig(context.Background(), c, "/poc")
	require.ErrorContains(t, err, "langchain base url")
}

func TestLoadRuntimeConfig_EmptyPrefix(t *testing.T) {
	c, err := New(&fakeSSM{})
	require.NoError(t, err)

	_, err = LoadRuntimeConfig(context.Background(), c, " ")
	require.Error(t, err)
}
