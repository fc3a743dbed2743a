package agentcore

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentcore"
	"github.com/stretchr/testify/require"

	"github.com/rinaata-aezisai/agentcore-langchain-poc/internal/agent"
	"github.com/rinaata-aezisai/agentcore-langchain-poc/internal/domain"
)

type fakeRuntime struct {
	out       *bedrockagentcore.InvokeAgentRuntimeOutput
	err       error
	lastInput *bedrockagentcore.InvokeAgentRuntimeInput
}

func (f *fakeRuntime) InvokeAgentRuntime(_ context.Context, in *bedrockagentcore.InvokeAgentRuntimeInput, _ ...func(*bedrockagentcore.Options)) (*bedrockagentcore.InvokeAgentRuntimeOutput, error) {
	f.lastInput = in
	return f.out, f.err
}

func jsonOutput(body string) *bedrockagentcore.InvokeAgentRuntimeOutput {
	return &bedrockagentcore.InvokeAgentRuntimeOutput{
		ContentType: aws.String("application/json"),
		Response:    io.NopCloser(strings.NewReader(body)),
	}
}

const testARN = "arn:aws:bedrock-agentcore:us-west-2:123456789012:runtime/chat_agent-abc123"

func mustNewClient(t *testing.T, api runtimeAPI, opts ...Option) *Client {
	t.Helper()
	c, err := New(api, testARN, "us-west-2", opts...)
	require.NoError(t, err)
	return c
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, testARN, "us-west-2")
	require.Error(t, err)

	_, err = New(&fakeRuntime{}, "  ", "us-west-2")
	require.Error(t, err)
}

func TestInvoke_HappyPath(t *testing.T) {
	body := `{
		"output": {
			"message": {"role": "assistant", "content": [{"text": "It is "}, {"text": "sunny."}]},
			"tool_calls": [{"tool_name": "get_current_weather", "tool_input": {"location": "Tokyo"}, "tool_output": "72F"}]
		},
		"metadata": {"model_id": "anthropic.claude-3-5-sonnet", "provider": "bedrock"}
	}`
	api := &fakeRuntime{out: jsonOutput(body)}
	c := mustNewClient(t, api)

	resp, err := c.Invoke(context.Background(), agent.Request{
		Instruction: "what is the weather in Tokyo",
		SessionID:   "0123456789012345678901234567890123456789",
		UseTools:    true,
	})
	require.NoError(t, err)
	require.Equal(t, "It is sunny.", resp.Content)
	require.Equal(t, []domain.ToolCall{{
		Name:   "get_current_weather",
		Input:  map[string]any{"location": "Tokyo"},
		Output: "72F",
	}}, resp.ToolCalls)
	require.Equal(t, agent.BackendAgentCore, resp.Metadata.Service)
	require.Equal(t, "strands-agents", resp.Metadata.Framework)
	require.Equal(t, "anthropic.claude-3-5-sonnet", resp.Metadata.ModelID)
	require.Equal(t, "us-west-2", resp.Metadata.Region)
	require.Equal(t, 1, resp.Metadata.ToolsUsed)
}

func TestInvoke_BuildsPayload(t *testing.T) {
	api := &fakeRuntime{out: jsonOutput(`{"output":{"message":{"content":[{"text":"ok"}]}}}`)}
	c := mustNewClient(t, api)

	_, err := c.Invoke(context.Background(), agent.Request{
		Instruction: "hello",
		SessionID:   "0123456789012345678901234567890123456789",
		UseTools:    true,
		History: []domain.Message{
			{Role: domain.RoleUser, Content: "earlier question"},
			{Role: domain.RoleAssistant, Content: "earlier answer"},
		},
	})
	require.NoError(t, err)

	in := api.lastInput
	require.NotNil(t, in)
	require.Equal(t, testARN, *in.AgentRuntimeArn)
	require.Equal(t, "DEFAULT", *in.Qualifier)
	require.Equal(t, "application/json", *in.ContentType)

	var payload invocationPayload
	require.NoError(t, json.Unmarshal(in.Payload, &payload))
	require.Equal(t, "hello", payload.Input.Prompt)
	require.True(t, payload.Input.UseTools)
	require.Len(t, payload.Input.Messages, 2)
	require.Equal(t, "earlier question", payload.Input.Messages[0].Content)
}

func TestInvoke_ShortSessionIDPadded(t *testing.T) {
	api := &fakeRuntime{out: jsonOutput(`{"output":{"message":{"content":[{"text":"ok"}]}}}`)}
	c := mustNewClient(t, api)

	_, err := c.Invoke(context.Background(), agent.Request{Instruction: "hello", SessionID: "short"})
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(*api.lastInput.RuntimeSessionId), 33)
	require.True(t, strings.HasPrefix(*api.lastInput.RuntimeSessionId, "short-"))
}

func TestInvoke_EmptySessionID(t *testing.T) {
	api := &fakeRuntime{out: jsonOutput(`{"output":{"message":{"content":[{"text":"ok"}]}}}`)}
	c := mustNewClient(t, api)

	_, err := c.Invoke(context.Background(), agent.Request{Instruction: "hello"})
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(*api.lastInput.RuntimeSessionId), 33)
}

func TestInvoke_EventStream(t *testing.T) {
	body := "data: partial one\n\ndata: partial two\n\n"
	api := &fakeRuntime{out: &bedrockagentcore.InvokeAgentRuntimeOutput{
		ContentType: aws.String("text/event-stream"),
		Response:    io.NopCloser(strings.NewReader(body)),
	}}
	c := mustNewClient(t, api)

	resp, err := c.Invoke(context.Background(), agent.Request{Instruction: "hello"})
	require.NoError(t, err)
	require.Equal(t, "partial one\npartial two", resp.Content)
	require.Equal(t, agent.BackendAgentCore, resp.Metadata.Service)
}

func TestInvoke_RuntimeError(t *testing.T) {
	api := &fakeRuntime{err: errors.New("runtime unavailable")}
	c := mustNewClient(t, api)

	_, err := c.Invoke(context.Background(), agent.Request{Instruction: "hello"})
	require.ErrorContains(t, err, "invoke runtime")
}

func TestInvoke_NoTextContent(t *testing.T) {
	api := &fakeRuntime{out: jsonOutput(`{"output":{"message":{"content":[]}}}`)}
	c := mustNewClient(t, api)

	_, err := c.Invoke(context.Background(), agent.Request{Instruction: "hello"})
	require.ErrorContains(t, err, "no text content")
}

func TestInvoke_MalformedBody(t *testing.T) {
	api := &fakeRuntime{out: jsonOutput(`not json`)}
	c := mustNewClient(t, api)

	_, err := c.Invoke(context.Background(), agent.Request{Instruction: "hello"})
	require.ErrorContains(t, err, "decode runtime response")
}

func TestWithQualifier(t *testing.T) {
	api := &fakeRuntime{out: jsonOutput(`{"output":{"message":{"content":[{"text":"ok"}]}}}`)}
	c := mustNewClient(t, api, WithQualifier("LIVE"))

	_, err := c.Invoke(context.Background(), agent.Request{Instruction: "hello"})
	require.NoError(t, err)
	require.Equal(t, "LIVE", *api.lastInput.Qualifier)
}
