// Package agentcore adapts the AWS Bedrock AgentCore runtime to the common
// agent.Invoker signature. The deployed Strands Agents container runs the
// tool-call loop; this client only shapes the /invocations payload and
// normalizes the response.
package agentcore

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentcore"
	"github.com/google/uuid"

	"github.com/rinaata-aezisai/agentcore-langchain-poc/internal/agent"
	"github.com/rinaata-aezisai/agentcore-langchain-poc/internal/domain"
)

const defaultQualifier = "DEFAULT"

// runtimeAPI is the minimal AgentCore runtime interface required by Client.
// *bedrockagentcore.Client satisfies it.
type runtimeAPI interface {
	InvokeAgentRuntime(ctx context.Context, in *bedrockagentcore.InvokeAgentRuntimeInput, optFns ...func(*bedrockagentcore.Options)) (*bedrockagentcore.InvokeAgentRuntimeOutput, error)
}

// invocationInput mirrors the agent container's /invocations input schema.
type invocationInput struct {
	Prompt   string        `json:"prompt"`
	Messages []wireMessage `json:"messages,omitempty"`
	UseTools bool          `json:"use_tools,omitempty"`
}

type invocationPayload struct {
	Input invocationInput `json:"input"`
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// invocationOutput is the shape the Strands container returns from
// /invocations: output.message.content[].text plus optional tool calls.
type invocationOutput struct {
	Output struct {
		Message struct {
			Role    string `json:"role"`
			Content []struct {
				Text string `json:"text"`
			} `json:"content"`
		} `json:"message"`
		ToolCalls []wireToolCall `json:"tool_calls"`
	} `json:"output"`
	Metadata struct {
		ModelID  string `json:"model_id"`
		Provider string `json:"provider"`
	} `json:"metadata"`
}

// wireToolCall is AgentCore's tool-call bookkeeping shape.
type wireToolCall struct {
	ToolName   string         `json:"tool_name"`
	ToolInput  map[string]any `json:"tool_input"`
	ToolOutput any            `json:"tool_output"`
}

// Client invokes a deployed AgentCore runtime by ARN.
type Client struct {
	api       runtimeAPI
	arn       string
	qualifier string
	region    string
}

// Option configures a Client.
type Option func(*Client)

// WithQualifier selects a runtime endpoint qualifier other than DEFAULT.
func WithQualifier(q string) Option {
	return func(c *Client) {
		c.qualifier = strings.TrimSpace(q)
	}
}

// New creates an AgentCore runtime adapter for the given runtime ARN.
func New(api runtimeAPI, runtimeARN, region string, opts ...Option) (*Client, error) {
	if api == nil {
		return nil, errors.New("agentcore: api must not be nil")
	}
	runtimeARN = strings.TrimSpace(runtimeARN)
	if runtimeARN == "" {
		return nil, errors.New("agentcore: runtime ARN must not be empty")
	}
	c := &Client{
		api:       api,
		arn:       runtimeARN,
		qualifier: defaultQualifier,
		region:    strings.TrimSpace(region),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.qualifier == "" {
		c.qualifier = defaultQualifier
	}
	return c, nil
}

// Invoke sends the instruction to the runtime and normalizes the result.
func (c *Client) Invoke(ctx context.Context, req agent.Request) (agent.Response, error) {
	payload, err := json.Marshal(buildPayload(req))
	if err != nil {
		return agent.Response{}, fmt.Errorf("agentcore: marshal payload: %w", err)
	}

	out, err := c.api.InvokeAgentRuntime(ctx, &bedrockagentcore.InvokeAgentRuntimeInput{
		AgentRuntimeArn:  aws.String(c.arn),
		RuntimeSessionId: aws.String(runtimeSessionID(req.SessionID)),
		Qualifier:        aws.String(c.qualifier),
		ContentType:      aws.String("application/json"),
		Accept:           aws.String("application/json"),
		Payload:          payload,
	})
	if err != nil {
		return agent.Response{}, fmt.Errorf("agentcore: invoke runtime: %w", err)
	}
	if out.Response == nil {
		return agent.Response{}, errors.New("agentcore: empty runtime response")
	}
	defer func() { _ = out.Response.Close() }()

	var resp agent.Response
	if strings.Contains(aws.ToString(out.ContentType), "text/event-stream") {
		// Streaming invocations deliver the text as SSE data lines; there is
		// no structured envelope to decode.
		body, err := drainEventStream(out.Response)
		if err != nil {
			return agent.Response{}, fmt.Errorf("agentcore: read event stream: %w", err)
		}
		resp = agent.Response{Content: string(body)}
	} else {
		body, err := readAll(out.Response)
		if err != nil {
			return agent.Response{}, fmt.Errorf("agentcore: read runtime response: %w", err)
		}
		resp, err = parseResponse(body)
		if err != nil {
			return agent.Response{}, err
		}
	}
	resp.Metadata.Service = agent.BackendAgentCore
	if resp.Metadata.Framework == "" {
		resp.Metadata.Framework = "strands-agents"
	}
	resp.Metadata.Region = c.region
	resp.Metadata.ToolsUsed = len(resp.ToolCalls)
	return resp, nil
}

func buildPayload(req agent.Request) invocationPayload {
	in := invocationInput{
		Prompt:   req.Instruction,
		UseTools: req.UseTools,
	}
	for _, m := range req.History {
		in.Messages = append(in.Messages, wireMessage{Role: m.Role, Content: m.Content})
	}
	return invocationPayload{Input: in}
}

// runtimeSessionID returns a session id satisfying the AgentCore runtime
// minimum of 33 characters.
func runtimeSessionID(sessionID string) string {
	if len(sessionID) >= 33 {
		return sessionID
	}
	if sessionID == "" {
		return uuid.NewString()
	}
	return sessionID + "-" + uuid.NewString()
}

func parseResponse(body []byte) (agent.Response, error) {
	var out invocationOutput
	if err := json.Unmarshal(body, &out); err != nil {
		return agent.Response{}, fmt.Errorf("agentcore: decode runtime response: %w", err)
	}

	var sb strings.Builder
	for _, block := range out.Output.Message.Content {
		sb.WriteString(block.Text)
	}
	if sb.Len() == 0 {
		return agent.Response{}, errors.New("agentcore: runtime response has no text content")
	}

	toolCalls := make([]domain.ToolCall, 0, len(out.Output.ToolCalls))
	for _, tc := range out.Output.ToolCalls {
		toolCalls = append(toolCalls, domain.ToolCall{
			Name:   tc.ToolName,
			Input:  tc.ToolInput,
			Output: tc.ToolOutput,
		})
	}
	if len(toolCalls) == 0 {
		toolCalls = nil
	}

	return agent.Response{
		Content:   sb.String(),
		ToolCalls: toolCalls,
		Metadata: domain.ResponseMetadata{
			ModelID: out.Metadata.ModelID,
		},
	}, nil
}

// drainEventStream collects the data lines of a server-sent-events body; the
// runtime streams partial text this way when invoked with a streaming accept.
func drainEventStream(r io.Reader) ([]byte, error) {
	var parts []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "data: ") {
			parts = append(parts, strings.TrimPrefix(line, "data: "))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return []byte(strings.Join(parts, "\n")), nil
}

func readAll(r io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, 1<<20))
}
