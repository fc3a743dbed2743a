package domain

// ChatRequest is the unified request accepted by both agent backends.
type ChatRequest struct {
	Instruction string `json:"instruction"`
	SessionID   string `json:"session_id,omitempty"`
	UseTools    bool   `json:"use_tools,omitempty"`
}

// ToolCall is the normalized record of a single model-initiated tool
// invocation. AgentCore reports tool_name/tool_input/tool_output and
// LangChain reports name/args; the adapters map both onto this shape.
type ToolCall struct {
	Name   string         `json:"name"`
	Input  map[string]any `json:"input,omitempty"`
	Output any            `json:"output,omitempty"`
}

// ResponseMetadata identifies which backend produced a response and how.
type ResponseMetadata struct {
	Service   string `json:"service"`
	Framework string `json:"framework"`
	ModelID   string `json:"model_id"`
	Region    string `json:"region"`
	ToolsUsed int    `json:"tools_used"`
}

// ChatResponse is the unified comparison schema returned by every backend.
type ChatResponse struct {
	ResponseID string           `json:"response_id"`
	Content    string           `json:"content"`
	ToolCalls  []ToolCall       `json:"tool_calls,omitempty"`
	LatencyMS  int64            `json:"latency_ms"`
	Metadata   ResponseMetadata `json:"metadata"`
}

// BackendResult is one side of a comparison run. Exactly one of Response
// and Error is set.
type BackendResult struct {
	Response *ChatResponse `json:"response,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// ComparisonResult holds both backends' answers to the same instruction.
// LatencyDeltaMS is agentcore minus langchain; negative means AgentCore
// answered first. It is zero unless both sides succeeded.
type ComparisonResult struct {
	AgentCore      BackendResult `json:"agentcore"`
	LangChain      BackendResult `json:"langchain"`
	LatencyDeltaMS int64         `json:"latency_delta_ms"`
}
