// Package agent defines the common call signature shared by the AgentCore
// and LangChain backends. Each adapter translates its backend's wire shape
// into the normalized Response so callers never see framework specifics.
package agent

import (
	"context"

	"github.com/rinaata-aezisai/agentcore-langchain-poc/internal/domain"
)

// Backend names reported in response metadata and accepted in requests.
const (
	BackendAgentCore = "agentcore"
	BackendLangChain = "langchain"
)

// Request is a single instruction dispatched to a backend, with optional
// prior conversation context.
type Request struct {
	Instruction string
	SessionID   string
	History     []domain.Message
	UseTools    bool
}

// Response is the backend-agnostic result of one invocation.
type Response struct {
	Content   string
	ToolCalls []domain.ToolCall
	Metadata  domain.ResponseMetadata
}

// Invoker executes one instruction against a hosted agent backend. The
// tool-call loop runs inside the backend; Invoke returns only its outcome.
type Invoker interface {
	Invoke(ctx context.Context, req Request) (Response, error)
}
