package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/rinaata-aezisai/agentcore-langchain-poc/internal/agent"
	"github.com/rinaata-aezisai/agentcore-langchain-poc/internal/domain"
)

// CompareInput is one instruction dispatched to both backends.
type CompareInput struct {
	Instruction string
	UseTools    bool
}

// Compare runs the same instruction against both backends in parallel and
// reports both outcomes side by side. Comparison runs are stateless: each
// side gets a throwaway session id and nothing is persisted. One side
// failing does not fail the comparison.
func (s *ChatService) Compare(ctx context.Context, in CompareInput) (domain.ComparisonResult, error) {
	instruction := strings.TrimSpace(in.Instruction)
	if instruction == "" {
		return domain.ComparisonResult{}, newError(ErrorInvalidInput, "empty_instruction", nil)
	}
	if len(instruction) > s.maxInstruction {
		return domain.ComparisonResult{}, newError(ErrorInvalidInput, "instruction_too_long", nil)
	}

	req := agent.Request{
		Instruction: instruction,
		SessionID:   uuid.NewString(),
		UseTools:    in.UseTools,
	}

	var (
		acResult domain.BackendResult
		lcResult domain.BackendResult
	)

	g := new(errgroup.Group)
	g.Go(func() error {
		acResult = s.runBackend(ctx, s.agentCore, req)
		return nil
	})
	g.Go(func() error {
		lcResult = s.runBackend(ctx, s.langChain, req)
		return nil
	})
	_ = g.Wait()

	result := domain.ComparisonResult{
		AgentCore: acResult,
		LangChain: lcResult,
	}
	if acResult.Response != nil && lcResult.Response != nil {
		result.LatencyDeltaMS = acResult.Response.LatencyMS - lcResult.Response.LatencyMS
	}
	return result, nil
}

func (s *ChatService) runBackend(ctx context.Context, invoker agent.Invoker, req agent.Request) domain.BackendResult {
	start := time.Now()
	resp, err := invoker.Invoke(ctx, req)
	latency := time.Since(start)
	if err != nil {
		return domain.BackendResult{Error: err.Error()}
	}
	return domain.BackendResult{
		Response: &domain.ChatResponse{
			ResponseID: uuid.NewString(),
			Content:    resp.Content,
			ToolCalls:  resp.ToolCalls,
			LatencyMS:  latency.Milliseconds(),
			Metadata:   resp.Metadata,
		},
	}
}
