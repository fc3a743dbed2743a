package benchmark

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rinaata-aezisai/agentcore-langchain-poc/internal/agent"
	"github.com/rinaata-aezisai/agentcore-langchain-poc/internal/domain"
)

type scriptedInvoker struct {
	responses map[string]agent.Response
	errors    map[string]error
	calls     []agent.Request
}

func (s *scriptedInvoker) Invoke(_ context.Context, req agent.Request) (agent.Response, error) {
	s.calls = append(s.calls, req)
	if err, ok := s.errors[req.Instruction]; ok {
		return agent.Response{}, err
	}
	if resp, ok := s.responses[req.Instruction]; ok {
		return resp, nil
	}
	return agent.Response{Content: "ok"}, nil
}

func TestRun_RecordsOutcomes(t *testing.T) {
	inv := &scriptedInvoker{
		responses: map[string]agent.Response{
			"weather?": {Content: "sunny", ToolCalls: []domain.ToolCall{{Name: "get_current_weather"}}},
		},
		errors: map[string]error{"broken": errors.New("runtime unavailable")},
	}
	r := NewRunner(agent.BackendAgentCore, inv)

	cases := []Case{
		{Name: "weather", Instruction: "weather?", UseTools: true},
		{Name: "failing", Instruction: "broken"},
	}
	results, err := r.Run(context.Background(), cases)
	require.NoError(t, err)
	require.Len(t, results, 2)

	require.True(t, results[0].Success)
	require.Equal(t, "sunny", results[0].Response)
	require.Equal(t, 1, results[0].ToolCalls)
	require.Equal(t, agent.BackendAgentCore, results[0].Backend)
	require.Equal(t, "weather", results[0].TestName)

	require.False(t, results[1].Success)
	require.Contains(t, results[1].Error, "runtime unavailable")

	// Each case gets its own throwaway session.
	require.NotEqual(t, inv.calls[0].SessionID, inv.calls[1].SessionID)
	require.True(t, inv.calls[0].UseTools)
}

func TestRun_StopsOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRunner(agent.BackendLangChain, &scriptedInvoker{})
	results, err := r.Run(ctx, DefaultCases())
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, results)
}

func TestDefaultCases_CoverToolAndPlainChat(t *testing.T) {
	cases := DefaultCases()
	require.Len(t, cases, 7)

	var withTools, plain int
	for _, c := range cases {
		if c.UseTools {
			withTools++
		} else {
			plain++
		}
		require.NotEmpty(t, c.Name)
		require.NotEmpty(t, c.Instruction)
	}
	require.Equal(t, 4, withTools)
	require.Equal(t, 3, plain)
}

func TestSummarize(t *testing.T) {
	results := []Result{
		{Success: true, LatencyMS: 100},
		{Success: true, LatencyMS: 200},
		{Success: true, LatencyMS: 300},
		{Success: true, LatencyMS: 400},
		{Success: false, LatencyMS: 50, Error: "boom"},
	}
	s := Summarize(agent.BackendAgentCore, results)

	require.Equal(t, agent.BackendAgentCore, s.Backend)
	require.Equal(t, 5, s.TotalTests)
	require.Equal(t, 4, s.Successful)
	require.Equal(t, 1, s.Failed)
	require.InDelta(t, 80.0, s.SuccessRate, 0.001)
	require.InDelta(t, 250.0, s.AvgLatencyMS, 0.001)
	require.Equal(t, int64(100), s.MinLatencyMS)
	require.Equal(t, int64(400), s.MaxLatencyMS)
	require.Equal(t, int64(300), s.P50LatencyMS)
	require.Equal(t, int64(400), s.P95LatencyMS)
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(agent.BackendLangChain, nil)
	require.Equal(t, 0, s.TotalTests)
	require.Zero(t, s.SuccessRate)
}

func TestSummarize_AllFailed(t *testing.T) {
	s := Summarize(agent.BackendLangChain, []Result{
		{Success: false, Error: "boom"},
		{Success: false, Error: "boom"},
	})
	require.Equal(t, 2, s.Failed)
	require.Zero(t, s.SuccessRate)
	require.Zero(t, s.AvgLatencyMS)
}
