// Package benchmark drives identical test cases through both agent backends
// and summarizes latency and success rate so the two frameworks can be
// compared on equal footing.
package benchmark

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/rinaata-aezisai/agentcore-langchain-poc/internal/agent"
)

// Case is one benchmark prompt.
type Case struct {
	Name        string `json:"name"`
	Instruction string `json:"instruction"`
	UseTools    bool   `json:"use_tools"`
}

// Result is the outcome of one case against one backend.
type Result struct {
	Backend     string `json:"agent_type"`
	TestName    string `json:"test_name"`
	Instruction string `json:"prompt"`
	Response    string `json:"response"`
	LatencyMS   int64  `json:"latency_ms"`
	Success     bool   `json:"success"`
	Error       string `json:"error,omitempty"`
	ToolCalls   int    `json:"tool_calls"`
}

// Summary aggregates the results of one backend's run.
type Summary struct {
	Backend      string  `json:"agent_type"`
	TotalTests   int     `json:"total_tests"`
	Successful   int     `json:"successful_tests"`
	Failed       int     `json:"failed_tests"`
	AvgLatencyMS float64 `json:"avg_latency_ms"`
	MinLatencyMS int64   `json:"min_latency_ms"`
	MaxLatencyMS int64   `json:"max_latency_ms"`
	P50LatencyMS int64   `json:"p50_latency_ms"`
	P95LatencyMS int64   `json:"p95_latency_ms"`
	SuccessRate  float64 `json:"success_rate"`
}

// Report is the persisted result file for one backend.
type Report struct {
	Summary Summary  `json:"summary"`
	Results []Result `json:"results"`
}

// DefaultCases covers plain chat plus each tool the services expose.
func DefaultCases() []Case {
	return []Case{
		{Name: "simple_greeting", Instruction: "Hello! Briefly introduce yourself."},
		{Name: "factual_question", Instruction: "What is the capital of France?"},
		{Name: "reasoning", Instruction: "If a train travels 120 km in 90 minutes, what is its average speed in km/h?"},
		{Name: "weather_tool", Instruction: "What is the current weather in Tokyo?", UseTools: true},
		{Name: "calculator_tool", Instruction: "Calculate 1234 * 5678 using the calculator tool.", UseTools: true},
		{Name: "time_tool", Instruction: "What time is it right now in Asia/Tokyo?", UseTools: true},
		{Name: "multi_tool", Instruction: "Check the weather in London and create a task to pack an umbrella if it is rainy.", UseTools: true},
	}
}

// Runner executes cases against one backend through its adapter.
type Runner struct {
	backend string
	invoker agent.Invoker
}

// NewRunner creates a Runner for the named backend.
func NewRunner(backend string, invoker agent.Invoker) *Runner {
	return &Runner{backend: backend, invoker: invoker}
}

// Run executes the cases sequentially and records per-case outcomes. A case
// failure is recorded, not returned; only context cancellation stops the run.
func (r *Runner) Run(ctx context.Context, cases []Case) ([]Result, error) {
	results := make([]Result, 0, len(cases))
	for _, c := range cases {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		results = append(results, r.runCase(ctx, c))
	}
	return results, nil
}

func (r *Runner) runCase(ctx context.Context, c Case) Result {
	start := time.Now()
	resp, err := r.invoker.Invoke(ctx, agent.Request{
		Instruction: c.Instruction,
		SessionID:   uuid.NewString(),
		UseTools:    c.UseTools,
	})
	latency := time.Since(start).Milliseconds()

	result := Result{
		Backend:     r.backend,
		TestName:    c.Name,
		Instruction: c.Instruction,
		LatencyMS:   latency,
	}
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Success = true
	result.Response = resp.Content
	result.ToolCalls = len(resp.ToolCalls)
	return result
}

// Summarize computes the aggregate statistics over one backend's results.
// Percentiles follow nearest-rank on successful latencies only.
func Summarize(backend string, results []Result) Summary {
	s := Summary{Backend: backend, TotalTests: len(results)}
	if len(results) == 0 {
		return s
	}

	var latencies []int64
	for _, r := range results {
		if r.Success {
			s.Successful++
			latencies = append(latencies, r.LatencyMS)
		} else {
			s.Failed++
		}
	}
	s.SuccessRate = float64(s.Successful) / float64(s.TotalTests) * 100

	if len(latencies) == 0 {
		return s
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum int64
	for _, l := range latencies {
		sum += l
	}
	s.AvgLatencyMS = float64(sum) / float64(len(latencies))
	s.MinLatencyMS = latencies[0]
	s.MaxLatencyMS = latencies[len(latencies)-1]
	s.P50LatencyMS = latencies[percentileIndex(len(latencies), 0.5)]
	s.P95LatencyMS = latencies[percentileIndex(len(latencies), 0.95)]
	return s
}

func percentileIndex(n int, p float64) int {
	idx := int(float64(n) * p)
	if idx >= n {
		idx = n - 1
	}
	return idx
}
