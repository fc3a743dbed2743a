package benchmark

import (
	"fmt"
	"strings"
)

// Winner labels used in comparison rows.
const (
	winnerAgentCore = "AgentCore"
	winnerLangChain = "LangChain"
)

// Metric is one row of the comparison report.
type Metric struct {
	Name           string  `json:"metric_name"`
	AgentCoreValue float64 `json:"agentcore_value"`
	LangChainValue float64 `json:"langchain_value"`
	Difference     float64 `json:"difference"`
	Winner         string  `json:"winner"`
	Notes          string  `json:"notes"`
}

// CompareSummaries builds the metric rows from both backends' summaries.
func CompareSummaries(ac, lc Summary) []Metric {
	lowerWins := func(name string, a, l float64) Metric {
		winner := winnerAgentCore
		if l < a {
			winner = winnerLangChain
		}
		return Metric{Name: name, AgentCoreValue: a, LangChainValue: l, Difference: a - l, Winner: winner, Notes: "Lower is better"}
	}

	metrics := []Metric{
		lowerWins("Average Latency (ms)", ac.AvgLatencyMS, lc.AvgLatencyMS),
		lowerWins("P50 Latency (ms)", float64(ac.P50LatencyMS), float64(lc.P50LatencyMS)),
		lowerWins("P95 Latency (ms)", float64(ac.P95LatencyMS), float64(lc.P95LatencyMS)),
	}

	successWinner := winnerAgentCore
	if lc.SuccessRate > ac.SuccessRate {
		successWinner = winnerLangChain
	}
	metrics = append(metrics, Metric{
		Name:           "Success Rate (%)",
		AgentCoreValue: ac.SuccessRate,
		LangChainValue: lc.SuccessRate,
		Difference:     ac.SuccessRate - lc.SuccessRate,
		Winner:         successWinner,
		Notes:          "Higher is better",
	})
	return metrics
}

// Score counts wins per backend.
func Score(metrics []Metric) (agentCore, langChain int) {
	for _, m := range metrics {
		if m.Winner == winnerAgentCore {
			agentCore++
		} else {
			langChain++
		}
	}
	return agentCore, langChain
}

// MarkdownReport renders the comparison as a Markdown document with a
// recommendation based on the win count.
func MarkdownReport(metrics []Metric, ac, lc Summary) string {
	var b strings.Builder
	b.WriteString("# AgentCore vs LangChain Comparison Report\n\n")
	b.WriteString("## Performance Metrics\n\n")
	b.WriteString("| Metric | AgentCore (Strands) | LangChain + LangGraph | Difference | Winner |\n")
	b.WriteString("|--------|--------------------|-----------------------|------------|--------|\n")
	for _, m := range metrics {
		fmt.Fprintf(&b, "| %s | %.1f | %.1f | %+.1f | %s |\n",
			m.Name, m.AgentCoreValue, m.LangChainValue, m.Difference, m.Winner)
	}

	b.WriteString("\n## Test Results Summary\n\n")
	fmt.Fprintf(&b, "### AgentCore (Strands Agents)\n- Total Tests: %d\n- Success Rate: %.1f%%\n\n", ac.TotalTests, ac.SuccessRate)
	fmt.Fprintf(&b, "### LangChain + LangGraph\n- Total Tests: %d\n- Success Rate: %.1f%%\n\n", lc.TotalTests, lc.SuccessRate)

	b.WriteString("## Recommendation\n\n")
	acWins, lcWins := Score(metrics)
	switch {
	case acWins > lcWins:
		b.WriteString("**Recommended: AgentCore (Strands Agents)**\n\n")
		b.WriteString("Best for AWS-native deployments, low-latency requirements, and simple agent workflows.\n")
	case lcWins > acWins:
		b.WriteString("**Recommended: LangChain + LangGraph**\n\n")
		b.WriteString("Best for complex multi-agent workflows, multi-provider support, and advanced state management.\n")
	default:
		b.WriteString("**No clear winner.** Both implementations perform similarly; choose based on ecosystem and team expertise.\n")
	}
	return b.String()
}
