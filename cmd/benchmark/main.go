// benchmark runs the comparison test cases against the deployed AgentCore
// and LangChain services and writes per-backend JSON results plus a Markdown
// comparison report.
//
// Usage:
//
//	benchmark -runtime-arn arn:aws:bedrock-agentcore:...:runtime/poc \
//	          -langchain-url https://xxxx.lambda-url.us-east-1.on.aws \
//	          -out benchmark_results
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	awsagentcore "github.com/aws/aws-sdk-go-v2/service/bedrockagentcore"

	"github.com/rinaata-aezisai/agentcore-langchain-poc/internal/agent"
	"github.com/rinaata-aezisai/agentcore-langchain-poc/internal/agent/agentcore"
	"github.com/rinaata-aezisai/agentcore-langchain-poc/internal/agent/langchain"
	"github.com/rinaata-aezisai/agentcore-langchain-poc/internal/benchmark"
)

var (
	runtimeARN   = flag.String("runtime-arn", "", "AgentCore runtime ARN")
	langchainURL = flag.String("langchain-url", "", "LangChain service base URL")
	region       = flag.String("region", "", "AWS region (default: SDK resolution)")
	outDir       = flag.String("out", "benchmark_results", "Directory for JSON result files")
	reportPath   = flag.String("report", "comparison_report.md", "Markdown report path")
	timeout      = flag.Duration("timeout", 10*time.Minute, "Overall run timeout")
	unsigned     = flag.Bool("unsigned", false, "Skip SigV4 signing of LangChain requests")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "benchmark: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if *runtimeARN == "" || *langchainURL == "" {
		return fmt.Errorf("both -runtime-arn and -langchain-url are required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var cfgOpts []func(*config.LoadOptions) error
	if *region != "" {
		cfgOpts = append(cfgOpts, config.WithRegion(*region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, cfgOpts...)
	if err != nil {
		return fmt.Errorf("load AWS config: %w", err)
	}

	ac, err := agentcore.New(awsagentcore.NewFromConfig(cfg), *runtimeARN, cfg.Region)
	if err != nil {
		return err
	}
	var lcOpts []langchain.Option
	if !*unsigned {
		lcOpts = append(lcOpts, langchain.WithCredentials(cfg.Credentials))
	}
	lc, err := langchain.New(*langchainURL, cfg.Region, lcOpts...)
	if err != nil {
		return err
	}

	cases := benchmark.DefaultCases()

	acSummary, err := runBackend(ctx, agent.BackendAgentCore, ac, cases)
	if err != nil {
		return err
	}
	lcSummary, err := runBackend(ctx, agent.BackendLangChain, lc, cases)
	if err != nil {
		return err
	}

	metrics := benchmark.CompareSummaries(acSummary, lcSummary)
	printTable(metrics)

	report := benchmark.MarkdownReport(metrics, acSummary, lcSummary)
	if err := os.WriteFile(*reportPath, []byte(report), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	fmt.Printf("\nReport written to %s\n", *reportPath)
	return nil
}

func runBackend(ctx context.Context, backend string, invoker agent.Invoker, cases []benchmark.Case) (benchmark.Summary, error) {
	fmt.Printf("Running %d cases against %s...\n", len(cases), backend)
	runner := benchmark.NewRunner(backend, invoker)
	results, err := runner.Run(ctx, cases)
	if err != nil {
		return benchmark.Summary{}, fmt.Errorf("run %s: %w", backend, err)
	}
	summary := benchmark.Summarize(backend, results)

	if err := writeReport(backend, benchmark.Report{Summary: summary, Results: results}); err != nil {
		return benchmark.Summary{}, err
	}
	fmt.Printf("  %d/%d succeeded, avg %.0fms\n", summary.Successful, summary.TotalTests, summary.AvgLatencyMS)
	return summary, nil
}

func writeReport(backend string, report benchmark.Report) error {
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	name := fmt.Sprintf("%s_%s.json", backend, time.Now().UTC().Format("20060102T150405Z"))
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	path := filepath.Join(*outDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func printTable(metrics []benchmark.Metric) {
	fmt.Printf("\n%-25s %15s %15s %12s %10s\n", "Metric", "AgentCore", "LangChain", "Diff", "Winner")
	for _, m := range metrics {
		fmt.Printf("%-25s %15.1f %15.1f %+12.1f %10s\n",
			m.Name, m.AgentCoreValue, m.LangChainValue, m.Difference, m.Winner)
	}
	acWins, lcWins := benchmark.Score(metrics)
	fmt.Printf("\nOverall score: AgentCore %d - %d LangChain\n", acWins, lcWins)
}
