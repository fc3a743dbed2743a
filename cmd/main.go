package main

import (
	"context"
	"log/slog"
	"os"
	"strconv"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	awsagentcore "github.com/aws/aws-sdk-go-v2/service/bedrockagentcore"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/rinaata-aezisai/agentcore-langchain-poc/handler"
	"github.com/rinaata-aezisai/agentcore-langchain-poc/internal/agent/agentcore"
	"github.com/rinaata-aezisai/agentcore-langchain-poc/internal/agent/langchain"
	"github.com/rinaata-aezisai/agentcore-langchain-poc/internal/integrations/eventbridge"
	"github.com/rinaata-aezisai/agentcore-langchain-poc/internal/integrations/paramstore"
	"github.com/rinaata-aezisai/agentcore-langchain-poc/internal/repository"
	"github.com/rinaata-aezisai/agentcore-langchain-poc/internal/usecase"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	eventsTable := mustEnv("EVENTS_TABLE")
	paramPrefix := mustEnv("PARAM_PREFIX")
	eventBusName := os.Getenv("EVENT_BUS_NAME")
	runtimeQualifier := os.Getenv("RUNTIME_QUALIFIER")
	signingService := os.Getenv("LANGCHAIN_SIGNING_SERVICE")
	maxInstruction := envInt("MAX_INSTRUCTION_LENGTH", 4000)
	contextWindow := envInt("CONTEXT_WINDOW", 10)

	// ---- AWS SDK config ----
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	// ---- Deployment parameters ----
	ssmClient, err := paramstore.New(awsssm.NewFromConfig(cfg))
	if err != nil {
		slog.Error("failed to create SSM client", "err", err)
		os.Exit(1)
	}
	params, err := paramstore.LoadRuntimeConfig(ctx, ssmClient, paramPrefix)
	if err != nil {
		slog.Error("failed to load runtime config", "err", err)
		os.Exit(1)
	}

	// ---- Backend adapters ----
	var acOpts []agentcore.Option
	if runtimeQualifier != "" {
		acOpts = append(acOpts, agentcore.WithQualifier(runtimeQualifier))
	}
	agentCore, err := agentcore.New(awsagentcore.NewFromConfig(cfg), params.AgentRuntimeARN, cfg.Region, acOpts...)
	if err != nil {
		slog.Error("failed to create agentcore adapter", "err", err)
		os.Exit(1)
	}

	lcOpts := []langchain.Option{langchain.WithCredentials(cfg.Credentials)}
	if signingService != "" {
		lcOpts = append(lcOpts, langchain.WithSigningService(signingService))
	}
	langChain, err := langchain.New(params.LangChainBaseURL, cfg.Region, lcOpts...)
	if err != nil {
		slog.Error("failed to create langchain adapter", "err", err)
		os.Exit(1)
	}

	// ---- Session storage ----
	store, err := repository.NewDynamoStore(awsdynamodb.NewFromConfig(cfg), eventsTable)
	if err != nil {
		slog.Error("failed to create event store", "err", err)
		os.Exit(1)
	}
	sessions, err := repository.NewSessionRepository(store)
	if err != nil {
		slog.Error("failed to create session repository", "err", err)
		os.Exit(1)
	}

	// ---- Event publishing ----
	var publisher usecase.EventPublisher = eventbridge.Noop{}
	if eventBusName != "" {
		publisher, err = eventbridge.New(awseventbridge.NewFromConfig(cfg), eventBusName, "")
		if err != nil {
			slog.Error("failed to create event publisher", "err", err)
			os.Exit(1)
		}
	}

	// ---- Handler ----
	chatService, err := usecase.NewChatService(agentCore, langChain, sessions, publisher, maxInstruction, contextWindow)
	if err != nil {
		slog.Error("failed to create chat service", "err", err)
		os.Exit(1)
	}

	h, err := handler.NewHandler(chatService, handler.Meta{ModelID: params.ModelID, Region: cfg.Region})
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		slog.Error("required environment variable is not set", "key", key)
		os.Exit(1)
	}
	return v
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
