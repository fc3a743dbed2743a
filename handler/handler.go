// Package handler adapts API Gateway proxy events to the chat use case. It
// owns routing, CORS, correlation IDs, and the error-code to HTTP status
// mapping; everything else is delegated.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"github.com/rinaata-aezisai/agentcore-langchain-poc/internal/domain"
	"github.com/rinaata-aezisai/agentcore-langchain-poc/internal/usecase"
)

const (
	apiPrefix      = "/api/v1"
	correlationHdr = "X-Correlation-Id"
	serviceName    = "agentcore-langchain-poc"
	serviceVersion = "1.0.0"
)

// ChatUseCase is the use-case surface the handler depends on.
type ChatUseCase interface {
	Send(ctx context.Context, in usecase.SendInput) (usecase.SendOutput, error)
	Compare(ctx context.Context, in usecase.CompareInput) (domain.ComparisonResult, error)
	StartSession(ctx context.Context, backend, userID string) (*domain.Session, error)
	Messages(ctx context.Context, sessionID string) ([]domain.Message, error)
	EndSession(ctx context.Context, sessionID, reason string) error
}

// Meta describes the deployment, echoed on the health and info endpoints.
type Meta struct {
	ModelID string
	Region  string
}

// Handler routes API Gateway proxy requests.
type Handler struct {
	uc   ChatUseCase
	meta Meta
}

// NewHandler creates a Handler with the given use case.
func NewHandler(uc ChatUseCase, meta Meta) (*Handler, error) {
	if uc == nil {
		return nil, errors.New("handler: use case must not be nil")
	}
	return &Handler{uc: uc, meta: meta}, nil
}

type chatRequestBody struct {
	Instruction string `json:"instruction"`
	SessionID   string `json:"session_id"`
	UseTools    bool   `json:"use_tools"`
	Agent       string `json:"agent"`
}

type chatResponseBody struct {
	SessionID string `json:"session_id"`
	domain.ChatResponse
}

type startSessionBody struct {
	Agent  string `json:"agent"`
	UserID string `json:"user_id"`
}

type sessionResponse struct {
	SessionID string `json:"session_id"`
	AgentID   string `json:"agent_id"`
	State     string `json:"state"`
	CreatedAt string `json:"created_at"`
}

type messageListResponse struct {
	Messages   []domain.Message `json:"messages"`
	TotalCount int              `json:"total_count"`
}

type healthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Version   string `json:"version"`
	ModelID   string `json:"model_id"`
	Region    string `json:"region"`
	Timestamp string `json:"timestamp"`
}

type infoResponse struct {
	Service   string   `json:"service"`
	Version   string   `json:"version"`
	ModelID   string   `json:"model_id"`
	Region    string   `json:"region"`
	Backends  []string `json:"backends"`
	Endpoints []string `json:"endpoints"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

// Handle is the Lambda entrypoint for API Gateway proxy events.
func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	corrID := correlationID(event.Headers)
	path := strings.TrimRight(event.Path, "/")
	if path == "" {
		path = "/"
	}

	slog.Info("request", "method", event.HTTPMethod, "path", path, "correlation_id", corrID)

	if event.HTTPMethod == http.MethodOptions {
		return respond(http.StatusOK, corrID, nil), nil
	}

	switch {
	case path == apiPrefix+"/chat" && event.HTTPMethod == http.MethodPost:
		return h.handleChat(ctx, event.Body, corrID, false), nil
	case path == apiPrefix+"/chat/tools" && event.HTTPMethod == http.MethodPost:
		return h.handleChat(ctx, event.Body, corrID, true), nil
	case path == apiPrefix+"/compare" && event.HTTPMethod == http.MethodPost:
		return h.handleCompare(ctx, event.Body, corrID), nil
	case path == apiPrefix+"/sessions" && event.HTTPMethod == http.MethodPost:
		return h.handleStartSession(ctx, event.Body, corrID), nil
	case path == apiPrefix+"/health" && event.HTTPMethod == http.MethodGet:
		return respond(http.StatusOK, corrID, healthResponse{
			Status:    "healthy",
			Service:   serviceName,
			Version:   serviceVersion,
			ModelID:   h.meta.ModelID,
			Region:    h.meta.Region,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}), nil
	case path == apiPrefix+"/info" && event.HTTPMethod == http.MethodGet:
		return respond(http.StatusOK, corrID, infoResponse{
			Service:  serviceName,
			Version:  serviceVersion,
			ModelID:  h.meta.ModelID,
			Region:   h.meta.Region,
			Backends: []string{"agentcore", "langchain"},
			Endpoints: []string{
				apiPrefix + "/chat",
				apiPrefix + "/chat/tools",
				apiPrefix + "/compare",
				apiPrefix + "/sessions",
				apiPrefix + "/health",
				apiPrefix + "/info",
			},
		}), nil
	}

	if sessionID, rest, ok := sessionPath(path); ok {
		switch {
		case rest == "/messages" && event.HTTPMethod == http.MethodGet:
			return h.handleMessages(ctx, sessionID, corrID), nil
		case rest == "" && event.HTTPMethod == http.MethodDelete:
			return h.handleEndSession(ctx, sessionID, corrID), nil
		}
	}

	return respond(http.StatusNotFound, corrID, errorResponse{Error: "NOT_FOUND", Reason: path}), nil
}

func (h *Handler) handleChat(ctx context.Context, body, corrID string, forceTools bool) events.APIGatewayProxyResponse {
	var req chatRequestBody
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		return respond(http.StatusBadRequest, corrID, errorResponse{Error: string(usecase.ErrorInvalidInput), Reason: "malformed_json"})
	}
	if forceTools {
		req.UseTools = true
	}

	out, err := h.uc.Send(ctx, usecase.SendInput{
		Backend:     req.Agent,
		Instruction: req.Instruction,
		SessionID:   req.SessionID,
		UseTools:    req.UseTools,
	})
	if err != nil {
		return errorToResponse(err, corrID)
	}
	return respond(http.StatusOK, corrID, chatResponseBody{SessionID: out.SessionID, ChatResponse: out.Response})
}

func (h *Handler) handleCompare(ctx context.Context, body, corrID string) events.APIGatewayProxyResponse {
	var req chatRequestBody
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		return respond(http.StatusBadRequest, corrID, errorResponse{Error: string(usecase.ErrorInvalidInput), Reason: "malformed_json"})
	}

	result, err := h.uc.Compare(ctx, usecase.CompareInput{
		Instruction: req.Instruction,
		UseTools:    req.UseTools,
	})
	if err != nil {
		return errorToResponse(err, corrID)
	}
	return respond(http.StatusOK, corrID, result)
}

func (h *Handler) handleStartSession(ctx context.Context, body, corrID string) events.APIGatewayProxyResponse {
	var req startSessionBody
	if body != "" {
		if err := json.Unmarshal([]byte(body), &req); err != nil {
			return respond(http.StatusBadRequest, corrID, errorResponse{Error: string(usecase.ErrorInvalidInput), Reason: "malformed_json"})
		}
	}

	session, err := h.uc.StartSession(ctx, req.Agent, req.UserID)
	if err != nil {
		return errorToResponse(err, corrID)
	}
	return respond(http.StatusCreated, corrID, sessionResponse{
		SessionID: session.ID,
		AgentID:   session.AgentID,
		State:     string(session.State),
		CreatedAt: session.CreatedAt.Format(time.RFC3339),
	})
}

func (h *Handler) handleMessages(ctx context.Context, sessionID, corrID string) events.APIGatewayProxyResponse {
	msgs, err := h.uc.Messages(ctx, sessionID)
	if err != nil {
		return errorToResponse(err, corrID)
	}
	return respond(http.StatusOK, corrID, messageListResponse{Messages: msgs, TotalCount: len(msgs)})
}

func (h *Handler) handleEndSession(ctx context.Context, sessionID, corrID string) events.APIGatewayProxyResponse {
	if err := h.uc.EndSession(ctx, sessionID, ""); err != nil {
		return errorToResponse(err, corrID)
	}
	return respond(http.StatusNoContent, corrID, nil)
}

// sessionPath splits /api/v1/sessions/{id}[/rest] into id and rest.
func sessionPath(path string) (sessionID, rest string, ok bool) {
	prefix := apiPrefix + "/sessions/"
	if !strings.HasPrefix(path, prefix) {
		return "", "", false
	}
	tail := strings.TrimPrefix(path, prefix)
	if tail == "" {
		return "", "", false
	}
	if idx := strings.Index(tail, "/"); idx >= 0 {
		return tail[:idx], tail[idx:], true
	}
	return tail, "", true
}

func errorToResponse(err error, corrID string) events.APIGatewayProxyResponse {
	var ucErr *usecase.Error
	if !errors.As(err, &ucErr) {
		slog.Error("unexpected handler error", "err", err, "correlation_id", corrID)
		return respond(http.StatusInternalServerError, corrID, errorResponse{Error: string(usecase.ErrorInternal)})
	}

	status := http.StatusInternalServerError
	switch ucErr.Code {
	case usecase.ErrorInvalidInput:
		status = http.StatusBadRequest
	case usecase.ErrorSessionNotFound:
		status = http.StatusNotFound
	case usecase.ErrorSessionEnded, usecase.ErrorConflict:
		status = http.StatusConflict
	case usecase.ErrorRateLimited:
		status = http.StatusTooManyRequests
	case usecase.ErrorUpstream:
		status = http.StatusBadGateway
	}

	slog.Warn("request failed", "code", ucErr.Code, "reason", ucErr.Reason, "correlation_id", corrID)
	return respond(status, corrID, errorResponse{Error: string(ucErr.Code), Reason: ucErr.Reason})
}

func respond(status int, corrID string, body any) events.APIGatewayProxyResponse {
	headers := map[string]string{
		"Content-Type":                 "application/json",
		correlationHdr:                 corrID,
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Methods": "GET, POST, DELETE, OPTIONS",
		"Access-Control-Allow-Headers": "Content-Type, Authorization, " + correlationHdr,
	}
	if body == nil {
		return events.APIGatewayProxyResponse{StatusCode: status, Headers: headers}
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		slog.Error("failed to encode response body", "err", err)
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusInternalServerError,
			Headers:    headers,
			Body:       `{"error":"INTERNAL_ERROR"}`,
		}
	}
	return events.APIGatewayProxyResponse{StatusCode: status, Headers: headers, Body: string(encoded)}
}

func correlationID(headers map[string]string) string {
	for k, v := range headers {
		if strings.EqualFold(k, correlationHdr) && v != "" {
			return v
		}
	}
	return uuid.NewString()
}
