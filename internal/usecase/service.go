package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rinaata-aezisai/agentcore-langchain-poc/internal/agent"
	"github.com/rinaata-aezisai/agentcore-langchain-poc/internal/domain"
	"github.com/rinaata-aezisai/agentcore-langchain-poc/internal/repository"
)

const (
	defaultMaxInstruction = 4000
	defaultContextWindow  = 10
)

// SessionStore is the session persistence interface consumed by ChatService.
type SessionStore interface {
	Save(ctx context.Context, session *domain.Session) error
	FindByID(ctx context.Context, sessionID string) (*domain.Session, error)
}

// EventPublisher forwards domain events to the event bus. Publishing is
// best-effort; a failure must not fail the chat turn.
type EventPublisher interface {
	Publish(ctx context.Context, events []domain.Event) error
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

// ChatService routes instructions to one of the two agent backends and keeps
// the session history around them.
type ChatService struct {
	agentCore      agent.Invoker
	langChain      agent.Invoker
	sessions       SessionStore
	publisher      EventPublisher
	maxInstruction int
	contextWindow  int
}

// SendInput is one chat turn request.
type SendInput struct {
	Backend     string
	Instruction string
	SessionID   string
	UseTools    bool
}

// SendOutput pairs the unified response with the session that served it.
type SendOutput struct {
	SessionID string
	Response  domain.ChatResponse
}

// NewChatService wires the two backend adapters with session storage.
func NewChatService(agentCore, langChain agent.Invoker, sessions SessionStore, publisher EventPublisher, maxInstruction, contextWindow int) (*ChatService, error) {
	if agentCore == nil {
		return nil, errors.New("usecase: agentcore invoker must not be nil")
	}
	if langChain == nil {
		return nil, errors.New("usecase: langchain invoker must not be nil")
	}
	if sessions == nil {
		return nil, errors.New("usecase: session store must not be nil")
	}
	if maxInstruction <= 0 {
		maxInstruction = defaultMaxInstruction
	}
	if contextWindow <= 0 {
		contextWindow = defaultContextWindow
	}
	return &ChatService{
		agentCore:      agentCore,
		langChain:      langChain,
		sessions:       sessions,
		publisher:      publisher,
		maxInstruction: maxInstruction,
		contextWindow:  contextWindow,
	}, nil
}

// StartSession opens a new session bound to the given backend.
func (s *ChatService) StartSession(ctx context.Context, backend, userID string) (*domain.Session, error) {
	backend, err := s.resolveBackend(backend, "")
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(userID) == "" {
		userID = "anonymous"
	}

	session := domain.StartSession(backend, userID)
	events := session.PendingEvents()
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, newError(ErrorInternal, "session_save_error", err)
	}
	s.publish(ctx, events)
	return session, nil
}

// Send executes one chat turn against the selected backend and persists it.
func (s *ChatService) Send(ctx context.Context, in SendInput) (SendOutput, error) {
	instruction := strings.TrimSpace(in.Instruction)
	if instruction == "" {
		return SendOutput{}, newError(ErrorInvalidInput, "empty_instruction", nil)
	}
	if len(instruction) > s.maxInstruction {
		return SendOutput{}, newError(ErrorInvalidInput, "instruction_too_long", nil)
	}

	session, err := s.resolveSession(ctx, in)
	if err != nil {
		return SendOutput{}, err
	}

	backend, err := s.resolveBackend(in.Backend, session.AgentID)
	if err != nil {
		return SendOutput{}, err
	}
	invoker := s.invoker(backend)

	history := session.Context(s.contextWindow)

	start := time.Now()
	result, err := invoker.Invoke(ctx, agent.Request{
		Instruction: instruction,
		SessionID:   session.ID,
		History:     history,
		UseTools:    in.UseTools,
	})
	latency := time.Since(start)
	if err != nil {
		if status, ok := upstreamStatusCode(err); ok && status == 429 {
			return SendOutput{}, newError(ErrorRateLimited, backend+"_rate_limited", err)
		}
		return SendOutput{}, newError(ErrorUpstream, backend+"_invoke_error", err)
	}

	if err := session.AddMessage(domain.NewMessage(domain.RoleUser, instruction, nil)); err != nil {
		return SendOutput{}, newError(ErrorSessionEnded, "session_ended", err)
	}
	assistant := domain.NewMessage(domain.RoleAssistant, result.Content, result.ToolCalls)
	if err := session.AddMessage(assistant); err != nil {
		return SendOutput{}, newError(ErrorSessionEnded, "session_ended", err)
	}

	events := session.PendingEvents()
	if err := s.sessions.Save(ctx, session); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return SendOutput{}, newError(ErrorConflict, "concurrent_session_write", err)
		}
		return SendOutput{}, newError(ErrorInternal, "session_save_error", err)
	}
	s.publish(ctx, events)

	return SendOutput{
		SessionID: session.ID,
		Response: domain.ChatResponse{
			ResponseID: assistant.ID,
			Content:    result.Content,
			ToolCalls:  result.ToolCalls,
			LatencyMS:  latency.Milliseconds(),
			Metadata:   result.Metadata,
		},
	}, nil
}

// Messages returns the stored history of a session.
func (s *ChatService) Messages(ctx context.Context, sessionID string) ([]domain.Message, error) {
	session, err := s.findSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return session.Messages(), nil
}

// EndSession closes a session. Ending an already ended session maps to
// SESSION_ENDED so the handler can return a conflict.
func (s *ChatService) EndSession(ctx context.Context, sessionID, reason string) error {
	session, err := s.findSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if reason == "" {
		reason = "user_requested"
	}
	if err := session.End(reason); err != nil {
		return newError(ErrorSessionEnded, "session_already_ended", err)
	}
	events := session.PendingEvents()
	if err := s.sessions.Save(ctx, session); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return newError(ErrorConflict, "concurrent_session_write", err)
		}
		return newError(ErrorInternal, "session_save_error", err)
	}
	s.publish(ctx, events)
	return nil
}

func (s *ChatService) resolveSession(ctx context.Context, in SendInput) (*domain.Session, error) {
	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" {
		backend, err := s.resolveBackend(in.Backend, "")
		if err != nil {
			return nil, err
		}
		return domain.StartSession(backend, "anonymous"), nil
	}
	return s.findSession(ctx, sessionID)
}

func (s *ChatService) findSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, newError(ErrorInvalidInput, "empty_session_id", nil)
	}
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, newError(ErrorSessionNotFound, "session_not_found", err)
		}
		return nil, newError(ErrorInternal, "session_load_error", err)
	}
	return session, nil
}

// resolveBackend picks the backend for a turn: an explicit request wins,
// then the session's bound agent, then the AgentCore default.
func (s *ChatService) resolveBackend(requested, sessionAgent string) (string, error) {
	backend := strings.ToLower(strings.TrimSpace(requested))
	if backend == "" {
		backend = sessionAgent
	}
	if backend == "" {
		backend = agent.BackendAgentCore
	}
	switch backend {
	case agent.BackendAgentCore, agent.BackendLangChain:
		return backend, nil
	default:
		return "", newError(ErrorInvalidInput, "unknown_backend", fmt.Errorf("backend %q", requested))
	}
}

func (s *ChatService) invoker(backend string) agent.Invoker {
	if backend == agent.BackendLangChain {
		return s.langChain
	}
	return s.agentCore
}

func (s *ChatService) publish(ctx context.Context, events []domain.Event) {
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events); err != nil {
		slog.Warn("failed to publish domain events", "count", len(events), "err", err)
	}
}

func upstreamStatusCode(err error) (int, bool) {
	var statusErr httpStatusCoder
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	return statusErr.HTTPStatusCode(), true
}
