// Package eventbridge publishes session domain events to an EventBridge bus
// so downstream consumers (analytics, the dashboard refresh rule) can react
// to them. Publishing is best-effort from the caller's point of view.
package eventbridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"

	"github.com/rinaata-aezisai/agentcore-langchain-poc/internal/domain"
)

// PutEvents accepts at most 10 entries per call.
const maxBatchSize = 10

// eventBridgeAPI is the minimal EventBridge interface required by Publisher.
type eventBridgeAPI interface {
	PutEvents(ctx context.Context, in *awseventbridge.PutEventsInput, optFns ...func(*awseventbridge.Options)) (*awseventbridge.PutEventsOutput, error)
}

// Publisher sends domain events to a named event bus.
type Publisher struct {
	api     eventBridgeAPI
	busName string
	source  string
}

// New creates a Publisher for the given bus. Source is the EventBridge
// source attribute stamped on every entry.
func New(api eventBridgeAPI, busName, source string) (*Publisher, error) {
	if api == nil {
		return nil, errors.New("eventbridge: api must not be nil")
	}
	if strings.TrimSpace(busName) == "" {
		return nil, errors.New("eventbridge: bus name must not be empty")
	}
	if strings.TrimSpace(source) == "" {
		source = "agentcore-langchain-poc"
	}
	return &Publisher{api: api, busName: busName, source: source}, nil
}

// Publish sends the events in batches of 10. Entries rejected by the bus are
// logged and counted into the returned error; accepted entries stay accepted.
func (p *Publisher) Publish(ctx context.Context, events []domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	entries := make([]types.PutEventsRequestEntry, 0, len(events))
	for _, ev := range events {
		detail, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("eventbridge: marshal %s: %w", ev.EventType(), err)
		}
		entries = append(entries, types.PutEventsRequestEntry{
			EventBusName: aws.String(p.busName),
			Source:       aws.String(p.source),
			DetailType:   aws.String(ev.EventType()),
			Detail:       aws.String(string(detail)),
		})
	}

	var failed int
	for start := 0; start < len(entries); start += maxBatchSize {
		end := start + maxBatchSize
		if end > len(entries) {
			end = len(entries)
		}
		out, err := p.api.PutEvents(ctx, &awseventbridge.PutEventsInput{Entries: entries[start:end]})
		if err != nil {
			return fmt.Errorf("eventbridge: put events: %w", err)
		}
		if out.FailedEntryCount > 0 {
			failed += int(out.FailedEntryCount)
			for _, entry := range out.Entries {
				if entry.ErrorCode != nil {
					slog.Warn("event entry rejected",
						"code", aws.ToString(entry.ErrorCode),
						"message", aws.ToString(entry.ErrorMessage))
				}
			}
		}
	}
	if failed > 0 {
		return fmt.Errorf("eventbridge: %d of %d entries rejected", failed, len(entries))
	}
	return nil
}

// Noop is a Publisher stand-in for deployments without an event bus.
type Noop struct{}

// Publish discards the events.
func (Noop) Publish(context.Context, []domain.Event) error { return nil }
