// Package memory keeps published run events in process, for tests and for
// local runs without Pub/Sub.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/venue-ingest/internal/publisher"
)

// Message is one recorded publish call.
type Message struct {
	ID      string
	Topic   string
	Payload any
}

// Publisher records every publish. It satisfies venue.Publisher.
type Publisher struct {
	mu       sync.Mutex
	messages []Message
	failure  error
}

// New returns an empty Publisher.
func New() *Publisher {
	return &Publisher{}
}

// FailWith makes later publishes return err until it is called with nil.
func (p *Publisher) FailWith(err error) {
	p.mu.Lock()
	p.failure = err
	p.mu.Unlock()
}

// Publish appends the payload and returns an ID of the form memory-<n>.
func (p *Publisher) Publish(_ context.Context, topic string, payload any) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failure != nil {
		return "", fmt.Errorf("publish to %s: %w", topic, p.failure)
	}
	id := fmt.Sprintf("memory-%d", len(p.messages)+1)
	p.messages = append(p.messages, Message{ID: id, Topic: topic, Payload: payload})
	return id, nil
}

// Messages returns a snapshot of every recorded publish.
func (p *Publisher) Messages() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Message, len(p.messages))
	copy(out, p.messages)
	return out
}

// RunEvents returns the run events published for recordID, oldest first.
// Payloads of other types are skipped.
func (p *Publisher) RunEvents(recordID string) []publisher.RunEvent {
	var out []publisher.RunEvent
	for _, m := range p.Messages() {
		ev, ok := m.Payload.(publisher.RunEvent)
		if ok && ev.RecordID == recordID {
			out = append(out, ev)
		}
	}
	return out
}
