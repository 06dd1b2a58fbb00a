package chat

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-monolith/mono"

	"github.com/example/videomeet/events"
)

// capturingBus implements mono.EventBus and records published messages.
type capturingBus struct {
	mu        sync.Mutex
	published []*mono.Msg
}

func (b *capturingBus) Publish(subject string, data []byte) error {
	return b.PublishMsg(&mono.Msg{Subject: subject, Data: data})
}

func (b *capturingBus) PublishMsg(msg *mono.Msg) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, msg)
	return nil
}

func (b *capturingBus) Request(string, []byte, time.Duration) (*mono.Msg, error) {
	return nil, errors.New("not implemented")
}

func (b *capturingBus) RequestWithContext(context.Context, string, []byte) (*mono.Msg, error) {
	return nil, errors.New("not implemented")
}

func (b *capturingBus) RequestMsgWithContext(context.Context, *mono.Msg) (*mono.Msg, error) {
	return nil, errors.New("not implemented")
}

func (b *capturingBus) Subscribe(string, mono.MsgHandler) (mono.Subscription, error) {
	return nil, errors.New("not implemented")
}

func (b *capturingBus) SubscribeSync(string) (mono.Subscription, error) {
	return nil, errors.New("not implemented")
}

func (b *capturingBus) QueueSubscribe(string, string, mono.MsgHandler) (mono.Subscription, error) {
	return nil, errors.New("not implemented")
}

func (b *capturingBus) QueueSubscribeSync(string, string) (mono.Subscription, error) {
	return nil, errors.New("not implemented")
}

func (b *capturingBus) ChanSubscribe(string, chan *mono.Msg) (mono.Subscription, error) {
	return nil, errors.New("not implemented")
}

func (b *capturingBus) EventStream() (mono.EventStream, error) {
	return nil, errors.New("not implemented")
}

func (b *capturingBus) SetRuntimeContext(context.Context) {}

func TestService_SendMessage_EventCarriesAudienceSnapshot(t *testing.T) {
	service, _ := setupService(t)
	bus := &capturingBus{}
	service.SetEventBus(bus)

	if _, err := service.SendMessage(context.Background(), "room1", 1, "alice", "hello"); err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}

	bus.mu.Lock()
	defer bus.mu.Unlock()
	if len(bus.published) != 1 {
		t.Fatalf("published %d events, want 1", len(bus.published))
	}
	msg := bus.published[0]
	if msg.Subject != events.MessageSentV1.Subject {
		t.Fatalf("subject = %q, want %q", msg.Subject, events.MessageSentV1.Subject)
	}

	var event events.MessageSentEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		t.Fatalf("failed to decode MessageSent event: %v", err)
	}

	// The audience is resolved when the event is published, not when it is
	// consumed: a system notice sent just before a room closes still names
	// the members it was meant for.
	if len(event.MemberIDs) != 2 {
		t.Fatalf("MemberIDs = %v, want the two room1 members", event.MemberIDs)
	}
	got := map[uint]bool{}
	for _, id := range event.MemberIDs {
		got[id] = true
	}
	if !got[1] || !got[2] {
		t.Errorf("MemberIDs = %v, want 1 and 2", event.MemberIDs)
	}
}
