package relay

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestEnvelope_Validate(t *testing.T) {
	tests := []struct {
		name    string
		kind    Kind
		wantErr bool
	}{
		{name: "chat", kind: KindChat},
		{name: "presence", kind: KindPresence},
		{name: "system", kind: KindSystem},
		{name: "force offline", kind: KindForceOffline},
		{name: "empty", kind: "", wantErr: true},
		{name: "arbitrary string", kind: "shutdown", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := Envelope{Type: tt.kind}
			err := env.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownKind) {
					t.Errorf("Validate() error = %v, want ErrUnknownKind", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate() unexpected error: %v", err)
			}
		})
	}
}

func TestEnvelope_WireFormat(t *testing.T) {
	env := Envelope{
		Type:      KindChat,
		RoomID:    "abc12345",
		MessageID: 7,
		UserID:    1,
		Username:  "alice",
		Content:   "hello",
		Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	data, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded Envelope
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if decoded != env {
		t.Errorf("round trip changed envelope: got %+v, want %+v", decoded, env)
	}

	// Optional fields stay off the wire when unset.
	minimal, err := json.Marshal(Envelope{Type: KindSystem, Content: "closed"})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(minimal, &fields); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	for _, key := range []string{"room_id", "id", "user_id", "username", "event", "reason"} {
		if _, present := fields[key]; present {
			t.Errorf("unset field %q should be omitted from the wire format", key)
		}
	}
}
